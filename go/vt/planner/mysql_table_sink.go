/*
Copyright 2026 The MPPDB Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package planner

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/netutil"
	"github.com/mppdb/coordinator/go/sqlescape"
	"github.com/mppdb/coordinator/go/vt/catalog"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// ExternalTableSink writes rows into a table on an external MySQL server.
// It is immutable once built.
type ExternalTableSink struct {
	host     string
	port     int
	user     string
	password string
	db       string
	table    string
}

var _ DataSink = (*ExternalTableSink)(nil)

// NewExternalTableSink returns a sink writing into the table described by
// info.
func NewExternalTableSink(info *catalog.MysqlTableInfo) (*ExternalTableSink, error) {
	if info == nil || info.Host == "" || info.Table == "" {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "external sink needs a host and a table")
	}
	if info.Port <= 0 || info.Port > 65535 {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "external sink port %d out of range", info.Port)
	}
	s := &ExternalTableSink{
		host:     info.Host,
		port:     info.Port,
		user:     info.User,
		password: info.Password,
		db:       info.Database,
		table:    info.Table,
	}
	// Writers connect with DSN(), so it has to name this exact destination.
	cfg, err := mysql.ParseDSN(s.DSN())
	if err != nil {
		return nil, vterrors.WithState(err, codes.InvalidArgument, vterrors.BadSourceReference, fmt.Sprintf("external sink %v has no valid DSN", s))
	}
	if cfg.User != s.user || cfg.Passwd != s.password || cfg.DBName != s.db || cfg.Addr != netutil.JoinHostPort(s.host, s.port) {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "external sink %v cannot be addressed by a DSN", s)
	}
	return s, nil
}

// DSN renders the destination as a go-sql-driver/mysql data source name.
func (s *ExternalTableSink) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = s.user
	cfg.Passwd = s.password
	cfg.Net = "tcp"
	cfg.Addr = netutil.JoinHostPort(s.host, s.port)
	cfg.DBName = s.db
	return cfg.FormatDSN()
}

// String never includes the password.
func (s *ExternalTableSink) String() string {
	return fmt.Sprintf("%s@%s/%s.%s", s.user, netutil.JoinHostPort(s.host, s.port), sqlescape.EscapeID(s.db), sqlescape.EscapeID(s.table))
}

// ToWire is part of the DataSink interface.
func (s *ExternalTableSink) ToWire() (*wire.DataSink, error) {
	return &wire.DataSink{
		Type: wire.MysqlTableSinkType,
		MysqlTableSink: &wire.MysqlTableSink{
			Host:   s.host,
			Port:   int32(s.port),
			User:   s.user,
			Passwd: s.password,
			DB:     s.db,
			Table:  s.table,
		},
	}, nil
}

// Explain is part of the DataSink interface. There is nothing to show.
func (*ExternalTableSink) Explain(string, ExplainLevel) string { return "" }

// OutputPartition is part of the DataSink interface.
func (*ExternalTableSink) OutputPartition() *DataPartition { return nil }

// ExchNodeID is part of the DataSink interface.
func (*ExternalTableSink) ExchNodeID() (PlanNodeID, bool) { return 0, false }
