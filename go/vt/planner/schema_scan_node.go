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
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/ptr"
	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// pseudoDatabases maps variable tables to the scope they read when the
// statement named no database.
var pseudoDatabases = map[string]string{
	"GLOBAL_VARIABLES":  "GLOBAL",
	"SESSION_VARIABLES": "SESSION",
}

// VirtualCatalogScan scans a table synthesized from the coordinator's own
// state, such as information_schema.TABLES. Workers call back into the
// coordinator to materialize the rows, so Finalize records who is asking
// and where the coordinator can be reached.
type VirtualCatalogScan struct {
	scanNodeBase
	tableName string
	predicate analysis.SchemaPredicate

	// Set by Finalize.
	schemaDB    *string
	schemaTable *string
	wild        *string
	user        *string
	frontendIP  *string
	rpcPort     *int32
	threadID    *int64
}

var _ ScanNode = (*VirtualCatalogScan)(nil)

// NewVirtualCatalogScan returns a scan over the schema table named by
// source. predicate is the analyzer's reduction of the statement's filters.
func NewVirtualCatalogScan(id PlanNodeID, tuple *analysis.TupleDescriptor, source analysis.TableRef, conjuncts []analysis.Predicate, predicate analysis.SchemaPredicate) *VirtualCatalogScan {
	return &VirtualCatalogScan{
		scanNodeBase: newScanNodeBase(id, tuple, "SCAN SCHEMA", source, conjuncts),
		tableName:    source.Table,
		predicate:    predicate,
	}
}

// TableName is the schema table scanned.
func (s *VirtualCatalogScan) TableName() string { return s.tableName }

// NumInstances is part of the PlanNode interface. Schema tables are served
// by the coordinator, so one instance reads all rows.
func (s *VirtualCatalogScan) NumInstances() int { return 1 }

// ScanRangeLocations is part of the ScanNode interface. Schema scans have
// no ranges.
func (s *VirtualCatalogScan) ScanRangeLocations() []ScanRangeLocation {
	return []ScanRangeLocation{}
}

// Finalize is part of the PlanNode interface.
func (s *VirtualCatalogScan) Finalize(ctx context.Context, pctx *PlanContext) error {
	if err := s.beginFinalize(); err != nil {
		return err
	}
	if pctx == nil {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "node %s: no plan context", s.id)
	}

	s.schemaDB = ptr.Clone(s.predicate.Database)
	s.schemaTable = ptr.Clone(s.predicate.Table)
	s.wild = ptr.Clone(s.predicate.Wild)
	if pctx.Session.User != "" {
		s.user = ptr.Of(pctx.Session.User)
	}
	s.threadID = ptr.Clone(pctx.Session.ConnectionID)
	s.rpcPort = ptr.Of(int32(pctx.RPCPort))

	resolver := pctx.Resolver
	if resolver == nil {
		resolver = NetHostResolver{}
	}
	rctx, cancel := context.WithTimeout(ctx, pctx.finalizeTimeout())
	defer cancel()
	ip, err := resolver.LocalAddress(rctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return vterrors.Wrapf(ctxErr, "node %s: finalize aborted", s.id)
		}
		return vterrors.WithState(err, codes.Unavailable, vterrors.HostResolutionFailed, fmt.Sprintf("node %s: cannot resolve coordinator address", s.id))
	}
	s.frontendIP = ptr.Of(ip)
	return nil
}

// defaultDatabase returns the database sent to workers.
func (s *VirtualCatalogScan) defaultDatabase() *string {
	if s.schemaDB != nil {
		return ptr.Clone(s.schemaDB)
	}
	if db, ok := pseudoDatabases[strings.ToUpper(s.tableName)]; ok {
		return ptr.Of(db)
	}
	return nil
}

// Explain is part of the PlanNode interface.
func (s *VirtualCatalogScan) Explain(prefix string, level ExplainLevel) string {
	buf := s.explainHeader(prefix, level)
	fmt.Fprintf(buf, "%s   TABLE: %s\n", prefix, s.tableName)
	if db := s.defaultDatabase(); db != nil {
		fmt.Fprintf(buf, "%s   DB: %s\n", prefix, *db)
	}
	if s.wild != nil {
		fmt.Fprintf(buf, "%s   WILD: %q\n", prefix, *s.wild)
	}
	return buf.String()
}

// ToWire is part of the PlanNode interface.
func (s *VirtualCatalogScan) ToWire() (*wire.PlanNode, error) {
	n := s.wireBase(wire.SchemaScanNodeType, s.NumInstances())
	n.ScanRanges = scanRangesToWire(s.ScanRangeLocations())
	n.SchemaScanNode = &wire.SchemaScanNode{
		TableName: s.tableName,
		DB:        s.defaultDatabase(),
		Table:     ptr.Clone(s.schemaTable),
		Wild:      ptr.Clone(s.wild),
		User:      ptr.Clone(s.user),
		IP:        ptr.Clone(s.frontendIP),
		Port:      ptr.Clone(s.rpcPort),
		ThreadID:  ptr.Clone(s.threadID),
	}
	if s.tuple != nil {
		n.SchemaScanNode.TupleID = int32(s.tuple.ID)
	}
	return n, nil
}
