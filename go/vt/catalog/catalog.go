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

// Package catalog provides immutable catalog snapshots read by the planner.
//
// A Snapshot is built once and never mutated; every compilation reads the
// snapshot that was current when it started, so concurrent compilations
// never observe a catalog write half-way.
package catalog

import (
	"context"
	"sort"
	"strings"

	"google.golang.org/grpc/codes"
	"sigs.k8s.io/yaml"

	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// TableType says where a table's rows live.
type TableType string

// Table types.
const (
	// SchemaTable rows are synthesized from the coordinator's live state.
	SchemaTable TableType = "SCHEMA"
	// MysqlTable rows live in an external MySQL server.
	MysqlTable TableType = "MYSQL"
	// OlapTable rows live in partitioned native storage.
	OlapTable TableType = "OLAP"
)

// InformationSchemaDB is the virtual database holding schema tables.
const InformationSchemaDB = "information_schema"

// MysqlTableInfo is the connection descriptor of an external MySQL table.
type MysqlTableInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Table    string `json:"table"`
}

// Replica is one copy of a tablet served by a backend.
type Replica struct {
	BackendID int64  `json:"backend_id"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Cell      string `json:"cell"`
	Alive     bool   `json:"alive"`
}

// Tablet is the smallest independently placed unit of a partition.
type Tablet struct {
	ID       int64     `json:"id"`
	Version  int64     `json:"version"`
	DataSize int64     `json:"data_size"`
	Replicas []Replica `json:"replicas"`
}

// Partition groups the tablets of one partition.
type Partition struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Tablets []Tablet `json:"tablets"`
}

// Table describes one table.
type Table struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Type       TableType       `json:"type"`
	Mysql      *MysqlTableInfo `json:"mysql,omitempty"`
	Partitions []Partition     `json:"partitions,omitempty"`
}

// Database is a named set of tables.
type Database struct {
	Name   string   `json:"name"`
	Tables []*Table `json:"tables"`
}

// PlacementSource returns the live replicas of a tablet.
type PlacementSource interface {
	TabletReplicas(ctx context.Context, table *Table, partitionID, tabletID int64) ([]Replica, error)
}

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	version int64
	dbs     map[string]map[string]*Table
}

// NewSnapshot builds a snapshot from dbs. The input is copied; later
// changes to it are not visible through the snapshot. The virtual
// information_schema database is always present.
func NewSnapshot(version int64, dbs ...*Database) *Snapshot {
	s := &Snapshot{version: version, dbs: make(map[string]map[string]*Table, len(dbs)+1)}
	s.dbs[InformationSchemaDB] = informationSchemaTables()
	for _, db := range dbs {
		tables := make(map[string]*Table, len(db.Tables))
		for _, t := range db.Tables {
			tables[strings.ToLower(t.Name)] = cloneTable(t)
		}
		s.dbs[db.Name] = tables
	}
	return s
}

// snapshotFile is the YAML/JSON layout read by LoadSnapshot.
type snapshotFile struct {
	Version   int64       `json:"version"`
	Databases []*Database `json:"databases"`
}

// LoadSnapshot parses a YAML or JSON catalog description.
func LoadSnapshot(data []byte) (*Snapshot, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, vterrors.Errorf(codes.InvalidArgument, "cannot parse catalog: %v", err)
	}
	return NewSnapshot(f.Version, f.Databases...), nil
}

// Version returns the catalog version the snapshot was taken at.
func (s *Snapshot) Version() int64 { return s.version }

// Databases returns the sorted database names.
func (s *Snapshot) Databases() []string {
	names := make([]string, 0, len(s.dbs))
	for name := range s.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table resolves ref. Table names are case-insensitive, database names are
// not, except for information_schema.
func (s *Snapshot) Table(ref analysis.TableRef) (*Table, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	db := ref.Database
	if strings.EqualFold(db, InformationSchemaDB) {
		db = InformationSchemaDB
	}
	tables, ok := s.dbs[db]
	if !ok {
		return nil, vterrors.NewErrorf(codes.NotFound, vterrors.NoSuchTable, "unknown database %q", ref.Database)
	}
	t, ok := tables[strings.ToLower(ref.Table)]
	if !ok {
		return nil, vterrors.NewErrorf(codes.NotFound, vterrors.NoSuchTable, "unknown table %q", ref.String())
	}
	return t, nil
}

// TabletReplicas implements PlacementSource from the snapshot's own
// placement data. Dead replicas are filtered out.
func (s *Snapshot) TabletReplicas(ctx context.Context, table *Table, partitionID, tabletID int64) ([]Replica, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range table.Partitions {
		if p.ID != partitionID {
			continue
		}
		for _, tb := range p.Tablets {
			if tb.ID != tabletID {
				continue
			}
			var live []Replica
			for _, r := range tb.Replicas {
				if r.Alive {
					live = append(live, r)
				}
			}
			return live, nil
		}
	}
	return nil, vterrors.NewErrorf(codes.NotFound, vterrors.NoSuchTable, "tablet %d of partition %d not found in table %q", tabletID, partitionID, table.Name)
}

func cloneTable(t *Table) *Table {
	c := *t
	if t.Mysql != nil {
		m := *t.Mysql
		c.Mysql = &m
	}
	c.Partitions = make([]Partition, len(t.Partitions))
	for i, p := range t.Partitions {
		c.Partitions[i] = Partition{ID: p.ID, Name: p.Name, Tablets: make([]Tablet, len(p.Tablets))}
		for j, tb := range p.Tablets {
			tb.Replicas = append([]Replica(nil), tb.Replicas...)
			c.Partitions[i].Tablets[j] = tb
		}
	}
	return &c
}
