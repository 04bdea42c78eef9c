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

// Package analysis holds the output of the semantic analyzer as consumed by
// the planner: tuple descriptors, table references, pushed-down predicates
// and the analyzed statement itself. The analyzer is responsible for
// validating and simplifying these; the planner only reads them.
package analysis

import (
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// PrimitiveType is the type of an output slot or literal.
type PrimitiveType string

// Supported primitive types.
const (
	TypeBoolean  PrimitiveType = "BOOLEAN"
	TypeInt      PrimitiveType = "INT"
	TypeBigInt   PrimitiveType = "BIGINT"
	TypeDouble   PrimitiveType = "DOUBLE"
	TypeDecimal  PrimitiveType = "DECIMAL"
	TypeDate     PrimitiveType = "DATE"
	TypeDatetime PrimitiveType = "DATETIME"
	TypeChar     PrimitiveType = "CHAR"
	TypeVarchar  PrimitiveType = "VARCHAR"
)

// IsStringType reports whether literals of t are quoted in SQL text.
func (t PrimitiveType) IsStringType() bool {
	switch t {
	case TypeChar, TypeVarchar, TypeDate, TypeDatetime:
		return true
	}
	return false
}

// SlotID identifies a slot within a descriptor table.
type SlotID int

// TupleID identifies a tuple descriptor.
type TupleID int

// SlotDescriptor is one typed, named output column.
type SlotDescriptor struct {
	ID       SlotID        `json:"id"`
	Name     string        `json:"name"`
	Type     PrimitiveType `json:"type"`
	Nullable bool          `json:"nullable,omitempty"`
}

// TupleDescriptor is an ordered row schema.
type TupleDescriptor struct {
	ID    TupleID          `json:"id"`
	Slots []SlotDescriptor `json:"slots"`
}

// ColumnNames returns the slot names in order.
func (td *TupleDescriptor) ColumnNames() []string {
	if td == nil {
		return nil
	}
	names := make([]string, len(td.Slots))
	for i, s := range td.Slots {
		names[i] = s.Name
	}
	return names
}

// Clone returns a deep copy of td.
func (td *TupleDescriptor) Clone() *TupleDescriptor {
	if td == nil {
		return nil
	}
	return &TupleDescriptor{ID: td.ID, Slots: append([]SlotDescriptor(nil), td.Slots...)}
}

// TableRef names a table within a database.
type TableRef struct {
	Database string `json:"database"`
	Table    string `json:"table"`
}

// Validate checks the reference is well-formed.
func (r TableRef) Validate() error {
	if strings.TrimSpace(r.Table) == "" {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "malformed source reference %q: no table name", r.String())
	}
	return nil
}

func (r TableRef) String() string {
	if r.Database == "" {
		return r.Table
	}
	return r.Database + "." + r.Table
}

// Literal is a typed constant.
type Literal struct {
	Value string        `json:"value"`
	Type  PrimitiveType `json:"type"`
}

// Predicate is a single conjunct pushed down by the analyzer.
type Predicate struct {
	Column string    `json:"column"`
	Op     string    `json:"op"`
	Values []Literal `json:"values,omitempty"`
}

func (p Predicate) String() string {
	vals := make([]string, len(p.Values))
	for i, v := range p.Values {
		vals[i] = v.Value
	}
	switch len(vals) {
	case 0:
		return fmt.Sprintf("%s %s", p.Column, p.Op)
	case 1:
		return fmt.Sprintf("%s %s %s", p.Column, p.Op, vals[0])
	default:
		return fmt.Sprintf("%s %s (%s)", p.Column, p.Op, strings.Join(vals, ", "))
	}
}

// SchemaPredicate is the analyzer's reduction of the predicates over a
// schema table to a (database, table, name-wildcard) triple. A nil field
// was not constrained.
type SchemaPredicate struct {
	Database *string `json:"database,omitempty"`
	Table    *string `json:"table,omitempty"`
	Wild     *string `json:"wild,omitempty"`
}

// StatementKind is the kind of analyzed statement.
type StatementKind string

// Statement kinds the planner compiles.
const (
	// Select returns rows to the client.
	Select StatementKind = "SELECT"
	// InsertSelect writes the selected rows into a target table.
	InsertSelect StatementKind = "INSERT_SELECT"
)

// Statement is one analyzed statement.
type Statement struct {
	Kind      StatementKind    `json:"kind"`
	Source    TableRef         `json:"source"`
	Tuple     *TupleDescriptor `json:"tuple"`
	Conjuncts []Predicate      `json:"conjuncts,omitempty"`
	// Schema is set for scans over virtual catalog tables.
	Schema SchemaPredicate `json:"schema,omitempty"`
	// Target is the destination of an INSERT_SELECT.
	Target *TableRef `json:"target,omitempty"`
	// Partitions optionally prunes the source to a subset of partitions.
	Partitions []int64 `json:"partitions,omitempty"`
}

// Validate rejects statements the planner cannot compile.
func (s *Statement) Validate() error {
	if s == nil {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "no statement")
	}
	if err := s.Source.Validate(); err != nil {
		return err
	}
	if s.Tuple == nil || len(s.Tuple.Slots) == 0 {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "statement over %s has no output slots", s.Source)
	}
	switch s.Kind {
	case Select:
	case InsertSelect:
		if s.Target == nil {
			return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "INSERT_SELECT without target")
		}
		if err := s.Target.Validate(); err != nil {
			return err
		}
	default:
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "unsupported statement kind %q", s.Kind)
	}
	return nil
}
