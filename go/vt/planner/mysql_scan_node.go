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
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/ptr"
	"github.com/mppdb/coordinator/go/sqlescape"
	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/catalog"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

var (
	// pushableOps take exactly one literal.
	pushableOps = map[string]bool{
		"=": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
		"LIKE": true, "NOT LIKE": true,
	}
	// listOps take one or more literals.
	listOps = map[string]bool{"IN": true, "NOT IN": true}
	// nullOps take no literal.
	nullOps = map[string]bool{"IS NULL": true, "IS NOT NULL": true}
)

// ExternalSourceScan reads a table hosted on an external MySQL server. The
// pushed-down conjuncts are rendered into the remote query at Finalize.
type ExternalSourceScan struct {
	scanNodeBase
	info    catalog.MysqlTableInfo
	columns []string

	// Set by Finalize.
	filters []string
	query   *string
}

var _ ScanNode = (*ExternalSourceScan)(nil)

// NewExternalSourceScan returns a scan over an external MySQL table. It
// rejects conjuncts that cannot be expressed in the remote query.
func NewExternalSourceScan(id PlanNodeID, tuple *analysis.TupleDescriptor, source analysis.TableRef, info *catalog.MysqlTableInfo, conjuncts []analysis.Predicate) (*ExternalSourceScan, error) {
	if info == nil {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "table %s has no external connection", source)
	}
	for _, c := range conjuncts {
		if err := checkPushable(c); err != nil {
			return nil, err
		}
	}
	return &ExternalSourceScan{
		scanNodeBase: newScanNodeBase(id, tuple, "SCAN MYSQL", source, conjuncts),
		info:         *info,
		columns:      tuple.ColumnNames(),
	}, nil
}

func checkPushable(p analysis.Predicate) error {
	op := strings.ToUpper(p.Op)
	var ok bool
	switch {
	case pushableOps[op]:
		ok = len(p.Values) == 1
	case listOps[op]:
		ok = len(p.Values) > 0
	case nullOps[op]:
		ok = len(p.Values) == 0
	}
	if !ok {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "cannot push predicate %q to an external table", p.String())
	}
	for _, v := range p.Values {
		if _, err := sqlLiteral(v); err != nil {
			return err
		}
	}
	return nil
}

// decimalLiteral is the plain decimal grammar accepted for DOUBLE and
// DECIMAL literals. NaN, Inf, hex floats and digit separators do not match.
var decimalLiteral = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

// sqlLiteral renders v as MySQL literal text. Non-string values are
// normalized so nothing but the value itself reaches the remote query.
func sqlLiteral(v analysis.Literal) (string, error) {
	switch v.Type {
	case analysis.TypeChar, analysis.TypeVarchar, analysis.TypeDate, analysis.TypeDatetime:
		return sqlescape.EscapeString(v.Value), nil
	case analysis.TypeBoolean:
		switch strings.ToUpper(strings.TrimSpace(v.Value)) {
		case "TRUE", "1":
			return "TRUE", nil
		case "FALSE", "0":
			return "FALSE", nil
		}
	case analysis.TypeInt, analysis.TypeBigInt:
		if n, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
	case analysis.TypeDouble, analysis.TypeDecimal:
		if decimalLiteral.MatchString(v.Value) {
			return v.Value, nil
		}
	default:
		return "", vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "literal %q has unsupported type %q", v.Value, v.Type)
	}
	return "", vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "literal %q is not a valid %s", v.Value, v.Type)
}

// renderLiteral is only called on literals checkPushable accepted.
func renderLiteral(v analysis.Literal) string {
	out, _ := sqlLiteral(v)
	return out
}

func renderPredicate(p analysis.Predicate) string {
	op := strings.ToUpper(p.Op)
	col := sqlescape.EscapeID(p.Column)
	switch {
	case nullOps[op]:
		return fmt.Sprintf("%s %s", col, op)
	case listOps[op]:
		vals := make([]string, len(p.Values))
		for i, v := range p.Values {
			vals[i] = renderLiteral(v)
		}
		return fmt.Sprintf("%s %s (%s)", col, op, strings.Join(vals, ", "))
	default:
		return fmt.Sprintf("%s %s %s", col, op, renderLiteral(p.Values[0]))
	}
}

// NumInstances is part of the PlanNode interface. An external table has a
// single endpoint.
func (s *ExternalSourceScan) NumInstances() int { return 1 }

// ScanRangeLocations is part of the ScanNode interface.
func (s *ExternalSourceScan) ScanRangeLocations() []ScanRangeLocation {
	return []ScanRangeLocation{}
}

// Finalize is part of the PlanNode interface.
func (s *ExternalSourceScan) Finalize(ctx context.Context, _ *PlanContext) error {
	if err := s.beginFinalize(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return vterrors.Wrapf(err, "node %s: finalize aborted", s.id)
	}
	s.filters = make([]string, len(s.conjuncts))
	for i, c := range s.conjuncts {
		s.filters[i] = renderPredicate(c)
	}
	s.query = ptr.Of(s.remoteQuery())
	return nil
}

func (s *ExternalSourceScan) remoteQuery() string {
	var buf strings.Builder
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(sqlescape.EscapeIDs(s.columns), ", "))
	buf.WriteString(" FROM ")
	sqlescape.WriteEscapeID(&buf, s.info.Table)
	if len(s.filters) > 0 {
		buf.WriteString(" WHERE (")
		buf.WriteString(strings.Join(s.filters, ") AND ("))
		buf.WriteString(")")
	}
	return buf.String()
}

// Query returns the remote query, or "" before Finalize.
func (s *ExternalSourceScan) Query() string {
	return ptr.Unwrap(s.query, "")
}

// Explain is part of the PlanNode interface.
func (s *ExternalSourceScan) Explain(prefix string, level ExplainLevel) string {
	buf := s.explainHeader(prefix, level)
	fmt.Fprintf(buf, "%s   TABLE: %s\n", prefix, sqlescape.EscapeID(s.info.Table))
	if s.query != nil {
		fmt.Fprintf(buf, "%s   Query: %s\n", prefix, *s.query)
	}
	return buf.String()
}

// ToWire is part of the PlanNode interface.
func (s *ExternalSourceScan) ToWire() (*wire.PlanNode, error) {
	n := s.wireBase(wire.MysqlScanNodeType, s.NumInstances())
	n.ScanRanges = scanRangesToWire(s.ScanRangeLocations())
	n.MysqlScanNode = &wire.MysqlScanNode{
		TableName: s.info.Table,
		Host:      s.info.Host,
		Port:      int32(s.info.Port),
		User:      s.info.User,
		Passwd:    s.info.Password,
		DB:        s.info.Database,
		Columns:   append([]string{}, s.columns...),
		Query:     ptr.Clone(s.query),
	}
	if s.filters != nil {
		n.MysqlScanNode.Filters = append([]string{}, s.filters...)
	}
	if s.tuple != nil {
		n.MysqlScanNode.TupleID = int32(s.tuple.ID)
	}
	return n, nil
}
