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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/ptr"
	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/catalog"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

var testQueryID = uuid.MustParse("6f1c7a52-4c1e-4a57-9a3e-1d1e0c9b8a01")

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot(12, &catalog.Database{
		Name: "sales",
		Tables: []*catalog.Table{
			ordersTable(),
			{ID: 1002, Name: "customers", Type: catalog.MysqlTable, Mysql: customerInfo},
			{ID: 1003, Name: "archive", Type: catalog.MysqlTable, Mysql: &catalog.MysqlTableInfo{
				Host: "archive.internal", Port: 3307, User: "writer", Password: "pw", Database: "arch", Table: "orders",
			}},
		},
	})
}

func compilePlan(t *testing.T, c *Compiler, stmt *analysis.Statement) *Plan {
	t.Helper()
	pctx := testPlanContext()
	pctx.QueryID = testQueryID
	plan, err := c.Compile(context.Background(), pctx, stmt)
	require.NoError(t, err)
	return plan
}

func TestCompileSchemaScan(t *testing.T) {
	c := NewCompiler(testSnapshot(), nil, nil)
	plan := compilePlan(t, c, &analysis.Statement{
		Kind:   analysis.Select,
		Source: analysis.TableRef{Database: "information_schema", Table: "session_variables"},
		Tuple:  schemaTuple,
	})
	require.True(t, plan.Finalized())

	w, err := plan.Serialize()
	require.NoError(t, err)
	assert.Equal(t, testQueryID.String(), w.QueryID)
	assert.EqualValues(t, 12, w.CatalogVersion)
	assert.Equal(t, wire.SchemaScanNodeType, w.Root.NodeType)
	assert.Equal(t, ptr.Of("SESSION"), w.Root.SchemaScanNode.DB)
	assert.Equal(t, ptr.Of("10.0.0.5"), w.Root.SchemaScanNode.IP)
	assert.Equal(t, wire.ResultSinkType, w.Sink.Type)
	require.Len(t, w.DescTbl, 1)
	assert.Equal(t, "VARIABLE_NAME", w.DescTbl[0].Slots[0].Name)
}

func TestCompilePartitionedScanAddsExchange(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCompiler(testSnapshot(), nil, NewMetrics(reg))
	plan := compilePlan(t, c, &analysis.Statement{
		Kind:      analysis.Select,
		Source:    analysis.TableRef{Database: "sales", Table: "orders"},
		Tuple:     ordersTuple,
		Conjuncts: []analysis.Predicate{{Column: "amount", Op: ">", Values: []analysis.Literal{lit("5", analysis.TypeDecimal)}}},
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Metrics.compiled))

	exch, ok := plan.Root().(*ExchangeNode)
	require.True(t, ok)
	scan := exch.Input().(*PartitionedTableScan)
	assert.Equal(t, 2, scan.NumInstances())
	assert.Equal(t, "zone1", scan.ScanRangeLocations()[0].Hosts[0].Cell)

	frags := plan.Fragments()
	require.Len(t, frags, 2)
	assert.Equal(t, exch, frags[0].Root)
	id, ok := frags[1].Sink.ExchNodeID()
	require.True(t, ok)
	assert.Equal(t, exch.ID(), id)
	assert.Equal(t, wire.Random, frags[1].Partition.Type)

	w, err := plan.Serialize()
	require.NoError(t, err)
	require.Len(t, w.Root.Children, 1)
	assert.Len(t, w.Root.Children[0].ScanRanges, 2)
	assert.Equal(t, []string{"amount > 5"}, w.Root.Children[0].Conjuncts)

	want := `PLAN FRAGMENT 0
  OUTPUT EXPRS: order_id | amount
  PARTITION: UNPARTITIONED

  RESULT SINK

  01:EXCHANGE
     from 2 instance(s) of node 00

PLAN FRAGMENT 1
  OUTPUT EXPRS: order_id | amount
  PARTITION: RANDOM

  STREAM DATA SINK
    EXCHANGE ID: 01
    UNPARTITIONED

  00:SCAN OLAP
     PREDICATES: amount > 5
     TABLE: orders
     partitions=2/2
     ranges=2
`
	assert.Equal(t, want, plan.Explain(ExplainNormal))
	assert.Contains(t, plan.Tree(), "00:SCAN OLAP (instances=2)")
}

func TestCompileInsertSelect(t *testing.T) {
	c := NewCompiler(testSnapshot(), nil, nil)
	plan := compilePlan(t, c, &analysis.Statement{
		Kind:   analysis.InsertSelect,
		Source: analysis.TableRef{Database: "sales", Table: "customers"},
		Tuple:  customerTuple,
		Target: &analysis.TableRef{Database: "sales", Table: "archive"},
	})
	sink, ok := plan.Sink().(*ExternalTableSink)
	require.True(t, ok)
	assert.Equal(t, "writer@archive.internal:3307/`arch`.`orders`", sink.String())
	_, isScan := plan.Root().(*ExternalSourceScan)
	assert.True(t, isScan)

	_, err := c.Compile(context.Background(), testPlanContext(), &analysis.Statement{
		Kind:   analysis.InsertSelect,
		Source: analysis.TableRef{Database: "sales", Table: "customers"},
		Tuple:  customerTuple,
		Target: &analysis.TableRef{Database: "sales", Table: "orders"},
	})
	assert.Equal(t, vterrors.BadSourceReference, vterrors.ErrState(err))
}

func TestSerializeIsIdempotent(t *testing.T) {
	c := NewCompiler(testSnapshot(), nil, nil)
	plan := compilePlan(t, c, &analysis.Statement{
		Kind:   analysis.Select,
		Source: analysis.TableRef{Database: "sales", Table: "orders"},
		Tuple:  ordersTuple,
	})
	first, err := plan.Marshal()
	require.NoError(t, err)
	second, err := plan.Marshal()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	decoded, err := wire.Unmarshal(first)
	require.NoError(t, err)
	w, err := plan.Serialize()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(w, decoded))
}

func TestPlanLifecycle(t *testing.T) {
	scan := schemaScan("TABLES", schemaPredicateNone)
	plan, err := Assemble(testQueryID, 1, scan, NewResultSink())
	require.NoError(t, err)

	_, err = plan.Serialize()
	assert.Equal(t, vterrors.PlanNotFinalized, vterrors.ErrState(err))

	_, err = NewExchangeNode(1, scan)
	require.NoError(t, err)
	assert.Equal(t, vterrors.PlanFrozen, vterrors.ErrState(scan.addChild(scan)))

	require.NoError(t, plan.Finalize(context.Background(), testPlanContext()))
	err = plan.Finalize(context.Background(), testPlanContext())
	assert.Equal(t, vterrors.PlanAlreadyFinalized, vterrors.ErrState(err))
	_, err = plan.Serialize()
	assert.NoError(t, err)
}

func TestAssembleRejectsDuplicateIDs(t *testing.T) {
	scan := schemaScan("TABLES", schemaPredicateNone)
	exch, err := NewExchangeNode(0, scan)
	require.NoError(t, err)
	_, err = Assemble(testQueryID, 1, exch, NewResultSink())
	assert.Equal(t, vterrors.BadPlan, vterrors.ErrState(err))
}

func TestCanceledCompileNeverSerializes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCompiler(testSnapshot(), nil, NewMetrics(reg))
	pctx := testPlanContext()
	pctx.Resolver = blockingResolver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, err := c.Compile(ctx, pctx, &analysis.Statement{
		Kind:   analysis.Select,
		Source: analysis.TableRef{Database: "information_schema", Table: "TABLES"},
		Tuple:  schemaTuple,
	})
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.Equal(t, codes.Canceled, vterrors.Code(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Metrics.compileErrors.WithLabelValues(codes.Canceled.String())))
}

func TestFailedFinalizeBlocksSerialize(t *testing.T) {
	scan := ordersScan(t)
	plan, err := Assemble(testQueryID, 1, scan, NewResultSink())
	require.NoError(t, err)
	err = plan.Finalize(context.Background(), testPlanContext())
	assert.Equal(t, codes.FailedPrecondition, vterrors.Code(err))
	_, err = plan.Serialize()
	assert.Equal(t, vterrors.PlanNotFinalized, vterrors.ErrState(err))
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler(testSnapshot(), nil, nil)
	tcases := []struct {
		name string
		stmt *analysis.Statement
		code codes.Code
	}{
		{name: "nil statement", stmt: nil, code: codes.InvalidArgument},
		{name: "no table", stmt: &analysis.Statement{Kind: analysis.Select, Tuple: ordersTuple}, code: codes.InvalidArgument},
		{name: "unknown table", stmt: &analysis.Statement{Kind: analysis.Select, Source: analysis.TableRef{Database: "sales", Table: "nope"}, Tuple: ordersTuple}, code: codes.NotFound},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Compile(context.Background(), testPlanContext(), tc.stmt)
			assert.Equal(t, tc.code, vterrors.Code(err))
		})
	}
}
