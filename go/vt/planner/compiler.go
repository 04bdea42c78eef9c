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
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/catalog"
	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Compiler turns analyzed statements into finalized plans against one
// catalog snapshot. It holds no per-statement state and may be shared.
type Compiler struct {
	Catalog *catalog.Snapshot
	// Locator resolves scan ranges. When nil, placement is read from
	// Catalog.
	Locator ScanRangeLocator
	Metrics *Metrics
}

// NewCompiler returns a compiler over snapshot.
func NewCompiler(snapshot *catalog.Snapshot, locator ScanRangeLocator, metrics *Metrics) *Compiler {
	return &Compiler{Catalog: snapshot, Locator: locator, Metrics: metrics}
}

// Compile plans stmt, resolves its scan ranges and finalizes the result.
// The returned plan is ready to serialize.
func (c *Compiler) Compile(ctx context.Context, pctx *PlanContext, stmt *analysis.Statement) (plan *Plan, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "planner.Compile")
	start := time.Now()
	defer func() {
		c.Metrics.observe(time.Since(start).Seconds(), err)
		if err != nil {
			span.SetTag("error", true)
			span.LogKV("code", vterrors.Code(err).String())
			log.DebugS("compile failed", "err", err)
		}
		span.Finish()
	}()

	if pctx == nil {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "no plan context")
	}
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	queryID := pctx.QueryID
	if queryID == uuid.Nil {
		queryID = uuid.New()
	}
	span.SetTag("query_id", queryID.String())

	table, err := c.Catalog.Table(stmt.Source)
	if err != nil {
		return nil, err
	}
	var ids PlanNodeIDGenerator
	scan, err := newScan(ids.Next(), table, stmt)
	if err != nil {
		return nil, err
	}
	locs, err := c.locator(pctx).Locate(ctx, scan)
	if err != nil {
		return nil, err
	}
	if pts, ok := scan.(*PartitionedTableScan); ok {
		if err := pts.SetScanRangeLocations(locs); err != nil {
			return nil, err
		}
	}

	var root PlanNode = scan
	if scan.NumInstances() > 1 {
		if root, err = NewExchangeNode(ids.Next(), scan); err != nil {
			return nil, err
		}
	}
	sink, err := c.sinkFor(stmt)
	if err != nil {
		return nil, err
	}
	plan, err = Assemble(queryID, c.Catalog.Version(), root, sink)
	if err != nil {
		return nil, err
	}
	if err := plan.Finalize(ctx, pctx); err != nil {
		return nil, err
	}
	log.DebugS("compiled plan", "query_id", queryID.String(), "source", stmt.Source.String(), "instances", scan.NumInstances())
	return plan, nil
}

func (c *Compiler) locator(pctx *PlanContext) ScanRangeLocator {
	if c.Locator != nil {
		return c.Locator
	}
	return &PlacementLocator{Source: c.Catalog, Cell: pctx.Cell, MaxScanRangeLength: pctx.MaxScanRangeLength}
}

func newScan(id PlanNodeID, table *catalog.Table, stmt *analysis.Statement) (ScanNode, error) {
	switch table.Type {
	case catalog.SchemaTable:
		return NewVirtualCatalogScan(id, stmt.Tuple, stmt.Source, stmt.Conjuncts, stmt.Schema), nil
	case catalog.MysqlTable:
		return NewExternalSourceScan(id, stmt.Tuple, stmt.Source, table.Mysql, stmt.Conjuncts)
	case catalog.OlapTable:
		return NewPartitionedTableScan(id, stmt.Tuple, stmt.Source, table, stmt.Conjuncts, stmt.Partitions)
	default:
		return nil, vterrors.NewErrorf(codes.Unimplemented, vterrors.BadPlan, "cannot scan table %s of type %q", stmt.Source, table.Type)
	}
}

func (c *Compiler) sinkFor(stmt *analysis.Statement) (DataSink, error) {
	switch stmt.Kind {
	case analysis.Select:
		return NewResultSink(), nil
	case analysis.InsertSelect:
		target, err := c.Catalog.Table(*stmt.Target)
		if err != nil {
			return nil, err
		}
		if target.Type != catalog.MysqlTable {
			return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "insert target %s is not an external table", stmt.Target)
		}
		return NewExternalTableSink(target.Mysql)
	default:
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "unsupported statement kind %q", stmt.Kind)
	}
}
