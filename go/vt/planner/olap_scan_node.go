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

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/catalog"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// PartitionedTableScan reads native partitioned storage. Its ranges come
// from a ScanRangeLocator and must be resolved before Finalize.
type PartitionedTableScan struct {
	scanNodeBase
	table      *catalog.Table
	partitions []catalog.Partition

	locations []ScanRangeLocation
}

var _ ScanNode = (*PartitionedTableScan)(nil)

// NewPartitionedTableScan returns a scan over table. A non-empty
// partitionIDs prunes the scan to those partitions.
func NewPartitionedTableScan(id PlanNodeID, tuple *analysis.TupleDescriptor, source analysis.TableRef, table *catalog.Table, conjuncts []analysis.Predicate, partitionIDs []int64) (*PartitionedTableScan, error) {
	s := &PartitionedTableScan{
		scanNodeBase: newScanNodeBase(id, tuple, "SCAN OLAP", source, conjuncts),
		table:        table,
	}
	if len(partitionIDs) == 0 {
		s.partitions = table.Partitions
		return s, nil
	}
	byID := make(map[int64]catalog.Partition, len(table.Partitions))
	for _, p := range table.Partitions {
		byID[p.ID] = p
	}
	for _, pid := range partitionIDs {
		p, ok := byID[pid]
		if !ok {
			return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadSourceReference, "table %s has no partition %d", source, pid)
		}
		s.partitions = append(s.partitions, p)
	}
	return s, nil
}

// Table is the scanned table.
func (s *PartitionedTableScan) Table() *catalog.Table { return s.table }

// Partitions are the partitions selected for scanning.
func (s *PartitionedTableScan) Partitions() []catalog.Partition { return s.partitions }

// SetScanRangeLocations records the resolved ranges. It fails once the plan
// was assembled.
func (s *PartitionedTableScan) SetScanRangeLocations(locs []ScanRangeLocation) error {
	if s.isFrozen() {
		return vterrors.NewErrorf(codes.FailedPrecondition, vterrors.PlanFrozen, "node %s: scan ranges are immutable after plan assembly", s.id)
	}
	s.locations = append([]ScanRangeLocation{}, locs...)
	return nil
}

// ScanRangeLocations is part of the ScanNode interface.
func (s *PartitionedTableScan) ScanRangeLocations() []ScanRangeLocation {
	return s.locations
}

// NumInstances is part of the PlanNode interface: one instance per range.
func (s *PartitionedTableScan) NumInstances() int {
	return max(1, len(s.locations))
}

// Finalize is part of the PlanNode interface.
func (s *PartitionedTableScan) Finalize(ctx context.Context, _ *PlanContext) error {
	if err := s.beginFinalize(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return vterrors.Wrapf(err, "node %s: finalize aborted", s.id)
	}
	if s.locations == nil {
		return vterrors.NewErrorf(codes.FailedPrecondition, vterrors.BadPlan, "node %s: scan ranges of %s were never resolved", s.id, s.source)
	}
	return nil
}

// Explain is part of the PlanNode interface.
func (s *PartitionedTableScan) Explain(prefix string, level ExplainLevel) string {
	buf := s.explainHeader(prefix, level)
	fmt.Fprintf(buf, "%s   TABLE: %s\n", prefix, s.table.Name)
	fmt.Fprintf(buf, "%s   partitions=%d/%d\n", prefix, len(s.partitions), len(s.table.Partitions))
	if s.locations != nil {
		fmt.Fprintf(buf, "%s   ranges=%d\n", prefix, len(s.locations))
	}
	if level == ExplainVerbose {
		explainScanRanges(buf, prefix+"     ", s.locations)
	}
	return buf.String()
}

// ToWire is part of the PlanNode interface.
func (s *PartitionedTableScan) ToWire() (*wire.PlanNode, error) {
	n := s.wireBase(wire.OlapScanNodeType, s.NumInstances())
	n.ScanRanges = scanRangesToWire(s.locations)
	n.OlapScanNode = &wire.OlapScanNode{
		TableID:   s.table.ID,
		TableName: s.table.Name,
	}
	if s.tuple != nil {
		n.OlapScanNode.TupleID = int32(s.tuple.ID)
	}
	return n, nil
}
