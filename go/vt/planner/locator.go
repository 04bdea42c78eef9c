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
	"sort"

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/ptr"
	"github.com/mppdb/coordinator/go/vt/catalog"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// ScanRangeLocator maps a scan node to the ranges it reads and the hosts
// able to serve each range.
type ScanRangeLocator interface {
	// Locate fails rather than returning an empty result when placement
	// cannot be determined; an empty result means there is no data.
	Locate(ctx context.Context, scan ScanNode) ([]ScanRangeLocation, error)
}

// PlacementLocator is the default ScanRangeLocator, backed by a
// catalog.PlacementSource.
type PlacementLocator struct {
	Source catalog.PlacementSource
	// Cell is the coordinator's locality. Replicas in this cell come first.
	Cell string
	// MaxScanRangeLength splits tablets larger than this many bytes. Zero
	// disables splitting.
	MaxScanRangeLength int64
}

var _ ScanRangeLocator = (*PlacementLocator)(nil)

// Locate is part of the ScanRangeLocator interface.
func (l *PlacementLocator) Locate(ctx context.Context, scan ScanNode) ([]ScanRangeLocation, error) {
	switch scan := scan.(type) {
	case *VirtualCatalogScan, *ExternalSourceScan:
		return []ScanRangeLocation{}, nil
	case *PartitionedTableScan:
		return l.locatePartitioned(ctx, scan)
	default:
		return nil, vterrors.NewErrorf(codes.Internal, vterrors.BadPlan, "no locator for scan node %T", scan)
	}
}

func (l *PlacementLocator) locatePartitioned(ctx context.Context, scan *PartitionedTableScan) ([]ScanRangeLocation, error) {
	table := scan.Table()
	locs := []ScanRangeLocation{}
	for _, p := range scan.Partitions() {
		for _, tablet := range p.Tablets {
			if err := ctx.Err(); err != nil {
				return nil, vterrors.Wrapf(err, "locating %s", scan.Source())
			}
			replicas, err := l.Source.TabletReplicas(ctx, table, p.ID, tablet.ID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, vterrors.Wrapf(ctxErr, "locating %s", scan.Source())
				}
				return nil, vterrors.WithState(err, codes.Unavailable, vterrors.MetadataUnreachable,
					fmt.Sprintf("cannot resolve placement of tablet %d of %s", tablet.ID, scan.Source()))
			}
			if len(replicas) == 0 {
				return nil, vterrors.NewErrorf(codes.Unavailable, vterrors.NoLiveReplica, "tablet %d of %s has no live replica", tablet.ID, scan.Source())
			}
			hosts := l.orderHosts(replicas)
			for _, r := range l.split(p.ID, tablet) {
				locs = append(locs, ScanRangeLocation{Range: r, Hosts: hosts})
			}
		}
	}
	return locs, nil
}

// orderHosts puts replicas in the local cell first, each group sorted by
// backend id.
func (l *PlacementLocator) orderHosts(replicas []catalog.Replica) []Host {
	hosts := make([]Host, len(replicas))
	for i, r := range replicas {
		hosts[i] = Host{BackendID: r.BackendID, Addr: r.Host, Port: r.Port, Cell: r.Cell}
	}
	sort.SliceStable(hosts, func(i, j int) bool {
		li, lj := hosts[i].Cell == l.Cell, hosts[j].Cell == l.Cell
		if li != lj {
			return li
		}
		return hosts[i].BackendID < hosts[j].BackendID
	})
	return hosts
}

func (l *PlacementLocator) split(partitionID int64, tablet catalog.Tablet) []ScanRange {
	whole := ScanRange{PartitionID: partitionID, TabletID: tablet.ID, Version: tablet.Version}
	if l.MaxScanRangeLength <= 0 || tablet.DataSize <= l.MaxScanRangeLength {
		return []ScanRange{whole}
	}
	var ranges []ScanRange
	for off := int64(0); off < tablet.DataSize; off += l.MaxScanRangeLength {
		r := whole
		r.Offset = ptr.Of(off)
		r.Length = ptr.Of(min(l.MaxScanRangeLength, tablet.DataSize-off))
		ranges = append(ranges, r)
	}
	return ranges
}
