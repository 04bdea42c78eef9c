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
	"strings"

	"github.com/mppdb/coordinator/go/netutil"
	"github.com/mppdb/coordinator/go/ptr"
	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
)

// ScanNode is a leaf that reads rows from a source table.
type ScanNode interface {
	PlanNode
	// Source is the table being scanned.
	Source() analysis.TableRef
	// Conjuncts are the predicates pushed down into the scan.
	Conjuncts() []analysis.Predicate
	// ScanRangeLocations is empty for single-instance scans. For
	// distributed scans it is available once locality was resolved.
	ScanRangeLocations() []ScanRangeLocation
}

// ScanRange is an opaque token naming a slice of a source's data.
type ScanRange struct {
	PartitionID int64
	TabletID    int64
	Version     int64
	// Offset and Length are set when a tablet was split.
	Offset *int64
	Length *int64
}

func (r ScanRange) String() string {
	s := fmt.Sprintf("partition=%d tablet=%d version=%d", r.PartitionID, r.TabletID, r.Version)
	if r.Offset != nil && r.Length != nil {
		s += fmt.Sprintf(" bytes=[%d,+%d)", *r.Offset, *r.Length)
	}
	return s
}

// Host is a worker able to serve a scan range.
type Host struct {
	BackendID int64
	Addr      string
	Port      int
	Cell      string
}

func (h Host) String() string {
	return netutil.JoinHostPort(h.Addr, h.Port)
}

// ScanRangeLocation pairs a range with the hosts able to serve it, most
// preferred first.
type ScanRangeLocation struct {
	Range ScanRange
	Hosts []Host
}

type scanNodeBase struct {
	planNodeBase
	source analysis.TableRef
}

func newScanNodeBase(id PlanNodeID, tuple *analysis.TupleDescriptor, label string, source analysis.TableRef, conjuncts []analysis.Predicate) scanNodeBase {
	b := scanNodeBase{planNodeBase: newPlanNodeBase(id, tuple, label), source: source}
	if conjuncts != nil {
		b.conjuncts = append([]analysis.Predicate{}, conjuncts...)
	}
	return b
}

func (s *scanNodeBase) Source() analysis.TableRef { return s.source }

// Scans are leaves.
func (s *scanNodeBase) Children() []PlanNode { return nil }

func scanRangesToWire(locs []ScanRangeLocation) []*wire.ScanRangeLocations {
	out := make([]*wire.ScanRangeLocations, 0, len(locs))
	for _, loc := range locs {
		w := &wire.ScanRangeLocations{
			ScanRange: &wire.ScanRange{
				PartitionID: loc.Range.PartitionID,
				TabletID:    loc.Range.TabletID,
				Version:     loc.Range.Version,
				Offset:      ptr.Clone(loc.Range.Offset),
				Length:      ptr.Clone(loc.Range.Length),
			},
			Locations: make([]*wire.ScanRangeLocation, len(loc.Hosts)),
		}
		for i, h := range loc.Hosts {
			w.Locations[i] = &wire.ScanRangeLocation{BackendID: h.BackendID, Host: h.Addr, Port: int32(h.Port)}
		}
		out = append(out, w)
	}
	return out
}

func explainScanRanges(buf *strings.Builder, prefix string, locs []ScanRangeLocation) {
	for _, loc := range locs {
		hosts := make([]string, len(loc.Hosts))
		for i, h := range loc.Hosts {
			hosts[i] = h.String()
		}
		fmt.Fprintf(buf, "%s%s -> %s\n", prefix, loc.Range, strings.Join(hosts, ", "))
	}
}
