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

	"github.com/mppdb/coordinator/go/vt/planner/wire"
)

// DataSink is the terminal consumer of a plan fragment. A sink has no schema
// of its own; it consumes whatever its upstream produces.
type DataSink interface {
	ToWire() (*wire.DataSink, error)
	// Explain may return "" for sinks with nothing to show.
	Explain(prefix string, level ExplainLevel) string
	// OutputPartition is nil when the sink's output has no meaningful
	// partitioning.
	OutputPartition() *DataPartition
	// ExchNodeID is the exchange fed by this sink, if any.
	ExchNodeID() (PlanNodeID, bool)
}

// DataPartition describes how a sink spreads rows over consumers.
type DataPartition struct {
	Type  wire.PartitionType
	Exprs []string
}

// Unpartitioned sends all rows to a single consumer.
var Unpartitioned = &DataPartition{Type: wire.Unpartitioned}

func (p *DataPartition) String() string {
	if p == nil {
		return "NONE"
	}
	if len(p.Exprs) == 0 {
		return string(p.Type)
	}
	return fmt.Sprintf("%s: %s", p.Type, strings.Join(p.Exprs, ", "))
}

func (p *DataPartition) toWire() *wire.DataPartition {
	if p == nil {
		return nil
	}
	w := &wire.DataPartition{Type: p.Type}
	if p.Exprs != nil {
		w.PartitionExprs = append([]string{}, p.Exprs...)
	}
	return w
}

// ResultSink returns rows to the client.
type ResultSink struct{}

var _ DataSink = (*ResultSink)(nil)

// NewResultSink returns a sink to the client.
func NewResultSink() *ResultSink { return &ResultSink{} }

// ToWire is part of the DataSink interface.
func (*ResultSink) ToWire() (*wire.DataSink, error) {
	return &wire.DataSink{Type: wire.ResultSinkType, ResultSink: &wire.ResultSink{}}, nil
}

// Explain is part of the DataSink interface.
func (*ResultSink) Explain(prefix string, _ ExplainLevel) string {
	return prefix + "RESULT SINK\n"
}

// OutputPartition is part of the DataSink interface.
func (*ResultSink) OutputPartition() *DataPartition { return Unpartitioned }

// ExchNodeID is part of the DataSink interface.
func (*ResultSink) ExchNodeID() (PlanNodeID, bool) { return 0, false }

// DataStreamSink sends a fragment's rows to an exchange node of another
// fragment.
type DataStreamSink struct {
	exchID    PlanNodeID
	partition *DataPartition
}

var _ DataSink = (*DataStreamSink)(nil)

// NewDataStreamSink returns a sink feeding exch. A nil partition means
// Unpartitioned.
func NewDataStreamSink(exch *ExchangeNode, partition *DataPartition) *DataStreamSink {
	if partition == nil {
		partition = Unpartitioned
	}
	return &DataStreamSink{exchID: exch.ID(), partition: partition}
}

// ToWire is part of the DataSink interface.
func (s *DataStreamSink) ToWire() (*wire.DataSink, error) {
	return &wire.DataSink{
		Type: wire.DataStreamSinkType,
		StreamSink: &wire.DataStreamSink{
			DestNodeID:      int32(s.exchID),
			OutputPartition: s.partition.toWire(),
		},
	}, nil
}

// Explain is part of the DataSink interface.
func (s *DataStreamSink) Explain(prefix string, _ ExplainLevel) string {
	return fmt.Sprintf("%sSTREAM DATA SINK\n%s  EXCHANGE ID: %s\n%s  %s\n", prefix, prefix, s.exchID, prefix, s.partition)
}

// OutputPartition is part of the DataSink interface.
func (s *DataStreamSink) OutputPartition() *DataPartition { return s.partition }

// ExchNodeID is part of the DataSink interface.
func (s *DataStreamSink) ExchNodeID() (PlanNodeID, bool) { return s.exchID, true }
