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

// Package wire defines the plan message dispatched from the coordinator to
// workers, and its binary codec.
//
// Every optional field is a pointer and every optional list is a slice whose
// nil-ness is significant: nil means absent and tells the worker to apply
// its own default, while a non-nil pointer or empty slice is an explicit
// value. The codec preserves that distinction exactly.
package wire

// FormatVersion is bumped on incompatible layout changes.
const FormatVersion = 1

// PlanNodeType tags a PlanNode.
type PlanNodeType string

// Plan node types.
const (
	SchemaScanNodeType PlanNodeType = "SCHEMA_SCAN_NODE"
	MysqlScanNodeType  PlanNodeType = "MYSQL_SCAN_NODE"
	OlapScanNodeType   PlanNodeType = "OLAP_SCAN_NODE"
	ExchangeNodeType   PlanNodeType = "EXCHANGE_NODE"
)

// DataSinkType tags a DataSink.
type DataSinkType string

// Data sink types.
const (
	ResultSinkType     DataSinkType = "RESULT_SINK"
	DataStreamSinkType DataSinkType = "DATA_STREAM_SINK"
	MysqlTableSinkType DataSinkType = "MYSQL_TABLE_SINK"
)

// PartitionType says how rows are spread over consumer instances.
type PartitionType string

// Partition types.
const (
	Unpartitioned   PartitionType = "UNPARTITIONED"
	HashPartitioned PartitionType = "HASH_PARTITIONED"
	Random          PartitionType = "RANDOM"
)

// Plan is the root message.
type Plan struct {
	Version        int32
	QueryID        string
	CatalogVersion int64
	DescTbl        []*TupleDescriptor
	Root           *PlanNode
	Sink           *DataSink
}

// TupleDescriptor is an output row schema.
type TupleDescriptor struct {
	ID    int32
	Slots []*SlotDescriptor
}

// SlotDescriptor is one output column.
type SlotDescriptor struct {
	ID       int32
	Name     string
	Type     string
	Nullable bool
}

// PlanNode is one operator. Exactly one of the typed payloads is set, the
// one matching NodeType.
type PlanNode struct {
	NodeID       int32
	NodeType     PlanNodeType
	Label        string
	RowTuples    []int32
	Conjuncts    []string
	NumInstances int32
	// ScanRanges is non-nil for scan nodes, possibly empty.
	ScanRanges []*ScanRangeLocations
	Children   []*PlanNode

	SchemaScanNode *SchemaScanNode
	MysqlScanNode  *MysqlScanNode
	OlapScanNode   *OlapScanNode
	ExchangeNode   *ExchangeNode
}

// SchemaScanNode reads a virtual catalog table by calling back into the
// coordinator at IP:Port.
type SchemaScanNode struct {
	TupleID   int32
	TableName string
	DB        *string
	Table     *string
	Wild      *string
	User      *string
	IP        *string
	Port      *int32
	ThreadID  *int64
}

// MysqlScanNode reads an external MySQL table.
type MysqlScanNode struct {
	TupleID   int32
	TableName string
	Host      string
	Port      int32
	User      string
	Passwd    string
	DB        string
	Columns   []string
	Filters   []string
	Query     *string
}

// OlapScanNode reads partitioned native storage.
type OlapScanNode struct {
	TupleID   int32
	TableID   int64
	TableName string
}

// ExchangeNode receives rows redistributed by upstream fragments.
type ExchangeNode struct {
	InputRowTuples []int32
}

// ScanRange identifies a contiguous unit of scannable data.
type ScanRange struct {
	PartitionID int64
	TabletID    int64
	Version     int64
	Offset      *int64
	Length      *int64
}

// ScanRangeLocation is one candidate host for a scan range.
type ScanRangeLocation struct {
	BackendID int64
	Host      string
	Port      int32
}

// ScanRangeLocations pairs a range with its candidate hosts, most
// preferred first.
type ScanRangeLocations struct {
	ScanRange *ScanRange
	Locations []*ScanRangeLocation
}

// DataPartition describes output partitioning.
type DataPartition struct {
	Type           PartitionType
	PartitionExprs []string
}

// DataSink is the plan's terminal consumer. Exactly one typed payload is set.
type DataSink struct {
	Type           DataSinkType
	ResultSink     *ResultSink
	StreamSink     *DataStreamSink
	MysqlTableSink *MysqlTableSink
}

// ResultSink returns rows to the client.
type ResultSink struct{}

// DataStreamSink ships rows to an exchange node.
type DataStreamSink struct {
	DestNodeID      int32
	OutputPartition *DataPartition
}

// MysqlTableSink writes rows into an external MySQL table.
type MysqlTableSink struct {
	Host   string
	Port   int32
	User   string
	Passwd string
	DB     string
	Table  string
}
