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

package wire

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Marshal encodes p. The output is deterministic: encoding the same plan
// twice yields identical bytes.
func Marshal(p *Plan) ([]byte, error) {
	st, err := EncodePlan(p)
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(st)
}

// Unmarshal decodes a plan produced by Marshal.
func Unmarshal(data []byte) (*Plan, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, vterrors.Errorf(codes.InvalidArgument, "wire: %v", err)
	}
	return DecodePlan(st)
}

// EncodePlan converts p to its structpb form. int64 values are carried as
// decimal strings so that no precision is lost.
func EncodePlan(p *Plan) (*structpb.Struct, error) {
	if p == nil {
		return nil, vterrors.New(codes.Internal, "wire: nil plan")
	}
	e := newEncoder()
	e.i32("version", p.Version)
	e.str("query_id", p.QueryID)
	e.i64("catalog_version", p.CatalogVersion)
	if p.DescTbl != nil {
		tuples := make([]*structpb.Struct, 0, len(p.DescTbl))
		for i, td := range p.DescTbl {
			ts, err := encodeTuple(td)
			if err != nil {
				return nil, vterrors.Wrapf(err, "desc_tbl[%d]", i)
			}
			tuples = append(tuples, ts)
		}
		e.objList("desc_tbl", tuples)
	}
	if p.Root != nil {
		root, err := encodeNode(p.Root)
		if err != nil {
			return nil, err
		}
		e.obj("root", root)
	}
	if p.Sink != nil {
		sink, err := encodeSink(p.Sink)
		if err != nil {
			return nil, err
		}
		e.obj("sink", sink)
	}
	return e.done(), nil
}

func encodeTuple(td *TupleDescriptor) (*structpb.Struct, error) {
	if td == nil {
		return nil, vterrors.New(codes.Internal, "wire: nil tuple descriptor")
	}
	e := newEncoder()
	e.i32("id", td.ID)
	if td.Slots != nil {
		slots := make([]*structpb.Struct, 0, len(td.Slots))
		for i, s := range td.Slots {
			if s == nil {
				return nil, vterrors.Errorf(codes.Internal, "wire: tuple %d: nil slot %d", td.ID, i)
			}
			se := newEncoder()
			se.i32("id", s.ID)
			se.str("name", s.Name)
			se.str("type", s.Type)
			se.boolean("nullable", s.Nullable)
			slots = append(slots, se.done())
		}
		e.objList("slots", slots)
	}
	return e.done(), nil
}

func encodeNode(n *PlanNode) (*structpb.Struct, error) {
	if n == nil {
		return nil, vterrors.New(codes.Internal, "wire: nil plan node")
	}
	e := newEncoder()
	e.i32("node_id", n.NodeID)
	e.str("node_type", string(n.NodeType))
	e.str("label", n.Label)
	e.i32List("row_tuples", n.RowTuples)
	e.strList("conjuncts", n.Conjuncts)
	e.i32("num_instances", n.NumInstances)
	if n.ScanRanges != nil {
		ranges := make([]*structpb.Struct, 0, len(n.ScanRanges))
		for i, r := range n.ScanRanges {
			rs, err := encodeScanRangeLocations(r)
			if err != nil {
				return nil, vterrors.Wrapf(err, "node %d: scan_ranges[%d]", n.NodeID, i)
			}
			ranges = append(ranges, rs)
		}
		e.objList("scan_ranges", ranges)
	}

	switch n.NodeType {
	case SchemaScanNodeType:
		s := n.SchemaScanNode
		if s == nil {
			return nil, missingPayload(n)
		}
		se := newEncoder()
		se.i32("tuple_id", s.TupleID)
		se.str("table_name", s.TableName)
		se.optStr("db", s.DB)
		se.optStr("table", s.Table)
		se.optStr("wild", s.Wild)
		se.optStr("user", s.User)
		se.optStr("ip", s.IP)
		se.optI32("port", s.Port)
		se.optI64("thread_id", s.ThreadID)
		e.obj("schema_scan_node", se.done())
	case MysqlScanNodeType:
		s := n.MysqlScanNode
		if s == nil {
			return nil, missingPayload(n)
		}
		se := newEncoder()
		se.i32("tuple_id", s.TupleID)
		se.str("table_name", s.TableName)
		se.str("host", s.Host)
		se.i32("port", s.Port)
		se.str("user", s.User)
		se.str("passwd", s.Passwd)
		se.str("db", s.DB)
		se.strList("columns", s.Columns)
		se.strList("filters", s.Filters)
		se.optStr("query", s.Query)
		e.obj("mysql_scan_node", se.done())
	case OlapScanNodeType:
		s := n.OlapScanNode
		if s == nil {
			return nil, missingPayload(n)
		}
		se := newEncoder()
		se.i32("tuple_id", s.TupleID)
		se.i64("table_id", s.TableID)
		se.str("table_name", s.TableName)
		e.obj("olap_scan_node", se.done())
	case ExchangeNodeType:
		s := n.ExchangeNode
		if s == nil {
			return nil, missingPayload(n)
		}
		se := newEncoder()
		se.i32List("input_row_tuples", s.InputRowTuples)
		e.obj("exchange_node", se.done())
	default:
		return nil, vterrors.Errorf(codes.Internal, "wire: unknown plan node type %q", n.NodeType)
	}

	if n.Children != nil {
		children := make([]*structpb.Struct, 0, len(n.Children))
		for i, c := range n.Children {
			if c == nil {
				return nil, vterrors.Errorf(codes.Internal, "wire: node %d: nil child %d", n.NodeID, i)
			}
			cs, err := encodeNode(c)
			if err != nil {
				return nil, err
			}
			children = append(children, cs)
		}
		e.objList("children", children)
	}
	return e.done(), nil
}

func missingPayload(n *PlanNode) error {
	return vterrors.Errorf(codes.Internal, "wire: node %d of type %s has no payload", n.NodeID, n.NodeType)
}

func encodeScanRangeLocations(r *ScanRangeLocations) (*structpb.Struct, error) {
	if r == nil {
		return nil, vterrors.New(codes.Internal, "wire: nil scan range locations")
	}
	e := newEncoder()
	if r.ScanRange != nil {
		re := newEncoder()
		re.i64("partition_id", r.ScanRange.PartitionID)
		re.i64("tablet_id", r.ScanRange.TabletID)
		re.i64("version", r.ScanRange.Version)
		re.optI64("offset", r.ScanRange.Offset)
		re.optI64("length", r.ScanRange.Length)
		e.obj("scan_range", re.done())
	}
	if r.Locations != nil {
		locs := make([]*structpb.Struct, 0, len(r.Locations))
		for i, l := range r.Locations {
			if l == nil {
				return nil, vterrors.Errorf(codes.Internal, "wire: nil location %d", i)
			}
			le := newEncoder()
			le.i64("backend_id", l.BackendID)
			le.str("host", l.Host)
			le.i32("port", l.Port)
			locs = append(locs, le.done())
		}
		e.objList("locations", locs)
	}
	return e.done(), nil
}

func encodeSink(s *DataSink) (*structpb.Struct, error) {
	e := newEncoder()
	e.str("type", string(s.Type))
	switch s.Type {
	case ResultSinkType:
		if s.ResultSink == nil {
			return nil, vterrors.Errorf(codes.Internal, "wire: %s sink has no payload", s.Type)
		}
		e.obj("result_sink", newEncoder().done())
	case DataStreamSinkType:
		ss := s.StreamSink
		if ss == nil {
			return nil, vterrors.Errorf(codes.Internal, "wire: %s sink has no payload", s.Type)
		}
		se := newEncoder()
		se.i32("dest_node_id", ss.DestNodeID)
		if ss.OutputPartition != nil {
			pe := newEncoder()
			pe.str("type", string(ss.OutputPartition.Type))
			pe.strList("partition_exprs", ss.OutputPartition.PartitionExprs)
			se.obj("output_partition", pe.done())
		}
		e.obj("stream_sink", se.done())
	case MysqlTableSinkType:
		ms := s.MysqlTableSink
		if ms == nil {
			return nil, vterrors.Errorf(codes.Internal, "wire: %s sink has no payload", s.Type)
		}
		me := newEncoder()
		me.str("host", ms.Host)
		me.i32("port", ms.Port)
		me.str("user", ms.User)
		me.str("passwd", ms.Passwd)
		me.str("db", ms.DB)
		me.str("table", ms.Table)
		e.obj("mysql_table_sink", me.done())
	default:
		return nil, vterrors.Errorf(codes.Internal, "wire: unknown data sink type %q", s.Type)
	}
	return e.done(), nil
}

// DecodePlan is the inverse of EncodePlan.
func DecodePlan(st *structpb.Struct) (*Plan, error) {
	d := &decoder{s: st, path: "plan"}
	p := &Plan{
		Version:        d.i32("version"),
		QueryID:        d.str("query_id"),
		CatalogVersion: d.i64("catalog_version"),
	}
	if tuples, ok := d.objList("desc_tbl"); ok {
		p.DescTbl = make([]*TupleDescriptor, 0, len(tuples))
		for _, td := range tuples {
			p.DescTbl = append(p.DescTbl, decodeTuple(td))
		}
	}
	if root := d.obj("root"); root != nil {
		p.Root = decodeNode(root)
	}
	if sink := d.obj("sink"); sink != nil {
		p.Sink = decodeSink(sink)
	}
	if err := d.firstErr(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeTuple(d *decoder) *TupleDescriptor {
	td := &TupleDescriptor{ID: d.i32("id")}
	if slots, ok := d.objList("slots"); ok {
		td.Slots = make([]*SlotDescriptor, 0, len(slots))
		for _, s := range slots {
			td.Slots = append(td.Slots, &SlotDescriptor{
				ID:       s.i32("id"),
				Name:     s.str("name"),
				Type:     s.str("type"),
				Nullable: s.boolean("nullable"),
			})
		}
	}
	return td
}

func decodeNode(d *decoder) *PlanNode {
	n := &PlanNode{
		NodeID:       d.i32("node_id"),
		NodeType:     PlanNodeType(d.str("node_type")),
		Label:        d.str("label"),
		RowTuples:    d.i32List("row_tuples"),
		Conjuncts:    d.strList("conjuncts"),
		NumInstances: d.i32("num_instances"),
	}
	if ranges, ok := d.objList("scan_ranges"); ok {
		n.ScanRanges = make([]*ScanRangeLocations, 0, len(ranges))
		for _, r := range ranges {
			n.ScanRanges = append(n.ScanRanges, decodeScanRangeLocations(r))
		}
	}

	switch n.NodeType {
	case SchemaScanNodeType:
		if s := d.requiredObj("schema_scan_node"); s != nil {
			n.SchemaScanNode = &SchemaScanNode{
				TupleID:   s.i32("tuple_id"),
				TableName: s.str("table_name"),
				DB:        s.optStr("db"),
				Table:     s.optStr("table"),
				Wild:      s.optStr("wild"),
				User:      s.optStr("user"),
				IP:        s.optStr("ip"),
				Port:      s.optI32("port"),
				ThreadID:  s.optI64("thread_id"),
			}
		}
	case MysqlScanNodeType:
		if s := d.requiredObj("mysql_scan_node"); s != nil {
			n.MysqlScanNode = &MysqlScanNode{
				TupleID:   s.i32("tuple_id"),
				TableName: s.str("table_name"),
				Host:      s.str("host"),
				Port:      s.i32("port"),
				User:      s.str("user"),
				Passwd:    s.str("passwd"),
				DB:        s.str("db"),
				Columns:   s.strList("columns"),
				Filters:   s.strList("filters"),
				Query:     s.optStr("query"),
			}
		}
	case OlapScanNodeType:
		if s := d.requiredObj("olap_scan_node"); s != nil {
			n.OlapScanNode = &OlapScanNode{
				TupleID:   s.i32("tuple_id"),
				TableID:   s.i64("table_id"),
				TableName: s.str("table_name"),
			}
		}
	case ExchangeNodeType:
		if s := d.requiredObj("exchange_node"); s != nil {
			n.ExchangeNode = &ExchangeNode{InputRowTuples: s.i32List("input_row_tuples")}
		}
	default:
		d.fail("unknown plan node type %q", n.NodeType)
	}

	if children, ok := d.objList("children"); ok {
		n.Children = make([]*PlanNode, 0, len(children))
		for _, c := range children {
			n.Children = append(n.Children, decodeNode(c))
		}
	}
	return n
}

func decodeScanRangeLocations(d *decoder) *ScanRangeLocations {
	r := &ScanRangeLocations{}
	if sr := d.obj("scan_range"); sr != nil {
		r.ScanRange = &ScanRange{
			PartitionID: sr.i64("partition_id"),
			TabletID:    sr.i64("tablet_id"),
			Version:     sr.i64("version"),
			Offset:      sr.optI64("offset"),
			Length:      sr.optI64("length"),
		}
	}
	if locs, ok := d.objList("locations"); ok {
		r.Locations = make([]*ScanRangeLocation, 0, len(locs))
		for _, l := range locs {
			r.Locations = append(r.Locations, &ScanRangeLocation{
				BackendID: l.i64("backend_id"),
				Host:      l.str("host"),
				Port:      l.i32("port"),
			})
		}
	}
	return r
}

func decodeSink(d *decoder) *DataSink {
	s := &DataSink{Type: DataSinkType(d.str("type"))}
	switch s.Type {
	case ResultSinkType:
		if d.requiredObj("result_sink") != nil {
			s.ResultSink = &ResultSink{}
		}
	case DataStreamSinkType:
		if ss := d.requiredObj("stream_sink"); ss != nil {
			s.StreamSink = &DataStreamSink{DestNodeID: ss.i32("dest_node_id")}
			if p := ss.obj("output_partition"); p != nil {
				s.StreamSink.OutputPartition = &DataPartition{
					Type:           PartitionType(p.str("type")),
					PartitionExprs: p.strList("partition_exprs"),
				}
			}
		}
	case MysqlTableSinkType:
		if ms := d.requiredObj("mysql_table_sink"); ms != nil {
			s.MysqlTableSink = &MysqlTableSink{
				Host:   ms.str("host"),
				Port:   ms.i32("port"),
				User:   ms.str("user"),
				Passwd: ms.str("passwd"),
				DB:     ms.str("db"),
				Table:  ms.str("table"),
			}
		}
	default:
		d.fail("unknown data sink type %q", s.Type)
	}
	return s
}

type encoder struct {
	fields map[string]*structpb.Value
}

func newEncoder() *encoder {
	return &encoder{fields: make(map[string]*structpb.Value)}
}

func (e *encoder) done() *structpb.Struct {
	return &structpb.Struct{Fields: e.fields}
}

func (e *encoder) str(k, v string) {
	e.fields[k] = structpb.NewStringValue(v)
}

func (e *encoder) optStr(k string, v *string) {
	if v != nil {
		e.str(k, *v)
	}
}

func (e *encoder) boolean(k string, v bool) {
	e.fields[k] = structpb.NewBoolValue(v)
}

func (e *encoder) i32(k string, v int32) {
	e.fields[k] = structpb.NewNumberValue(float64(v))
}

func (e *encoder) optI32(k string, v *int32) {
	if v != nil {
		e.i32(k, *v)
	}
}

func (e *encoder) i64(k string, v int64) {
	e.str(k, strconv.FormatInt(v, 10))
}

func (e *encoder) optI64(k string, v *int64) {
	if v != nil {
		e.i64(k, *v)
	}
}

func (e *encoder) strList(k string, v []string) {
	if v == nil {
		return
	}
	vals := make([]*structpb.Value, len(v))
	for i, s := range v {
		vals[i] = structpb.NewStringValue(s)
	}
	e.fields[k] = structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func (e *encoder) i32List(k string, v []int32) {
	if v == nil {
		return
	}
	vals := make([]*structpb.Value, len(v))
	for i, n := range v {
		vals[i] = structpb.NewNumberValue(float64(n))
	}
	e.fields[k] = structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func (e *encoder) obj(k string, s *structpb.Struct) {
	e.fields[k] = structpb.NewStructValue(s)
}

func (e *encoder) objList(k string, items []*structpb.Struct) {
	vals := make([]*structpb.Value, len(items))
	for i, s := range items {
		vals[i] = structpb.NewStructValue(s)
	}
	e.fields[k] = structpb.NewListValue(&structpb.ListValue{Values: vals})
}

// decoder reads one struct. The first error is recorded in the shared
// errs slot; later reads return zero values.
type decoder struct {
	s    *structpb.Struct
	path string
	errs *error
}

func (d *decoder) errSlot() *error {
	if d.errs == nil {
		d.errs = new(error)
	}
	return d.errs
}

func (d *decoder) firstErr() error {
	return *d.errSlot()
}

func (d *decoder) fail(format string, args ...any) {
	slot := d.errSlot()
	if *slot == nil {
		*slot = vterrors.Errorf(codes.InvalidArgument, "wire: %s: %s", d.path, fmt.Sprintf(format, args...))
	}
}

func (d *decoder) child(k string, s *structpb.Struct) *decoder {
	return &decoder{s: s, path: d.path + "." + k, errs: d.errSlot()}
}

func (d *decoder) field(k string) (*structpb.Value, bool) {
	v, ok := d.s.GetFields()[k]
	return v, ok
}

func (d *decoder) required(k string) *structpb.Value {
	v, ok := d.field(k)
	if !ok {
		d.fail("missing field %q", k)
		return nil
	}
	return v
}

func (d *decoder) asString(k string, v *structpb.Value) (string, bool) {
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		d.fail("field %q: want string, got %T", k, v.GetKind())
		return "", false
	}
	return sv.StringValue, true
}

func (d *decoder) asI32(k string, v *structpb.Value) (int32, bool) {
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		d.fail("field %q: want number, got %T", k, v.GetKind())
		return 0, false
	}
	f := nv.NumberValue
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		d.fail("field %q: %v is not an int32", k, f)
		return 0, false
	}
	return int32(f), true
}

func (d *decoder) asI64(k string, v *structpb.Value) (int64, bool) {
	s, ok := d.asString(k, v)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		d.fail("field %q: %v", k, err)
		return 0, false
	}
	return n, true
}

func (d *decoder) str(k string) string {
	if v := d.required(k); v != nil {
		s, _ := d.asString(k, v)
		return s
	}
	return ""
}

func (d *decoder) optStr(k string) *string {
	v, ok := d.field(k)
	if !ok {
		return nil
	}
	if s, ok := d.asString(k, v); ok {
		return &s
	}
	return nil
}

func (d *decoder) boolean(k string) bool {
	v := d.required(k)
	if v == nil {
		return false
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		d.fail("field %q: want bool, got %T", k, v.GetKind())
		return false
	}
	return bv.BoolValue
}

func (d *decoder) i32(k string) int32 {
	if v := d.required(k); v != nil {
		n, _ := d.asI32(k, v)
		return n
	}
	return 0
}

func (d *decoder) optI32(k string) *int32 {
	v, ok := d.field(k)
	if !ok {
		return nil
	}
	if n, ok := d.asI32(k, v); ok {
		return &n
	}
	return nil
}

func (d *decoder) i64(k string) int64 {
	if v := d.required(k); v != nil {
		n, _ := d.asI64(k, v)
		return n
	}
	return 0
}

func (d *decoder) optI64(k string) *int64 {
	v, ok := d.field(k)
	if !ok {
		return nil
	}
	if n, ok := d.asI64(k, v); ok {
		return &n
	}
	return nil
}

func (d *decoder) list(k string) ([]*structpb.Value, bool) {
	v, ok := d.field(k)
	if !ok {
		return nil, false
	}
	lv, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		d.fail("field %q: want list, got %T", k, v.GetKind())
		return nil, false
	}
	return lv.ListValue.GetValues(), true
}

func (d *decoder) strList(k string) []string {
	vals, ok := d.list(k)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		s, _ := d.asString(k, v)
		out = append(out, s)
	}
	return out
}

func (d *decoder) i32List(k string) []int32 {
	vals, ok := d.list(k)
	if !ok {
		return nil
	}
	out := make([]int32, 0, len(vals))
	for _, v := range vals {
		n, _ := d.asI32(k, v)
		out = append(out, n)
	}
	return out
}

func (d *decoder) obj(k string) *decoder {
	v, ok := d.field(k)
	if !ok {
		return nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		d.fail("field %q: want struct, got %T", k, v.GetKind())
		return nil
	}
	return d.child(k, sv.StructValue)
}

func (d *decoder) requiredObj(k string) *decoder {
	if _, ok := d.field(k); !ok {
		d.fail("missing field %q", k)
		return nil
	}
	return d.obj(k)
}

func (d *decoder) objList(k string) ([]*decoder, bool) {
	vals, ok := d.list(k)
	if !ok {
		return nil, false
	}
	out := make([]*decoder, 0, len(vals))
	for i, v := range vals {
		sv, ok := v.GetKind().(*structpb.Value_StructValue)
		if !ok {
			d.fail("field %q[%d]: want struct, got %T", k, i, v.GetKind())
			return nil, false
		}
		out = append(out, d.child(fmt.Sprintf("%s[%d]", k, i), sv.StructValue))
	}
	return out, true
}
