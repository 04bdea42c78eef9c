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
	"strings"

	"github.com/google/uuid"
	"github.com/xlab/treeprint"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

type planState int

const (
	planAssembled planState = iota
	planFinalizing
	planFinalized
	planFailed
)

// Plan is an assembled node tree and its sink. Its shape is frozen; it is
// finalized once and may then be serialized any number of times.
type Plan struct {
	queryID        uuid.UUID
	catalogVersion int64
	root           PlanNode
	sink           DataSink
	state          planState
}

// Assemble freezes the tree under root and returns it as a plan. Node ids
// must be unique.
func Assemble(queryID uuid.UUID, catalogVersion int64, root PlanNode, sink DataSink) (*Plan, error) {
	if root == nil || sink == nil {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "plan needs a root and a sink")
	}
	seen := make(map[PlanNodeID]bool)
	err := walk(root, func(n PlanNode) error {
		if seen[n.ID()] {
			return vterrors.NewErrorf(codes.Internal, vterrors.BadPlan, "duplicate plan node id %s", n.ID())
		}
		seen[n.ID()] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = walk(root, func(n PlanNode) error {
		if f, ok := n.(freezable); ok {
			f.freeze()
		}
		return nil
	})
	return &Plan{queryID: queryID, catalogVersion: catalogVersion, root: root, sink: sink}, nil
}

// walk visits n and its descendants in pre-order.
func walk(n PlanNode, visit func(PlanNode) error) error {
	if err := visit(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := walk(c, visit); err != nil {
			return err
		}
	}
	return nil
}

// QueryID identifies the plan.
func (p *Plan) QueryID() uuid.UUID { return p.queryID }

// Root is the top node.
func (p *Plan) Root() PlanNode { return p.root }

// Sink consumes the root's output.
func (p *Plan) Sink() DataSink { return p.sink }

// Finalized reports whether Finalize completed.
func (p *Plan) Finalized() bool { return p.state == planFinalized }

// Finalize finalizes every node, parents before children. It may be called
// once; a failed or canceled finalize leaves the plan unusable.
func (p *Plan) Finalize(ctx context.Context, pctx *PlanContext) error {
	if p.state != planAssembled {
		return vterrors.NewErrorf(codes.FailedPrecondition, vterrors.PlanAlreadyFinalized, "plan %s was already finalized", p.queryID)
	}
	p.state = planFinalizing
	err := walk(p.root, func(n PlanNode) error {
		if err := ctx.Err(); err != nil {
			return vterrors.Wrapf(err, "plan %s: finalize aborted", p.queryID)
		}
		return n.Finalize(ctx, pctx)
	})
	if err != nil {
		p.state = planFailed
		return err
	}
	p.state = planFinalized
	return nil
}

// Serialize converts the finalized plan to its wire form. The result does
// not share memory with the plan.
func (p *Plan) Serialize() (*wire.Plan, error) {
	if p.state != planFinalized {
		return nil, vterrors.NewErrorf(codes.FailedPrecondition, vterrors.PlanNotFinalized, "plan %s is not finalized", p.queryID)
	}
	root, err := nodeToWire(p.root)
	if err != nil {
		return nil, err
	}
	sink, err := p.sink.ToWire()
	if err != nil {
		return nil, err
	}
	return &wire.Plan{
		Version:        wire.FormatVersion,
		QueryID:        p.queryID.String(),
		CatalogVersion: p.catalogVersion,
		DescTbl:        p.descriptorTable(),
		Root:           root,
		Sink:           sink,
	}, nil
}

// Marshal serializes the plan and encodes it.
func (p *Plan) Marshal() ([]byte, error) {
	w, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(w)
}

func nodeToWire(n PlanNode) (*wire.PlanNode, error) {
	w, err := n.ToWire()
	if err != nil {
		return nil, err
	}
	for _, c := range n.Children() {
		cw, err := nodeToWire(c)
		if err != nil {
			return nil, err
		}
		w.Children = append(w.Children, cw)
	}
	return w, nil
}

func (p *Plan) descriptorTable() []*wire.TupleDescriptor {
	tuples := make(map[analysis.TupleID]*analysis.TupleDescriptor)
	_ = walk(p.root, func(n PlanNode) error {
		if t := n.OutputSchema(); t != nil {
			tuples[t.ID] = t
		}
		return nil
	})
	ids := make([]analysis.TupleID, 0, len(tuples))
	for id := range tuples {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*wire.TupleDescriptor, len(ids))
	for i, id := range ids {
		t := tuples[id]
		wt := &wire.TupleDescriptor{ID: int32(t.ID), Slots: make([]*wire.SlotDescriptor, len(t.Slots))}
		for j, s := range t.Slots {
			wt.Slots[j] = &wire.SlotDescriptor{ID: int32(s.ID), Name: s.Name, Type: string(s.Type), Nullable: s.Nullable}
		}
		out[i] = wt
	}
	return out
}

// Fragment is a subtree executed as a unit, cut at exchange nodes.
type Fragment struct {
	ID   int
	Root PlanNode
	Sink DataSink
	// Partition is how the fragment's input is spread over its instances.
	Partition *DataPartition
}

// Fragments splits the plan at exchange nodes. Fragment 0 holds the root
// and the plan's sink; every exchange input becomes a fragment streaming
// into that exchange.
func (p *Plan) Fragments() []*Fragment {
	var frags []*Fragment
	var cut func(root PlanNode, sink DataSink)
	cut = func(root PlanNode, sink DataSink) {
		f := &Fragment{ID: len(frags), Root: root, Sink: sink, Partition: Unpartitioned}
		frags = append(frags, f)
		var visit func(PlanNode)
		visit = func(n PlanNode) {
			if scan, ok := n.(*PartitionedTableScan); ok && scan.NumInstances() > 1 {
				f.Partition = &DataPartition{Type: wire.Random}
			}
			if exch, ok := n.(*ExchangeNode); ok {
				cut(exch.Input(), NewDataStreamSink(exch, Unpartitioned))
				return
			}
			for _, c := range n.Children() {
				visit(c)
			}
		}
		visit(root)
	}
	cut(p.root, p.sink)
	return frags
}

// Explain renders the plan fragment by fragment.
func (p *Plan) Explain(level ExplainLevel) string {
	var buf strings.Builder
	for i, f := range p.Fragments() {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "PLAN FRAGMENT %d\n", f.ID)
		fmt.Fprintf(&buf, "  OUTPUT EXPRS: %s\n", strings.Join(f.Root.OutputSchema().ColumnNames(), " | "))
		fmt.Fprintf(&buf, "  PARTITION: %s\n", f.Partition)
		if s := f.Sink.Explain("  ", level); s != "" {
			buf.WriteString("\n")
			buf.WriteString(s)
		}
		buf.WriteString("\n")
		explainTree(&buf, f.Root, "  ", level)
	}
	return buf.String()
}

func explainTree(buf *strings.Builder, n PlanNode, prefix string, level ExplainLevel) {
	buf.WriteString(n.Explain(prefix, level))
	if _, ok := n.(*ExchangeNode); ok {
		return
	}
	for _, c := range n.Children() {
		fmt.Fprintf(buf, "%s  |\n", prefix)
		explainTree(buf, c, prefix+"  ", level)
	}
}

// Tree renders the node tree, without fragment boundaries.
func (p *Plan) Tree() string {
	return asTree(p.root, nil).String()
}

func asTree(n PlanNode, root treeprint.Tree) treeprint.Tree {
	txt := fmt.Sprintf("%s:%s (instances=%d)", n.ID(), n.DisplayName(), n.NumInstances())
	var branch treeprint.Tree
	if root == nil {
		branch = treeprint.NewWithRoot(txt)
	} else {
		branch = root.AddBranch(txt)
	}
	for _, c := range n.Children() {
		asTree(c, branch)
	}
	return branch
}
