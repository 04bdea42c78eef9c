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

// Package planner turns analyzed statements into physical plans: trees of
// PlanNodes ending in a DataSink, split into fragments at exchange nodes,
// finalized against the request's PlanContext and serialized to the wire
// format consumed by workers.
package planner

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// PlanNodeID identifies a node within one plan.
type PlanNodeID int32

func (id PlanNodeID) String() string {
	return fmt.Sprintf("%02d", int32(id))
}

// PlanNodeIDGenerator hands out plan-unique ids.
type PlanNodeIDGenerator struct {
	next PlanNodeID
}

// Next returns a fresh id.
func (g *PlanNodeIDGenerator) Next() PlanNodeID {
	id := g.next
	g.next++
	return id
}

// ExplainLevel controls how much Explain prints.
type ExplainLevel int

// Explain levels.
const (
	ExplainNormal ExplainLevel = iota
	ExplainVerbose
)

// PlanNode is a physical operator.
type PlanNode interface {
	ID() PlanNodeID
	// OutputSchema is fixed at construction.
	OutputSchema() *analysis.TupleDescriptor
	Children() []PlanNode
	// DisplayName is the human-readable label.
	DisplayName() string
	// NumInstances is how many parallel instances the node runs as.
	NumInstances() int

	// Finalize resolves state only available after analysis. It must be
	// called once, before serialization.
	Finalize(ctx context.Context, pctx *PlanContext) error
	// Explain renders the node, without its children, for diagnostics.
	Explain(prefix string, level ExplainLevel) string
	// ToWire converts the node, without its children, to its wire form.
	ToWire() (*wire.PlanNode, error)
}

// planNodeBase holds the state shared by all nodes.
type planNodeBase struct {
	id        PlanNodeID
	tuple     *analysis.TupleDescriptor
	children  []PlanNode
	label     string
	conjuncts []analysis.Predicate

	frozen    bool
	finalized bool
}

func newPlanNodeBase(id PlanNodeID, tuple *analysis.TupleDescriptor, label string) planNodeBase {
	return planNodeBase{id: id, tuple: tuple.Clone(), label: label}
}

func (b *planNodeBase) ID() PlanNodeID { return b.id }

func (b *planNodeBase) OutputSchema() *analysis.TupleDescriptor { return b.tuple }

func (b *planNodeBase) DisplayName() string { return b.label }

func (b *planNodeBase) Children() []PlanNode {
	return append([]PlanNode(nil), b.children...)
}

// Conjuncts returns the predicates attached to the node.
func (b *planNodeBase) Conjuncts() []analysis.Predicate {
	return b.conjuncts
}

func (b *planNodeBase) addChild(child PlanNode) error {
	if b.frozen {
		return vterrors.NewErrorf(codes.FailedPrecondition, vterrors.PlanFrozen, "node %s: children are immutable after plan assembly", b.id)
	}
	b.children = append(b.children, child)
	return nil
}

func (b *planNodeBase) freeze() { b.frozen = true }

func (b *planNodeBase) isFrozen() bool { return b.frozen }

// beginFinalize enforces the once-only finalize rule.
func (b *planNodeBase) beginFinalize() error {
	if b.finalized {
		return vterrors.NewErrorf(codes.FailedPrecondition, vterrors.PlanAlreadyFinalized, "node %s (%s) finalized twice", b.id, b.label)
	}
	b.finalized = true
	return nil
}

func (b *planNodeBase) isFinalized() bool { return b.finalized }

// wireBase fills the node-independent wire fields.
func (b *planNodeBase) wireBase(nodeType wire.PlanNodeType, numInstances int) *wire.PlanNode {
	n := &wire.PlanNode{
		NodeID:       int32(b.id),
		NodeType:     nodeType,
		Label:        b.label,
		NumInstances: int32(numInstances),
	}
	if b.tuple != nil {
		n.RowTuples = []int32{int32(b.tuple.ID)}
	}
	if b.conjuncts != nil {
		n.Conjuncts = make([]string, len(b.conjuncts))
		for i, c := range b.conjuncts {
			n.Conjuncts[i] = c.String()
		}
	}
	return n
}

// explainHeader renders "<prefix><id>:<label>" followed by the common
// detail lines.
func (b *planNodeBase) explainHeader(prefix string, level ExplainLevel) *strings.Builder {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s%s:%s\n", prefix, b.id, b.label)
	detail := prefix + "   "
	if len(b.conjuncts) > 0 {
		preds := make([]string, len(b.conjuncts))
		for i, c := range b.conjuncts {
			preds[i] = c.String()
		}
		fmt.Fprintf(&buf, "%sPREDICATES: %s\n", detail, strings.Join(preds, " AND "))
	}
	if level == ExplainVerbose && b.tuple != nil {
		fmt.Fprintf(&buf, "%sTUPLE %d: %s\n", detail, b.tuple.ID, strings.Join(b.tuple.ColumnNames(), ", "))
	}
	return &buf
}

// freezable is implemented by every node embedding planNodeBase.
type freezable interface {
	freeze()
	isFrozen() bool
}
