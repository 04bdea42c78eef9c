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

	"github.com/mppdb/coordinator/go/vt/planner/wire"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// ExchangeNode receives the rows of its child, which runs as a separate
// fragment, and merges them into a single stream.
type ExchangeNode struct {
	planNodeBase
}

var _ PlanNode = (*ExchangeNode)(nil)

// NewExchangeNode returns an exchange above child. The output schema is the
// child's.
func NewExchangeNode(id PlanNodeID, child PlanNode) (*ExchangeNode, error) {
	if child == nil {
		return nil, vterrors.NewErrorf(codes.InvalidArgument, vterrors.BadPlan, "exchange %s without input", id)
	}
	e := &ExchangeNode{planNodeBase: newPlanNodeBase(id, child.OutputSchema(), "EXCHANGE")}
	if err := e.addChild(child); err != nil {
		return nil, err
	}
	return e, nil
}

// Input is the node feeding the exchange.
func (e *ExchangeNode) Input() PlanNode { return e.children[0] }

// NumInstances is part of the PlanNode interface.
func (e *ExchangeNode) NumInstances() int { return 1 }

// Finalize is part of the PlanNode interface.
func (e *ExchangeNode) Finalize(ctx context.Context, _ *PlanContext) error {
	if err := e.beginFinalize(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return vterrors.Wrapf(err, "node %s: finalize aborted", e.id)
	}
	return nil
}

// Explain is part of the PlanNode interface.
func (e *ExchangeNode) Explain(prefix string, level ExplainLevel) string {
	buf := e.explainHeader(prefix, level)
	fmt.Fprintf(buf, "%s   from %d instance(s) of node %s\n", prefix, e.Input().NumInstances(), e.Input().ID())
	return buf.String()
}

// ToWire is part of the PlanNode interface.
func (e *ExchangeNode) ToWire() (*wire.PlanNode, error) {
	n := e.wireBase(wire.ExchangeNodeType, e.NumInstances())
	n.ExchangeNode = &wire.ExchangeNode{InputRowTuples: []int32{}}
	if t := e.Input().OutputSchema(); t != nil {
		n.ExchangeNode.InputRowTuples = []int32{int32(t.ID)}
	}
	return n, nil
}
