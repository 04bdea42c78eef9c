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

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

func TestTableRef(t *testing.T) {
	assert.Equal(t, "sales.orders", TableRef{Database: "sales", Table: "orders"}.String())
	assert.Equal(t, "TABLES", TableRef{Table: "TABLES"}.String())

	err := TableRef{Database: "sales"}.Validate()
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
	assert.Equal(t, vterrors.BadSourceReference, vterrors.ErrState(err))
}

func TestPredicateString(t *testing.T) {
	assert.Equal(t, "id > 10", Predicate{Column: "id", Op: ">", Values: []Literal{{Value: "10", Type: TypeInt}}}.String())
	assert.Equal(t, "k IS NULL", Predicate{Column: "k", Op: "IS NULL"}.String())
	assert.Equal(t, "c IN (a, b)", Predicate{Column: "c", Op: "IN", Values: []Literal{{Value: "a"}, {Value: "b"}}}.String())
}

func TestStatementValidate(t *testing.T) {
	tuple := &TupleDescriptor{ID: 0, Slots: []SlotDescriptor{{ID: 0, Name: "TABLE_NAME", Type: TypeVarchar}}}

	testcases := []struct {
		name  string
		stmt  *Statement
		state vterrors.State
	}{{
		name:  "nil",
		stmt:  nil,
		state: vterrors.BadPlan,
	}, {
		name:  "no table",
		stmt:  &Statement{Kind: Select, Tuple: tuple},
		state: vterrors.BadSourceReference,
	}, {
		name:  "no slots",
		stmt:  &Statement{Kind: Select, Source: TableRef{Table: "t"}, Tuple: &TupleDescriptor{}},
		state: vterrors.BadPlan,
	}, {
		name:  "insert without target",
		stmt:  &Statement{Kind: InsertSelect, Source: TableRef{Table: "t"}, Tuple: tuple},
		state: vterrors.BadSourceReference,
	}, {
		name:  "unknown kind",
		stmt:  &Statement{Kind: "MERGE", Source: TableRef{Table: "t"}, Tuple: tuple},
		state: vterrors.BadPlan,
	}, {
		name: "ok",
		stmt: &Statement{Kind: Select, Source: TableRef{Table: "t"}, Tuple: tuple},
	}}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.stmt.Validate()
			if tc.state == vterrors.Undefined {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
			assert.Equal(t, tc.state, vterrors.ErrState(err))
		})
	}
}

func TestTupleDescriptor(t *testing.T) {
	var nilTuple *TupleDescriptor
	assert.Nil(t, nilTuple.ColumnNames())
	assert.Nil(t, nilTuple.Clone())

	td := &TupleDescriptor{ID: 1, Slots: []SlotDescriptor{{Name: "a"}, {Name: "b"}}}
	c := td.Clone()
	c.Slots[0].Name = "z"
	assert.Equal(t, []string{"a", "b"}, td.ColumnNames())
	assert.True(t, TypeDate.IsStringType())
	assert.False(t, TypeBigInt.IsStringType())
}
