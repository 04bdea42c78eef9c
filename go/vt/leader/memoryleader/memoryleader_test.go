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

package memoryleader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

func TestElection(t *testing.T) {
	ctx := context.Background()
	g := NewGroup("test")
	a := g.Resolver("fe1:8030")
	b := g.Resolver("fe2:8030")

	_, err := a.Leader(ctx)
	assert.Equal(t, vterrors.NoLeader, vterrors.ErrState(err))
	assert.True(t, vterrors.IsRetryable(err))

	lctx, err := a.Campaign(ctx)
	require.NoError(t, err)

	isLeader, addr, err := leader.IsLeader(ctx, b)
	require.NoError(t, err)
	assert.False(t, isLeader)
	assert.Equal(t, "fe1:8030", addr)

	isLeader, _, err = leader.IsLeader(ctx, a)
	require.NoError(t, err)
	assert.True(t, isLeader)

	won := make(chan context.Context)
	go func() {
		bctx, err := b.Campaign(ctx)
		assert.NoError(t, err)
		won <- bctx
	}()

	select {
	case <-won:
		t.Fatal("b won while a was leader")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, a.Close())
	select {
	case <-lctx.Done():
	case <-time.After(time.Second):
		t.Fatal("a's leadership context was not canceled")
	}
	select {
	case <-won:
	case <-time.After(time.Second):
		t.Fatal("b did not take over")
	}
	addr, err = a.Leader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fe2:8030", addr)
}

func TestCampaignCanceled(t *testing.T) {
	g := NewGroup("test")
	g.SetLeader("fe1:8030")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.Resolver("fe2:8030").Campaign(ctx)
	assert.Equal(t, codes.DeadlineExceeded, vterrors.Code(err))
}

func TestUnreachable(t *testing.T) {
	g := NewGroup("test")
	g.SetLeader("fe1:8030")
	g.SetError(errors.New("connection reset"))
	_, err := g.Resolver("fe2:8030").Leader(context.Background())
	assert.Equal(t, codes.Unavailable, vterrors.Code(err))
	assert.Equal(t, vterrors.MetadataUnreachable, vterrors.ErrState(err))
}

func TestFactory(t *testing.T) {
	assert.Contains(t, leader.Implementations(), "memory")

	r, err := leader.Open(leader.Config{Implementation: "memory", Root: "/factory", Self: "fe2:8030", ServerAddress: "fe1:8030"})
	require.NoError(t, err)
	addr, err := r.Leader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fe1:8030", addr)

	_, err = leader.Open(leader.Config{Implementation: "memory", Root: "/factory"})
	assert.Error(t, err, "an advertised address is required")
	_, err = leader.Open(leader.Config{Implementation: "chubby", Self: "x"})
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
}
