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

package leader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/leader"
	_ "github.com/mppdb/coordinator/go/vt/leader/consulleader"
	_ "github.com/mppdb/coordinator/go/vt/leader/etcdleader"
	"github.com/mppdb/coordinator/go/vt/leader/memoryleader"
	_ "github.com/mppdb/coordinator/go/vt/leader/zkleader"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

func TestImplementations(t *testing.T) {
	assert.Equal(t, []string{"consul", "etcd", "memory", "zk"}, leader.Implementations())
}

func TestConvertError(t *testing.T) {
	assert.NoError(t, leader.ConvertError(nil, "op"))

	err := leader.ConvertError(errors.New("dial tcp: connection refused"), "get leader")
	assert.Equal(t, codes.Unavailable, vterrors.Code(err))
	assert.Equal(t, vterrors.MetadataUnreachable, vterrors.ErrState(err))

	err = leader.ConvertError(context.Canceled, "campaign")
	assert.Equal(t, codes.Canceled, vterrors.Code(err))

	noLeader := leader.NewNoLeaderError("/coordinator")
	assert.Equal(t, noLeader, leader.ConvertError(noLeader, "get leader"))
	assert.Equal(t, vterrors.NoLeader, vterrors.ErrState(noLeader))
}

func TestConfigTTL(t *testing.T) {
	assert.Equal(t, leader.DefaultSessionTTL, leader.Config{}.TTL())
	assert.Equal(t, 3*time.Second, leader.Config{SessionTTL: 3 * time.Second}.TTL())
}

func TestRunCampaign(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	group := memoryleader.NewGroup("/coordinator")
	r1 := group.Resolver("fe1:8030")
	r2 := group.Resolver("fe2:8030")

	events1 := make(chan bool, 4)
	events2 := make(chan bool, 4)
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	go leader.RunCampaign(ctx1, r1, time.Millisecond, func(leading bool) { events1 <- leading })
	require.True(t, <-events1)

	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		leader.RunCampaign(ctx2, r2, time.Millisecond, func(leading bool) { events2 <- leading })
	}()

	ok, addr, err := leader.IsLeader(context.Background(), r2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "fe1:8030", addr)

	cancel1()
	require.False(t, <-events1)
	r1.Resign()
	require.True(t, <-events2)

	ok, _, err = leader.IsLeader(context.Background(), r2)
	require.NoError(t, err)
	assert.True(t, ok)

	cancel2()
	<-done2
	assert.False(t, <-events2)
}
