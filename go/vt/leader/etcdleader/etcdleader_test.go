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

package etcdleader

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startEtcd runs a single-member etcd for the test, or skips the test
// when no etcd binary is installed.
func startEtcd(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("etcd"); err != nil {
		t.Skip("etcd not installed")
	}
	name := "mppdb_unit_test"
	clientAddr := fmt.Sprintf("http://localhost:%v", freePort(t))
	peerAddr := fmt.Sprintf("http://localhost:%v", freePort(t))

	cmd := exec.Command("etcd",
		"--name", name,
		"--advertise-client-urls", clientAddr,
		"--initial-advertise-peer-urls", peerAddr,
		"--listen-client-urls", clientAddr,
		"--listen-peer-urls", peerAddr,
		"--initial-cluster", name+"="+peerAddr,
		"--data-dir", t.TempDir())
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})
	return clientAddr
}

func newServer(t *testing.T, addr, self string) *Server {
	t.Helper()
	s, err := NewServer(leader.Config{ServerAddress: addr, Root: "/mppdb/" + t.Name(), Self: self, SessionTTL: 2 * time.Second})
	require.NoError(t, err)
	return s
}

func TestElection(t *testing.T) {
	addr := startEtcd(t)
	s1 := newServer(t, addr, "fe1:8030")
	s2 := newServer(t, addr, "fe2:8030")
	defer s2.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.Eventually(t, func() bool {
		_, err := s1.Leader(ctx)
		return vterrors.ErrState(err) == vterrors.NoLeader
	}, 10*time.Second, 50*time.Millisecond)

	lctx, err := s1.Campaign(ctx)
	require.NoError(t, err)
	addr1, err := s2.Leader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fe1:8030", addr1)

	acquired := make(chan error, 1)
	go func() {
		_, err := s2.Campaign(ctx)
		acquired <- err
	}()

	require.NoError(t, s1.Close())
	require.NoError(t, <-acquired)
	<-lctx.Done()

	addr2, err := s2.Leader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fe2:8030", addr2)
}
