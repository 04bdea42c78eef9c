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

package servenv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, 8030, cfg.Port)
	assert.Equal(t, 9020, cfg.RPCPort)
	assert.Equal(t, "memory", cfg.Leader.Implementation)
	assert.Equal(t, "/mppdb/leader", cfg.Leader.Root)
	assert.Equal(t, "memory", cfg.Jobs.Backend)
	assert.Equal(t, 5*time.Second, cfg.FinalizeTimeout)
	assert.Zero(t, cfg.RequestsPerSecond)
	assert.Equal(t, "noop", cfg.Tracing.Tracer)
	assert.Equal(t, "coordinator", cfg.Tracing.Service)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "coordinator.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
port: 8040
cell: zone2
leader-implementation: etcd
leader-server-address: etcd1:2379,etcd2:2379
jobs-backend: sqlite
jobs-sqlite-file: /var/lib/mppdb/jobs.db
`), 0o644))
	t.Setenv("MPPDB_CELL", "zone3")

	cfg, err := LoadConfig(newFlagSet(t, "--config", file, "--port", "8050"))
	require.NoError(t, err)
	assert.Equal(t, 8050, cfg.Port, "flag beats file")
	assert.Equal(t, "zone3", cfg.Cell, "env beats file")
	assert.Equal(t, "etcd", cfg.Leader.Implementation)
	assert.Equal(t, "etcd1:2379,etcd2:2379", cfg.Leader.ServerAddress)
	assert.Equal(t, "/var/lib/mppdb/jobs.db", cfg.Jobs.SQLiteFile)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(newFlagSet(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorContains(t, err, "cannot read config")

	_, err = LoadConfig(newFlagSet(t, "--rpc-port", "0"))
	assert.ErrorContains(t, err, "invalid --rpc-port 0")

	_, err = LoadConfig(newFlagSet(t, "--leader-implementation", ""))
	assert.ErrorContains(t, err, "--leader-implementation is required")

	_, err = LoadConfig(newFlagSet(t, "--api-rate-limit", "-1"))
	assert.ErrorContains(t, err, "invalid --api-rate-limit")

	_, err = LoadConfig(newFlagSet(t, "--api-rate-limit", "100", "--api-rate-burst", "0"))
	assert.ErrorContains(t, err, "invalid --api-rate-burst 0")
}

type staticResolver []string

func (s staticResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return s, nil
}

func TestResolveSelfAddress(t *testing.T) {
	cfg, err := LoadConfig(newFlagSet(t, "--port", "8031"))
	require.NoError(t, err)
	require.NoError(t, cfg.ResolveSelfAddress(context.Background(), staticResolver{"10.0.0.7"}))
	assert.Equal(t, "10.0.0.7:8031", cfg.SelfAddress)
	assert.Equal(t, "10.0.0.7:8031", cfg.Leader.Self)

	cfg, err = LoadConfig(newFlagSet(t, "--self-address", "fe1:8030"))
	require.NoError(t, err)
	require.NoError(t, cfg.ResolveSelfAddress(context.Background(), staticResolver{"10.0.0.7"}))
	assert.Equal(t, "fe1:8030", cfg.Leader.Self)
}
