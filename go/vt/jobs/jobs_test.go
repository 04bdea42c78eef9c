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

package jobs

import (
	"context"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewStore(context.Background(), Config{Backend: BackendSQLite, SQLiteFile: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendSQLite: sqlite,
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "sales", "batch_20230101")
			assert.Equal(t, codes.NotFound, vterrors.Code(err))
			assert.Equal(t, vterrors.NoSuchJob, vterrors.ErrState(err))

			job := &JobInfo{DBName: "sales", Label: "batch_20230101", State: StateLoading, Progress: "50%"}
			require.NoError(t, store.Put(ctx, job))
			got, err := store.Get(ctx, "sales", "batch_20230101")
			require.NoError(t, err)
			assert.Equal(t, job, got)

			job.State = StateFinished
			job.Progress = "100%"
			job.TrackingURL = "http://etl/job/1"
			require.NoError(t, store.Put(ctx, job))
			require.NoError(t, store.Put(ctx, &JobInfo{DBName: "sales", Label: "batch_0", State: StateCancelled, FailMsg: "etl quality not good"}))
			require.NoError(t, store.Put(ctx, &JobInfo{DBName: "ops", Label: "other", State: StatePending}))

			got, err = store.Get(ctx, "sales", "batch_20230101")
			require.NoError(t, err)
			assert.Equal(t, StateFinished, got.State)
			assert.Equal(t, "http://etl/job/1", got.TrackingURL)

			got, err = store.Get(ctx, "sales", "batch_0")
			require.NoError(t, err)
			assert.Equal(t, StateCancelled, got.State)
			assert.Equal(t, "etl quality not good", got.FailMsg)

			_, err = store.Get(ctx, "SALES", "batch_0")
			assert.Equal(t, codes.NotFound, vterrors.Code(err), "database names are case sensitive")
		})
	}
}

func TestPutValidates(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Put(context.Background(), &JobInfo{Label: "l"})
			assert.EqualError(t, err, "No database selected")
			err = store.Put(context.Background(), &JobInfo{DBName: "sales"})
			assert.EqualError(t, err, "No label selected")
			assert.Equal(t, vterrors.MissingParameter, vterrors.ErrState(err))
		})
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Backend: "redis"})
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{MySQLHost: "db.internal", MySQLPort: 3306, MySQLUser: "jobs", MySQLPassword: "pw", MySQLDatabase: "coordinator"}
	parsed, err := mysql.ParseDSN(cfg.mysqlDSN())
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3306", parsed.Addr)
	assert.Equal(t, "coordinator", parsed.DBName)
	assert.True(t, parsed.ParseTime)
}

func TestMemoryStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Get(ctx, "sales", "l")
	assert.Equal(t, codes.Canceled, vterrors.Code(err))
}
