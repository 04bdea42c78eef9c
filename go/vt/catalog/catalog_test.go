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

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/analysis"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

const testCatalog = `
version: 7
databases:
- name: sales
  tables:
  - id: 10
    name: Orders
    type: OLAP
    partitions:
    - id: 100
      name: p1
      tablets:
      - id: 1000
        version: 3
        replicas:
        - {backend_id: 1, host: be1, port: 9060, cell: zone1, alive: true}
        - {backend_id: 2, host: be2, port: 9060, cell: zone2, alive: false}
  - id: 11
    name: remote_orders
    type: MYSQL
    mysql: {host: mysql1, port: 3306, user: etl, password: secret, database: shop, table: orders}
`

func TestLoadSnapshot(t *testing.T) {
	s, err := LoadSnapshot([]byte(testCatalog))
	require.NoError(t, err)
	assert.EqualValues(t, 7, s.Version())
	assert.Equal(t, []string{"information_schema", "sales"}, s.Databases())

	tbl, err := s.Table(analysis.TableRef{Database: "sales", Table: "orders"})
	require.NoError(t, err)
	assert.Equal(t, OlapTable, tbl.Type)

	remote, err := s.Table(analysis.TableRef{Database: "sales", Table: "remote_orders"})
	require.NoError(t, err)
	require.NotNil(t, remote.Mysql)
	assert.Equal(t, "secret", remote.Mysql.Password)

	_, err = LoadSnapshot([]byte("databases: ["))
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
}

func TestSnapshotIsolation(t *testing.T) {
	db := &Database{Name: "sales", Tables: []*Table{{ID: 1, Name: "t", Type: MysqlTable, Mysql: &MysqlTableInfo{Host: "a"}}}}
	s := NewSnapshot(1, db)
	db.Tables[0].Mysql.Host = "b"

	tbl, err := s.Table(analysis.TableRef{Database: "sales", Table: "T"})
	require.NoError(t, err)
	assert.Equal(t, "a", tbl.Mysql.Host)
}

func TestSchemaTables(t *testing.T) {
	s := NewSnapshot(1)
	tbl, err := s.Table(analysis.TableRef{Database: "INFORMATION_SCHEMA", Table: "session_variables"})
	require.NoError(t, err)
	assert.Equal(t, SchemaTable, tbl.Type)
	assert.Equal(t, "SESSION_VARIABLES", tbl.Name)
	assert.True(t, IsSchemaTable("tables"))
	assert.False(t, IsSchemaTable("orders"))

	_, err = s.Table(analysis.TableRef{Database: "nope", Table: "t"})
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
	_, err = s.Table(analysis.TableRef{Database: InformationSchemaDB, Table: "nope"})
	assert.Equal(t, vterrors.NoSuchTable, vterrors.ErrState(err))
	_, err = s.Table(analysis.TableRef{Database: InformationSchemaDB})
	assert.Equal(t, codes.InvalidArgument, vterrors.Code(err))
}

func TestTabletReplicas(t *testing.T) {
	s, err := LoadSnapshot([]byte(testCatalog))
	require.NoError(t, err)
	tbl, err := s.Table(analysis.TableRef{Database: "sales", Table: "orders"})
	require.NoError(t, err)

	replicas, err := s.TabletReplicas(context.Background(), tbl, 100, 1000)
	require.NoError(t, err)
	require.Len(t, replicas, 1)
	assert.Equal(t, "be1", replicas[0].Host)

	_, err = s.TabletReplicas(context.Background(), tbl, 100, 9)
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
}
