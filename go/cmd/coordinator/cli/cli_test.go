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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mppdb/coordinator/go/vt/servenv"
)

const testCatalog = `
version: 7
databases:
- name: sales
  tables:
  - id: 1001
    name: orders
    type: OLAP
    partitions:
    - id: 1
      name: p2023
      tablets:
      - id: 11
        version: 3
        data_size: 100
        replicas:
        - {backend_id: 2, host: be2, port: 9060, cell: zone2, alive: true}
        - {backend_id: 1, host: be1, port: 9060, cell: zone1, alive: true}
      - id: 12
        version: 3
        data_size: 100
        replicas:
        - {backend_id: 1, host: be1, port: 9060, cell: zone1, alive: true}
`

const testStatement = `
kind: SELECT
source: {database: sales, table: orders}
tuple:
  id: 0
  slots:
  - {id: 0, name: order_id, type: BIGINT}
  - {id: 1, name: amount, type: DECIMAL}
conjuncts:
- column: amount
  op: ">"
  values: [{value: "5", type: DECIMAL}]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	Main.SetOut(&out)
	Main.SetErr(&out)
	Main.SetArgs(args)
	defer Main.SetArgs(nil)
	err := Main.Execute()
	return out.String(), err
}

func TestExplain(t *testing.T) {
	catalogFile := writeFile(t, "catalog.yaml", testCatalog)
	stmtFile := writeFile(t, "stmt.yaml", testStatement)

	out, err := execute(t, "explain", "--catalog", catalogFile, "--statement", stmtFile, "--cell", "zone1", "--host", "10.0.0.5", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "PLAN FRAGMENT 0")
	assert.Contains(t, out, "RESULT SINK")
	assert.Contains(t, out, "EXCHANGE")
	assert.Contains(t, out, "SCAN OLAP")
	assert.Contains(t, out, "amount > 5")

	out, err = execute(t, "explain", "--catalog", catalogFile, "--statement", stmtFile, "--host", "10.0.0.5", "--format", "json")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "root")

	out, err = execute(t, "explain", "--catalog", catalogFile, "--statement", stmtFile, "--host", "10.0.0.5", "--format", "tree")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "01:EXCHANGE (instances=1)"), out)
	assert.Contains(t, out, "00:SCAN OLAP (instances=2)")
}

func TestExplainErrors(t *testing.T) {
	catalogFile := writeFile(t, "catalog.yaml", testCatalog)

	_, err := execute(t, "explain", "--catalog", catalogFile, "--statement", writeFile(t, "bad.yaml", "kind: SELECT\nbogus: 1\n"), "--format", "text")
	assert.ErrorContains(t, err, "cannot parse statement")

	_, err = execute(t, "explain", "--catalog", catalogFile, "--statement", writeFile(t, "stmt.yaml", testStatement), "--format", "xml")
	assert.ErrorContains(t, err, `unknown --format "xml"`)

	missing := strings.Replace(testStatement, "table: orders", "table: nope", 1)
	_, err = execute(t, "explain", "--catalog", catalogFile, "--statement", writeFile(t, "missing.yaml", missing), "--format", "text")
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	out, err := execute(t, "hash-password", "s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("s3cret")))
}

func TestNewHandler(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	servenv.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--leader-root", "/test/" + t.Name(), "--self-address", "fe1:8030"}))
	cfg, err := servenv.LoadConfig(fs)
	require.NoError(t, err)
	require.NoError(t, cfg.ResolveSelfAddress(context.Background(), nil))

	api, cleanup, err := newHandler(context.Background(), cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	defer cleanup()

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/_leader", nil))
		return strings.Contains(rec.Body.String(), `"isLeader":true`)
	}, 5*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sales/_load_info?label=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadACL(t *testing.T) {
	authn, authz, err := loadACL("")
	require.NoError(t, err)
	assert.Nil(t, authn)
	assert.NoError(t, authz.CheckReadPrivilege(context.Background(), "sales"))

	file := writeFile(t, "acl.yaml", `
users:
- name: alice
  password_hash: "$2a$10$abcdefghijklmnopqrstuuJ6X2ymZ1l7wO9cF7d6V7m9pR8mHqH4e"
rules:
- databases: [sales]
  actions: [read]
  subjects: ["user:alice"]
`)
	authn, authz, err = loadACL(file)
	require.NoError(t, err)
	assert.NotNil(t, authn)
	assert.Error(t, authz.CheckReadPrivilege(context.Background(), "sales"))
}
