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

package acl

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestBasicAuthenticator(t *testing.T) {
	authn := NewBasicAuthenticator([]User{
		{Name: "alice", PasswordHash: mustHash(t, "wonderland"), Roles: []string{"analyst"}},
	})

	tcases := []struct {
		name     string
		user     string
		password string
		noAuth   bool
		want     *Actor
	}{
		{name: "valid", user: "alice", password: "wonderland", want: &Actor{Name: "alice", Roles: []string{"analyst"}}},
		{name: "bad password", user: "alice", password: "looking-glass"},
		{name: "unknown user", user: "bob", password: "wonderland"},
		{name: "no credentials", noAuth: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/sales/_load_info", nil)
			if !tc.noAuth {
				r.SetBasicAuth(tc.user, tc.password)
			}
			actor, err := authn.AuthenticateHTTP(r)
			if tc.want == nil {
				require.Error(t, err)
				assert.Equal(t, codes.Unauthenticated, vterrors.Code(err))
				if tc.password != "" {
					assert.NotContains(t, err.Error(), tc.password)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, actor)
		})
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("secret")))
}

const aclYAML = `
users:
- name: alice
  password_hash: "$2a$10$abcdefghijklmnopqrstuu"
  roles: [analyst]
rules:
- databases: [sales]
  actions: [read]
  subjects: ["role:analyst"]
- databases: ["*"]
  actions: ["*"]
  subjects: ["user:root"]
- databases: [public]
  actions: [read]
  subjects: ["*"]
`

func TestAuthorizer(t *testing.T) {
	cfg, err := LoadConfig([]byte(aclYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Users, 1)
	authz := NewAuthorizer(cfg.Rules)

	alice := &Actor{Name: "alice", Roles: []string{"analyst"}}
	root := &Actor{Name: "root"}
	tcases := []struct {
		actor  *Actor
		db     string
		action Action
		want   bool
	}{
		{alice, "sales", ActionRead, true},
		{alice, "sales", ActionWrite, false},
		{alice, "ops", ActionRead, false},
		{root, "ops", ActionWrite, true},
		{nil, "public", ActionRead, true},
		{nil, "sales", ActionRead, false},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.want, authz.IsAuthorized(tc.actor, tc.db, tc.action), "%v %s %s", tc.actor, tc.action, tc.db)
	}

	ctx := NewContext(context.Background(), alice)
	assert.NoError(t, authz.CheckReadPrivilege(ctx, "sales"))
	err = authz.CheckReadPrivilege(ctx, "ops")
	assert.Equal(t, codes.PermissionDenied, vterrors.Code(err))
	assert.EqualError(t, err, "Access denied for user 'alice' to database 'ops'")

	err = authz.CheckReadPrivilege(context.Background(), "sales")
	assert.EqualError(t, err, "Access denied for user 'anonymous' to database 'sales'")

	assert.NoError(t, AllowAll().CheckReadPrivilege(context.Background(), "anything"))
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig([]byte("rules:\n- databases: [sales]\n"))
	assert.Error(t, err)
	_, err = LoadConfig([]byte("groups: []\n"))
	assert.Error(t, err, "unknown fields are rejected")
}
