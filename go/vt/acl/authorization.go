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
	"slices"

	"google.golang.org/grpc/codes"
	"sigs.k8s.io/yaml"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Action is something an actor does to a database.
type Action string

// Actions.
const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Rule grants Actions on Databases to Subjects. "*" matches anything in
// each list. Subjects are "user:<name>" or "role:<name>".
type Rule struct {
	Databases []string `json:"databases"`
	Actions   []Action `json:"actions"`
	Subjects  []string `json:"subjects"`
}

func matches[T ~string](list []T, v T) bool {
	return slices.Contains(list, "*") || slices.Contains(list, v)
}

// Allows reports whether the rule lets actor take action on db. A nil
// actor only matches the "*" subject.
func (r *Rule) Allows(db string, action Action, actor *Actor) bool {
	if !matches(r.Databases, db) || !matches(r.Actions, action) {
		return false
	}
	if slices.Contains(r.Subjects, "*") {
		return true
	}
	if actor == nil {
		return false
	}
	if slices.Contains(r.Subjects, "user:"+actor.Name) {
		return true
	}
	for _, role := range actor.Roles {
		if slices.Contains(r.Subjects, "role:"+role) {
			return true
		}
	}
	return false
}

// Config is the on-disk ACL description.
type Config struct {
	Users []User `json:"users"`
	Rules []Rule `json:"rules"`
}

// LoadConfig parses a YAML or JSON ACL description.
func LoadConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, vterrors.Errorf(codes.InvalidArgument, "cannot parse acl config: %v", err)
	}
	for i, r := range cfg.Rules {
		if len(r.Databases) == 0 || len(r.Actions) == 0 || len(r.Subjects) == 0 {
			return nil, vterrors.Errorf(codes.InvalidArgument, "acl rule %d needs databases, actions and subjects", i)
		}
	}
	return &cfg, nil
}

// Authorizer evaluates rules. A request is allowed when any rule allows it.
type Authorizer struct {
	rules []Rule
}

// NewAuthorizer returns an Authorizer over rules.
func NewAuthorizer(rules []Rule) *Authorizer {
	return &Authorizer{rules: append([]Rule(nil), rules...)}
}

// AllowAll returns an Authorizer allowing everything to everyone.
func AllowAll() *Authorizer {
	return NewAuthorizer([]Rule{{Databases: []string{"*"}, Actions: []Action{"*"}, Subjects: []string{"*"}}})
}

// IsAuthorized reports whether actor may take action on db.
func (a *Authorizer) IsAuthorized(actor *Actor, db string, action Action) bool {
	for i := range a.rules {
		if a.rules[i].Allows(db, action, actor) {
			return true
		}
	}
	return false
}

// CheckReadPrivilege returns a PermissionDenied error unless the actor in
// ctx may read db.
func (a *Authorizer) CheckReadPrivilege(ctx context.Context, db string) error {
	actor, _ := FromContext(ctx)
	if a.IsAuthorized(actor, db, ActionRead) {
		return nil
	}
	name := "anonymous"
	if actor != nil {
		name = actor.Name
	}
	return vterrors.NewErrorf(codes.PermissionDenied, vterrors.AccessDenied, "Access denied for user '%s' to database '%s'", name, db)
}
