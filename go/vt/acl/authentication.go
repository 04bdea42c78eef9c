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

// Package acl authenticates HTTP callers and decides which databases they
// may read.
package acl

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Actor is an authenticated principal.
type Actor struct {
	Name  string
	Roles []string
}

type actorKey struct{}

// NewContext returns ctx carrying actor.
func NewContext(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor stored in ctx, if any.
func FromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(*Actor)
	return actor, ok && actor != nil
}

// Authenticator establishes who sent a request.
type Authenticator interface {
	AuthenticateHTTP(r *http.Request) (*Actor, error)
}

// User is a principal known to the BasicAuthenticator.
type User struct {
	Name string `json:"name"`
	// PasswordHash is a bcrypt hash.
	PasswordHash string   `json:"password_hash"`
	Roles        []string `json:"roles,omitempty"`
}

// BasicAuthenticator checks HTTP basic credentials against bcrypt hashes.
type BasicAuthenticator struct {
	users map[string]User
}

var _ Authenticator = (*BasicAuthenticator)(nil)

// NewBasicAuthenticator returns an authenticator knowing users.
func NewBasicAuthenticator(users []User) *BasicAuthenticator {
	a := &BasicAuthenticator{users: make(map[string]User, len(users))}
	for _, u := range users {
		a.users[u.Name] = u
	}
	return a
}

// AuthenticateHTTP is part of the Authenticator interface.
func (a *BasicAuthenticator) AuthenticateHTTP(r *http.Request) (*Actor, error) {
	name, password, ok := r.BasicAuth()
	if !ok {
		return nil, vterrors.NewErrorf(codes.Unauthenticated, vterrors.BadCredentials, "missing credentials")
	}
	u, ok := a.users[name]
	if !ok {
		return nil, vterrors.NewErrorf(codes.Unauthenticated, vterrors.BadCredentials, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, vterrors.NewErrorf(codes.Unauthenticated, vterrors.BadCredentials, "invalid credentials")
	}
	return &Actor{Name: u.Name, Roles: append([]string(nil), u.Roles...)}, nil
}

// HashPassword returns the bcrypt hash of password for use in User.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
