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

/*
Package leader tells a coordinator which member of its group is the
leader. Requests that need a consistent view of metadata are redirected to
the leader.

Backends register a Factory under a name in their init function; binaries
link the backends they support and pick one with Open.
*/
package leader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// DefaultSessionTTL is how long leadership survives a silent leader.
const DefaultSessionTTL = 15 * time.Second

// Resolver reports the current leader of a coordinator group.
type Resolver interface {
	Locator

	// Campaign blocks until this process leads the group or ctx is done.
	// The returned context is canceled when leadership is lost.
	Campaign(ctx context.Context) (context.Context, error)

	// Close gives up leadership, if held, and releases the backend.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Implementation is the registered factory name.
	Implementation string
	// ServerAddress is the backend's address list, comma separated.
	ServerAddress string
	// Root is the key prefix under which the election lives.
	Root string
	// Self is the address other coordinators redirect clients to.
	Self string
	// SessionTTL bounds how long a dead leader keeps leadership.
	SessionTTL time.Duration
}

// TTL returns SessionTTL or its default.
func (c Config) TTL() time.Duration {
	if c.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return c.SessionTTL
}

// Factory creates Resolvers for one backend.
type Factory interface {
	Create(cfg Config) (Resolver, error)
}

var factories = make(map[string]Factory)

// RegisterFactory registers a Factory for an implementation name. It is
// meant to be called from init functions.
func RegisterFactory(name string, factory Factory) {
	if factories[name] != nil {
		log.Exitf("Duplicate leader.Factory registration for %v", name)
	}
	factories[name] = factory
}

// Implementations returns the registered implementation names, sorted.
func Implementations() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a Resolver with the factory named by cfg.Implementation.
func Open(cfg Config) (Resolver, error) {
	factory, ok := factories[cfg.Implementation]
	if !ok {
		return nil, vterrors.Errorf(codes.InvalidArgument, "unknown leader implementation %q, have %v", cfg.Implementation, Implementations())
	}
	if cfg.Self == "" {
		return nil, vterrors.Errorf(codes.InvalidArgument, "leader implementation %v needs an advertised address", cfg.Implementation)
	}
	return factory.Create(cfg)
}

// Locator finds the leader of a group.
type Locator interface {
	// Leader returns the advertised address of the current leader. It
	// returns an Unavailable error when no leader is elected or the
	// election backend cannot be reached.
	Leader(ctx context.Context) (string, error)

	// Self is this process's advertised address.
	Self() string
}

// IsLeader reports whether r's process is the leader, along with the
// leader's address.
func IsLeader(ctx context.Context, r Locator) (bool, string, error) {
	addr, err := r.Leader(ctx)
	if err != nil {
		return false, "", err
	}
	return addr == r.Self(), addr, nil
}

// NewNoLeaderError is returned by backends when nobody holds leadership.
func NewNoLeaderError(group string) error {
	return vterrors.NewErrorf(codes.Unavailable, vterrors.NoLeader, "no leader elected for %v", group)
}

// ConvertError classifies a backend failure. Classified errors and context
// errors keep their code; anything else means the backend is unreachable.
func ConvertError(err error, op string) error {
	if err == nil || vterrors.ErrState(err) != vterrors.Undefined {
		return err
	}
	switch vterrors.Code(err) {
	case codes.Canceled, codes.DeadlineExceeded:
		return vterrors.Wrap(err, op)
	}
	return vterrors.WithState(err, codes.Unavailable, vterrors.MetadataUnreachable, fmt.Sprintf("%s: election backend unavailable", op))
}
