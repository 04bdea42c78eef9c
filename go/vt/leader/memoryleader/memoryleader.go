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

// Package memoryleader is an in-process leader.Resolver. Members of a Group
// share one election; it backs single-node deployments and tests.
package memoryleader

import (
	"context"
	"sync"

	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/log"
)

// Group is one in-process election.
type Group struct {
	name string

	// mu protects the following fields.
	mu     sync.Mutex
	leader string
	// lost cancels the current leader's leadership context.
	lost context.CancelFunc
	// changed is closed and replaced whenever leader changes.
	changed chan struct{}
	// err, when set, is returned by every Leader call.
	err error
}

// NewGroup returns an election with no leader.
func NewGroup(name string) *Group {
	return &Group{name: name, changed: make(chan struct{})}
}

// SetLeader forces addr to be the leader. An empty addr clears leadership.
func (g *Group) SetLeader(addr string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setLeaderLocked(addr)
}

func (g *Group) setLeaderLocked(addr string) {
	if g.lost != nil {
		g.lost()
		g.lost = nil
	}
	g.leader = addr
	close(g.changed)
	g.changed = make(chan struct{})
}

// SetError makes Leader calls fail with err until cleared with nil.
func (g *Group) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Resolver returns a member of the group advertising self.
func (g *Group) Resolver(self string) *Resolver {
	return &Resolver{group: g, self: self}
}

// Resolver is a member of a Group.
type Resolver struct {
	group *Group
	self  string
}

var _ leader.Resolver = (*Resolver)(nil)

// Leader is part of the leader.Resolver interface.
func (r *Resolver) Leader(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", leader.ConvertError(err, "get leader")
	}
	g := r.group
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", leader.ConvertError(g.err, "get leader")
	}
	if g.leader == "" {
		return "", leader.NewNoLeaderError(g.name)
	}
	return g.leader, nil
}

// Campaign is part of the leader.Resolver interface.
func (r *Resolver) Campaign(ctx context.Context) (context.Context, error) {
	g := r.group
	for {
		g.mu.Lock()
		if g.leader == "" || (g.leader == r.self && g.lost == nil) {
			g.setLeaderLocked(r.self)
			lctx, cancel := context.WithCancel(context.Background())
			g.lost = cancel
			g.mu.Unlock()
			log.InfoS("acquired leadership", "group", g.name, "self", r.self)
			return lctx, nil
		}
		changed := g.changed
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, leader.ConvertError(ctx.Err(), "campaign")
		case <-changed:
		}
	}
}

// Self is part of the leader.Resolver interface.
func (r *Resolver) Self() string { return r.self }

// Resign gives up leadership if r holds it.
func (r *Resolver) Resign() {
	g := r.group
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.leader == r.self {
		g.setLeaderLocked("")
	}
}

// Close is part of the leader.Resolver interface.
func (r *Resolver) Close() error {
	r.Resign()
	return nil
}

// Factory creates members of process-wide groups, one per Config.Root. A
// non-empty Config.ServerAddress is installed as a fixed leader.
type Factory struct {
	mu     sync.Mutex
	groups map[string]*Group
}

// Create is part of the leader.Factory interface.
func (f *Factory) Create(cfg leader.Config) (leader.Resolver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.groups == nil {
		f.groups = make(map[string]*Group)
	}
	g, ok := f.groups[cfg.Root]
	if !ok {
		g = NewGroup(cfg.Root)
		f.groups[cfg.Root] = g
	}
	if cfg.ServerAddress != "" {
		g.SetLeader(cfg.ServerAddress)
	}
	return g.Resolver(cfg.Self), nil
}

func init() {
	leader.RegisterFactory("memory", &Factory{})
}
