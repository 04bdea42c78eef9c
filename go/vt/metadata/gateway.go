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

// Package metadata is the coordinator's view of replicated metadata: who
// leads the group, the status of load jobs, and who may read what.
package metadata

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/mppdb/coordinator/go/vt/acl"
	"github.com/mppdb/coordinator/go/vt/jobs"
	"github.com/mppdb/coordinator/go/vt/leader"
)

// DefaultLeaderCacheTTL is how long a resolved leader address is reused.
const DefaultLeaderCacheTTL = time.Second

// DefaultLeaderLookupTimeout bounds one backend leader lookup.
const DefaultLeaderLookupTimeout = 5 * time.Second

const leaderKey = "leader"

// Gateway answers metadata questions for request handlers.
type Gateway interface {
	// ResolveCurrentLeader returns the leader's address.
	ResolveCurrentLeader(ctx context.Context) (string, error)
	// IsLeader reports whether this process leads, and the leader's address.
	IsLeader(ctx context.Context) (bool, string, error)
	// LookupJobInfo returns the job identified by db and label, or a
	// NotFound error.
	LookupJobInfo(ctx context.Context, db, label string) (*jobs.JobInfo, error)
	// CheckReadPrivilege fails with PermissionDenied unless the actor in
	// ctx may read db.
	CheckReadPrivilege(ctx context.Context, db string) error
}

// Options tune the DefaultGateway.
type Options struct {
	// LeaderCacheTTL bounds how stale a cached leader address may be. A
	// negative value disables caching.
	LeaderCacheTTL time.Duration
	// LeaderLookupTimeout bounds a backend lookup shared by concurrent
	// callers. Zero means DefaultLeaderLookupTimeout.
	LeaderLookupTimeout time.Duration
	// Registerer receives the gateway metrics when set.
	Registerer prometheus.Registerer
}

// DefaultGateway composes a leader.Resolver, a jobs.Store and an
// acl.Authorizer.
type DefaultGateway struct {
	leader leader.Resolver
	jobs   jobs.Store
	authz  *acl.Authorizer

	ttl           time.Duration
	lookupTimeout time.Duration
	cache         *cache.Cache
	flights       singleflight.Group
	lookups       *prometheus.CounterVec
}

var _ Gateway = (*DefaultGateway)(nil)

// NewGateway returns a DefaultGateway. A nil authz allows everything.
func NewGateway(r leader.Resolver, store jobs.Store, authz *acl.Authorizer, opts Options) *DefaultGateway {
	ttl := opts.LeaderCacheTTL
	if ttl == 0 {
		ttl = DefaultLeaderCacheTTL
	}
	lookupTimeout := opts.LeaderLookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLeaderLookupTimeout
	}
	if authz == nil {
		authz = acl.AllowAll()
	}
	g := &DefaultGateway{
		leader: r,
		jobs:   store,
		authz:  authz,
		ttl:    ttl,

		lookupTimeout: lookupTimeout,
		cache:         cache.New(ttl, 10*ttl),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leader_cache_lookups_total",
			Help: "Leader address lookups by result: hit, miss or error.",
		}, []string{"result"}),
	}
	if opts.Registerer != nil {
		opts.Registerer.MustRegister(g.lookups)
	}
	return g
}

// ResolveCurrentLeader is part of the Gateway interface. Concurrent misses
// share one backend call, which outlives any single caller's cancellation
// and is bounded by the lookup timeout. Failures are not cached.
func (g *DefaultGateway) ResolveCurrentLeader(ctx context.Context) (string, error) {
	if g.ttl > 0 {
		if addr, ok := g.cache.Get(leaderKey); ok {
			g.lookups.WithLabelValues("hit").Inc()
			return addr.(string), nil
		}
	}
	flight := g.flights.DoChan(leaderKey, func() (any, error) {
		if g.ttl > 0 {
			if addr, ok := g.cache.Get(leaderKey); ok {
				return addr, nil
			}
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.lookupTimeout)
		defer cancel()
		addr, err := g.leader.Leader(lctx)
		if err != nil {
			return "", err
		}
		if g.ttl > 0 {
			g.cache.Set(leaderKey, addr, g.ttl)
		}
		return addr, nil
	})
	select {
	case <-ctx.Done():
		g.lookups.WithLabelValues("error").Inc()
		return "", ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			g.lookups.WithLabelValues("error").Inc()
			return "", res.Err
		}
		g.lookups.WithLabelValues("miss").Inc()
		return res.Val.(string), nil
	}
}

// InvalidateLeader drops the cached leader address.
func (g *DefaultGateway) InvalidateLeader() {
	g.cache.Delete(leaderKey)
}

// IsLeader is part of the Gateway interface.
func (g *DefaultGateway) IsLeader(ctx context.Context) (bool, string, error) {
	return leader.IsLeader(ctx, cachedLocator{g})
}

// cachedLocator answers leader lookups from the gateway's cache.
type cachedLocator struct {
	g *DefaultGateway
}

func (c cachedLocator) Leader(ctx context.Context) (string, error) {
	return c.g.ResolveCurrentLeader(ctx)
}

func (c cachedLocator) Self() string { return c.g.leader.Self() }

// Self is this process's advertised address.
func (g *DefaultGateway) Self() string { return g.leader.Self() }

// LookupJobInfo is part of the Gateway interface.
func (g *DefaultGateway) LookupJobInfo(ctx context.Context, db, label string) (*jobs.JobInfo, error) {
	info := &jobs.JobInfo{DBName: db, Label: label}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return g.jobs.Get(ctx, db, label)
}

// CheckReadPrivilege is part of the Gateway interface.
func (g *DefaultGateway) CheckReadPrivilege(ctx context.Context, db string) error {
	return g.authz.CheckReadPrivilege(ctx, db)
}
