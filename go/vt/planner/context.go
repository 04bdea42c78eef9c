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

package planner

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/mppdb/coordinator/go/netutil"
)

// DefaultFinalizeTimeout bounds the I/O a single node may do in Finalize.
const DefaultFinalizeTimeout = 5 * time.Second

// Session is the identity of the requesting client session.
type Session struct {
	// User is the authenticated user; empty when unknown.
	User string
	// ConnectionID is the client connection, nil for connectionless
	// requests such as HTTP.
	ConnectionID *int64
}

// PlanContext carries everything compilation needs beyond the statement and
// the catalog. It is created per request by the caller and discarded after
// the response; nothing in it is shared between compilations.
type PlanContext struct {
	QueryID uuid.UUID
	Session Session

	// RPCPort is the coordinator port workers call back into.
	RPCPort int
	// Cell is the coordinator's locality, preferred when ordering replicas.
	Cell string
	// Resolver finds an address workers can reach the coordinator at.
	Resolver HostResolver
	// FinalizeTimeout bounds each node's Finalize. Zero means
	// DefaultFinalizeTimeout.
	FinalizeTimeout time.Duration
	// MaxScanRangeLength splits tablets larger than this many bytes into
	// several ranges. Zero disables splitting.
	MaxScanRangeLength int64
}

func (pctx *PlanContext) finalizeTimeout() time.Duration {
	if pctx == nil || pctx.FinalizeTimeout <= 0 {
		return DefaultFinalizeTimeout
	}
	return pctx.FinalizeTimeout
}

// HostResolver returns an address of the local coordinator that other
// processes can reach.
type HostResolver interface {
	LocalAddress(ctx context.Context) (string, error)
}

// NetHostResolver resolves the local hostname through DNS.
type NetHostResolver struct {
	Resolver netutil.Resolver
}

// LocalAddress is part of the HostResolver interface.
func (r NetHostResolver) LocalAddress(ctx context.Context) (string, error) {
	res := r.Resolver
	if res == nil {
		res = net.DefaultResolver
	}
	return netutil.LocalAddress(ctx, res)
}

// StaticHostResolver always returns the same address.
type StaticHostResolver string

// LocalAddress is part of the HostResolver interface.
func (r StaticHostResolver) LocalAddress(context.Context) (string, error) {
	return string(r), nil
}
