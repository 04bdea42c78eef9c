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

// Package consulleader elects the coordinator leader with a Consul session
// lock on <root>/leader. The lock's value is the holder's address.
package consulleader

import (
	"context"
	"path"
	"sync"

	"github.com/hashicorp/consul/api"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Factory is the consul leader.Factory implementation.
type Factory struct{}

// Create is part of the leader.Factory interface.
func (Factory) Create(cfg leader.Config) (leader.Resolver, error) {
	return NewServer(cfg)
}

// Server is a member of a Consul lock election.
type Server struct {
	client *api.Client
	kv     *api.KV
	key    string
	self   string
	ttl    string

	// mu protects lock.
	mu   sync.Mutex
	lock *api.Lock
}

var _ leader.Resolver = (*Server)(nil)

// NewServer returns a member talking to the Consul agent at
// cfg.ServerAddress.
func NewServer(cfg leader.Config) (*Server, error) {
	conf := api.DefaultConfig()
	conf.Address = cfg.ServerAddress
	client, err := api.NewClient(conf)
	if err != nil {
		return nil, leader.ConvertError(err, "connect to consul")
	}
	return &Server{
		client: client,
		kv:     client.KV(),
		key:    path.Join(cfg.Root, "leader"),
		self:   cfg.Self,
		ttl:    cfg.TTL().String(),
	}, nil
}

// Leader is part of the leader.Resolver interface. The key is only
// meaningful while a session holds it.
func (s *Server) Leader(ctx context.Context) (string, error) {
	pair, _, err := s.kv.Get(s.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return "", leader.ConvertError(err, "get leader")
	}
	if pair == nil || pair.Session == "" {
		return "", leader.NewNoLeaderError(s.key)
	}
	return string(pair.Value), nil
}

// Campaign is part of the leader.Resolver interface.
func (s *Server) Campaign(ctx context.Context) (context.Context, error) {
	l, err := s.client.LockOpts(&api.LockOptions{
		Key:   s.key,
		Value: []byte(s.self),
		SessionOpts: &api.SessionEntry{
			Name: api.DefaultLockSessionName,
			TTL:  s.ttl,
		},
	})
	if err != nil {
		return nil, leader.ConvertError(err, "campaign")
	}
	lost, err := l.Lock(ctx.Done())
	if err != nil {
		return nil, leader.ConvertError(err, "campaign")
	}
	if lost == nil {
		// Lock returns a nil channel without error when stopped.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, leader.ConvertError(ctxErr, "campaign")
		}
		return nil, vterrors.Errorf(codes.DeadlineExceeded, "timed out acquiring %v", s.key)
	}

	s.mu.Lock()
	s.lock = l
	s.mu.Unlock()
	log.InfoS("acquired leadership", "key", s.key, "self", s.self)

	lctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		<-lost
		log.WarnS("lost leadership", "key", s.key, "self", s.self)
	}()
	return lctx, nil
}

// Self is part of the leader.Resolver interface.
func (s *Server) Self() string { return s.self }

// Close is part of the leader.Resolver interface.
func (s *Server) Close() error {
	s.mu.Lock()
	l := s.lock
	s.lock = nil
	s.mu.Unlock()
	if l != nil {
		if err := l.Unlock(); err != nil && err != api.ErrLockNotHeld {
			return leader.ConvertError(err, "resign")
		}
	}
	return nil
}

func init() {
	leader.RegisterFactory("consul", Factory{})
}
