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

// Package etcdleader elects the coordinator leader with an etcd v3
// election. Candidates create lease-bound keys under <root>/leader/; the
// oldest key names the leader.
package etcdleader

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/log"
)

// Factory is the etcd leader.Factory implementation.
type Factory struct{}

// Create is part of the leader.Factory interface.
func (Factory) Create(cfg leader.Config) (leader.Resolver, error) {
	return NewServer(cfg)
}

// Server is a member of an etcd election.
type Server struct {
	cli    *clientv3.Client
	prefix string
	self   string
	ttl    time.Duration

	// mu protects the following fields.
	mu       sync.Mutex
	session  *concurrency.Session
	election *concurrency.Election
}

var _ leader.Resolver = (*Server)(nil)

// NewServer connects to the etcd cluster named by cfg.ServerAddress.
func NewServer(cfg leader.Config) (*Server, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(cfg.ServerAddress, ","),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, leader.ConvertError(err, "connect to etcd")
	}
	return &Server{
		cli:    cli,
		prefix: path.Join(cfg.Root, "leader"),
		self:   cfg.Self,
		ttl:    cfg.TTL(),
	}, nil
}

// Leader is part of the leader.Resolver interface. It reads the oldest
// candidate key, which is what concurrency.Election.Leader does, without
// needing a session of our own.
func (s *Server) Leader(ctx context.Context) (string, error) {
	resp, err := s.cli.Get(ctx, s.prefix+"/", clientv3.WithFirstCreate()...)
	if err != nil {
		return "", leader.ConvertError(err, "get leader")
	}
	if len(resp.Kvs) == 0 {
		return "", leader.NewNoLeaderError(s.prefix)
	}
	return string(resp.Kvs[0].Value), nil
}

// Campaign is part of the leader.Resolver interface.
func (s *Server) Campaign(ctx context.Context) (context.Context, error) {
	session, err := concurrency.NewSession(s.cli, concurrency.WithTTL(int(s.ttl.Seconds())), concurrency.WithContext(ctx))
	if err != nil {
		return nil, leader.ConvertError(err, "create election session")
	}
	election := concurrency.NewElection(session, s.prefix)
	if err := election.Campaign(ctx, s.self); err != nil {
		session.Close()
		return nil, leader.ConvertError(err, "campaign")
	}

	s.mu.Lock()
	s.session, s.election = session, election
	s.mu.Unlock()
	log.InfoS("acquired leadership", "prefix", s.prefix, "self", s.self)

	lctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		<-session.Done()
		log.WarnS("lost leadership", "prefix", s.prefix, "self", s.self)
	}()
	return lctx, nil
}

// Self is part of the leader.Resolver interface.
func (s *Server) Self() string { return s.self }

// Close is part of the leader.Resolver interface.
func (s *Server) Close() error {
	s.mu.Lock()
	session, election := s.session, s.election
	s.session, s.election = nil, nil
	s.mu.Unlock()

	if election != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := election.Resign(ctx); err != nil {
			log.Warningf("cannot resign leadership of %v: %v", s.prefix, err)
		}
		cancel()
		session.Close()
	}
	return s.cli.Close()
}

func init() {
	leader.RegisterFactory("etcd", Factory{})
}
