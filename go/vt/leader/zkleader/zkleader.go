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

// Package zkleader elects the coordinator leader in ZooKeeper. Candidates
// create ephemeral sequence nodes under <root>/election; the lowest
// sequence number leads and each candidate watches its predecessor. See
// https://zookeeper.apache.org/doc/current/recipes.html#sc_leaderElection
package zkleader

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/z-division/go-zookeeper/zk"

	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/log"
)

// Factory is the zookeeper leader.Factory implementation.
type Factory struct{}

// Create is part of the leader.Factory interface.
func (Factory) Create(cfg leader.Config) (leader.Resolver, error) {
	return NewServer(cfg)
}

// Server is a member of a ZooKeeper election.
type Server struct {
	conn *zk.Conn
	dir  string
	self string

	// mu protects proposal.
	mu       sync.Mutex
	proposal string
}

var _ leader.Resolver = (*Server)(nil)

// NewServer connects to the ensemble named by cfg.ServerAddress.
func NewServer(cfg leader.Config) (*Server, error) {
	conn, _, err := zk.Connect(strings.Split(cfg.ServerAddress, ","), cfg.TTL())
	if err != nil {
		return nil, leader.ConvertError(err, "connect to zookeeper")
	}
	return &Server{
		conn: conn,
		dir:  path.Join(cfg.Root, "election"),
		self: cfg.Self,
	}, nil
}

// candidates returns the sorted proposal node names.
func (s *Server) candidates() ([]string, error) {
	children, _, err := s.conn.Children(s.dir)
	if err != nil {
		return nil, err
	}
	sort.Strings(children)
	return children, nil
}

// Leader is part of the leader.Resolver interface. The lowest proposal
// holds the leader's address.
func (s *Server) Leader(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", leader.ConvertError(err, "get leader")
	}
	for {
		children, err := s.candidates()
		if errors.Is(err, zk.ErrNoNode) || (err == nil && len(children) == 0) {
			return "", leader.NewNoLeaderError(s.dir)
		}
		if err != nil {
			return "", leader.ConvertError(err, "get leader")
		}
		data, _, err := s.conn.Get(path.Join(s.dir, children[0]))
		if errors.Is(err, zk.ErrNoNode) {
			// the leader went away between the two calls
			continue
		}
		if err != nil {
			return "", leader.ConvertError(err, "get leader")
		}
		return string(data), nil
	}
}

// createDirs creates s.dir and its parents, ignoring existing nodes.
func (s *Server) createDirs() error {
	p := ""
	for _, part := range strings.Split(strings.Trim(s.dir, "/"), "/") {
		p += "/" + part
		if _, err := s.conn.Create(p, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return err
		}
	}
	return nil
}

// Campaign is part of the leader.Resolver interface.
func (s *Server) Campaign(ctx context.Context) (context.Context, error) {
	if err := s.createDirs(); err != nil {
		return nil, leader.ConvertError(err, "campaign")
	}
	proposal, err := s.conn.Create(s.dir+"/", []byte(s.self), zk.FlagSequence|zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err != nil {
		return nil, leader.ConvertError(err, "campaign")
	}
	if err := s.waitForTurn(ctx, path.Base(proposal)); err != nil {
		if delErr := s.conn.Delete(proposal, -1); delErr != nil {
			log.Warningf("cannot delete proposal %v: %v", proposal, delErr)
		}
		return nil, leader.ConvertError(err, "campaign")
	}

	s.mu.Lock()
	s.proposal = proposal
	s.mu.Unlock()
	log.InfoS("acquired leadership", "dir", s.dir, "self", s.self)

	// Anything happening to our own proposal means the session is gone.
	_, _, events, err := s.conn.GetW(proposal)
	if err != nil {
		return nil, leader.ConvertError(err, "watch proposal")
	}
	lctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		e := <-events
		log.WarnS("lost leadership", "dir", s.dir, "self", s.self, "event", e.Type.String())
	}()
	return lctx, nil
}

// waitForTurn blocks until name is the lowest proposal.
func (s *Server) waitForTurn(ctx context.Context, name string) error {
	for {
		children, err := s.candidates()
		if err != nil {
			return err
		}
		i := sort.SearchStrings(children, name)
		if i == len(children) || children[i] != name {
			return zk.ErrNoNode
		}
		if i == 0 {
			return nil
		}

		// Watch the proposal just before ours.
		exists, _, events, err := s.conn.ExistsW(path.Join(s.dir, children[i-1]))
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-events:
		}
	}
}

// Self is part of the leader.Resolver interface.
func (s *Server) Self() string { return s.self }

// Close is part of the leader.Resolver interface. Closing the session
// removes our ephemeral proposal.
func (s *Server) Close() error {
	s.mu.Lock()
	proposal := s.proposal
	s.proposal = ""
	s.mu.Unlock()
	if proposal != "" {
		if err := s.conn.Delete(proposal, -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
			log.Warningf("cannot delete proposal %v: %v", proposal, err)
		}
	}
	s.conn.Close()
	return nil
}

func init() {
	leader.RegisterFactory("zk", Factory{})
}
