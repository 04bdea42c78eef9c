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

// Package jobs holds the status records of load jobs and the stores that
// serve them.
package jobs

import (
	"context"
	"sync"

	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// State is the lifecycle state of a load job.
type State string

// Job states.
const (
	StateUnknown        State = "UNKNOWN"
	StatePending        State = "PENDING"
	StateETL            State = "ETL"
	StateLoading        State = "LOADING"
	StateQuorumFinished State = "QUORUM_FINISHED"
	StateFinished       State = "FINISHED"
	StateCancelled      State = "CANCELLED"
)

// JobInfo is the status of one load job. DBName and Label identify the job;
// the other fields are filled in by a lookup.
type JobInfo struct {
	DBName      string `json:"dbName"`
	Label       string `json:"label"`
	State       State  `json:"state"`
	Progress    string `json:"progress"`
	FailMsg     string `json:"failMsg"`
	TrackingURL string `json:"trackingUrl"`
}

// Validate checks the identifying fields are present.
func (j *JobInfo) Validate() error {
	if j.DBName == "" {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.MissingParameter, "No database selected")
	}
	if j.Label == "" {
		return vterrors.NewErrorf(codes.InvalidArgument, vterrors.MissingParameter, "No label selected")
	}
	return nil
}

func notFound(db, label string) error {
	return vterrors.NewErrorf(codes.NotFound, vterrors.NoSuchJob, "Unknown job(%s) in database(%s)", label, db)
}

// Store reads and records job status.
type Store interface {
	// Get returns the job identified by db and label, or a NotFound error.
	Get(ctx context.Context, db, label string) (*JobInfo, error)
	// Put creates or replaces a job record.
	Put(ctx context.Context, job *JobInfo) error
	Close() error
}

type jobKey struct {
	db, label string
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[jobKey]JobInfo
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[jobKey]JobInfo)}
}

// Get is part of the Store interface.
func (m *MemoryStore) Get(ctx context.Context, db, label string) (*JobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobKey{db, label}]
	if !ok {
		return nil, notFound(db, label)
	}
	return &job, nil
}

// Put is part of the Store interface.
func (m *MemoryStore) Put(ctx context.Context, job *JobInfo) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[jobKey{job.DBName, job.Label}] = *job
	return nil
}

// Close is part of the Store interface.
func (m *MemoryStore) Close() error { return nil }
