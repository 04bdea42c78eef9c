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

package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"google.golang.org/grpc/codes"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/mppdb/coordinator/go/netutil"
	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
)

// Config selects and configures the job store.
type Config struct {
	Backend string

	// MySQL backend.
	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDatabase string
	MaxOpenConns  int
	ConnLifetime  time.Duration

	// SQLite backend; ":memory:" keeps the database in process.
	SQLiteFile string
}

// mysqlDSN renders the MySQL connection string.
func (c Config) mysqlDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.MySQLUser
	cfg.Passwd = c.MySQLPassword
	cfg.Net = "tcp"
	cfg.Addr = netutil.JoinHostPort(c.MySQLHost, c.MySQLPort)
	cfg.DBName = c.MySQLDatabase
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// NewStore opens the store selected by cfg.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendMySQL, BackendSQLite:
		return OpenSQLStore(ctx, cfg)
	default:
		return nil, vterrors.Errorf(codes.InvalidArgument, "unknown job store backend %q", cfg.Backend)
	}
}

var schema = []string{`
	CREATE TABLE IF NOT EXISTS load_jobs (
		db_name VARCHAR(128) NOT NULL,
		label VARCHAR(128) NOT NULL,
		state VARCHAR(32) NOT NULL,
		progress VARCHAR(64) NOT NULL DEFAULT '',
		fail_msg VARCHAR(1024) NOT NULL DEFAULT '',
		tracking_url VARCHAR(1024) NOT NULL DEFAULT '',
		updated_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (db_name, label)
	)`,
}

// SQLStore keeps jobs in a MySQL or SQLite database.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQLStore connects to the database named by cfg and creates the job
// table if needed.
func OpenSQLStore(ctx context.Context, cfg Config) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Backend {
	case BackendSQLite:
		db, err = sql.Open("sqlite", cfg.SQLiteFile)
		if err != nil {
			return nil, err
		}
		// a single connection keeps ":memory:" databases shared
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		log.Infof("Connected to job store: sqlite on %v", cfg.SQLiteFile)
	case BackendMySQL:
		db, err = sql.Open("mysql", cfg.mysqlDSN())
		if err != nil {
			return nil, err
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(max(1, cfg.MaxOpenConns/4))
		}
		if cfg.ConnLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnLifetime)
		}
		// do not show the password but do show what we connect to
		log.Infof("Connected to job store: %s:?@tcp(%s)/%s", cfg.MySQLUser, netutil.JoinHostPort(cfg.MySQLHost, cfg.MySQLPort), cfg.MySQLDatabase)
	default:
		return nil, vterrors.Errorf(codes.InvalidArgument, "job store backend %q is not SQL", cfg.Backend)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unreachable(err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, vterrors.Wrap(unreachable(err), "cannot create job table")
		}
	}
	return &SQLStore{db: db}, nil
}

func unreachable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return vterrors.Wrap(err, "job store")
	}
	return vterrors.WithState(err, codes.Unavailable, vterrors.MetadataUnreachable, "job store unavailable")
}

// Get is part of the Store interface.
func (s *SQLStore) Get(ctx context.Context, db, label string) (*JobInfo, error) {
	query := `
		SELECT db_name, label, state, progress, fail_msg, tracking_url
		FROM load_jobs
		WHERE db_name = ? AND label = ?`
	job := &JobInfo{}
	err := s.db.QueryRowContext(ctx, query, db, label).Scan(
		&job.DBName, &job.Label, &job.State, &job.Progress, &job.FailMsg, &job.TrackingURL)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound(db, label)
	case err != nil:
		return nil, unreachable(err)
	}
	return job, nil
}

// Put is part of the Store interface.
func (s *SQLStore) Put(ctx context.Context, job *JobInfo) error {
	if err := job.Validate(); err != nil {
		return err
	}
	query := `
		REPLACE INTO load_jobs (
			db_name, label, state, progress, fail_msg, tracking_url, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		job.DBName, job.Label, string(job.State), job.Progress, job.FailMsg, job.TrackingURL, time.Now().Unix())
	if err != nil {
		return unreachable(err)
	}
	return nil
}

// Close is part of the Store interface.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing job store: %w", err)
	}
	return nil
}
