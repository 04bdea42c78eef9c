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

package servenv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/netutil"
	"github.com/mppdb/coordinator/go/trace"
	"github.com/mppdb/coordinator/go/vt/jobs"
	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/metadata"
	"github.com/mppdb/coordinator/go/vt/planner"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// EnvPrefix prefixes the environment variables overriding flags. The flag
// --leader-implementation is read from MPPDB_LEADER_IMPLEMENTATION.
const EnvPrefix = "MPPDB"

// Config is the resolved process configuration.
type Config struct {
	Port           int
	SelfAddress    string
	Cell           string
	RPCPort        int
	LameduckPeriod time.Duration
	PidFile        string
	EnablePprof    bool

	DisableCompression bool
	ACLConfigFile      string
	LeaderCacheTTL     time.Duration
	FinalizeTimeout    time.Duration
	// RequestsPerSecond caps /api traffic; zero disables the limit.
	RequestsPerSecond float64
	RequestBurst      int

	Leader  leader.Config
	Jobs    jobs.Config
	Tracing trace.Config
}

// RegisterFlags installs the coordinator flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional YAML file whose keys are flag names")
	fs.Int("port", 8030, "HTTP port")
	fs.String("self-address", "", "host:port other coordinators redirect clients to; defaults to this host's address and --port")
	fs.String("cell", "", "locality of this coordinator, preferred when ordering scan hosts")
	fs.Int("rpc-port", 9020, "port workers use to call back into this coordinator")
	fs.Duration("lameduck-period", 5*time.Second, "how long to keep serving after SIGTERM before stopping")
	fs.String("pid-file", "", "if set, the process writes its pid to the named file and removes it on graceful shutdown")
	fs.Bool("enable-pprof", false, "serve /debug/pprof")
	fs.Bool("disable-compression", false, "do not compress /api responses")
	fs.String("acl-config", "", "YAML file with users and read rules; empty allows anonymous access to everything")
	fs.Duration("leader-cache-ttl", metadata.DefaultLeaderCacheTTL, "how long a resolved leader address is reused")
	fs.Duration("finalize-timeout", planner.DefaultFinalizeTimeout, "bound on plan finalization")
	fs.Float64("api-rate-limit", 0, "requests per second accepted on /api, 0 for unlimited")
	fs.Int("api-rate-burst", 50, "requests accepted in a burst above --api-rate-limit")

	fs.String("leader-implementation", "memory", "leader election backend")
	fs.String("leader-server-address", "", "leader election backend addresses, comma separated")
	fs.String("leader-root", "/mppdb/leader", "key prefix of the leader election")
	fs.Duration("leader-session-ttl", leader.DefaultSessionTTL, "how long a dead leader keeps leadership")

	fs.String("jobs-backend", jobs.BackendMemory, "job store backend: memory, mysql or sqlite")
	fs.String("jobs-mysql-host", "127.0.0.1", "job store MySQL host")
	fs.Int("jobs-mysql-port", 3306, "job store MySQL port")
	fs.String("jobs-mysql-user", "", "job store MySQL user")
	fs.String("jobs-mysql-password", "", "job store MySQL password")
	fs.String("jobs-mysql-database", "mppdb", "job store MySQL database")
	fs.Int("jobs-max-open-conns", 10, "job store connection pool size")
	fs.Duration("jobs-conn-lifetime", 5*time.Minute, "job store connection lifetime")
	fs.String("jobs-sqlite-file", ":memory:", "job store SQLite file")

	trace.RegisterFlags(fs)
}

// LoadConfig resolves the flags in fs, overridden by MPPDB_* environment
// variables, falling back to the --config file, then to flag defaults.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:               v.GetInt("port"),
		SelfAddress:        v.GetString("self-address"),
		Cell:               v.GetString("cell"),
		RPCPort:            v.GetInt("rpc-port"),
		LameduckPeriod:     v.GetDuration("lameduck-period"),
		PidFile:            v.GetString("pid-file"),
		EnablePprof:        v.GetBool("enable-pprof"),
		DisableCompression: v.GetBool("disable-compression"),
		ACLConfigFile:      v.GetString("acl-config"),
		LeaderCacheTTL:     v.GetDuration("leader-cache-ttl"),
		FinalizeTimeout:    v.GetDuration("finalize-timeout"),
		RequestsPerSecond:  v.GetFloat64("api-rate-limit"),
		RequestBurst:       v.GetInt("api-rate-burst"),
		Leader: leader.Config{
			Implementation: v.GetString("leader-implementation"),
			ServerAddress:  v.GetString("leader-server-address"),
			Root:           v.GetString("leader-root"),
			SessionTTL:     v.GetDuration("leader-session-ttl"),
		},
		Jobs: jobs.Config{
			Backend:       v.GetString("jobs-backend"),
			MySQLHost:     v.GetString("jobs-mysql-host"),
			MySQLPort:     v.GetInt("jobs-mysql-port"),
			MySQLUser:     v.GetString("jobs-mysql-user"),
			MySQLPassword: v.GetString("jobs-mysql-password"),
			MySQLDatabase: v.GetString("jobs-mysql-database"),
			MaxOpenConns:  v.GetInt("jobs-max-open-conns"),
			ConnLifetime:  v.GetDuration("jobs-conn-lifetime"),
			SQLiteFile:    v.GetString("jobs-sqlite-file"),
		},
		Tracing: trace.Config{
			Service:      "coordinator",
			Tracer:       v.GetString("tracer"),
			AgentAddress: v.GetString("tracing-agent-address"),
			SamplingRate: v.GetFloat64("tracing-sampling-rate"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return vterrors.Errorf(codes.InvalidArgument, "invalid --port %d", c.Port)
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return vterrors.Errorf(codes.InvalidArgument, "invalid --rpc-port %d", c.RPCPort)
	}
	if c.Leader.Implementation == "" {
		return vterrors.New(codes.InvalidArgument, "--leader-implementation is required")
	}
	if c.RequestsPerSecond < 0 {
		return vterrors.Errorf(codes.InvalidArgument, "invalid --api-rate-limit %v", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.RequestBurst <= 0 {
		return vterrors.Errorf(codes.InvalidArgument, "invalid --api-rate-burst %d", c.RequestBurst)
	}
	if c.FinalizeTimeout <= 0 {
		return vterrors.Errorf(codes.InvalidArgument, "invalid --finalize-timeout %v", c.FinalizeTimeout)
	}
	return nil
}

// ResolveSelfAddress fills in SelfAddress and Leader.Self from this host's
// address when --self-address was not given.
func (c *Config) ResolveSelfAddress(ctx context.Context, r netutil.Resolver) error {
	if c.SelfAddress == "" {
		host, err := netutil.LocalAddress(ctx, r)
		if err != nil {
			return vterrors.WithState(err, codes.Unavailable, vterrors.HostResolutionFailed, "cannot resolve self address")
		}
		c.SelfAddress = netutil.JoinHostPort(host, c.Port)
	}
	c.Leader.Self = c.SelfAddress
	return nil
}
