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

package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/mppdb/coordinator/go/trace"
	"github.com/mppdb/coordinator/go/vt/acl"
	"github.com/mppdb/coordinator/go/vt/httpapi"
	"github.com/mppdb/coordinator/go/vt/jobs"
	"github.com/mppdb/coordinator/go/vt/leader"
	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/metadata"
	"github.com/mppdb/coordinator/go/vt/servenv"
)

// campaignRetryInterval spaces out failed leader campaigns.
const campaignRetryInterval = 2 * time.Second

// Serve runs the coordinator HTTP server.
var Serve = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job status API and campaign for leadership.",
	Example: `coordinator serve \
	--port 8030 \
	--leader-implementation etcd \
	--leader-server-address etcd1:2379,etcd2:2379 \
	--jobs-backend mysql --jobs-mysql-host meta-db --jobs-mysql-user mppdb`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	servenv.RegisterFlags(Serve.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := servenv.LoadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.ResolveSelfAddress(ctx, net.DefaultResolver); err != nil {
		return err
	}

	closer, err := trace.StartTracing(cfg.Tracing)
	if err != nil {
		return err
	}
	servenv.OnClose(func() {
		if err := closer.Close(); err != nil {
			log.Warningf("closing tracer: %v", err)
		}
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, cleanup, err := newHandler(ctx, cfg, reg)
	if err != nil {
		return err
	}
	servenv.OnClose(cleanup)

	log.InfoS("starting coordinator", "self", cfg.SelfAddress, "leader_implementation", cfg.Leader.Implementation, "jobs_backend", cfg.Jobs.Backend)
	return servenv.Run(ctx, cfg, handler)
}

// newHandler wires the backends selected by cfg behind the HTTP API and
// starts campaigning for leadership. cleanup releases the backends.
func newHandler(ctx context.Context, cfg *servenv.Config, reg *prometheus.Registry) (*httpapi.API, func(), error) {
	authn, authz, err := loadACL(cfg.ACLConfigFile)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := leader.Open(cfg.Leader)
	if err != nil {
		return nil, nil, err
	}
	store, err := jobs.NewStore(ctx, cfg.Jobs)
	if err != nil {
		resolver.Close()
		return nil, nil, err
	}

	gw := metadata.NewGateway(resolver, store, authz, metadata.Options{
		LeaderCacheTTL: cfg.LeaderCacheTTL,
		Registerer:     reg,
	})
	campaignCtx, cancelCampaign := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		leader.RunCampaign(campaignCtx, resolver, campaignRetryInterval, func(bool) {
			gw.InvalidateLeader()
		})
	}()

	api := httpapi.NewAPI(gw, httpapi.Options{
		Authenticator:      authn,
		DisableCompression: cfg.DisableCompression,
		Registerer:         reg,
		Gatherer:           reg,
		RateLimit:          rate.Limit(cfg.RequestsPerSecond),
		RateBurst:          cfg.RequestBurst,
	})
	servenv.HTTPRegisterDebug(api.Router())
	if cfg.EnablePprof {
		servenv.HTTPRegisterProfile(api.Router())
	}

	cleanup := func() {
		cancelCampaign()
		<-done
		if err := resolver.Close(); err != nil {
			log.Warningf("closing leader resolver: %v", err)
		}
		if err := store.Close(); err != nil {
			log.Warningf("closing job store: %v", err)
		}
	}
	return api, cleanup, nil
}

// loadACL reads the ACL file. Without one, requests are anonymous and
// everything is readable.
func loadACL(path string) (acl.Authenticator, *acl.Authorizer, error) {
	if path == "" {
		return nil, acl.AllowAll(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := acl.LoadConfig(data)
	if err != nil {
		return nil, nil, err
	}
	var authn acl.Authenticator
	if len(cfg.Users) > 0 {
		authn = acl.NewBasicAuthenticator(cfg.Users)
	}
	return authn, acl.NewAuthorizer(cfg.Rules), nil
}
