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

// Package httpapi serves the coordinator's REST surface.
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"

	"github.com/mppdb/coordinator/go/vt/acl"
	"github.com/mppdb/coordinator/go/vt/log"
	"github.com/mppdb/coordinator/go/vt/metadata"
	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Options configure an API.
type Options struct {
	// Authenticator checks request credentials. When nil every request is
	// served as the anonymous actor.
	Authenticator acl.Authenticator
	// DisableCompression turns off gzip/deflate of responses.
	DisableCompression bool
	// Registerer receives the API metrics when set.
	Registerer prometheus.Registerer
	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer
	// RateLimit caps /api requests per second. Zero means unlimited.
	RateLimit rate.Limit
	// RateBurst is the bucket size of RateLimit.
	RateBurst int
}

// API routes HTTP requests to the metadata gateway.
type API struct {
	gateway metadata.Gateway
	authn   acl.Authenticator
	router  *mux.Router

	requests  *prometheus.CounterVec
	redirects prometheus.Counter
}

// NewAPI returns an API serving gw.
func NewAPI(gw metadata.Gateway, opts Options) *API {
	api := &API{
		gateway: gw,
		authn:   opts.Authenticator,
		router:  mux.NewRouter(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "load_info_requests_total",
			Help: "Load info requests by result.",
		}, []string{"result"}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leader_redirects_total",
			Help: "Requests redirected to the leader.",
		}),
	}
	if opts.Registerer != nil {
		opts.Registerer.MustRegister(api.requests, api.redirects)
	}

	api.router.HandleFunc("/debug/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		api.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	router := api.router.PathPrefix("/api").Subrouter()
	router.HandleFunc("/_leader", api.getLeader).Methods(http.MethodGet).Name("API.GetLeader")
	router.HandleFunc("/{db}/_load_info", api.getLoadInfo).Methods(http.MethodGet).Name("API.GetLoadInfo")

	// Middlewares run in order of addition.
	middlewares := []mux.MiddlewareFunc{
		handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{})),
	}
	if opts.RateLimit > 0 {
		middlewares = append(middlewares, limitRate(rate.NewLimiter(opts.RateLimit, opts.RateBurst)))
	}
	if !opts.DisableCompression {
		middlewares = append(middlewares, handlers.CompressHandler)
	}
	router.Use(middlewares...)

	return api
}

// Router returns the underlying router.
func (api *API) Router() *mux.Router { return api.router }

// ServeHTTP implements http.Handler.
func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.router.ServeHTTP(w, r)
}

// limitRate rejects requests beyond lim with 429.
func limitRate(lim *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, vterrors.New(codes.ResourceExhausted, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	log.ErrorS("http handler panic", "panic", fmt.Sprint(v...))
}
