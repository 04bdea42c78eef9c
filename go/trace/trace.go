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

// Package trace installs the process-wide opentracing tracer.
package trace

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/spf13/pflag"
)

// Config selects and tunes the tracer.
type Config struct {
	// Service is reported as the span's service name.
	Service string
	// Tracer names a registered tracing service, "noop" by default.
	Tracer string
	// AgentAddress is the host:port of the trace agent.
	AgentAddress string
	// SamplingRate is the fraction of traces kept, between 0 and 1.
	SamplingRate float64
}

// Factory builds a tracer from cfg.
type Factory func(cfg Config) (opentracing.Tracer, io.Closer, error)

var (
	mu        sync.Mutex
	factories = map[string]Factory{
		"noop": func(Config) (opentracing.Tracer, io.Closer, error) {
			return opentracing.NoopTracer{}, io.NopCloser(nil), nil
		},
	}
)

// Register makes a tracing service available under name.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := factories[name]; ok {
		panic(fmt.Sprintf("tracing service %q registered twice", name))
	}
	factories[name] = f
}

// RegisterFlags installs the tracing flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("tracer", "noop", "tracing service to use: "+strings.Join(names(), ", "))
	fs.String("tracing-agent-address", "localhost:6831", "host:port of the trace agent")
	fs.Float64("tracing-sampling-rate", 0.1, "fraction of requests traced")
}

func names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// StartTracing builds the tracer named by cfg.Tracer and installs it as the
// opentracing global tracer. The returned closer flushes pending spans.
func StartTracing(cfg Config) (io.Closer, error) {
	if cfg.Tracer == "" {
		cfg.Tracer = "noop"
	}
	if cfg.SamplingRate < 0 || cfg.SamplingRate > 1 {
		return nil, fmt.Errorf("tracing sampling rate %v out of range [0, 1]", cfg.SamplingRate)
	}
	mu.Lock()
	f, ok := factories[cfg.Tracer]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no such tracing service %q, expected one of %s", cfg.Tracer, strings.Join(names(), ", "))
	}
	tracer, closer, err := f(cfg)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}
