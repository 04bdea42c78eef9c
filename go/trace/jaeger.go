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

package trace

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	"github.com/uber/jaeger-client-go/config"
)

func init() {
	Register("opentracing-jaeger", newJaegerTracer)
}

// newJaegerTracer reports spans to a jaeger agent. JAEGER_* environment
// variables override cfg.
func newJaegerTracer(cfg Config) (opentracing.Tracer, io.Closer, error) {
	jcfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	if jcfg.ServiceName == "" {
		jcfg.ServiceName = cfg.Service
	}
	if jcfg.Reporter.LocalAgentHostPort == "" {
		jcfg.Reporter.LocalAgentHostPort = cfg.AgentAddress
	}
	if jcfg.Sampler.Type == "" {
		jcfg.Sampler.Type = jaeger.SamplerTypeProbabilistic
		jcfg.Sampler.Param = cfg.SamplingRate
	}
	return jcfg.NewTracer(config.Logger(&traceLogger{}))
}
