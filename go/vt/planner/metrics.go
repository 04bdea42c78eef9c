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

package planner

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mppdb/coordinator/go/vt/vterrors"
)

// Metrics counts compilations. A nil *Metrics records nothing.
type Metrics struct {
	compiled      prometheus.Counter
	compileErrors *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewMetrics creates the planner metrics and registers them to reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		compiled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plans_compiled_total",
			Help: "Number of statements compiled into finalized plans.",
		}),
		compileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plan_compile_errors_total",
			Help: "Number of failed compilations by error code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plan_compile_duration_seconds",
			Help:    "Time spent compiling a statement, including finalize.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	reg.MustRegister(m.compiled, m.compileErrors, m.duration)
	return m
}

func (m *Metrics) observe(seconds float64, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
	if err != nil {
		m.compileErrors.WithLabelValues(vterrors.Code(err).String()).Inc()
		return
	}
	m.compiled.Inc()
}
