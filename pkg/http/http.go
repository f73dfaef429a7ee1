/*
Copyright 2025 The cf-ts-dns Authors.

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

// Package http wraps outbound clients with request latency instrumentation.
package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudmesh/cf-ts-dns/pkg/metrics"
)

var requestDuration = prometheus.NewSummaryVec(
	prometheus.SummaryOpts{
		Namespace:  metrics.Namespace,
		Subsystem:  "http",
		Name:       "request_duration_seconds",
		Help:       "Outbound HTTP request latencies in seconds.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"host", "method", "status"},
)

func init() {
	prometheus.MustRegister(requestDuration)
}

type instrumentedRoundTripper struct {
	next http.RoundTripper
}

func (r *instrumentedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := r.next.RoundTrip(req)

	status := ""
	if resp != nil {
		status = fmt.Sprintf("%d", resp.StatusCode)
	}
	requestDuration.WithLabelValues(req.URL.Host, req.Method, status).
		Observe(time.Since(start).Seconds())

	return resp, err
}

// NewInstrumentedClient instruments the given client's transport. A nil
// client instruments http.DefaultClient.
func NewInstrumentedClient(next *http.Client) *http.Client {
	if next == nil {
		next = http.DefaultClient
	}
	next.Transport = NewInstrumentedTransport(next.Transport)
	return next
}

// NewInstrumentedTransport wraps a RoundTripper with latency metrics.
func NewInstrumentedTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &instrumentedRoundTripper{next: next}
}
