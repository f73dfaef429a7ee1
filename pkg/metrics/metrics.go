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

// Package metrics exposes the controller's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "cf_ts_dns"

// Trigger label values.
const (
	TriggerCron    = "cron"
	TriggerWebhook = "webhook"
	TriggerManual  = "manual"
)

var (
	SyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "controller",
			Name:      "syncs_total",
			Help:      "Number of syncs, by trigger and result.",
		},
		[]string{"trigger", "result"},
	)
	LastSyncTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "controller",
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix timestamp of the last successful sync.",
		},
	)
	ManagedRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "controller",
			Name:      "managed_records",
			Help:      "Number of records owned after the last sync.",
		},
	)
	RecordChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "controller",
			Name:      "record_changes_total",
			Help:      "Record operations applied to the DNS backend, by action.",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(
		SyncsTotal,
		LastSyncTimestamp,
		ManagedRecords,
		RecordChanges,
	)
}

// ObserveSync records the outcome of one sync run.
func ObserveSync(trigger string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	SyncsTotal.WithLabelValues(trigger, result).Inc()
}
