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

package controller

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/api"
	"github.com/cloudmesh/cf-ts-dns/config"
	cfhttp "github.com/cloudmesh/cf-ts-dns/pkg/http"
	"github.com/cloudmesh/cf-ts-dns/pkg/metrics"
	"github.com/cloudmesh/cf-ts-dns/provider"
	"github.com/cloudmesh/cf-ts-dns/provider/cloudflare"
	"github.com/cloudmesh/cf-ts-dns/source/tailscale"
)

// Options are the process-level settings parsed from flags. Everything
// machine-specific (credentials, tasks, CIDR lists) lives in the persisted
// configuration instead.
type Options struct {
	OwnerID              string
	StoreBackend         string
	StoreDir             string
	EtcdEndpoints        []string
	ListenAddress        string
	MetricsAddress       string
	Interval             time.Duration
	MinEventSyncInterval time.Duration
	RequestTimeout       time.Duration
	LogLevel             string
	LogFormat            string
	DryRun               bool
	Once                 bool
	AllowUnsignedHooks   bool
}

// ParseFlags fills Options from the command line.
func ParseFlags(args []string) (*Options, error) {
	opts := &Options{}
	app := kingpin.New("cf-ts-dns", "Syncs mesh machines into Cloudflare DNS records.")
	app.Flag("owner-id", "Identifier stamped into record ownership comments").Envar("CF_TS_DNS_OWNER_ID").Required().StringVar(&opts.OwnerID)
	app.Flag("store", "Configuration store backend (file or etcd)").Envar("CF_TS_DNS_STORE").Default("file").EnumVar(&opts.StoreBackend, "file", "etcd")
	app.Flag("store-dir", "Directory for the file store backend").Envar("CF_TS_DNS_STORE_DIR").Default("/var/lib/cf-ts-dns").StringVar(&opts.StoreDir)
	app.Flag("etcd-endpoints", "etcd endpoints for the etcd store backend").Envar("CF_TS_DNS_ETCD_ENDPOINTS").Default("http://localhost:2379").StringsVar(&opts.EtcdEndpoints)
	app.Flag("listen-address", "Address the operator API listens on").Envar("CF_TS_DNS_LISTEN_ADDRESS").Default(":8080").StringVar(&opts.ListenAddress)
	app.Flag("metrics-address", "Address the health and metrics endpoints listen on").Envar("CF_TS_DNS_METRICS_ADDRESS").Default(":7979").StringVar(&opts.MetricsAddress)
	app.Flag("interval", "Time between periodic syncs").Default("1m").DurationVar(&opts.Interval)
	app.Flag("min-event-sync-interval", "Batching window for event-triggered syncs").Default("5s").DurationVar(&opts.MinEventSyncInterval)
	app.Flag("request-timeout", "Timeout for upstream API requests").Default("30s").DurationVar(&opts.RequestTimeout)
	app.Flag("log-level", "Log level (debug, info, warning, error)").Default("info").StringVar(&opts.LogLevel)
	app.Flag("log-format", "Log output format (text or json)").Default("text").EnumVar(&opts.LogFormat, "text", "json")
	app.Flag("dry-run", "Compute diffs without touching DNS records").BoolVar(&opts.DryRun)
	app.Flag("once", "Run a single sync and exit").BoolVar(&opts.Once)
	app.Flag("allow-unsigned-webhooks", "Accept webhook deliveries when no secret is stored yet").BoolVar(&opts.AllowUnsignedHooks)
	if _, err := app.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// Execute is the process entry point behind main.
func Execute() {
	opts, err := ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("flag parsing error: %v", err)
	}
	configureLogger(opts)

	if opts.DryRun {
		log.Info("running in dry-run mode. No changes to DNS records will be made.")
	}

	kv, err := newKV(opts)
	if err != nil {
		log.Fatal(err)
	}
	store := config.NewStore(kv, opts.OwnerID)

	ctrl := &Controller{
		Store:                store,
		OwnerID:              opts.OwnerID,
		Factories:            DefaultFactories(opts.RequestTimeout),
		Interval:             opts.Interval,
		MinEventSyncInterval: opts.MinEventSyncInterval,
		DryRun:               opts.DryRun,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go serveMetrics(opts.MetricsAddress)
	go handleSigterm(cancel)

	if opts.Once {
		if _, err := ctrl.Sync(ctx, metrics.TriggerManual, opts.DryRun); err != nil {
			log.Fatal(err)
		}
		return
	}

	server := api.NewServer(api.ServerConfig{
		Store:                 store,
		Syncer:                ctrl,
		AllowUnsignedWebhooks: opts.AllowUnsignedHooks,
	})
	go func() {
		log.Infof("operator API listening on %s", opts.ListenAddress)
		if err := http.ListenAndServe(opts.ListenAddress, server.Router()); err != nil {
			log.Fatal(err)
		}
	}()

	ctrl.ScheduleRunOnce(time.Now())
	ctrl.Run(ctx)
}

// DefaultFactories builds the production inventory and DNS clients, with
// instrumented HTTP transports and a per-request timeout.
func DefaultFactories(timeout time.Duration) Factories {
	newHTTPClient := func() *http.Client {
		return cfhttp.NewInstrumentedClient(&http.Client{Timeout: timeout})
	}
	return Factories{
		Inventory: func(cfg *config.Config) (Inventory, error) {
			return tailscale.NewClient(cfg.TailscaleAPIKey, cfg.Tailnet, newHTTPClient()), nil
		},
		Provider: func(cfg *config.Config) (provider.Provider, error) {
			return cloudflare.NewCloudFlareProvider(cfg.CloudflareAPIToken, newHTTPClient(), false)
		},
	}
}

func newKV(opts *Options) (config.KV, error) {
	switch opts.StoreBackend {
	case "etcd":
		return config.NewEtcdKV(opts.EtcdEndpoints)
	default:
		return config.NewFileKV(opts.StoreDir)
	}
}

func configureLogger(opts *Options) {
	if opts.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}
	log.SetLevel(level)
}

// handleSigterm cancels the main context so the run loop and in-flight
// syncs wind down.
func handleSigterm(cancel func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	<-signals
	log.Info("Received termination signal. Terminating...")
	cancel()
}

// serveMetrics exposes /healthz and Prometheus /metrics.
func serveMetrics(address string) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	http.Handle("/metrics", promhttp.Handler())

	log.Debugf("serving 'healthz' on '%s/healthz'", address)
	log.Debugf("serving 'metrics' on '%s/metrics'", address)

	log.Fatal(http.ListenAndServe(address, nil))
}
