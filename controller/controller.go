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

// Package controller drives full reconciliation runs: load configuration,
// fetch inventory and owned records, diff, and converge the DNS backend.
package controller

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cloudmesh/cf-ts-dns/config"
	"github.com/cloudmesh/cf-ts-dns/endpoint"
	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
	"github.com/cloudmesh/cf-ts-dns/pkg/metrics"
	"github.com/cloudmesh/cf-ts-dns/plan"
	"github.com/cloudmesh/cf-ts-dns/provider"
	"github.com/cloudmesh/cf-ts-dns/source"
	"github.com/cloudmesh/cf-ts-dns/source/tailscale"
)

// Inventory is what a sync needs from the mesh side: the machine list and
// webhook convergence.
type Inventory interface {
	source.InventoryClient
	EnsureWebhook(ctx context.Context, url string) (*tailscale.EnsureResult, error)
}

// Factories build the per-sync collaborators from the stored credentials.
// Configuration can change between runs, so clients are constructed fresh
// on every sync rather than held on the controller.
type Factories struct {
	Inventory func(cfg *config.Config) (Inventory, error)
	Provider  func(cfg *config.Config) (provider.Provider, error)
}

// Controller serializes syncs for one owner-id and runs the periodic loop.
type Controller struct {
	Store     *config.Store
	OwnerID   string
	Factories Factories

	// Interval is the planned time between periodic syncs. An event or
	// manual trigger batches changes for MinEventSyncInterval before the
	// next run fires.
	Interval             time.Duration
	MinEventSyncInterval time.Duration
	DryRun               bool

	syncMu       sync.Mutex
	nextRunAt    time.Time
	nextRunAtMux sync.Mutex

	lastResultMux sync.Mutex
	lastResult    *plan.SyncResult
}

// Sync runs one full reconciliation. Concurrent calls for the same
// controller are serialized; a sync always sees a settled backend.
func (c *Controller) Sync(ctx context.Context, trigger string, dryRun bool) (result *plan.SyncResult, err error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	defer func() { metrics.ObserveSync(trigger, err) }()

	cfg, err := c.Store.ReadSecrets(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkCredentials(cfg); err != nil {
		return nil, err
	}

	inventory, err := c.Factories.Inventory(cfg)
	if err != nil {
		return nil, err
	}
	dns, err := c.Factories.Provider(cfg)
	if err != nil {
		return nil, err
	}

	var machines []*source.Machine
	var owned []*endpoint.Record
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		machines, err = inventory.ListMachines(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		owned, err = dns.OwnedRecords(groupCtx, endpoint.OwnershipPrefix(c.OwnerID))
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	desired, matchedMachines := source.Generate(cfg, machines, c.OwnerID)

	p := &plan.Plan{Desired: desired, Owned: owned, OwnerID: c.OwnerID}
	p = p.Calculate()

	dryRun = dryRun || c.DryRun
	if !dryRun && p.Changes.HasChanges() {
		if err := dns.ApplyChanges(ctx, p.Changes); err != nil {
			return nil, err
		}
		metrics.RecordChanges.WithLabelValues("create").Add(float64(len(p.Changes.Create)))
		metrics.RecordChanges.WithLabelValues("delete").Add(float64(len(p.Changes.Delete)))
	}

	result = &plan.SyncResult{
		Added:   p.Changes.Create,
		Deleted: p.Changes.Delete,
		Managed: managedAfter(owned, p.Changes),
		DryRun:  dryRun,
		Time:    time.Now(),
		Summary: plan.Summary{
			AddedCount:      len(p.Changes.Create),
			DeletedCount:    len(p.Changes.Delete),
			TotalMachines:   len(machines),
			MatchedMachines: matchedMachines,
		},
	}

	if !dryRun {
		metrics.LastSyncTimestamp.SetToCurrentTime()
		metrics.ManagedRecords.Set(float64(len(result.Managed)))
		c.setLastResult(result)
	}

	log.WithFields(log.Fields{
		"trigger":  trigger,
		"dryRun":   dryRun,
		"added":    result.Summary.AddedCount,
		"deleted":  result.Summary.DeletedCount,
		"machines": result.Summary.TotalMachines,
		"matched":  result.Summary.MatchedMachines,
	}).Info("sync complete")
	return result, nil
}

// Preview evaluates one task against the live inventory without touching
// the DNS backend, returning at most limit records.
func (c *Controller) Preview(ctx context.Context, task *config.GenerationTask, limit int) ([]*endpoint.Record, error) {
	cfg, err := c.Store.ReadSecrets(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.TailscaleAPIKey == "" || cfg.Tailnet == "" {
		return nil, errs.NewConfigf("tailscale credentials are not configured")
	}
	inventory, err := c.Factories.Inventory(cfg)
	if err != nil {
		return nil, err
	}
	machines, err := inventory.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	records, _ := source.GenerateTask(cfg, task, machines, c.OwnerID)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// EnsureWebhook converges the tailnet webhook on the configured URL and
// persists a freshly minted secret. Failures are reported, not fatal; the
// periodic sync retries on the next tick.
func (c *Controller) EnsureWebhook(ctx context.Context) error {
	cfg, err := c.Store.ReadSecrets(ctx)
	if err != nil {
		return err
	}
	if cfg.WebhookURL == "" {
		return nil
	}
	if cfg.TailscaleAPIKey == "" || cfg.Tailnet == "" {
		return errs.NewConfigf("tailscale credentials are not configured")
	}
	inventory, err := c.Factories.Inventory(cfg)
	if err != nil {
		return err
	}
	result, err := inventory.EnsureWebhook(ctx, cfg.WebhookURL)
	if err != nil {
		return err
	}
	if result.Secret != "" {
		// The secret is shown exactly once; losing it here would force a
		// webhook recreate.
		_, err = c.Store.Update(ctx, func(stored *config.Config) error {
			stored.WebhookSecret = result.Secret
			return nil
		})
	}
	return err
}

// LastResult returns the outcome of the most recent non-dry-run sync.
func (c *Controller) LastResult() *plan.SyncResult {
	c.lastResultMux.Lock()
	defer c.lastResultMux.Unlock()
	return c.lastResult
}

func (c *Controller) setLastResult(result *plan.SyncResult) {
	c.lastResultMux.Lock()
	defer c.lastResultMux.Unlock()
	c.lastResult = result
}

// ShouldRunOnce reports whether a sync is due, and bumps the next run time
// when it is.
func (c *Controller) ShouldRunOnce(now time.Time) bool {
	c.nextRunAtMux.Lock()
	defer c.nextRunAtMux.Unlock()
	if now.Before(c.nextRunAt) {
		return false
	}
	c.nextRunAt = now.Add(c.Interval)
	return true
}

// ScheduleRunOnce requests a sync soon. Requests inside the batching window
// coalesce into a single run.
func (c *Controller) ScheduleRunOnce(now time.Time) {
	c.nextRunAtMux.Lock()
	defer c.nextRunAtMux.Unlock()
	c.nextRunAt = now.Add(c.MinEventSyncInterval)
}

// Run ticks until the context is canceled, running a sync whenever one is
// due. Each due run first converges the webhook best-effort.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if c.ShouldRunOnce(time.Now()) {
			if err := c.EnsureWebhook(ctx); err != nil {
				log.Errorf("webhook ensure failed: %v", err)
			}
			if _, err := c.Sync(ctx, metrics.TriggerCron, false); err != nil {
				log.Error(err)
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info("Terminating main controller loop")
			return
		}
	}
}

func checkCredentials(cfg *config.Config) error {
	if cfg.TailscaleAPIKey == "" || cfg.Tailnet == "" {
		return errs.NewConfigf("tailscale credentials are not configured")
	}
	if cfg.CloudflareAPIToken == "" {
		return errs.NewConfigf("cloudflare api token is not configured")
	}
	return nil
}

// managedAfter projects the owned set past the change set: deletions drop
// out, creations come in.
func managedAfter(owned []*endpoint.Record, changes *plan.Changes) []*endpoint.Record {
	deleted := map[string]bool{}
	for _, r := range changes.Delete {
		deleted[r.Key()] = true
	}
	var managed []*endpoint.Record
	for _, r := range owned {
		if !deleted[r.Key()] {
			managed = append(managed, r)
		}
	}
	managed = append(managed, changes.Create...)
	return managed
}
