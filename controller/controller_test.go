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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmesh/cf-ts-dns/config"
	"github.com/cloudmesh/cf-ts-dns/endpoint"
	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
	"github.com/cloudmesh/cf-ts-dns/pkg/metrics"
	"github.com/cloudmesh/cf-ts-dns/provider"
	"github.com/cloudmesh/cf-ts-dns/provider/inmemory"
	"github.com/cloudmesh/cf-ts-dns/source"
	"github.com/cloudmesh/cf-ts-dns/source/tailscale"
)

// fakeInventory serves a fixed machine list and records webhook calls.
type fakeInventory struct {
	machines     []*source.Machine
	listErr      error
	ensureResult *tailscale.EnsureResult
	ensureURLs   []string
}

func (f *fakeInventory) ListMachines(ctx context.Context) ([]*source.Machine, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.machines, nil
}

func (f *fakeInventory) EnsureWebhook(ctx context.Context, url string) (*tailscale.EnsureResult, error) {
	f.ensureURLs = append(f.ensureURLs, url)
	if f.ensureResult != nil {
		return f.ensureResult, nil
	}
	return &tailscale.EnsureResult{EndpointID: "wh-1"}, nil
}

func validConfig() *config.Config {
	return &config.Config{
		TailscaleAPIKey:    "tskey-123",
		Tailnet:            "corp.example",
		CloudflareAPIToken: "cf-token",
		NamedCIDRLists: []config.NamedCIDRList{
			{Name: "home-lan", CIDRs: []string{"192.168.0.0/16"}},
		},
		GenerationTasks: []config.GenerationTask{{
			ID: "t1", Name: "web records", Enabled: true,
			MachineSelector: config.MachineSelector{Field: "tag", Pattern: "tag:web"},
			RecordTemplates: []config.RecordTemplate{{
				RecordType: "A",
				Name:       "{{machineName}}.example.com",
				Value:      "{{cidr.home-lan}}",
			}},
		}},
	}
}

func newTestController(t *testing.T, inventory *fakeInventory, dns *inmemory.InMemoryProvider) (*Controller, *config.Store) {
	t.Helper()
	store := config.NewStore(config.NewMemoryKV(), "owner")
	require.NoError(t, store.Write(context.Background(), validConfig()))
	return &Controller{
		Store:   store,
		OwnerID: "owner",
		Factories: Factories{
			Inventory: func(cfg *config.Config) (Inventory, error) { return inventory, nil },
			Provider:  func(cfg *config.Config) (provider.Provider, error) { return dns, nil },
		},
		Interval:             time.Minute,
		MinEventSyncInterval: 5 * time.Second,
	}, store
}

func webMachines() []*source.Machine {
	return []*source.Machine{
		{
			ID:        "m1",
			Name:      "web01.corp.ts.net",
			Tags:      []string{"tag:web"},
			Endpoints: []string{"192.168.1.10:41641", "8.8.8.8:41641"},
		},
		{
			ID:        "m2",
			Name:      "db01.corp.ts.net",
			Tags:      []string{"tag:db"},
			Endpoints: []string{"192.168.1.20:41641"},
		},
	}
}

func TestSyncCreatesDesiredRecords(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, _ := newTestController(t, inventory, dns)

	result, err := controller.Sync(context.Background(), metrics.TriggerManual, false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.AddedCount)
	assert.Equal(t, 0, result.Summary.DeletedCount)
	assert.Equal(t, 2, result.Summary.TotalMachines)
	assert.Equal(t, 1, result.Summary.MatchedMachines)
	assert.False(t, result.DryRun)

	records := dns.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "web01.example.com", records[0].Name)
	assert.Equal(t, "192.168.1.10", records[0].Content)
	assert.Equal(t, "cf-ts-dns:owner:web01", records[0].Comment)
}

func TestSyncIsIdempotent(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, _ := newTestController(t, inventory, dns)

	_, err := controller.Sync(context.Background(), metrics.TriggerManual, false)
	require.NoError(t, err)

	result, err := controller.Sync(context.Background(), metrics.TriggerManual, false)
	require.NoError(t, err)
	assert.Zero(t, result.Summary.AddedCount)
	assert.Zero(t, result.Summary.DeletedCount)
	assert.Len(t, dns.Records(), 1)
}

func TestSyncRemovesOrphanedRecords(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	require.NoError(t, dns.Seed(&endpoint.Record{
		Type:    "A",
		Name:    "gone.example.com",
		Content: "192.168.9.9",
		Comment: "cf-ts-dns:owner:gone",
	}))
	controller, _ := newTestController(t, inventory, dns)

	result, err := controller.Sync(context.Background(), metrics.TriggerManual, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.DeletedCount)

	for _, r := range dns.Records() {
		assert.NotEqual(t, "gone.example.com", r.Name)
	}
}

func TestSyncLeavesForeignRecordsAlone(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	require.NoError(t, dns.Seed(&endpoint.Record{
		Type:    "A",
		Name:    "manual.example.com",
		Content: "203.0.113.1",
		Comment: "managed by hand",
	}))
	controller, _ := newTestController(t, inventory, dns)

	_, err := controller.Sync(context.Background(), metrics.TriggerManual, false)
	require.NoError(t, err)

	var names []string
	for _, r := range dns.Records() {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, "manual.example.com")
}

func TestSyncDryRunDoesNotMutate(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, _ := newTestController(t, inventory, dns)

	result, err := controller.Sync(context.Background(), metrics.TriggerManual, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Summary.AddedCount)
	assert.Empty(t, dns.Records())
	// dry runs do not become the last recorded result
	assert.Nil(t, controller.LastResult())
}

func TestSyncMissingCredentials(t *testing.T) {
	store := config.NewStore(config.NewMemoryKV(), "owner")
	controller := &Controller{Store: store, OwnerID: "owner"}

	_, err := controller.Sync(context.Background(), metrics.TriggerManual, false)
	require.Error(t, err)
	var cfgErr *errs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSyncRecordsLastResult(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, _ := newTestController(t, inventory, dns)

	result, err := controller.Sync(context.Background(), metrics.TriggerManual, false)
	require.NoError(t, err)
	assert.Equal(t, result, controller.LastResult())
	require.Len(t, result.Managed, 1)
}

func TestEnsureWebhookPersistsSecret(t *testing.T) {
	inventory := &fakeInventory{
		machines: webMachines(),
		ensureResult: &tailscale.EnsureResult{
			EndpointID: "wh-new",
			Secret:     "one-time-secret",
			Created:    true,
		},
	}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, store := newTestController(t, inventory, dns)

	ctx := context.Background()
	_, err := store.Update(ctx, func(cfg *config.Config) error {
		cfg.WebhookURL = "https://dns.example.com/webhook"
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, controller.EnsureWebhook(ctx))
	assert.Equal(t, []string{"https://dns.example.com/webhook"}, inventory.ensureURLs)

	cfg, err := store.ReadSecrets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one-time-secret", cfg.WebhookSecret)
}

func TestEnsureWebhookNoopWithoutURL(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, _ := newTestController(t, inventory, dns)

	require.NoError(t, controller.EnsureWebhook(context.Background()))
	assert.Empty(t, inventory.ensureURLs)
}

func TestEnsureWebhookKeepsExistingSecret(t *testing.T) {
	inventory := &fakeInventory{machines: webMachines()}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, store := newTestController(t, inventory, dns)

	ctx := context.Background()
	_, err := store.Update(ctx, func(cfg *config.Config) error {
		cfg.WebhookURL = "https://dns.example.com/webhook"
		cfg.WebhookSecret = "existing-secret"
		return nil
	})
	require.NoError(t, err)

	// EnsureWebhook found an existing webhook, so no new secret came back
	require.NoError(t, controller.EnsureWebhook(ctx))

	cfg, err := store.ReadSecrets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "existing-secret", cfg.WebhookSecret)
}

func TestPreviewLimitsRecords(t *testing.T) {
	machines := []*source.Machine{
		{ID: "m1", Name: "a.ts.net", Tags: []string{"tag:web"}, Endpoints: []string{"192.168.1.1:41641"}},
		{ID: "m2", Name: "b.ts.net", Tags: []string{"tag:web"}, Endpoints: []string{"192.168.1.2:41641"}},
		{ID: "m3", Name: "c.ts.net", Tags: []string{"tag:web"}, Endpoints: []string{"192.168.1.3:41641"}},
	}
	inventory := &fakeInventory{machines: machines}
	dns := inmemory.NewInMemoryProvider("example.com")
	controller, _ := newTestController(t, inventory, dns)

	task := &validConfig().GenerationTasks[0]
	records, err := controller.Preview(context.Background(), task, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = controller.Preview(context.Background(), task, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

// Semantics pinned by the periodic loop: the first check fires immediately,
// later checks wait for the interval, and a scheduled run pulls the next
// check into the batching window.
func TestShouldRunOnce(t *testing.T) {
	ctrl := &Controller{Interval: 10 * time.Minute, MinEventSyncInterval: 5 * time.Second}

	now := time.Now()
	assert.True(t, ctrl.ShouldRunOnce(now))
	assert.False(t, ctrl.ShouldRunOnce(now))

	now = now.Add(10 * time.Second)
	assert.False(t, ctrl.ShouldRunOnce(now))

	ctrl.ScheduleRunOnce(now)
	assert.False(t, ctrl.ShouldRunOnce(now))
	assert.False(t, ctrl.ShouldRunOnce(now.Add(time.Second)))

	now = now.Add(5 * time.Second)
	assert.True(t, ctrl.ShouldRunOnce(now))
	assert.False(t, ctrl.ShouldRunOnce(now))

	now = now.Add(10 * time.Minute)
	assert.True(t, ctrl.ShouldRunOnce(now))
}
