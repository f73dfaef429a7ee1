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

package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewMemoryKV(), "owner")
}

func TestReadUnwrittenOwnerReturnsEmptyConfig(t *testing.T) {
	store := newTestStore(t)
	cfg, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.GenerationTasks)
	assert.Empty(t, cfg.TailscaleAPIKey)
}

func TestReadMasksSecrets(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Write(context.Background(), &Config{
		TailscaleAPIKey: "tskey-123",
		Tailnet:         "corp.example",
	}))

	cfg, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "********", cfg.TailscaleAPIKey)
	assert.Equal(t, "corp.example", cfg.Tailnet)

	raw, err := store.ReadSecrets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tskey-123", raw.TailscaleAPIKey)
}

// Writing back a masked read must keep the stored secret byte for byte.
func TestWriteRestoresMaskedSecrets(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Write(ctx, &Config{
		TailscaleAPIKey:    "tskey-123",
		CloudflareAPIToken: "cf-token",
	}))

	masked, err := store.Read(ctx)
	require.NoError(t, err)
	masked.Tailnet = "corp.example"
	require.NoError(t, store.Write(ctx, masked))

	raw, err := store.ReadSecrets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tskey-123", raw.TailscaleAPIKey)
	assert.Equal(t, "cf-token", raw.CloudflareAPIToken)
	assert.Equal(t, "corp.example", raw.Tailnet)
}

func TestWriteReplacesSecretWithNewValue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Write(ctx, &Config{TailscaleAPIKey: "old-key"}))
	require.NoError(t, store.Write(ctx, &Config{TailscaleAPIKey: "new-key"}))

	raw, err := store.ReadSecrets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-key", raw.TailscaleAPIKey)
}

func TestWriteRejectsInvalidConfigWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Write(ctx, &Config{Tailnet: "corp.example"}))

	err := store.Write(ctx, &Config{
		Tailnet:        "changed",
		NamedCIDRLists: []NamedCIDRList{{Name: "bad name!", CIDRs: []string{"nope"}}},
	})
	require.Error(t, err)
	var validation *errs.ValidationError
	assert.ErrorAs(t, err, &validation)

	cfg, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "corp.example", cfg.Tailnet)
}

func TestUpdateSeesUnmaskedSecrets(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Write(ctx, &Config{WebhookSecret: "hook-secret"}))

	var seen string
	masked, err := store.Update(ctx, func(cfg *Config) error {
		seen = cfg.WebhookSecret
		cfg.Tailnet = "corp.example"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hook-secret", seen)
	assert.Equal(t, "********", masked.WebhookSecret)
	assert.Equal(t, "corp.example", masked.Tailnet)
}

func TestUnknownFieldsSurviveStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, "owner/settings", []byte(`{"tailnet":"corp.example","futureFeature":42}`)))
	store := NewStore(kv, "owner")

	_, err := store.Update(ctx, func(cfg *Config) error {
		cfg.Tailnet = "other.example"
		return nil
	})
	require.NoError(t, err)

	data, err := kv.Get(ctx, "owner/settings")
	require.NoError(t, err)
	assert.Contains(t, string(data), "futureFeature")
	assert.Contains(t, string(data), "other.example")
}

func TestFileKV(t *testing.T) {
	ctx := context.Background()
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	_, err = kv.Get(ctx, "owner/settings")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Put(ctx, "owner/settings", []byte(`{"a":1}`)))
	data, err := kv.Get(ctx, "owner/settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	// overwrites are atomic replacements
	require.NoError(t, kv.Put(ctx, "owner/settings", []byte(`{"a":2}`)))
	data, err = kv.Get(ctx, "owner/settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))

	_, err = kv.Get(ctx, "../escape")
	assert.Error(t, err)
}
