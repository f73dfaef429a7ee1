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

package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudmesh/cf-ts-dns/endpoint"
	"github.com/cloudmesh/cf-ts-dns/plan"
)

func TestSeedAndOwnedRecords(t *testing.T) {
	p := NewInMemoryProvider("example.com")
	require.NoError(t, p.Seed(&endpoint.Record{
		Type: "A", Name: "web01.example.com", Content: "192.168.1.10",
		Comment: "cf-ts-dns:owner:web01",
	}))
	require.NoError(t, p.Seed(&endpoint.Record{
		Type: "A", Name: "foreign.example.com", Content: "10.0.0.1",
		Comment: "someone else",
	}))

	owned, err := p.OwnedRecords(context.Background(), "cf-ts-dns:owner:")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "web01.example.com", owned[0].Name)
	assert.NotEmpty(t, owned[0].ID)
}

func TestSeedUnknownZone(t *testing.T) {
	p := NewInMemoryProvider("example.com")
	assert.Error(t, p.Seed(&endpoint.Record{Type: "A", Name: "host.other.org", Content: "1.2.3.4"}))
}

func TestApplyChangesDeletesBeforeCreates(t *testing.T) {
	p := NewInMemoryProvider("example.com")
	stale := &endpoint.Record{Type: "A", Name: "web01.example.com", Content: "10.0.0.1"}
	require.NoError(t, p.Seed(stale))
	staleID := p.Records()[0].ID

	var order []string
	p.OnApply = func(zone string, deletes, creates []*endpoint.Record) {
		for range deletes {
			order = append(order, "delete")
		}
		for range creates {
			order = append(order, "create")
		}
	}

	require.NoError(t, p.ApplyChanges(context.Background(), &plan.Changes{
		Delete: []*endpoint.Record{{Type: "A", Name: "web01.example.com", Content: "10.0.0.1", ID: staleID}},
		Create: []*endpoint.Record{{Type: "A", Name: "web01.example.com", Content: "192.168.1.10"}},
	}))

	assert.Equal(t, []string{"delete", "create"}, order)
	records := p.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "192.168.1.10", records[0].Content)
}

func TestFindZoneLongestSuffix(t *testing.T) {
	p := NewInMemoryProvider("example.com", "dev.example.com")
	require.NoError(t, p.Seed(&endpoint.Record{Type: "A", Name: "api.dev.example.com", Content: "1.2.3.4"}))

	records := p.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "dev.example.com", records[0].ZoneID)
}

func TestDryRun(t *testing.T) {
	p := NewInMemoryProvider("example.com")
	p.DryRun = true
	require.NoError(t, p.ApplyChanges(context.Background(), &plan.Changes{
		Create: []*endpoint.Record{{Type: "A", Name: "web01.example.com", Content: "192.168.1.10"}},
	}))
	assert.Empty(t, p.Records())
}
