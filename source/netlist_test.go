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

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudmesh/cf-ts-dns/config"
)

func TestInRange(t *testing.T) {
	cidrs := []string{"192.168.0.0/16", "10.0.0.0/8"}

	assert.True(t, InRange("192.168.1.10", cidrs))
	assert.True(t, InRange("10.1.2.3", cidrs))
	assert.False(t, InRange("8.8.8.8", cidrs))
	assert.False(t, InRange("not-an-ip", cidrs))
	// IPv6 never matches
	assert.False(t, InRange("fd7a:115c:a1e0::1", cidrs))
	// unparseable ranges are skipped, not fatal
	assert.True(t, InRange("10.1.2.3", []string{"garbage", "10.0.0.0/8"}))
}

func TestExtractEndpointIPs(t *testing.T) {
	endpoints := []string{
		"192.168.1.10:41641",
		"8.8.8.8:41641",
		"[2001:db8::1]:41641", // IPv6 dropped
		"garbage",
	}
	assert.Equal(t, []string{"192.168.1.10", "8.8.8.8"}, ExtractEndpointIPs(endpoints))
}

func machineWithEndpoints(endpoints ...string) *Machine {
	return &Machine{Name: "web01.tailnet", Endpoints: endpoints}
}

func cfgWithList(list config.NamedCIDRList) *config.Config {
	return &config.Config{NamedCIDRLists: []config.NamedCIDRList{list}}
}

// Range order, not endpoint order, decides the result order: every IP
// matching the first range comes before any IP matching only the second.
func TestSelectFromNamedListRangePriority(t *testing.T) {
	machine := machineWithEndpoints("10.0.0.5:41641", "192.168.1.10:41641", "10.0.0.6:41641")
	cfg := cfgWithList(config.NamedCIDRList{
		Name:  "lan",
		CIDRs: []string{"192.168.0.0/16", "10.0.0.0/8"},
	})

	assert.Equal(t, []string{"192.168.1.10", "10.0.0.5", "10.0.0.6"},
		SelectFromNamedList(machine, "lan", cfg))
}

func TestSelectFromNamedListDeduplicates(t *testing.T) {
	machine := machineWithEndpoints("192.168.1.10:41641", "192.168.1.10:3478")
	cfg := cfgWithList(config.NamedCIDRList{
		Name:  "lan",
		CIDRs: []string{"192.168.0.0/16", "192.168.1.0/24"},
	})

	assert.Equal(t, []string{"192.168.1.10"}, SelectFromNamedList(machine, "lan", cfg))
}

func TestSelectFromNamedListInverse(t *testing.T) {
	machine := machineWithEndpoints("192.168.1.10:41641", "8.8.8.8:41641", "1.1.1.1:41641")
	cfg := cfgWithList(config.NamedCIDRList{
		Name:    "not-lan",
		CIDRs:   []string{"192.168.0.0/16"},
		Inverse: true,
	})

	// input order is preserved for inverse selection
	assert.Equal(t, []string{"8.8.8.8", "1.1.1.1"}, SelectFromNamedList(machine, "not-lan", cfg))
}

func TestSelectFromNamedListSingleMode(t *testing.T) {
	machine := machineWithEndpoints("192.168.1.10:41641", "192.168.1.11:41641")
	cfg := cfgWithList(config.NamedCIDRList{
		Name:  "lan",
		CIDRs: []string{"192.168.0.0/16"},
		Mode:  config.ListModeSingle,
	})

	assert.Equal(t, []string{"192.168.1.10"}, SelectFromNamedList(machine, "lan", cfg))
}

func TestSelectFromNamedListUnknownList(t *testing.T) {
	machine := machineWithEndpoints("192.168.1.10:41641")
	assert.Empty(t, SelectFromNamedList(machine, "missing", &config.Config{}))
}

func TestSelectFromNamedListsUnion(t *testing.T) {
	machine := machineWithEndpoints("192.168.1.10:41641", "10.0.0.5:41641")
	cfg := &config.Config{NamedCIDRLists: []config.NamedCIDRList{
		{Name: "lan", CIDRs: []string{"192.168.0.0/16"}},
		{Name: "vpn", CIDRs: []string{"10.0.0.0/8"}},
		{Name: "both", CIDRs: []string{"192.168.0.0/16", "10.0.0.0/8"}},
	}}

	assert.Equal(t, []string{"192.168.1.10", "10.0.0.5"},
		SelectFromNamedLists(machine, []string{"lan", "vpn"}, cfg))
	// overlapping lists contribute each IP once
	assert.Equal(t, []string{"192.168.1.10", "10.0.0.5"},
		SelectFromNamedLists(machine, []string{"lan", "both"}, cfg))
}
