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

// Package source turns mesh inventory machines into desired DNS records:
// selector matching, CIDR-based IP selection, template expansion, and
// per-task record generation.
package source

import (
	"context"
	"strings"
)

// Machine is one device in the mesh inventory.
type Machine struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Hostname  string   `json:"hostname"`
	Addresses []string `json:"addresses"`
	Tags      []string `json:"tags"`
	Endpoints []string `json:"endpoints"` // "IP:port", IPv4 or bracketed IPv6
	OS        string   `json:"os"`
	User      string   `json:"user"`
}

// MachineName is the short name: the first dotted component of the full
// name, falling back to the hostname.
func (m *Machine) MachineName() string {
	if m.Name != "" {
		name, _, _ := strings.Cut(m.Name, ".")
		return name
	}
	return m.Hostname
}

// TailscaleIP returns the machine's first mesh address.
func (m *Machine) TailscaleIP() string {
	if len(m.Addresses) > 0 {
		return m.Addresses[0]
	}
	return ""
}

// InventoryClient lists machines from the mesh inventory.
type InventoryClient interface {
	ListMachines(ctx context.Context) ([]*Machine, error)
}
