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

// Package config holds the persisted configuration document and its store.
// One document exists per owner-id; it is only ever mutated through explicit
// operator writes.
package config

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ListModeSingle and ListModeMultiple select how many matching IPs a named
// CIDR list yields per machine.
const (
	ListModeSingle   = "single"
	ListModeMultiple = "multiple"
)

// NamedCIDRList is a user-defined, ordered set of IPv4 ranges. Order is
// significant: selection walks the ranges and keeps the first match per IP.
type NamedCIDRList struct {
	Name        string   `json:"name" validate:"required,listname"`
	Description string   `json:"description,omitempty"`
	CIDRs       []string `json:"cidrs" validate:"required,min=1,dive,cidrv4"`
	Mode        string   `json:"mode,omitempty" validate:"omitempty,oneof=single multiple"`
	Inverse     bool     `json:"inverse,omitempty"`
}

// MachineSelector picks machines by matching one of their fields against a
// literal value or a /regex/.
type MachineSelector struct {
	Field   string `json:"field" validate:"required"`
	Pattern string `json:"pattern" validate:"required"`
}

// RecordTemplate projects a matched machine into one DNS record, plus an
// associated SRV record when srvPrefix is set on a non-SRV template.
type RecordTemplate struct {
	RecordType string `json:"recordType" validate:"required,oneof=A AAAA CNAME SRV TXT"`
	Name       string `json:"name" validate:"required"`
	Value      string `json:"value" validate:"required"`
	TTL        int64  `json:"ttl,omitempty" validate:"omitempty,min=1"`
	Proxied    bool   `json:"proxied,omitempty"`
	Priority   uint16 `json:"priority,omitempty"`
	Weight     uint16 `json:"weight,omitempty"`
	Port       uint16 `json:"port,omitempty"`
	SRVPrefix  string `json:"srvPrefix,omitempty"`
	SRVTarget  string `json:"srvTarget,omitempty"`
}

// GenerationTask couples one machine selector with record templates.
// Tasks are evaluated in declaration order.
type GenerationTask struct {
	ID              string           `json:"id" validate:"required"`
	Name            string           `json:"name" validate:"required"`
	Description     string           `json:"description,omitempty"`
	Enabled         bool             `json:"enabled"`
	MachineSelector MachineSelector  `json:"machineSelector"`
	RecordTemplates []RecordTemplate `json:"recordTemplates" validate:"required,min=1,dive"`
}

// Config is the whole persisted document for one owner-id. Unknown top-level
// fields survive a read-modify-write cycle untouched.
type Config struct {
	TailscaleAPIKey    string           `json:"tailscaleApiKey,omitempty"`
	Tailnet            string           `json:"tailnet,omitempty"`
	CloudflareAPIToken string           `json:"cloudflareApiToken,omitempty"`
	NamedCIDRLists     []NamedCIDRList  `json:"namedCIDRLists,omitempty" validate:"dive"`
	GenerationTasks    []GenerationTask `json:"generationTasks,omitempty" validate:"dive"`
	WebhookURL         string           `json:"webhookUrl,omitempty"`
	WebhookSecret      string           `json:"webhookSecret,omitempty"`

	extra map[string]json.RawMessage
}

// knownFields mirrors the json tags above; anything else lands in extra.
var knownFields = []string{
	"tailscaleApiKey",
	"tailnet",
	"cloudflareApiToken",
	"namedCIDRLists",
	"generationTasks",
	"webhookUrl",
	"webhookSecret",
}

func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	if err := json.Unmarshal(data, (*plain)(c)); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, field := range knownFields {
		delete(all, field)
	}
	if len(all) > 0 {
		c.extra = all
	}
	return nil
}

func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	known, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.extra) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// FindList returns the named CIDR list, or nil.
func (c *Config) FindList(name string) *NamedCIDRList {
	for i := range c.NamedCIDRLists {
		if c.NamedCIDRLists[i].Name == name {
			return &c.NamedCIDRLists[i]
		}
	}
	return nil
}

// FindTask returns the generation task with the given id, or nil.
func (c *Config) FindTask(id string) *GenerationTask {
	for i := range c.GenerationTasks {
		if c.GenerationTasks[i].ID == id {
			return &c.GenerationTasks[i]
		}
	}
	return nil
}

var cidrVarPattern = regexp.MustCompile(`\{\{\s*cidr\.([A-Za-z0-9_,.-]+)\s*\}\}`)

// ListReferenced reports whether any record template references the named
// CIDR list through a {{cidr.<name>}} variable. Referenced lists must not be
// deleted.
func (c *Config) ListReferenced(name string) bool {
	for _, task := range c.GenerationTasks {
		for _, tmpl := range task.RecordTemplates {
			for _, text := range []string{tmpl.Name, tmpl.Value, tmpl.SRVTarget} {
				for _, match := range cidrVarPattern.FindAllStringSubmatch(text, -1) {
					for _, listName := range strings.Split(match[1], ",") {
						if strings.TrimSpace(listName) == name {
							return true
						}
					}
				}
			}
		}
	}
	return false
}
