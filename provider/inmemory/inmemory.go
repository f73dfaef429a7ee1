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

// Package inmemory implements a DNS backend held entirely in memory. It is
// used by tests and by local runs that have no Cloudflare credentials.
package inmemory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/endpoint"
	"github.com/cloudmesh/cf-ts-dns/plan"
)

// InMemoryProvider stores records per zone apex and mimics the backend's
// comment prefix filter and per-zone batches.
type InMemoryProvider struct {
	mu      sync.Mutex
	nextID  int
	zones   map[string][]*endpoint.Record // zone apex -> records
	DryRun  bool
	OnApply func(zone string, deletes, creates []*endpoint.Record)
}

// NewInMemoryProvider returns a backend pre-seeded with the given zone apexes.
func NewInMemoryProvider(zones ...string) *InMemoryProvider {
	p := &InMemoryProvider{zones: map[string][]*endpoint.Record{}}
	for _, z := range zones {
		p.zones[z] = nil
	}
	return p
}

// CreateZone adds an empty zone.
func (p *InMemoryProvider) CreateZone(zone string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.zones[zone]; !ok {
		p.zones[zone] = nil
	}
}

// Seed places a record into its zone without going through a batch.
func (p *InMemoryProvider) Seed(record *endpoint.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	zone := p.findZone(record.Name)
	if zone == "" {
		return fmt.Errorf("no zone for record %q", record.Name)
	}
	p.store(zone, record)
	return nil
}

// OwnedRecords lists records across all zones whose comment starts with the
// given prefix.
func (p *InMemoryProvider) OwnedRecords(_ context.Context, commentPrefix string) ([]*endpoint.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*endpoint.Record
	for _, records := range p.zones {
		for _, r := range records {
			if strings.HasPrefix(r.Comment, commentPrefix) {
				copied := *r
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

// ApplyChanges groups the change set per zone and applies deletes before
// creates, like the real backend.
func (p *InMemoryProvider) ApplyChanges(_ context.Context, changes *plan.Changes) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	type zoneChanges struct {
		deletes []*endpoint.Record
		creates []*endpoint.Record
	}
	byZone := map[string]*zoneChanges{}
	get := func(name string) *zoneChanges {
		zone := p.findZone(name)
		if zone == "" {
			return nil
		}
		zc, ok := byZone[zone]
		if !ok {
			zc = &zoneChanges{}
			byZone[zone] = zc
		}
		return zc
	}
	for _, r := range changes.Delete {
		if zc := get(r.Name); zc != nil {
			zc.deletes = append(zc.deletes, r)
		}
	}
	for _, r := range changes.Create {
		if zc := get(r.Name); zc != nil {
			zc.creates = append(zc.creates, r)
		}
	}

	for zone, zc := range byZone {
		if p.OnApply != nil {
			p.OnApply(zone, zc.deletes, zc.creates)
		}
		if p.DryRun {
			continue
		}
		for _, r := range zc.deletes {
			p.remove(zone, r)
		}
		for _, r := range zc.creates {
			p.store(zone, r)
		}
	}
	return nil
}

// Records returns every record in every zone, for assertions.
func (p *InMemoryProvider) Records() []*endpoint.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*endpoint.Record
	for _, records := range p.zones {
		for _, r := range records {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out
}

func (p *InMemoryProvider) findZone(name string) string {
	var best string
	for zone := range p.zones {
		if name == zone || strings.HasSuffix(name, "."+zone) {
			if len(zone) > len(best) {
				best = zone
			}
		}
	}
	return best
}

func (p *InMemoryProvider) store(zone string, record *endpoint.Record) {
	copied := *record
	p.nextID++
	copied.ID = fmt.Sprintf("mem-%d", p.nextID)
	copied.ZoneID = zone
	p.zones[zone] = append(p.zones[zone], &copied)
}

func (p *InMemoryProvider) remove(zone string, record *endpoint.Record) {
	records := p.zones[zone]
	for i, r := range records {
		if (record.ID != "" && r.ID == record.ID) || (record.ID == "" && r.Key() == record.Key()) {
			p.zones[zone] = append(records[:i], records[i+1:]...)
			return
		}
	}
	log.Debugf("inmemory: delete of unknown record %q", record.Key())
}
