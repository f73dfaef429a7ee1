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

package plan

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/endpoint"
)

// Plan can convert the desired record set and the backend-owned record set to
// a series of create and delete actions. There are no in-place updates: a
// drifted record is deleted and re-created in the same batch.
type Plan struct {
	// Records the generator wants to exist.
	Desired []*endpoint.Record
	// Records read back from the backend via the ownership comment filter.
	Owned []*endpoint.Record
	// OwnerID scopes deletion eligibility.
	OwnerID string
	// List of changes necessary to move towards desired state.
	// Populated after calling Calculate().
	Changes *Changes
}

// Changes holds lists of actions to be executed by the DNS backend.
type Changes struct {
	// Records that need to be created.
	Create []*endpoint.Record
	// Records that need to be deleted.
	Delete []*endpoint.Record
	// Owned records that shared a record key with another owned record.
	// They are always deleted; a still-desired key is re-created in the
	// same change set.
	Duplicates []*endpoint.Record
}

// HasChanges returns true if there are any creates or deletes to perform.
func (c *Changes) HasChanges() bool {
	return len(c.Create) > 0 || len(c.Delete) > 0
}

// Calculate computes the actions needed to move the owned state towards the
// desired state. It returns a copy of Plan with the changes populated.
//
// Output order is stable: creates and deletes are sorted by record key so a
// dry run over a fixed snapshot is byte-identical across runs.
func (p *Plan) Calculate() *Plan {
	changes := &Changes{}

	// Later tasks override earlier ones on key collision, so desired records
	// are folded into a map with last write winning.
	desired := map[string]*endpoint.Record{}
	var desiredKeys []string
	for _, r := range p.Desired {
		key := r.Key()
		if _, ok := desired[key]; !ok {
			desiredKeys = append(desiredKeys, key)
		}
		desired[key] = r
	}

	grouped := map[string][]*endpoint.Record{}
	for _, r := range p.Owned {
		grouped[r.Key()] = append(grouped[r.Key()], r)
	}
	owned := map[string]*endpoint.Record{}
	for key, records := range grouped {
		if len(records) > 1 {
			// Backend records sharing a key are all torn down without
			// checking any of them against the desired record. A still
			// desired key lands in Create below; deletes run before
			// creates inside a batch, so the replacement is safe.
			log.WithFields(log.Fields{"key": key, "count": len(records)}).Warn("duplicate owned records, scheduling delete")
			changes.Duplicates = append(changes.Duplicates, records...)
			changes.Delete = append(changes.Delete, records...)
			continue
		}
		owned[key] = records[0]
	}

	for _, key := range desiredKeys {
		want := desired[key]
		have, exists := owned[key]
		if !exists {
			changes.Create = append(changes.Create, want)
			continue
		}
		if have.Comment != want.Comment || have.Proxied != want.Proxied {
			log.WithFields(log.Fields{
				"record":  want.Name,
				"type":    want.Type,
				"comment": have.Comment,
				"proxied": have.Proxied,
			}).Debug("record drifted, scheduling replace")
			changes.Delete = append(changes.Delete, have)
			changes.Create = append(changes.Create, want)
		}
	}

	for key, have := range owned {
		if _, wanted := desired[key]; wanted {
			continue
		}
		if !endpoint.OwnedBy(have.Comment, p.OwnerID) {
			// Not ours; leave foreign records untouched.
			continue
		}
		changes.Delete = append(changes.Delete, have)
	}

	sortRecords(changes.Create)
	sortRecords(changes.Delete)
	sortRecords(changes.Duplicates)

	return &Plan{
		Desired: p.Desired,
		Owned:   p.Owned,
		OwnerID: p.OwnerID,
		Changes: changes,
	}
}

func sortRecords(records []*endpoint.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Key() != records[j].Key() {
			return records[i].Key() < records[j].Key()
		}
		// Duplicates share a key; fall back to backend ID for stability.
		return records[i].ID < records[j].ID
	})
}
