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

package endpoint

import (
	"fmt"
)

const (
	// RecordTypeA is a RecordType enum value
	RecordTypeA = "A"
	// RecordTypeAAAA is a RecordType enum value
	RecordTypeAAAA = "AAAA"
	// RecordTypeCNAME is a RecordType enum value
	RecordTypeCNAME = "CNAME"
	// RecordTypeTXT is a RecordType enum value
	RecordTypeTXT = "TXT"
	// RecordTypeSRV is a RecordType enum value
	RecordTypeSRV = "SRV"
)

// KnownRecordTypes are the record types a generation task may emit.
var KnownRecordTypes = []string{
	RecordTypeA,
	RecordTypeAAAA,
	RecordTypeCNAME,
	RecordTypeSRV,
	RecordTypeTXT,
}

// TTL is a structure defining the TTL of a DNS record
type TTL int64

// DefaultTTL is applied when a record template does not set one.
const DefaultTTL TTL = 300

// IsConfigured returns true if TTL is configured, false otherwise
func (ttl TTL) IsConfigured() bool {
	return ttl > 0
}

// Record is a single DNS record this controller wants to exist (or found in
// the backend). The SRV fields are only meaningful when Type is "SRV"; Key
// dispatches on Type so the two shapes cannot collide.
type Record struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	TTL     TTL    `json:"ttl,omitempty"`
	Proxied bool   `json:"proxied,omitempty"`
	// Comment carries the ownership marker, see OwnershipComment.
	Comment string `json:"comment,omitempty"`

	// SRV-only fields.
	Priority uint16 `json:"priority,omitempty"`
	Weight   uint16 `json:"weight,omitempty"`
	Port     uint16 `json:"port,omitempty"`
	Target   string `json:"target,omitempty"`

	// Populated only on records read back from the DNS backend.
	ID     string `json:"id,omitempty"`
	ZoneID string `json:"zoneId,omitempty"`
}

// Key returns the canonical identity used for diffing. Two records with equal
// keys describe the same backend record regardless of backend-assigned ID.
func (r *Record) Key() string {
	if r.Type == RecordTypeSRV {
		return fmt.Sprintf("%s:%s:%d:%d:%d:%s", r.Type, r.Name, r.Priority, r.Weight, r.Port, r.Target)
	}
	return fmt.Sprintf("%s:%s:%s", r.Type, r.Name, r.Content)
}

func (r *Record) String() string {
	if r.Type == RecordTypeSRV {
		return fmt.Sprintf("SRV %s -> %d %d %d %s", r.Name, r.Priority, r.Weight, r.Port, r.Target)
	}
	return fmt.Sprintf("%s %s -> %s", r.Type, r.Name, r.Content)
}

// NewRecord returns a record of the given type with the default TTL applied.
func NewRecord(recordType, name, content string) *Record {
	return &Record{
		Type:    recordType,
		Name:    name,
		Content: content,
		TTL:     DefaultTTL,
	}
}

// recordTypeProxySupported lists the types Cloudflare can proxy. Proxied on
// any other type is meaningless and is normalized away.
var recordTypeProxySupported = map[string]bool{
	RecordTypeA:     true,
	RecordTypeAAAA:  true,
	RecordTypeCNAME: true,
}

// ProxyAllowed reports whether the proxied flag is meaningful for the type.
func ProxyAllowed(recordType string) bool {
	return recordTypeProxySupported[recordType]
}
