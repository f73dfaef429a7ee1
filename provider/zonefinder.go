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

package provider

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/idna"
)

// ZoneIDName maps zone IDs to their apex names.
type ZoneIDName map[string]string

func (z ZoneIDName) Add(zoneID, zoneName string) {
	z[zoneID] = strings.ToLower(strings.TrimSuffix(zoneName, "."))
}

// FindZone identifies the most suitable DNS zone for a given hostname and
// returns its ID and apex name. The zone whose apex is the longest proper
// DNS suffix of the hostname wins, so for zones {example.com,
// dev.example.com} the host api.dev.example.com lands in dev.example.com.
//
// Labels containing underscores ('_') are skipped during Unicode conversion
// because they appear in special records (SRV per RFC 2782, service TXT)
// that are not IDNA-aware.
func (z ZoneIDName) FindZone(hostname string) (suitableZoneID, suitableZoneName string) {
	name := strings.ToLower(strings.TrimSuffix(hostname, "."))
	labels := strings.Split(name, ".")
	for i, label := range labels {
		if strings.Contains(label, "_") {
			continue
		}
		converted, err := idna.Lookup.ToUnicode(label)
		if err != nil {
			log.Warnf("failed to convert label %q of hostname %q to its Unicode form: %v", label, hostname, err)
			converted = label
		}
		labels[i] = converted
	}
	name = strings.Join(labels, ".")

	for zoneID, zoneName := range z {
		if name == zoneName || strings.HasSuffix(name, "."+zoneName) {
			if suitableZoneName == "" || len(zoneName) > len(suitableZoneName) {
				suitableZoneID = zoneID
				suitableZoneName = zoneName
			}
		}
	}
	return
}
