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
	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/config"
	"github.com/cloudmesh/cf-ts-dns/endpoint"
)

const (
	defaultSRVPriority uint16 = 10
	defaultSRVWeight   uint16 = 10
	defaultSRVPort     uint16 = 80
)

// Generate runs every enabled task, in declaration order, over the machine
// inventory and returns the desired records. It also reports how many
// distinct machines matched at least one task.
func Generate(cfg *config.Config, machines []*Machine, ownerID string) ([]*endpoint.Record, int) {
	var records []*endpoint.Record
	matched := map[string]bool{}

	for i := range cfg.GenerationTasks {
		task := &cfg.GenerationTasks[i]
		if !task.Enabled {
			continue
		}
		taskRecords, taskMatches := GenerateTask(cfg, task, machines, ownerID)
		records = append(records, taskRecords...)
		for _, match := range taskMatches {
			matched[match.Machine.ID] = true
		}
	}
	return records, len(matched)
}

// GenerateTask runs one task regardless of its enabled flag. The preview
// endpoint uses it directly.
func GenerateTask(cfg *config.Config, task *config.GenerationTask, machines []*Machine, ownerID string) ([]*endpoint.Record, []Match) {
	matches := SelectMachines(machines, task.MachineSelector)

	var records []*endpoint.Record
	for _, match := range matches {
		ctx := &TemplateContext{Machine: match.Machine, Captures: match.Captures, Config: cfg}
		for i := range task.RecordTemplates {
			records = append(records, generateFromTemplate(&task.RecordTemplates[i], ctx, ownerID)...)
		}
	}
	return records, matches
}

func generateFromTemplate(tmpl *config.RecordTemplate, ctx *TemplateContext, ownerID string) []*endpoint.Record {
	names, err := EvaluateTemplate(tmpl.Name, ctx)
	if err != nil {
		log.Warnf("skipping record for machine %q: name template %q: %v", ctx.Machine.MachineName(), tmpl.Name, err)
		return nil
	}
	values, err := EvaluateTemplate(tmpl.Value, ctx)
	if err != nil {
		log.Warnf("skipping record for machine %q: value template %q: %v", ctx.Machine.MachineName(), tmpl.Value, err)
		return nil
	}
	if len(names) == 0 || len(values) == 0 {
		log.Debugf("suppressing record for machine %q: template %q/%q yielded no values",
			ctx.Machine.MachineName(), tmpl.Name, tmpl.Value)
		return nil
	}

	comment := endpoint.OwnershipComment(ownerID, ctx.Machine.MachineName())
	ttl := endpoint.TTL(tmpl.TTL)
	if !ttl.IsConfigured() {
		ttl = endpoint.DefaultTTL
	}

	var records []*endpoint.Record
	for _, name := range names {
		for _, value := range values {
			record := &endpoint.Record{
				Type:    tmpl.RecordType,
				Name:    name,
				TTL:     ttl,
				Comment: comment,
			}
			if tmpl.RecordType == endpoint.RecordTypeSRV {
				record.Priority = srvDefault(tmpl.Priority, defaultSRVPriority)
				record.Weight = srvDefault(tmpl.Weight, defaultSRVWeight)
				record.Port = srvDefault(tmpl.Port, defaultSRVPort)
				record.Target = value
			} else {
				record.Content = value
				record.Proxied = tmpl.Proxied && endpoint.ProxyAllowed(tmpl.RecordType)
			}
			records = append(records, record)

			if srv := associatedSRV(tmpl, ctx, record, comment); srv != nil {
				records = append(records, srv)
			}
		}
	}
	return records
}

// associatedSRV emits the companion SRV record for an A/AAAA/CNAME template
// that sets srvPrefix. Its target is the evaluated srvTarget, or the primary
// record's name when none is configured. Always non-proxied.
func associatedSRV(tmpl *config.RecordTemplate, ctx *TemplateContext, primary *endpoint.Record, comment string) *endpoint.Record {
	if tmpl.SRVPrefix == "" || !endpoint.ProxyAllowed(tmpl.RecordType) {
		return nil
	}

	target := primary.Name
	if tmpl.SRVTarget != "" {
		evaluated, err := MustEvaluateOne(tmpl.SRVTarget, ctx)
		if err != nil {
			log.Warnf("skipping associated SRV for %q: target template %q: %v", primary.Name, tmpl.SRVTarget, err)
			return nil
		}
		if evaluated == "" {
			return nil
		}
		target = evaluated
	}

	return &endpoint.Record{
		Type:     endpoint.RecordTypeSRV,
		Name:     tmpl.SRVPrefix + "." + primary.Name,
		TTL:      primary.TTL,
		Comment:  comment,
		Priority: srvDefault(tmpl.Priority, defaultSRVPriority),
		Weight:   srvDefault(tmpl.Weight, defaultSRVWeight),
		Port:     srvDefault(tmpl.Port, defaultSRVPort),
		Target:   target,
	}
}

func srvDefault(value, fallback uint16) uint16 {
	if value == 0 {
		return fallback
	}
	return value
}
