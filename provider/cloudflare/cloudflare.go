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

package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go/v5"
	"github.com/cloudflare/cloudflare-go/v5/dns"
	"github.com/cloudflare/cloudflare-go/v5/option"
	"github.com/cloudflare/cloudflare-go/v5/zones"
	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/endpoint"
	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
	"github.com/cloudmesh/cf-ts-dns/plan"
	"github.com/cloudmesh/cf-ts-dns/provider"
)

type changeAction int

const (
	// cloudFlareCreate is a changeAction enum value
	cloudFlareCreate changeAction = iota
	// cloudFlareDelete is a changeAction enum value
	cloudFlareDelete

	// zoneCacheDuration is how long the zone listing is reused between syncs.
	zoneCacheDuration = 5 * time.Minute

	// maxBatchSize caps the number of operations sent per zone batch.
	maxBatchSize = 200
)

var changeActionNames = map[changeAction]string{
	cloudFlareCreate: "CREATE",
	cloudFlareDelete: "DELETE",
}

func (action changeAction) String() string {
	return changeActionNames[action]
}

// cloudFlareDNS is the subset of the CloudFlare API that we actually use.
// Add methods as required. Signatures must match exactly.
type cloudFlareDNS interface {
	ListZones(ctx context.Context, params zones.ZoneListParams) autoPager[zones.Zone]
	ListDNSRecords(ctx context.Context, params dns.RecordListParams) autoPager[dns.RecordResponse]
	CreateDNSRecord(ctx context.Context, params dns.RecordNewParams) (*dns.RecordResponse, error)
	DeleteDNSRecord(ctx context.Context, recordID string, params dns.RecordDeleteParams) error
}

type zoneService struct {
	service *cloudflare.Client
}

func (z zoneService) ListZones(ctx context.Context, params zones.ZoneListParams) autoPager[zones.Zone] {
	return z.service.Zones.ListAutoPaging(ctx, params)
}

func (z zoneService) ListDNSRecords(ctx context.Context, params dns.RecordListParams) autoPager[dns.RecordResponse] {
	return z.service.DNS.Records.ListAutoPaging(ctx, params)
}

func (z zoneService) CreateDNSRecord(ctx context.Context, params dns.RecordNewParams) (*dns.RecordResponse, error) {
	return z.service.DNS.Records.New(ctx, params)
}

func (z zoneService) DeleteDNSRecord(ctx context.Context, recordID string, params dns.RecordDeleteParams) error {
	_, err := z.service.DNS.Records.Delete(ctx, recordID, params)
	return err
}

// CloudFlareProvider is the DNS backend client for CloudFlare.
type CloudFlareProvider struct {
	Client cloudFlareDNS
	DryRun bool

	// PerPage tunes record list pagination; zero keeps the API default.
	PerPage int

	zoneCache *provider.TTLCache[zones.Zone]
}

// NewCloudFlareProvider initializes a new CloudFlare DNS based provider.
// The token is an API token with zone read and DNS edit scopes.
func NewCloudFlareProvider(token string, httpClient *http.Client, dryRun bool) (*CloudFlareProvider, error) {
	if token == "" {
		return nil, errs.NewConfigf("cloudflare api token is not configured")
	}
	opts := []option.RequestOption{option.WithAPIToken(token)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := cloudflare.NewClient(opts...)
	return &CloudFlareProvider{
		Client:    zoneService{client},
		DryRun:    dryRun,
		zoneCache: provider.NewTTLCache[zones.Zone](zoneCacheDuration),
	}, nil
}

func convertCloudflareError(err error) error {
	var apierr *cloudflare.Error
	if errors.As(err, &apierr) {
		e := errs.NewAPI("dns", apierr.StatusCode, err)
		// Rate limit errors (429) and server errors (5xx) are transient;
		// the next scheduled tick is the retry.
		if apierr.StatusCode == http.StatusTooManyRequests || apierr.StatusCode >= http.StatusInternalServerError {
			return provider.NewSoftError(e)
		}
		return e
	}
	return errs.NewAPI("dns", 0, err)
}

// Zones returns the hosted zones, reusing a cached listing for up to five
// minutes. The cache is shared across concurrent syncs.
func (p *CloudFlareProvider) Zones(ctx context.Context) ([]zones.Zone, error) {
	return p.zoneCache.Get(func() ([]zones.Zone, error) {
		var result []zones.Zone
		iter := p.Client.ListZones(ctx, zones.ZoneListParams{})
		for zone := range autoPagerIterator(iter) {
			log.WithFields(log.Fields{
				"zoneName": zone.Name,
				"zoneID":   zone.ID,
			}).Debugln("adding zone for consideration")
			result = append(result, zone)
		}
		if iter.Err() != nil {
			return nil, convertCloudflareError(iter.Err())
		}
		return result, nil
	})
}

// zoneIDName builds the suffix matcher over the current zone listing.
func (p *CloudFlareProvider) zoneIDName(ctx context.Context) (provider.ZoneIDName, error) {
	zs, err := p.Zones(ctx)
	if err != nil {
		return nil, err
	}
	mapper := provider.ZoneIDName{}
	for _, z := range zs {
		mapper.Add(z.ID, z.Name)
	}
	return mapper, nil
}

// ResolveZone returns the ID of the zone whose apex is the longest suffix of
// the given domain.
func (p *CloudFlareProvider) ResolveZone(ctx context.Context, domain string) (string, error) {
	mapper, err := p.zoneIDName(ctx)
	if err != nil {
		return "", err
	}
	zoneID, _ := mapper.FindZone(domain)
	if zoneID == "" {
		return "", errs.NewAppf("no zone found for domain %q", domain)
	}
	return zoneID, nil
}

// OwnedRecords lists records whose comment starts with the given prefix
// across all zones. The prefix filter is applied server-side and the listing
// auto-paginates.
func (p *CloudFlareProvider) OwnedRecords(ctx context.Context, commentPrefix string) ([]*endpoint.Record, error) {
	zs, err := p.Zones(ctx)
	if err != nil {
		return nil, err
	}

	var records []*endpoint.Record
	for _, zone := range zs {
		params := dns.RecordListParams{
			ZoneID:  cloudflare.F(zone.ID),
			Comment: cloudflare.F(dns.RecordListParamsComment{Startswith: cloudflare.F(commentPrefix)}),
		}
		if p.PerPage > 0 {
			params.PerPage = cloudflare.F(float64(p.PerPage))
		}
		iter := p.Client.ListDNSRecords(ctx, params)
		for r := range autoPagerIterator(iter) {
			records = append(records, toRecord(r, zone.ID))
		}
		if iter.Err() != nil {
			return nil, convertCloudflareError(iter.Err())
		}
	}
	return records, nil
}

// ApplyChanges resolves a zone for every record, groups the change set per
// zone and applies one batch per zone. A batch error fails that zone only.
func (p *CloudFlareProvider) ApplyChanges(ctx context.Context, changes *plan.Changes) error {
	if !changes.HasChanges() {
		log.Info("all records are already up to date")
		return nil
	}

	mapper, err := p.zoneIDName(ctx)
	if err != nil {
		return err
	}

	type zoneChanges struct {
		deletes []*endpoint.Record
		creates []*endpoint.Record
	}
	byZone := map[string]*zoneChanges{}
	group := func(records []*endpoint.Record, deletes bool) {
		for _, r := range records {
			zoneID := r.ZoneID
			if zoneID == "" {
				zoneID, _ = mapper.FindZone(r.Name)
			}
			if zoneID == "" {
				log.Debugf("skipping record %q because no hosted zone matching record DNS Name was detected", r.Name)
				continue
			}
			zc, ok := byZone[zoneID]
			if !ok {
				zc = &zoneChanges{}
				byZone[zoneID] = zc
			}
			if deletes {
				zc.deletes = append(zc.deletes, r)
			} else {
				zc.creates = append(zc.creates, r)
			}
		}
	}
	group(changes.Delete, true)
	group(changes.Create, false)

	var failedZones []string
	for zoneID, zc := range byZone {
		if err := p.ApplyBatch(ctx, zoneID, zc.deletes, zc.creates); err != nil {
			log.WithFields(log.Fields{"zone": zoneID}).Errorf("failed to apply batch: %v", err)
			failedZones = append(failedZones, zoneID)
		}
	}
	if len(failedZones) > 0 {
		return provider.NewSoftError(errs.NewAPI("dns", 0, fmt.Errorf("failed to submit all changes for the following zones: %q", failedZones)))
	}
	return nil
}

// ApplyBatch applies deletes then creates within one zone, chunked so that no
// more than maxBatchSize operations are in flight per chunk.
func (p *CloudFlareProvider) ApplyBatch(ctx context.Context, zoneID string, deletes, creates []*endpoint.Record) error {
	type operation struct {
		action changeAction
		record *endpoint.Record
	}
	ops := make([]operation, 0, len(deletes)+len(creates))
	for _, r := range deletes {
		ops = append(ops, operation{cloudFlareDelete, r})
	}
	for _, r := range creates {
		ops = append(ops, operation{cloudFlareCreate, r})
	}

	var failed bool
	for start := 0; start < len(ops); start += maxBatchSize {
		end := min(start+maxBatchSize, len(ops))
		for _, op := range ops[start:end] {
			logFields := log.Fields{
				"record": op.record.Name,
				"type":   op.record.Type,
				"ttl":    op.record.TTL,
				"action": op.action.String(),
				"zone":   zoneID,
			}
			log.WithFields(logFields).Info("changing record")
			if p.DryRun {
				continue
			}

			switch op.action {
			case cloudFlareDelete:
				if op.record.ID == "" {
					log.WithFields(logFields).Error("cannot delete record without backend id")
					failed = true
					continue
				}
				err := p.Client.DeleteDNSRecord(ctx, op.record.ID, dns.RecordDeleteParams{ZoneID: cloudflare.F(zoneID)})
				if err != nil {
					failed = true
					log.WithFields(logFields).Errorf("failed to delete record: %v", err)
				}
			case cloudFlareCreate:
				_, err := p.Client.CreateDNSRecord(ctx, newCreateParams(zoneID, op.record))
				if err != nil {
					failed = true
					log.WithFields(logFields).Errorf("failed to create record: %v", err)
				}
			}
		}
	}
	if failed {
		return errs.NewAPI("dns", 0, fmt.Errorf("one or more operations failed in zone %s", zoneID))
	}
	return nil
}

// newCreateParams maps a record onto the create call body. SRV data rides in
// the priority field plus a "weight port target" content string; toRecord
// reverses the mapping.
func newCreateParams(zoneID string, r *endpoint.Record) dns.RecordNewParams {
	ttl := endpoint.DefaultTTL
	if r.TTL.IsConfigured() {
		ttl = r.TTL
	}
	body := dns.RecordNewParamsBody{
		Name:    cloudflare.F(r.Name),
		Type:    cloudflare.F(dns.RecordNewParamsBodyType(r.Type)),
		TTL:     cloudflare.F(dns.TTL(ttl)),
		Comment: cloudflare.F(r.Comment),
	}
	if r.Type == endpoint.RecordTypeSRV {
		body.Priority = cloudflare.F(float64(r.Priority))
		body.Content = cloudflare.F(fmt.Sprintf("%d %d %s", r.Weight, r.Port, r.Target))
		body.Proxied = cloudflare.F(false)
	} else {
		body.Content = cloudflare.F(r.Content)
		body.Proxied = cloudflare.F(r.Proxied && endpoint.ProxyAllowed(r.Type))
	}
	return dns.RecordNewParams{
		ZoneID: cloudflare.F(zoneID),
		Body:   body,
	}
}

// toRecord maps a backend record onto the internal model.
func toRecord(r dns.RecordResponse, zoneID string) *endpoint.Record {
	record := &endpoint.Record{
		Type:    string(r.Type),
		Name:    r.Name,
		Content: r.Content,
		TTL:     endpoint.TTL(r.TTL),
		Proxied: r.Proxied,
		Comment: r.Comment,
		ID:      r.ID,
		ZoneID:  zoneID,
	}
	if record.Type == endpoint.RecordTypeSRV {
		record.Priority = uint16(r.Priority)
		record.Weight, record.Port, record.Target = parseSRVContent(r.Content)
		record.Content = ""
		record.Proxied = false
	}
	return record
}

// parseSRVContent splits the "weight port target" content written by
// newCreateParams. A four-token "priority weight port target" form, as some
// API versions return, is tolerated by dropping the leading priority.
func parseSRVContent(content string) (weight, port uint16, target string) {
	fields := strings.Fields(content)
	if len(fields) == 4 {
		fields = fields[1:]
	}
	if len(fields) != 3 {
		return 0, 0, content
	}
	w, _ := strconv.ParseUint(fields[0], 10, 16)
	p, _ := strconv.ParseUint(fields[1], 10, 16)
	return uint16(w), uint16(p), fields[2]
}
