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

package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/config"
	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
	"github.com/cloudmesh/cf-ts-dns/pkg/metrics"
	"github.com/cloudmesh/cf-ts-dns/source/tailscale"
)

const maxWebhookBody = 1 << 20

func (s *Server) manualSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.Sync(r.Context(), metrics.TriggerManual, false)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

// syncStatus runs a dry-run sync so the reported diff reflects the backend
// right now, not a cached snapshot.
func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.Sync(r.Context(), metrics.TriggerManual, true)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

const defaultPreviewLimit = 50

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Task  config.GenerationTask `json:"task"`
		Limit int                   `json:"limit"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}
	if body.Limit <= 0 {
		body.Limit = defaultPreviewLimit
	}
	records, err := s.syncer.Preview(r.Context(), &body.Task, body.Limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, records)
}

// registerWebhook derives this deployment's public webhook URL from the
// request, persists it, and converges the tailnet webhook onto it.
func (s *Server) registerWebhook(w http.ResponseWriter, r *http.Request) {
	url := requestBaseURL(r) + "/webhook"
	_, err := s.store.Update(r.Context(), func(cfg *config.Config) error {
		cfg.WebhookURL = url
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.syncer.EnsureWebhook(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	s.syncer.ScheduleRunOnce(time.Now())
	respond(w, http.StatusOK, map[string]string{"webhookUrl": url})
}

// receiveWebhook validates the delivery signature and triggers a full sync.
// The payload is treated as a change notification only; its contents never
// feed the diff.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, errs.NewAppf("reading webhook body: %v", err))
		return
	}

	cfg, err := s.store.ReadSecrets(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	header := r.Header.Get(tailscale.SignatureHeader)
	if err := tailscale.ValidateSignature(cfg.WebhookSecret, header, body, s.allowUnsigned); err != nil {
		log.Warnf("rejecting webhook delivery: %v", err)
		respondError(w, errs.NewValidation("signature: "+err.Error()))
		return
	}

	result, err := s.syncer.Sync(r.Context(), metrics.TriggerWebhook, false)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result.Summary)
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host
}
