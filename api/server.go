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

// Package api serves the operator HTTP surface: configuration CRUD, manual
// sync and preview endpoints, and the inventory webhook receiver.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/cloudmesh/cf-ts-dns/config"
	"github.com/cloudmesh/cf-ts-dns/endpoint"
	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
	"github.com/cloudmesh/cf-ts-dns/plan"
)

// Syncer is the controller surface the API drives.
type Syncer interface {
	Sync(ctx context.Context, trigger string, dryRun bool) (*plan.SyncResult, error)
	Preview(ctx context.Context, task *config.GenerationTask, limit int) ([]*endpoint.Record, error)
	EnsureWebhook(ctx context.Context) error
	ScheduleRunOnce(now time.Time)
}

// ServerConfig wires the API's collaborators.
type ServerConfig struct {
	Store  *config.Store
	Syncer Syncer
	// AllowUnsignedWebhooks accepts webhook deliveries when no secret is
	// stored yet, instead of rejecting them.
	AllowUnsignedWebhooks bool
}

// Server holds the handler state behind the router.
type Server struct {
	store         *config.Store
	syncer        Syncer
	allowUnsigned bool
}

// NewServer builds the API server.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		store:         cfg.Store,
		syncer:        cfg.Syncer,
		allowUnsigned: cfg.AllowUnsignedWebhooks,
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/settings", s.getSettings)
	r.Put("/settings", s.putSettings)

	r.Route("/cidr-lists", func(r chi.Router) {
		r.Get("/", s.listCIDRLists)
		r.Post("/", s.createCIDRList)
		r.Get("/{name}", s.getCIDRList)
		r.Put("/{name}", s.updateCIDRList)
		r.Delete("/{name}", s.deleteCIDRList)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.listTasks)
		r.Post("/", s.createTask)
		r.Get("/{id}", s.getTask)
		r.Put("/{id}", s.updateTask)
		r.Delete("/{id}", s.deleteTask)
	})

	r.Post("/manual-sync", s.manualSync)
	r.Get("/sync-status", s.syncStatus)
	r.Post("/preview", s.preview)

	r.Get("/webhook", s.registerWebhook)
	r.Post("/webhook", s.receiveWebhook)

	return r
}

// envelope is the uniform response shape of every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Errorf("encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
	} else {
		log.Debugf("request rejected: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

func decodeBody(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(out); err != nil {
		return errs.NewValidation("body: " + err.Error())
	}
	return nil
}
