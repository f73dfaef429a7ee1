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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloudmesh/cf-ts-dns/config"
	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
)

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Read(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cfg)
}

// putSettings replaces the whole document. Masked secret values in the body
// keep their stored counterparts.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := decodeBody(r, &cfg); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.Write(r.Context(), &cfg); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cfg.Masked())
}

func (s *Server) listCIDRLists(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Read(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cfg.NamedCIDRLists)
}

func (s *Server) getCIDRList(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Read(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	list := cfg.FindList(chi.URLParam(r, "name"))
	if list == nil {
		respondError(w, errs.NewValidation("name: unknown CIDR list"))
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) createCIDRList(w http.ResponseWriter, r *http.Request) {
	var list config.NamedCIDRList
	if err := decodeBody(r, &list); err != nil {
		respondError(w, err)
		return
	}
	_, err := s.store.Update(r.Context(), func(cfg *config.Config) error {
		if cfg.FindList(list.Name) != nil {
			return errs.NewValidation("name: CIDR list already exists")
		}
		cfg.NamedCIDRLists = append(cfg.NamedCIDRLists, list)
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, list)
}

func (s *Server) updateCIDRList(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var list config.NamedCIDRList
	if err := decodeBody(r, &list); err != nil {
		respondError(w, err)
		return
	}
	list.Name = name
	_, err := s.store.Update(r.Context(), func(cfg *config.Config) error {
		existing := cfg.FindList(name)
		if existing == nil {
			return errs.NewValidation("name: unknown CIDR list")
		}
		*existing = list
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, list)
}

// deleteCIDRList refuses to remove a list while any record template still
// references it.
func (s *Server) deleteCIDRList(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	_, err := s.store.Update(r.Context(), func(cfg *config.Config) error {
		if cfg.FindList(name) == nil {
			return errs.NewValidation("name: unknown CIDR list")
		}
		if cfg.ListReferenced(name) {
			return errs.NewValidation("name: CIDR list is referenced by a record template")
		}
		kept := cfg.NamedCIDRLists[:0]
		for _, list := range cfg.NamedCIDRLists {
			if list.Name != name {
				kept = append(kept, list)
			}
		}
		cfg.NamedCIDRLists = kept
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Read(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, cfg.GenerationTasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Read(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	task := cfg.FindTask(chi.URLParam(r, "id"))
	if task == nil {
		respondError(w, errs.NewValidation("id: unknown task"))
		return
	}
	respond(w, http.StatusOK, task)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var task config.GenerationTask
	if err := decodeBody(r, &task); err != nil {
		respondError(w, err)
		return
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	_, err := s.store.Update(r.Context(), func(cfg *config.Config) error {
		if cfg.FindTask(task.ID) != nil {
			return errs.NewValidation("id: task already exists")
		}
		cfg.GenerationTasks = append(cfg.GenerationTasks, task)
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var task config.GenerationTask
	if err := decodeBody(r, &task); err != nil {
		respondError(w, err)
		return
	}
	task.ID = id
	_, err := s.store.Update(r.Context(), func(cfg *config.Config) error {
		existing := cfg.FindTask(id)
		if existing == nil {
			return errs.NewValidation("id: unknown task")
		}
		*existing = task
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, err := s.store.Update(r.Context(), func(cfg *config.Config) error {
		if cfg.FindTask(id) == nil {
			return errs.NewValidation("id: unknown task")
		}
		kept := cfg.GenerationTasks[:0]
		for _, task := range cfg.GenerationTasks {
			if task.ID != id {
				kept = append(kept, task)
			}
		}
		cfg.GenerationTasks = kept
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, nil)
}
