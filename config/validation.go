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

package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
)

var listNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Field paths in errors use the json names clients actually sent.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	must(v.RegisterValidation("listname", func(fl validator.FieldLevel) bool {
		return listNamePattern.MatchString(fl.Field().String())
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Validate checks the document's schema and cross-references. All problems
// are collected into one ValidationError rather than failing on the first.
func Validate(cfg *Config) error {
	var fields []string

	if err := validate.Struct(cfg); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				path := strings.TrimPrefix(fe.Namespace(), "Config.")
				fields = append(fields, fmt.Sprintf("%s: failed %q validation", path, fe.Tag()))
			}
		}
	}

	fields = append(fields, semanticChecks(cfg)...)
	if len(fields) > 0 {
		return errs.NewValidation(fields...)
	}
	return nil
}

func semanticChecks(cfg *Config) []string {
	var fields []string

	listNames := map[string]bool{}
	for i, list := range cfg.NamedCIDRLists {
		if listNames[list.Name] {
			fields = append(fields, fmt.Sprintf("namedCIDRLists[%d].name: duplicate list name %q", i, list.Name))
		}
		listNames[list.Name] = true
	}

	taskIDs := map[string]bool{}
	for i, task := range cfg.GenerationTasks {
		if taskIDs[task.ID] {
			fields = append(fields, fmt.Sprintf("generationTasks[%d].id: duplicate task id %q", i, task.ID))
		}
		taskIDs[task.ID] = true

		for j, tmpl := range task.RecordTemplates {
			for _, text := range []string{tmpl.Name, tmpl.Value, tmpl.SRVTarget} {
				for _, match := range cidrVarPattern.FindAllStringSubmatch(text, -1) {
					for _, listName := range strings.Split(match[1], ",") {
						listName = strings.TrimSpace(listName)
						if !listNames[listName] {
							fields = append(fields, fmt.Sprintf(
								"generationTasks[%d].recordTemplates[%d]: unknown CIDR list %q", i, j, listName))
						}
					}
				}
			}
		}
	}

	return fields
}
