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

// Package errs defines the error taxonomy shared across the controller.
// Low-level components raise these typed errors; the trigger layer maps them
// to the uniform JSON envelope and an HTTP status.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports schema-invalid input. Field messages are qualified
// with their path inside the configuration document.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// NewValidation builds a ValidationError from field-qualified messages.
func NewValidation(fields ...string) error {
	return &ValidationError{Fields: fields}
}

// ConfigError reports required configuration missing or semantically invalid.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

func NewConfigf(format string, args ...interface{}) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// APIError reports a failed upstream call. Service names the collaborator
// ("tailscale" or "dns"); StatusCode is the upstream status when known.
type APIError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s api error (status %d): %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s api error: %v", e.Service, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPI wraps an upstream failure with its origin service.
func NewAPI(service string, statusCode int, err error) error {
	return &APIError{Service: service, StatusCode: statusCode, Err: err}
}

// AppError is a generic recoverable failure with no more specific kind.
type AppError struct {
	Err error
}

func (e *AppError) Error() string {
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppf(format string, args ...interface{}) error {
	return &AppError{Err: fmt.Errorf(format, args...)}
}

// HTTPStatus maps an error to the status code the operator API replies with.
func HTTPStatus(err error) int {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	var config *ConfigError
	if errors.As(err, &config) {
		return http.StatusBadRequest
	}
	var api *APIError
	if errors.As(err, &api) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
