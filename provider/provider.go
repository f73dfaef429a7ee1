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
	"context"
	"errors"
	"fmt"

	"github.com/cloudmesh/cf-ts-dns/endpoint"
	"github.com/cloudmesh/cf-ts-dns/plan"
)

// Provider is the subset of a DNS backend the reconciler needs.
type Provider interface {
	// OwnedRecords lists records across all zones whose comment starts with
	// the given prefix. The prefix filter is evaluated server-side.
	OwnedRecords(ctx context.Context, commentPrefix string) ([]*endpoint.Record, error)
	// ApplyChanges resolves zones for every record in the change set, groups
	// per zone and applies one batch per zone, deletes before creates.
	// Failure of one zone does not roll back others.
	ApplyChanges(ctx context.Context, changes *plan.Changes) error
}

// SoftError is an error that tells the sync loop the run failed for a
// transient reason and the next tick is the retry.
var SoftError error = errors.New("soft error")

// NewSoftError wraps an error and marks it as soft.
func NewSoftError(err error) error {
	return errors.Join(SoftError, err)
}

// NewSoftErrorf creates a soft error with formatting.
func NewSoftErrorf(format string, args ...interface{}) error {
	return NewSoftError(fmt.Errorf(format, args...))
}
