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

package plan

import (
	"time"

	"github.com/cloudmesh/cf-ts-dns/endpoint"
)

// Summary is the flat counters block of a SyncResult.
type Summary struct {
	AddedCount      int `json:"addedCount"`
	DeletedCount    int `json:"deletedCount"`
	TotalMachines   int `json:"totalMachines"`
	MatchedMachines int `json:"matchedMachines"`
}

// SyncResult reports what one sync did, or would do under dry run.
type SyncResult struct {
	Added   []*endpoint.Record `json:"added"`
	Deleted []*endpoint.Record `json:"deleted"`
	Managed []*endpoint.Record `json:"managed"`
	Summary Summary            `json:"summary"`
	DryRun  bool               `json:"dryRun"`
	Time    time.Time          `json:"time"`
}
