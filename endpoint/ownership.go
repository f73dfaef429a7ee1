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

package endpoint

import "fmt"

// commentPrefix is the literal marker identifying records managed by this
// controller. It is the sole criterion for deletion eligibility.
const commentPrefix = "cf-ts-dns"

// maxCommentLength matches the Cloudflare free-tier record comment limit.
// Longer comments are clipped at the trailing machine name, which can make
// two very long machine names share a comment; record keys stay distinct.
const maxCommentLength = 100

// OwnershipPrefix returns the comment prefix claiming records for ownerID.
func OwnershipPrefix(ownerID string) string {
	return fmt.Sprintf("%s:%s:", commentPrefix, ownerID)
}

// OwnershipComment builds the record comment for a record generated from the
// given machine, clipped to the backend comment limit.
func OwnershipComment(ownerID, machineName string) string {
	comment := OwnershipPrefix(ownerID) + machineName
	if len(comment) > maxCommentLength {
		comment = comment[:maxCommentLength]
	}
	return comment
}

// OwnedBy reports whether a record comment claims ownership for ownerID.
func OwnedBy(comment, ownerID string) bool {
	prefix := OwnershipPrefix(ownerID)
	return len(comment) >= len(prefix) && comment[:len(prefix)] == prefix
}
