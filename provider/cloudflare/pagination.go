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

import "iter"

// autoPager is the subset of the SDK auto-pagination iterator we consume.
// Declared locally so tests can substitute a mock pager.
type autoPager[T any] interface {
	Next() bool
	Current() T
	Err() error
}

// autoPagerIterator adapts an SDK auto pager to a range-over-func sequence.
// The caller must check pager.Err() after the loop finishes.
func autoPagerIterator[T any](pager autoPager[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for pager.Next() {
			if !yield(pager.Current()) {
				return
			}
		}
	}
}
