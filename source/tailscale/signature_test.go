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

package tailscale

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignature(t *testing.T) {
	body := []byte(`{"event":"nodeCreated"}`)
	header := Sign("hook-secret", body)

	require.NoError(t, ValidateSignature("hook-secret", header, body, false))
	// uppercase hex from the sender is accepted
	require.NoError(t, ValidateSignature("hook-secret", strings.ToUpper(header), body, false))

	assert.ErrorIs(t, ValidateSignature("hook-secret", header, []byte("tampered"), false), ErrBadSignature)
	assert.ErrorIs(t, ValidateSignature("other-secret", header, body, false), ErrBadSignature)
	assert.ErrorIs(t, ValidateSignature("hook-secret", "", body, false), ErrMissingSignature)
	assert.ErrorIs(t, ValidateSignature("hook-secret", "   ", body, false), ErrMissingSignature)
}

func TestValidateSignatureNoStoredSecret(t *testing.T) {
	body := []byte(`{}`)

	assert.ErrorIs(t, ValidateSignature("", "whatever", body, false), ErrMissingSignature)
	// explicitly allowed deployments accept unsigned deliveries
	assert.NoError(t, ValidateSignature("", "", body, true))
}

func TestSignIsDeterministicHex(t *testing.T) {
	sig := Sign("secret", []byte("body"))
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Sign("secret", []byte("body")))
	assert.NotEqual(t, sig, Sign("secret", []byte("other")))
}
