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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Tailscale-Signature"

var (
	ErrMissingSignature = errors.New("webhook request carries no signature")
	ErrBadSignature     = errors.New("webhook signature mismatch")
)

// Sign computes the lowercase hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks a webhook delivery against the stored secret.
// With no stored secret the request is accepted with a warning when
// allowUnsigned is set, rejected otherwise. Comparison is constant time.
func ValidateSignature(secret string, header string, body []byte, allowUnsigned bool) error {
	if secret == "" {
		if allowUnsigned {
			log.Warn("no webhook secret stored; accepting unsigned webhook request")
			return nil
		}
		return ErrMissingSignature
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(strings.ToLower(header)), []byte(expected)) {
		return ErrBadSignature
	}
	return nil
}
