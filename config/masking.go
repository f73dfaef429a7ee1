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

// maskChar is the character secrets are replaced with on reads.
const maskChar = '*'

// maskLength is fixed so a masked value leaks nothing about the secret's size.
const maskLength = 8

// Mask returns the placeholder shown in place of a non-empty secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	out := make([]byte, maskLength)
	for i := range out {
		out[i] = maskChar
	}
	return string(out)
}

// IsMasked reports whether a value is a mask placeholder: non-empty, one
// repeated character, and that character not alphanumeric. Any such value on
// a write means "keep the stored secret", so real secrets are never all one
// punctuation character.
func IsMasked(value string) bool {
	if value == "" {
		return false
	}
	first := value[0]
	if isAlphanumeric(first) {
		return false
	}
	for i := 1; i < len(value); i++ {
		if value[i] != first {
			return false
		}
	}
	return true
}

func isAlphanumeric(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// secretFields enumerates the maskable fields of a Config.
func secretFields(c *Config) []*string {
	return []*string{&c.TailscaleAPIKey, &c.CloudflareAPIToken, &c.WebhookSecret}
}

// Masked returns a copy of the document with every secret replaced by its
// mask placeholder. This is the only shape reads hand out.
func (c *Config) Masked() *Config {
	masked := *c
	for _, field := range secretFields(&masked) {
		*field = Mask(*field)
	}
	return &masked
}

// restoreSecrets replaces masked secret values in next with the byte-exact
// values from prior, so a client can round-trip a masked read into a write
// without losing credentials.
func restoreSecrets(next, prior *Config) {
	nextFields := secretFields(next)
	priorFields := secretFields(prior)
	for i, field := range nextFields {
		if IsMasked(*field) {
			*field = *priorFields[i]
		}
	}
}
