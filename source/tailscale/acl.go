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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
)

// ACL is the tailnet policy document, reduced to the parts relevant here.
type ACL struct {
	Groups    map[string][]string `json:"groups"`
	TagOwners map[string][]string `json:"tagOwners"`
	Hosts     map[string]string   `json:"hosts"`
}

// GetACL fetches the tailnet policy. The API serves it as HuJSON (JSON with
// comments and trailing commas); it is stripped to plain JSON before
// decoding.
func (c *Client) GetACL(ctx context.Context) (*ACL, error) {
	path := fmt.Sprintf("/api/v2/tailnet/%s/acl", c.tailnet)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/hujson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.NewAPI("tailscale", 0, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewAPI("tailscale", resp.StatusCode, fmt.Errorf("GET %s", path))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	acl := &ACL{}
	if err := json.Unmarshal(stripHuJSON(body), acl); err != nil {
		return nil, errs.NewAPI("tailscale", resp.StatusCode, fmt.Errorf("parsing ACL: %w", err))
	}
	return acl, nil
}

// stripHuJSON removes // and /* */ comments plus trailing commas so the
// policy document parses as standard JSON. String contents are preserved.
// Comments go first: a trailing comma may be separated from its closing
// brace by a comment, so the comma pass must see comment-free input.
func stripHuJSON(in []byte) []byte {
	return stripTrailingCommas(stripComments(in))
}

func stripComments(in []byte) []byte {
	var out bytes.Buffer
	inString := false
	escaped := false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch {
		case ch == '"':
			inString = true
			out.WriteByte(ch)
		case ch == '/' && i+1 < len(in) && in[i+1] == '/':
			for i < len(in) && in[i] != '\n' {
				i++
			}
			if i < len(in) {
				out.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(in) && in[i+1] == '*':
			i += 2
			for i+1 < len(in) && !(in[i] == '*' && in[i+1] == '/') {
				i++
			}
			i++
		default:
			out.WriteByte(ch)
		}
	}
	return out.Bytes()
}

func stripTrailingCommas(in []byte) []byte {
	var out bytes.Buffer
	inString := false
	escaped := false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(in) && (in[j] == ' ' || in[j] == '\t' || in[j] == '\n' || in[j] == '\r') {
				j++
			}
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				continue
			}
		}
		out.WriteByte(ch)
	}
	return out.Bytes()
}
