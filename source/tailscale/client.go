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

// Package tailscale implements the mesh inventory client against the
// Tailscale v2 API: device listing, webhook management, and webhook
// signature validation.
package tailscale

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
	"github.com/cloudmesh/cf-ts-dns/source"
)

const defaultBaseURL = "https://api.tailscale.com"

// Client talks to the Tailscale API for one tailnet.
type Client struct {
	baseURL    string
	apiKey     string
	tailnet    string
	httpClient *http.Client
}

// NewClient builds a client. A nil httpClient falls back to
// http.DefaultClient; baseURL is overridable for tests.
func NewClient(apiKey, tailnet string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		tailnet:    tailnet,
		httpClient: httpClient,
	}
}

// WithBaseURL points the client at a different API host.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.NewAPI("tailscale", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errs.NewAPI("tailscale", resp.StatusCode,
			fmt.Errorf("%s %s: %s", method, path, bytes.TrimSpace(payload)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.NewAPI("tailscale", resp.StatusCode, fmt.Errorf("decoding %s %s response: %w", method, path, err))
	}
	return nil
}

type device struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Hostname           string   `json:"hostname"`
	Addresses          []string `json:"addresses"`
	Tags               []string `json:"tags"`
	OS                 string   `json:"os"`
	User               string   `json:"user"`
	ClientConnectivity struct {
		Endpoints []string `json:"endpoints"`
	} `json:"clientConnectivity"`
}

// ListMachines fetches all devices in the tailnet with every field
// populated; endpoints are only present with fields=all.
func (c *Client) ListMachines(ctx context.Context) ([]*source.Machine, error) {
	var resp struct {
		Devices []device `json:"devices"`
	}
	path := fmt.Sprintf("/api/v2/tailnet/%s/devices?fields=all", c.tailnet)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	machines := make([]*source.Machine, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		machines = append(machines, &source.Machine{
			ID:        d.ID,
			Name:      d.Name,
			Hostname:  d.Hostname,
			Addresses: d.Addresses,
			Tags:      d.Tags,
			Endpoints: d.ClientConnectivity.Endpoints,
			OS:        d.OS,
			User:      d.User,
		})
	}
	return machines, nil
}

var _ source.InventoryClient = &Client{}
