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
	"context"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RequiredSubscriptions are the inventory events that must reach the
// webhook receiver for syncs to track machine churn.
var RequiredSubscriptions = []string{"nodeCreated", "nodeDeleted"}

// Webhook is one configured webhook endpoint in the tailnet.
type Webhook struct {
	EndpointID    string   `json:"endpointId"`
	EndpointURL   string   `json:"endpointUrl"`
	Subscriptions []string `json:"subscriptions"`
	// Secret is set only in the response to a create; it cannot be
	// retrieved again and must be persisted immediately.
	Secret string `json:"secret,omitempty"`
}

// ListWebhooks returns all webhooks configured for the tailnet.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var resp struct {
		Webhooks []Webhook `json:"webhooks"`
	}
	path := fmt.Sprintf("/api/v2/tailnet/%s/webhooks", c.tailnet)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Webhooks, nil
}

// CreateWebhook registers a new webhook endpoint and returns it including
// the one-time secret.
func (c *Client) CreateWebhook(ctx context.Context, url string, subscriptions []string) (*Webhook, error) {
	body := map[string]interface{}{
		"endpointUrl":   url,
		"providerType":  "",
		"subscriptions": subscriptions,
	}
	var created Webhook
	path := fmt.Sprintf("/api/v2/tailnet/%s/webhooks", c.tailnet)
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateWebhook replaces an existing webhook's subscription set.
func (c *Client) UpdateWebhook(ctx context.Context, endpointID string, subscriptions []string) error {
	body := map[string]interface{}{"subscriptions": subscriptions}
	path := "/api/v2/webhooks/" + endpointID
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// DeleteWebhook removes a webhook endpoint.
func (c *Client) DeleteWebhook(ctx context.Context, endpointID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v2/webhooks/"+endpointID, nil, nil)
}

// NormalizeWebhookURL strips a trailing slash and appends the /webhook path
// when the URL does not already end in it.
func NormalizeWebhookURL(url string) string {
	url = strings.TrimSuffix(url, "/")
	if !strings.HasSuffix(url, "/webhook") {
		url += "/webhook"
	}
	return url
}

// EnsureResult describes what EnsureWebhook did.
type EnsureResult struct {
	EndpointID string
	// Secret is non-empty only when a webhook was created in this call.
	Secret  string
	Created bool
	Updated bool
}

// EnsureWebhook converges the tailnet's webhook configuration on the target
// URL. An existing webhook at the normalized URL whose subscriptions already
// cover the required set is left alone; one with missing subscriptions gets
// the union of both sets; otherwise a new webhook is created.
func (c *Client) EnsureWebhook(ctx context.Context, targetURL string) (*EnsureResult, error) {
	target := NormalizeWebhookURL(targetURL)

	webhooks, err := c.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}
	for _, hook := range webhooks {
		if NormalizeWebhookURL(hook.EndpointURL) != target {
			continue
		}
		if hasAll(hook.Subscriptions, RequiredSubscriptions) {
			log.Debugf("webhook %s already subscribed to %v", hook.EndpointID, RequiredSubscriptions)
			return &EnsureResult{EndpointID: hook.EndpointID}, nil
		}
		merged := union(hook.Subscriptions, RequiredSubscriptions)
		if err := c.UpdateWebhook(ctx, hook.EndpointID, merged); err != nil {
			return nil, err
		}
		log.Infof("updated webhook %s subscriptions to %v", hook.EndpointID, merged)
		return &EnsureResult{EndpointID: hook.EndpointID, Updated: true}, nil
	}

	created, err := c.CreateWebhook(ctx, target, RequiredSubscriptions)
	if err != nil {
		return nil, err
	}
	log.Infof("created webhook %s for %s", created.EndpointID, target)
	return &EnsureResult{EndpointID: created.EndpointID, Secret: created.Secret, Created: true}, nil
}

func hasAll(have, want []string) bool {
	set := map[string]bool{}
	for _, s := range have {
		set[s] = true
	}
	for _, s := range want {
		if !set[s] {
			return false
		}
	}
	return true
}

func union(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
