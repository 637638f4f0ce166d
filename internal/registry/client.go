// Package registry talks to the internal verification registry, the system
// of record for marketplace-account to Discord links and verified resource
// purchases. Every request authenticates with an API key header. Operations
// return status 0 for transport failures and otherwise pass the HTTP status
// through so callers can distinguish "no record" from "registry down".
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/TechMC-Studios/discord-bot/internal/config"
)

// Resource is one verified purchase on a registry user record.
type Resource struct {
	Slug       string `json:"slug"`
	VerifiedAt string `json:"verified_at"`
}

// User is a registry record for one marketplace account.
type User struct {
	DiscordID string
	Resources []Resource
}

// Client is a registry API client.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client from the verification module config.
func NewClient(cfg config.RegistryConfig) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// request performs one authenticated call. Transport failures collapse to
// (0, nil).
func (c *Client) request(ctx context.Context, method, path string, body any) (int, json.RawMessage) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil
	}
	return resp.StatusCode, payload
}

// GetUser fetches the registry record for a marketplace account. The User
// is nil unless the status is 200 and the record parses.
func (c *Client) GetUser(ctx context.Context, platform, externalID string) (int, *User) {
	status, payload := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/users/%s/%s", url.PathEscape(platform), url.PathEscape(externalID)), nil)
	if status != http.StatusOK {
		return status, nil
	}
	return status, parseUser(payload)
}

// GetUserByDiscord reverse-looks-up the marketplace account currently linked
// to a Discord user on the given platform.
func (c *Client) GetUserByDiscord(ctx context.Context, platform, discordID string) (int, *User) {
	status, payload := c.request(ctx, http.MethodGet,
		fmt.Sprintf("/users/%s/discord/%s", url.PathEscape(platform), url.PathEscape(discordID)), nil)
	if status != http.StatusOK {
		return status, nil
	}
	return status, parseUser(payload)
}

// LinkDiscord points the marketplace account at a Discord user, replacing
// any previous link.
func (c *Client) LinkDiscord(ctx context.Context, platform, externalID, discordID string) int {
	status, _ := c.request(ctx, http.MethodPost,
		fmt.Sprintf("/users/%s/%s/discord", url.PathEscape(platform), url.PathEscape(externalID)),
		map[string]string{"discordId": discordID})
	return status
}

// Verify registers one verified purchase. The registry answers 409 when the
// purchase is already on record, which callers treat the same as a fresh
// 200.
func (c *Client) Verify(ctx context.Context, platform, externalID, username, resourceSlug string) int {
	body := map[string]string{
		platform + "UserId":   externalID,
		platform + "Username": username,
		"resourceSlug":        resourceSlug,
	}
	status, _ := c.request(ctx, http.MethodPost, "/verify/"+url.PathEscape(platform), body)
	return status
}

// ListResources fetches the slugs of every resource the registry knows.
func (c *Client) ListResources(ctx context.Context) (int, []string) {
	status, payload := c.request(ctx, http.MethodGet, "/resources/", nil)
	if status != http.StatusOK {
		return status, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(payload, &items); err != nil {
		return status, nil
	}
	slugs := make([]string, 0, len(items))
	for _, item := range items {
		if slug, ok := item["slug"].(string); ok && slug != "" {
			slugs = append(slugs, slug)
		}
	}
	return status, slugs
}

// CheckHealth probes the registry health endpoint.
func (c *Client) CheckHealth(ctx context.Context) bool {
	status, _ := c.request(ctx, http.MethodGet, "/health", nil)
	return status == http.StatusOK
}

// parseUser tolerates the Discord ID key variants the registry has shipped
// over time.
func parseUser(payload json.RawMessage) *User {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil
	}

	u := &User{}
	for _, key := range []string{"discord_id", "discordId", "discord"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var id string
		if err := json.Unmarshal(raw, &id); err == nil && id != "" {
			u.DiscordID = id
			break
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			u.DiscordID = n.String()
			break
		}
	}
	if raw, ok := fields["resources"]; ok {
		_ = json.Unmarshal(raw, &u.Resources)
	}
	return u
}
