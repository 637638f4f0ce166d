// Package spigot talks to the two Spigot-side marketplace APIs: the simple
// API for exact author lookups and the Spiget API for id lookups and fuzzy
// search. Every operation returns (statusCode, payload) where statusCode 0
// means a transport or timeout failure; callers must treat 0 as "service
// unavailable", never as "not found". No operation retries.
package spigot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/TechMC-Studios/discord-bot/internal/config"
)

const (
	// MaxSearchResults caps the total number of search matches fetched.
	MaxSearchResults = 100
	// MaxPageSize caps one page of search results (Discord select limit).
	MaxPageSize = 25
)

// Client is a Spigot/Spiget API client.
type Client struct {
	spigotBase string
	spigetBase string
	httpClient *http.Client
}

// NewClient creates a client from the verification module config.
func NewClient(cfg config.SpigotConfig) *Client {
	return &Client{
		spigotBase: cfg.SpigotBase,
		spigetBase: cfg.SpigetBase,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// get performs a GET request and returns the raw status and body. Transport
// failures collapse to (0, nil).
func (c *Client) get(ctx context.Context, rawURL string) (int, json.RawMessage) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil
	}
	return resp.StatusCode, body
}

// GetAuthorByID fetches an author by numeric ID from the Spigot simple API.
func (c *Client) GetAuthorByID(ctx context.Context, authorID string) (int, json.RawMessage) {
	return c.get(ctx, fmt.Sprintf("%sgetAuthor&id=%s", c.spigotBase, url.QueryEscape(authorID)))
}

// FindAuthorByName fetches an author by exact username from the Spigot
// simple API. The API requires an exact, case-sensitive match; there is no
// fuzzy fallback at this layer.
func (c *Client) FindAuthorByName(ctx context.Context, name string) (int, json.RawMessage) {
	return c.get(ctx, fmt.Sprintf("%sfindAuthor&name=%s", c.spigotBase, url.QueryEscape(name)))
}

// SearchGetAuthorByID fetches an author by ID from Spiget. Search results
// are not trusted as authoritative; selections get re-resolved through this
// call before verification continues.
func (c *Client) SearchGetAuthorByID(ctx context.Context, authorID string) (int, json.RawMessage) {
	return c.get(ctx, fmt.Sprintf("%s/authors/%s", c.spigetBase, url.PathEscape(authorID)))
}

// SearchAuthors runs a fuzzy author search on Spiget. size is clamped to
// MaxSearchResults and page starts at 1.
func (c *Client) SearchAuthors(ctx context.Context, query string, size, page int) (int, json.RawMessage) {
	if size <= 0 || size > MaxSearchResults {
		size = MaxSearchResults
	}
	if page < 1 {
		page = 1
	}
	u := fmt.Sprintf("%s/search/authors/%s?field=name&size=%d&page=%d",
		c.spigetBase, url.PathEscape(query), size, page)
	return c.get(ctx, u)
}

// CheckHealth probes the Spiget status endpoint. A single unauthenticated
// call with no retry; the result gates the UI, it is not proof of full
// functionality.
func (c *Client) CheckHealth(ctx context.Context) bool {
	status, _ := c.get(ctx, c.spigetBase+"/status")
	return status == http.StatusOK
}
