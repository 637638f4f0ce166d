// Package polymart talks to the Polymart marketplace API. All responses wrap
// the interesting data in a {"response": {...}} envelope with a "success"
// flag; a 200 status with success=false is a logical rejection, not a
// transport failure. Operations return status 0 only when the request never
// produced an HTTP response.
package polymart

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/TechMC-Studios/discord-bot/internal/config"
)

// TokenUser is the Polymart account a verification token resolved to.
type TokenUser struct {
	ID       string
	Username string
}

// PurchaseStatus describes one resource from a purchase check.
type PurchaseStatus struct {
	Purchased      bool
	Owner          bool
	Title          string
	PurchaseTime   json.Number
	PurchaseStatus string
}

// AccountInfo is the public profile of a Polymart user or team.
type AccountInfo struct {
	Username          string
	ProfilePictureURL string
}

// Client is a Polymart API client. apiKey is the global fallback; purchase
// checks may override it per resource.
type Client struct {
	base       string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client from the verification module config.
func NewClient(cfg config.PolymartConfig) *Client {
	return &Client{
		base:   strings.TrimSuffix(cfg.Base, "/"),
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

func (c *Client) do(req *http.Request) (int, json.RawMessage) {
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

// envelope peels the {"response": {...}} wrapper. The returned map is nil
// when the body does not parse or success is false.
func envelope(payload json.RawMessage) map[string]any {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil
	}
	response, ok := data["response"].(map[string]any)
	if !ok {
		return nil
	}
	if success, _ := response["success"].(bool); !success {
		return nil
	}
	return response
}

// VerifyToken resolves a cleaned token (dashes removed) to the account that
// generated it. A nil TokenUser with a 200 status means the token was
// rejected or expired.
func (c *Client) VerifyToken(ctx context.Context, cleanToken string) (int, *TokenUser) {
	u := c.base + "/verifyUser/?token=" + url.QueryEscape(cleanToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return 0, nil
	}
	status, payload := c.do(req)
	if status != http.StatusOK {
		return status, nil
	}

	response := envelope(payload)
	if response == nil {
		return status, nil
	}
	result, _ := response["result"].(map[string]any)
	user, _ := result["user"].(map[string]any)
	id := numberOrString(user["id"])
	if id == "" {
		return status, nil
	}
	username, _ := user["username"].(string)
	return status, &TokenUser{ID: id, Username: username}
}

// CheckResourcePurchase asks whether user owns resource. resourceAPIKey
// overrides the client-wide key when non-empty (resources can live under
// different seller accounts). A nil PurchaseStatus with a 200 status means
// the API rejected the query; Purchased=false with a non-nil status means a
// definitive "has not bought it".
func (c *Client) CheckResourcePurchase(ctx context.Context, userID, resourceID, resourceAPIKey string) (int, *PurchaseStatus) {
	apiKey := resourceAPIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return 0, nil
	}

	body, err := json.Marshal(map[string]string{
		"api_key":     apiKey,
		"user_id":     userID,
		"resource_id": resourceID,
	})
	if err != nil {
		return 0, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/getResourceUserData/", bytes.NewReader(body))
	if err != nil {
		return 0, nil
	}
	req.Header.Set("Content-Type", "application/json")

	status, payload := c.do(req)
	if status != http.StatusOK {
		return status, nil
	}

	response := envelope(payload)
	if response == nil {
		return status, nil
	}
	resource, ok := response["resource"].(map[string]any)
	if !ok {
		// Successful call, resource unknown to the user: not purchased.
		return status, &PurchaseStatus{}
	}
	if id := numberOrString(resource["id"]); id != "" && id != resourceID {
		return status, &PurchaseStatus{}
	}

	purchased, _ := resource["purchaseValid"].(bool)
	title, _ := resource["title"].(string)
	purchaseTime, _ := resource["purchaseTime"].(json.Number)
	purchaseStatus, _ := resource["purchaseStatus"].(string)
	ps := &PurchaseStatus{
		Purchased:      purchased,
		Title:          title,
		PurchaseTime:   purchaseTime,
		PurchaseStatus: purchaseStatus,
	}
	// No purchase record at all usually means the queried account is the
	// resource's own author.
	if !purchased && resource["purchaseStatus"] == nil && resource["purchaseTime"] == nil {
		ps.Owner = true
	}
	return status, ps
}

// GetAccountInfo fetches the public profile for a user ID. Team accounts
// return their data under a "team" key instead of "user".
func (c *Client) GetAccountInfo(ctx context.Context, userID string) (int, *AccountInfo) {
	u := c.base + "/getAccountInfo/?user_id=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil
	}
	status, payload := c.do(req)
	if status != http.StatusOK {
		return status, nil
	}

	response := envelope(payload)
	if response == nil {
		return status, nil
	}
	account, ok := response["user"].(map[string]any)
	if !ok {
		account, ok = response["team"].(map[string]any)
	}
	if !ok {
		return status, nil
	}
	username, _ := account["username"].(string)
	picture, _ := account["profilePictureURL"].(string)
	return status, &AccountInfo{Username: username, ProfilePictureURL: picture}
}

// GenerateVerifyURL asks Polymart for a fresh verification URL the user can
// visit to mint a token.
func (c *Client) GenerateVerifyURL(ctx context.Context) (int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/generateUserVerifyURL", nil)
	if err != nil {
		return 0, ""
	}
	status, payload := c.do(req)
	if status != http.StatusOK {
		return status, ""
	}

	response := envelope(payload)
	if response == nil {
		return status, ""
	}
	result, _ := response["result"].(map[string]any)
	verifyURL, _ := result["url"].(string)
	return status, verifyURL
}

// CheckHealth probes the Polymart status endpoint.
func (c *Client) CheckHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return false
	}
	status, _ := c.do(req)
	return status == http.StatusOK
}

func numberOrString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return ""
	}
}
