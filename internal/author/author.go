// Package author normalizes the heterogeneous author payloads returned by
// the marketplace APIs into a single Info shape. Parsing failures return nil
// rather than an error: a payload without the required fields is a
// validation miss, distinct from a transport failure, and callers surface
// both as "not found".
package author

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Info is the normalized external identity used by the verification
// workflow. DiscordName is empty when the provider never received a Discord
// handle for the account.
type Info struct {
	ID          string
	Username    string
	DiscordName string
}

// ParseSpigot normalizes a Spigot simple-API author payload
// (getAuthor/findAuthor): {id, username, identities:{discord}}.
func ParseSpigot(payload json.RawMessage) *Info {
	fields := decode(payload)
	if fields == nil {
		return nil
	}
	return build(fields, "username", "name")
}

// ParseSpiget normalizes a Spiget author payload (/authors/{id} or a search
// item): {id, name, identities:{discord}}.
func ParseSpiget(payload json.RawMessage) *Info {
	fields := decode(payload)
	if fields == nil {
		return nil
	}
	return build(fields, "name", "username")
}

// ParseSpigetSearchList normalizes a Spiget search response, dropping items
// that fail normalization.
func ParseSpigetSearchList(payload json.RawMessage) []Info {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil
	}
	out := make([]Info, 0, len(items))
	for _, item := range items {
		if ai := ParseSpiget(item); ai != nil {
			out = append(out, *ai)
		}
	}
	return out
}

func decode(payload json.RawMessage) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil
	}
	return fields
}

func build(fields map[string]any, usernameKey, altUsernameKey string) *Info {
	id := asString(fields["id"])
	username := asString(fields[usernameKey])
	if username == "" {
		username = asString(fields[altUsernameKey])
	}
	if id == "" || username == "" {
		return nil
	}
	return &Info{
		ID:          id,
		Username:    username,
		DiscordName: extractDiscord(fields),
	}
}

// extractDiscord probes the handle locations seen across provider variants:
// identities.discord first, then top-level discord, then social.discord.
func extractDiscord(fields map[string]any) string {
	if identities, ok := fields["identities"].(map[string]any); ok {
		if v := strings.TrimSpace(asString(identities["discord"])); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(asString(fields["discord"])); v != "" {
		return v
	}
	if social, ok := fields["social"].(map[string]any); ok {
		if v := strings.TrimSpace(asString(social["discord"])); v != "" {
			return v
		}
	}
	return ""
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return ""
	}
}
