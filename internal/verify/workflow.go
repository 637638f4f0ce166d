// Package verify implements the purchase-verification workflow: resolve a
// claimed marketplace identity through one of several proof methods, check
// it against the entitlement registry, and reconcile Discord roles for the
// claimant and any previous holder of the account.
package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/TechMC-Studios/discord-bot/internal/author"
	"github.com/TechMC-Studios/discord-bot/internal/config"
	"github.com/TechMC-Studios/discord-bot/internal/polymart"
	"github.com/TechMC-Studios/discord-bot/internal/registry"
	"github.com/TechMC-Studios/discord-bot/internal/spigot"
)

// State is the terminal outcome of one verification attempt.
type State string

const (
	StateVerified          State = "verified"
	StateUnavailable       State = "unavailable"
	StateInvalidInput      State = "invalid_input"
	StateNotFound          State = "not_found"
	StateOwnershipUnlinked State = "ownership_unlinked"
	StateOwnershipMismatch State = "ownership_mismatch"
	StateNotABuyer         State = "not_a_buyer"
	StateNoPurchases       State = "no_purchases"
	StateNothingRegistered State = "nothing_registered"
)

// PlatformSpigot and PlatformPolymart are the registry platform keys.
const (
	PlatformSpigot   = "spigot"
	PlatformPolymart = "polymart"
)

// SpigotAPI is the marketplace surface the workflow needs from provider A.
type SpigotAPI interface {
	GetAuthorByID(ctx context.Context, authorID string) (int, json.RawMessage)
	FindAuthorByName(ctx context.Context, name string) (int, json.RawMessage)
	SearchGetAuthorByID(ctx context.Context, authorID string) (int, json.RawMessage)
	SearchAuthors(ctx context.Context, query string, size, page int) (int, json.RawMessage)
}

// PolymartAPI is the marketplace surface the workflow needs from provider B.
type PolymartAPI interface {
	VerifyToken(ctx context.Context, cleanToken string) (int, *polymart.TokenUser)
	CheckResourcePurchase(ctx context.Context, userID, resourceID, resourceAPIKey string) (int, *polymart.PurchaseStatus)
	GetAccountInfo(ctx context.Context, userID string) (int, *polymart.AccountInfo)
}

// RegistryAPI is the entitlement registry surface the workflow needs.
type RegistryAPI interface {
	GetUser(ctx context.Context, platform, externalID string) (int, *registry.User)
	LinkDiscord(ctx context.Context, platform, externalID, discordID string) int
	Verify(ctx context.Context, platform, externalID, username, resourceSlug string) int
}

// RoleManager mutates Discord role membership. Add and remove are idempotent
// set operations on the Discord side.
type RoleManager interface {
	MemberRoles(guildID, userID string) ([]string, error)
	AddRoles(guildID, userID string, roleIDs []string, reason string) error
	RemoveRoles(guildID, userID string, roleIDs []string, reason string) error
}

// Actor is the Discord user running a verification attempt. Handle is the
// current Discord username, compared against the provider-asserted handle.
type Actor struct {
	GuildID string
	UserID  string
	Handle  string
}

// GrantedResource is one resource registered and counted for the actor.
type GrantedResource struct {
	Slug string
	Name string
}

// Outcome is the result of one verification attempt.
type Outcome struct {
	State   State
	Author  *author.Info
	Granted []GrantedResource
}

// Workflow runs verification attempts. All remote collaborators are
// injected; one Workflow serves every guild member concurrently.
type Workflow struct {
	cfg      config.VerificationConfig
	spigot   SpigotAPI
	polymart PolymartAPI
	registry RegistryAPI
	roles    RoleManager
	logger   *slog.Logger
	locks    *keyedMutex
}

// New creates a Workflow.
func New(cfg config.VerificationConfig, spigotAPI SpigotAPI, polymartAPI PolymartAPI, registryAPI RegistryAPI, roles RoleManager, logger *slog.Logger) *Workflow {
	return &Workflow{
		cfg:      cfg,
		spigot:   spigotAPI,
		polymart: polymartAPI,
		registry: registryAPI,
		roles:    roles,
		logger:   logger,
		locks:    newKeyedMutex(),
	}
}

// ByID verifies via a direct provider lookup of a numeric author ID.
func (w *Workflow) ByID(ctx context.Context, actor Actor, rawID string) Outcome {
	id := strings.TrimSpace(rawID)
	if !isDigits(id) {
		return Outcome{State: StateInvalidInput}
	}

	status, payload := w.spigot.GetAuthorByID(ctx, id)
	if status == 0 {
		return Outcome{State: StateUnavailable}
	}
	if status != http.StatusOK {
		return Outcome{State: StateNotFound}
	}
	info := author.ParseSpigot(payload)
	if info == nil {
		return Outcome{State: StateNotFound}
	}
	return w.finishSpigot(ctx, actor, info)
}

// ByURL verifies via a member profile URL. The URL only supplies the ID; the
// author record still comes from a direct lookup.
func (w *Workflow) ByURL(ctx context.Context, actor Actor, rawURL string) Outcome {
	_, id, ok := spigot.ParseProfileURL(strings.TrimSpace(rawURL))
	if !ok {
		return Outcome{State: StateInvalidInput}
	}
	return w.ByID(ctx, actor, id)
}

// ByExactName verifies via the provider's exact, case-sensitive name lookup.
func (w *Workflow) ByExactName(ctx context.Context, actor Actor, name string) Outcome {
	name = strings.TrimSpace(name)
	if name == "" {
		return Outcome{State: StateInvalidInput}
	}

	status, payload := w.spigot.FindAuthorByName(ctx, name)
	if status == 0 {
		return Outcome{State: StateUnavailable}
	}
	if status != http.StatusOK {
		return Outcome{State: StateNotFound}
	}
	info := author.ParseSpigot(payload)
	if info == nil {
		return Outcome{State: StateNotFound}
	}
	return w.finishSpigot(ctx, actor, info)
}

// Search runs a fuzzy author search, collecting up to the search cap across
// pages. The returned state is StateVerified when results exist; it never
// mutates anything.
func (w *Workflow) Search(ctx context.Context, query string) ([]author.Info, State) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, StateInvalidInput
	}

	var results []author.Info
	for page := 1; len(results) < spigot.MaxSearchResults; page++ {
		status, payload := w.spigot.SearchAuthors(ctx, query, spigot.MaxPageSize, page)
		if status == 0 {
			return nil, StateUnavailable
		}
		if status != http.StatusOK {
			// Spiget answers 404 past the last page and for zero matches.
			break
		}
		items := author.ParseSpigetSearchList(payload)
		results = append(results, items...)
		if len(items) < spigot.MaxPageSize {
			break
		}
	}
	if len(results) == 0 {
		return nil, StateNotFound
	}
	if len(results) > spigot.MaxSearchResults {
		results = results[:spigot.MaxSearchResults]
	}
	return results, StateVerified
}

// BySelection verifies a candidate picked from search results. Search
// payloads are not authoritative, so the selected ID is re-resolved through
// the precise lookup first.
func (w *Workflow) BySelection(ctx context.Context, actor Actor, selectedID string) Outcome {
	status, payload := w.spigot.SearchGetAuthorByID(ctx, selectedID)
	if status == 0 {
		return Outcome{State: StateUnavailable}
	}
	if status != http.StatusOK {
		return Outcome{State: StateNotFound}
	}
	info := author.ParseSpiget(payload)
	if info == nil {
		return Outcome{State: StateNotFound}
	}
	return w.finishSpigot(ctx, actor, info)
}

// ByToken verifies through the Polymart token exchange. The exchange itself
// proves account ownership, so this path skips the handle check and runs
// per-resource purchase checks instead of a registry profile fetch.
func (w *Workflow) ByToken(ctx context.Context, actor Actor, rawToken string) Outcome {
	if !polymart.ValidToken(rawToken) {
		return Outcome{State: StateInvalidInput}
	}

	status, user := w.polymart.VerifyToken(ctx, polymart.CleanToken(rawToken))
	if status == 0 {
		return Outcome{State: StateUnavailable}
	}
	if user == nil {
		return Outcome{State: StateNotFound}
	}
	info := &author.Info{ID: user.ID, Username: user.Username}
	if info.Username == "" {
		// Token exchanges for team-owned accounts come back without a
		// username; the public profile has it.
		if _, account := w.polymart.GetAccountInfo(ctx, user.ID); account != nil {
			info.Username = account.Username
		}
	}

	var entitled []string
	for slug, plugin := range w.cfg.Plugins {
		if plugin.PolymartID == "" {
			continue
		}
		status, purchase := w.polymart.CheckResourcePurchase(ctx, user.ID, plugin.PolymartID, plugin.PolymartAPIKey)
		if status == 0 {
			return Outcome{State: StateUnavailable, Author: info}
		}
		if purchase != nil && (purchase.Purchased || purchase.Owner) {
			entitled = append(entitled, slug)
		}
	}
	if len(entitled) == 0 {
		return Outcome{State: StateNoPurchases, Author: info}
	}

	granted := w.transferEntitlements(ctx, actor, PlatformPolymart, user.ID, info.Username, entitled)
	return Outcome{State: StateVerified, Author: info, Granted: granted}
}

// finishSpigot runs the ownership check and registry check shared by the
// spigot-style proof methods, then hands over to entitlement transfer.
func (w *Workflow) finishSpigot(ctx context.Context, actor Actor, info *author.Info) Outcome {
	if info.DiscordName == "" {
		return Outcome{State: StateOwnershipUnlinked, Author: info}
	}
	if !strings.EqualFold(info.DiscordName, actor.Handle) {
		return Outcome{State: StateOwnershipMismatch, Author: info}
	}

	status, user := w.registry.GetUser(ctx, PlatformSpigot, info.ID)
	if status == 0 {
		return Outcome{State: StateUnavailable, Author: info}
	}
	if status != http.StatusOK || user == nil {
		return Outcome{State: StateNotABuyer, Author: info}
	}
	if len(user.Resources) == 0 {
		return Outcome{State: StateNothingRegistered, Author: info}
	}

	slugs := make([]string, 0, len(user.Resources))
	for _, res := range user.Resources {
		slugs = append(slugs, res.Slug)
	}
	granted := w.transferEntitlements(ctx, actor, PlatformSpigot, info.ID, info.Username, slugs)
	return Outcome{State: StateVerified, Author: info, Granted: granted}
}

// transferEntitlements moves the marketplace account's entitlements to the
// actor: revoke roles from any previous holder, relink, register each
// resource, and grant the implied roles. Attempts for the same account are
// serialized. Every fault in here is logged and swallowed; the registry
// check already succeeded, so the attempt reports success and the user can
// re-run verification to pick up anything missed.
func (w *Workflow) transferEntitlements(ctx context.Context, actor Actor, platform, externalID, username string, entitledSlugs []string) []GrantedResource {
	unlock := w.locks.Lock(platform + ":" + externalID)
	defer unlock()

	log := w.logger.With("platform", platform, "external_id", externalID, "discord_id", actor.UserID)
	slugToRole := w.cfg.SlugToRole()
	buyerRole := w.cfg.Roles.Buyer

	// Previous holder first: the registry link is last-writer-wins and does
	// not cascade role cleanup.
	prevStatus, prev := w.registry.GetUser(ctx, platform, externalID)
	if prevStatus == 0 {
		log.Warn("could not look up previous account holder, skipping revocation")
	} else if prev != nil && prev.DiscordID != "" && prev.DiscordID != actor.UserID {
		w.revokeFromPreviousHolder(actor.GuildID, prev.DiscordID, entitledSlugs, slugToRole, buyerRole, log)
	}

	if status := w.registry.LinkDiscord(ctx, platform, externalID, actor.UserID); status < 200 || status >= 300 {
		log.Warn("failed to link discord account", "status", status)
	}

	// Each resource must be on record before its role counts as granted. A
	// 409 means it already was.
	var granted []GrantedResource
	var registered []string
	for _, slug := range entitledSlugs {
		status := w.registry.Verify(ctx, platform, externalID, username, slug)
		if (status < 200 || status >= 300) && status != http.StatusConflict {
			log.Warn("failed to register resource", "slug", slug, "status", status)
			continue
		}
		registered = append(registered, slug)
		name := slug
		if plugin, ok := w.cfg.Plugins[slug]; ok && plugin.Name != "" {
			name = plugin.Name
		}
		granted = append(granted, GrantedResource{Slug: slug, Name: name})
	}

	current, err := w.roles.MemberRoles(actor.GuildID, actor.UserID)
	if err != nil {
		log.Warn("could not read member roles before grant", "error", err)
	}
	toGrant, _ := Reconcile(current, registered, slugToRole, buyerRole)
	if len(toGrant) > 0 {
		if err := w.roles.AddRoles(actor.GuildID, actor.UserID, toGrant, "Purchase verification"); err != nil {
			log.Warn("failed to grant roles", "roles", toGrant, "error", err)
		}
	}
	return granted
}

// revokeFromPreviousHolder strips the roles the transferred entitlements no
// longer justify. Plugin roles go first; the buyer role is only removed
// after the member provably holds no covered plugin role.
func (w *Workflow) revokeFromPreviousHolder(guildID, prevDiscordID string, entitledSlugs []string, slugToRole map[string]string, buyerRole string, log *slog.Logger) {
	prevRoles, err := w.roles.MemberRoles(guildID, prevDiscordID)
	if err != nil {
		log.Warn("could not read previous holder roles", "prev_discord_id", prevDiscordID, "error", err)
		return
	}

	_, toRevoke := Reconcile(prevRoles, entitledSlugs, slugToRole, buyerRole)
	if len(toRevoke) == 0 {
		return
	}

	pluginRoles := toRevoke
	revokeBuyer := false
	if toRevoke[len(toRevoke)-1] == buyerRole {
		pluginRoles = toRevoke[:len(toRevoke)-1]
		revokeBuyer = true
	}
	if len(pluginRoles) > 0 {
		if err := w.roles.RemoveRoles(guildID, prevDiscordID, pluginRoles, "Entitlement transferred"); err != nil {
			log.Warn("failed to revoke plugin roles from previous holder", "prev_discord_id", prevDiscordID, "error", err)
		}
	}
	if revokeBuyer {
		if err := w.roles.RemoveRoles(guildID, prevDiscordID, []string{buyerRole}, "Entitlement transferred"); err != nil {
			log.Warn("failed to revoke buyer role from previous holder", "prev_discord_id", prevDiscordID, "error", err)
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
