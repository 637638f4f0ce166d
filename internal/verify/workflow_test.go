package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/TechMC-Studios/discord-bot/internal/config"
	"github.com/TechMC-Studios/discord-bot/internal/polymart"
	"github.com/TechMC-Studios/discord-bot/internal/registry"
)

type lookupResult struct {
	status  int
	payload string
}

type fakeSpigot struct {
	byID     map[string]lookupResult
	byName   map[string]lookupResult
	spigetID map[string]lookupResult
	pages    []lookupResult
	calls    int
}

func (f *fakeSpigot) GetAuthorByID(_ context.Context, id string) (int, json.RawMessage) {
	f.calls++
	r := f.byID[id]
	return r.status, json.RawMessage(r.payload)
}

func (f *fakeSpigot) FindAuthorByName(_ context.Context, name string) (int, json.RawMessage) {
	f.calls++
	r := f.byName[name]
	return r.status, json.RawMessage(r.payload)
}

func (f *fakeSpigot) SearchGetAuthorByID(_ context.Context, id string) (int, json.RawMessage) {
	f.calls++
	r := f.spigetID[id]
	return r.status, json.RawMessage(r.payload)
}

func (f *fakeSpigot) SearchAuthors(_ context.Context, _ string, _, page int) (int, json.RawMessage) {
	f.calls++
	if page < 1 || page > len(f.pages) {
		return http.StatusNotFound, nil
	}
	r := f.pages[page-1]
	return r.status, json.RawMessage(r.payload)
}

type fakePolymart struct {
	tokens    map[string]*polymart.TokenUser
	purchases map[string]*polymart.PurchaseStatus
	accounts  map[string]*polymart.AccountInfo
	down      bool
	calls     int
}

func (f *fakePolymart) VerifyToken(_ context.Context, token string) (int, *polymart.TokenUser) {
	f.calls++
	if f.down {
		return 0, nil
	}
	return http.StatusOK, f.tokens[token]
}

func (f *fakePolymart) CheckResourcePurchase(_ context.Context, _, resourceID, _ string) (int, *polymart.PurchaseStatus) {
	f.calls++
	if f.down {
		return 0, nil
	}
	return http.StatusOK, f.purchases[resourceID]
}

func (f *fakePolymart) GetAccountInfo(_ context.Context, userID string) (int, *polymart.AccountInfo) {
	f.calls++
	if f.down {
		return 0, nil
	}
	return http.StatusOK, f.accounts[userID]
}

type fakeRegistry struct {
	users        map[string]*registry.User // key platform:externalID
	userStatus   map[string]int            // overrides 200, 0 means transport failure
	verifyStatus map[string]int            // by slug, default 200
	linkCalls    []string
	verifyCalls  []string
	calls        int
}

func (f *fakeRegistry) GetUser(_ context.Context, platform, externalID string) (int, *registry.User) {
	f.calls++
	key := platform + ":" + externalID
	if status, ok := f.userStatus[key]; ok {
		return status, nil
	}
	if u, ok := f.users[key]; ok {
		return http.StatusOK, u
	}
	return http.StatusNotFound, nil
}

func (f *fakeRegistry) LinkDiscord(_ context.Context, platform, externalID, discordID string) int {
	f.calls++
	f.linkCalls = append(f.linkCalls, fmt.Sprintf("%s:%s->%s", platform, externalID, discordID))
	return http.StatusOK
}

func (f *fakeRegistry) Verify(_ context.Context, platform, externalID, _, slug string) int {
	f.calls++
	f.verifyCalls = append(f.verifyCalls, fmt.Sprintf("%s:%s:%s", platform, externalID, slug))
	if status, ok := f.verifyStatus[slug]; ok {
		return status
	}
	return http.StatusOK
}

type roleChange struct {
	userID string
	roles  []string
}

type fakeRoles struct {
	members map[string][]string
	added   []roleChange
	removed []roleChange
}

func (f *fakeRoles) MemberRoles(_, userID string) ([]string, error) {
	return append([]string(nil), f.members[userID]...), nil
}

func (f *fakeRoles) AddRoles(_, userID string, roleIDs []string, _ string) error {
	f.added = append(f.added, roleChange{userID: userID, roles: append([]string(nil), roleIDs...)})
	f.members[userID] = append(f.members[userID], roleIDs...)
	return nil
}

func (f *fakeRoles) RemoveRoles(_, userID string, roleIDs []string, _ string) error {
	f.removed = append(f.removed, roleChange{userID: userID, roles: append([]string(nil), roleIDs...)})
	drop := make(map[string]bool, len(roleIDs))
	for _, r := range roleIDs {
		drop[r] = true
	}
	var kept []string
	for _, r := range f.members[userID] {
		if !drop[r] {
			kept = append(kept, r)
		}
	}
	f.members[userID] = kept
	return nil
}

func testConfig() config.VerificationConfig {
	return config.VerificationConfig{
		Roles: config.RolesConfig{Buyer: "buyer"},
		Plugins: map[string]config.PluginConfig{
			"pluginA": {Name: "Plugin A", Role: "roleA", PolymartID: "1001"},
			"pluginB": {Name: "Plugin B", Role: "roleB", PolymartID: "1002"},
		},
	}
}

type fixture struct {
	w        *Workflow
	spigot   *fakeSpigot
	polymart *fakePolymart
	registry *fakeRegistry
	roles    *fakeRoles
}

func newFixture() *fixture {
	f := &fixture{
		spigot: &fakeSpigot{
			byID:     map[string]lookupResult{},
			byName:   map[string]lookupResult{},
			spigetID: map[string]lookupResult{},
		},
		polymart: &fakePolymart{
			tokens:    map[string]*polymart.TokenUser{},
			purchases: map[string]*polymart.PurchaseStatus{},
			accounts:  map[string]*polymart.AccountInfo{},
		},
		registry: &fakeRegistry{
			users:        map[string]*registry.User{},
			userStatus:   map[string]int{},
			verifyStatus: map[string]int{},
		},
		roles: &fakeRoles{members: map[string][]string{}},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.w = New(testConfig(), f.spigot, f.polymart, f.registry, f.roles, logger)
	return f
}

var actor = Actor{GuildID: "g1", UserID: "u-new", Handle: "buyer_guy"}

func TestByID_InvalidInputNeverHitsNetwork(t *testing.T) {
	f := newFixture()
	for _, input := range []string{"", "abc", "12a", " - "} {
		if out := f.w.ByID(context.Background(), actor, input); out.State != StateInvalidInput {
			t.Errorf("ByID(%q) = %s, want invalid_input", input, out.State)
		}
	}
	if f.spigot.calls != 0 || f.registry.calls != 0 {
		t.Errorf("invalid input reached the network: spigot=%d registry=%d", f.spigot.calls, f.registry.calls)
	}
}

func TestByURL(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusOK, `{"id":42,"username":"md_5","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:42"] = &registry.User{Resources: []registry.Resource{{Slug: "pluginA"}}}

	if out := f.w.ByURL(context.Background(), actor, "https://spigotmc.org/resources/thing.42/"); out.State != StateInvalidInput {
		t.Errorf("non-member URL = %s, want invalid_input", out.State)
	}
	out := f.w.ByURL(context.Background(), actor, "https://www.spigotmc.org/members/md_5.42/")
	if out.State != StateVerified {
		t.Errorf("state = %s, want verified", out.State)
	}
}

func TestByID_TransportFailureIsUnavailableNotNotFound(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{0, ""}
	if out := f.w.ByID(context.Background(), actor, "42"); out.State != StateUnavailable {
		t.Errorf("state = %s, want unavailable", out.State)
	}
}

func TestByID_NotFoundPaths(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusNotFound, `{"error":"no such author"}`}
	// 200 body missing required fields is a normalization failure, also
	// surfaced as not found but through a different path.
	f.spigot.byID["43"] = lookupResult{http.StatusOK, `{"id":43}`}

	for _, id := range []string{"42", "43"} {
		if out := f.w.ByID(context.Background(), actor, id); out.State != StateNotFound {
			t.Errorf("ByID(%s) = %s, want not_found", id, out.State)
		}
	}
}

func TestByID_OwnershipChecks(t *testing.T) {
	f := newFixture()
	f.spigot.byID["1"] = lookupResult{http.StatusOK, `{"id":1,"username":"a"}`}
	f.spigot.byID["2"] = lookupResult{http.StatusOK, `{"id":2,"username":"b","identities":{"discord":"someone_else"}}`}
	f.spigot.byID["3"] = lookupResult{http.StatusOK, `{"id":3,"username":"c","identities":{"discord":"BUYER_GUY"}}`}
	f.registry.users["spigot:3"] = &registry.User{Resources: []registry.Resource{{Slug: "pluginA"}}}

	if out := f.w.ByID(context.Background(), actor, "1"); out.State != StateOwnershipUnlinked {
		t.Errorf("absent handle = %s, want ownership_unlinked", out.State)
	}
	if out := f.w.ByID(context.Background(), actor, "2"); out.State != StateOwnershipMismatch {
		t.Errorf("differing handle = %s, want ownership_mismatch", out.State)
	}
	if f.registry.calls != 0 {
		t.Errorf("ownership halts must not reach the registry, got %d calls", f.registry.calls)
	}

	// Handle comparison is case-insensitive.
	if out := f.w.ByID(context.Background(), actor, "3"); out.State != StateVerified {
		t.Errorf("case-differing handle = %s, want verified", out.State)
	}
}

func TestByID_RegistryOutcomes(t *testing.T) {
	f := newFixture()
	payload := `{"id":%s,"username":"x","identities":{"discord":"buyer_guy"}}`
	f.spigot.byID["10"] = lookupResult{http.StatusOK, fmt.Sprintf(payload, "10")}
	f.spigot.byID["11"] = lookupResult{http.StatusOK, fmt.Sprintf(payload, "11")}
	f.spigot.byID["12"] = lookupResult{http.StatusOK, fmt.Sprintf(payload, "12")}
	f.registry.userStatus["spigot:10"] = 0
	// spigot:11 has no registry record at all.
	f.registry.users["spigot:12"] = &registry.User{}

	if out := f.w.ByID(context.Background(), actor, "10"); out.State != StateUnavailable {
		t.Errorf("registry down = %s, want unavailable", out.State)
	}
	if out := f.w.ByID(context.Background(), actor, "11"); out.State != StateNotABuyer {
		t.Errorf("no record = %s, want not_a_buyer", out.State)
	}
	if out := f.w.ByID(context.Background(), actor, "12"); out.State != StateNothingRegistered {
		t.Errorf("empty resources = %s, want nothing_registered", out.State)
	}
	if len(f.roles.added) != 0 || len(f.roles.removed) != 0 {
		t.Error("halted attempts must not touch roles")
	}
}

func TestByID_VerifiedGrantsRolesAndLinks(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusOK, `{"id":42,"username":"md_5","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:42"] = &registry.User{Resources: []registry.Resource{{Slug: "pluginA"}, {Slug: "pluginB"}}}

	out := f.w.ByID(context.Background(), actor, "42")
	if out.State != StateVerified {
		t.Fatalf("state = %s, want verified", out.State)
	}
	if out.Author == nil || out.Author.Username != "md_5" {
		t.Errorf("unexpected author %+v", out.Author)
	}
	wantGranted := []GrantedResource{{Slug: "pluginA", Name: "Plugin A"}, {Slug: "pluginB", Name: "Plugin B"}}
	if !reflect.DeepEqual(out.Granted, wantGranted) {
		t.Errorf("granted = %+v", out.Granted)
	}

	if len(f.registry.linkCalls) != 1 || f.registry.linkCalls[0] != "spigot:42->u-new" {
		t.Errorf("link calls = %v", f.registry.linkCalls)
	}
	if len(f.registry.verifyCalls) != 2 {
		t.Errorf("verify calls = %v", f.registry.verifyCalls)
	}

	got := append([]string(nil), f.roles.members["u-new"]...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"buyer", "roleA", "roleB"}) {
		t.Errorf("final roles = %v", got)
	}
	if len(f.roles.added) != 1 {
		t.Errorf("grants must collapse into one add call, got %d", len(f.roles.added))
	}
}

func TestTransfer_PreviousHolderStrippedBuyerLast(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusOK, `{"id":42,"username":"md_5","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:42"] = &registry.User{
		DiscordID: "u-old",
		Resources: []registry.Resource{{Slug: "pluginB"}},
	}
	f.roles.members["u-old"] = []string{"buyer", "roleA", "moderator"}

	out := f.w.ByID(context.Background(), actor, "42")
	if out.State != StateVerified {
		t.Fatalf("state = %s", out.State)
	}

	// Previous holder loses the stale plugin role first, then buyer, and
	// keeps unmanaged roles.
	if len(f.roles.removed) != 2 {
		t.Fatalf("removals = %+v, want two ordered calls", f.roles.removed)
	}
	if f.roles.removed[0].userID != "u-old" || !reflect.DeepEqual(f.roles.removed[0].roles, []string{"roleA"}) {
		t.Errorf("first removal = %+v, want roleA", f.roles.removed[0])
	}
	if !reflect.DeepEqual(f.roles.removed[1].roles, []string{"buyer"}) {
		t.Errorf("second removal = %+v, want buyer", f.roles.removed[1])
	}
	if !reflect.DeepEqual(f.roles.members["u-old"], []string{"moderator"}) {
		t.Errorf("previous holder ended with %v", f.roles.members["u-old"])
	}

	got := append([]string(nil), f.roles.members["u-new"]...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"buyer", "roleB"}) {
		t.Errorf("new holder ended with %v", got)
	}
}

func TestTransfer_PreviousHolderKeepsStillEntitledRoles(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusOK, `{"id":42,"username":"md_5","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:42"] = &registry.User{
		DiscordID: "u-old",
		Resources: []registry.Resource{{Slug: "pluginA"}, {Slug: "pluginB"}},
	}
	f.roles.members["u-old"] = []string{"buyer", "roleA"}

	out := f.w.ByID(context.Background(), actor, "42")
	if out.State != StateVerified {
		t.Fatalf("state = %s", out.State)
	}

	// Revocation only covers roles the transferred set no longer justifies.
	// roleA is still entitled, so the previous holder keeps it and the buyer
	// role with it; both members hold roleA afterwards.
	if len(f.roles.removed) != 0 {
		t.Errorf("removals = %+v, want none", f.roles.removed)
	}
	if !reflect.DeepEqual(f.roles.members["u-old"], []string{"buyer", "roleA"}) {
		t.Errorf("previous holder ended with %v", f.roles.members["u-old"])
	}

	got := append([]string(nil), f.roles.members["u-new"]...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"buyer", "roleA", "roleB"}) {
		t.Errorf("new holder ended with %v", got)
	}
}

func TestTransfer_SameHolderNoRevocation(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusOK, `{"id":42,"username":"md_5","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:42"] = &registry.User{
		DiscordID: actor.UserID,
		Resources: []registry.Resource{{Slug: "pluginA"}},
	}
	f.roles.members[actor.UserID] = []string{"buyer", "roleA"}

	out := f.w.ByID(context.Background(), actor, "42")
	if out.State != StateVerified {
		t.Fatalf("state = %s", out.State)
	}
	if len(f.roles.removed) != 0 {
		t.Errorf("re-verification removed roles: %+v", f.roles.removed)
	}
	if len(f.roles.added) != 0 {
		t.Errorf("re-verification with all roles held added: %+v", f.roles.added)
	}
}

// callLog is a shared ordered record of registry and role calls, safe for
// use from multiple goroutines.
type callLog struct {
	mu     sync.Mutex
	events []string
}

func (l *callLog) add(ev string) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

// gatedRegistry parks the first LinkDiscord call until release is closed, so
// a second attempt for the same account has every chance to barge in.
type gatedRegistry struct {
	log     *callLog
	entered chan struct{}
	release chan struct{}
	gated   bool
	mu      sync.Mutex
}

func (f *gatedRegistry) GetUser(_ context.Context, _, _ string) (int, *registry.User) {
	f.log.add("lookup")
	return http.StatusNotFound, nil
}

func (f *gatedRegistry) LinkDiscord(_ context.Context, _, _, discordID string) int {
	f.log.add("link:" + discordID)
	f.mu.Lock()
	first := !f.gated
	f.gated = true
	f.mu.Unlock()
	if first {
		close(f.entered)
		<-f.release
	}
	return http.StatusOK
}

func (f *gatedRegistry) Verify(_ context.Context, _, _, _, _ string) int {
	f.log.add("register")
	return http.StatusOK
}

type loggedRoles struct {
	log *callLog
}

func (r *loggedRoles) MemberRoles(_, _ string) ([]string, error) { return nil, nil }

func (r *loggedRoles) AddRoles(_, userID string, _ []string, _ string) error {
	r.log.add("grant:" + userID)
	return nil
}

func (r *loggedRoles) RemoveRoles(_, _ string, _ []string, _ string) error { return nil }

func TestTransfer_SerializedPerAccount(t *testing.T) {
	log := &callLog{}
	reg := &gatedRegistry{log: log, entered: make(chan struct{}), release: make(chan struct{})}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := New(testConfig(), &fakeSpigot{}, &fakePolymart{}, reg, &loggedRoles{log: log}, logger)

	first := Actor{GuildID: "g1", UserID: "u-a", Handle: "a"}
	second := Actor{GuildID: "g1", UserID: "u-b", Handle: "b"}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.transferEntitlements(context.Background(), first, PlatformSpigot, "55", "seller", []string{"pluginA"})
	}()
	<-reg.entered
	go func() {
		defer wg.Done()
		w.transferEntitlements(context.Background(), second, PlatformSpigot, "55", "seller", []string{"pluginA"})
	}()
	// Give the second attempt time to interleave if nothing stops it.
	time.Sleep(50 * time.Millisecond)
	close(reg.release)
	wg.Wait()

	want := []string{
		"lookup", "link:u-a", "register", "grant:u-a",
		"lookup", "link:u-b", "register", "grant:u-b",
	}
	if !reflect.DeepEqual(log.events, want) {
		t.Errorf("interleaved transfer calls:\n got %v\nwant %v", log.events, want)
	}
}

func TestTransfer_ConflictCountsAsRegistered(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusOK, `{"id":42,"username":"md_5","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:42"] = &registry.User{Resources: []registry.Resource{{Slug: "pluginA"}}}
	f.registry.verifyStatus["pluginA"] = http.StatusConflict

	out := f.w.ByID(context.Background(), actor, "42")
	if out.State != StateVerified {
		t.Fatalf("state = %s", out.State)
	}
	if len(out.Granted) != 1 || out.Granted[0].Slug != "pluginA" {
		t.Errorf("409 must still count, granted = %+v", out.Granted)
	}
}

func TestTransfer_PartialRegistrationFailure(t *testing.T) {
	f := newFixture()
	f.spigot.byID["42"] = lookupResult{http.StatusOK, `{"id":42,"username":"md_5","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:42"] = &registry.User{Resources: []registry.Resource{{Slug: "pluginA"}, {Slug: "pluginB"}}}
	f.registry.verifyStatus["pluginA"] = http.StatusInternalServerError

	out := f.w.ByID(context.Background(), actor, "42")
	if out.State != StateVerified {
		t.Fatalf("state = %s, failed registration must not abort", out.State)
	}
	if len(out.Granted) != 1 || out.Granted[0].Slug != "pluginB" {
		t.Errorf("granted = %+v, want only the registered resource", out.Granted)
	}

	got := append([]string(nil), f.roles.members["u-new"]...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"buyer", "roleB"}) {
		t.Errorf("roles = %v, unregistered resource must not grant", got)
	}
}

func TestBySelection_ReResolvesThroughPreciseLookup(t *testing.T) {
	f := newFixture()
	f.spigot.spigetID["7"] = lookupResult{http.StatusOK, `{"id":7,"name":"Picked","identities":{"discord":"buyer_guy"}}`}
	f.registry.users["spigot:7"] = &registry.User{Resources: []registry.Resource{{Slug: "pluginA"}}}

	out := f.w.BySelection(context.Background(), actor, "7")
	if out.State != StateVerified {
		t.Fatalf("state = %s", out.State)
	}
	if out.Author.Username != "Picked" {
		t.Errorf("author = %+v, want the re-resolved record", out.Author)
	}

	f.spigot.spigetID["8"] = lookupResult{http.StatusNotFound, ""}
	if out := f.w.BySelection(context.Background(), actor, "8"); out.State != StateNotFound {
		t.Errorf("vanished candidate = %s, want not_found", out.State)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture()
	page1 := `[`
	for i := 0; i < 25; i++ {
		if i > 0 {
			page1 += ","
		}
		page1 += fmt.Sprintf(`{"id":%d,"name":"author%d"}`, i, i)
	}
	page1 += `]`
	f.spigot.pages = []lookupResult{
		{http.StatusOK, page1},
		{http.StatusOK, `[{"id":100,"name":"tail"}]`},
	}

	results, state := f.w.Search(context.Background(), "auth")
	if state != StateVerified {
		t.Fatalf("state = %s", state)
	}
	if len(results) != 26 {
		t.Errorf("results = %d, want 26 across two pages", len(results))
	}

	if _, state := f.w.Search(context.Background(), "  "); state != StateInvalidInput {
		t.Errorf("blank query = %s, want invalid_input", state)
	}

	f.spigot.pages = []lookupResult{{http.StatusNotFound, ""}}
	if _, state := f.w.Search(context.Background(), "nobody"); state != StateNotFound {
		t.Errorf("no matches = %s, want not_found", state)
	}

	f.spigot.pages = []lookupResult{{0, ""}}
	if _, state := f.w.Search(context.Background(), "down"); state != StateUnavailable {
		t.Errorf("transport failure = %s, want unavailable", state)
	}

	// A transport failure on a later page must not surface the partial set.
	f.spigot.pages = []lookupResult{{http.StatusOK, page1}, {0, ""}}
	if results, state := f.w.Search(context.Background(), "late"); state != StateUnavailable || results != nil {
		t.Errorf("mid-pagination transport failure = (%d, %s), want unavailable", len(results), state)
	}
}

func TestByToken(t *testing.T) {
	f := newFixture()
	f.polymart.tokens["ABCDEFGHI"] = &polymart.TokenUser{ID: "900", Username: "poly_buyer"}
	f.polymart.purchases["1001"] = &polymart.PurchaseStatus{Purchased: true}
	f.polymart.purchases["1002"] = &polymart.PurchaseStatus{}

	if out := f.w.ByToken(context.Background(), actor, "not a token"); out.State != StateInvalidInput {
		t.Errorf("bad token = %s, want invalid_input", out.State)
	}
	if f.polymart.calls != 0 {
		t.Error("invalid token reached the network")
	}

	if out := f.w.ByToken(context.Background(), actor, "ZZZ-ZZZ-ZZZ"); out.State != StateNotFound {
		t.Errorf("rejected token = %s, want not_found", out.State)
	}

	out := f.w.ByToken(context.Background(), actor, "ABC-DEF-GHI")
	if out.State != StateVerified {
		t.Fatalf("state = %s", out.State)
	}
	if len(out.Granted) != 1 || out.Granted[0].Slug != "pluginA" {
		t.Errorf("granted = %+v, want only the purchased resource", out.Granted)
	}
	if len(f.registry.linkCalls) != 1 || f.registry.linkCalls[0] != "polymart:900->u-new" {
		t.Errorf("link calls = %v", f.registry.linkCalls)
	}

	got := append([]string(nil), f.roles.members["u-new"]...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"buyer", "roleA"}) {
		t.Errorf("roles = %v", got)
	}
}

func TestByToken_NoPurchases(t *testing.T) {
	f := newFixture()
	f.polymart.tokens["ABCDEFGHI"] = &polymart.TokenUser{ID: "900", Username: "poly_buyer"}
	f.polymart.purchases["1001"] = &polymart.PurchaseStatus{}
	f.polymart.purchases["1002"] = &polymart.PurchaseStatus{}

	out := f.w.ByToken(context.Background(), actor, "ABC-DEF-GHI")
	if out.State != StateNoPurchases {
		t.Errorf("state = %s, want no_purchases", out.State)
	}
	if len(f.registry.linkCalls) != 0 {
		t.Error("no purchases must not link")
	}
}

func TestByToken_OwnerCountsAsEntitled(t *testing.T) {
	f := newFixture()
	f.polymart.tokens["ABCDEFGHI"] = &polymart.TokenUser{ID: "900", Username: "author_guy"}
	f.polymart.purchases["1001"] = &polymart.PurchaseStatus{Owner: true}
	f.polymart.purchases["1002"] = &polymart.PurchaseStatus{}

	out := f.w.ByToken(context.Background(), actor, "ABC-DEF-GHI")
	if out.State != StateVerified {
		t.Fatalf("state = %s, resource owners verify their own plugins", out.State)
	}
	if len(out.Granted) != 1 || out.Granted[0].Slug != "pluginA" {
		t.Errorf("granted = %+v", out.Granted)
	}
}

func TestByToken_TeamAccountUsernameFromProfile(t *testing.T) {
	f := newFixture()
	f.polymart.tokens["ABCDEFGHI"] = &polymart.TokenUser{ID: "901"}
	f.polymart.accounts["901"] = &polymart.AccountInfo{Username: "TeamCo"}
	f.polymart.purchases["1001"] = &polymart.PurchaseStatus{Purchased: true}
	f.polymart.purchases["1002"] = &polymart.PurchaseStatus{}

	out := f.w.ByToken(context.Background(), actor, "ABC-DEF-GHI")
	if out.State != StateVerified {
		t.Fatalf("state = %s", out.State)
	}
	if out.Author == nil || out.Author.Username != "TeamCo" {
		t.Errorf("author = %+v, want username backfilled from profile", out.Author)
	}
}

func TestByToken_ProviderDown(t *testing.T) {
	f := newFixture()
	f.polymart.down = true
	if out := f.w.ByToken(context.Background(), actor, "ABC-DEF-GHI"); out.State != StateUnavailable {
		t.Errorf("state = %s, want unavailable", out.State)
	}
}
