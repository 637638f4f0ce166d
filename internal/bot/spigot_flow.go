package bot

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/TechMC-Studios/discord-bot/internal/spigot"
	"github.com/TechMC-Studios/discord-bot/internal/verify"
)

// showSpigotMethods replaces the panel with the four proof-method buttons.
func (b *Bot) showSpigotMethods(s *discordgo.Session, i *discordgo.InteractionCreate, token string) {
	_ = updateMessage(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       b.t(i, "verification.spigot.methods.title", nil),
			Description: b.t(i, "verification.spigot.methods.desc", nil),
			Color:       colorPrimary,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: b.t(i, "verification.spigot.buttons.by_id", nil), Style: discordgo.PrimaryButton, CustomID: "spigot:btn:id:" + token},
				discordgo.Button{Label: b.t(i, "verification.spigot.buttons.by_url", nil), Style: discordgo.PrimaryButton, CustomID: "spigot:btn:url:" + token},
				discordgo.Button{Label: b.t(i, "verification.spigot.buttons.exact", nil), Style: discordgo.SecondaryButton, CustomID: "spigot:btn:exact:" + token},
				discordgo.Button{Label: b.t(i, "verification.spigot.buttons.search", nil), Style: discordgo.SecondaryButton, CustomID: "spigot:btn:search:" + token},
			}},
		},
	})
}

// handleSpigotMethodButton opens the input modal for the chosen method, or
// re-shows the method picker on retry.
func (b *Bot) handleSpigotMethodButton(s *discordgo.Session, i *discordgo.InteractionCreate, method, token string) {
	if !b.guardSession(s, i, token) {
		return
	}
	if method == "retry" {
		b.showSpigotMethods(s, i, token)
		return
	}

	var title, label string
	switch method {
	case "id":
		title = b.t(i, "verification.spigot.modals.id.title", nil)
		label = b.t(i, "verification.labels.user_id", nil)
	case "url":
		title = b.t(i, "verification.spigot.modals.url.title", nil)
		label = b.t(i, "verification.labels.profile_url", nil)
	case "exact":
		title = b.t(i, "verification.spigot.modals.exact.title", nil)
		label = b.t(i, "verification.labels.username", nil)
	case "search":
		title = b.t(i, "verification.spigot.modals.search.title", nil)
		label = b.t(i, "verification.labels.search_query", nil)
	default:
		slog.Warn("Unknown spigot method", "method", method)
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "spigot:modal:" + method + ":" + token,
			Title:    title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "input",
						Label:     label,
						Style:     discordgo.TextInputShort,
						Required:  true,
						MaxLength: 100,
					},
				}},
			},
		},
	})
	if err != nil {
		slog.Error("Failed to open spigot modal", "method", method, "error", err)
	}
}

// handleSpigotModal runs the chosen proof method with the submitted input.
func (b *Bot) handleSpigotModal(s *discordgo.Session, i *discordgo.InteractionCreate, method, token string) {
	if !b.guardSession(s, i, token) {
		return
	}
	user := interactionUser(i)
	input := modalInput(i, "input")

	if err := deferEphemeral(s, i); err != nil {
		slog.Error("Failed to defer spigot modal", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteCallBudget)
	defer cancel()
	actor := verify.Actor{GuildID: i.GuildID, UserID: user.ID, Handle: user.Username}

	if method == "search" {
		b.runSearch(ctx, s, i, token, input)
		return
	}

	var out verify.Outcome
	switch method {
	case "id":
		out = b.workflow.ByID(ctx, actor, input)
	case "url":
		out = b.workflow.ByURL(ctx, actor, input)
	case "exact":
		out = b.workflow.ByExactName(ctx, actor, input)
	default:
		slog.Warn("Unknown spigot modal", "method", method)
		return
	}

	if !b.sessions.IsCurrent(user.ID, token) {
		slog.Debug("Discarding result for superseded panel", "user", user.ID)
		return
	}
	b.renderSpigotOutcome(s, i, token, method, out, user.Username)
}

// renderSpigotOutcome edits the deferred response with the terminal state.
func (b *Bot) renderSpigotOutcome(s *discordgo.Session, i *discordgo.InteractionCreate, token, method string, out verify.Outcome, actorHandle string) {
	ttl := b.config.Verification.UI.TTL

	switch out.State {
	case verify.StateInvalidInput:
		key := "verification.spigot.errors.invalid_name"
		switch method {
		case "id":
			key = "verification.spigot.errors.invalid_id"
		case "url":
			key = "verification.spigot.errors.invalid_url"
		}
		msg := b.editResponse(s, i, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{b.errorEmbed(i, key, nil)},
		})
		if msg != nil {
			b.scheduleDeletion(s, i, msg.ID, ttl.ErrorMedium)
		}

	case verify.StateOwnershipUnlinked, verify.StateOwnershipMismatch:
		embeds := b.linkHelpEmbeds(i, out, actorHandle)
		components := []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label: b.t(i, "verification.spigot.link_help.buttons.personal_details", nil),
					Style: discordgo.LinkButton,
					URL:   b.t(i, "verification.spigot.link_help.links.personal_details", nil),
				},
				discordgo.Button{
					Label: b.t(i, "verification.spigot.link_help.buttons.contact_details", nil),
					Style: discordgo.LinkButton,
					URL:   b.t(i, "verification.spigot.link_help.links.contact_details", nil),
				},
				discordgo.Button{
					Label:    b.t(i, "verification.spigot.link_help.buttons.retry", nil),
					Style:    discordgo.PrimaryButton,
					CustomID: "spigot:btn:retry:" + token,
				},
			}},
		}
		msg := b.editResponse(s, i, &discordgo.WebhookEdit{
			Embeds:     &embeds,
			Components: &components,
		})
		if msg != nil {
			b.scheduleDeletion(s, i, msg.ID, ttl.LinkThread)
		}

	default:
		msg := b.editResponse(s, i, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{b.outcomeEmbed(i, out)},
		})
		if msg != nil {
			seconds := ttl.Warning
			if out.State == verify.StateVerified {
				seconds = ttl.Success
				b.sessions.End(interactionUser(i).ID)
			}
			b.scheduleDeletion(s, i, msg.ID, seconds)
		}
	}
}

// runSearch executes a fuzzy author search and renders the first page.
func (b *Bot) runSearch(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, token, query string) {
	user := interactionUser(i)
	results, state := b.workflow.Search(ctx, query)

	if !b.sessions.IsCurrent(user.ID, token) {
		return
	}

	if state != verify.StateVerified {
		key := "verification.spigot.errors.not_found"
		ttlSeconds := b.config.Verification.UI.TTL.ErrorMedium
		var embed *discordgo.MessageEmbed
		switch state {
		case verify.StateInvalidInput:
			embed = b.errorEmbed(i, "verification.spigot.errors.invalid_name", nil)
		case verify.StateUnavailable:
			embed = b.apiDownEmbed(i)
		default:
			embed = b.errorEmbed(i, key, nil)
		}
		if msg := b.editResponse(s, i, &discordgo.WebhookEdit{Embeds: &[]*discordgo.MessageEmbed{embed}}); msg != nil {
			b.scheduleDeletion(s, i, msg.ID, ttlSeconds)
		}
		return
	}

	sess := b.sessions.Current(user.ID)
	if sess == nil {
		return
	}
	sess.SearchResults = results
	sess.Page = 0

	embeds, components := b.searchPageView(i, token, sess)
	msg := b.editResponse(s, i, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	})
	if msg != nil {
		b.scheduleDeletion(s, i, msg.ID, b.config.Verification.UI.TTL.PanelDefault)
	}
}

// handleSearchComponent handles select, pagination, and cancel on the search
// results view.
func (b *Bot) handleSearchComponent(s *discordgo.Session, i *discordgo.InteractionCreate, action, token string) {
	if !b.guardSession(s, i, token) {
		return
	}
	user := interactionUser(i)
	sess := b.sessions.Current(user.ID)
	if sess == nil {
		return
	}

	switch action {
	case "select":
		values := i.MessageComponentData().Values
		if len(values) == 0 {
			return
		}
		if err := deferUpdate(s, i); err != nil {
			slog.Error("Failed to defer search selection", "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), remoteCallBudget)
		defer cancel()
		actor := verify.Actor{GuildID: i.GuildID, UserID: user.ID, Handle: user.Username}
		out := b.workflow.BySelection(ctx, actor, values[0])

		if !b.sessions.IsCurrent(user.ID, token) {
			slog.Debug("Discarding selection result for superseded panel", "user", user.ID)
			return
		}
		b.renderSpigotOutcome(s, i, token, "search", out, user.Username)

	case "prev", "next":
		if action == "prev" && sess.Page > 0 {
			sess.Page--
		}
		if action == "next" && (sess.Page+1)*spigot.MaxPageSize < len(sess.SearchResults) {
			sess.Page++
		}
		embeds, components := b.searchPageView(i, token, sess)
		_ = updateMessage(s, i, &discordgo.InteractionResponseData{
			Embeds:     embeds,
			Components: components,
		})

	case "cancel":
		b.sessions.End(user.ID)
		_ = updateMessage(s, i, &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{{Description: b.t(i, "verification.spigot.search.cleared", nil), Color: colorPrimary}},
			Components: []discordgo.MessageComponent{},
		})
	}
}

// searchPageView builds one page of search results as a select menu with
// pagination buttons. Pagination is purely local; the full result set was
// fetched up front.
func (b *Bot) searchPageView(i *discordgo.InteractionCreate, token string, sess *panelSession) ([]*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	start := sess.Page * spigot.MaxPageSize
	end := start + spigot.MaxPageSize
	if end > len(sess.SearchResults) {
		end = len(sess.SearchResults)
	}
	page := sess.SearchResults[start:end]

	options := make([]discordgo.SelectMenuOption, 0, len(page))
	for _, item := range page {
		options = append(options, discordgo.SelectMenuOption{
			Label:       item.Username,
			Value:       item.ID,
			Description: "ID " + item.ID,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title: b.t(i, "verification.spigot.search.results.title", nil),
		Description: b.t(i, "verification.spigot.search.results.desc", map[string]string{
			"shown": strconv.Itoa(len(sess.SearchResults)),
			"max":   strconv.Itoa(spigot.MaxSearchResults),
		}),
		Color: colorPrimary,
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    "spigot:search:select:" + token,
				Placeholder: b.t(i, "verification.spigot.search.select_placeholder", nil),
				Options:     options,
			},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    b.t(i, "verification.spigot.search.prev", nil),
				Style:    discordgo.SecondaryButton,
				CustomID: "spigot:search:prev:" + token,
				Disabled: sess.Page == 0,
			},
			discordgo.Button{
				Label:    b.t(i, "verification.spigot.search.next", nil),
				Style:    discordgo.SecondaryButton,
				CustomID: "spigot:search:next:" + token,
				Disabled: end >= len(sess.SearchResults),
			},
			discordgo.Button{
				Label:    b.t(i, "verification.spigot.search.cancel", nil),
				Style:    discordgo.DangerButton,
				CustomID: "spigot:search:cancel:" + token,
			},
		}},
	}
	return []*discordgo.MessageEmbed{embed}, components
}

// modalInput pulls a text input value out of a modal submission.
func modalInput(i *discordgo.InteractionCreate, customID string) string {
	for _, row := range i.ModalSubmitData().Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == customID {
				return input.Value
			}
		}
	}
	return ""
}
