package bot

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/TechMC-Studios/discord-bot/internal/verify"
)

// showPolymartGuide gates on both services, asks Polymart for a fresh
// verification URL, and shows the step-by-step guide.
func (b *Bot) showPolymartGuide(s *discordgo.Session, i *discordgo.InteractionCreate, token string) {
	user := interactionUser(i)
	if err := deferUpdate(s, i); err != nil {
		slog.Error("Failed to defer polymart guide", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteCallBudget)
	defer cancel()

	if !b.registry.CheckHealth(ctx) || !b.polymart.CheckHealth(ctx) {
		if b.sessions.IsCurrent(user.ID, token) {
			b.editResponse(s, i, &discordgo.WebhookEdit{
				Embeds:     &[]*discordgo.MessageEmbed{b.apiDownEmbed(i)},
				Components: &[]discordgo.MessageComponent{},
			})
		}
		return
	}

	status, verifyURL := b.polymart.GenerateVerifyURL(ctx)
	if !b.sessions.IsCurrent(user.ID, token) {
		return
	}
	if verifyURL == "" {
		slog.Warn("Polymart did not return a verification URL", "status", status)
		b.editResponse(s, i, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{{
				Title:       b.t(i, "verification.polymart.error.title", nil),
				Description: b.t(i, "verification.polymart.error.generate_url", map[string]string{"error": b.t(i, "verification.errors.generic", nil)}),
				Color:       colorError,
			}},
			Components: &[]discordgo.MessageComponent{},
		})
		return
	}

	embeds := []*discordgo.MessageEmbed{b.polymartGuideEmbed(i)}
	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label: b.t(i, "verification.polymart.button.link", nil),
				Style: discordgo.LinkButton,
				URL:   verifyURL,
			},
			discordgo.Button{
				Label:    b.t(i, "verification.polymart.button.verify", nil),
				Style:    discordgo.SuccessButton,
				CustomID: "polymart:btn:verify:" + token,
			},
		}},
	}
	msg := b.editResponse(s, i, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	})
	if msg != nil {
		b.scheduleDeletion(s, i, msg.ID, b.config.Verification.UI.TTL.PanelDefault)
	}
}

// handlePolymartTokenButton opens the token entry modal.
func (b *Bot) handlePolymartTokenButton(s *discordgo.Session, i *discordgo.InteractionCreate, token string) {
	if !b.guardSession(s, i, token) {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "polymart:modal:token:" + token,
			Title:    b.t(i, "verification.polymart.modal.title", nil),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "input",
						Label:       b.t(i, "verification.polymart.modal.label", nil),
						Style:       discordgo.TextInputShort,
						Required:    true,
						MinLength:   9,
						MaxLength:   16,
						Placeholder: "ABC-DEF-GHI",
					},
				}},
			},
		},
	})
	if err != nil {
		slog.Error("Failed to open polymart modal", "error", err)
	}
}

// handlePolymartModal exchanges the submitted token and renders the outcome.
func (b *Bot) handlePolymartModal(s *discordgo.Session, i *discordgo.InteractionCreate, token string) {
	if !b.guardSession(s, i, token) {
		return
	}
	user := interactionUser(i)
	input := modalInput(i, "input")

	if err := deferEphemeral(s, i); err != nil {
		slog.Error("Failed to defer polymart modal", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteCallBudget)
	defer cancel()
	actor := verify.Actor{GuildID: i.GuildID, UserID: user.ID, Handle: user.Username}
	out := b.workflow.ByToken(ctx, actor, input)

	if !b.sessions.IsCurrent(user.ID, token) {
		slog.Debug("Discarding token result for superseded panel", "user", user.ID)
		return
	}

	msg := b.editResponse(s, i, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{b.polymartOutcomeEmbed(i, out)},
	})
	if msg != nil {
		ttl := b.config.Verification.UI.TTL
		seconds := ttl.ErrorMedium
		if out.State == verify.StateVerified {
			seconds = ttl.Success
			b.sessions.End(user.ID)
		}
		b.scheduleDeletion(s, i, msg.ID, seconds)
	}
}
