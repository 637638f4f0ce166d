package bot

import (
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/TechMC-Studios/discord-bot/internal/i18n"
)

// t resolves a translation for the interaction's locale.
func (b *Bot) t(i *discordgo.InteractionCreate, key string, params map[string]string) string {
	return i18n.T(string(i.Locale), key, params)
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// respondEphemeral sends an immediate ephemeral response.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) error {
	data.Flags |= discordgo.MessageFlagsEphemeral
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// deferEphemeral acknowledges the interaction so slow remote calls don't hit
// the 3-second response deadline.
func deferEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// deferUpdate acknowledges a component interaction without visible change.
func deferUpdate(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// updateMessage edits the component's own message in place.
func updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
}

// editResponse replaces the deferred response content.
func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, edit *discordgo.WebhookEdit) *discordgo.Message {
	msg, err := s.InteractionResponseEdit(i.Interaction, edit)
	if err != nil {
		slog.Error("Failed to edit interaction response", "error", err)
		return nil
	}
	return msg
}

// scheduleDeletion arranges for the interaction's response to disappear
// after ttl seconds. Editing the same message re-schedules, extending its
// lifetime.
func (b *Bot) scheduleDeletion(s *discordgo.Session, i *discordgo.InteractionCreate, msgID string, ttlSeconds int) {
	if msgID == "" || ttlSeconds <= 0 {
		return
	}
	interaction := i.Interaction
	b.scheduler.Schedule(msgID, time.Duration(ttlSeconds)*time.Second, func() {
		if err := s.InteractionResponseDelete(interaction); err != nil {
			slog.Debug("Failed to delete expired panel", "message", msgID, "error", err)
		}
	})
}
