package bot

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "verify_panel",
			Description: "Post the purchase verification panel in this channel",
		},
		{
			Name:        "priority_tag",
			Description: "Tag your support thread for priority handling (buyers only)",
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	commandDefinitions := b.getCommandDefinitions()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commandDefinitions))

	for _, cmd := range commandDefinitions {
		registered, err := b.session.ApplicationCommandCreate(
			b.session.State.User.ID,
			"", // Empty string = global command
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registeredCommands = append(registeredCommands, registered)
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registeredCommands
	slog.Info("Slash commands registered", "count", len(registeredCommands))
	return nil
}

// removeCommands removes all registered slash commands
func (b *Bot) removeCommands() {
	for _, cmd := range b.commands {
		err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID)
		if err != nil {
			slog.Error("Failed to remove command", "name", cmd.Name, "error", err)
		}
	}
}

// handleVerifyPanel handles the /verify_panel command. The panel itself is a
// plain channel message so it survives restarts; only staff can post it.
func (b *Bot) handleVerifyPanel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		_ = respondEphemeral(s, i, &discordgo.InteractionResponseData{
			Content: b.t(i, "verification.errors.not_admin", nil),
		})
		return
	}

	_, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{b.panelEmbed(i)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    b.t(i, "verification.panel.button.verify", nil),
						Style:    discordgo.SuccessButton,
						CustomID: "verify:btn:verify",
					},
				},
			},
		},
	})
	if err != nil {
		slog.Error("Failed to post verification panel", "channel", i.ChannelID, "error", err)
		_ = respondEphemeral(s, i, &discordgo.InteractionResponseData{
			Content: b.t(i, "verification.errors.generic", nil),
		})
		return
	}

	_ = respondEphemeral(s, i, &discordgo.InteractionResponseData{
		Content: b.t(i, "verification.panel.posted", nil),
	})
}
