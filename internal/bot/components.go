package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

const remoteCallBudget = 30 * time.Second

// handleVerifyButton starts a fresh verification session and shows the
// platform picker. A registry health failure disables the platform buttons
// for this panel rather than letting the user walk into dead flows.
func (b *Bot) handleVerifyButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	sess := b.sessions.Begin(user.ID)

	if err := deferEphemeral(s, i); err != nil {
		slog.Error("Failed to defer verify button", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), remoteCallBudget)
	defer cancel()
	healthy := b.registry.CheckHealth(ctx)

	if !b.sessions.IsCurrent(user.ID, sess.Token) {
		return
	}

	embed := b.platformsEmbed(i)
	if !healthy {
		embed = b.apiDownEmbed(i)
	}

	var buttons []discordgo.MessageComponent
	for _, platform := range b.config.Verification.Platforms {
		btn := discordgo.Button{
			Label:    platform.Name,
			Style:    buttonStyle(platform.BtnColor),
			CustomID: "verify:platform:" + platform.Key + ":" + sess.Token,
			Disabled: !healthy,
		}
		if platform.Emoji != "" {
			btn.Emoji = &discordgo.ComponentEmoji{Name: platform.Emoji}
		}
		buttons = append(buttons, btn)
	}
	buttons = append(buttons, discordgo.Button{
		Label:    b.t(i, "verification.platforms.notify_staff.button", nil),
		Style:    discordgo.SecondaryButton,
		CustomID: "verify:staff:ask:" + sess.Token,
	})

	msg := b.editResponse(s, i, &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}},
	})
	if msg != nil {
		b.scheduleDeletion(s, i, msg.ID, b.config.Verification.UI.TTL.PanelDefault)
	}
}

// handlePlatformButton routes the platform choice to its flow.
func (b *Bot) handlePlatformButton(s *discordgo.Session, i *discordgo.InteractionCreate, platformKey, token string) {
	if !b.guardSession(s, i, token) {
		return
	}

	switch platformKey {
	case "spigot":
		b.showSpigotMethods(s, i, token)
	case "polymart":
		b.showPolymartGuide(s, i, token)
	case "builtbybit":
		b.openBBBThread(s, i)
	default:
		slog.Warn("Unknown platform", "platform", platformKey)
		_ = respondEphemeral(s, i, &discordgo.InteractionResponseData{
			Content: b.t(i, "verification.errors.generic", nil),
		})
	}
}

// handleNotifyStaff runs the confirm-then-ping flow for the staff button.
func (b *Bot) handleNotifyStaff(s *discordgo.Session, i *discordgo.InteractionCreate, action, token string) {
	if !b.guardSession(s, i, token) {
		return
	}

	switch action {
	case "ask":
		_ = updateMessage(s, i, &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       b.t(i, "verification.platforms.notify_staff.confirm.title", nil),
				Description: b.t(i, "verification.platforms.notify_staff.confirm.desc", nil),
				Color:       colorWarning,
			}},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    b.t(i, "verification.platforms.notify_staff.confirm.yes", nil),
						Style:    discordgo.DangerButton,
						CustomID: "verify:staff:confirm:" + token,
					},
					discordgo.Button{
						Label:    b.t(i, "verification.platforms.notify_staff.confirm.no", nil),
						Style:    discordgo.SecondaryButton,
						CustomID: "verify:staff:cancel:" + token,
					},
				}},
			},
		})

	case "confirm":
		b.notifyStaff(s, i)

	case "cancel":
		b.handleVerifyButtonBack(s, i)
	}
}

// handleVerifyButtonBack restores the platform picker after a cancel.
func (b *Bot) handleVerifyButtonBack(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	sess := b.sessions.Current(user.ID)
	if sess == nil {
		return
	}

	var buttons []discordgo.MessageComponent
	for _, platform := range b.config.Verification.Platforms {
		buttons = append(buttons, discordgo.Button{
			Label:    platform.Name,
			Style:    buttonStyle(platform.BtnColor),
			CustomID: "verify:platform:" + platform.Key + ":" + sess.Token,
		})
	}
	_ = updateMessage(s, i, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{b.platformsEmbed(i)},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}},
	})
}

// notifyStaff opens a private thread in the staff channel and pings the
// staff role there.
func (b *Bot) notifyStaff(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	channels := b.config.Verification.Channels
	channelID := channels.StaffChannel
	if channelID == "" {
		channelID = channels.VerificationChannel
	}
	if channelID == "" {
		_ = updateMessage(s, i, &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{b.errorEmbed(i, "verification.errors.channel_not_found", nil)},
			Components: []discordgo.MessageComponent{},
		})
		return
	}

	thread, err := s.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                "verification-help-" + user.Username,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		AutoArchiveDuration: 1440,
		Invitable:           false,
	})
	if err != nil {
		slog.Error("Failed to open staff thread", "error", err)
		_ = updateMessage(s, i, &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{b.errorEmbed(i, "verification.errors.generic", nil)},
			Components: []discordgo.MessageComponent{},
		})
		return
	}

	contentKey := "verification.platforms.notify_staff.content.no_role"
	params := map[string]string{"user": user.Mention()}
	if channels.StaffRole != "" {
		contentKey = "verification.platforms.notify_staff.content.with_role"
		params["role"] = "<@&" + channels.StaffRole + ">"
	}
	if _, err := s.ChannelMessageSend(thread.ID, b.t(i, contentKey, params)); err != nil {
		slog.Error("Failed to message staff thread", "thread", thread.ID, "error", err)
	}

	b.respondThreadLink(s, i, thread)
}

// respondThreadLink replaces the panel with a link button into the thread.
func (b *Bot) respondThreadLink(s *discordgo.Session, i *discordgo.InteractionCreate, thread *discordgo.Channel) {
	url := "https://discord.com/channels/" + i.GuildID + "/" + thread.ID
	_ = updateMessage(s, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       b.t(i, "verification.thread_link.title", nil),
			Description: b.t(i, "verification.thread_link.desc", nil),
			Color:       colorPrimary,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label: b.t(i, "verification.bbb.thread.open_button", nil),
					Style: discordgo.LinkButton,
					URL:   url,
				},
			}},
		},
	})
}

// openBBBThread creates the private instruction thread for BuiltByBit
// purchases; that marketplace has no lookup API, so verification happens in
// conversation with staff.
func (b *Bot) openBBBThread(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	channelID := b.config.Verification.Channels.VerificationChannel
	if channelID == "" {
		channelID = i.ChannelID
	}

	thread, err := s.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                "builtbybit-" + user.Username,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		AutoArchiveDuration: 1440,
		Invitable:           false,
	})
	if err != nil {
		slog.Error("Failed to open BuiltByBit thread", "error", err)
		_ = updateMessage(s, i, &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{b.errorEmbed(i, "verification.errors.generic", nil)},
			Components: []discordgo.MessageComponent{},
		})
		return
	}

	_, err = s.ChannelMessageSendComplex(thread.ID, &discordgo.MessageSend{
		Content: user.Mention(),
		Embeds: []*discordgo.MessageEmbed{{
			Title: b.t(i, "verification.bbb.thread.title", nil),
			Description: b.t(i, "verification.bbb.thread.desc", map[string]string{
				"bot": s.State.User.Mention(),
			}),
			Color: colorPrimary,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    b.t(i, "verification.bbb.notify.button", nil),
					Style:    discordgo.SecondaryButton,
					CustomID: "verify:bbb:notify",
				},
			}},
		},
	})
	if err != nil {
		slog.Error("Failed to message BuiltByBit thread", "thread", thread.ID, "error", err)
	}

	b.respondThreadLink(s, i, thread)
}

// handleBBBNotify pings staff inside an existing BuiltByBit thread.
func (b *Bot) handleBBBNotify(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	contentKey := "verification.bbb.notify.content.no_role"
	params := map[string]string{"user": user.Mention()}
	if role := b.config.Verification.Channels.StaffRole; role != "" {
		contentKey = "verification.bbb.notify.content.with_role"
		params["role"] = "<@&" + role + ">"
	}
	if _, err := s.ChannelMessageSend(i.ChannelID, b.t(i, contentKey, params)); err != nil {
		slog.Error("Failed to notify staff in thread", "thread", i.ChannelID, "error", err)
	}
	_ = deferUpdate(s, i)
}

func buttonStyle(name string) discordgo.ButtonStyle {
	switch name {
	case "primary", "blurple":
		return discordgo.PrimaryButton
	case "success", "green":
		return discordgo.SuccessButton
	case "danger", "red":
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}
