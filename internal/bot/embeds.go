package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/TechMC-Studios/discord-bot/internal/author"
	"github.com/TechMC-Studios/discord-bot/internal/verify"
)

// Embed accent colors.
const (
	colorPrimary = 0x5865F2
	colorSuccess = 0x57F287
	colorWarning = 0xFEE75C
	colorError   = 0xED4245
)

func (b *Bot) panelEmbed(i *discordgo.InteractionCreate) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       b.t(i, "verification.panel.embed.title", nil),
		Description: b.t(i, "verification.panel.embed.desc", nil),
		Color:       colorPrimary,
		Footer: &discordgo.MessageEmbedFooter{
			Text: b.t(i, "verification.panel.embed.footer", nil),
		},
	}
}

func (b *Bot) platformsEmbed(i *discordgo.InteractionCreate) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       b.t(i, "verification.platforms.title", nil),
		Description: b.t(i, "verification.platforms.desc", nil),
		Color:       colorPrimary,
	}
}

func (b *Bot) apiDownEmbed(i *discordgo.InteractionCreate) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       b.t(i, "verification.api_down.title", nil),
		Description: b.t(i, "verification.api_down.desc", nil),
		Color:       colorError,
	}
}

func (b *Bot) errorEmbed(i *discordgo.InteractionCreate, descKey string, params map[string]string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: b.t(i, descKey, params),
		Color:       colorError,
	}
}

// outcomeEmbed renders a terminal workflow state for the spigot-style flows.
// Ownership halts are rendered by the richer link-help view instead.
func (b *Bot) outcomeEmbed(i *discordgo.InteractionCreate, out verify.Outcome) *discordgo.MessageEmbed {
	switch out.State {
	case verify.StateVerified:
		return &discordgo.MessageEmbed{
			Title: b.t(i, "verification.spigot.resources.title", nil),
			Description: b.t(i, "verification.spigot.resources.desc", map[string]string{
				"username":  authorName(out.Author),
				"resources": formatGranted(out.Granted),
			}),
			Color: colorSuccess,
		}
	case verify.StateNotABuyer, verify.StateNothingRegistered:
		return &discordgo.MessageEmbed{
			Title: b.t(i, "verification.spigot.not_buyer.title", nil),
			Description: b.t(i, "verification.spigot.not_buyer.desc", map[string]string{
				"username": authorName(out.Author),
			}),
			Color: colorWarning,
		}
	case verify.StateNotFound:
		return b.errorEmbed(i, "verification.spigot.errors.not_found", nil)
	case verify.StateUnavailable:
		return b.apiDownEmbed(i)
	default:
		return b.errorEmbed(i, "verification.errors.generic", nil)
	}
}

// linkHelpEmbeds builds the multi-step guide shown on ownership halts.
func (b *Bot) linkHelpEmbeds(i *discordgo.InteractionCreate, out verify.Outcome, actorHandle string) []*discordgo.MessageEmbed {
	mismatch := out.State == verify.StateOwnershipMismatch

	spigotDiscord := b.t(i, "verification.labels.not_linked", nil)
	statusKey := "verification.spigot.link_help.details.status.not_linked"
	finalKey := "verification.spigot.link_help.final.not_linked.desc"
	if mismatch {
		spigotDiscord = out.Author.DiscordName
		statusKey = "verification.spigot.link_help.details.status.mismatch"
		finalKey = "verification.spigot.link_help.final.mismatch.desc"
	}

	details := &discordgo.MessageEmbed{
		Title:       b.t(i, "verification.spigot.link_help.details.title", nil),
		Description: b.t(i, statusKey, nil),
		Color:       colorWarning,
		Fields: []*discordgo.MessageEmbedField{
			{Name: b.t(i, "verification.spigot.link_help.details.current_discord", nil), Value: "`" + actorHandle + "`", Inline: true},
			{Name: b.t(i, "verification.spigot.link_help.details.spigot_discord", nil), Value: "`" + spigotDiscord + "`", Inline: true},
		},
	}
	steps := &discordgo.MessageEmbed{
		Color: colorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: b.t(i, "verification.spigot.link_help.step1.title", nil), Value: b.t(i, "verification.spigot.link_help.step1.desc", nil)},
			{Name: b.t(i, "verification.spigot.link_help.step2.title", nil), Value: b.t(i, "verification.spigot.link_help.step2.desc", nil)},
		},
	}
	final := &discordgo.MessageEmbed{
		Title:       b.t(i, "verification.spigot.link_help.final.title", nil),
		Description: b.t(i, finalKey, nil),
		Color:       colorPrimary,
		Footer: &discordgo.MessageEmbedFooter{
			Text: b.t(i, "verification.spigot.link_help.note_delay", nil),
		},
	}
	return []*discordgo.MessageEmbed{details, steps, final}
}

func (b *Bot) polymartGuideEmbed(i *discordgo.InteractionCreate) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: colorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{Name: b.t(i, "verification.polymart.embed.step1", nil), Value: b.t(i, "verification.polymart.embed.step1_desc", nil)},
			{Name: b.t(i, "verification.polymart.embed.step2", nil), Value: b.t(i, "verification.polymart.embed.step2_desc", nil)},
			{Name: b.t(i, "verification.polymart.embed.step3", nil), Value: b.t(i, "verification.polymart.embed.step3_desc", nil)},
			{Name: b.t(i, "verification.polymart.embed.step4", nil), Value: b.t(i, "verification.polymart.embed.step4_desc", nil)},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: b.t(i, "verification.polymart.embed.footer", nil),
		},
	}
}

func (b *Bot) polymartOutcomeEmbed(i *discordgo.InteractionCreate, out verify.Outcome) *discordgo.MessageEmbed {
	switch out.State {
	case verify.StateVerified:
		return &discordgo.MessageEmbed{
			Title: b.t(i, "verification.polymart.success.title", nil),
			Description: b.t(i, "verification.polymart.success.description", map[string]string{
				"username":  authorName(out.Author),
				"resources": formatGranted(out.Granted),
			}),
			Color: colorSuccess,
			Footer: &discordgo.MessageEmbedFooter{
				Text: b.t(i, "verification.polymart.success.footer", nil),
			},
		}
	case verify.StateNoPurchases:
		return &discordgo.MessageEmbed{
			Title: b.t(i, "verification.polymart.no_purchases.title", nil),
			Description: b.t(i, "verification.polymart.no_purchases.description", map[string]string{
				"username": authorName(out.Author),
			}),
			Color: colorWarning,
		}
	case verify.StateNotFound:
		return &discordgo.MessageEmbed{
			Title:       b.t(i, "verification.polymart.error.title", nil),
			Description: b.t(i, "verification.polymart.error.no_user_data", nil),
			Color:       colorError,
		}
	case verify.StateInvalidInput:
		return &discordgo.MessageEmbed{
			Title:       b.t(i, "verification.polymart.error.title", nil),
			Description: b.t(i, "verification.polymart.error.invalid_format", nil),
			Color:       colorError,
		}
	case verify.StateUnavailable:
		return b.apiDownEmbed(i)
	default:
		return b.errorEmbed(i, "verification.errors.generic", nil)
	}
}

func authorName(info *author.Info) string {
	if info == nil {
		return "?"
	}
	return info.Username
}

func formatGranted(granted []verify.GrantedResource) string {
	if len(granted) == 0 {
		return "-"
	}
	var sb strings.Builder
	for _, g := range granted {
		fmt.Fprintf(&sb, "• **%s**\n", g.Name)
	}
	return strings.TrimRight(sb.String(), "\n")
}
