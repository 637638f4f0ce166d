package bot

import (
	"log/slog"
	"slices"

	"github.com/bwmarrin/discordgo"
)

// handleThreadCreate tags new support-forum threads opened by verified
// buyers with the priority tag.
func (b *Bot) handleThreadCreate(s *discordgo.Session, t *discordgo.ThreadCreate) {
	support := b.config.Forums.Support
	if !t.NewlyCreated || support.ChannelID == "" || t.ParentID != support.ChannelID {
		return
	}
	if support.PriorityTagID == "" || t.OwnerID == "" {
		return
	}

	member, err := s.GuildMember(t.GuildID, t.OwnerID)
	if err != nil {
		slog.Warn("Could not fetch thread owner", "thread", t.ID, "owner", t.OwnerID, "error", err)
		return
	}
	if !slices.Contains(member.Roles, b.config.Verification.Roles.Buyer) {
		return
	}

	if err := b.applyPriorityTag(s, t.Channel); err != nil {
		slog.Error("Failed to tag buyer thread", "thread", t.ID, "error", err)
		return
	}
	slog.Info("Applied priority tag to buyer thread", "thread", t.ID, "owner", t.OwnerID)
}

// handlePriorityTag handles the /priority_tag command inside a support
// thread. Each guard answers with a specific message so users know what to
// fix.
func (b *Bot) handlePriorityTag(s *discordgo.Session, i *discordgo.InteractionCreate) {
	reply := func(key string) {
		_ = respondEphemeral(s, i, &discordgo.InteractionResponseData{
			Content: b.t(i, key, nil),
		})
	}

	channel, err := s.Channel(i.ChannelID)
	if err != nil || !channel.IsThread() {
		reply("forums.support.priority_tag.error_not_thread")
		return
	}
	support := b.config.Forums.Support
	if support.ChannelID == "" || channel.ParentID != support.ChannelID {
		reply("forums.support.priority_tag.error_wrong_channel")
		return
	}

	buyerRole := b.config.Verification.Roles.Buyer
	if buyerRole == "" {
		reply("forums.support.priority_tag.error_buyer_role_missing")
		return
	}
	if i.Member == nil || !slices.Contains(i.Member.Roles, buyerRole) {
		reply("forums.support.priority_tag.error_not_buyer")
		return
	}
	if channel.OwnerID != i.Member.User.ID {
		reply("forums.support.priority_tag.error_not_owner")
		return
	}
	if support.PriorityTagID == "" {
		reply("forums.support.priority_tag.error_tag_not_found")
		return
	}
	if slices.Contains(channel.AppliedTags, support.PriorityTagID) {
		reply("forums.support.priority_tag.error_already_tagged")
		return
	}

	if err := b.applyPriorityTag(s, channel); err != nil {
		slog.Error("Failed to apply priority tag", "thread", channel.ID, "error", err)
		reply("forums.support.priority_tag.error_apply_failed")
		return
	}
	reply("forums.support.priority_tag.success")
}

func (b *Bot) applyPriorityTag(s *discordgo.Session, channel *discordgo.Channel) error {
	tagID := b.config.Forums.Support.PriorityTagID
	if slices.Contains(channel.AppliedTags, tagID) {
		return nil
	}
	tags := append(append([]string(nil), channel.AppliedTags...), tagID)
	_, err := s.ChannelEdit(channel.ID, &discordgo.ChannelEdit{AppliedTags: &tags})
	return err
}
