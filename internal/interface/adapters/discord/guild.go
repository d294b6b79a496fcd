package discordadapter

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"reactbot/internal/domain"
)

// Role, Channel y Emoji leen del state del gateway; Member cae a REST si no está cacheado.

func (a *Adapter) Role(guildID, roleID string) (*domain.GuildRole, bool) {
	r, err := a.session.State.Role(guildID, roleID)
	if err != nil || r == nil {
		return nil, false
	}
	return &domain.GuildRole{ID: r.ID, Name: r.Name}, true
}

func (a *Adapter) Channel(guildID, channelID string) (*domain.GuildChannel, bool) {
	c, err := a.session.State.Channel(channelID)
	if err != nil || c == nil {
		return nil, false
	}
	if guildID != "" && c.GuildID != guildID {
		return nil, false
	}
	return &domain.GuildChannel{ID: c.ID, GuildID: c.GuildID, Name: c.Name}, true
}

func (a *Adapter) Emoji(guildID, emojiID string) (*domain.CustomEmoji, bool) {
	e, err := a.session.State.Emoji(guildID, emojiID)
	if err != nil || e == nil {
		return nil, false
	}
	return &domain.CustomEmoji{ID: e.ID, Name: e.Name, Animated: e.Animated}, true
}

func (a *Adapter) Member(ctx context.Context, guildID, userID string) (*domain.GuildMember, error) {
	m, err := a.session.State.Member(guildID, userID)
	if err != nil || m == nil {
		m, err = a.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			if isNotFound(err) {
				return nil, errors.Wrapf(domain.ErrNotFound, "member %s", userID)
			}
			return nil, errors.Wrapf(err, "discord: fetch member %s", userID)
		}
	}
	member := &domain.GuildMember{
		UserID:  userID,
		RoleIDs: append([]string(nil), m.Roles...),
	}
	if m.User != nil {
		member.IsBot = m.User.Bot
	}
	return member, nil
}

func (a *Adapter) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := a.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "discord: remove role %s from %s", roleID, userID)
	}
	return nil
}

var (
	_ domain.ChatService    = (*Adapter)(nil)
	_ domain.GuildDirectory = (*Adapter)(nil)
)
