package discordadapter

import (
	"context"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"

	"reactbot/internal/domain"
)

func (a *Adapter) SendMessage(ctx context.Context, channelID, text string) error {
	if _, err := a.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "discord: send message to %s", channelID)
	}
	return nil
}

func (a *Adapter) SendEmbed(ctx context.Context, channelID string, embed domain.Embed) error {
	if _, err := a.session.ChannelMessageSendEmbed(channelID, toDiscordEmbed(embed), discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "discord: send embed to %s", channelID)
	}
	return nil
}

func (a *Adapter) Reply(ctx context.Context, channelID, messageID, text string) error {
	ref := &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID}
	if _, err := a.session.ChannelMessageSendReply(channelID, text, ref, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "discord: reply to %s", messageID)
	}
	return nil
}

func (a *Adapter) FetchMessage(ctx context.Context, channelID, messageID string) (*domain.AnchorMessage, error) {
	m, err := a.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.NotFoundError{Kind: domain.NotFoundMessage, ID: messageID}
		}
		return nil, errors.Wrapf(err, "discord: fetch message %s", messageID)
	}
	return toAnchor(m), nil
}

func (a *Adapter) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := a.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "discord: add reaction %s", emoji)
	}
	return nil
}

func (a *Adapter) RemoveOwnReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := a.session.MessageReactionRemove(channelID, messageID, emoji, "@me", discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "discord: remove reaction %s", emoji)
	}
	return nil
}

func (a *Adapter) ExpectReply(channelID, authorID string) domain.PendingReply {
	return a.collector.Expect(channelID, authorID)
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return errors.Wrapf(err, "discord: delete message %s", messageID)
	}
	return nil
}

// BulkDelete borra hasta limit mensajes recientes del canal.
func (a *Adapter) BulkDelete(ctx context.Context, channelID string, limit int) (int, error) {
	msgs, err := a.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, errors.Wrapf(err, "discord: list messages in %s", channelID)
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := a.session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)); err != nil {
		return 0, errors.Wrapf(err, "discord: bulk delete in %s", channelID)
	}
	return len(ids), nil
}

func toDiscordEmbed(e domain.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	return out
}

// toAnchor indexa las reacciones del bot como name:id (custom) o el glifo (unicode).
func toAnchor(m *discordgo.Message) *domain.AnchorMessage {
	anchor := &domain.AnchorMessage{ID: m.ID, ChannelID: m.ChannelID}
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil || !r.Me {
			continue
		}
		anchor.Reactions = append(anchor.Reactions, r.Emoji.APIName())
	}
	return anchor
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownRole:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
