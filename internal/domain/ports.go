package domain

import (
	"context"
	"time"
)

// OutgoingMessagePort envía texto y embeds a un canal.
type OutgoingMessagePort interface {
	SendMessage(ctx context.Context, channelID, text string) error
	SendEmbed(ctx context.Context, channelID string, embed Embed) error
}

// ChatService es la API de mensajes del chat que consumen los usecases.
type ChatService interface {
	OutgoingMessagePort

	// Reply responde citando el mensaje messageID.
	Reply(ctx context.Context, channelID, messageID, text string) error
	// FetchMessage devuelve ErrNotFound si el mensaje no existe en el canal.
	FetchMessage(ctx context.Context, channelID, messageID string) (*AnchorMessage, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveOwnReaction(ctx context.Context, channelID, messageID, emoji string) error
	// ExpectReply registra la espera de un único mensaje del autor en el canal.
	// Los mensajes que lleguen antes de Wait no se pierden.
	ExpectReply(channelID, authorID string) PendingReply
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	BulkDelete(ctx context.Context, channelID string, limit int) (int, error)
}

// PendingReply es una espera ya registrada.
type PendingReply interface {
	// Wait devuelve nil, nil si vence el timeout. Libera la espera siempre.
	Wait(ctx context.Context, timeout time.Duration) (*Message, error)
}

// GuildDirectory resuelve roles, canales, emojis y miembros de un servidor.
type GuildDirectory interface {
	Role(guildID, roleID string) (*GuildRole, bool)
	Channel(guildID, channelID string) (*GuildChannel, bool)
	Emoji(guildID, emojiID string) (*CustomEmoji, bool)
	Member(ctx context.Context, guildID, userID string) (*GuildMember, error)
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error
}
