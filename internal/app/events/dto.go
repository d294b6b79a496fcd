package events

import (
	"time"

	"reactbot/internal/domain"
)

// ReactionRoleEventDTO describe el payload que se publica en el bus cuando
// cambia un binding o se revoca un rol.
type ReactionRoleEventDTO struct {
	Topic     string `json:"topic"`
	MessageID string `json:"message_id"`
	Reaction  string `json:"reaction,omitempty"`
	RoleID    string `json:"role_id,omitempty"`
	Type      string `json:"type,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Count     int    `json:"count,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewReactionRoleEventDTO crea un DTO serializable a partir de un binding.
func NewReactionRoleEventDTO(topic string, rr *domain.ReactionRole, userID string) ReactionRoleEventDTO {
	dto := ReactionRoleEventDTO{
		Topic:     topic,
		UserID:    userID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if rr != nil {
		dto.MessageID = rr.MessageID
		dto.Reaction = rr.Reaction
		dto.RoleID = rr.RoleID
		dto.Type = string(rr.Type)
		dto.ChannelID = rr.ChannelID
	}
	return dto
}

// ChatCommandDTO describe un comando despachado.
type ChatCommandDTO struct {
	RequestID string `json:"request_id"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
}

func NewChatCommandDTO(requestID, command string, msg domain.Message) ChatCommandDTO {
	return ChatCommandDTO{
		RequestID: requestID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
