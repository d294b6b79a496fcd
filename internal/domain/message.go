package domain

type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Text      string
	IsBot     bool

	// Flags que rellena el adapter a partir del miembro del servidor
	RoleIDs      []string
	IsGuildOwner bool
}

func (m Message) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Mention devuelve la mención del autor en el formato del chat.
func (m Message) Mention() string {
	return "<@" + m.UserID + ">"
}

// ReactionEvent es una reacción quitada de un mensaje por un usuario.
// EmojiID va vacío para emojis unicode.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	EmojiID   string
	EmojiName string
}
