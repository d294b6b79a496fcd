package domain

type GuildRole struct {
	ID   string
	Name string
}

func (r *GuildRole) Mention() string {
	return "<@&" + r.ID + ">"
}

type GuildChannel struct {
	ID      string
	GuildID string
	Name    string
}

func (c *GuildChannel) Mention() string {
	return "<#" + c.ID + ">"
}

type CustomEmoji struct {
	ID       string
	Name     string
	Animated bool
}

type GuildMember struct {
	UserID  string
	IsBot   bool
	RoleIDs []string
}

func (m *GuildMember) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// AnchorMessage is a fetched chat message with the keys of its live reactions.
// Custom emoji reactions are keyed as name:id, unicode ones by the glyph.
type AnchorMessage struct {
	ID        string
	ChannelID string
	Reactions []string
}

func (m *AnchorMessage) HasReaction(key string) bool {
	for _, r := range m.Reactions {
		if r == key {
			return true
		}
	}
	return false
}

// Embed is a titled, colored structured message.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

type EmbedField struct {
	Name  string
	Value string
}
