package resolve

import (
	"strings"

	"reactbot/internal/domain"
)

// Emoji is a reaction as the user wrote it or as the store holds it.
// A unicode emoji only has Name.
type Emoji struct {
	ID       string
	Name     string
	Animated bool
}

// ParseEmoji reads a custom emoji mention (<:name:id> or <a:name:id>) or
// keeps any other single token as a literal emoji.
func ParseEmoji(token string) (Emoji, bool) {
	s := strings.TrimSpace(token)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return Emoji{}, false
	}

	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return Emoji{Name: s}, true
	}

	body := s[1 : len(s)-1]
	animated := false
	switch {
	case strings.HasPrefix(body, "a:"):
		animated = true
		body = body[2:]
	case strings.HasPrefix(body, ":"):
		body = body[1:]
	default:
		return Emoji{}, false
	}

	sep := strings.LastIndex(body, ":")
	if sep <= 0 {
		return Emoji{}, false
	}
	name, id := body[:sep], snowflake(body[sep+1:])
	if id == "" {
		return Emoji{}, false
	}
	return Emoji{ID: id, Name: name, Animated: animated}, true
}

// EmojiKey is the store/registry key for a user token: the bare id for a
// custom emoji, the token itself otherwise. Empty when malformed.
func EmojiKey(token string) string {
	e, ok := ParseEmoji(token)
	if !ok {
		return ""
	}
	return e.Key()
}

// ReactionKey is the key the live reaction set uses for a user token:
// name:id for a custom emoji, the token itself otherwise.
func ReactionKey(token string) string {
	e, ok := ParseEmoji(token)
	if !ok {
		return ""
	}
	return e.APIName()
}

func (e Emoji) IsCustom() bool {
	return e.ID != ""
}

func (e Emoji) Key() string {
	if e.IsCustom() {
		return e.ID
	}
	return e.Name
}

func (e Emoji) APIName() string {
	if e.IsCustom() {
		return e.Name + ":" + e.ID
	}
	return e.Name
}

// String renders the emoji for a chat message.
func (e Emoji) String() string {
	if !e.IsCustom() {
		return e.Name
	}
	if e.Animated {
		return "<a:" + e.Name + ":" + e.ID + ">"
	}
	return "<:" + e.Name + ":" + e.ID + ">"
}

// EmojiLookup finds a custom emoji in the guild registry by id.
type EmojiLookup func(id string) (*domain.CustomEmoji, bool)

// FromKey rebuilds an Emoji from a stored key. Keys that are registered
// custom emoji ids come back with their name; anything else stays literal.
func FromKey(key string, lookup EmojiLookup) Emoji {
	if lookup != nil && snowflake(key) != "" {
		if ce, ok := lookup(key); ok && ce != nil {
			return Emoji{ID: ce.ID, Name: ce.Name, Animated: ce.Animated}
		}
	}
	return Emoji{Name: key}
}

// MatchesKey reports whether a live reaction (id, name) is the one stored
// under key. Stored custom emoji keys may be the bare id or name:id.
func MatchesKey(key, emojiID, emojiName string) bool {
	if key == "" {
		return false
	}
	if emojiID == "" {
		return key == emojiName
	}
	return key == emojiID || key == emojiName+":"+emojiID
}
