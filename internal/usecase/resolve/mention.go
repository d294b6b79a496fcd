// Package resolve turns user supplied mentions, raw ids and emoji tokens
// into the canonical keys used by the reaction role store.
//
// Every function is total: malformed input yields the zero value.
package resolve

import "strings"

// UserID accepts <@id>, <@!id> or a bare id.
func UserID(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(s[2:len(s)-1], "!")
	}
	return snowflake(s)
}

// RoleID accepts <@&id> or a bare id.
func RoleID(raw string) string {
	return unwrap(raw, "<@&")
}

// ChannelID accepts <#id> or a bare id.
func ChannelID(raw string) string {
	return unwrap(raw, "<#")
}

func unwrap(raw, open string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, open) && strings.HasSuffix(s, ">") {
		s = s[len(open) : len(s)-1]
	}
	return snowflake(s)
}

func snowflake(s string) string {
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return s
}

// MessageID accepts a bare message id.
func MessageID(raw string) string {
	return snowflake(strings.TrimSpace(raw))
}
