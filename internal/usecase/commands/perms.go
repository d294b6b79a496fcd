package commands

import "reactbot/internal/domain"

// Permissions resuelve los niveles de acceso a partir de la config.
type Permissions struct {
	BotOwner  string
	RoleAdmin string
	RoleMod   string
}

func (p Permissions) IsBotOwner(msg domain.Message) bool {
	return p.BotOwner != "" && msg.UserID == p.BotOwner
}

func (p Permissions) IsServerOwner(msg domain.Message) bool {
	return msg.IsGuildOwner
}

func (p Permissions) IsAdminOrAbove(msg domain.Message) bool {
	if msg.HasRole(p.RoleAdmin) {
		return true
	}
	return p.IsServerOwner(msg)
}

func (p Permissions) IsModOrAbove(msg domain.Message) bool {
	if msg.HasRole(p.RoleMod) {
		return true
	}
	return p.IsAdminOrAbove(msg)
}
