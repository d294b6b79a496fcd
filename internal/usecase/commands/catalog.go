package commands

import "reactbot/internal/domain"

// Deps agrupa lo que necesitan los comandos incluidos en el bot.
type Deps struct {
	Chat          domain.ChatService
	Guild         domain.GuildDirectory
	ReactionRoles ReactionRoles
	Permissions   Permissions
}

// BuiltinFactories devuelve las factories de los comandos incluidos, en el orden en que se registran.
func BuiltinFactories(reg Registry, deps Deps) []Factory {
	return []Factory{
		func() Command { return NewPingCommand() },
		func() Command { return NewHelpCommand(reg) },
		func() Command { return NewAllCommandsCommand(reg) },
		func() Command { return NewAliasCommand(reg) },
		func() Command { return NewSayCommand(deps.Chat, deps.Guild) },
		func() Command { return NewPruneCommand(deps.Chat, deps.Permissions) },
		func() Command { return NewReactCommand(deps.Chat, deps.Guild) },
		func() Command { return NewReloadCommand(reg) },
		func() Command { return NewReactRoleCommand(deps.ReactionRoles) },
	}
}

// RegisterBuiltins registra todos los comandos incluidos en el router.
func RegisterBuiltins(r *Router, deps Deps) {
	for _, f := range BuiltinFactories(r, deps) {
		r.Register(f)
	}
}

var (
	_ Command = (*PingCommand)(nil)
	_ Command = (*HelpCommand)(nil)
	_ Command = (*AllCommandsCommand)(nil)
	_ Command = (*AliasCommand)(nil)
	_ Command = (*SayCommand)(nil)
	_ Command = (*PruneCommand)(nil)
	_ Command = (*ReactCommand)(nil)
	_ Command = (*ReloadCommand)(nil)
	_ Command = (*ReactRoleCommand)(nil)
	_ Registry = (*Router)(nil)
)
