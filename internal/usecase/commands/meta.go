package commands

import (
	"context"
	"strings"
)

// Registry es la vista del router que usan los comandos de ayuda y reload.
type Registry interface {
	Lookup(name string) (Command, bool)
	Commands() []Command
	Reload(name string) (Command, error)
}

type HelpCommand struct {
	reg Registry
}

func NewHelpCommand(reg Registry) *HelpCommand {
	return &HelpCommand{reg: reg}
}

func (c *HelpCommand) Name() string      { return "help" }
func (c *HelpCommand) Aliases() []string { return nil }
func (c *HelpCommand) NeedArgs() bool    { return true }

func (c *HelpCommand) Usage(prefix string) string {
	return "`" + prefix + "help <command>`"
}

func (c *HelpCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	channelID := cmdCtx.Message.ChannelID
	name := strings.ToLower(cmdCtx.Args[0])

	cmd, ok := c.reg.Lookup(name)
	if !ok {
		return noCommand(ctx, cmdCtx, name)
	}
	usage := cmd.Usage(cmdCtx.Prefix)
	if usage == "" {
		return cmdCtx.Out.Error(ctx, channelID, "No help defined for `"+name+"`", "")
	}
	return cmdCtx.Out.Success(ctx, channelID, "Help for `"+cmd.Name()+"` command", usage)
}

type AllCommandsCommand struct {
	reg Registry
}

func NewAllCommandsCommand(reg Registry) *AllCommandsCommand {
	return &AllCommandsCommand{reg: reg}
}

func (c *AllCommandsCommand) Name() string      { return "allcmds" }
func (c *AllCommandsCommand) Aliases() []string { return nil }
func (c *AllCommandsCommand) NeedArgs() bool    { return false }

func (c *AllCommandsCommand) Usage(prefix string) string {
	return "List all commands that this bot has.\n`" + prefix + "allcmds`"
}

func (c *AllCommandsCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	var b strings.Builder
	for _, cmd := range c.reg.Commands() {
		if cmd.Name() == c.Name() {
			continue
		}
		b.WriteString(cmd.Name())
		b.WriteString("\n")
	}
	return cmdCtx.Out.Success(ctx, cmdCtx.Message.ChannelID, "All commands", b.String())
}

type AliasCommand struct {
	reg Registry
}

func NewAliasCommand(reg Registry) *AliasCommand {
	return &AliasCommand{reg: reg}
}

func (c *AliasCommand) Name() string      { return "alias" }
func (c *AliasCommand) Aliases() []string { return nil }
func (c *AliasCommand) NeedArgs() bool    { return true }

func (c *AliasCommand) Usage(prefix string) string {
	return "List all alias of given command.\n`" + prefix + "alias <command>`"
}

func (c *AliasCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	channelID := cmdCtx.Message.ChannelID
	name := cmdCtx.Args[0]

	cmd, ok := c.reg.Lookup(name)
	if !ok {
		return noCommand(ctx, cmdCtx, name)
	}
	aliases := cmd.Aliases()
	if len(aliases) == 0 {
		return cmdCtx.Out.Success(ctx, channelID, "No alias for command `"+cmd.Name()+"`", "")
	}
	return cmdCtx.Out.Success(ctx, channelID, "Alias for command `"+cmd.Name()+"`", strings.Join(aliases, "\n"))
}

type ReloadCommand struct {
	reg Registry
}

func NewReloadCommand(reg Registry) *ReloadCommand {
	return &ReloadCommand{reg: reg}
}

func (c *ReloadCommand) Name() string      { return "reload" }
func (c *ReloadCommand) Aliases() []string { return nil }
func (c *ReloadCommand) NeedArgs() bool    { return true }

func (c *ReloadCommand) Usage(prefix string) string {
	return "`" + prefix + "reload <command>`"
}

func (c *ReloadCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	channelID := cmdCtx.Message.ChannelID
	name := strings.ToLower(cmdCtx.Args[0])

	if target, ok := c.reg.Lookup(name); ok && target.Name() == c.Name() {
		return cmdCtx.Out.Error(ctx, channelID, "Can't reload command itself", "Usage:\n"+c.Usage(cmdCtx.Prefix))
	}
	if _, ok := c.reg.Lookup(name); !ok {
		return noCommand(ctx, cmdCtx, name)
	}

	if _, err := c.reg.Reload(name); err != nil {
		cmdCtx.logger().WithError(err).WithField("command", name).Error("reload failed")
		return cmdCtx.Out.Error(ctx, channelID, "There was an error while reloading command `"+name+"`", err.Error())
	}
	cmdCtx.logger().WithField("command", name).Info("command reloaded")
	return cmdCtx.Out.Success(ctx, channelID, "Command `"+name+"` reloaded!", "")
}
