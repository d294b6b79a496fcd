package commands

import "context"

type PingCommand struct{}

func NewPingCommand() *PingCommand {
	return &PingCommand{}
}

func (c *PingCommand) Name() string {
	return "ping"
}

func (c *PingCommand) Aliases() []string {
	return []string{}
}

func (c *PingCommand) Usage(prefix string) string {
	return "Ping-pong.\n`" + prefix + "ping`"
}

func (c *PingCommand) NeedArgs() bool { return false }

func (c *PingCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	return cmdCtx.Out.Text(ctx, cmdCtx.Message.ChannelID, "Pong")
}
