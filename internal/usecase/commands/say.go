package commands

import (
	"context"
	"strings"

	"reactbot/internal/domain"
	"reactbot/internal/usecase/resolve"
)

type SayCommand struct {
	chat  domain.ChatService
	guild domain.GuildDirectory
}

func NewSayCommand(chat domain.ChatService, guild domain.GuildDirectory) *SayCommand {
	return &SayCommand{chat: chat, guild: guild}
}

func (c *SayCommand) Name() string      { return "say" }
func (c *SayCommand) Aliases() []string { return nil }
func (c *SayCommand) NeedArgs() bool    { return true }

func (c *SayCommand) Usage(prefix string) string {
	return "Let bot say something.\n\n" +
		"**This channel:**\n`" + prefix + "say <message>`\n" +
		"**Specific channel:**\n`" + prefix + "say <channel id|mention> <message>`"
}

func (c *SayCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	msg := cmdCtx.Message
	args := cmdCtx.Args

	if channelID := resolve.ChannelID(args[0]); channelID != "" {
		if _, ok := c.guild.Channel(msg.GuildID, channelID); ok {
			if len(args) < 2 {
				return invalidArgs(ctx, cmdCtx, c.Name())
			}
			if err := c.chat.SendMessage(ctx, channelID, strings.Join(args[1:], " ")); err != nil {
				cmdCtx.logger().WithError(err).WithField("target_channel", channelID).Warn("say failed")
				return cmdCtx.Out.Error(ctx, msg.ChannelID, "Error!", codeBlock(err))
			}
			return nil
		}
	}

	// sin canal: se borra el comando y se repite en este canal
	if err := c.chat.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		cmdCtx.logger().WithError(err).Warn("could not delete say command message")
	}
	return cmdCtx.Out.Text(ctx, msg.ChannelID, strings.Join(args, " "))
}
