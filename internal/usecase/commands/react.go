package commands

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"reactbot/internal/domain"
	"reactbot/internal/usecase/resolve"
)

type ReactCommand struct {
	chat  domain.ChatService
	guild domain.GuildDirectory
}

func NewReactCommand(chat domain.ChatService, guild domain.GuildDirectory) *ReactCommand {
	return &ReactCommand{chat: chat, guild: guild}
}

func (c *ReactCommand) Name() string      { return "react" }
func (c *ReactCommand) Aliases() []string { return nil }
func (c *ReactCommand) NeedArgs() bool    { return true }

func (c *ReactCommand) Usage(prefix string) string {
	return "Let bot react to message.\n\n" +
		"`" + prefix + "react <+|-> <message> <channel id|mention> <emoji>`\n" +
		"> + for add react\n> - for remove react\n" +
		"*Must pass the channel argument for fast fetch message from server."
}

func (c *ReactCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	msg := cmdCtx.Message
	args := cmdCtx.Args
	if len(args) < 4 || (args[0] != "+" && args[0] != "-") {
		return invalidArgs(ctx, cmdCtx, c.Name())
	}

	messageID := resolve.MessageID(args[1])
	channelID := resolve.ChannelID(args[2])
	key := resolve.EmojiKey(args[3])
	if messageID == "" || key == "" {
		return invalidArgs(ctx, cmdCtx, c.Name())
	}

	channel, ok := c.guild.Channel(msg.GuildID, channelID)
	if !ok {
		return cmdCtx.Out.Error(ctx, msg.ChannelID, "Error", "Not found specified channel.")
	}

	anchor, err := c.chat.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			cmdCtx.logger().WithError(err).WithField("message_id", messageID).Warn("fetch message failed")
		}
		return cmdCtx.Out.Error(ctx, msg.ChannelID, "Error",
			fmt.Sprintf("Not found message id `%s` in channel %s.", messageID, channel.Mention()))
	}

	emoji := resolve.FromKey(key, func(id string) (*domain.CustomEmoji, bool) {
		return c.guild.Emoji(msg.GuildID, id)
	})

	switch args[0] {
	case "+":
		if err := c.chat.AddReaction(ctx, channelID, messageID, emoji.APIName()); err != nil {
			return cmdCtx.Out.Error(ctx, msg.ChannelID, "Error", codeBlock(err))
		}
	case "-":
		if !anchor.HasReaction(emoji.APIName()) {
			return cmdCtx.Out.Error(ctx, msg.ChannelID, "Error",
				fmt.Sprintf("Not found reaction %s on message id `%s`", emoji, messageID))
		}
		if err := c.chat.RemoveOwnReaction(ctx, channelID, messageID, emoji.APIName()); err != nil {
			return cmdCtx.Out.Error(ctx, msg.ChannelID, "Error", codeBlock(err))
		}
	}
	return cmdCtx.Out.Success(ctx, msg.ChannelID, "Success", "")
}
