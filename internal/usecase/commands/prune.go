package commands

import (
	"context"
	"fmt"
	"strconv"

	"reactbot/internal/domain"
)

const maxPrune = 100

type PruneCommand struct {
	chat  domain.ChatService
	perms Permissions
}

func NewPruneCommand(chat domain.ChatService, perms Permissions) *PruneCommand {
	return &PruneCommand{chat: chat, perms: perms}
}

func (c *PruneCommand) Name() string      { return "prune" }
func (c *PruneCommand) Aliases() []string { return nil }
func (c *PruneCommand) NeedArgs() bool    { return false }

func (c *PruneCommand) Usage(prefix string) string {
	return "`" + prefix + "prune <number 1~100>`"
}

func (c *PruneCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	msg := cmdCtx.Message

	if !c.perms.IsBotOwner(msg) {
		if err := cmdCtx.Out.PermissionDenied(ctx, msg, c.Name()); err != nil {
			cmdCtx.logger().WithError(err).Warn("could not report permission denial")
		}
		return cmdCtx.Out.Error(ctx, msg.ChannelID, "Oops!", "Sorry, this command is too dangerous.\nIt's available for bot owner only.")
	}

	limit := maxPrune
	if len(cmdCtx.Args) > 0 {
		n, err := strconv.Atoi(cmdCtx.Args[0])
		if err != nil || n < 1 || n > maxPrune {
			return cmdCtx.Out.Error(ctx, msg.ChannelID, "Invalid arguments", "Usage:\n"+c.Usage(cmdCtx.Prefix))
		}
		limit = n
	}

	deleted, err := c.chat.BulkDelete(ctx, msg.ChannelID, limit)
	if err != nil {
		cmdCtx.logger().WithError(err).WithField("limit", limit).Error("bulk delete failed")
		return cmdCtx.Out.Error(ctx, msg.ChannelID, "Error", codeBlock(err))
	}
	cmdCtx.logger().WithField("deleted", deleted).Info("messages pruned")
	return cmdCtx.Out.Success(ctx, msg.ChannelID, "Success", fmt.Sprintf("Deleted %d messages.", deleted))
}
