package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"reactbot/internal/domain"
	"reactbot/internal/usecase/reactionroles"
	"reactbot/internal/usecase/resolve"
)

// ReactionRoles es la parte del controller que expone el comando.
type ReactionRoles interface {
	Add(ctx context.Context, inv reactionroles.Invocation, req reactionroles.AddRequest) (*domain.ReactionRole, error)
	Edit(ctx context.Context, inv reactionroles.Invocation, messageID, emoji, role string) (*reactionroles.EditResult, error)
	Delete(ctx context.Context, inv reactionroles.Invocation, messageID, emoji string) (*reactionroles.DeleteResult, error)
	DeleteGroup(ctx context.Context, inv reactionroles.Invocation, messageID string) (*reactionroles.DeleteResult, error)
	List(ctx context.Context, inv reactionroles.Invocation) (int, error)
	Emoji(guildID, key string) resolve.Emoji
	RoleLabel(guildID, roleID string) string
}

type ReactRoleCommand struct {
	rr ReactionRoles
}

func NewReactRoleCommand(rr ReactionRoles) *ReactRoleCommand {
	return &ReactRoleCommand{rr: rr}
}

func (c *ReactRoleCommand) Name() string      { return "reactrole" }
func (c *ReactRoleCommand) Aliases() []string { return []string{"rr"} }
func (c *ReactRoleCommand) NeedArgs() bool    { return true }

func (c *ReactRoleCommand) usageAdd(prefix string) string {
	return "`" + prefix + "reactrole add <message id> <emoji> <role id|mention> <channel id|mention> <type>`\n" +
		"> <type> is `group` or `free` only.\n" +
		"> - group: Radio group (Toggle ON for latest react. Other will be OFF)\n" +
		"> - free: Individual react (Toggle ON/OFF on that react)"
}

func (c *ReactRoleCommand) usageEdit(prefix string) string {
	return "`" + prefix + "reactrole edit <message id> <emoji> <new role id|mention>`"
}

func (c *ReactRoleCommand) usageDelete(prefix string) string {
	return "`" + prefix + "reactrole delete <message id> <emoji>`"
}

func (c *ReactRoleCommand) usageDeleteGroup(prefix string) string {
	return "`" + prefix + "reactrole deletegroup <message id>`"
}

func (c *ReactRoleCommand) Usage(prefix string) string {
	return "Config ReactRole\n\n" +
		"Alias: `" + strings.Join(c.Aliases(), "`, `") + "`\n\n" +
		"**Add:**\n" + c.usageAdd(prefix) + "\n" +
		"**Edit:**\n" + c.usageEdit(prefix) + "\n" +
		"**Delete:**\n" + c.usageDelete(prefix) + "\n" +
		"**Delete group:**\n" + c.usageDeleteGroup(prefix) + "\n" +
		"**List all registered entries**\n`" + prefix + "reactrole list`"
}

func (c *ReactRoleCommand) Handle(ctx context.Context, cmdCtx *Context) error {
	msg := cmdCtx.Message
	inv := reactionroles.Invocation{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		UserID:    msg.UserID,
	}
	args := cmdCtx.Args

	switch strings.ToLower(args[0]) {
	case "add":
		return c.add(ctx, cmdCtx, inv, args[1:])
	case "edit":
		return c.edit(ctx, cmdCtx, inv, args[1:])
	case "delete":
		return c.delete(ctx, cmdCtx, inv, args[1:])
	case "deletegroup":
		return c.deleteGroup(ctx, cmdCtx, inv, args[1:])
	case "list":
		return c.list(ctx, cmdCtx, inv)
	default:
		return invalidArgs(ctx, cmdCtx, c.Name())
	}
}

func (c *ReactRoleCommand) add(ctx context.Context, cmdCtx *Context, inv reactionroles.Invocation, args []string) error {
	out, channelID := cmdCtx.Out, inv.ChannelID
	usage := "Usage:\n" + c.usageAdd(cmdCtx.Prefix)
	if len(args) < 5 {
		return out.Error(ctx, channelID, "Invalid arguments", usage)
	}

	rr, err := c.rr.Add(ctx, inv, reactionroles.AddRequest{
		MessageID: args[0],
		Emoji:     args[1],
		Role:      args[2],
		Channel:   args[3],
		Type:      args[4],
	})
	if err != nil {
		var conflict *reactionroles.TypeConflictError
		switch {
		case errors.Is(err, domain.ErrInvalidArguments):
			return out.Error(ctx, channelID, "Invalid arguments", usage)
		case errors.As(err, &conflict):
			return out.Error(ctx, channelID, "Type conflict",
				fmt.Sprintf("You're trying to add type `%s` to existing type `%s` of message id `%s`",
					conflict.Requested, conflict.Existing, conflict.MessageID))
		case errors.Is(err, domain.ErrDuplicateKey):
			return out.Error(ctx, channelID, "Duplicate entry",
				fmt.Sprintf("Message id `%s` & reaction %s already exists.\nTry using `edit` instead.",
					resolve.MessageID(args[0]), args[1]))
		}
		return c.renderError(ctx, cmdCtx, inv, err, args)
	}

	return out.Success(ctx, channelID, "Success",
		fmt.Sprintf("Bind reaction %s & role %s to message id `%s`. Type: `%s`",
			c.rr.Emoji(inv.GuildID, rr.Reaction), c.rr.RoleLabel(inv.GuildID, rr.RoleID), rr.MessageID, rr.Type))
}

func (c *ReactRoleCommand) edit(ctx context.Context, cmdCtx *Context, inv reactionroles.Invocation, args []string) error {
	out, channelID := cmdCtx.Out, inv.ChannelID
	if len(args) < 3 {
		return out.Error(ctx, channelID, "Invalid arguments", "Usage:\n"+c.usageEdit(cmdCtx.Prefix))
	}

	res, err := c.rr.Edit(ctx, inv, args[0], args[1], args[2])
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArguments) {
			return out.Error(ctx, channelID, "Invalid arguments", "Usage:\n"+c.usageEdit(cmdCtx.Prefix))
		}
		return c.renderError(ctx, cmdCtx, inv, err, args)
	}

	b := res.Binding
	return out.Success(ctx, channelID, "Success",
		fmt.Sprintf("Re-Bind message id `%s` & reaction %s from role %s to role %s.",
			b.MessageID, c.rr.Emoji(inv.GuildID, b.Reaction),
			c.rr.RoleLabel(inv.GuildID, res.OldRoleID), c.rr.RoleLabel(inv.GuildID, b.RoleID)))
}

func (c *ReactRoleCommand) delete(ctx context.Context, cmdCtx *Context, inv reactionroles.Invocation, args []string) error {
	out, channelID := cmdCtx.Out, inv.ChannelID
	if len(args) < 2 {
		return out.Error(ctx, channelID, "Invalid arguments", "Usage:\n"+c.usageDelete(cmdCtx.Prefix))
	}

	res, err := c.rr.Delete(ctx, inv, args[0], args[1])
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArguments) {
			return out.Error(ctx, channelID, "Invalid arguments", "Usage:\n"+c.usageDelete(cmdCtx.Prefix))
		}
		if handled, rerr := c.renderCancel(ctx, cmdCtx, err, "No response. The delete action was canceled."); handled {
			return rerr
		}
		return c.renderError(ctx, cmdCtx, inv, err, args)
	}

	b := res.Bindings[0]
	return out.Success(ctx, channelID, "Success",
		fmt.Sprintf("Delete registered entry with message id `%s` and reaction %s.", b.MessageID, c.rr.Emoji(inv.GuildID, b.Reaction)),
		warningFields(res.Warnings)...)
}

func (c *ReactRoleCommand) deleteGroup(ctx context.Context, cmdCtx *Context, inv reactionroles.Invocation, args []string) error {
	out, channelID := cmdCtx.Out, inv.ChannelID
	if len(args) < 1 {
		return out.Error(ctx, channelID, "Invalid arguments", "Usage:\n"+c.usageDeleteGroup(cmdCtx.Prefix))
	}

	res, err := c.rr.DeleteGroup(ctx, inv, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArguments) {
			return out.Error(ctx, channelID, "Invalid arguments", "Usage:\n"+c.usageDeleteGroup(cmdCtx.Prefix))
		}
		if handled, rerr := c.renderCancel(ctx, cmdCtx, err, "No response. The delete group action was canceled."); handled {
			return rerr
		}
		return c.renderError(ctx, cmdCtx, inv, err, args)
	}

	return out.Success(ctx, channelID, "Success",
		fmt.Sprintf("Delete all registered entries with message id `%s`.", res.Bindings[0].MessageID),
		warningFields(res.Warnings)...)
}

func (c *ReactRoleCommand) list(ctx context.Context, cmdCtx *Context, inv reactionroles.Invocation) error {
	if _, err := c.rr.List(ctx, inv); err != nil {
		return c.renderError(ctx, cmdCtx, inv, err, nil)
	}
	return cmdCtx.Out.Success(ctx, inv.ChannelID, "Success", "")
}

func (c *ReactRoleCommand) renderCancel(ctx context.Context, cmdCtx *Context, err error, timeoutText string) (bool, error) {
	var cancelled *domain.CancelledError
	if !errors.As(err, &cancelled) {
		return false, nil
	}
	if cancelled.TimedOut {
		return true, cmdCtx.Out.Error(ctx, cmdCtx.Message.ChannelID, "Timeout", timeoutText)
	}
	return true, cmdCtx.Out.Success(ctx, cmdCtx.Message.ChannelID, "Canceled", "")
}

// renderError convierte los errores comunes del controller en un único embed.
func (c *ReactRoleCommand) renderError(ctx context.Context, cmdCtx *Context, inv reactionroles.Invocation, err error, args []string) error {
	out, channelID := cmdCtx.Out, inv.ChannelID

	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		switch nf.Kind {
		case domain.NotFoundMessage:
			return out.Error(ctx, channelID, "Not found",
				fmt.Sprintf("Not found message id `%s` in channel %s", nf.ID, argAt(args, 3)))
		case domain.NotFoundChannel:
			return out.Error(ctx, channelID, "Not found", "Not found specified channel.")
		case domain.NotFoundRole:
			return out.Error(ctx, channelID, "Not found", fmt.Sprintf("Not found role id `%s`", nf.ID))
		case domain.NotFoundBinding:
			messageID := resolve.MessageID(argAt(args, 0))
			if len(args) > 1 {
				emoji := c.rr.Emoji(inv.GuildID, resolve.EmojiKey(args[1]))
				return out.Error(ctx, channelID, "Error",
					fmt.Sprintf("No data found for message id `%s` and reaction %s", messageID, emoji))
			}
			return out.Error(ctx, channelID, "Error", fmt.Sprintf("No data found for message id `%s`", messageID))
		}
	}

	cmdCtx.logger().WithError(err).Error("reactrole failed")
	if errors.Is(err, domain.ErrIOFailure) {
		return out.Error(ctx, channelID, "Error", "Something went wrong.\n"+codeBlock(err))
	}
	return out.Error(ctx, channelID, "Unknown Error", codeBlock(err))
}

func warningFields(warnings []string) []domain.EmbedField {
	fields := make([]domain.EmbedField, 0, len(warnings))
	for _, w := range warnings {
		fields = append(fields, domain.EmbedField{Name: "(Maybe) Error", Value: w})
	}
	return fields
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

var _ ReactionRoles = (*reactionroles.Controller)(nil)
