// Package reactionroles binds (message, reaction) pairs to guild roles and
// keeps the binding table, the live reactions on the anchor message and the
// members' roles in step.
package reactionroles

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"reactbot/internal/app/events"
	"reactbot/internal/domain"
	"reactbot/internal/usecase/resolve"
)

// ListPageSize is the number of bindings per listed chat message.
const ListPageSize = 10

const deletedRoleLabel = "`<Deleted>`"

// Publisher receives binding lifecycle events.
type Publisher interface {
	Publish(topic string, payload any)
}

// Invocation identifies who ran a command and where.
type Invocation struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
}

type AddRequest struct {
	MessageID string
	Emoji     string
	Role      string
	Channel   string
	Type      string
}

type EditResult struct {
	Binding   *domain.ReactionRole
	OldRoleID string
}

// DeleteResult lists the removed bindings and any mirror step that failed.
type DeleteResult struct {
	Bindings []*domain.ReactionRole
	Warnings []string
}

// TypeConflictError rejects an Add whose type differs from the message's bindings.
type TypeConflictError struct {
	MessageID string
	Requested domain.BindingType
	Existing  domain.BindingType
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("message %s already uses type %s, cannot add %s", e.MessageID, e.Existing, e.Requested)
}

func (e *TypeConflictError) Is(target error) bool { return target == domain.ErrTypeConflict }

type Controller struct {
	repo  domain.ReactionRoleRepository
	chat  domain.ChatService
	guild domain.GuildDirectory
	bus   Publisher
	locks *keyedMutex
}

func NewController(repo domain.ReactionRoleRepository, chat domain.ChatService, guild domain.GuildDirectory, bus Publisher) *Controller {
	return &Controller{
		repo:  repo,
		chat:  chat,
		guild: guild,
		bus:   bus,
		locks: newKeyedMutex(),
	}
}

// Add binds a reaction on an existing message to a role and places the
// reaction. The row is only committed once the reaction is live.
func (c *Controller) Add(ctx context.Context, inv Invocation, req AddRequest) (*domain.ReactionRole, error) {
	bindingType, ok := domain.ParseBindingType(req.Type)
	if !ok {
		return nil, errors.Wrapf(domain.ErrInvalidArguments, "type %q must be group or free", req.Type)
	}
	messageID := resolve.MessageID(req.MessageID)
	parsed, okEmoji := resolve.ParseEmoji(req.Emoji)
	roleID := resolve.RoleID(req.Role)
	channelID := resolve.ChannelID(req.Channel)
	if messageID == "" || !okEmoji || roleID == "" || channelID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArguments, "add needs message id, emoji, role and channel")
	}
	key := parsed.Key()
	fields := logrus.Fields{"message_id": messageID, "reaction": key, "role_id": roleID, "channel_id": channelID}

	if _, ok := c.guild.Channel(inv.GuildID, channelID); !ok {
		log.WithFields(fields).Info("add rejected, unknown channel")
		return nil, &domain.NotFoundError{Kind: domain.NotFoundChannel, ID: channelID}
	}
	if _, ok := c.guild.Role(inv.GuildID, roleID); !ok {
		log.WithFields(fields).Info("add rejected, unknown role")
		return nil, &domain.NotFoundError{Kind: domain.NotFoundRole, ID: roleID}
	}

	emoji := c.Emoji(inv.GuildID, key)

	unlock := c.locks.Lock(messageID)
	defer unlock()

	if _, err := c.chat.FetchMessage(ctx, channelID, messageID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.WithError(err).WithFields(fields).Info("add rejected, unknown anchor message")
			return nil, &domain.NotFoundError{Kind: domain.NotFoundMessage, ID: messageID}
		}
		log.WithError(err).WithFields(fields).Error("could not fetch anchor message")
		return nil, domain.NewIOError("fetch anchor message", err)
	}

	existing, err := c.repo.ListByMessage(ctx, messageID)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not read existing bindings")
		return nil, err
	}
	if len(existing) > 0 && existing[0].Type != bindingType {
		return nil, &TypeConflictError{MessageID: messageID, Requested: bindingType, Existing: existing[0].Type}
	}

	rr := &domain.ReactionRole{
		MessageID: messageID,
		Reaction:  key,
		RoleID:    roleID,
		Type:      bindingType,
		ChannelID: channelID,
	}

	tx, err := c.repo.Begin(ctx)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not begin transaction")
		return nil, err
	}
	if err := tx.Insert(ctx, rr); err != nil {
		c.rollback(tx, fields)
		if !errors.Is(err, domain.ErrDuplicateKey) {
			log.WithError(err).WithFields(fields).Error("could not insert binding")
		}
		return nil, err
	}

	if err := c.chat.AddReaction(ctx, channelID, messageID, emoji.APIName()); err != nil {
		c.rollback(tx, fields)
		log.WithError(err).WithFields(fields).Error("could not place reaction, binding rolled back")
		return nil, domain.NewIOError("place reaction", err)
	}

	if err := tx.Commit(); err != nil {
		log.WithError(err).WithFields(fields).Error("commit failed after placing reaction")
		if rmErr := c.chat.RemoveOwnReaction(ctx, channelID, messageID, emoji.APIName()); rmErr != nil {
			log.WithError(rmErr).WithFields(fields).Warn("could not take back placed reaction")
		}
		return nil, err
	}

	log.WithFields(fields).WithField("type", bindingType).Info("reaction role added")
	c.publish(events.TopicReactionRoleAdded, rr, inv.UserID)
	return rr, nil
}

// Edit points an existing binding at another role. The live reaction is untouched.
func (c *Controller) Edit(ctx context.Context, inv Invocation, rawMessageID, rawEmoji, rawRole string) (*EditResult, error) {
	messageID := resolve.MessageID(rawMessageID)
	key := resolve.EmojiKey(rawEmoji)
	roleID := resolve.RoleID(rawRole)
	if messageID == "" || key == "" || roleID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArguments, "edit needs message id, emoji and role")
	}
	fields := logrus.Fields{"message_id": messageID, "reaction": key, "role_id": roleID}
	if _, ok := c.guild.Role(inv.GuildID, roleID); !ok {
		log.WithFields(fields).Info("edit rejected, unknown role")
		return nil, &domain.NotFoundError{Kind: domain.NotFoundRole, ID: roleID}
	}

	unlock := c.locks.Lock(messageID)
	defer unlock()

	row, err := c.repo.Get(ctx, messageID, key)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not read binding")
		return nil, err
	}
	if row == nil {
		return nil, &domain.NotFoundError{Kind: domain.NotFoundBinding, ID: messageID + "/" + key}
	}

	tx, err := c.repo.Begin(ctx)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not begin transaction")
		return nil, err
	}
	if err := tx.UpdateRole(ctx, messageID, key, roleID); err != nil {
		c.rollback(tx, fields)
		log.WithError(err).WithFields(fields).Error("could not update binding")
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		log.WithError(err).WithFields(fields).Error("could not commit binding update")
		return nil, err
	}

	updated := *row
	updated.RoleID = roleID
	log.WithFields(fields).WithField("old_role_id", row.RoleID).Info("reaction role edited")
	c.publish(events.TopicReactionRoleEdited, &updated, inv.UserID)
	return &EditResult{Binding: &updated, OldRoleID: row.RoleID}, nil
}

// Delete removes one binding after the invoker confirms. The row is the
// authority: a failed reaction removal is reported, not rolled back.
func (c *Controller) Delete(ctx context.Context, inv Invocation, rawMessageID, rawEmoji string) (*DeleteResult, error) {
	messageID := resolve.MessageID(rawMessageID)
	key := resolve.EmojiKey(rawEmoji)
	if messageID == "" || key == "" {
		return nil, errors.Wrap(domain.ErrInvalidArguments, "delete needs message id and emoji")
	}
	fields := logrus.Fields{"message_id": messageID, "reaction": key}

	unlock := c.locks.Lock(messageID)
	defer unlock()

	row, err := c.repo.Get(ctx, messageID, key)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not read binding")
		return nil, err
	}
	if row == nil {
		return nil, &domain.NotFoundError{Kind: domain.NotFoundBinding, ID: messageID + "/" + key}
	}

	prompt := fmt.Sprintf("The bot will delete message id `%s` that has reaction %s settings.\n%s",
		messageID, c.Emoji(inv.GuildID, key), confirmationFooter())
	if err := c.confirm(ctx, inv, prompt); err != nil {
		return nil, err
	}

	tx, err := c.repo.Begin(ctx)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not begin transaction")
		return nil, err
	}
	if err := tx.Delete(ctx, messageID, key); err != nil {
		c.rollback(tx, fields)
		log.WithError(err).WithFields(fields).Error("could not delete binding")
		return nil, err
	}

	rows := []*domain.ReactionRole{row}
	warnings := c.unmirror(ctx, inv.GuildID, row.ChannelID, messageID, rows)

	if err := tx.Commit(); err != nil {
		log.WithError(err).WithFields(fields).Error("could not commit binding delete")
		return nil, err
	}

	log.WithFields(fields).Info("reaction role deleted")
	c.publish(events.TopicReactionRoleDelete, row, inv.UserID)
	return &DeleteResult{Bindings: rows, Warnings: warnings}, nil
}

// DeleteGroup removes every binding of a message after the invoker confirms.
func (c *Controller) DeleteGroup(ctx context.Context, inv Invocation, rawMessageID string) (*DeleteResult, error) {
	messageID := resolve.MessageID(rawMessageID)
	if messageID == "" {
		return nil, errors.Wrap(domain.ErrInvalidArguments, "deletegroup needs a message id")
	}
	fields := logrus.Fields{"message_id": messageID}

	unlock := c.locks.Lock(messageID)
	defer unlock()

	rows, err := c.repo.ListByMessage(ctx, messageID)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not read bindings")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.NotFoundError{Kind: domain.NotFoundBinding, ID: messageID}
	}

	var entries strings.Builder
	for _, rr := range rows {
		fmt.Fprintf(&entries, "%s : %s [Type: `%s`]\n", c.Emoji(inv.GuildID, rr.Reaction), c.RoleLabel(inv.GuildID, rr.RoleID), rr.Type)
	}
	prompt := fmt.Sprintf("The bot will delete ALL message id `%s` settings.\n%s\n\nHere's list of registered entries.\n%s",
		messageID, confirmationFooter(), entries.String())
	if err := c.confirm(ctx, inv, prompt); err != nil {
		return nil, err
	}

	tx, err := c.repo.Begin(ctx)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not begin transaction")
		return nil, err
	}
	if _, err := tx.DeleteByMessage(ctx, messageID); err != nil {
		c.rollback(tx, fields)
		log.WithError(err).WithFields(fields).Error("could not delete binding group")
		return nil, err
	}

	warnings := c.unmirror(ctx, inv.GuildID, rows[0].ChannelID, messageID, rows)

	if err := tx.Commit(); err != nil {
		log.WithError(err).WithFields(fields).Error("could not commit binding group delete")
		return nil, err
	}

	log.WithFields(fields).WithField("count", len(rows)).Info("reaction role group deleted")
	if c.bus != nil {
		dto := events.NewReactionRoleEventDTO(events.TopicReactionRoleGroup, rows[0], inv.UserID)
		dto.Reaction, dto.RoleID = "", ""
		dto.Count = len(rows)
		c.bus.Publish(events.TopicReactionRoleGroup, dto)
	}
	return &DeleteResult{Bindings: rows, Warnings: warnings}, nil
}

// List sends every binding to the invoking channel, ListPageSize per message.
func (c *Controller) List(ctx context.Context, inv Invocation) (int, error) {
	rows, err := c.repo.List(ctx)
	if err != nil {
		log.WithError(err).Error("could not list bindings")
		return 0, err
	}

	if len(rows) == 0 {
		c.sendText(ctx, inv.ChannelID, "No data found.")
		return 0, nil
	}

	var page strings.Builder
	for i, rr := range rows {
		fmt.Fprintf(&page, "%s : %s [Message ID: `%s`] [Type: `%s`]\n",
			c.Emoji(inv.GuildID, rr.Reaction), c.RoleLabel(inv.GuildID, rr.RoleID), rr.MessageID, rr.Type)
		if (i+1)%ListPageSize == 0 {
			c.sendText(ctx, inv.ChannelID, page.String())
			page.Reset()
		}
	}
	if page.Len() > 0 {
		c.sendText(ctx, inv.ChannelID, page.String())
	}
	return len(rows), nil
}

// Emoji rebuilds the displayable emoji for a stored key.
func (c *Controller) Emoji(guildID, key string) resolve.Emoji {
	return resolve.FromKey(key, func(id string) (*domain.CustomEmoji, bool) {
		return c.guild.Emoji(guildID, id)
	})
}

// RoleLabel mentions the role, or marks it deleted.
func (c *Controller) RoleLabel(guildID, roleID string) string {
	role, ok := c.guild.Role(guildID, roleID)
	if !ok {
		return deletedRoleLabel
	}
	return role.Mention()
}

// unmirror removes the bot's reactions for rows from the anchor message,
// one attempt each. Failures come back as warnings.
func (c *Controller) unmirror(ctx context.Context, guildID, channelID, messageID string, rows []*domain.ReactionRole) []string {
	anchor, err := c.chat.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.WithError(err).WithField("message_id", messageID).Error("could not fetch anchor message, bindings removed anyway")
			return []string{fmt.Sprintf("Could not fetch message id `%s`, its reactions were left in place.\n```%s```", messageID, err)}
		}
		log.WithError(err).WithField("message_id", messageID).Warn("anchor message missing, bindings removed anyway")
		return []string{fmt.Sprintf("Not found message id `%s`.\nMaybe it was deleted.", messageID)}
	}

	var warnings []string
	for _, rr := range rows {
		emoji := c.Emoji(guildID, rr.Reaction)
		if !anchor.HasReaction(emoji.APIName()) {
			continue
		}
		if err := c.chat.RemoveOwnReaction(ctx, channelID, messageID, emoji.APIName()); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"message_id": messageID,
				"reaction":   rr.Reaction,
			}).Warn("could not remove reaction")
			warnings = append(warnings, fmt.Sprintf("Could not remove reaction %s: %v", emoji, err))
		}
	}
	return warnings
}

func (c *Controller) rollback(tx domain.ReactionRoleTx, fields logrus.Fields) {
	if err := tx.Rollback(); err != nil {
		log.WithError(err).WithFields(fields).Error("rollback failed")
	}
}

func (c *Controller) sendText(ctx context.Context, channelID, text string) {
	if err := c.chat.SendMessage(ctx, channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Warn("could not send message")
	}
}

func (c *Controller) publish(topic string, rr *domain.ReactionRole, userID string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(topic, events.NewReactionRoleEventDTO(topic, rr, userID))
}
