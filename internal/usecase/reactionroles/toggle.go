package reactionroles

import (
	"context"

	"github.com/sirupsen/logrus"

	"reactbot/internal/app/events"
	"reactbot/internal/domain"
	"reactbot/internal/usecase/resolve"
)

// Toggler applies free-type role toggling when a reaction is removed.
// It only reads the binding table.
type Toggler struct {
	repo         domain.ReactionRoleRepository
	guild        domain.GuildDirectory
	bus          Publisher
	eventChannel string
}

// NewToggler builds a Toggler. An empty eventChannel accepts every channel.
func NewToggler(repo domain.ReactionRoleRepository, guild domain.GuildDirectory, bus Publisher, eventChannel string) *Toggler {
	return &Toggler{
		repo:         repo,
		guild:        guild,
		bus:          bus,
		eventChannel: eventChannel,
	}
}

// HandleReactionRemove revokes the bound role from the user when the message
// holds free-type bindings and the user has the role. It reports whether a
// role was revoked. Failures are logged only; there is nobody to tell.
func (t *Toggler) HandleReactionRemove(ctx context.Context, ev domain.ReactionEvent) bool {
	if t.eventChannel != "" && ev.ChannelID != t.eventChannel {
		return false
	}

	fields := logrus.Fields{
		"message_id": ev.MessageID,
		"user_id":    ev.UserID,
		"emoji_id":   ev.EmojiID,
		"emoji_name": ev.EmojiName,
	}

	rows, err := t.repo.ListByMessage(ctx, ev.MessageID)
	if err != nil {
		log.WithError(err).WithFields(fields).Error("could not read bindings for reaction removal")
		return false
	}
	if len(rows) == 0 {
		return false
	}
	// group toggling is driven by reaction additions, not handled here
	if rows[0].Type != domain.BindingFree {
		return false
	}

	member, err := t.guild.Member(ctx, ev.GuildID, ev.UserID)
	if err != nil || member == nil {
		log.WithError(err).WithFields(fields).Warn("could not fetch reacting member")
		return false
	}
	if member.IsBot {
		return false
	}

	for _, rr := range rows {
		if _, ok := t.guild.Role(ev.GuildID, rr.RoleID); !ok {
			continue
		}
		if !resolve.MatchesKey(rr.Reaction, ev.EmojiID, ev.EmojiName) {
			continue
		}

		if !member.HasRole(rr.RoleID) {
			return false
		}
		fields["role_id"] = rr.RoleID
		if err := t.guild.RemoveMemberRole(ctx, ev.GuildID, ev.UserID, rr.RoleID); err != nil {
			log.WithError(err).WithFields(fields).Error("could not revoke role")
			return false
		}
		log.WithFields(fields).Info("role revoked on reaction removal")
		if t.bus != nil {
			t.bus.Publish(events.TopicRoleRevoked, events.NewReactionRoleEventDTO(events.TopicRoleRevoked, rr, ev.UserID))
		}
		return true
	}
	return false
}
