package reactionroles

import (
	"context"
	"strings"
	"time"

	"reactbot/internal/domain"
)

const (
	// ConfirmationTimeout is the single window an invoker has to answer.
	ConfirmationTimeout = 10 * time.Second

	affirmativeReply = "yes"
)

// confirm prompts the invoker and waits for exactly one reply from them.
// The waiter is registered before the prompt goes out.
// It returns nil only for an affirmative answer.
func (c *Controller) confirm(ctx context.Context, inv Invocation, prompt string) error {
	pending := c.chat.ExpectReply(inv.ChannelID, inv.UserID)
	if err := c.chat.Reply(ctx, inv.ChannelID, inv.MessageID, prompt); err != nil {
		log.WithError(err).WithField("channel_id", inv.ChannelID).Warn("could not send confirmation prompt")
	}

	reply, err := pending.Wait(ctx, ConfirmationTimeout)
	if err != nil {
		return domain.NewIOError("await confirmation", err)
	}
	if reply == nil {
		return &domain.CancelledError{TimedOut: true}
	}
	if strings.ToLower(reply.Text) != affirmativeReply {
		return &domain.CancelledError{}
	}
	return nil
}

func confirmationFooter() string {
	return "Confirm with `yes` or deny with `no` within 10 seconds."
}
