// Package handle_message une los eventos del adapter con el router de comandos y el toggle de roles.
package handle_message

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reactbot/internal/app/events"
	"reactbot/internal/domain"
	"reactbot/internal/usecase/commands"
)

var log = logrus.WithField("prefix", "handle_message")

type Dispatcher interface {
	Handle(ctx context.Context, msg domain.Message, out commands.Replier, requestID string) (commands.Command, error)
}

type ReactionToggler interface {
	HandleReactionRemove(ctx context.Context, ev domain.ReactionEvent) bool
}

type Publisher interface {
	Publish(topic string, payload any)
}

type Interactor struct {
	router  Dispatcher
	out     commands.Replier
	toggler ReactionToggler
	bus     Publisher
}

func NewInteractor(out commands.Replier, router Dispatcher, toggler ReactionToggler, bus Publisher) *Interactor {
	return &Interactor{
		router:  router,
		out:     out,
		toggler: toggler,
		bus:     bus,
	}
}

// Handle despacha un mensaje de chat. Cada comando lleva su request_id en los logs y en el bus.
func (uc *Interactor) Handle(ctx context.Context, msg domain.Message) error {
	requestID := uuid.NewString()
	cmd, err := uc.router.Handle(ctx, msg, uc.out, requestID)
	if cmd == nil {
		return err
	}

	entry := log.WithFields(logrus.Fields{
		"request_id": requestID,
		"command":    cmd.Name(),
		"user_id":    msg.UserID,
	})
	if err != nil {
		entry.WithError(err).Error("command failed")
	} else {
		entry.Info("command handled")
	}

	if uc.bus != nil {
		uc.bus.Publish(events.TopicChatCommand, events.NewChatCommandDTO(requestID, cmd.Name(), msg))
	}
	return err
}

// HandleReactionRemove pasa la reacción quitada al toggle de roles.
func (uc *Interactor) HandleReactionRemove(ctx context.Context, ev domain.ReactionEvent) {
	if uc.toggler == nil {
		return
	}
	uc.toggler.HandleReactionRemove(ctx, ev)
}
