package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"reactbot/internal/app/events"
)

// Subscriber es la parte del bus que necesita el logger.
type Subscriber interface {
	Subscribe(topic string) (<-chan any, func())
}

// EventLogger deja en el log una línea de auditoría por cada evento de reaction roles
// y comando despachado, para facilitar la futura ingesta.
type EventLogger struct {
	now func() time.Time
	log *logrus.Entry
}

func NewEventLogger(logger *logrus.Logger) *EventLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EventLogger{
		now: time.Now,
		log: logger.WithField("prefix", "audit"),
	}
}

// Run se suscribe a todos los topics del bus y bloquea hasta que ctx se cancela
// o el bus se cierra.
func (l *EventLogger) Run(ctx context.Context, bus Subscriber) {
	var wg sync.WaitGroup
	for _, topic := range events.Topics() {
		ch, unsubscribe := bus.Subscribe(topic)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			defer unsubscribe()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					l.logPayload(topic, payload)
				}
			}
		}(topic)
	}
	wg.Wait()
}

func (l *EventLogger) logPayload(topic string, payload any) {
	entry := l.log.WithFields(logrus.Fields{
		"topic":     topic,
		"logged_at": l.now().UTC().Format(time.RFC3339Nano),
	})
	data, err := json.Marshal(payload)
	if err != nil {
		entry.WithField("payload", payload).Info("event")
		return
	}
	entry.WithField("payload", string(data)).Info("event")
}
