package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "events")

const (
	TopicChatCommand        = "chat:command"
	TopicReactionRoleAdded  = "reactionrole:added"
	TopicReactionRoleEdited = "reactionrole:edited"
	TopicReactionRoleDelete = "reactionrole:deleted"
	TopicReactionRoleGroup  = "reactionrole:group_deleted"
	TopicRoleRevoked        = "reactionrole:revoked"

	defaultBufferSize = 128
)

// Topics lista los topics que publica el bot, en orden estable.
func Topics() []string {
	return []string{
		TopicChatCommand,
		TopicReactionRoleAdded,
		TopicReactionRoleEdited,
		TopicReactionRoleDelete,
		TopicReactionRoleGroup,
		TopicRoleRevoked,
	}
}

type Bus struct {
	mu        sync.RWMutex
	subs      map[string]map[int]chan any
	nextSubID int
	closed    bool

	dropMu     sync.Mutex
	dropCounts map[string]uint64
}

func NewBus() *Bus {
	return &Bus{
		subs:       make(map[string]map[int]chan any),
		dropCounts: make(map[string]uint64),
	}
}

func (b *Bus) Publish(topic string, payload any) {
	if topic == "" {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	// send no bloqueante: el RLock evita que un unsubscribe cierre el canal a mitad
	for _, ch := range b.subs[topic] {
		select {
		case ch <- payload:
		default:
			b.recordDrop(topic)
		}
	}
}

func (b *Bus) Subscribe(topic string) (<-chan any, func()) {
	ch := make(chan any, defaultBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if b.subs == nil {
		b.subs = make(map[string]map[int]chan any)
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan any)
	}
	id := b.nextSubID
	b.nextSubID++
	b.subs[topic][id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs, ok := b.subs[topic]
		if !ok {
			return
		}
		if _, ok := subs[id]; !ok {
			return
		}
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.subs, topic)
		}
		close(ch)
	}

	return ch, unsubscribe
}

// Close cierra todas las suscripciones; los Publish posteriores se ignoran.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subs, topic)
	}
}

func (b *Bus) recordDrop(topic string) {
	b.dropMu.Lock()
	defer b.dropMu.Unlock()
	if b.dropCounts == nil {
		b.dropCounts = make(map[string]uint64)
	}
	b.dropCounts[topic]++
	if b.dropCounts[topic]%100 == 1 {
		log.WithFields(logrus.Fields{
			"topic": topic,
			"drops": b.dropCounts[topic],
		}).Warn("dropping messages, subscriber too slow")
	}
}
