package discordadapter

import (
	"context"
	"sync"
	"time"

	"reactbot/internal/domain"
)

type waiter struct {
	channelID string
	authorID  string
	ch        chan domain.Message
}

// ReplyCollector entrega el siguiente mensaje de un autor en un canal a quien lo espera.
type ReplyCollector struct {
	mu      sync.Mutex
	nextID  int
	waiters map[int]*waiter
	closed  bool
}

func NewReplyCollector() *ReplyCollector {
	return &ReplyCollector{waiters: make(map[int]*waiter)}
}

// PendingReply es una espera registrada en el collector.
type PendingReply struct {
	c  *ReplyCollector
	id int
	ch chan domain.Message
}

// Expect registra la espera del primer mensaje de authorID en channelID.
// Desde este momento Offer ya puede entregarle mensajes.
func (c *ReplyCollector) Expect(channelID, authorID string) *PendingReply {
	w := &waiter{
		channelID: channelID,
		authorID:  authorID,
		ch:        make(chan domain.Message, 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(w.ch)
		return &PendingReply{c: c, id: -1, ch: w.ch}
	}
	id := c.nextID
	c.nextID++
	c.waiters[id] = w
	return &PendingReply{c: c, id: id, ch: w.ch}
}

// Wait bloquea hasta el mensaje esperado.
// Devuelve nil, nil si vence el timeout o el collector se cierra.
func (p *PendingReply) Wait(ctx context.Context, timeout time.Duration) (*domain.Message, error) {
	defer p.release()

	// un mensaje que ya llegó gana al timeout
	select {
	case msg, ok := <-p.ch:
		if !ok {
			return nil, nil
		}
		return &msg, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-p.ch:
		if !ok {
			return nil, nil
		}
		return &msg, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *PendingReply) release() {
	p.c.mu.Lock()
	delete(p.c.waiters, p.id)
	p.c.mu.Unlock()
}

// Await registra la espera y bloquea hasta el mensaje o el timeout.
func (c *ReplyCollector) Await(ctx context.Context, channelID, authorID string, timeout time.Duration) (*domain.Message, error) {
	return c.Expect(channelID, authorID).Wait(ctx, timeout)
}

// Offer entrega msg a los que esperan ese autor en ese canal. Reporta si alguien lo tomó.
func (c *ReplyCollector) Offer(msg domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	taken := false
	for id, w := range c.waiters {
		if w.channelID != msg.ChannelID || w.authorID != msg.UserID {
			continue
		}
		select {
		case w.ch <- msg:
			taken = true
		default:
		}
		// un solo mensaje por espera
		delete(c.waiters, id)
	}
	return taken
}

// Close libera todas las esperas pendientes.
func (c *ReplyCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, w := range c.waiters {
		close(w.ch)
		delete(c.waiters, id)
	}
}

func (c *ReplyCollector) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
