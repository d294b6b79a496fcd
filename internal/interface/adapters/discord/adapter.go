// Package discordadapter conecta el bot con el gateway y la API REST de Discord.
package discordadapter

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"reactbot/internal/domain"
)

var log = logrus.WithField("prefix", "discord")

type Config struct {
	Token string
}

type MessageHandler func(ctx context.Context, msg domain.Message) error

type ReactionHandler func(ctx context.Context, ev domain.ReactionEvent)

type Adapter struct {
	cfg       Config
	session   *discordgo.Session
	collector *ReplyCollector

	mu              sync.RWMutex
	handler         MessageHandler
	reactionHandler ReactionHandler
}

func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token vacío")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "discord: new session")
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildEmojis |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentMessageContent
	session.StateEnabled = true

	return &Adapter{
		cfg:       cfg,
		session:   session,
		collector: NewReplyCollector(),
	}, nil
}

func (a *Adapter) SetHandler(h MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

func (a *Adapter) SetReactionHandler(h ReactionHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reactionHandler = h
}

// Start abre el gateway y bloquea hasta que ctx se cancela.
func (a *Adapter) Start(ctx context.Context) error {
	removeMsg := a.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		a.onMessageCreate(ctx, m)
	})
	defer removeMsg()
	removeReaction := a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		a.onReactionRemove(ctx, r)
	})
	defer removeReaction()
	removeReady := a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.WithFields(logrus.Fields{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		}).Info("gateway ready")
	})
	defer removeReady()

	if err := a.session.Open(); err != nil {
		return errors.Wrap(err, "discord: open")
	}

	<-ctx.Done()

	a.collector.Close()
	if err := a.session.Close(); err != nil {
		log.WithError(err).Warn("close session")
	}
	return ctx.Err()
}

func (a *Adapter) onMessageCreate(ctx context.Context, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}
	msg := a.mapMessage(m.Message)

	// una respuesta pendiente se entrega al que espera; el router la ignora por no tener prefijo
	a.collector.Offer(msg)

	a.mu.RLock()
	handler := a.handler
	a.mu.RUnlock()
	if handler == nil {
		return
	}
	if err := handler(ctx, msg); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"channel_id": msg.ChannelID,
			"user_id":    msg.UserID,
		}).Error("message handler failed")
	}
}

func (a *Adapter) onReactionRemove(ctx context.Context, r *discordgo.MessageReactionRemove) {
	if r == nil || r.MessageReaction == nil {
		return
	}
	if a.session.State.User != nil && r.UserID == a.session.State.User.ID {
		return
	}

	a.mu.RLock()
	handler := a.reactionHandler
	a.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(ctx, domain.ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		EmojiID:   r.Emoji.ID,
		EmojiName: r.Emoji.Name,
	})
}

func (a *Adapter) mapMessage(m *discordgo.Message) domain.Message {
	msg := domain.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Text:      m.Content,
	}
	if m.Author != nil {
		msg.UserID = m.Author.ID
		msg.Username = m.Author.Username
		msg.IsBot = m.Author.Bot
	}
	if m.Member != nil {
		msg.RoleIDs = append([]string(nil), m.Member.Roles...)
	}
	if m.GuildID != "" {
		if g, err := a.session.State.Guild(m.GuildID); err == nil && g != nil {
			msg.IsGuildOwner = g.OwnerID == msg.UserID
		}
	}
	return msg
}
