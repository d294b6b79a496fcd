package outs

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"reactbot/internal/domain"
)

var log = logrus.WithField("prefix", "outs")

const (
	ColorSuccess = 0x20e920
	ColorError   = 0xff0000
)

// Reporter manda los resultados de los comandos como embeds de éxito o error.
type Reporter struct {
	out        domain.OutgoingMessagePort
	logChannel string
}

// NewReporter crea un Reporter. logChannel recibe los avisos de permisos; vacío los desactiva.
func NewReporter(out domain.OutgoingMessagePort, logChannel string) *Reporter {
	return &Reporter{
		out:        out,
		logChannel: logChannel,
	}
}

func (r *Reporter) Success(ctx context.Context, channelID, title, description string, fields ...domain.EmbedField) error {
	return r.embed(ctx, channelID, ColorSuccess, title, description, fields)
}

func (r *Reporter) Error(ctx context.Context, channelID, title, description string, fields ...domain.EmbedField) error {
	return r.embed(ctx, channelID, ColorError, title, description, fields)
}

// Text envía texto plano al canal.
func (r *Reporter) Text(ctx context.Context, channelID, text string) error {
	if r == nil || r.out == nil {
		return fmt.Errorf("no hay sender configurado")
	}
	if err := r.out.SendMessage(ctx, channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Warn("could not send message")
		return err
	}
	return nil
}

// PermissionDenied avisa en el canal de log que alguien intentó un comando sin permiso.
func (r *Reporter) PermissionDenied(ctx context.Context, msg domain.Message, cmdName string) error {
	log.WithFields(logrus.Fields{
		"user_id": msg.UserID,
		"command": cmdName,
	}).Warn("permission denied")
	if r.logChannel == "" {
		return nil
	}
	text := fmt.Sprintf("%s is trying to use command `%s` but not has permission.", msg.Mention(), cmdName)
	return r.Text(ctx, r.logChannel, text)
}

func (r *Reporter) embed(ctx context.Context, channelID string, color int, title, description string, fields []domain.EmbedField) error {
	if r == nil || r.out == nil {
		return fmt.Errorf("no hay sender configurado")
	}
	// límite del chat
	if len(fields) > 25 {
		fields = fields[:25]
	}
	e := domain.Embed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
	}
	if err := r.out.SendEmbed(ctx, channelID, e); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"channel_id": channelID,
			"title":      title,
		}).Warn("could not send embed")
		return err
	}
	return nil
}
