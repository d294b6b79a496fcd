package commands

import (
	"context"

	"github.com/sirupsen/logrus"

	"reactbot/internal/domain"
)

var log = logrus.WithField("prefix", "commands")

type Command interface {
	Name() string
	Aliases() []string
	// Usage devuelve la ayuda del comando con el prefijo configurado.
	Usage(prefix string) string
	NeedArgs() bool
	Handle(ctx context.Context, c *Context) error
}

// Factory construye una instancia nueva del comando. Reload la vuelve a llamar.
type Factory func() Command

// Replier es la salida que usan los comandos: embeds de éxito/error y texto plano.
type Replier interface {
	Success(ctx context.Context, channelID, title, description string, fields ...domain.EmbedField) error
	Error(ctx context.Context, channelID, title, description string, fields ...domain.EmbedField) error
	Text(ctx context.Context, channelID, text string) error
	PermissionDenied(ctx context.Context, msg domain.Message, cmdName string) error
}

type Context struct {
	Message domain.Message
	Out     Replier

	Raw       string
	Args      []string
	RequestID string
	Prefix    string
}

func (c *Context) logger() *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"request_id": c.RequestID,
		"user_id":    c.Message.UserID,
		"channel_id": c.Message.ChannelID,
	})
}

// invalidArgs responde con el embed estándar de argumentos inválidos.
func invalidArgs(ctx context.Context, c *Context, cmdName string) error {
	return c.Out.Error(ctx, c.Message.ChannelID, "Invalid arguments", "Try `"+c.Prefix+"help "+cmdName+"` for help.")
}

func noCommand(ctx context.Context, c *Context, cmdName string) error {
	return c.Out.Error(ctx, c.Message.ChannelID, "No command `"+cmdName+"`", "Try `"+c.Prefix+"allcmds` to get all commands list.")
}

func codeBlock(err error) string {
	return "```\n" + err.Error() + "\n```"
}
