package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"reactbot/internal/domain"
)

// registry es una foto inmutable del índice de comandos.
type registry struct {
	version uint64
	index   map[string]Command
	names   []string
}

type Router struct {
	prefix       string
	setupChannel string

	mu        sync.Mutex
	factories map[string]Factory
	reg       atomic.Pointer[registry]
}

// NewRouter crea un router. Con setupChannel vacío se aceptan comandos de cualquier canal.
func NewRouter(prefix, setupChannel string) *Router {
	r := &Router{
		prefix:       prefix,
		setupChannel: setupChannel,
		factories:    make(map[string]Factory),
	}
	r.reg.Store(&registry{index: make(map[string]Command)})
	return r
}

func (r *Router) Prefix() string {
	return r.prefix
}

// Register construye el comando desde su factory y lo publica con sus aliases.
func (r *Router) Register(f Factory) Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := f()
	name := strings.ToLower(cmd.Name())
	r.factories[name] = f
	r.swap(nil, cmd)
	return cmd
}

// Reload reconstruye el comando (resuelto por nombre o alias) y cambia el índice de forma atómica.
func (r *Router) Reload(name string) (cmd Command, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.reg.Load().index[strings.ToLower(name)]
	if !ok {
		return nil, &domain.NotFoundError{Kind: domain.NotFoundCommand, ID: name}
	}
	key := strings.ToLower(old.Name())
	f, ok := r.factories[key]
	if !ok {
		return nil, &domain.NotFoundError{Kind: domain.NotFoundCommand, ID: name}
	}

	defer func() {
		if p := recover(); p != nil {
			cmd = nil
			err = errors.Errorf("factory for %s panicked: %v", key, p)
		}
	}()
	cmd = f()
	if cmd == nil || strings.ToLower(cmd.Name()) != key {
		return nil, errors.Errorf("factory for %s built a different command", key)
	}
	r.swap(old, cmd)
	return cmd, nil
}

// swap copia el índice actual, quita las entradas de old y agrega cmd.
func (r *Router) swap(old, cmd Command) {
	cur := r.reg.Load()
	next := &registry{
		version: cur.version + 1,
		index:   make(map[string]Command, len(cur.index)+1),
		names:   append([]string(nil), cur.names...),
	}
	for k, c := range cur.index {
		if old != nil && c == old {
			continue
		}
		next.index[k] = c
	}

	name := strings.ToLower(cmd.Name())
	if !contains(next.names, name) {
		next.names = append(next.names, name)
	}
	next.index[name] = cmd
	for _, alias := range cmd.Aliases() {
		if alias == "" {
			continue
		}
		next.index[strings.ToLower(alias)] = cmd
	}
	r.reg.Store(next)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Lookup resuelve un nombre o alias.
func (r *Router) Lookup(name string) (Command, bool) {
	cmd, ok := r.reg.Load().index[strings.ToLower(name)]
	return cmd, ok
}

// Commands devuelve los comandos en orden de registro, sin repetir aliases.
func (r *Router) Commands() []Command {
	reg := r.reg.Load()
	out := make([]Command, 0, len(reg.names))
	for _, name := range reg.names {
		if cmd, ok := reg.index[name]; ok {
			out = append(out, cmd)
		}
	}
	return out
}

func (r *Router) Version() uint64 {
	return r.reg.Load().version
}

// Parse separa nombre y argumentos. ok es false si el mensaje no es un comando.
func (r *Router) Parse(msg domain.Message) (name string, args []string, raw string, ok bool) {
	if msg.IsBot {
		return "", nil, "", false
	}
	if r.setupChannel != "" && msg.ChannelID != r.setupChannel {
		return "", nil, "", false
	}
	if r.prefix == "" || !strings.HasPrefix(msg.Text, r.prefix) {
		return "", nil, "", false
	}

	raw = strings.TrimSpace(strings.TrimPrefix(msg.Text, r.prefix))
	parts := splitArgs(raw)
	if len(parts) == 0 {
		return "", nil, "", false
	}
	return strings.ToLower(parts[0]), parts[1:], raw, true
}

// splitArgs corta por espacios y descarta los vacíos; los saltos de línea quedan dentro del token.
func splitArgs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, " ") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Handle despacha el mensaje. Devuelve el comando ejecutado, o nil si el mensaje se ignoró.
func (r *Router) Handle(ctx context.Context, msg domain.Message, out Replier, requestID string) (Command, error) {
	name, args, raw, ok := r.Parse(msg)
	if !ok {
		return nil, nil
	}

	cmd, ok := r.Lookup(name)
	if !ok {
		return nil, nil
	}

	cmdCtx := &Context{
		Message:   msg,
		Out:       out,
		Raw:       raw,
		Args:      args,
		RequestID: requestID,
		Prefix:    r.prefix,
	}

	if cmd.NeedArgs() && len(args) == 0 {
		return cmd, invalidArgs(ctx, cmdCtx, cmd.Name())
	}

	cmdCtx.logger().WithFields(logrus.Fields{
		"command": cmd.Name(),
		"args":    len(args),
	}).Debug("dispatching command")

	if err := cmd.Handle(ctx, cmdCtx); err != nil {
		return cmd, fmt.Errorf("command %s: %w", cmd.Name(), err)
	}
	return cmd, nil
}
