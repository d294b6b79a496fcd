package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"reactbot/internal/app/events"
	"reactbot/internal/infrastructure/config"
	"reactbot/internal/infrastructure/persistence/sqlite"
	discordadapter "reactbot/internal/interface/adapters/discord"
	"reactbot/internal/interface/api/ws"
	"reactbot/internal/interface/outs"
	"reactbot/internal/usecase/commands"
	"reactbot/internal/usecase/handle_message"
	"reactbot/internal/usecase/notifications"
	"reactbot/internal/usecase/reactionroles"
)

var log = logrus.WithField("prefix", "main")

var (
	envFileFlag = &cli.StringFlag{
		Name:  "env-file",
		Usage: "Path to a .env file (default: ./.env if present)",
	}
	databaseFlag = &cli.StringFlag{
		Name:    "database",
		Usage:   "SQLite database file, overrides DATABASE_PATH",
		Aliases: []string{"db"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Logging verbosity (trace, debug, info, warn, error), overrides LOG_LEVEL",
	}
)

func main() {
	formatter := new(prefixed.TextFormatter)
	formatter.TimestampFormat = "2006-01-02 15:04:05"
	formatter.FullTimestamp = true
	logrus.SetFormatter(formatter)

	app := cli.App{}
	app.Name = "reactbot"
	app.Usage = "chat bot that hands out roles from message reactions"
	app.Flags = []cli.Flag{envFileFlag, databaseFlag, logLevelFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("bot stopped")
	}
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{
		EnvFile: c.String(envFileFlag.Name),
		Overrides: map[string]any{
			"database_path": c.String(databaseFlag.Name),
			"log_level":     c.String(logLevelFlag.Name),
		},
	})
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	logrus.SetLevel(level)

	// ---------- 1) Store ----------

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}()

	// ---------- 2) Chat ----------

	discord, err := discordadapter.NewAdapter(discordadapter.Config{Token: cfg.ClientToken})
	if err != nil {
		return err
	}

	bus := events.NewBus()
	defer bus.Close()

	// ---------- 3) Reaction roles ----------

	controller := reactionroles.NewController(store, discord, discord, bus)
	toggler := reactionroles.NewToggler(store, discord, bus, cfg.ReactEventChannel)

	// ---------- 4) Router de comandos ----------

	router := commands.NewRouter(cfg.Prefix, cfg.SetupChannel)
	commands.RegisterBuiltins(router, commands.Deps{
		Chat:          discord,
		Guild:         discord,
		ReactionRoles: controller,
		Permissions: commands.Permissions{
			BotOwner:  cfg.BotOwner,
			RoleAdmin: cfg.RoleAdmin,
			RoleMod:   cfg.RoleMod,
		},
	})

	reporter := outs.NewReporter(discord, cfg.LogChannel)
	uc := handle_message.NewInteractor(reporter, router, toggler, bus)
	discord.SetHandler(uc.Handle)
	discord.SetReactionHandler(uc.HandleReactionRemove)

	// ---------- 5) Arranque ----------

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		notifications.NewEventLogger(logrus.StandardLogger()).Run(ctx, bus)
	}()
	if cfg.WSAddr != "" {
		feed := ws.NewServer(ws.Config{Addr: cfg.WSAddr, Bus: bus, Bindings: store})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Start(ctx); err != nil {
				log.WithError(err).Error("event feed stopped")
			}
		}()
	}

	log.WithFields(logrus.Fields{
		"prefix_char":   cfg.Prefix,
		"setup_channel": cfg.SetupChannel,
		"database":      cfg.DatabasePath,
		"commands":      len(router.Commands()),
	}).Info("starting bot")

	err = discord.Start(ctx)
	stop()
	wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("bot stopped")
	return nil
}
