package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "config")

type Config struct {
	ClientToken       string `koanf:"client_token"`
	Prefix            string `koanf:"prefix"`
	BotOwner          string `koanf:"bot_owner"`
	SetupChannel      string `koanf:"bot_setup_channel"`
	LogChannel        string `koanf:"bot_log_channel"`
	ReactEventChannel string `koanf:"bot_react_event_channel"`
	RoleAdmin         string `koanf:"role_admin"`
	RoleMod           string `koanf:"role_mod"`
	DatabasePath      string `koanf:"database_path"`
	WSAddr            string `koanf:"ws_addr"`
	LogLevel          string `koanf:"log_level"`
}

// Options ajusta la carga: archivo .env explícito y valores de flags que pisan al entorno.
type Options struct {
	EnvFile   string
	Overrides map[string]any
}

func defaults() map[string]any {
	return map[string]any{
		"prefix":        "!",
		"database_path": "database.sqlite",
		"log_level":     "info",
	}
}

func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, errors.Wrapf(err, "config: load env file %s", opts.EnvFile)
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not read .env")
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "config: defaults")
	}

	// las variables vacías no pisan los defaults
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	}), nil); err != nil {
		return nil, errors.Wrap(err, "config: env")
	}

	if len(opts.Overrides) > 0 {
		overrides := make(map[string]any, len(opts.Overrides))
		for key, v := range opts.Overrides {
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			overrides[key] = v
		}
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, "config: overrides")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ClientToken == "" {
		return errors.New("config: CLIENT_TOKEN is required")
	}
	if c.Prefix == "" {
		return errors.New("config: PREFIX must not be empty")
	}
	if c.SetupChannel == "" {
		log.Warn("BOT_SETUP_CHANNEL vacío: se aceptan comandos de cualquier canal")
	}
	if c.BotOwner == "" {
		log.Warn("BOT_OWNER vacío: prune queda deshabilitado")
	}
	return nil
}
