package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"repairtrack/internal/bootstrap/logging"
	"repairtrack/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Notifier NotifierConfig `mapstructure:"notifier"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotifierConfig controls notification fan-out and delivery.
type NotifierConfig struct {
	// Channels maps a recipient role (customer, technician, admin) to the
	// delivery channels its notifications go out on.
	Channels map[string][]string `mapstructure:"channels"`

	MaxAttempts    int           `mapstructure:"max_attempts"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`
	MaxParallel    int           `mapstructure:"max_parallel"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	NATSURL        string        `mapstructure:"nats_url"`
	NATSSubject    string        `mapstructure:"nats_subject"`
	BusBufferSize  int           `mapstructure:"bus_buffer_size"`
	DispatchBuffer int           `mapstructure:"dispatch_buffer"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.Notifier.MaxAttempts < 1 {
		return Config{}, errors.New("notifier.max_attempts must be at least 1")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("http_addr", cfg.HTTP.Addr),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "repairtrack")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/repairtrack.sqlite")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("notifier.channels", map[string][]string{
		"customer":   {"webhook"},
		"technician": {"push"},
		"admin":      {"webhook"},
	})
	v.SetDefault("notifier.max_attempts", 4)
	v.SetDefault("notifier.poll_interval", "2s")
	v.SetDefault("notifier.send_timeout", "10s")
	v.SetDefault("notifier.max_parallel", 4)
	v.SetDefault("notifier.nats_subject", "repairtrack.notifications")
	v.SetDefault("notifier.bus_buffer_size", 16)
	v.SetDefault("notifier.dispatch_buffer", 64)
}
