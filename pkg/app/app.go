// Package app bootstraps a command line process: config file and environment
// loading, logging and New Relic.
package app

import (
	"context"
	"crypto/ed25519"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/code-payments/ownership-nft/pkg/config"
	"github.com/code-payments/ownership-nft/pkg/issuance"
	"github.com/code-payments/ownership-nft/pkg/metrics"
)

// Environment is a loaded process configuration.
type Environment struct {
	Config BaseConfig

	// MetricsProvider is nil when no license key is configured.
	MetricsProvider *newrelic.Application

	v *viper.Viper
}

// Load reads the config file at configPath, if it exists, overlaid with
// environment variables, then configures logging and metrics.
func Load(configPath string) (*Environment, error) {
	v := newViper()

	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to load config")
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to check if config exists")
	}

	cfg := defaultConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(cfg.AppName) == 0 {
		return nil, errors.New("must specify an application name")
	}

	// todo: Better abstraction so we're not directly tied to NR
	var metricsProvider *newrelic.Application
	if len(cfg.NewRelicLicenseKey) > 0 {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(cfg.AppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return nil, errors.Wrap(err, "error connecting to new relic")
		}

		metricsProvider = nr
	}

	configureLogger(cfg, metricsProvider)

	return &Environment{
		Config:          cfg,
		MetricsProvider: metricsProvider,
		v:               v,
	}, nil
}

// ConfigSource returns issuance settings from the same config file and
// environment.
func (e *Environment) ConfigSource() func(key string) config.Config {
	return newViperSource(e.v)
}

// IssuanceConfig is the issuance.ConfigProvider backed by ConfigSource.
func (e *Environment) IssuanceConfig() issuance.ConfigProvider {
	return issuance.WithConfigSource(e.ConfigSource())
}

// Context returns a context that carries the metrics provider and is
// cancelled on SIGINT or SIGTERM.
func (e *Environment) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	return metrics.WithApplication(ctx, e.MetricsProvider), cancel
}

// LoadPayer loads the fee payer keypair.
func (e *Environment) LoadPayer() (ed25519.PrivateKey, error) {
	return loadKeypair("payer", e.Config.PayerKeypair)
}

// LoadAdmin loads the admin keypair.
func (e *Environment) LoadAdmin() (ed25519.PrivateKey, error) {
	return loadKeypair("admin", e.Config.AdminKeypair)
}

// Shutdown flushes pending metrics.
func (e *Environment) Shutdown() {
	if e.MetricsProvider != nil {
		e.MetricsProvider.Shutdown(e.Config.ShutdownGracePeriod)
	}
}

func loadKeypair(role, fileURL string) (ed25519.PrivateKey, error) {
	if len(fileURL) == 0 {
		return nil, errors.Errorf("no %s keypair configured", role)
	}

	raw, err := LoadFile(fileURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s keypair", role)
	}

	key, err := issuance.ParseKeypair(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s keypair", role)
	}
	return key, nil
}

func configureLogger(cfg BaseConfig, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", cfg.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}
