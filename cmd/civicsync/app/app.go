// Package app provides the application context for the civicsync CLI:
// configuration loaded from flags, environment, .env files, and an optional
// config file, plus the logger every command shares.
package app

import (
	"github.com/rs/zerolog"
)

// App carries the CLI's configuration and logger.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger
}

// New creates an App with configuration loaded from all sources.
func New(version, commit, date string, opts ...Option) (*App, error) {
	a := &App{version: version, commit: commit, date: date}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	a.config = config

	logger := NewLogger(config)
	a.logger = &logger

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Version returns the build version.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// RefreshLogger rebuilds the logger after flag parsing updated the config.
func (a *App) RefreshLogger() {
	logger := NewLogger(a.config)
	a.logger = &logger
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration. Test hook.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger. Test hook.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
