package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/iTrooz/componentcache/internal/cache"
	"github.com/iTrooz/componentcache/internal/config"
	"github.com/iTrooz/componentcache/internal/logging"
	"github.com/iTrooz/componentcache/internal/session"
	"github.com/iTrooz/componentcache/internal/storage"
	"github.com/iTrooz/componentcache/internal/transport"
)

// Flags holds the global command line flags.
type Flags struct {
	ConfigPath string
	LogLevel   string
}

// App is the set of services shared by every command. It is populated by the
// root command's Before hook, after commands have been registered.
type App struct {
	Config    *config.Config
	Store     *storage.Store
	Cache     *cache.Cache
	Sessions  *session.Store
	Transport *transport.Client
}

// NewApp wires the services described by cfg.
func NewApp(cfg *config.Config) (*App, error) {
	root, err := cfg.StorageRoot()
	if err != nil {
		return nil, err
	}
	store, err := storage.New(root, storage.WithRepair(cfg.Storage.Repair))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	policy, err := cache.ParseErrorPolicy(cfg.Cache.ErrorPolicy)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.GetAPITimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid API timeout: %w", err)
	}

	sessions := session.NewStore(store)
	return &App{
		Config:   cfg,
		Store:    store,
		Cache:    cache.New(store, cache.WithErrorPolicy(policy)),
		Sessions: sessions,
		Transport: transport.New(
			transport.WithTimeout(timeout),
			transport.WithAPIKey(cfg.API.Key),
			transport.WithTokenSource(sessions),
		),
	}, nil
}

// NewRoot builds the componentcache command tree.
func NewRoot(version string) *cli.Command {
	flags := &Flags{}
	app := &App{}

	root := &cli.Command{
		Name:      "componentcache",
		Usage:     "Inspect and fill the component response cache",
		UsageText: "componentcache [global options] command [command options]",
		Version:   version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars(config.EnvPrefix + "CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (trace, debug, info, warn, error), overrides the config file",
				Destination: &flags.LogLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.LogLevel != "" {
				cfg.Log.Level = flags.LogLevel
			}
			if err := logging.Setup(cfg.Log.Level, c.Root().ErrWriter); err != nil {
				return ctx, err
			}
			if err := cfg.Validate(); err != nil {
				return ctx, fmt.Errorf("invalid configuration: %w", err)
			}

			wired, err := NewApp(cfg)
			if err != nil {
				return ctx, err
			}
			*app = *wired
			logrus.Debugf("Storage root: %s", wired.Store.Root())
			return ctx, nil
		},
	}

	root = NewCacheCmd(app).Register(root)
	root = NewStorageCmd(app).Register(root)
	root = NewSessionCmd(app).Register(root)
	root = NewFetchCmd(app).Register(root)
	root = NewProxyCmd(app).Register(root)

	return root
}
