package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/iTrooz/componentcache/internal/proxy"
)

type ProxyCmd struct {
	app *App
}

// NewProxyCmd creates a new proxy command.
func NewProxyCmd(app *App) *ProxyCmd {
	return &ProxyCmd{app: app}
}

// Register adds the proxy command to the application.
func (cmd *ProxyCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "proxy",
		Usage: "Run the caching HTTP proxy",
		Description: `Serves a forward proxy on proxy.port. Responses matching proxy.rules are
stored in the cache, one namespace per upstream host, and replayed with an
X-Cache: HIT header until the namespace expires.`,
		Action: cmd.run,
	})
	return root
}

func (cmd *ProxyCmd) run(ctx context.Context, _ *cli.Command) error {
	server, err := proxy.New(cmd.app.Config, cmd.app.Cache)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Start(ctx)
}
