package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/iTrooz/componentcache/internal/cache"
)

type CacheCmd struct {
	app *App

	ttl time.Duration
}

// NewCacheCmd creates a new cache command.
func NewCacheCmd(app *App) *CacheCmd {
	return &CacheCmd{app: app}
}

// Register adds the cache command to the application.
func (cmd *CacheCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Read and write TTL cache entries",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a cached value",
				ArgsUsage: "<namespace> <key>",
				Action:    cmd.runGet,
			},
			{
				Name:  "set",
				Usage: "Store a value, as JSON or as a plain string",
				Description: `Stores value under key. Setting any key resets the expiry of the whole
namespace to now + ttl. A ttl of 0 removes the expiry.`,
				ArgsUsage: "<namespace> <key> <value>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:        "ttl",
						Usage:       "time to live of the namespace (defaults to cache.ttl)",
						Destination: &cmd.ttl,
					},
				},
				Action: cmd.runSet,
			},
			{
				Name:      "inspect",
				Usage:     "Print a whole cache namespace",
				ArgsUsage: "<namespace>",
				Action:    cmd.runInspect,
			},
		},
	})
	return root
}

func (cmd *CacheCmd) runGet(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected <namespace> <key>")
	}
	ns, key := c.Args().Get(0), c.Args().Get(1)

	value, found, err := cache.Get[json.RawMessage](ctx, cmd.app.Cache, ns, key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s/%s is not cached", ns, key)
	}
	return printJSON(c.Root().Writer, value)
}

func (cmd *CacheCmd) runSet(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 3 {
		return fmt.Errorf("expected <namespace> <key> <value>")
	}
	ns, key, arg := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)

	ttl := cmd.ttl
	if !c.IsSet("ttl") {
		var err error
		if ttl, err = cmd.app.Config.GetCacheTTL(); err != nil {
			return err
		}
	}

	var value any = arg
	if json.Valid([]byte(arg)) {
		value = json.RawMessage(arg)
	}
	return cmd.app.Cache.Set(ctx, ns, key, value, ttl)
}

func (cmd *CacheCmd) runInspect(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected <namespace>")
	}
	ns := c.Args().First()

	file, err := cmd.app.Cache.Inspect(ctx, ns)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if expiry, ok := file.ExpiresAt(); ok {
		state := "live"
		if file.Expired(time.Now()) {
			state = "expired"
		}
		_, _ = fmt.Fprintf(out, "expires: %s (%s)\n", expiry.Format(time.RFC3339), state)
	} else {
		_, _ = fmt.Fprintln(out, "expires: never")
	}
	for _, k := range file.Keys() {
		_, _ = fmt.Fprintf(out, "%s\t%s\n", k, file.Data[k])
	}
	return nil
}
