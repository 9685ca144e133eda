package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/iTrooz/componentcache/internal/session"
)

type SessionCmd struct {
	app *App

	expiresIn time.Duration
}

// NewSessionCmd creates a new session command.
func NewSessionCmd(app *App) *SessionCmd {
	return &SessionCmd{app: app}
}

// Register adds the session command to the application.
func (cmd *SessionCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "session",
		Usage: "Manage stored API sessions",
		Commands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Store the access token of a session",
				ArgsUsage: "<id> <access-token>",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:        "expires-in",
						Usage:       "token lifetime, 0 for no expiry",
						Destination: &cmd.expiresIn,
					},
				},
				Action: cmd.runPut,
			},
		},
	})
	return root
}

func (cmd *SessionCmd) runPut(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected <id> <access-token>")
	}

	sess := session.Session{ID: c.Args().Get(0), AccessToken: c.Args().Get(1)}
	if cmd.expiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(cmd.expiresIn)
	}
	return cmd.app.Sessions.Put(ctx, sess)
}
