package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/iTrooz/componentcache/internal/storage"
)

type StorageCmd struct {
	app *App

	namespace string
}

// NewStorageCmd creates a new storage command.
func NewStorageCmd(app *App) *StorageCmd {
	return &StorageCmd{app: app}
}

// Register adds the storage command to the application.
func (cmd *StorageCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "storage",
		Usage: "List and remove raw storage records",
		Commands: []*cli.Command{
			{
				Name:  "ls",
				Usage: "List the records of a namespace",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "namespace",
						Aliases:     []string{"n"},
						Usage:       "storage namespace",
						Value:       string(storage.NamespaceCache),
						Destination: &cmd.namespace,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "rm",
				Usage:     "Remove the record stored under a logical key",
				ArgsUsage: "<namespace> <key>",
				Action:    cmd.runRemove,
			},
		},
	})
	return root
}

func (cmd *StorageCmd) runList(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.app.Store.List(ctx, storage.Namespace(cmd.namespace))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILENAME\tMODIFIED\tPATH")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Filename, e.ModTime.Format(time.RFC3339), e.Path)
	}
	return w.Flush()
}

func (cmd *StorageCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected <namespace> <key>")
	}
	return cmd.app.Store.Remove(ctx, storage.Namespace(c.Args().Get(0)), c.Args().Get(1))
}
