// Command frsctl runs profile imports, exports and merges from the shell
// against the same stores the service uses.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"frs/profile-service/internal/app"
	"frs/profile-service/internal/config"
)

type rootOptions struct {
	sqlite string
	actor  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "frsctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:           "frsctl",
		Short:         "Import, export and merge FRS user profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.sqlite, "sqlite", "", "Use a local SQLite file instead of DATABASE_URL")
	root.PersistentFlags().StringVar(&opts.actor, "actor", "frsctl", "Actor recorded on imports and merges")

	root.AddCommand(
		newImportCmd(&opts),
		newExportCmd(&opts),
		newMergeCmd(&opts),
	)
	return root
}

// withApp loads config, opens the stores and runs fn. --sqlite wins over
// STORE_DRIVER and every .env file.
func withApp(ctx context.Context, root *rootOptions, fn func(*app.App) error) error {
	var overrides []config.Option
	if root.sqlite != "" {
		overrides = append(overrides, config.WithSQLite(root.sqlite))
	}
	cfg, err := config.Load(overrides...)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

var errUsage = errors.New("usage")
