package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hotswap/internal/config"
	"github.com/hupe1980/hotswap/internal/devmode"
	"github.com/hupe1980/hotswap/internal/logging"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] [-- args...]",
		Short: "Run an application and restart it when its build output changes",
		Long: `Run starts the entry point and watches the build output directories.
When files below a watch root are created or modified, hotswap waits for
the changes to settle, interrupts the running instance and starts a new
one from a fresh copy of the build output.

Deleting files never triggers a restart: build tools routinely remove
their output before writing it again.

Arguments after -- are passed to every instance.`,
		Example: `  hotswap run --entry-point server --watch-roots ./bin -- --port 8080
  HOTSWAP_ENTRY_POINT=server HOTSWAP_WATCH_ROOTS=./bin hotswap run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevMode(cmd.Context(), cmd, args)
		},
	}

	registerDevModeFlags(cmd)

	return cmd
}

func runDevMode(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	dm, err := devmode.ParseProperties(cfg.Properties(), args)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = devmode.Run(ctx, *dm,
		devmode.WithLogger(logger),
		devmode.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		devmode.WithDir(cfg.Dir),
	)
	if err != nil {
		if errors.Is(err, devmode.ErrInvalidConfig) {
			return &ExitError{Code: 2, Err: err}
		}

		return &ExitError{Code: 1, Err: err}
	}

	return nil
}
