package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dmx-platform/backend/internal/app"
	"dmx-platform/backend/pkg/config"
	"dmx-platform/backend/pkg/logger"
)

// opener returns a ready engine and a function releasing it
type opener func(ctx context.Context) (*app.App, func(), error)

func main() {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dmxctl",
		Short: "Maintenance tool for the DMX type graph",
		Long: `dmxctl bootstraps a store, installs declarative type definitions and
inspects or repairs the comp def sequences of types.
The store is selected by the same environment as the server (STORE, NEO4J_*).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newBootstrapCmd(open))
	rootCmd.AddCommand(newApplyCmd(open))
	rootCmd.AddCommand(newTypeCmd(open))
	rootCmd.AddCommand(newSequenceCmd(open))
	return rootCmd
}

// openFromEnv loads the configuration and wires the engine. TYPES_FILE is not applied here.
func openFromEnv(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.TypesFile = ""
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, logger.Get())
	if err != nil {
		return nil, nil, err
	}
	return a, func() { a.Close(context.Background()) }, nil
}

// withApp opens the engine around fn
func withApp(cmd *cobra.Command, open opener, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, release, err := open(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, a)
}
