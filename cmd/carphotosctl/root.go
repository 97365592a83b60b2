package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carphotos/carphotos/internal/bootstrap"
)

// Global persistent flags, bound in newRootCmd.
var (
	flagConfigPath string
	flagJSON       bool
)

// appContextKey is the context key the resolved *bootstrap.App is stored
// under, populated once in PersistentPreRunE.
type appContextKey struct{}

func appFrom(ctx context.Context) *bootstrap.App {
	app, ok := ctx.Value(appContextKey{}).(*bootstrap.App)
	if !ok {
		panic("BUG: bootstrap.App not found in context — PersistentPreRunE should have set it")
	}

	return app
}

// newRootCmd builds the fully-assembled root command with every
// subcommand registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "carphotosctl",
		Short:         "Operator CLI for the carphotos disk-as-truth storage engine",
		Long:          "carphotosctl drives the Disk-as-Truth photo asset engine directly, bypassing the HTTP layer — for operators inspecting or repairing remote-store state.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			bootstrap.Version = version

			app, err := bootstrap.Build(flagConfigPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appContextKey{}, app))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "optional TOML config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output machine-readable JSON instead of a table")

	cmd.AddCommand(newRegionCmd())
	cmd.AddCommand(newCarCmd())
	cmd.AddCommand(newSlotCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newReconcileCmd())

	return cmd
}
