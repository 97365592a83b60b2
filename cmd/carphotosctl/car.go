package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newCarCmd builds `carphotosctl car <open|create|archive|restore>`.
func newCarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "car",
		Short: "Open, create, archive, and restore cars",
	}

	cmd.AddCommand(newCarOpenCmd())
	cmd.AddCommand(newCarCreateCmd())
	cmd.AddCommand(newCarArchiveCmd())
	cmd.AddCommand(newCarRestoreCmd())

	return cmd
}

func newCarOpenCmd() *cobra.Command {
	var loadCounts bool

	cmd := &cobra.Command{
		Use:   "open <region> <vin>",
		Short: "Open a car and list its 14 slots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			region, vin := args[0], args[1]

			cws, err := app.Boundary.GetCarWithSlots(cmd.Context(), region, vin)
			if err != nil {
				return fmt.Errorf("opening car %s/%s: %w", region, vin, err)
			}

			if loadCounts {
				if err := app.Boundary.LoadCarSlotCounts(cmd.Context(), cws); err != nil {
					return fmt.Errorf("loading slot counts for %s/%s: %w", region, vin, err)
				}
			}

			header := []string{"SLOT", "INDEX", "COUNT", "LOCKED", "USED"}

			rows := make([][]string, len(cws.Slots))
			for i, s := range cws.Slots {
				count := "?"
				if s.CountsLoaded {
					count = fmt.Sprintf("%d/%d", s.Count, s.Limit)
				}

				rows[i] = []string{string(s.Type), fmt.Sprintf("%d", s.Index), count, fmt.Sprintf("%v", s.Locked), fmt.Sprintf("%v", s.Used)}
			}

			return printRows(header, rows, cws)
		},
	}

	cmd.Flags().BoolVar(&loadCounts, "counts", false, "also resolve per-slot photo counts (one fan-out round-trip)")

	return cmd
}

func newCarCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <region> <make> <model> <vin>",
		Short: "Create a new car and its 14 slots",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			region, make_, model, vin := args[0], args[1], args[2], args[3]

			car, err := app.Boundary.CreateCar(cmd.Context(), region, make_, model, vin, actor())
			if err != nil {
				return fmt.Errorf("creating car %s/%s: %w", region, vin, err)
			}

			return printRows([]string{"VIN", "PATH"}, [][]string{{car.VIN, car.DiskRootPath}}, car)
		},
	}
}

func newCarArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <region> <vin>",
		Short: "Move a car into the archive scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			region, vin := args[0], args[1]

			path, err := app.Boundary.ArchiveCar(cmd.Context(), region, vin, actor())
			if err != nil {
				return fmt.Errorf("archiving car %s/%s: %w", region, vin, err)
			}

			return printRows([]string{"PATH"}, [][]string{{path}}, path)
		},
	}
}

func newCarRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <vin> <target-region>",
		Short: "Restore an archived car into a region",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			vin, target := args[0], args[1]

			car, err := app.Boundary.RestoreCar(cmd.Context(), vin, target, actor())
			if err != nil {
				return fmt.Errorf("restoring car %s to %s: %w", vin, target, err)
			}

			return printRows([]string{"VIN", "REGION", "PATH"}, [][]string{{car.VIN, car.Region, car.DiskRootPath}}, car)
		},
	}
}

// actor resolves the audit-trail identity attached to every mutating
// operation. Operators run this CLI under their own shell account, so
// the OS username is the one honest default; CARPHOTOS_ACTOR overrides
// it for scripted callers.
func actor() string {
	if a := os.Getenv("CARPHOTOS_ACTOR"); a != "" {
		return a
	}

	if u := os.Getenv("USER"); u != "" {
		return u
	}

	return "carphotosctl"
}
