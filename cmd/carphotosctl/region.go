package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRegionCmd builds `carphotosctl region list <region>`.
func newRegionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Inspect region car listings",
	}

	cmd.AddCommand(newRegionListCmd())

	return cmd
}

func newRegionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <region>",
		Short: "List every car known in a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())

			cars, err := app.Boundary.ListCarsByRegion(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("listing region %s: %w", args[0], err)
			}

			header := []string{"VIN", "MAKE", "MODEL", "CREATED_BY", "PATH"}

			rows := make([][]string, len(cars))
			for i, c := range cars {
				rows[i] = []string{c.VIN, c.Make, c.Model, c.CreatedBy, c.DiskRootPath}
			}

			return printRows(header, rows, cars)
		},
	}
}
