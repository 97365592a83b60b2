package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newLinkCmd builds `carphotosctl link <list|add|rm>`.
func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "List and manage a car's external links",
	}

	cmd.AddCommand(newLinkListCmd())
	cmd.AddCommand(newLinkAddCmd())
	cmd.AddCommand(newLinkRmCmd())

	return cmd
}

func newLinkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <region> <vin>",
		Short: "List a car's links",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			region, vin := args[0], args[1]

			links, err := app.Boundary.ListLinks(cmd.Context(), region, vin)
			if err != nil {
				return fmt.Errorf("listing links for %s/%s: %w", region, vin, err)
			}

			header := []string{"ID", "TITLE", "URL", "CREATED_BY"}

			rows := make([][]string, len(links))
			for i, l := range links {
				rows[i] = []string{l.ID, l.Title, l.URL, l.CreatedBy}
			}

			return printRows(header, rows, links)
		},
	}
}

func newLinkAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <region> <vin> <title> <url>",
		Short: "Add an external link to a car",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			region, vin, title, url := args[0], args[1], args[2], args[3]

			link, err := app.Boundary.CreateLink(cmd.Context(), region, vin, title, url, actor())
			if err != nil {
				return fmt.Errorf("adding link to %s/%s: %w", region, vin, err)
			}

			return printRows([]string{"ID", "TITLE", "URL"}, [][]string{{link.ID, link.Title, link.URL}}, link)
		},
	}
}

func newLinkRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <region> <vin> <link-id>",
		Short: "Remove a link from a car",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())
			region, vin, linkID := args[0], args[1], args[2]

			if err := app.Boundary.DeleteLink(cmd.Context(), region, vin, linkID); err != nil {
				return fmt.Errorf("removing link %s from %s/%s: %w", linkID, region, vin, err)
			}

			return printRows([]string{"OK"}, [][]string{{"true"}}, map[string]bool{"ok": true})
		},
	}
}
