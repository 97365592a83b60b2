package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/carphotos/carphotos/internal/pathmodel"
	"github.com/carphotos/carphotos/internal/storage"
)

// newSlotCmd builds `carphotosctl slot <upload|mark-used|mark-unused|publish|url>`.
func newSlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Upload to, and administer, a single slot",
	}

	cmd.AddCommand(newSlotUploadCmd())
	cmd.AddCommand(newSlotMarkCmd(true))
	cmd.AddCommand(newSlotMarkCmd(false))
	cmd.AddCommand(newSlotPublishCmd())
	cmd.AddCommand(newSlotURLCmd())

	return cmd
}

// parseSlotArgs decodes the common <region> <vin> <type> <index> prefix
// every slot subcommand takes.
func parseSlotArgs(args []string) (region, vin string, slotType pathmodel.SlotType, index int, err error) {
	region, vin = args[0], args[1]

	slotType = pathmodel.SlotType(args[2])

	index, err = strconv.Atoi(args[3])
	if err != nil {
		return "", "", "", 0, fmt.Errorf("slot index %q is not a number", args[3])
	}

	return region, vin, slotType, index, nil
}

func newSlotUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <region> <vin> <dealer|buyout|dummies> <index> <file>...",
		Short: "Run the four-stage write pipeline against a slot",
		Args:  cobra.MinimumNArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())

			region, vin, slotType, index, err := parseSlotArgs(args)
			if err != nil {
				return err
			}

			files, err := readUploadFiles(args[4:])
			if err != nil {
				return err
			}

			outcome, err := app.Boundary.UploadToSlot(cmd.Context(), region, vin, slotType, index, files, actor())
			if err != nil {
				return fmt.Errorf("uploading to %s/%s slot %s/%d: %w", region, vin, slotType, index, err)
			}

			return printRows([]string{"STAGE", "COUNT"}, [][]string{{outcome.Stage, fmt.Sprintf("%d", outcome.Index.Count)}}, outcome)
		},
	}
}

// readUploadFiles loads each local path named in paths into a
// storage.UploadFile, sniffing content type from the extension the way
// an HTTP multipart handler would from the form part's filename.
func readUploadFiles(paths []string) ([]storage.UploadFile, error) {
	files := make([]storage.UploadFile, 0, len(paths))

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		files = append(files, storage.UploadFile{
			Name:        filepath.Base(p),
			Data:        data,
			ContentType: contentTypeForExt(filepath.Ext(p)),
		})
	}

	return files, nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func newSlotMarkCmd(used bool) *cobra.Command {
	verb := "mark-used"
	if !used {
		verb = "mark-unused"
	}

	return &cobra.Command{
		Use:   verb + " <region> <vin> <dealer|buyout|dummies> <index>",
		Short: "Set or clear a slot's administrative used flag",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())

			region, vin, slotType, index, err := parseSlotArgs(args)
			if err != nil {
				return err
			}

			if used {
				err = app.Boundary.MarkSlotUsed(cmd.Context(), region, vin, slotType, index, actor())
			} else {
				err = app.Boundary.MarkSlotUnused(cmd.Context(), region, vin, slotType, index, actor())
			}

			if err != nil {
				return fmt.Errorf("%s %s/%s slot %s/%d: %w", verb, region, vin, slotType, index, err)
			}

			return printRows([]string{"OK"}, [][]string{{"true"}}, map[string]bool{"ok": true})
		},
	}
}

func newSlotPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <region> <vin> <dealer|buyout|dummies> <index>",
		Short: "Publish every photo currently in a slot",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())

			region, vin, slotType, index, err := parseSlotArgs(args)
			if err != nil {
				return err
			}

			urls, err := app.Boundary.PublishSlot(cmd.Context(), region, vin, slotType, index)
			if err != nil {
				return fmt.Errorf("publishing %s/%s slot %s/%d: %w", region, vin, slotType, index, err)
			}

			header := []string{"NAME", "URL"}

			rows := make([][]string, 0, len(urls))
			for name, url := range urls {
				rows = append(rows, []string{name, url})
			}

			return printRows(header, rows, urls)
		},
	}
}

func newSlotURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <region> <vin> <dealer|buyout|dummies> <index> <name>",
		Short: "Resolve a short-lived download URL for one photo",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd.Context())

			region, vin, slotType, index, err := parseSlotArgs(args)
			if err != nil {
				return err
			}

			url, err := app.Boundary.GetSlotDownloadURL(cmd.Context(), region, vin, slotType, index, args[4])
			if err != nil {
				return fmt.Errorf("resolving download url for %s/%s slot %s/%d/%s: %w", region, vin, slotType, index, args[4], err)
			}

			return printRows([]string{"URL"}, [][]string{{url}}, url)
		},
	}
}
