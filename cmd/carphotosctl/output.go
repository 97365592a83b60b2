package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

// wantJSON reports whether output should be JSON: either the user
// asked for it with --json, or stdout is not a terminal (piped into
// another program) — a script consuming our output shouldn't have to
// pass --json explicitly just because it redirected stdout.
func wantJSON() bool {
	return flagJSON || !isatty.IsTerminal(os.Stdout.Fd())
}

// printRows encodes v as one indented JSON value when wantJSON(),
// otherwise renders rows as a tab-aligned table with header.
func printRows(header []string, rows [][]string, v any) error {
	if wantJSON() {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	defer w.Flush()

	printTabRow(w, header)

	for _, row := range rows {
		printTabRow(w, row)
	}

	return nil
}

func printTabRow(w *tabwriter.Writer, cols []string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}

		fmt.Fprint(w, c)
	}

	fmt.Fprintln(w)
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, "carphotosctl:", err)
}
