package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dusk-indust/treemerge/internal/backend"
	"github.com/dusk-indust/treemerge/internal/report"
)

func (a *app) runFormats(args []string) error {
	fs, verbose := a.flagSet("formats", "")
	asJSON := fs.Bool("json", false, "print formats as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.setupLogger(*verbose)

	formats := backend.Formats()
	if *asJSON {
		return report.WriteJSON(a.stdout, formats)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tEXTENSIONS\tCOMMENTS\tFREEZE TOKEN")
	for _, f := range formats {
		exts := strings.Join(f.Extensions, " ")
		if exts == "" {
			exts = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, exts, strings.Join(f.CommentStyles, " "), f.FreezeToken)
	}
	return tw.Flush()
}
