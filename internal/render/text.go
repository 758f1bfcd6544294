package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

var iconGlyphs = map[Icon]string{
	IconUp:    "▲",
	IconDown:  "▼",
	IconEqual: "=",
}

// WriteText writes tree as an aligned text table.
func WriteText(w io.Writer, tree Tree) error {
	if tree.Error != "" {
		if _, err := fmt.Fprintln(w, tree.Error); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range tree.Rows {
		texts := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			if c.Column == ColumnIcon {
				texts[i] = iconGlyphs[c.Icon]
				continue
			}
			texts[i] = c.Text
		}
		if _, err := fmt.Fprintln(tw, strings.Join(texts, "\t")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if tree.LastUpdated != "" {
		if _, err := fmt.Fprintln(w, tree.LastUpdated); err != nil {
			return err
		}
	}
	return nil
}
