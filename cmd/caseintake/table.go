package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Count columns are right aligned.
type column struct {
	title string
	count bool
}

func textColumns(titles ...string) []column {
	out := make([]column, len(titles))
	for i, title := range titles {
		out[i] = column{title: title}
	}
	return out
}

// renderTable draws rows under cols with the rounded style. Short rows are
// padded with blanks. A non-empty footer is drawn as a closing row.
func renderTable(cols []column, rows [][]string, footer ...string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(padRow(cols, headerCells(cols)))
	for _, row := range rows {
		tw.AppendRow(padRow(cols, row))
	}
	if len(footer) > 0 {
		tw.AppendFooter(padRow(cols, footer))
	}

	configs := make([]table.ColumnConfig, len(cols))
	for i, col := range cols {
		align := text.AlignLeft
		if col.count {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func headerCells(cols []column) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = col.title
	}
	return out
}

func padRow(cols []column, cells []string) table.Row {
	row := make(table.Row, len(cols))
	for i := range cols {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
