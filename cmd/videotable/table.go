package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableSpec describes one rendered table. Footer is optional.
type tableSpec struct {
	Headers []string
	Aligns  []columnAlignment
	Rows    [][]string
	Footer  []string
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

// renderTable draws spec with go-pretty. Rounded box characters are used on a
// terminal; piped output gets plain ASCII so it stays grep-friendly.
func renderTable(spec tableSpec, terminal bool) string {
	width := len(spec.Headers)
	if width == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleDefault
	if terminal {
		style = table.StyleRounded
	}
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)

	tw.AppendHeader(toRow(spec.Headers, width))
	for _, cells := range spec.Rows {
		tw.AppendRow(toRow(cells, width))
	}
	if len(spec.Footer) > 0 {
		tw.AppendFooter(toRow(spec.Footer, width))
	}

	configs := make([]table.ColumnConfig, width)
	for i := range configs {
		align := text.AlignLeft
		if i < len(spec.Aligns) && spec.Aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
