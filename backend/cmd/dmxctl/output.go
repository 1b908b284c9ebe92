package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
	infoColor   = color.New(color.FgHiBlack)
	headerColor = color.New(color.Bold, color.FgCyan)
)

func success(w io.Writer, format string, args ...interface{}) {
	okColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func failure(w io.Writer, format string, args ...interface{}) {
	failColor.Fprint(w, "✗ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func info(w io.Writer, format string, args ...interface{}) {
	infoColor.Fprintf(w, "· "+format+"\n", args...)
}

func header(w io.Writer, format string, args ...interface{}) {
	headerColor.Fprintf(w, format+"\n", args...)
}

// table renders left-aligned columns
type table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

func newTable(w io.Writer, headers ...string) *table {
	return &table{w: w, headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range t.headers {
		headerColor.Fprint(t.w, padRight(h, widths[i]))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.w, "  ")
		}
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			fmt.Fprint(t.w, padRight(cell, widths[i]))
			if i < len(row)-1 {
				fmt.Fprint(t.w, "  ")
			}
		}
		fmt.Fprintln(t.w)
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
