/*
PURPOSE:
  Renders records for the terminal: one bordered key/value table per
  record, the way `gitml ls` and `gitml show` print them.

REQUIREMENTS:
  User-specified:
  - Show id, params, metrics, remarks for each record.

  Implementation-discovered:
  - Nested params print as "k: v, k: v" so a row stays on one line.
  - Empty fields are omitted from the table.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Consumes: internal/model.Record

IMPLEMENTATION RULES:
  - lipgloss for widths and styling; no colors when stdout is not a TTY
    (lipgloss detects this on its own).
*/

package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/daryltucker/gitml/internal/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	keyStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Faint(true)
)

// DisplayColumns are the record fields shown in tables, in order.
var DisplayColumns = []string{"id", "params", "metrics", "remarks", "timestamp"}

// Rows returns the non-empty (field, value) pairs of rec in display order.
func Rows(rec model.Record) [][2]string {
	var rows [][2]string
	for _, col := range DisplayColumns {
		var value string
		switch col {
		case "id":
			value = rec.ID
		case "params":
			value = rec.Params.String()
		case "metrics":
			value = rec.Metrics.String()
		case "remarks":
			value = rec.Remarks
		case "timestamp":
			if !rec.Timestamp.IsZero() {
				value = rec.Timestamp.Local().Format(time.DateTime)
			}
		}
		if value != "" {
			rows = append(rows, [2]string{col, value})
		}
	}
	return rows
}

// RenderRecord returns rec as a bordered two-column table.
func RenderRecord(rec model.Record) string {
	rows := Rows(rec)
	if len(rows) == 0 {
		return ""
	}

	keyWidth, valueWidth := 0, 0
	for _, row := range rows {
		keyWidth = max(keyWidth, lipgloss.Width(row[0]))
		valueWidth = max(valueWidth, lipgloss.Width(row[1]))
	}
	keyWidth += 2
	valueWidth += 2

	rule := borderStyle.Render("+" + strings.Repeat("-", keyWidth) + "+" + strings.Repeat("-", valueWidth) + "+")
	bar := borderStyle.Render("|")

	var sb strings.Builder
	sb.WriteString(rule + "\n")
	for _, row := range rows {
		sb.WriteString(bar)
		sb.WriteString(keyStyle.Width(keyWidth).Render(row[0]))
		sb.WriteString(bar)
		sb.WriteString(cellStyle.Width(valueWidth).Render(row[1]))
		sb.WriteString(bar + "\n")
	}
	sb.WriteString(rule)
	return sb.String()
}

// WriteRecords prints a title followed by one table per record.
func WriteRecords(w io.Writer, title string, records []model.Record) error {
	if _, err := fmt.Fprintf(w, "\n%s\n\n", titleStyle.Render(title)); err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := fmt.Fprintf(w, "%s\n\n", RenderRecord(rec)); err != nil {
			return err
		}
	}
	return nil
}

// WriteRecord prints a single record table.
func WriteRecord(w io.Writer, rec model.Record) error {
	_, err := fmt.Fprintf(w, "\n%s\n\n", RenderRecord(rec))
	return err
}
