// Package format renders provider statuses for the terminal and for scripts.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"pkt.systems/ailimit/schema"
)

// Supported output formats.
const (
	Auto  = "auto"
	Table = "table"
	Plain = "plain"
	JSON  = "json"
	JSONL = "jsonl"
)

// Resolve turns "auto" (or empty) into table on a terminal and JSON
// otherwise. Other values are returned lowercased.
func Resolve(format string, out io.Writer) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != Auto {
		return format
	}
	if isTerminal(out) {
		return Table
	}
	return JSON
}

// WriteStatuses writes statuses to w in the requested format. JSON output is
// a single array, as consumed by scripts.
func WriteStatuses(w io.Writer, statuses []schema.Status, format string) error {
	switch Resolve(format, w) {
	case Table:
		return writeTable(w, statuses)
	case Plain:
		return writePlain(w, statuses)
	case JSON:
		return writeJSON(w, statuses)
	case JSONL:
		return writeJSONL(w, statuses)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writePlain(w io.Writer, statuses []schema.Status) error {
	for _, st := range statuses {
		line := fmt.Sprintf("%s\t%s\t%d\t%s\t%s", st.Provider, st.State, st.ResetAt, humanReset(st), usedPercent(st))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, statuses []schema.Status) error {
	if statuses == nil {
		statuses = []schema.Status{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(statuses)
}

func writeJSONL(w io.Writer, statuses []schema.Status) error {
	enc := json.NewEncoder(w)
	for _, st := range statuses {
		if err := enc.Encode(st); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, statuses []schema.Status) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	if width := terminalWidth(w); width > 0 {
		tw.SetAllowedRowLength(width)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 48},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
	})
	tw.AppendHeader(table.Row{"Provider", "Status", "Used", "Resets", "Resets In"})

	now := time.Now()
	for _, st := range statuses {
		tw.AppendRow(table.Row{st.Provider, st.State, usedPercent(st), humanReset(st), until(st, now)})
	}
	if len(statuses) == 0 {
		tw.AppendRow(table.Row{"-", "(no providers)", "-", "-", "-"})
	}

	_ = tw.Render()
	return nil
}

func humanReset(st schema.Status) string {
	if st.ResetAtHuman == "" {
		return schema.Unknown
	}
	return st.ResetAtHuman
}

func usedPercent(st schema.Status) string {
	if st.UsedPercent == nil {
		return "-"
	}
	return strconv.FormatFloat(*st.UsedPercent, 'f', -1, 64) + "%"
}

func until(st schema.Status, now time.Time) string {
	if st.ResetAt <= 0 {
		return "-"
	}
	d := time.UnixMilli(st.ResetAt).Sub(now)
	if d <= 0 {
		return "now"
	}
	return d.Round(time.Minute).String()
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func terminalWidth(out io.Writer) int {
	file, ok := out.(*os.File)
	if !ok {
		return 0
	}
	if w, _, err := term.GetSize(int(file.Fd())); err == nil && w > 0 {
		return w
	}
	return 0
}
