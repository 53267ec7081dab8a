package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// answer mirrors the /query response body.
type answer struct {
	Source     string           `json:"source"`
	Data       []map[string]any `json:"data"`
	Confidence float64          `json:"confidence"`
}

// writeAnswer renders an answer as a header line and a column-aligned table.
// FAQ-style rows print question, answer and score in that order; generated
// rows print their columns sorted by name.
func writeAnswer(w io.Writer, a answer) {
	fmt.Fprintf(w, "%s  confidence %.1f\n", colorize(colorBold, a.Source), a.Confidence)
	if len(a.Data) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	cols := columnsOf(a.Data)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range a.Data {
		for i, c := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			if v, ok := row[c]; ok && v != nil {
				fmt.Fprint(tw, v)
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func columnsOf(rows []map[string]any) []string {
	if _, ok := rows[0]["question"]; ok {
		if _, ok := rows[0]["answer"]; ok {
			return []string{"question", "answer", "score"}
		}
	}
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
