package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"github.com/tartarus-sandbox/coldstart/pkg/stats"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

var recordHeaders = []string{"MEMORY (MB)", "COUNT", "MIN", "MAX", "STDDEV", "P50", "P75", "P99", "P99.5", "P99.9"}

// isTerminal reports whether w is an interactive terminal. Pipes and buffers
// get plain, uncoloured output.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func renderRun(w io.Writer, format string, run *domain.Run) error {
	switch format {
	case "json":
		return encodeJSON(w, run)
	case "yaml":
		return encodeYAML(w, run)
	}

	styled := isTerminal(w)
	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	fmt.Fprintf(w, "%s %s\n", style(headerStyle, "Function:"), run.Function)
	fmt.Fprintf(w, "%s %s\n", style(headerStyle, "Log group:"), run.LogGroup)
	if len(run.Iterations) > 0 {
		fmt.Fprintf(w, "%s %d\n", style(headerStyle, "Cold starts forced:"), len(run.Iterations))
	}
	fmt.Fprintf(w, "%s %s\n", style(headerStyle, "Run:"), style(mutedStyle, string(run.ID)))

	rows := make([][]string, 0, len(run.Records))
	for _, rec := range run.Records {
		rows = append(rows, recordRow(rec))
	}
	fmt.Fprintln(w, newTable(styled, recordHeaders, rows).Render())

	switch run.Status {
	case domain.RunStatusViolated:
		for _, v := range run.Violations {
			fmt.Fprintf(w, "%s %s\n", style(errorStyle, "✗"), v)
		}
	case domain.RunStatusSucceeded:
		if len(run.Records) == 0 {
			fmt.Fprintln(w, style(mutedStyle, "No cold starts found in the query window."))
		} else {
			fmt.Fprintln(w, style(successStyle, "✓ done"))
		}
	}
	return nil
}

func renderHistory(w io.Writer, format string, runs []domain.Run) error {
	switch format {
	case "json":
		return encodeJSON(w, runs)
	case "yaml":
		return encodeYAML(w, runs)
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		p50 := "-"
		if len(run.Records) == 1 {
			p50 = formatMillis(run.Records[0].P50)
		}
		rows = append(rows, []string{
			string(run.ID),
			string(run.Function),
			string(run.Status),
			run.StartedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(len(run.Iterations)),
			strconv.Itoa(len(run.Records)),
			p50,
		})
	}
	headers := []string{"ID", "FUNCTION", "STATUS", "STARTED", "ITERATIONS", "BUCKETS", "P50"}
	fmt.Fprintln(w, newTable(isTerminal(w), headers, rows).Render())
	return nil
}

func newTable(styled bool, headers []string, rows [][]string) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	if styled {
		t = t.BorderStyle(mutedStyle).StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	} else {
		t = t.StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	}
	return t
}

func recordRow(rec stats.Record) []string {
	memory := "-"
	if rec.MemorySize > 0 {
		memory = strconv.FormatFloat(rec.MemorySize, 'f', -1, 64)
	}
	return []string{
		memory,
		strconv.FormatUint(rec.Count, 10),
		formatMillis(rec.Min),
		formatMillis(rec.Max),
		formatMillis(rec.StdDev),
		formatMillis(rec.P50),
		formatMillis(rec.P75),
		formatMillis(rec.P99),
		formatMillis(rec.P995),
		formatMillis(rec.P999),
	}
}

func formatMillis(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
