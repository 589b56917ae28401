package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
)

const barWidth = 30

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// table aligns rows with tabwriter and styles the header line afterwards,
// so escape codes never count toward column widths.
func table(w io.Writer, header []string, rows [][]string) error {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.SplitAfter(buf.String(), "\n")
	first := strings.TrimRight(lines[0], "\n")
	if _, err := fmt.Fprintln(w, headerStyle.Render(first)); err != nil {
		return err
	}
	_, err := io.WriteString(w, strings.Join(lines[1:], ""))
	return err
}

func renderResult(w io.Writer, res core.Result) error {
	if len(res.Rows) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no entries"))
		return err
	}
	rows := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			cells[i] = export.Cell(row, col)
		}
		rows = append(rows, cells)
	}
	if err := table(w, export.Headers(res), rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", mutedStyle.Render("total"), res.Total().StringFixed(2))
	return err
}

func renderEntries(w io.Writer, title string, entries []core.Entry) error {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (%d)", title, len(entries))))
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprint(e.ID),
			e.Date.String(),
			e.Category,
			e.Amount.StringFixed(2),
			string(e.Type),
		})
	}
	return table(w, []string{"id", "Date", "Category", "Amount", "Type"}, rows)
}

func renderSummary(w io.Writer, s ledger.Summary) error {
	title := s.Type.DisplayName()
	if s.Dates != nil {
		title += " " + s.Dates.String()
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	if err := renderResult(w, s.Table); err != nil {
		return err
	}
	if len(s.Shares) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	rows := make([][]string, 0, len(s.Shares))
	for _, sh := range s.Shares {
		rows = append(rows, []string{
			sh.Category,
			sh.Amount.StringFixed(2),
			fmt.Sprintf("%5.1f%%", sh.Percent),
		})
	}
	var buf bytes.Buffer
	if err := table(&buf, []string{"Category", "Amount", "Share"}, rows); err != nil {
		return err
	}

	// Bars go after alignment, like the styled header.
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	fmt.Fprintln(w, lines[0])
	for i, line := range lines[1:] {
		fmt.Fprintf(w, "%s  %s\n", line, bar(s.Shares[i].Percent))
	}
	return nil
}

func bar(percent float64) string {
	n := int(percent / 100 * barWidth)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return barStyle.Render(strings.Repeat("█", n))
}
