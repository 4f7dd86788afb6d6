package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/ken-1511/howard-financial/internal/agent"
)

var (
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	valueStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	undefStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	followUpStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 120

// minTextWidth keeps summaries readable on narrow terminals.
const minTextWidth = 20

// searchRowPrefix is the printed width of score, date and amount columns.
const searchRowPrefix = 6 + 2 + 10 + 2 + 11 + 2

func terminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func renderResult(out io.Writer, res agent.Result, width int) {
	switch res.Kind {
	case agent.KindFormula:
		f := res.Formula
		value := valueStyle.Render(f.Value.String())
		if f.Value.IsNaN() {
			value = undefStyle.Render(f.Value.String())
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render(f.Label+" ="), value)

	case agent.KindSearch:
		textWidth := max(width-searchRowPrefix, minTextWidth)
		for _, r := range res.Search.Rows {
			t := r.Transaction
			date := "----------"
			if t.HasDate() {
				date = t.Date.Format("2006-01-02")
			}
			fmt.Fprintf(out, "%6.3f  %-10s  %11s  %s\n",
				r.Score, date, t.Amount.StringFixed(2), runewidth.Truncate(t.Text, textWidth, "…"))
		}
	}
	fmt.Fprintln(out, followUpStyle.Render(res.FollowUp))
}
