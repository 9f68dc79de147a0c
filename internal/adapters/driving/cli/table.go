package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// maxTextWidth bounds post text in tables.
const maxTextWidth = 80

// renderTable renders rows with a header. Columns listed in numeric are right aligned.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numStyle
			default:
				return cellStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func pivotTable(rows []domain.PivotRow) string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.Ticker,
			strconv.Itoa(r.Positive),
			strconv.Itoa(r.Neutral),
			strconv.Itoa(r.Negative),
			strconv.Itoa(r.Total),
			fmt.Sprintf("%.3f", r.PosRatio),
			fmt.Sprintf("%.3f", r.NegRatio),
		}
	}
	return renderTable(
		[]string{"Ticker", "Positive", "Neutral", "Negative", "Total", "Pos ratio", "Neg ratio"},
		out, 1, 2, 3, 4, 5, 6,
	)
}

func mentionsTable(rows []domain.TickerMentions) string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Ticker, strconv.Itoa(r.Count)}
	}
	return renderTable([]string{"Ticker", "Mentions"}, out, 1)
}

func matchesTable(matches []domain.Match) string {
	out := make([][]string, len(matches))
	for i, m := range matches {
		out[i] = []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%.4f", m.Similarity),
			m.DocID,
			truncate(m.CleanText, maxTextWidth),
		}
	}
	return renderTable([]string{"#", "Similarity", "Doc ID", "Text"}, out, 0, 1)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
