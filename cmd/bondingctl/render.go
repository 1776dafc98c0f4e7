// cmd/bondingctl/render.go
package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curvebond/internal/scenario"
)

var (
	cyan    = lipgloss.Color("#00E5FF")
	magenta = lipgloss.Color("#FF1B6B")
	green   = lipgloss.Color("#2AFFAA")
	red     = lipgloss.Color("#FF5555")
	muted   = lipgloss.Color("#6C7280")
	text    = lipgloss.Color("#ECEFF4")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(cyan).Bold(true).MarginTop(1)
	labelStyle = lipgloss.NewStyle().Foreground(muted).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(text)
	okStyle    = lipgloss.NewStyle().Foreground(green).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(red).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(magenta).
			Padding(0, 1)

	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	headerStyle = cellStyle.Foreground(cyan).Bold(true)
)

// kv renders aligned label/value rows.
func kv(rows ...[2]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r[0]), valueStyle.Render(r[1])))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// table renders rows under a header with columns padded to the widest cell.
func table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(cells))
		for i, c := range cells {
			out[i] = style.Width(widths[i] + 2).Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{render(headerStyle, header)}
	for _, row := range rows {
		lines = append(lines, render(cellStyle, row))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderResult(res *scenario.Result) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("▶ " + res.Name))
	b.WriteString("\n")

	rows := make([][]string, 0, len(res.Steps))
	for _, s := range res.Steps {
		status := okStyle.Render("ok")
		detail := ""
		switch {
		case s.Mismatch != "":
			status = errorStyle.Render("FAIL")
			detail = s.Mismatch
		case s.Err != nil:
			status = "rejected"
			detail = fmt.Sprintf("%d %v", s.Code, s.Err)
		case s.Receipt != nil && s.Receipt.Trade != nil:
			t := s.Receipt.Trade
			detail = fmt.Sprintf("%s %d for %d (fee %d) price %s", t.Side, t.TargetAmount, t.Total, t.Fee, t.SpotPrice)
		}
		rows = append(rows, []string{fmt.Sprint(s.Index), s.Op, s.Pool, s.Wallet, status, detail})
	}
	b.WriteString(table([]string{"#", "op", "pool", "wallet", "status", "detail"}, rows))
	b.WriteString("\n")

	for _, p := range res.Pools {
		b.WriteString(boxStyle.Render(kv(
			[2]string{"pool", p.Name},
			[2]string{"address", p.Address.String()},
			[2]string{"state", p.State},
			[2]string{"supply", p.Supply},
			[2]string{"reserve", p.Reserve},
			[2]string{"fees", p.Fees},
			[2]string{"vault", p.Vault},
			[2]string{"spot price", p.SpotPrice},
		)))
		b.WriteString("\n")
	}
	return b.String()
}
