// Package output renders usage snapshots and stats reports for the
// terminal.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/tokdash/tokdash-go/internal/types"
)

type Formatter struct {
	noColor bool
}

func NewFormatter(noColor bool) *Formatter {
	return &Formatter{noColor: noColor}
}

var titleStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 2).
	Foreground(lipgloss.Color("14"))

func (f *Formatter) title(text string) string {
	if f.noColor {
		return "\n" + text + "\n\n"
	}
	return "\n" + titleStyle.Render(text) + "\n\n"
}

// FormatJSON renders any report as indented JSON.
func (f *Formatter) FormatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func newTable(buf *bytes.Buffer) *tablewriter.Table {
	return tablewriter.NewTable(buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignRight},
			},
		}),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
}

// FormatUsage renders the combined usage snapshot: one table of per-tool
// totals and one of the top combined models.
func (f *Formatter) FormatUsage(snapshot types.UsageSnapshot) string {
	var output strings.Builder
	output.WriteString(f.title(fmt.Sprintf("Token Usage - %s", snapshot.Period)))

	if snapshot.TotalTokens == 0 {
		output.WriteString("No usage recorded for this period.\n")
		return output.String()
	}

	var buf bytes.Buffer
	table := newTable(&buf)
	table.Header([]string{"Tool", "Tokens", "Cost (USD)"})

	tools := make([]string, 0, len(snapshot.ByTool))
	for name := range snapshot.ByTool {
		tools = append(tools, name)
	}
	sort.Slice(tools, func(i, j int) bool {
		return snapshot.ByTool[tools[i]].Cost > snapshot.ByTool[tools[j]].Cost
	})
	for _, name := range tools {
		totals := snapshot.ByTool[name]
		table.Append([]string{name, formatLargeNumber(totals.Tokens), fmt.Sprintf("$%.2f", totals.Cost)})
	}
	table.Footer([]string{"Total", formatLargeNumber(snapshot.TotalTokens), fmt.Sprintf("$%.2f", snapshot.TotalCost)})
	table.Render()
	output.Write(buf.Bytes())

	if len(snapshot.TopModels) > 0 {
		output.WriteString("\nTop models\n")
		buf.Reset()
		table = newTable(&buf)
		table.Header([]string{"Model", "Input", "Output", "Cache", "Total", "Cost (USD)", "Msgs"})
		for _, m := range snapshot.TopModels {
			table.Append([]string{
				m.Name,
				formatLargeNumber(m.TokensIn),
				formatLargeNumber(m.TokensOut),
				formatLargeNumber(m.TokensCache),
				formatLargeNumber(m.Tokens),
				fmt.Sprintf("$%.2f", m.Cost),
				formatLargeNumber(m.Messages),
			})
		}
		table.Render()
		output.Write(buf.Bytes())
	}

	return output.String()
}

// FormatStats renders the contribution calendar summary plus the most
// recent active days.
func (f *Formatter) FormatStats(report types.StatsReport) string {
	var output strings.Builder
	output.WriteString(f.title("Usage Stats"))

	output.WriteString(fmt.Sprintf("Total tokens:   %s\n", formatLargeNumber(report.Summary.TotalTokens)))
	output.WriteString(fmt.Sprintf("Total cost:     $%.2f\n", report.Summary.TotalCost))
	output.WriteString(fmt.Sprintf("Sessions:       %s\n", formatLargeNumber(report.Stats.Sessions)))
	output.WriteString(fmt.Sprintf("Active days:    %d of %d\n", report.Summary.ActiveDays, report.Summary.TotalDays))
	output.WriteString(fmt.Sprintf("Favorite model: %s\n", report.Stats.FavoriteModel))

	days := report.Contributions
	if len(days) == 0 {
		return output.String()
	}
	const recentDays = 14
	if len(days) > recentDays {
		days = days[len(days)-recentDays:]
	}

	output.WriteString("\nRecent days\n")
	var buf bytes.Buffer
	table := newTable(&buf)
	table.Header([]string{"Date", "Tokens", "Cost (USD)", "Msgs"})
	for _, day := range days {
		table.Append([]string{
			day.Date,
			formatLargeNumber(day.Totals.Tokens),
			fmt.Sprintf("$%.4f", day.Totals.Cost),
			formatLargeNumber(day.Totals.Messages),
		})
	}
	table.Render()
	output.Write(buf.Bytes())

	return output.String()
}

// formatLargeNumber renders a count with comma separators, with "-" for
// zero so empty cells read as empty.
func formatLargeNumber(n int) string {
	if n == 0 {
		return "-"
	}
	return formatNumberWithCommas(n)
}

func formatNumberWithCommas(n int) string {
	if n < 0 {
		return "-" + formatNumberWithCommas(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []rune
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, r)
	}
	return string(result)
}
