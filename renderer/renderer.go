// Package renderer formats calculation results as markdown reports: the
// yearly capital gains summary, the per-disposal match narrative, the
// section 104 pool audit trail and the income summaries.
package renderer

import (
	"strings"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
)

// ReportMarkdown renders the full report for one calculation run: every
// section, in reading order.
func ReportMarkdown(res *taxcalc.CalculationResult) string {
	var b strings.Builder
	b.WriteString(GainsMarkdown(res.Years))
	b.WriteString("\n")
	b.WriteString(DisposalsMarkdown(res.Units))
	b.WriteString("\n")
	b.WriteString(PoolsMarkdown(res.Pools))
	if s := IncomeMarkdown(res.Dividends, res.Interests); s != "" {
		b.WriteString("\n")
		b.WriteString(s)
	}
	return b.String()
}
