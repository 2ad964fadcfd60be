package renderer

import (
	"bytes"
	"fmt"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
	md "github.com/nao1215/markdown"
)

// GainsMarkdown renders the yearly capital gains summary as a markdown table,
// one row per UK tax year.
func GainsMarkdown(years []taxcalc.TaxYearSummary) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Capital Gains Summary")

	if len(years) == 0 {
		doc.PlainText("No disposals.")
		return doc.String()
	}

	rows := make([][]string, 0, len(years))
	for _, y := range years {
		rows = append(rows, []string{
			y.Year.String(),
			fmt.Sprintf("%d", y.Disposals),
			y.Proceeds.String(),
			y.AllowableCost.String(),
			y.Gains.String(),
			y.Losses.String(),
			y.PremiumRefunds.String(),
			y.NetGain().SignedString(),
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Tax Year", "Disposals", "Proceeds", "Allowable Cost", "Gains", "Losses", "Premium Refunds", "Net Gain"},
		Rows:   rows,
	})

	for _, y := range years {
		if !y.NonTaxableGains.IsZero() {
			doc.PlainText(fmt.Sprintf("Gains of %s in %s were made while non-resident and are excluded from the totals.",
				y.NonTaxableGains.SignedString(), y.Year))
		}
	}

	return doc.String()
}
