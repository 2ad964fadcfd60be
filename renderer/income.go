package renderer

import (
	"bytes"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
	md "github.com/nao1215/markdown"
)

// IncomeMarkdown renders the dividend and interest income summaries. It
// returns the empty string when there is no income to report.
func IncomeMarkdown(dividends []taxcalc.DividendYearSummary, interests []taxcalc.InterestYearSummary) string {
	if len(dividends) == 0 && len(interests) == 0 {
		return ""
	}

	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Income")

	if len(dividends) > 0 {
		doc.H2("Dividends")
		rows := make([][]string, 0, len(dividends))
		for _, d := range dividends {
			rows = append(rows, []string{
				d.Year.String(),
				d.Location,
				string(d.Type),
				d.Total.String(),
			})
		}
		doc.Table(md.TableSet{
			Header: []string{"Tax Year", "Country", "Type", "Total"},
			Rows:   rows,
		})
	}

	if len(interests) > 0 {
		doc.H2("Interest")
		rows := make([][]string, 0, len(interests))
		for _, i := range interests {
			rows = append(rows, []string{i.Year.String(), i.Total.String()})
		}
		doc.Table(md.TableSet{
			Header: []string{"Tax Year", "Total"},
			Rows:   rows,
		})
	}

	return doc.String()
}
