package renderer

import (
	"bytes"
	"fmt"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
	md "github.com/nao1215/markdown"
)

// PoolsMarkdown renders the end state of every section 104 pool and, for each
// pool that saw any movement, its full audit trail.
func PoolsMarkdown(pools *taxcalc.PoolRegistry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Section 104 Pools")

	names := pools.Names()
	if len(names) == 0 {
		doc.PlainText("No pooled holdings.")
		return doc.String()
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		p := pools.Pool(name)
		rows = append(rows, []string{
			name,
			p.Quantity().String(),
			p.Cost().String(),
			p.AverageCost().String(),
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Asset", "Quantity", "Pooled Cost", "Average Cost"},
		Rows:   rows,
	})

	for _, name := range names {
		p := pools.Pool(name)
		history := p.History()
		if len(history) == 0 {
			continue
		}
		doc.H2(fmt.Sprintf("Pool history: %s", name))
		hrows := make([][]string, 0, len(history))
		for _, e := range history {
			hrows = append(hrows, []string{
				e.Date.String(),
				fmt.Sprintf("%s → %s", e.OldQuantity, e.NewQuantity),
				fmt.Sprintf("%s → %s", e.OldCost, e.NewCost),
				e.Explanation,
			})
		}
		doc.Table(md.TableSet{
			Header: []string{"Date", "Quantity", "Cost", "Movement"},
			Rows:   hrows,
		})
	}

	return doc.String()
}
