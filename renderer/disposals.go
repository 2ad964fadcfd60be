package renderer

import (
	"fmt"
	"strings"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
)

// DisposalsMarkdown renders the match narrative of every disposal: which
// statutory rule matched it, against what, for how much, with the pool
// snapshot and any corporate-action notes carried on the match.
func DisposalsMarkdown(units []*taxcalc.MatchableUnit) string {
	var b strings.Builder

	fmt.Fprint(&b, "# Disposals\n\n")

	count := 0
	for _, u := range units {
		if u.Direction() != taxcalc.Disposal || len(u.Matches()) == 0 {
			continue
		}
		count++

		fmt.Fprintf(&b, "## %s: %s %s on %s\n\n", u.Asset(), u.Quantity(), u.Direction(), u.When())
		fmt.Fprintf(&b, "Proceeds %s, allowable cost %s, gain %s.\n\n",
			u.TotalProceeds(), u.TotalAllowableCost(), u.Gain().SignedString())

		for _, m := range u.Matches() {
			fmt.Fprintf(&b, "- Match #%d (%s): %s matched against the acquisition of %s on %s for proceeds %s and cost %s, gain %s.\n",
				m.ID, m.Type, m.DisposalQuantity, m.AcquisitionQuantity, m.AcquisitionDate,
				m.DisposalProceeds, m.AllowableCost, m.Gain().SignedString())
			if m.Section104Snapshot != "" {
				fmt.Fprintf(&b, "  - Pool after match: %s\n", m.Section104Snapshot)
			}
			for _, note := range m.Notes {
				fmt.Fprintf(&b, "  - %s\n", note)
			}
		}
		fmt.Fprint(&b, "\n")

		if !u.Completed() {
			fmt.Fprintf(&b, "Unmatched quantity remaining: %s.\n\n", u.Unmatched())
		}
	}

	if count == 0 {
		fmt.Fprint(&b, "No disposals.\n")
	}
	return b.String()
}
