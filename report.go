package taxcalc

import "sort"

// TaxYearSummary aggregates one tax year's disposals. Amounts are rounded to
// whole currency units here and only here: proceeds and gains round down,
// costs and losses round up, in the taxpayer's favour.
type TaxYearSummary struct {
	Year            TaxYear `json:"year"`
	Disposals       int     `json:"disposals"`
	Proceeds        Money   `json:"proceeds"`
	AllowableCost   Money   `json:"allowableCost"`
	Gains           Money   `json:"gains"`
	Losses          Money   `json:"losses"`
	PremiumRefunds  Money   `json:"premiumRefunds"`
	NonTaxableGains Money   `json:"nonTaxableGains"`
}

// NetGain returns gains net of losses and refunded option premiums.
func (s TaxYearSummary) NetGain() Money {
	return s.Gains.Sub(s.Losses).Sub(s.PremiumRefunds)
}

// summarizeYears groups completed disposal units by UK tax year. Disposals
// made while non-resident are kept out of the taxable totals and reported
// separately.
func summarizeYears(units []*MatchableUnit, refunds []OptionPremiumRefund) []TaxYearSummary {
	byYear := make(map[TaxYear]*TaxYearSummary)
	year := func(y TaxYear) *TaxYearSummary {
		s, ok := byYear[y]
		if !ok {
			s = &TaxYearSummary{Year: y}
			byYear[y] = s
		}
		return s
	}

	for _, u := range units {
		if u.direction != Disposal || len(u.matches) == 0 {
			continue
		}
		s := year(TaxYearOf(u.date))
		gain := u.Gain()
		if u.residency == NonResident {
			s.NonTaxableGains = s.NonTaxableGains.Add(gain)
			continue
		}
		s.Disposals++
		s.Proceeds = s.Proceeds.Add(u.TotalProceeds())
		s.AllowableCost = s.AllowableCost.Add(u.TotalAllowableCost())
		if gain.IsNegative() {
			s.Losses = s.Losses.Add(gain.Neg())
		} else {
			s.Gains = s.Gains.Add(gain)
		}
	}
	for _, r := range refunds {
		s := year(r.TaxYear)
		s.PremiumRefunds = s.PremiumRefunds.Add(r.Amount)
	}

	years := make([]TaxYearSummary, 0, len(byYear))
	for _, s := range byYear {
		s.Proceeds = s.Proceeds.Floor()
		s.AllowableCost = s.AllowableCost.Ceiling()
		s.Gains = s.Gains.Floor()
		s.Losses = s.Losses.Ceiling()
		years = append(years, *s)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })
	return years
}

// DividendYearSummary is the straight aggregation of dividend income for one
// tax year, split by paying company location and dividend type.
type DividendYearSummary struct {
	Year     TaxYear      `json:"year"`
	Location string       `json:"location"`
	Type     DividendType `json:"type"`
	Total    Money        `json:"total"`
}

func summarizeDividends(dividends []Dividend) []DividendYearSummary {
	type key struct {
		year     TaxYear
		location string
		typ      DividendType
	}
	totals := make(map[key]Money)
	for _, d := range dividends {
		k := key{year: TaxYearOf(d.Date), location: d.CompanyLocation, typ: d.Type}
		totals[k] = totals[k].Add(d.Proceed)
	}
	out := make([]DividendYearSummary, 0, len(totals))
	for k, total := range totals {
		out = append(out, DividendYearSummary{Year: k.year, Location: k.location, Type: k.typ, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// InterestYearSummary is the straight aggregation of interest income for one
// tax year, honouring each event's roll-forward flag.
type InterestYearSummary struct {
	Year  TaxYear `json:"year"`
	Total Money   `json:"total"`
}

func summarizeInterests(interests []InterestIncome) []InterestYearSummary {
	totals := make(map[TaxYear]Money)
	for _, i := range interests {
		y := i.AssessedTaxYear()
		totals[y] = totals[y].Add(i.Amount)
	}
	out := make([]InterestYearSummary, 0, len(totals))
	for y, total := range totals {
		out = append(out, InterestYearSummary{Year: y, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
