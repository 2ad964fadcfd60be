package taxcalc

import (
	"fmt"
	"sort"
)

// positionTag classifies a future trade by its effect on the running
// position.
type positionTag int

const (
	openLong positionTag = iota
	closeLong
	openShort
	closeShort
)

func (t positionTag) String() string {
	switch t {
	case openLong:
		return "open long"
	case closeLong:
		return "close long"
	case openShort:
		return "open short"
	case closeShort:
		return "close short"
	default:
		return "unknown"
	}
}

// opens reports whether the tag opens a position.
func (t positionTag) opens() bool { return t == openLong || t == openShort }

// short reports whether the tag belongs to the short side.
func (t positionTag) short() bool { return t == openShort || t == closeShort }

// futurePoolName derives the Section 104 pool name for one side of a future.
// Long and short positions pool separately: shorting a future is itself an
// acquisition of the obligation, so no short-sale rule is needed.
func futurePoolName(asset string, short bool) string {
	if short {
		return asset + " (short)"
	}
	return asset + " (long)"
}

// taggedFutureTrade is a future trade slice attributed to one side of the
// position.
type taggedFutureTrade struct {
	trade FutureContractTrade
	tag   positionTag
}

// scaleFutureTrade apportions a future trade's quantity, consideration,
// expenses and contract value to a partial fill.
func scaleFutureTrade(t FutureContractTrade, quantity Quantity) FutureContractTrade {
	if quantity.Equal(t.Quantity) {
		return t
	}
	ratio := quantity.Div(t.Quantity)
	out := t
	out.Quantity = quantity
	out.Gross = t.Gross.Mul(ratio)
	out.ContractValue = t.ContractValue.Mul(ratio)
	out.Expenses = make([]Expense, len(t.Expenses))
	for i, e := range t.Expenses {
		out.Expenses[i] = Expense{Description: e.Description, Amount: e.Amount.Mul(ratio)}
	}
	return out
}

// tagFutureTrades classifies each trade of one asset by the running position,
// splitting a trade across two tags when it both closes an existing position
// and opens the reverse. Trades must be sorted by date on entry.
func tagFutureTrades(trades []FutureContractTrade) []taggedFutureTrade {
	var out []taggedFutureTrade
	position := Quantity{} // signed, negative when short

	for _, t := range trades {
		signed := t.Quantity
		if t.Direction == Disposal {
			signed = signed.Neg()
		}
		// a fill against the standing position closes first
		if position.IsPositive() && t.Direction == Disposal {
			closing := t.Quantity.Min(position)
			out = append(out, taggedFutureTrade{trade: scaleFutureTrade(t, closing), tag: closeLong})
			if rest := t.Quantity.Sub(closing); rest.IsPositive() && !rest.IsExhausted() {
				out = append(out, taggedFutureTrade{trade: scaleFutureTrade(t, rest), tag: openShort})
			}
		} else if position.IsNegative() && t.Direction == Acquisition {
			closing := t.Quantity.Min(position.Neg())
			out = append(out, taggedFutureTrade{trade: scaleFutureTrade(t, closing), tag: closeShort})
			if rest := t.Quantity.Sub(closing); rest.IsPositive() && !rest.IsExhausted() {
				out = append(out, taggedFutureTrade{trade: scaleFutureTrade(t, rest), tag: openLong})
			}
		} else if t.Direction == Acquisition {
			out = append(out, taggedFutureTrade{trade: t, tag: openLong})
		} else {
			out = append(out, taggedFutureTrade{trade: t, tag: openShort})
		}
		position = position.Add(signed)
	}
	return out
}

// groupFutureUnits tags one asset's future trades and bundles them into
// matchable units against the long or short pool. Opening a future costs
// nothing beyond expenses; the consideration lives in the contract value,
// whose movement is settled at match time.
func groupFutureUnits(seq *sequence, trades []FutureContractTrade) ([]*MatchableUnit, error) {
	perAsset := make(map[string][]FutureContractTrade)
	for _, t := range trades {
		perAsset[t.Name] = append(perAsset[t.Name], t)
	}
	assets := make([]string, 0, len(perAsset))
	for name := range perAsset {
		assets = append(assets, name)
	}
	sort.Strings(assets)

	type futureKey struct {
		groupKey
		tag positionTag
	}
	var units []*MatchableUnit
	for _, name := range assets {
		list := perAsset[name]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })

		groups := make(map[futureKey][]taggedFutureTrade)
		var order []futureKey
		for _, tagged := range tagFutureTrades(list) {
			direction := Disposal
			if tagged.tag.opens() {
				direction = Acquisition
			}
			k := futureKey{
				groupKey: groupKey{
					asset:     futurePoolName(name, tagged.tag.short()),
					date:      tagged.trade.Date,
					direction: direction,
				},
				tag: tagged.tag,
			}
			if _, seen := groups[k]; !seen {
				order = append(order, k)
			}
			groups[k] = append(groups[k], tagged)
		}

		for _, k := range order {
			members := groups[k]
			var contractValue Money
			plain := make([]Trade, len(members))
			for i, m := range members {
				t := m.trade.Trade
				t.Name = k.asset
				t.Direction = k.direction
				t.Gross = M(0, m.trade.Gross.Currency()) // no consideration of its own
				plain[i] = t
				cv := m.trade.ContractValue
				if m.tag.short() {
					cv = cv.Neg()
				}
				contractValue = contractValue.Add(cv)
			}
			u, err := newMatchableUnit(ClassFuture, plain...)
			if err != nil {
				return nil, fmt.Errorf("grouping %s future trades: %w", name, err)
			}
			u.future = &futureUnitInfo{
				contractValue: contractValue,
				fxRate:        members[len(members)-1].trade.FxRate,
			}
			u.id = seq.Next()
			units = append(units, u)
		}
	}
	return units, nil
}
