package taxcalc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetClass partitions trades into independently matched categories.
type AssetClass int

const (
	ClassEquity AssetClass = iota // shares, ETFs, FX balances
	ClassOption
	ClassFuture
)

func (c AssetClass) String() string {
	switch c {
	case ClassEquity:
		return "equity"
	case ClassOption:
		return "option"
	case ClassFuture:
		return "future"
	default:
		return "unknown"
	}
}

// Contract violations raised by unit construction and consumption.
var (
	ErrMixedDirections = fmt.Errorf("cannot group trades of mixed directions into one unit")
	ErrOverMatched     = fmt.Errorf("match consumes more than the unit's unmatched quantity")
)

// optionUnitInfo carries the option-specific state of a unit.
type optionUnitInfo struct {
	underlying string
	putCall    PutCall
	strike     Money
	expiry     Date
	multiplier Quantity
	reason     TradeReason
}

// futureUnitInfo carries the future-specific state of a unit.
type futureUnitInfo struct {
	contractValue Money
	fxRate        decimal.Decimal
}

// MatchableUnit groups one or more same-asset, same-day, same-direction
// trades into the unit of account the matching rules operate on. Its total
// cost or proceeds is fixed at construction and apportioned pro-rata as
// matches consume the quantity.
type MatchableUnit struct {
	id        uint64
	class     AssetClass
	asset     string
	date      Date
	direction Direction
	quantity  Quantity
	unmatched Quantity
	amount    Money // total allowable cost (acquisition) or net proceeds (disposal)
	trades    []Trade
	matches   []*TradeMatch
	residency ResidencyStatus

	// assignable tracks how much premium of a written option grant is still
	// available for a later assignment to roll over.
	assignable Quantity

	option *optionUnitInfo
	future *futureUnitInfo
}

// newMatchableUnit builds a unit from same-day, same-direction trades.
func newMatchableUnit(class AssetClass, trades ...Trade) (*MatchableUnit, error) {
	if len(trades) == 0 {
		return nil, fmt.Errorf("cannot build a matchable unit out of no trades")
	}
	first := trades[0]
	u := &MatchableUnit{
		class:     class,
		asset:     first.Name,
		date:      first.Date,
		direction: first.Direction,
	}
	for _, t := range trades {
		if t.Direction != first.Direction {
			return nil, fmt.Errorf("%w: %s on %s", ErrMixedDirections, t.Name, t.Date)
		}
		if t.Name != first.Name || t.Date != first.Date {
			return nil, fmt.Errorf("unit trades must share asset and date: got %s/%s and %s/%s",
				first.Name, first.Date, t.Name, t.Date)
		}
		u.quantity = u.quantity.Add(t.Quantity)
		u.amount = u.amount.Add(t.NetAmount())
		u.trades = append(u.trades, t)
	}
	u.unmatched = u.quantity
	return u, nil
}

func (u *MatchableUnit) ID() uint64           { return u.id }
func (u *MatchableUnit) Class() AssetClass    { return u.class }
func (u *MatchableUnit) Asset() string        { return u.asset }
func (u *MatchableUnit) When() Date           { return u.date }
func (u *MatchableUnit) Direction() Direction { return u.direction }
func (u *MatchableUnit) Quantity() Quantity   { return u.quantity }
func (u *MatchableUnit) Amount() Money        { return u.amount }
func (u *MatchableUnit) Trades() []Trade      { return u.trades }

// Unmatched returns the quantity not yet consumed by any match.
func (u *MatchableUnit) Unmatched() Quantity { return u.unmatched }

// Completed reports whether the unit is fully matched, within the rounding
// epsilon.
func (u *MatchableUnit) Completed() bool { return u.unmatched.IsExhausted() }

// Matches returns the unit's match history in creation order.
func (u *MatchableUnit) Matches() []*TradeMatch { return u.matches }

// Residency returns the taxpayer's residency status at the trade date.
func (u *MatchableUnit) Residency() ResidencyStatus { return u.residency }

// ApportionedAmount returns the share of the unit's total cost or proceeds
// attributable to the given quantity.
func (u *MatchableUnit) ApportionedAmount(quantity Quantity) Money {
	if u.quantity.IsZero() {
		return Money{}
	}
	return u.amount.Mul(quantity).Div(u.quantity)
}

// consume takes quantity out of the unit's unmatched balance. Consuming more
// than remains (beyond the rounding epsilon) is an invariant violation.
func (u *MatchableUnit) consume(quantity Quantity) error {
	rest := u.unmatched.Sub(quantity)
	if rest.IsNegative() {
		if !rest.IsExhausted() {
			return fmt.Errorf("%w: %s of %s unmatched on %s %s",
				ErrOverMatched, quantity, u.unmatched, u.asset, u.date)
		}
		rest = Quantity{}
	}
	if rest.IsExhausted() {
		rest = Quantity{}
	}
	u.unmatched = rest
	return nil
}

// addMatch consumes the unit's side of the match and appends it to the
// unit's history.
func (u *MatchableUnit) addMatch(m *TradeMatch) error {
	q := m.DisposalQuantity
	if u.direction == Acquisition {
		q = m.AcquisitionQuantity
	}
	if err := u.consume(q); err != nil {
		return err
	}
	u.matches = append(u.matches, m)
	return nil
}

// adjustAmount shifts the unit's total cost or proceeds, e.g. when an
// exercised option rolls its premium into the underlying trade. Only legal
// before any match has consumed the unit.
func (u *MatchableUnit) adjustAmount(delta Money) error {
	if len(u.matches) > 0 {
		return fmt.Errorf("cannot adjust amount of %s unit on %s after matching started", u.asset, u.date)
	}
	u.amount = u.amount.Add(delta)
	return nil
}

// TotalProceeds sums the disposal proceeds attributed to the unit's matches.
func (u *MatchableUnit) TotalProceeds() Money {
	var total Money
	for _, m := range u.matches {
		total = total.Add(m.DisposalProceeds)
	}
	return total
}

// TotalAllowableCost sums the allowable cost attributed to the unit's matches.
func (u *MatchableUnit) TotalAllowableCost() Money {
	var total Money
	for _, m := range u.matches {
		total = total.Add(m.AllowableCost)
	}
	return total
}

// Gain returns proceeds minus allowable cost over the unit's match history.
// Only meaningful for disposal units.
func (u *MatchableUnit) Gain() Money {
	return u.TotalProceeds().Sub(u.TotalAllowableCost())
}

func (u *MatchableUnit) String() string {
	return fmt.Sprintf("%s %s of %s %s on %s", u.class, u.direction, u.quantity, u.asset, u.date)
}
