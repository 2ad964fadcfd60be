package taxcalc

import (
	"fmt"
	"sort"
)

// MissingUnderlyingError reports an exercise or assignment with no matching
// underlying trade and no cash settlement on the ledger. The caller can use
// it to request a corrected import.
type MissingUnderlyingError struct {
	Option     string
	Underlying string
	Quantity   Quantity
	Date       Date
}

func (e *MissingUnderlyingError) Error() string {
	return fmt.Sprintf("option %s %s/%s on %s: no underlying trade or cash settlement found for %s contracts",
		e.Option, e.Underlying, e.Date, e.Date, e.Quantity)
}

// OptionPremiumRefund reverses a premium already assessed in an earlier tax
// year when a later assignment rolls that premium into the underlying trade.
// It is a standalone, tax-year-tagged repayment record; the original match is
// never edited.
type OptionPremiumRefund struct {
	Asset       string  `json:"asset"`
	TaxYear     TaxYear `json:"taxYear"`
	Amount      Money   `json:"amount"`
	Explanation string  `json:"explanation"`
}

// optionGroupKey adds the trade reason to the grouping key: an expiry and an
// ordered trade on the same day must stay separate units.
type optionGroupKey struct {
	groupKey
	reason TradeReason
}

// groupOptionUnits bundles option trades into matchable units carrying their
// option payload.
func groupOptionUnits(seq *sequence, trades []OptionTrade) ([]*MatchableUnit, error) {
	groups := make(map[optionGroupKey][]OptionTrade)
	for _, t := range trades {
		k := optionGroupKey{
			groupKey: groupKey{asset: t.Name, date: t.Date, direction: t.Direction},
			reason:   t.Reason,
		}
		groups[k] = append(groups[k], t)
	}
	keys := make([]optionGroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.asset != b.asset {
			return a.asset < b.asset
		}
		if a.date != b.date {
			return a.date.Before(b.date)
		}
		if a.direction != b.direction {
			return a.direction < b.direction
		}
		return a.reason < b.reason
	})
	units := make([]*MatchableUnit, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		plain := make([]Trade, len(members))
		for i, t := range members {
			plain[i] = t.Trade
		}
		u, err := newMatchableUnit(ClassOption, plain...)
		if err != nil {
			return nil, fmt.Errorf("grouping %s option trades: %w", k.asset, err)
		}
		first := members[0]
		u.option = &optionUnitInfo{
			underlying: first.Underlying,
			putCall:    first.PutCall,
			strike:     first.Strike,
			expiry:     first.Expiry,
			multiplier: first.Multiplier,
			reason:     first.Reason,
		}
		u.id = seq.Next()
		units = append(units, u)
	}
	return units, nil
}

// premiumTransfer is the explicit result of the rollover phase for one
// exercise or assignment: the premium carved out of the option and the
// adjustment it makes to the underlying trade.
type premiumTransfer struct {
	amount    Money   // premium moved
	grantYear TaxYear // tax year the premium was first recognised in
}

// optionPhase settles expiries, exercises and assignments of one option
// asset before the statutory passes run. Writer premiums are recognised at
// grant; exercised and assigned units end with zero-tax-effect rollover
// matches and their premium moves onto the underlying trade (or stays
// against a cash settlement). The returned refunds reverse premiums assessed
// in an earlier tax year than the underlying trade.
func (e *matcher) optionPhase(units []*MatchableUnit, underlying map[string][]*MatchableUnit, settlements []CashSettlement) ([]OptionPremiumRefund, error) {
	var refunds []OptionPremiumRefund
	position := Quantity{}      // signed running position, negative when written
	var grants []*MatchableUnit // writer openings with premium still assignable

	for _, u := range units {
		held := position
		switch u.option.reason {
		case ReasonOrder:
			if u.direction == Disposal {
				if held.IsPositive() {
					// holder selling to close keeps the normal passes
					position = position.Sub(u.quantity)
					continue
				}
				// writing: the premium is chargeable when received
				m := &TradeMatch{
					ID:               e.seq.Next(),
					Type:             MatchOptionPremium,
					DisposalQuantity: u.quantity,
					DisposalDate:     u.date,
					DisposalProceeds: u.amount,
				}
				m.AddNote("premium of %s on writing the option, chargeable on receipt", u.amount)
				if err := u.addMatch(m); err != nil {
					return nil, err
				}
				u.assignable = u.quantity
				grants = append(grants, u)
				position = position.Sub(u.quantity)
				continue
			}
			// acquisition
			if held.IsNegative() {
				// buying back a written option: allow the buyback cost
				m := &TradeMatch{
					ID:                  e.seq.Next(),
					Type:                MatchOptionPremium,
					AcquisitionQuantity: u.quantity,
					AcquisitionDate:     u.date,
					DisposalDate:        u.date,
					AllowableCost:       u.amount,
				}
				m.AddNote("buyback of written option for %s", u.amount)
				if err := u.addMatch(m); err != nil {
					return nil, err
				}
				consumeGrants(grants, u.quantity)
			}
			position = position.Add(u.quantity)
		case ReasonExpired:
			if held.IsNegative() {
				// written option lapsed: premium already charged at grant
				m := &TradeMatch{
					ID:                  e.seq.Next(),
					Type:                MatchOptionPremium,
					AcquisitionQuantity: u.quantity,
					AcquisitionDate:     u.date,
					DisposalDate:        u.date,
				}
				m.AddNote("written option expired, premium retained")
				if err := u.addMatch(m); err != nil {
					return nil, err
				}
				consumeGrants(grants, u.quantity)
				position = position.Add(u.quantity)
				continue
			}
			// held option lapsed: the expiry disposal carries zero proceeds
			// and the statutory passes charge the full premium as loss
			position = position.Sub(u.quantity)
		case ReasonExercise:
			if err := e.settleExercise(u, units, underlying, settlements); err != nil {
				return nil, err
			}
			position = position.Sub(u.quantity)
		case ReasonAssigned:
			r, err := e.settleAssignment(u, grants, underlying, settlements)
			if err != nil {
				return nil, err
			}
			refunds = append(refunds, r...)
			position = position.Add(u.quantity)
		}
	}
	return refunds, nil
}

// settleExercise handles a holder exercising: the premium paid on opening is
// carved out with zero-tax-effect rollover matches and added to the
// underlying trade (call: onto acquisition cost; put: off disposal proceeds).
// With no physical underlying the cash settlement substitutes for it.
func (e *matcher) settleExercise(u *MatchableUnit, units []*MatchableUnit, underlying map[string][]*MatchableUnit, settlements []CashSettlement) error {
	target := findUnderlyingUnit(underlying, u)
	if target == nil {
		if cash, ok := e.takeSettlement(settlements, u); ok {
			// cash settled: the settlement stands in for the underlying,
			// gain emerges from the normal passes against the premium
			if err := u.adjustAmount(cash.Amount); err != nil {
				return err
			}
			return nil
		}
		return &MissingUnderlyingError{Option: u.asset, Underlying: u.option.underlying, Quantity: u.quantity, Date: u.date}
	}

	var premium Money
	toMatch := u.quantity
	for _, open := range units {
		if open == u || open.direction == u.direction || open.Completed() || open.date.After(u.date) {
			continue
		}
		q := toMatch.Min(open.Unmatched())
		if q.IsExhausted() {
			continue
		}
		share := open.ApportionedAmount(q)
		m := &TradeMatch{
			ID:                  e.seq.Next(),
			Type:                MatchOptionRollover,
			AcquisitionQuantity: q,
			DisposalQuantity:    q,
			AcquisitionDate:     open.date,
			DisposalDate:        u.date,
			DisposalProceeds:    share,
			AllowableCost:       share,
		}
		m.AddNote("option exercised: premium of %s rolled into %s trade", share, u.option.underlying)
		if err := open.addMatch(m); err != nil {
			return err
		}
		if err := u.addMatch(m); err != nil {
			return err
		}
		premium = premium.Add(share)
		toMatch = toMatch.Sub(q)
		if toMatch.IsExhausted() {
			break
		}
	}

	delta := premium
	if u.option.putCall == Put {
		delta = premium.Neg() // put exercise reduces the disposal proceeds
	}
	if err := target.adjustAmount(delta); err != nil {
		return err
	}
	return nil
}

// settleAssignment handles a writer being assigned: the closing unit is
// zero-tax-effect, the premium recognised at grant moves onto the underlying
// trade (call: onto disposal proceeds; put: off acquisition cost), and if the
// grant fell in an earlier tax year the already-assessed premium is refunded
// there.
func (e *matcher) settleAssignment(u *MatchableUnit, grants []*MatchableUnit, underlying map[string][]*MatchableUnit, settlements []CashSettlement) ([]OptionPremiumRefund, error) {
	target := findUnderlyingUnit(underlying, u)
	if target == nil {
		if cash, ok := e.takeSettlement(settlements, u); ok {
			// cash settled assignment: the payout is an allowable cost
			// against the premium charged at grant
			m := &TradeMatch{
				ID:                  e.seq.Next(),
				Type:                MatchOptionRollover,
				AcquisitionQuantity: u.quantity,
				AcquisitionDate:     u.date,
				DisposalDate:        u.date,
				AllowableCost:       cash.Amount,
			}
			m.AddNote("assigned option settled in cash for %s", cash.Amount)
			if err := u.addMatch(m); err != nil {
				return nil, err
			}
			consumeGrants(grants, u.quantity)
			return nil, nil
		}
		return nil, &MissingUnderlyingError{Option: u.asset, Underlying: u.option.underlying, Quantity: u.quantity, Date: u.date}
	}

	var refunds []OptionPremiumRefund
	var premium Money
	toMatch := u.quantity
	for _, grant := range grants {
		if grant.assignable.IsExhausted() {
			continue
		}
		q := toMatch.Min(grant.assignable)
		share := grant.ApportionedAmount(q)
		premium = premium.Add(share)
		grant.assignable = grant.assignable.Sub(q)
		grantYear := TaxYearOf(grant.date)
		refunds = append(refunds, OptionPremiumRefund{
			Asset:   u.asset,
			TaxYear: grantYear,
			Amount:  share,
			Explanation: fmt.Sprintf("premium of %s assessed in %s rolled into %s trade on %s",
				share, grantYear, u.option.underlying, u.date),
		})
		toMatch = toMatch.Sub(q)
		if toMatch.IsExhausted() {
			break
		}
	}

	m := &TradeMatch{
		ID:                  e.seq.Next(),
		Type:                MatchOptionRollover,
		AcquisitionQuantity: u.quantity,
		AcquisitionDate:     u.date,
		DisposalDate:        u.date,
	}
	m.AddNote("option assigned: premium of %s rolled into %s trade", premium, u.option.underlying)
	if err := u.addMatch(m); err != nil {
		return nil, err
	}

	delta := premium
	if u.option.putCall == Put {
		delta = premium.Neg() // put assignment reduces the acquisition cost
	}
	if err := target.adjustAmount(delta); err != nil {
		return nil, err
	}
	return refunds, nil
}

// findUnderlyingUnit locates the not-yet-matched underlying unit on the
// settlement date with the direction the option outcome produces.
func findUnderlyingUnit(underlying map[string][]*MatchableUnit, u *MatchableUnit) *MatchableUnit {
	wanted := Acquisition // exercised call, assigned put: stock comes in
	holder := u.option.reason == ReasonExercise
	if (holder && u.option.putCall == Put) || (!holder && u.option.putCall == Call) {
		wanted = Disposal // exercised put, assigned call: stock goes out
	}
	for _, t := range underlying[u.option.underlying] {
		if t.date == u.date && t.direction == wanted {
			return t
		}
	}
	return nil
}

// takeSettlement locates a cash settlement for the option on the settlement
// date and consumes it, so two options closing on the same day each need a
// settlement of their own.
func (e *matcher) takeSettlement(settlements []CashSettlement, u *MatchableUnit) (CashSettlement, bool) {
	for _, s := range settlements {
		if e.spent[s.Signature()] {
			continue
		}
		if s.Date == u.date && (s.Name == u.asset || s.Name == u.option.underlying) {
			e.spent[s.Signature()] = true
			return s, true
		}
	}
	return CashSettlement{}, false
}

// consumeGrants reduces the assignable premium balance of the oldest open
// grants first.
func consumeGrants(grants []*MatchableUnit, quantity Quantity) {
	for _, g := range grants {
		if quantity.IsExhausted() {
			return
		}
		q := quantity.Min(g.assignable)
		g.assignable = g.assignable.Sub(q)
		quantity = quantity.Sub(q)
	}
}
