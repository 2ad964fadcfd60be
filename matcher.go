package taxcalc

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// matcher applies the statutory matching rules to one run's units. It owns
// nothing itself: pools and the identifier sequence belong to the run.
type matcher struct {
	pools *PoolRegistry
	seq   *sequence
	log   *logrus.Logger
	spent map[string]bool // cash settlements already claimed, by signature
}

// pairPasses runs the same-day and bed and breakfast passes over one asset's
// chronological units. The Section 104 pass runs separately, over all assets
// at once, because corporate actions can couple two assets' pools.
func (e *matcher) pairPasses(asset string, units []*MatchableUnit, actions []CorporateAction) error {
	if err := e.sameDayPass(asset, units); err != nil {
		return fmt.Errorf("same day matching %s: %w", asset, err)
	}
	if err := e.bedAndBreakfastPass(units, actions); err != nil {
		return fmt.Errorf("bed and breakfast matching %s: %w", asset, err)
	}
	return nil
}

// sameDayPass matches the acquisition and the disposal of an asset falling on
// the identical calendar date. Grouping has already merged same-direction
// trades, so a day holds at most one unit per side; more is a contract
// violation from upstream.
func (e *matcher) sameDayPass(asset string, units []*MatchableUnit) error {
	byDate := make(map[Date][]*MatchableUnit)
	for _, u := range units {
		byDate[u.date] = append(byDate[u.date], u)
	}
	for _, u := range units {
		if u.direction != Disposal {
			continue
		}
		var acq, disp *MatchableUnit
		for _, v := range byDate[u.date] {
			switch v.direction {
			case Acquisition:
				if acq != nil {
					return fmt.Errorf("more than one acquisition unit of %s on %s", asset, u.date)
				}
				acq = v
			case Disposal:
				if disp != nil {
					return fmt.Errorf("more than one disposal unit of %s on %s", asset, u.date)
				}
				disp = v
			}
		}
		if acq == nil || disp == nil {
			continue
		}
		// an action dated that day applies at the start of the day, before
		// both trades, so nothing sits between them
		if err := e.sealMatch(MatchSameDay, acq, disp, nil); err != nil {
			return err
		}
	}
	return nil
}

// bedAndBreakfastPass matches each disposal against acquisitions strictly
// after it and within 30 calendar days. Disposals are visited in ascending
// date order so an earlier disposal consumes a contested acquisition first
// (TCGA92/S106A(5)(b)).
func (e *matcher) bedAndBreakfastPass(units []*MatchableUnit, actions []CorporateAction) error {
	for _, disp := range units {
		if disp.direction != Disposal || disp.Completed() {
			continue
		}
		deadline := disp.date.Add(30)
		for _, acq := range units {
			if acq.direction != Acquisition || acq.Completed() {
				continue
			}
			if !acq.date.After(disp.date) || acq.date.After(deadline) {
				continue
			}
			if err := e.sealMatch(MatchBedAndBreakfast, acq, disp, actionsInWindow(actions, disp.date, acq.date)); err != nil {
				return err
			}
			if disp.Completed() {
				break
			}
		}
	}
	return nil
}

// section104Pass processes the chronological residue of every asset against
// the Section 104 pools and per-asset short-cover queues. The pass runs over
// all assets in one date-ordered sweep so a pool-adjusting action fires before
// any later trade, whichever asset the trade is in. A takeover or spinoff can
// seed one asset's pool from another's, which no per-asset ordering honours.
func (e *matcher) section104Pass(units []*MatchableUnit, actions []CorporateAction) error {
	shortQueues := make(map[string][]*MatchableUnit) // unmatched disposals per asset, earliest first

	next := 0 // next action not yet applied
	applyActionsThrough := func(day Date) error {
		for next < len(actions) && !actions[next].When().After(day) {
			if pa, ok := actions[next].(PoolAdjuster); ok {
				if err := pa.AdjustPool(e.pools); err != nil {
					return err
				}
				e.log.WithFields(logrus.Fields{"asset": actions[next].Asset(), "date": actions[next].When()}).
					Debugf("applied %s to pools", actions[next].What())
			}
			next++
		}
		return nil
	}

	for _, u := range units {
		// an action dated the same day as a trade applies before the trade
		if err := applyActionsThrough(u.date); err != nil {
			return err
		}
		if u.Completed() {
			continue
		}
		switch u.direction {
		case Acquisition:
			// cover outstanding short sales first, earliest disposal first
			// (TCGA92/S105(2))
			for len(shortQueues[u.asset]) > 0 && !u.Completed() {
				disp := shortQueues[u.asset][0]
				if err := e.sealMatch(MatchShortCover, u, disp, nil); err != nil {
					return err
				}
				if disp.Completed() {
					shortQueues[u.asset] = shortQueues[u.asset][1:]
				} else {
					break // the acquisition ran out first
				}
			}
			if u.Completed() {
				continue
			}
			rest := u.Unmatched()
			cost := u.ApportionedAmount(rest)
			pool := e.pools.Pool(u.asset)
			if u.future != nil {
				cv := u.future.contractValue.Mul(rest).Div(u.quantity)
				pool.AddWithContractValue(u.date, rest, cost, cv,
					fmt.Sprintf("acquisition of %s on %s", rest, u.date))
			} else {
				pool.Add(u.date, rest, cost, fmt.Sprintf("acquisition of %s on %s", rest, u.date))
			}
			if err := u.consume(rest); err != nil {
				return err
			}
		case Disposal:
			if err := e.matchAgainstPool(u); err != nil {
				return err
			}
			if !u.Completed() {
				shortQueues[u.asset] = append(shortQueues[u.asset], u)
			}
		}
	}
	// trailing actions after the last trade still mutate the pool
	return applyActionsThrough(NewDate(9999, 12, 31))
}

// matchAgainstPool matches a disposal's unmatched quantity against the asset's
// Section 104 pool at the pooled average cost.
func (e *matcher) matchAgainstPool(disp *MatchableUnit) error {
	if !e.pools.Has(disp.asset) {
		return nil
	}
	pool := e.pools.Pool(disp.asset)
	q := disp.Unmatched().Min(pool.Quantity())
	if q.IsExhausted() || q.IsNegative() {
		return nil
	}
	snapshot := pool.Snapshot()
	var contractValue Money
	if disp.future != nil {
		contractValue = pool.RemoveContractValue(q)
	}
	cost, err := pool.Remove(disp.date, q, fmt.Sprintf("disposal of %s on %s", q, disp.date))
	if err != nil {
		return err
	}
	m := &TradeMatch{
		ID:                  e.seq.Next(),
		Type:                MatchSection104,
		AcquisitionQuantity: q,
		DisposalQuantity:    q,
		DisposalDate:        disp.date,
		DisposalProceeds:    disp.ApportionedAmount(q),
		AllowableCost:       cost,
		Section104Snapshot:  snapshot,
	}
	if disp.future != nil {
		cvDisposal := disp.future.contractValue.Mul(q).Div(disp.quantity)
		applyContractGain(m, cvDisposal, contractValue, disp)
	}
	if err := disp.addMatch(m); err != nil {
		return err
	}
	e.logMatch(m, disp.asset)
	return nil
}

// sealMatch creates one match between an acquisition and a disposal unit,
// letting corporate actions dated between the two trades rescale it first.
// Quantities are clamped to both sides' unmatched balance before values are
// apportioned, so the match never over-consumes either unit.
func (e *matcher) sealMatch(typ MatchType, acq, disp *MatchableUnit, between []CorporateAction) error {
	q := acq.Unmatched().Min(disp.Unmatched())
	if q.IsExhausted() || q.IsNegative() {
		return nil
	}
	m := &TradeMatch{
		ID:                  e.seq.Next(),
		Type:                typ,
		AcquisitionQuantity: q,
		DisposalQuantity:    q,
		AcquisitionDate:     acq.date,
		DisposalDate:        disp.date,
	}
	earlier, later := acq, disp
	if disp.date.Before(acq.date) {
		earlier, later = disp, acq
	}
	for _, a := range between {
		if adj, ok := a.(MatchAdjuster); ok {
			adj.AdjustMatch(m, earlier, later)
		}
	}
	// clamp both sides, preserving the adjusted ratio between them
	if m.AcquisitionQuantity.GreaterThan(acq.Unmatched()) {
		scale := acq.Unmatched().Div(m.AcquisitionQuantity)
		m.AcquisitionQuantity = acq.Unmatched()
		m.DisposalQuantity = m.DisposalQuantity.Mul(scale)
	}
	if m.DisposalQuantity.GreaterThan(disp.Unmatched()) {
		scale := disp.Unmatched().Div(m.DisposalQuantity)
		m.DisposalQuantity = disp.Unmatched()
		m.AcquisitionQuantity = m.AcquisitionQuantity.Mul(scale)
	}
	m.DisposalProceeds = disp.ApportionedAmount(m.DisposalQuantity)
	m.AllowableCost = acq.ApportionedAmount(m.AcquisitionQuantity)
	if acq.future != nil && disp.future != nil {
		cvAcq := acq.future.contractValue.Mul(m.AcquisitionQuantity).Div(acq.quantity)
		cvDisp := disp.future.contractValue.Mul(m.DisposalQuantity).Div(disp.quantity)
		applyContractGain(m, cvDisp, cvAcq, disp)
	}
	if err := acq.addMatch(m); err != nil {
		return err
	}
	if err := disp.addMatch(m); err != nil {
		return err
	}
	e.logMatch(m, disp.asset)
	return nil
}

// applyContractGain folds a future's contract-value gain into the match: the
// notional difference between closing and opening, converted at the closing
// trade's FX rate, adds to proceeds when positive and to allowable cost when
// negative.
func applyContractGain(m *TradeMatch, disposalCV, acquisitionCV Money, disp *MatchableUnit) {
	gain := disposalCV.Sub(acquisitionCV).MulDecimal(disp.future.fxRate)
	converted := GBP(gain.Amount())
	if converted.IsNegative() {
		m.AllowableCost = m.AllowableCost.Add(converted.Neg())
	} else {
		m.DisposalProceeds = m.DisposalProceeds.Add(converted)
	}
	m.AddNote("contract value moved %s to %s, gain of %s at closing rate %s",
		acquisitionCV, disposalCV, converted.SignedString(), disp.future.fxRate)
}

func (e *matcher) logMatch(m *TradeMatch, asset string) {
	e.log.WithFields(logrus.Fields{
		"asset":    asset,
		"type":     m.Type,
		"quantity": m.DisposalQuantity.String(),
		"proceeds": m.DisposalProceeds.String(),
		"cost":     m.AllowableCost.String(),
	}).Debug("sealed match")
}

// actionsInWindow returns the actions dated after `after` and up to and
// including `through`, preserving chronological order.
func actionsInWindow(actions []CorporateAction, after, through Date) []CorporateAction {
	var out []CorporateAction
	for _, a := range actions {
		if a.When().After(after) && !a.When().After(through) {
			out = append(out, a)
		}
	}
	return out
}
