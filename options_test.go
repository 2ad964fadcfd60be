package taxcalc

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func call(day Date, name string, dir Direction, qty Quantity, premium Money, reason TradeReason) OptionTrade {
	return NewOptionTrade(NewTrade(day, name, dir, qty, premium),
		"AAPL", Call, GBP(150), NewDate(2024, time.December, 20), Q(100), reason)
}

func put(day Date, name string, dir Direction, qty Quantity, premium Money, reason TradeReason) OptionTrade {
	return NewOptionTrade(NewTrade(day, name, dir, qty, premium),
		"AAPL", Put, GBP(150), NewDate(2024, time.December, 20), Q(100), reason)
}

// TestWrittenOptionPremiumChargedAtGrant writes an option that later lapses:
// the premium is chargeable when received and retained on expiry.
func TestWrittenOptionPremiumChargedAtGrant(t *testing.T) {
	grant := NewDate(2024, time.June, 3)
	res := runCalculation(t,
		put(grant, "AAPL DEC24 150 P", Disposal, Q(1), GBP(500), ReasonOrder),
		put(NewDate(2024, time.December, 20), "AAPL DEC24 150 P", Acquisition, Q(1), GBP(0), ReasonExpired),
	)

	grantUnit := disposalUnit(t, res, "AAPL DEC24 150 P", grant)
	if len(grantUnit.Matches()) != 1 {
		t.Fatalf("expected one premium match on the grant, got %d", len(grantUnit.Matches()))
	}
	m := grantUnit.Matches()[0]
	if m.Type != MatchOptionPremium {
		t.Errorf("match type = %s, want option premium", m.Type)
	}
	if !m.DisposalProceeds.Equal(GBP(500)) {
		t.Errorf("premium proceeds = %s, want 500", m.DisposalProceeds)
	}
	if len(res.Years) != 1 || !res.Years[0].Gains.Equal(GBP(500)) {
		t.Errorf("yearly gains = %+v, want a single year with 500", res.Years)
	}
}

// TestHeldOptionExpiryIsFullLoss lets a bought option lapse: the premium paid
// comes back as an allowable loss through the pool.
func TestHeldOptionExpiryIsFullLoss(t *testing.T) {
	expiry := NewDate(2024, time.December, 20)
	res := runCalculation(t,
		call(NewDate(2024, time.June, 3), "AAPL DEC24 150 C", Acquisition, Q(1), GBP(500), ReasonOrder),
		call(expiry, "AAPL DEC24 150 C", Disposal, Q(1), GBP(0), ReasonExpired),
	)

	lapse := disposalUnit(t, res, "AAPL DEC24 150 C", expiry)
	if len(lapse.Matches()) != 1 || lapse.Matches()[0].Type != MatchSection104 {
		t.Fatalf("expected a single pool match for the lapse, got %v", lapse.Matches())
	}
	if !lapse.Gain().Equal(GBP(-500)) {
		t.Errorf("lapse gain = %s, want -500", lapse.Gain())
	}
	if len(res.Years) != 1 || !res.Years[0].Losses.Equal(GBP(500)) {
		t.Errorf("yearly losses = %+v, want a single year with 500", res.Years)
	}
}

// TestExercisedCallRollsPremiumIntoCost exercises a held call: the option
// settles with no gain of its own and the premium lands on the share cost.
func TestExercisedCallRollsPremiumIntoCost(t *testing.T) {
	exercise := NewDate(2024, time.March, 1)
	res := runCalculation(t,
		call(NewDate(2024, time.February, 1), "AAPL MAR24 150 C", Acquisition, Q(1), GBP(500), ReasonOrder),
		call(exercise, "AAPL MAR24 150 C", Disposal, Q(1), GBP(0), ReasonExercise),
		NewTrade(exercise, "AAPL", Acquisition, Q(100), GBP(30000)),
		NewTrade(NewDate(2024, time.June, 2), "AAPL", Disposal, Q(100), GBP(40000)),
	)

	settled := disposalUnit(t, res, "AAPL MAR24 150 C", exercise)
	if len(settled.Matches()) != 1 || settled.Matches()[0].Type != MatchOptionRollover {
		t.Fatalf("expected a single rollover match, got %v", settled.Matches())
	}
	if !settled.Gain().IsZero() {
		t.Errorf("exercise gain = %s, want no tax effect on the option itself", settled.Gain())
	}

	shares := disposalUnit(t, res, "AAPL", NewDate(2024, time.June, 2))
	if !shares.TotalAllowableCost().Equal(GBP(30500)) {
		t.Errorf("share cost = %s, want 30000 plus the 500 premium", shares.TotalAllowableCost())
	}
	if !shares.Gain().Equal(GBP(9500)) {
		t.Errorf("share gain = %s, want 9500", shares.Gain())
	}
}

// TestAssignedPutRefundsEarlierYearPremium writes a put in one tax year and
// gets assigned in the next: the premium already assessed at grant is refunded
// in the grant year and reduces the share acquisition cost instead.
func TestAssignedPutRefundsEarlierYearPremium(t *testing.T) {
	// the grant falls in 2023-2024, the assignment in 2024-2025
	grant := NewDate(2024, time.March, 1)
	assigned := NewDate(2024, time.May, 1)
	res := runCalculation(t,
		put(grant, "AAPL MAY24 150 P", Disposal, Q(1), GBP(500), ReasonOrder),
		put(assigned, "AAPL MAY24 150 P", Acquisition, Q(1), GBP(0), ReasonAssigned),
		NewTrade(assigned, "AAPL", Acquisition, Q(100), GBP(10000)),
	)

	if len(res.PremiumRefunds) != 1 {
		t.Fatalf("expected one premium refund, got %d", len(res.PremiumRefunds))
	}
	r := res.PremiumRefunds[0]
	if r.TaxYear != TaxYearOf(grant) {
		t.Errorf("refund tax year = %s, want the grant year %s", r.TaxYear, TaxYearOf(grant))
	}
	if !r.Amount.Equal(GBP(500)) {
		t.Errorf("refund amount = %s, want 500", r.Amount)
	}

	pool := res.Pools.Pool("AAPL")
	if !pool.Quantity().Equal(Q(100)) || !pool.Cost().Equal(GBP(9500)) {
		t.Errorf("pool = %s @ %s, want 100 shares at cost reduced to 9500", pool.Quantity(), pool.Cost())
	}

	for _, y := range res.Years {
		if y.Year == TaxYearOf(grant) {
			if !y.Gains.Equal(GBP(500)) || !y.PremiumRefunds.Equal(GBP(500)) {
				t.Errorf("grant year = %+v, want gains 500 fully refunded", y)
			}
			if !y.NetGain().IsZero() {
				t.Errorf("grant year net gain = %s, want zero after the refund", y.NetGain())
			}
		}
	}
}

// TestExerciseWithoutUnderlyingFails checks an exercise with neither an
// underlying trade nor a cash settlement aborts the run with a typed error.
func TestExerciseWithoutUnderlyingFails(t *testing.T) {
	ledger := NewEventLedger()
	err := ledger.Append(
		call(NewDate(2024, time.February, 1), "AAPL MAR24 150 C", Acquisition, Q(1), GBP(500), ReasonOrder),
		call(NewDate(2024, time.March, 1), "AAPL MAR24 150 C", Disposal, Q(1), GBP(0), ReasonExercise),
	)
	if err != nil {
		t.Fatal(err)
	}
	calc := NewCalculation(ledger)
	calc.Logger.SetLevel(logrus.PanicLevel)
	_, err = calc.Run()
	var missing *MissingUnderlyingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected a missing underlying error, got %v", err)
	}
	if missing.Underlying != "AAPL" {
		t.Errorf("missing underlying = %s, want AAPL", missing.Underlying)
	}
}

// TestCashSettledExercise checks a cash settlement stands in for the missing
// underlying: the payout becomes the exercise proceeds against the premium.
func TestCashSettledExercise(t *testing.T) {
	exercise := NewDate(2024, time.March, 1)
	res := runCalculation(t,
		call(NewDate(2024, time.February, 1), "SPX MAR24 150 C", Acquisition, Q(1), GBP(500), ReasonOrder),
		call(exercise, "SPX MAR24 150 C", Disposal, Q(1), GBP(0), ReasonExercise),
		NewCashSettlement(exercise, "SPX MAR24 150 C", GBP(800), "index option settled in cash"),
	)

	settled := disposalUnit(t, res, "SPX MAR24 150 C", exercise)
	if !settled.Completed() {
		t.Fatalf("expected the exercise fully matched, unmatched %s", settled.Unmatched())
	}
	if !settled.Gain().Equal(GBP(300)) {
		t.Errorf("cash settled gain = %s, want 800 payout less 500 premium", settled.Gain())
	}
}

func indexCall(day Date, name string, dir Direction, qty Quantity, premium Money, reason TradeReason) OptionTrade {
	return NewOptionTrade(NewTrade(day, name, dir, qty, premium),
		"SPX", Call, GBP(5000), NewDate(2024, time.March, 15), Q(100), reason)
}

// TestCashSettlementClaimedOnce exercises two index options on the same day
// with a single payout between them: the first exercise consumes the
// settlement, the second must fail for want of an underlying.
func TestCashSettlementClaimedOnce(t *testing.T) {
	exercise := NewDate(2024, time.March, 15)
	err := runCalculationError(t,
		indexCall(NewDate(2024, time.February, 1), "SPX MAR24 5000 C", Acquisition, Q(1), GBP(500), ReasonOrder),
		indexCall(exercise, "SPX MAR24 5000 C", Disposal, Q(1), GBP(0), ReasonExercise),
		indexCall(NewDate(2024, time.February, 1), "SPX MAR24 5100 C", Acquisition, Q(1), GBP(400), ReasonOrder),
		indexCall(exercise, "SPX MAR24 5100 C", Disposal, Q(1), GBP(0), ReasonExercise),
		NewCashSettlement(exercise, "SPX", GBP(800), "index option settled in cash"),
	)
	var missing *MissingUnderlyingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected a missing underlying error for the second exercise, got %v", err)
	}
	if missing.Option != "SPX MAR24 5100 C" {
		t.Errorf("failing option = %s, want the second series SPX MAR24 5100 C", missing.Option)
	}
}

// TestCashSettlementsPairedPerExercise gives each same-day exercise a payout
// of its own; both settle and keep their own amounts.
func TestCashSettlementsPairedPerExercise(t *testing.T) {
	exercise := NewDate(2024, time.March, 15)
	res := runCalculation(t,
		indexCall(NewDate(2024, time.February, 1), "SPX MAR24 5000 C", Acquisition, Q(1), GBP(500), ReasonOrder),
		indexCall(exercise, "SPX MAR24 5000 C", Disposal, Q(1), GBP(0), ReasonExercise),
		indexCall(NewDate(2024, time.February, 1), "SPX MAR24 5100 C", Acquisition, Q(1), GBP(400), ReasonOrder),
		indexCall(exercise, "SPX MAR24 5100 C", Disposal, Q(1), GBP(0), ReasonExercise),
		NewCashSettlement(exercise, "SPX", GBP(800), "index option settled in cash"),
		NewCashSettlement(exercise, "SPX", GBP(700), "index option settled in cash"),
	)

	first := disposalUnit(t, res, "SPX MAR24 5000 C", exercise)
	if !first.Completed() || !first.Gain().Equal(GBP(300)) {
		t.Errorf("first exercise gain = %s, want 800 payout less 500 premium", first.Gain())
	}
	second := disposalUnit(t, res, "SPX MAR24 5100 C", exercise)
	if !second.Completed() || !second.Gain().Equal(GBP(300)) {
		t.Errorf("second exercise gain = %s, want 700 payout less 400 premium", second.Gain())
	}
}
