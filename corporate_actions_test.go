package taxcalc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func runCalculationError(t *testing.T, events ...TaxEvent) error {
	t.Helper()
	ledger := NewEventLedger()
	if err := ledger.Append(events...); err != nil {
		t.Fatal(err)
	}
	calc := NewCalculation(ledger)
	calc.Logger.SetLevel(logrus.PanicLevel)
	_, err := calc.Run()
	return err
}

// TestTakeoverMovesPool exchanges the acquired company's whole pool for
// acquirer shares: quantity rescales, cost carries over unchanged.
func TestTakeoverMovesPool(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	res := runCalculation(t,
		NewTrade(buy, "ARM", Acquisition, Q(100), GBP(5000)),
		NewTakeover(buy.Add(200), "ARM", "NVDA", decimal.RequireFromString("0.5")),
	)

	if res.Pools.Has("ARM") && !res.Pools.Pool("ARM").Quantity().IsZero() {
		t.Errorf("acquired pool still holds %s", res.Pools.Pool("ARM").Quantity())
	}
	nvda := res.Pools.Pool("NVDA")
	if !nvda.Quantity().Equal(Q(50)) {
		t.Errorf("acquirer quantity = %s, want 50 at a 0.5 exchange ratio", nvda.Quantity())
	}
	if !nvda.Cost().Equal(GBP(5000)) {
		t.Errorf("acquirer cost = %s, want the carried-over 5000", nvda.Cost())
	}
}

// TestTakeoverWithoutHoldingFails checks a takeover of a company never held
// aborts the run.
func TestTakeoverWithoutHoldingFails(t *testing.T) {
	err := runCalculationError(t,
		NewTakeover(NewDate(2024, time.March, 1), "ARM", "NVDA", decimal.NewFromInt(1)),
	)
	if err == nil {
		t.Fatal("expected an error for a takeover with no pool")
	}
}

// TestSpinoffApportionsCostByMarketValue splits the parent's pooled cost by
// relative market value and hands the spun-off shares their slice.
func TestSpinoffApportionsCostByMarketValue(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	res := runCalculation(t,
		NewTrade(buy, "GE", Acquisition, Q(100), GBP(8000)),
		// parent worth 3x the spinoff, so 2000 of cost moves across
		NewSpinoff(buy.Add(100), "GE", "GEV", decimal.RequireFromString("0.25"), GBP(7500), GBP(2500)),
	)

	parent := res.Pools.Pool("GE")
	if !parent.Quantity().Equal(Q(100)) || !parent.Cost().Equal(GBP(6000)) {
		t.Errorf("parent pool = %s @ %s, want 100 shares at cost 6000", parent.Quantity(), parent.Cost())
	}
	spun := res.Pools.Pool("GEV")
	if !spun.Quantity().Equal(Q(25)) || !spun.Cost().Equal(GBP(2000)) {
		t.Errorf("spinoff pool = %s @ %s, want 25 shares at cost 2000", spun.Quantity(), spun.Cost())
	}
}

// TestPartnerTransferInbound receives shares from a spouse at no gain no
// loss: quantity and cost go straight into the pool, even with no prior
// trade of the asset.
func TestPartnerTransferInbound(t *testing.T) {
	day := NewDate(2024, time.February, 14)
	res := runCalculation(t,
		NewPartnerTransfer(day, "VWRL", true, Q(40), GBP(3200)),
		NewTrade(day.Add(50), "VWRL", Disposal, Q(40), GBP(4000)),
	)

	disp := disposalUnit(t, res, "VWRL", day.Add(50))
	if !disp.TotalAllowableCost().Equal(GBP(3200)) {
		t.Errorf("allowable cost = %s, want the transferred 3200", disp.TotalAllowableCost())
	}
	if !disp.Gain().Equal(GBP(800)) {
		t.Errorf("gain = %s, want 800", disp.Gain())
	}
}

// TestPartnerTransferOutboundExceedsHolding checks giving away more than the
// pool holds aborts the run.
func TestPartnerTransferOutboundExceedsHolding(t *testing.T) {
	day := NewDate(2024, time.February, 14)
	err := runCalculationError(t,
		NewTrade(day, "VWRL", Acquisition, Q(10), GBP(1000)),
		NewPartnerTransfer(day.Add(5), "VWRL", false, Q(20), GBP(0)),
	)
	if err == nil {
		t.Fatal("expected an error for an outbound transfer exceeding the holding")
	}
}

// TestReturnOfCapitalReducesCost checks the pooled cost drops by the capital
// returned, with quantity untouched.
func TestReturnOfCapitalReducesCost(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	res := runCalculation(t,
		NewTrade(buy, "VWRL", Acquisition, Q(100), GBP(5000)),
		NewReturnOfCapital(buy.Add(60), "VWRL", GBP(500)),
	)

	pool := res.Pools.Pool("VWRL")
	if !pool.Quantity().Equal(Q(100)) || !pool.Cost().Equal(GBP(4500)) {
		t.Errorf("pool = %s @ %s, want 100 shares at cost 4500", pool.Quantity(), pool.Cost())
	}
}

// TestReturnOfCapitalBelowZeroFails checks a return exceeding the pooled cost
// aborts instead of going negative.
func TestReturnOfCapitalBelowZeroFails(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	err := runCalculationError(t,
		NewTrade(buy, "VWRL", Acquisition, Q(100), GBP(5000)),
		NewReturnOfCapital(buy.Add(60), "VWRL", GBP(6000)),
	)
	if err == nil {
		t.Fatal("expected an error for a return of capital exceeding the pooled cost")
	}
}

// TestExcessReportableIncomeAddsCost checks reported fund income raises the
// pooled cost so it is not taxed again on disposal.
func TestExcessReportableIncomeAddsCost(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	res := runCalculation(t,
		NewTrade(buy, "VWRP", Acquisition, Q(100), GBP(5000)),
		NewExcessReportableIncome(buy.Add(300), "VWRP", GBP(120)),
		NewFundEqualisation(buy.Add(90), "VWRP", GBP(30)),
	)

	pool := res.Pools.Pool("VWRP")
	if !pool.Cost().Equal(GBP(5090)) {
		t.Errorf("pool cost = %s, want 5000 + 120 reported - 30 equalisation", pool.Cost())
	}
}

// TestCostActionsOnUnknownAssetAreIgnored checks cost adjustments naming an
// asset never held quietly do nothing.
func TestCostActionsOnUnknownAssetAreIgnored(t *testing.T) {
	res := runCalculation(t,
		NewReturnOfCapital(NewDate(2024, time.March, 1), "VWRL", GBP(500)),
		NewExcessReportableIncome(NewDate(2024, time.March, 2), "VWRL", GBP(120)),
	)
	if res.Pools.Has("VWRL") {
		t.Error("expected no pool created for an asset never traded")
	}
}

// TestTakeoverReceivedSharesDisposal sells the shares received in a
// takeover. The receiving ticker sorts before the acquired one, so the
// exchange must land in date order rather than asset order for the later sale
// to find the seeded pool.
func TestTakeoverReceivedSharesDisposal(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	sell := buy.Add(100)
	res := runCalculation(t,
		NewTrade(buy, "ZETA", Acquisition, Q(100), GBP(5000)),
		NewTakeover(buy.Add(30), "ZETA", "ALPHA", decimal.NewFromInt(1)),
		NewTrade(sell, "ALPHA", Disposal, Q(100), GBP(9000)),
	)

	disp := disposalUnit(t, res, "ALPHA", sell)
	if !disp.Completed() {
		t.Fatalf("disposal of received shares left unmatched: %s of %s", disp.Unmatched(), disp.Quantity())
	}
	if !disp.Gain().Equal(GBP(4000)) {
		t.Errorf("gain = %s, want 9000 proceeds less the carried-over 5000", disp.Gain())
	}
	if res.Pools.Has("ZETA") && !res.Pools.Pool("ZETA").Quantity().IsZero() {
		t.Errorf("acquired pool still holds %s", res.Pools.Pool("ZETA").Quantity())
	}
}

// TestSpinoffReceivedSharesDisposal sells the spun-off shares, with the child
// ticker sorting before the parent's.
func TestSpinoffReceivedSharesDisposal(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	sell := buy.Add(200)
	res := runCalculation(t,
		NewTrade(buy, "ZCORP", Acquisition, Q(100), GBP(8000)),
		// a quarter of the cost follows the spun-off shares
		NewSpinoff(buy.Add(100), "ZCORP", "AXIS", decimal.RequireFromString("0.25"), GBP(7500), GBP(2500)),
		NewTrade(sell, "AXIS", Disposal, Q(25), GBP(3000)),
	)

	disp := disposalUnit(t, res, "AXIS", sell)
	if !disp.Completed() {
		t.Fatalf("disposal of spun-off shares left unmatched: %s of %s", disp.Unmatched(), disp.Quantity())
	}
	if !disp.TotalAllowableCost().Equal(GBP(2000)) {
		t.Errorf("allowable cost = %s, want the apportioned 2000", disp.TotalAllowableCost())
	}
	if !disp.Gain().Equal(GBP(1000)) {
		t.Errorf("gain = %s, want 1000", disp.Gain())
	}
}

// TestTakeoverOfEmptiedPool runs a takeover against a pool fully disposed of
// before the exchange: nothing moves and the run completes cleanly.
func TestTakeoverOfEmptiedPool(t *testing.T) {
	buy := NewDate(2023, time.September, 4)
	res := runCalculation(t,
		NewTrade(buy, "ARM", Acquisition, Q(100), GBP(5000)),
		NewTrade(buy.Add(60), "ARM", Disposal, Q(100), GBP(6000)),
		NewTakeover(buy.Add(90), "ARM", "NVDA", decimal.NewFromInt(1)),
	)

	if res.Pools.Has("NVDA") && !res.Pools.Pool("NVDA").Quantity().IsZero() {
		t.Errorf("acquirer pool holds %s, want nothing from an emptied pool", res.Pools.Pool("NVDA").Quantity())
	}
}
