package taxcalc

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPoolAddAndAverage(t *testing.T) {
	p := NewPoolRegistry().Pool("VWRL")
	p.Add(NewDate(2024, time.January, 2), Q(100), GBP(1000), "buy")
	p.Add(NewDate(2024, time.February, 2), Q(50), GBP(800), "buy")

	if !p.Quantity().Equal(Q(150)) {
		t.Errorf("quantity = %s, want 150", p.Quantity())
	}
	if !p.Cost().Equal(GBP(1800)) {
		t.Errorf("cost = %s, want 1800", p.Cost())
	}
	if !p.AverageCost().Equal(GBP(12)) {
		t.Errorf("average cost = %s, want 12", p.AverageCost())
	}
}

func TestPoolRemoveProRata(t *testing.T) {
	p := NewPoolRegistry().Pool("VWRL")
	p.Add(NewDate(2024, time.January, 2), Q(100), GBP(1000), "buy")

	removed, err := p.Remove(NewDate(2024, time.March, 2), Q(30), "sell")
	if err != nil {
		t.Fatal(err)
	}
	if !removed.Equal(GBP(300)) {
		t.Errorf("removed cost = %s, want 300", removed)
	}
	if !p.Quantity().Equal(Q(70)) {
		t.Errorf("remaining quantity = %s, want 70", p.Quantity())
	}
	if !p.Cost().Equal(GBP(700)) {
		t.Errorf("remaining cost = %s, want 700", p.Cost())
	}
}

func TestPoolRemoveNeverGoesNegative(t *testing.T) {
	p := NewPoolRegistry().Pool("VWRL")
	p.Add(NewDate(2024, time.January, 2), Q(10), GBP(100), "buy")

	_, err := p.Remove(NewDate(2024, time.March, 2), Q(11), "sell")
	if !errors.Is(err, ErrPoolNegative) {
		t.Fatalf("expected ErrPoolNegative, got %v", err)
	}
}

// TestPoolRemoveAbsorbsResidue checks that emptying a pool through a
// non-terminating division leaves exactly zero, not dust.
func TestPoolRemoveAbsorbsResidue(t *testing.T) {
	p := NewPoolRegistry().Pool("VWRL")
	p.Add(NewDate(2024, time.January, 2), Q(3), GBP(100), "buy")

	third := Q(1)
	for i := 0; i < 3; i++ {
		if _, err := p.Remove(NewDate(2024, time.March, 2+i), third, "sell"); err != nil {
			t.Fatal(err)
		}
	}
	if !p.Quantity().IsZero() {
		t.Errorf("expected an exactly empty pool, got quantity %s", p.Quantity())
	}
	if !p.Cost().IsZero() {
		t.Errorf("expected zero cost in an empty pool, got %s", p.Cost())
	}
}

func TestPoolScaleQuantity(t *testing.T) {
	p := NewPoolRegistry().Pool("AAPL")
	p.Add(NewDate(2024, time.January, 2), Q(10), GBP(1000), "buy")
	p.ScaleQuantity(NewDate(2024, time.February, 2), decimal.NewFromInt(4), "4-for-1 split")

	if !p.Quantity().Equal(Q(40)) {
		t.Errorf("quantity = %s, want 40", p.Quantity())
	}
	if !p.Cost().Equal(GBP(1000)) {
		t.Errorf("cost = %s, want unchanged 1000", p.Cost())
	}
}

func TestPoolAdjustCostRejectsNegative(t *testing.T) {
	p := NewPoolRegistry().Pool("FUND")
	p.Add(NewDate(2024, time.January, 2), Q(10), GBP(100), "buy")

	if err := p.AdjustCost(NewDate(2024, time.February, 2), GBP(40).Neg(), "return of capital"); err != nil {
		t.Fatal(err)
	}
	if !p.Cost().Equal(GBP(60)) {
		t.Errorf("cost = %s, want 60", p.Cost())
	}
	if err := p.AdjustCost(NewDate(2024, time.March, 2), GBP(100).Neg(), "return of capital"); err == nil {
		t.Error("expected an error taking cost below zero")
	}
}

func TestPoolHistoryIsAppendOnly(t *testing.T) {
	p := NewPoolRegistry().Pool("VWRL")
	p.Add(NewDate(2024, time.January, 2), Q(100), GBP(1000), "buy")
	if _, err := p.Remove(NewDate(2024, time.March, 2), Q(30), "sell"); err != nil {
		t.Fatal(err)
	}

	history := p.History()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[1].OldQuantity.Equal(history[1].NewQuantity) {
		t.Error("expected the removal entry to show a quantity movement")
	}
	if history[1].Explanation != "sell" {
		t.Errorf("explanation = %q, want %q", history[1].Explanation, "sell")
	}
}

func TestPoolRegistry(t *testing.T) {
	r := NewPoolRegistry()
	if r.Has("VWRL") {
		t.Error("expected no pool before first reference")
	}
	r.Pool("VWRL").Add(NewDate(2024, time.January, 2), Q(1), GBP(10), "buy")
	r.Pool("AAPL")

	if !r.Has("VWRL") {
		t.Error("expected pool after first reference")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "AAPL" || names[1] != "VWRL" {
		t.Errorf("Names = %v, want [AAPL VWRL]", names)
	}

	r.Clear()
	if !r.Pool("VWRL").Quantity().IsZero() {
		t.Error("expected cleared pools to be empty")
	}
}
