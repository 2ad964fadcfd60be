package taxcalc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CorporateAction is a tax event that rewrites matching behaviour or pooled
// cost basis instead of being matched itself.
type CorporateAction interface {
	TaxEvent
	corporateAction()
}

// MatchAdjuster is the capability of a corporate action to rewrite an
// in-flight match between two units it sits between chronologically. The
// adjuster may rescale the matched quantities and must leave an explanatory
// note on the match.
type MatchAdjuster interface {
	AdjustMatch(m *TradeMatch, earlier, later *MatchableUnit)
}

// PoolAdjuster is the capability of a corporate action to mutate Section 104
// pools directly. Adjusters address pools through the registry by asset name;
// a pool the action does not name is left alone.
type PoolAdjuster interface {
	AdjustPool(pools *PoolRegistry) error
}

// StockSplit multiplies share counts by NumberAfter/NumberBefore, leaving
// pooled cost untouched. It adjusts both pools and in-flight matches.
type StockSplit struct {
	baseEvent
	NumberBefore int64
	NumberAfter  int64
}

// NewStockSplit creates a new StockSplit action, e.g. 2-for-1 is after=2,
// before=1.
func NewStockSplit(day Date, asset string, after, before int64) StockSplit {
	return StockSplit{
		baseEvent:    baseEvent{Event: EvtStockSplit, Name: asset, Date: day},
		NumberBefore: before,
		NumberAfter:  after,
	}
}

func (s StockSplit) corporateAction() {}

// Ratio returns the post/pre share count ratio.
func (s StockSplit) Ratio() decimal.Decimal {
	return decimal.NewFromInt(s.NumberAfter).Div(decimal.NewFromInt(s.NumberBefore))
}

// AdjustMatch expresses the earlier trade's matched quantity in post-split
// units by scaling the later trade's side of the match.
func (s StockSplit) AdjustMatch(m *TradeMatch, earlier, later *MatchableUnit) {
	ratio := s.Ratio()
	if later.Direction() == Acquisition {
		m.AcquisitionQuantity = Q(m.AcquisitionQuantity.Decimal().Mul(ratio))
	} else {
		m.DisposalQuantity = Q(m.DisposalQuantity.Decimal().Mul(ratio))
	}
	m.AddNote("%d-for-%d stock split on %s: matched quantity of the %s trade rescaled by %s",
		s.NumberAfter, s.NumberBefore, s.Date, earlier.Direction(), ratio)
}

// AdjustPool rescales the pooled quantity; cost per holding is unchanged.
func (s StockSplit) AdjustPool(pools *PoolRegistry) error {
	if !pools.Has(s.Name) {
		return nil
	}
	pools.Pool(s.Name).ScaleQuantity(s.Date, s.Ratio(),
		fmt.Sprintf("%d-for-%d stock split", s.NumberAfter, s.NumberBefore))
	return nil
}

func (s StockSplit) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", s.Event, s.Name, s.Date, s.NumberAfter, s.NumberBefore)
}

func (s StockSplit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(s.baseEvent)
	w.Append("numberAfter", s.NumberAfter)
	w.Append("numberBefore", s.NumberBefore)
	return w.MarshalJSON()
}

// ReturnOfCapital reduces the pooled cost basis by the amount returned.
type ReturnOfCapital struct {
	baseEvent
	Amount Money
}

// NewReturnOfCapital creates a new ReturnOfCapital action.
func NewReturnOfCapital(day Date, asset string, amount Money) ReturnOfCapital {
	return ReturnOfCapital{
		baseEvent: baseEvent{Event: EvtReturnOfCapital, Name: asset, Date: day},
		Amount:    amount,
	}
}

func (r ReturnOfCapital) corporateAction() {}

// AdjustPool reduces the pooled cost by the capital returned.
func (r ReturnOfCapital) AdjustPool(pools *PoolRegistry) error {
	if !pools.Has(r.Name) {
		return nil
	}
	return pools.Pool(r.Name).AdjustCost(r.Date, r.Amount.Neg(),
		fmt.Sprintf("return of capital of %s", r.Amount))
}

func (r ReturnOfCapital) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Event, r.Name, r.Date, r.Amount.Amount())
}

func (r ReturnOfCapital) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(r.baseEvent)
	w.Append("amount", r.Amount)
	return w.MarshalJSON()
}

// FundEqualisation is the equalisation payment on the first distribution of a
// fund holding; it is a partial return of the purchase price, so it reduces
// the pooled cost rather than being income.
type FundEqualisation struct {
	baseEvent
	Amount Money
}

// NewFundEqualisation creates a new FundEqualisation action.
func NewFundEqualisation(day Date, asset string, amount Money) FundEqualisation {
	return FundEqualisation{
		baseEvent: baseEvent{Event: EvtFundEqualisation, Name: asset, Date: day},
		Amount:    amount,
	}
}

func (f FundEqualisation) corporateAction() {}

// AdjustPool reduces the pooled cost by the equalisation amount.
func (f FundEqualisation) AdjustPool(pools *PoolRegistry) error {
	if !pools.Has(f.Name) {
		return nil
	}
	return pools.Pool(f.Name).AdjustCost(f.Date, f.Amount.Neg(),
		fmt.Sprintf("fund equalisation of %s", f.Amount))
}

func (f FundEqualisation) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s", f.Event, f.Name, f.Date, f.Amount.Amount())
}

func (f FundEqualisation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(f.baseEvent)
	w.Append("amount", f.Amount)
	return w.MarshalJSON()
}

// ExcessReportableIncome is income retained by a reporting offshore fund,
// taxed as income and therefore added to the pooled cost so it is not taxed
// again as gain on disposal.
type ExcessReportableIncome struct {
	baseEvent
	Amount Money
}

// NewExcessReportableIncome creates a new ExcessReportableIncome action.
func NewExcessReportableIncome(day Date, asset string, amount Money) ExcessReportableIncome {
	return ExcessReportableIncome{
		baseEvent: baseEvent{Event: EvtExcessIncome, Name: asset, Date: day},
		Amount:    amount,
	}
}

func (e ExcessReportableIncome) corporateAction() {}

// AdjustPool increases the pooled cost by the reported income.
func (e ExcessReportableIncome) AdjustPool(pools *PoolRegistry) error {
	if !pools.Has(e.Name) {
		return nil
	}
	return pools.Pool(e.Name).AdjustCost(e.Date, e.Amount,
		fmt.Sprintf("excess reportable income of %s", e.Amount))
}

func (e ExcessReportableIncome) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s", e.Event, e.Name, e.Date, e.Amount.Amount())
}

func (e ExcessReportableIncome) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(e.baseEvent)
	w.Append("amount", e.Amount)
	return w.MarshalJSON()
}

// Takeover replaces the holding of the acquired company with shares of the
// acquirer: the whole pool moves to the new name, quantity rescaled by the
// share-exchange ratio, cost carried over unchanged.
type Takeover struct {
	baseEvent
	NewAsset string
	Ratio    decimal.Decimal // new shares received per old share
}

// NewTakeover creates a new Takeover action. The event's asset is the old
// (acquired) ticker.
func NewTakeover(day Date, oldAsset, newAsset string, ratio decimal.Decimal) Takeover {
	return Takeover{
		baseEvent: baseEvent{Event: EvtTakeover, Name: oldAsset, Date: day},
		NewAsset:  newAsset,
		Ratio:     ratio,
	}
}

func (t Takeover) corporateAction() {}

// AdjustPool processes the old company first, draining its pool, then the new
// company, receiving the rescaled quantity and the carried-over cost.
func (t Takeover) AdjustPool(pools *PoolRegistry) error {
	if !pools.Has(t.Name) {
		return fmt.Errorf("takeover of %q on %s: no section 104 pool found for the acquired company", t.Name, t.Date)
	}
	old := pools.Pool(t.Name)
	if old.Quantity().IsExhausted() {
		// the whole holding was disposed of before the takeover completed
		return nil
	}
	movedQty := old.Quantity()
	movedCost, err := old.Remove(t.Date, movedQty,
		fmt.Sprintf("takeover by %s: holding exchanged", t.NewAsset))
	if err != nil {
		return err
	}
	newQty := Q(movedQty.Decimal().Mul(t.Ratio))
	pools.Pool(t.NewAsset).Add(t.Date, newQty, movedCost,
		fmt.Sprintf("takeover of %s: %s shares received for %s held", t.Name, newQty, movedQty))
	return nil
}

func (t Takeover) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", t.Event, t.Name, t.Date, t.NewAsset, t.Ratio)
}

func (t Takeover) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseEvent)
	w.Append("newAsset", t.NewAsset)
	w.Append("ratio", t.Ratio)
	return w.MarshalJSON()
}

// Spinoff distributes shares of a new company to holders of the parent. The
// parent's pooled cost is apportioned between the two pools by relative
// market value at the spinoff date.
type Spinoff struct {
	baseEvent
	NewAsset          string
	Ratio             decimal.Decimal // new shares received per parent share
	ParentMarketValue Money
	NewMarketValue    Money
}

// NewSpinoff creates a new Spinoff action. The event's asset is the parent
// ticker.
func NewSpinoff(day Date, parent, newAsset string, ratio decimal.Decimal, parentValue, newValue Money) Spinoff {
	return Spinoff{
		baseEvent:         baseEvent{Event: EvtSpinoff, Name: parent, Date: day},
		NewAsset:          newAsset,
		Ratio:             ratio,
		ParentMarketValue: parentValue,
		NewMarketValue:    newValue,
	}
}

func (s Spinoff) corporateAction() {}

// AdjustPool processes the parent first, carving out the apportioned cost,
// then the new company, receiving the spun-off quantity and that cost.
func (s Spinoff) AdjustPool(pools *PoolRegistry) error {
	if !pools.Has(s.Name) {
		return fmt.Errorf("spinoff of %q on %s: no section 104 pool found for the parent company", s.Name, s.Date)
	}
	parent := pools.Pool(s.Name)
	total := s.ParentMarketValue.Add(s.NewMarketValue)
	if !total.IsPositive() {
		return fmt.Errorf("spinoff of %q on %s: market values must be positive", s.Name, s.Date)
	}
	carved := parent.Cost().Mul(Q(s.NewMarketValue.Amount())).Div(Q(total.Amount()))
	if err := parent.AdjustCost(s.Date, carved.Neg(),
		fmt.Sprintf("spinoff of %s: cost apportioned away by market value", s.NewAsset)); err != nil {
		return err
	}
	newQty := Q(parent.Quantity().Decimal().Mul(s.Ratio))
	pools.Pool(s.NewAsset).Add(s.Date, newQty, carved,
		fmt.Sprintf("spinoff from %s: %s shares received with apportioned cost", s.Name, newQty))
	return nil
}

func (s Spinoff) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", s.Event, s.Name, s.Date, s.NewAsset, s.Ratio)
}

func (s Spinoff) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(s.baseEvent)
	w.Append("newAsset", s.NewAsset)
	w.Append("ratio", s.Ratio)
	w.Append("parentMarketValue", s.ParentMarketValue)
	w.Append("newMarketValue", s.NewMarketValue)
	return w.MarshalJSON()
}

// PartnerTransfer moves part of a holding to or from a spouse or civil
// partner at no gain and no loss: quantity and cost move together.
type PartnerTransfer struct {
	baseEvent
	Inbound  bool     // true when receiving from the partner
	Quantity Quantity
	Cost     Money // allowable cost travelling with the shares
}

// NewPartnerTransfer creates a new PartnerTransfer action.
func NewPartnerTransfer(day Date, asset string, inbound bool, quantity Quantity, cost Money) PartnerTransfer {
	return PartnerTransfer{
		baseEvent: baseEvent{Event: EvtPartnerTransfer, Name: asset, Date: day},
		Inbound:   inbound,
		Quantity:  quantity,
		Cost:      cost,
	}
}

func (p PartnerTransfer) corporateAction() {}

// AdjustPool adds an inbound transfer to the pool, or removes an outbound
// gift after validating that it does not exceed the current holding.
func (p PartnerTransfer) AdjustPool(pools *PoolRegistry) error {
	if p.Inbound {
		pools.Pool(p.Name).Add(p.Date, p.Quantity, p.Cost,
			fmt.Sprintf("transfer of %s shares received from partner", p.Quantity))
		return nil
	}
	if !pools.Has(p.Name) {
		return fmt.Errorf("transfer of %q to partner on %s: no section 104 pool to give from", p.Name, p.Date)
	}
	pool := pools.Pool(p.Name)
	if p.Quantity.GreaterThan(pool.Quantity()) {
		return fmt.Errorf("transfer of %s %q to partner on %s exceeds holding of %s",
			p.Quantity, p.Name, p.Date, pool.Quantity())
	}
	_, err := pool.Remove(p.Date, p.Quantity,
		fmt.Sprintf("transfer of %s shares given to partner", p.Quantity))
	return err
}

func (p PartnerTransfer) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%v|%s", p.Event, p.Name, p.Date, p.Inbound, p.Quantity)
}

func (p PartnerTransfer) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(p.baseEvent)
	w.Append("inbound", p.Inbound)
	w.Append("quantity", p.Quantity)
	w.Append("cost", p.Cost)
	return w.MarshalJSON()
}
