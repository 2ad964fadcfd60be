package taxcalc

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EventType is a typed string identifying a tax event variant.
type EventType string

// Event types used to classify ledger entries.
const (
	EvtTrade            EventType = "trade"
	EvtOptionTrade      EventType = "option-trade"
	EvtFutureTrade      EventType = "future-trade"
	EvtDividend         EventType = "dividend"
	EvtInterest         EventType = "interest"
	EvtCashSettlement   EventType = "cash-settlement"
	EvtStockSplit       EventType = "stock-split"
	EvtReturnOfCapital  EventType = "return-of-capital"
	EvtFundEqualisation EventType = "fund-equalisation"
	EvtExcessIncome     EventType = "excess-reportable-income"
	EvtTakeover         EventType = "takeover"
	EvtSpinoff          EventType = "spinoff"
	EvtPartnerTransfer  EventType = "partner-transfer"
)

// TaxEvent defines the common interface for every entry of the event ledger.
//
// Signature is a content-derived key used by the import layer to detect
// duplicates when the same broker statement is loaded twice. The matching
// engine never looks at it.
type TaxEvent interface {
	What() EventType // What returns the event variant (e.g. "trade", "stock-split").
	Asset() string   // Asset returns the name of the asset the event concerns.
	When() Date      // When returns the date on which the event occurred.
	Signature() string
}

type baseEvent struct {
	Event EventType `json:"event"`
	Name  string    `json:"asset"` // asset name (ticker) the event concerns
	Date  Date      `json:"date"`
}

func (e baseEvent) What() EventType { return e.Event }
func (e baseEvent) Asset() string   { return e.Name }
func (e baseEvent) When() Date      { return e.Date }

func (e baseEvent) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("event", e.Event)
	w.Append("asset", e.Name)
	w.Append("date", e.Date)
	return w.MarshalJSON()
}

// Direction tells whether a trade acquires or disposes of an asset.
type Direction int

const (
	Acquisition Direction = iota
	Disposal
)

func (d Direction) String() string {
	switch d {
	case Acquisition:
		return "acquisition"
	case Disposal:
		return "disposal"
	default:
		return "unknown"
	}
}

// ParseDirection parses a string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "acquisition", "buy":
		return Acquisition, nil
	case "disposal", "sell":
		return Disposal, nil
	default:
		return 0, fmt.Errorf("unknown trade direction: %q", s)
	}
}

func (d Direction) MarshalJSON() ([]byte, error) { return []byte(`"` + d.String() + `"`), nil }

func (d *Direction) UnmarshalJSON(b []byte) error {
	v, err := ParseDirection(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Expense is an incidental dealing cost (commission, stamp duty, levies)
// attached to a trade. Expenses increase an acquisition's allowable cost and
// reduce a disposal's net proceeds.
type Expense struct {
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
}

// Trade represents a purchase or sale of an asset. Amounts are already
// expressed in sterling; FX conversion happens at import time.
type Trade struct {
	baseEvent
	Direction Direction
	Quantity  Quantity
	Gross     Money // gross consideration before expenses
	Expenses  []Expense
}

// NewTrade creates a new Trade event.
func NewTrade(day Date, asset string, direction Direction, quantity Quantity, gross Money, expenses ...Expense) Trade {
	return Trade{
		baseEvent: baseEvent{Event: EvtTrade, Name: asset, Date: day},
		Direction: direction,
		Quantity:  quantity,
		Gross:     gross,
		Expenses:  expenses,
	}
}

// TotalExpenses sums the trade's incidental costs.
func (t Trade) TotalExpenses() Money {
	var total Money
	for _, e := range t.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// NetAmount returns the tax-relevant amount of the trade: allowable cost for
// an acquisition (gross plus expenses), net proceeds for a disposal (gross
// minus expenses).
func (t Trade) NetAmount() Money {
	if t.Direction == Acquisition {
		return t.Gross.Add(t.TotalExpenses())
	}
	return t.Gross.Sub(t.TotalExpenses())
}

func (t Trade) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s", t.Event, t.Name, t.Date, t.Direction, t.Quantity, t.Gross.Amount())
}

func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseEvent)
	w.Append("direction", t.Direction)
	w.Append("quantity", t.Quantity)
	w.Append("gross", t.Gross)
	w.Optional("expenses", t.Expenses)
	return w.MarshalJSON()
}

// TradeReason qualifies how an option trade came about.
type TradeReason string

const (
	ReasonOrder    TradeReason = "order"
	ReasonExpired  TradeReason = "expired"
	ReasonExercise TradeReason = "exercised"
	ReasonAssigned TradeReason = "assigned"
)

// PutCall tells whether an option is a put or a call.
type PutCall string

const (
	Put  PutCall = "put"
	Call PutCall = "call"
)

// OptionTrade is a Trade on an option contract. Underlying names the asset
// delivered on exercise; Multiplier is the number of underlying units one
// contract controls.
type OptionTrade struct {
	Trade
	Underlying string
	PutCall    PutCall
	Strike     Money
	Expiry     Date
	Multiplier Quantity
	Reason     TradeReason
}

// NewOptionTrade creates a new OptionTrade event.
func NewOptionTrade(trade Trade, underlying string, putCall PutCall, strike Money, expiry Date, multiplier Quantity, reason TradeReason) OptionTrade {
	trade.Event = EvtOptionTrade
	return OptionTrade{
		Trade:      trade,
		Underlying: underlying,
		PutCall:    putCall,
		Strike:     strike,
		Expiry:     expiry,
		Multiplier: multiplier,
		Reason:     reason,
	}
}

func (t OptionTrade) Signature() string {
	return fmt.Sprintf("%s|%s", t.Trade.Signature(), t.Reason)
}

func (t OptionTrade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.Trade)
	w.Append("underlying", t.Underlying)
	w.Append("putCall", t.PutCall)
	w.Append("strike", t.Strike)
	w.Append("expiry", t.Expiry)
	w.Append("multiplier", t.Multiplier)
	w.Append("reason", t.Reason)
	return w.MarshalJSON()
}

// FutureContractTrade is a Trade on a futures contract. ContractValue is the
// position's notional in the contract currency; FxRate converts that currency
// to sterling at the trade date.
type FutureContractTrade struct {
	Trade
	ContractValue Money
	FxRate        decimal.Decimal
}

// NewFutureContractTrade creates a new FutureContractTrade event.
func NewFutureContractTrade(trade Trade, contractValue Money, fxRate decimal.Decimal) FutureContractTrade {
	trade.Event = EvtFutureTrade
	return FutureContractTrade{Trade: trade, ContractValue: contractValue, FxRate: fxRate}
}

func (t FutureContractTrade) Signature() string {
	return fmt.Sprintf("%s|%s", t.Trade.Signature(), t.ContractValue.Amount())
}

func (t FutureContractTrade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.Trade)
	w.Append("contractValue", t.ContractValue)
	w.Append("fxRate", t.FxRate)
	return w.MarshalJSON()
}

// DividendType classifies a dividend payment for income-tax purposes.
type DividendType string

const (
	DividendOrdinary       DividendType = "ordinary"
	DividendPropertyIncome DividendType = "property-income"
	DividendInLieu         DividendType = "in-lieu"
	DividendWithholding    DividendType = "withholding-tax"
)

// Dividend represents a dividend payment or the tax withheld from one.
type Dividend struct {
	baseEvent
	Type            DividendType
	Proceed         Money
	CompanyLocation string // ISO country of the paying company
}

// NewDividend creates a new Dividend event.
func NewDividend(day Date, asset string, typ DividendType, proceed Money, location string) Dividend {
	return Dividend{
		baseEvent:       baseEvent{Event: EvtDividend, Name: asset, Date: day},
		Type:            typ,
		Proceed:         proceed,
		CompanyLocation: location,
	}
}

func (d Dividend) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", d.Event, d.Name, d.Date, d.Type, d.Proceed.Amount())
}

func (d Dividend) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(d.baseEvent)
	w.Append("type", d.Type)
	w.Append("proceed", d.Proceed)
	w.Optional("companyLocation", d.CompanyLocation)
	return w.MarshalJSON()
}

// InterestType classifies interest income.
type InterestType string

const (
	InterestBank  InterestType = "bank"
	InterestBond  InterestType = "bond"
	InterestOther InterestType = "other"
)

// InterestIncome represents interest received. TaxYearRollForward moves the
// income into the following tax year, for accruals credited on 5 April that
// belong to the next year's assessment.
type InterestIncome struct {
	baseEvent
	Amount             Money
	Type               InterestType
	TaxYearRollForward bool
}

// NewInterestIncome creates a new InterestIncome event.
func NewInterestIncome(day Date, asset string, typ InterestType, amount Money, rollForward bool) InterestIncome {
	return InterestIncome{
		baseEvent:          baseEvent{Event: EvtInterest, Name: asset, Date: day},
		Amount:             amount,
		Type:               typ,
		TaxYearRollForward: rollForward,
	}
}

// AssessedTaxYear returns the tax year the interest is assessed in.
func (i InterestIncome) AssessedTaxYear() TaxYear {
	year := TaxYearOf(i.Date)
	if i.TaxYearRollForward {
		year++
	}
	return year
}

func (i InterestIncome) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", i.Event, i.Name, i.Date, i.Type, i.Amount.Amount())
}

func (i InterestIncome) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(i.baseEvent)
	w.Append("type", i.Type)
	w.Append("amount", i.Amount)
	w.Optional("taxYearRollForward", i.TaxYearRollForward)
	return w.MarshalJSON()
}

// CashSettlement represents cash received in place of a physical outcome,
// e.g. a cash-settled option exercise or a fractional-share payout.
type CashSettlement struct {
	baseEvent
	Amount Money
	Reason string
}

// NewCashSettlement creates a new CashSettlement event.
func NewCashSettlement(day Date, asset string, amount Money, reason string) CashSettlement {
	return CashSettlement{
		baseEvent: baseEvent{Event: EvtCashSettlement, Name: asset, Date: day},
		Amount:    amount,
		Reason:    reason,
	}
}

func (c CashSettlement) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s", c.Event, c.Name, c.Date, c.Amount.Amount())
}

func (c CashSettlement) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(c.baseEvent)
	w.Append("amount", c.Amount)
	w.Optional("reason", c.Reason)
	return w.MarshalJSON()
}
