package taxcalc

import (
	"fmt"
	"sort"
)

// EventLedger collects and classifies the tax events of one taxpayer.
//
// In a ledger events are always in chronological order within each
// collection. The ledger is input only: a calculation run never mutates it.
type EventLedger struct {
	trades       []Trade
	optionTrades []OptionTrade
	futureTrades []FutureContractTrade
	dividends    []Dividend
	interests    []InterestIncome
	settlements  []CashSettlement
	actions      []CorporateAction

	signatures map[string]struct{}
}

// NewEventLedger creates an empty ledger.
func NewEventLedger() *EventLedger {
	return &EventLedger{signatures: make(map[string]struct{})}
}

// Append adds events to the ledger, classifying each by kind. It keeps the
// collections chronologically sorted. Unknown event types are a programming
// error.
func (l *EventLedger) Append(events ...TaxEvent) error {
	for _, ev := range events {
		l.signatures[ev.Signature()] = struct{}{}
		switch e := ev.(type) {
		case Trade:
			l.trades = append(l.trades, e)
		case OptionTrade:
			l.optionTrades = append(l.optionTrades, e)
		case FutureContractTrade:
			l.futureTrades = append(l.futureTrades, e)
		case Dividend:
			l.dividends = append(l.dividends, e)
		case InterestIncome:
			l.interests = append(l.interests, e)
		case CashSettlement:
			l.settlements = append(l.settlements, e)
		case StockSplit, ReturnOfCapital, FundEqualisation, ExcessReportableIncome, Takeover, Spinoff, PartnerTransfer:
			l.actions = append(l.actions, ev.(CorporateAction))
		default:
			return fmt.Errorf("unsupported tax event type: %T", ev)
		}
	}
	l.stableSort()
	return nil
}

// Merge adds events to the ledger, skipping any whose signature is already
// present. It returns how many events were actually added, letting the import
// layer report duplicates.
func (l *EventLedger) Merge(events ...TaxEvent) (added int, err error) {
	for _, ev := range events {
		if _, dup := l.signatures[ev.Signature()]; dup {
			continue
		}
		if err := l.Append(ev); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Has reports whether an event with the same signature is already on the
// ledger.
func (l *EventLedger) Has(ev TaxEvent) bool {
	_, ok := l.signatures[ev.Signature()]
	return ok
}

func (l *EventLedger) stableSort() {
	sort.SliceStable(l.trades, func(i, j int) bool { return l.trades[i].Date.Before(l.trades[j].Date) })
	sort.SliceStable(l.optionTrades, func(i, j int) bool { return l.optionTrades[i].Date.Before(l.optionTrades[j].Date) })
	sort.SliceStable(l.futureTrades, func(i, j int) bool { return l.futureTrades[i].Date.Before(l.futureTrades[j].Date) })
	sort.SliceStable(l.dividends, func(i, j int) bool { return l.dividends[i].Date.Before(l.dividends[j].Date) })
	sort.SliceStable(l.interests, func(i, j int) bool { return l.interests[i].Date.Before(l.interests[j].Date) })
	sort.SliceStable(l.settlements, func(i, j int) bool { return l.settlements[i].Date.Before(l.settlements[j].Date) })
	sort.SliceStable(l.actions, func(i, j int) bool { return l.actions[i].When().Before(l.actions[j].When()) })
}

// Accessors return the ledger's collections in chronological order. The
// returned slices must not be mutated.

func (l *EventLedger) Trades() []Trade                             { return l.trades }
func (l *EventLedger) OptionTrades() []OptionTrade                 { return l.optionTrades }
func (l *EventLedger) FutureContractTrades() []FutureContractTrade { return l.futureTrades }
func (l *EventLedger) Dividends() []Dividend                       { return l.dividends }
func (l *EventLedger) InterestIncomes() []InterestIncome           { return l.interests }
func (l *EventLedger) CashSettlements() []CashSettlement           { return l.settlements }
func (l *EventLedger) CorporateActions() []CorporateAction         { return l.actions }

// Events returns every event of the ledger in one slice, grouped by
// collection in chronological order. Mostly useful for encoding.
func (l *EventLedger) Events() []TaxEvent {
	var out []TaxEvent
	for _, e := range l.trades {
		out = append(out, e)
	}
	for _, e := range l.optionTrades {
		out = append(out, e)
	}
	for _, e := range l.futureTrades {
		out = append(out, e)
	}
	for _, e := range l.actions {
		out = append(out, e)
	}
	for _, e := range l.settlements {
		out = append(out, e)
	}
	for _, e := range l.dividends {
		out = append(out, e)
	}
	for _, e := range l.interests {
		out = append(out, e)
	}
	return out
}

// Len returns the total number of events on the ledger.
func (l *EventLedger) Len() int {
	return len(l.trades) + len(l.optionTrades) + len(l.futureTrades) +
		len(l.dividends) + len(l.interests) + len(l.settlements) + len(l.actions)
}
