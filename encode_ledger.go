package taxcalc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// tradeFields is a specialized struct for decoding the shared trade fields.
type tradeFields struct {
	baseEvent
	Direction Direction `json:"direction"`
	Quantity  Quantity  `json:"quantity"`
	Gross     Money     `json:"gross"`
	Expenses  []Expense `json:"expenses,omitempty"`
}

func (t tradeFields) Trade() Trade {
	return Trade{
		baseEvent: t.baseEvent,
		Direction: t.Direction,
		Quantity:  t.Quantity,
		Gross:     t.Gross,
		Expenses:  t.Expenses,
	}
}

// DecodeEvents decodes tax events from a stream of JSONL data, decodes each
// line into the appropriate event struct, and returns a sorted ledger.
func DecodeEvents(r io.Reader) (*EventLedger, error) {
	ledger := NewEventLedger()
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		ev, err := decodeEvent(lineBytes)
		if err != nil {
			return nil, err
		}
		if err := ledger.Append(ev); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	ledger.stableSort()
	return ledger, nil
}

// decodeEvent parses a single JSON line into the event struct named by its
// "event" field.
func decodeEvent(lineBytes []byte) (TaxEvent, error) {
	var identifier struct {
		Event EventType `json:"event"`
	}
	if err := json.Unmarshal(lineBytes, &identifier); err != nil {
		return nil, fmt.Errorf("could not identify event in line %q: %w", string(lineBytes), err)
	}

	switch identifier.Event {
	case EvtTrade:
		var temp tradeFields
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return temp.Trade(), nil

	case EvtOptionTrade:
		var temp struct {
			tradeFields
			Underlying string      `json:"underlying"`
			PutCall    PutCall     `json:"putCall"`
			Strike     Money       `json:"strike"`
			Expiry     Date        `json:"expiry"`
			Multiplier Quantity    `json:"multiplier"`
			Reason     TradeReason `json:"reason"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return OptionTrade{
			Trade:      temp.Trade(),
			Underlying: temp.Underlying,
			PutCall:    temp.PutCall,
			Strike:     temp.Strike,
			Expiry:     temp.Expiry,
			Multiplier: temp.Multiplier,
			Reason:     temp.Reason,
		}, nil

	case EvtFutureTrade:
		var temp struct {
			tradeFields
			ContractValue Money           `json:"contractValue"`
			FxRate        decimal.Decimal `json:"fxRate"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return FutureContractTrade{
			Trade:         temp.Trade(),
			ContractValue: temp.ContractValue,
			FxRate:        temp.FxRate,
		}, nil

	case EvtDividend:
		var temp struct {
			baseEvent
			Type            DividendType `json:"type"`
			Proceed         Money        `json:"proceed"`
			CompanyLocation string       `json:"companyLocation,omitempty"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return Dividend{
			baseEvent:       temp.baseEvent,
			Type:            temp.Type,
			Proceed:         temp.Proceed,
			CompanyLocation: temp.CompanyLocation,
		}, nil

	case EvtInterest:
		var temp struct {
			baseEvent
			Type               InterestType `json:"type"`
			Amount             Money        `json:"amount"`
			TaxYearRollForward bool         `json:"taxYearRollForward,omitempty"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return InterestIncome{
			baseEvent:          temp.baseEvent,
			Amount:             temp.Amount,
			Type:               temp.Type,
			TaxYearRollForward: temp.TaxYearRollForward,
		}, nil

	case EvtCashSettlement:
		var temp struct {
			baseEvent
			Amount Money  `json:"amount"`
			Reason string `json:"reason,omitempty"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return CashSettlement{
			baseEvent: temp.baseEvent,
			Amount:    temp.Amount,
			Reason:    temp.Reason,
		}, nil

	case EvtStockSplit:
		var temp struct {
			baseEvent
			NumberAfter  int64 `json:"numberAfter"`
			NumberBefore int64 `json:"numberBefore"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return StockSplit{
			baseEvent:    temp.baseEvent,
			NumberBefore: temp.NumberBefore,
			NumberAfter:  temp.NumberAfter,
		}, nil

	case EvtReturnOfCapital:
		var temp struct {
			baseEvent
			Amount Money `json:"amount"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return ReturnOfCapital{baseEvent: temp.baseEvent, Amount: temp.Amount}, nil

	case EvtFundEqualisation:
		var temp struct {
			baseEvent
			Amount Money `json:"amount"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return FundEqualisation{baseEvent: temp.baseEvent, Amount: temp.Amount}, nil

	case EvtExcessIncome:
		var temp struct {
			baseEvent
			Amount Money `json:"amount"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return ExcessReportableIncome{baseEvent: temp.baseEvent, Amount: temp.Amount}, nil

	case EvtTakeover:
		var temp struct {
			baseEvent
			NewAsset string          `json:"newAsset"`
			Ratio    decimal.Decimal `json:"ratio"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return Takeover{baseEvent: temp.baseEvent, NewAsset: temp.NewAsset, Ratio: temp.Ratio}, nil

	case EvtSpinoff:
		var temp struct {
			baseEvent
			NewAsset          string          `json:"newAsset"`
			Ratio             decimal.Decimal `json:"ratio"`
			ParentMarketValue Money           `json:"parentMarketValue"`
			NewMarketValue    Money           `json:"newMarketValue"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return Spinoff{
			baseEvent:         temp.baseEvent,
			NewAsset:          temp.NewAsset,
			Ratio:             temp.Ratio,
			ParentMarketValue: temp.ParentMarketValue,
			NewMarketValue:    temp.NewMarketValue,
		}, nil

	case EvtPartnerTransfer:
		var temp struct {
			baseEvent
			Inbound  bool     `json:"inbound"`
			Quantity Quantity `json:"quantity"`
			Cost     Money    `json:"cost"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, err
		}
		return PartnerTransfer{
			baseEvent: temp.baseEvent,
			Inbound:   temp.Inbound,
			Quantity:  temp.Quantity,
			Cost:      temp.Cost,
		}, nil

	default:
		return nil, fmt.Errorf("unknown tax event: %q", identifier.Event)
	}
}

// EncodeEvent marshals a single event to JSON and writes it to the writer,
// followed by a newline, in JSONL format.
func EncodeEvent(w io.Writer, ev TaxEvent) error {
	decimal.MarshalJSONWithoutQuotes = true
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// EncodeEvents reorders events by date and persists them to an io.Writer in
// JSONL format. The sort is stable, so events on the same day keep their
// original relative order.
func EncodeEvents(w io.Writer, ledger *EventLedger) error {
	decimal.MarshalJSONWithoutQuotes = true
	events := ledger.Events()
	sort.SliceStable(events, func(i, j int) bool { return events[i].When().Before(events[j].When()) })
	for _, ev := range events {
		if err := EncodeEvent(w, ev); err != nil {
			return err
		}
	}
	return nil
}
