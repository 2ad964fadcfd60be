package importer

import (
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
	"github.com/shopspring/decimal"
)

// Section paths into the Flex query envelope. IBKR nests everything under a
// single statement. The paths address the section node itself; section()
// handles the one-record case, where the node decodes as a lone object.
const (
	pathTrades           = "$.FlexQueryResponse.FlexStatements.FlexStatement.Trades.Trade"
	pathCashTransactions = "$.FlexQueryResponse.FlexStatements.FlexStatement.CashTransactions.CashTransaction"
	pathCorporateActions = "$.FlexQueryResponse.FlexStatements.FlexStatement.CorporateActions.CorporateAction"
)

// parseFlexStatement extracts every supported record section from a decoded
// Flex document and converts the records to tax events.
func parseFlexStatement(doc any) ([]taxcalc.TaxEvent, error) {
	var events []taxcalc.TaxEvent

	for _, rec := range section(doc, pathTrades) {
		ev, err := parseTrade(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	for _, rec := range section(doc, pathCashTransactions) {
		ev, err := parseCashTransaction(rec)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	for _, rec := range section(doc, pathCorporateActions) {
		ev, err := parseCorporateAction(rec)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events, nil
}

// section returns the records under a jsonpath, or nil when the section is
// absent from the statement. A section holding one record decodes as the
// record object itself rather than a list, so it is normalized to a one-item
// list.
func section(doc any, path string) []any {
	jval, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil
	}
	switch v := jval.(type) {
	case []any:
		return v
	case map[string]any:
		return []any{v}
	default:
		return nil
	}
}

func parseTrade(rec any) (taxcalc.TaxEvent, error) {
	day, err := recDate(rec, "tradeDate")
	if err != nil {
		return nil, err
	}
	symbol, err := recString(rec, "symbol")
	if err != nil {
		return nil, err
	}
	quantity, err := recDecimal(rec, "quantity")
	if err != nil {
		return nil, fmt.Errorf("trade %s on %s: %w", symbol, day, err)
	}
	proceeds, err := recDecimal(rec, "proceeds")
	if err != nil {
		return nil, fmt.Errorf("trade %s on %s: %w", symbol, day, err)
	}
	fx := optDecimal(rec, "fxRateToBase", decimal.NewFromInt(1))

	direction := taxcalc.Acquisition
	if quantity.IsNegative() {
		direction = taxcalc.Disposal
	}
	gross := taxcalc.GBP(proceeds.Abs().Mul(fx))

	var expenses []taxcalc.Expense
	if commission := optDecimal(rec, "ibCommission", decimal.Zero); !commission.IsZero() {
		expenses = append(expenses, taxcalc.Expense{
			Description: "commission",
			Amount:      taxcalc.GBP(commission.Abs().Mul(fx)),
		})
	}
	if taxes := optDecimal(rec, "taxes", decimal.Zero); !taxes.IsZero() {
		expenses = append(expenses, taxcalc.Expense{
			Description: "transaction tax",
			Amount:      taxcalc.GBP(taxes.Abs().Mul(fx)),
		})
	}

	trade := taxcalc.NewTrade(day, symbol, direction, taxcalc.Q(quantity.Abs()), gross, expenses...)

	category, _ := recString(rec, "assetCategory")
	switch category {
	case "OPT":
		return parseOptionTrade(rec, trade, fx)
	case "FUT":
		return parseFutureTrade(rec, trade, fx)
	default:
		return trade, nil
	}
}

func parseOptionTrade(rec any, trade taxcalc.Trade, fx decimal.Decimal) (taxcalc.TaxEvent, error) {
	underlying, err := recString(rec, "underlyingSymbol")
	if err != nil {
		return nil, fmt.Errorf("option trade %s on %s: %w", trade.Name, trade.Date, err)
	}
	expiry, err := recDate(rec, "expiry")
	if err != nil {
		return nil, fmt.Errorf("option trade %s on %s: %w", trade.Name, trade.Date, err)
	}
	strike, err := recDecimal(rec, "strike")
	if err != nil {
		return nil, fmt.Errorf("option trade %s on %s: %w", trade.Name, trade.Date, err)
	}

	putCall := taxcalc.Call
	if pc, _ := recString(rec, "putCall"); strings.EqualFold(pc, "P") || strings.EqualFold(pc, "put") {
		putCall = taxcalc.Put
	}
	multiplier := optDecimal(rec, "multiplier", decimal.NewFromInt(100))

	reason := taxcalc.ReasonOrder
	switch notes, _ := recString(rec, "notes"); notes {
	case "Ep":
		reason = taxcalc.ReasonExpired
	case "Ex":
		reason = taxcalc.ReasonExercise
	case "A":
		reason = taxcalc.ReasonAssigned
	}

	return taxcalc.NewOptionTrade(trade, underlying, putCall,
		taxcalc.GBP(strike.Mul(fx)), expiry, taxcalc.Q(multiplier), reason), nil
}

func parseFutureTrade(rec any, trade taxcalc.Trade, fx decimal.Decimal) (taxcalc.TaxEvent, error) {
	// The contract value of a futures trade is quantity times price times
	// multiplier, in the contract currency.
	price, err := recDecimal(rec, "tradePrice")
	if err != nil {
		return nil, fmt.Errorf("future trade %s on %s: %w", trade.Name, trade.Date, err)
	}
	multiplier := optDecimal(rec, "multiplier", decimal.NewFromInt(1))
	currency, _ := recString(rec, "currency")

	contractValue := taxcalc.M(trade.Quantity.Decimal().Mul(price).Mul(multiplier), currency)
	return taxcalc.NewFutureContractTrade(trade, contractValue, fx), nil
}

func parseCashTransaction(rec any) (taxcalc.TaxEvent, error) {
	day, err := recDate(rec, "dateTime")
	if err != nil {
		return nil, err
	}
	symbol, _ := recString(rec, "symbol")
	amount, err := recDecimal(rec, "amount")
	if err != nil {
		return nil, fmt.Errorf("cash transaction on %s: %w", day, err)
	}
	fx := optDecimal(rec, "fxRateToBase", decimal.NewFromInt(1))
	location, _ := recString(rec, "isin")
	if len(location) >= 2 {
		location = location[:2]
	}
	sterling := taxcalc.GBP(amount.Abs().Mul(fx))

	typ, _ := recString(rec, "type")
	switch typ {
	case "Dividends":
		return taxcalc.NewDividend(day, symbol, taxcalc.DividendOrdinary, sterling, location), nil
	case "Payment In Lieu Of Dividends":
		return taxcalc.NewDividend(day, symbol, taxcalc.DividendInLieu, sterling, location), nil
	case "Withholding Tax":
		return taxcalc.NewDividend(day, symbol, taxcalc.DividendWithholding, sterling, location), nil
	case "Broker Interest Received":
		return taxcalc.NewInterestIncome(day, "Broker interest", taxcalc.InterestBank, sterling, false), nil
	default:
		// statements carry plenty of cash rows with no tax meaning
		// (deposits, fees, FX sweeps); skip them
		return nil, nil
	}
}

func parseCorporateAction(rec any) (taxcalc.TaxEvent, error) {
	typ, _ := recString(rec, "type")
	if typ != "FS" && typ != "RS" { // forward and reverse splits
		return nil, nil
	}
	day, err := recDate(rec, "reportDate")
	if err != nil {
		return nil, err
	}
	symbol, err := recString(rec, "symbol")
	if err != nil {
		return nil, err
	}
	ratio, err := recDecimal(rec, "ratio")
	if err != nil {
		return nil, fmt.Errorf("corporate action %s on %s: %w", symbol, day, err)
	}
	// IBKR expresses the split as new shares per old share; encode it as an
	// integer pair when the ratio is whole either way round.
	if ratio.IsInteger() {
		return taxcalc.NewStockSplit(day, symbol, ratio.IntPart(), 1), nil
	}
	inverse := decimal.NewFromInt(1).Div(ratio)
	if inverse.IsInteger() {
		return taxcalc.NewStockSplit(day, symbol, 1, inverse.IntPart()), nil
	}
	return nil, fmt.Errorf("corporate action %s on %s: unsupported split ratio %s", symbol, day, ratio)
}

// record field helpers: Flex exports are loosely typed, numbers arrive as
// json numbers or as strings depending on the query configuration.

func recString(rec any, key string) (string, error) {
	m, ok := rec.(map[string]any)
	if !ok {
		return "", fmt.Errorf("record is not an object: %v", rec)
	}
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("record has no %q field", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string: %v", key, v)
	}
	return s, nil
}

func recDecimal(rec any, key string) (decimal.Decimal, error) {
	m, ok := rec.(map[string]any)
	if !ok {
		return decimal.Zero, fmt.Errorf("record is not an object: %v", rec)
	}
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("record has no %q field", key)
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q is not a number: %q", key, n)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q is not a number: %v", key, v)
	}
}

func optDecimal(rec any, key string, fallback decimal.Decimal) decimal.Decimal {
	d, err := recDecimal(rec, key)
	if err != nil {
		return fallback
	}
	return d
}

func recDate(rec any, key string) (taxcalc.Date, error) {
	s, err := recString(rec, key)
	if err != nil {
		return taxcalc.Date{}, err
	}
	// date-times keep the date part only
	if i := strings.IndexAny(s, "; T"); i > 0 {
		s = s[:i]
	}
	d, err := taxcalc.ParseDate(s)
	if err != nil {
		return taxcalc.Date{}, fmt.Errorf("field %q: %w", key, err)
	}
	return d, nil
}
