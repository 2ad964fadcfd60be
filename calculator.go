package taxcalc

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Calculation is one deterministic batch computation over a ledger. It owns
// its pools and identifier sequence, so repeated runs over the same ledger
// produce identical match and pool histories. Callers must not run two
// calculations concurrently against the same result containers; the engine
// holds no lock.
type Calculation struct {
	Ledger    *EventLedger
	Residency *ResidencyStatusRecord
	Logger    *logrus.Logger
}

// NewCalculation creates a calculation over the ledger with default
// collaborators.
func NewCalculation(ledger *EventLedger) *Calculation {
	return &Calculation{Ledger: ledger, Logger: logrus.New()}
}

// CalculationResult is everything one run produces for reporting and audit
// export: the matched units with their full histories, the pools with their
// audit trails, premium refunds and the yearly aggregations.
type CalculationResult struct {
	RunID          uuid.UUID
	Units          []*MatchableUnit
	Pools          *PoolRegistry
	PremiumRefunds []OptionPremiumRefund
	Years          []TaxYearSummary
	Dividends      []DividendYearSummary
	Interests      []InterestYearSummary
}

// Run executes the whole calculation: grouping, option settlement, the
// same-day and bed and breakfast passes per asset, one Section 104 sweep over
// every asset, residency annotation and yearly aggregation. Any error aborts
// the run; no partial result is returned.
func (c *Calculation) Run() (*CalculationResult, error) {
	log := c.Logger
	if log == nil {
		log = logrus.New()
	}
	pools := NewPoolRegistry()
	seq := &sequence{}
	seq.Reset()
	m := &matcher{pools: pools, seq: seq, log: log, spent: make(map[string]bool)}

	equityUnits, err := groupTrades(seq, ClassEquity, c.Ledger.Trades())
	if err != nil {
		return nil, err
	}
	optionUnits, err := groupOptionUnits(seq, c.Ledger.OptionTrades())
	if err != nil {
		return nil, err
	}
	futureUnits, err := groupFutureUnits(seq, c.Ledger.FutureContractTrades())
	if err != nil {
		return nil, err
	}

	equityByAsset := byAsset(equityUnits)
	optionByAsset := byAsset(optionUnits)
	futureByAsset := byAsset(futureUnits)
	actions := actionsByAsset(c.Ledger.CorporateActions())

	// Exercises and assignments rewrite underlying trade amounts, so every
	// option settles before any equity matching starts.
	var refunds []OptionPremiumRefund
	for _, asset := range sortedKeys(optionByAsset) {
		r, err := m.optionPhase(optionByAsset[asset], equityByAsset, c.Ledger.CashSettlements())
		if err != nil {
			return nil, fmt.Errorf("settling options %s: %w", asset, err)
		}
		refunds = append(refunds, r...)
	}

	for _, asset := range sortedKeys(equityByAsset) {
		if err := m.pairPasses(asset, equityByAsset[asset], actions[asset]); err != nil {
			return nil, err
		}
	}
	for _, asset := range sortedKeys(optionByAsset) {
		if err := m.pairPasses(asset, optionByAsset[asset], nil); err != nil {
			return nil, err
		}
	}
	for _, asset := range sortedKeys(futureByAsset) {
		if err := m.pairPasses(asset, futureByAsset[asset], nil); err != nil {
			return nil, err
		}
	}

	units := make([]*MatchableUnit, 0, len(equityUnits)+len(optionUnits)+len(futureUnits))
	units = append(units, equityUnits...)
	units = append(units, optionUnits...)
	units = append(units, futureUnits...)
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].date != units[j].date {
			return units[i].date.Before(units[j].date)
		}
		if units[i].asset != units[j].asset {
			return units[i].asset < units[j].asset
		}
		return units[i].direction < units[j].direction
	})

	// the pool pass is a single sweep over every asset so that a takeover or
	// spinoff dated between two trades lands between them even when the
	// receiving asset's name sorts before the source's
	allActions := append([]CorporateAction(nil), c.Ledger.CorporateActions()...)
	sort.SliceStable(allActions, func(i, j int) bool {
		return allActions[i].When().Before(allActions[j].When())
	})
	if err := m.section104Pass(units, allActions); err != nil {
		return nil, err
	}

	for _, u := range units {
		u.residency = c.Residency.StatusAt(u.date)
	}

	result := &CalculationResult{
		RunID:          uuid.New(),
		Units:          units,
		Pools:          pools,
		PremiumRefunds: refunds,
		Years:          summarizeYears(units, refunds),
		Dividends:      summarizeDividends(c.Ledger.Dividends()),
		Interests:      summarizeInterests(c.Ledger.InterestIncomes()),
	}
	log.WithFields(logrus.Fields{
		"run":   result.RunID,
		"units": len(units),
		"pools": len(pools.Names()),
	}).Info("calculation completed")
	return result, nil
}

// sortedKeys returns the map's keys in lexical order for deterministic
// iteration.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
