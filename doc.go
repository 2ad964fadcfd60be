// Package taxcalc computes UK capital gains tax figures from a ledger of
// investment tax events. It is designed to be local-first and auditable:
// every run is a deterministic batch computation whose matches and pool
// histories can be replayed and inspected.
//
// The core functionalities include:
//   - Event Ledger: Recording trades, option and future contract trades,
//     dividends, interest and corporate actions in a duplicate-aware,
//     chronological record persisted as JSONL.
//   - Matching Engine: Applying the statutory UK share identification rules
//     to each asset's disposals: same day, bed and breakfast (30 days),
//     then the Section 104 pool with short-sale cover.
//   - Section 104 Pools: Average-cost pools per asset with an append-only
//     audit history of every quantity or cost mutation, including corporate
//     action adjustments (splits, takeovers, spinoffs, partner transfers).
//   - Derivative Settlement: Option exercise and assignment premium
//     rollover, written-premium recognition at grant with cross-year
//     refunds, and long/short future position tracking with contract-value
//     settlement.
//   - Yearly Aggregation: Disposal, dividend and interest summaries per UK
//     tax year (6 April to 5 April), rounded in the taxpayer's favour.
//
// This package serves as the foundational logic for the `uktax`
// command-line tool, ensuring that all operations are consistent and based
// on a single source of truth.
package taxcalc
