// Package importer maps broker JSON exports into tax events. The only
// supported format for now is the Interactive Brokers Flex query output; its
// sections are located with jsonpath expressions so a change in the envelope
// only needs a new path, not a new parser.
//
// Everything is converted to sterling at import time using the statement's
// own FX rates; the matching engine never sees a foreign amount.
package importer

import (
	"encoding/json"
	"fmt"
	"io"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
)

// Import reads one broker statement from r and merges its events into the
// ledger. Events already on the ledger are skipped by signature, so importing
// the same statement twice is harmless. It returns how many events were
// actually added.
func Import(r io.Reader, ledger *taxcalc.EventLedger) (added int, err error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("cannot parse broker statement: %w", err)
	}

	events, err := parseFlexStatement(doc)
	if err != nil {
		return 0, err
	}
	return ledger.Merge(events...)
}
