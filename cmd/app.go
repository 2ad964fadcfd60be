// Package cmd implements the CLI application to compute UK capital gains
// from an event ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&calculateCmd{}, "tax")

	c.Register(&importCmd{}, "ledger")
	c.Register(&fmtCmd{}, "ledger")
	c.Register(&eventsCmd{}, "ledger")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var ledgerFile = flag.String("ledger-file", "events.jsonl", "Path to the ledger file containing tax events (JSONL format)")
var plainOutput = flag.Bool("plain", false, "Print reports as raw markdown instead of rendering for the terminal")

// DecodeLedgerFile loads the app ledger file. A missing file is an empty
// ledger, so every command works on a fresh directory.
func DecodeLedgerFile() (*taxcalc.EventLedger, error) {
	f, err := os.Open(*ledgerFile)
	if errors.Is(err, fs.ErrNotExist) {
		return taxcalc.NewEventLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error opening ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()
	return taxcalc.DecodeEvents(f)
}

// EncodeLedgerFile writes the whole ledger back to the app ledger file in
// canonical form.
func EncodeLedgerFile(ledger *taxcalc.EventLedger) error {
	f, err := os.OpenFile(*ledgerFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error opening ledger file %q for writing: %w", *ledgerFile, err)
	}
	defer f.Close()
	return taxcalc.EncodeEvents(f, ledger)
}

// printMarkdown renders a markdown report for the terminal, falling back to
// the raw markdown when rendering is off or fails.
func printMarkdown(md string) {
	if !*plainOutput {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Print(md)
}
