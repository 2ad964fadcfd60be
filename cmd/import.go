package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/alexpung/uk-investment-tax-calculator/importer"
	"github.com/google/subcommands"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "imports broker statements into the event ledger" }
func (*importCmd) Usage() string {
	return `uktax import <statement.json> [<statement.json> ...]

  Reads broker statements (IBKR Flex query JSON) and merges their events into
  the ledger file. Events already on the ledger are skipped, so importing the
  same statement twice is harmless.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	files := f.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no statement files given")
		return subcommands.ExitUsageError
	}

	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}

	total := 0
	for _, file := range files {
		r, err := os.Open(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening statement %q: %v\n", file, err)
			return subcommands.ExitFailure
		}
		added, err := importer.Import(r, ledger)
		r.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing statement %q: %v\n", file, err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Imported %d new events from %s\n", added, file)
		total += added
	}

	if err := EncodeLedgerFile(ledger); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Added %d events to %s (%d total)\n", total, *ledgerFile, ledger.Len())
	return subcommands.ExitSuccess
}
