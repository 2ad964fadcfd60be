package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/subcommands"
)

// eventsCmd holds the flags for the 'events' subcommand.
type eventsCmd struct {
	asset string
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "lists the events on the ledger" }
func (*eventsCmd) Usage() string {
	return `uktax events [-asset <name>]

  Prints the ledger's events in chronological order, optionally filtered by
  asset name.
`
}

func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "asset", "", "Only show events for this asset")
}

func (c *eventsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}

	events := ledger.Events()
	sort.SliceStable(events, func(i, j int) bool { return events[i].When().Before(events[j].When()) })

	count := 0
	for _, ev := range events {
		if c.asset != "" && ev.Asset() != c.asset {
			continue
		}
		fmt.Printf("%s %-24s %s\n", ev.When(), ev.What(), ev.Asset())
		count++
	}
	fmt.Printf("%d events\n", count)
	return subcommands.ExitSuccess
}
