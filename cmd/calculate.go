package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	taxcalc "github.com/alexpung/uk-investment-tax-calculator"
	"github.com/alexpung/uk-investment-tax-calculator/renderer"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// calculateCmd holds the flags for the 'calculate' subcommand.
type calculateCmd struct {
	verbose         bool
	nonResidentFrom string
	nonResidentTo   string
}

func (*calculateCmd) Name() string     { return "calculate" }
func (*calculateCmd) Synopsis() string { return "computes capital gains from the event ledger" }
func (*calculateCmd) Usage() string {
	return `uktax calculate [-v] [-non-resident-from <date> -non-resident-to <date>]

  Runs the full matching calculation over the event ledger and prints the
  report: yearly capital gains summary, per-disposal match narrative and
  section 104 pool audit trail.
`
}

func (c *calculateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.verbose, "v", false, "Log the matching trail while calculating")
	f.StringVar(&c.nonResidentFrom, "non-resident-from", "", "Start of a non-resident period, e.g. 2023-4-6")
	f.StringVar(&c.nonResidentTo, "non-resident-to", "", "End of a non-resident period (inclusive)")
}

func (c *calculateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ledger, err := DecodeLedgerFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}
	if ledger.Len() == 0 {
		fmt.Fprintf(os.Stderr, "Ledger %q is empty, nothing to calculate.\n", *ledgerFile)
		return subcommands.ExitSuccess
	}

	calc := taxcalc.NewCalculation(ledger)
	calc.Logger.SetLevel(logrus.WarnLevel)
	if c.verbose {
		calc.Logger.SetLevel(logrus.DebugLevel)
	}

	if c.nonResidentFrom != "" || c.nonResidentTo != "" {
		record, status := parseResidency(c.nonResidentFrom, c.nonResidentTo)
		if status != subcommands.ExitSuccess {
			return status
		}
		calc.Residency = record
	}

	result, err := calc.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calculating gains: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.ReportMarkdown(result))
	return subcommands.ExitSuccess
}

func parseResidency(from, to string) (*taxcalc.ResidencyStatusRecord, subcommands.ExitStatus) {
	if from == "" || to == "" {
		fmt.Fprintln(os.Stderr, "-non-resident-from and -non-resident-to must be used together")
		return nil, subcommands.ExitUsageError
	}
	start, err := taxcalc.ParseDate(from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -non-resident-from: %v\n", err)
		return nil, subcommands.ExitUsageError
	}
	end, err := taxcalc.ParseDate(to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -non-resident-to: %v\n", err)
		return nil, subcommands.ExitUsageError
	}
	record := taxcalc.NewResidencyStatusRecord()
	if err := record.AddPeriod(start, end, taxcalc.NonResident); err != nil {
		fmt.Fprintf(os.Stderr, "Error in non-resident period: %v\n", err)
		return nil, subcommands.ExitUsageError
	}
	return record, subcommands.ExitSuccess
}
