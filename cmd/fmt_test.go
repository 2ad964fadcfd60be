package cmd

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
)

// Helper function to create a temporary ledger file
func createTempLedger(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	tmpfile, err := os.Create(filepath.Join(tmp, "test_events.jsonl"))
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer tmpfile.Close()

	if _, err := tmpfile.WriteString(content); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	return tmpfile.Name()
}

// TestFmtCanonicalizesLedger checks that fmt rewrites the ledger sorted by
// date with canonical field order.
func TestFmtCanonicalizesLedger(t *testing.T) {
	// Arrange: two trades out of date order.
	originalContent := `{"event":"trade","asset":"VWRL","date":"2024-02-01","direction":"disposal","quantity":5,"gross":{"currency":"GBP","amount":600}}
{"event":"trade","asset":"VWRL","date":"2024-01-10","direction":"acquisition","quantity":10,"gross":{"currency":"GBP","amount":1000}}
`
	tempLedgerFile := createTempLedger(t, originalContent)

	cmd := &fmtCmd{}
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	cmd.SetFlags(f)

	// Override global ledgerFile for the test
	oldLedgerFile := ledgerFile
	ledgerFile = &tempLedgerFile
	defer func() { ledgerFile = oldLedgerFile }()

	// Act
	status := cmd.Execute(context.Background(), f)

	// Assert
	if status != subcommands.ExitSuccess {
		t.Errorf("Expected ExitSuccess, got %v", status)
	}

	gotContent, err := os.ReadFile(tempLedgerFile)
	if err != nil {
		t.Fatalf("Failed to read formatted ledger file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(gotContent)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d:\n%s", len(lines), gotContent)
	}
	if !strings.Contains(lines[0], "2024-01-10") {
		t.Errorf("Expected the acquisition first after formatting, got:\n%s", gotContent)
	}
	if !strings.Contains(lines[1], "2024-02-01") {
		t.Errorf("Expected the disposal last after formatting, got:\n%s", gotContent)
	}
}

// TestFmtMissingLedgerIsEmpty checks that formatting a missing ledger file
// creates an empty one instead of failing.
func TestFmtMissingLedgerIsEmpty(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "events.jsonl")
	oldLedgerFile := ledgerFile
	ledgerFile = &missing
	defer func() { ledgerFile = oldLedgerFile }()

	cmd := &fmtCmd{}
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	cmd.SetFlags(f)

	if status := cmd.Execute(context.Background(), f); status != subcommands.ExitSuccess {
		t.Errorf("Expected ExitSuccess, got %v", status)
	}
	if _, err := os.Stat(missing); err != nil {
		t.Errorf("Expected the ledger file to be created: %v", err)
	}
}
