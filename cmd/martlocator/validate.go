package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/mart-locator/internal/adapter/snapshot"
	"github.com/couchcryptid/mart-locator/internal/domain"
)

var validateMinResolved float64

var validateCmd = &cobra.Command{
	Use:   "validate [snapshot]",
	Short: "Check a snapshot file for integrity problems",
	Long:  "Loads a snapshot (default SNAPSHOT_PATH) and checks identities, addresses, access levels, coordinate ranges and geocoding coverage.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.SnapshotPath
		if len(args) == 1 {
			path = args[0]
		}
		entries, err := snapshot.NewFileStore(path).Load(cmd.Context())
		if err != nil {
			return err
		}
		if !printValidation(cmd.OutOrStdout(), path, entries, validateMinResolved) {
			return fmt.Errorf("snapshot %s failed validation", path)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Float64Var(&validateMinResolved, "min-resolved", 0, "fail when fewer than this percentage of entries have coordinates")
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// printValidation writes the report and returns whether every phase passed.
func printValidation(w io.Writer, path string, entries []domain.CatalogEntry, minResolved float64) bool {
	report := snapshot.Validate(entries)

	fmt.Fprintf(w, "=== Snapshot Validation: %s ===\n\n", path)

	integrity := &phase{name: "Phase 1: Integrity (ids, addresses, access)"}
	for _, problem := range report.Problems {
		integrity.errorf("%s", problem)
	}
	if report.Total == 0 {
		integrity.errorf("snapshot is empty")
	}

	coverage := &phase{name: "Phase 2: Coverage (resolved coordinates)"}
	pct := 0.0
	if report.Total > 0 {
		pct = float64(report.Resolved) / float64(report.Total) * 100
	}
	if pct < minResolved {
		coverage.errorf("%.1f%% resolved, want at least %.1f%%", pct, minResolved)
	}

	phases := []*phase{integrity, coverage}
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-46s %s\n", p.name, status)
	}

	fmt.Fprintf(w, "\nEntries: %d total, %d resolved (%.1f%%), %d unresolved\n",
		report.Total, report.Resolved, pct, report.Unresolved)
	levels := make([]string, 0, len(report.ByAccess))
	for level := range report.ByAccess {
		levels = append(levels, string(level))
	}
	slices.Sort(levels)
	for _, level := range levels {
		fmt.Fprintf(w, "  %-8s %d\n", level, report.ByAccess[domain.AccessLevel(level)])
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}
