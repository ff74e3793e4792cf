package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/archlint/registry"
	"github.com/c360studio/archlint/resolver"
	"github.com/c360studio/archlint/validate"
)

const (
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiDim    = "\033[2m"
	ansiReset  = "\033[0m"
)

// printBatch renders a batch report: one block per file with findings,
// then a summary line.
func printBatch(w io.Writer, batch *validate.Batch, strict, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}

	var failed, violations, suppressed int
	for _, res := range batch.Results {
		violations += len(res.Violations)
		suppressed += len(res.Suppressed)
		if res.Failed(strict) {
			failed++
		}

		if len(res.Violations) == 0 && len(res.Suppressed) == 0 && len(res.Warnings) == 0 {
			continue
		}

		fmt.Fprintf(w, "%s (@arch %s)\n", res.Path, res.ArchID)
		for _, v := range res.Violations {
			label := paint(ansiRed, string(v.Severity))
			if v.Severity == registry.SeverityWarning {
				label = paint(ansiYellow, string(v.Severity))
			}
			fmt.Fprintf(w, "  %s %s: %s %s\n", label, v.Rule, v.Message, paint(ansiDim, "["+v.Origin+"]"))
			if v.Why != "" {
				fmt.Fprintf(w, "    why: %s\n", v.Why)
			}
			if v.Alternative != "" {
				fmt.Fprintf(w, "    instead: %s\n", v.Alternative)
			}
		}
		for _, s := range res.Suppressed {
			fmt.Fprintf(w, "  %s %s: %s (override by %s)\n",
				paint(ansiDim, "suppressed"), s.Violation.Rule, s.Violation.Message, s.Override.Reason)
		}
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  %s %s\n", paint(ansiYellow, "warning"), warn.Message)
		}
	}

	verdict := paint(ansiGreen, "PASS")
	if failed > 0 {
		verdict = paint(ansiRed, "FAIL")
	}
	fmt.Fprintf(w, "%s: %d files checked, %d skipped, %d violations, %d suppressed\n",
		verdict, len(batch.Results), batch.Skipped, violations, suppressed)
}

// printFlattened renders the resolved rule set with provenance.
func printFlattened(w io.Writer, flat *resolver.FlattenedArchitecture) {
	fmt.Fprintf(w, "architecture: %s\n", flat.ArchID)
	if flat.Description != "" {
		fmt.Fprintf(w, "description:  %s\n", flat.Description)
	}
	fmt.Fprintf(w, "chain:        %s\n", strings.Join(flat.InheritanceChain, " -> "))
	if len(flat.AppliedMixins) > 0 {
		fmt.Fprintf(w, "mixins:       %s\n", strings.Join(flat.AppliedMixins, ", "))
	}

	fmt.Fprintf(w, "constraints (%d):\n", len(flat.Constraints))
	for _, c := range flat.Constraints {
		origin := c.Origin
		if c.FromMixin {
			origin += " (mixin)"
		}
		fmt.Fprintf(w, "  %-22s %-8s %v  [%s]\n", c.Rule, c.EffectiveSeverity(), c.Value, origin)
	}

	for _, h := range flat.Hints {
		fmt.Fprintf(w, "hint: %s [%s]\n", h.Text, h.Origin)
	}
	for _, p := range flat.Pointers {
		fmt.Fprintf(w, "see:  %s [%s]\n", p.Text, p.Origin)
	}
}

// printWatchEvent renders one re-validation outcome.
func printWatchEvent(w io.Writer, event validate.WatchEvent) {
	switch {
	case event.Err != nil:
		fmt.Fprintf(w, "%s: error: %v\n", event.Path, event.Err)
	case event.Result == nil:
		fmt.Fprintf(w, "%s: no architecture tag\n", event.Path)
	case len(event.Result.Violations) == 0:
		fmt.Fprintf(w, "%s: ok\n", event.Result.Path)
	default:
		fmt.Fprintf(w, "%s: %d violation(s)\n", event.Result.Path, len(event.Result.Violations))
		for _, v := range event.Result.Violations {
			fmt.Fprintf(w, "  %s %s: %s [%s]\n", v.Severity, v.Rule, v.Message, v.Origin)
		}
	}
}
