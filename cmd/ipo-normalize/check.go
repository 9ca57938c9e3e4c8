package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fenilmodi00/ipo-display/jobs"
	"github.com/fenilmodi00/ipo-display/models"
	"github.com/spf13/cobra"
)

type checkResult struct {
	name   string
	passed bool
	detail string
}

// newCheckCmd reports how usable a data file is for display: whether it
// loads, normalizes, classifies and carries the critical fields.
func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a health check over a data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "IPO data health check - %s\n", opts.file)
			fmt.Fprintln(out, strings.Repeat("=", 50))

			raws, err := loadRaw(cmd, opts)
			if err != nil {
				printCheck(out, checkResult{name: "Load records", detail: err.Error()})
				return fmt.Errorf("system unhealthy: %w", err)
			}

			normalizer, err := newNormalizer(opts)
			if err != nil {
				return err
			}

			results := []checkResult{{name: "Load records", passed: len(raws) > 0, detail: fmt.Sprintf("%d records", len(raws))}}

			records, err := normalizer.NormalizeAll(raws)
			if err != nil {
				results = append(results, checkResult{name: "Normalize", detail: err.Error()})
			} else {
				results = append(results, checkResult{name: "Normalize", passed: true, detail: fmt.Sprintf("%d canonical records", len(records))})
			}
			results = append(results, classifiedCheck(records), criticalFieldsCheck(records))

			score := 0
			for _, result := range results {
				printCheck(out, result)
				if result.passed {
					score++
				}
			}

			fmt.Fprintln(out, strings.Repeat("-", 50))
			percent := float64(score) / float64(len(results)) * 100
			switch {
			case score == len(results):
				fmt.Fprintf(out, "SYSTEM HEALTHY: %d/%d checks passed (%.0f%%)\n", score, len(results), percent)
			case score >= len(results)/2:
				fmt.Fprintf(out, "SYSTEM DEGRADED: %d/%d checks passed (%.0f%%)\n", score, len(results), percent)
			default:
				fmt.Fprintf(out, "SYSTEM UNHEALTHY: %d/%d checks passed (%.0f%%)\n", score, len(results), percent)
				return fmt.Errorf("system unhealthy: %d/%d checks passed", score, len(results))
			}
			return nil
		},
	}
}

func classifiedCheck(records []models.CanonicalIPO) checkResult {
	unknown := 0
	for _, record := range records {
		if record.Classification.Status == models.StatusUnknown {
			unknown++
		}
	}
	return checkResult{
		name:   "Dates classify",
		passed: len(records) > 0 && unknown == 0,
		detail: fmt.Sprintf("%d/%d without usable dates", unknown, len(records)),
	}
}

func criticalFieldsCheck(records []models.CanonicalIPO) checkResult {
	var incomplete []string
	for _, record := range records {
		if !jobs.AnalyzeDataCompleteness(record).CriticalFieldsComplete {
			incomplete = append(incomplete, record.DisplayName())
		}
	}

	detail := fmt.Sprintf("%d/%d complete", len(records)-len(incomplete), len(records))
	if len(incomplete) > 0 {
		detail += " (missing: " + strings.Join(incomplete, ", ") + ")"
	}
	return checkResult{
		name:   "Critical fields",
		passed: len(records) > 0 && len(incomplete) == 0,
		detail: detail,
	}
}

func printCheck(out io.Writer, result checkResult) {
	mark := "FAILED"
	if result.passed {
		mark = "OK"
	}
	fmt.Fprintf(out, "%-16s %-6s %s\n", result.name+":", mark, result.detail)
}
