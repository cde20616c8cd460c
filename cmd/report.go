package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const reportDateLayout = "2006-01-02"

var reportCmd = &cobra.Command{
	Use:   "report <start:end>",
	Short: "Generate an activity report for a date range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDateRange(args[0])
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fmt.Errorf("end date %s is before start date %s",
				end.Format(reportDateLayout), start.Format(reportDateLayout))
		}

		// TODO: aggregate per-app time from snapshot rows once the report
		// format is settled.
		fmt.Printf("Report generation for %s to %s is not implemented yet.\n",
			start.Format(reportDateLayout), end.Format(reportDateLayout))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

// parseDateRange parses a "start:end" pair of YYYY-MM-DD dates.
func parseDateRange(arg string) (time.Time, time.Time, error) {
	startStr, endStr, found := strings.Cut(arg, ":")
	if !found {
		return time.Time{}, time.Time{}, fmt.Errorf("expected <start:end>, got %q", arg)
	}

	start, err := time.Parse(reportDateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start date: %w", err)
	}
	end, err := time.Parse(reportDateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end date: %w", err)
	}
	return start, end, nil
}
