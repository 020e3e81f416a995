package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"docminer/internal/score"
)

var scoreFlags struct {
	truth string
}

var scoreCmd = &cobra.Command{
	Use:   "score <session>",
	Short: "Check a session's extracted records against ground truth",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&runsFlags.output, "output", "o", "./output", "Output directory to scan")
	scoreCmd.Flags().StringVar(&scoreFlags.truth, "truth", "", "Path to ground truth JSON file (required)")
}

func runScore(cmd *cobra.Command, args []string) error {
	if scoreFlags.truth == "" {
		return fmt.Errorf("--truth is required")
	}

	dir, manifest, err := resolveSession(args[0])
	if err != nil {
		return err
	}

	truth, err := score.LoadGroundTruth(scoreFlags.truth)
	if err != nil {
		return err
	}

	report := score.Compare(manifest.Records, truth)

	fmt.Printf("Session: %s\n\n", dir)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"DOCUMENT", "FIELDS", "CORRECT", "ACCURACY"})
	for _, ds := range report.Docs {
		accuracy := "-"
		if ds.Missing {
			accuracy = "missing"
		} else if ds.Fields > 0 {
			accuracy = fmt.Sprintf("%.0f%%", 100*float64(ds.Correct)/float64(ds.Fields))
		}
		t.AppendRow(table.Row{ds.DocumentID, ds.Fields, ds.Correct, accuracy})
	}
	t.AppendFooter(table.Row{"TOTAL", report.Fields, report.Correct,
		fmt.Sprintf("%.1f%%", 100*report.Accuracy())})
	t.Render()

	return nil
}
