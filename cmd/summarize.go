package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/interference-sim/interference-sim/sim/report"
)

var summarizeInput string

// summarizeCmd aggregates a previously written bias table: mean absolute
// bias grouped by method and parameter.
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a bias table CSV produced by run --output",
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(summarizeInput)
		if err != nil {
			logrus.Fatalf("Cannot open bias table: %v", err)
		}
		defer f.Close()

		table, err := report.ReadCSV(f)
		if err != nil {
			logrus.Fatalf("Cannot parse bias table: %v", err)
		}

		summary := report.Summarize(table)
		fmt.Printf("%-18s %-4s %10s %12s %12s %6s\n", "method", "param", "mean", "mean_bias", "mean_|bias|", "reps")
		for _, c := range summary.Cells {
			fmt.Printf("%-18s %-4s %10.4f %+12.4f %12.4f %6d\n",
				c.Method, c.Param, c.MeanEstimate, c.MeanBias, c.MeanAbsBias, c.Replicates)
		}
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeInput, "input", "", "Bias table CSV to summarize")
	summarizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(summarizeCmd)
}
