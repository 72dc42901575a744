package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lucasew/logroll/internal/errutil"
	"github.com/lucasew/logroll/internal/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal <path>",
	Short: "Show the most recent rotation and eviction events",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			errutil.ReportError(err, "Failed to get limit flag")
			os.Exit(1)
		}

		j, err := journal.Open(path)
		if err != nil {
			errutil.ReportError(err, "Failed to open journal")
			os.Exit(1)
		}
		defer func() {
			errutil.LogMsg(j.Close(), "Failed to close journal")
		}()

		events, err := j.Events(cmd.Context(), limit)
		if err != nil {
			errutil.ReportError(err, "Failed to read journal")
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AT\tKIND\tINDEX\tSIZE\tPATH")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				e.At.Format(time.RFC3339), e.Kind, e.Index, e.Size, e.Path)
		}
		if err := w.Flush(); err != nil {
			errutil.ReportError(err, "Failed to flush output")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().Int("limit", 50, "Maximum number of events to show")
}
