package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lucasew/logroll/internal/errutil"
	"github.com/lucasew/logroll/internal/segment"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the backing files of a sink directory",
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := cmd.Flags().GetString("dir")
		if err != nil {
			errutil.ReportError(err, "Failed to get dir flag")
			os.Exit(1)
		}
		prefix, err := cmd.Flags().GetString("prefix")
		if err != nil {
			errutil.ReportError(err, "Failed to get prefix flag")
			os.Exit(1)
		}

		namer := segment.Namer{Dir: dir, Prefix: prefix}
		set, err := segment.Scan(dir, namer)
		if err != nil {
			errutil.ReportError(err, "Failed to scan directory")
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tSIZE\tPATH")
		for _, f := range set {
			fmt.Fprintf(w, "%d\t%d\t%s\n", f.Index, f.Size, f.Path)
		}
		if err := w.Flush(); err != nil {
			errutil.ReportError(err, "Failed to flush output")
			os.Exit(1)
		}

		fmt.Printf("total: %d files, %d bytes\n", len(set), set.TotalBytes())
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().String("dir", "./logs", "Directory holding the backing files")
	lsCmd.Flags().String("prefix", "app", "Backing file name prefix")
}
