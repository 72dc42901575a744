package main

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lucasew/logroll"
	"github.com/lucasew/logroll/internal/errutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var teeCmd = &cobra.Command{
	Use:   "tee",
	Short: "Copy stdin into a rotating sink (and stdout)",
	Long:  `tee reads stdin and appends it to a rotating, size-capped set of backing files, echoing to stdout like tee(1). Intended for piping a long-running process into a fixed disk budget: app | logroll tee --dir /var/log/app`,
	Run: func(cmd *cobra.Command, args []string) {
		sink, err := logroll.Open(logroll.Config{
			Dir:            viper.GetString("dir"),
			Prefix:         viper.GetString("prefix"),
			Threshold:      viper.GetInt64("threshold"),
			Cap:            viper.GetInt64("cap"),
			MaxLines:       viper.GetInt64("max-lines"),
			MaxAge:         viper.GetDuration("max-age"),
			ProtectedFiles: viper.GetInt("protect"),
			MinFreeSpace:   viper.GetInt64("min-free-space"),
			Strategy:       viper.GetString("strategy"),
			JournalPath:    viper.GetString("journal"),
		})
		if err != nil {
			errutil.ReportError(err, "Failed to open sink")
			os.Exit(1)
		}

		quiet := viper.GetBool("quiet")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			// Closing the sink on shutdown makes the copy loop's next
			// write return ErrClosed, which is a clean stop.
			<-ctx.Done()
			return sink.Close()
		})

		g.Go(func() error {
			defer stop()
			buf := make([]byte, 32*1024)
			for {
				n, readErr := os.Stdin.Read(buf)
				if n > 0 {
					if _, err := sink.Write(buf[:n]); err != nil {
						if errors.Is(err, logroll.ErrClosed) {
							return nil
						}
						return err
					}
					if !quiet {
						if _, err := os.Stdout.Write(buf[:n]); err != nil {
							return err
						}
					}
				}
				if readErr == io.EOF {
					return nil
				}
				if readErr != nil {
					return readErr
				}
			}
		})

		if err := g.Wait(); err != nil {
			errutil.ReportError(err, "Tee failed")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(teeCmd)

	teeCmd.Flags().String("dir", "./logs", "Directory to store backing files")
	teeCmd.Flags().String("prefix", "app", "Backing file name prefix")
	teeCmd.Flags().Int64("threshold", 10*1024*1024, "Per-file size in bytes that triggers rotation (default 10MB)")
	teeCmd.Flags().Int64("cap", 100*1024*1024, "Total byte budget across backing files (default 100MB)")
	teeCmd.Flags().Int64("max-lines", 0, "Also rotate after this many lines (0 disables)")
	teeCmd.Flags().Duration("max-age", 0, "Also rotate once the open file is this old (0 disables)")
	teeCmd.Flags().Int("protect", 1, "Newest closed files exempt from eviction")
	teeCmd.Flags().Int64("min-free-space", 0, "Evict harder when disk free space drops below this many bytes (0 disables)")
	teeCmd.Flags().String("strategy", "oldest", "Eviction strategy to use (oldest)")
	teeCmd.Flags().String("journal", "", "Path of an optional sqlite journal of rotations and evictions")
	teeCmd.Flags().Bool("quiet", false, "Do not echo to stdout")

	viper.BindPFlag("dir", teeCmd.Flags().Lookup("dir"))
	viper.BindPFlag("prefix", teeCmd.Flags().Lookup("prefix"))
	viper.BindPFlag("threshold", teeCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("cap", teeCmd.Flags().Lookup("cap"))
	viper.BindPFlag("max-lines", teeCmd.Flags().Lookup("max-lines"))
	viper.BindPFlag("max-age", teeCmd.Flags().Lookup("max-age"))
	viper.BindPFlag("protect", teeCmd.Flags().Lookup("protect"))
	viper.BindPFlag("min-free-space", teeCmd.Flags().Lookup("min-free-space"))
	viper.BindPFlag("strategy", teeCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("journal", teeCmd.Flags().Lookup("journal"))
	viper.BindPFlag("quiet", teeCmd.Flags().Lookup("quiet"))
}
