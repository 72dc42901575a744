package main

import (
	"fmt"
	"os"

	"github.com/lucasew/logroll/internal/errutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "logroll",
	Short: "A disk-space-bounded rotating file sink",
	Long:  `logroll splits an append-only byte stream across rotating backing files and deletes the oldest ones to keep the total size under a fixed budget.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, printErr := fmt.Fprintln(os.Stderr, err); printErr != nil {
			errutil.ReportError(printErr, "Failed to print error to stderr")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvPrefix("LOGROLL")
	viper.AutomaticEnv()
}
