package cmd

import (
	"fmt"
	glog "log"
	"os"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
)

// exit codes of the anonymizer
const (
	exitOK         = 0
	exitUsage      = 1
	exitIncomplete = 3
)

const defaultDataDir = ".anonymizer"

// Version is set in main.
var Version = "dev"

func mustFlagBool(cmd *cobra.Command, name string, required bool) bool {
	val, err := cmd.Flags().GetBool(name)
	if required && err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(exitUsage)
	}
	return val
}

func mustFlagString(cmd *cobra.Command, name string, required bool) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(exitUsage)
	}
	if required && val == "" {
		fmt.Printf("error: required flag --%s missing\n", name)
		os.Exit(exitUsage)
	}
	return val
}

func mustFlagInt(cmd *cobra.Command, name string, required bool) int {
	val, err := cmd.Flags().GetInt(name)
	if required && err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(exitUsage)
	}
	return val
}

func mustFlagStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(exitUsage)
	}
	return val
}

func newLogger(cmd *cobra.Command) logger.Logger {
	glog.SetFlags(0)
	if mustFlagBool(cmd, "verbose", false) {
		return logger.NewConsoleLogger(logger.LevelTrace)
	}
	if mustFlagBool(cmd, "silent", false) {
		return logger.NewConsoleLogger(logger.LevelError)
	}
	return logger.NewConsoleLogger(logger.LevelInfo)
}

// quietSpinner is true when the spinner would interleave with the log output or no output is wanted.
func quietSpinner(cmd *cobra.Command) bool {
	return mustFlagBool(cmd, "verbose", false) || mustFlagBool(cmd, "silent", false)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anonymizer",
	Short: "Replace the sensitive values of a relational snapshot with realistic fake data",
	Long: `Replace the sensitive values of a relational snapshot with realistic fake data.

Primary and foreign keys are remapped consistently so that every join of the original
snapshot still holds in the anonymized copy.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(exitUsage)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "turn on verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "only log errors")
}
