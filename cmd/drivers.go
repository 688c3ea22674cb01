package cmd

import (
	"fmt"
	"io"

	"github.com/shopmonkeyus/anonymizer/internal/snapshot"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/spf13/cobra"
)

func printDrivers(w io.Writer, drivers []snapshot.DriverMetadata) {
	for _, md := range drivers {
		fmt.Fprintf(w, "%s (%s://)\n", whiteBold(md.Name), md.Scheme)
		if md.Description != "" {
			fmt.Fprintf(w, "  %s\n", md.Description)
		}
		if md.ExampleURL != "" {
			fmt.Fprintf(w, "  %s %s\n", faint("example:"), md.ExampleURL)
		}
		if md.Help != "" {
			fmt.Fprintf(w, "\n%s", md.Help)
		}
		fmt.Fprintln(w)
	}
}

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List the supported snapshot sources and targets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		drivers := snapshot.Drivers()
		if mustFlagBool(cmd, "json", false) {
			fmt.Println(util.JSONStringify(drivers))
			return
		}
		printDrivers(cmd.OutOrStdout(), drivers)
	},
}

func init() {
	rootCmd.AddCommand(driversCmd)
	driversCmd.Flags().Bool("json", false, "print the drivers as json")
}
