package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopmonkeyus/anonymizer/internal/tracker"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/spf13/cobra"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printHistory(w io.Writer, runs []*tracker.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	for _, run := range runs {
		var tables, rows, errs int
		if run.Result != nil {
			tables = run.Result.ProcessedTables
			errs = len(run.Result.Errors)
			for _, t := range run.Result.Tables {
				rows += t.Rows
			}
		}
		dryRun := ""
		if run.DryRun {
			dryRun = yellow(" dry-run")
		}
		fmt.Fprintf(w, "%s  %s  %-8s %4d tables %9d rows %4d errors  %s → %s%s\n",
			whiteBold(shortID(run.ID)),
			run.CompletedAt.Local().Format(time.DateTime),
			status(run.Result),
			tables, rows, errs,
			run.Source, run.Target,
			dryRun,
		)
	}
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show the recent anonymization runs",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		dataDir := mustFlagString(cmd, "data-dir", true)
		if !util.Exists(tracker.TrackerFilenameFromDir(dataDir)) {
			fmt.Println("no runs recorded")
			return
		}
		t, err := tracker.NewTracker(tracker.TrackerConfig{Context: cmd.Context(), Logger: log, Dir: dataDir})
		if err != nil {
			log.Error("error opening run history: %s", err)
			os.Exit(exitUsage)
		}
		defer t.Close()

		if len(args) == 1 {
			run, err := t.GetRun(args[0])
			if err != nil {
				log.Error("%s", err)
				os.Exit(exitUsage)
			}
			if run == nil {
				log.Error("run %s not found", args[0])
				os.Exit(exitUsage)
			}
			if mustFlagBool(cmd, "json", false) {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				enc.Encode(run)
				return
			}
			printSummary(os.Stdout, run)
			return
		}

		runs, err := t.ListRuns(mustFlagInt(cmd, "limit", false))
		if err != nil {
			log.Error("%s", err)
			os.Exit(exitUsage)
		}
		if mustFlagBool(cmd, "json", false) {
			fmt.Println(util.JSONStringify(runs))
			return
		}
		printHistory(os.Stdout, runs)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("data-dir", defaultDataDir, "the directory of the run history")
	historyCmd.Flags().Int("limit", 20, "the maximum number of runs to show, 0 shows every run")
	historyCmd.Flags().Bool("json", false, "print the runs as json")
}
