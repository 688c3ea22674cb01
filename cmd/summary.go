package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/tracker"
)

var (
	green     = color.New(color.FgGreen).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	whiteBold = color.New(color.FgWhite, color.Bold).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

func status(result *internal.RunResult) string {
	switch {
	case result == nil:
		return red("unknown")
	case result.Success:
		return green("success")
	case result.Partial:
		return yellow("partial")
	}
	return red("failed")
}

// printSummary writes the summary of a run.
func printSummary(w io.Writer, run *tracker.Run) {
	result := run.Result
	fmt.Fprintf(w, "\n%s %s %s\n", whiteBold("Run"), run.ID, status(result))
	fmt.Fprintf(w, "%s %s → %s\n", faint("snapshot"), run.Source, run.Target)
	if run.DryRun {
		fmt.Fprintf(w, "%s\n", yellow("dry run, nothing was written"))
	}
	if result == nil {
		return
	}
	fmt.Fprintln(w)
	for _, t := range result.Tables {
		name := t.Name
		if t.Failed {
			name = red(name)
		}
		fmt.Fprintf(w, "  %-30s %8d rows %8d fields %8d remapped %10s\n", name, t.Rows, t.Fields, t.Remapped, t.Duration.Round(time.Millisecond))
	}
	for _, name := range result.ExcludedTables {
		fmt.Fprintf(w, "  %-30s %s\n", name, faint("excluded"))
	}
	for _, name := range result.SkippedTables {
		fmt.Fprintf(w, "  %-30s %s\n", name, yellow("skipped"))
	}
	stats := result.RelationshipStats
	fmt.Fprintf(w, "\n%s %d relationships, %d identity columns, %d identifiers remapped, %d references rewritten, %d dangling\n",
		whiteBold("Keys"), stats.Relationships, stats.IdentityColumns, stats.IdentifiersRemapped, stats.ReferencesRewritten, stats.DanglingReferences)
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "\n%s\n", whiteBold("Errors"))
		for _, e := range result.Errors {
			line := e.String()
			if e.Recovered {
				fmt.Fprintf(w, "  %s\n", yellow(line))
			} else {
				fmt.Fprintf(w, "  %s\n", red(line))
			}
		}
	}
	fmt.Fprintf(w, "\n%s %d tables in %s\n", whiteBold("Processed"), result.ProcessedTables, result.Duration.Round(time.Millisecond))
}
