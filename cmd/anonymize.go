package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/orchestrator"
	"github.com/shopmonkeyus/anonymizer/internal/snapshot"
	"github.com/shopmonkeyus/anonymizer/internal/tracker"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	csys "github.com/shopmonkeyus/go-common/sys"
	"github.com/spf13/cobra"

	// register the snapshot drivers
	_ "github.com/shopmonkeyus/anonymizer/internal/snapshot/database"
	_ "github.com/shopmonkeyus/anonymizer/internal/snapshot/file"
)

const runRetention = 30 * 24 * time.Hour

var errRunIncomplete = errors.New("the run did not complete successfully, the snapshot was not written")

type anonymizeOptions struct {
	Source     string
	Target     string
	Only       []string
	Config     *internal.AnonymizationConfig
	ConfigHash string
	DryRun     bool
	Force      bool
	DataDir    string
	Quiet      bool
}

func maskURL(val string) string {
	if masked, err := util.MaskURL(val); err == nil {
		return masked
	}
	return val
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func readSnapshot(ctx context.Context, log logger.Logger, source string, only []string, quiet bool) ([]*internal.RelationalTable, error) {
	reader, err := snapshot.NewReader(ctx, log, source, only)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	var tables []*internal.RelationalTable
	err = util.RunTaskWithSpinner(ctx, "Reading snapshot...", quiet, func() error {
		var rerr error
		tables, rerr = reader.Read(ctx)
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}
	return tables, nil
}

// runAnonymize reads the source snapshot, anonymizes it and writes it to the target. The run is recorded in
// the history of the data directory even when it fails after the anonymization.
func runAnonymize(ctx context.Context, log logger.Logger, opts anonymizeOptions) (*tracker.Run, error) {
	tables, err := readSnapshot(ctx, log, opts.Source, opts.Only, opts.Quiet)
	if err != nil {
		return nil, err
	}

	o, err := orchestrator.New(orchestrator.Config{Logger: log, Config: opts.Config})
	if err != nil {
		return nil, err
	}
	result, err := o.AnonymizeDataset(ctx, tables)
	if err != nil {
		return nil, err
	}

	run := &tracker.Run{
		ID:         result.RunID,
		Source:     maskURL(opts.Source),
		Target:     maskURL(opts.Target),
		ConfigHash: opts.ConfigHash,
		DryRun:     opts.DryRun,
		Result:     result,
	}

	var runErr error
	if result.Success || opts.Force {
		if !result.Success {
			log.Warn("writing the snapshot of an unsuccessful run")
		}
		runErr = writeSnapshot(ctx, log, opts, tables)
	} else {
		runErr = errRunIncomplete
	}

	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		log.Warn("unable to record the run: %s", err)
		return run, runErr
	}
	t, err := tracker.NewTracker(tracker.TrackerConfig{Context: ctx, Logger: log, Dir: opts.DataDir})
	if err != nil {
		log.Warn("unable to record the run: %s", err)
		return run, runErr
	}
	defer t.Close()
	if err := t.SaveRun(run, runRetention); err != nil {
		log.Warn("unable to record the run: %s", err)
	}
	return run, runErr
}

func writeSnapshot(ctx context.Context, log logger.Logger, opts anonymizeOptions, tables []*internal.RelationalTable) error {
	writer, err := snapshot.NewWriter(ctx, log, opts.Target, opts.DryRun)
	if err != nil {
		return err
	}
	defer writer.Close()
	err = util.RunTaskWithSpinner(ctx, "Writing snapshot...", opts.Quiet, func() error {
		return writer.Write(ctx, tables)
	})
	if err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	return nil
}

func runMetricsServer(log logger.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		defer util.RecoverPanic(log)
		if err := http.ListenAndServe(fmt.Sprintf("127.0.0.1:%d", port), mux); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start metrics server: %s", err)
		}
	}()
	log.Debug("metrics available at http://127.0.0.1:%d/metrics", port)
}

func confirmWrite(log logger.Logger, target string) bool {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("\n🚨 WARNING 🚨"),
			huh.NewConfirm().
				Title(fmt.Sprintf("YOU ARE ABOUT TO REPLACE EVERY ROW OF THE SNAPSHOT TABLES IN %s", maskURL(target))).
				Affirmative("Confirm").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	form.WithTheme(huh.ThemeBase())
	if err := form.Run(); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			log.Error("error running form: %s", err)
			log.Info("You may use --confirm to skip this prompt")
			os.Exit(exitUsage)
		}
	}
	return confirmed
}

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize",
	Short: "Anonymize a snapshot and write it to a target",
	Long: `Anonymize a snapshot and write it to a target.

Read a snapshot from files and write the anonymized copy to another directory:

	anonymizer anonymize --source ./export --target ./anonymized

Anonymize a database into another database:

	anonymizer anonymize --source postgres://localhost/prod --target postgres://localhost/staging --config anonymizer.yaml
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		log.Trace("running %s", strings.Join(util.MaskArguments(os.Args), " "))

		source := util.ToSnapshotURL(mustFlagString(cmd, "source", true))
		target := util.ToSnapshotURL(mustFlagString(cmd, "target", true))
		dryRun := mustFlagBool(cmd, "dry-run", false)
		confirmed := mustFlagBool(cmd, "confirm", false)

		cfg, hash, err := loadConfig(cmd)
		if err != nil {
			log.Error("%s", err)
			os.Exit(exitUsage)
		}
		log.Trace("using configuration %s", hash)

		if !dryRun && !confirmed && !strings.HasPrefix(target, "file://") {
			if !confirmWrite(log, target) {
				os.Exit(exitOK)
			}
		}

		if dryRun {
			log.Info("🚨 Dry run enabled")
		}

		if port := mustFlagInt(cmd, "metrics-port", false); port > 0 {
			runMetricsServer(log, port)
		}

		started := time.Now()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			select {
			case <-ctx.Done():
				return
			case <-csys.CreateShutdownChannel():
				log.Info("shutting down, tables which have not started will be skipped")
				cancel()
				return
			}
		}()

		run, err := runAnonymize(ctx, log, anonymizeOptions{
			Source:     source,
			Target:     target,
			Only:       mustFlagStringSlice(cmd, "only"),
			Config:     cfg,
			ConfigHash: hash,
			DryRun:     dryRun,
			Force:      mustFlagBool(cmd, "force", false),
			DataDir:    mustFlagString(cmd, "data-dir", true),
			Quiet:      quietSpinner(cmd),
		})
		if run != nil {
			printSummary(os.Stdout, run)
		}
		if stats, serr := internal.GetSystemStats(); serr == nil {
			log.Trace("system stats: %s", util.JSONStringify(stats))
		}
		if err != nil {
			log.Error("%s", err)
			if errors.Is(err, errRunIncomplete) {
				os.Exit(exitIncomplete)
			}
			os.Exit(exitUsage)
		}
		if !run.Result.Success || isCancelled(ctx) {
			os.Exit(exitIncomplete)
		}
		log.Info("👋 Anonymized %d tables in %v", run.Result.ProcessedTables, time.Since(started))
	},
}

func init() {
	rootCmd.AddCommand(anonymizeCmd)
	addConfigFlags(anonymizeCmd)
	anonymizeCmd.Flags().String("source", "", "the snapshot to anonymize, a directory or a database url")
	anonymizeCmd.Flags().String("target", "", "where the anonymized snapshot is written, a directory or a database url")
	anonymizeCmd.Flags().StringSlice("only", nil, "only read these tables from the source")
	anonymizeCmd.Flags().Bool("dry-run", false, "only log what would be written to the target")
	anonymizeCmd.Flags().Bool("confirm", false, "skip the confirmation prompt")
	anonymizeCmd.Flags().Bool("force", false, "write the snapshot even when the run was not successful")
	anonymizeCmd.Flags().String("data-dir", defaultDataDir, "the directory of the run history")
	anonymizeCmd.Flags().Int("metrics-port", 0, "serve prometheus metrics on this port while running")
}
