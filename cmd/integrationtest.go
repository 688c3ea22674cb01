package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/integrationtest"
	"github.com/shopmonkeyus/anonymizer/internal/snapshot"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
)

func RunWithLogAndRecover(fn func(cmd *cobra.Command, args []string, log logger.Logger)) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer func() {
			if err := recover(); err != nil {
				log.Error("error running integration test: %s", err)
				os.Exit(exitUsage)
			}
		}()
		fn(cmd, args, log)
	}
}

// runRoundTrip writes a generated snapshot to the source directory, anonymizes it into the target and
// verifies what was written against the generated snapshot.
func runRoundTrip(ctx context.Context, log logger.Logger, seed int64, customers int, opts anonymizeOptions) ([]error, error) {
	original := integrationtest.GenerateSnapshot(seed, customers)
	writer, err := snapshot.NewWriter(ctx, log, opts.Source, false)
	if err != nil {
		return nil, err
	}
	defer writer.Close()
	if err := writer.Write(ctx, integrationtest.GenerateSnapshot(seed, customers)); err != nil {
		return nil, fmt.Errorf("error writing sample snapshot: %w", err)
	}
	if _, err := runAnonymize(ctx, log, opts); err != nil {
		return nil, err
	}
	only := make([]string, 0, len(original))
	for _, t := range original {
		only = append(only, t.Name)
	}
	anonymized, err := readSnapshot(ctx, log, opts.Target, only, opts.Quiet)
	if err != nil {
		return nil, err
	}
	return integrationtest.Verify(original, anonymized, integrationtest.VerifyOptions{
		Relationships: integrationtest.Relationships,
		PII:           integrationtest.PIIColumns,
		Ordered:       strings.HasPrefix(opts.Target, "file://"),
	}), nil
}

var integrationtestCmd = &cobra.Command{
	Use:    "integrationtest",
	Short:  "Run integration tests",
	Long:   "Run integration tests of the anonymizer against generated snapshots",
	Hidden: true,
}

var roundTripCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "Anonymize a generated snapshot and verify the result",
	Long:  "Generate a sample shop snapshot, anonymize it into the target and verify that every key still resolves and no PII survived",
	Run: RunWithLogAndRecover(func(cmd *cobra.Command, args []string, log logger.Logger) {
		seed, _ := cmd.Flags().GetInt64("seed")
		customers, _ := cmd.Flags().GetInt("customers")

		tmp, err := os.MkdirTemp("", "anonymizer-roundtrip-*")
		if err != nil {
			log.Error("error creating temp directory: %s", err)
			os.Exit(exitUsage)
		}
		defer os.RemoveAll(tmp)

		target := mustFlagString(cmd, "target", false)
		if target == "" {
			target = util.ToFileURI(tmp, "target")
		}
		config, err := internal.NewAnonymizationConfig(internal.WithSeed(uint64(seed)))
		if err != nil {
			log.Error("%s", err)
			os.Exit(exitUsage)
		}

		log.Info("Starting roundtrip integration test with %d customers", customers)
		errs, err := runRoundTrip(context.Background(), log, seed, customers, anonymizeOptions{
			Source:  util.ToFileURI(tmp, "source"),
			Target:  util.ToSnapshotURL(target),
			Config:  config,
			DataDir: tmp,
			Quiet:   true,
		})
		if err != nil {
			log.Error("%s", err)
			os.Exit(exitIncomplete)
		}
		for _, err := range errs {
			log.Error("%s", err)
		}
		if len(errs) > 0 {
			os.Exit(exitIncomplete)
		}
		log.Info("Completed roundtrip integration test into %s", maskURL(target))
	}),
}

func init() {
	roundTripCmd.Flags().Int64("seed", 1, "the seed of the generated snapshot")
	roundTripCmd.Flags().Int("customers", 100, "the number of customers to generate")
	roundTripCmd.Flags().String("target", "", "the target of the anonymized snapshot, a temp directory when empty")

	integrationtestCmd.AddCommand(roundTripCmd)
	rootCmd.AddCommand(integrationtestCmd)
}
