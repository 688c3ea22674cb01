package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
)

// validateSnapshot checks the relationships of the snapshot combined with the configured ones and returns the
// order in which the tables would be processed.
func validateSnapshot(log logger.Logger, cfg *internal.AnonymizationConfig, tables []*internal.RelationalTable) ([]internal.TableDependency, error) {
	names := make([]string, 0, len(tables))
	present := make(map[string]bool, len(tables))
	rels := append([]internal.ForeignKeyRelationship{}, cfg.Relationships...)
	for _, t := range tables {
		names = append(names, t.Name)
		present[t.Name] = true
		for _, rel := range t.Relationships {
			if rel.SourceTable == "" {
				rel.SourceTable = t.Name
			}
			rels = append(rels, rel)
		}
	}
	rels, err := internal.ValidateRelationships(rels)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		if !present[rel.SourceTable] {
			log.Warn("%s is declared for a table which is not in the snapshot", rel)
		} else if !present[rel.TargetTable] {
			log.Warn("%s references a table which is not in the snapshot, its values will be reported as dangling", rel)
		}
	}
	for name := range cfg.ExcludeTables {
		if !present[name] {
			log.Warn("excluded table %s is not in the snapshot", name)
		}
	}
	return internal.ProcessingOrder(names, rels)
}

func printOrder(w io.Writer, order []internal.TableDependency) {
	fmt.Fprintf(w, "%s\n", whiteBold("Processing order"))
	for i, dep := range order {
		if len(dep.DependsOn) > 0 {
			fmt.Fprintf(w, "  %3d. %s %s\n", i+1, dep.Table, faint("→ "+strings.Join(dep.DependsOn, ", ")))
		} else {
			fmt.Fprintf(w, "  %3d. %s\n", i+1, dep.Table)
		}
	}
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and optionally the relationships of a snapshot",
	Long: `Validate the configuration and optionally the relationships of a snapshot without writing anything.

Validate a configuration file and print the effective configuration:

	anonymizer validate --config anonymizer.yaml --print

Validate the configuration against the foreign keys of a database:

	anonymizer validate --config anonymizer.yaml --source postgres://localhost/prod
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		cfg, hash, err := loadConfig(cmd)
		if err != nil {
			log.Error("%s", err)
			os.Exit(exitUsage)
		}
		log.Info("configuration %s is valid", hash)

		if mustFlagBool(cmd, "print", false) {
			if err := writeConfigDocument(os.Stdout, cfg); err != nil {
				log.Error("error printing configuration: %s", err)
				os.Exit(exitUsage)
			}
		}

		source := mustFlagString(cmd, "source", false)
		if source == "" {
			return
		}
		tables, err := readSnapshot(context.Background(), log, util.ToSnapshotURL(source), mustFlagStringSlice(cmd, "only"), quietSpinner(cmd))
		if err != nil {
			log.Error("%s", err)
			os.Exit(exitUsage)
		}
		order, err := validateSnapshot(log, cfg, tables)
		if err != nil {
			log.Error("%s", err)
			os.Exit(exitUsage)
		}
		printOrder(os.Stdout, order)
		log.Info("snapshot with %d tables is valid", len(tables))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlags(validateCmd)
	validateCmd.Flags().String("source", "", "the snapshot whose relationships are validated, a directory or a database url")
	validateCmd.Flags().StringSlice("only", nil, "only read these tables from the source")
	validateCmd.Flags().Bool("print", false, "print the effective configuration as toml")
}
