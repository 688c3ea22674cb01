package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "ANONYMIZER"

type columnType struct {
	Column string `mapstructure:"column"`
	Type   string `mapstructure:"type"`
}

// configFile is the decoded configuration document.
type configFile struct {
	PreserveRelationships bool                              `mapstructure:"preserve_relationships"`
	GenerateRealisticData bool                              `mapstructure:"generate_realistic_data"`
	FinancialRanges       []internal.FinancialRange         `mapstructure:"financial_ranges"`
	ExcludeTables         []string                          `mapstructure:"exclude_tables"`
	ExcludeColumns        []string                          `mapstructure:"exclude_columns"`
	Relationships         []internal.ForeignKeyRelationship `mapstructure:"relationships"`
	ColumnTypes           []columnType                      `mapstructure:"column_types"`
	JitterPercent         float64                           `mapstructure:"jitter_percent"`
	Seed                  uint64                            `mapstructure:"seed"`
	Parallelism           int                               `mapstructure:"parallelism"`
	Deadline              time.Duration                     `mapstructure:"deadline"`
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "the configuration file (yaml, toml or json)")
	cmd.Flags().StringSlice("exclude-table", nil, "tables to pass through unchanged")
	cmd.Flags().StringSlice("exclude-column", nil, "columns to pass through unchanged")
	cmd.Flags().Int("parallel", 0, "the number of tables anonymized in parallel, defaults to the number of cpus")
	cmd.Flags().Uint64("seed", 0, "the seed of the fake data generator, random when 0")
	cmd.Flags().Duration("deadline", 0, "the time limit of the run, tables not started in time are skipped")
	cmd.Flags().Bool("no-relationships", false, "anonymize key columns independently instead of preserving joins")
	cmd.Flags().Bool("no-realistic", false, "generate random text instead of realistic fake data")
}

// readConfigFile returns the raw settings of the configuration file.
func readConfigFile(fn string) (map[string]any, error) {
	fv := viper.New()
	fv.SetConfigFile(fn)
	if err := fv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", fn, err)
	}
	return fv.AllSettings(), nil
}

func newConfigViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("preserve_relationships", true)
	v.SetDefault("generate_realistic_data", true)
	v.SetDefault("jitter_percent", internal.DefaultJitterPercent)
	v.SetDefault("exclude_tables", []string{})
	v.SetDefault("exclude_columns", []string{})

	if fn := mustFlagString(cmd, "config", false); fn != "" {
		doc, err := readConfigFile(fn)
		if err != nil {
			return nil, err
		}
		validator, err := util.NewConfigValidator()
		if err != nil {
			return nil, err
		}
		if err := validator.Validate(doc); err != nil {
			return nil, internal.NewConfigurationError("%s: %s", fn, err)
		}
		if err := v.MergeConfigMap(doc); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", fn, err)
		}
	}

	for key, flag := range map[string]string{"parallelism": "parallel", "seed": "seed", "deadline": "deadline"} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	if mustFlagBool(cmd, "no-relationships", false) {
		v.Set("preserve_relationships", false)
	}
	if mustFlagBool(cmd, "no-realistic", false) {
		v.Set("generate_realistic_data", false)
	}
	return v, nil
}

// loadConfig layers the configuration file, the environment and the flags and returns the validated
// configuration with its fingerprint.
func loadConfig(cmd *cobra.Command) (*internal.AnonymizationConfig, string, error) {
	v, err := newConfigViper(cmd)
	if err != nil {
		return nil, "", err
	}
	var fc configFile
	if err := v.Unmarshal(&fc); err != nil {
		return nil, "", internal.NewConfigurationError("error decoding configuration: %s", err)
	}
	opts := []internal.ConfigOption{
		internal.WithPreserveRelationships(fc.PreserveRelationships),
		internal.WithGenerateRealisticData(fc.GenerateRealisticData),
		internal.WithExcludeTables(fc.ExcludeTables...),
		internal.WithExcludeTables(mustFlagStringSlice(cmd, "exclude-table")...),
		internal.WithExcludeColumns(fc.ExcludeColumns...),
		internal.WithExcludeColumns(mustFlagStringSlice(cmd, "exclude-column")...),
		internal.WithRelationships(fc.Relationships...),
		internal.WithJitterPercent(fc.JitterPercent),
		internal.WithSeed(fc.Seed),
		internal.WithParallelism(fc.Parallelism),
		internal.WithDeadline(fc.Deadline),
	}
	for _, r := range fc.FinancialRanges {
		opts = append(opts, internal.WithFinancialRange(r.Pattern, r.Min, r.Max))
	}
	for _, ct := range fc.ColumnTypes {
		t, err := internal.ParseAnonymizationType(ct.Type)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, internal.WithColumnType(ct.Column, t))
	}
	cfg, err := internal.NewAnonymizationConfig(opts...)
	if err != nil {
		return nil, "", err
	}
	return cfg, util.Fingerprint(configDocument(cfg)), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// configDocument returns the configuration in the form of a configuration file.
func configDocument(cfg *internal.AnonymizationConfig) map[string]any {
	doc := map[string]any{
		"preserve_relationships":  cfg.PreserveRelationships,
		"generate_realistic_data": cfg.GenerateRealisticData,
		"jitter_percent":          cfg.JitterPercent,
		"seed":                    cfg.Seed,
		"parallelism":             cfg.Parallelism,
	}
	if cfg.Deadline > 0 {
		doc["deadline"] = cfg.Deadline.String()
	}
	if len(cfg.FinancialRanges) > 0 {
		ranges := make([]map[string]any, 0, len(cfg.FinancialRanges))
		for _, r := range cfg.FinancialRanges {
			ranges = append(ranges, map[string]any{"pattern": r.Pattern, "min": r.Min, "max": r.Max})
		}
		doc["financial_ranges"] = ranges
	}
	if tables := sortedKeys(cfg.ExcludeTables); len(tables) > 0 {
		doc["exclude_tables"] = tables
	}
	if columns := sortedKeys(cfg.ExcludeColumns); len(columns) > 0 {
		doc["exclude_columns"] = columns
	}
	if len(cfg.Relationships) > 0 {
		rels := make([]map[string]any, 0, len(cfg.Relationships))
		for _, r := range cfg.Relationships {
			rel := map[string]any{
				"source_table":  r.SourceTable,
				"source_column": r.SourceColumn,
				"target_table":  r.TargetTable,
				"target_column": r.TargetColumn,
			}
			if r.Type != "" {
				rel["relationship_type"] = string(r.Type)
			}
			rels = append(rels, rel)
		}
		doc["relationships"] = rels
	}
	if len(cfg.ColumnTypes) > 0 {
		columns := make([]map[string]any, 0, len(cfg.ColumnTypes))
		for _, column := range sortedKeys(cfg.ColumnTypes) {
			columns = append(columns, map[string]any{"column": column, "type": string(cfg.ColumnTypes[column])})
		}
		doc["column_types"] = columns
	}
	return doc
}

// writeConfigDocument writes the configuration as TOML.
func writeConfigDocument(w io.Writer, cfg *internal.AnonymizationConfig) error {
	return toml.NewEncoder(w).Encode(configDocument(cfg))
}
