package internal

import (
	"math"
	"path"
	"runtime"
	"sort"
	"strings"
	"time"
)

// DefaultJitterPercent is the proportional jitter applied to financial values without a configured range.
const DefaultJitterPercent = 0.30

// FinancialRange bounds the replacement values for the columns whose name matches Pattern.
type FinancialRange struct {
	Pattern string  `json:"pattern" msgpack:"pattern"`
	Min     float64 `json:"min" msgpack:"min"`
	Max     float64 `json:"max" msgpack:"max"`
}

// Matches returns true if the column name matches the pattern. Patterns with glob characters are
// matched with path.Match, the others as a case insensitive substring.
func (r FinancialRange) Matches(column string) bool {
	pattern := strings.ToLower(r.Pattern)
	name := strings.ToLower(column)
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
	return strings.Contains(name, pattern)
}

// AnonymizationConfig is the immutable configuration of a single run. Use NewAnonymizationConfig to build one.
type AnonymizationConfig struct {
	PreserveRelationships bool
	GenerateRealisticData bool
	FinancialRanges       []FinancialRange
	ExcludeTables         map[string]bool
	ExcludeColumns        map[string]bool

	// Relationships are declared in addition to the ones carried by the tables.
	Relationships []ForeignKeyRelationship

	// ColumnTypes are explicit anonymization types keyed by "table.column" or "column".
	ColumnTypes map[string]AnonymizationType

	JitterPercent float64
	Seed          uint64
	Parallelism   int
	Deadline      time.Duration
}

// ConfigOption mutates the configuration while it is being built.
type ConfigOption func(*AnonymizationConfig)

func WithPreserveRelationships(val bool) ConfigOption {
	return func(c *AnonymizationConfig) { c.PreserveRelationships = val }
}

func WithGenerateRealisticData(val bool) ConfigOption {
	return func(c *AnonymizationConfig) { c.GenerateRealisticData = val }
}

// WithFinancialRange appends a range, earlier ranges win when several patterns match.
func WithFinancialRange(pattern string, min, max float64) ConfigOption {
	return func(c *AnonymizationConfig) {
		c.FinancialRanges = append(c.FinancialRanges, FinancialRange{Pattern: pattern, Min: min, Max: max})
	}
}

// WithFinancialRanges appends the ranges of the map ordered by pattern specificity.
func WithFinancialRanges(ranges map[string]FinancialRange) ConfigOption {
	return func(c *AnonymizationConfig) {
		patterns := make([]string, 0, len(ranges))
		for pattern := range ranges {
			patterns = append(patterns, pattern)
		}
		sort.Slice(patterns, func(i, j int) bool {
			if len(patterns[i]) != len(patterns[j]) {
				return len(patterns[i]) > len(patterns[j])
			}
			return patterns[i] < patterns[j]
		})
		for _, pattern := range patterns {
			r := ranges[pattern]
			r.Pattern = pattern
			c.FinancialRanges = append(c.FinancialRanges, r)
		}
	}
}

func WithExcludeTables(tables ...string) ConfigOption {
	return func(c *AnonymizationConfig) {
		for _, t := range tables {
			c.ExcludeTables[t] = true
		}
	}
}

func WithExcludeColumns(columns ...string) ConfigOption {
	return func(c *AnonymizationConfig) {
		for _, col := range columns {
			c.ExcludeColumns[col] = true
		}
	}
}

func WithRelationships(relationships ...ForeignKeyRelationship) ConfigOption {
	return func(c *AnonymizationConfig) {
		c.Relationships = append(c.Relationships, relationships...)
	}
}

// WithColumnType tags a column ("table.column" or "column") with an explicit anonymization type.
func WithColumnType(column string, t AnonymizationType) ConfigOption {
	return func(c *AnonymizationConfig) { c.ColumnTypes[column] = t }
}

func WithJitterPercent(val float64) ConfigOption {
	return func(c *AnonymizationConfig) { c.JitterPercent = val }
}

func WithSeed(seed uint64) ConfigOption {
	return func(c *AnonymizationConfig) { c.Seed = seed }
}

func WithParallelism(val int) ConfigOption {
	return func(c *AnonymizationConfig) { c.Parallelism = val }
}

func WithDeadline(val time.Duration) ConfigOption {
	return func(c *AnonymizationConfig) { c.Deadline = val }
}

// NewAnonymizationConfig returns a validated configuration with the defaults applied before the options.
func NewAnonymizationConfig(opts ...ConfigOption) (*AnonymizationConfig, error) {
	c := &AnonymizationConfig{
		PreserveRelationships: true,
		GenerateRealisticData: true,
		ExcludeTables:         make(map[string]bool),
		ExcludeColumns:        make(map[string]bool),
		ColumnTypes:           make(map[string]AnonymizationType),
		JitterPercent:         DefaultJitterPercent,
		Parallelism:           runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration and returns a ConfigurationError for the first problem found.
func (c *AnonymizationConfig) Validate() error {
	for _, r := range c.FinancialRanges {
		if strings.TrimSpace(r.Pattern) == "" {
			return NewConfigurationError("financial range with an empty pattern")
		}
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
			return NewConfigurationError("financial range %q has non finite bounds", r.Pattern)
		}
		if r.Min > r.Max {
			return NewConfigurationError("financial range %q has min %v greater than max %v", r.Pattern, r.Min, r.Max)
		}
	}
	if c.JitterPercent <= 0 || c.JitterPercent > 1 || math.IsNaN(c.JitterPercent) {
		return NewConfigurationError("jitter percent must be within (0, 1], got %v", c.JitterPercent)
	}
	if c.Parallelism < 0 {
		return NewConfigurationError("parallelism must not be negative, got %d", c.Parallelism)
	}
	if c.Deadline < 0 {
		return NewConfigurationError("deadline must not be negative, got %s", c.Deadline)
	}
	for column, t := range c.ColumnTypes {
		if _, err := ParseAnonymizationType(string(t)); err != nil {
			return NewConfigurationError("column %s: %s", column, err)
		}
	}
	if _, err := ValidateRelationships(c.Relationships); err != nil {
		return err
	}
	return nil
}

// FinancialRangeFor returns the first range whose pattern matches the column.
func (c *AnonymizationConfig) FinancialRangeFor(column string) (FinancialRange, bool) {
	for _, r := range c.FinancialRanges {
		if r.Matches(column) {
			return r, true
		}
	}
	return FinancialRange{}, false
}

// ColumnTypeFor returns the explicit type of the column if one was configured.
func (c *AnonymizationConfig) ColumnTypeFor(table, column string) (AnonymizationType, bool) {
	if t, ok := c.ColumnTypes[table+"."+column]; ok {
		return t, true
	}
	if t, ok := c.ColumnTypes[column]; ok {
		return t, true
	}
	return TypeInfer, false
}

// IsTableExcluded returns true if the table must be passed through unchanged.
func (c *AnonymizationConfig) IsTableExcluded(table string) bool {
	return c.ExcludeTables[table]
}

// IsColumnExcluded returns true if the column must be passed through unchanged.
func (c *AnonymizationConfig) IsColumnExcluded(column string) bool {
	return c.ExcludeColumns[column]
}

// ValidateRelationships validates each declaration, removes exact duplicates and rejects a source column
// declared against two different targets or a cycle between distinct tables.
func ValidateRelationships(relationships []ForeignKeyRelationship) ([]ForeignKeyRelationship, error) {
	seen := make(map[ColumnKey]ForeignKeyRelationship, len(relationships))
	res := make([]ForeignKeyRelationship, 0, len(relationships))
	for _, r := range relationships {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if r.Type == "" {
			r.Type = ManyToOne
		}
		if found, ok := seen[r.Source()]; ok {
			if found.Target() != r.Target() {
				return nil, NewConfigurationError("%s is declared against both %s and %s", r.Source(), found.Target(), r.Target())
			}
			continue
		}
		seen[r.Source()] = r
		res = append(res, r)
	}
	if _, err := ProcessingOrder(nil, res); err != nil {
		return nil, err
	}
	return res, nil
}
