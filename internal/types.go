package internal

import (
	"fmt"
	"sort"
	"strings"
)

// Row is a single record of a table keyed by column name.
type Row map[string]any

// Columns returns the column names of the row in no particular order.
func (r Row) Columns() []string {
	res := make([]string, 0, len(r))
	for name := range r {
		res = append(res, name)
	}
	return res
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	res := make(Row, len(r))
	for k, v := range r {
		res[k] = v
	}
	return res
}

// RelationshipType is the cardinality of a foreign key relationship.
type RelationshipType string

const (
	ManyToOne RelationshipType = "many-to-one"
	OneToOne  RelationshipType = "one-to-one"
	OneToMany RelationshipType = "one-to-many"
)

// ParseRelationshipType parses the relationship type, an empty value is many-to-one.
func ParseRelationshipType(val string) (RelationshipType, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "", "many-to-one", "many_to_one", "manytoone":
		return ManyToOne, nil
	case "one-to-one", "one_to_one", "onetoone":
		return OneToOne, nil
	case "one-to-many", "one_to_many", "onetomany":
		return OneToMany, nil
	}
	return "", NewConfigurationError("unknown relationship type: %q", val)
}

// ForeignKeyRelationship declares that SourceTable.SourceColumn references TargetTable.TargetColumn.
type ForeignKeyRelationship struct {
	SourceTable  string           `json:"sourceTable" yaml:"source_table" mapstructure:"source_table" msgpack:"sourceTable"`
	SourceColumn string           `json:"sourceColumn" yaml:"source_column" mapstructure:"source_column" msgpack:"sourceColumn"`
	TargetTable  string           `json:"targetTable" yaml:"target_table" mapstructure:"target_table" msgpack:"targetTable"`
	TargetColumn string           `json:"targetColumn" yaml:"target_column" mapstructure:"target_column" msgpack:"targetColumn"`
	Type         RelationshipType `json:"relationshipType,omitempty" yaml:"relationship_type" mapstructure:"relationship_type" msgpack:"relationshipType"`
}

// Source returns the key of the referencing column.
func (r ForeignKeyRelationship) Source() ColumnKey {
	return ColumnKey{Table: r.SourceTable, Column: r.SourceColumn}
}

// Target returns the key of the referenced column.
func (r ForeignKeyRelationship) Target() ColumnKey {
	return ColumnKey{Table: r.TargetTable, Column: r.TargetColumn}
}

// IsSelfReference returns true if the relationship points back to its own table.
func (r ForeignKeyRelationship) IsSelfReference() bool {
	return r.SourceTable == r.TargetTable
}

func (r ForeignKeyRelationship) String() string {
	t := r.Type
	if t == "" {
		t = ManyToOne
	}
	return fmt.Sprintf("%s.%s -> %s.%s (%s)", r.SourceTable, r.SourceColumn, r.TargetTable, r.TargetColumn, t)
}

// Validate checks that all the parts of the relationship are present.
func (r ForeignKeyRelationship) Validate() error {
	if r.SourceTable == "" || r.SourceColumn == "" || r.TargetTable == "" || r.TargetColumn == "" {
		return NewConfigurationError("incomplete relationship declaration: %s", r)
	}
	if r.IsSelfReference() && r.SourceColumn == r.TargetColumn {
		return NewConfigurationError("relationship references itself: %s", r)
	}
	if _, err := ParseRelationshipType(string(r.Type)); err != nil {
		return err
	}
	return nil
}

// ColumnKey identifies a column of a table.
type ColumnKey struct {
	Table  string
	Column string
}

func (k ColumnKey) String() string {
	return k.Table + "." + k.Column
}

// RelationalTable is one table of a relational snapshot.
type RelationalTable struct {
	Name          string                   `json:"tableName"`
	Rows          []Row                    `json:"rows"`
	Relationships []ForeignKeyRelationship `json:"relationships,omitempty"`
}

// Columns returns the union of the column names found in the rows, sorted.
func (t *RelationalTable) Columns() []string {
	seen := make(map[string]bool)
	var res []string
	for _, row := range t.Rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				res = append(res, name)
			}
		}
	}
	sort.Strings(res)
	return res
}

// Values returns every value of the column across the rows, in row order.
func (t *RelationalTable) Values(column string) []any {
	res := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		if v, ok := row[column]; ok {
			res = append(res, v)
		}
	}
	return res
}

// AnonymizationType is the semantic class of a column which selects the anonymization strategy.
type AnonymizationType string

const (
	TypeInfer     AnonymizationType = ""
	TypeGeneric   AnonymizationType = "generic"
	TypeEmail     AnonymizationType = "email"
	TypePhone     AnonymizationType = "phone"
	TypeName      AnonymizationType = "name"
	TypeAddress   AnonymizationType = "address"
	TypeFinancial AnonymizationType = "financial"
)

// IsPII returns true for the types that carry personally identifiable information.
func (t AnonymizationType) IsPII() bool {
	switch t {
	case TypeEmail, TypePhone, TypeName, TypeAddress:
		return true
	}
	return false
}

// ParseAnonymizationType parses an explicit anonymization type tag.
func ParseAnonymizationType(val string) (AnonymizationType, error) {
	switch t := AnonymizationType(strings.ToLower(strings.TrimSpace(val))); t {
	case TypeGeneric, TypeEmail, TypePhone, TypeName, TypeAddress, TypeFinancial:
		return t, nil
	case "text":
		return TypeGeneric, nil
	case "amount", "price":
		return TypeFinancial, nil
	}
	return TypeInfer, NewConfigurationError("unknown anonymization type: %q", val)
}

// AnonymizationContext is the per field context handed to the engine and the generator.
type AnonymizationContext struct {
	TableName     string
	ColumnName    string
	OriginalValue any

	// RowData is the full original row.
	RowData Row

	// Siblings are the values already produced for the current row.
	Siblings Row

	PreserveRelationships bool
	GenerateRealisticData bool
}

// Sibling returns the first value found for one of the names, preferring the already anonymized values.
func (c AnonymizationContext) Sibling(names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := c.Siblings[name]; ok && v != nil {
			return v, true
		}
	}
	for _, name := range names {
		if v, ok := c.RowData[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
