package integrationtest

import (
	"fmt"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/relationship"
)

// VerifyOptions controls the checks of Verify.
type VerifyOptions struct {
	// Relationships are checked for integrity, the relationships of the original tables are used when empty.
	Relationships []internal.ForeignKeyRelationship
	// PII columns must not contain any of their original values.
	PII []internal.ColumnKey
	// Ordered is true when the anonymized rows are in the order of the original rows, which enables the
	// mapping consistency checks.
	Ordered bool
}

func tablesByName(tables []*internal.RelationalTable) map[string]*internal.RelationalTable {
	res := make(map[string]*internal.RelationalTable, len(tables))
	for _, t := range tables {
		res[t.Name] = t
	}
	return res
}

func valueSet(t *internal.RelationalTable, column string) map[string]int {
	res := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		if v := row[column]; v != nil {
			if _, ok := res[relationship.Canonical(v)]; !ok {
				res[relationship.Canonical(v)] = i
			}
		}
	}
	return res
}

// Verify compares an anonymized snapshot with its original and returns every problem found: missing tables
// or rows, foreign keys which no longer resolve, references which resolve to a different row than in the
// original and PII values which survived.
func Verify(original, anonymized []*internal.RelationalTable, opts VerifyOptions) []error {
	var errs []error
	before := tablesByName(original)
	after := tablesByName(anonymized)

	for _, t := range original {
		at, ok := after[t.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("table %s is missing", t.Name))
			continue
		}
		if len(at.Rows) != len(t.Rows) {
			errs = append(errs, fmt.Errorf("table %s has %d rows, expected %d", t.Name, len(at.Rows), len(t.Rows)))
		}
	}

	rels := opts.Relationships
	if len(rels) == 0 {
		for _, t := range original {
			rels = append(rels, t.Relationships...)
		}
	}
	for _, rel := range rels {
		src, tgt := after[rel.SourceTable], after[rel.TargetTable]
		if src == nil || tgt == nil {
			continue
		}
		targets := valueSet(tgt, rel.TargetColumn)
		for i, row := range src.Rows {
			v := row[rel.SourceColumn]
			if v == nil {
				continue
			}
			if _, ok := targets[relationship.Canonical(v)]; !ok {
				errs = append(errs, fmt.Errorf("%s: row %d references %v which does not exist", rel, i, v))
			}
		}
		if !opts.Ordered {
			continue
		}
		osrc, otgt := before[rel.SourceTable], before[rel.TargetTable]
		if osrc == nil || otgt == nil || len(osrc.Rows) != len(src.Rows) || len(otgt.Rows) != len(tgt.Rows) {
			continue
		}
		originalTargets := valueSet(otgt, rel.TargetColumn)
		for i, row := range osrc.Rows {
			v := row[rel.SourceColumn]
			if v == nil {
				continue
			}
			j, ok := originalTargets[relationship.Canonical(v)]
			if !ok {
				continue
			}
			got := relationship.Canonical(src.Rows[i][rel.SourceColumn])
			want := relationship.Canonical(tgt.Rows[j][rel.TargetColumn])
			if got != want {
				errs = append(errs, fmt.Errorf("%s: row %d references %s, expected %s", rel, i, got, want))
			}
		}
	}

	for _, key := range opts.PII {
		ot, at := before[key.Table], after[key.Table]
		if ot == nil || at == nil {
			continue
		}
		values := valueSet(ot, key.Column)
		for i, row := range at.Rows {
			v := row[key.Column]
			if v == nil {
				continue
			}
			if _, ok := values[relationship.Canonical(v)]; ok {
				errs = append(errs, fmt.Errorf("%s: row %d still contains the original value %v", key, i, v))
			}
		}
	}
	return errs
}
