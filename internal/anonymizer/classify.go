package anonymizer

import (
	"sort"
	"strings"

	"github.com/shopmonkeyus/anonymizer/internal"
)

// Kind selects the anonymization strategy of a column.
type Kind int

const (
	Unknown Kind = iota
	Generic
	Email
	Phone
	Name
	Address
	Financial
)

func (k Kind) String() string {
	return string(k.AnonymizationType())
}

// AnonymizationType returns the configuration tag of the kind.
func (k Kind) AnonymizationType() internal.AnonymizationType {
	switch k {
	case Generic:
		return internal.TypeGeneric
	case Email:
		return internal.TypeEmail
	case Phone:
		return internal.TypePhone
	case Name:
		return internal.TypeName
	case Address:
		return internal.TypeAddress
	case Financial:
		return internal.TypeFinancial
	}
	return internal.TypeInfer
}

// KindOf returns the kind of a configuration tag, Unknown means the kind must be inferred.
func KindOf(t internal.AnonymizationType) Kind {
	switch t {
	case internal.TypeGeneric:
		return Generic
	case internal.TypeEmail:
		return Email
	case internal.TypePhone:
		return Phone
	case internal.TypeName:
		return Name
	case internal.TypeAddress:
		return Address
	case internal.TypeFinancial:
		return Financial
	}
	return Unknown
}

var (
	phoneHints     = []string{"phone", "mobile", "fax"}
	addressHints   = []string{"address", "street", "city", "zip", "postal", "postcode"}
	financialHints = []string{"amount", "price", "cost", "total", "salary", "balance", "fee"}

	// identifierNames contain "name" but never hold a person or company name.
	identifierNames = []string{
		"table_name", "tablename", "column_name", "schema_name", "file_name", "filename",
		"hostname", "host_name", "domain_name", "class_name", "type_name", "event_name", "db_name",
		"bucket_name", "key_name", "field_name", "model_name", "namespace",
	}
)

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// Classify returns the kind of a column: an explicit tag first, then a financial range pattern and
// finally the column name heuristics.
func (e *Engine) Classify(table, column string) Kind {
	if t, ok := e.config.ColumnTypeFor(table, column); ok {
		if k := KindOf(t); k != Unknown {
			return k
		}
	}
	if _, ok := e.config.FinancialRangeFor(column); ok {
		return Financial
	}
	return classifyName(column)
}

func classifyName(column string) Kind {
	name := strings.ToLower(column)
	switch {
	case strings.Contains(name, "email") || strings.Contains(name, "e_mail"):
		return Email
	case containsAny(name, phoneHints):
		return Phone
	case strings.Contains(name, "name") && !containsAny(name, identifierNames):
		return Name
	case containsAny(name, addressHints):
		return Address
	case containsAny(name, financialHints):
		return Financial
	}
	return Generic
}

// ColumnPlan is the classified column of a table.
type ColumnPlan struct {
	Column string
	Kind   Kind
}

func planPriority(k Kind) int {
	switch k {
	case Name:
		return 0
	case Email, Phone:
		return 2
	}
	return 1
}

// Plan classifies every column once and orders them so that the values other columns derive from are
// produced first: names before everything else, emails and phones last.
func (e *Engine) Plan(table string, columns []string) []ColumnPlan {
	res := make([]ColumnPlan, 0, len(columns))
	for _, c := range columns {
		res = append(res, ColumnPlan{Column: c, Kind: e.Classify(table, c)})
	}
	sort.SliceStable(res, func(i, j int) bool {
		pi, pj := planPriority(res[i].Kind), planPriority(res[j].Kind)
		if pi != pj {
			return pi < pj
		}
		return res[i].Column < res[j].Column
	})
	return res
}
