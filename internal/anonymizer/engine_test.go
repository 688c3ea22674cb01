package anonymizer

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/faker"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
)

func newTestEngine(t *testing.T, opts ...internal.ConfigOption) *Engine {
	config, err := internal.NewAnonymizationConfig(opts...)
	assert.NoError(t, err)
	return New(logger.NewTestLogger(), faker.New(11), config)
}

func realistic(table, column string, original any, siblings internal.Row) internal.AnonymizationContext {
	return internal.AnonymizationContext{
		TableName:             table,
		ColumnName:            column,
		OriginalValue:         original,
		RowData:               internal.Row{column: original},
		Siblings:              siblings,
		PreserveRelationships: true,
		GenerateRealisticData: true,
	}
}

func TestClassify(t *testing.T) {
	e := newTestEngine(t,
		internal.WithColumnType("users.handle", internal.TypeName),
		internal.WithFinancialRange("nightly_rate", 50, 500),
	)
	tests := []struct {
		column string
		want   Kind
	}{
		{"email", Email},
		{"contact_email", Email},
		{"phone_number", Phone},
		{"mobile", Phone},
		{"first_name", Name},
		{"name", Name},
		{"username", Name},
		{"table_name", Generic},
		{"hostname", Generic},
		{"street_address", Address},
		{"city", Address},
		{"zip", Address},
		{"total_amount", Financial},
		{"price", Financial},
		{"nightly_rate", Financial},
		{"handle", Name},
		{"status", Generic},
		{"cancelled", Generic},
		{"id", Generic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Classify("users", tt.column), tt.column)
	}
	assert.Equal(t, Generic, e.Classify("lofts", "handle"))
}

func TestPlanOrder(t *testing.T) {
	e := newTestEngine(t)
	plan := e.Plan("users", []string{"phone", "id", "email", "last_name", "city", "first_name"})
	var columns []string
	for _, p := range plan {
		columns = append(columns, p.Column)
	}
	assert.Equal(t, []string{"first_name", "last_name", "city", "id", "email", "phone"}, columns)
	assert.Equal(t, Name, plan[0].Kind)
	assert.Equal(t, Phone, plan[5].Kind)
}

func TestEmailFromFictitiousName(t *testing.T) {
	e := newTestEngine(t)
	actx := realistic("users", "email", "jane.doe@corp.com", internal.Row{"first_name": "Ada", "last_name": "Lovelace"})
	actx.RowData["first_name"] = "Jane"
	res, err := e.AnonymizeValue("jane.doe@corp.com", FieldConfig{TableName: "users", ColumnName: "email"}, actx)
	assert.NoError(t, err)
	assert.Equal(t, Email, res.Kind)
	email := res.Value.(string)
	assert.Regexp(t, regexp.MustCompile(`^ada\.lovelace[0-9]{2}@example\.(com|net|org)$`), email)
	assert.NotContains(t, email, "jane")
}

func TestEmailWithoutRealisticData(t *testing.T) {
	e := newTestEngine(t)
	actx := realistic("users", "email", "jane@corp.com", internal.Row{"name": "Ada Lovelace"})
	actx.GenerateRealisticData = false
	res, err := e.AnonymizeValue("jane@corp.com", FieldConfig{TableName: "users", ColumnName: "email"}, actx)
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]{8}[0-9]{2}@example\.(com|net|org)$`), res.Value)
}

func TestPhoneKeepsFormat(t *testing.T) {
	e := newTestEngine(t)
	actx := realistic("users", "phone", "+1 (555) 010-9999", internal.Row{"country": "Germany"})
	res, err := e.AnonymizeValue("+1 (555) 010-9999", FieldConfig{TableName: "users", ColumnName: "phone"}, actx)
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\+49 \([0-9]{3}\) [0-9]{3}-[0-9]{4}$`), res.Value)

	res, err = e.AnonymizeValue(int64(5550109999), FieldConfig{TableName: "users", ColumnName: "phone"}, realistic("users", "phone", int64(5550109999), nil))
	assert.NoError(t, err)
	assert.IsType(t, int64(0), res.Value)
	assert.NotEqual(t, int64(5550109999), res.Value)
}

func TestNameAndAddress(t *testing.T) {
	e := newTestEngine(t)
	for _, column := range []string{"first_name", "last_name", "name", "username", "company_name", "street", "city", "zip"} {
		original := "Original Value 123"
		if column == "zip" {
			original = "90210"
		}
		res, err := e.AnonymizeValue(original, FieldConfig{TableName: "users", ColumnName: column}, realistic("users", column, original, nil))
		assert.NoError(t, err, column)
		assert.NotEqual(t, original, res.Value, column)
		assert.NotEmpty(t, res.Value, column)
	}
	res, err := e.AnonymizeValue("90210", FieldConfig{TableName: "users", ColumnName: "zip"}, realistic("users", "zip", "90210", nil))
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{5}$`), res.Value)
}

func TestShapeWithoutRealisticData(t *testing.T) {
	e := newTestEngine(t)
	actx := realistic("users", "name", "Jane Doe", nil)
	actx.GenerateRealisticData = false
	res, err := e.AnonymizeValue("Jane Doe", FieldConfig{TableName: "users", ColumnName: "name"}, actx)
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z][a-z]{3} [A-Z][a-z]{2}$`), res.Value)
	assert.NotEqual(t, "Jane Doe", res.Value)
}

func TestFinancialRange(t *testing.T) {
	e := newTestEngine(t,
		internal.WithFinancialRange("price", 100, 200),
		internal.WithFinancialRange("fee", 0.5, 0.75),
	)
	originals := []any{1, int64(5000), 12.5, json.Number("19.99"), "42.10", float32(3)}
	for _, original := range originals {
		for i := 0; i < 25; i++ {
			res, err := e.AnonymizeValue(original, FieldConfig{TableName: "lofts", ColumnName: "price_per_night"}, realistic("lofts", "price_per_night", original, nil))
			assert.NoError(t, err)
			assert.IsType(t, original, res.Value)
			v, ok := faker.ToFloat(res.Value)
			assert.True(t, ok)
			assert.True(t, v >= 100 && v <= 200, "%v out of range", res.Value)
		}
	}
	for i := 0; i < 25; i++ {
		res, err := e.AnonymizeValue(0.6, FieldConfig{TableName: "lofts", ColumnName: "cleaning_fee"}, realistic("lofts", "cleaning_fee", 0.6, nil))
		assert.NoError(t, err)
		v := res.Value.(float64)
		assert.True(t, v >= 0.5 && v <= 0.75, "%v out of range", v)
	}
}

func TestFinancialRangeWithoutIntegers(t *testing.T) {
	e := newTestEngine(t, internal.WithFinancialRange("price", 10.2, 10.8))
	res, err := e.AnonymizeValue(10, FieldConfig{TableName: "lofts", ColumnName: "price"}, realistic("lofts", "price", 10, nil))
	var fe *internal.FieldTransformError
	assert.True(t, errors.As(err, &fe))
	assert.True(t, errors.Is(err, internal.ErrFieldTransform))
	assert.Equal(t, internal.TypeFinancial, fe.Type)
	assert.True(t, res.Fallback)
	v, ok := res.Value.(float64)
	assert.True(t, ok)
	assert.True(t, v >= 10.2 && v <= 10.8, "%v out of range", v)
	assert.Equal(t, 1, faker.Decimals(v))
}

func TestFinancialRangeFallbackStaysInRange(t *testing.T) {
	e := newTestEngine(t, internal.WithFinancialRange("fee", 0.25, 0.75))
	originals := []any{3, int64(7), json.Number("2"), "4"}
	for _, original := range originals {
		for i := 0; i < 25; i++ {
			res, err := e.AnonymizeValue(original, FieldConfig{TableName: "lofts", ColumnName: "fee"}, realistic("lofts", "fee", original, nil))
			assert.True(t, errors.Is(err, internal.ErrFieldTransform), "%v", original)
			assert.True(t, res.Fallback)
			v, ok := faker.ToFloat(res.Value)
			assert.True(t, ok)
			assert.True(t, v >= 0.25 && v <= 0.75, "%v out of range", res.Value)
		}
	}
	res, _ := e.AnonymizeValue(json.Number("2"), FieldConfig{TableName: "lofts", ColumnName: "fee"}, realistic("lofts", "fee", json.Number("2"), nil))
	assert.IsType(t, json.Number(""), res.Value)
	res, _ = e.AnonymizeValue("4", FieldConfig{TableName: "lofts", ColumnName: "fee"}, realistic("lofts", "fee", "4", nil))
	assert.IsType(t, "", res.Value)
}

func TestFinancialJitter(t *testing.T) {
	e := newTestEngine(t, internal.WithJitterPercent(0.3))
	for i := 0; i < 50; i++ {
		res, err := e.AnonymizeValue(1000.0, FieldConfig{TableName: "orders", ColumnName: "total"}, realistic("orders", "total", 1000.0, nil))
		assert.NoError(t, err)
		v := res.Value.(float64)
		assert.True(t, v >= 700 && v <= 1300, "%v out of jitter", v)
		assert.NotEqual(t, 1000.0, v)
	}
}

func TestFinancialZeroAmount(t *testing.T) {
	e := newTestEngine(t)
	for _, original := range []any{0, 0.0, json.Number("0.00")} {
		res, err := e.AnonymizeValue(original, FieldConfig{TableName: "orders", ColumnName: "total"}, realistic("orders", "total", original, nil))
		assert.NoError(t, err)
		assert.IsType(t, original, res.Value)
		v, ok := faker.ToFloat(res.Value)
		assert.True(t, ok)
		assert.True(t, v >= 1 && v <= 10, "%v out of band", res.Value)
	}
}

func TestFieldTransformFallback(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.AnonymizeValue(12345, FieldConfig{TableName: "users", ColumnName: "email"}, realistic("users", "email", 12345, nil))
	assert.True(t, errors.Is(err, internal.ErrFieldTransform))
	assert.Contains(t, err.Error(), "users.email")
	assert.True(t, res.Fallback)
	assert.IsType(t, 0, res.Value)
	assert.NotEqual(t, 12345, res.Value)

	res, err = e.AnonymizeValue(true, FieldConfig{TableName: "orders", ColumnName: "amount"}, realistic("orders", "amount", true, nil))
	assert.Error(t, err)
	assert.IsType(t, false, res.Value)
}

func TestGeneric(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.AnonymizeValue("ABC-123", FieldConfig{TableName: "lofts", ColumnName: "code"}, realistic("lofts", "code", "ABC-123", nil))
	assert.NoError(t, err)
	assert.Equal(t, Generic, res.Kind)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z]{3}-[0-9]{3}$`), res.Value)

	res, err = e.AnonymizeValue(nil, FieldConfig{TableName: "lofts", ColumnName: "email"}, realistic("lofts", "email", nil, nil))
	assert.NoError(t, err)
	assert.Nil(t, res.Value)
	assert.Equal(t, Email, res.Kind)
}

func TestExplicitKind(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.AnonymizeValue("someone@corp.com", FieldConfig{TableName: "t", ColumnName: "contact", Type: Email}, realistic("t", "contact", "someone@corp.com", nil))
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Value.(string), ".com") || strings.HasSuffix(res.Value.(string), ".net") || strings.HasSuffix(res.Value.(string), ".org"))
	assert.NotEqual(t, "someone@corp.com", res.Value)
}
