package internal

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func tableNames(deps []TableDependency) []string {
	res := make([]string, len(deps))
	for i, d := range deps {
		res[i] = d.Table
	}
	return res
}

func TestProcessingOrder(t *testing.T) {
	rels := []ForeignKeyRelationship{
		{SourceTable: "reservations", SourceColumn: "loft_id", TargetTable: "lofts", TargetColumn: "id"},
		{SourceTable: "reservations", SourceColumn: "user_id", TargetTable: "users", TargetColumn: "id"},
		{SourceTable: "lofts", SourceColumn: "owner_id", TargetTable: "users", TargetColumn: "id"},
	}
	deps, err := ProcessingOrder([]string{"reservations", "audit", "lofts", "users"}, rels)
	assert.NoError(t, err)
	assert.Equal(t, []string{"audit", "users", "lofts", "reservations"}, tableNames(deps))
	assert.Equal(t, 0, deps[1].Level)
	assert.Equal(t, 1, deps[2].Level)
	assert.Equal(t, 2, deps[3].Level)
	assert.Equal(t, []string{"lofts", "users"}, deps[3].DependsOn)
}

func TestProcessingOrderSelfReference(t *testing.T) {
	rels := []ForeignKeyRelationship{
		{SourceTable: "employees", SourceColumn: "manager_id", TargetTable: "employees", TargetColumn: "id"},
	}
	deps, err := ProcessingOrder([]string{"employees"}, rels)
	assert.NoError(t, err)
	assert.Equal(t, []string{"employees"}, tableNames(deps))
	assert.Empty(t, deps[0].DependsOn)
}

func TestProcessingOrderFiltersToTables(t *testing.T) {
	rels := []ForeignKeyRelationship{
		{SourceTable: "lofts", SourceColumn: "owner_id", TargetTable: "users", TargetColumn: "id"},
	}
	deps, err := ProcessingOrder([]string{"lofts"}, rels)
	assert.NoError(t, err)
	assert.Equal(t, []string{"lofts"}, tableNames(deps))
}

func TestProcessingOrderCycle(t *testing.T) {
	rels := []ForeignKeyRelationship{
		{SourceTable: "a", SourceColumn: "b_id", TargetTable: "b", TargetColumn: "id"},
		{SourceTable: "b", SourceColumn: "c_id", TargetTable: "c", TargetColumn: "id"},
		{SourceTable: "c", SourceColumn: "a_id", TargetTable: "a", TargetColumn: "id"},
		{SourceTable: "d", SourceColumn: "a_id", TargetTable: "a", TargetColumn: "id"},
	}
	deps, err := ProcessingOrder(nil, rels)
	assert.Nil(t, deps)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "a, b, c")
}
