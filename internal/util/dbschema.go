package util

import (
	"context"
	"database/sql"
	"sort"
)

// DatabaseSchema maps each table to its columns and their data types.
type DatabaseSchema map[string]map[string]string

// Tables returns the table names sorted.
func (s DatabaseSchema) Tables() []string {
	res := make([]string, 0, len(s))
	for name := range s {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Columns returns the column names of the table sorted.
func (s DatabaseSchema) Columns(table string) []string {
	res := make([]string, 0, len(s[table]))
	for name := range s[table] {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// GetType returns the data type of the column.
func (s DatabaseSchema) GetType(table, column string) (bool, string) {
	if cols, ok := s[table]; ok {
		if val, ok := cols[column]; ok {
			return true, val
		}
	}
	return false, ""
}

// GetCurrentDatabase returns the name of the selected database
func GetCurrentDatabase(ctx context.Context, db *sql.DB, fn string) (string, error) {
	var name string
	if err := db.QueryRowContext(ctx, "SELECT "+fn).Scan(&name); err != nil {
		return "", err
	}
	return name, nil
}

// BuildDBSchemaFromInfoSchema builds a database schema from a query returning the table name, column name
// and data type of every column.
func BuildDBSchemaFromInfoSchema(ctx context.Context, db *sql.DB, query string, args ...any) (DatabaseSchema, error) {
	res := make(DatabaseSchema)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, err
		}
		if _, ok := res[tableName]; !ok {
			res[tableName] = make(map[string]string)
		}
		res[tableName][columnName] = dataType
	}
	return res, rows.Err()
}
