package util

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
)

func TestAbbreviateSQL(t *testing.T) {
	assert.Equal(t, "DELETE FROM users", AbbreviateSQL("DELETE FROM users;\n"))
	long := "INSERT INTO users (name) VALUES " + strings.Repeat("('x'), ", 100)
	abbreviated := AbbreviateSQL(long)
	assert.True(t, strings.HasPrefix(abbreviated, "INSERT INTO users (name) VALUES ('x')"))
	assert.True(t, strings.HasSuffix(abbreviated, "more bytes)"))
	assert.Less(t, len(abbreviated), len(long))
}

func TestSQLExecuter(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 2))
	exec := SQLExecuter(context.Background(), logger.NewTestLogger(), db, false)
	assert.NoError(t, exec("DELETE FROM users"))

	dryRun := SQLExecuter(context.Background(), logger.NewTestLogger(), db, true)
	assert.NoError(t, dryRun("DELETE FROM lofts"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
