package util

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopmonkeyus/go-common/logger"
)

// maxLoggedStatement is the length after which a logged statement is abbreviated. Inserts carry the
// anonymized rows and can be several megabytes.
const maxLoggedStatement = 512

// Execer is implemented by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AbbreviateSQL shortens a statement for logging.
func AbbreviateSQL(stmt string) string {
	stmt = strings.TrimRight(stmt, "\n; ")
	if len(stmt) <= maxLoggedStatement {
		return stmt
	}
	return fmt.Sprintf("%s... (%d more bytes)", stmt[:maxLoggedStatement], len(stmt)-maxLoggedStatement)
}

// SQLExecuter returns a wrapper around a SQL database connection or transaction that can execute SQL statements or log them in dry-run mode
func SQLExecuter(ctx context.Context, log logger.Logger, db Execer, dryRun bool) func(sql string) error {
	return func(sql string) error {
		if dryRun {
			log.Info("[dry-run] %s", AbbreviateSQL(sql))
			return nil
		}
		log.Trace("executing: %s", AbbreviateSQL(sql))
		if _, err := db.ExecContext(ctx, sql); err != nil {
			return err
		}
		return nil
	}
}
