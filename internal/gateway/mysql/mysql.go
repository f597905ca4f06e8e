// Package mysql registers the "mysql" gateway backend using
// github.com/go-sql-driver/mysql. DSNs use the driver's format, e.g.
// "user:pass@tcp(localhost:3306)/assignment?parseTime=true".
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"dbadmin/internal/gateway"
	"dbadmin/internal/gateway/sqldb"
	"dbadmin/internal/statement"
)

// Options returns the sqldb options for MySQL.
func Options() sqldb.Options {
	return sqldb.Options{
		DriverName: "mysql",
		Dialect:    statement.MySQL,
		Classify:   Classify,
	}
}

// Open validates the DSN and connects.
func Open(ctx context.Context, dsn string) (*sqldb.Gateway, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	return sqldb.Open(ctx, dsn, Options())
}

func init() {
	gateway.Register("mysql", func(ctx context.Context, cfg gateway.Config) (gateway.Gateway, error) {
		return Open(ctx, cfg.DSN)
	})
}

// constraintCodes are server error numbers for rejected data: duplicate
// keys, foreign-key failures, NOT NULL and CHECK violations, and values the
// column type cannot hold.
var constraintCodes = map[uint16]struct{}{
	1048: {}, // ER_BAD_NULL_ERROR
	1062: {}, // ER_DUP_ENTRY
	1264: {}, // ER_WARN_DATA_OUT_OF_RANGE
	1292: {}, // ER_TRUNCATED_WRONG_VALUE
	1364: {}, // ER_NO_DEFAULT_FOR_FIELD
	1366: {}, // ER_TRUNCATED_WRONG_VALUE_FOR_FIELD
	1406: {}, // ER_DATA_TOO_LONG
	1451: {}, // ER_ROW_IS_REFERENCED_2
	1452: {}, // ER_NO_REFERENCED_ROW_2
	3819: {}, // ER_CHECK_CONSTRAINT_VIOLATED
}

// connectivityCodes are server errors meaning the session is unusable.
var connectivityCodes = map[uint16]struct{}{
	1040: {}, // ER_CON_COUNT_ERROR
	1045: {}, // ER_ACCESS_DENIED_ERROR
	1053: {}, // ER_SERVER_SHUTDOWN
	2006: {}, // CR_SERVER_GONE_ERROR
	2013: {}, // CR_SERVER_LOST
}

// Classify maps MySQL errors onto gateway kinds.
func Classify(err error) (gateway.Kind, bool) {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return gateway.ConnectivityError, true
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return 0, false
	}
	if _, ok := constraintCodes[me.Number]; ok {
		return gateway.ConstraintViolation, true
	}
	if _, ok := connectivityCodes[me.Number]; ok {
		return gateway.ConnectivityError, true
	}
	return gateway.UnknownError, true
}
