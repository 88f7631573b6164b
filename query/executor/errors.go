package executor

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/mongo"
)

// Error kinds surfaced to callers. Backend-native signals are mapped onto
// these so callers never branch on backend identity.
var (
	// ErrNotFound is returned when a post-write re-select yields no rows.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned for backend-native unique-constraint
	// violations.
	ErrDuplicateKey = errors.New("duplicate key violation")
)

const pgUniqueViolation = "23505"

const mysqlDuplicateEntry = 1062

// Classify maps backend-native unique-violation signals onto ErrDuplicateKey.
// Every other error propagates unmodified; the compiler does not swallow or
// reinterpret errors outside the generic kinds.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Message)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, mysqlErr.Message)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}

	return err
}
