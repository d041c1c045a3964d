// Package repositories holds helpers shared by the local SQLite repositories.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Classify maps driver errors onto the common sentinels so callers can use
// errors.Is. Unknown errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		return fmt.Errorf("%w: %w", common.ErrStorageFull, err)
	}
	return err
}

// ToNanos stores t as UTC unix nanoseconds.
func ToNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// FromNanos is the inverse of ToNanos.
func FromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// IsUniqueViolation reports whether err is a duplicate unique or primary key.
// Other constraint failures (NOT NULL, CHECK, foreign keys) are not matched.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
