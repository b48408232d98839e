package store

import (
	"context"
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a mutation targets a missing row.
	ErrNotFound = errors.New("not found")
	// ErrRecordNotPending is returned when approving or declining a record
	// that has already been decided.
	ErrRecordNotPending = errors.New("record is not pending")
	// ErrConflict is returned when a row changed underneath a transaction.
	ErrConflict = errors.New("concurrent modification")
	// ErrItemHasPending is returned when deleting an item that pending
	// records still reference.
	ErrItemHasPending = errors.New("item has pending records")
	// ErrDuplicateModel is returned when another live item of the same block
	// already carries the model.
	ErrDuplicateModel = errors.New("an item with this model already exists")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// expectOne turns a zero-row update into err.
func expectOne(result sql.Result, err error) error {
	n, rerr := result.RowsAffected()
	if rerr != nil {
		return rerr
	}
	if n != 1 {
		return err
	}
	return nil
}

// isUniqueViolation reports whether err comes from a UNIQUE index.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
