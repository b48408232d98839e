package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/model"
)

const recordSelect = `SELECT r.id, r.block, r.item_id, r.item_name, r.model, r.category, r.kind, r.quantity,
	       r.purpose, r.location, r.date, r.status, r.requested_by, r.decided_by, r.decided_at, r.created_at,
	       COALESCE(u.username, '') AS requested_by_name
	FROM records r
	LEFT JOIN users u ON u.id = r.requested_by`

func scanRecord(s rowScanner) (*model.Record, error) {
	r := &model.Record{}
	var mdl, category, purpose, location, date sql.NullString
	var kind, status string
	err := s.Scan(&r.ID, &r.Block, &r.ItemID, &r.ItemName, &mdl, &category, &kind, &r.Amount,
		&purpose, &location, &date, &status, &r.RequestedBy, &r.DecidedBy, &r.DecidedAt, &r.CreatedAt,
		&r.RequestedByName)
	if err != nil {
		return nil, err
	}
	r.Kind = ledger.Kind(kind)
	r.Status = ledger.Status(status)
	r.Quantity = ledger.Delta(r.Kind, r.Amount)
	r.Model = mdl.String
	r.Category = category.String
	r.Purpose = purpose.String
	r.Location = location.String
	r.Date = date.String
	return r, nil
}

// CreateRecord files an adjustment request against an item of block. The
// request is checked against the item's current buckets; a request that
// cannot be satisfied right now is never stored.
func CreateRecord(ctx context.Context, db *sql.DB, block string, in model.RecordInput, requestedBy *int64) (*model.Record, error) {
	kind, err := ledger.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	if in.Amount <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}
	if in.Amount > ledger.MaxQuantity {
		return nil, fmt.Errorf("%w: %d requested, at most %d", ledger.ErrQuantityLimit, in.Amount, ledger.MaxQuantity)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil || item.Block != block {
		return nil, fmt.Errorf("item %d: %w", in.ItemID, ErrNotFound)
	}

	if err := ledger.Validate(item.Quantity, kind, in.Amount); err != nil {
		return nil, err
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = ledger.DefaultPurpose(kind)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO records (block, item_id, item_name, model, category, kind, quantity, purpose, location, date, status, requested_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		block, item.ID, item.Name, item.Model, item.Category, string(kind), in.Amount,
		purpose, in.Location, in.Date, string(ledger.PendingStatus(kind)), requestedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting record id: %w", err)
	}

	msg := fmt.Sprintf("New %s request: %d × %s", kind, in.Amount, item.Name)
	if err := insertNotification(ctx, tx, block, &id, msg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing record: %w", err)
	}

	return GetRecord(ctx, db, id)
}

// GetRecord returns a record by ID.
func GetRecord(ctx context.Context, db *sql.DB, id int64) (*model.Record, error) {
	return getRecord(ctx, db, id)
}

func getRecord(ctx context.Context, q querier, id int64) (*model.Record, error) {
	r, err := scanRecord(q.QueryRowContext(ctx, recordSelect+` WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return r, nil
}

// ListRecords returns the records of a block, newest first.
func ListRecords(ctx context.Context, db *sql.DB, block string, filter model.RecordFilter) ([]model.Record, error) {
	query := recordSelect + ` WHERE r.block = ?`
	args := []any{block}

	switch filter.Status {
	case "":
	case model.RecordFilterPending:
		query += ` AND r.status LIKE 'pending(%'`
	case model.RecordFilterApproved:
		query += ` AND r.status = ?`
		args = append(args, string(ledger.StatusApproved))
	case model.RecordFilterDeclined:
		query += ` AND r.status = ?`
		args = append(args, string(ledger.StatusDeclined))
	default:
		return nil, fmt.Errorf("unknown status filter %q", filter.Status)
	}
	if filter.ItemID > 0 {
		query += ` AND r.item_id = ?`
		args = append(args, filter.ItemID)
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// loadPending reads a record inside tx and checks that decision d may be
// applied to it.
func loadPending(ctx context.Context, tx *sql.Tx, id int64, d ledger.Decision) (*model.Record, ledger.Status, error) {
	r, err := getRecord(ctx, tx, id)
	if err != nil {
		return nil, "", err
	}
	if r == nil {
		return nil, "", fmt.Errorf("record %d: %w", id, ErrNotFound)
	}

	next, err := ledger.Decide(r.Status, d)
	if errors.Is(err, ledger.ErrAlreadyDecided) {
		return nil, "", fmt.Errorf("%w: record %d is %s", ErrRecordNotPending, id, r.Status)
	}
	if err != nil {
		return nil, "", err
	}
	return r, next, nil
}

// ApproveRecord applies a pending record to its item and marks it approved,
// both in one transaction. The item's current buckets are re-checked, so an
// approval that would drive a bucket negative fails with
// *ledger.InsufficientError, and one that would take the item past
// ledger.MaxQuantity fails with ledger.ErrQuantityLimit; both leave
// everything unchanged. Approving an already decided record fails with
// ErrRecordNotPending.
func ApproveRecord(ctx context.Context, db *sql.DB, id int64, decidedBy *int64) (*model.Record, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	r, next, err := loadPending(ctx, tx, id, ledger.DecisionApprove)
	if err != nil {
		return nil, err
	}

	item, err := getItem(ctx, tx, r.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, fmt.Errorf("item %d: %w", r.ItemID, ErrNotFound)
	}

	q, err := ledger.Apply(item.Quantity, r.Kind, r.Amount)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET qty_store = ?, qty_use = ?, qty_faulty_store = ?, qty_faulty_use = ?, qty_transfer = ?,
		        total_quantity = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		q.Store, q.Use, q.FaultyStore, q.FaultyUse, q.Transfer, q.Total(), item.ID, item.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item quantity: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return nil, err
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE records SET status = ?, decided_by = ?, decided_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		string(next), decidedBy, id, string(r.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("updating record status: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Approved %s of %d × %s", r.Kind, r.Amount, r.ItemName)
	if err := insertNotification(ctx, tx, r.Block, &id, msg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing approval: %w", err)
	}

	return GetRecord(ctx, db, id)
}

// DeclineRecord rejects a pending record without touching its item. The
// record is deleted unless keep is set, in which case it stays with status
// declined. The returned record reflects the declined state either way.
func DeclineRecord(ctx context.Context, db *sql.DB, id int64, decidedBy *int64, keep bool) (*model.Record, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	r, next, err := loadPending(ctx, tx, id, ledger.DecisionDecline)
	if err != nil {
		return nil, err
	}

	var result sql.Result
	if keep {
		result, err = tx.ExecContext(ctx,
			`UPDATE records SET status = ?, decided_by = ?, decided_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ?`,
			string(next), decidedBy, id, string(r.Status),
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`DELETE FROM records WHERE id = ? AND status = ?`, id, string(r.Status),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("declining record: %w", err)
	}
	if err := expectOne(result, ErrConflict); err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Declined %s of %d × %s", r.Kind, r.Amount, r.ItemName)
	var noticeRecord *int64
	if keep {
		noticeRecord = &id
	}
	if err := insertNotification(ctx, tx, r.Block, noticeRecord, msg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing decline: %w", err)
	}

	r.Status = next
	r.DecidedBy = decidedBy
	return r, nil
}
