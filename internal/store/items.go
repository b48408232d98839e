package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/model"
)

const itemColumns = `id, block, name, model, category, origin, location, detail, date, image_mime,
	qty_store, qty_use, qty_faulty_store, qty_faulty_use, qty_transfer, total_quantity, version,
	created_at, updated_at, deleted_at`

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var mdl, category, origin, location, detail, date, imageMime sql.NullString
	err := s.Scan(&item.ID, &item.Block, &item.Name, &mdl, &category, &origin, &location, &detail, &date, &imageMime,
		&item.Quantity.Store, &item.Quantity.Use, &item.Quantity.FaultyStore, &item.Quantity.FaultyUse, &item.Quantity.Transfer,
		&item.Total, &item.Version, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.Model = mdl.String
	item.Category = category.String
	item.Origin = origin.String
	item.Location = location.String
	item.Detail = detail.String
	item.Date = date.String
	item.ImageMime = imageMime.String
	return item, nil
}

// CreateItem creates a new item in block with initialStore units in the
// store bucket and every other bucket empty.
func CreateItem(ctx context.Context, db *sql.DB, block string, f model.ItemFields, initialStore int) (*model.Item, error) {
	if initialStore < 0 {
		return nil, fmt.Errorf("initial quantity must not be negative")
	}
	if initialStore > ledger.MaxQuantity {
		return nil, fmt.Errorf("%w: initial quantity %d, at most %d", ledger.ErrQuantityLimit, initialStore, ledger.MaxQuantity)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (block, name, model, category, origin, location, detail, date, qty_store, total_quantity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		block, f.Name, f.Model, f.Category, f.Origin, f.Location, f.Detail, f.Date, initialStore, initialStore,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("model %q: %w", f.Model, ErrDuplicateModel)
	}
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, db, id)
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns the non-deleted items of a block.
func ListItems(ctx context.Context, db *sql.DB, block string, filter model.ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE deleted_at IS NULL AND block = ?`
	args := []any{block}

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Model != "" {
		query += ` AND model = ?`
		args = append(args, filter.Model)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query += ` AND (name LIKE ? OR model LIKE ?)`
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListCategories returns the distinct item categories in a block.
func ListCategories(ctx context.Context, db *sql.DB, block string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT category FROM items
		 WHERE deleted_at IS NULL AND block = ? AND category IS NOT NULL AND category != ''
		 ORDER BY category`, block,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateItem updates an item's descriptive fields. Quantity buckets only
// change through approved records.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, f model.ItemFields) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, model = ?, category = ?, origin = ?, location = ?, detail = ?, date = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		f.Name, f.Model, f.Category, f.Origin, f.Location, f.Detail, f.Date, id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("model %q: %w", f.Model, ErrDuplicateModel)
	}
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return expectOne(result, ErrNotFound)
}

// DeleteItem soft-deletes an item. Fails while pending records reference it.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var pending int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE item_id = ? AND status LIKE 'pending(%'`, id,
	).Scan(&pending)
	if err != nil {
		return fmt.Errorf("checking pending records: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("%w: %d", ErrItemHasPending, pending)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if err := expectOne(result, ErrNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item deletion: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return expectOne(result, ErrNotFound)
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// GetSummary totals the ledger of a block.
func GetSummary(ctx context.Context, db *sql.DB, block string) (*model.Summary, error) {
	s := &model.Summary{Block: block}
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(qty_store), 0), COALESCE(SUM(qty_use), 0),
		        COALESCE(SUM(qty_faulty_store), 0), COALESCE(SUM(qty_faulty_use), 0),
		        COALESCE(SUM(qty_transfer), 0), COALESCE(SUM(total_quantity), 0)
		 FROM items WHERE block = ? AND deleted_at IS NULL`, block,
	).Scan(&s.Items, &s.Quantity.Store, &s.Quantity.Use, &s.Quantity.FaultyStore,
		&s.Quantity.FaultyUse, &s.Quantity.Transfer, &s.Total)
	if err != nil {
		return nil, fmt.Errorf("summing items: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE block = ? AND status LIKE 'pending(%'`, block,
	).Scan(&s.PendingRecords)
	if err != nil {
		return nil, fmt.Errorf("counting pending records: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM services WHERE block = ? AND deleted_at IS NULL`, block,
	).Scan(&s.Services)
	if err != nil {
		return nil, fmt.Errorf("counting services: %w", err)
	}

	return s, nil
}
