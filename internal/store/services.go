package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/evidenca/internal/model"
)

const serviceColumns = `id, block, name, category, detail, provider, start_date, end_date,
	created_at, updated_at, deleted_at`

func scanService(s rowScanner) (*model.Service, error) {
	svc := &model.Service{}
	var category, detail, provider, start, end sql.NullString
	err := s.Scan(&svc.ID, &svc.Block, &svc.Name, &category, &detail, &provider, &start, &end,
		&svc.CreatedAt, &svc.UpdatedAt, &svc.DeletedAt)
	if err != nil {
		return nil, err
	}
	svc.Category = category.String
	svc.Detail = detail.String
	svc.Provider = provider.String
	svc.StartDate = start.String
	svc.EndDate = end.String
	return svc, nil
}

// CreateService creates a service entry in block.
func CreateService(ctx context.Context, db *sql.DB, block string, s model.Service) (*model.Service, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO services (block, name, category, detail, provider, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		block, s.Name, s.Category, s.Detail, s.Provider, s.StartDate, s.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("creating service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting service id: %w", err)
	}

	return GetService(ctx, db, id)
}

// GetService returns a service by ID.
func GetService(ctx context.Context, db *sql.DB, id int64) (*model.Service, error) {
	svc, err := scanService(db.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting service: %w", err)
	}
	return svc, nil
}

// ListServices returns the non-deleted services of a block.
func ListServices(ctx context.Context, db *sql.DB, block string) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services
		 WHERE block = ? AND deleted_at IS NULL ORDER BY name`, block,
	)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning service: %w", err)
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}

// UpdateService replaces a service's fields.
func UpdateService(ctx context.Context, db *sql.DB, id int64, s model.Service) error {
	result, err := db.ExecContext(ctx,
		`UPDATE services SET name = ?, category = ?, detail = ?, provider = ?, start_date = ?, end_date = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		s.Name, s.Category, s.Detail, s.Provider, s.StartDate, s.EndDate, id,
	)
	if err != nil {
		return fmt.Errorf("updating service: %w", err)
	}
	return expectOne(result, ErrNotFound)
}

// DeleteService soft-deletes a service.
func DeleteService(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE services SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}
	return expectOne(result, ErrNotFound)
}
