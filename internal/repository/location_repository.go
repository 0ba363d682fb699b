package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marineworld/booking/internal/model"
)

// LocationRepo manages bookable venues.  Deleting a location is gated
// on it having no pending or confirmed bookings; the delete and the
// purge of its availability rows share one transaction.
type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

const locationColumns = `id, name, city, description, default_capacity, status, created_at, updated_at`

func scanLocation(row interface{ Scan(...interface{}) error }) (*model.Location, error) {
	var l model.Location
	err := row.Scan(&l.ID, &l.Name, &l.City, &l.Description, &l.DefaultCapacity,
		&l.Status, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LocationRepo) GetByID(ctx context.Context, id uint64) (*model.Location, error) {
	const q = `SELECT ` + locationColumns + ` FROM locations WHERE id = ?`
	return scanLocation(r.db.QueryRowContext(ctx, q, id))
}

// ListActive returns venues visitors can book.
func (r *LocationRepo) ListActive(ctx context.Context) ([]model.Location, error) {
	return r.list(ctx, `SELECT `+locationColumns+` FROM locations WHERE status = 'active' ORDER BY name`)
}

func (r *LocationRepo) List(ctx context.Context) ([]model.Location, error) {
	return r.list(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name`)
}

func (r *LocationRepo) list(ctx context.Context, q string) ([]model.Location, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Location, 0)
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *LocationRepo) Create(ctx context.Context, l *model.Location) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (name, city, description, default_capacity, status)
		 VALUES (?, ?, ?, ?, ?)`,
		l.Name, l.City, l.Description, l.DefaultCapacity, l.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func (r *LocationRepo) Update(ctx context.Context, l *model.Location) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE locations SET name = ?, city = ?, description = ?, default_capacity = ?, status = ?,
		   updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		l.Name, l.City, l.Description, l.DefaultCapacity, l.Status, l.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus toggles a location's visibility to visitors.
func (r *LocationRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE locations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a location and its availability rows.  It refuses with
// ErrConflict while any pending or confirmed booking still references
// the location; historical bookings keep their location_id.
func (r *LocationRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE location_id = ? AND booking_status IN ('pending','confirmed') FOR UPDATE`,
		id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}

	if err := purgeAvailabilityTx(ctx, tx, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
