package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marineworld/booking/internal/model"
)

// AddonRepo manages the add-on catalog.
type AddonRepo struct {
	db *sql.DB
}

func NewAddonRepo(db *sql.DB) *AddonRepo {
	return &AddonRepo{db: db}
}

const addonColumns = `id, name, description, price, display_order, status, created_at, updated_at`

func scanAddon(row interface{ Scan(...interface{}) error }) (*model.Addon, error) {
	var a model.Addon
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Price, &a.DisplayOrder,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AddonRepo) GetByID(ctx context.Context, id uint64) (*model.Addon, error) {
	const q = `SELECT ` + addonColumns + ` FROM addons WHERE id = ?`
	return scanAddon(r.db.QueryRowContext(ctx, q, id))
}

// ListActive returns catalog entries visitors can buy, in display order.
func (r *AddonRepo) ListActive(ctx context.Context) ([]model.Addon, error) {
	return r.list(ctx, `SELECT `+addonColumns+` FROM addons WHERE status = 'active' ORDER BY display_order, id`)
}

func (r *AddonRepo) List(ctx context.Context) ([]model.Addon, error) {
	return r.list(ctx, `SELECT `+addonColumns+` FROM addons ORDER BY display_order, id`)
}

// PriceMap returns current prices for the given active add-ons.  Absent
// keys mean the add-on does not exist or is inactive; the caller treats
// that as a validation failure.
func (r *AddonRepo) PriceMap(ctx context.Context, ids []uint64) (map[uint64]float64, error) {
	out := make(map[uint64]float64, len(ids))
	for _, id := range ids {
		var price float64
		err := r.db.QueryRowContext(ctx,
			`SELECT price FROM addons WHERE id = ? AND status = 'active'`, id).Scan(&price)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = price
	}
	return out, nil
}

func (r *AddonRepo) Create(ctx context.Context, a *model.Addon) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO addons (name, description, price, display_order, status)
		 VALUES (?, ?, ?, ?, ?)`,
		a.Name, a.Description, a.Price, a.DisplayOrder, a.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *AddonRepo) Update(ctx context.Context, a *model.Addon) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE addons SET name = ?, description = ?, price = ?, display_order = ?, status = ?,
		   updated_at = UTC_TIMESTAMP()
		 WHERE id = ?`,
		a.Name, a.Description, a.Price, a.DisplayOrder, a.Status, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus toggles an add-on's visibility in the catalog.
func (r *AddonRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE addons SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an add-on from the catalog.  Existing bookings keep
// their serialized add-on snapshot, so no reference check is needed.
func (r *AddonRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM addons WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AddonRepo) list(ctx context.Context, q string) ([]model.Addon, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Addon, 0)
	for rows.Next() {
		a, err := scanAddon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
