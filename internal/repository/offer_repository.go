package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marineworld/booking/internal/model"
)

// OfferRepo manages birthday offer campaigns.
type OfferRepo struct {
	db *sql.DB
}

func NewOfferRepo(db *sql.DB) *OfferRepo {
	return &OfferRepo{db: db}
}

const offerColumns = `id, name, discount_percent, min_age, max_age, days_before, days_after,
	per_customer_limit, total_limit, used_count, valid_from, valid_to, status, created_at, updated_at`

func scanOffer(row interface{ Scan(...interface{}) error }) (*model.BirthdayOffer, error) {
	var o model.BirthdayOffer
	err := row.Scan(&o.ID, &o.Name, &o.DiscountPercent, &o.MinAge, &o.MaxAge,
		&o.DaysBefore, &o.DaysAfter, &o.PerCustomerLimit, &o.TotalLimit, &o.UsedCount,
		&o.ValidFrom, &o.ValidTo, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OfferRepo) GetByID(ctx context.Context, id uint64) (*model.BirthdayOffer, error) {
	const q = `SELECT ` + offerColumns + ` FROM birthday_offers WHERE id = ?`
	return scanOffer(r.db.QueryRowContext(ctx, q, id))
}

// ListActive returns offers open for new redemptions.
func (r *OfferRepo) ListActive(ctx context.Context) ([]model.BirthdayOffer, error) {
	return r.list(ctx, `SELECT `+offerColumns+` FROM birthday_offers WHERE status = 'active' ORDER BY id`)
}

func (r *OfferRepo) List(ctx context.Context) ([]model.BirthdayOffer, error) {
	return r.list(ctx, `SELECT `+offerColumns+` FROM birthday_offers ORDER BY id`)
}

func (r *OfferRepo) list(ctx context.Context, q string) ([]model.BirthdayOffer, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BirthdayOffer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *OfferRepo) Create(ctx context.Context, o *model.BirthdayOffer) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO birthday_offers (name, discount_percent, min_age, max_age,
		   days_before, days_after, per_customer_limit, total_limit, valid_from, valid_to, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Name, o.DiscountPercent, o.MinAge, o.MaxAge,
		o.DaysBefore, o.DaysAfter, o.PerCustomerLimit, o.TotalLimit,
		dateOnly(o.ValidFrom), dateOnly(o.ValidTo), o.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

func (r *OfferRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE birthday_offers SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// redeemOfferTx consumes one use of the offer inside the booking
// transaction, mirroring redeemPromoTx.  The offer row is locked first
// so the per-customer count and the usage increment are serialised
// against concurrent redemptions of the same offer.
func redeemOfferTx(ctx context.Context, tx dbtx, id uint64, customerEmail string) error {
	var perCustomer int
	err := tx.QueryRowContext(ctx,
		`SELECT per_customer_limit FROM birthday_offers WHERE id = ? AND status = 'active' FOR UPDATE`,
		id).Scan(&perCustomer)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOfferExhausted
	}
	if err != nil {
		return err
	}
	if perCustomer > 0 {
		var redeemed int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings
			 WHERE birthday_offer_id = ? AND customer_email = ?
			   AND booking_status NOT IN ('cancelled','expired') FOR UPDATE`,
			id, customerEmail).Scan(&redeemed); err != nil {
			return err
		}
		if redeemed >= perCustomer {
			return ErrOfferExhausted
		}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE birthday_offers SET used_count = used_count + 1
		 WHERE id = ? AND (total_limit = 0 OR used_count < total_limit)`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOfferExhausted
	}
	return nil
}
