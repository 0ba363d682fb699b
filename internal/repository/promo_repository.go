package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/marineworld/booking/internal/model"
)

// PromoRepo manages promotional codes.  Redemption is an atomic
// conditional increment so a code with one use left cannot be redeemed
// by two concurrent bookings.
type PromoRepo struct {
	db *sql.DB
}

func NewPromoRepo(db *sql.DB) *PromoRepo {
	return &PromoRepo{db: db}
}

const promoColumns = `id, code, discount_type, discount_value, minimum_amount, maximum_discount,
	usage_limit, used_count, valid_from, valid_to, status, created_at, updated_at`

func scanPromo(row interface{ Scan(...interface{}) error }) (*model.PromoCode, error) {
	var p model.PromoCode
	err := row.Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue,
		&p.MinimumAmount, &p.MaximumDiscount, &p.UsageLimit, &p.UsedCount,
		&p.ValidFrom, &p.ValidTo, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByCode looks a code up case-insensitively.
func (r *PromoRepo) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	const q = `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = ?`
	return scanPromo(r.db.QueryRowContext(ctx, q, strings.ToUpper(strings.TrimSpace(code))))
}

// List returns all codes, newest first.
func (r *PromoRepo) List(ctx context.Context) ([]model.PromoCode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+promoColumns+` FROM promo_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PromoCode, 0)
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Create inserts a new code.  Codes are stored upper-cased.
func (r *PromoRepo) Create(ctx context.Context, p *model.PromoCode) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO promo_codes (code, discount_type, discount_value, minimum_amount,
		   maximum_discount, usage_limit, valid_from, valid_to, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Code, p.DiscountType, p.DiscountValue, p.MinimumAmount,
		p.MaximumDiscount, p.UsageLimit, dateOnly(p.ValidFrom), dateOnly(p.ValidTo), p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// SetStatus activates or deactivates a code.
func (r *PromoRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE promo_codes SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// redeemPromoTx consumes one use of the code inside the booking
// transaction.  The WHERE clause re-checks window, status and usage
// limit so the validate-then-book gap cannot oversell the code; zero
// rows affected means the code is no longer redeemable for this date.
func redeemPromoTx(ctx context.Context, tx dbtx, code string, visitDate time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE promo_codes SET used_count = used_count + 1
		 WHERE code = ? AND status = 'active'
		   AND valid_from <= ? AND valid_to >= ?
		   AND (usage_limit = 0 OR used_count < usage_limit)`,
		code, dateOnly(visitDate), dateOnly(visitDate))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPromoExhausted
	}
	return nil
}
