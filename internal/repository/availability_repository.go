package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/marineworld/booking/internal/model"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the conditional
// capacity statements can run standalone or inside the booking-create
// transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// AvailabilityRepo is the per-location per-date capacity ledger.  All
// mutations are single atomic statements that re-derive the status
// column in the same write; the invariant booked_slots +
// available_slots == total_capacity is maintained by construction.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns an AvailabilityRepo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning this repository and the booking ledger.
func (r *AvailabilityRepo) DB() *sql.DB { return r.db }

const availabilityColumns = `id, location_id, date, total_capacity, booked_slots, available_slots, status, is_blackout, special_pricing, updated_at`

func scanAvailability(row interface{ Scan(...interface{}) error }) (*model.AvailabilityRecord, error) {
	var rec model.AvailabilityRecord
	var special sql.NullFloat64
	if err := row.Scan(&rec.ID, &rec.LocationID, &rec.Date, &rec.TotalCapacity,
		&rec.BookedSlots, &rec.AvailableSlots, &rec.Status, &rec.IsBlackout,
		&special, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if special.Valid {
		v := special.Float64
		rec.SpecialPricing = &v
	}
	return &rec, nil
}

// Range returns the availability records for a location between two
// dates (inclusive), ordered by date.
func (r *AvailabilityRepo) Range(ctx context.Context, locationID uint64, from, to time.Time) ([]model.AvailabilityRecord, error) {
	const q = `SELECT ` + availabilityColumns + `
	           FROM availability
	           WHERE location_id = ? AND date BETWEEN ? AND ?
	           ORDER BY date`
	rows, err := r.db.QueryContext(ctx, q, locationID, dateOnly(from), dateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := make([]model.AvailabilityRecord, 0)
	for rows.Next() {
		rec, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// GetDate returns the single record for a location and date, or
// ErrNotFound when the date has never been capacitated.
func (r *AvailabilityRepo) GetDate(ctx context.Context, locationID uint64, date time.Time) (*model.AvailabilityRecord, error) {
	const q = `SELECT ` + availabilityColumns + ` FROM availability WHERE location_id = ? AND date = ?`
	rec, err := scanAvailability(r.db.QueryRowContext(ctx, q, locationID, dateOnly(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// SeedWindow pre-generates availability rows for a rolling future
// window starting at from.  Existing rows are left untouched so the
// call is idempotent and safe to re-run daily.
func (r *AvailabilityRepo) SeedWindow(ctx context.Context, locationID uint64, from time.Time, days, capacity int) error {
	if days <= 0 || capacity < 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT IGNORE INTO availability (location_id, date, total_capacity, booked_slots, available_slots, status) VALUES `)
	args := make([]interface{}, 0, days*4)
	status := model.DeriveStatus(capacity, capacity, false)
	for i := 0; i < days; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, 0, ?, ?)")
		args = append(args, locationID, dateOnly(from.AddDate(0, 0, i)), capacity, capacity, status)
	}
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// Reserve consumes quantity slots for the date in one conditional
// statement.  Zero rows affected means the guarded condition failed;
// the row is then inspected once to produce a typed error carrying the
// exact remaining count.
func (r *AvailabilityRepo) Reserve(ctx context.Context, locationID uint64, date time.Time, quantity int) error {
	return reserveTx(ctx, r.db, locationID, date, quantity)
}

// ReserveTx is Reserve scoped to an existing transaction; the booking
// ledger uses it so the capacity decrement and the booking insert
// commit or roll back together.
func (r *AvailabilityRepo) ReserveTx(ctx context.Context, tx *sql.Tx, locationID uint64, date time.Time, quantity int) error {
	return reserveTx(ctx, tx, locationID, date, quantity)
}

func reserveTx(ctx context.Context, ex dbtx, locationID uint64, date time.Time, quantity int) error {
	// Assignment order matters: status reads available_slots before the
	// slot columns are updated, so the CASE works off the pre-update count.
	const q = `UPDATE availability
	           SET status = CASE
	                          WHEN available_slots - ? <= 0 THEN 'sold_out'
	                          WHEN (available_slots - ?) * 5 <= total_capacity THEN 'limited'
	                          ELSE 'available'
	                        END,
	               booked_slots = booked_slots + ?,
	               available_slots = available_slots - ?,
	               updated_at = UTC_TIMESTAMP()
	           WHERE location_id = ? AND date = ?
	             AND is_blackout = 0
	             AND available_slots >= ?`
	res, err := ex.ExecContext(ctx, q, quantity, quantity, quantity, quantity,
		locationID, dateOnly(date), quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// The guard rejected the update; classify why.
	var available int
	var blackout bool
	err = ex.QueryRowContext(ctx,
		`SELECT available_slots, is_blackout FROM availability WHERE location_id = ? AND date = ?`,
		locationID, dateOnly(date)).Scan(&available, &blackout)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if blackout {
		return ErrBlackout
	}
	if available <= 0 {
		return ErrSoldOut
	}
	return &AvailabilityError{Requested: quantity, Remaining: available}
}

// Release returns quantity slots to the date; the inverse of Reserve,
// used on cancellation and expiry.
func (r *AvailabilityRepo) Release(ctx context.Context, locationID uint64, date time.Time, quantity int) error {
	return releaseTx(ctx, r.db, locationID, date, quantity)
}

// ReleaseTx is Release scoped to an existing transaction.
func (r *AvailabilityRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, locationID uint64, date time.Time, quantity int) error {
	return releaseTx(ctx, tx, locationID, date, quantity)
}

func releaseTx(ctx context.Context, ex dbtx, locationID uint64, date time.Time, quantity int) error {
	const q = `UPDATE availability
	           SET status = CASE
	                          WHEN is_blackout = 1 THEN 'blackout'
	                          WHEN available_slots + ? <= 0 THEN 'sold_out'
	                          WHEN (available_slots + ?) * 5 <= total_capacity THEN 'limited'
	                          ELSE 'available'
	                        END,
	               booked_slots = booked_slots - ?,
	               available_slots = available_slots + ?,
	               updated_at = UTC_TIMESTAMP()
	           WHERE location_id = ? AND date = ?
	             AND booked_slots >= ?`
	res, err := ex.ExecContext(ctx, q, quantity, quantity, quantity, quantity,
		locationID, dateOnly(date), quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// Releasing more than is booked would corrupt the ledger; clamp the
	// row to zero booked instead and leave a trace in the log.
	const clamp = `UPDATE availability
	               SET status = CASE WHEN is_blackout = 1 THEN 'blackout' ELSE 'available' END,
	                   available_slots = total_capacity,
	                   booked_slots = 0,
	                   updated_at = UTC_TIMESTAMP()
	               WHERE location_id = ? AND date = ?`
	res, err = ex.ExecContext(ctx, clamp, locationID, dateOnly(date))
	if err != nil {
		return err
	}
	if n, _ = res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	log.Printf("availability: release of %d slots clamped to zero booked for location=%d date=%s",
		quantity, locationID, dateOnly(date))
	return nil
}

// SetCapacity changes the total capacity for a date, keeping booked
// slots intact.  It fails with ErrCapacityTooLow when the new total is
// below what is already booked.  Dates that were never seeded are
// created lazily with the full capacity available.
func (r *AvailabilityRepo) SetCapacity(ctx context.Context, locationID uint64, date time.Time, newTotal int) error {
	const q = `UPDATE availability
	           SET status = CASE
	                          WHEN is_blackout = 1 THEN 'blackout'
	                          WHEN ? - booked_slots <= 0 THEN 'sold_out'
	                          WHEN (? - booked_slots) * 5 <= ? THEN 'limited'
	                          ELSE 'available'
	                        END,
	               total_capacity = ?,
	               available_slots = ? - booked_slots,
	               updated_at = UTC_TIMESTAMP()
	           WHERE location_id = ? AND date = ? AND booked_slots <= ?`
	res, err := r.db.ExecContext(ctx, q, newTotal, newTotal, newTotal, newTotal, newTotal,
		locationID, dateOnly(date), newTotal)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}
	var booked int
	err = r.db.QueryRowContext(ctx,
		`SELECT booked_slots FROM availability WHERE location_id = ? AND date = ?`,
		locationID, dateOnly(date)).Scan(&booked)
	if errors.Is(err, sql.ErrNoRows) {
		// Lazy creation on first capacity update for an unseeded date.
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO availability (location_id, date, total_capacity, booked_slots, available_slots, status)
			 VALUES (?, ?, ?, 0, ?, ?)`,
			locationID, dateOnly(date), newTotal, newTotal, model.DeriveStatus(newTotal, newTotal, false))
		return err
	}
	if err != nil {
		return err
	}
	return ErrCapacityTooLow
}

// SetBlackout toggles the administrator blackout override and
// re-derives the status either way.
func (r *AvailabilityRepo) SetBlackout(ctx context.Context, locationID uint64, date time.Time, on bool) error {
	const q = `UPDATE availability
	           SET is_blackout = ?,
	               status = CASE
	                          WHEN ? THEN 'blackout'
	                          WHEN available_slots <= 0 THEN 'sold_out'
	                          WHEN available_slots * 5 <= total_capacity THEN 'limited'
	                          ELSE 'available'
	                        END,
	               updated_at = UTC_TIMESTAMP()
	           WHERE location_id = ? AND date = ?`
	res, err := r.db.ExecContext(ctx, q, on, on, locationID, dateOnly(date))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSpecialPricing sets or clears the per-date price multiplier.
func (r *AvailabilityRepo) SetSpecialPricing(ctx context.Context, locationID uint64, date time.Time, multiplier *float64) error {
	var val sql.NullFloat64
	if multiplier != nil {
		val = sql.NullFloat64{Float64: *multiplier, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE availability SET special_pricing = ?, updated_at = UTC_TIMESTAMP() WHERE location_id = ? AND date = ?`,
		val, locationID, dateOnly(date))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// purgeAvailabilityTx removes every availability row for a location.
// Callers must have verified the location has no active bookings; the
// location repository wraps this in its delete transaction.
func purgeAvailabilityTx(ctx context.Context, tx dbtx, locationID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM availability WHERE location_id = ?`, locationID)
	return err
}

// dateOnly normalises a timestamp to the DATE column format in UTC.
func dateOnly(t time.Time) string { return t.UTC().Format("2006-01-02") }
