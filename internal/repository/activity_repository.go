package repository

import (
	"context"
	"database/sql"
	"time"
)

// ActivityEntry is one line of a booking's audit trail.
type ActivityEntry struct {
	ID         uint64    `json:"id"`
	BookingRef string    `json:"booking_ref"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityRepo appends to and reads the booking activity log.  Writes
// that belong to a lifecycle transition go through InsertTx so the log
// entry commits or rolls back with the transition itself.
type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Insert(ctx context.Context, ref, action, detail string) error {
	return r.InsertTx(ctx, r.db, ref, action, detail)
}

func (r *ActivityRepo) InsertTx(ctx context.Context, tx dbtx, ref, action, detail string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO booking_activity (booking_ref, action, detail) VALUES (?, ?, ?)`,
		ref, action, detail)
	return err
}

// ListForBooking returns the trail for one booking, oldest first.
func (r *ActivityRepo) ListForBooking(ctx context.Context, ref string) ([]ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, booking_ref, action, detail, created_at
		 FROM booking_activity WHERE booking_ref = ? ORDER BY id`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ActivityEntry, 0)
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.BookingRef, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
