package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-hub/internal/model"
)

// RSVPRepo manages persistence for RSVPs. The rsvps table carries a
// UNIQUE (event_id, user_id) key, so at most one row exists per pair
// and concurrent writers for the same pair serialize on it.
type RSVPRepo struct{ DB *sql.DB }

func NewRSVPRepo(db *sql.DB) *RSVPRepo { return &RSVPRepo{DB: db} }

const rsvpColumns = "id,event_id,user_id,status,created_at,updated_at"

// Get fetches the RSVP for one (event, user) pair.
func (r *RSVPRepo) Get(ctx context.Context, eventID, userID uint64) (model.RSVP, error) {
	var v model.RSVP
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+rsvpColumns+" FROM rsvps WHERE event_id=? AND user_id=? LIMIT 1",
		eventID, userID).
		Scan(&v.ID, &v.EventID, &v.UserID, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RSVP{}, ErrNotFound
	}
	return v, err
}

// Exists reports whether userID holds an RSVP on eventID. Used by the
// authorization path to grant private-event visibility.
func (r *RSVPRepo) Exists(ctx context.Context, eventID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM rsvps WHERE event_id=? AND user_id=? LIMIT 1", eventID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStatus sets the status of an existing row and reports whether
// a row was there to update.
func (r *RSVPRepo) UpdateStatus(ctx context.Context, eventID, userID uint64, status string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE rsvps SET status=? WHERE event_id=? AND user_id=?", status, eventID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// Zero rows means either no row or an identical status already in
	// place; the second case still counts as an update.
	var one int
	err = r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM rsvps WHERE event_id=? AND user_id=? LIMIT 1", eventID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert adds a new row for the pair. A duplicate-key failure,
// meaning a concurrent writer inserted first, surfaces as
// ErrDuplicate so the caller can retry as an update.
func (r *RSVPRepo) Insert(ctx context.Context, eventID, userID uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO rsvps (event_id, user_id, status) VALUES (?,?,?)", eventID, userID, status)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Delete removes the pair's RSVP.
func (r *RSVPRepo) Delete(ctx context.Context, eventID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM rsvps WHERE event_id=? AND user_id=?", eventID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEvent returns all RSVPs for an event, most recent answer first.
func (r *RSVPRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.RSVP, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+rsvpColumns+" FROM rsvps WHERE event_id=? ORDER BY updated_at DESC", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RSVP
	for rows.Next() {
		var v model.RSVP
		if err := rows.Scan(&v.ID, &v.EventID, &v.UserID, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GoingUserIDs returns the user ids of everyone currently marked
// "going" for the event. The notification consumer uses it to address
// event-update messages.
func (r *RSVPRepo) GoingUserIDs(ctx context.Context, eventID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id FROM rsvps WHERE event_id=? AND status='going'", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
