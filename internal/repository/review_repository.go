package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-hub/internal/model"
)

// ReviewRepo manages persistence for reviews. Mirrors RSVPRepo: one
// row per (event_id, user_id) enforced by a UNIQUE key.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

const reviewColumns = "id,event_id,user_id,rating,comment,created_at,updated_at"

// Get fetches the review for one (event, user) pair.
func (r *ReviewRepo) Get(ctx context.Context, eventID, userID uint64) (model.Review, error) {
	var v model.Review
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE event_id=? AND user_id=? LIMIT 1",
		eventID, userID).
		Scan(&v.ID, &v.EventID, &v.UserID, &v.Rating, &v.Comment, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrNotFound
	}
	return v, err
}

// Update overwrites rating and comment for an existing row and
// reports whether a row existed.
func (r *ReviewRepo) Update(ctx context.Context, eventID, userID uint64, rating int, comment string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE reviews SET rating=?, comment=? WHERE event_id=? AND user_id=?",
		rating, comment, eventID, userID)
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
	var one int
	err = r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM reviews WHERE event_id=? AND user_id=? LIMIT 1", eventID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert adds a new review row; duplicate-key races surface as
// ErrDuplicate for the caller's retry-as-update.
func (r *ReviewRepo) Insert(ctx context.Context, eventID, userID uint64, rating int, comment string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (event_id, user_id, rating, comment) VALUES (?,?,?,?)",
		eventID, userID, rating, comment)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Delete removes the pair's review.
func (r *ReviewRepo) Delete(ctx context.Context, eventID, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM reviews WHERE event_id=? AND user_id=?", eventID, userID)
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

// ListByEvent returns all reviews for an event, newest first.
func (r *ReviewRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Review, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE event_id=? ORDER BY created_at DESC", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Review
	for rows.Next() {
		var v model.Review
		if err := rows.Scan(&v.ID, &v.EventID, &v.UserID, &v.Rating, &v.Comment, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
