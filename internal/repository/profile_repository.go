package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-hub/internal/model"
)

// ProfileRepo manages persistence for user profiles. Profiles are a
// one-to-one extension of users and are created lazily on first
// access, so GetByUser and EnsureForUser are the usual entry points.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileColumns = "id,user_id,full_name,bio,location,picture_url,created_at,updated_at"

// GetByUser fetches the profile owned by userID.
func (r *ProfileRepo) GetByUser(ctx context.Context, userID uint64) (model.Profile, error) {
	var p model.Profile
	var pic sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id=? LIMIT 1", userID).
		Scan(&p.ID, &p.UserID, &p.FullName, &p.Bio, &p.Location, &pic, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}
	if pic.Valid {
		v := pic.String
		p.PictureURL = &v
	}
	return p, nil
}

// EnsureForUser returns the user's profile, creating an empty one if
// none exists yet. A concurrent first access may race on the unique
// user_id key; the loser of that race re-reads the surviving row.
func (r *ProfileRepo) EnsureForUser(ctx context.Context, userID uint64) (model.Profile, error) {
	p, err := r.GetByUser(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.Profile{}, err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO profiles (user_id, bio) VALUES (?, '')", userID)
	if err != nil && !isDuplicateKey(err) {
		return model.Profile{}, err
	}
	return r.GetByUser(ctx, userID)
}

// Update overwrites the mutable fields of the user's profile.
func (r *ProfileRepo) Update(ctx context.Context, userID uint64, fullName, bio, location string, pictureURL *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET full_name=?, bio=?, location=?, picture_url=? WHERE user_id=?",
		fullName, bio, location, pictureURL, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Row may exist with identical values; distinguish from absence.
		if _, err := r.GetByUser(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}
