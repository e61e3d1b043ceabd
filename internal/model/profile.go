package model

import "time"

// Profile stores free-form display attributes for a user. There is
// at most one profile per user (profiles.user_id is unique) and it
// is created lazily the first time the owner asks for it.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owning user (unique).
//  FullName   – display name, may be empty.
//  Bio        – free-form biography text.
//  Location   – free-form location string.
//  PictureURL – reference to an externally hosted picture, if any.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Profile struct {
	ID         uint64    // profiles.id
	UserID     uint64    // profiles.user_id
	FullName   string    // profiles.full_name
	Bio        string    // profiles.bio
	Location   string    // profiles.location
	PictureURL *string   // profiles.picture_url (nullable)
	CreatedAt  time.Time // profiles.created_at
	UpdatedAt  time.Time // profiles.updated_at
}
