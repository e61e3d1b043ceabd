package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-hub/internal/model"
)

// EventRepo manages persistence for events. Listing queries are
// visibility-scoped here rather than filtered in memory so the
// (organizer_id, is_public) and (start_time, is_public) indexes do
// the work.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = "id,title,description,location,start_time,end_time,organizer_id,is_public,created_at,updated_at"

// Create inserts a new event and populates the generated ID and the
// DB-default timestamps on the given record.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO events (title, description, location, start_time, end_time, organizer_id, is_public) VALUES (?,?,?,?,?,?,?)",
		ev.Title, ev.Description, ev.Location, ev.StartTime.UTC(), ev.EndTime.UTC(), ev.OrganizerID, ev.IsPublic)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	got, err := r.GetByID(ctx, ev.ID)
	if err != nil {
		return err
	}
	*ev = got
	return nil
}

// GetByID fetches a single event.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	var ev model.Event
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id=? LIMIT 1", id).
		Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Location, &ev.StartTime, &ev.EndTime,
			&ev.OrganizerID, &ev.IsPublic, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return ev, err
}

// Update overwrites the mutable fields of an event. The organizer is
// immutable and deliberately absent from the statement.
func (r *EventRepo) Update(ctx context.Context, ev model.Event) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE events SET title=?, description=?, location=?, start_time=?, end_time=?, is_public=? WHERE id=?",
		ev.Title, ev.Description, ev.Location, ev.StartTime.UTC(), ev.EndTime.UTC(), ev.IsPublic, ev.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, ev.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an event. The rsvps and reviews rows follow via the
// foreign-key cascade.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
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

// ListPublic returns all public events newest-start first.
func (r *EventRepo) ListPublic(ctx context.Context) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE is_public=1 ORDER BY start_time DESC")
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListVisibleTo returns the events userID may see: public ones plus
// private ones they organize or hold an RSVP on.
func (r *EventRepo) ListVisibleTo(ctx context.Context, userID uint64) ([]model.Event, error) {
	const q = `SELECT DISTINCT e.id,e.title,e.description,e.location,e.start_time,e.end_time,e.organizer_id,e.is_public,e.created_at,e.updated_at
		FROM events e
		LEFT JOIN rsvps r ON r.event_id = e.id AND r.user_id = ?
		WHERE e.is_public = 1 OR e.organizer_id = ? OR r.id IS NOT NULL
		ORDER BY e.start_time DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID, userID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Location, &ev.StartTime,
			&ev.EndTime, &ev.OrganizerID, &ev.IsPublic, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
