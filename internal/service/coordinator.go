package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-hub/internal/authz"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/queue"
	"github.com/iliyamo/event-hub/internal/repository"
)

// EventStore is the slice of EventRepo the coordinator needs.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	Update(ctx context.Context, ev model.Event) error
	Delete(ctx context.Context, id uint64) error
	ListPublic(ctx context.Context) ([]model.Event, error)
	ListVisibleTo(ctx context.Context, userID uint64) ([]model.Event, error)
}

// RSVPStore is the slice of RSVPRepo the coordinator needs.
type RSVPStore interface {
	Get(ctx context.Context, eventID, userID uint64) (model.RSVP, error)
	Exists(ctx context.Context, eventID, userID uint64) (bool, error)
	UpdateStatus(ctx context.Context, eventID, userID uint64, status string) (bool, error)
	Insert(ctx context.Context, eventID, userID uint64, status string) error
	Delete(ctx context.Context, eventID, userID uint64) error
	ListByEvent(ctx context.Context, eventID uint64) ([]model.RSVP, error)
}

// ReviewStore is the slice of ReviewRepo the coordinator needs.
type ReviewStore interface {
	Get(ctx context.Context, eventID, userID uint64) (model.Review, error)
	Update(ctx context.Context, eventID, userID uint64, rating int, comment string) (bool, error)
	Insert(ctx context.Context, eventID, userID uint64, rating int, comment string) error
	Delete(ctx context.Context, eventID, userID uint64) error
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Review, error)
}

// ProfileStore is the slice of ProfileRepo the coordinator needs.
type ProfileStore interface {
	EnsureForUser(ctx context.Context, userID uint64) (model.Profile, error)
	Update(ctx context.Context, userID uint64, fullName, bio, location string, pictureURL *string) error
}

// MutationSink receives one record per committed write. The sink must
// tolerate duplicate delivery of the same mutation ID.
type MutationSink interface {
	OnMutation(ctx context.Context, ev queue.MutationEvent)
}

// Coordinator orchestrates every create/update/delete on events,
// RSVPs, reviews and profiles. Each operation loads current state,
// consults the authorization engine before touching anything,
// validates domain invariants, applies the write, and only after the
// write commits emits a mutation record to the sink.
type Coordinator struct {
	Events   EventStore
	RSVPs    RSVPStore
	Reviews  ReviewStore
	Profiles ProfileStore
	Sink     MutationSink // optional; nil disables emission
}

func NewCoordinator(events EventStore, rsvps RSVPStore, reviews ReviewStore, profiles ProfileStore, sink MutationSink) *Coordinator {
	if events == nil || rsvps == nil || reviews == nil || profiles == nil {
		panic("nil store passed to NewCoordinator")
	}
	return &Coordinator{Events: events, RSVPs: rsvps, Reviews: reviews, Profiles: profiles, Sink: sink}
}

// emit hands a mutation record to the sink. Called strictly after the
// write has committed; the request path never blocks on anything the
// sink defers. The request context is detached first so a caller
// hanging up mid-response cannot abort the sink's cache eviction.
func (co *Coordinator) emit(ctx context.Context, kind string, eventID, actorID uint64) {
	if co.Sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	co.Sink.OnMutation(ctx, queue.MutationEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		EventID:    eventID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	})
}

// eventSnapshot builds the authz view of an event for this actor,
// loading RSVP possession only when it can matter.
func (co *Coordinator) eventSnapshot(ctx context.Context, actor authz.Actor, ev model.Event) (authz.Event, error) {
	snap := authz.Event{OrganizerID: ev.OrganizerID, IsPublic: ev.IsPublic}
	if !ev.IsPublic && actor.Authenticated && actor.ID != ev.OrganizerID {
		has, err := co.RSVPs.Exists(ctx, ev.ID, actor.ID)
		if err != nil {
			return authz.Event{}, err
		}
		snap.ViewerHasRSVP = has
	}
	return snap, nil
}

func deniedErr(d authz.Decision) error {
	return &DeniedError{Reason: d.Reason, Hidden: d.Hidden}
}

// --- events ---

// CreateEventInput carries the fields a client may set at creation.
type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	IsPublic    bool
}

func validateEventWindow(start, end time.Time) error {
	if start.IsZero() {
		return &ValidationError{Field: "start_time", Message: "required"}
	}
	if end.IsZero() {
		return &ValidationError{Field: "end_time", Message: "required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "end_time", Message: "must be after start_time"}
	}
	return nil
}

// CreateEvent creates a new event with the actor as organizer.
func (co *Coordinator) CreateEvent(ctx context.Context, actor authz.Actor, in CreateEventInput) (model.Event, error) {
	if d := authz.Decide(actor, authz.Event{}, authz.ActionCreate); !d.Allowed {
		return model.Event{}, deniedErr(d)
	}
	if strings.TrimSpace(in.Title) == "" {
		return model.Event{}, &ValidationError{Field: "title", Message: "required"}
	}
	if err := validateEventWindow(in.StartTime, in.EndTime); err != nil {
		return model.Event{}, err
	}
	ev := model.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		OrganizerID: actor.ID,
		IsPublic:    in.IsPublic,
	}
	if err := co.Events.Create(ctx, &ev); err != nil {
		return model.Event{}, err
	}
	co.emit(ctx, queue.KindEventCreated, ev.ID, actor.ID)
	return ev, nil
}

// UpdateEventInput is a partial patch; nil fields stay unchanged.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	IsPublic    *bool
}

// UpdateEvent applies a patch to an event the actor organizes.
func (co *Coordinator) UpdateEvent(ctx context.Context, actor authz.Actor, id uint64, in UpdateEventInput) (model.Event, error) {
	ev, err := co.Events.GetByID(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	snap, err := co.eventSnapshot(ctx, actor, ev)
	if err != nil {
		return model.Event{}, err
	}
	if d := authz.Decide(actor, snap, authz.ActionUpdate); !d.Allowed {
		return model.Event{}, deniedErr(d)
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return model.Event{}, &ValidationError{Field: "title", Message: "required"}
		}
		ev.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Location != nil {
		ev.Location = *in.Location
	}
	if in.StartTime != nil {
		ev.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		ev.EndTime = in.EndTime.UTC()
	}
	if in.IsPublic != nil {
		ev.IsPublic = *in.IsPublic
	}
	if err := validateEventWindow(ev.StartTime, ev.EndTime); err != nil {
		return model.Event{}, err
	}
	if err := co.Events.Update(ctx, ev); err != nil {
		return model.Event{}, err
	}
	co.emit(ctx, queue.KindEventUpdated, ev.ID, actor.ID)
	return ev, nil
}

// DeleteEvent removes an event the actor organizes. RSVPs and reviews
// go with it via the store's cascade.
func (co *Coordinator) DeleteEvent(ctx context.Context, actor authz.Actor, id uint64) error {
	ev, err := co.Events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	snap, err := co.eventSnapshot(ctx, actor, ev)
	if err != nil {
		return err
	}
	if d := authz.Decide(actor, snap, authz.ActionDelete); !d.Allowed {
		return deniedErr(d)
	}
	if err := co.Events.Delete(ctx, id); err != nil {
		return err
	}
	co.emit(ctx, queue.KindEventDeleted, id, actor.ID)
	return nil
}

// GetEvent returns a single event the actor may read. Private events
// the actor cannot see surface as a hidden denial, which the
// transport maps to not-found.
func (co *Coordinator) GetEvent(ctx context.Context, actor authz.Actor, id uint64) (model.Event, error) {
	ev, err := co.Events.GetByID(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	snap, err := co.eventSnapshot(ctx, actor, ev)
	if err != nil {
		return model.Event{}, err
	}
	if d := authz.Decide(actor, snap, authz.ActionRead); !d.Allowed {
		return model.Event{}, deniedErr(d)
	}
	return ev, nil
}

// ListEvents returns the events visible to the actor: everything
// public for anonymous callers, plus organized and RSVP'd private
// events for authenticated ones.
func (co *Coordinator) ListEvents(ctx context.Context, actor authz.Actor) ([]model.Event, error) {
	if !actor.Authenticated {
		return co.Events.ListPublic(ctx)
	}
	return co.Events.ListVisibleTo(ctx, actor.ID)
}

// ListEventRSVPs returns all RSVPs on an event the actor may read.
func (co *Coordinator) ListEventRSVPs(ctx context.Context, actor authz.Actor, eventID uint64) ([]model.RSVP, error) {
	if _, err := co.GetEvent(ctx, actor, eventID); err != nil {
		return nil, err
	}
	return co.RSVPs.ListByEvent(ctx, eventID)
}

// ListEventReviews returns all reviews on an event the actor may read.
func (co *Coordinator) ListEventReviews(ctx context.Context, actor authz.Actor, eventID uint64) ([]model.Review, error) {
	if _, err := co.GetEvent(ctx, actor, eventID); err != nil {
		return nil, err
	}
	return co.Reviews.ListByEvent(ctx, eventID)
}

// --- rsvps ---

// UpsertRSVP records or replaces the actor's answer for an event.
// The returned flag reports whether a new row was created. Exactly
// one row per (event, user) survives concurrent calls: the write is
// an update-first/insert-on-absence sequence, and a duplicate-key
// race on the insert is retried once as an update before surfacing
// ErrConflict.
func (co *Coordinator) UpsertRSVP(ctx context.Context, actor authz.Actor, eventID uint64, status string) (model.RSVP, bool, error) {
	ev, err := co.Events.GetByID(ctx, eventID)
	if err != nil {
		return model.RSVP{}, false, err
	}
	snap, err := co.eventSnapshot(ctx, actor, ev)
	if err != nil {
		return model.RSVP{}, false, err
	}
	owned := authz.Owned{OwnerID: actor.ID, Event: snap}
	if d := authz.Decide(actor, owned, authz.ActionCreate); !d.Allowed {
		return model.RSVP{}, false, deniedErr(d)
	}
	if !model.ValidRSVPStatus(status) {
		return model.RSVP{}, false, &ValidationError{Field: "status", Message: "must be going, maybe or not_going"}
	}

	created := false
	updated, err := co.RSVPs.UpdateStatus(ctx, eventID, actor.ID, status)
	if err != nil {
		return model.RSVP{}, false, err
	}
	if !updated {
		switch err := co.RSVPs.Insert(ctx, eventID, actor.ID, status); {
		case err == nil:
			created = true
		case errors.Is(err, repository.ErrDuplicate):
			// Lost the insert race; the surviving row takes our status.
			updated, err := co.RSVPs.UpdateStatus(ctx, eventID, actor.ID, status)
			if err != nil {
				return model.RSVP{}, false, err
			}
			if !updated {
				return model.RSVP{}, false, ErrConflict
			}
		default:
			return model.RSVP{}, false, err
		}
	}
	row, err := co.RSVPs.Get(ctx, eventID, actor.ID)
	if err != nil {
		return model.RSVP{}, false, err
	}
	co.emit(ctx, queue.KindRSVPUpserted, eventID, actor.ID)
	return row, created, nil
}

// DeleteRSVP removes the actor's own RSVP from an event.
func (co *Coordinator) DeleteRSVP(ctx context.Context, actor authz.Actor, eventID uint64) error {
	ev, err := co.Events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	row, err := co.RSVPs.Get(ctx, eventID, actor.ID)
	if err != nil {
		return err
	}
	snap, err := co.eventSnapshot(ctx, actor, ev)
	if err != nil {
		return err
	}
	owned := authz.Owned{OwnerID: row.UserID, Event: snap}
	if d := authz.Decide(actor, owned, authz.ActionDelete); !d.Allowed {
		return deniedErr(d)
	}
	if err := co.RSVPs.Delete(ctx, eventID, actor.ID); err != nil {
		return err
	}
	co.emit(ctx, queue.KindRSVPDeleted, eventID, actor.ID)
	return nil
}

// --- reviews ---

// UpsertReview records or replaces the actor's review of an event.
// Same uniqueness and race handling as UpsertRSVP.
func (co *Coordinator) UpsertReview(ctx context.Context, actor authz.Actor, eventID uint64, rating int, comment string) (model.Review, bool, error) {
	ev, err := co.Events.GetByID(ctx, eventID)
	if err != nil {
		return model.Review{}, false, err
	}
	snap, err := co.eventSnapshot(ctx, actor, ev)
	if err != nil {
		return model.Review{}, false, err
	}
	owned := authz.Owned{OwnerID: actor.ID, Event: snap}
	if d := authz.Decide(actor, owned, authz.ActionCreate); !d.Allowed {
		return model.Review{}, false, deniedErr(d)
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return model.Review{}, false, &ValidationError{Field: "rating", Message: "must be between 1 and 5"}
	}

	created := false
	updated, err := co.Reviews.Update(ctx, eventID, actor.ID, rating, comment)
	if err != nil {
		return model.Review{}, false, err
	}
	if !updated {
		switch err := co.Reviews.Insert(ctx, eventID, actor.ID, rating, comment); {
		case err == nil:
			created = true
		case errors.Is(err, repository.ErrDuplicate):
			updated, err := co.Reviews.Update(ctx, eventID, actor.ID, rating, comment)
			if err != nil {
				return model.Review{}, false, err
			}
			if !updated {
				return model.Review{}, false, ErrConflict
			}
		default:
			return model.Review{}, false, err
		}
	}
	row, err := co.Reviews.Get(ctx, eventID, actor.ID)
	if err != nil {
		return model.Review{}, false, err
	}
	co.emit(ctx, queue.KindReviewUpserted, eventID, actor.ID)
	return row, created, nil
}

// DeleteReview removes the actor's own review of an event.
func (co *Coordinator) DeleteReview(ctx context.Context, actor authz.Actor, eventID uint64) error {
	ev, err := co.Events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	row, err := co.Reviews.Get(ctx, eventID, actor.ID)
	if err != nil {
		return err
	}
	snap, err := co.eventSnapshot(ctx, actor, ev)
	if err != nil {
		return err
	}
	owned := authz.Owned{OwnerID: row.UserID, Event: snap}
	if d := authz.Decide(actor, owned, authz.ActionDelete); !d.Allowed {
		return deniedErr(d)
	}
	if err := co.Reviews.Delete(ctx, eventID, actor.ID); err != nil {
		return err
	}
	co.emit(ctx, queue.KindReviewDeleted, eventID, actor.ID)
	return nil
}

// --- profiles ---

// GetProfile returns the actor's profile, creating an empty one on
// first access.
func (co *Coordinator) GetProfile(ctx context.Context, actor authz.Actor) (model.Profile, error) {
	if !actor.Authenticated {
		return model.Profile{}, &DeniedError{Reason: "authentication required"}
	}
	return co.Profiles.EnsureForUser(ctx, actor.ID)
}

// UpdateProfileInput carries the profile fields a user may set.
type UpdateProfileInput struct {
	FullName   string
	Bio        string
	Location   string
	PictureURL *string
}

// UpdateProfile overwrites the actor's own profile.
func (co *Coordinator) UpdateProfile(ctx context.Context, actor authz.Actor, in UpdateProfileInput) (model.Profile, error) {
	if !actor.Authenticated {
		return model.Profile{}, &DeniedError{Reason: "authentication required"}
	}
	if _, err := co.Profiles.EnsureForUser(ctx, actor.ID); err != nil {
		return model.Profile{}, err
	}
	if err := co.Profiles.Update(ctx, actor.ID, in.FullName, in.Bio, in.Location, in.PictureURL); err != nil {
		return model.Profile{}, err
	}
	return co.Profiles.EnsureForUser(ctx, actor.ID)
}
