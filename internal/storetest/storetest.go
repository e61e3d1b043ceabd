// Package storetest provides in-memory implementations of the
// coordinator's store interfaces for tests. The fakes mimic the
// store's concurrency-relevant behavior: uniqueness keys, duplicate
// detection on insert, and cascade on event delete.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/queue"
	"github.com/iliyamo/event-hub/internal/repository"
)

// pair keys RSVP and review rows the way the UNIQUE constraint does.
type pair struct{ eventID, userID uint64 }

// FakeEventStore implements service.EventStore over a map.
type FakeEventStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Event

	// RSVPs, when set, backs ListVisibleTo's "holds an RSVP" arm and
	// the cascade on Delete.
	RSVPs   *FakeRSVPStore
	Reviews *FakeReviewStore
}

func NewFakeEventStore() *FakeEventStore {
	return &FakeEventStore{rows: map[uint64]model.Event{}}
}

func (s *FakeEventStore) Create(_ context.Context, ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ev.ID = s.nextID
	now := time.Now().UTC()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	s.rows[ev.ID] = *ev
	return nil
}

func (s *FakeEventStore) GetByID(_ context.Context, id uint64) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.rows[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return ev, nil
}

func (s *FakeEventStore) Update(_ context.Context, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[ev.ID]; !ok {
		return repository.ErrNotFound
	}
	ev.UpdatedAt = time.Now().UTC()
	s.rows[ev.ID] = ev
	return nil
}

func (s *FakeEventStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	if _, ok := s.rows[id]; !ok {
		s.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	s.mu.Unlock()
	// Cascade, as the schema's foreign keys would.
	if s.RSVPs != nil {
		s.RSVPs.deleteByEvent(id)
	}
	if s.Reviews != nil {
		s.Reviews.deleteByEvent(id)
	}
	return nil
}

func (s *FakeEventStore) ListPublic(_ context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, ev := range s.rows {
		if ev.IsPublic {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *FakeEventStore) ListVisibleTo(ctx context.Context, userID uint64) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, ev := range s.rows {
		visible := ev.IsPublic || ev.OrganizerID == userID
		if !visible && s.RSVPs != nil {
			has, _ := s.RSVPs.Exists(ctx, ev.ID, userID)
			visible = has
		}
		if visible {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func sortEvents(evs []model.Event) {
	sort.Slice(evs, func(i, j int) bool { return evs[i].StartTime.After(evs[j].StartTime) })
}

// FakeRSVPStore implements service.RSVPStore. OnInsert, when set,
// runs before each insert and may return repository.ErrDuplicate to
// simulate losing an insert race.
type FakeRSVPStore struct {
	mu       sync.Mutex
	nextID   uint64
	rows     map[pair]model.RSVP
	OnInsert func(eventID, userID uint64) error
}

func NewFakeRSVPStore() *FakeRSVPStore {
	return &FakeRSVPStore{rows: map[pair]model.RSVP{}}
}

// Put seeds a row directly, bypassing the coordinator.
func (s *FakeRSVPStore) Put(eventID, userID uint64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(eventID, userID, status)
}

func (s *FakeRSVPStore) insertLocked(eventID, userID uint64, status string) {
	s.nextID++
	now := time.Now().UTC()
	s.rows[pair{eventID, userID}] = model.RSVP{
		ID: s.nextID, EventID: eventID, UserID: userID, Status: status,
		CreatedAt: now, UpdatedAt: now,
	}
}

// Len reports the number of rows, for uniqueness assertions.
func (s *FakeRSVPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *FakeRSVPStore) Get(_ context.Context, eventID, userID uint64) (model.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pair{eventID, userID}]
	if !ok {
		return model.RSVP{}, repository.ErrNotFound
	}
	return row, nil
}

func (s *FakeRSVPStore) Exists(_ context.Context, eventID, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[pair{eventID, userID}]
	return ok, nil
}

func (s *FakeRSVPStore) UpdateStatus(_ context.Context, eventID, userID uint64, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pair{eventID, userID}]
	if !ok {
		return false, nil
	}
	row.Status = status
	row.UpdatedAt = time.Now().UTC()
	s.rows[pair{eventID, userID}] = row
	return true, nil
}

func (s *FakeRSVPStore) Insert(_ context.Context, eventID, userID uint64, status string) error {
	// Hook runs outside the lock so it may seed rows through Put.
	if s.OnInsert != nil {
		if err := s.OnInsert(eventID, userID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[pair{eventID, userID}]; ok {
		return repository.ErrDuplicate
	}
	s.insertLocked(eventID, userID, status)
	return nil
}

func (s *FakeRSVPStore) Delete(_ context.Context, eventID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[pair{eventID, userID}]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, pair{eventID, userID})
	return nil
}

func (s *FakeRSVPStore) ListByEvent(_ context.Context, eventID uint64) ([]model.RSVP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RSVP
	for k, v := range s.rows {
		if k.eventID == eventID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FakeRSVPStore) deleteByEvent(eventID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.eventID == eventID {
			delete(s.rows, k)
		}
	}
}

// FakeReviewStore implements service.ReviewStore.
type FakeReviewStore struct {
	mu       sync.Mutex
	nextID   uint64
	rows     map[pair]model.Review
	OnInsert func(eventID, userID uint64) error
}

func NewFakeReviewStore() *FakeReviewStore {
	return &FakeReviewStore{rows: map[pair]model.Review{}}
}

func (s *FakeReviewStore) Put(eventID, userID uint64, rating int, comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(eventID, userID, rating, comment)
}

func (s *FakeReviewStore) insertLocked(eventID, userID uint64, rating int, comment string) {
	s.nextID++
	now := time.Now().UTC()
	s.rows[pair{eventID, userID}] = model.Review{
		ID: s.nextID, EventID: eventID, UserID: userID, Rating: rating, Comment: comment,
		CreatedAt: now, UpdatedAt: now,
	}
}

func (s *FakeReviewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *FakeReviewStore) Get(_ context.Context, eventID, userID uint64) (model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pair{eventID, userID}]
	if !ok {
		return model.Review{}, repository.ErrNotFound
	}
	return row, nil
}

func (s *FakeReviewStore) Update(_ context.Context, eventID, userID uint64, rating int, comment string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[pair{eventID, userID}]
	if !ok {
		return false, nil
	}
	row.Rating = rating
	row.Comment = comment
	row.UpdatedAt = time.Now().UTC()
	s.rows[pair{eventID, userID}] = row
	return true, nil
}

func (s *FakeReviewStore) Insert(_ context.Context, eventID, userID uint64, rating int, comment string) error {
	if s.OnInsert != nil {
		if err := s.OnInsert(eventID, userID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[pair{eventID, userID}]; ok {
		return repository.ErrDuplicate
	}
	s.insertLocked(eventID, userID, rating, comment)
	return nil
}

func (s *FakeReviewStore) Delete(_ context.Context, eventID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[pair{eventID, userID}]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, pair{eventID, userID})
	return nil
}

func (s *FakeReviewStore) ListByEvent(_ context.Context, eventID uint64) ([]model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Review
	for k, v := range s.rows {
		if k.eventID == eventID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FakeReviewStore) deleteByEvent(eventID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.rows {
		if k.eventID == eventID {
			delete(s.rows, k)
		}
	}
}

// FakeProfileStore implements service.ProfileStore.
type FakeProfileStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Profile
}

func NewFakeProfileStore() *FakeProfileStore {
	return &FakeProfileStore{rows: map[uint64]model.Profile{}}
}

func (s *FakeProfileStore) EnsureForUser(_ context.Context, userID uint64) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rows[userID]; ok {
		return p, nil
	}
	s.nextID++
	now := time.Now().UTC()
	p := model.Profile{ID: s.nextID, UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.rows[userID] = p
	return p, nil
}

func (s *FakeProfileStore) Update(_ context.Context, userID uint64, fullName, bio, location string, pictureURL *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.FullName = fullName
	p.Bio = bio
	p.Location = location
	p.PictureURL = pictureURL
	p.UpdatedAt = time.Now().UTC()
	s.rows[userID] = p
	return nil
}

// RecordingSink implements service.MutationSink, capturing every
// emitted mutation.
type RecordingSink struct {
	mu     sync.Mutex
	Events []queue.MutationEvent
}

func (s *RecordingSink) OnMutation(_ context.Context, ev queue.MutationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
}

// Emitted returns a copy of the captured mutations.
func (s *RecordingSink) Emitted() []queue.MutationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]queue.MutationEvent, len(s.Events))
	copy(out, s.Events)
	return out
}
