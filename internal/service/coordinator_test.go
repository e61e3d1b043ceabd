package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-hub/internal/authz"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/queue"
	"github.com/iliyamo/event-hub/internal/repository"
	"github.com/iliyamo/event-hub/internal/service"
	"github.com/iliyamo/event-hub/internal/storetest"
)

type env struct {
	events   *storetest.FakeEventStore
	rsvps    *storetest.FakeRSVPStore
	reviews  *storetest.FakeReviewStore
	profiles *storetest.FakeProfileStore
	sink     *storetest.RecordingSink
	co       *service.Coordinator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	rsvps := storetest.NewFakeRSVPStore()
	reviews := storetest.NewFakeReviewStore()
	events := storetest.NewFakeEventStore()
	events.RSVPs = rsvps
	events.Reviews = reviews
	profiles := storetest.NewFakeProfileStore()
	sink := &storetest.RecordingSink{}
	return &env{
		events:   events,
		rsvps:    rsvps,
		reviews:  reviews,
		profiles: profiles,
		sink:     sink,
		co:       service.NewCoordinator(events, rsvps, reviews, profiles, sink),
	}
}

var (
	organizer = authz.Actor{ID: 1, Authenticated: true}
	alice     = authz.Actor{ID: 2, Authenticated: true}
	bob       = authz.Actor{ID: 3, Authenticated: true}
)

func createEvent(t *testing.T, e *env, actor authz.Actor, public bool) model.Event {
	t.Helper()
	ev, err := e.co.CreateEvent(context.Background(), actor, service.CreateEventInput{
		Title:     "Launch party",
		Location:  "Rooftop",
		StartTime: time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC),
		IsPublic:  public,
	})
	require.NoError(t, err)
	return ev
}

func TestCreateEvent(t *testing.T) {
	e := newEnv(t)

	ev := createEvent(t, e, organizer, true)
	assert.Equal(t, organizer.ID, ev.OrganizerID)
	assert.True(t, ev.IsPublic)

	emitted := e.sink.Emitted()
	require.Len(t, emitted, 1)
	assert.Equal(t, queue.KindEventCreated, emitted[0].Kind)
	assert.Equal(t, ev.ID, emitted[0].EventID)
	assert.NotEmpty(t, emitted[0].ID)
}

func TestCreateEventRejectsReversedWindow(t *testing.T) {
	e := newEnv(t)

	_, err := e.co.CreateEvent(context.Background(), organizer, service.CreateEventInput{
		Title:     "Backwards",
		StartTime: time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
	})
	v, ok := service.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "end_time", v.Field)

	// Nothing reached the store and nothing was emitted.
	evs, _ := e.events.ListPublic(context.Background())
	assert.Empty(t, evs)
	assert.Empty(t, e.sink.Emitted())
}

func TestCreateEventRequiresAuth(t *testing.T) {
	e := newEnv(t)

	_, err := e.co.CreateEvent(context.Background(), authz.Anonymous, service.CreateEventInput{
		Title:     "Ghost event",
		StartTime: time.Now().UTC(),
		EndTime:   time.Now().UTC().Add(time.Hour),
	})
	_, ok := service.AsDenied(err)
	assert.True(t, ok)
}

func TestUpdateEventOrganizerOnly(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	title := "Renamed"
	_, err := e.co.UpdateEvent(context.Background(), alice, ev.ID, service.UpdateEventInput{Title: &title})
	d, ok := service.AsDenied(err)
	require.True(t, ok)
	assert.False(t, d.Hidden, "public event denial is forbidden, not hidden")

	// Unchanged.
	got, err := e.co.GetEvent(context.Background(), alice, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch party", got.Title)

	updated, err := e.co.UpdateEvent(context.Background(), organizer, ev.ID, service.UpdateEventInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateEventValidatesMergedWindow(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	// Moving end_time before the existing start_time must fail even
	// though start_time is not part of the patch.
	bad := ev.StartTime.Add(-time.Hour)
	_, err := e.co.UpdateEvent(context.Background(), organizer, ev.ID, service.UpdateEventInput{EndTime: &bad})
	v, ok := service.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "end_time", v.Field)
}

func TestPrivateEventHiddenFromStrangers(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, false)

	// Organizer sees it.
	_, err := e.co.GetEvent(context.Background(), organizer, ev.ID)
	require.NoError(t, err)

	// A stranger gets a hidden denial, indistinguishable from absence.
	_, err = e.co.GetEvent(context.Background(), bob, ev.ID)
	d, ok := service.AsDenied(err)
	require.True(t, ok)
	assert.True(t, d.Hidden)

	// Same for anonymous.
	_, err = e.co.GetEvent(context.Background(), authz.Anonymous, ev.ID)
	d, ok = service.AsDenied(err)
	require.True(t, ok)
	assert.True(t, d.Hidden)

	// Holding an RSVP grants visibility.
	e.rsvps.Put(ev.ID, alice.ID, model.RSVPGoing)
	_, err = e.co.GetEvent(context.Background(), alice, ev.ID)
	assert.NoError(t, err)
}

func TestListEventsVisibilityScoped(t *testing.T) {
	e := newEnv(t)
	pub := createEvent(t, e, organizer, true)
	priv := createEvent(t, e, organizer, false)
	e.rsvps.Put(priv.ID, alice.ID, model.RSVPMaybe)

	anon, err := e.co.ListEvents(context.Background(), authz.Anonymous)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, pub.ID, anon[0].ID)

	mine, err := e.co.ListEvents(context.Background(), organizer)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	alices, err := e.co.ListEvents(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, alices, 2, "public plus RSVP'd private")

	bobs, err := e.co.ListEvents(context.Background(), bob)
	require.NoError(t, err)
	assert.Len(t, bobs, 1)
}

func TestUpsertRSVPCreateThenReplace(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	row, created, err := e.co.UpsertRSVP(context.Background(), alice, ev.ID, model.RSVPGoing)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.RSVPGoing, row.Status)
	assert.Equal(t, 1, e.rsvps.Len())

	row, created, err = e.co.UpsertRSVP(context.Background(), alice, ev.ID, model.RSVPMaybe)
	require.NoError(t, err)
	assert.False(t, created, "second answer replaces, not creates")
	assert.Equal(t, model.RSVPMaybe, row.Status)
	assert.Equal(t, 1, e.rsvps.Len(), "still exactly one row")
}

func TestUpsertRSVPValidatesStatus(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	_, _, err := e.co.UpsertRSVP(context.Background(), alice, ev.ID, "attending")
	v, ok := service.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "status", v.Field)
	assert.Equal(t, 0, e.rsvps.Len())
}

func TestUpsertRSVPLostInsertRaceRetriesAsUpdate(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	// Simulate a concurrent writer sneaking in between our update
	// probe and the insert: the hook seeds the row and reports the
	// duplicate-key failure the store would raise.
	raced := false
	e.rsvps.OnInsert = func(eventID, userID uint64) error {
		if !raced {
			raced = true
			e.rsvps.Put(eventID, userID, model.RSVPNotGoing)
			return repository.ErrDuplicate
		}
		return nil
	}

	row, created, err := e.co.UpsertRSVP(context.Background(), alice, ev.ID, model.RSVPGoing)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.RSVPGoing, row.Status, "retry applies our status to the surviving row")
	assert.Equal(t, 1, e.rsvps.Len())
}

func TestConcurrentUpsertsConvergeToOneRow(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	statuses := []string{model.RSVPGoing, model.RSVPMaybe, model.RSVPNotGoing}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := e.co.UpsertRSVP(context.Background(), alice, ev.ID, statuses[i%len(statuses)])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, e.rsvps.Len(), "concurrent upserts must converge to a single row")
	row, err := e.rsvps.Get(context.Background(), ev.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, model.ValidRSVPStatus(row.Status))
}

func TestUpsertRSVPOnPrivateEventDenied(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, false)

	_, _, err := e.co.UpsertRSVP(context.Background(), bob, ev.ID, model.RSVPGoing)
	d, ok := service.AsDenied(err)
	require.True(t, ok)
	assert.True(t, d.Hidden)

	// The organizer may RSVP to their own private event.
	_, created, err := e.co.UpsertRSVP(context.Background(), organizer, ev.ID, model.RSVPGoing)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestDeleteRSVPOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)
	_, _, err := e.co.UpsertRSVP(context.Background(), alice, ev.ID, model.RSVPGoing)
	require.NoError(t, err)

	// The organizer cannot delete alice's RSVP: deleting through the
	// coordinator only ever targets the caller's own row, which the
	// organizer does not have.
	err = e.co.DeleteRSVP(context.Background(), organizer, ev.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, e.co.DeleteRSVP(context.Background(), alice, ev.ID))
	assert.Equal(t, 0, e.rsvps.Len())
}

func TestUpsertReviewRatingBounds(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	for _, rating := range []int{0, 6, -1} {
		_, _, err := e.co.UpsertReview(context.Background(), alice, ev.ID, rating, "meh")
		v, ok := service.AsValidation(err)
		require.True(t, ok, "rating %d must fail validation", rating)
		assert.Equal(t, "rating", v.Field)
	}
	assert.Equal(t, 0, e.reviews.Len(), "no row created for invalid ratings")

	row, created, err := e.co.UpsertReview(context.Background(), alice, ev.ID, 5, "great")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 5, row.Rating)

	row, created, err = e.co.UpsertReview(context.Background(), alice, ev.ID, 3, "on reflection")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, row.Rating)
	assert.Equal(t, 1, e.reviews.Len())
}

func TestDeleteEventCascades(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)
	_, _, err := e.co.UpsertRSVP(context.Background(), alice, ev.ID, model.RSVPGoing)
	require.NoError(t, err)
	_, _, err = e.co.UpsertReview(context.Background(), alice, ev.ID, 4, "")
	require.NoError(t, err)

	// Only the organizer may delete.
	err = e.co.DeleteEvent(context.Background(), alice, ev.ID)
	_, ok := service.AsDenied(err)
	require.True(t, ok)

	require.NoError(t, e.co.DeleteEvent(context.Background(), organizer, ev.ID))
	assert.Equal(t, 0, e.rsvps.Len())
	assert.Equal(t, 0, e.reviews.Len())

	_, err = e.co.GetEvent(context.Background(), organizer, ev.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMutationEmittedOnlyAfterWrite(t *testing.T) {
	e := newEnv(t)
	ev := createEvent(t, e, organizer, true)

	before := len(e.sink.Emitted())

	// A denied write emits nothing.
	title := "Hijacked"
	_, err := e.co.UpdateEvent(context.Background(), alice, ev.ID, service.UpdateEventInput{Title: &title})
	require.Error(t, err)
	assert.Len(t, e.sink.Emitted(), before)

	// A failed validation emits nothing.
	_, _, err = e.co.UpsertReview(context.Background(), alice, ev.ID, 9, "")
	require.Error(t, err)
	assert.Len(t, e.sink.Emitted(), before)

	// A successful write emits exactly one record.
	_, _, err = e.co.UpsertRSVP(context.Background(), alice, ev.ID, model.RSVPGoing)
	require.NoError(t, err)
	emitted := e.sink.Emitted()
	require.Len(t, emitted, before+1)
	assert.Equal(t, queue.KindRSVPUpserted, emitted[len(emitted)-1].Kind)
}

// ctxCheckSink records whether the context handed to the sink was
// already cancelled.
type ctxCheckSink struct {
	calls     int
	cancelled bool
}

func (s *ctxCheckSink) OnMutation(ctx context.Context, _ queue.MutationEvent) {
	s.calls++
	s.cancelled = ctx.Err() != nil
}

func TestEmitSurvivesRequestCancellation(t *testing.T) {
	rsvps := storetest.NewFakeRSVPStore()
	reviews := storetest.NewFakeReviewStore()
	events := storetest.NewFakeEventStore()
	events.RSVPs = rsvps
	events.Reviews = reviews
	sink := &ctxCheckSink{}
	co := service.NewCoordinator(events, rsvps, reviews, storetest.NewFakeProfileStore(), sink)

	// The caller hangs up while the write is in flight; the sink still
	// runs on a live context so cache eviction is not aborted.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := co.CreateEvent(ctx, organizer, service.CreateEventInput{
		Title:     "Launch party",
		StartTime: time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 1, sink.calls)
	assert.False(t, sink.cancelled, "the sink must not inherit the request's cancellation")
}

func TestProfileLazyCreateAndUpdate(t *testing.T) {
	e := newEnv(t)

	p, err := e.co.GetProfile(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.UserID)
	assert.Empty(t, p.FullName)

	pic := "https://example.com/alice.png"
	p, err = e.co.UpdateProfile(context.Background(), alice, service.UpdateProfileInput{
		FullName:   "Alice Liddell",
		Bio:        "chasing rabbits",
		Location:   "Oxford",
		PictureURL: &pic,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", p.FullName)
	require.NotNil(t, p.PictureURL)
	assert.Equal(t, pic, *p.PictureURL)

	_, err = e.co.GetProfile(context.Background(), authz.Anonymous)
	_, ok := service.AsDenied(err)
	assert.True(t, ok)
}
