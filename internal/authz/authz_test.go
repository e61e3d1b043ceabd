package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideEventRead(t *testing.T) {
	organizer := Actor{ID: 1, Authenticated: true}
	attendee := Actor{ID: 2, Authenticated: true}
	stranger := Actor{ID: 3, Authenticated: true}

	tests := []struct {
		name    string
		actor   Actor
		event   Event
		allowed bool
		hidden  bool
	}{
		{"public event, anonymous", Anonymous, Event{OrganizerID: 1, IsPublic: true}, true, false},
		{"public event, stranger", stranger, Event{OrganizerID: 1, IsPublic: true}, true, false},
		{"private event, organizer", organizer, Event{OrganizerID: 1}, true, false},
		{"private event, rsvp holder", attendee, Event{OrganizerID: 1, ViewerHasRSVP: true}, true, false},
		{"private event, stranger", stranger, Event{OrganizerID: 1}, false, true},
		{"private event, anonymous", Anonymous, Event{OrganizerID: 1}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.actor, tt.event, ActionRead)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.hidden, d.Hidden, "private denials must hide existence")
		})
	}
}

func TestDecideEventWrite(t *testing.T) {
	organizer := Actor{ID: 1, Authenticated: true}
	other := Actor{ID: 2, Authenticated: true}

	// Update/delete belong to the organizer alone, regardless of
	// visibility.
	for _, public := range []bool{true, false} {
		ev := Event{OrganizerID: 1, IsPublic: public}
		assert.True(t, Decide(organizer, ev, ActionUpdate).Allowed)
		assert.True(t, Decide(organizer, ev, ActionDelete).Allowed)
		assert.False(t, Decide(other, ev, ActionUpdate).Allowed)
		assert.False(t, Decide(other, ev, ActionDelete).Allowed)
		assert.False(t, Decide(Anonymous, ev, ActionUpdate).Allowed)
	}

	// Creation requires authentication, nothing more.
	assert.True(t, Decide(other, Event{}, ActionCreate).Allowed)
	assert.False(t, Decide(Anonymous, Event{}, ActionCreate).Allowed)
}

func TestDecideOwnedCreate(t *testing.T) {
	organizer := Actor{ID: 1, Authenticated: true}
	attendee := Actor{ID: 2, Authenticated: true}
	stranger := Actor{ID: 3, Authenticated: true}

	public := Owned{OwnerID: 3, Event: Event{OrganizerID: 1, IsPublic: true}}
	assert.True(t, Decide(stranger, public, ActionCreate).Allowed)
	assert.False(t, Decide(Anonymous, public, ActionCreate).Allowed)

	// The organizer may RSVP and review their own event.
	ownEvent := Owned{OwnerID: 1, Event: Event{OrganizerID: 1, IsPublic: true}}
	assert.True(t, Decide(organizer, ownEvent, ActionCreate).Allowed)

	// Creating on an unreadable private event is denied with the same
	// existence-hiding as the read.
	private := Owned{OwnerID: 3, Event: Event{OrganizerID: 1}}
	d := Decide(stranger, private, ActionCreate)
	assert.False(t, d.Allowed)
	assert.True(t, d.Hidden)

	// An RSVP holder may create on the private event.
	invited := Owned{OwnerID: 2, Event: Event{OrganizerID: 1, ViewerHasRSVP: true}}
	assert.True(t, Decide(attendee, invited, ActionCreate).Allowed)
}

func TestDecideOwnedModify(t *testing.T) {
	owner := Actor{ID: 2, Authenticated: true}
	organizer := Actor{ID: 1, Authenticated: true}

	o := Owned{OwnerID: 2, Event: Event{OrganizerID: 1, IsPublic: true}}
	assert.True(t, Decide(owner, o, ActionUpdate).Allowed)
	assert.True(t, Decide(owner, o, ActionDelete).Allowed)

	// Not even the event's organizer touches someone else's RSVP.
	assert.False(t, Decide(organizer, o, ActionUpdate).Allowed)
	assert.False(t, Decide(organizer, o, ActionDelete).Allowed)
	assert.False(t, Decide(Anonymous, o, ActionDelete).Allowed)
}

func TestDecideFailsClosed(t *testing.T) {
	actor := Actor{ID: 1, Authenticated: true}

	d := Decide(actor, Event{OrganizerID: 1, IsPublic: true}, Action("replicate"))
	assert.False(t, d.Allowed)

	d = Decide(actor, nil, ActionRead)
	assert.False(t, d.Allowed)
}
