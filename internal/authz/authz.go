// Package authz contains the access-control rules for events, RSVPs
// and reviews as pure decision functions. Decide receives a snapshot
// of the resource's relevant fields and an actor identity and returns
// an allow/deny verdict; it performs no I/O, so callers load whatever
// the snapshot needs (including whether the viewer holds an RSVP)
// before asking.
//
// The engine fails closed: any actor, resource or action combination
// it cannot classify is denied.
package authz

// Action is the kind of access being attempted on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actor identifies who is attempting the action. The zero value is
// the anonymous actor.
type Actor struct {
	ID            uint64
	Authenticated bool
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

// Decision is the verdict for one (actor, resource, action) triple.
// Hidden marks denials that must surface as not-found rather than
// forbidden, so a private event's existence never leaks.
type Decision struct {
	Allowed bool
	Reason  string
	Hidden  bool
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

func denyHidden(reason string) Decision { return Decision{Reason: reason, Hidden: true} }

// Event is the snapshot of an event consulted by the rules.
// ViewerHasRSVP must reflect whether the acting user holds an RSVP on
// this event; holding one grants private-event visibility.
type Event struct {
	OrganizerID   uint64
	IsPublic      bool
	ViewerHasRSVP bool
}

// Owned is the snapshot of an RSVP or review: a resource owned by a
// single user and attached to an event.
type Owned struct {
	OwnerID uint64
	Event   Event
}

// Resource is a snapshot accepted by Decide. Only Event and Owned
// satisfy it; anything else is denied outright.
type Resource interface{ resource() }

func (Event) resource() {}
func (Owned) resource() {}

// Decide applies the rules in precedence order and returns the first
// match. It never errors: unrecognized inputs yield a denial.
func Decide(actor Actor, res Resource, action Action) Decision {
	switch r := res.(type) {
	case Event:
		return decideEvent(actor, r, action)
	case Owned:
		return decideOwned(actor, r, action)
	default:
		return deny("unrecognized resource")
	}
}

func decideEvent(actor Actor, ev Event, action Action) Decision {
	switch action {
	case ActionRead:
		return decideEventRead(actor, ev)
	case ActionCreate:
		if actor.Authenticated {
			return allow()
		}
		return deny("authentication required to create events")
	case ActionUpdate, ActionDelete:
		if actor.Authenticated && actor.ID == ev.OrganizerID {
			return allow()
		}
		// An actor who cannot read the event must not learn of its
		// existence through a write denial either.
		if d := decideEventRead(actor, ev); !d.Allowed {
			return d
		}
		return deny("only the organizer may modify an event")
	default:
		return deny("unrecognized action")
	}
}

// decideEventRead also gates the aggregate RSVP/review listings,
// which follow the event's own visibility.
func decideEventRead(actor Actor, ev Event) Decision {
	if ev.IsPublic {
		return allow()
	}
	if !actor.Authenticated {
		return denyHidden("private event")
	}
	if actor.ID == ev.OrganizerID || ev.ViewerHasRSVP {
		return allow()
	}
	return denyHidden("private event")
}

func decideOwned(actor Actor, o Owned, action Action) Decision {
	switch action {
	case ActionRead:
		// Read access follows the parent event's visibility.
		return decideEventRead(actor, o.Event)
	case ActionCreate:
		if !actor.Authenticated {
			return deny("authentication required")
		}
		// Creating on an event the actor cannot read is denied with
		// the same existence-hiding as the read itself.
		if d := decideEventRead(actor, o.Event); !d.Allowed {
			return d
		}
		// Any authenticated reader may RSVP or review, the organizer
		// included.
		return allow()
	case ActionUpdate, ActionDelete:
		if actor.Authenticated && actor.ID == o.OwnerID {
			return allow()
		}
		return deny("only the owner may modify this")
	default:
		return deny("unrecognized action")
	}
}
