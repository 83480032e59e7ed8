package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeUserSignedUp     Type = "auth.signup"
	TypeUserLoggedIn     Type = "auth.login"
	TypeLoginFailed      Type = "auth.login_failed"
	TypeUserLoggedOut    Type = "auth.logout"
	TypePasswordChanged  Type = "user.password_changed"
	TypeProfileUpdated   Type = "user.profile_updated"
	TypeOrderPlaced      Type = "order.placed"
	TypeOrderPlaceFailed Type = "order.place_failed"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   int64     `json:"actor_id,omitempty"` // Who triggered the event
	Resource  string    `json:"resource,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
}

func New(typ Type, actorID int64, resource string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
		Resource:  resource,
	}
}

// Failure marks the event as describing a rejected attempt.
func Failure(typ Type, actorID int64, resource string, payload any) Event {
	e := New(typ, actorID, resource, payload)
	e.Failed = true
	return e
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
