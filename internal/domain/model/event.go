package model

import "time"

// EventKind identifies what an Event asks the render loop to do.
type EventKind int

// Event kinds.
const (
	EventSnapshot EventKind = iota + 1 // a new ordered entity list
	EventSelect                        // an external selection change
	EventActivate                      // a marker was clicked on the surface
	EventReady                         // the map surface finished loading
	EventTeardown                      // release markers and the surface
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventSelect:
		return "select"
	case EventActivate:
		return "activate"
	case EventReady:
		return "ready"
	case EventTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// Event is the unit of work consumed by the render loop.
type Event struct {
	Kind     EventKind
	Entities []Entity // EventSnapshot
	EntityID string   // EventSelect; empty clears the selection
	Handle   string   // EventActivate
	At       time.Time
}

// SnapshotEvent builds an EventSnapshot stamped with the current time.
func SnapshotEvent(entities []Entity) Event {
	return Event{Kind: EventSnapshot, Entities: entities, At: time.Now()}
}

// SelectEvent builds an EventSelect.
func SelectEvent(id string) Event {
	return Event{Kind: EventSelect, EntityID: id, At: time.Now()}
}

// ActivateEvent builds an EventActivate for a marker handle.
func ActivateEvent(handle string) Event {
	return Event{Kind: EventActivate, Handle: handle, At: time.Now()}
}
