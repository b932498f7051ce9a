// Package midi defines the event list handed to plugins alongside each audio block.
// The host does not route MIDI; chains always pass an empty list.
package midi

import "fmt"

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypeControlChange
)

type Event interface {
	Type() EventType
	Channel() uint8
	SampleOffset() int32
}

type NoteEvent struct {
	On         bool
	EventChan  uint8
	Offset     int32
	NoteNumber uint8
	Velocity   uint8
}

func (e NoteEvent) Type() EventType {
	if e.On {
		return EventTypeNoteOn
	}
	return EventTypeNoteOff
}

func (e NoteEvent) Channel() uint8      { return e.EventChan }
func (e NoteEvent) SampleOffset() int32 { return e.Offset }

func (e NoteEvent) String() string {
	kind := "NoteOff"
	if e.On {
		kind = "NoteOn"
	}
	return fmt.Sprintf("%s{ch:%d, note:%d, vel:%d, offset:%d}",
		kind, e.EventChan, e.NoteNumber, e.Velocity, e.Offset)
}

type ControlChangeEvent struct {
	EventChan  uint8
	Offset     int32
	Controller uint8
	Value      uint8
}

func (e ControlChangeEvent) Type() EventType     { return EventTypeControlChange }
func (e ControlChangeEvent) Channel() uint8      { return e.EventChan }
func (e ControlChangeEvent) SampleOffset() int32 { return e.Offset }

// EventList is a fixed-capacity, block-scoped list of events.
// It never grows past its capacity so it is safe to use on the audio thread.
type EventList struct {
	events []Event
}

// NewEventList creates a list that holds at most capacity events.
func NewEventList(capacity int) *EventList {
	return &EventList{events: make([]Event, 0, capacity)}
}

// Add appends an event. It returns false when the list is full.
func (l *EventList) Add(e Event) bool {
	if len(l.events) == cap(l.events) {
		return false
	}
	l.events = append(l.events, e)
	return true
}

// Len returns the number of events in the list. A nil list is empty.
func (l *EventList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.events)
}

// At returns the event at index i.
func (l *EventList) At(i int) Event {
	return l.events[i]
}

// Clear empties the list without releasing its storage.
func (l *EventList) Clear() {
	for i := range l.events {
		l.events[i] = nil
	}
	l.events = l.events[:0]
}
