package midi

// Event is a message positioned within the current block.
type Event struct {
	// FrameOffset is the offset from the start of the block in destination frames.
	FrameOffset int
	Message     Message
}

// EventList is a list of events with capacity fixed at creation. Adding never
// allocates: events beyond capacity are dropped and counted.
type EventList struct {
	events  []Event
	dropped int
}

// NewEventList allocates a list with provided capacity.
func NewEventList(capacity int) *EventList {
	return &EventList{
		events: make([]Event, 0, capacity),
	}
}

// Add appends event. Returns false if the list is full.
func (l *EventList) Add(e Event) bool {
	if len(l.events) == cap(l.events) {
		l.dropped++
		return false
	}
	l.events = append(l.events, e)
	return true
}

// Len returns number of events.
func (l *EventList) Len() int {
	return len(l.events)
}

// Events returns a view of events. It's valid until the list is modified.
func (l *EventList) Events() []Event {
	return l.events
}

// Dropped returns number of events rejected because the list was full.
func (l *EventList) Dropped() int {
	return l.dropped
}

// Clear removes all events and resets dropped counter.
func (l *EventList) Clear() {
	l.events = l.events[:0]
	l.dropped = 0
}

// MaxFrameOffset returns the largest frame offset or -1 if list is empty.
func (l *EventList) MaxFrameOffset() int {
	result := -1
	for _, e := range l.events {
		if e.FrameOffset > result {
			result = e.FrameOffset
		}
	}
	return result
}
