package midi

// NoteTracker remembers which notes are sounding on each channel.
type NoteTracker struct {
	// two words of 64 bits per channel cover 128 keys.
	notes [16][2]uint64
}

// Update applies note-on and note-off messages. Other messages are ignored.
func (t *NoteTracker) Update(m Message) {
	key := m.Data1()
	word, bit := key/64, uint64(1)<<(key%64)
	switch {
	case m.IsNoteOn():
		t.notes[m.Channel()][word] |= bit
	case m.IsNoteOff():
		t.notes[m.Channel()][word] &^= bit
	}
}

// UpdateAll applies all events of the list.
func (t *NoteTracker) UpdateAll(l *EventList) {
	for _, e := range l.Events() {
		t.Update(e.Message)
	}
}

// IsOn returns true if the note is sounding.
func (t *NoteTracker) IsOn(channel, key uint8) bool {
	return t.notes[channel&0x0F][key/64]&(uint64(1)<<(key%64)) != 0
}

// Reset forgets all sounding notes.
func (t *NoteTracker) Reset() {
	t.notes = [16][2]uint64{}
}

// ReleaseNotes adds note-off events for all sounding notes at frame offset
// and resets the tracker.
func (t *NoteTracker) ReleaseNotes(frameOffset int, l *EventList) {
	for ch := uint8(0); ch < 16; ch++ {
		for key := uint8(0); key < 128; key++ {
			if t.IsOn(ch, key) {
				l.Add(Event{FrameOffset: frameOffset, Message: NoteOff(ch, key, 0)})
			}
		}
	}
	t.Reset()
}
