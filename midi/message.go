// Package midi provides MIDI short messages and the fixed-capacity event list
// MIDI suppliers write into.
package midi

const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xB0
)

// Controller numbers of channel mode messages used to silence a receiver.
const (
	DamperPedal         = 64
	AllSoundOff         = 120
	ResetAllControllers = 121
	AllNotesOff         = 123
)

// Message is a MIDI short message: status byte followed by two data bytes.
type Message [3]byte

// NoteOn returns note-on message.
func NoteOn(channel, key, velocity uint8) Message {
	return Message{statusNoteOn | channel&0x0F, key & 0x7F, velocity & 0x7F}
}

// NoteOff returns note-off message.
func NoteOff(channel, key, velocity uint8) Message {
	return Message{statusNoteOff | channel&0x0F, key & 0x7F, velocity & 0x7F}
}

// ControlChange returns control change message.
func ControlChange(channel, controller, value uint8) Message {
	return Message{statusControlChange | channel&0x0F, controller & 0x7F, value & 0x7F}
}

// Status returns status byte without channel.
func (m Message) Status() uint8 {
	return m[0] & 0xF0
}

// Channel returns zero-based channel of channel messages.
func (m Message) Channel() uint8 {
	return m[0] & 0x0F
}

// Data1 returns first data byte.
func (m Message) Data1() uint8 {
	return m[1]
}

// Data2 returns second data byte.
func (m Message) Data2() uint8 {
	return m[2]
}

// IsNoteOn returns true for note-on with non-zero velocity.
func (m Message) IsNoteOn() bool {
	return m.Status() == statusNoteOn && m[2] > 0
}

// IsNoteOff returns true for note-off and for note-on with zero velocity.
func (m Message) IsNoteOff() bool {
	return m.Status() == statusNoteOff || (m.Status() == statusNoteOn && m[2] == 0)
}
