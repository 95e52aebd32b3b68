package midi_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/clip/midi"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		msg     midi.Message
		noteOn  bool
		noteOff bool
		channel uint8
		desc    string
	}{
		{
			msg:     midi.NoteOn(3, 60, 100),
			noteOn:  true,
			channel: 3,
			desc:    "Note on",
		},
		{
			msg:     midi.NoteOn(0, 60, 0),
			noteOff: true,
			desc:    "Note on with zero velocity",
		},
		{
			msg:     midi.NoteOff(15, 60, 20),
			noteOff: true,
			channel: 15,
			desc:    "Note off",
		},
		{
			msg:     midi.ControlChange(1, midi.AllSoundOff, 0),
			channel: 1,
			desc:    "Control change",
		},
	}
	for _, test := range tests {
		assert.Equal(t, test.noteOn, test.msg.IsNoteOn(), test.desc)
		assert.Equal(t, test.noteOff, test.msg.IsNoteOff(), test.desc)
		assert.Equal(t, test.channel, test.msg.Channel(), test.desc)
	}
}

func TestEventListCapacity(t *testing.T) {
	l := midi.NewEventList(2)
	assert.Equal(t, -1, l.MaxFrameOffset())
	assert.True(t, l.Add(midi.Event{FrameOffset: 5}))
	assert.True(t, l.Add(midi.Event{FrameOffset: 3}))
	assert.False(t, l.Add(midi.Event{FrameOffset: 9}))
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, l.Dropped())
	assert.Equal(t, 5, l.MaxFrameOffset())
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.Dropped())
}

func TestNoteTracker(t *testing.T) {
	var tracker midi.NoteTracker
	for _, m := range []midi.Message{
		midi.NoteOn(0, 7, 100),
		midi.NoteOn(0, 120, 120),
		midi.NoteOn(0, 5, 120),
		midi.NoteOn(1, 7, 0),
		midi.NoteOn(3, 7, 50),
		midi.NoteOn(0, 7, 0),
		midi.NoteOff(0, 5, 20),
	} {
		tracker.Update(m)
	}
	assert.True(t, tracker.IsOn(0, 120))
	assert.True(t, tracker.IsOn(3, 7))
	assert.False(t, tracker.IsOn(0, 7))
	assert.False(t, tracker.IsOn(0, 5))

	l := midi.NewEventList(16)
	tracker.ReleaseNotes(10, l)
	assert.Equal(t, []midi.Event{
		{FrameOffset: 10, Message: midi.NoteOff(0, 120, 0)},
		{FrameOffset: 10, Message: midi.NoteOff(3, 7, 0)},
	}, l.Events())
	assert.False(t, tracker.IsOn(0, 120), "Release resets tracker")
}

func TestSilence(t *testing.T) {
	t.Run("Prepend", func(t *testing.T) {
		l := midi.NewEventList(64)
		l.Add(midi.Event{FrameOffset: 0, Message: midi.NoteOn(0, 60, 100)})
		l.Add(midi.Event{FrameOffset: 4, Message: midi.NoteOn(0, 62, 100)})
		midi.Silence(l, midi.ResetMessages{AllNotesOff: true}, midi.Prepend, nil)
		events := l.Events()
		assert.Equal(t, 2+16, len(events))
		assert.Equal(t, 1, events[0].FrameOffset)
		assert.Equal(t, 4, events[1].FrameOffset)
		for _, e := range events[2:] {
			assert.Equal(t, 0, e.FrameOffset)
			assert.Equal(t, uint8(midi.AllNotesOff), e.Message.Data1())
		}
	})
	t.Run("Append with release", func(t *testing.T) {
		l := midi.NewEventList(64)
		var tracker midi.NoteTracker
		tracker.Update(midi.NoteOn(2, 64, 90))
		l.Add(midi.Event{FrameOffset: 7, Message: midi.NoteOn(2, 64, 90)})
		midi.Silence(l, midi.ResetMessages{OnNotesOff: true, DamperPedalOff: true}, midi.Append, &tracker)
		events := l.Events()
		assert.Equal(t, 1+1+16, len(events))
		assert.Equal(t, midi.Event{FrameOffset: 8, Message: midi.NoteOff(2, 64, 0)}, events[1])
		for _, e := range events[2:] {
			assert.Equal(t, 8, e.FrameOffset)
			assert.Equal(t, uint8(midi.DamperPedal), e.Message.Data1())
		}
	})
	t.Run("Nothing enabled", func(t *testing.T) {
		l := midi.NewEventList(4)
		midi.Silence(l, midi.ResetMessages{}, midi.Append, nil)
		assert.Equal(t, 0, l.Len())
	})
}

const chunk = `
HASDATA 1 960 QN
CCINTERP 32
e 0 91 30 31
E 1 b0 7b 00
e 239 81 30 00 -90
e 240 91 37 27
em 240 81 37 00 -90
E 240 b0 7b 00
GUID {ACC4D7CA-2E56-0248-AD95-8B027F12FD09}
IGNTEMPO 1 120 4 4
`

func TestParseChunk(t *testing.T) {
	s, err := midi.ParseChunk(chunk)
	require.NoError(t, err)
	assert.Equal(t, 960, s.PPQ)
	assert.Equal(t, &midi.TimeInfo{Tempo: 120, Numerator: 4, Denominator: 4}, s.TimeInfo)
	assert.Equal(t, []midi.SequenceEvent{
		{Pulse: 0, Message: midi.Message{0x91, 0x30, 0x31}, Selected: true},
		{Pulse: 1, Message: midi.Message{0xb0, 0x7b, 0x00}},
		{Pulse: 240, Message: midi.Message{0x81, 0x30, 0x00}, Selected: true, QuantizationShift: 90},
		{Pulse: 480, Message: midi.Message{0x91, 0x37, 0x27}, Selected: true},
		{Pulse: 720, Message: midi.Message{0x81, 0x37, 0x00}, Selected: true, Muted: true, QuantizationShift: 90},
		{Pulse: 960, Message: midi.Message{0xb0, 0x7b, 0x00}},
	}, s.Events)

	assert.Equal(t, int64(960), s.PulseCount())
	length, ok := s.PredefinedLength()
	assert.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, length)
	assert.Equal(t, time.Second, s.LengthAt(120, 8))
	assert.Equal(t, 250*time.Millisecond, s.LengthAt(240, 4))
	assert.Equal(t, time.Second, s.LengthAt(60, 4))
}

func TestFormatChunk(t *testing.T) {
	s, err := midi.ParseChunk(chunk)
	require.NoError(t, err)
	expected := `HASDATA 1 960 QN
e 0 91 30 31 0
E 1 b0 7b 00 0
e 239 81 30 00 -90
e 240 91 37 27 0
em 240 81 37 00 -90
E 240 b0 7b 00 0
IGNTEMPO 1 120 4 4
`
	assert.Equal(t, expected, s.Format())
}

func TestParseChunkErrors(t *testing.T) {
	tests := []struct {
		chunk string
		desc  string
	}{
		{chunk: "HASDATA 1 960 TICKS", desc: "Unsupported unit"},
		{chunk: "e 0 91 30", desc: "Incomplete event"},
		{chunk: "e x 91 30 31", desc: "Invalid diff"},
		{chunk: "e 0 zz 30 31", desc: "Invalid byte"},
		{chunk: "IGNTEMPO 1 0 4 4", desc: "Zero tempo"},
	}
	for _, test := range tests {
		_, err := midi.ParseChunk(test.chunk)
		assert.Error(t, err, test.desc)
	}
}
