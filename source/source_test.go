package source_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
	"github.com/dudk/clip/source"
)

func ramp(channels, frames int) signal.Buffer {
	b := signal.NewBuffer(channels, frames)
	b.ModifyFrames(func(frame, channel int, _ float64) float64 {
		return float64(frame) / 100
	})
	return b
}

func TestNewMaterial(t *testing.T) {
	_, err := source.NewMaterial(ramp(1, 10), 0)
	assert.Equal(t, clip.ErrInvalidFrameRate, err)
	_, err = source.NewMaterial(signal.Buffer{}, 44100)
	assert.Equal(t, clip.ErrNoMaterial, err)

	m, err := source.NewMaterial(ramp(2, 4410), 44100)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ChannelCount())
	assert.Equal(t, 4410, m.FrameCount())
	assert.Equal(t, 100*time.Millisecond, m.Duration())
}

func TestAudioSupply(t *testing.T) {
	m, err := source.NewMaterial(ramp(1, 10), 48000)
	require.NoError(t, err)
	a := source.NewAudio(m)
	tests := []struct {
		start    int
		expected clip.SupplyResponse
		data     []float64
		msg      string
	}{
		{
			start:    -6,
			expected: clip.PleaseContinue(4),
			data:     []float64{0, 0, 0, 0},
			msg:      "Count-in",
		},
		{
			start:    -2,
			expected: clip.PleaseContinue(4),
			data:     []float64{0, 0, 0, 0.01},
			msg:      "Crossing material start",
		},
		{
			start:    4,
			expected: clip.PleaseContinue(4),
			data:     []float64{0.04, 0.05, 0.06, 0.07},
			msg:      "Middle",
		},
		{
			start:    8,
			expected: clip.ReachedEnd(2, 2),
			data:     []float64{0.08, 0.09, 0, 0},
			msg:      "End",
		},
		{
			start:    12,
			expected: clip.ExceededEnd(),
			data:     []float64{0, 0, 0, 0},
			msg:      "After end",
		},
	}
	dest := signal.NewBuffer(1, 4)
	for _, test := range tests {
		res, err := a.SupplyAudio(clip.SupplyAudioRequest{StartFrame: test.start, DestSampleRate: 48000}, dest)
		assert.NoError(t, err, test.msg)
		assert.Equal(t, test.expected, res, test.msg)
		assert.Equal(t, test.data, dest.Data(), test.msg)
	}

	_, err = a.SupplyAudio(clip.SupplyAudioRequest{}, signal.NewBuffer(2, 4))
	assert.Equal(t, clip.ErrUnsupportedChannelCount, err)
	_, err = a.SupplyMidi(clip.SupplyMidiRequest{}, midi.NewEventList(1))
	assert.Equal(t, clip.ErrNotMidi, err)
}

func TestAudioAllocations(t *testing.T) {
	m, err := source.NewMaterial(ramp(2, 48000), 48000)
	require.NoError(t, err)
	a := source.NewAudio(m)
	dest := signal.NewBuffer(2, 512)
	start := -1000
	allocs := testing.AllocsPerRun(100, func() {
		res, _ := a.SupplyAudio(clip.SupplyAudioRequest{StartFrame: start, DestSampleRate: 48000}, dest)
		start += res.NumFramesConsumed
	})
	assert.Equal(t, 0.0, allocs)
}

// quarter note at 120 bpm is half a second.
const quarter = int(clip.MidiFrameRate / 2)

func testSequence() *midi.Sequence {
	return &midi.Sequence{
		PPQ: 960,
		Events: []midi.SequenceEvent{
			{Pulse: 0, Message: midi.NoteOn(0, 60, 100)},
			{Pulse: 480, Message: midi.NoteOn(0, 64, 100), Muted: true},
			{Pulse: 960, Message: midi.NoteOff(0, 60, 0)},
			{Pulse: 960, Message: midi.NoteOn(1, 62, 100)},
			{Pulse: 1920, Message: midi.ControlChange(0, midi.AllNotesOff, 0)},
		},
	}
}

func TestMidiSupply(t *testing.T) {
	s, err := source.NewMidi(testSequence())
	require.NoError(t, err)
	assert.Equal(t, 2*quarter, s.FrameCount())
	assert.Equal(t, time.Second, s.Duration())

	events := midi.NewEventList(16)
	res, err := s.SupplyMidi(clip.SupplyMidiRequest{
		StartFrame:     -10,
		DestFrameCount: quarter,
		DestSampleRate: clip.MidiFrameRate,
	}, events)
	require.NoError(t, err)
	assert.Equal(t, clip.PleaseContinue(quarter), res)
	assert.Equal(t, []midi.Event{{FrameOffset: 10, Message: midi.NoteOn(0, 60, 100)}}, events.Events())

	events.Clear()
	res, err = s.SupplyMidi(clip.SupplyMidiRequest{
		StartFrame:     quarter - 10,
		DestFrameCount: quarter + 10,
		DestSampleRate: clip.MidiFrameRate,
	}, events)
	require.NoError(t, err)
	assert.Equal(t, clip.ReachedEnd(quarter+10, quarter+10), res)
	assert.Equal(t, []midi.Event{
		{FrameOffset: 10, Message: midi.NoteOff(0, 60, 0)},
		{FrameOffset: 10, Message: midi.NoteOn(1, 62, 100)},
	}, events.Events())

	events.Clear()
	s.ReleaseNotes(5, events)
	assert.Equal(t, []midi.Event{{FrameOffset: 5, Message: midi.NoteOff(1, 62, 0)}}, events.Events())
}

func TestMidiSupplyAtDeviceRate(t *testing.T) {
	s, err := source.NewMidi(testSequence())
	require.NoError(t, err)
	events := midi.NewEventList(16)
	// second quarter note at 48 kHz starts at frame 24000.
	res, err := s.SupplyMidi(clip.SupplyMidiRequest{
		StartFrame:     23000,
		DestFrameCount: 2000,
		DestSampleRate: 48000,
	}, events)
	require.NoError(t, err)
	assert.Equal(t, clip.PleaseContinue(2000), res)
	assert.Equal(t, 2, events.Len())
	assert.Equal(t, 1000, events.Events()[0].FrameOffset)

	_, err = s.SupplyMidi(clip.SupplyMidiRequest{DestFrameCount: 1}, events)
	assert.Equal(t, clip.ErrInvalidFrameRate, err)
	_, err = s.SupplyAudio(clip.SupplyAudioRequest{}, signal.NewBuffer(1, 1))
	assert.Equal(t, clip.ErrNotAudio, err)
}

func TestWav(t *testing.T) {
	tests := []struct {
		bitDepth signal.BitDepth
		err      error
		msg      string
	}{
		{bitDepth: signal.BitDepth16, msg: "16 bit"},
		{bitDepth: signal.BitDepth24, msg: "24 bit"},
		{bitDepth: signal.BitDepth32, msg: "32 bit"},
		{bitDepth: signal.BitDepth8, err: source.ErrUnsupportedBitDepth, msg: "8 bit"},
	}
	samples := ramp(2, 100)
	for _, test := range tests {
		path := filepath.Join(t.TempDir(), "test.wav")
		err := source.SaveWav(path, samples, 44100, test.bitDepth)
		if test.err != nil {
			assert.Error(t, err, test.msg)
			continue
		}
		require.NoError(t, err, test.msg)

		m, err := source.LoadWav(path)
		require.NoError(t, err, test.msg)
		assert.Equal(t, 44100.0, m.FrameRate(), test.msg)
		assert.Equal(t, 2, m.ChannelCount(), test.msg)
		assert.Equal(t, 100, m.FrameCount(), test.msg)
		assert.InDeltaSlice(t, samples.Data(), m.Samples().Data(), 0.001, test.msg)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := source.Load("file.ogg")
	assert.Error(t, err)
	_, err = source.Load(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
	_, err = source.Load(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
