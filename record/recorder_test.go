package record_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/record"
	"github.com/dudk/clip/schedule"
	"github.com/dudk/clip/signal"
	"github.com/dudk/clip/source"
)

const rate = 100.0

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// runWorker starts worker and returns a function which stops it.
func runWorker(t *testing.T, w *record.Worker) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- w.Run(ctx)
	}()
	return func() {
		cancel()
		assert.Equal(t, context.Canceled, <-errc)
	}
}

func constant(channels, frames int, v float64) signal.Buffer {
	b := signal.NewBuffer(channels, frames)
	b.ModifyFrames(func(int, int, float64) float64 { return v })
	return b
}

func ramp(channels, start, frames int) signal.Buffer {
	b := signal.NewBuffer(channels, frames)
	b.ModifyFrames(func(frame, _ int, _ float64) float64 { return float64(start + frame) })
	return b
}

func oldSource(t *testing.T) *source.Audio {
	m, err := source.NewMaterial(constant(2, 100, 0.5), rate)
	require.NoError(t, err)
	return source.NewAudio(m)
}

func supply(t *testing.T, r *record.Recorder, start, frames int) signal.Buffer {
	t.Helper()
	dest := signal.NewBuffer(2, frames)
	_, err := r.SupplyAudio(clip.SupplyAudioRequest{StartFrame: start, DestSampleRate: rate}, dest)
	require.NoError(t, err)
	return dest
}

func TestWorkerClose(t *testing.T) {
	w := record.NewWorker(nil)
	errc := make(chan error, 1)
	go func() {
		errc <- w.Run(context.Background())
	}()
	w.Close()
	w.Close()
	assert.NoError(t, <-errc)
}

func TestAudioRecording(t *testing.T) {
	w := record.NewWorker(nil)
	r := record.New(oldSource(t), w)
	timeline := schedule.NewConstantTempoTimeline(120)

	eq := record.NewAudioEquipment("", 2, rate)
	assert.Equal(t, 400, eq.Capture.FrameCount())
	require.NoError(t, r.PrepareRecording(eq, record.Unsynced(), timeline))
	assert.True(t, r.IsRecording())

	// previous source is supplied while recording
	assert.Equal(t, 0.5, supply(t, r, 0, 10).Sample(5, 1))

	// grow request is sent at 300 frames, but worker isn't running yet
	for i := 0; i < 10; i++ {
		require.NoError(t, r.WriteAudio(record.WriteAudioRequest{
			Block:           ramp(2, i*50, 50),
			InputSampleRate: rate,
		}, timeline))
	}
	frames, capacity := r.Captured()
	assert.Equal(t, 400, frames, "Clamped to capacity")
	assert.Equal(t, 400, capacity)

	stop := runWorker(t, w)
	empty := record.WriteAudioRequest{Block: signal.NewBuffer(2, 0), InputSampleRate: rate}
	require.Eventually(t, func() bool {
		require.NoError(t, r.WriteAudio(empty, timeline))
		_, capacity := r.Captured()
		return capacity == 800
	}, time.Second, time.Millisecond)
	stop()

	require.NoError(t, r.WriteAudio(record.WriteAudioRequest{
		Block:           ramp(2, 400, 100),
		InputSampleRate: rate,
	}, timeline))
	frames, _ = r.Captured()
	assert.Equal(t, 500, frames)

	outcome, err := r.CommitRecording(timeline)
	require.NoError(t, err)
	assert.Equal(t, record.Outcome{
		FrameRate:         rate,
		Tempo:             120,
		SourceDuration:    5 * time.Second,
		EffectiveDuration: 5 * time.Second,
	}, outcome)

	// captured memory is supplied until the worker finishes
	assert.True(t, r.IsRecording())
	assert.Equal(t, 500, r.FrameCount())
	dest := supply(t, r, 320, 10)
	assert.Equal(t, 320.0, dest.Sample(0, 0), "Frames after grow snapshot")
	assert.Equal(t, 329.0, dest.Sample(9, 1))

	_, err = r.CommitRecording(timeline)
	assert.Equal(t, record.ErrAlreadyCommitted, err)

	stop = runWorker(t, w)
	require.Eventually(t, func() bool {
		supply(t, r, 0, 1)
		return !r.IsRecording()
	}, time.Second, time.Millisecond)
	stop()

	require.NoError(t, r.Err())
	audio, ok := r.Source().(*source.Audio)
	require.True(t, ok)
	assert.Equal(t, 500, audio.FrameCount())
	dest = supply(t, r, 490, 10)
	assert.Equal(t, 499.0, dest.Sample(9, 0))
	assert.Equal(t, 490.0, dest.Sample(0, 0))
}

func TestRecordingToFile(t *testing.T) {
	w := record.NewWorker(nil)
	stop := runWorker(t, w)
	defer stop()

	dir := t.TempDir()
	r := record.New(nil, w, record.WithBitDepth(signal.BitDepth16))
	timeline := schedule.NewConstantTempoTimeline(120)
	require.NoError(t, r.PrepareRecording(record.NewAudioEquipment(dir, 2, rate), record.Unsynced(), timeline))

	_, err := r.SupplyAudio(clip.SupplyAudioRequest{DestSampleRate: rate}, signal.NewBuffer(2, 10))
	assert.Equal(t, clip.ErrNoMaterial, err, "Nothing to supply while recording")

	require.NoError(t, r.WriteAudio(record.WriteAudioRequest{
		Block:           constant(2, 150, 0.5),
		InputSampleRate: rate,
	}, timeline))
	_, err = r.CommitRecording(timeline)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		supply(t, r, 0, 1)
		return !r.IsRecording()
	}, time.Second, time.Millisecond)
	require.NoError(t, r.Err())

	files, err := filepath.Glob(filepath.Join(dir, "*.wav"))
	require.NoError(t, err)
	assert.Equal(t, 1, len(files))

	assert.Equal(t, 150, r.FrameCount())
	frameRate, ok := r.FrameRate()
	assert.True(t, ok)
	assert.Equal(t, rate, frameRate)
	assert.InDelta(t, 0.5, supply(t, r, 100, 10).Sample(3, 1), 0.001)
}

func TestSyncedRecording(t *testing.T) {
	tests := []struct {
		length           *schedule.EvenQuantization
		detectDownbeat   bool
		expected         record.Outcome
		expectedDownbeat time.Duration
		description      string
	}{
		{
			length: &schedule.EvenQuantization{Numerator: 2, Denominator: 1},
			expected: record.Outcome{
				FrameRate:            rate,
				Tempo:                120,
				SourceDuration:       2 * time.Second,
				SectionStartFrame:    100,
				SectionFrameCount:    400,
				HasSectionFrameCount: true,
				EffectiveDuration:    4 * time.Second,
			},
			description: "Two bars",
		},
		{
			length: nil,
			expected: record.Outcome{
				FrameRate:         rate,
				Tempo:             120,
				SourceDuration:    2 * time.Second,
				SectionStartFrame: 100,
				EffectiveDuration: 2 * time.Second,
			},
			description: "Open end",
		},
		{
			length:         nil,
			detectDownbeat: true,
			expected: record.Outcome{
				FrameRate:               rate,
				Tempo:                   120,
				SourceDuration:          2 * time.Second,
				SectionStartFrame:       20,
				NormalizedDownbeatFrame: 80,
				EffectiveDuration:       2 * time.Second,
			},
			expectedDownbeat: 800 * time.Millisecond,
			description:      "Played during count-in",
		},
	}
	for _, test := range tests {
		timeline := schedule.NewConstantTempoTimeline(120)
		// bar is two seconds, recording starts at the next bar
		timeline.SetCursorPos(1)
		timing := record.ResolveSynced(timeline, 1, schedule.OneBar, test.length)
		assert.Equal(t, schedule.Bar(1), timing.Start, test.description)

		eq := record.NewAudioEquipment("", 2, rate)
		eq.DetectDownbeat = test.detectDownbeat
		r := record.New(nil, record.NewWorker(nil))
		require.NoError(t, r.PrepareRecording(eq, timing, timeline), test.description)

		block := constant(2, 200, 0.5)
		block.Slice(0, 20).Clear()
		require.NoError(t, r.WriteAudio(record.WriteAudioRequest{
			Block:           block,
			InputSampleRate: rate,
		}, timeline), test.description)
		assert.InDelta(t, test.expectedDownbeat.Seconds(), r.DownbeatPos(timeline).Seconds(), 0.001, test.description)

		outcome, err := r.CommitRecording(timeline)
		require.NoError(t, err, test.description)
		assert.Equal(t, test.expected, outcome, test.description)
	}
}

func TestScheduleEnd(t *testing.T) {
	timeline := schedule.NewConstantTempoTimeline(120)
	timing := record.ResolveSynced(timeline, 0, schedule.OneBar, nil)
	assert.Equal(t, schedule.Bar(0), timing.Start)

	r := record.New(nil, record.NewWorker(nil))
	require.NoError(t, r.PrepareRecording(record.NewAudioEquipment("", 1, rate), timing, timeline))
	assert.Equal(t, clip.ErrNoMaterial, r.ScheduleEnd(schedule.Bar(1), timeline), "Frame rate isn't known yet")

	require.NoError(t, r.WriteAudio(record.WriteAudioRequest{
		Block:           constant(1, 10, 0.1),
		InputSampleRate: rate,
	}, timeline))
	require.NoError(t, r.ScheduleEnd(schedule.Bar(1), timeline))
	// second call keeps the first end
	require.NoError(t, r.ScheduleEnd(schedule.Bar(4), timeline))

	outcome, err := r.CommitRecording(timeline)
	require.NoError(t, err)
	assert.True(t, outcome.HasSectionFrameCount)
	assert.Equal(t, 200, outcome.SectionFrameCount)
	assert.Equal(t, 2*time.Second, outcome.EffectiveDuration)
}

func TestRecordingErrors(t *testing.T) {
	timeline := schedule.NewConstantTempoTimeline(120)
	block := record.WriteAudioRequest{Block: constant(2, 10, 1), InputSampleRate: rate}

	t.Run("Not recording", func(t *testing.T) {
		r := record.New(oldSource(t), record.NewWorker(nil))
		assert.Equal(t, record.ErrNotRecording, r.WriteAudio(block, timeline))
		assert.Equal(t, record.ErrNotRecording, r.WriteMidi(record.WriteMidiRequest{InputSampleRate: rate}, 0))
		assert.Equal(t, record.ErrNotRecording, r.RollbackRecording())
		assert.Equal(t, record.ErrNotRecording, r.ScheduleEnd(schedule.Bar(1), timeline))
		_, err := r.CommitRecording(timeline)
		assert.Equal(t, record.ErrNotRecording, err)
	})
	t.Run("Already recording", func(t *testing.T) {
		r := record.New(nil, record.NewWorker(nil))
		require.NoError(t, r.PrepareRecording(record.NewMidiEquipment(0), record.Unsynced(), timeline))
		assert.Equal(t, record.ErrAlreadyRecording, r.PrepareRecording(record.NewMidiEquipment(0), record.Unsynced(), timeline))
		assert.Equal(t, record.ErrNotRecording, r.WriteAudio(block, timeline), "MIDI recording")
	})
	t.Run("Invalid equipment", func(t *testing.T) {
		r := record.New(nil, record.NewWorker(nil))
		assert.Equal(t, record.ErrInvalidEquipment, r.PrepareRecording(record.Equipment{Kind: record.Audio}, record.Unsynced(), timeline))
		assert.False(t, r.IsRecording())
	})
	t.Run("Nothing written", func(t *testing.T) {
		r := record.New(nil, record.NewWorker(nil))
		require.NoError(t, r.PrepareRecording(record.NewAudioEquipment("", 2, rate), record.Unsynced(), timeline))
		_, err := r.CommitRecording(timeline)
		assert.Equal(t, clip.ErrNoMaterial, err)
	})
	t.Run("Not synced", func(t *testing.T) {
		r := record.New(nil, record.NewWorker(nil))
		require.NoError(t, r.PrepareRecording(record.NewAudioEquipment("", 2, rate), record.Unsynced(), timeline))
		require.NoError(t, r.WriteAudio(block, timeline))
		assert.Equal(t, record.ErrNotSynced, r.ScheduleEnd(schedule.Bar(1), timeline))
	})
	t.Run("Channel mismatch", func(t *testing.T) {
		r := record.New(nil, record.NewWorker(nil))
		require.NoError(t, r.PrepareRecording(record.NewAudioEquipment("", 1, rate), record.Unsynced(), timeline))
		assert.Equal(t, clip.ErrUnsupportedChannelCount, r.WriteAudio(block, timeline))
	})
	t.Run("Rollback", func(t *testing.T) {
		r := record.New(oldSource(t), record.NewWorker(nil))
		require.NoError(t, r.PrepareRecording(record.NewAudioEquipment("", 2, rate), record.Unsynced(), timeline))
		require.NoError(t, r.WriteAudio(block, timeline))
		require.NoError(t, r.RollbackRecording())
		assert.False(t, r.IsRecording())
		assert.Equal(t, 0.5, supply(t, r, 0, 10).Sample(9, 0))
		assert.Equal(t, 100, r.FrameCount())
	})
}

func TestMidiRecording(t *testing.T) {
	timeline := schedule.NewConstantTempoTimeline(120)
	r := record.New(nil, record.NewWorker(nil))
	require.NoError(t, r.PrepareRecording(record.NewMidiEquipment(16), record.Unsynced(), timeline))

	write := func(pos float64, events ...midi.Event) {
		l := midi.NewEventList(len(events))
		for _, e := range events {
			l.Add(e)
		}
		require.NoError(t, r.WriteMidi(record.WriteMidiRequest{
			Events:          l,
			BlockLength:     4800,
			InputSampleRate: 48000,
		}, pos))
	}
	// block is 0.1 second
	write(0,
		midi.Event{FrameOffset: 0, Message: midi.NoteOn(0, 60, 100)},
		midi.Event{FrameOffset: 2400, Message: midi.NoteOff(0, 60, 0)},
	)
	// the same window again replaces events
	write(0, midi.Event{FrameOffset: 0, Message: midi.NoteOn(0, 62, 100)})
	write(0.1, midi.Event{FrameOffset: 2400, Message: midi.NoteOff(0, 62, 0)})

	outcome, err := r.CommitRecording(timeline)
	require.NoError(t, err)
	assert.True(t, outcome.IsMidi)
	assert.Equal(t, clip.MidiFrameRate, outcome.FrameRate)
	assert.Equal(t, 200*time.Millisecond, outcome.SourceDuration)
	assert.False(t, r.IsRecording())

	m, ok := r.Source().(*source.Midi)
	require.True(t, ok)
	assert.InDelta(t, 0.2*clip.MidiFrameRate, m.FrameCount(), 1000)

	events := midi.NewEventList(8)
	_, err = r.SupplyMidi(clip.SupplyMidiRequest{
		DestFrameCount: 20,
		DestSampleRate: 100,
	}, events)
	require.NoError(t, err)
	require.Equal(t, 2, events.Len())
	assert.Equal(t, midi.Event{FrameOffset: 0, Message: midi.NoteOn(0, 62, 100)}, events.Events()[0])
	assert.Equal(t, midi.Event{FrameOffset: 15, Message: midi.NoteOff(0, 62, 0)}, events.Events()[1])
}

func TestMidiCaptureCapacity(t *testing.T) {
	timeline := schedule.NewConstantTempoTimeline(120)
	r := record.New(nil, record.NewWorker(nil))
	require.NoError(t, r.PrepareRecording(record.NewMidiEquipment(2), record.Unsynced(), timeline))

	l := midi.NewEventList(3)
	for i := 0; i < 3; i++ {
		l.Add(midi.Event{FrameOffset: i, Message: midi.NoteOn(0, uint8(60+i), 100)})
	}
	require.NoError(t, r.WriteMidi(record.WriteMidiRequest{Events: l, BlockLength: 10, InputSampleRate: 100}, 0))
	_, err := r.CommitRecording(timeline)
	require.NoError(t, err)

	events := midi.NewEventList(8)
	_, err = r.SupplyMidi(clip.SupplyMidiRequest{DestFrameCount: 10, DestSampleRate: 100}, events)
	require.NoError(t, err)
	assert.Equal(t, 2, events.Len(), "Events which don't fit are dropped")
}

func TestAllocations(t *testing.T) {
	w := record.NewWorker(nil)
	r := record.New(oldSource(t), w)
	timeline := schedule.NewConstantTempoTimeline(120)
	require.NoError(t, r.PrepareRecording(record.NewAudioEquipment("", 2, 48000), record.Unsynced(), timeline))

	req := record.WriteAudioRequest{Block: constant(2, 64, 0.1), InputSampleRate: 48000}
	dest := signal.NewBuffer(2, 64)
	supplyReq := clip.SupplyAudioRequest{StartFrame: 0, DestSampleRate: rate}
	allocs := testing.AllocsPerRun(100, func() {
		_ = r.WriteAudio(req, timeline)
		_, _ = r.SupplyAudio(supplyReq, dest)
	})
	assert.Equal(t, 0.0, allocs)
}
