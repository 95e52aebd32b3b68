// Package record captures audio and MIDI into a new material while the
// previous material keeps playing. All memory the real-time side needs is
// prepared in advance, growth and finishing happen on a Worker goroutine.
package record

import (
	"errors"
	"math"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/xid"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/schedule"
	"github.com/dudk/clip/signal"
	"github.com/dudk/clip/source"
)

var (
	// ErrNotRecording is returned when recording operation is called in
	// ready state.
	ErrNotRecording = errors.New("not recording")
	// ErrAlreadyRecording is returned when recording is prepared twice.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrAlreadyCommitted is returned when recording is committed twice.
	ErrAlreadyCommitted = errors.New("recording already committed")
	// ErrNotSynced is returned when end is scheduled for recording which
	// isn't aligned to the timeline.
	ErrNotSynced = errors.New("recording is not synced")
	// ErrWorkerBusy is returned when worker can't accept finish request.
	ErrWorkerBusy = errors.New("recorder worker is busy")
	// ErrInvalidEquipment is returned when equipment has no capture memory.
	ErrInvalidEquipment = errors.New("invalid recording equipment")
)

const (
	// captureSeconds is the initial capture length at expected frame rate.
	captureSeconds = 2
	// DefaultMidiCapacity is the number of events MIDI capture can hold.
	DefaultMidiCapacity = 4096
	// midiPPQ is the resolution of recorded sequences.
	midiPPQ = 960
)

// Kind of the recorded material.
type Kind int

const (
	// Audio recording.
	Audio Kind = iota
	// Midi recording.
	Midi
)

// Equipment is everything a recording needs on the real-time path. It's
// created before recording is prepared.
type Equipment struct {
	Kind Kind
	// Capture is audio capture memory.
	Capture signal.Buffer
	// File to store the finished audio recording. Empty means memory only.
	File string
	// MidiCapacity is the number of MIDI events which can be captured.
	MidiCapacity int
	// DetectDownbeat enables downbeat detection of material played during
	// count-in.
	DetectDownbeat bool
}

// NewAudioEquipment allocates capture memory for two seconds at expected
// frame rate, doubled to have room for higher input rates. If dir is not
// empty, the finished recording is stored there under a unique name.
func NewAudioEquipment(dir string, channels int, expectedRate float64) Equipment {
	eq := Equipment{
		Kind:    Audio,
		Capture: signal.NewBuffer(channels, int(captureSeconds*2*expectedRate)),
	}
	if dir != "" {
		eq.File = filepath.Join(dir, "clip-"+xid.New().String()+".wav")
	}
	return eq
}

// NewMidiEquipment returns equipment for MIDI recording.
func NewMidiEquipment(capacity int) Equipment {
	if capacity <= 0 {
		capacity = DefaultMidiCapacity
	}
	return Equipment{
		Kind:         Midi,
		MidiCapacity: capacity,
	}
}

// WriteAudioRequest carries a block of input audio.
type WriteAudioRequest struct {
	Block           signal.Buffer
	InputSampleRate float64
}

// WriteMidiRequest carries a block of input MIDI events.
type WriteMidiRequest struct {
	Events          *midi.EventList
	BlockLength     int
	InputSampleRate float64
}

type capturedEvent struct {
	frame   int
	message midi.Message
}

type recording struct {
	kind           Kind
	phase          phase
	detectDownbeat bool

	capture   signal.Buffer
	next      int
	file      string
	growing   bool
	finishing bool
	growReq   growRequest
	finishReq finishRequest

	events []capturedEvent
	// midiFrames is the length of recorded MIDI material.
	midiFrames int
}

// Recorder is a supplier which records new material. While recording, the
// previous source keeps being supplied. Recorder isn't safe for concurrent
// use, all methods are called from the real-time thread except New and
// PrepareRecording.
type Recorder struct {
	worker    *Worker
	responses chan response
	bitDepth  signal.BitDepth

	source    clip.Supplier
	recording *recording
	err       error
}

// Option configures recorder.
type Option func(*Recorder)

// WithBitDepth sets bit depth of stored recordings.
func WithBitDepth(b signal.BitDepth) Option {
	return func(r *Recorder) {
		r.bitDepth = b
	}
}

// New returns recorder in ready state. Source can be nil.
func New(src clip.Supplier, w *Worker, options ...Option) *Recorder {
	r := &Recorder{
		worker:    w,
		responses: make(chan response, 2),
		bitDepth:  signal.BitDepth24,
		source:    src,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Source returns the source supplied when recorder is ready, or the previous
// source while recording.
func (r *Recorder) Source() clip.Supplier {
	return r.source
}

// IsRecording returns true until the recording is finished or rolled back.
func (r *Recorder) IsRecording() bool {
	return r.recording != nil
}

// Err returns the error of the last finished recording. The previous source
// is kept if finishing failed.
func (r *Recorder) Err() error {
	return r.err
}

// PrepareRecording starts a new recording. Timeline cursor is the trigger
// position. It allocates and must not be called on the real-time path.
func (r *Recorder) PrepareRecording(eq Equipment, timing Timing, t schedule.Timeline) error {
	if r.recording != nil {
		return ErrAlreadyRecording
	}
	isMidi := eq.Kind == Midi
	if !isMidi && eq.Capture.FrameCount() == 0 {
		return ErrInvalidEquipment
	}
	cursor := t.CursorPos()
	p, err := initialPhase(timing, t.TempoAt(cursor), isMidi, cursor, t)
	if err != nil {
		return err
	}
	rec := &recording{
		kind:           eq.Kind,
		phase:          p,
		detectDownbeat: eq.DetectDownbeat,
		capture:        eq.Capture,
		file:           eq.File,
	}
	if isMidi {
		capacity := eq.MidiCapacity
		if capacity <= 0 {
			capacity = DefaultMidiCapacity
		}
		rec.events = make([]capturedEvent, 0, capacity)
	}
	r.recording = rec
	r.err = nil
	return nil
}

// WriteAudio copies the block into capture memory. Frames which don't fit
// are dropped until the worker returns grown memory.
func (r *Recorder) WriteAudio(req WriteAudioRequest, t schedule.Timeline) error {
	r.poll()
	rec := r.recording
	if rec == nil || rec.kind != Audio || rec.finishing {
		return ErrNotRecording
	}
	if rec.phase.kind == phaseEmpty {
		if req.InputSampleRate <= 0 {
			return clip.ErrInvalidFrameRate
		}
		p, err := rec.phase.advance(t.CursorPos(), req.InputSampleRate, t)
		if err != nil {
			return err
		}
		rec.phase = p
	}
	block := req.Block
	if block.ChannelCount() != rec.capture.ChannelCount() {
		return clip.ErrUnsupportedChannelCount
	}
	if rec.detectDownbeat && !rec.phase.hasFirstPlayFrame {
		if offset, ok := firstAudible(block); ok {
			rec.phase.firstPlayFrame = rec.next + offset
			rec.phase.hasFirstPlayFrame = true
		}
	}
	rec.next += rec.capture.SliceFrom(rec.next).CopyFrom(block)
	capacity := rec.capture.FrameCount()
	if !rec.growing && rec.next >= capacity*3/4 {
		rec.growReq = growRequest{
			captured:  rec.capture.Slice(0, rec.next),
			frames:    capacity * 2,
			responses: r.responses,
		}
		rec.growing = r.worker.send(&rec.growReq)
	}
	return nil
}

// firstAudible returns the first frame with non-zero sample.
func firstAudible(b signal.Buffer) (int, bool) {
	channels := b.ChannelCount()
	for i, v := range b.Data() {
		if v != 0 {
			return i / channels, true
		}
	}
	return 0, false
}

// WriteMidi replaces events of the block window starting at pos seconds
// after recording start. Events of the list are expected in order.
func (r *Recorder) WriteMidi(req WriteMidiRequest, pos float64) error {
	rec := r.recording
	if rec == nil || rec.kind != Midi {
		return ErrNotRecording
	}
	if req.InputSampleRate <= 0 {
		return clip.ErrInvalidFrameRate
	}
	// MIDI frames are normalized to base tempo.
	factor := rec.phase.midiTempoFactor()
	start := clip.ConvertPositionToFrames(pos*factor, clip.MidiFrameRate)
	scale := clip.MidiFrameRate / req.InputSampleRate * factor
	end := start + int(math.Round(float64(req.BlockLength)*scale))
	var incoming []midi.Event
	if req.Events != nil {
		incoming = req.Events.Events()
	}
	rec.replaceEvents(start, end, incoming, scale)
	if end > rec.midiFrames {
		rec.midiFrames = end
	}
	return nil
}

// replaceEvents removes captured events of [start, end) and inserts
// incoming ones. Incoming events which don't fit are dropped.
func (rec *recording) replaceEvents(start, end int, incoming []midi.Event, scale float64) {
	events := rec.events
	i := sort.Search(len(events), func(k int) bool { return events[k].frame >= start })
	j := sort.Search(len(events), func(k int) bool { return events[k].frame >= end })
	free := cap(events) - len(events) + (j - i)
	if len(incoming) > free {
		incoming = incoming[:free]
	}
	n := len(events) - (j - i) + len(incoming)
	grown := events[:max(n, len(events))]
	copy(grown[i+len(incoming):], events[j:])
	for k, e := range incoming {
		frame := start + int(math.Round(float64(e.FrameOffset)*scale))
		grown[i+k] = capturedEvent{frame: frame, message: e.Message}
		if rec.detectDownbeat && !rec.phase.hasFirstPlayFrame && e.Message.IsNoteOn() {
			rec.phase.firstPlayFrame = frame
			rec.phase.hasFirstPlayFrame = true
		}
	}
	rec.events = grown[:n]
}

// ScheduleEnd sets the end of synced recording.
func (r *Recorder) ScheduleEnd(end schedule.QuantizedPosition, t schedule.Timeline) error {
	rec := r.recording
	if rec == nil || rec.finishing {
		return ErrNotRecording
	}
	p, err := rec.phase.scheduleEnd(end, t)
	if err != nil {
		return err
	}
	rec.phase = p
	return nil
}

// DownbeatPos returns position of the downbeat within recorded material.
// It's zero unless material was played during count-in.
func (r *Recorder) DownbeatPos(t schedule.Timeline) time.Duration {
	if r.recording == nil {
		return 0
	}
	return r.recording.phase.downbeatPos(t)
}

// CommitRecording stops capturing. Audio recordings are finished by the
// worker, captured memory is supplied until then. MIDI recordings become
// the source at once.
func (r *Recorder) CommitRecording(t schedule.Timeline) (Outcome, error) {
	rec := r.recording
	if rec == nil {
		return Outcome{}, ErrNotRecording
	}
	if rec.finishing {
		return Outcome{}, ErrAlreadyCommitted
	}
	p := rec.phase
	if rec.kind == Midi {
		return r.commitMidi(&p, t)
	}
	o, err := p.commit(clip.ConvertFramesToDuration(rec.next, p.frameRate), t)
	if err != nil {
		return Outcome{}, err
	}
	rec.finishReq = finishRequest{
		captured:  rec.capture.Slice(0, rec.next),
		frameRate: p.frameRate,
		bitDepth:  r.bitDepth,
		file:      rec.file,
		responses: r.responses,
	}
	if !r.worker.send(&rec.finishReq) {
		return Outcome{}, ErrWorkerBusy
	}
	rec.phase = p
	rec.finishing = true
	return o, nil
}

// commitMidi builds a sequence of captured events. It allocates.
func (r *Recorder) commitMidi(p *phase, t schedule.Timeline) (Outcome, error) {
	rec := r.recording
	o, err := p.commit(clip.ConvertFramesToDuration(rec.midiFrames, clip.MidiFrameRate), t)
	if err != nil {
		return Outcome{}, err
	}
	m, err := source.NewMidi(rec.sequence())
	if err != nil {
		return Outcome{}, err
	}
	r.source = m
	r.recording = nil
	return o, nil
}

// sequence converts captured events into pulses at base tempo. It's
// terminated with all-notes-off at the end of recording.
func (rec *recording) sequence() *midi.Sequence {
	framesPerPulse := clip.MidiFrameRate * 60 / clip.MidiBaseBpm / midiPPQ
	pulse := func(frame int) int64 {
		return int64(math.Round(float64(frame) / framesPerPulse))
	}
	s := midi.Sequence{
		PPQ:    midiPPQ,
		Events: make([]midi.SequenceEvent, 0, len(rec.events)+1),
	}
	for _, e := range rec.events {
		s.Events = append(s.Events, midi.SequenceEvent{
			Pulse:    pulse(e.frame),
			Message:  e.message,
			Selected: true,
		})
	}
	end := pulse(rec.midiFrames)
	if n := len(s.Events); n > 0 && s.Events[n-1].Pulse > end {
		end = s.Events[n-1].Pulse
	}
	s.Events = append(s.Events, midi.SequenceEvent{
		Pulse:   end,
		Message: midi.ControlChange(0, midi.AllNotesOff, 0),
	})
	return &s
}

// RollbackRecording discards the recording, the previous source is
// supplied again.
func (r *Recorder) RollbackRecording() error {
	if r.recording == nil {
		return ErrNotRecording
	}
	r.recording = nil
	return nil
}

// poll receives worker responses without blocking.
func (r *Recorder) poll() {
	for {
		select {
		case res := <-r.responses:
			r.handle(res)
		default:
			return
		}
	}
}

func (r *Recorder) handle(res response) {
	rec := r.recording
	switch res.kind {
	case grown:
		if rec == nil || rec.kind != Audio || !rec.growing {
			return
		}
		rec.growing = false
		if rec.finishing {
			return
		}
		// frames written after the snapshot was taken
		res.capture.Slice(res.snapshot, rec.next).CopyFrom(rec.capture.Slice(res.snapshot, rec.next))
		rec.capture = res.capture
	case finished:
		if rec == nil || !rec.finishing {
			return
		}
		r.recording = nil
		if res.err != nil {
			r.err = res.err
			return
		}
		r.source = res.source
	}
}

// SupplyAudio supplies captured memory while the recording is finishing,
// otherwise the current source.
func (r *Recorder) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	r.poll()
	if rec := r.recording; rec != nil && rec.finishing {
		if dest.ChannelCount() != rec.capture.ChannelCount() {
			return clip.SupplyResponse{}, clip.ErrUnsupportedChannelCount
		}
		captured := rec.capture.Slice(0, rec.next)
		return clip.SupplyAudioMaterial(req, dest, func(mr clip.SourceMaterialRequest) clip.SupplyResponse {
			return clip.TransferSamples(captured, mr.StartFrame, mr.Dest)
		}), nil
	}
	if r.source == nil {
		return clip.SupplyResponse{}, clip.ErrNoMaterial
	}
	return r.source.SupplyAudio(req, dest)
}

// SupplyMidi supplies the current source.
func (r *Recorder) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	if r.source == nil {
		return clip.SupplyResponse{}, clip.ErrNoMaterial
	}
	return r.source.SupplyMidi(req, events)
}

// ReleaseNotes delegates to the current source.
func (r *Recorder) ReleaseNotes(frameOffset int, events *midi.EventList) {
	if r.source != nil {
		r.source.ReleaseNotes(frameOffset, events)
	}
}

// ChannelCount returns channel count of captured memory while finishing.
func (r *Recorder) ChannelCount() int {
	if rec := r.recording; rec != nil && rec.finishing {
		return rec.capture.ChannelCount()
	}
	if r.source == nil {
		return 0
	}
	return r.source.ChannelCount()
}

// MaterialInfo describes what SupplyAudio and SupplyMidi supply.
func (r *Recorder) MaterialInfo() (clip.MaterialInfo, error) {
	if rec := r.recording; rec != nil && rec.finishing {
		return clip.MaterialInfo{
			ChannelCount: rec.capture.ChannelCount(),
			FrameCount:   rec.next,
			FrameRate:    rec.phase.frameRate,
		}, nil
	}
	if r.source == nil {
		return clip.MaterialInfo{}, clip.ErrNoMaterial
	}
	return r.source.MaterialInfo()
}

// FrameRate of supplied material.
func (r *Recorder) FrameRate() (float64, bool) {
	if rec := r.recording; rec != nil && rec.finishing {
		return rec.phase.frameRate, true
	}
	if r.source == nil {
		return 0, false
	}
	return r.source.FrameRate()
}

// FrameCount of supplied material.
func (r *Recorder) FrameCount() int {
	if rec := r.recording; rec != nil && rec.finishing {
		return rec.next
	}
	if r.source == nil {
		return 0
	}
	return r.source.FrameCount()
}

// Duration of supplied material.
func (r *Recorder) Duration() time.Duration {
	if rec := r.recording; rec != nil && rec.finishing {
		return clip.ConvertFramesToDuration(rec.next, rec.phase.frameRate)
	}
	if r.source == nil {
		return 0
	}
	return r.source.Duration()
}
