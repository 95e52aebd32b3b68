// Package loop repeats material of a supplier.
package loop

import (
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

const requester = "looper"

// Behavior defines how long material is repeated.
type Behavior struct {
	infinitely bool
	lastCycle  int
}

// Infinitely repeats material until looper is disabled.
func Infinitely() Behavior {
	return Behavior{infinitely: true}
}

// UntilEndOfCycle repeats material until the end of cycle n. Cycles are
// counted from zero, so UntilEndOfCycle(0) plays material once.
func UntilEndOfCycle(n int) Behavior {
	return Behavior{lastCycle: n}
}

// IsInfinite returns true if material is repeated infinitely.
func (b Behavior) IsInfinite() bool {
	return b.infinitely
}

// LastCycle returns the last cycle to be played. False is returned for
// infinite behavior.
func (b Behavior) LastCycle() (int, bool) {
	return b.lastCycle, !b.infinitely
}

// CycleAt returns cycle which frame belongs to. Count-in belongs to the
// first cycle.
func CycleAt(frame, frameCount int) int {
	if frame < 0 || frameCount <= 0 {
		return 0
	}
	return frame / frameCount
}

// Looper repeats material of the inner supplier.
type Looper struct {
	supplier   clip.Supplier
	enabled    bool
	behavior   Behavior
	resetLeft  midi.ResetMessages
	resetRight midi.ResetMessages
}

// New returns disabled looper which plays material once.
func New(s clip.Supplier) *Looper {
	return &Looper{
		supplier:   s,
		resetLeft:  midi.DefaultResetMessages,
		resetRight: midi.DefaultResetMessages,
	}
}

// Supplier returns the inner supplier.
func (l *Looper) Supplier() clip.Supplier {
	return l.supplier
}

// SetEnabled toggles looping.
func (l *Looper) SetEnabled(enabled bool) {
	l.enabled = enabled
}

// Enabled returns true if looping is enabled.
func (l *Looper) Enabled() bool {
	return l.enabled
}

// SetBehavior changes loop behavior.
func (l *Looper) SetBehavior(b Behavior) {
	l.behavior = b
}

// Behavior returns current loop behavior.
func (l *Looper) Behavior() Behavior {
	return l.behavior
}

// SetMidiResetMessages sets messages sent at loop start and end.
func (l *Looper) SetMidiResetMessages(left, right midi.ResetMessages) {
	l.resetLeft, l.resetRight = left, right
}

// KeepPlayingUntilEndOfCurrentCycle stops looping at the end of the cycle
// which pos belongs to.
func (l *Looper) KeepPlayingUntilEndOfCurrentCycle(pos int) {
	l.behavior = UntilEndOfCycle(CycleAt(pos, l.supplier.FrameCount()))
}

// relevance maps start frame onto material. False is returned if looper
// doesn't apply to this request.
func (l *Looper) relevance(startFrame int) (moduloStart, cycle int, ok bool) {
	if !l.enabled {
		return 0, 0, false
	}
	frameCount := l.supplier.FrameCount()
	if frameCount <= 0 {
		return 0, 0, false
	}
	cycle = CycleAt(startFrame, frameCount)
	if last, bounded := l.behavior.LastCycle(); bounded && cycle > last {
		return 0, 0, false
	}
	if startFrame < 0 {
		return startFrame, cycle, true
	}
	return startFrame % frameCount, cycle, true
}

func (l *Looper) isLastCycle(cycle int) bool {
	last, bounded := l.behavior.LastCycle()
	return bounded && cycle == last
}

// SupplyAudio implements clip.AudioSupplier.
func (l *Looper) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	moduloStart, cycle, ok := l.relevance(req.StartFrame)
	if !ok {
		return l.supplier.SupplyAudio(req, dest)
	}
	moduloReq := req
	moduloReq.StartFrame = moduloStart
	moduloReq.Info = req.Info.Derive(requester, 0)
	res, err := l.supplier.SupplyAudio(moduloReq, dest)
	if err != nil || !res.Status.ReachedEnd {
		return res, err
	}
	written := res.Status.NumFramesWritten
	switch {
	case l.isLastCycle(cycle):
		return res, nil
	case written == dest.FrameCount():
		return clip.PleaseContinue(res.NumFramesConsumed), nil
	}
	startReq := req
	startReq.StartFrame = 0
	startReq.Info = req.Info.Derive(requester, written)
	startRes, err := l.supplier.SupplyAudio(startReq, dest.SliceFrom(written))
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	return clip.PleaseContinue(res.NumFramesConsumed + startRes.NumFramesConsumed), nil
}

// SupplyMidi implements clip.MidiSupplier.
func (l *Looper) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	moduloStart, cycle, ok := l.relevance(req.StartFrame)
	if !ok {
		return l.supplier.SupplyMidi(req, events)
	}
	moduloReq := req
	moduloReq.StartFrame = moduloStart
	moduloReq.Info = req.Info.Derive(requester, 0)
	res, err := l.supplier.SupplyMidi(moduloReq, events)
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	if req.StartFrame <= 0 && req.StartFrame+res.NumFramesConsumed > 0 {
		midi.Silence(events, l.resetLeft, midi.Prepend, l.supplier)
	}
	if !res.Status.ReachedEnd {
		return res, nil
	}
	written := res.Status.NumFramesWritten
	switch {
	case l.isLastCycle(cycle):
		midi.Silence(events, l.resetRight, midi.Append, l.supplier)
		return res, nil
	case written == req.DestFrameCount:
		return clip.PleaseContinue(res.NumFramesConsumed), nil
	}
	// events of the next cycle are placed after the consumed part.
	startReq := req
	startReq.StartFrame = -res.NumFramesConsumed
	startReq.Info = req.Info.Derive(requester, written)
	startRes, err := l.supplier.SupplyMidi(startReq, events)
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	return clip.PleaseContinue(startRes.NumFramesConsumed), nil
}

// ReleaseNotes delegates to the inner supplier.
func (l *Looper) ReleaseNotes(frameOffset int, events *midi.EventList) {
	l.supplier.ReleaseNotes(frameOffset, events)
}

// ChannelCount delegates to the inner supplier.
func (l *Looper) ChannelCount() int {
	return l.supplier.ChannelCount()
}

// MaterialInfo delegates to the inner supplier. Frame count is the length of
// one cycle.
func (l *Looper) MaterialInfo() (clip.MaterialInfo, error) {
	return l.supplier.MaterialInfo()
}

// FrameRate delegates to the inner supplier.
func (l *Looper) FrameRate() (float64, bool) {
	return l.supplier.FrameRate()
}

// FrameCount delegates to the inner supplier.
func (l *Looper) FrameCount() int {
	return l.supplier.FrameCount()
}

// Duration delegates to the inner supplier.
func (l *Looper) Duration() time.Duration {
	return l.supplier.Duration()
}
