// Package fader applies short fades at dynamically requested positions.
//
// Fade frames are request frames. When the inner supplier changes rate,
// destination frames are mapped to request frames by the ratio of consumed
// to written frames, so the ramp stays linear in the output.
package fader

import (
	"math"
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

// FadeLength is 10ms at 48 kHz.
const FadeLength = 480

// Direction of a fade.
type Direction int

const (
	// FadeIn ramps gain from 0 to 1.
	FadeIn Direction = iota
	// FadeOut ramps gain from 1 to 0.
	FadeOut
)

type fade struct {
	direction  Direction
	startFrame int
	endFrame   int
}

func newFade(direction Direction, startFrame int) fade {
	return fade{
		direction:  direction,
		startFrame: startFrame,
		endFrame:   startFrame + FadeLength,
	}
}

// factor returns gain at position, clamped to [0, 1].
func (f fade) factor(position float64) float64 {
	var v float64
	switch f.direction {
	case FadeIn:
		v = (position - float64(f.startFrame)) / FadeLength
	case FadeOut:
		v = (float64(f.endFrame) - position) / FadeLength
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// AdHocFader applies a linear fade over FadeLength frames starting at an
// externally requested frame. Only one fade is active at a time.
type AdHocFader struct {
	supplier clip.Supplier
	active   bool
	fade     fade
	reset    midi.ResetMessages
}

// New returns a fader without fade.
func New(s clip.Supplier) *AdHocFader {
	return &AdHocFader{
		supplier: s,
		reset:    midi.HardResetMessages,
	}
}

// Supplier returns the inner supplier.
func (f *AdHocFader) Supplier() clip.Supplier {
	return f.supplier
}

// SetMidiResetMessages sets messages sent when fading out.
func (f *AdHocFader) SetMidiResetMessages(reset midi.ResetMessages) {
	f.reset = reset
}

// HasFade returns true if any fade is active.
func (f *AdHocFader) HasFade() bool {
	return f.active
}

// IsFadingIn returns true if fade-in is active.
func (f *AdHocFader) IsFadingIn() bool {
	return f.active && f.fade.direction == FadeIn
}

// IsFadingOut returns true if fade-out is active.
func (f *AdHocFader) IsFadingOut() bool {
	return f.active && f.fade.direction == FadeOut
}

// Reset removes active fade.
func (f *AdHocFader) Reset() {
	f.active = false
}

// StartFadeIn starts fade-in at frame. If fade-out is running, frame is
// assumed to be the current frame and fade-in continues from the current
// gain.
func (f *AdHocFader) StartFadeIn(frame int) {
	f.start(FadeIn, frame)
}

// StartFadeOut starts fade-out at frame. If fade-in is running, frame is
// assumed to be the current frame and fade-out continues from the current
// gain.
func (f *AdHocFader) StartFadeOut(frame int) {
	f.start(FadeOut, frame)
}

// ScheduleFadeOutEndingAt replaces active fade with fade-out which ends at
// frame.
func (f *AdHocFader) ScheduleFadeOutEndingAt(frame int) {
	f.fade = newFade(FadeOut, frame-FadeLength)
	f.active = true
}

func (f *AdHocFader) start(direction Direction, frame int) {
	if !f.active {
		f.fade = newFade(direction, frame)
		f.active = true
		return
	}
	if f.fade.direction == direction {
		return
	}
	// ramps meet at the current gain.
	adjustment := frame - f.fade.startFrame - FadeLength
	f.fade = newFade(direction, frame+adjustment)
}

type instruction int

const (
	bypass instruction = iota
	applyFade
	exceeded
)

func (f *AdHocFader) instruction(startFrame int) instruction {
	if !f.active {
		return bypass
	}
	if startFrame >= f.fade.endFrame {
		if f.fade.direction == FadeIn {
			f.active = false
			return bypass
		}
		return exceeded
	}
	return applyFade
}

// SupplyAudio implements clip.AudioSupplier.
func (f *AdHocFader) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	switch f.instruction(req.StartFrame) {
	case bypass:
		return f.supplier.SupplyAudio(req, dest)
	case exceeded:
		dest.Clear()
		return clip.ExceededEnd(), nil
	}
	res, err := f.supplier.SupplyAudio(req, dest)
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	next := req.StartFrame + res.NumFramesConsumed
	if f.fade.direction == FadeOut && next <= f.fade.startFrame {
		return res, nil
	}
	written := dest.FrameCount()
	if res.Status.ReachedEnd {
		written = res.Status.NumFramesWritten
	}
	step := 1.0
	if written > 0 && res.NumFramesConsumed > 0 {
		step = float64(res.NumFramesConsumed) / float64(written)
	}
	for i := 0; i < dest.FrameCount(); i++ {
		dest.ScaleFrame(i, f.fade.factor(float64(req.StartFrame)+float64(i)*step))
	}
	if next < f.fade.endFrame {
		if res.Status.ReachedEnd && f.fade.direction == FadeIn {
			f.active = false
		}
		return res, nil
	}
	if f.fade.direction == FadeOut {
		// stays latched until reset, so the voice remains inaudible.
		audible := int(math.Ceil(float64(f.fade.endFrame-req.StartFrame) / step))
		return clip.ReachedEnd(res.NumFramesConsumed, min(max(audible, 0), written)), nil
	}
	f.active = false
	return res, nil
}

// SupplyMidi implements clip.MidiSupplier. MIDI has no gain to ramp, so
// fade-out silences the receiver at once.
func (f *AdHocFader) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	switch f.instruction(req.StartFrame) {
	case bypass:
		return f.supplier.SupplyMidi(req, events)
	case exceeded:
		return clip.ExceededEnd(), nil
	}
	if f.fade.direction == FadeOut && req.StartFrame < f.fade.startFrame {
		return f.supplier.SupplyMidi(req, events)
	}
	if f.fade.direction == FadeOut {
		midi.Silence(events, f.reset, midi.Append, f.supplier)
		return clip.ExceededEnd(), nil
	}
	res, err := f.supplier.SupplyMidi(req, events)
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	if res.Status.ReachedEnd || req.StartFrame+res.NumFramesConsumed >= f.fade.endFrame {
		f.active = false
	}
	return res, nil
}

// ReleaseNotes delegates to the inner supplier.
func (f *AdHocFader) ReleaseNotes(frameOffset int, events *midi.EventList) {
	f.supplier.ReleaseNotes(frameOffset, events)
}

// ChannelCount delegates to the inner supplier.
func (f *AdHocFader) ChannelCount() int {
	return f.supplier.ChannelCount()
}

// MaterialInfo delegates to the inner supplier.
func (f *AdHocFader) MaterialInfo() (clip.MaterialInfo, error) {
	return f.supplier.MaterialInfo()
}

// FrameRate delegates to the inner supplier.
func (f *AdHocFader) FrameRate() (float64, bool) {
	return f.supplier.FrameRate()
}

// FrameCount delegates to the inner supplier.
func (f *AdHocFader) FrameCount() int {
	return f.supplier.FrameCount()
}

// Duration delegates to the inner supplier.
func (f *AdHocFader) Duration() time.Duration {
	return f.supplier.Duration()
}
