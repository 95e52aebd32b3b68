// Package section restricts a supplier to a sub-range of its material.
package section

import (
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/internal/ramp"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

const requester = "section"

// Bounds of a section in frames of the inner supplier. The zero value is
// pass-through.
type Bounds struct {
	StartFrame int
	Length     int
	// HasLength is false for sections which end with material.
	HasLength bool
}

// IsDefault returns true if bounds don't restrict material.
func (b Bounds) IsDefault() bool {
	return b == Bounds{}
}

// FrameCount returns number of frames in section of material with provided
// frame count.
func (b Bounds) FrameCount(materialFrames int) int {
	available := materialFrames - b.StartFrame
	if available < 0 {
		available = 0
	}
	if b.HasLength && b.Length < available {
		return b.Length
	}
	return available
}

// Section presents [start, start+length) of the inner supplier as if it was
// the entire material.
type Section struct {
	supplier     clip.Supplier
	bounds       Bounds
	fadesEnabled bool
	resetLeft    midi.ResetMessages
	resetRight   midi.ResetMessages
}

// New returns pass-through section over supplier. Fades at bounds are
// disabled.
func New(s clip.Supplier) *Section {
	return &Section{
		supplier:   s,
		resetLeft:  midi.DefaultResetMessages,
		resetRight: midi.DefaultResetMessages,
	}
}

// Supplier returns the inner supplier.
func (s *Section) Supplier() clip.Supplier {
	return s.supplier
}

// Bounds returns current bounds.
func (s *Section) Bounds() Bounds {
	return s.bounds
}

// SetBounds changes bounds. Caller must reset position of the chain.
func (s *Section) SetBounds(b Bounds) error {
	if b.StartFrame < 0 || b.Length < 0 {
		return clip.ErrInvalidBounds
	}
	s.bounds = b
	return nil
}

// SetBoundsInSeconds converts bounds into frames of the inner supplier.
// Zero length means section ends with material.
func (s *Section) SetBoundsInSeconds(start, length time.Duration) error {
	rate, ok := s.supplier.FrameRate()
	if !ok {
		return clip.ErrInvalidFrameRate
	}
	return s.SetBounds(Bounds{
		StartFrame: clip.ConvertDurationToFrames(start, rate),
		Length:     clip.ConvertDurationToFrames(length, rate),
		HasLength:  length > 0,
	})
}

// Reset makes section pass-through.
func (s *Section) Reset() {
	s.bounds = Bounds{}
}

// SetFadesEnabled toggles fades at section bounds.
func (s *Section) SetFadesEnabled(enabled bool) {
	s.fadesEnabled = enabled
}

// SetMidiResetMessages sets messages sent at section start and end.
func (s *Section) SetMidiResetMessages(left, right midi.ResetMessages) {
	s.resetLeft, s.resetRight = left, right
}

type instruction int

const (
	bypass instruction = iota
	apply
	exceeded
)

// plan is the result of mapping a request onto the section.
type plan struct {
	startFrame int
	frames     int
	bounded    bool
	reached    bool
	ideal      int
}

func (s *Section) plan(reqStart, destFrames int) (instruction, plan) {
	if s.bounds.IsDefault() || reqStart+destFrames <= 0 {
		return bypass, plan{}
	}
	p := plan{
		startFrame: s.bounds.StartFrame + reqStart,
		frames:     destFrames,
		ideal:      destFrames,
	}
	if !s.bounds.HasLength {
		return apply, p
	}
	if reqStart >= s.bounds.Length {
		return exceeded, p
	}
	p.bounded = true
	end := s.bounds.StartFrame + s.bounds.Length
	if p.startFrame+destFrames > end {
		p.reached = true
		p.frames = end - p.startFrame
	}
	return apply, p
}

func (p plan) response(inner clip.SupplyResponse) clip.SupplyResponse {
	switch {
	case !p.bounded:
		return inner
	case p.reached:
		return clip.ReachedEnd(p.frames, p.frames)
	case inner.Status.ReachedEnd:
		// material is shorter than section, the rest is silence.
		return clip.PleaseContinue(p.ideal)
	default:
		return clip.PleaseContinue(p.frames)
	}
}

// SupplyAudio implements clip.AudioSupplier.
func (s *Section) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	ins, p := s.plan(req.StartFrame, dest.FrameCount())
	switch ins {
	case bypass:
		return s.supplier.SupplyAudio(req, dest)
	case exceeded:
		dest.Clear()
		return clip.ExceededEnd(), nil
	}
	inner := req
	inner.StartFrame = p.startFrame
	inner.Info = req.Info.Derive(requester, 0)
	res, err := s.supplier.SupplyAudio(inner, dest.Slice(0, p.frames))
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	dest.SliceFrom(p.frames).Clear()
	if s.fadesEnabled {
		if s.bounds.StartFrame > 0 {
			ramp.FadeInStartingAtZero(dest, req.StartFrame, ramp.Length)
		}
		if s.bounds.HasLength {
			ramp.FadeOutEndingAt(dest, req.StartFrame, s.bounds.Length, ramp.Length)
		}
	}
	return p.response(res), nil
}

// SupplyMidi implements clip.MidiSupplier.
func (s *Section) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	ins, p := s.plan(req.StartFrame, req.DestFrameCount)
	switch ins {
	case bypass:
		return s.supplier.SupplyMidi(req, events)
	case exceeded:
		return clip.ExceededEnd(), nil
	}
	inner := req
	inner.StartFrame = p.startFrame
	inner.DestFrameCount = p.frames
	inner.Info = req.Info.Derive(requester, 0)
	res, err := s.supplier.SupplyMidi(inner, events)
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	if req.StartFrame <= 0 {
		midi.Silence(events, s.resetLeft, midi.Prepend, s.supplier)
	}
	if p.reached {
		midi.Silence(events, s.resetRight, midi.Append, s.supplier)
	}
	return p.response(res), nil
}

// ReleaseNotes delegates to the inner supplier.
func (s *Section) ReleaseNotes(frameOffset int, events *midi.EventList) {
	s.supplier.ReleaseNotes(frameOffset, events)
}

// ChannelCount delegates to the inner supplier.
func (s *Section) ChannelCount() int {
	return s.supplier.ChannelCount()
}

// MaterialInfo returns inner material info with frame count of the section.
func (s *Section) MaterialInfo() (clip.MaterialInfo, error) {
	info, err := s.supplier.MaterialInfo()
	if err != nil || s.bounds.IsDefault() {
		return info, err
	}
	info.FrameCount = s.bounds.FrameCount(info.FrameCount)
	return info, nil
}

// FrameRate delegates to the inner supplier.
func (s *Section) FrameRate() (float64, bool) {
	return s.supplier.FrameRate()
}

// FrameCount returns number of frames in section.
func (s *Section) FrameCount() int {
	return s.bounds.FrameCount(s.supplier.FrameCount())
}

// Duration returns length of section.
func (s *Section) Duration() time.Duration {
	rate, ok := s.supplier.FrameRate()
	if !ok {
		return 0
	}
	return clip.ConvertFramesToDuration(s.FrameCount(), rate)
}
