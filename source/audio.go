package source

import (
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

// Audio supplies frames of shared material.
type Audio struct {
	material *Material
}

// NewAudio returns a supplier of material.
func NewAudio(m *Material) *Audio {
	return &Audio{material: m}
}

// Material returns supplied material.
func (a *Audio) Material() *Material {
	return a.material
}

// SupplyAudio copies the window of material which starts at request's start
// frame. The destination rate is expected to match material's frame rate,
// the resampler upstream guarantees that.
func (a *Audio) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	if dest.ChannelCount() != a.material.ChannelCount() {
		return clip.SupplyResponse{}, clip.ErrUnsupportedChannelCount
	}
	return clip.SupplyAudioMaterial(req, dest, func(r clip.SourceMaterialRequest) clip.SupplyResponse {
		return clip.TransferSamples(a.material.samples, r.StartFrame, r.Dest)
	}), nil
}

// SupplyMidi always fails, audio material has no events.
func (a *Audio) SupplyMidi(clip.SupplyMidiRequest, *midi.EventList) (clip.SupplyResponse, error) {
	return clip.SupplyResponse{}, clip.ErrNotMidi
}

// ReleaseNotes does nothing.
func (a *Audio) ReleaseNotes(int, *midi.EventList) {}

// ChannelCount returns number of channels of material.
func (a *Audio) ChannelCount() int {
	return a.material.ChannelCount()
}

// MaterialInfo returns geometry of material.
func (a *Audio) MaterialInfo() (clip.MaterialInfo, error) {
	return clip.MaterialInfo{
		ChannelCount: a.material.ChannelCount(),
		FrameCount:   a.material.FrameCount(),
		FrameRate:    a.material.frameRate,
	}, nil
}

// FrameRate returns native frame rate.
func (a *Audio) FrameRate() (float64, bool) {
	return a.material.frameRate, true
}

// FrameCount returns number of frames of material.
func (a *Audio) FrameCount() int {
	return a.material.FrameCount()
}

// Duration returns length of material.
func (a *Audio) Duration() time.Duration {
	return a.material.Duration()
}
