// Package source provides leaf suppliers of the supply chain. It allows to:
//	- hold decoded audio material in memory and share it between voices
//	- decode wav and mp3 files into material
//	- play MIDI sequences at a fixed nominal tempo
package source

import (
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/signal"
)

// Material is decoded audio. It's immutable after construction and can be
// shared by any number of suppliers.
type Material struct {
	samples   signal.Buffer
	frameRate float64
}

// NewMaterial wraps decoded samples. The buffer must not be modified after
// this call.
func NewMaterial(samples signal.Buffer, frameRate float64) (*Material, error) {
	if frameRate <= 0 {
		return nil, clip.ErrInvalidFrameRate
	}
	if samples.ChannelCount() == 0 {
		return nil, clip.ErrNoMaterial
	}
	return &Material{
		samples:   samples,
		frameRate: frameRate,
	}, nil
}

// Samples returns a read-only view of material.
func (m *Material) Samples() signal.Buffer {
	return m.samples
}

// FrameRate returns native frame rate.
func (m *Material) FrameRate() float64 {
	return m.frameRate
}

// FrameCount returns number of frames.
func (m *Material) FrameCount() int {
	return m.samples.FrameCount()
}

// ChannelCount returns number of channels.
func (m *Material) ChannelCount() int {
	return m.samples.ChannelCount()
}

// Duration returns length of material.
func (m *Material) Duration() time.Duration {
	return clip.ConvertFramesToDuration(m.FrameCount(), m.frameRate)
}
