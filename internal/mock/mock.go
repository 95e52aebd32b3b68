// Package mock provides mocks of supply chain stages and allows to test
// stages in isolation.
package mock

import (
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

// TimedMessage is a MIDI message positioned in material frames.
type TimedMessage struct {
	Frame   int
	Message midi.Message
}

// Supplier mocks a clip.Supplier. Audio material has Limit frames, every
// sample equals Value or, if Ramp is set, the material frame index.
type Supplier struct {
	counter
	Limit       int
	Value       float64
	Ramp        bool
	NumChannels int
	Rate        float64
	Midi        bool
	Messages    []TimedMessage
	ErrorOnCall error

	// StartFrames records start frames of inner material requests.
	StartFrames []int
	// Released counts ReleaseNotes calls.
	Released int
}

// SupplyAudio implements clip.AudioSupplier.
func (m *Supplier) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	if m.ErrorOnCall != nil {
		return clip.SupplyResponse{}, m.ErrorOnCall
	}
	if m.Midi {
		return clip.SupplyResponse{}, clip.ErrNotAudio
	}
	res := clip.SupplyAudioMaterial(req, dest, func(r clip.SourceMaterialRequest) clip.SupplyResponse {
		m.StartFrames = append(m.StartFrames, r.StartFrame)
		written := m.Limit - r.StartFrame
		if written > r.Dest.FrameCount() {
			written = r.Dest.FrameCount()
		}
		if written <= 0 {
			r.Dest.Clear()
			return clip.ExceededEnd()
		}
		r.Dest.ModifyFrames(func(frame, channel int, _ float64) float64 {
			if frame >= written {
				return 0
			}
			return m.value(r.StartFrame + frame)
		})
		return clip.LimitedByTotalFrameCount(written, written, r.StartFrame, m.Limit)
	})
	m.advance(dest.FrameCount())
	return res, nil
}

func (m *Supplier) value(frame int) float64 {
	if m.Ramp {
		return float64(frame)
	}
	return m.Value
}

// SupplyMidi implements clip.MidiSupplier.
func (m *Supplier) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	if m.ErrorOnCall != nil {
		return clip.SupplyResponse{}, m.ErrorOnCall
	}
	if !m.Midi {
		return clip.SupplyResponse{}, clip.ErrNotMidi
	}
	res := clip.SupplyMidiMaterial(req, func(r clip.MidiMaterialRequest) clip.SupplyResponse {
		m.StartFrames = append(m.StartFrames, r.StartFrame)
		if rest := m.Limit - r.StartFrame; rest < r.DestFrameCount {
			if rest <= 0 {
				return clip.ExceededEnd()
			}
			r.DestFrameCount = rest
		}
		end := r.StartFrame + r.DestFrameCount
		for _, msg := range m.Messages {
			if msg.Frame >= r.StartFrame && msg.Frame < end {
				events.Add(midi.Event{
					FrameOffset: msg.Frame - r.StartFrame + r.DestFrameOffset,
					Message:     msg.Message,
				})
			}
		}
		return clip.LimitedByTotalFrameCount(r.DestFrameCount, r.DestFrameCount, r.StartFrame, m.Limit)
	})
	m.advance(req.DestFrameCount)
	return res, nil
}

// ReleaseNotes implements clip.MidiSupplier.
func (m *Supplier) ReleaseNotes(int, *midi.EventList) {
	m.Released++
}

// ChannelCount implements clip.AudioSupplier.
func (m *Supplier) ChannelCount() int {
	return m.NumChannels
}

// MaterialInfo implements clip.WithMaterialInfo.
func (m *Supplier) MaterialInfo() (clip.MaterialInfo, error) {
	if m.Midi {
		return clip.MaterialInfo{IsMidi: true, FrameCount: m.Limit, FrameRate: clip.MidiFrameRate}, nil
	}
	return clip.MaterialInfo{
		ChannelCount: m.NumChannels,
		FrameCount:   m.Limit,
		FrameRate:    m.Rate,
	}, nil
}

// FrameRate implements clip.WithMaterialInfo.
func (m *Supplier) FrameRate() (float64, bool) {
	if m.Midi {
		return clip.MidiFrameRate, true
	}
	return m.Rate, m.Rate > 0
}

// FrameCount implements clip.WithMaterialInfo.
func (m *Supplier) FrameCount() int {
	return m.Limit
}

// Duration implements clip.WithMaterialInfo.
func (m *Supplier) Duration() time.Duration {
	info, _ := m.MaterialInfo()
	return info.Duration()
}

// Reset resets counters and recorded requests.
func (m *Supplier) Reset() {
	m.reset()
	m.StartFrames = nil
	m.Released = 0
}

// counter counts calls and frames.
type counter struct {
	calls  int
	frames int
}

// advance counter's metrics.
func (c *counter) advance(size int) {
	c.calls++
	c.frames += size
}

func (c *counter) reset() {
	c.calls, c.frames = 0, 0
}

// Count returns calls and frames metrics.
func (c *counter) Count() (int, int) {
	return c.calls, c.frames
}
