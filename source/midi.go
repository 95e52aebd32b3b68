package source

import (
	"math"
	"sort"
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

// timedMessage is a message positioned in MIDI frames.
type timedMessage struct {
	frame   int
	message midi.Message
}

// Midi supplies events of a sequence. Events are kept in MIDI frames at
// clip.MidiBaseBpm, so the tempo of the timeline never moves them. Tempo
// changes are applied by the resampler upstream.
type Midi struct {
	messages   []timedMessage
	frameCount int
	tracker    midi.NoteTracker
}

// NewMidi converts sequence into a supplier. Muted events are dropped.
// Length is the position of the last event, REAPER chunks end with an
// all-notes-off event at the end of the item.
func NewMidi(s *midi.Sequence) (*Midi, error) {
	if s == nil || s.PPQ <= 0 {
		return nil, clip.ErrNoMaterial
	}
	pulseToFrame := func(pulse int64) int {
		quarters := float64(pulse) / float64(s.PPQ)
		return int(math.Round(quarters * 60 / clip.MidiBaseBpm * clip.MidiFrameRate))
	}
	m := Midi{
		messages: make([]timedMessage, 0, len(s.Events)),
	}
	for _, e := range s.Events {
		if e.Muted {
			continue
		}
		m.messages = append(m.messages, timedMessage{
			frame:   pulseToFrame(e.Pulse),
			message: e.Message,
		})
	}
	sort.SliceStable(m.messages, func(i, j int) bool {
		return m.messages[i].frame < m.messages[j].frame
	})
	m.frameCount = pulseToFrame(s.PulseCount())
	return &m, nil
}

// SupplyMidi adds events of the window which starts at request's start frame
// and spans DestFrameCount frames at DestSampleRate. Frame offsets of added
// events are relative to the window in destination frames. The window is
// cut at the end of material.
func (m *Midi) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	if req.DestSampleRate <= 0 {
		return clip.SupplyResponse{}, clip.ErrInvalidFrameRate
	}
	total := clip.ConvertFramesToOtherRate(m.frameCount, clip.MidiFrameRate, req.DestSampleRate)
	return clip.SupplyMidiMaterial(req, func(r clip.MidiMaterialRequest) clip.SupplyResponse {
		if rest := total - r.StartFrame; rest < r.DestFrameCount {
			if rest <= 0 {
				return clip.ExceededEnd()
			}
			r.DestFrameCount = rest
		}
		m.addWindow(r, events)
		return clip.LimitedByTotalFrameCount(r.DestFrameCount, r.DestFrameCount, r.StartFrame, total)
	}), nil
}

func (m *Midi) addWindow(r clip.MidiMaterialRequest, events *midi.EventList) {
	startSecs := clip.ConvertFramesToPosition(r.StartFrame, r.DestSampleRate)
	endSecs := clip.ConvertFramesToPosition(r.StartFrame+r.DestFrameCount, r.DestSampleRate)
	first := clip.ConvertPositionToFrames(startSecs, clip.MidiFrameRate)
	i := sort.Search(len(m.messages), func(i int) bool {
		return m.messages[i].frame >= first
	})
	for ; i < len(m.messages); i++ {
		secs := clip.ConvertFramesToPosition(m.messages[i].frame, clip.MidiFrameRate)
		if secs >= endSecs {
			break
		}
		offset := clip.ConvertPositionToFrames(secs-startSecs, r.DestSampleRate)
		if offset >= r.DestFrameCount {
			offset = r.DestFrameCount - 1
		}
		msg := m.messages[i].message
		if events.Add(midi.Event{FrameOffset: offset + r.DestFrameOffset, Message: msg}) {
			m.tracker.Update(msg)
		}
	}
}

// ReleaseNotes adds note-offs for every note which is still on.
func (m *Midi) ReleaseNotes(frameOffset int, events *midi.EventList) {
	m.tracker.ReleaseNotes(frameOffset, events)
}

// SupplyAudio always fails, MIDI material has no samples.
func (m *Midi) SupplyAudio(clip.SupplyAudioRequest, signal.Buffer) (clip.SupplyResponse, error) {
	return clip.SupplyResponse{}, clip.ErrNotAudio
}

// ChannelCount is zero for MIDI.
func (m *Midi) ChannelCount() int {
	return 0
}

// MaterialInfo returns geometry of material in MIDI frames.
func (m *Midi) MaterialInfo() (clip.MaterialInfo, error) {
	return clip.MaterialInfo{
		IsMidi:     true,
		FrameCount: m.frameCount,
		FrameRate:  clip.MidiFrameRate,
	}, nil
}

// FrameRate returns clip.MidiFrameRate.
func (m *Midi) FrameRate() (float64, bool) {
	return clip.MidiFrameRate, true
}

// FrameCount returns length in MIDI frames.
func (m *Midi) FrameCount() int {
	return m.frameCount
}

// Duration returns length at clip.MidiBaseBpm.
func (m *Midi) Duration() time.Duration {
	return clip.ConvertFramesToDuration(m.frameCount, clip.MidiFrameRate)
}
