// Package stretch changes tempo of audio material without changing its pitch.
//
// Stretcher grows internal buffers of its engine on first use and on tempo
// changes. Call Prepare before playback to keep allocations off the
// real-time path; after that allocation is amortized. MIDI passes through
// unmodified, MIDI tempo is handled by the resampler.
package stretch

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

const (
	requester = "time-stretcher"
	blockSize = 128
)

// Stretcher is a supply stage which changes tempo by the tempo factor.
type Stretcher struct {
	supplier    clip.Supplier
	enabled     bool
	tempoFactor float64
	channels    int

	stream  *picola
	scratch signal.Buffer

	seeded     bool
	seedStart  int
	cursor     int
	innerEnded bool
	flushed    bool
	logical    float64
	reported   int
}

// New returns enabled stretcher with tempo factor 1.
func New(s clip.Supplier) (*Stretcher, error) {
	channels := s.ChannelCount()
	if channels < 0 {
		return nil, clip.ErrUnsupportedChannelCount
	}
	st := Stretcher{
		supplier:    s,
		enabled:     true,
		tempoFactor: 1,
		channels:    channels,
	}
	if channels > 0 {
		st.scratch = signal.NewBuffer(channels, blockSize)
	}
	if rate, ok := s.FrameRate(); ok && channels > 0 {
		if err := st.createStream(rate); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

func (s *Stretcher) createStream(rate float64) error {
	if rate <= 0 {
		return errors.Wrapf(clip.ErrInvalidFrameRate, "time stretch at %v", rate)
	}
	s.stream = newPicola(int(math.Round(rate)), s.channels)
	return nil
}

// Supplier returns the inner supplier.
func (s *Stretcher) Supplier() clip.Supplier {
	return s.supplier
}

// SetEnabled toggles time stretching.
func (s *Stretcher) SetEnabled(enabled bool) {
	s.enabled = enabled
	if !enabled {
		s.seeded = false
	}
}

// SetTempoFactor sets stretch factor. Factor 2 plays twice as fast.
func (s *Stretcher) SetTempoFactor(f float64) {
	s.tempoFactor = math.Max(f, clip.MinTempoFactor)
}

// TempoFactor returns current tempo factor.
func (s *Stretcher) TempoFactor() float64 {
	return s.tempoFactor
}

// Reset drops buffered material. Next supply call starts over.
func (s *Stretcher) Reset() {
	s.seeded = false
}

// Prepare creates the stretch engine if the frame rate wasn't known at
// construction and seeds it at startFrame.
func (s *Stretcher) Prepare(startFrame int) error {
	if s.channels == 0 {
		return nil
	}
	if s.stream == nil {
		rate, ok := s.supplier.FrameRate()
		if !ok {
			return clip.ErrInvalidFrameRate
		}
		if err := s.createStream(rate); err != nil {
			return err
		}
	}
	s.seed(startFrame)
	return nil
}

func (s *Stretcher) seed(startFrame int) {
	s.stream.reset()
	s.seeded = true
	s.seedStart = startFrame
	s.cursor = startFrame
	s.innerEnded = false
	s.flushed = false
	s.logical = 0
	s.reported = 0
}

func (s *Stretcher) bypass() bool {
	return !s.enabled || s.tempoFactor == 1 || s.stream == nil
}

// SupplyAudio implements clip.AudioSupplier.
func (s *Stretcher) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	if s.bypass() {
		s.seeded = false
		return s.supplier.SupplyAudio(req, dest)
	}
	if dest.ChannelCount() != s.channels {
		return clip.SupplyResponse{}, clip.ErrUnsupportedChannelCount
	}
	if !s.seeded || req.StartFrame != s.seedStart+s.reported {
		s.seed(req.StartFrame)
	}
	s.stream.setSpeed(s.tempoFactor)

	destFrames := dest.FrameCount()
	data := dest.Data()
	written := 0
	for written < destFrames {
		if s.stream.available() == 0 {
			if s.flushed {
				break
			}
			if s.innerEnded {
				s.stream.flush()
				s.flushed = true
				continue
			}
			if err := s.feed(req); err != nil {
				s.seeded = false
				return clip.SupplyResponse{}, err
			}
			continue
		}
		written += s.stream.read(data[written*s.channels:])
	}

	s.logical += float64(written) * s.tempoFactor
	next := int(math.Round(s.logical))
	consumed := next - s.reported
	s.reported = next
	if written < destFrames {
		dest.SliceFrom(written).Clear()
		return clip.ReachedEnd(consumed, written), nil
	}
	return clip.PleaseContinue(consumed), nil
}

// feed pulls one block from the inner supplier into the stretch engine.
func (s *Stretcher) feed(req clip.SupplyAudioRequest) error {
	inner := req
	inner.StartFrame = s.cursor
	inner.Info = req.Info.Derive(requester, 0)
	res, err := s.supplier.SupplyAudio(inner, s.scratch)
	if err != nil {
		return err
	}
	n := s.scratch.FrameCount()
	if res.Status.ReachedEnd {
		n = res.Status.NumFramesWritten
		s.innerEnded = true
	}
	s.cursor += res.NumFramesConsumed
	if n > 0 {
		s.stream.write(s.scratch.Slice(0, n).Data())
	}
	return nil
}

// SupplyMidi delegates to the inner supplier.
func (s *Stretcher) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	return s.supplier.SupplyMidi(req, events)
}

// ReleaseNotes delegates to the inner supplier.
func (s *Stretcher) ReleaseNotes(frameOffset int, events *midi.EventList) {
	s.supplier.ReleaseNotes(frameOffset, events)
}

// ChannelCount returns the number of channels of the inner supplier.
func (s *Stretcher) ChannelCount() int {
	return s.channels
}

// MaterialInfo delegates to the inner supplier.
func (s *Stretcher) MaterialInfo() (clip.MaterialInfo, error) {
	return s.supplier.MaterialInfo()
}

// FrameRate delegates to the inner supplier.
func (s *Stretcher) FrameRate() (float64, bool) {
	return s.supplier.FrameRate()
}

// FrameCount delegates to the inner supplier.
func (s *Stretcher) FrameCount() int {
	return s.supplier.FrameCount()
}

// Duration delegates to the inner supplier.
func (s *Stretcher) Duration() time.Duration {
	return s.supplier.Duration()
}
