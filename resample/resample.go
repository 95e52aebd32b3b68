// Package resample converts frame rate of supplied material. It's also used
// to change tempo, in that case pitch follows tempo.
package resample

import (
	"errors"
	"math"
	"time"

	"github.com/faiface/beep"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

const (
	requester = "resampler"
	// blockSize is number of frames pulled from the inner supplier at once.
	blockSize = 128
	// engineBlock is number of frames converted per engine call.
	engineBlock = 1024
	// DefaultQuality is a good trade-off between speed and quality.
	DefaultQuality = 4
)

// ErrInvalidQuality is returned when quality is outside of [1, 64].
var ErrInvalidQuality = errors.New("resample quality must be between 1 and 64")

// Resampler reconciles frame rate of the inner supplier with the rate of the
// destination block.
type Resampler struct {
	supplier                     clip.Supplier
	enabled                      bool
	tempoFactor                  float64
	responsibleForTimeStretching bool
	quality                      int
	channels                     int

	engine *beep.Resampler
	feed   feeder
	out    [][2]float64
	ratio  float64
	seeded bool
	// seedStart is the start frame the engine was seeded with.
	seedStart int
	// logical is the exact source position relative to seedStart.
	logical float64
	// reported is the rounded sum of reported consumed frames.
	reported int
}

// New returns enabled resampler. Only mono and stereo audio is supported.
func New(s clip.Supplier, quality int) (*Resampler, error) {
	if quality < 1 || quality > 64 {
		return nil, ErrInvalidQuality
	}
	channels := s.ChannelCount()
	if channels > 2 {
		return nil, clip.ErrUnsupportedChannelCount
	}
	scratchChannels := channels
	if scratchChannels == 0 {
		scratchChannels = 1
	}
	return &Resampler{
		supplier:    s,
		enabled:     true,
		tempoFactor: 1,
		quality:     quality,
		channels:    channels,
		feed: feeder{
			supplier: s,
			channels: channels,
			scratch:  signal.NewBuffer(scratchChannels, blockSize),
		},
		out: make([][2]float64, engineBlock),
	}, nil
}

// Supplier returns the inner supplier.
func (r *Resampler) Supplier() clip.Supplier {
	return r.supplier
}

// SetEnabled toggles resampling.
func (r *Resampler) SetEnabled(enabled bool) {
	r.enabled = enabled
	if !enabled {
		r.seeded = false
	}
}

// SetTempoFactor sets tempo factor applied to MIDI and, if the resampler is
// responsible for time stretching, to audio.
func (r *Resampler) SetTempoFactor(f float64) {
	r.tempoFactor = math.Max(f, clip.MinTempoFactor)
}

// TempoFactor returns current tempo factor.
func (r *Resampler) TempoFactor() float64 {
	return r.tempoFactor
}

// SetResponsibleForAudioTimeStretching enables vari-speed mode.
func (r *Resampler) SetResponsibleForAudioTimeStretching(responsible bool) {
	r.responsibleForTimeStretching = responsible
}

// Reset drops engine state. Next supply call seeds the engine again.
func (r *Resampler) Reset() {
	r.seeded = false
}

// Prepare seeds the engine for the request which starts at startFrame. It
// allocates, so it should be called outside of the real-time path before
// playback starts or after seek.
func (r *Resampler) Prepare(startFrame int, destSampleRate float64) error {
	sourceRate, ok := r.supplier.FrameRate()
	if !ok {
		return clip.ErrInvalidFrameRate
	}
	destRate := r.audioDestRate(destSampleRate)
	if destRate <= 0 {
		return clip.ErrInvalidFrameRate
	}
	r.seed(startFrame, sourceRate/destRate)
	return nil
}

func (r *Resampler) audioDestRate(destSampleRate float64) float64 {
	if r.responsibleForTimeStretching {
		return destSampleRate / r.tempoFactor
	}
	return destSampleRate
}

func (r *Resampler) seed(startFrame int, ratio float64) {
	r.feed.reset(startFrame)
	r.engine = beep.ResampleRatio(r.quality, ratio, &r.feed)
	r.ratio = ratio
	r.seeded = true
	r.seedStart = startFrame
	r.logical = 0
	r.reported = 0
}

// advance moves the logical source position and returns consumed frames.
func (r *Resampler) advance(written int, ratio float64) int {
	r.logical += float64(written) * ratio
	next := int(math.Round(r.logical))
	consumed := next - r.reported
	r.reported = next
	return consumed
}

// SupplyAudio implements clip.AudioSupplier. Non-contiguous start frame
// seeds the engine again, which allocates.
func (r *Resampler) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	sourceRate, ok := r.supplier.FrameRate()
	if !r.enabled || !ok {
		r.seeded = false
		return r.supplier.SupplyAudio(req, dest)
	}
	destRate := r.audioDestRate(req.DestSampleRate)
	if destRate <= 0 {
		return clip.SupplyResponse{}, clip.ErrInvalidFrameRate
	}
	if sourceRate == destRate {
		r.seeded = false
		return r.supplier.SupplyAudio(req, dest)
	}
	if dest.ChannelCount() != r.channels {
		return clip.SupplyResponse{}, clip.ErrUnsupportedChannelCount
	}
	ratio := sourceRate / destRate
	if !r.seeded || req.StartFrame != r.seedStart+r.reported {
		r.seed(req.StartFrame, ratio)
	} else if ratio != r.ratio {
		r.engine.SetRatio(ratio)
		r.ratio = ratio
	}
	r.feed.req = req
	r.feed.req.DestSampleRate = sourceRate
	r.feed.req.Info = req.Info.Derive(requester, 0)

	written := 0
	for written < dest.FrameCount() {
		chunk := r.out
		if rest := dest.FrameCount() - written; rest < len(chunk) {
			chunk = chunk[:rest]
		}
		n, ok := r.engine.Stream(chunk)
		for i := 0; i < n; i++ {
			dest.SetSample(written+i, 0, chunk[i][0])
			if r.channels == 2 {
				dest.SetSample(written+i, 1, chunk[i][1])
			}
		}
		written += n
		if !ok || n == 0 {
			break
		}
	}
	if r.feed.err != nil {
		r.seeded = false
		return clip.SupplyResponse{}, r.feed.err
	}
	consumed := r.advance(written, ratio)
	if written < dest.FrameCount() {
		dest.SliceFrom(written).Clear()
		return clip.ReachedEnd(consumed, written), nil
	}
	return clip.PleaseContinue(consumed), nil
}

// SupplyMidi implements clip.MidiSupplier. The inner request is issued at
// clip.MidiFrameRate, frame offsets of added events are scaled back to
// destination frames.
func (r *Resampler) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	if !r.enabled || req.DestSampleRate == clip.MidiFrameRate {
		return r.supplier.SupplyMidi(req, events)
	}
	if req.DestSampleRate <= 0 {
		return clip.SupplyResponse{}, clip.ErrInvalidFrameRate
	}
	destFrames := req.DestFrameCount
	toConsume := clip.AdjustProportionally(clip.MidiFrameRate, float64(destFrames)/req.DestSampleRate*r.tempoFactor)
	if toConsume <= 0 {
		return clip.PleaseContinue(0), nil
	}
	inner := req
	inner.DestFrameCount = toConsume
	inner.DestSampleRate = clip.MidiFrameRate
	inner.Info = req.Info.Derive(requester, 0)
	first := events.Len()
	res, err := r.supplier.SupplyMidi(inner, events)
	if err != nil {
		return clip.SupplyResponse{}, err
	}
	added := events.Events()[first:]
	for i := range added {
		offset := added[i].FrameOffset * destFrames / toConsume
		if offset >= destFrames {
			offset = destFrames - 1
		}
		added[i].FrameOffset = offset
	}
	if !res.Status.ReachedEnd {
		return res, nil
	}
	written := clip.AdjustProportionally(float64(res.Status.NumFramesWritten), float64(destFrames)/float64(toConsume))
	if written > destFrames {
		written = destFrames
	}
	return clip.ReachedEnd(res.NumFramesConsumed, written), nil
}

// ReleaseNotes delegates to the inner supplier.
func (r *Resampler) ReleaseNotes(frameOffset int, events *midi.EventList) {
	r.supplier.ReleaseNotes(frameOffset, events)
}

// ChannelCount delegates to the inner supplier.
func (r *Resampler) ChannelCount() int {
	return r.channels
}

// MaterialInfo delegates to the inner supplier.
func (r *Resampler) MaterialInfo() (clip.MaterialInfo, error) {
	return r.supplier.MaterialInfo()
}

// FrameRate delegates to the inner supplier.
func (r *Resampler) FrameRate() (float64, bool) {
	return r.supplier.FrameRate()
}

// FrameCount delegates to the inner supplier.
func (r *Resampler) FrameCount() int {
	return r.supplier.FrameCount()
}

// Duration delegates to the inner supplier.
func (r *Resampler) Duration() time.Duration {
	return r.supplier.Duration()
}

// feeder streams inner material into the engine. It has its own cursor
// because the engine reads ahead.
type feeder struct {
	supplier clip.Supplier
	channels int
	req      clip.SupplyAudioRequest
	cursor   int
	scratch  signal.Buffer
	pending  signal.Buffer
	ended    bool
	err      error
}

func (f *feeder) reset(cursor int) {
	f.cursor = cursor
	f.pending = signal.Buffer{}
	f.ended = false
	f.err = nil
}

func (f *feeder) pull() {
	req := f.req
	req.StartFrame = f.cursor
	res, err := f.supplier.SupplyAudio(req, f.scratch)
	if err != nil {
		f.err = err
		return
	}
	n := f.scratch.FrameCount()
	if res.Status.ReachedEnd {
		n = res.Status.NumFramesWritten
		f.ended = true
	}
	f.cursor += res.NumFramesConsumed
	f.pending = f.scratch.Slice(0, n)
}

// Stream implements beep.Streamer. Mono is duplicated into both channels.
func (f *feeder) Stream(samples [][2]float64) (int, bool) {
	n := 0
	for n < len(samples) {
		if f.pending.FrameCount() == 0 {
			if f.ended || f.err != nil {
				break
			}
			f.pull()
			if f.pending.FrameCount() == 0 {
				break
			}
		}
		k := f.pending.FrameCount()
		if rest := len(samples) - n; rest < k {
			k = rest
		}
		for i := 0; i < k; i++ {
			left := f.pending.Sample(i, 0)
			right := left
			if f.channels == 2 {
				right = f.pending.Sample(i, 1)
			}
			samples[n+i] = [2]float64{left, right}
		}
		f.pending = f.pending.SliceFrom(k)
		n += k
	}
	return n, n > 0
}

// Err implements beep.Streamer.
func (f *feeder) Err() error {
	return f.err
}
