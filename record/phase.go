package record

import (
	"math"
	"time"

	"github.com/dudk/clip"
	"github.com/dudk/clip/schedule"
)

// Timing defines when recording starts and ends.
type Timing struct {
	// Synced recording starts at Start and is aligned to the timeline.
	Synced bool
	Start  schedule.QuantizedPosition
	// HasEnd is true if the recording ends at End automatically.
	HasEnd bool
	End    schedule.QuantizedPosition
}

// Unsynced returns timing of recording which starts immediately.
func Unsynced() Timing {
	return Timing{}
}

// ResolveSynced returns timing starting at the next start quantization
// after cursor. If length is not nil, the end is length after the start.
func ResolveSynced(t schedule.Timeline, cursorPos float64, start schedule.EvenQuantization, length *schedule.EvenQuantization) Timing {
	timing := Timing{
		Synced: true,
		Start:  t.NextQuantizedPosAt(cursorPos, start),
	}
	if length != nil && length.Denominator > 0 {
		startInLengthUnits := math.Floor(timing.Start.Bars()*float64(length.Denominator) + schedule.Epsilon)
		timing.HasEnd = true
		timing.End = schedule.QuantizedPosition{
			Position:    int64(startInLengthUnits) + int64(length.Numerator),
			Denominator: length.Denominator,
		}
	}
	return timing
}

// Outcome describes committed recording.
type Outcome struct {
	FrameRate float64
	Tempo     float64
	IsMidi    bool
	// SourceDuration is duration of the recorded material.
	SourceDuration    time.Duration
	SectionStartFrame int
	// SectionFrameCount is set if the end was scheduled.
	SectionFrameCount       int
	HasSectionFrameCount    bool
	NormalizedDownbeatFrame int
	// EffectiveDuration is duration of the section if there is one,
	// otherwise duration of the source.
	EffectiveDuration time.Duration
}

type phaseKind int

const (
	// frame rate isn't known yet, audio only.
	phaseEmpty phaseKind = iota
	// frame rate and source start position are known.
	phaseOpenEnd
	// section frame count is known.
	phaseEndScheduled
	phaseCommitted
)

type snapshot struct {
	normalizedDownbeatFrame int
	nonNormalizedDownbeat   time.Duration
	sectionStartFrame       int
}

type phase struct {
	kind   phaseKind
	tempo  float64
	timing Timing
	isMidi bool

	sourceStartPos    float64
	frameRate         float64
	firstPlayFrame    int
	hasFirstPlayFrame bool

	sectionFrameCount int
	snapshot          snapshot
	effectiveDuration time.Duration
}

func initialPhase(timing Timing, tempo float64, isMidi bool, triggerPos float64, t schedule.Timeline) (phase, error) {
	p := phase{
		kind:   phaseEmpty,
		tempo:  tempo,
		timing: timing,
		isMidi: isMidi,
	}
	// MIDI starts with open end, frame rate is known from the start.
	if isMidi {
		return p.advance(triggerPos, clip.MidiFrameRate, t)
	}
	return p, nil
}

// midiTempoFactor conforms positions measured in recording tempo to the
// normalized MIDI tempo.
func (p *phase) midiTempoFactor() float64 {
	return p.tempo / clip.MidiBaseBpm
}

func (p phase) advance(sourceStartPos, frameRate float64, t schedule.Timeline) (phase, error) {
	p.kind = phaseOpenEnd
	p.sourceStartPos = sourceStartPos
	p.frameRate = frameRate
	if p.timing.Synced && p.timing.HasEnd {
		return p.scheduleEnd(p.timing.End, t)
	}
	return p, nil
}

func (p phase) scheduleEnd(end schedule.QuantizedPosition, t schedule.Timeline) (phase, error) {
	switch p.kind {
	case phaseEmpty:
		return p, clip.ErrNoMaterial
	case phaseEndScheduled, phaseCommitted:
		return p, nil
	}
	if !p.timing.Synced {
		return p, ErrNotSynced
	}
	duration := t.PosOfQuantizedPos(end) - t.PosOfQuantizedPos(p.timing.Start)
	if duration < 0 {
		return p, clip.ErrInvalidBounds
	}
	if p.isMidi {
		duration *= p.midiTempoFactor()
	}
	p.kind = phaseEndScheduled
	p.sectionFrameCount = clip.ConvertPositionToFrames(duration, p.frameRate)
	p.snapshot = p.takeSnapshot(t)
	p.effectiveDuration = secondsToDuration(duration)
	return p, nil
}

func (p *phase) takeSnapshot(t schedule.Timeline) snapshot {
	if !p.timing.Synced {
		return snapshot{}
	}
	// negative start means recording started after the quantized start
	startPos := math.Max(t.PosOfQuantizedPos(p.timing.Start)-p.sourceStartPos, 0)
	firstPlayFrame := p.firstPlayFrame
	if p.isMidi {
		startPos *= p.midiTempoFactor()
		firstPlayFrame = clip.AdjustProportionally(float64(firstPlayFrame), p.midiTempoFactor())
	}
	startFrame := clip.ConvertPositionToFrames(startPos, p.frameRate)
	if !p.hasFirstPlayFrame || firstPlayFrame >= startFrame {
		return snapshot{sectionStartFrame: startFrame}
	}
	// material played during count-in, so downbeat isn't at zero
	downbeat := startFrame - firstPlayFrame
	nonNormalized := downbeat
	if p.isMidi {
		nonNormalized = clip.AdjustAntiProportionally(float64(downbeat), p.midiTempoFactor())
	}
	return snapshot{
		normalizedDownbeatFrame: downbeat,
		nonNormalizedDownbeat:   clip.ConvertFramesToDuration(nonNormalized, p.frameRate),
		sectionStartFrame:       firstPlayFrame,
	}
}

func (p *phase) commit(sourceDuration time.Duration, t schedule.Timeline) (Outcome, error) {
	o := Outcome{
		FrameRate:      p.frameRate,
		Tempo:          p.tempo,
		IsMidi:         p.isMidi,
		SourceDuration: sourceDuration,
	}
	switch p.kind {
	case phaseEmpty:
		return Outcome{}, clip.ErrNoMaterial
	case phaseCommitted:
		return Outcome{}, ErrAlreadyCommitted
	case phaseOpenEnd:
		s := p.takeSnapshot(t)
		o.SectionStartFrame = s.sectionStartFrame
		o.NormalizedDownbeatFrame = s.normalizedDownbeatFrame
		o.EffectiveDuration = sourceDuration
	case phaseEndScheduled:
		o.SectionStartFrame = p.snapshot.sectionStartFrame
		o.NormalizedDownbeatFrame = p.snapshot.normalizedDownbeatFrame
		o.SectionFrameCount = p.sectionFrameCount
		o.HasSectionFrameCount = true
		o.EffectiveDuration = p.effectiveDuration
	}
	p.kind = phaseCommitted
	return o, nil
}

// downbeatPos returns position of the downbeat in recording tempo.
func (p *phase) downbeatPos(t schedule.Timeline) time.Duration {
	switch p.kind {
	case phaseOpenEnd:
		return p.takeSnapshot(t).nonNormalizedDownbeat
	case phaseEndScheduled:
		return p.snapshot.nonNormalizedDownbeat
	}
	return 0
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
