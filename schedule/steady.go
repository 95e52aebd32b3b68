package schedule

import (
	"math"
	"sync/atomic"
)

// SteadyTimeline is driven by the audio callback. Cursor moves forward in
// real time independent from tempo, bars follow tempo changes fluently.
//
// Update is called by the driver once per block, all other methods are safe
// to call from any goroutine.
type SteadyTimeline struct {
	sampleCount                  atomic.Uint64
	sampleRate                   atomic.Uint64
	tempo                        atomic.Uint64
	barAtLastTempoChange         atomic.Uint64
	sampleCountAtLastTempoChange atomic.Uint64
}

// NewSteadyTimeline returns timeline at zero with minimal rate and tempo.
func NewSteadyTimeline() *SteadyTimeline {
	var t SteadyTimeline
	storeFloat(&t.sampleRate, 1)
	storeFloat(&t.tempo, 1)
	return &t
}

func storeFloat(a *atomic.Uint64, v float64) {
	a.Store(math.Float64bits(v))
}

func loadFloat(a *atomic.Uint64) float64 {
	return math.Float64frombits(a.Load())
}

// SampleCount returns number of frames since start.
func (t *SteadyTimeline) SampleCount() uint64 {
	return t.sampleCount.Load()
}

// SampleRate returns the rate of last update.
func (t *SteadyTimeline) SampleRate() float64 {
	return loadFloat(&t.sampleRate)
}

// Update advances timeline by block length. If tempo changed, the bar
// reached with previous tempo is remembered.
func (t *SteadyTimeline) Update(blockLength int, sampleRate, tempo float64) {
	prevTempo := t.TempoAt(0)
	prevCount := t.sampleCount.Add(uint64(blockLength)) - uint64(blockLength)
	if tempo != prevTempo {
		bar := calcBarAt(
			int64(prevCount),
			int64(t.sampleCountAtLastTempoChange.Load()),
			loadFloat(&t.barAtLastTempoChange),
			prevTempo,
			t.SampleRate(),
		)
		t.sampleCountAtLastTempoChange.Store(prevCount)
		storeFloat(&t.barAtLastTempoChange, bar)
	}
	storeFloat(&t.tempo, tempo)
	storeFloat(&t.sampleRate, sampleRate)
}

func calcBarAt(count, countAtLastChange int64, barAtLastChange, tempo, rate float64) float64 {
	secs := float64(count-countAtLastChange) / rate
	return barAtLastChange + secs*barsPerSecond(tempo)
}

// CursorPos implements Timeline.
func (t *SteadyTimeline) CursorPos() float64 {
	return float64(t.SampleCount()) / t.SampleRate()
}

// NextQuantizedPosAt implements Timeline. Positions before the last tempo
// change are extrapolated with current tempo.
func (t *SteadyTimeline) NextQuantizedPosAt(pos float64, q EvenQuantization) QuantizedPosition {
	rate := t.SampleRate()
	bar := calcBarAt(
		int64(math.Round(pos*rate)),
		int64(t.sampleCountAtLastTempoChange.Load()),
		loadFloat(&t.barAtLastTempoChange),
		t.TempoAt(pos),
		rate,
	)
	return QuantizeAccuratePos(bar*float64(q.Denominator), q)
}

// PosOfQuantizedPos implements Timeline.
func (t *SteadyTimeline) PosOfQuantizedPos(q QuantizedPosition) float64 {
	secsSinceChange := (q.Bars() - loadFloat(&t.barAtLastTempoChange)) / barsPerSecond(t.TempoAt(0))
	secsAtChange := float64(t.sampleCountAtLastTempoChange.Load()) / t.SampleRate()
	return secsAtChange + secsSinceChange
}

// TempoAt implements Timeline. Tempo is the same at every position.
func (t *SteadyTimeline) TempoAt(float64) float64 {
	return loadFloat(&t.tempo)
}

// IsRunning implements Timeline. Steady timeline never stops.
func (t *SteadyTimeline) IsRunning() bool {
	return true
}
