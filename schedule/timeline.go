package schedule

// beatsPerBar assumes 4/4 time signature.
const beatsPerBar = 4

// Timeline maps seconds to bars.
type Timeline interface {
	// CursorPos returns current position in seconds.
	CursorPos() float64
	// NextQuantizedPosAt returns the closest quantized position at or after pos.
	NextQuantizedPosAt(pos float64, q EvenQuantization) QuantizedPosition
	// PosOfQuantizedPos returns position in seconds.
	PosOfQuantizedPos(q QuantizedPosition) float64
	// TempoAt returns tempo in BPM.
	TempoAt(pos float64) float64
	IsRunning() bool
}

// Moment is a snapshot of the timeline.
type Moment struct {
	CursorPos float64
	Tempo     float64
	NextBar   int
}

// CaptureMoment returns the current moment of timeline.
func CaptureMoment(t Timeline) Moment {
	pos := t.CursorPos()
	return Moment{
		CursorPos: pos,
		Tempo:     t.TempoAt(pos),
		NextBar:   NextBarAt(t, pos),
	}
}

// NextBarAt returns the bar at or after pos.
func NextBarAt(t Timeline, pos float64) int {
	return int(t.NextQuantizedPosAt(pos, OneBar).Position)
}

// PosOfBar returns position of bar in seconds.
func PosOfBar(t Timeline, bar int) float64 {
	return t.PosOfQuantizedPos(Bar(int64(bar)))
}

func barsPerSecond(tempo float64) float64 {
	return tempo / 60 / beatsPerBar
}

// ConstantTempoTimeline has a fixed tempo and cursor moved explicitly. It's
// used for offline rendering.
type ConstantTempoTimeline struct {
	tempo   float64
	cursor  float64
	stopped bool
}

// NewConstantTempoTimeline returns running timeline at zero.
func NewConstantTempoTimeline(tempo float64) *ConstantTempoTimeline {
	return &ConstantTempoTimeline{tempo: tempo}
}

// SetCursorPos moves cursor to pos in seconds.
func (t *ConstantTempoTimeline) SetCursorPos(pos float64) {
	t.cursor = pos
}

// Advance moves cursor by frames at frame rate.
func (t *ConstantTempoTimeline) Advance(frames int, frameRate float64) {
	if frameRate > 0 {
		t.cursor += float64(frames) / frameRate
	}
}

// SetRunning starts or stops timeline.
func (t *ConstantTempoTimeline) SetRunning(running bool) {
	t.stopped = !running
}

// CursorPos implements Timeline.
func (t *ConstantTempoTimeline) CursorPos() float64 {
	return t.cursor
}

// NextQuantizedPosAt implements Timeline.
func (t *ConstantTempoTimeline) NextQuantizedPosAt(pos float64, q EvenQuantization) QuantizedPosition {
	bar := pos * barsPerSecond(t.tempo)
	return QuantizeAccuratePos(bar*float64(q.Denominator), q)
}

// PosOfQuantizedPos implements Timeline.
func (t *ConstantTempoTimeline) PosOfQuantizedPos(q QuantizedPosition) float64 {
	return q.Bars() / barsPerSecond(t.tempo)
}

// TempoAt implements Timeline.
func (t *ConstantTempoTimeline) TempoAt(float64) float64 {
	return t.tempo
}

// IsRunning implements Timeline.
func (t *ConstantTempoTimeline) IsRunning() bool {
	return !t.stopped
}
