// Package schedule converts timeline positions into count-in frames.
//
// Count-in is relative: once computed, every supply call advances it by the
// consumed frames, so tempo changes during count-in are respected and the
// clip still starts on the scheduled bar.
package schedule

import (
	"math"

	"github.com/dudk/clip"
)

// Equipment is everything needed to compute distance to a quantized
// position.
type Equipment struct {
	Timeline        Timeline
	CursorPos       float64
	BlockLength     int
	OutputFrameRate float64
	ClipTempoFactor float64
	SourceFrameRate float64
}

// NewAudioEquipment returns equipment for audio material at source rate.
func NewAudioEquipment(t Timeline, cursorPos float64, blockLength int, outputRate, sourceRate, tempoFactor float64) Equipment {
	return Equipment{
		Timeline:        t,
		CursorPos:       cursorPos,
		BlockLength:     blockLength,
		OutputFrameRate: outputRate,
		ClipTempoFactor: tempoFactor,
		SourceFrameRate: sourceRate,
	}
}

// NewMidiEquipment returns equipment for MIDI material. MIDI is normalized
// to clip.MidiBaseBpm, so the tempo factor follows the timeline tempo.
func NewMidiEquipment(t Timeline, cursorPos, timelineTempo float64, blockLength int, outputRate float64) Equipment {
	return Equipment{
		Timeline:        t,
		CursorPos:       cursorPos,
		BlockLength:     blockLength,
		OutputFrameRate: outputRate,
		ClipTempoFactor: timelineTempo / clip.MidiBaseBpm,
		SourceFrameRate: clip.MidiFrameRate,
	}
}

// CalcDistanceFromQuantizedPos returns signed distance in source frames
// from quantized position to the cursor. Negative value is count-in.
func CalcDistanceFromQuantizedPos(q QuantizedPosition, eq Equipment) int {
	return CalcDistanceFromPos(eq.Timeline.PosOfQuantizedPos(q), eq)
}

// CalcDistanceFromPos returns signed distance in source frames from pos to
// the cursor.
func CalcDistanceFromPos(pos float64, eq Equipment) int {
	rel := eq.CursorPos - pos
	frames := clip.ConvertPositionToFrames(rel, eq.SourceFrameRate)
	blockLength := clip.ConvertFramesToOtherRate(eq.BlockLength, eq.OutputFrameRate, eq.SourceFrameRate)
	return AdjustProportionallyInBlocks(frames, eq.ClipTempoFactor, blockLength)
}

// AdjustProportionallyInBlocks applies factor the way playback does: once
// per block and once for the remainder. Playback rounds the accumulated
// position, not every block, so the result stays within one frame of
// value*factor for any block length.
func AdjustProportionallyInBlocks(value int, factor float64, blockLength int) int {
	sign := 1
	if value < 0 {
		sign = -1
		value = -value
	}
	if blockLength <= 0 {
		return sign * clip.AdjustProportionally(float64(value), factor)
	}
	var logical float64
	for rest := value; rest > 0; rest -= blockLength {
		logical += float64(min(rest, blockLength)) * factor
	}
	return sign * int(math.Round(logical))
}

// CalcTempoFactor returns factor to play material recorded at clip tempo
// in timeline tempo.
func CalcTempoFactor(clipTempo, timelineTempo float64) float64 {
	if clipTempo <= 0 {
		return 1
	}
	return math.Max(timelineTempo/clipTempo, clip.MinTempoFactor)
}
