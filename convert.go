package clip

import (
	"math"
	"time"
)

// ConvertDurationToFrames returns number of frames in duration.
func ConvertDurationToFrames(d time.Duration, frameRate float64) int {
	return int(math.Round(d.Seconds() * frameRate))
}

// ConvertFramesToDuration returns duration of frames.
func ConvertFramesToDuration(frames int, frameRate float64) time.Duration {
	if frameRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / frameRate * float64(time.Second))
}

// ConvertPositionToFrames converts signed position in seconds to frames.
func ConvertPositionToFrames(pos, frameRate float64) int {
	return int(math.Round(pos * frameRate))
}

// ConvertFramesToPosition converts signed frame position to seconds.
func ConvertFramesToPosition(frame int, frameRate float64) float64 {
	if frameRate <= 0 {
		return 0
	}
	return float64(frame) / frameRate
}

// ConvertFramesToOtherRate converts number of frames between frame rates.
func ConvertFramesToOtherRate(frames int, from, to float64) int {
	if from == to {
		return frames
	}
	return AdjustProportionally(float64(frames), to/from)
}

// AdjustProportionally multiplies value by factor and rounds.
func AdjustProportionally(value, factor float64) int {
	return int(math.Round(value * factor))
}

// AdjustAntiProportionally divides value by factor and rounds.
func AdjustAntiProportionally(value, factor float64) int {
	return int(math.Round(value / factor))
}
