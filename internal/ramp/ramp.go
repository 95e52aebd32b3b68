// Package ramp applies linear fades to blocks which are part of larger
// audio portions.
package ramp

import "github.com/dudk/clip/signal"

// Length of fades at section bounds and material start or end. It's 5ms at
// 48 kHz.
const Length = 240

type location int

const (
	containingFade location = iota
	leftOfFade
	rightOfFade
)

// FadeInStartingAtZero applies fade-in which starts at frame zero of a
// larger portion. Frames left of zero are muted. blockStart is position of
// the block within the portion.
func FadeInStartingAtZero(block signal.Buffer, blockStart, length int) {
	switch locate(blockStart, block.FrameCount(), length) {
	case containingFade:
		block.ModifyFrames(func(frame, _ int, v float64) float64 {
			return v * fadeInFactor(blockStart+frame, length)
		})
	case leftOfFade:
		block.Clear()
	}
}

// FadeOutEndingAt applies fade-out which ends at frame end of a larger
// portion. Frames right of end are muted.
func FadeOutEndingAt(block signal.Buffer, blockStart, end, length int) {
	FadeOutStartingAtZero(block, blockStart-end+length, length)
}

// FadeOutStartingAtZero applies fade-out which starts at frame zero of a
// larger portion. Frames right of the fade are muted.
func FadeOutStartingAtZero(block signal.Buffer, blockStart, length int) {
	switch locate(blockStart, block.FrameCount(), length) {
	case containingFade:
		block.ModifyFrames(func(frame, _ int, v float64) float64 {
			return v * fadeOutFactor(blockStart+frame, length)
		})
	case rightOfFade:
		block.Clear()
	}
}

func fadeInFactor(frame, length int) float64 {
	switch {
	case frame < 0:
		return 0
	case frame >= length:
		return 1
	}
	return float64(frame) / float64(length)
}

func fadeOutFactor(frame, length int) float64 {
	switch {
	case frame < 0:
		return 1
	case frame >= length:
		return 0
	}
	return float64(length-frame) / float64(length)
}

func locate(blockStart, frames, length int) location {
	if blockStart > length {
		return rightOfFade
	}
	if blockStart+frames < 0 {
		return leftOfFade
	}
	return containingFade
}
