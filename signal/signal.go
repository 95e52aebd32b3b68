// Package signal provides sample storage used by the supply pipeline. It allows to:
// 	- hold interleaved float64 frames in owned or borrowed memory
//	- slice and copy frames without allocation
//	- convert bit depth from and to go-audio int buffers
package signal

import (
	"math"
	"time"

	"github.com/go-audio/audio"
)

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth24:
		return 1<<23 - 2
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// DurationOf returns time duration of passed frames for this frame rate.
func DurationOf(frameRate float64, frames int) time.Duration {
	if frameRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / frameRate * float64(time.Second))
}

// FromIntBuffer converts go-audio int buffer into a new owned buffer. Bit
// depth is taken from the int buffer's source bit depth.
func FromIntBuffer(ib *audio.IntBuffer) Buffer {
	if ib == nil || ib.Format == nil || ib.Format.NumChannels == 0 {
		return Buffer{}
	}
	channels := ib.Format.NumChannels
	b := NewBuffer(channels, len(ib.Data)/channels)
	b.ReadInts(ib.Data, BitDepth(ib.SourceBitDepth))
	return b
}

// ReadInts fills the buffer with interleaved ints scaled to [-1, 1]. Extra
// ints are ignored, missing ones leave samples untouched. Returns the number
// of frames read.
func (b Buffer) ReadInts(ints []int, bitDepth BitDepth) int {
	if b.channels == 0 {
		return 0
	}
	devider := bitDepth.devider()
	n := len(ints)
	if n > len(b.data) {
		n = len(b.data)
	}
	n -= n % b.channels
	for i := 0; i < n; i++ {
		b.data[i] = float64(ints[i]) / devider
	}
	return n / b.channels
}

// AsIntBuffer converts buffer into go-audio int buffer with provided bit depth.
// Samples outside [-1, 1] are clipped.
func (b Buffer) AsIntBuffer(frameRate int, bitDepth BitDepth) *audio.IntBuffer {
	multiplier := bitDepth.multiplier()
	ints := make([]int, len(b.data))
	for i, v := range b.data {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		ints[i] = int(v * multiplier)
	}
	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: b.channels,
			SampleRate:  frameRate,
		},
		Data:           ints,
		SourceBitDepth: int(bitDepth),
	}
}

// AsFloatBuffer wraps buffer data into go-audio float buffer without copy.
func (b Buffer) AsFloatBuffer(frameRate int) *audio.FloatBuffer {
	return &audio.FloatBuffer{
		Format: &audio.Format{
			NumChannels: b.channels,
			SampleRate:  frameRate,
		},
		Data: b.data,
	}
}
