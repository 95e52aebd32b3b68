package signal

// Buffer is an interleaved multi-channel view over float64 samples.
//
// Buffer is a small value: copying it copies the view, not the samples. A
// buffer created with NewBuffer owns its memory, a buffer created with
// Borrow aliases memory of the caller and must not be retained after the
// call it was passed to returns.
type Buffer struct {
	data     []float64
	channels int
	frames   int
}

// NewBuffer allocates a zeroed buffer. It must not be called on the
// real-time path.
func NewBuffer(channels, frames int) Buffer {
	if channels <= 0 || frames < 0 {
		return Buffer{}
	}
	return Buffer{
		data:     make([]float64, channels*frames),
		channels: channels,
		frames:   frames,
	}
}

// Borrow creates a buffer view over interleaved data. Trailing samples which
// don't form a whole frame are not part of the view.
func Borrow(data []float64, channels int) Buffer {
	if channels <= 0 {
		return Buffer{}
	}
	frames := len(data) / channels
	return Buffer{
		data:     data[:frames*channels],
		channels: channels,
		frames:   frames,
	}
}

// ChannelCount returns number of channels.
func (b Buffer) ChannelCount() int {
	return b.channels
}

// FrameCount returns number of frames.
func (b Buffer) FrameCount() int {
	return b.frames
}

// Data returns underlying interleaved samples.
func (b Buffer) Data() []float64 {
	return b.data
}

// Slice returns a view of frames [start, end).
//
// if start < 0, it's treated as 0
// if end > frame count, it's decreased till the end of buffer
// if start >= end, empty buffer with the same channel count is returned
func (b Buffer) Slice(start, end int) Buffer {
	if start < 0 {
		start = 0
	}
	if end > b.frames {
		end = b.frames
	}
	if start >= end {
		return Buffer{data: b.data[:0], channels: b.channels}
	}
	return Buffer{
		data:     b.data[start*b.channels : end*b.channels],
		channels: b.channels,
		frames:   end - start,
	}
}

// SliceFrom returns a view of frames starting at start till the end.
func (b Buffer) SliceFrom(start int) Buffer {
	return b.Slice(start, b.frames)
}

// Clear sets all samples to zero.
func (b Buffer) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// CopyFrom copies frames from src into the beginning of the buffer and
// returns number of copied frames. Channel counts must match, otherwise
// nothing is copied.
func (b Buffer) CopyFrom(src Buffer) int {
	if src.channels != b.channels {
		return 0
	}
	return copy(b.data, src.data) / max(b.channels, 1)
}

// Sample returns a sample of channel at frame.
func (b Buffer) Sample(frame, channel int) float64 {
	return b.data[frame*b.channels+channel]
}

// SetSample sets a sample of channel at frame.
func (b Buffer) SetSample(frame, channel int, v float64) {
	b.data[frame*b.channels+channel] = v
}

// ModifyFrames calls fn for every sample and stores the result.
func (b Buffer) ModifyFrames(fn func(frame, channel int, sample float64) float64) {
	for f := 0; f < b.frames; f++ {
		for c := 0; c < b.channels; c++ {
			i := f*b.channels + c
			b.data[i] = fn(f, c, b.data[i])
		}
	}
}

// ScaleFrame multiplies every sample of frame by factor.
func (b Buffer) ScaleFrame(frame int, factor float64) {
	frameData := b.data[frame*b.channels : (frame+1)*b.channels]
	for i := range frameData {
		frameData[i] *= factor
	}
}

// Grow returns a new owned buffer with at least frames capacity and the
// content of b copied to its beginning. It allocates and must not be called on
// the real-time path.
func (b Buffer) Grow(frames int) Buffer {
	if frames <= b.frames {
		return b
	}
	result := NewBuffer(b.channels, frames)
	copy(result.data, b.data)
	return result
}
