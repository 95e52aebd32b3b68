package clip

import "github.com/dudk/clip/signal"

// SourceMaterialRequest asks a leaf supplier for material starting at a
// non-negative frame.
type SourceMaterialRequest struct {
	StartFrame     int
	Dest           signal.Buffer
	DestSampleRate float64
}

// MidiMaterialRequest asks a leaf supplier for MIDI material starting at a
// non-negative frame.
type MidiMaterialRequest struct {
	StartFrame     int
	DestFrameCount int
	DestSampleRate float64
	// DestFrameOffset must be added to frame offsets of written events.
	DestFrameOffset int
}

// SupplyAudioMaterial deals with negative start frames on behalf of leaf
// suppliers. Destination frames located before material starts are cleared,
// inner is called only for the part which overlaps material.
//
// Destination frame rate is assumed to be equal to source frame rate. The
// resampler guarantees that.
func SupplyAudioMaterial(req SupplyAudioRequest, dest signal.Buffer, inner func(SourceMaterialRequest) SupplyResponse) SupplyResponse {
	ideal := dest.FrameCount()
	if req.StartFrame+ideal <= 0 {
		// entirely before material, still in count-in.
		dest.Clear()
		return PleaseContinue(ideal)
	}
	if req.StartFrame >= 0 {
		return inner(SourceMaterialRequest{
			StartFrame:     req.StartFrame,
			Dest:           dest,
			DestSampleRate: req.DestSampleRate,
		})
	}
	// overlaps material start.
	skippedInSource := -req.StartFrame
	skippedInDest := AdjustProportionally(float64(ideal), float64(skippedInSource)/float64(ideal))
	dest.Slice(0, skippedInDest).Clear()
	res := inner(SourceMaterialRequest{
		StartFrame:     0,
		Dest:           dest.SliceFrom(skippedInDest),
		DestSampleRate: req.DestSampleRate,
	})
	if res.Status.ReachedEnd {
		return ReachedEnd(skippedInSource+res.NumFramesConsumed, skippedInDest+res.Status.NumFramesWritten)
	}
	return PleaseContinue(skippedInSource + res.NumFramesConsumed)
}

// SupplyMidiMaterial is SupplyAudioMaterial for MIDI.
func SupplyMidiMaterial(req SupplyMidiRequest, inner func(MidiMaterialRequest) SupplyResponse) SupplyResponse {
	ideal := req.DestFrameCount
	if req.StartFrame+ideal <= 0 {
		return PleaseContinue(ideal)
	}
	if req.StartFrame >= 0 {
		return inner(MidiMaterialRequest{
			StartFrame:     req.StartFrame,
			DestFrameCount: ideal,
			DestSampleRate: req.DestSampleRate,
		})
	}
	skippedInSource := -req.StartFrame
	skippedInDest := AdjustProportionally(float64(ideal), float64(skippedInSource)/float64(ideal))
	res := inner(MidiMaterialRequest{
		StartFrame:      0,
		DestFrameCount:  ideal - skippedInDest,
		DestSampleRate:  req.DestSampleRate,
		DestFrameOffset: skippedInDest,
	})
	if res.Status.ReachedEnd {
		return ReachedEnd(skippedInSource+res.NumFramesConsumed, skippedInDest+res.Status.NumFramesWritten)
	}
	return PleaseContinue(skippedInSource + res.NumFramesConsumed)
}

// TransferSamples copies frames of src starting at start into dest. Frames
// of dest which are not written are cleared.
func TransferSamples(src signal.Buffer, start int, dest signal.Buffer) SupplyResponse {
	written := src.FrameCount() - start
	if written > dest.FrameCount() {
		written = dest.FrameCount()
	}
	if written <= 0 {
		dest.Clear()
		return ExceededEnd()
	}
	dest.CopyFrom(src.Slice(start, start+written))
	dest.SliceFrom(written).Clear()
	return LimitedByTotalFrameCount(written, written, start, src.FrameCount())
}
