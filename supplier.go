package clip

import (
	"time"

	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/signal"
)

const (
	// MidiFrameRate is the virtual frame rate of MIDI material. The value
	// only matters for timing compatibility with material captured before,
	// any sufficiently fine rate would do.
	MidiFrameRate = 1024000.0
	// MidiBaseBpm is the constant tempo MIDI material is normalized to.
	MidiBaseBpm = 120.0
	// MinTempoFactor prevents division by zero when the timeline is
	// stopped or tempo is zero.
	MinTempoFactor = 0.0000000001
)

type (
	// AudioSupplier renders audio material into destination buffers.
	AudioSupplier interface {
		// SupplyAudio fills dest with material starting at request's start
		// frame. Destination frame rate is request's DestSampleRate.
		SupplyAudio(req SupplyAudioRequest, dest signal.Buffer) (SupplyResponse, error)
		// ChannelCount returns the number of channels of supplied audio.
		ChannelCount() int
	}

	// MidiSupplier renders MIDI material into event lists.
	MidiSupplier interface {
		// SupplyMidi adds events of the requested window to events.
		SupplyMidi(req SupplyMidiRequest, events *midi.EventList) (SupplyResponse, error)
		// ReleaseNotes adds note-off events for currently sounding notes.
		ReleaseNotes(frameOffset int, events *midi.EventList)
	}

	// WithMaterialInfo exposes geometry of the supplied material.
	WithMaterialInfo interface {
		MaterialInfo() (MaterialInfo, error)
		// FrameRate returns native frame rate. False is returned if it's
		// not known yet.
		FrameRate() (float64, bool)
		// FrameCount returns number of frames of material.
		FrameCount() int
		// Duration returns length of material.
		Duration() time.Duration
	}

	// Supplier is a stage of the supply chain.
	Supplier interface {
		AudioSupplier
		MidiSupplier
		WithMaterialInfo
	}
)

// MaterialInfo describes supplied material.
type MaterialInfo struct {
	IsMidi       bool
	ChannelCount int
	FrameCount   int
	// FrameRate is MidiFrameRate for MIDI material.
	FrameRate float64
}

// Duration returns length of material.
func (i MaterialInfo) Duration() time.Duration {
	return ConvertFramesToDuration(i.FrameCount, i.FrameRate)
}

// GeneralInfo describes the block currently requested by the driver. It's
// allocated once by the driver and updated before every block.
type GeneralInfo struct {
	// CursorPos is timeline cursor position of the block start in seconds.
	CursorPos float64
	// BlockLength in output frames.
	BlockLength int
	// OutputFrameRate is the device frame rate.
	OutputFrameRate float64
	// TimelineTempo is current tempo of the timeline in BPM.
	TimelineTempo float64
	// ClipTempoFactor is current tempo factor of the clip.
	ClipTempoFactor float64
}

// RequestInfo is used for analysis and debugging only. It never influences
// behaviour.
type RequestInfo struct {
	// BlockFrameOffset is frame offset within the block requested by the
	// driver. It's accumulated when stages split requests.
	BlockFrameOffset int
	// Requester labels the stage which produced the request.
	Requester string
	// ParentRequester labels the stage which produced the request this one
	// was derived from.
	ParentRequester string
	Note            string
	IsRealtime      bool
}

// Derive returns info of a sub-request issued by requester, extraOffset
// frames into the current request.
func (i RequestInfo) Derive(requester string, extraOffset int) RequestInfo {
	return RequestInfo{
		BlockFrameOffset: i.BlockFrameOffset + extraOffset,
		Requester:        requester,
		ParentRequester:  i.Requester,
		IsRealtime:       i.IsRealtime,
	}
}

// SupplyAudioRequest asks for audio material.
type SupplyAudioRequest struct {
	// StartFrame is position within the innermost material. Negative
	// values address count-in before material starts.
	StartFrame int
	// DestSampleRate is frame rate of the destination buffer.
	DestSampleRate float64
	Info           RequestInfo
	General        *GeneralInfo
}

// SupplyMidiRequest asks for MIDI material.
type SupplyMidiRequest struct {
	// StartFrame is position within the innermost material in MIDI frames.
	StartFrame int
	// DestFrameCount is the number of requested destination frames.
	DestFrameCount int
	// DestSampleRate is the device frame rate.
	DestSampleRate float64
	Info           RequestInfo
	General        *GeneralInfo
}

// Status of the supply call. The zero value means material continues.
type Status struct {
	ReachedEnd bool
	// NumFramesWritten is the number of frames written to destination. It's
	// only set when end is reached, otherwise destination is filled.
	NumFramesWritten int
}

// SupplyResponse is returned by every supply call.
type SupplyResponse struct {
	// NumFramesConsumed is the number of material frames advanced. During
	// count-in it's the ideal number of frames.
	NumFramesConsumed int
	Status            Status
}

// PleaseContinue returns response for a filled destination.
func PleaseContinue(consumed int) SupplyResponse {
	return SupplyResponse{NumFramesConsumed: consumed}
}

// ReachedEnd returns response for material which ended within the block.
func ReachedEnd(consumed, written int) SupplyResponse {
	return SupplyResponse{
		NumFramesConsumed: consumed,
		Status: Status{
			ReachedEnd:       true,
			NumFramesWritten: written,
		},
	}
}

// ExceededEnd returns response for a request starting after the end.
func ExceededEnd() SupplyResponse {
	return ReachedEnd(0, 0)
}

// LimitedByTotalFrameCount returns ReachedEnd if consuming frames from start
// reaches total frame count.
func LimitedByTotalFrameCount(consumed, written, startFrame, total int) SupplyResponse {
	if startFrame+consumed < total {
		return PleaseContinue(consumed)
	}
	return ReachedEnd(consumed, written)
}
