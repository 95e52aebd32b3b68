package clip

import "errors"

var (
	// ErrNotAudio is returned when audio is requested from MIDI material.
	ErrNotAudio = errors.New("material is not audio")
	// ErrNotMidi is returned when MIDI is requested from audio material.
	ErrNotMidi = errors.New("material is not MIDI")
	// ErrNoMaterial is returned when supplier has nothing to supply from.
	ErrNoMaterial = errors.New("no material")
	// ErrInvalidBounds is returned when section bounds are inconsistent.
	ErrInvalidBounds = errors.New("invalid section bounds")
	// ErrInvalidFrameRate is returned for zero or negative frame rates.
	ErrInvalidFrameRate = errors.New("invalid frame rate")
	// ErrUnsupportedChannelCount is returned when stage can't process
	// material with provided number of channels.
	ErrUnsupportedChannelCount = errors.New("unsupported channel count")
)
