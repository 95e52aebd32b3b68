package source

import (
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/dudk/clip/signal"
)

// ErrUnsupportedBitDepth is returned when wav has unsupported bit depth.
var ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")

// pcmFormat is the wav audio format of integer PCM.
const pcmFormat = 1

// LoadWav decodes wav file into material.
func LoadWav(path string) (*Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open wav")
	}
	defer f.Close()
	m, err := DecodeWav(f)
	return m, errors.Wrapf(err, "decode %v", path)
}

// DecodeWav decodes complete wav stream into material.
func DecodeWav(r io.ReadSeeker) (*Material, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("wav is not valid")
	}
	switch signal.BitDepth(decoder.BitDepth) {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return nil, ErrUnsupportedBitDepth
	}
	ib, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "read pcm")
	}
	ib.SourceBitDepth = int(decoder.BitDepth)
	return NewMaterial(signal.FromIntBuffer(ib), float64(decoder.SampleRate))
}

// EncodeWav writes samples as integer PCM wav.
func EncodeWav(w io.WriteSeeker, samples signal.Buffer, frameRate int, bitDepth signal.BitDepth) error {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return ErrUnsupportedBitDepth
	}
	e := wav.NewEncoder(w, frameRate, int(bitDepth), samples.ChannelCount(), pcmFormat)
	if err := e.Write(samples.AsIntBuffer(frameRate, bitDepth)); err != nil {
		return errors.Wrap(err, "write wav")
	}
	return errors.Wrap(e.Close(), "close wav encoder")
}

// SaveWav creates a wav file with samples.
func SaveWav(path string, samples signal.Buffer, frameRate int, bitDepth signal.BitDepth) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create wav")
	}
	if err := EncodeWav(f, samples, frameRate, bitDepth); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %v", path)
	}
	return f.Close()
}
