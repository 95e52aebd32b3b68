package main

import (
	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"

	"github.com/dudk/clip/signal"
)

// stream wraps portaudio default blocking stream. Samples are interleaved.
type stream struct {
	buf        []float32
	pa         *portaudio.Stream
	sampleRate float64
	blockSize  int
	channels   int
	input      bool
}

// sink plays blocks with default output device.
type sink struct {
	stream
}

func newSink(blockSize int, sampleRate float64, channels int) *sink {
	return &sink{
		stream: stream{
			blockSize:  blockSize,
			sampleRate: sampleRate,
			channels:   channels,
		},
	}
}

// write blocks until the buffer is played.
func (s *sink) write(b signal.Buffer) error {
	for i, v := range b.Data() {
		s.buf[i] = float32(v)
	}
	return s.pa.Write()
}

// microphone captures blocks with default input device.
type microphone struct {
	stream
}

func newMicrophone(blockSize int, sampleRate float64, channels int) *microphone {
	return &microphone{
		stream: stream{
			blockSize:  blockSize,
			sampleRate: sampleRate,
			channels:   channels,
			input:      true,
		},
	}
}

// read blocks until the buffer is captured.
func (m *microphone) read(b signal.Buffer) error {
	if err := m.pa.Read(); err != nil {
		return err
	}
	data := b.Data()
	for i, v := range m.buf {
		data[i] = float64(v)
	}
	return nil
}

// open initializes portaudio and starts default stream.
func (s *stream) open() error {
	s.buf = make([]float32, s.blockSize*s.channels)
	if err := portaudio.Initialize(); err != nil {
		return errors.Wrap(err, "portaudio initialize")
	}
	in, out := 0, s.channels
	if s.input {
		in, out = s.channels, 0
	}
	var err error
	s.pa, err = portaudio.OpenDefaultStream(in, out, s.sampleRate, s.blockSize, &s.buf)
	if err != nil {
		portaudio.Terminate()
		return errors.Wrap(err, "portaudio open stream")
	}
	if err = s.pa.Start(); err != nil {
		s.pa.Close()
		portaudio.Terminate()
		return errors.Wrap(err, "portaudio start stream")
	}
	return nil
}

// close stops the stream and terminates portaudio.
func (s *stream) close() error {
	if err := s.pa.Stop(); err != nil {
		return err
	}
	if err := s.pa.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
