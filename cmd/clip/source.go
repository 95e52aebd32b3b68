package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/dudk/clip"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/pool"
	"github.com/dudk/clip/source"
)

// midiChunkExt is an extension of files with MIDI sequence chunks.
const midiChunkExt = ".chunk"

// materials shares decoded audio between commands.
var materials = pool.New()

// loadSource opens audio or MIDI file as clip supplier. Returned function
// releases the material.
func loadSource(path string) (clip.Supplier, func(), error) {
	if strings.ToLower(filepath.Ext(path)) == midiChunkExt {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read %v", path)
		}
		seq, err := midi.ParseChunk(string(data))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "parse %v", path)
		}
		m, err := source.NewMidi(seq)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	}
	m, err := materials.AcquireFile(path)
	if err != nil {
		return nil, nil, err
	}
	return source.NewAudio(m), func() { materials.Release(path) }, nil
}
