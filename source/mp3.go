package source

import (
	"encoding/binary"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"

	"github.com/dudk/clip/signal"
)

// mp3Channels is constant because decoder always provides stereo.
const mp3Channels = 2

// LoadMp3 decodes mp3 file into material.
func LoadMp3(path string) (*Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open mp3")
	}
	defer f.Close()
	m, err := DecodeMp3(f)
	return m, errors.Wrapf(err, "decode %v", path)
}

// DecodeMp3 decodes complete mp3 stream into material.
func DecodeMp3(r io.Reader) (*Material, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, errors.Wrap(err, "mp3 decoder")
	}
	data, err := ioutil.ReadAll(d)
	if err != nil {
		return nil, errors.Wrap(err, "read mp3")
	}
	// 16 bit little endian samples.
	ints := make([]int, len(data)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	b := signal.NewBuffer(mp3Channels, len(ints)/mp3Channels)
	b.ReadInts(ints, signal.BitDepth16)
	return NewMaterial(b, float64(d.SampleRate()))
}

// Load decodes file into material. Format is detected by extension.
func Load(path string) (*Material, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return LoadWav(path)
	case ".mp3":
		return LoadMp3(path)
	default:
		return nil, errors.Errorf("unsupported file %v", path)
	}
}
