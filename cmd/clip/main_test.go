package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/clip/chain"
	"github.com/dudk/clip/internal/mock"
	"github.com/dudk/clip/loop"
	"github.com/dudk/clip/record"
	"github.com/dudk/clip/schedule"
	"github.com/dudk/clip/signal"
	"github.com/dudk/clip/source"
)

const (
	rate   = 48000
	frames = 4800
)

const chunk = `
HASDATA 1 960 QN
e 0 91 30 31
e 480 81 30 00
e 480 b0 7b 00
IGNTEMPO 1 120 4 4
`

// wavFile saves 0.1 second of constant signal into temporary wav file.
func wavFile(t *testing.T) string {
	t.Helper()
	b := signal.NewBuffer(2, frames)
	b.ModifyFrames(func(int, int, float64) float64 { return 0.5 })
	path := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, source.SaveWav(path, b, rate, signal.BitDepth16))
	return path
}

func TestInit(t *testing.T) {
	//check if commands are registered
	assert.Equal(t, len(commands), 4)
}

func TestRun(t *testing.T) {
	tests := []struct {
		args        []string
		expected    int
		description string
	}{
		{
			args:        []string{"clip"},
			expected:    errorExitCode,
			description: "No command",
		},
		{
			args:        []string{"clip", "mix"},
			expected:    errorExitCode,
			description: "Unknown command",
		},
		{
			args:        []string{"clip", "info"},
			expected:    errorExitCode,
			description: "Missing input",
		},
		{
			args:        []string{"clip", "render", "-unknown"},
			expected:    errorExitCode,
			description: "Unknown flag",
		},
		{
			args:        []string{"clip", "render", "-in", "in.wav", "-out", "out.wav", "-bits", "12"},
			expected:    errorExitCode,
			description: "Invalid bit depth",
		},
		{
			args:        []string{"clip", "play", "-in", "in.wav", "-block", "0"},
			expected:    errorExitCode,
			description: "Invalid block size",
		},
		{
			args:        []string{"clip", "record", "-channels", "3"},
			expected:    errorExitCode,
			description: "Too many input channels",
		},
	}
	for _, test := range tests {
		c := config{args: test.args}
		assert.Equal(t, test.expected, c.run(), test.description)
	}
}

func TestInfo(t *testing.T) {
	var out bytes.Buffer
	cmd := infoCommand{in: wavFile(t), out: &out}
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Kind:\t\taudio")
	assert.Contains(t, out.String(), "Channels:\t2")
	assert.Contains(t, out.String(), "Frames:\t\t"+strconv.Itoa(frames))

	path := filepath.Join(t.TempDir(), "notes"+midiChunkExt)
	require.NoError(t, os.WriteFile(path, []byte(chunk), 0644))
	out.Reset()
	cmd = infoCommand{in: path, out: &out}
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Kind:\t\tmidi")
	assert.Contains(t, out.String(), "Channels:\t0")

	cmd = infoCommand{in: filepath.Join(t.TempDir(), "missing.flac")}
	assert.Error(t, cmd.Run())
}

func TestRender(t *testing.T) {
	tests := []struct {
		limit       int
		expected    int
		description string
	}{
		{
			limit:       1 << 20,
			expected:    1000,
			description: "Till the end",
		},
		{
			limit:       300,
			expected:    300,
			description: "Limited",
		},
	}
	for _, test := range tests {
		c, err := chain.New(&mock.Supplier{Limit: 1000, NumChannels: 2, Rate: rate, Value: 0.5})
		require.NoError(t, err, test.description)
		timeline := schedule.NewConstantTempoTimeline(120)
		out, err := render(c, timeline, rate, 128, test.limit)
		require.NoError(t, err, test.description)
		assert.Equal(t, test.expected, out.FrameCount(), test.description)
		assert.Equal(t, 0.5, out.Sample(test.expected-1, 1), test.description)
		assert.InDelta(t, float64(test.expected)/rate, timeline.CursorPos(), 1e-9, test.description)
	}
}

func TestRenderCommand(t *testing.T) {
	in := wavFile(t)
	tests := []struct {
		args        []string
		expected    int
		description string
	}{
		{
			expected:    frames,
			description: "Plain",
		},
		{
			args:        []string{"-loops", "1"},
			expected:    2 * frames,
			description: "Two cycles",
		},
		{
			args:        []string{"-loops", "-1", "-bars", "1"},
			expected:    2 * rate,
			description: "One bar of infinite loop",
		},
		{
			args:        []string{"-start", "0.05"},
			expected:    frames / 2,
			description: "Section",
		},
	}
	for _, test := range tests {
		out := filepath.Join(t.TempDir(), "out.wav")
		args := append([]string{"clip", "render", "-in", in, "-out", out, "-rate", strconv.Itoa(rate)}, test.args...)
		c := config{args: args}
		require.Equal(t, successExitCode, c.run(), test.description)

		m, err := source.LoadWav(out)
		require.NoError(t, err, test.description)
		assert.Equal(t, test.expected, m.FrameCount(), test.description)
		assert.Equal(t, 2, m.ChannelCount(), test.description)
	}
}

func TestEnv(t *testing.T) {
	t.Setenv(blockSizeEnv, "256")
	assert.Equal(t, 256, envInt(blockSizeEnv, defaultBlockSize))
	t.Setenv(blockSizeEnv, "large")
	assert.Equal(t, defaultBlockSize, envInt(blockSizeEnv, defaultBlockSize))
	t.Setenv(sampleRateEnv, "44100")
	assert.Equal(t, 44100.0, envFloat(sampleRateEnv, defaultSampleRate))
	assert.Equal(t, float64(defaultResampleQuality), envFloat("CLIP_NOT_SET", defaultResampleQuality))
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), envFile)))

	const name = "CLIP_TEST_LOAD_ENV"
	path := filepath.Join(t.TempDir(), envFile)
	require.NoError(t, os.WriteFile(path, []byte(name+"=1024\n"), 0644))
	t.Cleanup(func() { os.Unsetenv(name) })
	require.NoError(t, loadEnv(path))
	assert.Equal(t, 1024, envInt(name, 0))
}

type fakeOutput struct {
	blocks int
}

func (o *fakeOutput) write(signal.Buffer) error {
	o.blocks++
	return nil
}

func TestPlay(t *testing.T) {
	c, err := chain.New(&mock.Supplier{Limit: 1000, NumChannels: 2, Rate: rate, Value: 0.5})
	require.NoError(t, err)
	out := &fakeOutput{}
	timeline := schedule.NewSteadyTimeline()
	require.NoError(t, play(context.Background(), c, out, timeline, 128, rate, 120))
	assert.Equal(t, 8, out.blocks)
	assert.Equal(t, uint64(8*128), timeline.SampleCount())
	assert.Equal(t, 120.0, timeline.TempoAt(0))

	looped, err := chain.New(&mock.Supplier{Limit: 1000, NumChannels: 2, Rate: rate}, chain.WithLoop(loop.Infinitely()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = &fakeOutput{}
	require.NoError(t, play(ctx, looped, out, schedule.NewSteadyTimeline(), 128, rate, 120))
	assert.Equal(t, 0, out.blocks)
}

type constantInput struct {
	value float64
}

func (in *constantInput) read(b signal.Buffer) error {
	b.ModifyFrames(func(int, int, float64) float64 { return in.value })
	return nil
}

func TestCapture(t *testing.T) {
	tests := []struct {
		params      captureParams
		expected    int
		synced      bool
		description string
	}{
		{
			params:      captureParams{rate: rate, channels: 1, blockSize: 480, tempo: 120, seconds: 0.5},
			expected:    rate / 2,
			description: "Unsynced",
		},
		{
			params:      captureParams{rate: rate, channels: 2, blockSize: 1000, tempo: 120, seconds: 0.01},
			expected:    480,
			description: "Partial block",
		},
		{
			params:      captureParams{rate: rate, channels: 1, blockSize: 480, tempo: 120, bars: 1},
			expected:    2 * rate,
			synced:      true,
			description: "One bar",
		},
	}
	for _, test := range tests {
		w := record.NewWorker(nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- w.Run(ctx)
		}()
		r := record.New(nil, w, record.WithBitDepth(signal.BitDepth16))
		p := test.params
		p.dir = t.TempDir()

		file, o, err := capture(ctx, r, &constantInput{value: 0.25}, p)
		cancel()
		<-done
		require.NoError(t, err, test.description)
		assert.Equal(t, float64(rate), o.FrameRate, test.description)
		assert.Equal(t, test.synced, o.HasSectionFrameCount, test.description)
		if test.synced {
			assert.Equal(t, test.expected, o.SectionFrameCount, test.description)
		}
		assert.Equal(t, test.expected, r.Source().FrameCount(), test.description)

		m, err := source.LoadWav(file)
		require.NoError(t, err, test.description)
		assert.Equal(t, test.expected, m.FrameCount(), test.description)
		assert.Equal(t, p.channels, m.ChannelCount(), test.description)
	}
}
