package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dudk/clip"
	"github.com/dudk/clip/record"
	"github.com/dudk/clip/schedule"
	"github.com/dudk/clip/signal"
)

// finishTimeout limits waiting for the recorder worker to store the file.
const finishTimeout = 10 * time.Second

type recordCommand struct {
	dir       string
	rate      float64
	channels  int
	blockSize int
	bitDepth  int
	tempo     float64
	seconds   float64
	bars      int
}

func (cmd *recordCommand) Name() string {
	return "record"
}

func (cmd *recordCommand) Help() string {
	return "Record audio clip from default input device"
}

func (cmd *recordCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.dir, "dir", ".", "Directory to store recording")
	fs.Float64Var(&cmd.rate, "rate", envFloat(sampleRateEnv, defaultSampleRate), "Input sample rate")
	fs.IntVar(&cmd.channels, "channels", 1, "Number of input channels")
	fs.IntVar(&cmd.blockSize, "block", envInt(blockSizeEnv, defaultBlockSize), "Block size in frames")
	fs.IntVar(&cmd.bitDepth, "bits", 24, "Bit depth of stored file")
	fs.Float64Var(&cmd.tempo, "tempo", 120, "Timeline tempo in BPM")
	fs.Float64Var(&cmd.seconds, "seconds", 4, "Recording length in seconds")
	fs.IntVar(&cmd.bars, "bars", 0, "Recording length in bars, recording is synced to timeline if set")
}

func (cmd *recordCommand) Validate() error {
	if cmd.dir == "" {
		return errors.New("please provide output directory")
	}
	if cmd.rate <= 0 {
		return errors.Wrapf(clip.ErrInvalidFrameRate, "rate %v", cmd.rate)
	}
	if cmd.channels < 1 || cmd.channels > 2 {
		return errors.Wrapf(clip.ErrUnsupportedChannelCount, "channels %d", cmd.channels)
	}
	if cmd.blockSize <= 0 {
		return errors.Errorf("invalid block size %d", cmd.blockSize)
	}
	if cmd.tempo <= 0 {
		return errors.Errorf("invalid tempo %v", cmd.tempo)
	}
	if cmd.bars <= 0 && cmd.seconds <= 0 {
		return errors.New("please provide recording length")
	}
	return nil
}

func (cmd *recordCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := record.NewWorker(logger)
	errc := make(chan error, 1)
	go func() {
		errc <- w.Run(ctx)
	}()
	defer func() {
		w.Close()
		<-errc
	}()

	m := newMicrophone(cmd.blockSize, cmd.rate, cmd.channels)
	if err := m.open(); err != nil {
		return err
	}
	r := record.New(nil, w, record.WithBitDepth(signal.BitDepth(cmd.bitDepth)))
	file, o, err := capture(ctx, r, m, cmd.params())
	if closeErr := m.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"file":     file,
		"duration": o.EffectiveDuration,
		"downbeat": o.NormalizedDownbeatFrame,
	}).Info("recorded")
	return nil
}

func (cmd *recordCommand) params() captureParams {
	return captureParams{
		dir:       cmd.dir,
		rate:      cmd.rate,
		channels:  cmd.channels,
		blockSize: cmd.blockSize,
		tempo:     cmd.tempo,
		seconds:   cmd.seconds,
		bars:      cmd.bars,
	}
}

// input fills blocks of recorded audio.
type input interface {
	read(signal.Buffer) error
}

type captureParams struct {
	dir       string
	rate      float64
	channels  int
	blockSize int
	tempo     float64
	seconds   float64
	bars      int
}

// capture records input into a file in dir. The recording is synced to a
// steady timeline if bars are set. Path of the stored file is returned.
func capture(ctx context.Context, r *record.Recorder, in input, p captureParams) (string, record.Outcome, error) {
	t := schedule.NewSteadyTimeline()
	t.Update(0, p.rate, p.tempo)

	eq := record.NewAudioEquipment(p.dir, p.channels, p.rate)
	timing := record.Unsynced()
	limit := clip.ConvertPositionToFrames(p.seconds, p.rate)
	if p.bars > 0 {
		length, err := schedule.NewEvenQuantization(uint32(p.bars), 1)
		if err != nil {
			return "", record.Outcome{}, err
		}
		timing = record.ResolveSynced(t, t.CursorPos(), schedule.OneBar, &length)
		limit = clip.ConvertPositionToFrames(t.PosOfQuantizedPos(timing.End)-t.CursorPos(), p.rate)
	}
	if err := r.PrepareRecording(eq, timing, t); err != nil {
		return "", record.Outcome{}, err
	}

	block := signal.NewBuffer(p.channels, p.blockSize)
	for written := 0; written < limit; written += p.blockSize {
		if ctx.Err() != nil {
			break
		}
		if err := in.read(block); err != nil {
			return "", record.Outcome{}, errors.Wrap(err, "read input")
		}
		req := record.WriteAudioRequest{Block: block, InputSampleRate: p.rate}
		if rest := limit - written; rest < p.blockSize {
			req.Block = block.Slice(0, rest)
		}
		if err := r.WriteAudio(req, t); err != nil {
			return "", record.Outcome{}, err
		}
		t.Update(p.blockSize, p.rate, p.tempo)
	}

	o, err := r.CommitRecording(t)
	if err != nil {
		return "", record.Outcome{}, err
	}
	if err := awaitFinish(r, p.channels, p.blockSize, p.rate); err != nil {
		return "", record.Outcome{}, err
	}
	return eq.File, o, nil
}

// awaitFinish supplies the recorder the way playback would, until the
// worker hands over the stored recording.
func awaitFinish(r *record.Recorder, channels, blockSize int, rate float64) error {
	dest := signal.NewBuffer(channels, blockSize)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(finishTimeout)
	for r.IsRecording() {
		select {
		case <-timeout:
			return errors.New("recording is not finished in time")
		case <-ticker.C:
			_, err := r.SupplyAudio(clip.SupplyAudioRequest{DestSampleRate: rate}, dest)
			if err != nil && r.IsRecording() {
				return err
			}
		}
	}
	return r.Err()
}
