package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dudk/clip"
	"github.com/dudk/clip/chain"
	"github.com/dudk/clip/loop"
	"github.com/dudk/clip/schedule"
	"github.com/dudk/clip/signal"
)

type playCommand struct {
	in        string
	rate      float64
	blockSize int
	quality   int
	tempo     float64
	clipTempo float64
	loop      bool
	stretch   bool
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play audio clip with default output device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.in, "in", "", "Input file (.wav or .mp3)")
	fs.Float64Var(&cmd.rate, "rate", envFloat(sampleRateEnv, defaultSampleRate), "Output sample rate")
	fs.IntVar(&cmd.blockSize, "block", envInt(blockSizeEnv, defaultBlockSize), "Block size in frames")
	fs.IntVar(&cmd.quality, "quality", envInt(resampleQualityEnv, defaultResampleQuality), "Resample quality 1-64")
	fs.Float64Var(&cmd.tempo, "tempo", 120, "Timeline tempo in BPM")
	fs.Float64Var(&cmd.clipTempo, "clip-tempo", 0, "Original tempo of material in BPM, 0 plays at original speed")
	fs.BoolVar(&cmd.loop, "loop", false, "Repeat until interrupted")
	fs.BoolVar(&cmd.stretch, "stretch", false, "Keep pitch when tempo changes")
}

func (cmd *playCommand) Validate() error {
	if cmd.in == "" {
		return errors.New("please provide input file")
	}
	if cmd.rate <= 0 {
		return errors.Wrapf(clip.ErrInvalidFrameRate, "rate %v", cmd.rate)
	}
	if cmd.blockSize <= 0 {
		return errors.Errorf("invalid block size %d", cmd.blockSize)
	}
	return nil
}

func (cmd *playCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	src, release, err := loadSource(cmd.in)
	if err != nil {
		return err
	}
	defer release()
	if src.ChannelCount() == 0 {
		return errors.Wrapf(clip.ErrNotAudio, "play %v", cmd.in)
	}
	options := []chain.Option{
		chain.WithName(cmd.in),
		chain.WithLogger(logger),
		chain.WithResampleQuality(cmd.quality),
	}
	if cmd.loop {
		options = append(options, chain.WithLoop(loop.Infinitely()))
	}
	if cmd.stretch {
		options = append(options, chain.WithTimeStretch())
	}
	c, err := chain.New(src, options...)
	if err != nil {
		return err
	}
	c.SetTempoFactor(schedule.CalcTempoFactor(cmd.clipTempo, cmd.tempo))
	if err := c.Prepare(0, cmd.rate); err != nil {
		return err
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	s := newSink(cmd.blockSize, cmd.rate, c.ChannelCount())
	if err := s.open(); err != nil {
		return err
	}
	err = play(ctx, c, s, schedule.NewSteadyTimeline(), cmd.blockSize, cmd.rate, cmd.tempo)
	if closeErr := s.close(); err == nil {
		err = closeErr
	}
	return err
}

// output consumes blocks of the played chain.
type output interface {
	write(signal.Buffer) error
}

// play supplies chain into output until the end of material or
// cancellation. Timeline is advanced after every block.
func play(ctx context.Context, c *chain.Chain, out output, t *schedule.SteadyTimeline, blockSize int, rate, tempo float64) error {
	dest := signal.NewBuffer(c.ChannelCount(), blockSize)
	start := 0
	for {
		select {
		case <-ctx.Done():
			logger.WithFields(logrus.Fields{"pos": t.CursorPos()}).Info("interrupted")
			return nil
		default:
		}
		res, err := c.SupplyAudio(clip.SupplyAudioRequest{StartFrame: start, DestSampleRate: rate}, dest)
		if err != nil {
			return err
		}
		if err := out.write(dest); err != nil {
			return err
		}
		start += res.NumFramesConsumed
		t.Update(blockSize, rate, tempo)
		if res.Status.ReachedEnd {
			return nil
		}
	}
}
