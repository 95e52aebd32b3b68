package main

import (
	"flag"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dudk/clip"
	"github.com/dudk/clip/chain"
	"github.com/dudk/clip/loop"
	"github.com/dudk/clip/schedule"
	"github.com/dudk/clip/section"
	"github.com/dudk/clip/signal"
	"github.com/dudk/clip/source"
)

// maxRenderSeconds limits rendering of infinite loops without bars limit.
const maxRenderSeconds = 600

type renderCommand struct {
	in        string
	out       string
	rate      float64
	bitDepth  int
	blockSize int
	quality   int
	tempo     float64
	clipTempo float64
	start     float64
	length    float64
	loops     int
	bars      int
	fadeOut   float64
	stretch   bool
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render audio clip into wav file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.in, "in", "", "Input file (.wav or .mp3)")
	fs.StringVar(&cmd.out, "out", "", "Output wav file")
	fs.Float64Var(&cmd.rate, "rate", envFloat(sampleRateEnv, defaultSampleRate), "Output sample rate")
	fs.IntVar(&cmd.bitDepth, "bits", 16, "Output bit depth")
	fs.IntVar(&cmd.blockSize, "block", envInt(blockSizeEnv, defaultBlockSize), "Block size in frames")
	fs.IntVar(&cmd.quality, "quality", envInt(resampleQualityEnv, defaultResampleQuality), "Resample quality 1-64")
	fs.Float64Var(&cmd.tempo, "tempo", 120, "Timeline tempo in BPM")
	fs.Float64Var(&cmd.clipTempo, "clip-tempo", 0, "Original tempo of material in BPM, 0 plays at original speed")
	fs.Float64Var(&cmd.start, "start", 0, "Section start in seconds")
	fs.Float64Var(&cmd.length, "length", 0, "Section length in seconds, 0 is till the end")
	fs.IntVar(&cmd.loops, "loops", 0, "Number of repetitions, -1 repeats infinitely")
	fs.IntVar(&cmd.bars, "bars", 0, "Limit output to number of timeline bars")
	fs.Float64Var(&cmd.fadeOut, "fadeout", -1, "Start fade-out at material second, -1 disables fade-out")
	fs.BoolVar(&cmd.stretch, "stretch", false, "Keep pitch when tempo changes")
}

func (cmd *renderCommand) Validate() error {
	if cmd.in == "" {
		return errors.New("please provide input file")
	}
	if cmd.out == "" {
		return errors.New("please provide output file")
	}
	if cmd.rate <= 0 {
		return errors.Wrapf(clip.ErrInvalidFrameRate, "rate %v", cmd.rate)
	}
	if cmd.blockSize <= 0 {
		return errors.Errorf("invalid block size %d", cmd.blockSize)
	}
	if cmd.tempo <= 0 {
		return errors.Errorf("invalid tempo %v", cmd.tempo)
	}
	if cmd.start < 0 || cmd.length < 0 {
		return errors.Wrapf(clip.ErrInvalidBounds, "start %v length %v", cmd.start, cmd.length)
	}
	switch signal.BitDepth(cmd.bitDepth) {
	case signal.BitDepth8, signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
	default:
		return errors.Errorf("unsupported bit depth %d", cmd.bitDepth)
	}
	return nil
}

func (cmd *renderCommand) Run() error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	src, release, err := loadSource(cmd.in)
	if err != nil {
		return err
	}
	defer release()
	if src.ChannelCount() == 0 {
		return errors.Wrapf(clip.ErrNotAudio, "render %v", cmd.in)
	}
	c, err := chain.New(src, cmd.options(src)...)
	if err != nil {
		return err
	}
	timeline := schedule.NewConstantTempoTimeline(cmd.tempo)
	limit := clip.ConvertPositionToFrames(maxRenderSeconds, cmd.rate)
	if cmd.bars > 0 {
		limit = clip.ConvertPositionToFrames(schedule.PosOfBar(timeline, cmd.bars), cmd.rate)
	}
	if cmd.fadeOut >= 0 {
		srcRate, _ := src.FrameRate()
		if err := c.Mutations().Push(c.StartFadeOutMutation(clip.ConvertPositionToFrames(cmd.fadeOut, srcRate))); err != nil {
			return err
		}
	}
	c.SetTempoFactor(schedule.CalcTempoFactor(cmd.clipTempo, cmd.tempo))
	if err := c.Prepare(0, cmd.rate); err != nil {
		return err
	}

	out, err := render(c, timeline, cmd.rate, cmd.blockSize, limit)
	if err != nil {
		return err
	}
	if err := source.SaveWav(cmd.out, out, int(cmd.rate), signal.BitDepth(cmd.bitDepth)); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"out":      cmd.out,
		"frames":   out.FrameCount(),
		"duration": signal.DurationOf(cmd.rate, out.FrameCount()),
	}).Info("rendered")
	return nil
}

func (cmd *renderCommand) options(src clip.Supplier) []chain.Option {
	options := []chain.Option{
		chain.WithName(cmd.in),
		chain.WithLogger(logger),
		chain.WithResampleQuality(cmd.quality),
		chain.WithMetric(cmd.rate),
	}
	if cmd.start > 0 || cmd.length > 0 {
		rate, _ := src.FrameRate()
		options = append(options, chain.WithSection(section.Bounds{
			StartFrame: clip.ConvertPositionToFrames(cmd.start, rate),
			Length:     clip.ConvertPositionToFrames(cmd.length, rate),
			HasLength:  cmd.length > 0,
		}), chain.WithSectionFades())
	}
	switch {
	case cmd.loops < 0:
		options = append(options, chain.WithLoop(loop.Infinitely()))
	case cmd.loops > 0:
		options = append(options, chain.WithLoop(loop.UntilEndOfCycle(cmd.loops)))
	}
	if cmd.stretch {
		options = append(options, chain.WithTimeStretch())
	}
	return options
}

// render supplies chain block by block until the end of material or limit
// frames are reached. Timeline cursor is advanced along.
func render(c *chain.Chain, t *schedule.ConstantTempoTimeline, rate float64, blockSize, limit int) (signal.Buffer, error) {
	channels := c.ChannelCount()
	dest := signal.NewBuffer(channels, blockSize)
	out := signal.NewBuffer(channels, blockSize)
	written, start := 0, 0
	bar := schedule.NextBarAt(t, t.CursorPos())
	for written < limit {
		res, err := c.SupplyAudio(clip.SupplyAudioRequest{StartFrame: start, DestSampleRate: rate}, dest)
		if err != nil {
			return signal.Buffer{}, errors.Wrapf(err, "render at frame %d", written)
		}
		n := blockSize
		if res.Status.ReachedEnd {
			n = res.Status.NumFramesWritten
		}
		if written+n > limit {
			n = limit - written
		}
		if written+n > out.FrameCount() {
			out = out.Grow(2 * (written + n))
		}
		out.SliceFrom(written).CopyFrom(dest.Slice(0, n))
		written += n
		start += res.NumFramesConsumed
		t.Advance(n, rate)

		if m := schedule.CaptureMoment(t); m.NextBar != bar {
			bar = m.NextBar
			logger.WithFields(logrus.Fields{
				"bar":   bar,
				"pos":   m.CursorPos,
				"tempo": m.Tempo,
			}).Debug("render progress")
		}
		if res.Status.ReachedEnd {
			break
		}
	}
	return out.Slice(0, written), nil
}
