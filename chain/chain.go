// Package chain assembles supply stages of a single voice. The chain is
// a clip.Supplier itself:
//
//	source -> section -> looper -> time stretcher -> resampler -> fader
//
// Time stretcher is optional. Without it the resampler changes tempo by
// changing playback speed. The fader is outermost, its ramps are linear in
// the chain output.
package chain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/dudk/clip"
	"github.com/dudk/clip/fader"
	"github.com/dudk/clip/log"
	"github.com/dudk/clip/loop"
	"github.com/dudk/clip/metric"
	"github.com/dudk/clip/midi"
	"github.com/dudk/clip/mutable"
	"github.com/dudk/clip/resample"
	"github.com/dudk/clip/section"
	"github.com/dudk/clip/signal"
	"github.com/dudk/clip/stretch"
)

// Chain is a stack of stages over a source. It isn't safe for concurrent
// use: configuration changes of a playing chain are pushed to Mutations.
type Chain struct {
	mutable.Context
	id     xid.ID
	name   string
	logger log.Logger

	source    clip.Supplier
	section   *section.Section
	looper    *loop.Looper
	fader     *fader.AdHocFader
	stretcher *stretch.Stretcher
	resampler *resample.Resampler
	top       clip.Supplier

	mutations   *mutable.Queue
	mutationErr error
	measure     metric.MeasureFunc

	// configuration collected by options.
	bounds       section.Bounds
	sectionFades bool
	loopBehavior *loop.Behavior
	quality      int
	timeStretch  bool
	queueSize    int
	metricRate   float64
}

// New stacks stages over source and applies provided options.
func New(src clip.Supplier, options ...Option) (*Chain, error) {
	if src == nil {
		return nil, clip.ErrNoMaterial
	}
	c := &Chain{
		Context: mutable.Mutable(),
		id:      xid.New(),
		source:  src,
		quality: resample.DefaultQuality,
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	if c.name == "" {
		c.name = c.id.String()
	}

	c.section = section.New(src)
	c.section.SetFadesEnabled(c.sectionFades)
	if err := c.section.SetBounds(c.bounds); err != nil {
		return nil, errors.Wrapf(err, "chain %s", c.name)
	}
	c.looper = loop.New(c.section)
	if c.loopBehavior != nil {
		c.looper.SetEnabled(true)
		c.looper.SetBehavior(*c.loopBehavior)
	}
	var inner clip.Supplier = c.looper
	if c.timeStretch {
		s, err := stretch.New(c.looper)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %s", c.name)
		}
		c.stretcher = s
		inner = s
	}
	r, err := resample.New(inner, c.quality)
	if err != nil {
		return nil, errors.Wrapf(err, "chain %s", c.name)
	}
	r.SetResponsibleForAudioTimeStretching(!c.timeStretch)
	c.resampler = r
	c.fader = fader.New(r)
	c.top = c.fader
	c.mutations = mutable.NewQueue(c.queueSize)
	if c.metricRate > 0 {
		c.measure = metric.Meter(c.name, c.metricRate)()
	}

	c.logger.WithFields(logrus.Fields{
		"chain":       c.id.String(),
		"name":        c.name,
		"quality":     c.quality,
		"timeStretch": c.timeStretch,
		"looped":      c.loopBehavior != nil,
	}).Debug("chain created")
	return c, nil
}

// ID returns unique chain id.
func (c *Chain) ID() xid.ID {
	return c.id
}

// Name returns chain name. It's the ID if name wasn't provided.
func (c *Chain) Name() string {
	return c.name
}

// Mutations returns queue which is applied at the beginning of every
// supply call.
func (c *Chain) Mutations() *mutable.Queue {
	return c.mutations
}

// MutationErr returns the first error of the last applied mutations.
func (c *Chain) MutationErr() error {
	return c.mutationErr
}

// Source returns the innermost supplier.
func (c *Chain) Source() clip.Supplier {
	return c.source
}

// Section returns the section stage.
func (c *Chain) Section() *section.Section {
	return c.section
}

// Looper returns the looper stage.
func (c *Chain) Looper() *loop.Looper {
	return c.looper
}

// Fader returns the ad-hoc fader stage.
func (c *Chain) Fader() *fader.AdHocFader {
	return c.fader
}

// Stretcher returns the time stretcher. It's nil if chain was created
// without time stretching.
func (c *Chain) Stretcher() *stretch.Stretcher {
	return c.stretcher
}

// Resampler returns the resampler stage.
func (c *Chain) Resampler() *resample.Resampler {
	return c.resampler
}

// SetTempoFactor changes tempo of supplied material.
func (c *Chain) SetTempoFactor(f float64) {
	if c.stretcher != nil {
		c.stretcher.SetTempoFactor(f)
	}
	// resampler applies the factor to MIDI in any case.
	c.resampler.SetTempoFactor(f)
}

// TempoFactor returns current tempo factor.
func (c *Chain) TempoFactor() float64 {
	return c.resampler.TempoFactor()
}

// SetTempoFactorMutation returns mutation which changes tempo factor.
func (c *Chain) SetTempoFactorMutation(f float64) mutable.Mutation {
	return c.Mutate(func() error {
		c.SetTempoFactor(f)
		return nil
	})
}

// StartFadeOutMutation returns mutation which starts fade out at frame.
func (c *Chain) StartFadeOutMutation(frame int) mutable.Mutation {
	return c.Mutate(func() error {
		c.fader.StartFadeOut(frame)
		return nil
	})
}

// SetBoundsMutation returns mutation which changes section bounds.
func (c *Chain) SetBoundsMutation(b section.Bounds) mutable.Mutation {
	return c.Mutate(func() error {
		return c.section.SetBounds(b)
	})
}

// Prepare seeds stateful stages for playback which starts at startFrame.
// It allocates and must be called before playback or after seek.
func (c *Chain) Prepare(startFrame int, destSampleRate float64) error {
	c.fader.Reset()
	if c.source.ChannelCount() == 0 {
		// MIDI material, engines aren't used.
		return nil
	}
	if c.stretcher != nil {
		if err := c.stretcher.Prepare(startFrame); err != nil {
			return errors.Wrapf(err, "chain %s", c.name)
		}
	}
	if err := c.resampler.Prepare(startFrame, destSampleRate); err != nil {
		return errors.Wrapf(err, "chain %s", c.name)
	}
	return nil
}

// Reset drops state of stateful stages. Next supply call starts over.
func (c *Chain) Reset() {
	c.fader.Reset()
	if c.stretcher != nil {
		c.stretcher.Reset()
	}
	c.resampler.Reset()
}

func (c *Chain) applyMutations() {
	if c.mutations.Len() > 0 {
		c.mutationErr = c.mutations.Apply()
	}
}

// SupplyAudio applies pending mutations and supplies the top stage.
func (c *Chain) SupplyAudio(req clip.SupplyAudioRequest, dest signal.Buffer) (clip.SupplyResponse, error) {
	c.applyMutations()
	res, err := c.top.SupplyAudio(req, dest)
	if c.measure != nil && err == nil {
		c.measure(dest.FrameCount())
	}
	return res, err
}

// SupplyMidi applies pending mutations and supplies the top stage.
func (c *Chain) SupplyMidi(req clip.SupplyMidiRequest, events *midi.EventList) (clip.SupplyResponse, error) {
	c.applyMutations()
	res, err := c.top.SupplyMidi(req, events)
	if c.measure != nil && err == nil {
		c.measure(req.DestFrameCount)
	}
	return res, err
}

// ReleaseNotes delegates to the top stage.
func (c *Chain) ReleaseNotes(frameOffset int, events *midi.EventList) {
	c.top.ReleaseNotes(frameOffset, events)
}

// ChannelCount delegates to the top stage.
func (c *Chain) ChannelCount() int {
	return c.top.ChannelCount()
}

// MaterialInfo delegates to the top stage.
func (c *Chain) MaterialInfo() (clip.MaterialInfo, error) {
	return c.top.MaterialInfo()
}

// FrameRate delegates to the top stage.
func (c *Chain) FrameRate() (float64, bool) {
	return c.top.FrameRate()
}

// FrameCount delegates to the top stage.
func (c *Chain) FrameCount() int {
	return c.top.FrameCount()
}

// Duration delegates to the top stage.
func (c *Chain) Duration() time.Duration {
	return c.top.Duration()
}
