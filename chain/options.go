package chain

import (
	"github.com/pkg/errors"

	"github.com/dudk/clip"
	"github.com/dudk/clip/log"
	"github.com/dudk/clip/loop"
	"github.com/dudk/clip/resample"
	"github.com/dudk/clip/section"
)

// Option provides a way to set functional parameters to chain.
type Option func(c *Chain) error

// WithSection restricts material to bounds.
func WithSection(b section.Bounds) Option {
	return func(c *Chain) error {
		if b.StartFrame < 0 || b.Length < 0 {
			return errors.Wrapf(clip.ErrInvalidBounds, "section %+v", b)
		}
		c.bounds = b
		return nil
	}
}

// WithSectionFades enables fades at section bounds.
func WithSectionFades() Option {
	return func(c *Chain) error {
		c.sectionFades = true
		return nil
	}
}

// WithLoop enables looping with provided behavior.
func WithLoop(b loop.Behavior) Option {
	return func(c *Chain) error {
		c.loopBehavior = &b
		return nil
	}
}

// WithResampleQuality sets resampler quality. Default is
// resample.DefaultQuality.
func WithResampleQuality(quality int) Option {
	return func(c *Chain) error {
		if quality < 1 || quality > 64 {
			return errors.Wrapf(resample.ErrInvalidQuality, "quality %d", quality)
		}
		c.quality = quality
		return nil
	}
}

// WithTimeStretch adds time stretcher, so tempo changes keep the pitch.
func WithTimeStretch() Option {
	return func(c *Chain) error {
		c.timeStretch = true
		return nil
	}
}

// WithLogger sets logger to chain. If this option is not provided,
// log.GetLogger is used.
func WithLogger(logger log.Logger) Option {
	return func(c *Chain) error {
		c.logger = logger
		return nil
	}
}

// WithName sets name to chain. It's used as metric component name.
func WithName(n string) Option {
	return func(c *Chain) error {
		c.name = n
		return nil
	}
}

// WithMetric measures supplied frames at output frame rate.
func WithMetric(outputRate float64) Option {
	return func(c *Chain) error {
		if outputRate <= 0 {
			return errors.Wrapf(clip.ErrInvalidFrameRate, "metric rate %v", outputRate)
		}
		c.metricRate = outputRate
		return nil
	}
}

// WithMutationQueueSize sets capacity of the mutation queue.
func WithMutationQueueSize(size int) Option {
	return func(c *Chain) error {
		c.queueSize = size
		return nil
	}
}
