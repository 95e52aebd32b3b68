package record

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dudk/clip/log"
	"github.com/dudk/clip/signal"
	"github.com/dudk/clip/source"
)

// requestBufferSize limits pending requests of all recorders served by one
// worker.
const requestBufferSize = 16

// Worker does the recorder's non-real-time work: it allocates capture
// memory and finishes recordings. One worker can serve any number of
// recorders.
type Worker struct {
	requests chan request
	quit     chan struct{}
	once     sync.Once
	logger   log.Logger
}

type request interface {
	handle(w *Worker)
}

type responseKind int

const (
	grown responseKind = iota
	finished
)

// response is sent back by value, so the real-time side doesn't allocate
// when receiving it.
type response struct {
	kind responseKind
	// capture is the grown buffer, frames [0, snapshot) are copied.
	capture  signal.Buffer
	snapshot int
	// source is the final supplier of finished recording.
	source *source.Audio
	err    error
}

// growRequest is preallocated by the recorder. It's not modified until the
// response is received.
type growRequest struct {
	captured  signal.Buffer
	frames    int
	responses chan<- response
}

// finishRequest is preallocated by the recorder as well.
type finishRequest struct {
	captured  signal.Buffer
	frameRate float64
	bitDepth  signal.BitDepth
	file      string
	responses chan<- response
}

// NewWorker returns a worker. Nil logger means default one.
func NewWorker(logger log.Logger) *Worker {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Worker{
		requests: make(chan request, requestBufferSize),
		quit:     make(chan struct{}),
		logger:   logger,
	}
}

// Run serves requests until context is done or worker is closed. Requests
// which are not served yet are discarded.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Debug("recorder worker started")
	defer w.logger.Debug("recorder worker stopped")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.quit:
			return nil
		case r := <-w.requests:
			r.handle(w)
		}
	}
}

// Close stops the worker. It's safe to call it multiple times.
func (w *Worker) Close() {
	w.once.Do(func() {
		close(w.quit)
	})
}

// send doesn't block. False is returned if worker is overloaded.
func (w *Worker) send(r request) bool {
	select {
	case w.requests <- r:
		return true
	default:
		return false
	}
}

// reply doesn't block either. The recorder might be gone already.
func (w *Worker) reply(responses chan<- response, r response) {
	select {
	case responses <- r:
	default:
		w.logger.Warn("recorder response dropped")
	}
}

func (r *growRequest) handle(w *Worker) {
	snapshot := r.captured.FrameCount()
	capture := r.captured.Grow(r.frames)
	w.logger.WithFields(logrus.Fields{
		"frames":   r.frames,
		"captured": snapshot,
	}).Debug("capture grown")
	w.reply(r.responses, response{
		kind:     grown,
		capture:  capture,
		snapshot: snapshot,
	})
}

func (r *finishRequest) handle(w *Worker) {
	m, err := r.material()
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"file": r.file,
		}).Error(err)
		w.reply(r.responses, response{kind: finished, err: err})
		return
	}
	w.logger.WithFields(logrus.Fields{
		"file":   r.file,
		"frames": m.FrameCount(),
	}).Info("recording finished")
	w.reply(r.responses, response{kind: finished, source: source.NewAudio(m)})
}

// material copies captured frames into owned memory. If file is set, the
// recording is encoded and the material is read back from the file, so it
// sounds exactly like the stored result.
func (r *finishRequest) material() (*source.Material, error) {
	if r.file == "" {
		samples := signal.NewBuffer(r.captured.ChannelCount(), r.captured.FrameCount())
		samples.CopyFrom(r.captured)
		return source.NewMaterial(samples, r.frameRate)
	}
	if err := source.SaveWav(r.file, r.captured, int(r.frameRate), r.bitDepth); err != nil {
		return nil, errors.Wrap(err, "encode recording")
	}
	m, err := source.LoadWav(r.file)
	return m, errors.Wrap(err, "load recording")
}
