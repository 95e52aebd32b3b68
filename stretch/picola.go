package stretch

import "math"

const (
	// pitch range searched for periods, Hz.
	minPitch = 65
	maxPitch = 400
	// pitch is detected on material averaged down to this rate.
	amdfRate = 4000
)

// picola changes speed of interleaved material without changing its pitch.
// It drops or repeats whole pitch periods and crossfades the seams
// (pointer interval controlled overlap and add). Frames between seams are
// copied unmodified.
type picola struct {
	channels    int
	minPeriod   int
	maxPeriod   int
	maxRequired int
	skip        int
	speed       float64

	input   []float64
	pos     int
	output  []float64
	outRead int
	mono    []float64
	// frames to copy unmodified before the next seam.
	carry float64
}

func newPicola(rate, channels int) *picola {
	p := picola{
		channels:  channels,
		minPeriod: max(rate/maxPitch, 1),
		maxPeriod: rate / minPitch,
		skip:      1,
		speed:     1,
	}
	p.maxPeriod = max(p.maxPeriod, p.minPeriod+1)
	p.maxRequired = 2 * p.maxPeriod
	if rate > amdfRate {
		p.skip = rate / amdfRate
	}
	p.input = make([]float64, 0, 2*p.maxRequired*channels)
	p.output = make([]float64, 0, 2*p.maxRequired*channels)
	p.mono = make([]float64, 0, p.maxRequired/p.skip+1)
	return &p
}

func (p *picola) setSpeed(speed float64) {
	p.speed = speed
}

func (p *picola) inputFrames() int {
	return (len(p.input) - p.pos) / p.channels
}

// available returns the number of frames ready to read.
func (p *picola) available() int {
	return (len(p.output) - p.outRead) / p.channels
}

// write appends interleaved samples and processes as much as possible.
func (p *picola) write(samples []float64) {
	if p.pos > 0 {
		n := copy(p.input, p.input[p.pos:])
		p.input = p.input[:n]
		p.pos = 0
	}
	p.input = append(p.input, samples...)
	p.process()
}

// read copies processed frames into dst and returns the number of frames.
func (p *picola) read(dst []float64) int {
	n := copy(dst, p.output[p.outRead:])
	p.outRead += n
	if p.outRead == len(p.output) {
		p.output = p.output[:0]
		p.outRead = 0
	}
	return n / p.channels
}

// flush processes the remaining input padded with silence. Output is
// truncated to the length the remaining input maps to.
func (p *picola) flush() {
	expected := p.available() + int(math.Round(float64(p.inputFrames())/p.speed))
	for i := 0; i < 2*p.maxRequired*p.channels; i++ {
		p.input = append(p.input, 0)
	}
	p.process()
	if p.available() > expected {
		p.output = p.output[:p.outRead+expected*p.channels]
	}
	p.input = p.input[:0]
	p.pos = 0
	p.carry = 0
}

func (p *picola) reset() {
	p.input = p.input[:0]
	p.pos = 0
	p.output = p.output[:0]
	p.outRead = 0
	p.carry = 0
}

func (p *picola) process() {
	if p.outRead > 0 {
		n := copy(p.output, p.output[p.outRead:])
		p.output = p.output[:n]
		p.outRead = 0
	}
	if p.speed > 0.99999 && p.speed < 1.00001 {
		p.output = append(p.output, p.input[p.pos:]...)
		p.pos = len(p.input)
		return
	}
	for {
		frames := p.inputFrames()
		if p.carry >= 1 && frames > 0 {
			n := min(int(p.carry), frames)
			p.output = append(p.output, p.input[p.pos:p.pos+n*p.channels]...)
			p.pos += n * p.channels
			p.carry -= float64(n)
			continue
		}
		if frames < p.maxRequired {
			return
		}
		period := p.findPeriod()
		if p.speed > 1 {
			p.skipPeriod(period)
		} else {
			p.insertPeriod(period)
		}
	}
}

// skipPeriod drops one pitch period or a part of it for speed >= 2.
func (p *picola) skipPeriod(period int) {
	n := period
	if p.speed >= 2 {
		n = max(int(math.Round(float64(period)/(p.speed-1))), 1)
	} else {
		p.carry += float64(period) * (2 - p.speed) / (p.speed - 1)
	}
	p.overlapAdd(n, period, false)
	p.pos += (n + period) * p.channels
}

// insertPeriod repeats one pitch period or a part of it for speed <= 0.5.
func (p *picola) insertPeriod(period int) {
	n := period
	if p.speed <= 0.5 {
		n = max(int(float64(period)*p.speed/(1-p.speed)), 1)
	} else {
		p.carry += float64(period) * (2*p.speed - 1) / (1 - p.speed)
	}
	p.output = append(p.output, p.input[p.pos:p.pos+period*p.channels]...)
	p.overlapAdd(n, period, true)
	p.pos += n * p.channels
}

// overlapAdd crossfades n frames of two segments one period apart. The
// earlier segment fades out unless reversed.
func (p *picola) overlapAdd(n, period int, reversed bool) {
	in := p.input[p.pos:]
	offset := period * p.channels
	for i := 0; i < n; i++ {
		up := float64(i) / float64(n)
		for c := 0; c < p.channels; c++ {
			j := i*p.channels + c
			down, rise := in[j], in[j+offset]
			if reversed {
				down, rise = rise, down
			}
			p.output = append(p.output, down*(1-up)+rise*up)
		}
	}
}

// findPeriod estimates the pitch period at the input head with average
// magnitude difference on a downmixed and downsampled copy.
func (p *picola) findPeriod() int {
	in := p.input[p.pos:]
	width := p.skip * p.channels
	p.mono = p.mono[:0]
	for i := 0; i < p.maxRequired/p.skip; i++ {
		var v float64
		for _, s := range in[i*width : (i+1)*width] {
			v += s
		}
		p.mono = append(p.mono, v/float64(width))
	}
	period := amdf(p.mono, max(p.minPeriod/p.skip, 1), p.maxPeriod/p.skip) * p.skip
	return min(max(period, p.minPeriod), p.maxPeriod)
}

// amdf returns the period with the smallest normalized difference. x holds
// at least 2*maxPeriod samples.
func amdf(x []float64, minPeriod, maxPeriod int) int {
	best, bestDiff := 0, 0.0
	for period := minPeriod; period <= maxPeriod; period++ {
		var diff float64
		for i := 0; i < period; i++ {
			diff += math.Abs(x[i] - x[i+period])
		}
		if best == 0 || diff*float64(best) < bestDiff*float64(period) {
			best, bestDiff = period, diff
		}
	}
	return best
}
