package metric_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/clip/metric"
)

func TestMeter(t *testing.T) {
	sampleRate := 44100.0
	pint := 1
	// test cases
	var tests = []struct {
		component          interface{}
		routines           int
		blocks             int
		blockSize          int
		expectedFrames     string
		expectedComponents string
		expectedDuration   string
	}{
		{
			component:          int(1),
			routines:           2,
			blocks:             10,
			blockSize:          441,
			expectedFrames:     "8820",
			expectedComponents: "2",
			expectedDuration:   "200ms",
		},
		{
			component:          &pint,
			routines:           2,
			blocks:             10,
			blockSize:          441,
			expectedFrames:     "17640",
			expectedComponents: "4",
			expectedDuration:   "400ms",
		},
		{
			component:          "chain",
			routines:           1,
			blocks:             5,
			blockSize:          4410,
			expectedFrames:     "22050",
			expectedComponents: "1",
			expectedDuration:   "500ms",
		},
	}
	// function to test meter.
	testFn := func(fn metric.MeasureFunc, wg *sync.WaitGroup, blocks, blockSize int) {
		for i := 0; i < blocks; i++ {
			fn(blockSize)
		}
		wg.Done()
	}

	for _, c := range tests {
		wg := &sync.WaitGroup{}
		wg.Add(c.routines)
		for i := 0; i < c.routines; i++ {
			go testFn(metric.Meter(c.component, sampleRate)(), wg, c.blocks, c.blockSize)
		}
		// check if no data race.
		wg.Wait()
		values := metric.Get(c.component)
		assert.Equal(t, c.expectedFrames, values[metric.FrameCounter])
		assert.Equal(t, c.expectedComponents, values[metric.ComponentCounter])
		assert.Equal(t, c.expectedDuration, values[metric.DurationCounter])
		assert.NotEmpty(t, values[metric.LatencyCounter])
	}
	assert.Contains(t, metric.GetAll(), "chain")
	assert.Contains(t, metric.GetAll(), "int")
}

func TestMeasureAllocations(t *testing.T) {
	measure := metric.Meter("allocations", 48000)()
	allocs := testing.AllocsPerRun(100, func() {
		measure(64)
	})
	assert.Equal(t, 0.0, allocs)
}
