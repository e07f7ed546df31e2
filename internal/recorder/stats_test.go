package recorder

import (
	"math"
	"testing"
	"time"
)

func TestChannelStats_observe(t *testing.T) {
	c := newChannelStats()
	base := time.Unix(2000, 0)

	c.observe(base, 1024)
	c.observe(base.Add(time.Second), 512)
	c.observe(base.Add(2*time.Second), 1024)

	if got := c.TotalSamples(); got != 2560 {
		t.Errorf("expected 2560 total samples, got %d", got)
	}
	if c.numSamplesMin != 512 || c.numSamplesMax != 1024 {
		t.Errorf("expected callback size range [512,1024], got [%d,%d]", c.numSamplesMin, c.numSamplesMax)
	}
	if got := c.Elapsed(); got != 2*time.Second {
		t.Errorf("expected 2s elapsed, got %v", got)
	}
	if got := c.SampleRate(); got != 1280 {
		t.Errorf("expected 1280 samples/s, got %v", got)
	}
}

func TestChannelStats_SampleRate_zero_before_two_callbacks(t *testing.T) {
	c := newChannelStats()
	if got := c.SampleRate(); got != 0 {
		t.Errorf("expected 0 before any callback, got %v", got)
	}
	c.observe(time.Unix(2000, 0), 1024)
	if got := c.SampleRate(); got != 0 {
		t.Errorf("expected 0 with a single callback, got %v", got)
	}
}

func TestDynamicRange(t *testing.T) {
	// Full negative scale on I reaches exactly 0 dBFS.
	if got := dynamicRange(math.MinInt16, 0, 0, 0); got != 0 {
		t.Errorf("expected 0 dBFS at full scale, got %v", got)
	}

	// Half scale is about -6.02 dBFS.
	got := dynamicRange(0, 16384, 0, 0)
	if math.Abs(got-(-6.02)) > 0.01 {
		t.Errorf("expected about -6.02 dBFS at half scale, got %v", got)
	}
}

func TestWriteStats_AvgWriteElapsed(t *testing.T) {
	var w WriteStats
	if got := w.AvgWriteElapsed(); got != 0 {
		t.Errorf("expected 0 with no writes, got %v", got)
	}
	w.TotalWrites = 4
	w.TotalWriteElapsed = 200 * time.Millisecond
	if got := w.AvgWriteElapsed(); got != 50*time.Millisecond {
		t.Errorf("expected 50ms, got %v", got)
	}
}
