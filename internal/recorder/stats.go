package recorder

import (
	"math"
	"sync/atomic"
	"time"
)

// ChannelStats accumulates per-channel ingest statistics. All fields except
// the atomic counters are written only by the channel's own callback
// goroutine; cross-thread readers (the gain-change producer, the status
// endpoint) use the atomics and tolerate staleness elsewhere.
type ChannelStats struct {
	totalSamples   atomic.Uint64
	droppedSamples atomic.Uint64
	gainChanges    atomic.Uint64

	earliestCallback time.Time
	latestCallback   time.Time
	numSamplesMin    uint32
	numSamplesMax    uint32
	imin, imax       int16
	qmin, qmax       int16
}

func newChannelStats() *ChannelStats {
	return &ChannelStats{
		numSamplesMin: math.MaxUint32,
		imin:          math.MaxInt16,
		imax:          math.MinInt16,
		qmin:          math.MaxInt16,
		qmax:          math.MinInt16,
	}
}

// TotalSamples returns the cumulative ingested sample count.
func (c *ChannelStats) TotalSamples() uint64 {
	return c.totalSamples.Load()
}

// DroppedSamples returns the cumulative dropped-sample count.
func (c *ChannelStats) DroppedSamples() uint64 {
	return c.droppedSamples.Load()
}

// GainChanges returns the number of gain-change events seen on this channel.
func (c *ChannelStats) GainChanges() uint64 {
	return c.gainChanges.Load()
}

// observe records the arrival of one callback with n samples.
func (c *ChannelStats) observe(now time.Time, n uint32) {
	c.latestCallback = now
	if c.earliestCallback.IsZero() {
		c.earliestCallback = now
	}
	c.totalSamples.Add(uint64(n))
	if n < c.numSamplesMin {
		c.numSamplesMin = n
	}
	if n > c.numSamplesMax {
		c.numSamplesMax = n
	}
}

// observeRange folds the I/Q payload extremes into the running min/max.
func (c *ChannelStats) observeRange(xi, xq []int16) {
	for _, v := range xi {
		if v < c.imin {
			c.imin = v
		}
		if v > c.imax {
			c.imax = v
		}
	}
	for _, v := range xq {
		if v < c.qmin {
			c.qmin = v
		}
		if v > c.qmax {
			c.qmax = v
		}
	}
}

// Elapsed returns the wall-clock span between the first and last callback.
func (c *ChannelStats) Elapsed() time.Duration {
	if c.earliestCallback.IsZero() {
		return 0
	}
	return c.latestCallback.Sub(c.earliestCallback)
}

// SampleRate estimates the actual device sample rate from callback timing.
func (c *ChannelStats) SampleRate() float64 {
	elapsed := c.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.totalSamples.Load()) / elapsed
}

// DynamicRange returns the observed I/Q dynamic range in dBFS.
func (c *ChannelStats) DynamicRange() float64 {
	return dynamicRange(c.imin, c.imax, c.qmin, c.qmax)
}

func dynamicRange(imin, imax, qmin, qmax int16) float64 {
	peak := 0.0
	for _, v := range [...]struct {
		val  int16
		full float64
	}{
		{imin, math.MinInt16},
		{imax, math.MaxInt16},
		{qmin, math.MinInt16},
		{qmax, math.MaxInt16},
	} {
		if r := float64(v.val) / v.full; r > peak {
			peak = r
		}
	}
	return 20.0 * math.Log10(peak)
}

// WriteStats accumulates output-path statistics. Written only by the stream
// loop goroutine.
type WriteStats struct {
	DataSize          uint64
	OutputSamples     uint64
	TotalWrites       uint64
	TotalWriteElapsed time.Duration
	MaxWriteElapsed   time.Duration
	FullWrites        uint64
	PartialWrites     uint64
	ZeroWrites        uint64
}

// AvgWriteElapsed returns the mean per-write latency.
func (w *WriteStats) AvgWriteElapsed() time.Duration {
	if w.TotalWrites == 0 {
		return 0
	}
	return w.TotalWriteElapsed / time.Duration(w.TotalWrites)
}

// ChannelSummary is the JSON-encodable per-channel slice of a Summary.
type ChannelSummary struct {
	Channel        string  `json:"channel"`
	TotalSamples   uint64  `json:"total_samples"`
	DroppedSamples uint64  `json:"dropped_samples"`
	ElapsedSec     float64 `json:"elapsed_sec"`
	SampleRate     float64 `json:"sample_rate"`
	IMin           int16   `json:"i_min"`
	IMax           int16   `json:"i_max"`
	QMin           int16   `json:"q_min"`
	QMax           int16   `json:"q_max"`
	DynamicRangeDB float64 `json:"dynamic_range_dbfs"`
	SamplesMin     uint32  `json:"samples_per_callback_min"`
	SamplesMax     uint32  `json:"samples_per_callback_max"`
	GainChanges    uint64  `json:"gain_changes"`
}

// BufferSummary reports a ring's high-water mark against its capacity.
type BufferSummary struct {
	PeakUsed uint32 `json:"peak_used"`
	Capacity uint32 `json:"capacity"`
}

// Summary is the end-of-session (or live) statistics snapshot.
type Summary struct {
	Status           string           `json:"status"`
	Channels         []ChannelSummary `json:"channels"`
	OutputSamples    uint64           `json:"output_samples"`
	DataSize         uint64           `json:"data_size"`
	TotalWrites      uint64           `json:"total_writes"`
	FullWrites       uint64           `json:"full_writes"`
	PartialWrites    uint64           `json:"partial_writes"`
	ZeroWrites       uint64           `json:"zero_writes"`
	AvgWriteElapsed  float64          `json:"avg_write_elapsed_sec"`
	MaxWriteElapsed  float64          `json:"max_write_elapsed_sec"`
	BlocksBuffer     BufferSummary    `json:"blocks_buffer"`
	SamplesBuffer    BufferSummary    `json:"samples_buffer"`
	GainChangeBuffer BufferSummary    `json:"gain_changes_buffer"`
	StartedAt        time.Time        `json:"started_at"`
	StoppedAt        time.Time        `json:"stopped_at"`
	Markers          []TimeMarker     `json:"-"`
}
