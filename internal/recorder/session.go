package recorder

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"iq-recorder/internal/platform/metrics"
)

// Session is one recording run: it owns the three ring buffers, the
// statistics, and the lifecycle status, implements the capture Handler on the
// producer side, and drives the output sink from the stream loop on the
// consumer side. A session is single-use; after it reaches a terminal status
// a new session must be created from scratch.
type Session struct {
	params Params
	log    *slog.Logger
	met    *metrics.Metrics

	status lifecycle

	blocks  *Ring[BlockDescriptor]
	samples *Ring[int16]
	gains   *Ring[GainChange]

	out      io.Writer
	gainsOut io.Writer

	rx [2]rxState
	ti timeInfo

	write   WriteStats
	scratch []byte

	// leadingSeq is the most recent leading sequence number reported by
	// channel A, used for the soft cross-channel alignment check.
	leadingSeq atomic.Uint32

	now func() time.Time
}

// rxState is the per-channel producer state. Each channel's callbacks are
// never concurrent with themselves, so no locking is needed here.
type rxState struct {
	nextSampleNum uint32
	eosSent       bool
	stats         *ChannelStats
}

// timeInfo holds the session timestamps and the bounded time-marker log,
// maintained by the primary channel's callbacks only.
type timeInfo struct {
	startTS  time.Time
	stopTS   time.Time
	markers  []TimeMarker
	interval time.Duration
	curTick  int64
}

// NewSession builds a session from validated parameters. out receives the
// interleaved sample stream; gainsOut is optional and receives the
// gain-change event stream. met may be nil to disable metrics (e.g. tests).
func NewSession(p Params, out io.Writer, gainsOut io.Writer, log *slog.Logger, met *metrics.Metrics) (*Session, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		params:   p,
		log:      log,
		met:      met,
		blocks:   NewRing[BlockDescriptor](p.BlocksCapacity),
		samples:  NewRing[int16](p.SamplesCapacity),
		out:      out,
		gainsOut: gainsOut,
		scratch:  make([]byte, 2*p.SamplesCapacity),
		now:      time.Now,
	}
	if gainsOut != nil && p.GainChangesCapacity > 0 {
		s.gains = NewRing[GainChange](p.GainChangesCapacity)
	}
	for i := range s.rx {
		s.rx[i] = rxState{nextSampleNum: sentinelSeq, stats: newChannelStats()}
	}
	s.ti = timeInfo{
		markers:  make([]TimeMarker, 0, p.markerSlots()),
		interval: p.MarkerInterval,
	}
	s.leadingSeq.Store(sentinelSeq)
	s.status.Store(StatusStarting)
	return s, nil
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	return s.status.Load()
}

// RequestStop asks a running session to terminate gracefully. The flag alone
// stops nothing: each producer emits one final zero-length descriptor, and the
// stream loop reaches DONE after flushing everything buffered before it.
func (s *Session) RequestStop() {
	if s.status.RequestTerminate() {
		s.log.Info("termination requested")
	}
}

// fail moves the session to a terminal status and wakes the stream loop in
// case it is parked on the descriptor condition with nothing left to arrive.
func (s *Session) fail(st Status) {
	s.status.Store(st)
	s.blocks.Wake()
}

// ChannelStats returns the ingest statistics for ch.
func (s *Session) ChannelStats(ch Channel) *ChannelStats {
	return s.rx[ch].stats
}

// WriteStats returns the output-path statistics. Stable once the stream loop
// has exited; racy but tolerated while it is running.
func (s *Session) WriteStats() WriteStats {
	return s.write
}

// Markers returns the time-marker log collected so far.
func (s *Session) Markers() []TimeMarker {
	return s.ti.markers
}

// StartedAt returns the latched session-start timestamp.
func (s *Session) StartedAt() time.Time {
	return s.ti.startTS
}

// StoppedAt returns the latched session-stop timestamp.
func (s *Session) StoppedAt() time.Time {
	return s.ti.stopTS
}

// RefreshBufferGauges pushes the current ring occupancy into the metrics
// gauges; intended as the pre-scrape refresh hook.
func (s *Session) RefreshBufferGauges(met *metrics.Metrics) {
	met.SetBufferUsage("blocks", s.blocks.Used(), s.blocks.PeakUsed())
	met.SetBufferUsage("samples", s.samples.Used(), s.samples.PeakUsed())
	if s.gains != nil {
		met.SetBufferUsage("gain_changes", s.gains.Used(), s.gains.PeakUsed())
	}
}

// Summary assembles the statistics snapshot reported at session end and by
// the status endpoint.
func (s *Session) Summary() Summary {
	sum := Summary{
		Status:          s.status.Load().String(),
		OutputSamples:   s.write.OutputSamples,
		DataSize:        s.write.DataSize,
		TotalWrites:     s.write.TotalWrites,
		FullWrites:      s.write.FullWrites,
		PartialWrites:   s.write.PartialWrites,
		ZeroWrites:      s.write.ZeroWrites,
		AvgWriteElapsed: s.write.AvgWriteElapsed().Seconds(),
		MaxWriteElapsed: s.write.MaxWriteElapsed.Seconds(),
		BlocksBuffer:    BufferSummary{PeakUsed: s.blocks.PeakUsed(), Capacity: s.blocks.Capacity()},
		SamplesBuffer:   BufferSummary{PeakUsed: s.samples.PeakUsed(), Capacity: s.samples.Capacity()},
		StartedAt:       s.ti.startTS,
		StoppedAt:       s.ti.stopTS,
		Markers:         s.ti.markers,
	}
	if s.gains != nil {
		sum.GainChangeBuffer = BufferSummary{PeakUsed: s.gains.PeakUsed(), Capacity: s.gains.Capacity()}
	}
	for i := 0; i < s.params.Channels; i++ {
		ch := Channel(i)
		st := s.rx[i].stats
		sum.Channels = append(sum.Channels, ChannelSummary{
			Channel:        ch.String(),
			TotalSamples:   st.TotalSamples(),
			DroppedSamples: st.DroppedSamples(),
			ElapsedSec:     st.Elapsed().Seconds(),
			SampleRate:     st.SampleRate(),
			IMin:           st.imin,
			IMax:           st.imax,
			QMin:           st.qmin,
			QMax:           st.qmax,
			DynamicRangeDB: st.DynamicRange(),
			SamplesMin:     st.numSamplesMin,
			SamplesMax:     st.numSamplesMax,
			GainChanges:    st.GainChanges(),
		})
	}
	return sum
}

// LogSummary emits the end-of-session report the way the stats printer did.
func (s *Session) LogSummary() {
	sum := s.Summary()
	for _, ch := range sum.Channels {
		s.log.Info("channel summary",
			slog.String("channel", ch.Channel),
			slog.Uint64("total_samples", ch.TotalSamples),
			slog.Uint64("dropped_samples", ch.DroppedSamples),
			slog.Float64("elapsed_sec", ch.ElapsedSec),
			slog.Float64("actual_sample_rate", ch.SampleRate),
			slog.Int("i_min", int(ch.IMin)),
			slog.Int("i_max", int(ch.IMax)),
			slog.Int("q_min", int(ch.QMin)),
			slog.Int("q_max", int(ch.QMax)),
			slog.Float64("dynamic_range_dbfs", ch.DynamicRangeDB),
			slog.Uint64("gain_changes", ch.GainChanges),
		)
	}
	s.log.Info("session summary",
		slog.String("status", sum.Status),
		slog.Uint64("output_samples", sum.OutputSamples),
		slog.Uint64("data_size", sum.DataSize),
		slog.Uint64("total_writes", sum.TotalWrites),
		slog.Uint64("full_writes", sum.FullWrites),
		slog.Uint64("partial_writes", sum.PartialWrites),
		slog.Uint64("zero_writes", sum.ZeroWrites),
		slog.Float64("avg_write_elapsed_sec", sum.AvgWriteElapsed),
		slog.Float64("max_write_elapsed_sec", sum.MaxWriteElapsed),
		slog.String("blocks_buffer_usage", usage(sum.BlocksBuffer)),
		slog.String("samples_buffer_usage", usage(sum.SamplesBuffer)),
	)
}

func usage(b BufferSummary) string {
	return fmt.Sprintf("%d/%d", b.PeakUsed, b.Capacity)
}
