package recorder

import (
	"log/slog"
	"math"
)

// OnSamples is invoked by the device layer once per channel per hardware
// notification, on a device-owned goroutine. It must return promptly and
// never blocks: any shortage of buffer space aborts the session instead.
// Invocations for the same channel are never concurrent with each other;
// the two channels may run concurrently.
func (s *Session) OnSamples(ch Channel, firstSampleNum uint32, xi, xq []int16, reset bool) {
	_ = reset

	st := s.status.Load()
	rx := &s.rx[ch]

	if ch == ChannelA {
		s.leadingSeq.Store(firstSampleNum)
		s.updateTimeInfo(rx.stats.TotalSamples(), st)
	} else if lead := s.leadingSeq.Load(); lead != sentinelSeq && lead != firstSampleNum {
		// Soft check only; hard alignment is enforced by the stream loop.
		s.log.Warn("leading sequence mismatch between channels",
			slog.Uint64("channel_a", uint64(lead)),
			slog.Uint64("channel_b", uint64(firstSampleNum)),
		)
	}

	if st == StatusTerminate {
		// Emit a single zero-length descriptor to signal end-of-stream for
		// this channel, no matter how many termination requests arrived.
		if !rx.eosSent && s.writeBlock(rx, ch, firstSampleNum, nil, nil) {
			rx.eosSent = true
		}
		return
	}
	if st != StatusRunning {
		return
	}

	numSamples := uint32(len(xi))
	rx.stats.observe(s.now(), numSamples)

	if rx.nextSampleNum != sentinelSeq && firstSampleNum != rx.nextSampleNum {
		dropped := seqGap(rx.nextSampleNum, firstSampleNum)
		rx.stats.droppedSamples.Add(uint64(dropped))
		if s.met != nil {
			s.met.AddDroppedSamples(ch.String(), dropped)
		}
	}
	rx.nextSampleNum = NextSequence(firstSampleNum, numSamples, uint32(s.params.Decimation))

	rx.stats.observeRange(xi, xq)

	s.writeBlock(rx, ch, firstSampleNum, xi, xq)
}

// OnGainChange is invoked by the device layer on discrete gain-change
// notifications. Events arriving while the session is starting are recorded
// with a sample number of zero.
func (s *Session) OnGainChange(ch Channel, gain float32, gainReductionDB, lnaReductionDB uint8) {
	st := s.status.Load()
	if st != StatusStarting && st != StatusRunning && st != StatusTerminate {
		return
	}
	s.rx[ch].stats.gainChanges.Add(1)
	if s.met != nil {
		s.met.IncGainChanges(ch.String())
	}
	if s.gains == nil {
		return
	}

	var sampleNum uint64
	if st != StatusStarting {
		sampleNum = s.rx[ch].stats.TotalSamples()
	}

	idx, err := s.gains.Reserve(1)
	if err != nil {
		s.log.Error("gain changes buffer full",
			slog.Uint64("capacity", uint64(s.gains.Capacity())),
		)
		if s.met != nil {
			s.met.IncOverflows("gain_changes")
		}
		s.fail(StatusGainChangesFull)
		return
	}
	*s.gains.At(idx) = GainChange{
		SampleNum:       sampleNum,
		Gain:            gain,
		Channel:         ch,
		GainReductionDB: gainReductionDB,
		LNAReductionDB:  lnaReductionDB,
	}
	s.gains.Publish(1)
}

// writeBlock reserves payload and descriptor space, copies the I then Q
// halves into the sample ring, and publishes the descriptor. A nil payload
// produces the zero-length end-of-stream descriptor. Returns false when the
// session was aborted by an overflow.
func (s *Session) writeBlock(rx *rxState, ch Channel, firstSampleNum uint32, xi, xq []int16) bool {
	numSamples := uint32(len(xi))

	var samplesIndex uint32
	if numSamples > 0 {
		var err error
		samplesIndex, err = s.samples.Reserve(2 * numSamples)
		if err != nil {
			s.log.Error("samples buffer full",
				slog.Uint64("requested", uint64(2*numSamples)),
				slog.Uint64("capacity", uint64(s.samples.Capacity())),
			)
			if s.met != nil {
				s.met.IncOverflows("samples")
			}
			s.fail(StatusSamplesFull)
			return false
		}
	}

	blockIndex, err := s.blocks.Reserve(1)
	if err != nil {
		s.log.Error("blocks buffer full",
			slog.Uint64("capacity", uint64(s.blocks.Capacity())),
		)
		if s.met != nil {
			s.met.IncOverflows("blocks")
		}
		s.fail(StatusBlocksFull)
		return false
	}

	if numSamples > 0 {
		buf := s.samples.Buf()
		copy(buf[samplesIndex:samplesIndex+numSamples], xi)
		copy(buf[samplesIndex+numSamples:samplesIndex+2*numSamples], xq)
	}

	*s.blocks.At(blockIndex) = BlockDescriptor{
		FirstSampleNum: firstSampleNum,
		NumSamples:     numSamples,
		SamplesIndex:   samplesIndex,
		Channel:        ch,
	}
	s.blocks.Publish(1)
	return true
}

// updateTimeInfo latches the session start/stop timestamps and appends to the
// time-marker log once per configured interval. Called from the primary
// channel's callbacks only.
func (s *Session) updateTimeInfo(sampleNum uint64, st Status) {
	switch st {
	case StatusRunning:
		now := s.now()
		if s.ti.startTS.IsZero() {
			s.ti.startTS = now
		}
		if s.ti.interval <= 0 {
			return
		}
		tick := now.UnixNano() / s.ti.interval.Nanoseconds()
		if tick > s.ti.curTick {
			// Appends past the preallocated capacity are dropped, not fatal.
			if len(s.ti.markers) < cap(s.ti.markers) {
				s.ti.markers = append(s.ti.markers, TimeMarker{TS: now, SampleNum: sampleNum})
			}
			s.ti.curTick = tick
		}
	case StatusTerminate, StatusDone:
		if s.ti.stopTS.IsZero() {
			s.ti.stopTS = s.now()
		}
	}
}

// seqGap computes the dropped-sample count between the expected and observed
// sequence numbers, exactly as the device's own accounting does, including
// the behavior on backwards jumps. Do not simplify this to a plain modular
// difference: large-scale discontinuities would be masked and drop accounting
// would diverge from the hardware layer's.
func seqGap(next, first uint32) uint32 {
	if next < first {
		return first - next
	}
	return math.MaxUint32 - (first - next) + 1
}

// NextSequence computes the sequence number the block following (first,
// count) carries. The rounding on the low two bits mirrors the device's
// internal decimation arithmetic and is required for drop-accounting parity;
// all arithmetic wraps over the 32-bit modulus. Simulated sources use it to
// reproduce the device's numbering.
func NextSequence(first, count, decimation uint32) uint32 {
	nsn := (first + count) * decimation
	if nsn%4 < 2 {
		nsn++
	}
	return nsn / decimation
}
