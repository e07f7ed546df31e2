package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrAborted is returned by Run when the session ends in any terminal state
// other than DONE.
var ErrAborted = errors.New("session aborted")

// Run executes the stream loop: it drains descriptors from the block ring,
// pairs channels into frames, applies the gap policy, interleaves the
// payloads and writes them to the output sink, and periodically flushes
// buffered gain-change events. It is the only goroutine allowed to block or
// to perform slow I/O, and it returns once the session reaches a terminal
// status.
func (s *Session) Run() error {
	s.status.v.CompareAndSwap(int32(StatusStarting), int32(StatusRunning))

	nrx := uint32(s.params.Channels)
	next := sentinelSeq

	for {
		st := s.status.Load()
		if st != StatusRunning && st != StatusTerminate {
			break
		}

		s.blocks.AwaitReady(nrx, func() bool { return s.status.Load().Terminal() })

		for s.blocks.Ready() >= nrx {
			s.blocks.TakeReady(nrx)
			s.processFrame(nrx, &next)

			st = s.status.Load()
			if st != StatusRunning && st != StatusTerminate {
				break
			}
		}

		if s.gains != nil {
			s.drainGainChanges()
		}
	}

	if st := s.status.Load(); st != StatusDone {
		return fmt.Errorf("%w: %s", ErrAborted, st)
	}
	return nil
}

// processFrame consumes exactly nrx descriptors as one frame. Descriptor and
// payload capacity is released on every path, including protocol failures
// and the end-of-stream frame.
func (s *Session) processFrame(nrx uint32, next *uint32) {
	var blockA, blockB *BlockDescriptor

	defer func() {
		s.blocks.Release(nrx)
		var n uint32
		if blockA != nil {
			n += blockA.NumSamples
		}
		if blockB != nil {
			n += blockB.NumSamples
		}
		if n > 0 {
			// Both I and Q halves were held per sample.
			s.samples.Release(2 * n)
		}
	}()

	blockA = s.blocks.At(s.blocks.ReadIndex())
	s.blocks.AdvanceRead(1)
	if nrx == 2 {
		blockB = s.blocks.At(s.blocks.ReadIndex())
		s.blocks.AdvanceRead(1)
	}

	if !s.validateFrame(blockA, blockB, nrx) {
		return
	}

	first := blockA.FirstSampleNum
	numSamples := blockA.NumSamples
	if numSamples == 0 {
		s.status.Store(StatusDone)
		return
	}

	if *next != sentinelSeq && first != *next {
		if !s.handleGap(*next, first, nrx) {
			return
		}
	}
	*next = NextSequence(first, numSamples, uint32(s.params.Decimation))

	n := s.interleave(blockA, blockB, nrx)
	if !s.writeOut(s.scratch[:n]) {
		return
	}
	s.write.OutputSamples += uint64(numSamples)
	if s.met != nil {
		s.met.AddOutputSamples(uint64(numSamples))
	}
}

// validateFrame enforces hard cross-channel alignment: matching channel tags
// in A-then-B order, identical leading sequence and identical sample count.
// Any mismatch is a non-recoverable protocol error.
func (s *Session) validateFrame(blockA, blockB *BlockDescriptor, nrx uint32) bool {
	if nrx == 1 {
		if blockA.Channel != ChannelA {
			s.log.Error("invalid channel tag",
				slog.String("channel", blockA.Channel.String()),
			)
			s.fail(StatusFailed)
			return false
		}
		return true
	}
	if blockA.Channel != ChannelA || blockB.Channel != ChannelB {
		s.log.Error("channel tag mismatch",
			slog.String("first", blockA.Channel.String()),
			slog.String("second", blockB.Channel.String()),
		)
		s.fail(StatusFailed)
		return false
	}
	if blockA.FirstSampleNum != blockB.FirstSampleNum {
		s.log.Error("first sample number mismatch",
			slog.Uint64("channel_a", uint64(blockA.FirstSampleNum)),
			slog.Uint64("channel_b", uint64(blockB.FirstSampleNum)),
		)
		s.fail(StatusFailed)
		return false
	}
	if blockA.NumSamples != blockB.NumSamples {
		s.log.Error("sample count mismatch",
			slog.Uint64("channel_a", uint64(blockA.NumSamples)),
			slog.Uint64("channel_b", uint64(blockB.NumSamples)),
		)
		s.fail(StatusFailed)
		return false
	}
	return true
}

// handleGap applies the gap policy: gaps up to the configured threshold are
// zero-filled into the output (bounded by the 4x capacity invariant on the
// scratch buffer), larger gaps are skipped with no synthesized bytes.
func (s *Session) handleGap(next, first uint32, nrx uint32) bool {
	gap := seqGap(next, first)
	fill := gap <= s.params.ZeroGapMax

	action := "skipping gap"
	if fill {
		action = "filling gap with zeros"
	}
	s.log.Warn("dropped samples",
		slog.Uint64("dropped", uint64(gap)),
		slog.Uint64("expected", uint64(next)),
		slog.Uint64("observed", uint64(first)),
		slog.String("action", action),
	)

	if !fill {
		if s.met != nil {
			s.met.AddSkippedGapSamples(uint64(gap))
		}
		return true
	}

	nbytes := int(gap) * int(nrx) * 2 * 2
	clear(s.scratch[:nbytes])
	if !s.writeOut(s.scratch[:nbytes]) {
		return false
	}
	s.write.OutputSamples += uint64(gap)
	if s.met != nil {
		s.met.AddZeroFilledSamples(uint64(gap))
		s.met.AddOutputSamples(uint64(gap))
	}
	return true
}

// interleave rearranges the per-channel I/Q halves into output order in the
// scratch buffer, little-endian: single channel I,Q,I,Q,...; dual channel
// I_A,Q_A,I_B,Q_B,... Returns the number of scratch bytes produced.
func (s *Session) interleave(blockA, blockB *BlockDescriptor, nrx uint32) int {
	count := blockA.NumSamples
	stride := int(nrx) * 2 * 2
	buf := s.samples.Buf()

	lane := func(start uint32, laneIdx int) {
		off := laneIdx * 2
		for i := uint32(0); i < count; i++ {
			binary.LittleEndian.PutUint16(s.scratch[off:], uint16(buf[start+i]))
			off += stride
		}
	}

	lane(blockA.SamplesIndex, 0)
	lane(blockA.SamplesIndex+count, 1)
	if nrx == 2 {
		lane(blockB.SamplesIndex, 2)
		lane(blockB.SamplesIndex+count, 3)
	}
	return int(count) * stride
}

// writeOut writes buf to the output sink, re-attempting short writes in
// place and accounting per-write latency and size statistics. Any write
// error is immediately fatal; there are no retries beyond the short-write
// continuation and no timeouts.
func (s *Session) writeOut(buf []byte) bool {
	for len(buf) > 0 {
		before := time.Now()
		n, err := s.out.Write(buf)
		elapsed := time.Since(before)

		s.write.TotalWrites++
		s.write.TotalWriteElapsed += elapsed
		if elapsed > s.write.MaxWriteElapsed {
			s.write.MaxWriteElapsed = elapsed
		}
		if err != nil {
			s.log.Error("write samples failed", slog.String("error", err.Error()))
			s.fail(StatusFailed)
			return false
		}
		switch {
		case n == len(buf):
			s.write.FullWrites++
		case n == 0:
			s.write.ZeroWrites++
		default:
			s.write.PartialWrites++
		}
		s.write.DataSize += uint64(n)
		if s.met != nil {
			s.met.ObserveWrite(n, n == len(buf))
		}
		buf = buf[n:]
	}
	return true
}
