package recorder

import (
	"encoding/binary"
	"log/slog"
	"math"
)

// drainGainChanges flushes all buffered gain-change events to the gains sink
// in FIFO order. Called at most once per outer wait cycle of the stream loop.
// Capacity is released even when a write fails mid-drain.
func (s *Session) drainGainChanges() {
	nready := s.gains.Ready()
	if nready == 0 {
		return
	}
	s.gains.TakeReady(nready)
	defer s.gains.Release(nready)

	var rec [GainChangeRecordSize]byte
	for i := uint32(0); i < nready; i++ {
		gc := s.gains.At(s.gains.ReadIndex())
		s.gains.AdvanceRead(1)
		encodeGainChange(rec[:], gc)
		if !s.writeGains(rec[:]) {
			return
		}
	}
}

// writeGains writes one encoded record to the gains sink, re-attempting
// short writes. A write error is fatal, same as on the sample path.
func (s *Session) writeGains(buf []byte) bool {
	for len(buf) > 0 {
		n, err := s.gainsOut.Write(buf)
		if err != nil {
			s.log.Error("write gains failed", slog.String("error", err.Error()))
			s.fail(StatusFailed)
			return false
		}
		buf = buf[n:]
	}
	return true
}

// encodeGainChange serializes one gain-change event into the fixed 16-byte
// little-endian record layout read by the offline gains tooling.
func encodeGainChange(dst []byte, gc *GainChange) {
	binary.LittleEndian.PutUint64(dst[0:8], gc.SampleNum)
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(gc.Gain))
	dst[12] = uint8(gc.Channel)
	dst[13] = gc.GainReductionDB
	dst[14] = gc.LNAReductionDB
	dst[15] = 0
}
