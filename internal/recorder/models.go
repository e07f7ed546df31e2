package recorder

import (
	"errors"
	"fmt"
	"time"
)

// Channel identifies one tuner's independent sample stream.
type Channel uint8

const (
	ChannelA Channel = iota
	ChannelB
)

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	default:
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
}

// sentinelSeq marks an uninitialized expected-next-sequence. The device
// counter is 32-bit and wraps, so the sentinel is only trusted before the
// first block is observed.
const sentinelSeq uint32 = 0xffffffff

// BlockDescriptor points to one ingested payload range in the sample ring.
// Exactly one descriptor is produced per device callback invocation; a
// NumSamples of zero signals graceful end-of-stream for the channel.
type BlockDescriptor struct {
	FirstSampleNum uint32
	NumSamples     uint32
	SamplesIndex   uint32
	Channel        Channel
}

// GainChange is one discrete gain-change event. SampleNum is the cumulative
// sample count of the affected channel at the time of the change (zero while
// the session is still starting).
type GainChange struct {
	SampleNum       uint64
	Gain            float32
	Channel         Channel
	GainReductionDB uint8
	LNAReductionDB  uint8
}

// GainChangeRecordSize is the fixed on-disk size of one gain-change record:
// u64 sample_num, f32 gain, u8 channel, u8 gain reduction, u8 LNA reduction,
// one pad byte. Little-endian.
const GainChangeRecordSize = 16

// TimeMarker pairs a wall-clock timestamp with the cumulative sample count
// observed at that instant, for offline timing reconstruction.
type TimeMarker struct {
	TS        time.Time
	SampleNum uint64
}

// Params are the session parameters, fixed externally before start and not
// reconfigurable mid-session.
type Params struct {
	// Channels is the number of active tuner streams, 1 or 2.
	Channels int
	// BlocksCapacity is the descriptor ring capacity.
	BlocksCapacity uint32
	// SamplesCapacity is the sample ring capacity in int16 slots
	// (each payload occupies 2*NumSamples slots: I then Q).
	SamplesCapacity uint32
	// GainChangesCapacity is the gain-change ring capacity; zero disables
	// gain-change capture entirely.
	GainChangesCapacity uint32
	// ZeroGapMax is the zero-fill threshold: sequence gaps of at most this
	// many samples are synthesized as zero-valued frames, larger gaps are
	// skipped silently.
	ZeroGapMax uint32
	// Decimation is the device's internal decimation factor, needed to
	// reproduce its sequence-number rounding for drop accounting.
	Decimation int
	// MarkerInterval is the wall-clock spacing of time-marker log entries;
	// zero disables the marker log.
	MarkerInterval time.Duration
	// Duration is the planned streaming time, used to size the marker log.
	Duration time.Duration
}

var (
	errChannels     = errors.New("channel count must be 1 or 2")
	errCapacity     = errors.New("buffer capacities must be positive")
	errZeroGapRatio = errors.New("samples buffer capacity must be at least 4x the zero-fill threshold")
	errDecimation   = errors.New("decimation must be at least 1")
)

// Validate checks the parameter invariants from the session contract.
func (p Params) Validate() error {
	if p.Channels != 1 && p.Channels != 2 {
		return fmt.Errorf("%w: got %d", errChannels, p.Channels)
	}
	if p.BlocksCapacity == 0 || p.SamplesCapacity == 0 {
		return errCapacity
	}
	if 4*p.ZeroGapMax > p.SamplesCapacity {
		return fmt.Errorf("%w: threshold=%d capacity=%d", errZeroGapRatio, p.ZeroGapMax, p.SamplesCapacity)
	}
	if p.Decimation < 1 {
		return errDecimation
	}
	return nil
}

// markerSlots returns the marker log preallocation: one slot per interval over
// the planned duration, plus two extra for the start marker and truncation.
func (p Params) markerSlots() int {
	if p.MarkerInterval <= 0 || p.Duration <= 0 {
		return 0
	}
	return int(p.Duration/p.MarkerInterval) + 2
}
