package capture

import (
	"math"
	"time"

	"iq-recorder/internal/recorder"
)

// SyntheticConfig configures the built-in signal generator.
type SyntheticConfig struct {
	Channels   int
	SampleRate float64
	// BlockSize is the number of samples delivered per callback.
	BlockSize uint32
	// Decimation feeds the device sequence-number arithmetic so the session's
	// drop accounting sees a gap-free stream.
	Decimation uint32
	// ToneHz is the frequency of the generated complex tone.
	ToneHz float64
	// Gain reported on gain-change events.
	Gain float32
	// GainChangeEvery injects a gain-change event at this interval; zero
	// disables event generation.
	GainChangeEvery time.Duration
	// DropEveryBlocks skips DropSize sequence numbers every N blocks to
	// exercise the gap policy; zero disables injection.
	DropEveryBlocks int
	DropSize        uint32
}

// Synthetic drives a Handler from its own goroutine the way a capture device
// would, generating a complex tone at a steady block cadence. It stands in
// for real hardware so the full pipeline can run end to end.
type Synthetic struct {
	cfg  SyntheticConfig
	stop chan struct{}
	done chan struct{}
}

// NewSynthetic returns an unstarted generator.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = 1024
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 2e6
	}
	if cfg.ToneHz == 0 {
		cfg.ToneHz = cfg.SampleRate / 50
	}
	if cfg.Decimation == 0 {
		cfg.Decimation = 1
	}
	return &Synthetic{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the generator goroutine. The generator keeps invoking h
// until Stop is called; a terminated session simply treats the calls as
// no-ops, which is also how it receives its end-of-stream descriptors.
func (s *Synthetic) Start(h Handler) {
	go s.run(h)
}

// Stop halts the generator and waits for its goroutine to exit.
func (s *Synthetic) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Synthetic) run(h Handler) {
	defer close(s.done)

	interval := time.Duration(float64(s.cfg.BlockSize) / s.cfg.SampleRate * float64(time.Second))
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastGainChange time.Time
	xi := make([]int16, s.cfg.BlockSize)
	xq := make([]int16, s.cfg.BlockSize)

	var seq uint32
	var blocks int
	phaseStep := 2 * math.Pi * s.cfg.ToneHz / s.cfg.SampleRate

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		for i := range xi {
			phase := phaseStep * float64(seq+uint32(i))
			xi[i] = int16(0.7 * math.MaxInt16 * math.Cos(phase))
			xq[i] = int16(0.7 * math.MaxInt16 * math.Sin(phase))
		}

		h.OnSamples(recorder.ChannelA, seq, xi, xq, false)
		if s.cfg.Channels == 2 {
			h.OnSamples(recorder.ChannelB, seq, xi, xq, false)
		}

		seq = recorder.NextSequence(seq, s.cfg.BlockSize, s.cfg.Decimation)
		blocks++
		if s.cfg.DropEveryBlocks > 0 && blocks%s.cfg.DropEveryBlocks == 0 {
			seq += s.cfg.DropSize
		}

		if s.cfg.GainChangeEvery > 0 {
			if now := time.Now(); now.Sub(lastGainChange) >= s.cfg.GainChangeEvery {
				lastGainChange = now
				h.OnGainChange(recorder.ChannelA, s.cfg.Gain, 40, 0)
				if s.cfg.Channels == 2 {
					h.OnGainChange(recorder.ChannelB, s.cfg.Gain, 40, 0)
				}
			}
		}
	}
}
