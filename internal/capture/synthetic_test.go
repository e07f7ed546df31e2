package capture

import (
	"sync"
	"testing"
	"time"

	"iq-recorder/internal/recorder"
)

type recordedBlock struct {
	ch    recorder.Channel
	seq   uint32
	count int
}

// collectHandler records callback invocations for assertions.
type collectHandler struct {
	mu     sync.Mutex
	blocks []recordedBlock
	gains  int
}

func (c *collectHandler) OnSamples(ch recorder.Channel, firstSampleNum uint32, xi, xq []int16, reset bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, recordedBlock{ch: ch, seq: firstSampleNum, count: len(xi)})
}

func (c *collectHandler) OnGainChange(ch recorder.Channel, gain float32, gainReductionDB, lnaReductionDB uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gains++
}

func (c *collectHandler) snapshot() []recordedBlock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedBlock(nil), c.blocks...)
}

func waitForBlocks(t *testing.T, h *collectHandler, n int) []recordedBlock {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := h.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d blocks, got %d", n, len(h.snapshot()))
	return nil
}

func TestSynthetic_single_channel_sequence(t *testing.T) {
	h := &collectHandler{}
	s := NewSynthetic(SyntheticConfig{
		Channels:   1,
		SampleRate: 1_000_000,
		BlockSize:  256,
	})
	s.Start(h)
	blocks := waitForBlocks(t, h, 4)
	s.Stop()

	seq := uint32(0)
	for i, b := range blocks[:4] {
		if b.ch != recorder.ChannelA {
			t.Errorf("block %d: expected channel A, got %s", i, b.ch)
		}
		if b.count != 256 {
			t.Errorf("block %d: expected 256 samples, got %d", i, b.count)
		}
		if b.seq != seq {
			t.Errorf("block %d: expected sequence %d, got %d", i, seq, b.seq)
		}
		seq = recorder.NextSequence(seq, 256, 1)
	}
}

func TestSynthetic_dual_channel_pairs(t *testing.T) {
	h := &collectHandler{}
	s := NewSynthetic(SyntheticConfig{
		Channels:   2,
		SampleRate: 1_000_000,
		BlockSize:  256,
	})
	s.Start(h)
	blocks := waitForBlocks(t, h, 6)
	s.Stop()

	for i := 0; i+1 < 6; i += 2 {
		a, b := blocks[i], blocks[i+1]
		if a.ch != recorder.ChannelA || b.ch != recorder.ChannelB {
			t.Errorf("pair %d: expected A then B, got %s then %s", i/2, a.ch, b.ch)
		}
		if a.seq != b.seq {
			t.Errorf("pair %d: sequence mismatch %d vs %d", i/2, a.seq, b.seq)
		}
		if a.count != b.count {
			t.Errorf("pair %d: count mismatch %d vs %d", i/2, a.count, b.count)
		}
	}
}

func TestSynthetic_injected_drops(t *testing.T) {
	h := &collectHandler{}
	s := NewSynthetic(SyntheticConfig{
		Channels:        1,
		SampleRate:      1_000_000,
		BlockSize:       256,
		DropEveryBlocks: 2,
		DropSize:        100,
	})
	s.Start(h)
	blocks := waitForBlocks(t, h, 3)
	s.Stop()

	// Block 2 follows an injected 100-sample hole after block 1.
	want := recorder.NextSequence(blocks[1].seq, 256, 1) + 100
	if blocks[2].seq != want {
		t.Errorf("expected post-drop sequence %d, got %d", want, blocks[2].seq)
	}
}

func TestSynthetic_emits_gain_changes(t *testing.T) {
	h := &collectHandler{}
	s := NewSynthetic(SyntheticConfig{
		Channels:        1,
		SampleRate:      1_000_000,
		BlockSize:       256,
		Gain:            40,
		GainChangeEvery: time.Nanosecond,
	})
	s.Start(h)
	waitForBlocks(t, h, 3)
	s.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gains == 0 {
		t.Error("expected at least one gain-change event")
	}
}
