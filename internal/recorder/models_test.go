package recorder

import (
	"testing"
	"time"
)

func TestParams_Validate(t *testing.T) {
	valid := testParams()
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid params, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero channels", func(p *Params) { p.Channels = 0 }},
		{"three channels", func(p *Params) { p.Channels = 3 }},
		{"zero blocks capacity", func(p *Params) { p.BlocksCapacity = 0 }},
		{"zero samples capacity", func(p *Params) { p.SamplesCapacity = 0; p.ZeroGapMax = 0 }},
		{"threshold above quarter capacity", func(p *Params) { p.ZeroGapMax = p.SamplesCapacity/4 + 1 }},
		{"zero decimation", func(p *Params) { p.Decimation = 0 }},
	}
	for _, c := range cases {
		p := testParams()
		c.mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestParams_markerSlots(t *testing.T) {
	p := testParams()
	if got := p.markerSlots(); got != 0 {
		t.Errorf("expected 0 slots with markers disabled, got %d", got)
	}

	p.MarkerInterval = 10 * time.Second
	p.Duration = 60 * time.Second
	if got := p.markerSlots(); got != 8 {
		t.Errorf("expected 8 slots, got %d", got)
	}
}

func TestChannel_String(t *testing.T) {
	if ChannelA.String() != "A" || ChannelB.String() != "B" {
		t.Errorf("unexpected channel names: %s %s", ChannelA, ChannelB)
	}
}
