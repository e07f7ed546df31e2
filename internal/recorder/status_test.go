package recorder

import "testing"

func TestStatus_Terminal(t *testing.T) {
	nonTerminal := []Status{StatusUnknown, StatusStarting, StatusRunning, StatusTerminate}
	for _, st := range nonTerminal {
		if st.Terminal() {
			t.Errorf("expected %s to be non-terminal", st)
		}
	}
	terminal := []Status{StatusDone, StatusFailed, StatusBlocksFull, StatusSamplesFull, StatusGainChangesFull}
	for _, st := range terminal {
		if !st.Terminal() {
			t.Errorf("expected %s to be terminal", st)
		}
	}
}

func TestLifecycle_RequestTerminate(t *testing.T) {
	var l lifecycle

	l.Store(StatusStarting)
	if l.RequestTerminate() {
		t.Error("expected terminate request to be rejected while starting")
	}
	if got := l.Load(); got != StatusStarting {
		t.Errorf("expected status unchanged, got %s", got)
	}

	l.Store(StatusRunning)
	if !l.RequestTerminate() {
		t.Error("expected terminate request to be accepted while running")
	}
	if got := l.Load(); got != StatusTerminate {
		t.Errorf("expected status %s, got %s", StatusTerminate, got)
	}

	// Subsequent requests are no-ops, including against terminal states.
	if l.RequestTerminate() {
		t.Error("expected repeated terminate request to be rejected")
	}
	l.Store(StatusFailed)
	if l.RequestTerminate() {
		t.Error("expected terminate request to leave a failed session untouched")
	}
}
