// Package capture defines the inbound interface between the device layer and
// the recording core. The device layer owns the invoking goroutines; the core
// implements Handler and must never block inside it. Device capability
// negotiation and register-level tuning live outside this repository; any
// source that can honor Handler's calling contract can drive a session.
package capture

import "iq-recorder/internal/recorder"

// Handler receives capture notifications, one method per event kind.
// OnSamples delivers one block per channel per hardware notification:
// invocations for the same channel are never concurrent with each other, but
// the two channels (and gain-change events) may arrive concurrently.
type Handler interface {
	OnSamples(ch recorder.Channel, firstSampleNum uint32, xi, xq []int16, reset bool)
	OnGainChange(ch recorder.Channel, gain float32, gainReductionDB, lnaReductionDB uint8)
}
