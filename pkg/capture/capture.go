// Package capture acquires microphone audio and hands it out as fixed-size
// float32 frames. The malgo-backed stage is the production implementation;
// anything satisfying Stage can be swapped in for tests.
package capture

import (
	"errors"
	"time"
)

// ErrDeviceUnavailable is returned when no capture device could be opened.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

// Frame is one block of mono float32 samples from the microphone.
type Frame struct {
	Samples []float32
	Time    time.Time
}

// Stage is a source of microphone frames. Frames() closes after Close()
// returns, once the device callback has drained.
type Stage interface {
	Frames() <-chan Frame
	Level() float64
	Close() error
}
