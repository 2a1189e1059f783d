package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/coachery-ai/voicelink/pkg/audio"
)

const (
	// DefaultFrameSize is the number of samples per emitted frame. At 16kHz
	// this is 256ms of audio, large enough to keep websocket overhead low.
	DefaultFrameSize = 4096

	defaultQueueDepth = 16
)

// MicStage captures mono float32 audio from the default input device via
// malgo (miniaudio). The device callback never blocks: if the consumer falls
// behind, whole frames are dropped.
type MicStage struct {
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	frames    chan Frame
	frameSize int

	pending   []float32
	levelBits atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Option configures a MicStage.
type Option func(*MicStage)

// WithFrameSize overrides the per-frame sample count.
func WithFrameSize(samples int) Option {
	return func(m *MicStage) {
		if samples > 0 {
			m.frameSize = samples
		}
	}
}

// WithQueueDepth overrides how many frames may sit unconsumed before the
// stage starts dropping.
func WithQueueDepth(n int) Option {
	return func(m *MicStage) {
		if n > 0 {
			m.frames = make(chan Frame, n)
		}
	}
}

// Open initializes the default capture device at the given sample rate and
// starts streaming. The stage owns the device until Close.
func Open(sampleRate int, opts ...Option) (*MicStage, error) {
	m := &MicStage{
		frames:    make(chan Frame, defaultQueueDepth),
		frameSize: DefaultFrameSize,
	}
	for _, opt := range opts {
		opt(m)
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %v", ErrDeviceUnavailable, err)
	}
	m.malgoCtx = malgoCtx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			m.push(input)
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, fmt.Errorf("%w: init device: %v", ErrDeviceUnavailable, err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, fmt.Errorf("%w: start device: %v", ErrDeviceUnavailable, err)
	}

	return m, nil
}

// Frames returns the stream of captured frames.
func (m *MicStage) Frames() <-chan Frame {
	return m.frames
}

// Level reports the RMS of the most recently emitted frame.
func (m *MicStage) Level() float64 {
	return math.Float64frombits(m.levelBits.Load())
}

// Dropped reports how many frames were discarded because the consumer
// was not keeping up.
func (m *MicStage) Dropped() uint64 {
	return m.dropped.Load()
}

// Close stops the device and closes the frame channel. Safe to call more
// than once.
func (m *MicStage) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		if m.device != nil {
			// Uninit blocks until the data callback has returned, so
			// closing the channel afterwards is safe.
			m.device.Uninit()
		}
		if m.malgoCtx != nil {
			m.closeErr = m.malgoCtx.Uninit()
			m.malgoCtx.Free()
		}
		close(m.frames)
	})
	return m.closeErr
}

// push ingests raw little-endian float32 bytes from the device callback and
// emits whole frames. Split out from the callback so the chunking logic is
// testable without a device.
func (m *MicStage) push(input []byte) {
	if m.closed.Load() {
		return
	}

	for i := 0; i+4 <= len(input); i += 4 {
		bits := binary.LittleEndian.Uint32(input[i:])
		m.pending = append(m.pending, math.Float32frombits(bits))
	}

	for len(m.pending) >= m.frameSize {
		samples := make([]float32, m.frameSize)
		copy(samples, m.pending[:m.frameSize])
		m.pending = m.pending[:copy(m.pending, m.pending[m.frameSize:])]

		m.levelBits.Store(math.Float64bits(audio.RMS(samples)))

		select {
		case m.frames <- Frame{Samples: samples, Time: time.Now()}:
		default:
			m.dropped.Add(1)
		}
	}
}
