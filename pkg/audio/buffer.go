package audio

import (
	"fmt"
	"time"
)

// Buffer is a decoded block of 16-bit PCM ready for playback.
type Buffer struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// NewBuffer wraps raw PCM bytes with their format.
func NewBuffer(pcm []byte, sampleRate, channels int) *Buffer {
	return &Buffer{PCM: pcm, SampleRate: sampleRate, Channels: channels}
}

// DecodeBuffer turns a transport payload into a playable buffer.
func DecodeBuffer(data string, sampleRate, channels int) (*Buffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrMalformedPayload, channels)
	}
	pcm, err := DecodeBase64(data)
	if err != nil {
		return nil, err
	}
	if len(pcm)%(2*channels) != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of frames", ErrMalformedPayload, len(pcm))
	}
	return NewBuffer(pcm, sampleRate, channels), nil
}

// Samples returns the number of sample frames in the buffer.
func (b *Buffer) Samples() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.PCM) / (2 * b.Channels)
}

// Duration returns the wall-clock playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Samples()) * time.Second / time.Duration(b.SampleRate)
}
