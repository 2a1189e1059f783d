// Package audio holds the PCM codec shared by the capture, playback and
// realtime layers: float32 <-> 16-bit little-endian PCM conversion, the
// base64 framing used on the wire, and a couple of small analysis helpers.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPayload is returned when an inbound audio payload cannot be
// decoded. Callers are expected to drop the chunk and keep the session alive.
var ErrMalformedPayload = errors.New("malformed audio payload")

// EncodedChunk is a base64 PCM chunk as it travels over the wire.
type EncodedChunk struct {
	Data       string
	SampleRate int
	Channels   int
}

// MimeType renders the chunk's mime string, e.g. "audio/pcm;rate=16000".
func (c EncodedChunk) MimeType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", c.SampleRate)
}

// Float32ToPCM16 converts float32 samples in [-1, 1] to 16-bit little-endian
// PCM. Out-of-range samples are clamped rather than wrapped.
func Float32ToPCM16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := math.Round(float64(f) * 32767.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		s := int16(v)
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(s >> 8)
	}
	return pcm
}

// PCM16ToFloat32 converts 16-bit little-endian PCM back to float32 samples.
// A payload with an odd byte count is malformed.
func PCM16ToFloat32(pcm []byte) ([]float32, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("%w: odd pcm length %d", ErrMalformedPayload, len(pcm))
	}
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		s := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		samples[i] = float32(float64(s) / 32767.0)
	}
	return samples, nil
}

// EncodeBase64 wraps raw PCM bytes for transport.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 unwraps a transport payload back to raw PCM bytes.
func DecodeBase64(data string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return pcm, nil
}

// EncodeFloat32 is the capture-side hot path: float32 mic samples straight to
// a transport payload.
func EncodeFloat32(samples []float32) string {
	return EncodeBase64(Float32ToPCM16(samples))
}

// RMS computes the root mean square level of a float32 frame. Handy for
// level meters and simple activity checks.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, f := range samples {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
