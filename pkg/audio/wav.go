package audio

import (
	"bytes"
	"encoding/binary"
)

// WavBytes wraps a buffer's PCM in a minimal RIFF/WAVE header so session
// recordings can be dumped straight to disk for debugging.
func WavBytes(b *Buffer) []byte {
	channels := b.Channels
	if channels == 0 {
		channels = 1
	}
	buf := new(bytes.Buffer)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(b.PCM)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(b.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(b.SampleRate*channels*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(channels*2))              // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))                      // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(b.PCM)))
	buf.Write(b.PCM)

	return buf.Bytes()
}
