package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWavBytes(t *testing.T) {
	buf := NewBuffer([]byte{0x01, 0x02, 0x03, 0x04}, 24000, 1)
	wav := WavBytes(buf)

	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Errorf("Expected RIFF prefix")
	}

	if !bytes.Contains(wav, []byte("WAVE")) {
		t.Errorf("Expected WAVE format identifier")
	}

	expectedLen := 44 + len(buf.PCM)
	if len(wav) != expectedLen {
		t.Errorf("Expected length %d, got %d", expectedLen, len(wav))
	}

	rate := binary.LittleEndian.Uint32(wav[24:28])
	if rate != 24000 {
		t.Errorf("Expected sample rate 24000, got %d", rate)
	}
}
