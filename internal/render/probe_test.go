package render

import (
	"context"
	"encoding/binary"
	"testing"
)

// buildWAV makes a minimal valid RIFF/WAVE payload: 16-bit mono PCM at the
// given sample rate with enough data bytes for the given duration.
func buildWAV(sampleRate int, seconds float64) []byte {
	byteRate := sampleRate * 2
	dataSize := int(float64(byteRate) * seconds)

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}

func TestProbeWAVHeader(t *testing.T) {
	wav := buildWAV(44100, 2.5)

	got := probeWAVHeader(context.Background(), "", wav)
	if got < 2.49 || got > 2.51 {
		t.Errorf("expected ~2.5s, got %f", got)
	}
}

func TestProbeWAVHeaderRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("not audio at all"),
		buildWAV(44100, 1.0)[:20], // truncated header
	}
	for _, data := range cases {
		if got := probeWAVHeader(context.Background(), "", data); got != 0 {
			t.Errorf("expected 0 for invalid input, got %f", got)
		}
	}
}

func TestProbeMP3Frame(t *testing.T) {
	// 128kbps MPEG-1 Layer III header followed by 32000 bytes -> ~2s
	frame := []byte{0xff, 0xfb, 0x90, 0x00}
	data := append(frame, make([]byte, 32000-len(frame))...)

	got := probeMP3Frame(context.Background(), "", data)
	if got < 1.9 || got > 2.1 {
		t.Errorf("expected ~2s at 128kbps, got %f", got)
	}
}

func TestProbeMP3FrameSkipsID3(t *testing.T) {
	// ID3v2 tag with a 100-byte syncsafe size, then a 128kbps frame
	tag := []byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 100}
	tag = append(tag, make([]byte, 100)...)
	frame := []byte{0xff, 0xfb, 0x90, 0x00}
	data := append(tag, append(frame, make([]byte, 16000-len(frame))...)...)

	got := probeMP3Frame(context.Background(), "", data)
	if got < 0.9 || got > 1.1 {
		t.Errorf("expected ~1s, got %f", got)
	}
}

func TestProbeAudioDurationEmpty(t *testing.T) {
	if got := ProbeAudioDuration(context.Background(), t.TempDir(), nil); got != 0 {
		t.Errorf("expected 0 for empty payload, got %f", got)
	}
}

func TestProbeAll(t *testing.T) {
	audio := [][]byte{
		buildWAV(44100, 1.0),
		nil, // silent scene
		buildWAV(22050, 3.0),
	}

	durations := ProbeAll(context.Background(), t.TempDir(), audio)
	if len(durations) != 3 {
		t.Fatalf("expected 3 durations, got %d", len(durations))
	}
	if durations[0] < 0.99 || durations[0] > 1.01 {
		t.Errorf("scene 1: expected ~1s, got %f", durations[0])
	}
	if durations[1] != 0 {
		t.Errorf("scene 2: expected 0 for missing audio, got %f", durations[1])
	}
	if durations[2] < 2.99 || durations[2] > 3.01 {
		t.Errorf("scene 3: expected ~3s, got %f", durations[2])
	}
}
