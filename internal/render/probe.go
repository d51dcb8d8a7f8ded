package render

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxProbeWorkers bounds the probe pool; probing is I/O bound and short, so a
// handful of workers is plenty even for long slideshows.
const maxProbeWorkers = 4

// probeStrategy attempts to measure the duration of an audio payload.
// Returning 0 means "couldn't tell" and hands off to the next strategy.
type probeStrategy struct {
	name string
	fn   func(ctx context.Context, tempDir string, data []byte) float64
}

var probeStrategies = []probeStrategy{
	{"ffprobe", probeFFprobe},
	{"wav-header", probeWAVHeader},
	{"mp3-frame", probeMP3Frame},
}

// ProbeAudioDuration measures the duration of an audio clip in seconds.
// Strategies are tried in order; the first positive result wins. Corrupt or
// unsupported audio yields 0 with a warning, never an error, so a bad clip
// cannot fail the whole render.
func ProbeAudioDuration(ctx context.Context, tempDir string, data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	for _, s := range probeStrategies {
		if d := s.fn(ctx, tempDir, data); d > 0 {
			return d
		}
	}

	log.Printf("[Probe] Warning: no strategy could measure audio duration (%d bytes), treating as silent", len(data))
	return 0
}

// ProbeAll measures every scene's audio on a bounded worker pool. The slice
// is indexed like the input; scenes without audio get 0. A failed probe is
// isolated to its own slot and never aborts the pool.
func ProbeAll(ctx context.Context, tempDir string, audio [][]byte) []float64 {
	durations := make([]float64, len(audio))

	g, gctx := errgroup.WithContext(ctx)
	workers := maxProbeWorkers
	if len(audio) < workers {
		workers = len(audio)
	}
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, data := range audio {
		if len(data) == 0 {
			continue
		}
		i, data := i, data
		g.Go(func() error {
			durations[i] = ProbeAudioDuration(gctx, tempDir, data)
			return nil
		})
	}

	// Workers never return errors; Wait is just a join.
	_ = g.Wait()
	return durations
}

// probeFFprobe shells out to ffprobe, the most reliable option when the
// binary is present. The payload is written to a scratch file first since
// ffprobe needs a seekable input for most containers.
func probeFFprobe(ctx context.Context, tempDir string, data []byte) float64 {
	tmp, err := os.CreateTemp(tempDir, "probe_*.audio")
	if err != nil {
		return 0
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0
	}
	tmp.Close()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		tmp.Name(),
	}

	out, err := exec.CommandContext(ctx, "ffprobe", args...).Output()
	if err != nil {
		return 0
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0
	}
	return duration
}

// probeWAVHeader computes duration from RIFF/WAVE chunk arithmetic:
// data chunk bytes divided by the fmt chunk's byte rate.
func probeWAVHeader(_ context.Context, _ string, data []byte) float64 {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0
	}

	var byteRate uint32
	var dataSize uint32

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])

		switch id {
		case "fmt ":
			if offset+16+8 <= len(data) {
				byteRate = binary.LittleEndian.Uint32(data[offset+16 : offset+20])
			}
		case "data":
			dataSize = size
		}

		// Chunks are word-aligned
		offset += 8 + int(size)
		if size%2 == 1 {
			offset++
		}
	}

	if byteRate == 0 || dataSize == 0 {
		return 0
	}
	return float64(dataSize) / float64(byteRate)
}

var mp3Bitrates = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}

// probeMP3Frame estimates duration from the first MPEG-1 Layer III frame
// header, assuming constant bitrate. Rough, but a usable last resort when
// ffprobe is unavailable.
func probeMP3Frame(_ context.Context, _ string, data []byte) float64 {
	payload := data

	// Skip an ID3v2 tag if present (syncsafe 28-bit size)
	if len(payload) > 10 && string(payload[0:3]) == "ID3" {
		size := int(payload[6]&0x7f)<<21 | int(payload[7]&0x7f)<<14 | int(payload[8]&0x7f)<<7 | int(payload[9]&0x7f)
		if 10+size < len(payload) {
			payload = payload[10+size:]
		}
	}

	// Find the frame sync within the first few KB
	limit := len(payload) - 4
	if limit > 4096 {
		limit = 4096
	}
	for i := 0; i < limit; i++ {
		if payload[i] != 0xff || payload[i+1]&0xe0 != 0xe0 {
			continue
		}
		version := (payload[i+1] >> 3) & 0x03
		layer := (payload[i+1] >> 1) & 0x03
		if version != 0x03 || layer != 0x01 { // MPEG-1 Layer III only
			continue
		}
		bitrateIdx := (payload[i+2] >> 4) & 0x0f
		kbps := mp3Bitrates[bitrateIdx]
		if kbps == 0 {
			continue
		}
		audioBytes := len(payload) - i
		return float64(audioBytes) * 8 / float64(kbps*1000)
	}
	return 0
}

// scratchDir returns a per-render scratch directory under base, created on
// demand. Callers own cleanup.
func scratchDir(base string) (string, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp base dir: %w", err)
	}
	dir, err := os.MkdirTemp(base, "render_")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return dir, nil
}
