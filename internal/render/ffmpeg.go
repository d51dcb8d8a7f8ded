package render

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Encoder wraps the ffmpeg invocations used by the assembler: per-scene
// segment encodes fed raw RGBA frames over stdin, and the final composite
// pass that crossfades segments and mixes the audio tracks.
type Encoder struct {
	tempDir string
}

func NewEncoder(tempDir string) *Encoder {
	return &Encoder{tempDir: tempDir}
}

// EncodeSegment renders one scene's visual clip by generating its frames in
// Go and streaming them to ffmpeg as raw RGBA. The segment is video-only;
// audio is attached later in the composite pass.
func (e *Encoder) EncodeSegment(ctx context.Context, p FrameParams, fps int, outputPath string) error {
	frames := int(math.Round(p.Duration * float64(fps)))
	if frames < 1 {
		frames = 1
	}

	args := []string{
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg segment encode: %w", err)
	}

	writeErr := func() error {
		defer stdin.Close()
		for i := 0; i < frames; i++ {
			t := float64(i) / float64(fps)
			frame := Frame(p, t)
			if _, err := stdin.Write(frame.Pix); err != nil {
				return fmt.Errorf("failed to write frame %d: %w", i, err)
			}
		}
		return nil
	}()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg segment encode failed: %w", err)
	}
	if writeErr != nil {
		return writeErr
	}
	return nil
}

// EncodeStillSegment renders a static (no motion) clip from an image file,
// scaled and padded to the target resolution.
func (e *Encoder) EncodeStillSegment(ctx context.Context, imagePath string, duration float64, fps, width, height int, outputPath string) error {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		width, height, width, height,
	)

	args := []string{
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", imagePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg still segment encode failed: %w", err)
	}
	return nil
}

// SegmentClip is one encoded scene segment positioned on the timeline.
type SegmentClip struct {
	Path     string
	Start    float64
	Duration float64
}

// AudioClip is one narration clip positioned on the timeline. MaxDuration
// trims it so it never bleeds into the next scene; FadeIn/FadeOut carry the
// planner-adjusted head and tail padding.
type AudioClip struct {
	Path        string
	Start       float64
	MaxDuration float64
	FadeIn      float64
	FadeOut     float64
}

// CompositeJob describes the final assembly pass: crossfaded video chain,
// mixed narration track, optional looped background music, one encode.
type CompositeJob struct {
	Segments    []SegmentClip
	Audio       []AudioClip
	MusicPath   string
	MusicVolume float64
	Crossfade   float64
	Total       float64
	FPS         int
	OutputPath  string

	// Progress receives ffmpeg's -progress key=value stream when non-nil.
	Progress io.Writer
}

// Composite runs the single filter_complex pass that produces the final
// video. Segments must already be encoded at the target fps and resolution.
func (e *Encoder) Composite(ctx context.Context, job CompositeJob) error {
	if len(job.Segments) == 0 {
		return fmt.Errorf("no segments to composite")
	}

	args := []string{}
	for _, s := range job.Segments {
		args = append(args, "-i", s.Path)
	}
	for _, a := range job.Audio {
		args = append(args, "-i", a.Path)
	}
	musicIdx := -1
	if job.MusicPath != "" {
		musicIdx = len(job.Segments) + len(job.Audio)
		args = append(args, "-stream_loop", "-1", "-i", job.MusicPath)
	}

	filter := buildCompositeFilter(job, musicIdx)
	args = append(args, "-filter_complex", filter, "-map", "[vout]")

	hasAudio := len(job.Audio) > 0 || musicIdx >= 0
	if hasAudio {
		args = append(args, "-map", "[aout]", "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", job.FPS),
		"-t", fmt.Sprintf("%.3f", job.Total),
	)
	if job.Progress != nil {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	args = append(args, "-y", job.OutputPath)

	log.Printf("[Encoder] Compositing %d segments, %d audio clips (total %.2fs)",
		len(job.Segments), len(job.Audio), job.Total)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr
	if job.Progress != nil {
		cmd.Stdout = job.Progress
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg composite failed: %w", err)
	}
	return nil
}

// buildCompositeFilter constructs the filter_complex string: an xfade chain
// over the segments, per-clip narration trims/fades/delays mixed into one
// track, and optional background music underneath.
func buildCompositeFilter(job CompositeJob, musicIdx int) string {
	var parts []string

	// Video: chain crossfades; each xfade's offset is the next clip's start
	videoLabel := "[0:v]"
	if len(job.Segments) == 1 {
		parts = append(parts, "[0:v]copy[vout]")
	} else {
		for i := 1; i < len(job.Segments); i++ {
			out := fmt.Sprintf("[vx%d]", i)
			if i == len(job.Segments)-1 {
				out = "[vout]"
			}
			parts = append(parts, fmt.Sprintf(
				"%s[%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f%s",
				videoLabel, i, job.Crossfade, job.Segments[i].Start, out,
			))
			videoLabel = out
		}
	}

	// Audio: trim to the scene window, fade with the adjusted padding, then
	// delay to the scene start
	var narrationLabels []string
	for j, a := range job.Audio {
		in := len(job.Segments) + j
		label := fmt.Sprintf("[na%d]", j)

		chain := fmt.Sprintf("[%d:a]atrim=0:%.3f", in, a.MaxDuration)
		if a.FadeIn > 0 {
			chain += fmt.Sprintf(",afade=t=in:st=0:d=%.3f", a.FadeIn)
		}
		if a.FadeOut > 0 {
			st := a.MaxDuration - a.FadeOut
			if st < 0 {
				st = 0
			}
			chain += fmt.Sprintf(",afade=t=out:st=%.3f:d=%.3f", st, a.FadeOut)
		}
		delayMs := int(a.Start * 1000)
		chain += fmt.Sprintf(",adelay=%d|%d%s", delayMs, delayMs, label)

		parts = append(parts, chain)
		narrationLabels = append(narrationLabels, label)
	}

	audioLabel := ""
	switch len(narrationLabels) {
	case 0:
	case 1:
		audioLabel = narrationLabels[0]
	default:
		parts = append(parts, fmt.Sprintf(
			"%samix=inputs=%d:normalize=0[nar]",
			strings.Join(narrationLabels, ""), len(narrationLabels),
		))
		audioLabel = "[nar]"
	}

	if musicIdx >= 0 {
		parts = append(parts, fmt.Sprintf(
			"[%d:a]atrim=0:%.3f,volume=%.3f[music]",
			musicIdx, job.Total, job.MusicVolume,
		))
		if audioLabel == "" {
			parts = append(parts, "[music]acopy[aout]")
		} else {
			parts = append(parts, fmt.Sprintf(
				"%s[music]amix=inputs=2:duration=first:normalize=0[aout]", audioLabel,
			))
		}
	} else if audioLabel != "" {
		parts = append(parts, fmt.Sprintf("%sacopy[aout]", audioLabel))
	}

	return strings.Join(parts, ";")
}

// TempPath returns a path inside the encoder's scratch directory.
func (e *Encoder) TempPath(filename string) string {
	return filepath.Join(e.tempDir, filename)
}
