package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/SytherAsh/Vizuara-backend/internal/models"
	"github.com/SytherAsh/Vizuara-backend/internal/progress"
)

// ErrNoValidScenes is returned when every scene was skipped (no usable
// images), leaving nothing to render.
var ErrNoValidScenes = errors.New("no valid clips to render")

// Percent spans for the phases Build reports through the tracker. Probing
// and planning come before; upload comes after, owned by the caller.
const (
	pctProbeStart  = 0
	pctPlanStart   = 10
	pctClipsStart  = 15
	pctClipsEnd    = 75
	pctEncodeStart = 75
	pctEncodeEnd   = 95
)

// SceneInput is one scene's raw material. Index is 1-based and preserved in
// the timing output even when earlier scenes are skipped.
type SceneInput struct {
	Index int
	Image []byte
	Audio []byte
}

// Result is a completed render: the encoded video plus the authoritative
// per-scene timings the subtitle synchronizer consumes.
type Result struct {
	Video    []byte
	Timings  []models.SceneTiming
	Degraded bool
}

// Assembler turns scenes into one encoded video. It owns per-render scratch
// storage under tempBase and removes it on every exit path.
type Assembler struct {
	tempBase string
	tracker  *progress.Tracker
}

func NewAssembler(tempBase string, tracker *progress.Tracker) *Assembler {
	return &Assembler{tempBase: tempBase, tracker: tracker}
}

// sceneLayout is a scene that survived skipping, with its final position on
// the timeline.
type sceneLayout struct {
	Scene         SceneInput
	AudioDuration float64
	Duration      float64
	Start         float64
	End           float64
}

// layoutScenes drops scenes without an image and packs the survivors
// sequentially, each overlapping its predecessor by the crossfade. Audio
// durations and planned durations are indexed by original scene position.
func layoutScenes(scenes []SceneInput, audioDurations []float64, plan Plan, crossfade float64) ([]sceneLayout, error) {
	var layouts []sceneLayout
	cursor := 0.0

	for i, scene := range scenes {
		if len(scene.Image) == 0 {
			log.Printf("[Assembler] Warning: scene %d has no image, skipping", scene.Index)
			continue
		}

		d := plan.Durations[i]
		start := cursor
		if len(layouts) > 0 {
			start = cursor - crossfade
		}

		layouts = append(layouts, sceneLayout{
			Scene:         scene,
			AudioDuration: audioDurations[i],
			Duration:      d,
			Start:         start,
			End:           start + d,
		})
		cursor = start + d
	}

	if len(layouts) == 0 {
		return nil, ErrNoValidScenes
	}
	return layouts, nil
}

// Build runs the full pipeline: probe, plan, per-scene segment encode, and
// the final composite pass. Scratch files are removed on success and failure
// alike. taskID may be empty to skip progress reporting.
func (a *Assembler) Build(ctx context.Context, taskID string, scenes []SceneInput, music []byte, opts models.RenderOptions) (*Result, error) {
	scratch, err := scratchDir(a.tempBase)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	a.report(taskID, pctProbeStart, "probing audio durations", 0, len(scenes))
	audioData := make([][]byte, len(scenes))
	for i, s := range scenes {
		audioData[i] = s.Audio
	}
	audioDurations := ProbeAll(ctx, scratch, audioData)

	a.report(taskID, pctPlanStart, "planning scene durations", 0, len(scenes))
	plan := PlanDurations(audioDurations, opts)

	layouts, err := layoutScenes(scenes, audioDurations, plan, opts.CrossfadeSec)
	if err != nil {
		return nil, err
	}

	enc := NewEncoder(scratch)

	// Per-scene visual segments
	segments := make([]SegmentClip, 0, len(layouts))
	for i, l := range layouts {
		segPath := filepath.Join(scratch, fmt.Sprintf("seg_%d.mp4", l.Scene.Index))

		if err := a.encodeScene(ctx, enc, l, opts, segPath); err != nil {
			return nil, fmt.Errorf("failed to encode scene %d: %w", l.Scene.Index, err)
		}

		segments = append(segments, SegmentClip{Path: segPath, Start: l.Start, Duration: l.Duration})

		pct := pctClipsStart + (pctClipsEnd-pctClipsStart)*(i+1)/len(layouts)
		a.report(taskID, pct, fmt.Sprintf("rendering scene %d of %d", i+1, len(layouts)), i+1, len(layouts))
	}

	total := layouts[len(layouts)-1].End

	// Narration clips, trimmed so none extends past the next scene's start
	var audioClips []AudioClip
	for i, l := range layouts {
		if len(l.Scene.Audio) == 0 || l.AudioDuration <= 0 {
			continue
		}

		audioPath := filepath.Join(scratch, fmt.Sprintf("audio_%d.mp3", l.Scene.Index))
		if err := os.WriteFile(audioPath, l.Scene.Audio, 0644); err != nil {
			log.Printf("[Assembler] Warning: failed to stage audio for scene %d, rendering silent: %v", l.Scene.Index, err)
			continue
		}

		limit := l.End - l.Start
		if i+1 < len(layouts) {
			limit = layouts[i+1].Start - l.Start
		}
		maxDur := l.AudioDuration
		if maxDur > limit {
			maxDur = limit
		}

		audioClips = append(audioClips, AudioClip{
			Path:        audioPath,
			Start:       l.Start,
			MaxDuration: maxDur,
			FadeIn:      plan.HeadPad,
			FadeOut:     plan.TailPad,
		})
	}

	musicPath := ""
	if len(music) > 0 {
		musicPath = filepath.Join(scratch, "music.mp3")
		if err := os.WriteFile(musicPath, music, 0644); err != nil {
			log.Printf("[Assembler] Warning: failed to stage background music, skipping: %v", err)
			musicPath = ""
		}
	}

	a.report(taskID, pctEncodeStart, "encoding final video", 0, 0)

	outputPath := filepath.Join(scratch, "output.mp4")
	job := CompositeJob{
		Segments:    segments,
		Audio:       audioClips,
		MusicPath:   musicPath,
		MusicVolume: opts.BgMusicVolume,
		Crossfade:   opts.CrossfadeSec,
		Total:       total,
		FPS:         opts.FPS,
		OutputPath:  outputPath,
	}
	if a.tracker != nil && taskID != "" {
		totalFrames := int(math.Round(total * float64(opts.FPS)))
		job.Progress = progress.NewEncoderLog(a.tracker, taskID, totalFrames, pctEncodeStart, pctEncodeEnd, "encoding final video")
	}

	if err := enc.Composite(ctx, job); err != nil {
		return nil, err
	}

	video, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered video: %w", err)
	}

	timings := make([]models.SceneTiming, len(layouts))
	for i, l := range layouts {
		timings[i] = models.SceneTiming{
			Scene:    l.Scene.Index,
			Start:    l.Start,
			End:      l.End,
			Duration: l.Duration,
		}
	}

	return &Result{Video: video, Timings: timings, Degraded: plan.Degraded}, nil
}

// encodeScene produces one scene's visual segment, motion-synthesized when
// Ken Burns is enabled, static otherwise. An undecodable image falls back to
// the static path so one bad decode doesn't kill the render.
func (a *Assembler) encodeScene(ctx context.Context, enc *Encoder, l sceneLayout, opts models.RenderOptions, segPath string) error {
	imgPath := filepath.Join(filepath.Dir(segPath), fmt.Sprintf("img_%d.bin", l.Scene.Index))

	if opts.KenBurns {
		src, _, err := image.Decode(bytes.NewReader(l.Scene.Image))
		if err == nil {
			params := FrameParams{
				Source:    src,
				Width:     opts.Width,
				Height:    opts.Height,
				Duration:  l.Duration,
				ZoomStart: opts.ZoomStart,
				ZoomEnd:   opts.ZoomEnd,
				Pan:       ResolvePan(opts.PanMode, l.Scene.Index),
			}
			return enc.EncodeSegment(ctx, params, opts.FPS, segPath)
		}
		log.Printf("[Assembler] Warning: scene %d image not decodable in-process, using static clip: %v", l.Scene.Index, err)
	}

	if err := os.WriteFile(imgPath, l.Scene.Image, 0644); err != nil {
		return fmt.Errorf("failed to stage image: %w", err)
	}
	return enc.EncodeStillSegment(ctx, imgPath, l.Duration, opts.FPS, opts.Width, opts.Height, segPath)
}

func (a *Assembler) report(taskID string, percent int, message string, current, total int) {
	if a.tracker == nil || taskID == "" {
		return
	}
	a.tracker.Set(taskID, percent, message, current, total)
}
