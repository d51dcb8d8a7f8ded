package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/SytherAsh/Vizuara-backend/internal/db"
	"github.com/SytherAsh/Vizuara-backend/internal/models"
	"github.com/SytherAsh/Vizuara-backend/internal/progress"
	"github.com/SytherAsh/Vizuara-backend/internal/queue"
	"github.com/SytherAsh/Vizuara-backend/internal/render"
	"github.com/SytherAsh/Vizuara-backend/internal/storage"
	"github.com/SytherAsh/Vizuara-backend/internal/subtitles"
	"golang.org/x/sync/errgroup"
)

// maxAssetDownloads bounds concurrent per-scene asset downloads.
const maxAssetDownloads = 4

type Worker struct {
	db        *db.DB
	queue     *queue.Queue
	storage   *storage.Storage
	assembler *render.Assembler
	subtitles *subtitles.Service
	tracker   *progress.Tracker
}

func New(database *db.DB, q *queue.Queue, stor *storage.Storage, assembler *render.Assembler, subs *subtitles.Service, tracker *progress.Tracker) *Worker {
	return &Worker{
		db:        database,
		queue:     q,
		storage:   stor,
		assembler: assembler,
		subtitles: subs,
		tracker:   tracker,
	}
}

// Start begins processing render jobs until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queue.QueueRenderVideo, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing render job: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing render %s (task: %s, project: %s)", job.RenderID, job.TaskID, job.ProjectName)

			if err := w.handleRender(ctx, job); err != nil {
				log.Printf("Render %s failed: %v", job.RenderID, err)
			} else {
				log.Printf("Render %s completed", job.RenderID)
			}
		}
	}
}

// handleRender runs one job end to end: download assets, build the video,
// synchronize subtitles, upload outputs. Subtitle failures never fail the
// render; everything else does.
func (w *Worker) handleRender(ctx context.Context, job *queue.Job) error {
	renderRow, err := w.db.GetRender(ctx, job.RenderID)
	if err != nil {
		return fmt.Errorf("failed to load render: %w", err)
	}

	opts := renderOptions(renderRow.Options)

	if err := w.db.UpdateRenderStatus(ctx, renderRow.ID, models.RenderStatusProbing); err != nil {
		log.Printf("Failed to update render status: %v", err)
	}
	w.tracker.Set(job.TaskID, 0, "downloading assets", 0, job.NumScenes)

	scenes, music, err := w.downloadAssets(ctx, job.ProjectName, job.NumScenes)
	if err != nil {
		return w.fail(ctx, renderRow, job.TaskID, "asset_download_failed", err)
	}

	if err := w.db.UpdateRenderStatus(ctx, renderRow.ID, models.RenderStatusRendering); err != nil {
		log.Printf("Failed to update render status: %v", err)
	}

	result, err := w.assembler.Build(ctx, job.TaskID, scenes, music, opts)
	if err != nil {
		code := "render_failed"
		if err == render.ErrNoValidScenes {
			code = "no_valid_scenes"
		}
		return w.fail(ctx, renderRow, job.TaskID, code, err)
	}

	if result.Degraded {
		log.Printf("[Worker] Render %s is degraded: duration cap forced audio scaling", renderRow.ID)
	}

	if err := w.db.SaveSceneTimings(ctx, renderRow.ID, result.Timings); err != nil {
		log.Printf("Failed to persist scene timings: %v", err)
	}

	// Subtitles are best-effort: a failure here still ships the video
	var srt []byte
	if opts.GenerateSubtitles {
		srt, err = w.subtitles.Generate(ctx, job.ProjectName, result.Timings, map[int]string{})
		if err != nil {
			log.Printf("[Worker] Warning: subtitle generation failed, continuing without: %v", err)
			srt = nil
		}
	}

	if err := w.db.UpdateRenderStatus(ctx, renderRow.ID, models.RenderStatusUploading); err != nil {
		log.Printf("Failed to update render status: %v", err)
	}
	w.tracker.Set(job.TaskID, 95, "uploading outputs", 0, 0)

	videoPath := w.storage.VideoPath(job.ProjectName, renderRow.Title)
	if err := w.storage.Upload(ctx, videoPath, result.Video, "video/mp4"); err != nil {
		return w.fail(ctx, renderRow, job.TaskID, "upload_failed", err)
	}

	var subtitlesPath *string
	if len(srt) > 0 {
		p := w.storage.SubtitlesPath(job.ProjectName, renderRow.Title)
		if err := w.storage.Upload(ctx, p, srt, "application/x-subrip"); err != nil {
			log.Printf("[Worker] Warning: subtitle upload failed, continuing without: %v", err)
		} else {
			subtitlesPath = &p
		}
	}

	if err := w.db.SetRenderCompleted(ctx, renderRow.ID, videoPath, subtitlesPath, result.Degraded); err != nil {
		return w.fail(ctx, renderRow, job.TaskID, "finalize_failed", err)
	}

	w.tracker.Set(job.TaskID, 100, "completed", job.NumScenes, job.NumScenes)
	return nil
}

// downloadAssets pulls every scene's image and audio plus the optional music
// bed. Missing objects are per-scene recoverable: a scene without an image is
// skipped later, one without audio renders silent.
func (w *Worker) downloadAssets(ctx context.Context, project string, numScenes int) ([]render.SceneInput, []byte, error) {
	scenes := make([]render.SceneInput, numScenes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxAssetDownloads)

	for i := 0; i < numScenes; i++ {
		scene := i + 1
		scenes[i].Index = scene

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			img, err := w.storage.Download(gctx, w.storage.SceneImagePath(project, scene))
			if err != nil {
				log.Printf("[Worker] Warning: no image for scene %d: %v", scene, err)
				return nil
			}
			scenes[scene-1].Image = img
			return nil
		})
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			audio, err := w.storage.Download(gctx, w.storage.SceneAudioPath(project, scene))
			if err != nil {
				log.Printf("[Worker] Warning: no audio for scene %d, rendering silent: %v", scene, err)
				return nil
			}
			scenes[scene-1].Audio = audio
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	music, err := w.storage.Download(ctx, w.storage.MusicPath(project))
	if err != nil {
		music = nil // no music bed for this project
	}

	return scenes, music, nil
}

func (w *Worker) fail(ctx context.Context, renderRow *models.Render, taskID, code string, cause error) error {
	if err := w.db.UpdateRenderError(ctx, renderRow.ID, code, cause.Error()); err != nil {
		log.Printf("Failed to record render error: %v", err)
	}
	w.tracker.Set(taskID, 100, "failed: "+cause.Error(), 0, 0)
	return cause
}

// renderOptions rebuilds the typed option set from the JSONB column.
func renderOptions(raw models.JSONB) models.RenderOptions {
	var opts models.RenderOptions
	data, _ := json.Marshal(raw)
	_ = json.Unmarshal(data, &opts)
	return opts
}
