package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/SytherAsh/Vizuara-backend/internal/db"
	"github.com/SytherAsh/Vizuara-backend/internal/models"
	"github.com/SytherAsh/Vizuara-backend/internal/progress"
	"github.com/SytherAsh/Vizuara-backend/internal/queue"
	"github.com/SytherAsh/Vizuara-backend/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	db       *db.DB
	queue    *queue.Queue
	storage  *storage.Storage
	tracker  *progress.Tracker
	defaults models.RenderOptions
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Storage, tracker *progress.Tracker, defaults models.RenderOptions) *Handler {
	return &Handler{
		db:       database,
		queue:    q,
		storage:  stor,
		tracker:  tracker,
		defaults: defaults,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRender handles POST /v1/videos, the inline-asset form. Every image
// and audio buffer arrives base64 encoded; assets are staged into storage
// under the project path before the job is queued, so the queue payload
// stays small.
func (h *Handler) CreateRender(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if len(req.Images) == 0 {
		respondError(w, http.StatusBadRequest, "At least one scene image is required")
		return
	}

	opts := h.defaults
	req.RenderOverrides.Apply(&opts)

	texts, err := normalizeNarrations(req.Narrations, len(req.Images))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	renderID := uuid.New()
	projectName := req.ProjectName
	if projectName == "" {
		projectName = renderID.String()
	}

	// Stage scene images; empty entries stay absent and are skipped downstream
	for i, img := range req.Images {
		if img == "" {
			continue
		}
		data, err := decodeBase64(img)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Scene %d image is not valid base64", i+1))
			return
		}
		path := h.storage.SceneImagePath(projectName, i+1)
		if err := h.storage.Upload(r.Context(), path, data, "image/jpeg"); err != nil {
			respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to stage scene %d image", i+1))
			return
		}
	}

	// Stage narration audio, keyed scene_<n>
	for key, audio := range req.SceneAudio {
		if audio == "" {
			continue
		}
		scene, err := sceneNumber(key)
		if err != nil || scene < 1 || scene > len(req.Images) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Bad scene audio key %q", key))
			return
		}
		data, err := decodeBase64(audio)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Audio for %s is not valid base64", key))
			return
		}
		path := h.storage.SceneAudioPath(projectName, scene)
		if err := h.storage.Upload(r.Context(), path, data, "audio/mpeg"); err != nil {
			respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to stage audio for %s", key))
			return
		}
	}

	// Stage narration text for the subtitle pass
	for scene, text := range texts {
		path := h.storage.NarrationPath(projectName, scene)
		if err := h.storage.Upload(r.Context(), path, []byte(text), "text/plain"); err != nil {
			respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to stage narration for scene %d", scene))
			return
		}
	}

	if req.BgMusic != "" {
		data, err := decodeBase64(req.BgMusic)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Background music is not valid base64")
			return
		}
		if err := h.storage.Upload(r.Context(), h.storage.MusicPath(projectName), data, "audio/mpeg"); err != nil {
			respondError(w, http.StatusBadGateway, "Failed to stage background music")
			return
		}
	}

	h.createAndEnqueue(w, r, renderID, projectName, req.Title, len(req.Images), opts)
}

// CreateRenderFromStorage handles POST /v1/videos/from-storage, where assets were
// uploaded out of band at the conventional per-project paths.
func (h *Handler) CreateRenderFromStorage(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRenderFromStorageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ProjectName == "" {
		respondError(w, http.StatusBadRequest, "Project name is required")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if req.NumScenes < 1 {
		respondError(w, http.StatusBadRequest, "num_scenes must be at least 1")
		return
	}

	opts := h.defaults
	req.RenderOverrides.Apply(&opts)

	h.createAndEnqueue(w, r, uuid.New(), req.ProjectName, req.Title, req.NumScenes, opts)
}

func (h *Handler) createAndEnqueue(w http.ResponseWriter, r *http.Request, renderID uuid.UUID, projectName, title string, numScenes int, opts models.RenderOptions) {
	var optionsJSON models.JSONB
	raw, _ := json.Marshal(opts)
	_ = json.Unmarshal(raw, &optionsJSON)

	render := &models.Render{
		ID:          renderID,
		ProjectName: projectName,
		Title:       title,
		TaskID:      uuid.New().String(),
		NumScenes:   numScenes,
		Status:      models.RenderStatusQueued,
		Options:     optionsJSON,
	}

	if err := h.db.CreateRender(r.Context(), render); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create render")
		return
	}

	if err := h.queue.EnqueueRenderVideo(r.Context(), render.ID, render.TaskID, projectName, numScenes); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue render")
		return
	}

	h.tracker.Set(render.TaskID, 0, "queued", 0, numScenes)

	respondJSON(w, http.StatusCreated, models.CreateRenderResponse{
		RenderID: render.ID,
		TaskID:   render.TaskID,
		Status:   render.Status,
	})
}

// ListRenders handles GET /v1/renders
// Query params:
//   - status: filter by render status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.RenderStatus(statusFilter) {
		case models.RenderStatusQueued, models.RenderStatusProbing,
			models.RenderStatusRendering, models.RenderStatusEncoding,
			models.RenderStatusUploading, models.RenderStatusCompleted,
			models.RenderStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountRenders(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count renders")
		return
	}

	renders, err := h.db.ListRenders(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list renders")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"renders": renders,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetRender handles GET /v1/renders/{id}
func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid render ID")
		return
	}

	render, err := h.db.GetRender(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Render not found")
		return
	}

	resp := models.RenderResponse{Render: *render}

	if render.VideoPath != nil {
		url := h.storage.GetPublicURL(*render.VideoPath)
		resp.VideoURL = &url
	}
	if render.SubtitlesPath != nil {
		url := h.storage.GetPublicURL(*render.SubtitlesPath)
		resp.SubtitlesURL = &url
	}

	if timings, err := h.db.GetSceneTimings(r.Context(), id); err == nil {
		resp.Timings = timings
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetRenderDownload handles GET /v1/renders/{id}/download by redirecting to
// a short-lived signed URL for the finished video.
func (h *Handler) GetRenderDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid render ID")
		return
	}

	render, err := h.db.GetRender(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Render not found")
		return
	}

	if render.Status != models.RenderStatusCompleted || render.VideoPath == nil {
		respondError(w, http.StatusConflict, "Render is not completed yet")
		return
	}

	signedURL, err := h.storage.GetSignedURL(r.Context(), *render.VideoPath, 3600)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Failed to sign download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// GetProgress handles GET /v1/progress/{taskID}
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	state, ok := h.tracker.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown task")
		return
	}

	respondJSON(w, http.StatusOK, models.ProgressResponse{
		TaskID:   state.TaskID,
		Progress: state.Percent,
		Message:  state.Message,
		Current:  state.Current,
		Total:    state.Total,
	})
}

// DeleteProgress handles DELETE /v1/progress/{taskID}
func (h *Handler) DeleteProgress(w http.ResponseWriter, r *http.Request) {
	h.tracker.Clear(chi.URLParam(r, "taskID"))
	w.WriteHeader(http.StatusNoContent)
}

// decodeBase64 accepts plain base64 or data-URL payloads.
func decodeBase64(s string) ([]byte, error) {
	if idx := strings.Index(s, ";base64,"); idx >= 0 {
		s = s[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
