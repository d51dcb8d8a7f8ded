package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums
type RenderStatus string

const (
	RenderStatusQueued    RenderStatus = "queued"
	RenderStatusProbing   RenderStatus = "probing"
	RenderStatusRendering RenderStatus = "rendering"
	RenderStatusEncoding  RenderStatus = "encoding"
	RenderStatusUploading RenderStatus = "uploading"
	RenderStatusCompleted RenderStatus = "completed"
	RenderStatusFailed    RenderStatus = "failed"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// RenderOptions is the full configuration surface of the compositor.
// Zero values are filled in from config defaults at the API boundary,
// so the core never has to guess.
type RenderOptions struct {
	FPS               int     `json:"fps"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	CrossfadeSec      float64 `json:"crossfade_sec"`
	MinSceneSeconds   float64 `json:"min_scene_seconds"`
	HeadPad           float64 `json:"head_pad"`
	TailPad           float64 `json:"tail_pad"`
	BgMusicVolume     float64 `json:"bg_music_volume"`
	KenBurns          bool    `json:"ken_burns"`
	ZoomStart         float64 `json:"kb_zoom_start"`
	ZoomEnd           float64 `json:"kb_zoom_end"`
	PanMode           string  `json:"kb_pan"` // auto, left, right, up, down, none
	MaxTotalSeconds   float64 `json:"max_video_duration,omitempty"` // 0 = no limit
	GenerateSubtitles bool    `json:"generate_subtitles"`
}

// SceneTiming is the authoritative per-scene timing record produced by the
// Timeline Assembler and consumed by the Subtitle Synchronizer. Scene numbers
// are 1-based and preserved across skipped scenes.
type SceneTiming struct {
	Scene    int     `json:"scene"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Models

type Render struct {
	ID            uuid.UUID    `json:"id"`
	ProjectName   string       `json:"project_name"`
	Title         string       `json:"title"`
	TaskID        string       `json:"task_id"`
	NumScenes     int          `json:"num_scenes"`
	Status        RenderStatus `json:"status"`
	Degraded      bool         `json:"degraded"` // duration cap forced audio scaling
	Options       JSONB        `json:"options,omitempty"`
	VideoPath     *string      `json:"video_path,omitempty"`
	SubtitlesPath *string      `json:"subtitles_path,omitempty"`
	ErrorCode     *string      `json:"error_code,omitempty"`
	ErrorMessage  *string      `json:"error_message,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// API request/response types

// CreateRenderRequest is the inline-asset form: every buffer arrives base64
// encoded in the request body. Entries in Images may be empty strings; those
// scenes are skipped by the assembler.
type CreateRenderRequest struct {
	Title       string            `json:"title"`
	ProjectName string            `json:"project_name,omitempty"`
	Images      []string          `json:"images"`
	SceneAudio  map[string]string `json:"scene_audio"` // scene_<n> -> base64 audio
	// Narrations is shape-sniffed at the boundary: a JSON array of strings, or
	// an object keyed scene_<n>. Optional; used only for subtitle generation.
	Narrations json.RawMessage `json:"narrations,omitempty"`
	BgMusic    string          `json:"bg_music,omitempty"`

	RenderOverrides
}

// CreateRenderFromStorageRequest builds a video from assets already in
// storage: {project}/scene_<n>.jpg and {project}/scene_<n>.mp3.
type CreateRenderFromStorageRequest struct {
	ProjectName string `json:"project_name"`
	Title       string `json:"title"`
	NumScenes   int    `json:"num_scenes"`

	RenderOverrides
}

// RenderOverrides are the per-request knobs that override configured render
// defaults. All optional; nil means "use the default".
type RenderOverrides struct {
	FPS               *int     `json:"fps,omitempty"`
	Resolution        []int    `json:"resolution,omitempty"` // [width, height]
	CrossfadeSec      *float64 `json:"crossfade_sec,omitempty"`
	MinSceneSeconds   *float64 `json:"min_scene_seconds,omitempty"`
	HeadPad           *float64 `json:"head_pad,omitempty"`
	TailPad           *float64 `json:"tail_pad,omitempty"`
	BgMusicVolume     *float64 `json:"bg_music_volume,omitempty"`
	KenBurns          *bool    `json:"ken_burns,omitempty"`
	ZoomStart         *float64 `json:"kb_zoom_start,omitempty"`
	ZoomEnd           *float64 `json:"kb_zoom_end,omitempty"`
	PanMode           *string  `json:"kb_pan,omitempty"`
	MaxTotalSeconds   *float64 `json:"max_video_duration,omitempty"`
	GenerateSubtitles *bool    `json:"generate_subtitles,omitempty"`
}

// Apply overlays the non-nil overrides onto opts.
func (o RenderOverrides) Apply(opts *RenderOptions) {
	if o.FPS != nil {
		opts.FPS = *o.FPS
	}
	if len(o.Resolution) == 2 {
		opts.Width = o.Resolution[0]
		opts.Height = o.Resolution[1]
	}
	if o.CrossfadeSec != nil {
		opts.CrossfadeSec = *o.CrossfadeSec
	}
	if o.MinSceneSeconds != nil {
		opts.MinSceneSeconds = *o.MinSceneSeconds
	}
	if o.HeadPad != nil {
		opts.HeadPad = *o.HeadPad
	}
	if o.TailPad != nil {
		opts.TailPad = *o.TailPad
	}
	if o.BgMusicVolume != nil {
		opts.BgMusicVolume = *o.BgMusicVolume
	}
	if o.KenBurns != nil {
		opts.KenBurns = *o.KenBurns
	}
	if o.ZoomStart != nil {
		opts.ZoomStart = *o.ZoomStart
	}
	if o.ZoomEnd != nil {
		opts.ZoomEnd = *o.ZoomEnd
	}
	if o.PanMode != nil {
		opts.PanMode = *o.PanMode
	}
	if o.MaxTotalSeconds != nil {
		opts.MaxTotalSeconds = *o.MaxTotalSeconds
	}
	if o.GenerateSubtitles != nil {
		opts.GenerateSubtitles = *o.GenerateSubtitles
	}
}

type CreateRenderResponse struct {
	RenderID uuid.UUID    `json:"render_id"`
	TaskID   string       `json:"task_id"`
	Status   RenderStatus `json:"status"`
}

type RenderResponse struct {
	Render
	VideoURL     *string       `json:"video_url,omitempty"`
	SubtitlesURL *string       `json:"subtitles_url,omitempty"`
	Timings      []SceneTiming `json:"timings,omitempty"`
}

type ProgressResponse struct {
	TaskID   string `json:"task_id"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
}
