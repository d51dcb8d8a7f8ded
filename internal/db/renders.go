package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SytherAsh/Vizuara-backend/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateRender(ctx context.Context, render *models.Render) error {
	query := `
		INSERT INTO renders (
			id, project_name, title, task_id, num_scenes, status, options
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		render.ID, render.ProjectName, render.Title, render.TaskID,
		render.NumScenes, render.Status, render.Options,
	).Scan(&render.CreatedAt, &render.UpdatedAt)
}

func (db *DB) GetRender(ctx context.Context, id uuid.UUID) (*models.Render, error) {
	query := `
		SELECT
			id, project_name, title, task_id, num_scenes, status, degraded,
			options, video_path, subtitles_path, error_code, error_message,
			created_at, updated_at
		FROM renders
		WHERE id = $1
	`

	render := &models.Render{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&render.ID, &render.ProjectName, &render.Title, &render.TaskID,
		&render.NumScenes, &render.Status, &render.Degraded,
		&render.Options, &render.VideoPath, &render.SubtitlesPath,
		&render.ErrorCode, &render.ErrorMessage,
		&render.CreatedAt, &render.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("render not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render: %w", err)
	}

	return render, nil
}

// ListRenders returns renders ordered by creation date (newest first), with
// an optional status filter and limit/offset pagination.
func (db *DB) ListRenders(ctx context.Context, status string, limit, offset int) ([]models.Render, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, project_name, title, task_id, num_scenes, status, degraded,
			options, video_path, subtitles_path, error_code, error_message,
			created_at, updated_at
		FROM renders
	`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list renders: %w", err)
	}
	defer rows.Close()

	var renders []models.Render
	for rows.Next() {
		var r models.Render
		if err := rows.Scan(
			&r.ID, &r.ProjectName, &r.Title, &r.TaskID,
			&r.NumScenes, &r.Status, &r.Degraded,
			&r.Options, &r.VideoPath, &r.SubtitlesPath,
			&r.ErrorCode, &r.ErrorMessage,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan render: %w", err)
		}
		renders = append(renders, r)
	}

	return renders, nil
}

// CountRenders returns the total number of renders, optionally filtered by status.
func (db *DB) CountRenders(ctx context.Context, status string) (int, error) {
	var count int
	if status != "" {
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM renders WHERE status = $1`, status).Scan(&count)
		return count, err
	}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM renders`).Scan(&count)
	return count, err
}

func (db *DB) UpdateRenderStatus(ctx context.Context, id uuid.UUID, status models.RenderStatus) error {
	query := `UPDATE renders SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UpdateRenderError(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	query := `
		UPDATE renders
		SET status = $1, error_code = $2, error_message = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.RenderStatusFailed, errorCode, errorMessage, id)
	return err
}

// SetRenderCompleted records the storage paths of the outputs. subtitlesPath
// is nil when no subtitles were produced; degraded marks runs where the
// duration cap forced content scaling.
func (db *DB) SetRenderCompleted(ctx context.Context, id uuid.UUID, videoPath string, subtitlesPath *string, degraded bool) error {
	query := `
		UPDATE renders
		SET status = $1, video_path = $2, subtitles_path = $3, degraded = $4, updated_at = NOW()
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, models.RenderStatusCompleted, videoPath, subtitlesPath, degraded, id)
	return err
}

// SaveSceneTimings persists the assembler's authoritative timing list,
// replacing any timings from a previous attempt of the same render.
func (db *DB) SaveSceneTimings(ctx context.Context, renderID uuid.UUID, timings []models.SceneTiming) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scene_timings WHERE render_id = $1`, renderID); err != nil {
		return fmt.Errorf("failed to clear old timings: %w", err)
	}

	query := `
		INSERT INTO scene_timings (render_id, scene, start_seconds, end_seconds, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, t := range timings {
		if _, err := tx.ExecContext(ctx, query, renderID, t.Scene, t.Start, t.End, t.Duration); err != nil {
			return fmt.Errorf("failed to insert timing for scene %d: %w", t.Scene, err)
		}
	}

	return tx.Commit()
}

func (db *DB) GetSceneTimings(ctx context.Context, renderID uuid.UUID) ([]models.SceneTiming, error) {
	query := `
		SELECT scene, start_seconds, end_seconds, duration_seconds
		FROM scene_timings
		WHERE render_id = $1
		ORDER BY scene
	`

	rows, err := db.QueryContext(ctx, query, renderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scene timings: %w", err)
	}
	defer rows.Close()

	var timings []models.SceneTiming
	for rows.Next() {
		var t models.SceneTiming
		if err := rows.Scan(&t.Scene, &t.Start, &t.End, &t.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan scene timing: %w", err)
		}
		timings = append(timings, t)
	}

	return timings, nil
}
