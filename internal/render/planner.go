package render

import (
	"log"

	"github.com/SytherAsh/Vizuara-backend/internal/models"
)

// maxPaddingReduction caps how much of the head/tail padding may be shaved
// off before falling back to scaling scene content.
const maxPaddingReduction = 0.8

// Plan is the planner's output: final per-scene durations plus the possibly
// adjusted padding values the assembler must apply to audio fades.
type Plan struct {
	Durations []float64
	HeadPad   float64
	TailPad   float64
	Total     float64

	// Degraded is set when the duration ceiling forced uniform scaling of
	// scene content, which can truncate narration audio. Padding-only
	// reduction never sets it.
	Degraded bool
}

// PlanDurations converts probed audio durations into final scene durations.
// Each scene gets max(minSceneSeconds, audio+head+tail); scenes without audio
// get the minimum. When opts.MaxTotalSeconds is set and exceeded, padding is
// reduced first (preserving all narration audio) and content is scaled only
// as a last resort.
func PlanDurations(audioDurations []float64, opts models.RenderOptions) Plan {
	plan := Plan{
		HeadPad: opts.HeadPad,
		TailPad: opts.TailPad,
	}
	if len(audioDurations) == 0 {
		return plan
	}

	plan.Durations = rawDurations(audioDurations, opts.MinSceneSeconds, plan.HeadPad, plan.TailPad)
	plan.Total = timelineTotal(plan.Durations, opts.CrossfadeSec)

	if opts.MaxTotalSeconds <= 0 || plan.Total <= opts.MaxTotalSeconds {
		return plan
	}

	excess := plan.Total - opts.MaxTotalSeconds

	withAudio := 0
	for _, d := range audioDurations {
		if d > 0 {
			withAudio++
		}
	}
	reducible := (plan.HeadPad + plan.TailPad) * float64(withAudio)

	if reducible > 0 {
		ratio := excess / reducible
		if ratio > maxPaddingReduction {
			ratio = maxPaddingReduction
		}
		plan.HeadPad *= 1 - ratio
		plan.TailPad *= 1 - ratio

		plan.Durations = rawDurations(audioDurations, opts.MinSceneSeconds, plan.HeadPad, plan.TailPad)
		plan.Total = timelineTotal(plan.Durations, opts.CrossfadeSec)

		log.Printf("[Planner] Reduced padding by %.0f%% to fit %.1fs ceiling (total now %.2fs)",
			ratio*100, opts.MaxTotalSeconds, plan.Total)
	}

	if plan.Total > opts.MaxTotalSeconds {
		// Padding alone was not enough; scale every scene uniformly.
		// This can trim narration audio, so the run is flagged degraded.
		scale := opts.MaxTotalSeconds / plan.Total
		for i, d := range plan.Durations {
			scaled := d * scale
			if scaled < opts.MinSceneSeconds {
				scaled = opts.MinSceneSeconds
			}
			plan.Durations[i] = scaled
		}
		plan.Total = timelineTotal(plan.Durations, opts.CrossfadeSec)
		plan.Degraded = true

		log.Printf("[Planner] Warning: scaled scene durations by %.2f to fit ceiling, narration may be truncated", scale)
	}

	return plan
}

func rawDurations(audioDurations []float64, minScene, headPad, tailPad float64) []float64 {
	durations := make([]float64, len(audioDurations))
	for i, audio := range audioDurations {
		if audio > 0 {
			d := audio + headPad + tailPad
			if d < minScene {
				d = minScene
			}
			durations[i] = d
		} else {
			durations[i] = minScene
		}
	}
	return durations
}

func timelineTotal(durations []float64, crossfade float64) float64 {
	total := 0.0
	for _, d := range durations {
		total += d
	}
	if n := len(durations); n > 1 {
		total -= crossfade * float64(n-1)
	}
	return total
}
