package render

import (
	"math"
	"testing"

	"github.com/SytherAsh/Vizuara-backend/internal/models"
)

func plannerOpts() models.RenderOptions {
	return models.RenderOptions{
		MinSceneSeconds: 2.0,
		HeadPad:         0.15,
		TailPad:         0.15,
		CrossfadeSec:    0.3,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPlanDurationsBasic(t *testing.T) {
	plan := PlanDurations([]float64{5.0, 3.0}, plannerOpts())

	want := []float64{5.3, 3.3}
	for i, d := range plan.Durations {
		if !almostEqual(d, want[i]) {
			t.Errorf("scene %d: expected %.2f, got %.2f", i+1, want[i], d)
		}
	}
	if !almostEqual(plan.Total, 8.3) {
		t.Errorf("expected total 8.3, got %f", plan.Total)
	}
	if plan.Degraded {
		t.Error("clean plan should not be degraded")
	}
}

func TestPlanDurationsMinimumFloor(t *testing.T) {
	// Short and missing audio both land at the minimum
	plan := PlanDurations([]float64{0.5, 0}, plannerOpts())

	for i, d := range plan.Durations {
		if d < 2.0 {
			t.Errorf("scene %d below minimum: %f", i+1, d)
		}
	}
}

func TestPlanDurationsPaddingReduction(t *testing.T) {
	opts := plannerOpts()
	// Natural total: 10.3 + 10.3 - 0.3 = 20.3; padding reduction alone
	// (0.6 reducible) can absorb a 0.3s excess.
	opts.MaxTotalSeconds = 20.0

	plan := PlanDurations([]float64{10.0, 10.0}, opts)

	if plan.Total > opts.MaxTotalSeconds+1e-9 {
		t.Errorf("total %.3f exceeds ceiling %.1f", plan.Total, opts.MaxTotalSeconds)
	}
	if plan.Degraded {
		t.Error("padding-only reduction must not be flagged degraded")
	}
	// Full narration audio still fits inside each scene
	for i, audio := range []float64{10.0, 10.0} {
		if plan.Durations[i] < audio {
			t.Errorf("scene %d duration %.3f shorter than its audio %.1f", i+1, plan.Durations[i], audio)
		}
	}
	if plan.HeadPad >= 0.15 || plan.TailPad >= 0.15 {
		t.Errorf("expected padding reduced, got head=%.3f tail=%.3f", plan.HeadPad, plan.TailPad)
	}
}

func TestPlanDurationsDegradedScaling(t *testing.T) {
	opts := plannerOpts()
	// Padding reduction is capped at 80% and cannot absorb this much excess
	opts.MaxTotalSeconds = 15.0

	plan := PlanDurations([]float64{10.0, 10.0}, opts)

	if !plan.Degraded {
		t.Error("expected degraded flag when content scaling kicks in")
	}
	if plan.Total > opts.MaxTotalSeconds+1e-9 {
		t.Errorf("total %.3f exceeds ceiling %.1f", plan.Total, opts.MaxTotalSeconds)
	}
	for i, d := range plan.Durations {
		if d < opts.MinSceneSeconds {
			t.Errorf("scene %d scaled below minimum: %f", i+1, d)
		}
	}
}

func TestPlanDurationsNoCeiling(t *testing.T) {
	opts := plannerOpts()
	opts.MaxTotalSeconds = 0 // unset

	plan := PlanDurations([]float64{60.0, 60.0}, opts)
	if !almostEqual(plan.Total, 60.3+60.3-0.3) {
		t.Errorf("expected untouched total, got %f", plan.Total)
	}
	if plan.HeadPad != 0.15 || plan.TailPad != 0.15 {
		t.Error("padding must be untouched without a ceiling")
	}
}

func TestPlanDurationsIdempotent(t *testing.T) {
	opts := plannerOpts()
	opts.MaxTotalSeconds = 18.0
	audio := []float64{10.0, 10.0}

	first := PlanDurations(audio, opts)
	second := PlanDurations(audio, opts)

	for i := range first.Durations {
		if first.Durations[i] != second.Durations[i] {
			t.Errorf("scene %d: %.6f != %.6f across runs", i+1, first.Durations[i], second.Durations[i])
		}
	}
	if first.Degraded != second.Degraded {
		t.Error("degraded flag differs across identical runs")
	}
}

func TestPlanDurationsEmpty(t *testing.T) {
	plan := PlanDurations(nil, plannerOpts())
	if len(plan.Durations) != 0 || plan.Total != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}
