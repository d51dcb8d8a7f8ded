package render

import (
	"errors"
	"testing"
)

func TestLayoutScenesOverlap(t *testing.T) {
	scenes := []SceneInput{
		{Index: 1, Image: []byte{1}},
		{Index: 2, Image: []byte{1}},
	}
	plan := Plan{Durations: []float64{5.3, 3.3}}

	layouts, err := layoutScenes(scenes, []float64{5.0, 3.0}, plan, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if layouts[0].Start != 0 || !almostEqual(layouts[0].End, 5.3) {
		t.Errorf("scene 1 misplaced: [%f, %f]", layouts[0].Start, layouts[0].End)
	}
	// Second scene starts a crossfade early
	if !almostEqual(layouts[1].Start, 5.0) || !almostEqual(layouts[1].End, 8.3) {
		t.Errorf("scene 2 misplaced: [%f, %f]", layouts[1].Start, layouts[1].End)
	}
	for _, l := range layouts {
		if !almostEqual(l.End-l.Start, l.Duration) {
			t.Errorf("scene %d: end-start != duration", l.Scene.Index)
		}
	}
}

func TestLayoutScenesSkipsMissingImage(t *testing.T) {
	scenes := []SceneInput{
		{Index: 1, Image: []byte{1}},
		{Index: 2}, // no image
		{Index: 3, Image: []byte{1}},
	}
	plan := Plan{Durations: []float64{3.0, 2.0, 4.0}}

	layouts, err := layoutScenes(scenes, []float64{0, 0, 0}, plan, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(layouts) != 2 {
		t.Fatalf("expected 2 layouts, got %d", len(layouts))
	}
	// Original 1-based scene numbers survive the skip
	if layouts[0].Scene.Index != 1 || layouts[1].Scene.Index != 3 {
		t.Errorf("scene numbers not preserved: %d, %d", layouts[0].Scene.Index, layouts[1].Scene.Index)
	}
	// Scene 3 packs directly against scene 1, not at its original slot
	if !almostEqual(layouts[1].Start, 2.7) {
		t.Errorf("expected scene 3 at 2.7 (3.0 - crossfade), got %f", layouts[1].Start)
	}
}

func TestLayoutScenesAllSkipped(t *testing.T) {
	scenes := []SceneInput{{Index: 1}, {Index: 2}}
	plan := Plan{Durations: []float64{2, 2}}

	_, err := layoutScenes(scenes, []float64{0, 0}, plan, 0.3)
	if !errors.Is(err, ErrNoValidScenes) {
		t.Errorf("expected ErrNoValidScenes, got %v", err)
	}
}

func TestLayoutScenesSingle(t *testing.T) {
	scenes := []SceneInput{{Index: 1, Image: []byte{1}}}
	plan := Plan{Durations: []float64{2.0}}

	layouts, err := layoutScenes(scenes, []float64{0}, plan, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No incoming overlap on the first scene
	if layouts[0].Start != 0 || !almostEqual(layouts[0].End, 2.0) {
		t.Errorf("single scene misplaced: [%f, %f]", layouts[0].Start, layouts[0].End)
	}
}
