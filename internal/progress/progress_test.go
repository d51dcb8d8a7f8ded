package progress

import (
	"testing"
	"time"
)

func TestSetClampsPercent(t *testing.T) {
	tr := NewTracker()

	tr.Set("t1", 150, "x", 1, 1)
	s, ok := tr.Get("t1")
	if !ok {
		t.Fatal("expected task to exist")
	}
	if s.Percent != 100 {
		t.Errorf("expected percent clamped to 100, got %d", s.Percent)
	}

	tr.Set("t1", -10, "x", 1, 1)
	s, _ = tr.Get("t1")
	if s.Percent != 0 {
		t.Errorf("expected percent clamped to 0, got %d", s.Percent)
	}
}

func TestSetOverwrites(t *testing.T) {
	tr := NewTracker()

	tr.Set("t1", 10, "probing audio", 1, 5)
	tr.Set("t1", 40, "rendering scenes", 2, 5)

	s, _ := tr.Get("t1")
	if s.Percent != 40 || s.Message != "rendering scenes" || s.Current != 2 {
		t.Errorf("unexpected state after overwrite: %+v", s)
	}
}

func TestClear(t *testing.T) {
	tr := NewTracker()

	tr.Set("t1", 50, "halfway", 1, 2)
	tr.Clear("t1")

	if _, ok := tr.Get("t1"); ok {
		t.Error("expected task to be gone after Clear")
	}
}

func TestGetUnknownTask(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Get("nope"); ok {
		t.Error("expected ok=false for unknown task")
	}
}

func TestCleanupOld(t *testing.T) {
	tr := NewTracker()

	tr.Set("old", 10, "", 0, 0)
	// Backdate the entry past the TTL
	tr.mu.Lock()
	s := tr.tasks["old"]
	s.UpdatedAt = time.Now().Add(-2 * time.Hour)
	tr.tasks["old"] = s
	tr.mu.Unlock()

	tr.Set("fresh", 20, "", 0, 0)

	removed := tr.CleanupOld(time.Hour)
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := tr.Get("old"); ok {
		t.Error("expected old task swept")
	}
	if _, ok := tr.Get("fresh"); !ok {
		t.Error("expected fresh task kept")
	}
}

func TestEncoderLogMapsSubRange(t *testing.T) {
	tr := NewTracker()
	el := NewEncoderLog(tr, "t1", 100, 80, 95, "encoding")
	el.minInterval = 0

	el.Write([]byte("frame=50\nfps=30.1\nbitrate=900k\n"))

	s, ok := tr.Get("t1")
	if !ok {
		t.Fatal("expected a progress update")
	}
	// 50/100 frames across [80,95] -> 80 + 7 = 87
	if s.Percent != 87 {
		t.Errorf("expected 87%%, got %d", s.Percent)
	}
	if s.Current != 50 || s.Total != 100 {
		t.Errorf("expected 50/100 frames, got %d/%d", s.Current, s.Total)
	}
}

func TestEncoderLogClampsOvershoot(t *testing.T) {
	tr := NewTracker()
	el := NewEncoderLog(tr, "t1", 100, 80, 95, "encoding")
	el.minInterval = 0

	// ffmpeg can emit a few frames past the computed total
	el.Write([]byte("frame=130\n"))

	s, _ := tr.Get("t1")
	if s.Percent != 95 {
		t.Errorf("expected clamp at span top 95, got %d", s.Percent)
	}
}

func TestEncoderLogThrottlesSmallSteps(t *testing.T) {
	tr := NewTracker()
	el := NewEncoderLog(tr, "t1", 1000, 0, 100, "encoding")
	el.minInterval = 0

	el.Write([]byte("frame=100\n"))
	el.Write([]byte("frame=101\n")) // +0.1%, below the minimum step

	s, _ := tr.Get("t1")
	if s.Current != 100 {
		t.Errorf("expected second write dropped, current=%d", s.Current)
	}

	el.Write([]byte("frame=200\n"))
	s, _ = tr.Get("t1")
	if s.Current != 200 {
		t.Errorf("expected third write applied, current=%d", s.Current)
	}
}

func TestEncoderLogPartialLines(t *testing.T) {
	tr := NewTracker()
	el := NewEncoderLog(tr, "t1", 100, 0, 100, "encoding")
	el.minInterval = 0

	// A line split across two writes must still parse
	el.Write([]byte("fra"))
	el.Write([]byte("me=25\n"))

	s, ok := tr.Get("t1")
	if !ok || s.Current != 25 {
		t.Errorf("expected frame 25 parsed across writes, got %+v", s)
	}
}
