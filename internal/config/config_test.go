package config

import "testing"

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{"1280X720", 1280, 720, false},
		{"640 x 480", 640, 480, false},
		{"1080", 0, 0, true},
		{"axb", 0, 0, true},
		{"0x1080", 0, 0, true},
	}

	for _, tt := range tests {
		w, h, err := ParseResolution(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseResolution(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseResolution(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if w != tt.w || h != tt.h {
			t.Errorf("ParseResolution(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestRenderOptionsDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := cfg.RenderOptions()
	if opts.FPS != 30 || opts.Width != 1920 || opts.Height != 1080 {
		t.Errorf("unexpected video defaults: %+v", opts)
	}
	if opts.CrossfadeSec != 0.3 || opts.MinSceneSeconds != 2.0 {
		t.Errorf("unexpected timing defaults: %+v", opts)
	}
	if opts.HeadPad != 0.15 || opts.TailPad != 0.15 {
		t.Errorf("unexpected padding defaults: %+v", opts)
	}
	if !opts.KenBurns || opts.ZoomStart != 1.05 || opts.ZoomEnd != 1.15 || opts.PanMode != "auto" {
		t.Errorf("unexpected motion defaults: %+v", opts)
	}
	if opts.MaxTotalSeconds != 0 {
		t.Errorf("duration cap should default to unset, got %v", opts.MaxTotalSeconds)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "key")

	if _, err := Load(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
}
