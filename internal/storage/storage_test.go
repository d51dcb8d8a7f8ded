package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestAssetPaths(t *testing.T) {
	s := New("https://example.supabase.co", "key", "bucket")

	tests := []struct {
		got  string
		want string
	}{
		{s.SceneImagePath("ocean", 3), "ocean/scene_3.jpg"},
		{s.SceneAudioPath("ocean", 3), "ocean/scene_3.mp3"},
		{s.NarrationPath("ocean", 3), "ocean/scene_3_narration.txt"},
		{s.MusicPath("ocean"), "ocean/music.mp3"},
		{s.VideoPath("ocean", "Deep Dive"), "ocean/Deep_Dive.mp4"},
		{s.SubtitlesPath("ocean", "Deep Dive"), "ocean/Deep_Dive.srt"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Video", "My_Video"},
		{"a/b\\c:d", "abcd"},
		{"###", "video"},
		{"ok-name_v2.final", "ok-name_v2.final"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDownloadRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "bucket")

	data, err := s.Download(context.Background(), "proj/scene_1.jpg")
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("unexpected body: %q", data)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDownloadDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "bucket")

	if _, err := s.Download(context.Background(), "proj/missing.jpg"); err == nil {
		t.Fatal("expected error for 404")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("404 must not be retried, got %d attempts", calls)
	}
}

func TestUploadSendsUpsert(t *testing.T) {
	var gotUpsert, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUpsert = r.Header.Get("x-upsert")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(srv.URL, "secret", "bucket")

	if err := s.Upload(context.Background(), "proj/out.mp4", []byte("x"), "video/mp4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUpsert != "true" {
		t.Errorf("expected x-upsert=true, got %q", gotUpsert)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
}
