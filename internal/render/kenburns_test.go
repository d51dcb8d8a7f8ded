package render

import (
	"image"
	"image/color"
	"testing"
)

// solidImage builds a test source with a distinct color per quadrant so crops
// are distinguishable.
func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{50, 100, 150, 255}
			if x >= w/2 {
				c.R = 200
			}
			if y >= h/2 {
				c.G = 220
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func baseParams() FrameParams {
	return FrameParams{
		Source:    solidImage(320, 180),
		Width:     320,
		Height:    180,
		Duration:  4.0,
		ZoomStart: 1.0,
		ZoomEnd:   1.2,
		Pan:       PanNone,
	}
}

func TestFrameDimensionsAlwaysExact(t *testing.T) {
	p := baseParams()
	p.Pan = PanRight

	for _, tm := range []float64{-1, 0, 2, 4, 99} {
		f := Frame(p, tm)
		b := f.Bounds()
		if b.Dx() != 320 || b.Dy() != 180 {
			t.Errorf("t=%v: expected 320x180, got %dx%d", tm, b.Dx(), b.Dy())
		}
	}
}

func TestFrameZeroIsBaseCrop(t *testing.T) {
	p := baseParams() // start zoom 1.0

	f := Frame(p, 0)
	// At zoom 1.0 with no pan, the frame is the resampled source itself
	got := f.RGBAAt(10, 10)
	want := color.RGBA{50, 100, 150, 255}
	if got != want {
		t.Errorf("expected untouched top-left color %v, got %v", want, got)
	}
}

func TestFrameZeroDuration(t *testing.T) {
	p := baseParams()
	p.Duration = 0

	a := Frame(p, 0)
	b := Frame(p, 10)
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatal("zero-duration frames must be identical at any t")
		}
	}
}

func TestFrameZoomOutPadsBlack(t *testing.T) {
	p := baseParams()
	p.ZoomStart = 0.5
	p.ZoomEnd = 0.5

	f := Frame(p, 0)
	b := f.Bounds()
	if b.Dx() != 320 || b.Dy() != 180 {
		t.Fatalf("expected full output size, got %dx%d", b.Dx(), b.Dy())
	}
	// Corners sit outside the shrunken image and must be padded black
	if got := f.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("expected black padding at corner, got %v", got)
	}
	// Center still shows image content
	if got := f.RGBAAt(160, 90); got == (color.RGBA{0, 0, 0, 255}) {
		t.Error("expected image content at center, got padding")
	}
}

func TestFrameEndReflectsEndZoom(t *testing.T) {
	p := baseParams()
	p.ZoomStart = 1.0
	p.ZoomEnd = 0.5 // zoom-out over the scene

	start := Frame(p, 0)
	end := Frame(p, p.Duration)

	black := color.RGBA{0, 0, 0, 255}
	// At t=0 zoom is 1.0: no padding anywhere
	if got := start.RGBAAt(0, 0); got == black {
		t.Error("start frame should fill the output at zoom 1.0")
	}
	// At t=duration zoom is 0.5: corners must be padding
	if got := end.RGBAAt(0, 0); got != black {
		t.Errorf("end frame should show the end zoom's padding, got %v", got)
	}
}

func TestFramePanStaysInBounds(t *testing.T) {
	p := baseParams()
	p.ZoomStart = 1.05
	p.ZoomEnd = 1.15

	for _, dir := range []PanDirection{PanLeft, PanRight, PanUp, PanDown} {
		p.Pan = dir
		f := Frame(p, p.Duration)
		b := f.Bounds()
		if b.Dx() != 320 || b.Dy() != 180 {
			t.Errorf("pan %s: got %dx%d", dir, b.Dx(), b.Dy())
		}
	}
}

func TestResolvePan(t *testing.T) {
	tests := []struct {
		mode  string
		scene int
		want  PanDirection
	}{
		{"auto", 1, PanLeft},
		{"auto", 2, PanRight},
		{"auto", 3, PanUp},
		{"auto", 4, PanDown},
		{"auto", 5, PanLeft},
		{"left", 99, PanLeft},
		{"none", 1, PanNone},
		{"down", 2, PanDown},
	}
	for _, tt := range tests {
		if got := ResolvePan(tt.mode, tt.scene); got != tt.want {
			t.Errorf("ResolvePan(%q, %d) = %s, want %s", tt.mode, tt.scene, got, tt.want)
		}
	}
}
