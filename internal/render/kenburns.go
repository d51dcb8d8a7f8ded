package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// panStrength is the pan offset magnitude as a fraction of frame size.
const panStrength = 0.06

// PanDirection is the camera pan applied over a scene's duration.
type PanDirection string

const (
	PanNone  PanDirection = "none"
	PanLeft  PanDirection = "left"
	PanRight PanDirection = "right"
	PanUp    PanDirection = "up"
	PanDown  PanDirection = "down"
)

// ResolvePan maps a configured pan mode to a concrete direction. "auto"
// cycles through directions by 1-based scene index so consecutive scenes
// don't all drift the same way.
func ResolvePan(mode string, sceneIndex int) PanDirection {
	switch mode {
	case "left":
		return PanLeft
	case "right":
		return PanRight
	case "up":
		return PanUp
	case "down":
		return PanDown
	case "none":
		return PanNone
	default: // auto
		switch sceneIndex % 4 {
		case 1:
			return PanLeft
		case 2:
			return PanRight
		case 3:
			return PanUp
		default:
			return PanDown
		}
	}
}

// FrameParams holds everything needed to compute any frame of one scene's
// pan/zoom motion. It is immutable once built; Frame is a pure function of
// (params, t), so there is no per-clip mutable state to share.
type FrameParams struct {
	Source    image.Image
	Width     int
	Height    int
	Duration  float64
	ZoomStart float64
	ZoomEnd   float64
	Pan       PanDirection
}

// Frame renders the scene's frame at time t as a Width x Height RGBA buffer.
// t is clamped to [0, Duration]; a zero duration always yields the t=0 frame.
// The output is always exactly Width x Height: when edge clamping or a
// zoom-out leaves the crop window short, the remainder is padded black.
func Frame(p FrameParams, t float64) *image.RGBA {
	progress := 0.0
	if p.Duration > 0 {
		progress = t / p.Duration
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
	}

	zoom := p.ZoomStart + (p.ZoomEnd-p.ZoomStart)*progress

	zw := int(float64(p.Width)*zoom + 0.5)
	zh := int(float64(p.Height)*zoom + 0.5)
	if zw < 1 {
		zw = 1
	}
	if zh < 1 {
		zh = 1
	}

	zoomed := image.NewRGBA(image.Rect(0, 0, zw, zh))
	xdraw.CatmullRom.Scale(zoomed, zoomed.Bounds(), p.Source, p.Source.Bounds(), xdraw.Over, nil)

	// Pan shifts the crop window center, growing with progress
	dx, dy := 0.0, 0.0
	switch p.Pan {
	case PanLeft:
		dx = -panStrength * float64(p.Width) * progress
	case PanRight:
		dx = panStrength * float64(p.Width) * progress
	case PanUp:
		dy = -panStrength * float64(p.Height) * progress
	case PanDown:
		dy = panStrength * float64(p.Height) * progress
	}

	cropX := float64(zw)/2 + dx - float64(p.Width)/2
	cropY := float64(zh)/2 + dy - float64(p.Height)/2

	x0 := clampInt(int(cropX+0.5), 0, maxInt(zw-p.Width, 0))
	y0 := clampInt(int(cropY+0.5), 0, maxInt(zh-p.Height, 0))
	x1 := minInt(x0+p.Width, zw)
	y1 := minInt(y0+p.Height, zh)

	out := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	fillRGBA(out, color.RGBA{0, 0, 0, 255})

	// Center the crop inside the output when it comes up short (zoom-out)
	offX := (p.Width - (x1 - x0)) / 2
	offY := (p.Height - (y1 - y0)) / 2
	dst := image.Rect(offX, offY, offX+(x1-x0), offY+(y1-y0))
	xdraw.Copy(out, dst.Min, zoomed, image.Rect(x0, y0, x1, y1), xdraw.Src, nil)

	return out
}

func fillRGBA(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			row[i] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = c.A
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
