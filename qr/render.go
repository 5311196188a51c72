package qr

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
)

// Symbol and overlay bounds. Out-of-range values are clamped, not rejected.
const (
	MinSize     = 128
	MaxSize     = 512
	DefaultSize = 256

	MinLogoPercent     = 20
	MaxLogoPercent     = 35
	DefaultLogoPercent = 30

	// LogoPadding is the white margin, in pixels, around the logo box.
	LogoPadding = 8
)

// Level is a QR error-correction level.
type Level int

const (
	LevelL Level = iota
	LevelM
	LevelQ
	LevelH
)

func (l Level) String() string {
	switch l {
	case LevelL:
		return "L"
	case LevelM:
		return "M"
	case LevelQ:
		return "Q"
	case LevelH:
		return "H"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel accepts L, M, Q or H, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L":
		return LevelL, nil
	case "M":
		return LevelM, nil
	case "Q":
		return LevelQ, nil
	case "H":
		return LevelH, nil
	}
	return 0, fmt.Errorf("unknown error correction level %q", s)
}

// go-qrcode names the QR levels by recovery capacity: its "High" is Q and
// "Highest" is H.
func (l Level) recovery() qrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return qrcode.Low
	case LevelM:
		return qrcode.Medium
	case LevelQ:
		return qrcode.High
	default:
		return qrcode.Highest
	}
}

// ClampSize bounds a symbol size to [MinSize, MaxSize].
func ClampSize(n int) int {
	return clamp(n, MinSize, MaxSize)
}

// ClampLogoPercent bounds a logo percentage to [MinLogoPercent, MaxLogoPercent].
func ClampLogoPercent(p int) int {
	return clamp(p, MinLogoPercent, MaxLogoPercent)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// EncodeRequest describes one symbol to render.
type EncodeRequest struct {
	Text        string
	Size        int
	Level       Level
	Logo        *LogoAsset
	LogoPercent int
}

// Overlay is a logo drawn over the centre of a symbol. Box is the logo area,
// Pad the white backing behind it and LogoRect where the fitted logo lands
// inside Box. All rectangles are in symbol pixels.
type Overlay struct {
	Box      image.Rectangle
	Pad      image.Rectangle
	LogoRect image.Rectangle
	Logo     image.Image
}

// RenderedSymbol is an encoded QR symbol ready for display or export.
// Modules includes the quiet zone.
type RenderedSymbol struct {
	Payload string
	Level   Level
	Size    int
	Modules [][]bool
	Overlay *Overlay
}

// Render encodes req.Text. Size and LogoPercent are clamped; the text is
// encoded exactly as given.
func Render(req EncodeRequest) (*RenderedSymbol, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}

	code, err := qrcode.New(req.Text, req.Level.recovery())
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	size := ClampSize(req.Size)
	sym := &RenderedSymbol{
		Payload: req.Text,
		Level:   req.Level,
		Size:    size,
		Modules: code.Bitmap(),
	}
	if req.Logo != nil && req.Logo.Image != nil {
		sym.Overlay = newOverlay(req.Logo.Image, size, ClampLogoPercent(req.LogoPercent))
	}
	return sym, nil
}

// newOverlay centres a square box of percent% of size and fits the logo
// inside it, keeping its aspect ratio.
func newOverlay(logo image.Image, size, percent int) *Overlay {
	edge := int(math.Round(float64(percent) * float64(size) / 100))
	origin := (size - edge) / 2
	box := image.Rect(origin, origin, origin+edge, origin+edge)

	lb := logo.Bounds()
	scale := math.Min(float64(edge)/float64(lb.Dx()), float64(edge)/float64(lb.Dy()))
	w := max(1, int(math.Round(float64(lb.Dx())*scale)))
	h := max(1, int(math.Round(float64(lb.Dy())*scale)))
	fitted := imaging.Resize(logo, w, h, imaging.Lanczos)

	at := image.Pt(box.Min.X+(edge-w)/2, box.Min.Y+(edge-h)/2)
	return &Overlay{
		Box:      box,
		Pad:      box.Inset(-LogoPadding),
		LogoRect: image.Rectangle{Min: at, Max: at.Add(image.Pt(w, h))},
		Logo:     fitted,
	}
}
