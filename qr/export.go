package qr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
)

// ExportArtifact is a PNG rendition of a symbol, alive only until saved.
type ExportArtifact struct {
	Filename string
	PNG      []byte
	Width    int
	Height   int
}

// DataURI returns the PNG as a data:image/png;base64 URI.
func (a *ExportArtifact) DataURI() string {
	return encodeDataURI(pngDataURIPrefix, a.PNG)
}

// Filename returns the download name for an export made at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("qr-code-%d.png", t.UnixMilli())
}

// Exporter turns rendered symbols into PNG artifacts.
type Exporter struct {
	now func() time.Time
}

// NewExporter returns an Exporter stamping filenames with the wall clock.
func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

// NewExporterWithClock is NewExporter with an injected clock.
func NewExporterWithClock(now func() time.Time) *Exporter {
	return &Exporter{now: now}
}

// Export serializes sym to SVG, round-trips it through a data URI, rasterizes
// it at the SVG's natural size and bakes the logo overlay in. A nil symbol
// yields a nil artifact and no error.
func (e *Exporter) Export(ctx context.Context, sym *RenderedSymbol) (*ExportArtifact, error) {
	if sym == nil {
		return nil, nil
	}

	svg, err := sym.SVG()
	if err != nil {
		return nil, fmt.Errorf("serialize symbol: %w", err)
	}
	uri := encodeDataURI(svgDataURIPrefix, svg)

	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := rasterizeDataURI(uri)
		done <- result{img: img, err: err}
	}()

	var img image.Image
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		img = res.img
	}

	// oksvg does not paint <image> elements; the logo is composited from the
	// overlay the SVG was written from.
	if o := sym.Overlay; o != nil {
		img = imaging.Overlay(img, o.Logo, o.LogoRect.Min, 1.0)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	b := img.Bounds()
	return &ExportArtifact{
		Filename: Filename(e.now()),
		PNG:      buf.Bytes(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

func rasterizeDataURI(uri string) (image.Image, error) {
	svg, err := decodeDataURI(svgDataURIPrefix, uri)
	if err != nil {
		return nil, fmt.Errorf("decode svg data uri: %w", err)
	}
	w, h, err := naturalSize(svg)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	img := rasterizeSVG(icon, w, h)
	binarize(img)
	return img, nil
}

// Saver delivers an artifact to the user.
type Saver interface {
	Save(ctx context.Context, a *ExportArtifact) error
}

// DirSaver writes artifacts into Dir under their own filename.
type DirSaver struct {
	Dir string
}

// Save writes a.PNG to Dir/a.Filename, creating Dir if needed.
func (s DirSaver) Save(ctx context.Context, a *ExportArtifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", s.Dir, err)
	}
	if err := os.WriteFile(s.Path(a), a.PNG, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", a.Filename, err)
	}
	return nil
}

// Path is where Save puts a.
func (s DirSaver) Path(a *ExportArtifact) string {
	return filepath.Join(s.Dir, a.Filename)
}
