package qr

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/disintegration/imaging"
)

// SVG returns the symbol serialized as an SVG document.
func (s *RenderedSymbol) SVG() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteSVG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSVG serializes the symbol at its pixel size. Dark modules are written
// as a single path of horizontal runs; a logo overlay adds a white pad and an
// embedded PNG image on top.
func (s *RenderedSymbol) WriteSVG(w io.Writer) error {
	bw := bufio.NewWriter(w)
	size := s.Size

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, size, size, size, size)
	fmt.Fprintf(bw, `<rect x="0" y="0" width="%d" height="%d" fill="#FFFFFF"/>`, size, size)

	if n := len(s.Modules); n > 0 {
		cell := float64(size) / float64(n)
		bw.WriteString(`<path fill="#000000" d="`)
		for y, row := range s.Modules {
			for x := 0; x < len(row); {
				if !row[x] {
					x++
					continue
				}
				start := x
				for x < len(row) && row[x] {
					x++
				}
				x0, x1 := snap(start, cell), snap(x, cell)
				y0, y1 := snap(y, cell), snap(y+1, cell)
				fmt.Fprintf(bw, "M%d %dH%dV%dH%dZ", x0, y0, x1, y1, x0)
			}
		}
		bw.WriteString(`"/>`)
	}

	if o := s.Overlay; o != nil {
		fmt.Fprintf(bw, `<rect x="%d" y="%d" width="%d" height="%d" fill="#FFFFFF"/>`,
			o.Pad.Min.X, o.Pad.Min.Y, o.Pad.Dx(), o.Pad.Dy())

		var logo bytes.Buffer
		if err := imaging.Encode(&logo, o.Logo, imaging.PNG); err != nil {
			return fmt.Errorf("encode logo overlay: %w", err)
		}
		fmt.Fprintf(bw, `<image x="%d" y="%d" width="%d" height="%d" href="%s"/>`,
			o.LogoRect.Min.X, o.LogoRect.Min.Y, o.LogoRect.Dx(), o.LogoRect.Dy(),
			encodeDataURI(pngDataURIPrefix, logo.Bytes()))
	}

	bw.WriteString(`</svg>`)
	return bw.Flush()
}

// snap maps a module edge to the nearest whole pixel so neighbouring runs
// share edges and no pixel is partially covered.
func snap(module int, cell float64) int {
	return int(math.Round(float64(module) * cell))
}
