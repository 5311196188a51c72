package qr

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	svgDataURIPrefix = "data:image/svg+xml;base64,"
	pngDataURIPrefix = "data:image/png;base64,"
)

// rasterizeSVG paints icon onto a new w×h canvas.
func rasterizeSVG(icon *oksvg.SvgIcon, w, h int) *image.RGBA {
	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img
}

// binarize forces every pixel of a rasterized symbol to pure black or white.
// The scanner anti-aliases, and oksvg ignores shape-rendering="crispEdges".
func binarize(img *image.RGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		p := img.Pix[i : i+4 : i+4]
		v := uint8(0xff)
		if int(p[0])+int(p[1])+int(p[2]) < 3*0x80 {
			v = 0
		}
		p[0], p[1], p[2], p[3] = v, v, v, 0xff
	}
}

// decodeSVGLogo rasterizes an SVG logo at the size of its viewBox.
func decodeSVGLogo(data []byte) (image.Image, string, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, "", ErrLogoUnreadable
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, "", ErrLogoUnreadable
	}
	if exceedsLogoDimensions(w, h) {
		return nil, "", ErrLogoDimensionsExceeded
	}
	return rasterizeSVG(icon, w, h), "svg", nil
}

func encodeDataURI(prefix string, data []byte) string {
	return prefix + base64.StdEncoding.EncodeToString(data)
}

func decodeDataURI(prefix, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, prefix) {
		return nil, fmt.Errorf("data uri: want prefix %q", prefix)
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
}

// naturalSize reads the width and height attributes of the root svg element.
func naturalSize(svg []byte) (int, int, error) {
	dec := xml.NewDecoder(bytes.NewReader(svg))
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, fmt.Errorf("read svg root: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "svg" {
			return 0, 0, errors.New("root element is not svg")
		}
		var w, h int
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "width":
				w, err = strconv.Atoi(strings.TrimSuffix(attr.Value, "px"))
			case "height":
				h, err = strconv.Atoi(strings.TrimSuffix(attr.Value, "px"))
			}
			if err != nil {
				return 0, 0, fmt.Errorf("svg %s: %w", attr.Name.Local, err)
			}
		}
		if w <= 0 || h <= 0 {
			return 0, 0, errors.New("svg has no natural size")
		}
		return w, h, nil
	}
}
