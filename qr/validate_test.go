package qr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "URL", raw: "https://example.com", want: "https://example.com"},
		{name: "Surrounding whitespace", raw: "  hello world \n", want: "hello world"},
		{name: "Inner whitespace kept", raw: "a  b", want: "a  b"},
		{name: "Not a URL", raw: "just text", want: "just text"},
		{name: "Empty", raw: "", wantErr: ErrEmptyInput},
		{name: "Whitespace only", raw: " \t\n ", wantErr: ErrEmptyInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateText(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateText(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateText(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	if ErrEmptyInput.Error() != "Please enter a URL or text" {
		t.Errorf("unexpected message %q", ErrEmptyInput.Error())
	}
	var verr *ValidationError
	if !errors.As(ErrLogoTooLarge, &verr) || verr.Kind != KindLogoTooLarge {
		t.Errorf("errors.As failed for ErrLogoTooLarge")
	}
	if errors.Is(ErrLogoTooLarge, ErrLogoDimensionsExceeded) {
		t.Errorf("different kinds must not match")
	}
}

func TestCheckLogoSize(t *testing.T) {
	tests := []struct {
		n       int64
		wantErr bool
	}{
		{0, false},
		{10000, false},
		{MaxLogoBytes, false},
		{MaxLogoBytes + 1, true},
		{600000, true},
	}
	for _, tt := range tests {
		err := CheckLogoSize(tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckLogoSize(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
	}
}

func TestDecodeLogo(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 20"><rect x="0" y="0" width="40" height="20" fill="#FF0000"/></svg>`)
	bigSVG := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1200 10"><rect x="0" y="0" width="1200" height="10" fill="#FF0000"/></svg>`)

	tests := []struct {
		name     string
		data     []byte
		declared int64
		wantErr  error
		wantW    int
		wantH    int
	}{
		{name: "Valid PNG", data: solidPNG(t, 200, 200, red), wantW: 200, wantH: 200},
		{name: "Boundary dimensions", data: solidPNG(t, 1000, 1000, red), wantW: 1000, wantH: 1000},
		{name: "Too wide", data: solidPNG(t, 1001, 10, red), wantErr: ErrLogoDimensionsExceeded},
		{name: "Too tall", data: solidPNG(t, 10, 1001, red), wantErr: ErrLogoDimensionsExceeded},
		{name: "Declared too large", data: []byte("x"), declared: 600000, wantErr: ErrLogoTooLarge},
		{name: "Actual bytes too large", data: make([]byte, MaxLogoBytes+10), declared: 10, wantErr: ErrLogoTooLarge},
		{name: "Not an image", data: []byte("hello, world"), wantErr: ErrLogoUnreadable},
		{name: "SVG logo", data: svg, wantW: 40, wantH: 20},
		{name: "SVG too wide", data: bigSVG, wantErr: ErrLogoDimensionsExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			declared := tt.declared
			if declared == 0 {
				declared = int64(len(tt.data))
			}
			asset, err := DecodeLogo(context.Background(), bytes.NewReader(tt.data), declared)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeLogo() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if asset != nil {
					t.Errorf("DecodeLogo() returned an asset alongside an error")
				}
				return
			}
			if asset.Width != tt.wantW || asset.Height != tt.wantH {
				t.Errorf("DecodeLogo() = %dx%d, want %dx%d", asset.Width, asset.Height, tt.wantW, tt.wantH)
			}
			if asset.SizeBytes != int64(len(tt.data)) {
				t.Errorf("SizeBytes = %d, want %d", asset.SizeBytes, len(tt.data))
			}
		})
	}
}

func TestDecodeLogoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := solidPNG(t, 50, 50, color.Black)
	// Either the decode or the cancellation may win; a cancelled wait must
	// surface ctx.Err().
	asset, err := DecodeLogo(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("DecodeLogo() error = %v, want nil or context.Canceled", err)
	}
	if err != nil && asset != nil {
		t.Errorf("asset returned with error")
	}
}
