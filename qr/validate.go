// Package qr holds the QR pipeline: input validation, symbol rendering and
// PNG export.
package qr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Limits applied to logo candidates.
const (
	MaxLogoBytes     = 500000
	MaxLogoDimension = 1000
)

// ErrorKind identifies a user-facing validation failure.
type ErrorKind string

const (
	KindEmptyInput             ErrorKind = "empty_input"
	KindLogoTooLarge           ErrorKind = "logo_too_large"
	KindLogoDimensionsExceeded ErrorKind = "logo_dimensions_exceeded"
	KindLogoUnreadable         ErrorKind = "logo_unreadable"
)

// ValidationError is returned when user input is rejected. Message is the
// text shown to the user.
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches any ValidationError of the same kind.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyInput             = &ValidationError{Kind: KindEmptyInput, Message: "Please enter a URL or text"}
	ErrLogoTooLarge           = &ValidationError{Kind: KindLogoTooLarge, Message: "Logo file size should be less than 500KB"}
	ErrLogoDimensionsExceeded = &ValidationError{Kind: KindLogoDimensionsExceeded, Message: "Logo dimensions should be less than 1000x1000 pixels"}
	ErrLogoUnreadable         = &ValidationError{Kind: KindLogoUnreadable, Message: "Logo could not be read as an image"}
)

// LogoAsset is a decoded logo that passed both validation phases.
type LogoAsset struct {
	Image     image.Image
	Format    string
	Width     int
	Height    int
	SizeBytes int64
}

// ValidateText trims surrounding whitespace and rejects empty input. Any
// other string is accepted as is; URLs are not checked.
func ValidateText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}

// CheckLogoSize is the cheap pre-decode phase of logo validation.
func CheckLogoSize(n int64) error {
	if n > MaxLogoBytes {
		return ErrLogoTooLarge
	}
	return nil
}

// DecodeLogo validates a logo candidate of declared size n. The byte ceiling
// is checked before anything is read; decoding then runs in its own goroutine
// and its dimensions are checked against MaxLogoDimension. If ctx ends first
// the pending result is discarded.
func DecodeLogo(ctx context.Context, r io.Reader, n int64) (*LogoAsset, error) {
	if err := CheckLogoSize(n); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxLogoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	if err := CheckLogoSize(int64(len(data))); err != nil {
		return nil, err
	}

	type result struct {
		img    image.Image
		format string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		img, format, err := decodeLogoImage(data)
		done <- result{img: img, format: format, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		b := res.img.Bounds()
		return &LogoAsset{
			Image:     res.img,
			Format:    res.format,
			Width:     b.Dx(),
			Height:    b.Dy(),
			SizeBytes: int64(len(data)),
		}, nil
	}
}

// decodeLogoImage reads the header first so oversized rasters are rejected
// before their pixels are allocated.
func decodeLogoImage(data []byte) (image.Image, string, error) {
	if looksLikeSVG(data) {
		return decodeSVGLogo(data)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrLogoUnreadable
	}
	if exceedsLogoDimensions(cfg.Width, cfg.Height) {
		return nil, "", ErrLogoDimensionsExceeded
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrLogoUnreadable
	}
	return img, format, nil
}

func exceedsLogoDimensions(w, h int) bool {
	return w > MaxLogoDimension || h > MaxLogoDimension
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimSpace(head)
	return bytes.HasPrefix(head, []byte("<")) && bytes.Contains(head, []byte("<svg"))
}
