// Package session owns the per-user state of the QR studio and the
// transitions that change it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/qrstudio/qr"
)

// ErrBusy is returned by Generate and Download while another one is pending.
var ErrBusy = errors.New("generation already in progress")

// State is a snapshot of one session. Payload is the text of the current
// symbol; Error is the message shown to the user, empty when none.
type State struct {
	Payload     string
	Size        int
	LogoPercent int
	Logo        *qr.LogoAsset
	Symbol      *qr.RenderedSymbol
	Error       string
	Loading     bool
}

// Options configures new controllers.
type Options struct {
	// Delay is how long Generate shows the loading state before committing.
	// Zero commits immediately.
	Delay              time.Duration
	DefaultSize        int
	DefaultLogoPercent int
	Exporter           *qr.Exporter
	Log                *slog.Logger
}

// Controller serializes all mutations of a session's State.
type Controller struct {
	mu       sync.RWMutex
	state    State
	delay    time.Duration
	exporter *qr.Exporter
	log      *slog.Logger
}

// NewController creates a controller with an empty session.
func NewController(opts Options) *Controller {
	size := opts.DefaultSize
	if size == 0 {
		size = qr.DefaultSize
	}
	percent := opts.DefaultLogoPercent
	if percent == 0 {
		percent = qr.DefaultLogoPercent
	}
	exporter := opts.Exporter
	if exporter == nil {
		exporter = qr.NewExporter()
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		state: State{
			Size:        qr.ClampSize(size),
			LogoPercent: qr.ClampLogoPercent(percent),
		},
		delay:    opts.Delay,
		exporter: exporter,
		log:      log,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Generate validates raw and, after the configured delay, replaces the
// current symbol with one encoding the trimmed text. Blank input only sets
// the error message. A cancelled ctx abandons the pending generation and
// leaves the previous symbol in place.
func (c *Controller) Generate(ctx context.Context, raw string) error {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.Error = ""
	text, err := qr.ValidateText(raw)
	if err != nil {
		c.state.Error = userMessage(err)
		c.mu.Unlock()
		return err
	}
	c.state.Loading = true
	c.mu.Unlock()

	waitErr := c.wait(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if waitErr != nil {
		return waitErr
	}

	// Size and logo may have changed during the delay; render with the
	// values current at commit time.
	sym, err := qr.Render(c.requestLocked(text))
	if err != nil {
		return fmt.Errorf("render symbol: %w", err)
	}
	c.state.Payload = text
	c.state.Symbol = sym
	c.log.Debug("symbol generated", "size", sym.Size, "modules", len(sym.Modules), "logo", sym.Overlay != nil)
	return nil
}

func (c *Controller) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AttachLogo validates a logo candidate of declared size n. On success it
// replaces the current logo and clears the error; on a validation failure
// it sets the error message and keeps the previous logo.
func (c *Controller) AttachLogo(ctx context.Context, r io.Reader, n int64) error {
	asset, err := qr.DecodeLogo(ctx, r, n)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if msg := userMessage(err); msg != "" {
			c.state.Error = msg
		}
		return err
	}
	c.state.Logo = asset
	c.state.Error = ""
	c.rerenderLocked()
	c.log.Debug("logo attached", "format", asset.Format, "width", asset.Width, "height", asset.Height, "bytes", asset.SizeBytes)
	return nil
}

// RemoveLogo drops the current logo and clears the error.
func (c *Controller) RemoveLogo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Logo = nil
	c.state.Error = ""
	c.rerenderLocked()
}

// SetSize clamps and stores the symbol size, re-rendering any current symbol.
// It returns the stored value.
func (c *Controller) SetSize(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Size = qr.ClampSize(n)
	c.rerenderLocked()
	return c.state.Size
}

// SetLogoPercent clamps and stores the logo size percentage.
func (c *Controller) SetLogoPercent(p int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LogoPercent = qr.ClampLogoPercent(p)
	c.rerenderLocked()
	return c.state.LogoPercent
}

// Download exports the current symbol. With no symbol it returns nil, nil.
// The session is loading while the export runs, so Generate and a second
// Download get ErrBusy.
func (c *Controller) Download(ctx context.Context) (*qr.ExportArtifact, error) {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	sym := c.state.Symbol
	if sym == nil {
		c.mu.Unlock()
		return nil, nil
	}
	c.state.Loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.Loading = false
		c.mu.Unlock()
	}()
	return c.exporter.Export(ctx, sym)
}

// DownloadTo exports the current symbol and hands it to saver, returning the
// saved artifact. With no symbol saver is never called and the result is nil.
func (c *Controller) DownloadTo(ctx context.Context, saver qr.Saver) (*qr.ExportArtifact, error) {
	art, err := c.Download(ctx)
	if err != nil || art == nil {
		return nil, err
	}
	if err := saver.Save(ctx, art); err != nil {
		return nil, fmt.Errorf("save %s: %w", art.Filename, err)
	}
	c.log.Info("symbol exported", "file", art.Filename, "bytes", len(art.PNG))
	return art, nil
}

func (c *Controller) requestLocked(text string) qr.EncodeRequest {
	return qr.EncodeRequest{
		Text:        text,
		Size:        c.state.Size,
		Level:       qr.LevelH,
		Logo:        c.state.Logo,
		LogoPercent: c.state.LogoPercent,
	}
}

// rerenderLocked refreshes the current symbol after a size or logo change.
// The caller MUST hold c.mu.
func (c *Controller) rerenderLocked() {
	if c.state.Payload == "" {
		return
	}
	sym, err := qr.Render(c.requestLocked(c.state.Payload))
	if err != nil {
		c.log.Error("re-render failed", "error", err)
		return
	}
	c.state.Symbol = sym
}

func userMessage(err error) string {
	var verr *qr.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return ""
}
