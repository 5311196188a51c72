package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/openclaw/qrstudio/session"
)

var attachmentPattern = regexp.MustCompile(`^attachment; filename="qr-code-\d+\.png"$`)

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	srv := httptest.NewServer(NewRouter(&Server{
		Sessions:  session.NewRegistry(time.Hour, session.Options{}),
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:   "test",
		StartTime: time.Now(),
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *testClient) do(method, path, contentType string, body io.Reader) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *testClient) json(method, path string, body interface{}) *http.Response {
	c.t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	return c.do(method, path, "application/json", bytes.NewReader(data))
}

func (c *testClient) uploadLogo(data []byte) *http.Response {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("logo", "logo.png")
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	mw.Close()
	return c.do(http.MethodPost, "/api/logo", mw.FormDataContentType(), &body)
}

func decodeState(t *testing.T, resp *http.Response) stateResponse {
	t.Helper()
	var st stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func logoPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPageAndState(t *testing.T) {
	c := newTestClient(t)

	resp := c.do(http.MethodGet, "/", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}

	st := decodeState(t, c.do(http.MethodGet, "/api/state", "", nil))
	if st.Size != 256 || st.LogoPercent != 30 || st.SVG != "" {
		t.Errorf("initial state = %+v", st)
	}
}

func TestGenerateAndDownload(t *testing.T) {
	c := newTestClient(t)

	resp := c.json(http.MethodPost, "/api/generate", map[string]interface{}{"text": "https://example.com", "size": 256})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Payload != "https://example.com" || st.Level != "H" {
		t.Errorf("state = %q / %q", st.Payload, st.Level)
	}
	if !strings.HasPrefix(st.SVG, "<svg") {
		t.Errorf("svg = %.40q", st.SVG)
	}

	resp = c.do(http.MethodGet, "/api/download", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !attachmentPattern.MatchString(cd) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode download: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 256 {
		t.Errorf("download bounds = %v", b)
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	c := newTestClient(t)

	resp := c.json(http.MethodPost, "/api/generate", map[string]string{"text": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Please enter a URL or text" {
		t.Errorf("error = %q", msg)
	}

	st := decodeState(t, c.do(http.MethodGet, "/api/state", "", nil))
	if st.Error != "Please enter a URL or text" || st.SVG != "" {
		t.Errorf("state after empty input = %+v", st)
	}
}

func TestDownloadWithoutSymbol(t *testing.T) {
	c := newTestClient(t)

	resp := c.do(http.MethodGet, "/api/download", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		t.Errorf("unexpected attachment %q", cd)
	}
}

func TestLogoUpload(t *testing.T) {
	c := newTestClient(t)

	resp := c.uploadLogo(logoPNG(t, 200, 200))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	st := decodeState(t, resp)
	if st.Logo == nil || st.Logo.Width != 200 || st.Logo.Height != 200 {
		t.Fatalf("logo = %+v", st.Logo)
	}

	st = decodeState(t, c.json(http.MethodPost, "/api/generate", map[string]interface{}{"text": "hello", "logo_percent": 20}))
	if !strings.Contains(st.SVG, "<image") || st.LogoPercent != 20 {
		t.Errorf("generated svg lacks the logo overlay (percent %d)", st.LogoPercent)
	}

	resp = c.uploadLogo(logoPNG(t, 1001, 5))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized dimensions status = %d", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Logo dimensions should be less than 1000x1000 pixels" {
		t.Errorf("error = %q", msg)
	}
	st = decodeState(t, c.do(http.MethodGet, "/api/state", "", nil))
	if st.Logo == nil || st.Logo.Width != 200 {
		t.Errorf("previous logo lost: %+v", st.Logo)
	}

	st = decodeState(t, c.do(http.MethodDelete, "/api/logo", "", nil))
	if st.Logo != nil || strings.Contains(st.SVG, "<image") {
		t.Errorf("logo still present after delete")
	}
}

func TestLogoTooLarge(t *testing.T) {
	c := newTestClient(t)

	resp := c.uploadLogo(make([]byte, 600000))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Logo file size should be less than 500KB" {
		t.Errorf("error = %q", msg)
	}

	st := decodeState(t, c.json(http.MethodPost, "/api/generate", map[string]string{"text": "https://example.com"}))
	if st.SVG == "" || strings.Contains(st.SVG, "<image") {
		t.Errorf("expected a symbol without overlay")
	}
	if st.Error != "" {
		t.Errorf("generate should clear the error, got %q", st.Error)
	}
}

func TestSliders(t *testing.T) {
	c := newTestClient(t)

	st := decodeState(t, c.json(http.MethodPut, "/api/size", map[string]int{"size": 4000}))
	if st.Size != 512 {
		t.Errorf("size = %d, want 512", st.Size)
	}
	st = decodeState(t, c.json(http.MethodPut, "/api/logo/size", map[string]int{"percent": 1}))
	if st.LogoPercent != 20 {
		t.Errorf("logo percent = %d, want 20", st.LogoPercent)
	}

	resp := c.do(http.MethodPut, "/api/size", "application/json", strings.NewReader("{"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", resp.StatusCode)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newTestClient(t)
	a.json(http.MethodPost, "/api/generate", map[string]string{"text": "mine"})

	b := &testClient{t: t, base: a.base, http: &http.Client{}}
	st := decodeState(t, b.do(http.MethodGet, "/api/state", "", nil))
	if st.Payload != "" {
		t.Errorf("new session sees payload %q", st.Payload)
	}
}

func TestStatus(t *testing.T) {
	c := newTestClient(t)
	c.do(http.MethodGet, "/api/state", "", nil)

	var st statusResponse
	if err := json.NewDecoder(c.do(http.MethodGet, "/status", "", nil).Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Status != "ok" || st.Version != "test" || st.Sessions != 1 {
		t.Errorf("status = %+v", st)
	}
}
