package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openclaw/qrstudio/qr"
	"github.com/openclaw/qrstudio/session"
)

// maxUploadBytes bounds the multipart body of a logo upload. Files between
// qr.MaxLogoBytes and this limit are rejected by the logo validator itself.
const maxUploadBytes = 2 << 20

type logoResponse struct {
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

type stateResponse struct {
	Payload     string        `json:"payload,omitempty"`
	Level       string        `json:"level,omitempty"`
	Size        int           `json:"size"`
	LogoPercent int           `json:"logo_percent"`
	Logo        *logoResponse `json:"logo,omitempty"`
	SVG         string        `json:"svg,omitempty"`
	Error       string        `json:"error,omitempty"`
	Loading     bool          `json:"loading"`
}

func newStateResponse(st session.State) (stateResponse, error) {
	resp := stateResponse{
		Payload:     st.Payload,
		Size:        st.Size,
		LogoPercent: st.LogoPercent,
		Error:       st.Error,
		Loading:     st.Loading,
	}
	if st.Logo != nil {
		resp.Logo = &logoResponse{
			Format:    st.Logo.Format,
			Width:     st.Logo.Width,
			Height:    st.Logo.Height,
			SizeBytes: st.Logo.SizeBytes,
		}
	}
	if st.Symbol != nil {
		svg, err := st.Symbol.SVG()
		if err != nil {
			return resp, err
		}
		resp.SVG = string(svg)
		resp.Level = st.Symbol.Level.String()
	}
	return resp, nil
}

func (s *Server) writeState(w http.ResponseWriter, c *session.Controller) {
	resp, err := newStateResponse(c.Snapshot())
	if err != nil {
		s.Log.Error("serialize state", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.controller(w, r))
}

type generateRequest struct {
	Text        string `json:"text"`
	Size        *int   `json:"size,omitempty"`
	LogoPercent *int   `json:"logo_percent,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Size != nil {
		c.SetSize(*req.Size)
	}
	if req.LogoPercent != nil {
		c.SetLogoPercent(*req.LogoPercent)
	}

	if err := c.Generate(r.Context(), req.Text); err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeState(w, c)
}

type sizeRequest struct {
	Size int `json:"size"`
}

func (s *Server) handleSetSize(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)

	var req sizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.SetSize(req.Size)
	s.writeState(w, c)
}

type logoPercentRequest struct {
	Percent int `json:"percent"`
}

func (s *Server) handleSetLogoPercent(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)

	var req logoPercentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.SetLogoPercent(req.Percent)
	s.writeState(w, c)
}

func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			// Let the validator record the failure without reading anything.
			s.writeActionError(w, c.AttachLogo(r.Context(), http.NoBody, tooLarge.Limit+1))
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "logo is required")
		return
	}
	defer file.Close()

	if err := c.AttachLogo(r.Context(), file, header.Size); err != nil {
		s.writeActionError(w, err)
		return
	}
	s.Log.Info("logo attached", "filename", header.Filename, "bytes", header.Size)
	s.writeState(w, c)
}

func (s *Server) handleRemoveLogo(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)
	c.RemoveLogo()
	s.writeState(w, c)
}

// responseSaver delivers an artifact as a PNG attachment.
type responseSaver struct {
	w http.ResponseWriter
}

func (rs responseSaver) Save(ctx context.Context, a *qr.ExportArtifact) error {
	rs.w.Header().Set("Content-Type", "image/png")
	rs.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	rs.w.Header().Set("Content-Length", fmt.Sprint(len(a.PNG)))
	rs.w.WriteHeader(http.StatusOK)
	_, err := rs.w.Write(a.PNG)
	return err
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	c := s.controller(w, r)

	art, err := c.Download(r.Context())
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	if art == nil {
		// Nothing rendered yet.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := (responseSaver{w: w}).Save(r.Context(), art); err != nil {
		s.Log.Warn("download interrupted", "file", art.Filename, "error", err)
		return
	}
	s.Log.Info("symbol exported", "file", art.Filename, "bytes", len(art.PNG))
}

// writeActionError maps a transition failure onto a status code. Validation
// errors carry the message shown to the user.
func (s *Server) writeActionError(w http.ResponseWriter, err error) {
	var verr *qr.ValidationError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if errors.Is(err, qr.ErrLogoTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, verr.Message)
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.Log.Debug("request abandoned", "error", err)
	default:
		s.Log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
