package api

import (
	"net/http"
	"time"
)

type statusResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:   "ok",
		Sessions: s.Sessions.Len(),
		Uptime:   time.Since(s.StartTime).Truncate(time.Second).String(),
		Version:  s.Version,
	})
}
