package api

import (
	"net/http"

	"github.com/openclaw/qrstudio/session"
)

const sessionCookie = "qrstudio_session"

// controller returns the caller's session, starting a new one when the
// cookie is missing or refers to an expired session.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) *session.Controller {
	if ck, err := r.Cookie(sessionCookie); err == nil {
		if c, ok := s.Sessions.Get(ck.Value); ok {
			return c
		}
	}

	id, c := s.Sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.Log.Debug("session started", "id", id)
	return c
}
