package handler

import (
	"context"
	"net/http"

	"github.com/xlink-api/internal/domain"
	"github.com/xlink-api/internal/transport/http/middleware"
)

// SessionReader is the minimal session-store surface this handler needs.
type SessionReader interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
}

// UserGetter loads the user attached to a session.
type UserGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// SessionHandler handles session introspection and logout.
type SessionHandler struct {
	sessions SessionReader
	users    UserGetter
}

func NewSessionHandler(sessions SessionReader, users UserGetter) *SessionHandler {
	return &SessionHandler{sessions: sessions, users: users}
}

// GetCurrent handles GET /sessions.
func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.sessions.Get(r.Context(), claims.SessionID)
	if err != nil {
		httpError(w, err)
		return
	}
	if u, err := h.users.Get(r.Context(), sess.UserID); err == nil {
		sess.User = u
	}
	writeJSON(w, http.StatusOK, sess)
}

// Logout handles POST /sessions/logout by disabling the current session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.sessions.Update(r.Context(), claims.SessionID, map[string]interface{}{"enable": false}); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}
