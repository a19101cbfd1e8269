package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xlink-api/internal/application/registry"
	"github.com/xlink-api/internal/domain"
	"github.com/xlink-api/internal/pkg/validate"
	"github.com/xlink-api/internal/transport/http/middleware"
)

// SubdomainHandler exposes the registry: availability checks and claims.
type SubdomainHandler struct {
	svc registry.Service
}

func NewSubdomainHandler(svc registry.Service) *SubdomainHandler {
	return &SubdomainHandler{svc: svc}
}

type claimRequest struct {
	Subdomain string `json:"subdomain" validate:"required"`
}

// Check handles GET /subdomains/check?name=<candidate>. Anonymous callers get
// a plain availability answer; authenticated callers see their own current
// name as available.
func (h *SubdomainHandler) Check(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	requestingOwner := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		requestingOwner = claims.UserID
	}
	check, err := h.svc.CheckAvailability(r.Context(), name, requestingOwner)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// Claim handles POST /subdomains/claim for the authenticated user.
func (h *SubdomainHandler) Claim(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	check, err := h.svc.Assign(r.Context(), claims.UserID, req.Subdomain)
	if err != nil {
		httpError(w, err)
		return
	}
	if !check.Available {
		status := http.StatusConflict
		if check.Reason != domain.ReasonTaken {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, check)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// Current handles GET /subdomains/mine.
func (h *SubdomainHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	a, err := h.svc.CurrentForOwner(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Deactivate handles DELETE /subdomains/mine. The name stays bound but the
// tenant page stops resolving.
func (h *SubdomainHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Deactivate(r.Context(), claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "subdomain deactivated"})
}
