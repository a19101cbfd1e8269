package handler

import (
	"net/http"

	"github.com/xlink-api/internal/application/registry"
	"github.com/xlink-api/internal/transport/http/middleware"
)

// TenantHandler serves the public page for tenant hosts. The middleware only
// classifies the host shape; resolving the label to an owner happens here.
type TenantHandler struct {
	svc registry.Service
}

func NewTenantHandler(svc registry.Service) *TenantHandler {
	return &TenantHandler{svc: svc}
}

type tenantPage struct {
	Subdomain string `json:"subdomain"`
	OwnerID   string `json:"owner_id"`
}

func (h *TenantHandler) PublicPage(w http.ResponseWriter, r *http.Request) {
	label := middleware.SubdomainFromContext(r.Context())
	if label == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	a, err := h.svc.Resolve(r.Context(), label)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantPage{Subdomain: a.Name, OwnerID: a.OwnerID})
}
