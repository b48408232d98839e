package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/erazemk/evidenca/internal/model"
	"github.com/erazemk/evidenca/internal/store"
)

// ServicesHandler handles service contract endpoints of a block.
type ServicesHandler struct {
	DB *sql.DB
}

func (h *ServicesHandler) load(w http.ResponseWriter, r *http.Request) (*model.Service, bool) {
	id, ok := pathID(w, r, "service")
	if !ok {
		return nil, false
	}

	svc, err := store.GetService(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get service")
		return nil, false
	}
	if svc == nil || svc.DeletedAt != nil || svc.Block != r.PathValue("block") {
		jsonError(w, http.StatusNotFound, "service not found")
		return nil, false
	}
	return svc, true
}

// List handles GET /api/{block}/services.
func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := store.ListServices(r.Context(), h.DB, r.PathValue("block"))
	if err != nil {
		storeError(w, err, "failed to list services")
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(services))
}

// Create handles POST /api/{block}/services.
func (h *ServicesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.Service
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, http.StatusBadRequest, "serviceName required")
		return
	}

	svc, err := store.CreateService(r.Context(), h.DB, r.PathValue("block"), req)
	if err != nil {
		storeError(w, err, "failed to create service")
		return
	}

	actor, _ := GetActor(r.Context())
	requestLog(r).Info("service created", "user", actor.Username, "block", svc.Block, "service", svc.Name)
	jsonResponse(w, http.StatusCreated, svc)
}

// Get handles GET /api/{block}/services/{id}.
func (h *ServicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, svc)
}

// Update handles PATCH /api/{block}/services/{id}.
func (h *ServicesHandler) Update(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.load(w, r)
	if !ok {
		return
	}

	req := *svc
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		jsonError(w, http.StatusBadRequest, "serviceName required")
		return
	}

	if err := store.UpdateService(r.Context(), h.DB, svc.ID, req); err != nil {
		storeError(w, err, "failed to update service")
		return
	}

	updated, err := store.GetService(r.Context(), h.DB, svc.ID)
	if err != nil {
		storeError(w, err, "failed to get service")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/{block}/services/{id}.
func (h *ServicesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := store.DeleteService(r.Context(), h.DB, svc.ID); err != nil {
		storeError(w, err, "failed to delete service")
		return
	}

	actor, _ := GetActor(r.Context())
	requestLog(r).Info("service deleted", "user", actor.Username, "service", svc.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "service deleted"})
}
