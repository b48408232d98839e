package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/evidenca/internal/model"
	"github.com/erazemk/evidenca/internal/store"
)

// DashboardHandler serves per-block overviews and notifications.
type DashboardHandler struct {
	DB *sql.DB
}

type dashboardResponse struct {
	Summary      *model.Summary       `json:"summary"`
	Categories   []string             `json:"categories"`
	Capabilities []model.Action       `json:"capabilities"`
	Pending      []model.Record       `json:"pending,omitempty"`
	Notices      []model.Notification `json:"notifications,omitempty"`
}

// Dashboard handles GET /api/{block}/dashboard. Pending records and
// notifications are only included for actors who can act on them.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	block := r.PathValue("block")
	actor, _ := GetActor(ctx)

	summary, err := store.GetSummary(ctx, h.DB, block)
	if err != nil {
		storeError(w, err, "failed to load summary")
		return
	}
	categories, err := store.ListCategories(ctx, h.DB, block)
	if err != nil {
		storeError(w, err, "failed to list categories")
		return
	}

	resp := dashboardResponse{
		Summary:      summary,
		Categories:   orEmpty(categories),
		Capabilities: actor.Capabilities(),
	}

	if actor.Can(model.ActionDecideRecord) {
		resp.Pending, err = store.ListRecords(ctx, h.DB, block, model.RecordFilter{Status: model.RecordFilterPending})
		if err != nil {
			storeError(w, err, "failed to list pending records")
			return
		}
	}
	if actor.Can(model.ActionManageNotices) {
		resp.Notices, err = store.ListNotifications(ctx, h.DB, block)
		if err != nil {
			storeError(w, err, "failed to list notifications")
			return
		}
	}

	jsonResponse(w, http.StatusOK, resp)
}

// Notifications handles GET /api/{block}/notifications.
func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	notes, err := store.ListNotifications(r.Context(), h.DB, r.PathValue("block"))
	if err != nil {
		storeError(w, err, "failed to list notifications")
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(notes))
}

// DismissNotification handles DELETE /api/{block}/notifications/{id}.
func (h *DashboardHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "notification")
	if !ok {
		return
	}

	if err := store.DeleteNotification(r.Context(), h.DB, r.PathValue("block"), id); err != nil {
		storeError(w, err, "failed to delete notification")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification dismissed"})
}
