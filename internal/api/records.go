package api

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/erazemk/evidenca/internal/export"
	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/metrics"
	"github.com/erazemk/evidenca/internal/model"
	"github.com/erazemk/evidenca/internal/store"
)

// RecordsHandler handles adjustment requests and their approval.
type RecordsHandler struct {
	DB           *sql.DB
	KeepDeclined bool
	Metrics      *metrics.Metrics
}

// load resolves {id} to a record of {block}, answering 404 otherwise.
func (h *RecordsHandler) load(w http.ResponseWriter, r *http.Request) (*model.Record, bool) {
	id, ok := pathID(w, r, "record")
	if !ok {
		return nil, false
	}

	rec, err := store.GetRecord(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get record")
		return nil, false
	}
	if rec == nil || rec.Block != r.PathValue("block") {
		jsonError(w, http.StatusNotFound, "record not found")
		return nil, false
	}
	return rec, true
}

// List handles GET /api/{block}/records.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.RecordFilter{Status: r.URL.Query().Get("status")}
	if !model.ValidRecordFilter(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	records, err := store.ListRecords(r.Context(), h.DB, r.PathValue("block"), filter)
	if err != nil {
		storeError(w, err, "failed to list records")
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(records))
}

// Create handles POST /api/{block}/records. The request is validated against
// the item's current buckets; a refused request is answered with 422 and is
// not stored.
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.RecordInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.ItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "itemId required")
		return
	}

	block := r.PathValue("block")
	actor, _ := GetActor(r.Context())
	rec, err := store.CreateRecord(r.Context(), h.DB, block, in, &actor.UserID)
	if err != nil {
		var insufficient *ledger.InsufficientError
		if errors.As(err, &insufficient) || errors.Is(err, ledger.ErrInvalidQuantity) ||
			errors.Is(err, ledger.ErrUnknownKind) || errors.Is(err, ledger.ErrQuantityLimit) {
			h.Metrics.RecordRejected(block, in.Kind)
			requestLog(r).Warn("adjustment refused", "user", actor.Username, "block", block,
				"item", in.ItemID, "kind", in.Kind, "error", err)
		}
		storeError(w, err, "failed to create record")
		return
	}

	h.Metrics.RecordCreated(block, string(rec.Kind))
	requestLog(r).Info("adjustment requested", "user", actor.Username, "block", block,
		"record", rec.ID, "item", rec.ItemName, "kind", rec.Kind, "quantity", rec.Amount)
	jsonResponse(w, http.StatusCreated, rec)
}

// Get handles GET /api/{block}/records/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Approve handles PATCH /api/{block}/records/{id}/approve. An approval that
// no longer fits the item's buckets is answered with 409 and the same body
// as a refused request; the record stays pending.
func (h *RecordsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}

	actor, _ := GetActor(r.Context())
	approved, err := store.ApproveRecord(r.Context(), h.DB, rec.ID, &actor.UserID)
	if err != nil {
		h.Metrics.Decision(rec.Block, decisionOutcome(err))

		var insufficient *ledger.InsufficientError
		if errors.As(err, &insufficient) {
			requestLog(r).Warn("approval refused, item changed since request", "user", actor.Username,
				"record", rec.ID, "error", err)
			jsonInsufficient(w, http.StatusConflict, insufficient)
			return
		}
		if errors.Is(err, ledger.ErrQuantityLimit) {
			requestLog(r).Warn("approval refused, item would exceed quantity limit", "user", actor.Username,
				"record", rec.ID, "error", err)
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		storeError(w, err, "failed to approve record")
		return
	}

	h.Metrics.Decision(rec.Block, metrics.OutcomeApproved)
	requestLog(r).Info("record approved", "user", actor.Username, "block", rec.Block,
		"record", rec.ID, "item", rec.ItemName, "kind", rec.Kind, "quantity", rec.Amount)
	jsonResponse(w, http.StatusOK, approved)
}

// Decline handles DELETE /api/{block}/records/{id}.
func (h *RecordsHandler) Decline(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.load(w, r)
	if !ok {
		return
	}

	actor, _ := GetActor(r.Context())
	declined, err := store.DeclineRecord(r.Context(), h.DB, rec.ID, &actor.UserID, h.KeepDeclined)
	if err != nil {
		h.Metrics.Decision(rec.Block, decisionOutcome(err))
		storeError(w, err, "failed to decline record")
		return
	}

	h.Metrics.Decision(rec.Block, metrics.OutcomeDeclined)
	requestLog(r).Info("record declined", "user", actor.Username, "block", rec.Block,
		"record", rec.ID, "item", rec.ItemName, "kept", h.KeepDeclined)
	jsonResponse(w, http.StatusOK, declined)
}

// Export handles GET /api/{block}/records/export.
func (h *RecordsHandler) Export(w http.ResponseWriter, r *http.Request) {
	block := r.PathValue("block")
	filter := model.RecordFilter{Status: r.URL.Query().Get("status")}
	if !model.ValidRecordFilter(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	records, err := store.ListRecords(r.Context(), h.DB, block, filter)
	if err != nil {
		storeError(w, err, "failed to list records")
		return
	}

	writeWorkbook(w, fmt.Sprintf("records_%s_%s.xlsx", block, time.Now().Format("20060102")), func(buf io.Writer) error {
		return export.WriteRecords(buf, block, records)
	})
}

func decisionOutcome(err error) string {
	var insufficient *ledger.InsufficientError
	switch {
	case errors.As(err, &insufficient):
		return metrics.OutcomeInsufficient
	case errors.Is(err, ledger.ErrQuantityLimit):
		return metrics.OutcomeLimit
	case errors.Is(err, store.ErrRecordNotPending):
		return metrics.OutcomeNotPending
	case errors.Is(err, store.ErrConflict):
		return metrics.OutcomeConflict
	}
	return "error"
}
