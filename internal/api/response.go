package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// insufficientBody is the body of a refused adjustment. It names the bucket
// so callers can show how much is actually available.
type insufficientBody struct {
	Error     string        `json:"error"`
	Kind      ledger.Kind   `json:"kind"`
	Bucket    ledger.Bucket `json:"bucket"`
	Available int           `json:"available"`
	Requested int           `json:"requested"`
}

func jsonInsufficient(w http.ResponseWriter, status int, e *ledger.InsufficientError) {
	jsonResponse(w, status, insufficientBody{
		Error:     e.Error(),
		Kind:      e.Kind,
		Bucket:    e.Bucket,
		Available: e.Available,
		Requested: e.Requested,
	})
}

// storeError maps an error from the store or ledger packages to a response.
// Anything unrecognized is logged and answered with 500 and msg.
func storeError(w http.ResponseWriter, err error, msg string) {
	var insufficient *ledger.InsufficientError
	switch {
	case errors.As(err, &insufficient):
		jsonInsufficient(w, http.StatusUnprocessableEntity, insufficient)
	case errors.Is(err, ledger.ErrUnknownKind), errors.Is(err, ledger.ErrInvalidQuantity):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrQuantityLimit):
		jsonError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrRecordNotPending):
		jsonError(w, http.StatusConflict, "record is not pending")
	case errors.Is(err, store.ErrConflict):
		jsonError(w, http.StatusConflict, "modified concurrently, retry")
	case errors.Is(err, store.ErrDuplicateModel):
		jsonError(w, http.StatusConflict, "an item with this model already exists")
	case errors.Is(err, store.ErrItemHasPending):
		jsonError(w, http.StatusConflict, "item has pending records")
	default:
		slog.Error(msg, "error", err)
		jsonError(w, http.StatusInternalServerError, msg)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path value, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
