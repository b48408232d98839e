package api

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/evidenca/internal/export"
	"github.com/erazemk/evidenca/internal/imaging"
	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/model"
	"github.com/erazemk/evidenca/internal/store"
)

// ItemsHandler handles item endpoints of a block.
type ItemsHandler struct {
	DB     *sql.DB
	Images imaging.Processor
}

type createItemRequest struct {
	model.ItemFields
	// Quantity is the initial store quantity.
	Quantity int `json:"quantity"`
}

// load resolves {id} to a live item of {block}, answering 404 otherwise.
func (h *ItemsHandler) load(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get item")
		return nil, false
	}
	if item == nil || item.DeletedAt != nil || item.Block != r.PathValue("block") {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// List handles GET /api/{block}/items. ?model= matches a model exactly, so
// clients can check for a duplicate before creating an item.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.ItemFilter{
		Category: r.URL.Query().Get("category"),
		Model:    r.URL.Query().Get("model"),
		Search:   r.URL.Query().Get("q"),
	}
	items, err := store.ListItems(r.Context(), h.DB, r.PathValue("block"), filter)
	if err != nil {
		storeError(w, err, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(items))
}

// Categories handles GET /api/{block}/categories.
func (h *ItemsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB, r.PathValue("block"))
	if err != nil {
		storeError(w, err, "failed to list categories")
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(categories))
}

// Create handles POST /api/{block}/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "itemName required")
		return
	}
	if req.Quantity < 0 || req.Quantity > ledger.MaxQuantity {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("quantity must be between 0 and %d", ledger.MaxQuantity))
		return
	}

	block := r.PathValue("block")
	item, err := store.CreateItem(r.Context(), h.DB, block, req.ItemFields, req.Quantity)
	if err != nil {
		storeError(w, err, "failed to create item")
		return
	}

	actor, _ := GetActor(r.Context())
	requestLog(r).Info("item created", "user", actor.Username, "block", block, "item", item.Name, "quantity", req.Quantity)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/{block}/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PATCH /api/{block}/items/{id}. Only descriptive fields
// change; quantities move through records.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	// Start from the current values so omitted fields are kept.
	fields := model.ItemFields{
		Name:     item.Name,
		Model:    item.Model,
		Category: item.Category,
		Origin:   item.Origin,
		Location: item.Location,
		Detail:   item.Detail,
		Date:     item.Date,
	}
	if err := decodeJSON(r, &fields); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(fields.Name) == "" {
		jsonError(w, http.StatusBadRequest, "itemName required")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, fields); err != nil {
		storeError(w, err, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		storeError(w, err, "failed to get item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/{block}/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		storeError(w, err, "failed to delete item")
		return
	}

	actor, _ := GetActor(r.Context())
	requestLog(r).Info("item deleted", "user", actor.Username, "item", item.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/{block}/items/{id}/image. The multipart
// field "image" is downscaled and stored as JPEG.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := h.Images.Process(file)
	if errors.Is(err, imaging.ErrUnsupported) {
		jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, photo.Data, photo.MIME); err != nil {
		storeError(w, err, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// GetImage handles GET /api/{block}/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, item.ID)
	if err != nil {
		storeError(w, err, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}

// Records handles GET /api/{block}/items/{id}/records.
func (h *ItemsHandler) Records(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}

	filter := model.RecordFilter{ItemID: item.ID, Status: r.URL.Query().Get("status")}
	if !model.ValidRecordFilter(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	records, err := store.ListRecords(r.Context(), h.DB, item.Block, filter)
	if err != nil {
		storeError(w, err, "failed to list records")
		return
	}
	jsonResponse(w, http.StatusOK, orEmpty(records))
}

// Export handles GET /api/{block}/items/export.
func (h *ItemsHandler) Export(w http.ResponseWriter, r *http.Request) {
	block := r.PathValue("block")
	items, err := store.ListItems(r.Context(), h.DB, block, model.ItemFilter{
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		storeError(w, err, "failed to list items")
		return
	}

	writeWorkbook(w, fmt.Sprintf("items_%s_%s.xlsx", block, time.Now().Format("20060102")), func(buf io.Writer) error {
		return export.WriteItems(buf, block, items)
	})
}

// writeWorkbook renders an XLSX workbook and sends it as an attachment.
func writeWorkbook(w http.ResponseWriter, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		slog.Error("failed to render workbook", "file", filename, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}
