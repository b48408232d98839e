package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/evidenca/internal/auth"
	"github.com/erazemk/evidenca/internal/db"
	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/metrics"
	"github.com/erazemk/evidenca/internal/model"
	"github.com/erazemk/evidenca/internal/store"
)

const testJWTSecret = "test-secret"

func setupServer(t *testing.T, opts Options) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(LoggingMiddleware(opts.Metrics)(NewRouter(database, testJWTSecret, opts)))
	t.Cleanup(server.Close)
	return server, database
}

// userToken creates a user directly in the store and returns a token for it.
func userToken(t *testing.T, database *sql.DB, username, role, block string) string {
	t.Helper()
	hash, _ := auth.HashPassword("password123")
	user, err := store.CreateUser(context.Background(), database, username, hash, role, block)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := auth.GenerateToken(testJWTSecret, time.Hour, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

// createItem adds an item with the given store quantity to head.
func createItem(t *testing.T, server *httptest.Server, token string, name string, qty int) model.Item {
	t.Helper()
	resp := do(t, "POST", server.URL+"/api/head/items", token, map[string]any{
		"itemName": name,
		"category": "parts",
		"quantity": qty,
	})
	expectStatus(t, resp, http.StatusCreated)
	return decode[model.Item](t, resp)
}

func requestAdjustment(t *testing.T, server *httptest.Server, token string, itemID int64, kind string, n int) *http.Response {
	t.Helper()
	return do(t, "POST", server.URL+"/api/head/records", token, map[string]any{
		"itemId":   itemID,
		"kind":     kind,
		"quantity": n,
	})
}

func TestHealth(t *testing.T) {
	server, _ := setupServer(t, Options{})

	resp := do(t, "GET", server.URL+"/health", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	server, _ := setupServer(t, Options{})

	req, _ := http.NewRequest("GET", server.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, database := setupServer(t, Options{})
	userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)

	resp := do(t, "POST", server.URL+"/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = do(t, "POST", server.URL+"/api/auth/login", "", map[string]string{"username": "admin", "password": "password123"})
	expectStatus(t, resp, http.StatusOK)
	login := decode[map[string]any](t, resp)
	token, _ := login["token"].(string)
	if token == "" {
		t.Fatal("empty token from login")
	}

	resp = do(t, "GET", server.URL+"/api/me", token, nil)
	expectStatus(t, resp, http.StatusOK)
	me := decode[meResponse](t, resp)
	if me.Username != "admin" || len(me.Capabilities) != 7 {
		t.Errorf("unexpected me response %+v", me)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupServer(t, Options{})

	resp := do(t, "GET", server.URL+"/api/head/items", "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = do(t, "GET", server.URL+"/api/head/items", "not-a-token", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestAdjustmentWorkflow(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	coord := userToken(t, database, "mojca", model.RoleCoordinator, model.BlockHead)

	item := createItem(t, server, coord, "Cable", 10)

	resp := requestAdjustment(t, server, coord, item.ID, "use", 3)
	expectStatus(t, resp, http.StatusCreated)
	rec := decode[model.Record](t, resp)
	if rec.Status != ledger.StatusPendingUse {
		t.Errorf("expected %q, got %q", ledger.StatusPendingUse, rec.Status)
	}
	if rec.RequestedByName != "mojca" {
		t.Errorf("expected requester mojca, got %q", rec.RequestedByName)
	}

	// The request alone moves nothing.
	resp = do(t, "GET", fmt.Sprintf("%s/api/head/items/%d", server.URL, item.ID), coord, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.Item](t, resp); got.Quantity != (ledger.Quantity{Store: 10}) {
		t.Errorf("expected untouched buckets, got %+v", got.Quantity)
	}

	// Coordinators cannot decide.
	approveURL := fmt.Sprintf("%s/api/head/records/%d/approve", server.URL, rec.ID)
	resp = do(t, "PATCH", approveURL, coord, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = do(t, "PATCH", approveURL, admin, nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.Record](t, resp); got.Status != ledger.StatusApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}

	resp = do(t, "GET", fmt.Sprintf("%s/api/head/items/%d", server.URL, item.ID), coord, nil)
	got := decode[model.Item](t, resp)
	if got.Quantity != (ledger.Quantity{Store: 7, Use: 3}) || got.Total != 10 {
		t.Errorf("expected store 7 use 3 total 10, got %+v total %d", got.Quantity, got.Total)
	}

	// A second approval is rejected and changes nothing.
	resp = do(t, "PATCH", approveURL, admin, nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, "GET", server.URL+"/api/head/records?status=approved", coord, nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]model.Record](t, resp); len(list) != 1 {
		t.Errorf("expected 1 approved record, got %d", len(list))
	}
}

func TestRequestRejectedByValidation(t *testing.T) {
	server, database := setupServer(t, Options{})
	coord := userToken(t, database, "mojca", model.RoleCoordinator, model.BlockHead)
	item := createItem(t, server, coord, "Cable", 2)

	resp := requestAdjustment(t, server, coord, item.ID, "transfer", 5)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	body := decode[insufficientBody](t, resp)
	if body.Bucket != ledger.BucketStore || body.Available != 2 || body.Requested != 5 {
		t.Errorf("unexpected rejection body %+v", body)
	}

	resp = requestAdjustment(t, server, coord, item.ID, "borrow", 1)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = requestAdjustment(t, server, coord, item.ID, "add", 0)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = requestAdjustment(t, server, coord, 9999, "add", 1)
	expectStatus(t, resp, http.StatusNotFound)

	resp = do(t, "GET", server.URL+"/api/head/records", coord, nil)
	if list := decode[[]model.Record](t, resp); len(list) != 0 {
		t.Errorf("expected no stored records, got %d", len(list))
	}
}

func TestQuantityLimit(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)

	resp := do(t, "POST", server.URL+"/api/head/items", admin, map[string]any{
		"itemName": "Screws",
		"quantity": ledger.MaxQuantity + 1,
	})
	expectStatus(t, resp, http.StatusBadRequest)

	item := createItem(t, server, admin, "Bolts", ledger.MaxQuantity-1)

	resp = requestAdjustment(t, server, admin, item.ID, "add", math.MaxInt)
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	first := decode[model.Record](t, requestAdjustment(t, server, admin, item.ID, "add", 1))
	second := decode[model.Record](t, requestAdjustment(t, server, admin, item.ID, "add", 5))

	resp = do(t, "PATCH", fmt.Sprintf("%s/api/head/records/%d/approve", server.URL, first.ID), admin, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, "PATCH", fmt.Sprintf("%s/api/head/records/%d/approve", server.URL, second.ID), admin, nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, "GET", fmt.Sprintf("%s/api/head/items/%d", server.URL, item.ID), admin, nil)
	if got := decode[model.Item](t, resp); got.Total != ledger.MaxQuantity {
		t.Errorf("expected total %d, got %d", ledger.MaxQuantity, got.Total)
	}
	resp = do(t, "GET", fmt.Sprintf("%s/api/head/records/%d", server.URL, second.ID), admin, nil)
	if rec := decode[model.Record](t, resp); !rec.Status.IsPending() {
		t.Errorf("expected record over the limit to remain pending, got %q", rec.Status)
	}
}

func TestDuplicateModel(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)

	newItem := func(block, name, itemModel string) *http.Response {
		return do(t, "POST", server.URL+"/api/"+block+"/items", admin, map[string]any{
			"itemName": name,
			"model":    itemModel,
			"quantity": 1,
		})
	}

	expectStatus(t, newItem(model.BlockHead, "Drill", "DX-200"), http.StatusCreated)
	expectStatus(t, newItem(model.BlockHead, "Drill (spare)", "DX-200"), http.StatusConflict)
	expectStatus(t, newItem(model.BlockLocal, "Drill", "DX-200"), http.StatusCreated)

	resp := do(t, "GET", server.URL+"/api/head/items?model=DX-200", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]model.Item](t, resp); len(list) != 1 || list[0].Name != "Drill" {
		t.Errorf("expected one head item with model DX-200, got %+v", list)
	}

	resp = newItem(model.BlockHead, "Saw", "SW-1")
	expectStatus(t, resp, http.StatusCreated)
	saw := decode[model.Item](t, resp)
	resp = do(t, "PATCH", fmt.Sprintf("%s/api/head/items/%d", server.URL, saw.ID), admin, map[string]any{"model": "DX-200"})
	expectStatus(t, resp, http.StatusConflict)
}

func TestHandlerLogsCarryRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	item := createItem(t, server, admin, "Rope", 4)

	data, _ := json.Marshal(map[string]any{"itemId": item.ID, "kind": "use", "quantity": 1})
	req, _ := http.NewRequest("POST", server.URL+"/api/head/records", bytes.NewReader(data))
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set(RequestIDHeader, "trace-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	var found bool
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "adjustment requested") {
			found = true
			if !strings.Contains(line, "request_id=trace-42") {
				t.Errorf("expected request id on handler log line, got %q", line)
			}
		}
	}
	if !found {
		t.Error("expected an adjustment requested log line")
	}
}

func TestStaleApprovalConflict(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	item := createItem(t, server, admin, "Chair", 10)

	first := decode[model.Record](t, requestAdjustment(t, server, admin, item.ID, "use", 6))
	second := decode[model.Record](t, requestAdjustment(t, server, admin, item.ID, "faulty_store", 6))

	resp := do(t, "PATCH", fmt.Sprintf("%s/api/head/records/%d/approve", server.URL, first.ID), admin, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, "PATCH", fmt.Sprintf("%s/api/head/records/%d/approve", server.URL, second.ID), admin, nil)
	expectStatus(t, resp, http.StatusConflict)
	body := decode[insufficientBody](t, resp)
	if body.Available != 4 || body.Requested != 6 {
		t.Errorf("unexpected stale body %+v", body)
	}

	resp = do(t, "GET", fmt.Sprintf("%s/api/head/records/%d", server.URL, second.ID), admin, nil)
	if rec := decode[model.Record](t, resp); !rec.Status.IsPending() {
		t.Errorf("expected stale record to remain pending, got %q", rec.Status)
	}
}

func TestDecline(t *testing.T) {
	for _, keep := range []bool{false, true} {
		t.Run(fmt.Sprintf("keep=%v", keep), func(t *testing.T) {
			server, database := setupServer(t, Options{KeepDeclined: keep})
			admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
			item := createItem(t, server, admin, "Lamp", 5)
			rec := decode[model.Record](t, requestAdjustment(t, server, admin, item.ID, "add", 2))

			recURL := fmt.Sprintf("%s/api/head/records/%d", server.URL, rec.ID)
			resp := do(t, "DELETE", recURL, admin, nil)
			expectStatus(t, resp, http.StatusOK)

			resp = do(t, "GET", recURL, admin, nil)
			if keep {
				expectStatus(t, resp, http.StatusOK)
				if got := decode[model.Record](t, resp); got.Status != ledger.StatusDeclined {
					t.Errorf("expected declined, got %q", got.Status)
				}
			} else {
				expectStatus(t, resp, http.StatusNotFound)
			}

			resp = do(t, "GET", fmt.Sprintf("%s/api/head/items/%d", server.URL, item.ID), admin, nil)
			if got := decode[model.Item](t, resp); got.Quantity != (ledger.Quantity{Store: 5}) {
				t.Errorf("expected decline to leave item alone, got %+v", got.Quantity)
			}
		})
	}
}

func TestCapabilityChecks(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	monitor := userToken(t, database, "opazovalec", model.RoleMonitor, model.BlockHead)
	local := userToken(t, database, "lokalni", model.RoleCoordinator, model.BlockLocal)
	nobody := userToken(t, database, "nihce", model.RoleNone, model.AccessNone)

	item := createItem(t, server, admin, "Desk", 3)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"monitor views", "GET", "/api/head/items", monitor, nil, http.StatusOK},
		{"monitor cannot request", "POST", "/api/head/records", monitor,
			map[string]any{"itemId": item.ID, "kind": "use", "quantity": 1}, http.StatusForbidden},
		{"monitor cannot create items", "POST", "/api/head/items", monitor, map[string]any{"itemName": "X"}, http.StatusForbidden},
		{"monitor cannot see local", "GET", "/api/local/items", monitor, nil, http.StatusForbidden},
		{"local coordinator cannot see head", "GET", "/api/head/items", local, nil, http.StatusForbidden},
		{"local coordinator works locally", "GET", "/api/local/items", local, nil, http.StatusOK},
		{"no role sees nothing", "GET", "/api/head/items", nobody, nil, http.StatusForbidden},
		{"unknown block", "GET", "/api/attic/items", admin, nil, http.StatusNotFound},
		{"item from another block", "GET", fmt.Sprintf("/api/local/items/%d", item.ID), admin, nil, http.StatusNotFound},
		{"monitor cannot list users", "GET", "/api/users", monitor, nil, http.StatusForbidden},
		{"admin lists users", "GET", "/api/users", admin, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, server.URL+tt.path, tt.token, tt.body)
			expectStatus(t, resp, tt.want)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, database := setupServer(t, Options{})
	token := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)

	resp := do(t, "POST", server.URL+"/api/auth/logout", token, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, "GET", server.URL+"/api/me", token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestRoleChangeTakesEffect(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	token := userToken(t, database, "newbie", model.RoleNone, model.AccessNone)

	resp := do(t, "GET", server.URL+"/api/head/items", token, nil)
	expectStatus(t, resp, http.StatusForbidden)

	user, _ := store.GetUserByUsername(context.Background(), database, "newbie")
	resp = do(t, "PATCH", fmt.Sprintf("%s/api/users/%d", server.URL, user.ID), admin, map[string]string{
		"role":        model.RoleMonitor,
		"accessBlock": model.BlockHead,
	})
	expectStatus(t, resp, http.StatusOK)

	// Same token, new rights.
	resp = do(t, "GET", server.URL+"/api/head/items", token, nil)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, "DELETE", fmt.Sprintf("%s/api/users/%d", server.URL, user.ID), admin, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = do(t, "GET", server.URL+"/api/head/items", token, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestRegister(t *testing.T) {
	server, _ := setupServer(t, Options{})
	creds := map[string]string{"username": "novinec", "password": "password123"}

	resp := do(t, "POST", server.URL+"/api/auth/register", "", creds)
	expectStatus(t, resp, http.StatusForbidden)

	server, _ = setupServer(t, Options{AllowRegistration: true})
	resp = do(t, "POST", server.URL+"/api/auth/register", "", creds)
	expectStatus(t, resp, http.StatusCreated)
	user := decode[model.User](t, resp)
	if user.Role != model.RoleNone || user.AccessBlock != model.AccessNone {
		t.Errorf("expected role none and block none, got %s/%s", user.Role, user.AccessBlock)
	}

	resp = do(t, "POST", server.URL+"/api/auth/register", "", creds)
	expectStatus(t, resp, http.StatusConflict)
}

func TestServicesAndNotifications(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	monitor := userToken(t, database, "opazovalec", model.RoleMonitor, model.AccessAll)

	resp := do(t, "POST", server.URL+"/api/local/services", admin, map[string]string{
		"serviceName": "Fire extinguisher check",
		"provider":    "Gasilec d.o.o.",
	})
	expectStatus(t, resp, http.StatusCreated)
	svc := decode[model.Service](t, resp)

	resp = do(t, "PATCH", fmt.Sprintf("%s/api/local/services/%d", server.URL, svc.ID), admin, map[string]string{
		"end_date": "2027-01-01",
	})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[model.Service](t, resp); got.EndDate != "2027-01-01" || got.Name != svc.Name {
		t.Errorf("unexpected updated service %+v", got)
	}

	item := createItem(t, server, admin, "Mop", 4)
	requestAdjustment(t, server, admin, item.ID, "use", 1)

	resp = do(t, "GET", server.URL+"/api/head/notifications", monitor, nil)
	expectStatus(t, resp, http.StatusOK)
	notes := decode[[]model.Notification](t, resp)
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}

	noteURL := fmt.Sprintf("%s/api/head/notifications/%d", server.URL, notes[0].ID)
	resp = do(t, "DELETE", noteURL, monitor, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp = do(t, "DELETE", noteURL, admin, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = do(t, "DELETE", noteURL, admin, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestDashboard(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	monitor := userToken(t, database, "opazovalec", model.RoleMonitor, model.BlockHead)

	item := createItem(t, server, admin, "Broom", 6)
	requestAdjustment(t, server, admin, item.ID, "use", 2)

	resp := do(t, "GET", server.URL+"/api/head/dashboard", admin, nil)
	expectStatus(t, resp, http.StatusOK)
	dash := decode[dashboardResponse](t, resp)
	if dash.Summary.Items != 1 || dash.Summary.Total != 6 || dash.Summary.PendingRecords != 1 {
		t.Errorf("unexpected summary %+v", dash.Summary)
	}
	if len(dash.Pending) != 1 {
		t.Errorf("expected admin to see 1 pending record, got %d", len(dash.Pending))
	}

	resp = do(t, "GET", server.URL+"/api/head/dashboard", monitor, nil)
	expectStatus(t, resp, http.StatusOK)
	if dash := decode[dashboardResponse](t, resp); len(dash.Pending) != 0 || len(dash.Notices) != 0 {
		t.Errorf("expected monitor dashboard without pending or notices, got %+v", dash)
	}
}

func TestDeleteItemWithPendingRecord(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	item := createItem(t, server, admin, "Bucket", 3)
	requestAdjustment(t, server, admin, item.ID, "use", 1)

	resp := do(t, "DELETE", fmt.Sprintf("%s/api/head/items/%d", server.URL, item.ID), admin, nil)
	expectStatus(t, resp, http.StatusConflict)
}

func TestExports(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	createItem(t, server, admin, "Shelf", 2)

	for _, path := range []string{"/api/head/items/export", "/api/head/records/export"} {
		resp := do(t, "GET", server.URL+path, admin, nil)
		expectStatus(t, resp, http.StatusOK)
		if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
			t.Errorf("%s: unexpected content type %q", path, ct)
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
			t.Errorf("%s: unexpected disposition %q", path, cd)
		}
	}
}

func TestItemImageUpload(t *testing.T) {
	server, database := setupServer(t, Options{})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	item := createItem(t, server, admin, "Projector", 1)

	var img bytes.Buffer
	png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 20)))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("image", "projector.png")
	part.Write(img.Bytes())
	mw.Close()

	imageURL := fmt.Sprintf("%s/api/head/items/%d/image", server.URL, item.ID)
	req, _ := http.NewRequest("PUT", imageURL, &body)
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, "GET", imageURL, admin, nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected stored JPEG, got %q", ct)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	server, database := setupServer(t, Options{Metrics: m})
	admin := userToken(t, database, "admin", model.RoleAdmin, model.AccessAll)
	item := createItem(t, server, admin, "Hose", 1)
	requestAdjustment(t, server, admin, item.ID, "use", 5)

	resp := do(t, "GET", server.URL+"/metrics", "", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `evidenca_records_rejected_total{block="head",kind="use"} 1`) {
		t.Errorf("expected rejection counter in metrics output")
	}

	// Unknown kinds share one label value instead of minting a series each.
	for i := range 5 {
		resp = requestAdjustment(t, server, admin, item.ID, fmt.Sprintf("junk%d", i), 1)
		expectStatus(t, resp, http.StatusBadRequest)
	}
	resp = do(t, "GET", server.URL+"/metrics", "", nil)
	body, _ = io.ReadAll(resp.Body)
	if strings.Contains(string(body), `kind="junk`) {
		t.Errorf("client-supplied kind leaked into metric labels")
	}
	if !strings.Contains(string(body), `evidenca_records_rejected_total{block="head",kind="unknown"} 5`) {
		t.Errorf("expected unknown kinds to be counted together")
	}

	server, _ = setupServer(t, Options{})
	resp = do(t, "GET", server.URL+"/metrics", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
}
