package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/evidenca/internal/imaging"
	"github.com/erazemk/evidenca/internal/metrics"
	"github.com/erazemk/evidenca/internal/model"
)

// Options tune the router. The zero value is usable.
type Options struct {
	TokenTTL          time.Duration
	AllowRegistration bool
	// KeepDeclined retains declined records instead of deleting them.
	KeepDeclined bool
	Images       imaging.Processor
	// Metrics, when set, is fed by every handler and exposed on /metrics.
	Metrics *metrics.Metrics
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{
		DB:                db,
		JWTSecret:         jwtSecret,
		TokenTTL:          opts.TokenTTL,
		AllowRegistration: opts.AllowRegistration,
	}
	usersHandler := &UsersHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireCapability(model.ActionManageUsers)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("OK"))
	})
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)

	// Any authenticated user, whatever the role.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("GET /api/me", authMW(http.HandlerFunc(authHandler.Me)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PATCH /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Everything else under /api/ is scoped to an inventory block. The block
	// routes live on their own mux so {block} never collides with the fixed
	// segments above.
	mux.Handle("/api/", newBlockRouter(db, authMW, opts))

	return mux
}

func newBlockRouter(db *sql.DB, authMW func(http.Handler) http.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{DB: db, Images: opts.Images}
	recordsHandler := &RecordsHandler{DB: db, KeepDeclined: opts.KeepDeclined, Metrics: opts.Metrics}
	servicesHandler := &ServicesHandler{DB: db}
	dashboardHandler := &DashboardHandler{DB: db}

	// route wraps h so the caller is authenticated, may enter {block} and
	// holds the capability for action.
	route := func(pattern string, action model.Action, h http.HandlerFunc) {
		mux.Handle(pattern, authMW(RequireBlock(RequireCapability(action)(h))))
	}

	const (
		view     = model.ActionViewInventory
		items    = model.ActionManageItems
		request  = model.ActionRequestAdjustment
		decide   = model.ActionDecideRecord
		services = model.ActionManageServices
		notices  = model.ActionManageNotices
	)

	route("GET /api/{block}/dashboard", view, dashboardHandler.Dashboard)
	route("GET /api/{block}/categories", view, itemsHandler.Categories)

	// Items.
	route("GET /api/{block}/items", view, itemsHandler.List)
	route("POST /api/{block}/items", items, itemsHandler.Create)
	route("GET /api/{block}/items/export", view, itemsHandler.Export)
	route("GET /api/{block}/items/{id}", view, itemsHandler.Get)
	route("PATCH /api/{block}/items/{id}", items, itemsHandler.Update)
	route("DELETE /api/{block}/items/{id}", items, itemsHandler.Delete)
	route("PUT /api/{block}/items/{id}/image", items, itemsHandler.UploadImage)
	route("GET /api/{block}/items/{id}/image", view, itemsHandler.GetImage)
	route("GET /api/{block}/items/{id}/records", view, itemsHandler.Records)

	// Records: requesting is open to coordinators, deciding to admins.
	route("GET /api/{block}/records", view, recordsHandler.List)
	route("POST /api/{block}/records", request, recordsHandler.Create)
	route("GET /api/{block}/records/export", view, recordsHandler.Export)
	route("GET /api/{block}/records/{id}", view, recordsHandler.Get)
	route("PATCH /api/{block}/records/{id}/approve", decide, recordsHandler.Approve)
	route("DELETE /api/{block}/records/{id}", decide, recordsHandler.Decline)

	// Services.
	route("GET /api/{block}/services", view, servicesHandler.List)
	route("POST /api/{block}/services", services, servicesHandler.Create)
	route("GET /api/{block}/services/{id}", view, servicesHandler.Get)
	route("PATCH /api/{block}/services/{id}", services, servicesHandler.Update)
	route("DELETE /api/{block}/services/{id}", services, servicesHandler.Delete)

	// Notifications.
	route("GET /api/{block}/notifications", view, dashboardHandler.Notifications)
	route("DELETE /api/{block}/notifications/{id}", notices, dashboardHandler.DismissNotification)

	return mux
}
