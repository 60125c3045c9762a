package server

import (
	"context"
	"net/http"
	"time"

	"github.com/morezero/gate-registration/pkg/auth"
	"github.com/morezero/gate-registration/pkg/gate"
	"github.com/morezero/gate-registration/pkg/metrics"
)

// RoutesParams holds everything NewRouter needs.
type RoutesParams struct {
	Service *gate.Service
	// Realtime upgrades a request to a websocket; mounted at /ws and on "/" upgrades.
	Realtime           http.Handler
	JWTSecret          string
	RequestTimeout     time.Duration
	HealthCheckTimeout time.Duration
	MaxUploadBytes     int64
	// StaticDir, when set, is served at "/" instead of the status page.
	StaticDir string
}

// NewRouter builds the HTTP handler for the whole service.
func NewRouter(p RoutesParams) http.Handler {
	a := &api{svc: p.Service, requestTimeout: p.RequestTimeout, maxUploadBytes: p.MaxUploadBytes}
	token := func(h http.HandlerFunc) http.Handler { return auth.RequireToken(p.JWTSecret, h) }
	admin := func(h http.HandlerFunc) http.Handler { return auth.RequireAdmin(p.JWTSecret, h) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Server is healthy"})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), p.HealthCheckTimeout)
		defer cancel()
		h := p.Service.Health(ctx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /ws", p.Realtime)

	mux.HandleFunc("POST /api/auth/login", a.login)

	mux.Handle("GET /api/admin/users", admin(a.listUsers))
	mux.Handle("POST /api/admin/users", admin(a.createUser))
	mux.Handle("PUT /api/admin/users/{id}", admin(a.updateUserRole))
	mux.Handle("PUT /api/admin/users/{id}/reset-password", admin(a.resetPassword))
	mux.Handle("DELETE /api/admin/users/{id}", admin(a.deleteUser))

	mux.Handle("GET /api/admin/employees", admin(a.listEmployees))
	mux.Handle("POST /api/admin/employees", admin(a.createEmployee))
	mux.Handle("PUT /api/admin/employees/{id}", admin(a.updateEmployee))
	mux.Handle("DELETE /api/admin/employees/{id}", admin(a.deleteEmployee))

	mux.Handle("GET /api/admin/suppliers", admin(a.listSuppliers))
	mux.Handle("POST /api/admin/suppliers", admin(a.createSupplier))
	mux.Handle("PUT /api/admin/suppliers/{id}", admin(a.updateSupplier))
	mux.Handle("DELETE /api/admin/suppliers/{id}", admin(a.deleteSupplier))

	mux.HandleFunc("POST /api/requests", a.createRequest)
	mux.HandleFunc("GET /api/requests/{id}", a.getRequest)
	mux.HandleFunc("PUT /api/declarations/{id}", a.declare)

	mux.Handle("GET /api/registrations", token(a.listRegistrations))
	mux.Handle("GET /api/registrations/history", token(a.history))
	mux.Handle("POST /api/registrations/{id}/checkin", token(a.checkIn))
	mux.Handle("POST /api/registrations/{id}/checkout", token(a.checkOut))

	mux.Handle("/", newHomeHandler(p.Service, p.Realtime, p.StaticDir, p.HealthCheckTimeout))

	return withCORS(mux)
}

// withCORS lets the browser UI call the API from another origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
