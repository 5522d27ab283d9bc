// Package httpapi exposes the REST surface: order intake and lifecycle,
// the product catalog and account endpoints. Role gating uses an opaque
// session cookie resolved through the auth service.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cestlavie/bakery/internal/auth"
	"github.com/cestlavie/bakery/internal/catalog"
	"github.com/cestlavie/bakery/internal/engine"
	"github.com/cestlavie/bakery/pkg/types"
)

// SessionCookie is the name of the login session cookie.
const SessionCookie = "session"

// Handler bundles the services behind the REST surface.
type Handler struct {
	orders  *engine.Engine
	catalog *catalog.Service
	auth    *auth.Service
	logger  *slog.Logger
}

// New creates the handler set.
func New(orders *engine.Engine, cat *catalog.Service, authSvc *auth.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{orders: orders, catalog: cat, auth: authSvc, logger: logger}
}

// Router builds the full route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.registerUser)
		r.Get("/verify", h.verifyEmail)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Route("/product", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{id}", h.getProduct)
			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Post("/", h.createProduct)
				r.Put("/{id}", h.updateProduct)
				r.Put("/restock/{id}", h.restockProduct)
				r.Delete("/{id}", h.deleteProduct)
			})
		})

		r.Route("/order", func(r chi.Router) {
			r.Post("/", h.createOrder)
			// Single-order and per-user reads are open; list and by-date
			// reads are admin-only. Matches the upstream access policy.
			r.Get("/{id}", h.getOrder)
			r.Get("/user/{email}", h.getOrdersByUser)
			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Get("/", h.listOrders)
				r.Get("/date/{date}", h.getOrdersByDate)
				r.Put("/{id}", h.updateOrder)
				r.Put("/accept/{id}", h.acceptOrder)
				r.Put("/deliver/{id}", h.deliverOrder)
				r.Delete("/{id}", h.deleteOrder)
			})
		})
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
	// SuggestedDate carries the allocator's alternative when a requested
	// delivery slot is rejected.
	SuggestedDate *time.Time `json:"suggestedDate,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps the error taxonomy to HTTP status codes. Storage errors
// collapse to a generic 500 so internals never leak to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	var slotErr *types.SlotError
	if errors.As(err, &slotErr) {
		resp.SuggestedDate = &slotErr.Suggested
	}

	switch {
	case errors.Is(err, types.ErrValidation):
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, types.ErrNotFound):
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, types.ErrConflict):
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, types.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, resp)
	case errors.Is(err, types.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// requireAdmin resolves the session cookie and rejects non-admin callers.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.auth.Resolve(r.Context(), h.sessionToken(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if user.Role != types.RoleAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
