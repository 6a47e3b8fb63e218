// Package v0 provides the REST API handlers for enrollment, manual sync, and
// user record access.
package v0

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/passforge/wallet-sync-server/internal/enrollment"
	"github.com/passforge/wallet-sync-server/internal/gym"
	"github.com/passforge/wallet-sync-server/internal/store"
	pkgsync "github.com/passforge/wallet-sync-server/internal/sync"
	"github.com/passforge/wallet-sync-server/internal/versions"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// EnrollRequest is the body of POST /api/v0/passes
type EnrollRequest struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

// UserResponse is the stored record with credentials redacted
type UserResponse struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"display_name"`
	WalletObjectRef  string    `json:"wallet_object_ref,omitempty"`
	BarcodeExpiresAt time.Time `json:"barcode_expires_at"`
	LastSyncedAt     time.Time `json:"last_synced_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// CycleResponse is the outcome of a single-user manual sync
type CycleResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// Routes defines the API routes with dependency injection
type Routes struct {
	store      store.Store
	engine     pkgsync.Engine
	enrollment *enrollment.Service
}

// NewRoutes creates a new Routes instance
func NewRoutes(s store.Store, engine pkgsync.Engine, enrollSvc *enrollment.Service) *Routes {
	return &Routes{
		store:      s,
		engine:     engine,
		enrollment: enrollSvc,
	}
}

// Router creates a new router for the API
func Router(s store.Store, engine pkgsync.Engine, enrollSvc *enrollment.Service) http.Handler {
	routes := NewRoutes(s, engine, enrollSvc)

	r := chi.NewRouter()

	r.Post("/passes", routes.enroll)
	r.Post("/sync", routes.syncAll)
	r.Post("/sync/{id}", routes.syncUser)
	r.Get("/users/{id}", routes.getUser)
	r.Delete("/users/{id}", routes.deleteUser)

	return r
}

// enroll handles POST /api/v0/passes
func (rr *Routes) enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rr.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := rr.enrollment.Enroll(r.Context(), req.Email, req.Pin)
	if err != nil {
		var fetchErr *gym.FetchError
		switch {
		case errors.Is(err, enrollment.ErrMissingCredentials):
			rr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &fetchErr):
			slog.Info("Enrollment rejected by membership API", "status", fetchErr.StatusCode)
			rr.writeErrorResponse(w, "Membership API rejected the credentials", http.StatusUnauthorized)
		default:
			slog.Error("Enrollment failed", "error", err)
			rr.writeErrorResponse(w, "Enrollment failed", http.StatusInternalServerError)
		}
		return
	}

	rr.writeJSONResponse(w, http.StatusCreated, result)
}

// syncAll handles POST /api/v0/sync
func (rr *Routes) syncAll(w http.ResponseWriter, r *http.Request) {
	report, err := rr.engine.SyncAll(r.Context())
	if err != nil {
		slog.Error("Manual sync batch failed", "error", err)
		rr.writeErrorResponse(w, "Sync batch failed", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, http.StatusOK, report)
}

// syncUser handles POST /api/v0/sync/{id}
func (rr *Routes) syncUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := rr.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rr.writeErrorResponse(w, "User not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load user record", "user", id, "error", err)
		rr.writeErrorResponse(w, "Failed to load user record", http.StatusInternalServerError)
		return
	}

	result := rr.engine.SyncUser(r.Context(), record)

	resp := CycleResponse{ID: result.ID, Outcome: string(result.Outcome)}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	rr.writeJSONResponse(w, http.StatusOK, resp)
}

// getUser handles GET /api/v0/users/{id}
func (rr *Routes) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := rr.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rr.writeErrorResponse(w, "User not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load user record", "user", id, "error", err)
		rr.writeErrorResponse(w, "Failed to load user record", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, http.StatusOK, UserResponse{
		ID:               record.ID,
		DisplayName:      record.DisplayName,
		WalletObjectRef:  record.WalletObjectRef,
		BarcodeExpiresAt: record.BarcodeExpiresAt,
		LastSyncedAt:     record.LastSyncedAt,
		CreatedAt:        record.CreatedAt,
	})
}

// deleteUser handles DELETE /api/v0/users/{id}
func (rr *Routes) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := rr.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rr.writeErrorResponse(w, "User not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete user record", "user", id, "error", err)
		rr.writeErrorResponse(w, "Failed to delete user record", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{Error: message}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(s store.Store) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(s))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler reports ready once the record store is reachable
func readinessHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.List(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: "Record store not ready: " + err.Error()}); encodeErr != nil {
				slog.Error("Failed to encode readiness error response", "error", encodeErr)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(versions.GetVersionInfo()); err != nil {
		slog.Error("Failed to encode version info", "error", err)
	}
}
