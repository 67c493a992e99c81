package server

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"invoice-backend/internal/auth"
	"invoice-backend/internal/handlers"
	"invoice-backend/internal/httpx"
	"invoice-backend/internal/logger"
	"invoice-backend/internal/middleware"
	"invoice-backend/internal/models"
	"invoice-backend/internal/services"
	"invoice-backend/internal/store"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	svc := services.NewInvoiceService()
	invStore := store.New(db, svc)

	// RequireAuth re-checks that the session's user still exists, and a lost
	// session drops the owner's invoice snapshot.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})
	auth.SetOnSessionLost(invStore.ClearOwner)

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	ih := handlers.NewInvoiceHandler(invStore)
	mux.Handle("/invoices", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.List(w, r)
		case http.MethodPost:
			ih.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})))
	mux.Handle("/invoices/get", protect(methodHandler(http.MethodGet, ih.Get)))
	mux.Handle("/invoices/update", protect(methodHandler(http.MethodPost, ih.Update)))
	mux.Handle("/invoices/delete", protect(methodHandler(http.MethodPost, ih.Delete)))
	mux.Handle("/invoices/select", protect(methodHandler(http.MethodPost, ih.Select)))
	mux.Handle("/invoices/selected", protect(methodHandler(http.MethodGet, ih.Selected)))
	mux.Handle("/invoices/pdf", protect(methodHandler(http.MethodGet, ih.PDF)))

	return middleware.Prefs(withRecover(withLogging(mux)))
}

func protect(next http.Handler) http.Handler {
	return auth.Middleware(auth.RequireAuth(next))
}

func methodHandler(method string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		fn(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	log := logger.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler) http.Handler {
	log := logger.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
