package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger - то, что умеет проверить доступность зависимости (*sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			errorResponse(w, r, http.StatusServiceUnavailable, CodeInternal, "database unavailable")
			return
		}
		if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
	}
}
