package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"gemini-relay/internal/models"
)

// InternalErrorReply is the reply sent for any failure the relay cannot classify.
const InternalErrorReply = "Internal server error. Check the backend logs."

// Recover turns a panic into the generic internal-error reply.
func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", r.Header.Get(RequestIDHeader)).
					Msg("server crash")

				writeReply(w, http.StatusInternalServerError, InternalErrorReply)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeReply(w http.ResponseWriter, status int, reply string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ChatResponse{Reply: reply})
}
