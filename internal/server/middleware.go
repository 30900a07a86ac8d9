package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

const (
	headerAPIKey    = "X-API-Key"
	headerAdminKey  = "X-Admin-Key"
	headerRequestID = "X-Request-ID"
)

// withRequestID accepts a caller-supplied X-Request-ID or generates one,
// and echoes it on the response.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(headerRequestID, requestID)
		}
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r)
	})
}

// authenticated enforces the API key and, for admin routes, the admin key.
// An empty configured key disables that check.
func (s *Server) authenticated(next runtime.HandlerFunc, admin bool) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		if s.deps.APIKey != "" && r.Header.Get(headerAPIKey) != s.deps.APIKey {
			s.writeErrorMessage(w, r, http.StatusUnauthorized, "invalid or missing api key")
			return
		}
		if admin && s.deps.AdminKey != "" && r.Header.Get(headerAdminKey) != s.deps.AdminKey {
			s.writeErrorMessage(w, r, http.StatusForbidden, "admin key required")
			return
		}
		next(w, r, pathParams)
	}
}

func requestID(r *http.Request) string {
	return r.Header.Get(headerRequestID)
}
