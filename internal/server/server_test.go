package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"

	"MicroPaper/internal/market"
)

func testServer(apiKey, adminKey string) *Server {
	return &Server{deps: &Deps{
		Logger:   zerolog.Nop(),
		APIKey:   apiKey,
		AdminKey: adminKey,
	}}
}

// === Error mapping ===

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{market.ErrNoteNotFound, codes.NotFound},
		{market.ErrOrderNotFound, codes.NotFound},
		{market.ErrWalletNotFound, codes.NotFound},
		{market.ErrAlreadySettled, codes.FailedPrecondition},
		{market.ErrInsufficientHoldings, codes.FailedPrecondition},
		{market.ErrNotOpen, codes.FailedPrecondition},
		{market.ErrInsufficientSubscription, codes.FailedPrecondition},
		{market.ErrNotVerified, codes.PermissionDenied},
		{market.ErrNotEligible, codes.PermissionDenied},
		{market.ErrInvalidParameter, codes.InvalidArgument},
		{market.ErrUnavailable, codes.Unavailable},
		{errors.New("disk on fire"), codes.Internal},
	}

	for _, tt := range tests {
		if got := statusCode(tt.err); got != tt.want {
			t.Errorf("statusCode(%v): got %v, want %v", tt.err, got, tt.want)
		}
		wrapped := fmt.Errorf("place order: %w", tt.err)
		if got := statusCode(wrapped); got != tt.want {
			t.Errorf("statusCode(wrapped %v): got %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	s := testServer("", "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/offerings", nil)

	s.writeError(rec, req, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "internal error") || strings.Contains(body, "connection refused") {
		t.Errorf("body leaked detail: %s", body)
	}
}

// === Request ID middleware ===

func TestWithRequestID_EchoesCallerID(t *testing.T) {
	s := testServer("", "")
	handler := s.withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/offerings", nil)
	req.Header.Set(headerRequestID, "req-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(headerRequestID); got != "req-abc" {
		t.Errorf("response request id: got %q, want %q", got, "req-abc")
	}
}

func TestWithRequestID_GeneratesWhenMissing(t *testing.T) {
	s := testServer("", "")
	var seen string
	handler := s.withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(headerRequestID)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/offerings", nil))

	if seen == "" {
		t.Error("handler should see a generated request id")
	}
	if got := rec.Header().Get(headerRequestID); got != seen {
		t.Errorf("response id %q does not match handler id %q", got, seen)
	}
}

// === Authentication ===

func TestAuthenticated(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		adminKey   string
		admin      bool
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "no keys configured passes through",
			admin:      true,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "missing api key",
			apiKey:     "secret",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong api key",
			apiKey:     "secret",
			headers:    map[string]string{headerAPIKey: "nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "correct api key",
			apiKey:     "secret",
			headers:    map[string]string{headerAPIKey: "secret"},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "admin route without admin key",
			apiKey:     "secret",
			adminKey:   "super",
			admin:      true,
			headers:    map[string]string{headerAPIKey: "secret"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:     "admin route with both keys",
			apiKey:   "secret",
			adminKey: "super",
			admin:    true,
			headers: map[string]string{
				headerAPIKey:   "secret",
				headerAdminKey: "super",
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "admin key not required on non-admin route",
			apiKey:     "secret",
			adminKey:   "super",
			headers:    map[string]string{headerAPIKey: "secret"},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(tt.apiKey, tt.adminKey)
			handler := s.authenticated(func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
				w.WriteHeader(http.StatusNoContent)
			}, tt.admin)

			req := httptest.NewRequest(http.MethodPost, "/v1/orders", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler(rec, req, map[string]string{})

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

// === Path and query helpers ===

func TestNotePathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := notePathID(map[string]string{"note_id": tt.raw})
		if tt.wantErr {
			if !errors.Is(err, market.ErrInvalidParameter) {
				t.Errorf("notePathID(%q): got err %v, want ErrInvalidParameter", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("notePathID(%q): got %d, %v; want %d", tt.raw, got, err, tt.want)
		}
	}
}

func TestInt64Param(t *testing.T) {
	if v, err := int64Param(""); err != nil || v != nil {
		t.Errorf("empty: got %v, %v; want nil, nil", v, err)
	}
	if v, err := int64Param("450"); err != nil || v == nil || *v != 450 {
		t.Errorf("450: got %v, %v", v, err)
	}
	if _, err := int64Param("x"); err == nil {
		t.Error("non-numeric should error")
	}
}
