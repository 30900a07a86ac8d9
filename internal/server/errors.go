package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"

	"MicroPaper/internal/market"
)

// errorBody is the JSON error envelope for every failed request.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// statusCode maps domain sentinels onto gRPC codes; the HTTP status falls
// out of the gateway's standard code translation.
func statusCode(err error) codes.Code {
	switch {
	case errors.Is(err, market.ErrNoteNotFound),
		errors.Is(err, market.ErrOrderNotFound),
		errors.Is(err, market.ErrWalletNotFound):
		return codes.NotFound

	case errors.Is(err, market.ErrAlreadySettled),
		errors.Is(err, market.ErrInsufficientHoldings):
		return codes.FailedPrecondition

	case errors.Is(err, market.ErrNotOpen),
		errors.Is(err, market.ErrInsufficientSubscription):
		return codes.FailedPrecondition

	case errors.Is(err, market.ErrNotVerified),
		errors.Is(err, market.ErrNotEligible):
		return codes.PermissionDenied

	case errors.Is(err, market.ErrInvalidParameter):
		return codes.InvalidArgument

	case errors.Is(err, market.ErrUnavailable):
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// writeError maps a domain error to its HTTP status and writes the JSON
// error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	httpStatus := runtime.HTTPStatusFromCode(code)

	msg := err.Error()
	if code == codes.Internal {
		msg = "internal error"
		s.deps.Logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("request_id", requestID(r)).
			Msg("request failed")
	}

	s.writeJSON(w, httpStatus, errorBody{
		Error:     msg,
		Code:      code.String(),
		RequestID: requestID(r),
	})
}

func (s *Server) writeErrorMessage(w http.ResponseWriter, r *http.Request, httpStatus int, msg string) {
	s.writeJSON(w, httpStatus, errorBody{
		Error:     msg,
		Code:      http.StatusText(httpStatus),
		RequestID: requestID(r),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, httpStatus int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.deps.Logger.Error().Err(err).Msg("encode response")
	}
}
