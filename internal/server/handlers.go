package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"MicroPaper/internal/engine"
	"MicroPaper/internal/events"
	"MicroPaper/internal/issuance"
	"MicroPaper/internal/market"
	"MicroPaper/internal/query"
)

// ----------------------------------------------------------------------------
// Read API
// ----------------------------------------------------------------------------

func (s *Server) handleListOfferings(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()

	filter := query.OfferingsFilter{Currency: q.Get("currency")}
	var err error
	if filter.Page, err = intParam(q.Get("page"), 0); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: page", market.ErrInvalidParameter))
		return
	}
	if filter.Limit, err = intParam(q.Get("limit"), 0); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: limit", market.ErrInvalidParameter))
		return
	}
	if filter.MinRateBps, err = int64Param(q.Get("minRateBps")); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: minRateBps", market.ErrInvalidParameter))
		return
	}
	if filter.MaxRateBps, err = int64Param(q.Get("maxRateBps")); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: maxRateBps", market.ErrInvalidParameter))
		return
	}

	page, err := s.deps.Query.ListOfferings(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()

	filter := query.HoldingsFilter{WalletAddress: q.Get("walletAddress")}
	if raw := q.Get("noteId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: noteId", market.ErrInvalidParameter))
			return
		}
		filter.NoteID = id
	}

	holdings, err := s.deps.Query.ListHoldings(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if holdings == nil {
		holdings = []query.HoldingView{}
	}
	s.writeJSON(w, http.StatusOK, holdings)
}

func (s *Server) handleProtection(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	noteID, err := notePathID(pathParams)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	breakdown, err := s.deps.Risk.ProtectionBreakdown(r.Context(), noteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleComplianceStats(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	stats, err := s.deps.Query.ComplianceStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// ----------------------------------------------------------------------------
// Orders
// ----------------------------------------------------------------------------

type placeOrderRequest struct {
	NoteID        int64  `json:"note_id"`
	WalletAddress string `json:"wallet_address"`
	Side          string `json:"side"`
	Amount        int64  `json:"amount"`
	Price         *int64 `json:"price"`
}

type orderResponse struct {
	ID            int64      `json:"id"`
	NoteID        int64      `json:"note_id"`
	WalletAddress string     `json:"wallet_address"`
	Side          string     `json:"side"`
	Amount        int64      `json:"amount"`
	Price         *int64     `json:"price"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	FilledAt      *time.Time `json:"filled_at"`
	RequestID     string     `json:"request_id"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed request body", market.ErrInvalidParameter))
		return
	}

	order, err := s.deps.Intake.PlaceOrder(r.Context(), engine.PlaceOrderParams{
		NoteID:         req.NoteID,
		InvestorWallet: req.WalletAddress,
		Side:           market.Side(req.Side),
		Amount:         req.Amount,
		Price:          req.Price,
		RequestID:      requestID(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, orderResponse{
		ID:            order.ID,
		NoteID:        order.NoteID,
		WalletAddress: order.InvestorWallet,
		Side:          string(order.Side),
		Amount:        order.Amount,
		Price:         order.Price,
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt,
		FilledAt:      order.FilledAt,
		RequestID:     order.RequestID,
	})
}

// ----------------------------------------------------------------------------
// Engine runs (admin)
// ----------------------------------------------------------------------------

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	noteID, err := notePathID(pathParams)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.Matcher.MatchNote(r.Context(), noteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	for _, evt := range events.FromMatchResult(result) {
		s.emit(evt)
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	noteID, err := notePathID(pathParams)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.Settler.Settle(r.Context(), noteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.emit(events.FromSettleResult(result))
	s.writeJSON(w, http.StatusOK, result)
}

// emit hands an event to the publisher without blocking the request: a
// full channel drops the event, which the publisher treats as acceptable
// loss since consumers can rebuild from the database.
func (s *Server) emit(evt events.MarketEvent) {
	if s.deps.Events == nil {
		return
	}
	select {
	case s.deps.Events <- evt:
	default:
		s.deps.Logger.Warn().
			Str("event_type", evt.EventType).
			Int64("note_id", evt.NoteID).
			Msg("event channel full, dropping event")
	}
}

// ----------------------------------------------------------------------------
// Issuance (admin)
// ----------------------------------------------------------------------------

type issueNoteRequest struct {
	WalletAddress         string `json:"wallet_address"`
	Amount                int64  `json:"amount"`
	InterestRateBps       int64  `json:"interest_rate_bps"`
	Currency              string `json:"currency"`
	MinSubscriptionAmount int64  `json:"min_subscription_amount"`
	MaturityDate          string `json:"maturity_date"`
}

func (s *Server) handleIssueNote(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req issueNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed request body", market.ErrInvalidParameter))
		return
	}

	maturity, err := time.Parse(time.RFC3339, req.MaturityDate)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: maturity_date must be RFC 3339", market.ErrInvalidParameter))
		return
	}

	note, err := s.deps.Issuance.Issue(r.Context(), issuance.IssueParams{
		IssuerWallet:          req.WalletAddress,
		Amount:                req.Amount,
		InterestRateBps:       req.InterestRateBps,
		Currency:              market.Currency(req.Currency),
		MinSubscriptionAmount: req.MinSubscriptionAmount,
		MaturityDate:          maturity,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        note.ID,
		"isin":      note.ISIN,
		"status":    string(note.OfferingStatus),
		"issued_at": note.IssuedAt,
	})
}

// ----------------------------------------------------------------------------
// Compliance
// ----------------------------------------------------------------------------

type walletResponse struct {
	WalletAddress string    `json:"wallet_address"`
	IsVerified    bool      `json:"is_verified"`
	InvestorTier  string    `json:"investor_tier,omitempty"`
	Jurisdiction  string    `json:"jurisdiction,omitempty"`
	VerifiedBy    string    `json:"verified_by,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func walletView(w *market.WalletVerification) walletResponse {
	return walletResponse{
		WalletAddress: w.WalletAddress,
		IsVerified:    w.IsVerified,
		InvestorTier:  string(w.InvestorTier),
		Jurisdiction:  w.Jurisdiction,
		VerifiedBy:    w.VerifiedBy,
		UpdatedAt:     w.UpdatedAt,
	}
}

func (s *Server) handleComplianceStatus(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	wallet, err := s.deps.Compliance.Status(r.Context(), pathParams["wallet"], requestID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, walletView(wallet))
}

type verifyRequest struct {
	InvestorTier string `json:"investor_tier"`
	Jurisdiction string `json:"jurisdiction"`
	PerformedBy  string `json:"performed_by"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req verifyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: malformed request body", market.ErrInvalidParameter))
			return
		}
	}

	wallet, err := s.deps.Compliance.Verify(r.Context(), pathParams["wallet"],
		market.InvestorTier(req.InvestorTier), req.Jurisdiction, req.PerformedBy, requestID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, walletView(wallet))
}

func (s *Server) handleUnverify(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	var req verifyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: malformed request body", market.ErrInvalidParameter))
			return
		}
	}

	wallet, err := s.deps.Compliance.Unverify(r.Context(), pathParams["wallet"], req.PerformedBy, requestID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, walletView(wallet))
}

// ----------------------------------------------------------------------------
// Parameter helpers
// ----------------------------------------------------------------------------

func notePathID(pathParams map[string]string) (int64, error) {
	id, err := strconv.ParseInt(pathParams["note_id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: note_id must be a positive integer", market.ErrInvalidParameter)
	}
	return id, nil
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func int64Param(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
