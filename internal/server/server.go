package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"MicroPaper/internal/compliance"
	"MicroPaper/internal/engine"
	"MicroPaper/internal/events"
	"MicroPaper/internal/issuance"
	"MicroPaper/internal/observability"
	"MicroPaper/internal/query"
	"MicroPaper/internal/risk"
)

// Deps holds everything the transport layer serves.
type Deps struct {
	Query      *query.Service
	Intake     *engine.OrderIntake
	Matcher    *engine.MatchingEngine
	Settler    *engine.SettlementEngine
	Risk       *risk.WaterfallEngine
	Compliance *compliance.Service
	Issuance   *issuance.Service

	// Events receives outbound market events after commits; nil disables
	// publishing.
	Events chan<- events.MarketEvent

	Health  *observability.HealthChecker
	Metrics *observability.Metrics
	Logger  zerolog.Logger

	// APIKey guards every /v1 route; AdminKey additionally guards the
	// mutating admin operations. Empty keys disable the respective check.
	APIKey   string
	AdminKey string
}

// Server runs the gRPC endpoint (health + reflection) and the HTTP/JSON
// API on the gateway mux.
type Server struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	grpcAddr   string
	httpAddr   string
	deps       *Deps
}

func New(grpcAddr, httpAddr string, deps *Deps) *Server {
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		grpcAddr:   grpcAddr,
		httpAddr:   httpAddr,
		deps:       deps,
	}
}

// StartGRPC starts the gRPC server (blocking).
func (s *Server) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.deps.Logger.Info().Msg("grpc server shutting down")
		s.grpcServer.GracefulStop()
	}()

	s.deps.Logger.Info().Str("addr", s.grpcAddr).Msg("grpc server listening")
	return s.grpcServer.Serve(lis)
}

// StartHTTP starts the HTTP/JSON API (blocking).
func (s *Server) StartHTTP(ctx context.Context) error {
	mux := runtime.NewServeMux()
	if err := s.registerRoutes(mux); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	httpMux := http.NewServeMux()
	if s.deps.Health != nil {
		httpMux.HandleFunc("/healthz", s.deps.Health.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.deps.Health.ReadinessHandler)
	}
	httpMux.Handle("/metrics", promhttp.Handler())
	httpMux.Handle("/", s.withRequestID(mux))

	s.httpServer = &http.Server{
		Addr:    s.httpAddr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		s.deps.Logger.Info().Msg("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.deps.Logger.Info().Str("addr", s.httpAddr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// registerRoutes binds every API route onto the gateway mux. Admin routes
// carry the extra admin key check.
func (s *Server) registerRoutes(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		path    string
		admin   bool
		handler runtime.HandlerFunc
	}{
		{"GET", "/v1/offerings", false, s.handleListOfferings},
		{"GET", "/v1/holdings", false, s.handleListHoldings},
		{"POST", "/v1/orders", false, s.handlePlaceOrder},
		{"GET", "/v1/notes/{note_id}/protection", false, s.handleProtection},
		{"GET", "/v1/compliance/stats", false, s.handleComplianceStats},
		{"GET", "/v1/compliance/{wallet}", false, s.handleComplianceStatus},

		{"POST", "/v1/notes/issue", true, s.handleIssueNote},
		{"POST", "/v1/notes/{note_id}/match", true, s.handleMatch},
		{"POST", "/v1/notes/{note_id}/settle", true, s.handleSettle},
		{"POST", "/v1/compliance/{wallet}/verify", true, s.handleVerify},
		{"POST", "/v1/compliance/{wallet}/unverify", true, s.handleUnverify},
	}

	for _, r := range routes {
		h := s.authenticated(r.handler, r.admin)
		if err := mux.HandlePath(r.method, r.path, h); err != nil {
			return fmt.Errorf("route %s %s: %w", r.method, r.path, err)
		}
	}
	return nil
}
