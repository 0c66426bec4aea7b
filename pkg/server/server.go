// Package server exposes the bot's webhook surface: Slack slash commands for
// operators plus health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/checker"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/metrics"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tickets"
	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/tracker"
)

// Config holds the HTTP listener settings.
type Config struct {
	// ListenAddr is the address the webhook server binds to.
	ListenAddr string
	// ReadTimeout and WriteTimeout bound each request.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server wires the slash-command handlers to the checker, tracker, and
// ticket service.
type Server struct {
	config  Config
	checker *checker.Checker
	tracker *tracker.Tracker
	tickets *tickets.Service
	metrics *metrics.Metrics
	logger  *zap.Logger

	// healthCheck probes the backing store; nil means always healthy.
	healthCheck func(ctx context.Context) error

	http *http.Server
}

// Option customizes the server.
type Option func(*Server)

// WithHealthCheck installs a store reachability probe used by /health and
// /slack/bot-status.
func WithHealthCheck(probe func(ctx context.Context) error) Option {
	return func(s *Server) { s.healthCheck = probe }
}

// WithTickets enables the /slack/create-ticket command.
func WithTickets(svc *tickets.Service) Option {
	return func(s *Server) { s.tickets = svc }
}

// New creates the webhook server.
func New(config Config, c *checker.Checker, tr *tracker.Tracker, m *metrics.Metrics, logger *zap.Logger, opts ...Option) (*Server, error) {
	if c == nil {
		return nil, fmt.Errorf("checker is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:  config,
		checker: c,
		tracker: tr,
		metrics: m,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.http = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	slack := r.PathPrefix("/slack").Subrouter()
	slack.HandleFunc("/bot-status", s.handleBotStatus).Methods(http.MethodPost)
	slack.HandleFunc("/test-mode-on", s.handleTestMode(true)).Methods(http.MethodPost)
	slack.HandleFunc("/test-mode-off", s.handleTestMode(false)).Methods(http.MethodPost)
	slack.HandleFunc("/manual-check", s.handleManualCheck).Methods(http.MethodPost)
	slack.HandleFunc("/create-ticket", s.handleCreateTicket).Methods(http.MethodPost)
	slack.HandleFunc("/force-resolve", s.handleForceResolve).Methods(http.MethodPost)
	slack.HandleFunc("/list-events", s.handleListEvents).Methods(http.MethodPost)
	slack.HandleFunc("/interactive", s.handleInteractive).Methods(http.MethodPost)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening", zap.String("addr", s.config.ListenAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler exposes the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type slashResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func writeSlash(w http.ResponseWriter, status int, responseType, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(slashResponse{ResponseType: responseType, Text: text})
}

func inChannel(w http.ResponseWriter, text string) {
	writeSlash(w, http.StatusOK, "in_channel", text)
}

func ephemeral(w http.ResponseWriter, status int, text string) {
	writeSlash(w, status, "ephemeral", text)
}

// commandText extracts the slash command argument from the form body.
func commandText(r *http.Request) string {
	return strings.TrimSpace(r.FormValue("text"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "reason": err.Error()})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			ephemeral(w, http.StatusInternalServerError, fmt.Sprintf("Bot is unhealthy: %v", err))
			return
		}
	}
	mode := "live"
	if s.checker.DryRun() {
		mode = "test"
	}
	inChannel(w, fmt.Sprintf("Bot is healthy. Mode: %s. Sources: %s.", mode, strings.Join(s.checker.Sources(), ", ")))
}

func (s *Server) handleTestMode(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.checker.SetDryRun(enabled)
		state := "OFF"
		if enabled {
			state = "ON"
		}
		inChannel(w, "Test mode is now "+state)
	}
}

func (s *Server) handleManualCheck(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(commandText(r))
	if name == "" {
		ephemeral(w, http.StatusBadRequest, "Usage: /manual-check <platform>")
		return
	}
	if err := s.checker.Check(r.Context(), name); err != nil {
		if errors.Is(err, checker.ErrUnknownSource) {
			ephemeral(w, http.StatusBadRequest, fmt.Sprintf("Invalid platform: %s", name))
			return
		}
		ephemeral(w, http.StatusInternalServerError, fmt.Sprintf("Check for %s failed: %v", name, err))
		return
	}
	inChannel(w, fmt.Sprintf("Manual check for %s has been triggered", name))
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	if s.tickets == nil {
		ephemeral(w, http.StatusServiceUnavailable, "Ticket creation is not configured")
		return
	}
	fields := strings.Fields(commandText(r))
	if len(fields) == 0 {
		ephemeral(w, http.StatusBadRequest, "Usage: /create-ticket <internal id> [force]")
		return
	}
	internalID := fields[0]
	force := len(fields) > 1 && strings.EqualFold(fields[1], "force")

	result, err := s.tickets.Create(r.Context(), internalID, force)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			ephemeral(w, http.StatusNotFound, fmt.Sprintf("No tracked event with ID %s", internalID))
			return
		}
		ephemeral(w, http.StatusInternalServerError, fmt.Sprintf("Error creating ticket for event (ID: %s)", internalID))
		return
	}
	if result.Duplicate {
		ephemeral(w, http.StatusOK, fmt.Sprintf(
			"A ticket has already been created for this event (ID: %s, work item %d). Re-run as `/create-ticket %s force` to create another.",
			internalID, result.WorkItemID, internalID))
		return
	}
	inChannel(w, fmt.Sprintf("Ticket created for event ID %s: %d", internalID, result.WorkItemID))
}

func (s *Server) handleForceResolve(w http.ResponseWriter, r *http.Request) {
	internalID := commandText(r)
	if internalID == "" {
		ephemeral(w, http.StatusBadRequest, "Usage: /force-resolve <internal id>")
		return
	}
	if err := s.tracker.ResolveEvent(r.Context(), internalID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			ephemeral(w, http.StatusNotFound, fmt.Sprintf("No tracked event with ID %s", internalID))
			return
		}
		ephemeral(w, http.StatusInternalServerError, fmt.Sprintf("Error resolving event ID %s", internalID))
		return
	}
	inChannel(w, fmt.Sprintf("Event ID %s has been forcefully resolved.", internalID))
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.tracker.ListTrackedEvents(r.Context())
	if err != nil {
		ephemeral(w, http.StatusInternalServerError, "Error listing tracked events")
		return
	}
	if len(events) == 0 {
		inChannel(w, "No events are currently tracked.")
		return
	}
	var b strings.Builder
	b.WriteString("Currently tracked events:\n")
	for _, event := range events {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", event.InternalID, event.EventName, event.Platform)
	}
	inChannel(w, strings.TrimRight(b.String(), "\n"))
}
