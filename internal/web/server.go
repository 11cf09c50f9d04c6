package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stakeworks/acv/internal/logger"
	"github.com/stakeworks/acv/internal/state"
	"github.com/stakeworks/acv/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes vault state over HTTP: live reads from the vault itself,
// history from the database, and Prometheus metrics.
type WebServer struct {
	router *mux.Router
	port   string
	vault  *vault.Vault
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, v *vault.Vault) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		vault:  v,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Prometheus scrape endpoint
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API endpoints. /cycles/latest must precede /cycles/{id} or the path
	// variable swallows it.
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/cycles", ws.handleGetCycles).Methods("GET")
	api.HandleFunc("/cycles/latest", ws.handleGetLatestCycle).Methods("GET")
	api.HandleFunc("/cycles/{id}", ws.handleGetCycle).Methods("GET")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/events/{account}", ws.handleGetAccountEvents).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/performance", ws.handleGetPerformanceMetrics).Methods("GET")
	api.HandleFunc("/deposits", ws.handlePostDeposit).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns comprehensive server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var hasErrors bool

	// Latest cycle information
	latestCycle, cycleErr := state.GetLatestCycle()
	var cycleInfo map[string]interface{}
	if cycleErr == nil && latestCycle != nil {
		cycleInfo = map[string]interface{}{
			"current_cycle":   latestCycle.CycleNumber,
			"last_cycle_time": latestCycle.Timestamp,
			"reinvested":      latestCycle.Reinvested,
			"last_error":      latestCycle.ErrorMessage,
		}
		hasErrors = latestCycle.ErrorMessage != ""
	} else {
		cycleInfo = map[string]interface{}{
			"current_cycle":   0,
			"last_cycle_time": nil,
		}
		if cycleErr != nil {
			hasErrors = true
		}
	}

	// Database connection status
	dbHealthy := true
	if dbErr := state.TestDBConnection(); dbErr != nil {
		dbHealthy = false
		hasErrors = true
	}

	// Pool reachability via a live staked-balance query
	poolHealthy := true
	if _, poolErr := ws.vault.TotalDeposits(); poolErr != nil {
		poolHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if hasErrors {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "acv-auto-compounding-vault",
			"version": "1.0.0",
		},
		"vault_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"pool_healthy":     poolHealthy,
			"cycle_info":       cycleInfo,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetCycles returns paginated compound-cycle history
func (ws *WebServer) handleGetCycles(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	cycles, err := state.GetRecentCycles(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent cycles")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve cycles")
		return
	}

	response := map[string]interface{}{
		"cycles": cycles,
		"count":  len(cycles),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetCycle returns a specific cycle by ID
func (ws *WebServer) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid cycle ID")
		return
	}

	cycle, err := state.GetCycleByID(id)
	if err != nil {
		webLogger.Error().Err(err).Int64("cycleId", id).Msg("Failed to get cycle")
		ws.writeErrorResponse(w, http.StatusNotFound, "Cycle not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, cycle)
}

// handleGetLatestCycle returns the most recent cycle
func (ws *WebServer) handleGetLatestCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := state.GetLatestCycle()
	if err != nil || cycle == nil {
		webLogger.Error().Err(err).Msg("Failed to get latest cycle")
		ws.writeErrorResponse(w, http.StatusNotFound, "No cycles found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, cycle)
}

// handleGetEvents returns the recent accounting events
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	events, err := state.GetRecentEvents(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	response := map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetAccountEvents returns the recent events of one account
func (ws *WebServer) handleGetAccountEvents(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	events, err := state.GetEventsByAccount(account, 50)
	if err != nil {
		webLogger.Error().Err(err).Str("account", account).Msg("Failed to get account events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	response := map[string]interface{}{
		"account": account,
		"events":  events,
		"count":   len(events),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetParameters returns the vault's live parameter set
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"parameters": ws.vault.Params(),
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetVaultSummary returns live vault totals alongside persisted history
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	totalDeposits, err := ws.vault.TotalDeposits()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to query staked position")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Staking pool unreachable")
		return
	}
	totalShares := ws.vault.TotalShares()

	pendingReward, err := ws.vault.CheckReward()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to estimate pending reward")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Reward estimation failed")
		return
	}

	response := map[string]interface{}{
		"total_deposits": totalDeposits.String(),
		"total_shares":   totalShares.String(),
		"pending_reward": pendingReward.String(),
		"timestamp":      time.Now().UTC(),
	}

	// History totals are best-effort; the live numbers above are the point.
	if persisted, err := state.GetVaultSummary(); err == nil {
		response["total_cycles"] = persisted.TotalCycles
		response["last_updated"] = persisted.LastUpdated
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPerformanceMetrics returns aggregated compounding performance
func (ws *WebServer) handleGetPerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := state.GetPerformanceMetrics()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get performance metrics")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve performance metrics")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, metrics)
}

// depositRequest is the body of POST /api/deposits.
type depositRequest struct {
	Token string `json:"token"` // signed deposit authorization
}

// handlePostDeposit submits a signed deposit authorization. The HTTP caller
// needs no standing of its own; the token carries the depositor's signature.
func (ws *WebServer) handlePostDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "A signed deposit token is required")
		return
	}

	if err := ws.vault.DepositWithAuthorization(req.Token); err != nil {
		webLogger.Warn().Err(err).Msg("Deposit authorization rejected")
		switch {
		case errors.Is(err, vault.ErrAuthorization):
			ws.writeErrorResponse(w, http.StatusUnauthorized, "Deposit authorization is invalid")
		case errors.Is(err, vault.ErrDepositsDisabled):
			ws.writeErrorResponse(w, http.StatusForbidden, "Deposits are disabled")
		case errors.Is(err, vault.ErrZeroAmount):
			ws.writeErrorResponse(w, http.StatusBadRequest, "Deposit amount resolves to zero")
		default:
			ws.writeErrorResponse(w, http.StatusInternalServerError, "Deposit failed")
		}
		return
	}

	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"accepted":  true,
		"timestamp": time.Now().UTC(),
	})
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Response writer wrapper to capture the status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
