package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/metrics"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/realtime"
	service_registry "github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/srvreg"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// WebServer handles HTTP requests
type WebServer struct {
	httpAddr        string
	server          *http.Server
	mux             *http.ServeMux
	logger          cmtlog.Logger
	startTime       time.Time
	serviceRegistry *service_registry.ServiceRegistry
	hub             *realtime.Hub
	metrics         *metrics.Metrics
}

// HealthStatus is the body served on /health
type HealthStatus struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Connections int    `json:"connections"`
}

// NewWebServer creates a new web server
func NewWebServer(
	httpPort string,
	logger cmtlog.Logger,
	serviceRegistry *service_registry.ServiceRegistry,
	hub *realtime.Hub,
	m *metrics.Metrics,
) *WebServer {
	mux := http.NewServeMux()

	server := &WebServer{
		httpAddr: ":" + httpPort,
		server: &http.Server{
			Addr:              ":" + httpPort,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		mux:             mux,
		logger:          logger.With("module", "server"),
		startTime:       time.Now(),
		serviceRegistry: serviceRegistry,
		hub:             hub,
		metrics:         m,
	}

	// Register routes
	api := http.HandlerFunc(server.handleServiceAPI)
	mux.Handle("/asn", m.InstrumentHandler("/asn", api))
	mux.Handle("/asn/", m.InstrumentHandler("/asn/", api))
	mux.Handle("/inventory", m.InstrumentHandler("/inventory", api))
	mux.Handle("/inventory/", m.InstrumentHandler("/inventory/", api))
	// Realtime channels are long-lived and bypass the request instrumentation
	mux.HandleFunc("/events", hub.ServeSSE)
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", server.handleHealth)

	return server
}

// Handler exposes the route table, mostly for tests
func (ws *WebServer) Handler() http.Handler {
	return ws.mux
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.logger.Info("Starting web server", "addr", ws.httpAddr)
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Error("web server error: ", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the web server
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(HealthStatus{
		Status:      "ok",
		Uptime:      time.Since(ws.startTime).Round(time.Second).String(),
		Connections: ws.hub.Count(),
	})
	if err != nil {
		ws.logger.Error("Failed to encode health response", "err", err)
	}
}

// handleServiceAPI dispatches ASN and inventory requests into the service registry
func (ws *WebServer) handleServiceAPI(w http.ResponseWriter, r *http.Request) {
	requestID, err := generateRequestID()
	if err != nil {
		JSONError(w, "Internal Server Error", http.StatusInternalServerError)
		ws.logger.Error("Failed to generate request ID", "err", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service_registry.MaxBodyBytes)
	request, err := service_registry.ConvertHttpRequestToServiceRequest(r, requestID)
	if errors.Is(err, service_registry.ErrBodyTooLarge) {
		JSONError(w, err.Error(), http.StatusRequestEntityTooLarge)
		ws.logger.Debug("Request body too large", "request_id", requestID, "path", r.URL.Path)
		return
	}
	if err != nil {
		JSONError(w, "Failed to read request: "+err.Error(), http.StatusBadRequest)
		ws.logger.Error("Failed to convert HTTP request", "err", err)
		return
	}

	response := request.GenerateResponse(ws.serviceRegistry)

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(response.StatusCode)
	if _, err := w.Write([]byte(response.Body)); err != nil {
		ws.logger.Error("Failed to write client response", "err", err)
	}

	ws.logger.Debug("request handled",
		"request_id", requestID,
		"method", request.Method,
		"path", request.Path,
		"status", response.StatusCode,
		"actor", request.Headers["X-User-Id"],
	)
}

func generateRequestID() (string, error) {
	bytes := make([]byte, 16)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// JSONError sends a JSON formatted error response with the given status code and message
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	errorResponse := struct {
		Error string `json:"error"`
	}{
		Error: message,
	}
	jsonBytes, err := json.Marshal(errorResponse)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonBytes)
}
