package srvreg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/shipment"
	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/workflow"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// MaxBodyBytes caps request bodies read from clients
const MaxBodyBytes = 1 << 20

// ErrBodyTooLarge is returned when a request body exceeds MaxBodyBytes
var ErrBodyTooLarge = errors.New("request body too large")

// Request represents the client's original HTTP request
type Request struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	RemoteAddr string            `json:"remote_addr"`
	RequestID  string            `json:"request_id"`
	Timestamp  time.Time         `json:"timestamp"`

	ctx context.Context
}

// Context returns the context of the originating HTTP request
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Actor reads the identity set by the upstream auth gateway. An unknown role
// yields an actor that every role check rejects.
func (r *Request) Actor() shipment.Actor {
	role, _ := shipment.ParseRole(strings.TrimSpace(r.Headers["X-User-Role"]))
	return shipment.Actor{
		UserID: strings.TrimSpace(r.Headers["X-User-Id"]),
		Name:   strings.TrimSpace(r.Headers["X-User-Name"]),
		Role:   role,
	}
}

// Response represents the computed response for a request
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// ServiceHandler is a function type for service handlers
type ServiceHandler func(*Request) (*Response, error)

// RouteKey is used to uniquely identify a route
type RouteKey struct {
	Method string
	Path   string
}

// InventoryService is the inventory surface exposed over HTTP
type InventoryService interface {
	CreateItem(ctx context.Context, item *shipment.InventoryItem) (*shipment.InventoryItem, error)
	GetItem(ctx context.Context, id int64) (*shipment.InventoryItem, error)
	Movements(ctx context.Context, itemID int64) ([]shipment.Movement, error)
}

// ServiceRegistry manages all service handlers
type ServiceRegistry struct {
	handlers    map[RouteKey]ServiceHandler
	exactRoutes map[RouteKey]bool // Whether a route is exact or pattern-based
	mu          sync.RWMutex
	engine      *workflow.Engine
	inventory   InventoryService
	logger      cmtlog.Logger
}

// ConvertHttpRequestToServiceRequest converts an http.Request to Request
func ConvertHttpRequestToServiceRequest(r *http.Request, requestID string) (*Request, error) {
	// Extract headers
	headers := make(map[string]string)
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	// Read body if present
	body := ""
	if r.Body != nil {
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
			}
			return nil, err
		}
		raw := strings.TrimSpace(string(bodyBytes))
		body = compactJSON(raw)
	}

	return &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    headers,
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		RequestID:  requestID,
		Timestamp:  time.Now(),
		ctx:        r.Context(),
	}, nil
}

// NewServiceRegistry creates a new service registry
func NewServiceRegistry(
	engine *workflow.Engine,
	inventory InventoryService,
	logger cmtlog.Logger,
) *ServiceRegistry {
	return &ServiceRegistry{
		handlers:    make(map[RouteKey]ServiceHandler),
		exactRoutes: make(map[RouteKey]bool),
		engine:      engine,
		inventory:   inventory,
		logger:      logger.With("module", "srvreg"),
	}
}

// RegisterHandler registers a new service handler
func (sr *ServiceRegistry) RegisterHandler(method, path string, isExactPath bool, handler ServiceHandler) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	key := RouteKey{Method: strings.ToUpper(method), Path: path}
	sr.handlers[key] = handler
	sr.exactRoutes[key] = isExactPath
}

// GetHandlerForPath finds the appropriate handler for a given path and a boolean of whether or not the handler was found
func (sr *ServiceRegistry) GetHandlerForPath(method, path string) (ServiceHandler, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	path = strings.TrimSuffix(path, "/")

	// Try exact match first
	key := RouteKey{Method: strings.ToUpper(method), Path: path}
	if handler, ok := sr.handlers[key]; ok {
		if sr.exactRoutes[key] {
			return handler, true
		}
	}

	// Try pattern matching
	for routeKey, handler := range sr.handlers {
		if routeKey.Method != strings.ToUpper(method) {
			continue
		}

		// Skip exact routes in pattern matching
		if sr.exactRoutes[routeKey] {
			continue
		}

		if matchPath(routeKey.Path, path) {
			return handler, true
		}
	}

	return nil, false
}

// pathAllowed reports whether any method is registered for path
func (sr *ServiceRegistry) pathAllowed(path string) bool {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	path = strings.TrimSuffix(path, "/")
	for routeKey := range sr.handlers {
		if routeKey.Path == path || (!sr.exactRoutes[routeKey] && matchPath(routeKey.Path, path)) {
			return true
		}
	}
	return false
}

// matchPath does simple pattern matching for routes.
// It supports patterns like "/asn/:id" matching "/asn/123"
func matchPath(pattern, path string) bool {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if len(patternParts) != len(pathParts) {
		return false
	}

	for i := range len(patternParts) {
		if strings.HasPrefix(patternParts[i], ":") {
			// This is a parameter part, it matches anything
			if pathParts[i] == "" {
				return false
			}
			continue
		}

		if patternParts[i] != pathParts[i] {
			return false
		}
	}

	return true
}

// RegisterDefaultServices sets up the ASN and inventory endpoints
func (sr *ServiceRegistry) RegisterDefaultServices() {
	// Shipment records
	sr.RegisterHandler("GET", "/asn", true, sr.ListShipmentsHandler)
	sr.RegisterHandler("POST", "/asn", true, sr.CreateShipmentHandler)
	sr.RegisterHandler("GET", "/asn/:id", false, sr.GetShipmentHandler)
	sr.RegisterHandler("DELETE", "/asn/:id", false, sr.DeleteShipmentHandler)
	sr.RegisterHandler("POST", "/asn/:id/broker", false, sr.AssignBrokerHandler)

	// Fee lifecycle
	sr.RegisterHandler("POST", "/asn/:id/fees", false, sr.SubmitFeesHandler)
	sr.RegisterHandler("POST", "/asn/:id/fees/decision", false, sr.DecideFeesHandler)
	sr.RegisterHandler("POST", "/asn/:id/payment", false, sr.ConfirmPaymentHandler)

	// Physical lifecycle
	sr.RegisterHandler("POST", "/asn/:id/arrive", false, sr.MarkArrivedHandler)
	sr.RegisterHandler("POST", "/asn/:id/process", false, sr.BeginProcessingHandler)
	sr.RegisterHandler("POST", "/asn/:id/receive", false, sr.ReceiveShipmentHandler)
	sr.RegisterHandler("POST", "/asn/:id/discrepancy/resolve", false, sr.ResolveDiscrepancyHandler)
	sr.RegisterHandler("POST", "/asn/:id/complete", false, sr.CompleteShipmentHandler)

	// Inventory items
	sr.RegisterHandler("POST", "/inventory", true, sr.CreateInventoryItemHandler)
	sr.RegisterHandler("GET", "/inventory/:id", false, sr.GetInventoryItemHandler)
	sr.RegisterHandler("GET", "/inventory/:id/movements", false, sr.ListMovementsHandler)
}

// GenerateResponse executes the request and generates a response
func (req *Request) GenerateResponse(services *ServiceRegistry) *Response {
	handler, found := services.GetHandlerForPath(req.Method, req.Path)
	if !found {
		if services.pathAllowed(req.Path) {
			return messageResponse(http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed for %s", req.Method, req.Path))
		}
		return messageResponse(http.StatusNotFound, fmt.Sprintf("Service not found for %s %s", req.Method, req.Path))
	}

	response, err := handler(req)
	if err != nil {
		services.logger.Debug("handler returned error",
			"method", req.Method,
			"path", req.Path,
			"request_id", req.RequestID,
			"err", err,
		)
	}
	if response == nil {
		return messageResponse(http.StatusInternalServerError, "Internal server error")
	}
	return response
}

func compactJSON(body string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(body)); err != nil {
		// If it's not JSON, return trimmed original
		return strings.TrimSpace(body)
	}
	return buf.String()
}
