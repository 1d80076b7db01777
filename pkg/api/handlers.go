package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/velomail/pluginkit/pkg/manifest"
	"github.com/velomail/pluginkit/pkg/monitor"
	"github.com/velomail/pluginkit/pkg/registry"
	"github.com/velomail/pluginkit/pkg/resolver"
	"github.com/velomail/pluginkit/pkg/version"
)

// Handlers provides the HTTP surface over the catalog, the dependency
// resolver, and the health monitor.
type Handlers struct {
	registry *registry.Registry
	resolver *resolver.Resolver
	monitor  *monitor.Monitor
	log      *logrus.Logger
}

// NewHandlers creates the plugin API handlers.
func NewHandlers(reg *registry.Registry, res *resolver.Resolver, mon *monitor.Monitor, log *logrus.Logger) *Handlers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handlers{
		registry: reg,
		resolver: res,
		monitor:  mon,
		log:      log,
	}
}

// RegisterRoutes registers all plugin API routes.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Catalog
	r.HandleFunc("/api/v1/plugins", h.SearchPlugins).Methods("GET")
	r.HandleFunc("/api/v1/plugins/featured", h.GetFeaturedPlugins).Methods("GET")
	r.HandleFunc("/api/v1/plugins/{id}", h.GetPlugin).Methods("GET")
	r.HandleFunc("/api/v1/registry/statistics", h.GetStatistics).Methods("GET")
	r.HandleFunc("/api/v1/registry/refresh", h.RefreshRegistry).Methods("POST")

	// Dependency resolution and version checks
	r.HandleFunc("/api/v1/resolve", h.ResolveDependencies).Methods("POST")
	r.HandleFunc("/api/v1/compatibility", h.CheckCompatibility).Methods("GET")

	// Health monitoring
	r.HandleFunc("/api/v1/installations/{id}/invocations", h.RecordInvocation).Methods("POST")
	r.HandleFunc("/api/v1/installations/{id}/errors", h.RecordError).Methods("POST")
	r.HandleFunc("/api/v1/installations/{id}/resources", h.UpdateResources).Methods("POST")
	r.HandleFunc("/api/v1/installations/{id}/metrics", h.GetInstallationMetrics).Methods("GET")
	r.HandleFunc("/api/v1/installations/{id}/health", h.GetInstallationHealth).Methods("GET")
	r.HandleFunc("/api/v1/alerts", h.ListAlerts).Methods("GET")
	r.HandleFunc("/api/v1/alerts/{id}/resolve", h.ResolveAlert).Methods("POST")
	r.HandleFunc("/api/v1/health/summary", h.GetHealthSummary).Methods("GET")
}

// SearchPlugins handles GET /api/v1/plugins
func (h *Handlers) SearchPlugins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := registry.Filter{
		Category:     q.Get("category"),
		Type:         q.Get("type"),
		Platform:     q.Get("platform"),
		Query:        q.Get("q"),
		VerifiedOnly: q.Get("verified") == "true",
		FreeOnly:     q.Get("free") == "true",
	}
	if tags := q.Get("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}
	if minRating := q.Get("min_rating"); minRating != "" {
		if v, err := strconv.ParseFloat(minRating, 64); err == nil {
			filter.MinRating = v
		}
	}

	limit := 0
	offset := 0
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			limit = v
		}
	}
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			offset = v
		}
	}

	result := h.registry.SearchPlugins(r.Context(), filter, limit, offset)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetFeaturedPlugins handles GET /api/v1/plugins/featured
func (h *Handlers) GetFeaturedPlugins(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.registry.GetFeaturedPlugins())
}

// GetPlugin handles GET /api/v1/plugins/{id}
func (h *Handlers) GetPlugin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entry, ok := h.registry.GetPlugin(id)
	if !ok {
		http.Error(w, "plugin not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// GetStatistics handles GET /api/v1/registry/statistics
func (h *Handlers) GetStatistics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.registry.GetStatistics())
}

// RefreshRegistry handles POST /api/v1/registry/refresh
func (h *Handlers) RefreshRegistry(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Refresh(r.Context()); err != nil {
		h.log.WithError(err).Error("on-demand registry refresh failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveRequest is the body of POST /api/v1/resolve.
type ResolveRequest struct {
	Dependencies []manifest.Dependency `json:"dependencies"`
}

// ResolveDependencies handles POST /api/v1/resolve
func (h *Handlers) ResolveDependencies(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result := h.resolver.Resolve(r.Context(), req.Dependencies, h.registry.ResolverSnapshot())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// CheckCompatibility handles GET /api/v1/compatibility
func (h *Handlers) CheckCompatibility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	current := q.Get("current")
	if current == "" {
		http.Error(w, "missing required parameter: current", http.StatusBadRequest)
		return
	}

	result := version.CheckCompatibility(q.Get("min"), q.Get("max"), current)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// InvocationRequest is the body of POST /api/v1/installations/{id}/invocations.
type InvocationRequest struct {
	Operation  string  `json:"operation"`
	DurationMS float64 `json:"duration_ms"`
	Success    bool    `json:"success"`
}

// RecordInvocation handles POST /api/v1/installations/{id}/invocations
func (h *Handlers) RecordInvocation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req InvocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Operation == "" {
		http.Error(w, "operation is required", http.StatusBadRequest)
		return
	}

	h.monitor.RecordInvocation(id, req.Operation, req.DurationMS, req.Success)
	w.WriteHeader(http.StatusAccepted)
}

// ErrorRequest is the body of POST /api/v1/installations/{id}/errors.
type ErrorRequest struct {
	Operation string           `json:"operation,omitempty"`
	Message   string           `json:"message"`
	Severity  monitor.Severity `json:"severity"`
}

// RecordError handles POST /api/v1/installations/{id}/errors
func (h *Handlers) RecordError(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ErrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	h.monitor.RecordError(id, req.Operation, errors.New(req.Message), req.Severity)
	w.WriteHeader(http.StatusAccepted)
}

// ResourceRequest is the body of POST /api/v1/installations/{id}/resources.
type ResourceRequest struct {
	MemoryBytes int64   `json:"memory_bytes"`
	CPU         float64 `json:"cpu"`
}

// UpdateResources handles POST /api/v1/installations/{id}/resources
func (h *Handlers) UpdateResources(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.monitor.UpdateResourceUsage(id, req.MemoryBytes, req.CPU)
	w.WriteHeader(http.StatusAccepted)
}

// GetInstallationMetrics handles GET /api/v1/installations/{id}/metrics
func (h *Handlers) GetInstallationMetrics(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	metrics, ok := h.monitor.GetMetrics(id)
	if !ok {
		http.Error(w, "installation not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics)
}

// GetInstallationHealth handles GET /api/v1/installations/{id}/health
func (h *Handlers) GetInstallationHealth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	check, ok := h.monitor.GetHealthCheck(id)
	if !ok {
		http.Error(w, "no health check recorded for installation", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(check)
}

// ListAlerts handles GET /api/v1/alerts
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	installationID := r.URL.Query().Get("installation_id")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.monitor.GetActiveAlerts(installationID))
}

// ResolveAlert handles POST /api/v1/alerts/{id}/resolve
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if !h.monitor.ResolveAlert(id) {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealthSummary handles GET /api/v1/health/summary
func (h *Handlers) GetHealthSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.monitor.GetSystemHealthSummary())
}
