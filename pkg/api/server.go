package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the daemon's HTTP router: the plugin API, a liveness
// endpoint, and the Prometheus scrape endpoint.
func NewRouter(h *Handlers, promRegistry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	if promRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}
	return r
}
