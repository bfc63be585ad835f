package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the default registry on /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Registry returns the default registerer so domain metric packages stay
// decoupled from registration details.
func Registry() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}
