package mid

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set of metrics maintained for the web api.
var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of requests handled, by method and status code.",
	}, []string{"method", "code"})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "Number of requests that ended in an error.",
	})

	panics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Number of handler panics recovered.",
	})
)

// Metrics updates program counters.
func Metrics() web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			// Handle updating the metrics that can be handled here.
			code := http.StatusOK
			if v, verr := web.GetValues(ctx); verr == nil && v.StatusCode != 0 {
				code = v.StatusCode
			}
			requests.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()

			if err != nil {
				errorsTotal.Inc()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}
