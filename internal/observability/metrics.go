package observability

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

// Metrics holds the storefront's process-wide counters, written in the
// Prometheus text format.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	apiErrors    *Counter
	remoteCalls  *CounterVec
	remoteLat    *HistogramVec
	checkoutStep *CounterVec
	cartWrites   *CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests:  NewCounterVec("storefront_api_requests_total", "API requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:   NewHistogramVec("storefront_api_request_seconds", "API request latency.", []string{"method", "route"}, nil),
		apiInflight:  NewGauge("storefront_api_inflight", "API requests in flight."),
		apiErrors:    NewCounter("storefront_api_server_errors_total", "API responses with a 5xx status."),
		remoteCalls:  NewCounterVec("storefront_remote_requests_total", "Backend API attempts by method, endpoint and status.", []string{"method", "endpoint", "status"}),
		remoteLat:    NewHistogramVec("storefront_remote_request_seconds", "Backend API attempt latency.", []string{"method", "endpoint"}, nil),
		checkoutStep: NewCounterVec("storefront_checkout_transitions_total", "Checkout transitions by name and result.", []string{"transition", "result"}),
		cartWrites:   NewCounterVec("storefront_cart_operations_total", "Cart operations by name and result.", []string{"op", "result"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, wr := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.remoteCalls, m.remoteLat, m.checkoutStep, m.cartWrites,
	} {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
	if status >= 500 {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveRemote matches transport.Options.Observe. Status 0 means the attempt
// got no usable response.
func (m *Metrics) ObserveRemote(method, endpoint string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.remoteCalls.Inc(method, endpoint, strconv.Itoa(status))
	m.remoteLat.Observe(dur.Seconds(), method, endpoint)
}

func (m *Metrics) IncCheckoutTransition(transition string, err error) {
	if m == nil {
		return
	}
	m.checkoutStep.Inc(transition, result(err))
}

func (m *Metrics) IncCartOperation(op string, err error) {
	if m == nil {
		return
	}
	m.cartWrites.Inc(op, result(err))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
