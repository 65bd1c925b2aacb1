package metrics

import (
	"fmt"
	"log"
	"time"

	"payment-service/internal/config"

	"github.com/VictoriaMetrics/metrics"
)

func Setup(cfg config.Metrics) {
	if cfg.URL == "" {
		return
	}

	err := metrics.InitPush(cfg.URL, time.Duration(cfg.IntervalMs)*time.Millisecond, cfg.CommonLabels, true)
	if err != nil {
		log.Printf("Error initializing metrics push: %v", err)
	}
}

// GatewayCall records one outbound gateway request. result is one of
// success, gateway_error, network_error or serialization_error.
func GatewayCall(step, result string, started time.Time) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`gateway_requests_total{step=%q,result=%q}`, step, result)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`gateway_request_duration_milliseconds{step=%q}`, step)).
		Update(float64(time.Since(started).Milliseconds()))
}

// Flow records the end of an orchestrated flow.
func Flow(flow, result string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`payment_flows_total{flow=%q,result=%q}`, flow, result)).Inc()
}

// Transition counts state machine transitions by target state.
func Transition(state string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`payment_transitions_total{state=%q}`, state)).Inc()
}
