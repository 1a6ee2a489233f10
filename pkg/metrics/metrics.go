package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Metrics holds in-process gateway metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	// Endpoint metrics
	EndpointRequests map[string]int64
	EndpointErrors   map[string]int64
	EndpointLatency  map[string][]time.Duration

	// Tool metrics, keyed by tool name
	ToolCalls   map[string]int64
	ToolErrors  map[string]int64
	ToolLatency map[string][]time.Duration

	// Downstream service metrics
	ServiceCalls   map[string]int64
	ServiceErrors  map[string]int64
	ServiceLatency map[string][]time.Duration

	// Circuit breaker metrics
	CircuitBreakerState    map[string]string
	CircuitBreakerFailures map[string]int64

	// Start time
	StartTime time.Time
}

var globalMetrics = &Metrics{
	EndpointRequests:       make(map[string]int64),
	EndpointErrors:         make(map[string]int64),
	EndpointLatency:        make(map[string][]time.Duration),
	ToolCalls:              make(map[string]int64),
	ToolErrors:             make(map[string]int64),
	ToolLatency:            make(map[string][]time.Duration),
	ServiceCalls:           make(map[string]int64),
	ServiceErrors:          make(map[string]int64),
	ServiceLatency:         make(map[string][]time.Duration),
	CircuitBreakerState:    make(map[string]string),
	CircuitBreakerFailures: make(map[string]int64),
	StartTime:              time.Now(),
}

// latencyWindow is how many recent measurements we keep per key.
const latencyWindow = 100

func appendLatency(window map[string][]time.Duration, key string, latency time.Duration) {
	if len(window[key]) >= latencyWindow {
		window[key] = window[key][1:]
	}
	window[key] = append(window[key], latency)
}

// RecordRequest records one API request
func RecordRequest(endpoint string, success bool, latency time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.TotalRequests++
	if success {
		globalMetrics.SuccessfulRequests++
	} else {
		globalMetrics.FailedRequests++
		globalMetrics.EndpointErrors[endpoint]++
	}

	globalMetrics.EndpointRequests[endpoint]++
	appendLatency(globalMetrics.EndpointLatency, endpoint, latency)
}

// RecordToolCall records one tool execution. Failed envelopes count as
// errors; replays count as calls like any other.
func RecordToolCall(tool string, ok bool, latency time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.ToolCalls[tool]++
	if !ok {
		globalMetrics.ToolErrors[tool]++
	}
	appendLatency(globalMetrics.ToolLatency, tool, latency)
}

// RecordServiceCall records one downstream service call
func RecordServiceCall(service string, success bool, latency time.Duration) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.ServiceCalls[service]++
	if !success {
		globalMetrics.ServiceErrors[service]++
	}
	appendLatency(globalMetrics.ServiceLatency, service, latency)
}

// UpdateCircuitBreaker updates circuit breaker metrics
func UpdateCircuitBreaker(service, state string, failures int64) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	globalMetrics.CircuitBreakerState[service] = state
	globalMetrics.CircuitBreakerFailures[service] = failures
}

func averageLatencies(window map[string][]time.Duration) map[string]float64 {
	avg := make(map[string]float64)
	for key, latencies := range window {
		if len(latencies) > 0 {
			var sum time.Duration
			for _, l := range latencies {
				sum += l
			}
			avg[key] = sum.Seconds() / float64(len(latencies))
		}
	}
	return avg
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	uptime := time.Since(globalMetrics.StartTime)

	return map[string]interface{}{
		"uptime_seconds": uptime.Seconds(),
		"requests": map[string]interface{}{
			"total":      globalMetrics.TotalRequests,
			"successful": globalMetrics.SuccessfulRequests,
			"failed":     globalMetrics.FailedRequests,
		},
		"endpoints": map[string]interface{}{
			"requests":            globalMetrics.EndpointRequests,
			"errors":              globalMetrics.EndpointErrors,
			"latency_avg_seconds": averageLatencies(globalMetrics.EndpointLatency),
		},
		"tools": map[string]interface{}{
			"calls":               globalMetrics.ToolCalls,
			"errors":              globalMetrics.ToolErrors,
			"latency_avg_seconds": averageLatencies(globalMetrics.ToolLatency),
		},
		"services": map[string]interface{}{
			"calls":               globalMetrics.ServiceCalls,
			"errors":              globalMetrics.ServiceErrors,
			"latency_avg_seconds": averageLatencies(globalMetrics.ServiceLatency),
		},
		"circuit_breakers": map[string]interface{}{
			"state":    globalMetrics.CircuitBreakerState,
			"failures": globalMetrics.CircuitBreakerFailures,
		},
	}
}

// GetPrometheusMetrics returns metrics in Prometheus format
func GetPrometheusMetrics() string {
	metrics := GetMetrics()
	var output string

	// Uptime
	output += "# HELP gateway_uptime_seconds Gateway uptime in seconds\n"
	output += "# TYPE gateway_uptime_seconds gauge\n"
	output += fmt.Sprintf("gateway_uptime_seconds %.2f\n", metrics["uptime_seconds"].(float64))

	// Requests
	reqs := metrics["requests"].(map[string]interface{})
	output += "# HELP gateway_requests_total Total number of requests\n"
	output += "# TYPE gateway_requests_total counter\n"
	output += fmt.Sprintf("gateway_requests_total{status=\"total\"} %d\n", reqs["total"].(int64))
	output += fmt.Sprintf("gateway_requests_total{status=\"successful\"} %d\n", reqs["successful"].(int64))
	output += fmt.Sprintf("gateway_requests_total{status=\"failed\"} %d\n", reqs["failed"].(int64))

	// Endpoint requests
	endpoints := metrics["endpoints"].(map[string]interface{})
	endpointReqs := endpoints["requests"].(map[string]int64)
	output += "# HELP gateway_endpoint_requests_total Total requests per endpoint\n"
	output += "# TYPE gateway_endpoint_requests_total counter\n"
	for endpoint, count := range endpointReqs {
		output += fmt.Sprintf("gateway_endpoint_requests_total{endpoint=\"%s\"} %d\n", endpoint, count)
	}

	// Endpoint errors
	endpointErrs := endpoints["errors"].(map[string]int64)
	output += "# HELP gateway_endpoint_errors_total Total errors per endpoint\n"
	output += "# TYPE gateway_endpoint_errors_total counter\n"
	for endpoint, count := range endpointErrs {
		output += fmt.Sprintf("gateway_endpoint_errors_total{endpoint=\"%s\"} %d\n", endpoint, count)
	}

	// Tool calls
	tools := metrics["tools"].(map[string]interface{})
	toolCalls := tools["calls"].(map[string]int64)
	output += "# HELP gateway_tool_calls_total Total tool executions per tool\n"
	output += "# TYPE gateway_tool_calls_total counter\n"
	for tool, count := range toolCalls {
		output += fmt.Sprintf("gateway_tool_calls_total{tool=\"%s\"} %d\n", tool, count)
	}

	toolErrs := tools["errors"].(map[string]int64)
	output += "# HELP gateway_tool_errors_total Failed tool envelopes per tool\n"
	output += "# TYPE gateway_tool_errors_total counter\n"
	for tool, count := range toolErrs {
		output += fmt.Sprintf("gateway_tool_errors_total{tool=\"%s\"} %d\n", tool, count)
	}

	// Downstream service calls
	services := metrics["services"].(map[string]interface{})
	serviceCalls := services["calls"].(map[string]int64)
	output += "# HELP gateway_service_calls_total Total calls per downstream service\n"
	output += "# TYPE gateway_service_calls_total counter\n"
	for service, count := range serviceCalls {
		output += fmt.Sprintf("gateway_service_calls_total{service=\"%s\"} %d\n", service, count)
	}

	return output
}
