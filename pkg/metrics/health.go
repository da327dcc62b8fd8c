package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
	StartTime  time.Time         `json:"-"`
}

var (
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
)

// ComponentHealth tracks the health of a single component
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// HealthChecker manages health checks for various components, plus
// the one crawl-specific backpressure signal readiness cares about:
// how many jobs are waiting in the Queue. A critical component being
// down means not_ready; a Queue backlog past queueDepthWarnAt means
// degraded — still accepting traffic, but a caller sees it before the
// backlog causes recrawl intervals to slip (spec.md §7's nack/retry
// path doesn't drain a queue that's growing faster than Workers can
// consume it).
type HealthChecker struct {
	mu               sync.RWMutex
	components       map[string]ComponentHealth
	startTime        time.Time
	version          string
	queueDepth       int
	queueDepthWarnAt int // 0 disables the check
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// SetQueueDepthWarnThreshold sets the Queue backlog size at or above
// which GetReadiness reports "degraded" instead of "ready". A
// threshold of 0 (the default) disables the check entirely, since not
// every deployment's Queue backend can report a depth at all (see
// pkg/queue.DepthReporter).
func SetQueueDepthWarnThreshold(n int) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.queueDepthWarnAt = n
}

// ReportQueueDepth records the Queue's current backlog size for
// GetReadiness and publishes it on the QueueDepth gauge. Called from
// pkg/metrics.Collector's sample tick when the configured Queue
// backend implements pkg/queue.DepthReporter.
func ReportQueueDepth(backend string, depth int) {
	QueueDepth.WithLabelValues(backend).Set(float64(depth))
	healthChecker.mu.Lock()
	healthChecker.queueDepth = depth
	healthChecker.mu.Unlock()
}

// RegisterComponent registers a component for health checking
func RegisterComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()

	healthChecker.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent updates the health status of a component
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message) // Same implementation
}

// GetHealth returns the overall health status
func GetHealth() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := "healthy"
	components := make(map[string]string)

	for name, comp := range healthChecker.components {
		if !comp.Healthy {
			status = "unhealthy"
			components[name] = "unhealthy: " + comp.Message
		} else {
			components[name] = "healthy"
		}
	}

	uptime := time.Since(healthChecker.startTime)

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Version:    healthChecker.version,
		Uptime:     uptime.String(),
		StartTime:  healthChecker.startTime,
	}
}

// GetReadiness returns readiness status (checks if critical components are ready)
func GetReadiness() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := "ready"
	message := ""
	components := make(map[string]string)

	// Check critical components
	criticalComponents := []string{"store", "queue", "indexer"}

	for _, name := range criticalComponents {
		if comp, exists := healthChecker.components[name]; exists {
			if !comp.Healthy {
				status = "not_ready"
				message = "waiting for " + name
				components[name] = "not ready: " + comp.Message
			} else {
				components[name] = "ready"
			}
		} else {
			// Component not registered yet
			status = "not_ready"
			message = "waiting for " + name + " initialization"
			components[name] = "not registered"
		}
	}

	if status == "ready" && healthChecker.queueDepthWarnAt > 0 && healthChecker.queueDepth >= healthChecker.queueDepthWarnAt {
		status = "degraded"
		message = fmt.Sprintf("queue depth %d at or above warn threshold %d", healthChecker.queueDepth, healthChecker.queueDepthWarnAt)
	}
	components["queue_depth"] = fmt.Sprintf("%d", healthChecker.queueDepth)

	uptime := time.Since(healthChecker.startTime)

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    healthChecker.version,
		Uptime:     uptime.String(),
		StartTime:  healthChecker.startTime,
	}
}

// HealthHandler returns an HTTP handler for the /healthz endpoint
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()

		w.Header().Set("Content-Type", "application/json")

		// Set appropriate status code
		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
		w.WriteHeader(statusCode)

		_ = json.NewEncoder(w).Encode(health)
	}
}

// ReadyHandler returns an HTTP handler for the /ready endpoint
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()

		w.Header().Set("Content-Type", "application/json")

		// Set appropriate status code. "degraded" (queue backlog past
		// the warn threshold) still accepts traffic: only a missing or
		// unhealthy critical component fails readiness outright.
		statusCode := http.StatusOK
		if readiness.Status == "not_ready" {
			statusCode = http.StatusServiceUnavailable
		}
		w.WriteHeader(statusCode)

		_ = json.NewEncoder(w).Encode(readiness)
	}
}

// LivenessHandler returns a simple liveness check (always returns 200 if process is running)
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(healthChecker.startTime).String(),
		})
	}
}
