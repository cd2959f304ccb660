package telemetry

import (
	"sync"
	"time"
)

type HealthState string

const (
	Healthy   HealthState = "healthy"
	Degraded  HealthState = "degraded"
	Unhealthy HealthState = "unhealthy"

	degradedThreshold  = 3
	unhealthyThreshold = 5
	cooldownBase       = 5 * time.Second
	cooldownMax        = 5 * time.Minute

	// Exponentially weighted latency, ~last 20 samples.
	ewmaAlpha = 0.1
)

// DependencyStats is the health snapshot exposed on /api/health for one
// outbound dependency (rank provider, headless backend, static fetch).
type DependencyStats struct {
	Name            string      `json:"name"`
	State           HealthState `json:"state"`
	TotalRequests   int64       `json:"total_requests"`
	SuccessCount    int64       `json:"success_count"`
	FailureCount    int64       `json:"failure_count"`
	ConsecFailures  int         `json:"consecutive_failures"`
	LastError       string      `json:"last_error,omitempty"`
	LastErrorTime   *time.Time  `json:"last_error_time,omitempty"`
	LastSuccessTime *time.Time  `json:"last_success_time,omitempty"`
	AvgLatencyMs    float64     `json:"avg_latency_ms"`
	InCooldown      bool        `json:"in_cooldown"`
	CooldownUntil   *time.Time  `json:"cooldown_until,omitempty"`
}

type dependency struct {
	mu             sync.Mutex
	name           string
	totalRequests  int64
	successCount   int64
	failureCount   int64
	consecFailures int
	lastError      string
	lastErrorTime  time.Time
	lastSuccess    time.Time
	avgLatencyMs   float64
	cooldownUntil  time.Time
}

// Registry tracks outbound dependency health. Safe for concurrent use by
// every running scan job.
type Registry struct {
	mu   sync.RWMutex
	deps map[string]*dependency
}

func NewRegistry() *Registry {
	return &Registry{deps: make(map[string]*dependency)}
}

func (r *Registry) getOrCreate(name string) *dependency {
	r.mu.RLock()
	d, ok := r.deps[name]
	r.mu.RUnlock()
	if ok {
		return d
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok = r.deps[name]; ok {
		return d
	}
	d = &dependency{name: name}
	r.deps[name] = d
	return d
}

func (r *Registry) RecordSuccess(name string, latency time.Duration) {
	d := r.getOrCreate(name)
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalRequests++
	d.successCount++
	d.consecFailures = 0
	d.lastSuccess = time.Now()
	d.cooldownUntil = time.Time{}

	ms := float64(latency.Microseconds()) / 1000.0
	if d.avgLatencyMs == 0 {
		d.avgLatencyMs = ms
	} else {
		d.avgLatencyMs = ewmaAlpha*ms + (1-ewmaAlpha)*d.avgLatencyMs
	}
}

func (r *Registry) RecordFailure(name, errMsg string) {
	d := r.getOrCreate(name)
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	d.totalRequests++
	d.failureCount++
	d.consecFailures++
	d.lastError = errMsg
	d.lastErrorTime = now

	if d.consecFailures >= unhealthyThreshold {
		cooldown := cooldownBase * time.Duration(1<<uint(d.consecFailures-unhealthyThreshold))
		if cooldown > cooldownMax {
			cooldown = cooldownMax
		}
		d.cooldownUntil = now.Add(cooldown)
	}
}

// InCooldown reports whether callers should skip this dependency for now.
func (r *Registry) InCooldown(name string) bool {
	d := r.getOrCreate(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Now().Before(d.cooldownUntil)
}

func (d *dependency) state() HealthState {
	switch {
	case d.consecFailures >= unhealthyThreshold:
		return Unhealthy
	case d.consecFailures >= degradedThreshold:
		return Degraded
	default:
		return Healthy
	}
}

func (r *Registry) Stats(name string) DependencyStats {
	d := r.getOrCreate(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

func (r *Registry) AllStats() []DependencyStats {
	r.mu.RLock()
	names := make([]string, 0, len(r.deps))
	for name := range r.deps {
		names = append(names, name)
	}
	r.mu.RUnlock()

	out := make([]DependencyStats, 0, len(names))
	for _, name := range names {
		out = append(out, r.Stats(name))
	}
	return out
}

func (d *dependency) snapshot() DependencyStats {
	s := DependencyStats{
		Name:           d.name,
		State:          d.state(),
		TotalRequests:  d.totalRequests,
		SuccessCount:   d.successCount,
		FailureCount:   d.failureCount,
		ConsecFailures: d.consecFailures,
		LastError:      d.lastError,
		AvgLatencyMs:   d.avgLatencyMs,
	}
	if !d.lastErrorTime.IsZero() {
		t := d.lastErrorTime
		s.LastErrorTime = &t
	}
	if !d.lastSuccess.IsZero() {
		t := d.lastSuccess
		s.LastSuccessTime = &t
	}
	if time.Now().Before(d.cooldownUntil) {
		s.InCooldown = true
		t := d.cooldownUntil
		s.CooldownUntil = &t
	}
	return s
}
