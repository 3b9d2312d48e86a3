package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// LifetimeMetrics are counters that survive restarts.
type LifetimeMetrics struct {
	TotalWeightsSet    uint64    `json:"total_lifetime_weights_set"`
	TotalSweeps        uint64    `json:"total_lifetime_sweeps"`
	TotalUptimeSeconds float64   `json:"total_uptime_seconds"`
	LastShutdownTime   time.Time `json:"last_shutdown_time,omitempty"`
}

// LifetimeStore persists LifetimeMetrics across process restarts.
type LifetimeStore interface {
	Load() (LifetimeMetrics, error)
	Save(LifetimeMetrics) error
}

// FileLifetimeStore keeps lifetime metrics in a local JSON file.
type FileLifetimeStore struct {
	path string
}

func NewFileLifetimeStore(path string) *FileLifetimeStore {
	return &FileLifetimeStore{path: path}
}

// Load reads the metrics file. A missing file yields zero metrics, not
// an error: first run on a fresh host.
func (s *FileLifetimeStore) Load() (LifetimeMetrics, error) {
	var m LifetimeMetrics
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("read lifetime metrics: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse lifetime metrics %s: %w", s.path, err)
	}
	return m, nil
}

func (s *FileLifetimeStore) Save(m LifetimeMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode lifetime metrics: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write lifetime metrics: %w", err)
	}
	return nil
}

// Uptime tracks total script uptime: the prior accumulated uptime loaded
// from the lifetime store plus the current session.
type Uptime struct {
	start time.Time
	prior time.Duration
	now   func() time.Time
}

func NewUptime(prior time.Duration) *Uptime {
	u := &Uptime{prior: prior, now: time.Now}
	u.start = u.now()
	return u
}

// Session returns the current session's uptime.
func (u *Uptime) Session() time.Duration {
	return u.now().Sub(u.start)
}

// Total returns prior plus session uptime.
func (u *Uptime) Total() time.Duration {
	return u.prior + u.Session()
}

// String renders the total uptime in days when it exceeds one day,
// otherwise hours.
func (u *Uptime) String() string {
	total := u.Total().Seconds()
	if total >= 86400 {
		return fmt.Sprintf("%.1f days", total/86400)
	}
	return fmt.Sprintf("%.1f hours", total/3600)
}

// LifetimeRecorder couples in-memory lifetime counters with a store. All
// methods are safe for concurrent use.
type LifetimeRecorder struct {
	mu      sync.Mutex
	metrics LifetimeMetrics
	store   LifetimeStore
	uptime  *Uptime
}

// NewLifetimeRecorder loads persisted metrics from the store and starts
// an uptime session on top of the persisted total.
func NewLifetimeRecorder(store LifetimeStore) (*LifetimeRecorder, error) {
	m, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &LifetimeRecorder{
		metrics: m,
		store:   store,
		uptime:  NewUptime(time.Duration(m.TotalUptimeSeconds * float64(time.Second))),
	}, nil
}

func (r *LifetimeRecorder) Uptime() *Uptime { return r.uptime }

func (r *LifetimeRecorder) RecordWeightSet() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.TotalWeightsSet++
}

func (r *LifetimeRecorder) RecordSweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.TotalSweeps++
}

// Snapshot returns a copy of the current counters.
func (r *LifetimeRecorder) Snapshot() LifetimeMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// Flush folds the session uptime into the persisted total and writes the
// metrics out. Called on shutdown.
func (r *LifetimeRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.TotalUptimeSeconds = r.uptime.Total().Seconds()
	r.metrics.LastShutdownTime = time.Now().UTC()
	return r.store.Save(r.metrics)
}
