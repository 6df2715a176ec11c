package reconciler

import (
	"sort"
	"sync"
	"time"

	"knowledgecore/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as metric labels.
const (
	OutcomeApplied = "applied"
	OutcomeDryRun  = "dry_run"
	OutcomeAborted = "aborted"
	OutcomeFailed  = "failed"
)

var (
	registerOnce sync.Once

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knowledgecore",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Ontology reconciliation runs, by outcome.",
		},
		[]string{"profile", "outcome"},
	)
	reconcileCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knowledgecore",
			Subsystem: "reconcile",
			Name:      "created_total",
			Help:      "Schema elements created by reconciliation, by kind.",
		},
		[]string{"profile", "kind"},
	)
)

// RegisterMetrics registers the reconciliation collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(reconcileRuns, reconcileCreated)
	})
}

// Metrics tracks reconciliation runs per space for the status surfaces.
type Metrics struct {
	mu sync.RWMutex

	spaces map[string]*spaceMetrics

	totalRuns      int64
	totalApplied   int64
	totalDryRuns   int64
	totalFailures  int64
	totalRelations int64
	totalTypes     int64
}

// spaceMetrics holds reconciliation metrics for one profile/space.
type spaceMetrics struct {
	Profile          string
	SpaceID          string
	Runs             int64
	Failures         int64
	CreatedRelations int64
	CreatedTypes     int64
	LastRunAt        time.Time
	LastSuccessAt    time.Time
	LastFailureAt    time.Time
	LastError        string
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{spaces: make(map[string]*spaceMetrics)}
}

func (m *Metrics) getOrCreate(profile, spaceID string) *spaceMetrics {
	key := profile + "/" + spaceID
	if sm, ok := m.spaces[key]; ok {
		return sm
	}
	sm := &spaceMetrics{Profile: profile, SpaceID: spaceID}
	m.spaces[key] = sm
	return sm
}

// RecordResult records a completed run, including dry runs.
func (m *Metrics) RecordResult(profile string, result *Result) {
	RegisterMetrics()

	m.mu.Lock()
	defer m.mu.Unlock()

	sm := m.getOrCreate(profile, result.SpaceID)
	now := time.Now()
	sm.Runs++
	sm.LastRunAt = now
	sm.LastSuccessAt = now
	sm.LastError = ""
	m.totalRuns++

	outcome := OutcomeApplied
	if result.DryRun {
		outcome = OutcomeDryRun
		m.totalDryRuns++
	} else {
		m.totalApplied++
	}
	m.addCreatedLocked(sm, profile, result)
	reconcileRuns.WithLabelValues(profile, outcome).Inc()
}

// RecordFailure records a run that failed. result may be nil when nothing was
// attempted.
func (m *Metrics) RecordFailure(profile, spaceID string, result *Result, err error) {
	RegisterMetrics()

	m.mu.Lock()
	defer m.mu.Unlock()

	sm := m.getOrCreate(profile, spaceID)
	now := time.Now()
	sm.Runs++
	sm.Failures++
	sm.LastRunAt = now
	sm.LastFailureAt = now
	if err != nil {
		sm.LastError = err.Error()
	}
	m.totalRuns++
	m.totalFailures++

	outcome := OutcomeFailed
	if result != nil {
		outcome = OutcomeAborted
		m.addCreatedLocked(sm, profile, result)
	}
	reconcileRuns.WithLabelValues(profile, outcome).Inc()

	logging.Warn("ReconcilerMetrics", "Reconciliation failure for %s/%s (failures: %d)", profile, spaceID, sm.Failures)
}

func (m *Metrics) addCreatedLocked(sm *spaceMetrics, profile string, result *Result) {
	relations := int64(len(result.CreatedRelations))
	types := int64(len(result.CreatedTypes))
	sm.CreatedRelations += relations
	sm.CreatedTypes += types
	m.totalRelations += relations
	m.totalTypes += types
	if relations > 0 {
		reconcileCreated.WithLabelValues(profile, "relation").Add(float64(relations))
	}
	if types > 0 {
		reconcileCreated.WithLabelValues(profile, "type").Add(float64(types))
	}
}

// MetricsSummary provides a summary of reconciliation metrics.
type MetricsSummary struct {
	TotalRuns             int64             `json:"total_runs"`
	TotalApplied          int64             `json:"total_applied"`
	TotalDryRuns          int64             `json:"total_dry_runs"`
	TotalFailures         int64             `json:"total_failures"`
	TotalCreatedRelations int64             `json:"total_created_relations"`
	TotalCreatedTypes     int64             `json:"total_created_types"`
	FailureRate           float64           `json:"failure_rate"`
	Spaces                []SpaceMetricView `json:"spaces"`
}

// SpaceMetricView is a read-only view of the metrics of one space.
type SpaceMetricView struct {
	Profile          string    `json:"profile"`
	SpaceID          string    `json:"space_id"`
	Runs             int64     `json:"runs"`
	Failures         int64     `json:"failures"`
	CreatedRelations int64     `json:"created_relations"`
	CreatedTypes     int64     `json:"created_types"`
	LastRunAt        time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt    time.Time `json:"last_success_at,omitempty"`
	LastFailureAt    time.Time `json:"last_failure_at,omitempty"`
	LastError        string    `json:"last_error,omitempty"`
}

// GetSummary returns a snapshot of all metrics, spaces sorted by profile then id.
func (m *Metrics) GetSummary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := MetricsSummary{
		TotalRuns:             m.totalRuns,
		TotalApplied:          m.totalApplied,
		TotalDryRuns:          m.totalDryRuns,
		TotalFailures:         m.totalFailures,
		TotalCreatedRelations: m.totalRelations,
		TotalCreatedTypes:     m.totalTypes,
		Spaces:                make([]SpaceMetricView, 0, len(m.spaces)),
	}
	if m.totalRuns > 0 {
		summary.FailureRate = float64(m.totalFailures) / float64(m.totalRuns)
	}
	for _, sm := range m.spaces {
		summary.Spaces = append(summary.Spaces, SpaceMetricView(*sm))
	}
	sort.Slice(summary.Spaces, func(i, j int) bool {
		if summary.Spaces[i].Profile != summary.Spaces[j].Profile {
			return summary.Spaces[i].Profile < summary.Spaces[j].Profile
		}
		return summary.Spaces[i].SpaceID < summary.Spaces[j].SpaceID
	})
	return summary
}

// GetSpaceMetrics returns the metrics of one space.
func (m *Metrics) GetSpaceMetrics(profile, spaceID string) (SpaceMetricView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sm, ok := m.spaces[profile+"/"+spaceID]
	if !ok {
		return SpaceMetricView{}, false
	}
	return SpaceMetricView(*sm), true
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.spaces = make(map[string]*spaceMetrics)
	m.totalRuns = 0
	m.totalApplied = 0
	m.totalDryRuns = 0
	m.totalFailures = 0
	m.totalRelations = 0
	m.totalTypes = 0
}

var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// GetMetrics returns the process-wide metrics instance.
func GetMetrics() *Metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewMetrics()
	})
	return globalMetrics
}
