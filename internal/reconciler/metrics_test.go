package reconciler

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordResult(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(reconcileCreated.WithLabelValues("metrics-test", "relation"))

	m.RecordResult("metrics-test", &Result{
		SpaceID:          "space-1",
		CreatedRelations: []string{"Email", "Phone"},
		CreatedTypes:     []string{"Contact"},
	})
	m.RecordResult("metrics-test", &Result{SpaceID: "space-1", DryRun: true})

	summary := m.GetSummary()
	assert.Equal(t, int64(2), summary.TotalRuns)
	assert.Equal(t, int64(1), summary.TotalApplied)
	assert.Equal(t, int64(1), summary.TotalDryRuns)
	assert.Equal(t, int64(2), summary.TotalCreatedRelations)
	assert.Equal(t, int64(1), summary.TotalCreatedTypes)
	assert.Zero(t, summary.FailureRate)

	view, ok := m.GetSpaceMetrics("metrics-test", "space-1")
	require.True(t, ok)
	assert.Equal(t, int64(2), view.Runs)
	assert.False(t, view.LastSuccessAt.IsZero())

	after := testutil.ToFloat64(reconcileCreated.WithLabelValues("metrics-test", "relation"))
	assert.Equal(t, 2.0, after-before)
}

func TestMetrics_RecordFailure(t *testing.T) {
	m := NewMetrics()

	m.RecordFailure("work", "space-2", nil, errors.New("unreachable"))
	m.RecordFailure("work", "space-2", &Result{SpaceID: "space-2", CreatedRelations: []string{"Email"}}, errors.New("boom"))

	summary := m.GetSummary()
	assert.Equal(t, int64(2), summary.TotalFailures)
	assert.Equal(t, 1.0, summary.FailureRate)
	assert.Equal(t, int64(1), summary.TotalCreatedRelations)

	view, ok := m.GetSpaceMetrics("work", "space-2")
	require.True(t, ok)
	assert.Equal(t, "boom", view.LastError)
	assert.False(t, view.LastFailureAt.IsZero())
}

func TestMetrics_SummaryOrderAndReset(t *testing.T) {
	m := NewMetrics()
	m.RecordResult("work", &Result{SpaceID: "b"})
	m.RecordResult("personal", &Result{SpaceID: "z"})
	m.RecordResult("work", &Result{SpaceID: "a"})

	spaces := m.GetSummary().Spaces
	require.Len(t, spaces, 3)
	assert.Equal(t, "personal", spaces[0].Profile)
	assert.Equal(t, "a", spaces[1].SpaceID)
	assert.Equal(t, "b", spaces[2].SpaceID)

	m.Reset()
	assert.Zero(t, m.GetSummary().TotalRuns)
	_, ok := m.GetSpaceMetrics("work", "a")
	assert.False(t, ok)
}

func TestGetMetrics_Singleton(t *testing.T) {
	assert.Same(t, GetMetrics(), GetMetrics())
}
