package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightsim/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateRun(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateRun("tight_market", 42, 1000)
	require.NoError(t, err)
	assert.Positive(t, id)

	id2, err := db.CreateRun("", 7, 500)
	require.NoError(t, err)
	assert.Greater(t, id2, id)

	var scenario string
	require.NoError(t, db.conn.Get(&scenario, "SELECT scenario FROM runs WHERE id = ?", id2))
	assert.Equal(t, "baseline", scenario, "empty scenario stored under its canonical name")
}

// TestSeriesRoundTrip writes a time series and reads it back intact.
func TestSeriesRoundTrip(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.CreateRun("baseline", 42, 3)
	require.NoError(t, err)

	series := []engine.StepRecord{
		{Step: 1, ActiveLoads: 16, AvailableCarriers: 20, AvgCarrierRevenue: 0},
		{Step: 2, ActiveLoads: 14, CompletedLoads: 2, CoverageRate: 1.0,
			TotalRevenue: 2310.55, TotalCost: 1850.25, Profit: 460.30,
			AvailableCarriers: 18, AvgCarrierRevenue: 92.51},
		{Step: 3, ActiveLoads: 13, CompletedLoads: 2, ExpiredLoads: 1, CoverageRate: 2.0 / 3.0,
			TotalRevenue: 2310.55, TotalCost: 1850.25, TotalPenalties: 180,
			Profit: 280.30, AvailableCarriers: 20, ConsecutiveFailures: 1,
			AvgCarrierRevenue: 92.51},
	}

	require.NoError(t, db.SaveSeries(runID, series))

	got, err := db.Steps(runID)
	require.NoError(t, err)
	assert.Equal(t, series, got)

	t.Run("other runs are isolated", func(t *testing.T) {
		otherID, err := db.CreateRun("baseline", 43, 1)
		require.NoError(t, err)

		got, err := db.Steps(otherID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty series is a no-op", func(t *testing.T) {
		assert.NoError(t, db.SaveSeries(runID+1000, nil))
	})
}

func TestFinishRun(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.CreateRun("baseline", 42, 10)
	require.NoError(t, err)

	require.NoError(t, db.FinishRun(runID, map[string]any{"coverage_rate": 0.9}))

	var row struct {
		FinishedAt  *string `db:"finished_at"`
		SummaryJSON *string `db:"summary_json"`
	}
	require.NoError(t, db.conn.Get(&row, "SELECT finished_at, summary_json FROM runs WHERE id = ?", runID))
	require.NotNil(t, row.FinishedAt)
	require.NotNil(t, row.SummaryJSON)
	assert.Contains(t, *row.SummaryJSON, "coverage_rate")
}
