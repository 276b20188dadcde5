package freight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightsim/internal/config"
)

func TestSpawnCarriersWithinConfiguredRanges(t *testing.T) {
	cfg := config.Default()
	g := NewGenerator(42, cfg)

	carriers := g.SpawnCarriers(50)
	require.Len(t, carriers, 50)

	seen := make(map[string]bool)
	for _, c := range carriers {
		assert.False(t, seen[c.ID], "carrier ids are unique")
		seen[c.ID] = true

		assert.True(t, c.Available)
		assert.Nil(t, c.Current)

		assert.GreaterOrEqual(t, c.Position.X, 0.0)
		assert.LessOrEqual(t, c.Position.X, cfg.Simulation.GridSize)
		assert.GreaterOrEqual(t, c.Position.Y, 0.0)
		assert.LessOrEqual(t, c.Position.Y, cfg.Simulation.GridSize)

		assertInRange(t, c.CostPerMile, cfg.Carrier.CostPerMile)
		assertInRange(t, c.FixedCost, cfg.Carrier.FixedCost)
		assertInRange(t, c.DesiredMargin, cfg.Carrier.DesiredMargin)
		assertInRange(t, c.MaxBidDistance, cfg.Carrier.MaxBidDistance)
		assertInRange(t, c.Aggressiveness, cfg.Carrier.Aggressiveness)
	}

	assert.Equal(t, "carrier-1", carriers[0].ID)
	assert.Equal(t, "carrier-50", carriers[49].ID)
}

func assertInRange(t *testing.T, v float64, r config.Range) {
	t.Helper()
	assert.GreaterOrEqual(t, v, r.Min)
	assert.LessOrEqual(t, v, r.Max)
}

func TestNewLoadWithinConfiguredBounds(t *testing.T) {
	cfg := config.Default()
	g := NewGenerator(42, cfg)

	for i := 0; i < 200; i++ {
		l := g.NewLoad()

		assert.Len(t, l.ID, 8)
		assert.GreaterOrEqual(t, l.MarketRate, cfg.Load.MinimumRate, "rate floor holds")
		assert.LessOrEqual(t, l.MarketRate,
			l.Distance()*cfg.Load.RatePerMile+cfg.Load.RateVariation)

		assert.GreaterOrEqual(t, l.LeadTime, cfg.Load.LeadTime.Min)
		assert.LessOrEqual(t, l.LeadTime, cfg.Load.LeadTime.Max)
		assert.Equal(t, l.LeadTime, l.InitialLeadTime)

		assert.Equal(t, cfg.Load.PenaltyRate, l.PenaltyRate)
		assert.False(t, l.Covered)
		assert.False(t, l.Expired)
	}
}

// TestGeneratorDeterminism verifies two generators with the same seed
// produce identical populations. Load ids come from a uuid source and
// are exempt.
func TestGeneratorDeterminism(t *testing.T) {
	cfg := config.Default()
	ga := NewGenerator(99, cfg)
	gb := NewGenerator(99, cfg)

	assert.Equal(t, ga.SpawnCarriers(20), gb.SpawnCarriers(20))

	for i := 0; i < 20; i++ {
		la, lb := ga.NewLoad(), gb.NewLoad()
		la.ID, lb.ID = "", ""
		assert.Equal(t, la, lb)
	}
}
