package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
simulation:
  num_carriers: 10
  load_generation_rate: 0.4

load:
  penalty_rate: 0.30
  lead_time:
    mean: 1.5

scenarios:
  crunch:
    description: "Capacity crunch"
    simulation:
      num_carriers: 5
    load:
      lead_time:
        max: 2.0
  empty_scenario:
    description: "Overrides nothing"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 20, cfg.Simulation.NumCarriers)
	assert.Equal(t, 70, cfg.Simulation.StepsPerWeek)
	assert.Equal(t, 3, cfg.Broker.MaxNegotiationRounds)
	assert.Equal(t, 0.20, cfg.Load.PenaltyRate)
	assert.Less(t, cfg.Carrier.CostPerMile.Min, cfg.Carrier.CostPerMile.Max)
}

// TestResolveBaseline: file values override defaults, everything the
// file omits keeps its default.
func TestResolveBaseline(t *testing.T) {
	loader, err := Open(writeTestConfig(t))
	require.NoError(t, err)

	cfg, err := loader.Resolve("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Simulation.NumCarriers, "overridden by file")
	assert.Equal(t, 0.4, cfg.Simulation.LoadGenerationRate)
	assert.Equal(t, 0.30, cfg.Load.PenaltyRate)
	assert.Equal(t, 1.5, cfg.Load.LeadTime.Mean, "nested override applies")

	assert.Equal(t, 100.0, cfg.Simulation.GridSize, "omitted key keeps default")
	assert.Equal(t, 1.2, cfg.Load.LeadTime.StdDev, "omitted nested key keeps default")
}

// TestResolveScenario: scenario values sit on top of the file baseline,
// which sits on top of the defaults.
func TestResolveScenario(t *testing.T) {
	loader, err := Open(writeTestConfig(t))
	require.NoError(t, err)

	cfg, err := loader.Resolve("crunch")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Simulation.NumCarriers, "scenario wins over baseline")
	assert.Equal(t, 0.4, cfg.Simulation.LoadGenerationRate, "baseline survives where scenario is silent")
	assert.Equal(t, 1.5, cfg.Load.LeadTime.Mean, "sibling nested key from baseline survives")
	assert.Equal(t, 2.0, cfg.Load.LeadTime.Max, "nested scenario override applies")
}

func TestResolveUnknownScenario(t *testing.T) {
	loader, err := Open(writeTestConfig(t))
	require.NoError(t, err)

	_, err = loader.Resolve("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
	assert.Contains(t, err.Error(), "crunch", "error lists the available scenarios")
}

func TestScenarios(t *testing.T) {
	loader, err := Open(writeTestConfig(t))
	require.NoError(t, err)

	scenarios := loader.Scenarios()
	assert.Len(t, scenarios, 2)
	assert.Equal(t, "Capacity crunch", scenarios["crunch"])
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("simulation: [not: a: map"), 0o644))
	_, err = Open(bad)
	assert.Error(t, err)
}
