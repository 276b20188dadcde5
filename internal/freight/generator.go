// Load and carrier generation — seeded so runs are reproducible.
package freight

import (
	"fmt"
	"math/rand"

	"freightsim/internal/config"
)

// Generator spawns carriers and random loads from configured
// distributions. All draws come from a single seeded source.
type Generator struct {
	rng         *rand.Rand
	gridSize    float64
	carrier     config.CarrierParams
	load        config.LoadParams
	nextCarrier int
}

// NewGenerator creates a generator with the given seed.
func NewGenerator(seed int64, cfg *config.Config) *Generator {
	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		gridSize:    cfg.Simulation.GridSize,
		carrier:     cfg.Carrier,
		load:        cfg.Load,
		nextCarrier: 1,
	}
}

func (g *Generator) uniform(r config.Range) float64 {
	return r.Min + g.rng.Float64()*(r.Max-r.Min)
}

// SpawnCarriers creates a batch of carriers at random grid positions,
// each with a cost model drawn from the configured ranges.
func (g *Generator) SpawnCarriers(count int) []*Carrier {
	carriers := make([]*Carrier, 0, count)
	for i := 0; i < count; i++ {
		carriers = append(carriers, g.SpawnCarrier())
	}
	return carriers
}

// SpawnCarrier creates a single carrier. Used both at population setup
// and for mid-run market entry.
func (g *Generator) SpawnCarrier() *Carrier {
	id := g.nextCarrier
	g.nextCarrier++

	return &Carrier{
		ID: fmt.Sprintf("carrier-%d", id),
		Position: Point{
			X: g.rng.Float64() * g.gridSize,
			Y: g.rng.Float64() * g.gridSize,
		},
		Available:      true,
		CostPerMile:    g.uniform(g.carrier.CostPerMile),
		FixedCost:      g.uniform(g.carrier.FixedCost),
		DesiredMargin:  g.uniform(g.carrier.DesiredMargin),
		MaxBidDistance: g.uniform(g.carrier.MaxBidDistance),
		Aggressiveness: g.uniform(g.carrier.Aggressiveness),
	}
}

// NewLoad creates a random load: endpoints uniform on the grid, market
// rate priced off the lane distance, lead time drawn from a clamped
// normal distribution.
func (g *Generator) NewLoad() *Load {
	origin := Point{X: g.rng.Float64() * g.gridSize, Y: g.rng.Float64() * g.gridSize}
	dest := Point{X: g.rng.Float64() * g.gridSize, Y: g.rng.Float64() * g.gridSize}

	distance := origin.DistanceTo(dest)
	variation := (g.rng.Float64()*2 - 1) * g.load.RateVariation
	rate := distance*g.load.RatePerMile + variation
	if rate < g.load.MinimumRate {
		rate = g.load.MinimumRate
	}

	lt := g.load.LeadTime
	leadTime := lt.Mean + g.rng.NormFloat64()*lt.StdDev
	if leadTime < lt.Min {
		leadTime = lt.Min
	}
	if leadTime > lt.Max {
		leadTime = lt.Max
	}

	return &Load{
		ID:              NewLoadID(),
		Origin:          origin,
		Destination:     dest,
		MarketRate:      rate,
		PenaltyRate:     g.load.PenaltyRate,
		LeadTime:        leadTime,
		InitialLeadTime: leadTime,
	}
}
