// Package engine provides the step orchestrator: it owns the broker and
// the carrier population, generates freight demand, and advances the
// world one synchronous tick at a time.
package engine

import (
	"log/slog"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"freightsim/internal/broker"
	"freightsim/internal/config"
	"freightsim/internal/freight"
)

// StepRecord is one row of the per-step time series.
type StepRecord struct {
	Step                int     `db:"step" json:"step"`
	ActiveLoads         int     `db:"active_loads" json:"active_loads"`
	CompletedLoads      int     `db:"completed_loads" json:"completed_loads"`
	ExpiredLoads        int     `db:"expired_loads" json:"expired_loads"`
	CoverageRate        float64 `db:"coverage_rate" json:"coverage_rate"`
	TotalRevenue        float64 `db:"total_revenue" json:"total_revenue"`
	TotalCost           float64 `db:"total_cost" json:"total_cost"`
	TotalPenalties      float64 `db:"total_penalties" json:"total_penalties"`
	Profit              float64 `db:"profit" json:"profit"`
	AvailableCarriers   int     `db:"available_carriers" json:"available_carriers"`
	ConsecutiveFailures int     `db:"consecutive_failures" json:"consecutive_failures"`
	AvgCarrierRevenue   float64 `db:"avg_carrier_revenue" json:"avg_carrier_revenue"`
}

// Simulation holds the complete market state and wires the pieces
// together. Execution is single-threaded and step-synchronous: within a
// tick everything runs sequentially in a fixed order (load generation →
// broker decay/bids/decisions → deliveries → stats).
type Simulation struct {
	Broker   *broker.Broker
	Carriers []*freight.Carrier

	CurrentStep int
	CurrentWeek int

	// Per-step time series, appended after every tick.
	Series []StepRecord

	cfg *config.Config
	gen *freight.Generator

	// Market-event draws (load arrivals, carrier churn). Separate
	// stream from the generator so spawn parameters stay stable when
	// the arrival pattern changes.
	rng *rand.Rand

	// Smooth demand curve over sim-weeks. Deterministic from the seed,
	// so two runs see the same freight cycle.
	demand opensimplex.Noise
}

// New creates a simulation from the config, fully seeded: the generator,
// the broker's negotiation draws, the market-event stream, and the
// demand curve each get their own derived source.
func New(cfg *config.Config, seed int64) *Simulation {
	gen := freight.NewGenerator(seed, cfg)
	sim := &Simulation{
		Broker:   broker.New(cfg.Broker, rand.New(rand.NewSource(seed+1))),
		Carriers: gen.SpawnCarriers(cfg.Simulation.NumCarriers),
		cfg:      cfg,
		gen:      gen,
		rng:      rand.New(rand.NewSource(seed + 2)),
		demand:   opensimplex.NewNormalized(seed + 3),
	}

	// Seed the board with fewer loads than carriers.
	initial := int(float64(cfg.Simulation.NumCarriers) * 0.8)
	if initial < 1 {
		initial = 1
	}
	for i := 0; i < initial; i++ {
		sim.Broker.AddLoad(gen.NewLoad())
	}

	return sim
}

// Step advances the world by one tick.
func (s *Simulation) Step() {
	s.CurrentStep++

	week := s.CurrentStep / s.cfg.Simulation.StepsPerWeek
	if week > s.CurrentWeek {
		s.CurrentWeek = week
		s.weeklyMarketChange()
	}

	s.generateLoads()

	s.Broker.Step(s.cfg.Simulation.TimeStep, s.Carriers)

	// Deliveries are single-step: anything booked this tick arrives
	// before the next one.
	for _, c := range s.Carriers {
		c.CompleteLoad()
	}

	s.Series = append(s.Series, s.record())
}

// demandFactor returns the current volume multiplier on the load
// generation rate. The configured weekly variation scales a smooth
// noise curve sampled per sim-week.
func (s *Simulation) demandFactor() float64 {
	swing := 2*s.demand.Eval2(float64(s.CurrentWeek)*0.35, 0) - 1
	return 1 + swing*s.cfg.Simulation.WeeklyVolumeVariation
}

// generateLoads draws this tick's load arrivals.
func (s *Simulation) generateLoads() {
	rate := s.cfg.Simulation.LoadGenerationRate * s.demandFactor()
	if s.rng.Float64() < rate {
		l := s.gen.NewLoad()
		s.Broker.AddLoad(l)
		slog.Debug("load tendered", "load", l.ID, "rate", l.MarketRate, "lead_time", l.LeadTime)
	}
}

// weeklyMarketChange models carrier churn: occasionally a truck enters
// or leaves the market, bounded around the configured fleet size.
func (s *Simulation) weeklyMarketChange() {
	if s.rng.Float64() >= 0.1 {
		return
	}

	target := s.cfg.Simulation.NumCarriers
	switch s.rng.Intn(3) {
	case 0: // Entry
		if float64(len(s.Carriers)) < float64(target)*1.2 {
			c := s.gen.SpawnCarrier()
			s.Carriers = append(s.Carriers, c)
			slog.Info("carrier entered market", "week", s.CurrentWeek, "carrier", c.ID, "fleet", len(s.Carriers))
		}
	case 1: // Exit — only an idle carrier can leave
		if float64(len(s.Carriers)) <= float64(target)*0.8 {
			return
		}
		var idle []int
		for i, c := range s.Carriers {
			if c.Available {
				idle = append(idle, i)
			}
		}
		if len(idle) == 0 {
			return
		}
		i := idle[s.rng.Intn(len(idle))]
		gone := s.Carriers[i]
		s.Carriers = append(s.Carriers[:i], s.Carriers[i+1:]...)
		slog.Info("carrier left market", "week", s.CurrentWeek, "carrier", gone.ID, "fleet", len(s.Carriers))
	}
}

// AvailableCarriers counts carriers not currently hauling.
func (s *Simulation) AvailableCarriers() int {
	n := 0
	for _, c := range s.Carriers {
		if c.Available {
			n++
		}
	}
	return n
}

func (s *Simulation) record() StepRecord {
	sum := s.Broker.PerformanceSummary()

	avgRevenue := 0.0
	if len(s.Carriers) > 0 {
		total := 0.0
		for _, c := range s.Carriers {
			total += c.TotalRevenue
		}
		avgRevenue = total / float64(len(s.Carriers))
	}

	return StepRecord{
		Step:                s.CurrentStep,
		ActiveLoads:         sum.ActiveLoads,
		CompletedLoads:      sum.LoadsCovered,
		ExpiredLoads:        sum.LoadsExpired,
		CoverageRate:        sum.CoverageRate,
		TotalRevenue:        sum.TotalRevenue,
		TotalCost:           sum.TotalCost,
		TotalPenalties:      sum.TotalPenalties,
		Profit:              sum.Profit,
		AvailableCarriers:   s.AvailableCarriers(),
		ConsecutiveFailures: sum.ConsecutiveFailures,
		AvgCarrierRevenue:   avgRevenue,
	}
}

// ModelSummary extends the broker summary with fleet-level figures.
type ModelSummary struct {
	broker.Summary
	SimulationSteps   int     `json:"simulation_steps"`
	SimulationWeeks   int     `json:"simulation_weeks"`
	TotalCarriers     int     `json:"total_carriers"`
	AvailableCarriers int     `json:"available_carriers"`
	AvgCarrierRevenue float64 `json:"avg_carrier_revenue"`
	TotalLoadsMoved   int     `json:"total_loads_moved"`
	UtilizationRate   float64 `json:"utilization_rate"`
}

// Summary reports the full model state.
func (s *Simulation) Summary() ModelSummary {
	avail := s.AvailableCarriers()

	avgRevenue := 0.0
	moved := 0
	for _, c := range s.Carriers {
		avgRevenue += c.TotalRevenue
		moved += c.LoadsCompleted
	}
	utilization := 0.0
	if len(s.Carriers) > 0 {
		avgRevenue /= float64(len(s.Carriers))
		utilization = float64(len(s.Carriers)-avail) / float64(len(s.Carriers))
	}

	return ModelSummary{
		Summary:           s.Broker.PerformanceSummary(),
		SimulationSteps:   s.CurrentStep,
		SimulationWeeks:   s.CurrentWeek,
		TotalCarriers:     len(s.Carriers),
		AvailableCarriers: avail,
		AvgCarrierRevenue: avgRevenue,
		TotalLoadsMoved:   moved,
		UtilizationRate:   utilization,
	}
}

// CarrierStatuses returns the telemetry view of every carrier.
func (s *Simulation) CarrierStatuses() []freight.CarrierStatus {
	out := make([]freight.CarrierStatus, 0, len(s.Carriers))
	for _, c := range s.Carriers {
		out = append(out, c.StatusSummary())
	}
	return out
}
