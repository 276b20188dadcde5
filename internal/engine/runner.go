package engine

import (
	"fmt"
	"log/slog"
)

// Runner drives a simulation for a fixed number of steps.
type Runner struct {
	Sim   *Simulation
	Steps int

	// ProgressEvery logs a status line every N steps. 0 disables it.
	ProgressEvery int

	stop chan struct{}
}

// NewRunner creates a runner for the simulation.
func NewRunner(sim *Simulation, steps int) *Runner {
	return &Runner{
		Sim:           sim,
		Steps:         steps,
		ProgressEvery: 100,
		stop:          make(chan struct{}),
	}
}

// Stop ends the run early after the current step finishes. Safe to call
// from another goroutine (signal handlers); the run loop itself is
// single-threaded.
func (r *Runner) Stop() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

// Run executes the configured number of steps, returning the number
// actually completed.
func (r *Runner) Run() int {
	slog.Info("simulation starting",
		"steps", r.Steps,
		"carriers", len(r.Sim.Carriers),
		"initial_loads", len(r.Sim.Broker.Active),
	)

	done := 0
	for i := 0; i < r.Steps; i++ {
		select {
		case <-r.stop:
			slog.Warn("simulation stopped early", "completed_steps", done)
			return done
		default:
		}

		r.Sim.Step()
		done++

		if r.ProgressEvery > 0 && done%r.ProgressEvery == 0 {
			sum := r.Sim.Broker.PerformanceSummary()
			slog.Info("progress",
				"step", done,
				"week", r.Sim.CurrentWeek,
				"active_loads", sum.ActiveLoads,
				"covered", sum.LoadsCovered,
				"expired", sum.LoadsExpired,
				"coverage", fmt.Sprintf("%.1f%%", sum.CoverageRate*100),
				"profit", fmt.Sprintf("%.0f", sum.Profit),
				"available_carriers", r.Sim.AvailableCarriers(),
			)
			if sum.ConsecutiveFailures > 0 {
				slog.Warn("consecutive load failures", "count", sum.ConsecutiveFailures)
			}
		}
	}

	slog.Info("simulation finished", "steps", done, "weeks", r.Sim.CurrentWeek)
	return done
}
