// Package config loads simulation configuration from YAML, with named
// scenario overrides deep-merged over the baseline values.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Range is a uniform sampling interval for a carrier parameter.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// SimulationParams controls the run loop and population.
type SimulationParams struct {
	NumCarriers           int     `yaml:"num_carriers"`
	GridSize              float64 `yaml:"grid_size"`  // Side length of the square region, miles
	TimeStep              float64 `yaml:"time_step"`  // Fraction of a day per step
	LoadGenerationRate    float64 `yaml:"load_generation_rate"`    // Expected loads per step
	WeeklyVolumeVariation float64 `yaml:"weekly_volume_variation"` // ± swing on the generation rate
	StepsPerWeek          int     `yaml:"steps_per_week"`
}

// BrokerParams are the broker's negotiation strategy knobs.
type BrokerParams struct {
	MaxNegotiationRounds int     `yaml:"max_negotiation_rounds"`
	PatienceFactor       float64 `yaml:"patience_factor"` // 0–1, higher = more patient
}

// CarrierParams are the sampling ranges for carrier cost models.
type CarrierParams struct {
	CostPerMile    Range `yaml:"cost_per_mile"`
	FixedCost      Range `yaml:"fixed_cost"`
	DesiredMargin  Range `yaml:"desired_margin"`
	MaxBidDistance Range `yaml:"max_bid_distance"`
	Aggressiveness Range `yaml:"aggressiveness"`
}

// LeadTimeParams describe the lead-time distribution for generated loads:
// a normal draw clamped to [Min, Max] days.
type LeadTimeParams struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"std_dev"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// LoadParams control load pricing and deadlines.
type LoadParams struct {
	RatePerMile   float64        `yaml:"rate_per_mile"`
	MinimumRate   float64        `yaml:"minimum_rate"`
	RateVariation float64        `yaml:"rate_variation"` // ± dollars added to the lane rate
	PenaltyRate   float64        `yaml:"penalty_rate"`   // Fraction of market rate
	LeadTime      LeadTimeParams `yaml:"lead_time"`
}

// Config is the full simulation configuration.
type Config struct {
	Simulation SimulationParams `yaml:"simulation"`
	Broker     BrokerParams     `yaml:"broker"`
	Carrier    CarrierParams    `yaml:"carrier"`
	Load       LoadParams       `yaml:"load"`
}

// Default returns the baseline configuration the simulation runs with
// when no config file is given.
func Default() *Config {
	return &Config{
		Simulation: SimulationParams{
			NumCarriers:           20,
			GridSize:              100,
			TimeStep:              0.1,
			LoadGenerationRate:    0.3,
			WeeklyVolumeVariation: 0.2,
			StepsPerWeek:          70,
		},
		Broker: BrokerParams{
			MaxNegotiationRounds: 3,
			PatienceFactor:       0.8,
		},
		Carrier: CarrierParams{
			CostPerMile:    Range{Min: 1.2, Max: 1.8},
			FixedCost:      Range{Min: 100, Max: 300},
			DesiredMargin:  Range{Min: 0.15, Max: 0.35},
			MaxBidDistance: Range{Min: 200, Max: 500},
			Aggressiveness: Range{Min: 0.1, Max: 0.9},
		},
		Load: LoadParams{
			RatePerMile:   2.0,
			MinimumRate:   500,
			RateVariation: 100,
			PenaltyRate:   0.20,
			LeadTime: LeadTimeParams{
				Mean:   2.5,
				StdDev: 1.2,
				Min:    0.5,
				Max:    5.0,
			},
		},
	}
}

// Loader reads a YAML config file and resolves scenario overrides.
// The raw document is kept as generic maps so scenarios can override
// arbitrary nested keys.
type Loader struct {
	raw map[string]any
}

// Open reads the config file at path.
func Open(path string) (*Loader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &Loader{raw: raw}, nil
}

// Scenarios lists the scenario names defined in the file with their
// descriptions.
func (ld *Loader) Scenarios() map[string]string {
	out := make(map[string]string)
	scenarios, _ := ld.raw["scenarios"].(map[string]any)
	for name, v := range scenarios {
		desc := ""
		if m, ok := v.(map[string]any); ok {
			desc, _ = m["description"].(string)
		}
		out[name] = desc
	}
	return out
}

// Resolve builds the effective configuration: defaults, overlaid with the
// file's baseline sections, overlaid with the named scenario (if any).
func (ld *Loader) Resolve(scenario string) (*Config, error) {
	merged := make(map[string]any)
	for k, v := range ld.raw {
		if k == "scenarios" {
			continue
		}
		merged[k] = v
	}

	if scenario != "" {
		scenarios, _ := ld.raw["scenarios"].(map[string]any)
		sc, ok := scenarios[scenario].(map[string]any)
		if !ok {
			names := make([]string, 0, len(scenarios))
			for name := range scenarios {
				names = append(names, name)
			}
			sort.Strings(names)
			return nil, fmt.Errorf("scenario %q not found, available: %v", scenario, names)
		}

		for section, overrides := range sc {
			if section == "description" {
				continue
			}
			base, ok := merged[section].(map[string]any)
			if !ok {
				merged[section] = overrides
				continue
			}
			if over, ok := overrides.(map[string]any); ok {
				deepMerge(base, over)
			} else {
				merged[section] = overrides
			}
		}
	}

	// Round-trip through YAML onto the defaults so partial files work.
	cfg := Default()
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("merge config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("apply config: %w", err)
	}

	return cfg, nil
}

// deepMerge recursively overlays override values onto base.
func deepMerge(base, override map[string]any) {
	for key, value := range override {
		if sub, ok := value.(map[string]any); ok {
			if baseSub, ok := base[key].(map[string]any); ok {
				deepMerge(baseSub, sub)
				continue
			}
		}
		base[key] = value
	}
}
