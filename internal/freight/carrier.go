package freight

import (
	"fmt"
	"math"
	"math/rand"
)

// Travel and bidding constants shared by all carriers.
const (
	milesPerDay = 500.0 // Assumed line-haul speed for reachability checks

	// A carrier walks away rather than chase a load that needs more
	// than a 40% premium over market.
	maxPremiumOverMarket = 1.4

	// Floor margin: never bid below 5% over cost.
	minMarginOverCost = 1.05
)

// Carrier is a single-truck transport provider that bids on loads.
// Its cost structure is private and fixed at spawn time.
type Carrier struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`

	Available bool  `json:"available"`
	Current   *Load `json:"-"` // Load being hauled, nil when available

	// Cost model, fixed at creation.
	CostPerMile    float64 `json:"cost_per_mile"`
	FixedCost      float64 `json:"fixed_cost"`
	DesiredMargin  float64 `json:"desired_margin"`   // Target profit fraction
	MaxBidDistance float64 `json:"max_bid_distance"` // Max deadhead to pickup
	Aggressiveness float64 `json:"aggressiveness"`   // 0–1, governs pricing and counter tolerance

	// Running totals.
	LoadsCompleted int     `json:"loads_completed"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalProfit    float64 `json:"total_profit"`
}

// DistanceToOrigin returns the deadhead distance to a load's pickup.
func (c *Carrier) DistanceToOrigin(l *Load) float64 {
	return c.Position.DistanceTo(l.Origin)
}

// TripDistance returns the full trip: current position → origin → destination.
func (c *Carrier) TripDistance(l *Load) float64 {
	return c.DistanceToOrigin(l) + l.Distance()
}

// Cost returns the carrier's total cost to complete the load.
func (c *Carrier) Cost(l *Load) float64 {
	return c.TripDistance(l)*c.CostPerMile + c.FixedCost
}

// MinimumBid returns the lowest price that meets the desired margin.
func (c *Carrier) MinimumBid(l *Load) float64 {
	return c.Cost(l) * (1 + c.DesiredMargin)
}

// IsInterested reports whether the carrier would bid on the load at all:
// it must be available, within deadhead range, able to reach the pickup
// before the deadline, and not priced too far above market.
func (c *Carrier) IsInterested(l *Load) bool {
	if !c.Available {
		return false
	}

	deadhead := c.DistanceToOrigin(l)
	if deadhead > c.MaxBidDistance {
		return false
	}

	if c.MinimumBid(l) > l.MarketRate*maxPremiumOverMarket {
		return false
	}

	// Cannot reach the pickup in time.
	if l.LeadTime < deadhead/milesPerDay {
		return false
	}

	return true
}

// GenerateBid prices a bid for the load, or returns ok=false when the
// carrier is not interested. Urgent loads get a modest discount scaled by
// the carrier's aggressiveness (less competition expected), but the bid
// never drops below the cost floor. Rounded to cents.
func (c *Carrier) GenerateBid(l *Load, rng *rand.Rand) (bid float64, ok bool) {
	if !c.IsInterested(l) {
		return 0, false
	}

	marketFactor := 0.9 + rng.Float64()*0.2
	urgencyDiscount := 1 - l.UrgencyFactor()*0.1*c.Aggressiveness

	bid = c.MinimumBid(l) * marketFactor * urgencyDiscount
	bid = math.Max(bid, c.Cost(l)*minMarginOverCost)

	return math.Round(bid*100) / 100, true
}

// AcceptLoad books the carrier onto the load at the agreed price.
// Booking a busy carrier is a step-ordering bug upstream.
func (c *Carrier) AcceptLoad(l *Load, agreedPrice float64) {
	if !c.Available {
		panic(fmt.Sprintf("freight: carrier %s booked while hauling %s", c.ID, c.Current.ID))
	}

	c.Current = l
	c.Available = false

	c.TotalRevenue += agreedPrice
	c.TotalProfit += agreedPrice - c.Cost(l)
}

// CompleteLoad finishes the current haul: the truck ends up at the
// load's destination and becomes available again. No-op when idle.
// Delivery is single-step; there is no in-transit modeling.
func (c *Carrier) CompleteLoad() {
	if c.Current == nil {
		return
	}

	c.Position = c.Current.Destination
	c.LoadsCompleted++

	c.Current = nil
	c.Available = true
}

// CarrierStatus is the external telemetry view of a carrier.
type CarrierStatus struct {
	ID             string  `json:"id"`
	Position       Point   `json:"position"`
	Available      bool    `json:"available"`
	LoadsCompleted int     `json:"loads_completed"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalProfit    float64 `json:"total_profit"`
	ProfitMargin   float64 `json:"profit_margin"`
	CostPerMile    float64 `json:"cost_per_mile"`
	Aggressiveness float64 `json:"aggressiveness"`
}

// StatusSummary reports the carrier's position and running performance.
// Profit margin is 0 while the carrier has no revenue.
func (c *Carrier) StatusSummary() CarrierStatus {
	margin := 0.0
	if c.TotalRevenue > 0 {
		margin = c.TotalProfit / c.TotalRevenue
	}

	return CarrierStatus{
		ID:             c.ID,
		Position:       c.Position,
		Available:      c.Available,
		LoadsCompleted: c.LoadsCompleted,
		TotalRevenue:   c.TotalRevenue,
		TotalProfit:    c.TotalProfit,
		ProfitMargin:   margin,
		CostPerMile:    c.CostPerMile,
		Aggressiveness: c.Aggressiveness,
	}
}

func (c *Carrier) String() string {
	status := "available"
	if !c.Available {
		status = "busy"
	}
	return fmt.Sprintf("carrier %s at %s — %s (completed %d, revenue $%.0f)",
		c.ID, c.Position, status, c.LoadsCompleted, c.TotalRevenue)
}
