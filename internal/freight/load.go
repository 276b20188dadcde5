// Package freight provides the load and carrier entities of the
// brokerage simulation, plus the seeded generator that spawns them.
package freight

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Point is a position on the dispatch grid, in miles.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance to another point.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// Load is a shipment that needs to be hauled from origin to destination
// before its lead time runs out. A load is created uncovered, decays each
// step, and ends in exactly one of two terminal states: covered (assigned
// to a carrier) or expired (deadline missed).
type Load struct {
	ID          string `json:"id"`
	Origin      Point  `json:"origin"`
	Destination Point  `json:"destination"`

	// Economics.
	MarketRate  float64 `json:"market_rate"`  // Reference price for the lane
	PenaltyRate float64 `json:"penalty_rate"` // Fraction of market rate charged if uncovered

	// Time state. InitialLeadTime is snapshotted at creation and never
	// changes; LeadTime only decreases.
	LeadTime        float64 `json:"lead_time"`
	InitialLeadTime float64 `json:"initial_lead_time"`

	// Negotiation state.
	AssignedCarrierID string  `json:"assigned_carrier_id,omitempty"`
	CurrentBid        float64 `json:"current_bid,omitempty"`
	CurrentBidderID   string  `json:"current_bidder_id,omitempty"`
	NegotiationRounds int     `json:"negotiation_rounds"`

	Covered bool `json:"covered"`
	Expired bool `json:"expired"`
}

// NewLoadID returns a short unique load identifier.
func NewLoadID() string {
	return uuid.NewString()[:8]
}

// Distance returns the haul distance from origin to destination.
func (l *Load) Distance() float64 {
	return l.Origin.DistanceTo(l.Destination)
}

// UrgencyFactor measures how close the load is to its deadline:
// 0 when fresh, approaching 1 as the lead time runs out. A load with
// no initial lead time is treated as maximally urgent.
func (l *Load) UrgencyFactor() float64 {
	if l.LeadTime <= 0 || l.InitialLeadTime <= 0 {
		return 1.0
	}
	u := 1 - l.LeadTime/l.InitialLeadTime
	if u < 0 {
		return 0
	}
	return u
}

// PenaltyCost returns the cost of letting this load expire, escalated
// 10% per consecutive broker failure.
func (l *Load) PenaltyCost(consecutiveFailures int) float64 {
	base := l.MarketRate * l.PenaltyRate
	return base * (1 + 0.1*float64(consecutiveFailures))
}

// AdvanceTime decays the lead time by one step. When the lead time
// reaches zero on an uncovered load, the load expires. Idempotent once
// expired.
func (l *Load) AdvanceTime(timeStep float64) {
	l.LeadTime = math.Max(0, l.LeadTime-timeStep)
	if l.LeadTime <= 0 && !l.Covered {
		l.Expired = true
	}
}

// Accept marks the load covered at the agreed price. Calling Accept on a
// load already in a terminal state is a step-ordering bug upstream.
func (l *Load) Accept(carrierID string, price float64) {
	if l.Covered || l.Expired {
		panic(fmt.Sprintf("freight: accept on terminal load %s (covered=%v expired=%v)", l.ID, l.Covered, l.Expired))
	}
	l.AssignedCarrierID = carrierID
	l.CurrentBid = price
	l.CurrentBidderID = carrierID
	l.Covered = true
}

// RecordBid stores a bid without committing either party, for possible
// reconsideration next round.
func (l *Load) RecordBid(carrierID string, price float64) {
	l.CurrentBid = price
	l.CurrentBidderID = carrierID
	l.NegotiationRounds++
}

func (l *Load) String() string {
	return fmt.Sprintf("load %s: %s → %s, $%.0f, %.1f days left",
		l.ID, l.Origin, l.Destination, l.MarketRate, l.LeadTime)
}
