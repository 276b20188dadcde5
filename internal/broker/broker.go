// Package broker implements the negotiation and matching engine: it
// solicits bids for active loads each step, accepts or counters the best
// offer, and books penalties for loads that expire uncovered.
package broker

import (
	"log/slog"
	"math"
	"math/rand"

	"freightsim/internal/config"
	"freightsim/internal/freight"
)

// Bid is one carrier's offer on a load for the current round.
type Bid struct {
	Carrier *freight.Carrier
	Price   float64
}

// Broker manages the load book. Every load it has ever seen lives in
// exactly one of Active, Completed, or Expired; transitions are
// one-directional.
type Broker struct {
	Active    []*freight.Load
	Completed []*freight.Load
	Expired   []*freight.Load

	// Last bid set per active load id. Transient — dropped when the
	// load leaves the active book.
	pending map[string][]Bid

	// Financial totals.
	TotalRevenue   float64 // Charged to customers
	TotalCost      float64 // Paid to carriers
	TotalPenalties float64

	// Back-to-back expirations; resets on any successful cover and
	// drives penalty escalation.
	ConsecutiveFailures int

	CoverageRate float64

	// Strategy knobs.
	MaxNegotiationRounds int
	PatienceFactor       float64

	rng *rand.Rand
}

// New creates a broker with the given strategy parameters. The RNG
// drives the customer markup and the carriers' bid pricing, so a seeded
// source makes negotiation outcomes reproducible.
func New(params config.BrokerParams, rng *rand.Rand) *Broker {
	return &Broker{
		pending:              make(map[string][]Bid),
		MaxNegotiationRounds: params.MaxNegotiationRounds,
		PatienceFactor:       params.PatienceFactor,
		rng:                  rng,
	}
}

// AddLoad puts a new load under management.
func (b *Broker) AddLoad(l *freight.Load) {
	b.Active = append(b.Active, l)
	b.pending[l.ID] = nil
}

// Step advances the broker one tick: decay and expire loads, collect a
// fresh round of bids from the carriers, and decide per load. Carriers
// booked for an earlier load in the same step are already unavailable
// when later loads solicit bids.
func (b *Broker) Step(timeStep float64, carriers []*freight.Carrier) {
	// Phase 1: decay. Expired loads leave the book before bidding.
	var expired []*freight.Load
	for _, l := range b.Active {
		l.AdvanceTime(timeStep)
		if l.Expired {
			expired = append(expired, l)
		}
	}
	for _, l := range expired {
		b.HandleExpired(l)
	}

	// Phase 2+3: bid collection and decision, load by load.
	active := make([]*freight.Load, len(b.Active))
	copy(active, b.Active)
	for _, l := range active {
		if l.Covered {
			continue
		}

		var bids []Bid
		for _, c := range carriers {
			if price, ok := c.GenerateBid(l, b.rng); ok {
				bids = append(bids, Bid{Carrier: c, Price: price})
			}
		}
		if len(bids) == 0 {
			continue
		}
		b.pending[l.ID] = bids
		b.ProcessBids(l, bids)
	}

	b.updateMetrics()
}

// UrgencyThreshold is the price the broker is willing to pay for a load
// right now: below market when relaxed, well above it when desperate.
func (b *Broker) UrgencyThreshold(l *freight.Load) float64 {
	urgency := l.UrgencyFactor()
	switch {
	case urgency > 0.8:
		return l.MarketRate * 1.3
	case urgency > 0.5:
		return l.MarketRate * 1.15
	default:
		return l.MarketRate * 0.95
	}
}

// shouldAccept decides whether to take a bid as-is.
func (b *Broker) shouldAccept(l *freight.Load, bid float64) bool {
	if bid <= b.UrgencyThreshold(l) {
		return true
	}

	// Cheaper to pay the carrier than eat the penalty.
	if bid < l.PenaltyCost(b.ConsecutiveFailures) {
		return true
	}

	// Desperation: about to expire and we've already haggled.
	if l.UrgencyFactor() > 0.9 && l.NegotiationRounds >= 2 {
		return true
	}

	return false
}

// counterOffer prices a counter to the carrier's bid, or returns
// ok=false when the broker won't counter (rounds exhausted, or the
// counter wouldn't undercut the bid).
func (b *Broker) counterOffer(l *freight.Load, originalBid float64) (float64, bool) {
	if l.NegotiationRounds >= b.MaxNegotiationRounds {
		return 0, false
	}

	threshold := b.UrgencyThreshold(l)
	urgency := l.UrgencyFactor()

	var counter float64
	switch {
	case urgency < 0.3: // Plenty of time — push hard
		counter = threshold * 0.9
	case urgency < 0.7:
		counter = threshold * 0.95
	default: // Nearly out of time — be generous
		counter = threshold * 1.05
	}

	counter = math.Max(counter, l.MarketRate*0.8)
	if counter >= originalBid {
		return 0, false
	}

	return math.Round(counter*100) / 100, true
}

// carrierAcceptsCounter models the carrier's side of the table: the
// counter must clear their minimum bid plus an aggressiveness-scaled
// tolerance.
func carrierAcceptsCounter(c *freight.Carrier, l *freight.Load, counter float64) bool {
	tolerance := 1 + c.Aggressiveness*0.1
	return counter >= c.MinimumBid(l)*tolerance
}

// ProcessBids runs the decision policy on one round of bids: accept the
// lowest, counter it, or record it for next round. Ties go to the first
// bid encountered.
func (b *Broker) ProcessBids(l *freight.Load, bids []Bid) {
	if len(bids) == 0 {
		return
	}

	best := bids[0]
	for _, bid := range bids[1:] {
		if bid.Price < best.Price {
			best = bid
		}
	}

	if b.shouldAccept(l, best.Price) {
		b.AcceptBid(l, best.Carrier, best.Price)
		return
	}

	if counter, ok := b.counterOffer(l, best.Price); ok {
		if carrierAcceptsCounter(best.Carrier, l, counter) {
			b.AcceptBid(l, best.Carrier, counter)
			return
		}
	}

	// No deal this round — remember the bid for reconsideration.
	l.RecordBid(best.Carrier.ID, best.Price)
}

// AcceptBid finalizes a match: the load is covered, the carrier is
// booked, the customer is charged a markup over market, and the failure
// streak resets.
func (b *Broker) AcceptBid(l *freight.Load, c *freight.Carrier, agreedPrice float64) {
	l.Accept(c.ID, agreedPrice)
	c.AcceptLoad(l, agreedPrice)

	customerRate := l.MarketRate * (1.05 + b.rng.Float64()*0.20)
	b.TotalRevenue += customerRate
	b.TotalCost += agreedPrice

	b.removeActive(l)
	b.Completed = append(b.Completed, l)
	b.ConsecutiveFailures = 0
	delete(b.pending, l.ID)

	slog.Debug("load covered",
		"load", l.ID,
		"carrier", c.ID,
		"price", agreedPrice,
		"market_rate", l.MarketRate,
		"rounds", l.NegotiationRounds,
	)
}

// HandleExpired books the penalty for a load that ran out of time and
// extends the failure streak.
func (b *Broker) HandleExpired(l *freight.Load) {
	penalty := l.PenaltyCost(b.ConsecutiveFailures)
	b.TotalPenalties += penalty
	b.ConsecutiveFailures++

	b.removeActive(l)
	b.Expired = append(b.Expired, l)
	delete(b.pending, l.ID)

	slog.Debug("load expired",
		"load", l.ID,
		"penalty", penalty,
		"consecutive_failures", b.ConsecutiveFailures,
	)
}

func (b *Broker) removeActive(l *freight.Load) {
	for i, al := range b.Active {
		if al == l {
			b.Active = append(b.Active[:i], b.Active[i+1:]...)
			return
		}
	}
}

// updateMetrics refreshes the coverage rate. With no finalized loads yet
// the rate keeps its previous value.
func (b *Broker) updateMetrics() {
	total := len(b.Completed) + len(b.Expired)
	if total > 0 {
		b.CoverageRate = float64(len(b.Completed)) / float64(total)
	}
}

// Summary is the broker's performance counters, consumed by reporting
// and the status API.
type Summary struct {
	TotalLoadsHandled   int     `json:"total_loads_handled"`
	LoadsCovered        int     `json:"loads_covered"`
	LoadsExpired        int     `json:"loads_expired"`
	CoverageRate        float64 `json:"coverage_rate"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalCost           float64 `json:"total_cost"`
	TotalPenalties      float64 `json:"total_penalties"`
	Profit              float64 `json:"profit"`
	ProfitMargin        float64 `json:"profit_margin"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	ActiveLoads         int     `json:"active_loads"`
}

// PerformanceSummary reports the broker's running totals. Profit margin
// is 0 while there is no revenue.
func (b *Broker) PerformanceSummary() Summary {
	profit := b.TotalRevenue - b.TotalCost - b.TotalPenalties
	margin := 0.0
	if b.TotalRevenue > 0 {
		margin = profit / b.TotalRevenue
	}

	return Summary{
		TotalLoadsHandled:   len(b.Completed) + len(b.Expired),
		LoadsCovered:        len(b.Completed),
		LoadsExpired:        len(b.Expired),
		CoverageRate:        b.CoverageRate,
		TotalRevenue:        b.TotalRevenue,
		TotalCost:           b.TotalCost,
		TotalPenalties:      b.TotalPenalties,
		Profit:              profit,
		ProfitMargin:        margin,
		ConsecutiveFailures: b.ConsecutiveFailures,
		ActiveLoads:         len(b.Active),
	}
}
