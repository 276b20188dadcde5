// Package report renders the end-of-run experiment report to the
// terminal.
package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"freightsim/internal/engine"
	"freightsim/internal/freight"
)

func money(v float64) string {
	return "$" + humanize.CommafWithDigits(v, 2)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// Render writes the broker performance block and the per-carrier table.
func Render(w io.Writer, sum engine.ModelSummary, carriers []freight.CarrierStatus) {
	broker := table.NewWriter()
	broker.SetOutputMirror(w)
	broker.SetStyle(table.StyleLight)
	broker.SetTitle("Broker performance — %d steps (%d weeks)", sum.SimulationSteps, sum.SimulationWeeks)
	broker.AppendRows([]table.Row{
		{"Loads handled", sum.TotalLoadsHandled},
		{"Loads covered", sum.LoadsCovered},
		{"Loads expired", sum.LoadsExpired},
		{"Active at end", sum.ActiveLoads},
		{"Coverage rate", percent(sum.CoverageRate)},
	})
	broker.AppendSeparator()
	broker.AppendRows([]table.Row{
		{"Customer revenue", money(sum.TotalRevenue)},
		{"Carrier cost", money(sum.TotalCost)},
		{"Penalties", money(sum.TotalPenalties)},
		{"Profit", money(sum.Profit)},
		{"Profit margin", percent(sum.ProfitMargin)},
	})
	if sum.ConsecutiveFailures > 0 {
		broker.AppendSeparator()
		broker.AppendRow(table.Row{"Consecutive failures", sum.ConsecutiveFailures})
	}
	broker.Render()

	fleet := table.NewWriter()
	fleet.SetOutputMirror(w)
	fleet.SetStyle(table.StyleLight)
	fleet.SetTitle("Fleet — %d carriers, %s utilized, avg revenue %s",
		sum.TotalCarriers, percent(sum.UtilizationRate), money(sum.AvgCarrierRevenue))
	fleet.AppendHeader(table.Row{"Carrier", "Position", "Done", "Revenue", "Profit", "Margin", "$/mi", "Aggr"})
	for _, c := range carriers {
		fleet.AppendRow(table.Row{
			c.ID,
			c.Position.String(),
			c.LoadsCompleted,
			money(c.TotalRevenue),
			money(c.TotalProfit),
			percent(c.ProfitMargin),
			fmt.Sprintf("%.2f", c.CostPerMile),
			fmt.Sprintf("%.2f", c.Aggressiveness),
		})
	}
	fleet.Render()
}
