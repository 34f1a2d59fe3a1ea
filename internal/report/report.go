// Package report turns a dashboard selection into the aggregate tables shown
// in the output region. Both entry points are pure functions of their
// arguments and the read-only dataset.
package report

import (
	"fmt"
	"sort"

	"autosales/internal/core"
	"autosales/internal/dataset"
)

// Chart ids, stable across renders so the page can request each SVG.
const (
	RecessionSalesByYear = "recession-sales-by-year"
	RecessionSalesByType = "recession-sales-by-type"
	RecessionAdShare     = "recession-ad-share"
	RecessionUnemploy    = "recession-unemployment"

	YearlySales  = "yearly-sales"
	MonthlySales = "monthly-sales"
	TypeSales    = "type-sales"
	AdShare      = "ad-share"
)

// SelectorState is how the year dropdown should be drawn.
type SelectorState struct {
	Disabled bool  `json:"disabled"`
	Years    []int `json:"years"`
	Selected int   `json:"selected,omitempty"`
}

// YearSelector computes the year dropdown for the chosen report type. Only the
// yearly report enables it; the current year choice is preserved either way.
func YearSelector(r core.ReportType, selected int) SelectorState {
	if !core.ValidYear(selected) {
		selected = 0
	}
	return SelectorState{
		Disabled: core.YearSelectorDisabled(r),
		Years:    core.Years(),
		Selected: selected,
	}
}

// Render builds the view for sel. Selections that cannot produce charts yield
// the prompt and a nil error; an error means the dataset could not be
// aggregated.
func Render(ds *dataset.Dataset, sel core.Selection) (core.View, error) {
	if err := sel.Validate(); err != nil {
		return core.View{Selection: sel, Prompt: core.PromptMessage}, nil
	}
	if sel.Report == core.ReportRecession {
		return recessionView(ds, sel.Normalized())
	}
	return yearlyView(ds, sel)
}

func recessionView(ds *dataset.Dataset, sel core.Selection) (core.View, error) {
	rec := ds.Where(core.ColRecession, 1)

	byYear, err := rec.Mean(core.ColSales, core.ColYear)
	if err != nil {
		return core.View{}, fmt.Errorf("recession sales by year: %w", err)
	}
	byType, err := rec.Mean(core.ColSales, core.ColVehicleType)
	if err != nil {
		return core.View{}, fmt.Errorf("recession sales by vehicle type: %w", err)
	}
	adSpend, err := rec.Sum(core.ColAdExpenditure, core.ColVehicleType)
	if err != nil {
		return core.View{}, fmt.Errorf("recession advertising by vehicle type: %w", err)
	}
	unemp, err := rec.Mean(core.ColSales, core.ColUnemploymentRate, core.ColVehicleType)
	if err != nil {
		return core.View{}, fmt.Errorf("recession sales by unemployment rate: %w", err)
	}

	return core.View{
		Selection: sel,
		Charts: []core.ChartSpec{
			{
				ID:     RecessionSalesByYear,
				Kind:   core.ChartLine,
				Title:  "Average Automobile Sales During Recession",
				XLabel: core.ColYear,
				YLabel: core.ColSales,
				Series: []core.Series{single(byYear)},
			},
			{
				ID:     RecessionSalesByType,
				Kind:   core.ChartBar,
				Title:  "Average Sales by Vehicle Type During Recession",
				XLabel: core.ColVehicleType,
				YLabel: core.ColSales,
				Series: []core.Series{single(byType)},
			},
			{
				ID:     RecessionAdShare,
				Kind:   core.ChartPie,
				Title:  "Advertising Expenditure Share by Vehicle Type",
				XLabel: core.ColVehicleType,
				YLabel: core.ColAdExpenditure,
				Series: []core.Series{single(adSpend)},
			},
			{
				ID:     RecessionUnemploy,
				Kind:   core.ChartGrouped,
				Title:  "Effect of Unemployment Rate on Sales",
				XLabel: core.ColUnemploymentRate,
				YLabel: core.ColSales,
				Series: pivot(unemp),
			},
		},
	}, nil
}

func yearlyView(ds *dataset.Dataset, sel core.Selection) (core.View, error) {
	// The yearly trend always spans the whole dataset.
	allYears, err := ds.Mean(core.ColSales, core.ColYear)
	if err != nil {
		return core.View{}, fmt.Errorf("sales by year: %w", err)
	}

	year := ds.Where(core.ColYear, sel.Year)
	monthly, err := year.Sum(core.ColSales, core.ColMonth)
	if err != nil {
		return core.View{}, fmt.Errorf("monthly sales in %d: %w", sel.Year, err)
	}
	byType, err := year.Mean(core.ColSales, core.ColVehicleType)
	if err != nil {
		return core.View{}, fmt.Errorf("sales by vehicle type in %d: %w", sel.Year, err)
	}
	adSpend, err := year.Sum(core.ColAdExpenditure, core.ColVehicleType)
	if err != nil {
		return core.View{}, fmt.Errorf("advertising by vehicle type in %d: %w", sel.Year, err)
	}

	return core.View{
		Selection: sel,
		Charts: []core.ChartSpec{
			{
				ID:     YearlySales,
				Kind:   core.ChartLine,
				Title:  "Yearly Automobile Sales",
				XLabel: core.ColYear,
				YLabel: core.ColSales,
				Series: []core.Series{single(allYears)},
			},
			{
				ID:     MonthlySales,
				Kind:   core.ChartLine,
				Title:  fmt.Sprintf("Total Monthly Sales in %d", sel.Year),
				XLabel: core.ColMonth,
				YLabel: core.ColSales,
				Series: []core.Series{single(monthly)},
			},
			{
				ID:     TypeSales,
				Kind:   core.ChartBar,
				Title:  fmt.Sprintf("Average Vehicles Sold by Type in %d", sel.Year),
				XLabel: core.ColVehicleType,
				YLabel: core.ColSales,
				Series: []core.Series{single(byType)},
			},
			{
				ID:     AdShare,
				Kind:   core.ChartPie,
				Title:  "Advertisement Expenditure by Vehicle Type",
				XLabel: core.ColVehicleType,
				YLabel: core.ColAdExpenditure,
				Series: []core.Series{single(adSpend)},
			},
		},
	}, nil
}

// single converts one-key groups into an unnamed series.
func single(groups []dataset.Group) core.Series {
	points := make([]core.Point, 0, len(groups))
	for _, g := range groups {
		points = append(points, core.Point{Key: g.Keys[0], Value: g.Value})
	}
	return core.Series{Points: points}
}

// pivot turns (x, colour) groups into one series per colour value, keeping x
// order. Groups arrive sorted by x then colour.
func pivot(groups []dataset.Group) []core.Series {
	index := make(map[string]int)
	var out []core.Series
	for _, g := range groups {
		x, name := g.Keys[0], g.Keys[1]
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.Series{Name: name})
		}
		out[i].Points = append(out[i].Points, core.Point{Key: x, Value: g.Value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
