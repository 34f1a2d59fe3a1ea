package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosales/internal/core"
	"autosales/internal/dataset"
)

const salesCSV = `Year,Month,Recession,Automobile_Sales,Advertising_Expenditure,Vehicle_Type,unemployment_rate
2019,Dec,0,100,400,Sports,3.5
2020,Jan,0,500,1000,Supperminicar,4.1
2020,Feb,1,200,600,Supperminicar,6.5
2020,Feb,1,300,900,Mediumfamilycar,6.5
2021,Mar,1,250,700,Sports,7.2
`

func newDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Parse(strings.NewReader(salesCSV))
	require.NoError(t, err)
	return ds
}

func points(t *testing.T, view core.View, id string) []core.Point {
	t.Helper()
	spec, ok := view.Chart(id)
	require.True(t, ok, "chart %s missing", id)
	require.Len(t, spec.Series, 1)
	return spec.Series[0].Points
}

func TestRender_Prompt(t *testing.T) {
	ds := newDataset(t)
	for _, sel := range []core.Selection{
		{},
		{Year: 2020},
		{Report: core.ReportYearly},
		{Report: core.ReportYearly, Year: 1970},
		{Report: core.ReportType("Monthly Statistics"), Year: 2020},
	} {
		view, err := Render(ds, sel)
		require.NoError(t, err)
		assert.False(t, view.HasCharts(), "selection %+v", sel)
		assert.Equal(t, core.PromptMessage, view.Prompt)
	}
}

func TestRender_YearlyMonthlyExample(t *testing.T) {
	view, err := Render(newDataset(t), core.Selection{Report: core.ReportYearly, Year: 2020})
	require.NoError(t, err)

	monthly := points(t, view, MonthlySales)
	require.Len(t, monthly, 2)
	assert.Equal(t, core.Point{Key: "Jan", Value: 500}, monthly[0])
	assert.Equal(t, core.Point{Key: "Feb", Value: 500}, monthly[1])
}

func TestRender_YearlyFiltersAllButTrend(t *testing.T) {
	view, err := Render(newDataset(t), core.Selection{Report: core.ReportYearly, Year: 2020})
	require.NoError(t, err)
	require.Len(t, view.Charts, 4)

	trend := points(t, view, YearlySales)
	assert.Equal(t, []string{"2019", "2020", "2021"}, keys(trend))

	byType := points(t, view, TypeSales)
	assert.Equal(t, []string{"Mediumfamilycar", "Supperminicar"}, keys(byType))
	assert.InDelta(t, 350.0, byType[1].Value, 1e-9)

	ads := points(t, view, AdShare)
	assert.Equal(t, []string{"Mediumfamilycar", "Supperminicar"}, keys(ads))
	assert.InDelta(t, 1600.0, ads[1].Value, 1e-9)

	spec, _ := view.Chart(MonthlySales)
	assert.Equal(t, core.ChartLine, spec.Kind)
	assert.Contains(t, spec.Title, "2020")
}

func TestRender_YearlyTrendIgnoresYear(t *testing.T) {
	ds := newDataset(t)
	a, err := Render(ds, core.Selection{Report: core.ReportYearly, Year: 2019})
	require.NoError(t, err)
	b, err := Render(ds, core.Selection{Report: core.ReportYearly, Year: 2021})
	require.NoError(t, err)

	assert.Equal(t, points(t, a, YearlySales), points(t, b, YearlySales))
	assert.NotEqual(t, points(t, a, MonthlySales), points(t, b, MonthlySales))
}

func TestRender_YearlyWithoutRows(t *testing.T) {
	view, err := Render(newDataset(t), core.Selection{Report: core.ReportYearly, Year: 1985})
	require.NoError(t, err)
	require.Len(t, view.Charts, 4)

	for _, id := range []string{MonthlySales, TypeSales, AdShare} {
		spec, _ := view.Chart(id)
		assert.True(t, spec.Empty(), "chart %s", id)
	}
	spec, _ := view.Chart(YearlySales)
	assert.False(t, spec.Empty())
}

func TestRender_Recession(t *testing.T) {
	view, err := Render(newDataset(t), core.Selection{Report: core.ReportRecession})
	require.NoError(t, err)
	require.Len(t, view.Charts, 4)

	byYear := points(t, view, RecessionSalesByYear)
	assert.Equal(t, []string{"2020", "2021"}, keys(byYear))
	assert.InDelta(t, 250.0, byYear[0].Value, 1e-9)

	byType := points(t, view, RecessionSalesByType)
	assert.Equal(t, []string{"Mediumfamilycar", "Sports", "Supperminicar"}, keys(byType))

	ads := points(t, view, RecessionAdShare)
	var total float64
	for _, p := range ads {
		total += p.Value
	}
	assert.InDelta(t, 2200.0, total, 1e-9)

	unemp, ok := view.Chart(RecessionUnemploy)
	require.True(t, ok)
	assert.Equal(t, core.ChartGrouped, unemp.Kind)
	require.Len(t, unemp.Series, 3)
	assert.Equal(t, "Mediumfamilycar", unemp.Series[0].Name)
	assert.Equal(t, []core.Point{{Key: "7.2", Value: 250}}, unemp.Series[1].Points)
	assert.Equal(t, []string{"6.5", "7.2"}, unemp.Keys())
}

func TestRender_RecessionIgnoresYear(t *testing.T) {
	ds := newDataset(t)
	base, err := Render(ds, core.Selection{Report: core.ReportRecession})
	require.NoError(t, err)

	for _, year := range []int{1980, 2020, 2023} {
		view, err := Render(ds, core.Selection{Report: core.ReportRecession, Year: year})
		require.NoError(t, err)
		assert.Equal(t, base, view, "year %d", year)
	}
}

func TestRender_Idempotent(t *testing.T) {
	ds := newDataset(t)
	for _, sel := range []core.Selection{
		{Report: core.ReportYearly, Year: 2020},
		{Report: core.ReportRecession},
	} {
		first, err := Render(ds, sel)
		require.NoError(t, err)
		second, err := Render(ds, sel)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestYearSelector(t *testing.T) {
	yearly := YearSelector(core.ReportYearly, 2001)
	assert.False(t, yearly.Disabled)
	assert.Equal(t, 2001, yearly.Selected)
	assert.Len(t, yearly.Years, 44)

	recession := YearSelector(core.ReportRecession, 2001)
	assert.True(t, recession.Disabled)
	assert.Equal(t, 2001, recession.Selected)

	none := YearSelector(core.ReportNone, 1900)
	assert.True(t, none.Disabled)
	assert.Zero(t, none.Selected)
}

func TestPivot(t *testing.T) {
	got := pivot([]dataset.Group{
		{Keys: []string{"1", "b"}, Value: 1},
		{Keys: []string{"1", "a"}, Value: 2},
		{Keys: []string{"2", "b"}, Value: 3},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, []core.Point{{Key: "1", Value: 2}}, got[0].Points)
	assert.Equal(t, "b", got[1].Name)
	assert.Equal(t, []core.Point{{Key: "1", Value: 1}, {Key: "2", Value: 3}}, got[1].Points)
}

func keys(ps []core.Point) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Key
	}
	return out
}
