package dataset

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosales/internal/core"
)

func loadTestdata(t *testing.T) *Dataset {
	t.Helper()
	f, err := os.Open("testdata/sales.csv")
	require.NoError(t, err)
	defer f.Close()

	ds, err := Parse(f)
	require.NoError(t, err)
	return ds
}

func TestParse(t *testing.T) {
	ds := loadTestdata(t)
	assert.Equal(t, 6, ds.Len())
	assert.Equal(t, []int{1980, 1981}, ds.Years())
	assert.False(t, ds.LoadedAt().IsZero())
}

func TestParse_MissingColumns(t *testing.T) {
	csv := "Year,Month,Recession,Automobile_Sales,Vehicle_Type\n1980,Jan,1,456,Supperminicar\n"
	_, err := Parse(strings.NewReader(csv))
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), core.ColAdExpenditure)
	assert.Contains(t, err.Error(), core.ColUnemploymentRate)
}

func TestWhere(t *testing.T) {
	ds := loadTestdata(t)

	rec := ds.Where(core.ColRecession, 1)
	assert.Equal(t, 4, rec.Len())
	assert.Equal(t, []int{1980}, rec.Years())

	none := ds.Where(core.ColYear, 1999)
	assert.Equal(t, 0, none.Len())
	assert.Empty(t, none.Years())

	// the receiver is untouched
	assert.Equal(t, 6, ds.Len())
}

func TestMean_ByYear(t *testing.T) {
	ds := loadTestdata(t)

	groups, err := ds.Mean(core.ColSales, core.ColYear)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, []string{"1980"}, groups[0].Keys)
	assert.InDelta(t, 583.675, groups[0].Value, 1e-9)
	assert.Equal(t, []string{"1981"}, groups[1].Keys)
	assert.InDelta(t, 850.0, groups[1].Value, 1e-9)
}

func TestSum_MonthsInCalendarOrder(t *testing.T) {
	ds := loadTestdata(t).Where(core.ColYear, 1980)

	groups, err := ds.Sum(core.ColSales, core.ColMonth)
	require.NoError(t, err)

	var months []string
	for _, g := range groups {
		months = append(months, g.Keys[0])
	}
	assert.Equal(t, []string{"Jan", "Feb", "Mar", "Apr"}, months)
	assert.InDelta(t, 456.0, groups[0].Value, 1e-9)
	assert.InDelta(t, 702.8, groups[3].Value, 1e-9)
}

func TestSum_ByVehicleType(t *testing.T) {
	ds := loadTestdata(t).Where(core.ColRecession, 1)

	groups, err := ds.Sum(core.ColAdExpenditure, core.ColVehicleType)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "Mediumfamilycar", groups[0].Keys[0])
	assert.InDelta(t, 3137.0, groups[0].Value, 1e-9)
	assert.Equal(t, "Supperminicar", groups[1].Keys[0])
	assert.InDelta(t, 6259.0, groups[1].Value, 1e-9)
}

func TestMean_TwoKeys(t *testing.T) {
	ds := loadTestdata(t)

	groups, err := ds.Mean(core.ColSales, core.ColUnemploymentRate, core.ColVehicleType)
	require.NoError(t, err)

	var keys [][]string
	for _, g := range groups {
		keys = append(keys, g.Keys)
	}
	assert.Equal(t, [][]string{
		{"3.4", "Mediumfamilycar"},
		{"4.2", "Supperminicar"},
		{"4.8", "Supperminicar"},
		{"5.4", "Sports"},
		{"5.4", "Supperminicar"},
		{"5.6", "Smallfamiliycar"},
	}, keys)
}

func TestAggregate_EmptyAndInvalid(t *testing.T) {
	ds := loadTestdata(t)

	groups, err := ds.Where(core.ColYear, 1999).Mean(core.ColSales, core.ColMonth)
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = ds.Sum(core.ColSales)
	assert.Error(t, err)
}

func TestAggregate_IsRepeatable(t *testing.T) {
	ds := loadTestdata(t)

	first, err := ds.Mean(core.ColSales, core.ColVehicleType)
	require.NoError(t, err)
	second, err := ds.Mean(core.ColSales, core.ColVehicleType)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestKeyLess(t *testing.T) {
	assert.True(t, keyLess(core.ColMonth, "Feb", "Oct"))
	assert.False(t, keyLess(core.ColMonth, "Dec", "Jan"))
	assert.True(t, keyLess(core.ColYear, "999", "1980"))
	assert.True(t, keyLess(core.ColUnemploymentRate, "2.5", "10.1"))
	assert.True(t, keyLess(core.ColVehicleType, "Sports", "Supperminicar"))
}
