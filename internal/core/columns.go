package core

import "strings"

// Dataset column names as they appear in the CSV header.
const (
	ColYear             = "Year"
	ColMonth            = "Month"
	ColVehicleType      = "Vehicle_Type"
	ColSales            = "Automobile_Sales"
	ColAdExpenditure    = "Advertising_Expenditure"
	ColRecession        = "Recession"
	ColUnemploymentRate = "unemployment_rate"
)

// RequiredColumns must all be present for a dataset to load.
var RequiredColumns = []string{
	ColYear,
	ColMonth,
	ColVehicleType,
	ColSales,
	ColAdExpenditure,
	ColRecession,
	ColUnemploymentRate,
}

var monthOrder = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// MonthIndex returns the calendar position (1-12) of a month name or
// abbreviation, or 0 for anything else.
func MonthIndex(m string) int {
	m = strings.ToLower(strings.TrimSpace(m))
	if len(m) < 3 {
		return 0
	}
	return monthOrder[m[:3]]
}
