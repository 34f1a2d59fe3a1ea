package core

import (
	"errors"
	"strings"
)

// ReportType names one of the canned aggregation modes.
type ReportType string

const (
	ReportNone      ReportType = ""
	ReportYearly    ReportType = "Yearly Statistics"
	ReportRecession ReportType = "Recession Period Statistics"
)

const (
	FirstYear   = 1980
	LastYear    = 2023
	DefaultYear = 2023
)

// PromptMessage is shown in place of charts when the selection cannot be rendered.
const PromptMessage = "Please select valid report type and year."

var ErrInvalidSelection = errors.New("invalid report selection")

// ReportTypes returns the dropdown options in display order.
func ReportTypes() []ReportType {
	return []ReportType{ReportYearly, ReportRecession}
}

// ParseReportType maps a raw dropdown value to a known report type.
// Unknown values come back as ReportNone with ok=false.
func ParseReportType(s string) (ReportType, bool) {
	s = strings.TrimSpace(s)
	switch ReportType(s) {
	case ReportYearly, ReportRecession:
		return ReportType(s), true
	case ReportNone:
		return ReportNone, true
	default:
		return ReportNone, false
	}
}

func (r ReportType) String() string {
	return string(r)
}

// Slug is a URL and cache friendly identifier.
func (r ReportType) Slug() string {
	switch r {
	case ReportYearly:
		return "yearly"
	case ReportRecession:
		return "recession"
	default:
		return "none"
	}
}

// Years lists the selectable years, oldest first.
func Years() []int {
	years := make([]int, 0, LastYear-FirstYear+1)
	for y := FirstYear; y <= LastYear; y++ {
		years = append(years, y)
	}
	return years
}

// ValidYear reports whether y is one of the selectable years.
func ValidYear(y int) bool {
	return y >= FirstYear && y <= LastYear
}

// Selection is the pair of dropdown values driving the output region.
// Year zero means no year was picked.
type Selection struct {
	Report ReportType `json:"report"`
	Year   int        `json:"year,omitempty"`
}

// Validate returns ErrInvalidSelection when the selection cannot produce charts.
func (s Selection) Validate() error {
	switch s.Report {
	case ReportRecession:
		return nil
	case ReportYearly:
		if !ValidYear(s.Year) {
			return ErrInvalidSelection
		}
		return nil
	default:
		return ErrInvalidSelection
	}
}

// Normalized drops the year for reports that ignore it.
func (s Selection) Normalized() Selection {
	if s.Report != ReportYearly {
		return Selection{Report: s.Report}
	}
	return s
}

// YearSelectorDisabled is the single state transition of the page: the year
// dropdown is only interactive for the yearly report.
func YearSelectorDisabled(r ReportType) bool {
	return r != ReportYearly
}
