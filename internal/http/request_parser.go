// Package http provides HTTP server and handler implementations.
//
// This file turns query strings into dashboard selections.

package http

import (
	"net/url"
	"strconv"
	"strings"

	"autosales/internal/core"
)

// ParseSelection reads the report and year query parameters. Unknown report
// values and years outside the selectable range are treated as unset, so the
// output region falls back to the prompt rather than an error.
func ParseSelection(query url.Values) core.Selection {
	report, _ := core.ParseReportType(query.Get("report"))

	year := 0
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && core.ValidYear(y) {
			year = y
		}
	}

	return core.Selection{Report: report, Year: year}
}

// SelectionQuery encodes sel back into query parameters. A zero year is
// omitted.
func SelectionQuery(sel core.Selection) url.Values {
	q := url.Values{}
	if sel.Report != core.ReportNone {
		q.Set("report", string(sel.Report))
	}
	if sel.Year != 0 {
		q.Set("year", strconv.Itoa(sel.Year))
	}
	return q
}

// parseChartFile splits "<id>.svg" into the chart id.
func parseChartFile(name string) (string, bool) {
	id, ok := strings.CutSuffix(name, ".svg")
	if !ok || id == "" || strings.ContainsAny(id, "/.") {
		return "", false
	}
	return id, true
}
