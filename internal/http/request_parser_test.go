package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"autosales/internal/core"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  core.Selection
	}{
		{
			name:  "empty",
			query: url.Values{},
			want:  core.Selection{},
		},
		{
			name:  "yearly with year",
			query: url.Values{"report": {"Yearly Statistics"}, "year": {"2005"}},
			want:  core.Selection{Report: core.ReportYearly, Year: 2005},
		},
		{
			name:  "recession keeps year",
			query: url.Values{"report": {"Recession Period Statistics"}, "year": {"2009"}},
			want:  core.Selection{Report: core.ReportRecession, Year: 2009},
		},
		{
			name:  "surrounding whitespace",
			query: url.Values{"report": {" Yearly Statistics "}, "year": {" 1980 "}},
			want:  core.Selection{Report: core.ReportYearly, Year: 1980},
		},
		{
			name:  "unknown report",
			query: url.Values{"report": {"Monthly Statistics"}, "year": {"2000"}},
			want:  core.Selection{Year: 2000},
		},
		{
			name:  "year before range",
			query: url.Values{"report": {"Yearly Statistics"}, "year": {"1979"}},
			want:  core.Selection{Report: core.ReportYearly},
		},
		{
			name:  "year after range",
			query: url.Values{"report": {"Yearly Statistics"}, "year": {"2024"}},
			want:  core.Selection{Report: core.ReportYearly},
		},
		{
			name:  "year not a number",
			query: url.Values{"report": {"Yearly Statistics"}, "year": {"Select-year"}},
			want:  core.Selection{Report: core.ReportYearly},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSelection(tt.query))
		})
	}
}

func TestSelectionQuery(t *testing.T) {
	tests := []struct {
		sel  core.Selection
		want string
	}{
		{core.Selection{}, ""},
		{core.Selection{Report: core.ReportRecession}, "report=Recession+Period+Statistics"},
		{core.Selection{Report: core.ReportYearly, Year: 2020}, "report=Yearly+Statistics&year=2020"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectionQuery(tt.sel).Encode())
		assert.Equal(t, tt.sel, ParseSelection(SelectionQuery(tt.sel)))
	}
}

func TestParseChartFile(t *testing.T) {
	tests := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{"yearly-sales.svg", "yearly-sales", true},
		{"ad-share.svg", "ad-share", true},
		{".svg", "", false},
		{"yearly-sales.png", "", false},
		{"yearly-sales", "", false},
		{"a.b.svg", "", false},
	}
	for _, tt := range tests {
		id, ok := parseChartFile(tt.name)
		assert.Equal(t, tt.wantID, id, "parseChartFile(%q)", tt.name)
		assert.Equal(t, tt.wantOK, ok, "parseChartFile(%q) ok", tt.name)
	}
}
