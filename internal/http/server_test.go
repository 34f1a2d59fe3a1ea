package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosales/internal/core"
	"autosales/internal/dataset"
	applog "autosales/internal/log"
	"autosales/internal/middleware/trace"
	"autosales/internal/report"
)

const salesCSV = `Year,Month,Recession,Automobile_Sales,Advertising_Expenditure,Vehicle_Type,unemployment_rate
2020,Jan,1,200,1000,Supperminicar,5.5
2020,Jan,1,300,2000,Mediumfamilycar,5.5
2020,Feb,1,150,1500,Supperminicar,6.1
2021,Mar,0,400,3000,Sports,4.0
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, Options{})
}

func newTestServerWith(t *testing.T, opts Options) *Server {
	t.Helper()
	ds, err := dataset.Parse(strings.NewReader(salesCSV))
	require.NoError(t, err)
	opts.Logger = applog.New(applog.Config{Output: io.Discard})
	srv := NewServer(":0", ds, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func get(t *testing.T, srv *Server, path string, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func selection(r core.ReportType, year string) url.Values {
	q := url.Values{"report": {string(r)}}
	if year != "" {
		q.Set("year", year)
	}
	return q
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t)
	rr := get(t, srv, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	for _, want := range []string{
		"Automobile Sales Statistics Dashboard",
		core.PromptMessage,
		string(core.ReportYearly),
		string(core.ReportRecession),
		`<option value="2023" selected>`,
		`id="year" name="year" disabled`,
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "<img", "index should not render charts before a report is chosen")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestIndex_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestYearSelect(t *testing.T) {
	tests := []struct {
		name         string
		query        url.Values
		wantDisabled bool
	}{
		{"yearly enables", selection(core.ReportYearly, "2020"), false},
		{"recession disables", selection(core.ReportRecession, "2020"), true},
		{"no report disables", url.Values{}, true},
		{"unknown report disables", url.Values{"report": {"Monthly"}}, true},
	}

	srv := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, srv, "/ui/year-select", tt.query)
			require.Equal(t, http.StatusOK, rr.Code)

			body := rr.Body.String()
			assert.Equal(t, tt.wantDisabled, strings.Contains(body, " disabled"))
			assert.Contains(t, body, `<option value="1980">`)
			assert.Contains(t, body, "Select-year")
			assert.Contains(t, rr.Header().Get("HX-Trigger"), "year-selector:changed")
		})
	}
}

func TestYearSelect_PreservesYearWhenDisabled(t *testing.T) {
	srv := newTestServer(t)
	body := get(t, srv, "/ui/year-select", selection(core.ReportRecession, "1995")).Body.String()
	assert.Contains(t, body, `<option value="1995" selected>`)
	assert.Contains(t, body, `type="hidden" name="year" value="1995"`)
}

func TestOutput(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantPrompt bool
		wantCharts []string
	}{
		{
			name:       "no selection",
			query:      url.Values{},
			wantPrompt: true,
		},
		{
			name:       "yearly without year",
			query:      selection(core.ReportYearly, ""),
			wantPrompt: true,
		},
		{
			name:       "year out of range",
			query:      selection(core.ReportYearly, "1970"),
			wantPrompt: true,
		},
		{
			name:       "yearly",
			query:      selection(core.ReportYearly, "2020"),
			wantCharts: []string{report.YearlySales, report.MonthlySales, report.TypeSales, report.AdShare},
		},
		{
			name:  "recession ignores year",
			query: selection(core.ReportRecession, "1999"),
			wantCharts: []string{
				report.RecessionSalesByYear, report.RecessionSalesByType,
				report.RecessionAdShare, report.RecessionUnemploy,
			},
		},
	}

	srv := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, srv, "/ui/output", tt.query)
			require.Equal(t, http.StatusOK, rr.Code)

			body := rr.Body.String()
			assert.Equal(t, tt.wantPrompt, strings.Contains(body, core.PromptMessage))
			assert.Equal(t, len(tt.wantCharts), strings.Count(body, "<figure"))
			for _, id := range tt.wantCharts {
				assert.Contains(t, body, "/charts/"+id+".svg")
			}
			assert.Contains(t, rr.Header().Get("HX-Trigger"), "view:rendered")
		})
	}
}

func TestOutput_YearWithoutRows(t *testing.T) {
	srv := newTestServer(t)
	body := get(t, srv, "/ui/output", selection(core.ReportYearly, "1999")).Body.String()
	assert.Contains(t, body, "/charts/"+report.YearlySales+".svg", "yearly trend should still be drawn")
	assert.Equal(t, 3, strings.Count(body, "No data for this selection."))
}

func TestOutput_PieWithoutPositiveSlices(t *testing.T) {
	srv := newTestServer(t)
	view := core.View{
		Selection: core.Selection{Report: core.ReportYearly, Year: 2020},
		Charts: []core.ChartSpec{
			{ID: report.YearlySales, Kind: core.ChartLine, Series: []core.Series{{Points: []core.Point{{Key: "2020", Value: 1}}}}},
			{ID: report.AdShare, Kind: core.ChartPie, Series: []core.Series{{Points: []core.Point{{Key: "Sports", Value: 0}}}}},
		},
	}

	out := srv.output(view)
	require.Len(t, out.Rows, 1)
	require.Len(t, out.Rows[0], 2)
	assert.False(t, out.Rows[0][0].Empty)
	assert.True(t, out.Rows[0][1].Empty, "a pie with no positive slice gets a placeholder, not an image")
}

func TestChart(t *testing.T) {
	srv := newTestServer(t)

	for _, id := range []string{report.YearlySales, report.MonthlySales, report.TypeSales, report.AdShare} {
		rr := get(t, srv, "/charts/"+id+".svg", selection(core.ReportYearly, "2020"))
		require.Equal(t, http.StatusOK, rr.Code, "%s body=%s", id, rr.Body.String())
		assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"), id)
		assert.Contains(t, rr.Body.String(), "<svg", id)
	}

	for _, id := range []string{report.RecessionSalesByYear, report.RecessionSalesByType, report.RecessionAdShare, report.RecessionUnemploy} {
		rr := get(t, srv, "/charts/"+id+".svg", selection(core.ReportRecession, ""))
		require.Equal(t, http.StatusOK, rr.Code, "%s body=%s", id, rr.Body.String())
	}
}

func TestChart_YearWithSingleMonth(t *testing.T) {
	srv := newTestServer(t)

	// 2021 only has March rows, so every yearly chart has a single point
	for _, id := range []string{report.YearlySales, report.MonthlySales, report.TypeSales, report.AdShare} {
		rr := get(t, srv, "/charts/"+id+".svg", selection(core.ReportYearly, "2021"))
		require.Equal(t, http.StatusOK, rr.Code, "%s body=%s", id, rr.Body.String())
		assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"), id)
	}

	body := get(t, srv, "/charts/"+report.MonthlySales+".svg", selection(core.ReportYearly, "2021")).Body.String()
	assert.Contains(t, body, "Mar")
}

func TestChart_ServedFromCache(t *testing.T) {
	srv := newTestServer(t)
	q := selection(core.ReportYearly, "2020")
	first := get(t, srv, "/charts/"+report.YearlySales+".svg", q).Body.String()
	second := get(t, srv, "/charts/"+report.YearlySales+".svg", q).Body.String()
	assert.Equal(t, first, second, "cached chart differs from first render")
	assert.Equal(t, uint64(1), srv.charts.Stats().Hits)

	_, ok := srv.charts.Get("chart:" + core.ReportYearly.Slug() + "|2020|" + report.YearlySales)
	assert.True(t, ok, "chart cached under the report slug")
}

func TestChart_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		q    url.Values
		want int
	}{
		{"unknown id", "/charts/nope.svg", selection(core.ReportYearly, "2020"), http.StatusNotFound},
		{"wrong extension", "/charts/" + report.YearlySales + ".png", selection(core.ReportYearly, "2020"), http.StatusNotFound},
		{"chart of other report", "/charts/" + report.RecessionAdShare + ".svg", selection(core.ReportYearly, "2020"), http.StatusNotFound},
		{"no selection", "/charts/" + report.YearlySales + ".svg", url.Values{}, http.StatusNotFound},
		{"empty year", "/charts/" + report.MonthlySales + ".svg", selection(core.ReportYearly, "1999"), http.StatusUnprocessableEntity},
	}

	srv := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, srv, tt.path, tt.q)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestAPIView(t *testing.T) {
	srv := newTestServer(t)
	rr := get(t, srv, "/api/view", selection(core.ReportYearly, "2020"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got struct {
		Selection core.Selection `json:"selection"`
		Charts    []struct {
			ID     string        `json:"id"`
			Series []core.Series `json:"series"`
		} `json:"charts"`
		YearSelector report.SelectorState `json:"year_selector"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))

	assert.Equal(t, core.Selection{Report: core.ReportYearly, Year: 2020}, got.Selection)
	require.Len(t, got.Charts, 4)
	require.Equal(t, report.MonthlySales, got.Charts[1].ID)
	jan := got.Charts[1].Series[0].Points[0]
	assert.Equal(t, "Jan", jan.Key)
	assert.Equal(t, 500.0, jan.Value)
	assert.False(t, got.YearSelector.Disabled, "year selector should be enabled for yearly report")
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(t, srv, path, nil)
		require.Equal(t, http.StatusOK, rr.Code, path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body), path)
		assert.NotEmpty(t, body["status"], path)
	}
}

func TestReady_WithoutDataset(t *testing.T) {
	srv := NewServer(":0", nil, Options{Logger: applog.New(applog.Config{Output: io.Discard})})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := get(t, srv, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	get(t, srv, "/ui/output", selection(core.ReportRecession, ""))

	rr := get(t, srv, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	for _, want := range []string{"http_requests_total", `cache_misses_total{type="views"} 1`, "dataset_rows 4"} {
		assert.Contains(t, body, want)
	}
}

func TestSuspiciousPathBlocked(t *testing.T) {
	srv := newTestServer(t)
	rr := get(t, srv, "/.env", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTrustedProxies(t *testing.T) {
	fromProxy := func(srv *Server, client string) int {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	t.Run("forwarded clients are limited separately", func(t *testing.T) {
		srv := newTestServerWith(t, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"192.0.2.0/24"}})
		assert.Equal(t, http.StatusOK, fromProxy(srv, "198.51.100.1"))
		assert.Equal(t, http.StatusOK, fromProxy(srv, "198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, fromProxy(srv, "198.51.100.1"))
	})

	t.Run("untrusted peer is the client", func(t *testing.T) {
		srv := newTestServerWith(t, Options{RateLimitPerMinute: 1})
		assert.Equal(t, http.StatusOK, fromProxy(srv, "198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, fromProxy(srv, "198.51.100.2"))
	})

	t.Run("invalid CIDR is skipped", func(t *testing.T) {
		srv := newTestServerWith(t, Options{RateLimitPerMinute: 1, TrustedProxies: []string{"nope", "192.0.2.0/24"}})
		assert.Equal(t, http.StatusOK, fromProxy(srv, "198.51.100.1"))
		assert.Equal(t, http.StatusOK, fromProxy(srv, "198.51.100.2"))
	})
}

func TestWithRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "Could not render chart", withRequestID(req, "Could not render chart"))

	req = req.WithContext(context.WithValue(req.Context(), trace.RequestIDKey, "abc-123"))
	assert.Equal(t, "Could not render chart (request abc-123)", withRequestID(req, "Could not render chart"))
}
