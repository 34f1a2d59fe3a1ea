package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"autosales/internal/cache"
	"autosales/internal/chart"
	"autosales/internal/core"
	applog "autosales/internal/log"
	"autosales/internal/middleware/trace"
	"autosales/internal/report"
)

// Title is the dashboard heading.
const Title = "Automobile Sales Statistics Dashboard"

// chartMaxAge is how long browsers may keep a chart image. The dataset never
// changes while the process runs.
const chartMaxAge = 3600

// errUnknownChart means the chart id is not part of the selection's view.
var errUnknownChart = errors.New("unknown chart")

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports ready once the dataset and templates are loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.dataset == nil || s.dataset.Len() == 0 {
		checks["dataset"] = "failed: dataset not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["dataset"] = map[string]interface{}{
			"rows":      s.dataset.Len(),
			"source":    s.dataset.Source(),
			"loaded_at": s.dataset.LoadedAt().Format(time.RFC3339),
		}
	}

	checks["cache"] = map[string]interface{}{
		"views":  s.views.Stats(),
		"charts": s.charts.Stats(),
	}
	checks["rate_limiter"] = s.limiter.GetMetrics()

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, cache and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	views := s.views.Stats()
	charts := s.charts.Stats()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total{type=\"views\"} %d\n", views.Hits)
	fmt.Fprintf(w, "cache_hits_total{type=\"charts\"} %d\n\n", charts.Hits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total{type=\"views\"} %d\n", views.Misses)
	fmt.Fprintf(w, "cache_misses_total{type=\"charts\"} %d\n\n", charts.Misses)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"views\"} %d\n", views.Size)
	fmt.Fprintf(w, "cache_entries{type=\"charts\"} %d\n\n", charts.Size)

	fmt.Fprintf(w, "# HELP rate_limit_rejected_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejected_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n\n", rateLimitMetrics.Rejected)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP dataset_rows Rows in the loaded dataset\n")
	fmt.Fprintf(w, "# TYPE dataset_rows gauge\n")
	fmt.Fprintf(w, "dataset_rows %d\n\n", s.dataset.Len())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", time.Since(s.started).Seconds())
}

// handleIndex renders the full page with no report picked: the year
// dropdown disabled at its default year and the prompt in the output region.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.templatesReady(w, r) {
		return
	}

	sel := core.Selection{Year: core.DefaultYear}
	view, err := s.view(r.Context(), sel)
	if err != nil {
		s.logger.LogError(r.Context(), "Initial view render failed", err, applog.OpRender, applog.ErrorTypeInternal)
		InternalServerError(withRequestID(r, "Could not render the dashboard")).Write(w)
		return
	}

	data := indexData{
		Title:    Title,
		Reports:  reportOptions(sel.Report),
		Selector: report.YearSelector(sel.Report, sel.Year),
		Output:   s.output(view),
	}

	s.writePartial(w, r, NewHTMXResponse(), "index.html", data)
}

// handleYearSelect re-renders the year dropdown for the chosen report type.
func (s *Server) handleYearSelect(w http.ResponseWriter, r *http.Request) {
	if !s.templatesReady(w, r) {
		return
	}

	sel := ParseSelection(r.URL.Query())
	state := report.YearSelector(sel.Report, sel.Year)

	s.writePartial(w, r, NewHTMXResponse().TriggerYearSelector(state.Disabled), "year_select", state)
}

// handleOutput re-renders the output region: the prompt or the chart grid.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	if !s.templatesReady(w, r) || !s.datasetReady(w, r) {
		return
	}

	start := time.Now()
	sel := ParseSelection(r.URL.Query())
	view, err := s.view(r.Context(), sel)
	if err != nil {
		s.logger.LogError(r.Context(), "View render failed", err, applog.OpRender, applog.ErrorTypeInternal)
		InternalServerError(withRequestID(r, "Could not compute the report")).Write(w)
		return
	}
	applog.LogRender(r.Context(), string(sel.Report), sel.Year, len(view.Charts), time.Since(start).Milliseconds())

	s.writePartial(w, r, NewHTMXResponse().TriggerViewRendered(view.Selection, len(view.Charts)), "output", s.output(view))
}

// handleChart serves one chart of the selection's view as SVG.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !s.datasetReady(w, r) {
		return
	}
	id, ok := parseChartFile(r.PathValue("file"))
	if !ok {
		NotFoundError("Unknown chart").Write(w)
		return
	}
	sel := ParseSelection(r.URL.Query())

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	svg, err := s.chartSVG(ctx, sel, id)
	switch {
	case err == nil:
	case errors.Is(err, errUnknownChart):
		NotFoundError("Unknown chart").Write(w)
		return
	case errors.Is(err, chart.ErrNoData):
		UnprocessableEntityError("No data for this chart").Write(w)
		return
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.LogError(r.Context(), "Chart render timed out", err, applog.OpRender, applog.ErrorTypeTimeout)
		ErrorResponse(http.StatusGatewayTimeout, withRequestID(r, "Chart render timed out")).Write(w)
		return
	default:
		s.logger.LogError(r.Context(), "Chart render failed", err, applog.OpRender, applog.ErrorTypeInternal)
		InternalServerError(withRequestID(r, "Could not render chart")).Write(w)
		return
	}

	NewHTMXResponse().SVG(svg, chartMaxAge).Write(w)
}

// viewResponse is the JSON shape of /api/view.
type viewResponse struct {
	core.View
	YearSelector report.SelectorState `json:"year_selector"`
}

// handleAPIView returns the view model, aggregate tables included, as JSON.
func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	if s.dataset.Len() == 0 {
		NewHTMXResponse().Status(http.StatusServiceUnavailable).
			JSON(map[string]string{"error": "dataset not loaded"}).Write(w)
		return
	}
	sel := ParseSelection(r.URL.Query())
	view, err := s.view(r.Context(), sel)
	if err != nil {
		s.logger.LogError(r.Context(), "View render failed", err, applog.OpRender, applog.ErrorTypeInternal)
		NewHTMXResponse().Status(http.StatusInternalServerError).
			JSON(map[string]string{"error": "could not compute the report", "request_id": trace.GetRequestID(r.Context())}).Write(w)
		return
	}
	NewHTMXResponse().JSON(viewResponse{
		View:         view,
		YearSelector: report.YearSelector(sel.Report, sel.Year),
	}).Write(w)
}

// view returns the rendered view for sel, computing it at most once per
// cache lifetime.
func (s *Server) view(ctx context.Context, sel core.Selection) (core.View, error) {
	sel = sel.Normalized()
	key := "view:" + cache.ChartKey(sel.Report.Slug(), sel.Year, "")
	if v, ok := s.views.Get(key); ok {
		return v, nil
	}

	res, err, _ := s.renders.Do(key, func() (interface{}, error) {
		return report.Render(s.dataset, sel)
	})
	if err != nil {
		return core.View{}, err
	}
	v := res.(core.View)
	s.views.Set(key, v)
	applog.FromContext(ctx).DebugContext(ctx, "View computed",
		applog.NewFields().WithSelection(string(sel.Report), sel.Year).ToSlice()...)
	return v, nil
}

// chartSVG renders chart id of sel's view, sharing in-flight renders and
// caching the bytes.
func (s *Server) chartSVG(ctx context.Context, sel core.Selection, id string) ([]byte, error) {
	sel = sel.Normalized()
	key := "chart:" + cache.ChartKey(sel.Report.Slug(), sel.Year, id)
	if b, ok := s.charts.Get(key); ok {
		applog.FromContext(ctx).DebugContext(ctx, "Chart served",
			applog.NewFields().WithSelection(string(sel.Report), sel.Year).WithChart(id, "", true).ToSlice()...)
		return b, nil
	}

	ch := s.renders.DoChan(key, func() (interface{}, error) {
		view, err := s.view(ctx, sel)
		if err != nil {
			return nil, err
		}
		spec, ok := view.Chart(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnknownChart, id)
		}
		start := time.Now()
		var buf bytes.Buffer
		if err := chart.Render(spec, &buf); err != nil {
			return nil, err
		}
		s.charts.Set(key, buf.Bytes())
		fields := applog.NewFields().
			WithSelection(string(sel.Report), sel.Year).
			WithChart(spec.ID, string(spec.Kind), false)
		fields[applog.FieldDuration] = time.Since(start).Milliseconds()
		applog.FromContext(ctx).DebugContext(ctx, "Chart rendered", fields.ToSlice()...)
		return buf.Bytes(), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
