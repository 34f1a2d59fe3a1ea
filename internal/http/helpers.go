package http

import (
	"net/http"

	"autosales/internal/core"
	applog "autosales/internal/log"
	"autosales/internal/middleware/trace"
	"autosales/internal/report"
)

type reportOption struct {
	Value    string
	Selected bool
}

type chartCell struct {
	ID    string
	Title string
	Src   string
	Empty bool
}

type outputData struct {
	Prompt string
	Rows   [][]chartCell
}

type indexData struct {
	Title    string
	Reports  []reportOption
	Selector report.SelectorState
	Output   outputData
}

func (s *Server) templatesReady(w http.ResponseWriter, r *http.Request) bool {
	if s.templates != nil {
		return true
	}
	s.logger.ErrorContext(r.Context(), "Templates not loaded",
		applog.FieldPath, r.URL.Path,
		applog.FieldComponent, applog.ComponentTemplate,
		applog.FieldErrorType, applog.ErrorTypeConfiguration)
	http.Error(w, "templates not loaded", http.StatusInternalServerError)
	return false
}

// datasetReady writes a 503 when no rows are loaded.
func (s *Server) datasetReady(w http.ResponseWriter, r *http.Request) bool {
	if s.dataset.Len() > 0 {
		return true
	}
	s.logger.WarnContext(r.Context(), "Request before dataset loaded", applog.FieldPath, r.URL.Path)
	ServiceUnavailableError("The sales dataset is not loaded yet.").Write(w)
	return false
}

// writePartial renders the named template through b, logging template
// failures.
func (s *Server) writePartial(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data interface{}) {
	b.Template(s.templates, name, data)
	if err := b.Err(); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			applog.FieldComponent, applog.ComponentTemplate,
			"template", name)
	}
	b.Write(w)
}

// output lays out the view for the output template.
func (s *Server) output(view core.View) outputData {
	if !view.HasCharts() {
		return outputData{Prompt: view.Prompt}
	}
	sel := view.Selection.Normalized()
	query := SelectionQuery(sel).Encode()

	var rows [][]chartCell
	for _, row := range view.Rows() {
		cells := make([]chartCell, 0, len(row))
		for _, spec := range row {
			cells = append(cells, chartCell{
				ID:    spec.ID,
				Title: spec.Title,
				Src:   chartURL(spec.ID, query),
				Empty: spec.Empty(),
			})
		}
		rows = append(rows, cells)
	}
	return outputData{Rows: rows}
}

func reportOptions(selected core.ReportType) []reportOption {
	types := core.ReportTypes()
	opts := make([]reportOption, 0, len(types))
	for _, t := range types {
		opts = append(opts, reportOption{Value: string(t), Selected: t == selected})
	}
	return opts
}

// chartURL is the image source of one chart for an encoded selection query.
func chartURL(id, query string) string {
	u := "/charts/" + id + ".svg"
	if query != "" {
		u += "?" + query
	}
	return u
}

// withRequestID appends the request id to a user facing error so it can be
// matched with the server logs.
func withRequestID(r *http.Request, msg string) string {
	if id := trace.GetRequestID(r.Context()); id != "" {
		return msg + " (request " + id + ")"
	}
	return msg
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	NewHTMXResponse().Status(status).JSON(v).Write(w)
}
