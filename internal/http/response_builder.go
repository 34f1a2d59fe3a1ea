// Package http provides HTTP server and handler implementations.
//
// This file holds the fluent builder every dashboard response goes through:
// HTML partials, chart images, JSON and error bodies, plus the HX-Trigger
// events the page listens to.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"autosales/internal/core"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeSVG  = "image/svg+xml"
	contentTypeJSON = "application/json"
)

// Events sent in HX-Trigger.
const (
	EventViewRendered        = "view:rendered"
	EventYearSelectorChanged = "year-selector:changed"
)

// HTMXResponseBuilder accumulates status, headers, triggers and body, and
// writes them in one go. A body that fails to build turns the response into
// a 500 before anything reaches the client.
type HTMXResponseBuilder struct {
	triggers   map[string]interface{}
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]interface{}),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data interface{}) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerViewRendered tells the page what the output region now shows.
func (b *HTMXResponseBuilder) TriggerViewRendered(sel core.Selection, charts int) *HTMXResponseBuilder {
	return b.Trigger(EventViewRendered, map[string]interface{}{
		"report": string(sel.Report),
		"year":   sel.Year,
		"charts": charts,
	})
}

// TriggerYearSelector reports the new state of the year dropdown.
func (b *HTMXResponseBuilder) TriggerYearSelector(disabled bool) *HTMXResponseBuilder {
	return b.Trigger(EventYearSelectorChanged, map[string]bool{"disabled": disabled})
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the response body as bytes.
func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = contentTypeHTML
	b.body = []byte(html)
	return b
}

// Template executes the named template into the body.
func (b *HTMXResponseBuilder) Template(t *template.Template, name string, data interface{}) *HTMXResponseBuilder {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		b.err = fmt.Errorf("execute template %s: %w", name, err)
		return b
	}
	b.headers["Content-Type"] = contentTypeHTML
	b.body = buf.Bytes()
	return b
}

// SVG sets an SVG image body that browsers may cache for maxAge seconds.
func (b *HTMXResponseBuilder) SVG(svg []byte, maxAge int) *HTMXResponseBuilder {
	b.headers["Content-Type"] = contentTypeSVG
	b.headers["Cache-Control"] = fmt.Sprintf("public, max-age=%d", maxAge)
	b.body = svg
	return b
}

// JSON encodes v as the body.
func (b *HTMXResponseBuilder) JSON(v interface{}) *HTMXResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("encode json: %w", err)
		return b
	}
	b.headers["Content-Type"] = contentTypeJSON
	b.body = append(data, '\n')
	return b
}

// Err returns the error from building the body, if any.
func (b *HTMXResponseBuilder) Err() error {
	return b.err
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates an HTML error fragment that fits in the output
// region. The message is HTML-escaped.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// UnprocessableEntityError is used for charts with nothing to draw.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ServiceUnavailableError is returned while no dataset is loaded.
func ServiceUnavailableError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message).Header("Retry-After", "30")
}

// TooManyRequestsError creates the 429 body written by the rate limiter.
func TooManyRequestsError() *HTMXResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down.")
}
