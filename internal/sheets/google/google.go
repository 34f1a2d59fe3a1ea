// Package google reads the sales table from a Google Sheets range and serves
// it to the dataset loader as CSV.
package google

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"autosales/internal/dataset"
	applog "autosales/internal/log"
)

// DefaultRange is read when no range is configured: the first sheet, wide
// enough for every column of the published sales CSV.
const DefaultRange = "A:Z"

// Source fetches one range of a spreadsheet.
type Source struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
}

var _ dataset.Source = (*Source)(nil)

// New creates a Source using service account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, rng string) (*Source, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(rng) == "" {
		rng = DefaultRange
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Source{svc: svc, spreadsheetID: spreadsheetID, rng: rng}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service",
		applog.FieldComponent, applog.ComponentSheets,
		"credentials_size", len(credentialsJSON))

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (s *Source) Name() string {
	return fmt.Sprintf("sheets:%s!%s", s.spreadsheetID, s.rng)
}

// Open reads the range and re-encodes it as CSV, first row as header.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.rng, err)
	}
	b, err := valuesToCSV(resp.Values)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// valuesToCSV writes the value matrix as CSV. Short rows are padded to the
// header width since the API drops trailing empty cells.
func valuesToCSV(values [][]interface{}) ([]byte, error) {
	if len(values) == 0 {
		return nil, errors.New("range is empty")
	}
	width := len(values[0])

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for i, row := range values {
		rec := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			rec[j] = cellString(row[j])
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		// Sheets returns every number as float64; keep integers integral.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}
