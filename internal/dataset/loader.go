package dataset

import (
	"context"
	"log/slog"
	"time"

	"autosales/internal/core"
	applog "autosales/internal/log"
)

// Load reads and parses the dataset from src once. Any failure is reported
// as a *core.DataLoadError.
func Load(ctx context.Context, src Source) (*Dataset, error) {
	start := time.Now()
	logger := slog.Default().With(applog.FieldComponent, applog.ComponentDataset)
	logger.InfoContext(ctx, "Loading dataset", applog.FieldSource, src.Name())

	rc, err := src.Open(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Dataset fetch failed", applog.FieldSource, src.Name(), applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeNetwork)
		return nil, &core.DataLoadError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	ds, err := Parse(rc)
	if err != nil {
		logger.ErrorContext(ctx, "Dataset parse failed", applog.FieldSource, src.Name(), applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeValidation)
		return nil, &core.DataLoadError{Source: src.Name(), Err: err}
	}
	if ds.Len() == 0 {
		logger.ErrorContext(ctx, "Dataset is empty", applog.FieldSource, src.Name())
		return nil, &core.DataLoadError{Source: src.Name(), Err: errEmpty}
	}
	ds.source = src.Name()

	fields := applog.NewFields().
		WithDataset(ds.source, ds.Len()).
		WithOperation(applog.OpLoad)
	fields["years"] = len(ds.Years())
	fields[applog.FieldDuration] = time.Since(start).Milliseconds()
	logger.InfoContext(ctx, "Dataset loaded", fields.ToSlice()...)
	return ds, nil
}
