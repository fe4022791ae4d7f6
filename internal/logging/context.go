package logging

import (
	"context"
	"log/slog"

	"audiomason/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSource is the standardized key for the inbox source being imported.
	FieldSource = "source"
	// FieldBook is the standardized key for book labels.
	FieldBook = "book"
	// FieldStage is the standardized key for import phase names.
	FieldStage = "stage"
	// FieldCorrelationID carries the run id.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if name, ok := services.SourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSource, name))
	}
	if label, ok := services.BookFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBook, label))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
