package report

import (
	"context"
	"fmt"

	"puppethook/internal/store"
)

// DispatchRecorder persists dispatch records.
type DispatchRecorder interface {
	RecordDispatch(ctx context.Context, record *store.DispatchRecord) (int64, error)
}

// HistorySink writes each event to the dispatch history.
type HistorySink struct {
	recorder DispatchRecorder
}

func NewHistorySink(recorder DispatchRecorder) *HistorySink {
	return &HistorySink{recorder: recorder}
}

func (h *HistorySink) Name() string { return "history" }

func (h *HistorySink) Report(ctx context.Context, event StatusEvent) error {
	record := &store.DispatchRecord{
		Target:          event.Target,
		Kind:            event.Kind,
		Mode:            event.Mode,
		Status:          event.Status,
		StatusCode:      event.StatusCode,
		Message:         event.Message,
		DurationSeconds: event.Elapsed.Seconds(),
		CreatedAt:       event.Timestamp,
	}
	if event.CommitSHA != "" {
		sha := event.CommitSHA
		record.CommitHash = &sha
	}

	if _, err := h.recorder.RecordDispatch(ctx, record); err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}
