package recorder

import "SP500Tracker/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRefresh(_ *model.Snapshot) error { return nil }
func (n *NoopRecorder) History(_ int) ([]model.RefreshSummary, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
