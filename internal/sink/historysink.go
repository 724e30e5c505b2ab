package sink

import (
	"context"

	"clipwatch/internal/history"
	"clipwatch/internal/monitor"
)

// HistorySink appends accepted changes to the in-memory ring buffer.
type HistorySink struct {
	ring *history.Ring
}

func NewHistorySink(ring *history.Ring) *HistorySink {
	return &HistorySink{ring: ring}
}

func (s *HistorySink) Name() string { return "history" }

func (s *HistorySink) OnChange(_ context.Context, ev monitor.ChangeEvent) error {
	s.ring.Append(ev)
	return nil
}

func (s *HistorySink) OnCleared(_ context.Context, ev monitor.ChangeEvent) error {
	s.ring.Append(ev)
	return nil
}
