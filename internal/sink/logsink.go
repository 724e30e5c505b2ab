package sink

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"clipwatch/internal/monitor"
	logx "clipwatch/pkg/logx"
)

// LogSink writes accepted changes to the structured log. A rate limiter
// keeps a clipboard storm (rapid programmatic copies) from flooding output;
// suppressed events are counted, not logged.
type LogSink struct {
	log        logx.Logger
	lim        *rate.Limiter
	previewLen int
	suppressed uint64
}

func NewLogSink(log logx.Logger, ratePerSec int, previewLen int) *LogSink {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	if previewLen <= 0 {
		previewLen = defaultPreviewRune
	}
	return &LogSink{
		log:        log,
		lim:        rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		previewLen: previewLen,
	}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) OnChange(_ context.Context, ev monitor.ChangeEvent) error {
	if !s.lim.Allow() {
		s.suppressed++
		return nil
	}
	s.log.Info("clipboard changed",
		logx.String("preview", preview(ev.Snapshot.Content, s.previewLen)),
		logx.Int("length", ev.Snapshot.Len()),
		logx.Int("prev_length", ev.Previous.Len()),
		logx.Time("detected_at", ev.DetectedAt),
	)
	return nil
}

func (s *LogSink) OnCleared(_ context.Context, ev monitor.ChangeEvent) error {
	if !s.lim.Allow() {
		s.suppressed++
		return nil
	}
	s.log.Info("clipboard cleared",
		logx.Int("prev_length", ev.Previous.Len()),
		logx.Time("detected_at", ev.DetectedAt),
	)
	return nil
}

// preview flattens whitespace and caps length so multi-line pastes stay on
// one log line.
func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
