package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StatsSource provides functions to retrieve current counts for gauge metrics.
// Nil functions are skipped; returning -1 indicates the source is unavailable.
type StatsSource struct {
	PendingReportCount  func() int
	HiddenCommentCount  func() int
	RateLimitCounterLen func() int
}

// StartCollector launches a goroutine that periodically updates gauge metrics.
// It runs every interval until the context is cancelled.
func StartCollector(ctx context.Context, src StatsSource, interval time.Duration) {
	// Do an initial collection immediately
	collect(src)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect(src)
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Metrics collector started")
}

func collect(src StatsSource) {
	if src.PendingReportCount != nil {
		if n := src.PendingReportCount(); n >= 0 {
			PendingReportsGauge.Set(float64(n))
		}
	}
	if src.HiddenCommentCount != nil {
		if n := src.HiddenCommentCount(); n >= 0 {
			HiddenCommentsGauge.Set(float64(n))
		}
	}
	if src.RateLimitCounterLen != nil {
		if n := src.RateLimitCounterLen(); n >= 0 {
			RateLimitCountersGauge.Set(float64(n))
		}
	}
}
