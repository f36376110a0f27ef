package scheduler

import (
	"fmt"
	"time"
)

const CacheSweepJobName = "theme_cache_sweep"

// CacheSweeper drops expired theme cache entries and reports how many it removed.
type CacheSweeper interface {
	SweepCaches() int
}

// RegisterCacheSweep runs sweeper every interval.
func RegisterCacheSweep(s *Service, sweeper CacheSweeper, interval time.Duration) error {
	if sweeper == nil {
		return fmt.Errorf("cache sweep requires a sweeper")
	}

	_, err := s.AddIntervalJob(CacheSweepJobName, interval, func() {
		start := time.Now()
		removed := sweeper.SweepCaches()
		event := s.logger.Debug()
		if removed > 0 {
			event = s.logger.Info()
		}
		event.
			Str("job_name", CacheSweepJobName).
			Int("removed", removed).
			Dur("duration", time.Since(start)).
			Msg("Theme cache sweep finished")
	})
	if err != nil {
		return fmt.Errorf("register cache sweep: %w", err)
	}
	return nil
}
