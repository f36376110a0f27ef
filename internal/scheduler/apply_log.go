package scheduler

import (
	"context"
	"fmt"
	"time"
)

const (
	ApplyLogPruneJobName = "theme_apply_log_prune"
	applyLogPruneTimeout = 2 * time.Minute
)

// ApplyLogPruner deletes apply log records created before cutoff.
type ApplyLogPruner interface {
	PruneApplies(ctx context.Context, cutoff time.Time) (int64, error)
}

// RegisterApplyLogPrune removes apply log records older than retention on cronExpr.
func RegisterApplyLogPrune(s *Service, pruner ApplyLogPruner, cronExpr string, retention time.Duration) error {
	if pruner == nil {
		return fmt.Errorf("apply log prune requires a pruner")
	}
	if retention <= 0 {
		return fmt.Errorf("apply log retention must be positive")
	}

	_, err := s.AddJob(ApplyLogPruneJobName, cronExpr, func() {
		jobLogger := s.logger.With().
			Str("job_name", ApplyLogPruneJobName).
			Dur("retention", retention).
			Logger()
		ctx, cancel := context.WithTimeout(context.Background(), applyLogPruneTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		cutoff := time.Now().UTC().Add(-retention)
		removed, err := pruner.PruneApplies(ctx, cutoff)
		if err != nil {
			jobLogger.Error().Err(err).Time("cutoff", cutoff).Msg("Failed to prune theme apply log")
			return
		}
		jobLogger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Theme apply log pruned")
	})
	if err != nil {
		return fmt.Errorf("register apply log prune: %w", err)
	}
	return nil
}
