// Package poll drives long-running external jobs through bounded polling
// with phase transitions and cooperative cancellation.
package poll

import (
	"context"
	"fmt"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Defaults reproduce the production polling envelope: a ten-minute ceiling
// on the job itself, a short screenshot sub-poll, and a fixed dwell in the
// screenshot phase before completion is signaled.
const (
	DefaultInterval           = 5 * time.Second
	DefaultMaxAttempts        = 120
	DefaultScreenshotInterval = time.Second
	DefaultScreenshotAttempts = 10
	DefaultScreenshotDwell    = 30 * time.Second
)

// Config bounds a polling task. Zero fields fall back to the defaults;
// tests shrink the durations.
type Config struct {
	Interval           time.Duration
	MaxAttempts        int
	ScreenshotInterval time.Duration
	ScreenshotAttempts int
	ScreenshotDwell    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.ScreenshotInterval <= 0 {
		c.ScreenshotInterval = DefaultScreenshotInterval
	}
	if c.ScreenshotAttempts <= 0 {
		c.ScreenshotAttempts = DefaultScreenshotAttempts
	}
	if c.ScreenshotDwell <= 0 {
		c.ScreenshotDwell = DefaultScreenshotDwell
	}
	return c
}

// StatusFunc fetches the current state of a job from its owner.
type StatusFunc func(ctx context.Context, jobID string) (*domain.Job, error)

// Await polls the job on a fixed interval until it reaches a terminal
// status or the attempt ceiling is exhausted. A transport error while
// fetching is transient: it consumes an attempt and the loop continues. The
// two terminal failures stay distinct: a job-reported failure surfaces the
// job's own message, an exhausted ceiling surfaces a poll timeout.
func Await(ctx context.Context, cfg Config, jobID string, status StatusFunc, logger infra.Logger) (*domain.Job, error) {
	cfg = cfg.withDefaults()
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		job, err := status(ctx, jobID)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str("job_id", jobID).Int("attempt", attempt).
				Msg("poller: status fetch failed, retrying")
		case job.Status == domain.JobStatusFailed:
			detail := job.ErrorMessage
			if detail == "" {
				detail = "the generation job failed"
			}
			return job, domain.NewFailure(domain.FailureJobReported, detail, nil)
		case job.Status == domain.JobStatusCompleted:
			return job, nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, cfg.Interval); err != nil {
			return nil, err
		}
	}
	return nil, domain.NewFailure(domain.FailurePollTimeout,
		fmt.Sprintf("job %s still processing after %d attempts", jobID, cfg.MaxAttempts), nil)
}

// sleep waits for d or until the context is torn down.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
