package runner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"

	"github.com/collate-cloud/collate/internal/event"
	"github.com/collate-cloud/collate/internal/metrics"
	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/pkg/log"
)

// Sweep fails every pending job older than the time limit. It covers
// jobs orphaned by a crash mid-execution; a job that finishes
// normally wins the status guard race against the sweeper.
func (r *Runner) Sweep() {
	cutoff := time.Now().Add(-r.timeLimit)

	tables := []struct {
		kind  event.Kind
		model interface{}
	}{
		{event.KindImport, &models.ImportJob{}},
		{event.KindMerge, &models.MergeJob{}},
		{event.KindClone, &models.CloneJob{}},
	}

	for _, table := range tables {
		var ids []uint
		err := r.db.Model(table.model).
			Where("status = ? AND created_at < ?", models.JobStatusPending, cutoff).
			Pluck("id", &ids).Error
		if err != nil {
			log.Error("sweep lookup failed", "kind", table.kind, "error", err)
			continue
		}

		for _, id := range ids {
			flipped, err := r.transition(table.model, id, models.JobStatusFailed)
			if err != nil {
				log.Error("sweep transition failed", "kind", table.kind, "job", id, "error", err)
				continue
			}
			if flipped {
				log.Warn("expired job failed by sweeper", "kind", table.kind, "job", id)
				metrics.JobsSweptTotal.WithLabelValues(string(table.kind)).Inc()
				r.publish(event.TypeJobFailed, table.kind, id, 0)
			}
		}
	}
}

// StartSweeper runs Sweep on the cron schedule until the context
// ends. The schedule uses six fields, seconds first.
func (r *Runner) StartSweeper(ctx context.Context, schedule string) error {
	parser := cron.NewParser(
		cron.Second |
			cron.Minute |
			cron.Hour |
			cron.Dom |
			cron.Month |
			cron.Dow,
	)

	sched, err := parser.Parse(schedule)
	if err != nil {
		return errors.Wrap(err, "parsing sweep schedule")
	}

	go func() {
		for {
			select {
			case <-time.After(time.Until(sched.Next(time.Now()))):
				r.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}
