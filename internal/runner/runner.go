// Package runner owns job execution: a pending job is picked up from
// the pool, its body runs inside one transaction capped by the
// configured time limit, and the job flips to done or failed exactly
// once. Completion fans out as a lifecycle event and a notification.
package runner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/event"
	"github.com/collate-cloud/collate/internal/ingest"
	"github.com/collate-cloud/collate/internal/mergeclone"
	"github.com/collate-cloud/collate/internal/metrics"
	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/notify"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/pkg/log"
)

// Config tunes the runner. Zero values fall back to safe defaults.
type Config struct {
	TimeLimit time.Duration
	PoolSize  int
	SiteName  string
}

// Runner dispatches and executes import, merge and clone jobs.
type Runner struct {
	db        *gorm.DB
	pipeline  *ingest.Pipeline
	engine    *mergeclone.Engine
	bus       event.Bus
	sender    notify.Sender
	pool      *Pool
	timeLimit time.Duration
	siteName  string
}

func New(db *gorm.DB, pipeline *ingest.Pipeline, engine *mergeclone.Engine, bus event.Bus, sender notify.Sender, cfg Config) *Runner {
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = 24 * time.Hour
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "Reporter"
	}

	return &Runner{
		db:        db,
		pipeline:  pipeline,
		engine:    engine,
		bus:       bus,
		sender:    sender,
		pool:      NewPool(cfg.PoolSize),
		timeLimit: cfg.TimeLimit,
		siteName:  cfg.SiteName,
	}
}

// Drain waits for every submitted job to finish.
func (r *Runner) Drain() {
	r.pool.Wait()
}

// EnqueueImport hands a stored import job to the pool.
func (r *Runner) EnqueueImport(ctx context.Context, job *models.ImportJob) error {
	r.publish(event.TypeJobCreated, event.KindImport, job.ID, job.ValidationID)
	return r.pool.Submit(ctx, func() { r.runImport(job) })
}

// EnqueueMerge hands a merge job to the pool.
func (r *Runner) EnqueueMerge(ctx context.Context, job *models.MergeJob) error {
	r.publish(event.TypeJobCreated, event.KindMerge, job.ID, 0)
	return r.pool.Submit(ctx, func() { r.runMerge(job) })
}

// EnqueueClone hands a clone job to the pool.
func (r *Runner) EnqueueClone(ctx context.Context, job *models.CloneJob) error {
	r.publish(event.TypeJobCreated, event.KindClone, job.ID, 0)
	return r.pool.Submit(ctx, func() { r.runClone(job) })
}

func (r *Runner) runImport(job *models.ImportJob) {
	r.publish(event.TypeJobStarted, event.KindImport, job.ID, job.ValidationID)
	started := time.Now()
	metrics.JobsActive.WithLabelValues(string(event.KindImport)).Inc()
	defer metrics.JobsActive.WithLabelValues(string(event.KindImport)).Dec()

	var out *outcome.Builder
	err := r.inTransaction(func(tx *gorm.DB) error {
		var err error
		out, err = r.pipeline.Run(tx, job)
		return err
	})

	name := r.validationName(job.ValidationID)
	info := notify.SuccessInfo{
		SiteName:   r.siteName,
		Kind:       "import",
		Validation: name,
		SiteURL:    job.SiteURL,
	}
	if out != nil {
		info.Added = out.Changes.Added
		info.Updated = out.Changes.Updated
		info.Skipped = out.Changes.Skipped
		if err == nil {
			metrics.RowsProcessedTotal.WithLabelValues("added").Add(float64(out.Changes.Added))
			metrics.RowsProcessedTotal.WithLabelValues("updated").Add(float64(out.Changes.Updated))
			metrics.RowsProcessedTotal.WithLabelValues("skipped").Add(float64(out.Changes.Skipped))
		}
	}

	r.finish(&models.ImportJob{}, event.KindImport, job.ID, job.ValidationID, job.RequesterID, info, started, err)
}

func (r *Runner) runMerge(job *models.MergeJob) {
	r.publish(event.TypeJobStarted, event.KindMerge, job.ID, 0)
	started := time.Now()
	metrics.JobsActive.WithLabelValues(string(event.KindMerge)).Inc()
	defer metrics.JobsActive.WithLabelValues(string(event.KindMerge)).Dec()

	err := r.inTransaction(func(tx *gorm.DB) error {
		_, err := r.engine.RunMerge(tx, job)
		return err
	})

	info := notify.SuccessInfo{
		SiteName:   r.siteName,
		Kind:       "merge",
		Validation: job.ValidationName,
		SiteURL:    job.SiteURL,
	}
	r.finish(&models.MergeJob{}, event.KindMerge, job.ID, 0, job.RequesterID, info, started, err)
}

func (r *Runner) runClone(job *models.CloneJob) {
	r.publish(event.TypeJobStarted, event.KindClone, job.ID, 0)
	started := time.Now()
	metrics.JobsActive.WithLabelValues(string(event.KindClone)).Inc()
	defer metrics.JobsActive.WithLabelValues(string(event.KindClone)).Dec()

	err := r.inTransaction(func(tx *gorm.DB) error {
		_, err := r.engine.RunClone(tx, job)
		return err
	})

	info := notify.SuccessInfo{
		SiteName:   r.siteName,
		Kind:       "clone",
		Validation: job.ValidationName,
		SiteURL:    job.SiteURL,
	}
	r.finish(&models.CloneJob{}, event.KindClone, job.ID, 0, job.RequesterID, info, started, err)
}

// inTransaction wraps the job body in one transaction capped by the
// time limit. An error rolls everything back.
func (r *Runner) inTransaction(body func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeLimit)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(body)
}

// finish performs the single pending→done|failed transition and fans
// out the event and the notification. Job failures are absorbed here;
// they never propagate past the runner.
func (r *Runner) finish(model interface{}, kind event.Kind, jobID, validationID, requesterID uint, info notify.SuccessInfo, started time.Time, jobErr error) {
	status := models.JobStatusDone
	eventType := event.TypeJobDone
	if jobErr != nil {
		log.Error("job failed", "kind", kind, "job", jobID, "error", jobErr)
		status = models.JobStatusFailed
		eventType = event.TypeJobFailed
	}

	metrics.JobRunsTotal.WithLabelValues(string(kind), string(status)).Inc()
	metrics.JobRunDurationSeconds.WithLabelValues(string(kind), string(status)).Observe(time.Since(started).Seconds())

	flipped, err := r.transition(model, jobID, status)
	if err != nil {
		log.Error("job transition failed", "kind", kind, "job", jobID, "error", err)
		return
	}
	if !flipped {
		log.Warn("job already settled", "kind", kind, "job", jobID)
		return
	}

	r.publish(eventType, kind, jobID, validationID)
	r.notify(kind, requesterID, info, jobErr)
}

// transition flips a pending job to its terminal status. The guard on
// the current status makes the transition happen at most once even if
// the sweeper races with job completion.
func (r *Runner) transition(model interface{}, id uint, to models.JobStatus) (bool, error) {
	res := r.db.Model(model).
		Where("id = ? AND status = ?", id, models.JobStatusPending).
		Update("status", to)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "updating job status")
	}
	return res.RowsAffected == 1, nil
}

func (r *Runner) notify(kind event.Kind, requesterID uint, info notify.SuccessInfo, jobErr error) {
	recipients := r.requesterEmails(requesterID)

	var msg notify.Message
	var err error
	if jobErr == nil {
		msg, err = notify.Success(info)
	} else {
		recipients = append(recipients, r.staffEmails()...)
		msg, err = notify.Failure(notify.FailureInfo{
			SiteName:   info.SiteName,
			Kind:       info.Kind,
			Validation: info.Validation,
		})
	}
	if err != nil {
		log.Error("rendering notification failed", "kind", kind, "error", err)
		return
	}

	if err := r.sender.Send(msg.Subject, msg.Body, dedupe(recipients)); err != nil {
		log.Error("sending notification failed", "kind", kind, "error", err)
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}

func (r *Runner) requesterEmails(requesterID uint) []string {
	if requesterID == 0 {
		return nil
	}

	var user models.User
	if err := r.db.First(&user, requesterID).Error; err != nil {
		log.Warn("requester lookup failed", "user", requesterID, "error", err)
		return nil
	}
	if user.Email == "" {
		return nil
	}
	return []string{user.Email}
}

func (r *Runner) staffEmails() []string {
	var emails []string
	err := r.db.Model(&models.User{}).
		Where("is_staff = ? AND email <> ''", true).
		Pluck("email", &emails).Error
	if err != nil {
		log.Warn("staff lookup failed", "error", err)
	}
	return emails
}

func (r *Runner) validationName(id uint) string {
	var validation models.Validation
	if err := r.db.First(&validation, id).Error; err != nil {
		return "<unknown>"
	}
	return validation.Name
}

func (r *Runner) publish(t event.Type, kind event.Kind, jobID, validationID uint) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(event.Event{
		Type:         t,
		Kind:         kind,
		JobID:        jobID,
		ValidationID: validationID,
	})
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
