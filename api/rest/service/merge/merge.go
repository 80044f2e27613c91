// Package merge validates merge requests and enqueues the
// background job that builds the target validation.
package merge

import (
	"context"
	"sync"

	"github.com/collate-cloud/collate/internal/mergeclone"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/internal/runner"
	"github.com/collate-cloud/collate/pkg/db"
	"gorm.io/gorm"
)

type Merge interface {
	WithDatabase(*gorm.DB) Merge
	SetRunner(*runner.Runner)
	Create(*CreateRequest) (outcome.Report, error)
}

type mergeService struct {
	ctx    context.Context
	db     *gorm.DB
	runner *runner.Runner
}

var (
	defaultService   *mergeService
	defaultServiceMu sync.Mutex
)

func Service(ctx context.Context) Merge {
	defaultServiceMu.Lock()
	defer defaultServiceMu.Unlock()

	if defaultService != nil {
		return &mergeService{
			ctx:    ctx,
			db:     defaultService.db,
			runner: defaultService.runner,
		}
	}

	return &mergeService{
		ctx: ctx,
		db:  db.Connection(),
	}
}

func (s *mergeService) WithDatabase(conn *gorm.DB) Merge {
	s.db = conn
	return s
}

func (s *mergeService) SetRunner(r *runner.Runner) {
	s.runner = r
	defaultServiceMu.Lock()
	defer defaultServiceMu.Unlock()
	if defaultService == nil {
		defaultService = &mergeService{db: s.db}
	}
	defaultService.runner = r
}

type CreateRequest struct {
	ValidationName string `json:"validation_name"`
	Notes          string `json:"notes"`
	Strategy       string `json:"strategy"`
	SourceIDs      []uint `json:"validation_ids"`
	RequesterID    uint   `json:"requester_id"`
	SiteURL        string `json:"site_url"`
}

// Create verifies the merge preconditions and, if clean, persists
// the pending job and hands it to the runner.
func (s *mergeService) Create(req *CreateRequest) (outcome.Report, error) {
	engine := mergeclone.New(s.db)

	mreq := mergeclone.MergeRequest{
		ValidationName: req.ValidationName,
		Notes:          req.Notes,
		Strategy:       req.Strategy,
		SourceIDs:      req.SourceIDs,
		RequesterID:    req.RequesterID,
		SiteURL:        req.SiteURL,
	}

	out, err := engine.VerifyMerge(mreq)
	if err != nil {
		return outcome.Report{}, err
	}
	if !out.IsSuccess() {
		return out.Build(), nil
	}

	job, err := engine.CreateMergeJob(mreq, out)
	if err != nil {
		return outcome.Report{}, err
	}

	if s.runner != nil {
		if err := s.runner.EnqueueMerge(s.ctx, job); err != nil {
			return outcome.Report{}, err
		}
	}

	return out.Build(), nil
}
