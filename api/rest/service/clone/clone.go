// Package clone validates clone requests and enqueues the
// background job that copies a validation.
package clone

import (
	"context"
	"sync"

	"github.com/collate-cloud/collate/internal/mergeclone"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/internal/runner"
	"github.com/collate-cloud/collate/pkg/db"
	"gorm.io/gorm"
)

type Clone interface {
	WithDatabase(*gorm.DB) Clone
	SetRunner(*runner.Runner)
	Create(*CreateRequest) (outcome.Report, error)
}

type cloneService struct {
	ctx    context.Context
	db     *gorm.DB
	runner *runner.Runner
}

var (
	defaultService   *cloneService
	defaultServiceMu sync.Mutex
)

func Service(ctx context.Context) Clone {
	defaultServiceMu.Lock()
	defer defaultServiceMu.Unlock()

	if defaultService != nil {
		return &cloneService{
			ctx:    ctx,
			db:     defaultService.db,
			runner: defaultService.runner,
		}
	}

	return &cloneService{
		ctx: ctx,
		db:  db.Connection(),
	}
}

func (s *cloneService) WithDatabase(conn *gorm.DB) Clone {
	s.db = conn
	return s
}

func (s *cloneService) SetRunner(r *runner.Runner) {
	s.runner = r
	defaultServiceMu.Lock()
	defer defaultServiceMu.Unlock()
	if defaultService == nil {
		defaultService = &cloneService{db: s.db}
	}
	defaultService.runner = r
}

type CreateRequest struct {
	ValidationName string `json:"validation_name"`
	Notes          string `json:"notes"`
	SourceID       uint   `json:"validation_id"`
	RequesterID    uint   `json:"requester_id"`
	SiteURL        string `json:"site_url"`
}

// Create verifies the clone preconditions and, if clean, persists
// the pending job and hands it to the runner.
func (s *cloneService) Create(req *CreateRequest) (outcome.Report, error) {
	engine := mergeclone.New(s.db)

	creq := mergeclone.CloneRequest{
		ValidationName: req.ValidationName,
		Notes:          req.Notes,
		SourceID:       req.SourceID,
		RequesterID:    req.RequesterID,
		SiteURL:        req.SiteURL,
	}

	out, err := engine.VerifyClone(creq)
	if err != nil {
		return outcome.Report{}, err
	}
	if !out.IsSuccess() {
		return out.Build(), nil
	}

	job, err := engine.CreateCloneJob(creq, out)
	if err != nil {
		return outcome.Report{}, err
	}

	if s.runner != nil {
		if err := s.runner.EnqueueClone(s.ctx, job); err != nil {
			return outcome.Report{}, err
		}
	}

	return out.Build(), nil
}
