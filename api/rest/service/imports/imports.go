// Package imports is the synchronous half of the import endpoint:
// it verifies an uploaded sheet, stores it together with a pending
// job and hands the job to the runner.
package imports

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/collate-cloud/collate/internal/ingest"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/internal/runner"
	"github.com/collate-cloud/collate/pkg/db"
	"github.com/collate-cloud/collate/pkg/env"
	"github.com/collate-cloud/collate/pkg/workbook"
	"gorm.io/gorm"
)

type Import interface {
	WithDatabase(*gorm.DB) Import
	WithMediaRoot(string) Import
	SetRunner(*runner.Runner)
	Create(*CreateRequest) (outcome.Report, error)
}

type importService struct {
	ctx       context.Context
	db        *gorm.DB
	mediaRoot string
	runner    *runner.Runner
}

var (
	defaultService   *importService
	defaultServiceMu sync.Mutex
)

func Service(ctx context.Context) Import {
	defaultServiceMu.Lock()
	defer defaultServiceMu.Unlock()

	if defaultService != nil {
		return &importService{
			ctx:       ctx,
			db:        defaultService.db,
			mediaRoot: defaultService.mediaRoot,
			runner:    defaultService.runner,
		}
	}

	return &importService{
		ctx:       ctx,
		db:        db.Connection(),
		mediaRoot: env.Variables().MediaRoot,
	}
}

func (s *importService) WithDatabase(conn *gorm.DB) Import {
	s.db = conn
	return s
}

func (s *importService) WithMediaRoot(root string) Import {
	s.mediaRoot = root
	return s
}

func (s *importService) SetRunner(r *runner.Runner) {
	s.runner = r
	defaultServiceMu.Lock()
	defer defaultServiceMu.Unlock()
	if defaultService == nil {
		defaultService = &importService{db: s.db, mediaRoot: s.mediaRoot}
	}
	defaultService.runner = r
}

// CreateRequest carries one import upload. Content holds the full
// sheet body so it can be parsed for verification and stored
// afterwards.
type CreateRequest struct {
	ValidationID   *uint
	ValidationName string
	Notes          string
	Date           string
	SourceFile     string
	RequesterID    uint
	ForceRun       bool
	ForceItem      bool
	ImportReason   string
	SiteURL        string
	FileName       string
	Content        []byte
}

// Create verifies the upload and, if clean, stores the sheet with a
// pending job and enqueues it. The report mirrors the verification
// outcome either way.
func (s *importService) Create(req *CreateRequest) (outcome.Report, error) {
	ireq := ingest.Request{
		ValidationID:   req.ValidationID,
		ValidationName: req.ValidationName,
		Notes:          req.Notes,
		Date:           req.Date,
		SourceFile:     req.SourceFile,
		RequesterID:    req.RequesterID,
		ForceRun:       req.ForceRun,
		ForceItem:      req.ForceItem,
		ImportReason:   req.ImportReason,
		SiteURL:        req.SiteURL,
	}

	sheet, err := workbook.Read(bytes.NewReader(req.Content), req.FileName)
	if err != nil {
		out := outcome.New()
		out.AddWorkbookError(fmt.Sprintf("Unable to read workbook: %v", err))
		return out.Build(), nil
	}

	pipeline := ingest.New(s.db, s.mediaRoot)

	v, err := pipeline.Verify(ireq, sheet)
	if err != nil {
		return outcome.Report{}, err
	}
	if !v.Out.IsSuccess() {
		return v.Out.Build(), nil
	}

	job, err := pipeline.Store(ireq, bytes.NewReader(req.Content), v)
	if err != nil {
		return outcome.Report{}, err
	}

	if s.runner != nil {
		if err := s.runner.EnqueueImport(s.ctx, job); err != nil {
			return outcome.Report{}, err
		}
	}

	return v.Out.Build(), nil
}
