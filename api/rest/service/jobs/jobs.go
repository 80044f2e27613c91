// Package jobs reads back the state of background jobs so callers
// can poll an enqueued import, merge or clone.
package jobs

import (
	"context"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/pkg/db"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrUnknownKind rejects job kinds outside import, merge and clone.
var ErrUnknownKind = errors.New("unknown job kind")

type Jobs interface {
	WithDatabase(*gorm.DB) Jobs
	Get(kind string, id uint) (interface{}, error)
}

type jobService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Jobs {
	return &jobService{
		ctx: ctx,
		db:  db.Connection(),
	}
}

func (s *jobService) WithDatabase(conn *gorm.DB) Jobs {
	s.db = conn
	return s
}

// Get fetches one job row by kind and id.
func (s *jobService) Get(kind string, id uint) (interface{}, error) {
	q := s.db.WithContext(s.ctx)

	switch kind {
	case "import":
		job := &models.ImportJob{}
		return job, q.First(job, id).Error
	case "merge":
		job := &models.MergeJob{}
		return job, q.First(job, id).Error
	case "clone":
		job := &models.CloneJob{}
		return job, q.First(job, id).Error
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
}
