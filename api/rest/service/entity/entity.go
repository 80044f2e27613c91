// Package entity creates reference-catalog entities, typically
// offered to the caller after a missing-entity warning on import.
package entity

import (
	"context"

	"github.com/collate-cloud/collate/internal/catalog"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/pkg/db"
	"gorm.io/gorm"
)

type Entity interface {
	WithDatabase(*gorm.DB) Entity
	Create(*CreateRequest) (outcome.Report, error)
}

type entityService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Entity {
	return &entityService{
		ctx: ctx,
		db:  db.Connection(),
	}
}

func (s *entityService) WithDatabase(conn *gorm.DB) Entity {
	s.db = conn
	return s
}

type CreateRequest struct {
	Entities []catalog.EntitySpec `json:"entities"`
}

// Create persists the batch. Unsupported kinds are reported in the
// outcome before anything is written; all other failures propagate
// as errors for the controller to map.
func (s *entityService) Create(req *CreateRequest) (outcome.Report, error) {
	out := outcome.New()

	for _, spec := range req.Entities {
		if !catalog.KnownKind(spec.Model) {
			out.AddUnsupportedEntityKindError(spec.Model)
		}
	}
	if !out.IsSuccess() {
		return out.Build(), nil
	}

	if err := catalog.CreateEntities(s.db.WithContext(s.ctx), req.Entities); err != nil {
		return outcome.Report{}, err
	}

	return out.Build(), nil
}
