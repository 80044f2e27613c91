// Package validation lists validations with their aggregate
// counters.
package validation

import (
	"context"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/pkg/db"
	"gorm.io/gorm"
)

type Validation interface {
	WithDatabase(*gorm.DB) Validation
	List(*ListRequest) (models.Validations, error)
	Get(uint) (*models.Validation, error)
	Delete(*DeleteRequest) error
}

type validationService struct {
	ctx context.Context
	db  *gorm.DB
}

func Service(ctx context.Context) Validation {
	return &validationService{
		ctx: ctx,
		db:  db.Connection(),
	}
}

func (s *validationService) WithDatabase(conn *gorm.DB) Validation {
	s.db = conn
	return s
}

type ListRequest struct {
	Limit   uint64
	Offset  uint64
	OrderBy []string
	Name    string
}

func (s *validationService) List(req *ListRequest) (models.Validations, error) {
	var (
		validations = make(models.Validations, 0)
		q           = s.db.WithContext(s.ctx).Where("ignore = ?", false)
	)

	if req.Name != "" {
		q = q.Where("name = ?", req.Name)
	}

	for _, orderBy := range req.OrderBy {
		q = q.Order(orderBy)
	}

	if req.Limit > 0 {
		q = q.Limit(int(req.Limit))
	}

	if req.Offset > 0 {
		q = q.Offset(int(req.Offset))
	}

	return validations, q.Find(&validations).Error
}

func (s *validationService) Get(id uint) (*models.Validation, error) {
	var (
		v = &models.Validation{}
		q = s.db.WithContext(s.ctx)
	)

	return v, q.First(v, id).Error
}

type DeleteRequest struct {
	ID   uint
	Hard bool
}

// Delete removes a validation. The default soft deletion flips the
// ignore flag so the validation drops out of listings but keeps its
// results. Hard deletion removes the validation together with its
// results, their audit and feature rows, and any run left without
// results afterwards.
func (s *validationService) Delete(req *DeleteRequest) error {
	q := s.db.WithContext(s.ctx)

	if !req.Hard {
		res := q.Model(&models.Validation{}).
			Where("id = ?", req.ID).
			Update("ignore", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}

	return q.Transaction(func(tx *gorm.DB) error {
		var v models.Validation
		if err := tx.First(&v, req.ID).Error; err != nil {
			return err
		}

		var resultIDs []uint
		err := tx.Model(&models.Result{}).
			Where("validation_id = ?", v.ID).
			Pluck("id", &resultIDs).Error
		if err != nil {
			return err
		}

		var runIDs []uint
		err = tx.Model(&models.Result{}).
			Where("validation_id = ?", v.ID).
			Distinct("run_id").
			Pluck("run_id", &runIDs).Error
		if err != nil {
			return err
		}

		if len(resultIDs) > 0 {
			if err := tx.Where("result_id IN ?", resultIDs).Delete(&models.ResultHistory{}).Error; err != nil {
				return err
			}
			if err := tx.Where("result_id IN ?", resultIDs).Delete(&models.ResultFeature{}).Error; err != nil {
				return err
			}
			if err := tx.Where("validation_id = ?", v.ID).Delete(&models.Result{}).Error; err != nil {
				return err
			}
		}

		for _, runID := range runIDs {
			var remaining int64
			if err := tx.Model(&models.Result{}).Where("run_id = ?", runID).Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.Delete(&models.Run{}, runID).Error; err != nil {
					return err
				}
			}
		}

		return tx.Delete(&models.Validation{}, v.ID).Error
	})
}
