// Package ingest drives sheet imports: the synchronous verification
// of an uploaded sheet against the reference catalog, storage of the
// upload under the media root, and the background row loop that lands
// Results into a Validation.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/catalog"
	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/internal/reconcile"
	"github.com/collate-cloud/collate/pkg/log"
	"github.com/collate-cloud/collate/pkg/workbook"
)

// Request carries the caller-supplied parameters of one import.
// Either ValidationID selects an existing validation, or
// ValidationName plus the sheet's dimension columns compose a new
// one.
type Request struct {
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
}

// Verification is the product of the synchronous phase: the outcome
// so far, the resolved (possibly transient) validation and the
// column mapping.
type Verification struct {
	Out        *outcome.Builder
	Validation *models.Validation
	Mapping    *Mapping
}

// Pipeline is the import engine. One instance is shared; per-import
// state lives in Verification and in the job row.
type Pipeline struct {
	db        *gorm.DB
	mediaRoot string
}

func New(db *gorm.DB, mediaRoot string) *Pipeline {
	return &Pipeline{db: db, mediaRoot: mediaRoot}
}

// Verify runs the synchronous phase over an uploaded sheet: column
// mapping, validation resolution, a dry pass over every data row and
// the per-dimension ambiguity check. Nothing is written.
func (p *Pipeline) Verify(req Request, sheet workbook.Sheet) (*Verification, error) {
	out := outcome.New()
	v := &Verification{Out: out}

	mapping := MapColumns(sheet, out)
	if mapping == nil {
		return v, nil
	}
	v.Mapping = mapping

	cache := catalog.NewCache(p.db)

	validation, err := p.buildValidation(req, mapping, cache, out)
	if err != nil {
		return nil, err
	}
	v.Validation = validation

	err = workbook.DataRows(sheet.Rows(), func(row []string) error {
		_, err := reconcile.NewBuilder(cache, out, validation, mapping.Record(row)).Verify(req.ForceRun)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, key := range []string{colOsFamily, colOsVersion, colEnvName, colPlatformName} {
		values := mapping.DistinctValues(key)
		if len(values) > 1 {
			caption := captionOf[key]
			out.AddAmbiguousColumnError(caption, values)
			out.AddWarning(fmt.Sprintf("Column '%s' contains several distinct values.", caption))
		}
	}

	return v, nil
}

// buildValidation resolves the target validation: by id when given,
// otherwise composed from the request fields and the dimensions of
// the sheet's first data row.
func (p *Pipeline) buildValidation(req Request, mapping *Mapping, cache *catalog.Cache, out *outcome.Builder) (*models.Validation, error) {
	if req.ValidationID != nil {
		var validation models.Validation
		err := p.db.First(&validation, *req.ValidationID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out.AddInvalidValidationError(fmt.Sprintf("Validation with id %d does not exist.", *req.ValidationID))
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "loading validation")
		}
		return &validation, nil
	}

	if strings.TrimSpace(req.ValidationName) == "" {
		out.AddEmptyValidationNameError()
		return nil, nil
	}

	var date *time.Time
	if req.Date != "" {
		if ts, err := reconcile.ParseTimestamp(req.Date); err != nil {
			out.AddDateFormatError("date", req.Date)
		} else {
			date = &ts
		}
	}

	row, ok := mapping.sheet.Rows().Next()
	if !ok || workbook.Empty(row) {
		out.AddWorkbookError(fmt.Sprintf("Worksheet '%s' is empty.", mapping.sheet.Title()))
		return nil, nil
	}

	builder := reconcile.NewBuilder(cache, out, nil, mapping.Record(row))
	clean, err := builder.Verify(true)
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, nil
	}
	envRef, platform, osRef := builder.Dimensions()

	var count int64
	err = p.db.Model(&models.Validation{}).
		Where("name = ? AND env_id = ? AND platform_id = ? AND os_id = ?",
			req.ValidationName, envRef.ID, platform.ID, osRef.ID).
		Count(&count).Error
	if err != nil {
		return nil, errors.Wrap(err, "checking validation uniqueness")
	}
	if count > 0 {
		out.AddExistingValidationError("Validation with such parameters already exists", map[string]string{
			"name":     req.ValidationName,
			"env":      envRef.Name,
			"platform": platform.Name,
			"os":       osRef.Name,
		})
		return nil, nil
	}

	var owner *uint
	if req.RequesterID != 0 {
		owner = &req.RequesterID
	}

	return &models.Validation{
		Name:       req.ValidationName,
		EnvID:      envRef.ID,
		PlatformID: platform.ID,
		OsID:       osRef.ID,
		Notes:      req.Notes,
		SourceFile: req.SourceFile,
		Date:       date,
		OwnerID:    owner,
	}, nil
}

// Store copies the verified upload under the media root and creates
// the pending job row. A transient validation is persisted here so
// the job can reference it.
func (p *Pipeline) Store(req Request, src io.Reader, v *Verification) (*models.ImportJob, error) {
	dir := filepath.Join(p.mediaRoot, "sheets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media directory")
	}

	path := filepath.Join(dir, uuid.NewString()+".csv")
	dst, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating stored sheet")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return nil, errors.Wrap(err, "storing sheet")
	}
	if err := dst.Close(); err != nil {
		return nil, errors.Wrap(err, "closing stored sheet")
	}

	if v.Validation.ID == 0 {
		if err := p.db.Create(v.Validation).Error; err != nil {
			return nil, errors.Wrap(err, "creating validation")
		}
	}

	job := &models.ImportJob{
		Status:       models.JobStatusPending,
		RequesterID:  req.RequesterID,
		Path:         path,
		ValidationID: v.Validation.ID,
		ForceRun:     req.ForceRun,
		ForceItem:    req.ForceItem,
		ImportReason: req.ImportReason,
		SiteURL:      req.SiteURL,
	}
	if err := p.db.Create(job).Error; err != nil {
		return nil, errors.Wrap(err, "creating import job")
	}

	v.Out.JobID = job.ID
	return job, nil
}

// Run executes the background phase of one import inside the given
// transaction: re-open the stored sheet, land every row, recompute
// the validation aggregates and drop the upload. A returned error
// fails the job and rolls the transaction back.
func (p *Pipeline) Run(tx *gorm.DB, job *models.ImportJob) (*outcome.Builder, error) {
	out := outcome.New()
	out.JobID = job.ID
	out.TrackChanges = true

	sheet, err := workbook.Open(job.Path)
	if err != nil {
		out.AddWorkbookError(err.Error())
		return out, err
	}

	mapping := MapColumns(sheet, out)
	if mapping == nil {
		return out, errors.New("stored sheet is missing mapped columns")
	}

	var validation models.Validation
	if err := tx.First(&validation, job.ValidationID).Error; err != nil {
		return out, errors.Wrap(err, "loading validation")
	}

	cache := catalog.NewCache(tx)
	err = workbook.DataRows(sheet.Rows(), func(row []string) error {
		builder := reconcile.NewBuilder(cache, out, &validation, mapping.Record(row))
		decision, err := builder.Build(job.ForceRun, job.ForceItem)
		if err != nil {
			return err
		}
		return p.apply(tx, job, decision, out)
	})
	if err != nil {
		return out, err
	}

	if err := models.RecomputeAggregates(tx, &validation); err != nil {
		return out, err
	}
	log.Info("imported validation",
		"validation", validation.Name,
		"stats", validation.Stats(),
		"added", out.Changes.Added,
		"updated", out.Changes.Updated,
		"skipped", out.Changes.Skipped,
	)

	if err := os.Remove(job.Path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove stored sheet", "path", job.Path, "error", err)
	}

	return out, nil
}

func (p *Pipeline) apply(tx *gorm.DB, job *models.ImportJob, decision *reconcile.Decision, out *outcome.Builder) error {
	switch decision.Op {
	case reconcile.OpInsert:
		if err := tx.Create(decision.Result).Error; err != nil {
			return errors.Wrap(err, "inserting result")
		}
		out.Changes.Added++
	case reconcile.OpUpdate:
		if err := tx.Save(decision.Result).Error; err != nil {
			return errors.Wrap(err, "updating result")
		}
		if decision.OldStatusID != decision.Result.StatusID {
			history := &models.ResultHistory{
				ResultID:    decision.Result.ID,
				OldStatusID: decision.OldStatusID,
				NewStatusID: decision.Result.StatusID,
				Reason:      job.ImportReason,
			}
			if job.RequesterID != 0 {
				requester := job.RequesterID
				history.UserID = &requester
			}
			if err := tx.Create(history).Error; err != nil {
				return errors.Wrap(err, "recording result history")
			}
		}
		out.Changes.Updated++
	default:
		out.Changes.Skipped++
	}
	return nil
}
