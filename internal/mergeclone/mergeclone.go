// Package mergeclone combines validations into a new one (merge) or
// copies a single validation wholesale (clone). The synchronous half
// verifies the request; the background half selects and bulk-copies
// Results under a fresh target Validation.
package mergeclone

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/pkg/log"
)

// Merge strategies. Best keeps the highest-priority status per item;
// last keeps the most recent one.
const (
	StrategyBest = "best"
	StrategyLast = "last"
)

type MergeRequest struct {
	ValidationName string
	Notes          string
	Strategy       string
	SourceIDs      []uint
	RequesterID    uint
	SiteURL        string
}

type CloneRequest struct {
	ValidationName string
	Notes          string
	SourceID       uint
	RequesterID    uint
	SiteURL        string
}

// Engine is the merge/clone implementation. Stateless; safe to share.
type Engine struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// VerifyMerge checks every merge precondition without writing. The
// target tuple takes its dimensions from the first source.
func (e *Engine) VerifyMerge(req MergeRequest) (*outcome.Builder, error) {
	out := outcome.New()

	if strings.TrimSpace(req.ValidationName) == "" {
		out.AddEmptyValidationNameError()
	}
	if len(req.SourceIDs) < 2 {
		out.AddValidationListError()
	}
	if !out.IsSuccess() {
		return out, nil
	}

	sources, err := e.loadSources(req.SourceIDs, out)
	if err != nil || !out.IsSuccess() {
		return out, err
	}

	base := sources[0]
	taken, err := e.tupleTaken(req.ValidationName, base)
	if err != nil {
		return out, err
	}
	if taken {
		out.AddExistingValidationError("Validation with such parameters already exists", map[string]string{
			"name": req.ValidationName,
		})
	}

	if err := e.checkDimensions(req.SourceIDs, out); err != nil {
		return out, err
	}

	return out, nil
}

// VerifyClone checks every clone precondition without writing.
func (e *Engine) VerifyClone(req CloneRequest) (*outcome.Builder, error) {
	out := outcome.New()

	if strings.TrimSpace(req.ValidationName) == "" {
		out.AddEmptyValidationNameError()
	}
	if req.SourceID == 0 {
		out.AddNonexistentValidationError("no validation selected for clone")
		return out, nil
	}

	var source models.Validation
	err := e.db.First(&source, req.SourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		out.AddNonexistentValidationError(fmt.Sprintf("Validation with id %d does not exist.", req.SourceID))
		return out, nil
	}
	if err != nil {
		return out, errors.Wrap(err, "loading source validation")
	}
	if !out.IsSuccess() {
		return out, nil
	}

	taken, err := e.tupleTaken(req.ValidationName, &source)
	if err != nil {
		return out, err
	}
	if taken {
		out.AddDuplicateValidationError("Validation with such parameters already exists")
	}

	return out, nil
}

// CreateMergeJob persists the pending job after a clean verify.
func (e *Engine) CreateMergeJob(req MergeRequest, out *outcome.Builder) (*models.MergeJob, error) {
	strategy := req.Strategy
	if strategy != StrategyLast {
		strategy = StrategyBest
	}

	job := &models.MergeJob{
		Status:         models.JobStatusPending,
		RequesterID:    req.RequesterID,
		ValidationName: req.ValidationName,
		Notes:          req.Notes,
		Strategy:       strategy,
		SourceIDs:      req.SourceIDs,
		SiteURL:        req.SiteURL,
	}
	if err := e.db.Create(job).Error; err != nil {
		return nil, errors.Wrap(err, "creating merge job")
	}

	out.JobID = job.ID
	return job, nil
}

// CreateCloneJob persists the pending job after a clean verify.
func (e *Engine) CreateCloneJob(req CloneRequest, out *outcome.Builder) (*models.CloneJob, error) {
	job := &models.CloneJob{
		Status:         models.JobStatusPending,
		RequesterID:    req.RequesterID,
		ValidationName: req.ValidationName,
		Notes:          req.Notes,
		SourceID:       req.SourceID,
		SiteURL:        req.SiteURL,
	}
	if err := e.db.Create(job).Error; err != nil {
		return nil, errors.Wrap(err, "creating clone job")
	}

	out.JobID = job.ID
	return job, nil
}

// RunMerge executes the background half of a merge inside the given
// transaction.
func (e *Engine) RunMerge(tx *gorm.DB, job *models.MergeJob) (*outcome.Builder, error) {
	out := outcome.New()
	out.JobID = job.ID

	ids := []uint(job.SourceIDs)
	target, err := e.createTarget(tx, job.ValidationName, job.Notes, "Merge of validations: ", ids)
	if err != nil {
		return out, err
	}

	selected, err := e.selectResults(tx, ids, job.Strategy)
	if err != nil {
		return out, err
	}

	if err := e.copyResults(tx, target, selected); err != nil {
		return out, err
	}

	log.Info("merged validations",
		"target", target.Name,
		"sources", ids,
		"strategy", job.Strategy,
		"results", len(selected),
		"stats", target.Stats(),
	)
	return out, nil
}

// RunClone executes the background half of a clone inside the given
// transaction.
func (e *Engine) RunClone(tx *gorm.DB, job *models.CloneJob) (*outcome.Builder, error) {
	out := outcome.New()
	out.JobID = job.ID

	target, err := e.createTarget(tx, job.ValidationName, job.Notes, "Clone of validation: ", []uint{job.SourceID})
	if err != nil {
		return out, err
	}

	var selected []*models.Result
	err = tx.Where("validation_id = ?", job.SourceID).
		Order("id").
		Find(&selected).Error
	if err != nil {
		return out, errors.Wrap(err, "loading source results")
	}

	if err := e.copyResults(tx, target, selected); err != nil {
		return out, err
	}

	log.Info("cloned validation",
		"target", target.Name,
		"source", job.SourceID,
		"results", len(selected),
		"stats", target.Stats(),
	)
	return out, nil
}

func (e *Engine) loadSources(ids []uint, out *outcome.Builder) ([]*models.Validation, error) {
	var sources []*models.Validation
	if err := e.db.Where("id IN ?", ids).Find(&sources).Error; err != nil {
		return nil, errors.Wrap(err, "loading source validations")
	}

	found := map[uint]*models.Validation{}
	for _, source := range sources {
		found[source.ID] = source
	}
	ordered := make([]*models.Validation, 0, len(ids))
	for _, id := range ids {
		source, ok := found[id]
		if !ok {
			out.AddNonexistentValidationError(fmt.Sprintf("Validation with id %d does not exist.", id))
			continue
		}
		ordered = append(ordered, source)
	}
	return ordered, nil
}

func (e *Engine) tupleTaken(name string, base *models.Validation) (bool, error) {
	var count int64
	err := e.db.Model(&models.Validation{}).
		Where("name = ? AND env_id = ? AND platform_id = ? AND os_id = ?",
			name, base.EnvID, base.PlatformID, base.OsID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "checking validation uniqueness")
	}
	return count > 0, nil
}

// checkDimensions files one ambiguous-column error per dimension in
// which the source validations' results disagree.
func (e *Engine) checkDimensions(ids []uint, out *outcome.Builder) error {
	dimensions := []struct {
		column  string
		caption string
		names   func(refIDs []uint) ([]string, error)
	}{
		{"os_id", "Operating system", e.namesOf(&models.Os{})},
		{"env_id", "Environment", e.namesOf(&models.Env{})},
		{"platform_id", "Platform", e.namesOf(&models.Platform{})},
	}

	for _, dim := range dimensions {
		var refIDs []uint
		err := e.db.Model(&models.Result{}).
			Where("validation_id IN ?", ids).
			Distinct(dim.column).
			Pluck(dim.column, &refIDs).Error
		if err != nil {
			return errors.Wrapf(err, "collecting distinct %s", dim.column)
		}
		if len(refIDs) <= 1 {
			continue
		}

		names, err := dim.names(refIDs)
		if err != nil {
			return err
		}
		out.AddAmbiguousColumnError(dim.caption, names)
	}
	return nil
}

func (e *Engine) namesOf(model interface{}) func(ids []uint) ([]string, error) {
	return func(ids []uint) ([]string, error) {
		var names []string
		err := e.db.Model(model).
			Where("id IN ?", ids).
			Order("name").
			Pluck("name", &names).Error
		return names, errors.Wrap(err, "resolving dimension names")
	}
}

// createTarget copies the first source's scalars under the new name
// and provenance notes.
func (e *Engine) createTarget(tx *gorm.DB, name, notes, provenance string, ids []uint) (*models.Validation, error) {
	var base models.Validation
	if err := tx.First(&base, ids[0]).Error; err != nil {
		return nil, errors.Wrap(err, "loading base validation")
	}

	var sourceNames []string
	err := tx.Model(&models.Validation{}).
		Where("id IN ?", ids).
		Order("id").
		Pluck("name", &sourceNames).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing source names")
	}

	composed := provenance + strings.Join(sourceNames, ", ")
	if notes != "" {
		composed += "\n\n" + notes
	}

	target := base
	target.ID = 0
	target.Name = name
	target.Notes = composed
	target.CreatedAt = time.Time{}
	target.UpdatedAt = time.Time{}
	target.ResetCounters()
	if err := tx.Create(&target).Error; err != nil {
		return nil, errors.Wrap(err, "creating target validation")
	}
	return &target, nil
}

// selectResults picks one Result per distinct item across the
// sources, following the strategy's ordering.
func (e *Engine) selectResults(tx *gorm.DB, ids []uint, strategy string) ([]*models.Result, error) {
	query := tx.Model(&models.Result{}).
		Select("results.*").
		Joins("JOIN validations ON validations.id = results.validation_id").
		Where("results.validation_id IN ?", ids).
		Order("results.item_id")

	if strategy == StrategyLast {
		query = query.
			Order("validations.date DESC").
			Order("results.id DESC")
	} else {
		query = query.
			Joins("JOIN statuses ON statuses.id = results.status_id").
			Order("statuses.priority DESC").
			Order("validations.date DESC").
			Order("results.id DESC")
	}

	var ordered []*models.Result
	if err := query.Find(&ordered).Error; err != nil {
		return nil, errors.Wrap(err, "loading source results")
	}

	var selected []*models.Result
	seen := map[uint]struct{}{}
	for _, result := range ordered {
		if _, ok := seen[result.ItemID]; ok {
			continue
		}
		seen[result.ItemID] = struct{}{}
		selected = append(selected, result)
	}
	return selected, nil
}

func (e *Engine) copyResults(tx *gorm.DB, target *models.Validation, selected []*models.Result) error {
	copies := make([]*models.Result, 0, len(selected))
	for _, result := range selected {
		dup := *result
		dup.ID = 0
		dup.ValidationID = target.ID
		dup.Changed = false
		dup.CreatedAt = time.Time{}
		dup.UpdatedAt = time.Time{}
		copies = append(copies, &dup)
	}

	if len(copies) > 0 {
		if err := tx.Create(&copies).Error; err != nil {
			return errors.Wrap(err, "copying results")
		}
	}

	return models.RecomputeAggregates(tx, target)
}
