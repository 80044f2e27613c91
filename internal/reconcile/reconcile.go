// Package reconcile turns column-mapped sheet rows into Result facts.
// A Builder resolves every reference a row names, verifies the row
// against the catalog, and decides whether the row inserts a new
// Result, updates the live one, or is skipped.
package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/catalog"
	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/outcome"
)

// Spreadsheet serial dates count days from this epoch.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const (
	fieldExecStart = "execution start time"
	fieldExecEnd   = "execution end time"
)

// Builder reconciles a single Record against one Validation.
type Builder struct {
	cache      *catalog.Cache
	out        *outcome.Builder
	validation *models.Validation
	rec        Record

	env       *models.Env
	component *models.Component
	status    *models.Status
	platform  *models.Platform
	os        *models.Os
	item      *models.Item
	itemSpec  *catalog.ItemSpec
	run       *models.Run
	driver    *models.Driver
}

// NewBuilder binds a record to the validation it imports into.
func NewBuilder(cache *catalog.Cache, out *outcome.Builder, validation *models.Validation, rec Record) *Builder {
	return &Builder{cache: cache, out: out, validation: validation, rec: rec}
}

// Verify resolves every reference the record names and files an issue
// for each one that cannot be resolved. It never writes to the
// database. Returns true when the record contributed no new issues.
func (b *Builder) Verify(forceRun bool) (bool, error) {
	before := b.out.IssueCount()

	var err error
	if b.env, err = b.cache.FindEnv(b.rec.EnvName); err != nil {
		return false, err
	}
	if b.env == nil {
		b.out.AddMissingEntityError("Env", map[string]string{"name": b.rec.EnvName}, false)
	}

	if b.component, err = b.cache.FindComponent(b.rec.ComponentName); err != nil {
		return false, err
	}
	if b.component == nil {
		b.out.AddMissingEntityError("Component", map[string]string{"name": b.rec.ComponentName}, false)
	}

	if b.status, err = b.cache.FindStatus(b.rec.Status); err != nil {
		return false, err
	}
	if b.status == nil {
		b.out.AddMissingEntityError("Status", map[string]string{"test_status": b.rec.Status}, false)
	}

	if b.platform, err = b.cache.FindPlatform(b.rec.PlatformName); err != nil {
		return false, err
	}
	if b.platform == nil {
		b.out.AddMissingEntityError("Platform", map[string]string{"name": b.rec.PlatformName}, true)
	}

	if err = b.resolveOs(); err != nil {
		return false, err
	}

	if b.item, b.itemSpec, err = b.cache.ResolveItem(b.rec.ItemName, b.rec.ItemArgs); err != nil {
		return false, err
	}

	if b.run, err = b.cache.FindRun(b.rec.TestRun, b.rec.TestSession); err != nil {
		return false, err
	}
	if b.run != nil && !forceRun && !b.cache.IsCreated(catalog.KindRun, b.run.ID) {
		b.out.AddExistingRunError(b.rec.TestRun, b.rec.TestSession)
	}

	if b.rec.DriverName != "" {
		if b.driver, err = b.cache.FindDriver(models.DriverKey(b.rec.DriverName, nil)); err != nil {
			return false, err
		}
	}

	b.checkTimestamp(fieldExecStart, b.rec.ExecStart)
	b.checkTimestamp(fieldExecEnd, b.rec.ExecEnd)

	return b.out.IssueCount() == before, nil
}

// Dimensions returns the env, platform and os the record resolved
// to. Valid after a successful Verify; the import pipeline reads the
// first data row's dimensions to compose a new Validation.
func (b *Builder) Dimensions() (*models.Env, *models.Platform, *models.Os) {
	return b.env, b.platform, b.os
}

// resolveOs matches the version column first and falls back to the
// family column, so a sheet carrying "21H2 / Windows" still lands on
// the right operating system without a warning.
func (b *Builder) resolveOs() error {
	var err error
	if b.rec.OsVersion != "" {
		if b.os, err = b.cache.FindOs(b.rec.OsVersion); err != nil {
			return err
		}
	}
	if b.os == nil && b.rec.OsFamily != "" {
		if b.os, err = b.cache.FindOs(b.rec.OsFamily); err != nil {
			return err
		}
	}
	if b.os == nil {
		name := b.rec.OsVersion
		if name == "" {
			name = b.rec.OsFamily
		}
		b.out.AddMissingEntityError("Os", map[string]string{"name": name}, true)
	}
	return nil
}

func (b *Builder) checkTimestamp(field, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if _, err := ParseTimestamp(value); err != nil {
		b.out.AddDateFormatError(field, value)
	}
}

// Build verifies the record and, when clean, decides the fate of its
// Result row. First-seen items, runs and drivers are persisted here;
// the Result itself is handed back to the caller inside the Decision.
func (b *Builder) Build(forceRun, forceItem bool) (*Decision, error) {
	ok, err := b.Verify(forceRun)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Decision{Op: OpSkip}, nil
	}

	if err := b.materialize(); err != nil {
		return nil, err
	}

	candidate := &models.Result{
		ValidationID: b.validation.ID,
		ItemID:       b.item.ID,
		ComponentID:  b.component.ID,
		EnvID:        b.env.ID,
		PlatformID:   b.platform.ID,
		OsID:         b.os.ID,
		StatusID:     b.status.ID,
		RunID:        b.run.ID,
		ExecStart:    b.timestamp(b.rec.ExecStart),
		ExecEnd:      b.timestamp(b.rec.ExecEnd),
		ResultKey:    b.rec.ResultKey,
		ResultURL:    b.rec.ResultURL,
		ResultReason: b.rec.Reason,
	}
	if b.driver != nil {
		candidate.DriverID = &b.driver.ID
	}

	existing, err := b.findExisting()
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &Decision{Op: OpInsert, Result: candidate}, nil
	}

	if candidate.StatusID != existing.StatusID && !forceItem {
		old, err := b.cache.StatusByID(existing.StatusID)
		if err != nil {
			return nil, err
		}
		if old != nil && b.status.Priority < old.Priority {
			group, err := b.groupName()
			if err != nil {
				return nil, err
			}
			b.out.AddItemChanged(old.TestStatus, b.status.TestStatus, group, b.testLabel())
			return &Decision{Op: OpSkip}, nil
		}
	}

	if cmp.Equal(trackedOf(existing), trackedOf(candidate)) {
		return &Decision{Op: OpSkip}, nil
	}

	oldStatusID := existing.StatusID
	existing.RunID = candidate.RunID
	existing.DriverID = candidate.DriverID
	existing.ExecStart = candidate.ExecStart
	existing.ExecEnd = candidate.ExecEnd
	existing.ResultKey = candidate.ResultKey
	existing.ResultURL = candidate.ResultURL
	existing.ResultReason = candidate.ResultReason
	if existing.StatusID != candidate.StatusID {
		existing.StatusID = candidate.StatusID
		existing.Changed = true
	}

	return &Decision{Op: OpUpdate, Result: existing, OldStatusID: oldStatusID}, nil
}

// materialize persists the first-seen references the record depends
// on: the item, its run and its driver.
func (b *Builder) materialize() error {
	db := b.cache.DB()

	if b.item == nil {
		item, err := b.cache.CreateItem(b.itemSpec)
		if err != nil {
			return err
		}
		b.item = item
	}
	if b.item.GroupID == nil {
		if err := b.assignGroup(); err != nil {
			return err
		}
	}

	if b.run == nil {
		run := &models.Run{Name: b.rec.TestRun, Session: b.rec.TestSession}
		if err := db.Create(run).Error; err != nil {
			return errors.Wrap(err, "creating run")
		}
		b.cache.MarkCreated(catalog.KindRun, run.ID)
		b.cache.Invalidate(catalog.KindRun)
		b.run = run
	}

	if b.driver == nil && b.rec.DriverName != "" {
		driver := &models.Driver{
			Name: b.rec.DriverName,
			Key:  models.DriverKey(b.rec.DriverName, nil),
		}
		if err := db.Create(driver).Error; err != nil {
			return errors.Wrap(err, "creating driver")
		}
		b.cache.MarkCreated(catalog.KindDriver, driver.ID)
		b.cache.Invalidate(catalog.KindDriver)
		b.driver = driver
	}

	return nil
}

// assignGroup gives an ungrouped item the group of the first mask
// whose pattern matches the item name, in mask ordering.
func (b *Builder) assignGroup() error {
	masks, err := b.cache.Masks()
	if err != nil {
		return err
	}
	for _, mask := range masks {
		re, err := regexp.Compile("^(?:" + mask.Mask + ")")
		if err != nil {
			continue
		}
		if re.MatchString(b.item.Name) {
			groupID := mask.GroupID
			b.item.GroupID = &groupID
			b.item.Rekey()
			if err := b.cache.DB().Save(b.item).Error; err != nil {
				return errors.Wrap(err, "grouping item")
			}
			b.cache.Invalidate(catalog.KindItem)
			return nil
		}
	}
	return nil
}

func (b *Builder) findExisting() (*models.Result, error) {
	var result models.Result
	err := b.cache.DB().
		Where("validation_id = ? AND item_id = ? AND platform_id = ? AND env_id = ? AND os_id = ?",
			b.validation.ID, b.item.ID, b.platform.ID, b.env.ID, b.os.ID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "looking up result")
	}
	return &result, nil
}

func (b *Builder) groupName() (string, error) {
	if b.item.GroupID == nil {
		return "ungrouped", nil
	}
	group, err := b.cache.GroupByID(*b.item.GroupID)
	if err != nil {
		return "", err
	}
	if group == nil {
		return "ungrouped", nil
	}
	return group.Name, nil
}

func (b *Builder) testLabel() string {
	if b.item.TestID != nil {
		return *b.item.TestID
	}
	return b.item.Name
}

func (b *Builder) timestamp(value string) time.Time {
	if ts, err := ParseTimestamp(value); err == nil {
		return ts
	}
	return time.Now().UTC().Truncate(time.Second)
}

// tracked is the set of Result columns an import may rewrite; rows
// whose tracked columns all match the live Result are no-ops.
type tracked struct {
	RunID        uint
	StatusID     uint
	DriverID     *uint
	ExecStart    time.Time
	ExecEnd      time.Time
	ResultKey    string
	ResultURL    string
	ResultReason string
}

func trackedOf(r *models.Result) tracked {
	return tracked{
		RunID:        r.RunID,
		StatusID:     r.StatusID,
		DriverID:     r.DriverID,
		ExecStart:    r.ExecStart,
		ExecEnd:      r.ExecEnd,
		ResultKey:    r.ResultKey,
		ResultURL:    r.ResultURL,
		ResultReason: r.ResultReason,
	}
}

// ParseTimestamp accepts most human date spellings plus spreadsheet
// serial numbers. Values are truncated to whole seconds.
func ParseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return excelEpoch.Add(time.Duration(serial * float64(24*time.Hour))).Truncate(time.Second), nil
	}
	ts, err := dateparse.ParseAny(trimmed)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing %q", value)
	}
	return ts.Truncate(time.Second), nil
}
