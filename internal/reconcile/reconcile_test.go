package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/catalog"
	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/models/testutil"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/collate-cloud/collate/internal/reconcile"
)

type ReconcileTestSuite struct {
	suite.Suite
	db         *gorm.DB
	cache      *catalog.Cache
	seed       *testutil.Catalog
	validation *models.Validation
}

func (s *ReconcileTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	s.seed = testutil.SeedCatalog(s.T(), s.db)
	s.cache = catalog.NewCache(s.db)
	s.validation = testutil.SeedValidation(
		s.T(), s.db, s.seed, "2026-WW08 Apollo_Lake",
		time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
	)
}

func (s *ReconcileTestSuite) TearDownTest() {
	testutil.CloseDB(s.db)
}

func (s *ReconcileTestSuite) record() reconcile.Record {
	return reconcile.Record{
		DriverName:    "ci-main-1042",
		ItemName:      "test_decode",
		ItemArgs:      "-s h264 -i clip42",
		ComponentName: "decode",
		EnvName:       "Silicon",
		OsVersion:     "win10-21h2",
		OsFamily:      "Windows 10 21H2",
		PlatformName:  "ApolloLake",
		ResultKey:     "res-0001",
		Status:        "Passed",
		TestRun:       "nightly-ww08",
		TestSession:   "session-1",
		ExecStart:     "2026-02-16 10:00:00",
		ExecEnd:       "2026-02-16 10:05:00",
		ResultURL:     "https://ci.example.com/res-0001",
	}
}

func (s *ReconcileTestSuite) verify(rec reconcile.Record, forceRun bool) (bool, *outcome.Builder) {
	out := outcome.New()
	ok, err := reconcile.NewBuilder(s.cache, out, s.validation, rec).Verify(forceRun)
	s.Require().NoError(err)
	return ok, out
}

func (s *ReconcileTestSuite) build(rec reconcile.Record, forceRun, forceItem bool) (*reconcile.Decision, *outcome.Builder) {
	out := outcome.New()
	decision, err := reconcile.NewBuilder(s.cache, out, s.validation, rec).Build(forceRun, forceItem)
	s.Require().NoError(err)
	return decision, out
}

// apply persists a decision the way the import pipeline does.
func (s *ReconcileTestSuite) apply(d *reconcile.Decision) {
	switch d.Op {
	case reconcile.OpInsert:
		s.Require().NoError(s.db.Create(d.Result).Error)
	case reconcile.OpUpdate:
		s.Require().NoError(s.db.Save(d.Result).Error)
	}
}

func (s *ReconcileTestSuite) TestVerifyResolvesAliases() {
	ok, out := s.verify(s.record(), false)

	s.True(ok)
	s.True(out.IsSuccess())
}

func (s *ReconcileTestSuite) TestVerifyMissingPlatform() {
	rec := s.record()
	rec.PlatformName = "Meteor Lake"

	ok, out := s.verify(rec, false)

	s.False(ok)
	s.True(out.HasCode(outcome.CodeMissingEntity))
}

func (s *ReconcileTestSuite) TestVerifyOsFallsBackToFamily() {
	rec := s.record()
	rec.OsVersion = "10.0.19044"
	rec.OsFamily = "win10-21h2"

	ok, out := s.verify(rec, false)

	s.True(ok)
	s.True(out.IsSuccess())
}

func (s *ReconcileTestSuite) TestVerifyExistingRun() {
	run := &models.Run{Name: "nightly-ww08", Session: "session-1"}
	s.Require().NoError(s.db.Create(run).Error)

	ok, out := s.verify(s.record(), false)
	s.False(ok)
	s.True(out.HasCode(outcome.CodeExistingRun))

	ok, out = s.verify(s.record(), true)
	s.True(ok)
	s.True(out.IsSuccess())
}

func (s *ReconcileTestSuite) TestVerifyBadTimestamp() {
	rec := s.record()
	rec.ExecStart = "next tuesday-ish"

	ok, out := s.verify(rec, false)

	s.False(ok)
	s.True(out.HasCode(outcome.CodeDateFormat))
}

func (s *ReconcileTestSuite) TestBuildSkipsEveryRowWithSameBadTimestamp() {
	rec := s.record()
	rec.ExecStart = "not-a-date"

	other := s.record()
	other.ItemArgs = "-s h264 -i clip43"
	other.ExecStart = "not-a-date"

	out := outcome.New()

	first, err := reconcile.NewBuilder(s.cache, out, s.validation, rec).Build(false, false)
	s.Require().NoError(err)
	s.Equal(reconcile.OpSkip, first.Op)

	second, err := reconcile.NewBuilder(s.cache, out, s.validation, other).Build(false, false)
	s.Require().NoError(err)
	s.Equal(reconcile.OpSkip, second.Op)

	// the error dedupes to one entry while the warning counts both rows
	s.True(out.HasCode(outcome.CodeDateFormat))
	s.Len(out.Errors(), 1)
	s.Require().Len(out.Warnings(), 1)
	for _, count := range out.Warnings() {
		s.Equal(2, count)
	}
}

func (s *ReconcileTestSuite) TestBuildInsertsFirstResult() {
	decision, out := s.build(s.record(), false, false)

	s.Require().Equal(reconcile.OpInsert, decision.Op)
	s.True(out.IsSuccess())
	s.Equal(s.seed.Passed.ID, decision.Result.StatusID)
	s.Require().NotNil(decision.Result.DriverID)
	s.Equal(s.validation.ID, decision.Result.ValidationID)

	s.apply(decision)
	testutil.AssertCount(s.T(), s.db, &models.Result{}, 1)
	testutil.AssertCount(s.T(), s.db, &models.Item{}, 1)
	testutil.AssertCount(s.T(), s.db, &models.Run{}, 1)
	testutil.AssertCount(s.T(), s.db, &models.Driver{}, 1)
}

func (s *ReconcileTestSuite) TestBuildRunCreatedThisJobDoesNotWarn() {
	first, _ := s.build(s.record(), false, false)
	s.apply(first)

	rec := s.record()
	rec.ItemName = "test_encode"

	ok, out := s.verify(rec, false)
	s.True(ok)
	s.True(out.IsSuccess())
}

func (s *ReconcileTestSuite) TestBuildUpgradesStatus() {
	rec := s.record()
	rec.Status = "Failed"
	first, _ := s.build(rec, false, false)
	s.apply(first)

	decision, out := s.build(s.record(), false, false)

	s.Require().Equal(reconcile.OpUpdate, decision.Op)
	s.True(out.IsSuccess())
	s.Equal(s.seed.Failed.ID, decision.OldStatusID)
	s.Equal(s.seed.Passed.ID, decision.Result.StatusID)
	s.True(decision.Result.Changed)
	s.Equal(first.Result.ID, decision.Result.ID)
}

func (s *ReconcileTestSuite) TestBuildRejectsRegression() {
	first, _ := s.build(s.record(), false, false)
	s.apply(first)

	rec := s.record()
	rec.Status = "Failed"

	decision, out := s.build(rec, false, false)
	s.Equal(reconcile.OpSkip, decision.Op)
	s.True(out.HasCode(outcome.CodeItemChanged))

	forced, out := s.build(rec, false, true)
	s.Require().Equal(reconcile.OpUpdate, forced.Op)
	s.True(out.IsSuccess())
	s.Equal(s.seed.Failed.ID, forced.Result.StatusID)
}

func (s *ReconcileTestSuite) TestBuildSkipsNoOpRow() {
	first, _ := s.build(s.record(), false, false)
	s.apply(first)

	decision, out := s.build(s.record(), false, false)

	s.Equal(reconcile.OpSkip, decision.Op)
	s.True(out.IsSuccess())
}

func (s *ReconcileTestSuite) TestBuildAssignsGroupByMask() {
	group := &models.ResultGroup{Name: "Decode"}
	s.Require().NoError(s.db.Create(group).Error)
	mask := &models.GroupMask{Mask: `test_dec\w+`, Ordering: 1, GroupID: group.ID}
	s.Require().NoError(s.db.Create(mask).Error)

	decision, _ := s.build(s.record(), false, false)
	s.apply(decision)

	var item models.Item
	s.Require().NoError(s.db.First(&item, decision.Result.ItemID).Error)
	s.Require().NotNil(item.GroupID)
	s.Equal(group.ID, *item.GroupID)
}

func (s *ReconcileTestSuite) TestBuildParsesSerialTimestamps() {
	rec := s.record()
	rec.ExecStart = "44044.5"
	rec.ExecEnd = "44044.75"

	decision, out := s.build(rec, false, false)

	s.Require().Equal(reconcile.OpInsert, decision.Op)
	s.True(out.IsSuccess())
	s.Equal(time.Date(2020, 8, 1, 12, 0, 0, 0, time.UTC), decision.Result.ExecStart)
	s.Equal(time.Date(2020, 8, 1, 18, 0, 0, 0, time.UTC), decision.Result.ExecEnd)
}

func TestReconcileTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcileTestSuite))
}
