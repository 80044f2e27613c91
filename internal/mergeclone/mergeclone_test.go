package mergeclone_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/mergeclone"
	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/models/testutil"
	"github.com/collate-cloud/collate/internal/outcome"
)

type MergeCloneTestSuite struct {
	suite.Suite
	db     *gorm.DB
	seed   *testutil.Catalog
	engine *mergeclone.Engine
	run    *models.Run

	older *models.Validation
	newer *models.Validation
	itemA *models.Item
	itemB *models.Item
}

func (s *MergeCloneTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	s.seed = testutil.SeedCatalog(s.T(), s.db)
	s.engine = mergeclone.New(s.db)

	s.run = &models.Run{Name: "nightly", Session: "session-1"}
	s.Require().NoError(s.db.Create(s.run).Error)

	s.older = testutil.SeedValidation(s.T(), s.db, s.seed, "2026-WW07",
		time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC))
	s.newer = testutil.SeedValidation(s.T(), s.db, s.seed, "2026-WW08",
		time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC))

	s.itemA = s.item("test_decode")
	s.itemB = s.item("test_encode")
}

func (s *MergeCloneTestSuite) TearDownTest() {
	testutil.CloseDB(s.db)
}

func (s *MergeCloneTestSuite) item(name string) *models.Item {
	item := &models.Item{Name: name}
	item.Rekey()
	s.Require().NoError(s.db.Create(item).Error)
	return item
}

func (s *MergeCloneTestSuite) result(v *models.Validation, item *models.Item, status *models.Status) *models.Result {
	result := &models.Result{
		ValidationID: v.ID,
		ItemID:       item.ID,
		ComponentID:  s.seed.Component.ID,
		EnvID:        v.EnvID,
		PlatformID:   v.PlatformID,
		OsID:         v.OsID,
		StatusID:     status.ID,
		RunID:        s.run.ID,
		ExecStart:    time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC),
		ExecEnd:      time.Date(2026, 2, 16, 10, 5, 0, 0, time.UTC),
		ResultKey:    "res-1",
	}
	s.Require().NoError(s.db.Create(result).Error)
	return result
}

func (s *MergeCloneTestSuite) mergeRequest() mergeclone.MergeRequest {
	return mergeclone.MergeRequest{
		ValidationName: "2026-WW07+WW08",
		SourceIDs:      []uint{s.older.ID, s.newer.ID},
		RequesterID:    s.seed.Requester.ID,
	}
}

func (s *MergeCloneTestSuite) merge(req mergeclone.MergeRequest) *models.Validation {
	out, err := s.engine.VerifyMerge(req)
	s.Require().NoError(err)
	s.Require().True(out.IsSuccess())

	job, err := s.engine.CreateMergeJob(req, out)
	s.Require().NoError(err)
	s.Equal(job.ID, out.JobID)

	_, err = s.engine.RunMerge(s.db, job)
	s.Require().NoError(err)

	var target models.Validation
	s.Require().NoError(s.db.Where("name = ?", req.ValidationName).First(&target).Error)
	return &target
}

func (s *MergeCloneTestSuite) targetResults(v *models.Validation) map[uint]*models.Result {
	var results []*models.Result
	s.Require().NoError(s.db.Where("validation_id = ?", v.ID).Find(&results).Error)

	byItem := map[uint]*models.Result{}
	for _, result := range results {
		byItem[result.ItemID] = result
	}
	return byItem
}

func (s *MergeCloneTestSuite) TestMergeVerifyRequiresNameAndSources() {
	req := s.mergeRequest()
	req.ValidationName = " "
	req.SourceIDs = []uint{s.older.ID}

	out, err := s.engine.VerifyMerge(req)

	s.Require().NoError(err)
	s.True(out.HasCode(outcome.CodeEmptyValidationName))
	s.True(out.HasCode(outcome.CodeValidationList))
}

func (s *MergeCloneTestSuite) TestMergeVerifyRejectsMissingSource() {
	req := s.mergeRequest()
	req.SourceIDs = []uint{s.older.ID, 4242}

	out, err := s.engine.VerifyMerge(req)

	s.Require().NoError(err)
	s.True(out.HasCode(outcome.CodeNonexistentValidation))
}

func (s *MergeCloneTestSuite) TestMergeVerifyRejectsTakenTuple() {
	req := s.mergeRequest()
	req.ValidationName = "2026-WW08"

	out, err := s.engine.VerifyMerge(req)

	s.Require().NoError(err)
	s.True(out.HasCode(outcome.CodeExistingValidation))
}

func (s *MergeCloneTestSuite) TestMergeVerifyRejectsMixedDimensions() {
	other := &models.Os{Name: "Ubuntu 22.04"}
	s.Require().NoError(s.db.Create(other).Error)

	s.result(s.older, s.itemA, s.seed.Passed)
	mixed := s.result(s.newer, s.itemA, s.seed.Passed)
	mixed.OsID = other.ID
	s.Require().NoError(s.db.Save(mixed).Error)

	out, err := s.engine.VerifyMerge(s.mergeRequest())

	s.Require().NoError(err)
	s.True(out.HasCode(outcome.CodeAmbiguousColumn))
	for _, e := range out.Errors() {
		if e.Code == outcome.CodeAmbiguousColumn {
			s.Equal("Operating system", e.Column)
			s.ElementsMatch([]string{"Windows 10 21H2", "Ubuntu 22.04"}, e.Values)
		}
	}
}

func (s *MergeCloneTestSuite) TestMergeBestKeepsHighestPriority() {
	s.result(s.older, s.itemA, s.seed.Passed)
	s.result(s.newer, s.itemA, s.seed.Failed)
	s.result(s.older, s.itemB, s.seed.Blocked)

	target := s.merge(s.mergeRequest())
	byItem := s.targetResults(target)

	s.Len(byItem, 2)
	s.Equal(s.seed.Passed.ID, byItem[s.itemA.ID].StatusID)
	s.Equal(s.seed.Blocked.ID, byItem[s.itemB.ID].StatusID)
	s.Equal(1, target.Passed)
	s.Equal(1, target.Blocked)
	s.True(strings.HasPrefix(target.Notes, "Merge of validations: 2026-WW07, 2026-WW08"))
}

func (s *MergeCloneTestSuite) TestMergeLastKeepsMostRecent() {
	s.result(s.older, s.itemA, s.seed.Passed)
	s.result(s.newer, s.itemA, s.seed.Failed)

	req := s.mergeRequest()
	req.Strategy = mergeclone.StrategyLast
	target := s.merge(req)
	byItem := s.targetResults(target)

	s.Len(byItem, 1)
	s.Equal(s.seed.Failed.ID, byItem[s.itemA.ID].StatusID)
}

func (s *MergeCloneTestSuite) TestMergeTieBreaksOnResultID() {
	s.result(s.newer, s.itemA, s.seed.Failed)
	second := s.result(s.newer, s.itemA, s.seed.Failed)
	second.ResultKey = "res-2"
	s.Require().NoError(s.db.Save(second).Error)

	req := s.mergeRequest()
	req.Strategy = mergeclone.StrategyLast
	target := s.merge(req)
	byItem := s.targetResults(target)

	s.Len(byItem, 1)
	s.Equal(second.ResultKey, byItem[s.itemA.ID].ResultKey)
}

func (s *MergeCloneTestSuite) TestMergeLeavesSourcesUntouched() {
	s.result(s.older, s.itemA, s.seed.Passed)
	s.result(s.newer, s.itemA, s.seed.Failed)

	s.merge(s.mergeRequest())

	var count int64
	s.Require().NoError(s.db.Model(&models.Result{}).
		Where("validation_id IN ?", []uint{s.older.ID, s.newer.ID}).
		Count(&count).Error)
	s.EqualValues(2, count)
}

func (s *MergeCloneTestSuite) TestCloneVerifyRejectsMissingSource() {
	out, err := s.engine.VerifyClone(mergeclone.CloneRequest{
		ValidationName: "copy",
		SourceID:       4242,
	})

	s.Require().NoError(err)
	s.True(out.HasCode(outcome.CodeNonexistentValidation))
}

func (s *MergeCloneTestSuite) TestCloneVerifyRejectsTakenTuple() {
	out, err := s.engine.VerifyClone(mergeclone.CloneRequest{
		ValidationName: "2026-WW08",
		SourceID:       s.older.ID,
	})

	s.Require().NoError(err)
	s.True(out.HasCode(outcome.CodeDuplicateValidation))
}

func (s *MergeCloneTestSuite) TestCloneCopiesAllResults() {
	s.result(s.older, s.itemA, s.seed.Passed)
	s.result(s.older, s.itemB, s.seed.Failed)

	req := mergeclone.CloneRequest{
		ValidationName: "2026-WW07 copy",
		Notes:          "rerun baseline",
		SourceID:       s.older.ID,
		RequesterID:    s.seed.Requester.ID,
	}
	out, err := s.engine.VerifyClone(req)
	s.Require().NoError(err)
	s.Require().True(out.IsSuccess())

	job, err := s.engine.CreateCloneJob(req, out)
	s.Require().NoError(err)

	_, err = s.engine.RunClone(s.db, job)
	s.Require().NoError(err)

	var target models.Validation
	s.Require().NoError(s.db.Where("name = ?", req.ValidationName).First(&target).Error)
	s.Equal(1, target.Passed)
	s.Equal(1, target.Failed)
	s.True(strings.HasPrefix(target.Notes, "Clone of validation: 2026-WW07"))
	s.Contains(target.Notes, "rerun baseline")
	testutil.AssertCount(s.T(), s.db, &models.Result{}, 4)
}

func TestMergeCloneTestSuite(t *testing.T) {
	suite.Run(t, new(MergeCloneTestSuite))
}
