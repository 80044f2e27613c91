package merge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/models/testutil"
	"github.com/collate-cloud/collate/internal/outcome"
)

type MergeTestSuite struct {
	suite.Suite
	db   *gorm.DB
	seed *testutil.Catalog
	a    *models.Validation
	b    *models.Validation
}

func (s *MergeTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	s.seed = testutil.SeedCatalog(s.T(), s.db)

	s.a = testutil.SeedValidation(s.T(), s.db, s.seed, "2026-WW07", time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC))
	s.b = testutil.SeedValidation(s.T(), s.db, s.seed, "2026-WW08", time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC))
}

func (s *MergeTestSuite) TearDownTest() {
	testutil.CloseDB(s.db)
}

func (s *MergeTestSuite) service() Merge {
	return &mergeService{ctx: context.Background(), db: s.db}
}

func (s *MergeTestSuite) TestCreateEnqueuesJob() {
	report, err := s.service().Create(&CreateRequest{
		ValidationName: "2026-WW07+WW08",
		Strategy:       "bogus",
		SourceIDs:      []uint{s.a.ID, s.b.ID},
		RequesterID:    s.seed.Requester.ID,
	})
	s.Require().NoError(err)

	s.True(report.Success)
	s.NotZero(report.JobID)

	var job models.MergeJob
	s.Require().NoError(s.db.First(&job, report.JobID).Error)
	s.Equal(models.JobStatusPending, job.Status)
	s.Equal("best", job.Strategy)
	s.ElementsMatch([]uint{s.a.ID, s.b.ID}, []uint(job.SourceIDs))
}

func (s *MergeTestSuite) TestCreateRequiresTwoSources() {
	report, err := s.service().Create(&CreateRequest{
		ValidationName: "2026-WW07 solo",
		SourceIDs:      []uint{s.a.ID},
		RequesterID:    s.seed.Requester.ID,
	})
	s.Require().NoError(err)

	s.False(report.Success)
	s.Require().NotEmpty(report.Errors)
	s.Equal(outcome.CodeValidationList, report.Errors[0].Code)

	testutil.AssertCount(s.T(), s.db, &models.MergeJob{}, 0)
}

func TestMergeTestSuite(t *testing.T) {
	suite.Run(t, new(MergeTestSuite))
}
