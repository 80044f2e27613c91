package clone

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

type CloneTestSuite struct {
	suite.Suite
	db     *gorm.DB
	seed   *testutil.Catalog
	source *models.Validation
}

func (s *CloneTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	s.seed = testutil.SeedCatalog(s.T(), s.db)

	s.source = testutil.SeedValidation(s.T(), s.db, s.seed, "2026-WW08", time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC))
}

func (s *CloneTestSuite) TearDownTest() {
	testutil.CloseDB(s.db)
}

func (s *CloneTestSuite) service() Clone {
	return &cloneService{ctx: context.Background(), db: s.db}
}

func (s *CloneTestSuite) TestCreateEnqueuesJob() {
	report, err := s.service().Create(&CreateRequest{
		ValidationName: "2026-WW08 rerun",
		SourceID:       s.source.ID,
		RequesterID:    s.seed.Requester.ID,
	})
	s.Require().NoError(err)

	s.True(report.Success)
	s.NotZero(report.JobID)

	var job models.CloneJob
	s.Require().NoError(s.db.First(&job, report.JobID).Error)
	s.Equal(models.JobStatusPending, job.Status)
	s.Equal(s.source.ID, job.SourceID)
}

func (s *CloneTestSuite) TestCreateRejectsMissingSource() {
	report, err := s.service().Create(&CreateRequest{
		ValidationName: "2026-WW08 rerun",
		SourceID:       4242,
		RequesterID:    s.seed.Requester.ID,
	})
	s.Require().NoError(err)

	s.False(report.Success)
	s.Require().NotEmpty(report.Errors)
	s.Equal(outcome.CodeNonexistentValidation, report.Errors[0].Code)

	testutil.AssertCount(s.T(), s.db, &models.CloneJob{}, 0)
}

func TestCloneTestSuite(t *testing.T) {
	suite.Run(t, new(CloneTestSuite))
}
