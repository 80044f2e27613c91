package jobs

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/models/testutil"
)

type JobsTestSuite struct {
	suite.Suite
	db *gorm.DB
}

func (s *JobsTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
}

func (s *JobsTestSuite) TearDownTest() {
	testutil.CloseDB(s.db)
}

func (s *JobsTestSuite) service() Jobs {
	return &jobService{ctx: context.Background(), db: s.db}
}

func (s *JobsTestSuite) TestGetReturnsImportJob() {
	seeded := &models.ImportJob{
		Status:       models.JobStatusPending,
		RequesterID:  1,
		Path:         "/tmp/sheet.csv",
		ValidationID: 1,
	}
	s.Require().NoError(s.db.Create(seeded).Error)

	job, err := s.service().Get("import", seeded.ID)
	s.Require().NoError(err)

	imported, ok := job.(*models.ImportJob)
	s.Require().True(ok)
	s.Equal(seeded.ID, imported.ID)
	s.Equal(models.JobStatusPending, imported.Status)
}

func (s *JobsTestSuite) TestGetRejectsUnknownKind() {
	_, err := s.service().Get("bogus", 1)

	s.Require().Error(err)
	s.True(errors.Is(err, ErrUnknownKind))
}

func (s *JobsTestSuite) TestGetMissingJob() {
	_, err := s.service().Get("merge", 4242)

	s.Require().Error(err)
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func TestJobsTestSuite(t *testing.T) {
	suite.Run(t, new(JobsTestSuite))
}
