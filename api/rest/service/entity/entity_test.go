package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/collate-cloud/collate/internal/catalog"
	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/models/testutil"
	"github.com/collate-cloud/collate/internal/outcome"
	"github.com/pkg/errors"
)

type EntityTestSuite struct {
	suite.Suite
	db *gorm.DB
}

func (s *EntityTestSuite) SetupTest() {
	s.db = testutil.OpenTestDB(s.T())
	testutil.SeedCatalog(s.T(), s.db)
}

func (s *EntityTestSuite) TearDownTest() {
	testutil.CloseDB(s.db)
}

func (s *EntityTestSuite) service() Entity {
	return &entityService{ctx: context.Background(), db: s.db}
}

func (s *EntityTestSuite) TestCreatePersistsEntities() {
	report, err := s.service().Create(&CreateRequest{
		Entities: []catalog.EntitySpec{
			{Model: "Env", Fields: map[string]string{"name": "Simulation"}},
			{Model: "Status", Fields: map[string]string{"test_status": "Untested", "priority": "5"}},
		},
	})
	s.Require().NoError(err)
	s.True(report.Success)

	var env models.Env
	s.Require().NoError(s.db.Where("name = ?", "Simulation").First(&env).Error)

	var status models.Status
	s.Require().NoError(s.db.Where("test_status = ?", "Untested").First(&status).Error)
	s.Equal(5, status.Priority)
}

func (s *EntityTestSuite) TestCreateRejectsUnknownKind() {
	report, err := s.service().Create(&CreateRequest{
		Entities: []catalog.EntitySpec{
			{Model: "Env", Fields: map[string]string{"name": "Simulation"}},
			{Model: "starship", Fields: map[string]string{"name": "x"}},
		},
	})
	s.Require().NoError(err)

	s.False(report.Success)
	s.Require().NotEmpty(report.Errors)
	s.Equal(outcome.CodeUnsupportedEntityKind, report.Errors[0].Code)

	// nothing from the batch lands
	var count int64
	s.Require().NoError(s.db.Model(&models.Env{}).Where("name = ?", "Simulation").Count(&count).Error)
	s.Zero(count)
}

func (s *EntityTestSuite) TestCreateRejectsExistingEntity() {
	_, err := s.service().Create(&CreateRequest{
		Entities: []catalog.EntitySpec{
			{Model: "Env", Fields: map[string]string{"name": "Silicon"}},
		},
	})

	s.Require().Error(err)
	s.True(errors.Is(err, catalog.ErrExistingEntity))
}

func TestEntityTestSuite(t *testing.T) {
	suite.Run(t, new(EntityTestSuite))
}
