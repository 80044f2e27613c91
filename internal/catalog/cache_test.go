package catalog

import (
	"testing"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/models/testutil"
	"github.com/stretchr/testify/suite"
)

type CacheTestSuite struct {
	suite.Suite
	cache *Cache
	seed  *testutil.Catalog
}

func (s *CacheTestSuite) SetupTest() {
	db := testutil.OpenTestDB(s.T())
	s.seed = testutil.SeedCatalog(s.T(), db)
	s.cache = NewCache(db)
}

func (s *CacheTestSuite) TestAliasResolution() {
	// full alias token matches regardless of case
	platform, err := s.cache.FindPlatform("apollolake")
	s.Require().NoError(err)
	s.Require().NotNil(platform)
	s.Equal("Apollo_Lake", platform.Name)

	// canonical name matches too
	platform, err = s.cache.FindPlatform("APOLLO_LAKE")
	s.Require().NoError(err)
	s.Require().NotNil(platform)

	// a substring of an alias is not a token
	platform, err = s.cache.FindPlatform("lake")
	s.Require().NoError(err)
	s.Nil(platform)
}

func (s *CacheTestSuite) TestExactLookupIsCaseInsensitive() {
	env, err := s.cache.FindEnv("silicon")
	s.Require().NoError(err)
	s.Require().NotNil(env)
	s.Equal(s.seed.Env.ID, env.ID)

	status, err := s.cache.FindStatus("PASSED")
	s.Require().NoError(err)
	s.Require().NotNil(status)
	s.Equal(60, status.Priority)

	missing, err := s.cache.FindEnv("Simulation")
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *CacheTestSuite) TestMemoizationAndInvalidate() {
	env, err := s.cache.FindEnv("Silicon")
	s.Require().NoError(err)
	s.Require().NotNil(env)

	// a row added after the first load is invisible...
	s.Require().NoError(s.cache.DB().Create(&models.Env{Name: "Simulation"}).Error)
	missing, err := s.cache.FindEnv("Simulation")
	s.Require().NoError(err)
	s.Nil(missing)

	// ...until the table is invalidated
	s.cache.Invalidate(KindEnv)
	found, err := s.cache.FindEnv("Simulation")
	s.Require().NoError(err)
	s.NotNil(found)
}

func (s *CacheTestSuite) TestResolveItemCreatesExtras() {
	item, spec, err := s.cache.ResolveItem("item_name", "  test_plugin foo  -t 0001 -s scenario.csv ")
	s.Require().NoError(err)
	s.Nil(item)
	s.Require().NotNil(spec)
	s.Equal("test_plugin foo -t 0001 -s scenario.csv", spec.Args)
	s.Require().NotNil(spec.TestID)
	s.Equal("0001", *spec.TestID)
	s.Require().NotNil(spec.NewPlugin)
	s.Equal("test_plugin", spec.NewPlugin.Name)
	s.Require().NotNil(spec.NewScenario)
	s.Equal("scenario.csv", spec.NewScenario.Name)

	created, err := s.cache.CreateItem(spec)
	s.Require().NoError(err)
	s.Require().NotNil(created)
	s.NotNil(created.PluginID)
	s.NotNil(created.ScenarioID)
	s.True(s.cache.IsCreated(KindItem, created.ID))

	// the same row now resolves to the created item
	again, _, err := s.cache.ResolveItem("item_name", "test_plugin foo -t 0001 -s scenario.csv")
	s.Require().NoError(err)
	s.Require().NotNil(again)
	s.Equal(created.ID, again.ID)
}

func (s *CacheTestSuite) TestResolveItemDistinguishesNullExtras() {
	bare, spec, err := s.cache.ResolveItem("A", "B")
	s.Require().NoError(err)
	s.Nil(bare)
	created, err := s.cache.CreateItem(spec)
	s.Require().NoError(err)

	// same name/args with a concrete test id is a different item
	other, spec, err := s.cache.ResolveItem("A", "B -i 42")
	s.Require().NoError(err)
	s.Nil(other)
	concrete, err := s.cache.CreateItem(spec)
	s.Require().NoError(err)
	s.NotEqual(created.ID, concrete.ID)
}

func (s *CacheTestSuite) TestCreateEntitiesRegistry() {
	err := CreateEntities(s.cache.DB(), []EntitySpec{
		{Model: "Env", Fields: map[string]string{"name": "Emulation", "short_name": "emu"}},
		{Model: "Status", Fields: map[string]string{"test_status": "Aborted", "priority": "15"}},
	})
	s.Require().NoError(err)

	testutil.AssertCount(s.T(), s.cache.DB(), &models.Env{}, 2)

	var status models.Status
	s.Require().NoError(s.cache.DB().First(&status, "test_status = ?", "Aborted").Error)
	s.Equal(15, status.Priority)
}

func (s *CacheTestSuite) TestCreateEntitiesRejectsUnknownKind() {
	err := CreateEntities(s.cache.DB(), []EntitySpec{
		{Model: "Vertical", Fields: map[string]string{"name": "x"}},
	})
	s.Require().Error(err)
	s.ErrorIs(err, ErrUnsupportedKind)
}

func (s *CacheTestSuite) TestCreateEntitiesRejectsDuplicates() {
	err := CreateEntities(s.cache.DB(), []EntitySpec{
		{Model: "Env", Fields: map[string]string{"name": "Silicon"}},
	})
	s.Require().Error(err)
	s.ErrorIs(err, ErrExistingEntity)
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
