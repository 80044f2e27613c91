package seed

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/internal/models/testutil"
)

const fixtureContent = `
statuses:
  - {test_status: Failed, priority: 50}
  - {test_status: Passed, priority: 60}
envs:
  - {name: Silicon, short_name: si}
platforms:
  - {name: Apollo_Lake, aliases: "Apollo Lake;ApolloLake;"}
os_groups:
  - {name: Windows, aliases: "win;win10"}
oses:
  - {name: Windows 10 21H2, group: Windows, aliases: win10-21h2}
groups:
  - name: decode
    masks:
      - test_dec\w+
      - test_hevc\w+
`

func TestLoadIsIdempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	var fixture Fixture
	require.NoError(t, yaml.Unmarshal([]byte(fixtureContent), &fixture))

	require.NoError(t, load(db, &fixture))
	require.NoError(t, load(db, &fixture))

	testutil.AssertCount(t, db, &models.Status{}, 2)
	testutil.AssertCount(t, db, &models.Env{}, 1)
	testutil.AssertCount(t, db, &models.Platform{}, 1)
	testutil.AssertCount(t, db, &models.OsGroup{}, 1)
	testutil.AssertCount(t, db, &models.Os{}, 1)
	testutil.AssertCount(t, db, &models.ResultGroup{}, 1)
	testutil.AssertCount(t, db, &models.GroupMask{}, 2)

	var osRow models.Os
	require.NoError(t, db.Where("name = ?", "Windows 10 21H2").First(&osRow).Error)
	require.NotNil(t, osRow.GroupID)

	var masks []models.GroupMask
	require.NoError(t, db.Order("ordering").Find(&masks).Error)
	require.Equal(t, `test_dec\w+`, masks[0].Mask)
	require.Equal(t, 0, masks[0].Ordering)
	require.Equal(t, 1, masks[1].Ordering)
}

func TestBaselineStatuses(t *testing.T) {
	db := testutil.OpenTestDB(t)
	defer testutil.CloseDB(db)

	var fixture Fixture
	require.NoError(t, yaml.Unmarshal([]byte(baseline), &fixture))
	require.NoError(t, load(db, &fixture))

	var passed models.Status
	require.NoError(t, db.Where("test_status = ?", "Passed").First(&passed).Error)
	require.Equal(t, 60, passed.Priority)

	var canceled models.Status
	require.NoError(t, db.Where("test_status = ?", "Canceled").First(&canceled).Error)
	require.Equal(t, 10, canceled.Priority)
}
