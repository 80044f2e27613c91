// Package seed loads reference-catalog fixtures so a fresh instance
// can resolve imported sheets without manual entity creation.
package seed

import (
	"os"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/collate-cloud/collate/pkg/db"
	"github.com/collate-cloud/collate/pkg/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	usage   = "seed"
	short   = "Seed the reference catalog"
	long    = "This command migrates the database and loads reference catalog fixtures from a YAML file"
	example = "collate seed -f fixtures.yaml"
)

var (
	// Cmd is the seed command.
	Cmd = &cobra.Command{
		Use:     usage,
		Short:   short,
		Long:    long,
		Example: example,
		RunE:    seed,
	}

	fixturePath string
)

func init() {
	Cmd.Flags().StringVarP(&fixturePath, "file", "f", "", "YAML fixture file (baseline statuses when omitted)")
}

// Fixture is the YAML shape of a catalog seed file.
type Fixture struct {
	Statuses []struct {
		TestStatus string `yaml:"test_status"`
		Priority   int    `yaml:"priority"`
	} `yaml:"statuses"`

	Envs []struct {
		Name      string `yaml:"name"`
		ShortName string `yaml:"short_name"`
	} `yaml:"envs"`

	Components []struct {
		Name string `yaml:"name"`
	} `yaml:"components"`

	Platforms []struct {
		Name      string `yaml:"name"`
		Aliases   string `yaml:"aliases"`
		ShortName string `yaml:"short_name"`
	} `yaml:"platforms"`

	OsGroups []struct {
		Name    string `yaml:"name"`
		Aliases string `yaml:"aliases"`
	} `yaml:"os_groups"`

	Oses []struct {
		Name     string `yaml:"name"`
		Group    string `yaml:"group"`
		Aliases  string `yaml:"aliases"`
		Shortcut string `yaml:"shortcut"`
	} `yaml:"oses"`

	Groups []struct {
		Name  string   `yaml:"name"`
		Masks []string `yaml:"masks"`
	} `yaml:"groups"`
}

// baseline is loaded when no fixture file is given: the status order
// every deployment relies on.
const baseline = `
statuses:
  - {test_status: Canceled, priority: 10}
  - {test_status: Skipped, priority: 20}
  - {test_status: Blocked, priority: 30}
  - {test_status: Error, priority: 40}
  - {test_status: Failed, priority: 50}
  - {test_status: Passed, priority: 60}
`

func seed(cmd *cobra.Command, args []string) error {
	log.Info("migrating database")
	if err := db.Migrate(); err != nil {
		return errors.Wrap(err, "database migration failure")
	}

	content := []byte(baseline)
	if fixturePath != "" {
		var err error
		if content, err = os.ReadFile(fixturePath); err != nil {
			return errors.Wrap(err, "reading fixture file")
		}
	}

	var fixture Fixture
	if err := yaml.Unmarshal(content, &fixture); err != nil {
		return errors.Wrap(err, "parsing fixture file")
	}

	return load(db.Connection(), &fixture)
}

func load(conn *gorm.DB, fixture *Fixture) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		for _, s := range fixture.Statuses {
			if err := upsert(tx, "test_status", &models.Status{TestStatus: s.TestStatus, Priority: s.Priority}); err != nil {
				return err
			}
		}

		for _, e := range fixture.Envs {
			if err := upsert(tx, "name", &models.Env{Name: e.Name, ShortName: e.ShortName}); err != nil {
				return err
			}
		}

		for _, c := range fixture.Components {
			if err := upsert(tx, "name", &models.Component{Name: c.Name}); err != nil {
				return err
			}
		}

		for _, p := range fixture.Platforms {
			if err := upsert(tx, "name", &models.Platform{Name: p.Name, Aliases: p.Aliases, ShortName: p.ShortName}); err != nil {
				return err
			}
		}

		for _, g := range fixture.OsGroups {
			if err := upsert(tx, "name", &models.OsGroup{Name: g.Name, Aliases: g.Aliases}); err != nil {
				return err
			}
		}

		for _, o := range fixture.Oses {
			osRow := &models.Os{Name: o.Name, Aliases: o.Aliases, Shortcut: o.Shortcut}
			if o.Group != "" {
				group := &models.OsGroup{}
				if err := tx.Where("name = ?", o.Group).First(group).Error; err != nil {
					return errors.Wrapf(err, "unknown os group %q", o.Group)
				}
				osRow.GroupID = &group.ID
			}
			if err := upsert(tx, "name", osRow); err != nil {
				return err
			}
		}

		for _, g := range fixture.Groups {
			if err := loadGroup(tx, g.Name, g.Masks); err != nil {
				return err
			}
		}

		return nil
	})
}

// upsert inserts the row, leaving an existing one untouched. Seeding
// is re-runnable without clobbering edits made since.
func upsert(tx *gorm.DB, key string, row interface{}) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		DoNothing: true,
	}).Create(row).Error
}

func loadGroup(tx *gorm.DB, name string, masks []string) error {
	group := &models.ResultGroup{Name: name}
	if err := upsert(tx, "name", group); err != nil {
		return err
	}
	if err := tx.Where("name = ?", name).First(group).Error; err != nil {
		return err
	}

	for i, mask := range masks {
		var count int64
		if err := tx.Model(&models.GroupMask{}).
			Where("mask = ? AND group_id = ?", mask, group.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := tx.Create(&models.GroupMask{Mask: mask, Ordering: i, GroupID: group.ID}).Error; err != nil {
			return err
		}
	}

	return nil
}
