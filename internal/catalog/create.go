package catalog

import (
	"fmt"
	"strconv"

	"github.com/collate-cloud/collate/internal/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// EntitySpec is the request shape for creating one reference entity,
// typically offered to the caller after a missing-entity warning.
type EntitySpec struct {
	Model  string            `json:"model"`
	Fields map[string]string `json:"fields"`
}

// ErrUnsupportedKind rejects entity kinds outside the closed
// registry.
var ErrUnsupportedKind = errors.New("unsupported entity kind")

// ErrExistingEntity rejects creation of an already existing entity.
var ErrExistingEntity = errors.New("entity already exists")

type entityBuilder func(fields map[string]string) (entity interface{}, where map[string]interface{}, err error)

// builders is the closed registry mapping entity kinds to typed
// builder functions. Unknown kinds are an explicit error, not a
// lookup miss.
var builders = map[Kind]entityBuilder{
	KindEnv: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.Env{Name: name, ShortName: f["short_name"]},
			map[string]interface{}{"name": name}, nil
	},
	KindComponent: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.Component{Name: name}, map[string]interface{}{"name": name}, nil
	},
	KindPlatform: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.Platform{Name: name, Aliases: f["aliases"], ShortName: f["short_name"]},
			map[string]interface{}{"name": name}, nil
	},
	KindOs: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.Os{Name: name, Aliases: f["aliases"], Shortcut: f["shortcut"]},
			map[string]interface{}{"name": name}, nil
	},
	KindOsGroup: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.OsGroup{Name: name, Aliases: f["aliases"]},
			map[string]interface{}{"name": name}, nil
	},
	KindStatus: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "test_status")
		if err != nil {
			return nil, nil, err
		}
		priority := 0
		if raw, ok := f["priority"]; ok {
			if priority, err = strconv.Atoi(raw); err != nil {
				return nil, nil, errors.Wrap(err, "invalid priority")
			}
		}
		return &models.Status{TestStatus: name, Priority: priority},
			map[string]interface{}{"test_status": name}, nil
	},
	KindPlugin: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.Plugin{Name: name}, map[string]interface{}{"name": name}, nil
	},
	KindScenario: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.Scenario{Name: name}, map[string]interface{}{"name": name}, nil
	},
	KindFeature: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.Feature{Name: name}, map[string]interface{}{"name": name}, nil
	},
	KindResultGroup: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		return &models.ResultGroup{Name: name}, map[string]interface{}{"name": name}, nil
	},
	KindDriver: func(f map[string]string) (interface{}, map[string]interface{}, error) {
		name, err := requireField(f, "name")
		if err != nil {
			return nil, nil, err
		}
		driver := &models.Driver{Name: name}
		if build, ok := f["build_id"]; ok && build != "" {
			driver.BuildID = &build
		}
		driver.Key = models.DriverKey(driver.Name, driver.BuildID)
		return driver, map[string]interface{}{"key": driver.Key}, nil
	},
}

// KnownKind reports whether the kind names a creatable entity.
func KnownKind(kind string) bool {
	if kind == string(KindItem) {
		return true
	}
	_, ok := builders[Kind(kind)]
	return ok
}

// CreateEntities validates and persists a batch of reference
// entities. Item creation goes through the catalog's args-aware
// resolution; everything else through the closed builder registry.
func CreateEntities(db *gorm.DB, specs []EntitySpec) error {
	cache := NewCache(db)

	for _, spec := range specs {
		if spec.Model == string(KindItem) {
			if err := createItemEntity(cache, spec.Fields); err != nil {
				return err
			}
			continue
		}

		builder, ok := builders[Kind(spec.Model)]
		if !ok {
			return errors.Wrapf(ErrUnsupportedKind, "%q", spec.Model)
		}

		entity, where, err := builder(spec.Fields)
		if err != nil {
			return err
		}

		var count int64
		if err := db.Model(entity).Where(where).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.Wrapf(ErrExistingEntity, "%s %v", spec.Model, where)
		}

		if err := db.Create(entity).Error; err != nil {
			return err
		}
	}

	return nil
}

func createItemEntity(cache *Cache, fields map[string]string) error {
	name, err := requireField(fields, "name")
	if err != nil {
		return err
	}
	args, err := requireField(fields, "args")
	if err != nil {
		return err
	}

	item, spec, err := cache.ResolveItem(name, args)
	if err != nil {
		return err
	}
	if item != nil {
		return errors.Wrapf(ErrExistingEntity, "Item %d", item.ID)
	}

	_, err = cache.CreateItem(spec)
	return err
}

func requireField(fields map[string]string, name string) (string, error) {
	value, ok := fields[name]
	if !ok || value == "" {
		return "", fmt.Errorf("'%s' property is missing in entity fields", name)
	}
	return value, nil
}
