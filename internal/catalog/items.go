package catalog

import (
	"regexp"

	"github.com/collate-cloud/collate/internal/models"
)

// Structured extras are derived from the item args string by
// pattern matching: a leading test_* token names the plugin, -s
// names the scenario, -i/-t carries the test id.
var (
	pluginPattern   = regexp.MustCompile(`^(test_\w+)`)
	scenarioPattern = regexp.MustCompile(`-s (\S+)`)
	testIDPattern   = regexp.MustCompile(`-[it] (\S+)`)
)

// ItemSpec describes an Item to be created: resolved extras plus any
// referenced Plugin/Scenario that do not exist yet.
type ItemSpec struct {
	Name string
	Args string

	PluginID   *uint
	ScenarioID *uint
	TestID     *string

	NewPlugin   *models.Plugin
	NewScenario *models.Scenario
}

// ResolveItem looks up an Item by name and args. The args string is
// whitespace-normalized and its extras resolved against the catalog.
// Returns the existing Item, or a spec for creating it on first
// encounter.
func (c *Cache) ResolveItem(name, args string) (*models.Item, *ItemSpec, error) {
	spec := &ItemSpec{Name: name, Args: models.NormalizeArgs(args)}

	if m := testIDPattern.FindStringSubmatch(spec.Args); m != nil {
		spec.TestID = &m[1]
	}

	if m := pluginPattern.FindStringSubmatch(spec.Args); m != nil {
		plugin, err := c.FindPlugin(m[1])
		if err != nil {
			return nil, nil, err
		}
		if plugin != nil {
			spec.PluginID = &plugin.ID
		} else {
			spec.NewPlugin = &models.Plugin{Name: m[1]}
		}
	}

	if m := scenarioPattern.FindStringSubmatch(spec.Args); m != nil {
		scenario, err := c.FindScenario(m[1])
		if err != nil {
			return nil, nil, err
		}
		if scenario != nil {
			spec.ScenarioID = &scenario.ID
		} else {
			spec.NewScenario = &models.Scenario{Name: m[1]}
		}
	}

	// a missing plugin or scenario implies the item cannot exist yet
	if spec.NewPlugin == nil && spec.NewScenario == nil {
		key := models.ItemKey(spec.Name, spec.Args, spec.PluginID, spec.ScenarioID, spec.TestID)
		item, err := c.FindItemByKey(key)
		if err != nil {
			return nil, nil, err
		}
		if item != nil {
			return item, spec, nil
		}
	}

	return nil, spec, nil
}

// CreateItem materializes a spec: persists any new Plugin/Scenario
// it references, then the Item itself, and invalidates the affected
// cache tables so later lookups in the same job observe the rows.
func (c *Cache) CreateItem(spec *ItemSpec) (*models.Item, error) {
	if spec.NewPlugin != nil {
		if err := c.db.Create(spec.NewPlugin).Error; err != nil {
			return nil, err
		}
		spec.PluginID = &spec.NewPlugin.ID
		c.MarkCreated(KindPlugin, spec.NewPlugin.ID)
		c.Invalidate(KindPlugin)
	}

	if spec.NewScenario != nil {
		if err := c.db.Create(spec.NewScenario).Error; err != nil {
			return nil, err
		}
		spec.ScenarioID = &spec.NewScenario.ID
		c.MarkCreated(KindScenario, spec.NewScenario.ID)
		c.Invalidate(KindScenario)
	}

	item := &models.Item{
		Name:       spec.Name,
		Args:       spec.Args,
		PluginID:   spec.PluginID,
		ScenarioID: spec.ScenarioID,
		TestID:     spec.TestID,
	}
	item.Rekey()

	if err := c.db.Create(item).Error; err != nil {
		return nil, err
	}

	c.MarkCreated(KindItem, item.ID)
	c.Invalidate(KindItem)

	return item, nil
}
