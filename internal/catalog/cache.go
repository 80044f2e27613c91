// Package catalog provides alias-tolerant lookup over the reference
// tables, memoized per job. A Cache loads each table once on first
// access and must be discarded (or Reset) between jobs: reference
// tables gain rows mid-session, so reuse across jobs is a
// correctness bug, not a performance nuisance.
package catalog

import (
	"strings"

	"github.com/collate-cloud/collate/internal/models"
	"gorm.io/gorm"
)

// Kind enumerates the reference entity kinds the catalog serves.
type Kind string

const (
	KindEnv         Kind = "Env"
	KindPlatform    Kind = "Platform"
	KindOs          Kind = "Os"
	KindOsGroup     Kind = "OsGroup"
	KindComponent   Kind = "Component"
	KindDriver      Kind = "Driver"
	KindKernel      Kind = "Kernel"
	KindPlugin      Kind = "Plugin"
	KindScenario    Kind = "Scenario"
	KindStatus      Kind = "Status"
	KindRun         Kind = "Run"
	KindItem        Kind = "Item"
	KindFeature     Kind = "Feature"
	KindResultGroup Kind = "ResultGroup"
	KindGroupMask   Kind = "GroupMask"
	KindGeneration  Kind = "Generation"
)

// Cache memoizes reference-table reads for the lifetime of one job.
type Cache struct {
	db *gorm.DB

	loaded map[Kind]bool

	envs       []*models.Env
	platforms  []*models.Platform
	oses       []*models.Os
	osGroups   []*models.OsGroup
	components []*models.Component
	drivers    []*models.Driver
	plugins    []*models.Plugin
	scenarios  []*models.Scenario
	statuses   []*models.Status
	runs       []*models.Run
	items      []*models.Item
	groups     []*models.ResultGroup
	masks      []*models.GroupMask

	created map[Kind]map[uint]struct{}
}

// NewCache builds an empty per-job cache over the given connection.
// Inside a job transaction, pass the transaction handle so lookups
// observe the job's own writes.
func NewCache(db *gorm.DB) *Cache {
	return &Cache{
		db:      db,
		loaded:  map[Kind]bool{},
		created: map[Kind]map[uint]struct{}{},
	}
}

// DB exposes the connection the cache reads from.
func (c *Cache) DB() *gorm.DB {
	return c.db
}

// Reset drops every memoized table and creation mark.
func (c *Cache) Reset() {
	c.loaded = map[Kind]bool{}
	c.created = map[Kind]map[uint]struct{}{}
	c.envs, c.platforms, c.oses, c.osGroups = nil, nil, nil, nil
	c.components, c.drivers, c.plugins, c.scenarios = nil, nil, nil, nil
	c.statuses, c.runs, c.items, c.groups, c.masks = nil, nil, nil, nil, nil
}

// Invalidate drops the memoized copy of the given kinds so the next
// lookup reloads them.
func (c *Cache) Invalidate(kinds ...Kind) {
	for _, kind := range kinds {
		delete(c.loaded, kind)
		switch kind {
		case KindEnv:
			c.envs = nil
		case KindPlatform:
			c.platforms = nil
		case KindOs:
			c.oses = nil
		case KindOsGroup:
			c.osGroups = nil
		case KindComponent:
			c.components = nil
		case KindDriver:
			c.drivers = nil
		case KindPlugin:
			c.plugins = nil
		case KindScenario:
			c.scenarios = nil
		case KindStatus:
			c.statuses = nil
		case KindRun:
			c.runs = nil
		case KindItem:
			c.items = nil
		case KindResultGroup:
			c.groups = nil
		case KindGroupMask:
			c.masks = nil
		}
	}
}

// MarkCreated records that an entity was created by the current job,
// e.g. to suppress the existing-run warning for runs this very
// import introduced.
func (c *Cache) MarkCreated(kind Kind, id uint) {
	if c.created[kind] == nil {
		c.created[kind] = map[uint]struct{}{}
	}
	c.created[kind][id] = struct{}{}
}

// IsCreated reports whether the current job created the entity.
func (c *Cache) IsCreated(kind Kind, id uint) bool {
	_, ok := c.created[kind][id]
	return ok
}

func (c *Cache) load(kind Kind, dest interface{}) error {
	if c.loaded[kind] {
		return nil
	}
	if err := c.db.Find(dest).Error; err != nil {
		return err
	}
	c.loaded[kind] = true
	return nil
}

// FindEnv resolves an Env by name, case-insensitively.
func (c *Cache) FindEnv(name string) (*models.Env, error) {
	if err := c.load(KindEnv, &c.envs); err != nil {
		return nil, err
	}
	for _, env := range c.envs {
		if strings.EqualFold(env.Name, name) {
			return env, nil
		}
	}
	return nil, nil
}

// FindComponent resolves a Component by name, case-insensitively.
func (c *Cache) FindComponent(name string) (*models.Component, error) {
	if err := c.load(KindComponent, &c.components); err != nil {
		return nil, err
	}
	for _, component := range c.components {
		if strings.EqualFold(component.Name, name) {
			return component, nil
		}
	}
	return nil, nil
}

// FindStatus resolves a Status by its outcome tag.
func (c *Cache) FindStatus(testStatus string) (*models.Status, error) {
	if err := c.load(KindStatus, &c.statuses); err != nil {
		return nil, err
	}
	for _, status := range c.statuses {
		if strings.EqualFold(status.TestStatus, testStatus) {
			return status, nil
		}
	}
	return nil, nil
}

// StatusByID resolves a Status by primary key.
func (c *Cache) StatusByID(id uint) (*models.Status, error) {
	if err := c.load(KindStatus, &c.statuses); err != nil {
		return nil, err
	}
	for _, status := range c.statuses {
		if status.ID == id {
			return status, nil
		}
	}
	return nil, nil
}

// FindPlatform resolves a Platform by canonical name or alias token.
func (c *Cache) FindPlatform(name string) (*models.Platform, error) {
	if err := c.load(KindPlatform, &c.platforms); err != nil {
		return nil, err
	}
	for _, platform := range c.platforms {
		if matchAlias(platform.Name, platform.Aliases, name) {
			return platform, nil
		}
	}
	return nil, nil
}

// FindOs resolves an Os by canonical name or alias token.
func (c *Cache) FindOs(name string) (*models.Os, error) {
	if err := c.load(KindOs, &c.oses); err != nil {
		return nil, err
	}
	for _, os := range c.oses {
		if matchAlias(os.Name, os.Aliases, name) {
			return os, nil
		}
	}
	return nil, nil
}

// FindRun resolves a Run by name and session.
func (c *Cache) FindRun(name, session string) (*models.Run, error) {
	if err := c.load(KindRun, &c.runs); err != nil {
		return nil, err
	}
	for _, run := range c.runs {
		if strings.EqualFold(run.Name, name) && strings.EqualFold(run.Session, session) {
			return run, nil
		}
	}
	return nil, nil
}

// FindPlugin resolves a Plugin by name.
func (c *Cache) FindPlugin(name string) (*models.Plugin, error) {
	if err := c.load(KindPlugin, &c.plugins); err != nil {
		return nil, err
	}
	for _, plugin := range c.plugins {
		if strings.EqualFold(plugin.Name, name) {
			return plugin, nil
		}
	}
	return nil, nil
}

// FindScenario resolves a Scenario by name.
func (c *Cache) FindScenario(name string) (*models.Scenario, error) {
	if err := c.load(KindScenario, &c.scenarios); err != nil {
		return nil, err
	}
	for _, scenario := range c.scenarios {
		if strings.EqualFold(scenario.Name, name) {
			return scenario, nil
		}
	}
	return nil, nil
}

// FindItemByKey resolves an Item by its normalized uniqueness key.
func (c *Cache) FindItemByKey(key string) (*models.Item, error) {
	if err := c.load(KindItem, &c.items); err != nil {
		return nil, err
	}
	for _, item := range c.items {
		if item.Key == key {
			return item, nil
		}
	}
	return nil, nil
}

// FindDriver resolves a Driver by its nullable-aware key.
func (c *Cache) FindDriver(key string) (*models.Driver, error) {
	if err := c.load(KindDriver, &c.drivers); err != nil {
		return nil, err
	}
	for _, driver := range c.drivers {
		if driver.Key == key {
			return driver, nil
		}
	}
	return nil, nil
}

// Masks returns the group masks in their configured ordering.
func (c *Cache) Masks() ([]*models.GroupMask, error) {
	if !c.loaded[KindGroupMask] {
		if err := c.db.Order("ordering, id").Find(&c.masks).Error; err != nil {
			return nil, err
		}
		c.loaded[KindGroupMask] = true
	}
	return c.masks, nil
}

// FindGroup resolves a ResultGroup by name.
func (c *Cache) FindGroup(name string) (*models.ResultGroup, error) {
	if err := c.load(KindResultGroup, &c.groups); err != nil {
		return nil, err
	}
	for _, group := range c.groups {
		if strings.EqualFold(group.Name, name) {
			return group, nil
		}
	}
	return nil, nil
}

// GroupByID resolves a ResultGroup by id.
func (c *Cache) GroupByID(id uint) (*models.ResultGroup, error) {
	if err := c.load(KindResultGroup, &c.groups); err != nil {
		return nil, err
	}
	for _, group := range c.groups {
		if group.ID == id {
			return group, nil
		}
	}
	return nil, nil
}

// matchAlias reports whether name equals the canonical name or is a
// full token of the semicolon-separated alias list, ignoring case.
// A partial token ("lake" against "Apollo Lake") never matches.
func matchAlias(canonical, aliases, name string) bool {
	if strings.EqualFold(canonical, name) {
		return true
	}
	if aliases == "" {
		return false
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	for _, alias := range strings.Split(strings.ToLower(aliases), ";") {
		if alias = strings.TrimSpace(alias); alias != "" && alias == needle {
			return true
		}
	}
	return false
}
