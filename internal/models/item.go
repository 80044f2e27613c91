package models

import (
	"fmt"
	"strings"
)

// nullSentinel stands in for an absent optional part of the Item
// key, so that one composite unique index can emulate per-NULL
// partial constraints: two rows are duplicates only when every
// optional part is absent (or equal) in both.
const nullSentinel = "~"

// Item identifies a test case: name plus whitespace-normalized args,
// and optional extras derived from the args string.
type Item struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"not null" json:"name"`
	Args       string  `gorm:"not null" json:"args"`
	PluginID   *uint   `gorm:"index" json:"plugin_id,omitempty"`
	ScenarioID *uint   `gorm:"index" json:"scenario_id,omitempty"`
	TestID     *string `json:"test_id,omitempty"`
	GroupID    *uint   `gorm:"index" json:"group_id,omitempty"`
	Key        string  `gorm:"uniqueIndex;not null" json:"-"`
}

// NormalizeArgs collapses leading, trailing and consecutive spaces.
func NormalizeArgs(args string) string {
	return strings.Join(strings.Fields(args), " ")
}

// ItemKey builds the canonical uniqueness key for an Item.
func ItemKey(name, args string, pluginID, scenarioID *uint, testID *string) string {
	plugin := nullSentinel
	if pluginID != nil {
		plugin = fmt.Sprintf("%d", *pluginID)
	}

	scenario := nullSentinel
	if scenarioID != nil {
		scenario = fmt.Sprintf("%d", *scenarioID)
	}

	test := nullSentinel
	if testID != nil {
		test = *testID
	}

	return strings.Join([]string{name, NormalizeArgs(args), plugin, scenario, test}, "|")
}

// Rekey recomputes the canonical key from the current fields.
func (i *Item) Rekey() {
	i.Args = NormalizeArgs(i.Args)
	i.Key = ItemKey(i.Name, i.Args, i.PluginID, i.ScenarioID, i.TestID)
}

// DriverKey builds the nullable-aware uniqueness key for a Driver.
func DriverKey(name string, buildID *string) string {
	build := nullSentinel
	if buildID != nil {
		build = *buildID
	}
	return name + "|" + build
}
