package models

import "time"

// Reference catalog tables. These are read-mostly lookups resolved
// by the reconciliation engine; aliases are semicolon-separated
// token lists matched case-insensitively.

type Generation struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	ParentID *uint  `json:"parent_id,omitempty"`
	Weight   int    `json:"weight"`
}

type Platform struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:32;not null" json:"name"`
	GenerationID *uint  `gorm:"index" json:"generation_id,omitempty"`
	Aliases      string `gorm:"size:255" json:"aliases,omitempty"`
	ShortName    string `gorm:"size:16" json:"short_name,omitempty"`
	Weight       int    `gorm:"default:0" json:"weight"`
	Planning     bool   `gorm:"default:false" json:"planning"`
}

type Env struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:32;not null" json:"name"`
	ShortName string `gorm:"size:10" json:"short_name,omitempty"`
}

type Component struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null" json:"name"`
}

type Kernel struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `json:"name,omitempty"`
	UpdatedDate *time.Time `json:"updated_date,omitempty"`
}

// Driver uniqueness treats a missing build id as its own value:
// the normalized key carries a sentinel for NULL.
type Driver struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	Name    string  `gorm:"not null" json:"name"`
	BuildID *string `json:"build_id,omitempty"`
	Key     string  `gorm:"uniqueIndex;not null" json:"-"`
}

type Plugin struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type Scenario struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type Os struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:32;uniqueIndex;not null" json:"name"`
	GroupID  *uint  `gorm:"index" json:"group_id,omitempty"`
	Aliases  string `gorm:"size:255" json:"aliases,omitempty"`
	Planning bool   `gorm:"default:false" json:"planning"`
	Weight   int    `json:"weight"`
	Shortcut string `gorm:"size:32" json:"shortcut,omitempty"`
}

type OsGroup struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:32;uniqueIndex;not null" json:"name"`
	Aliases string `gorm:"size:255" json:"aliases,omitempty"`
}

// Status is an outcome tag. Priority defines a total order from
// worst to best; it gates overwrites and drives "best" merges.
type Status struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TestStatus string `gorm:"uniqueIndex;not null" json:"test_status"`
	Priority   int    `gorm:"default:0" json:"priority"`
}

type Run struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"not null;uniqueIndex:uniq_run_session" json:"name"`
	Session         string `gorm:"not null;uniqueIndex:uniq_run_session" json:"session"`
	ValidationCycle string `json:"validation_cycle,omitempty"`
}

type Feature struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null" json:"name"`
}

type ResultGroup struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// GroupMask classifies new Items: masks are tried in Ordering, the
// first regex matching the item name assigns the group.
type GroupMask struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Mask     string `gorm:"not null" json:"mask"`
	Ordering int    `gorm:"default:0;index" json:"ordering"`
	GroupID  uint   `gorm:"not null" json:"group_id"`
}
