package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Validation is a named run context grouping Results under one
// env/platform/os. Counters and the component/feature id lists are
// derived from the owned Results and recomputed, never hand-edited.
type Validation struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"not null;uniqueIndex:uniq_validation" json:"name"`
	EnvID      uint       `gorm:"not null;uniqueIndex:uniq_validation" json:"env_id"`
	PlatformID uint       `gorm:"not null;uniqueIndex:uniq_validation" json:"platform_id"`
	OsID       uint       `gorm:"not null;uniqueIndex:uniq_validation" json:"os_id"`
	Notes      string     `json:"notes,omitempty"`
	SourceFile string     `json:"source_file,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	OwnerID    *uint      `gorm:"index" json:"owner_id,omitempty"`
	Ignore     bool       `gorm:"default:false;index" json:"ignore"`

	Passed   int `gorm:"default:0" json:"passed"`
	Failed   int `gorm:"default:0" json:"failed"`
	Error    int `gorm:"default:0" json:"error"`
	Blocked  int `gorm:"default:0" json:"blocked"`
	Skipped  int `gorm:"default:0" json:"skipped"`
	Canceled int `gorm:"default:0" json:"canceled"`

	Components datatypes.JSONSlice[uint] `json:"components"`
	Features   datatypes.JSONSlice[uint] `json:"features"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Validations []*Validation

// SetByStatus assigns a counter by status name, case-insensitive.
// Unknown status names are ignored.
func (v *Validation) SetByStatus(status string, count int) {
	switch strings.ToLower(status) {
	case "passed":
		v.Passed = count
	case "failed":
		v.Failed = count
	case "error":
		v.Error = count
	case "blocked":
		v.Blocked = count
	case "skipped":
		v.Skipped = count
	case "canceled":
		v.Canceled = count
	}
}

// GetByStatus reads a counter by status name, case-insensitive.
func (v *Validation) GetByStatus(status string) int {
	switch strings.ToLower(status) {
	case "passed":
		return v.Passed
	case "failed":
		return v.Failed
	case "error":
		return v.Error
	case "blocked":
		return v.Blocked
	case "skipped":
		return v.Skipped
	case "canceled":
		return v.Canceled
	}
	return 0
}

// ResetCounters zeroes every status counter before a recompute.
func (v *Validation) ResetCounters() {
	v.Passed, v.Failed, v.Error, v.Blocked, v.Skipped, v.Canceled = 0, 0, 0, 0, 0, 0
}

// Stats renders the non-zero counters for logs and notifications.
func (v *Validation) Stats() string {
	parts := []string{}
	for _, s := range []struct {
		name  string
		count int
	}{
		{"passed", v.Passed},
		{"failed", v.Failed},
		{"error", v.Error},
		{"blocked", v.Blocked},
		{"skipped", v.Skipped},
		{"canceled", v.Canceled},
	} {
		if s.count > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", s.name, s.count))
		}
	}
	return strings.Join(parts, ", ")
}
