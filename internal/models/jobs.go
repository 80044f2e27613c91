package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobStatus is the unit-of-work state machine: pending transitions
// to failed or done exactly once, by the job runner, and a job is
// never reopened.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusFailed  JobStatus = "failed"
	JobStatusDone    JobStatus = "done"
)

type ImportJob struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Status       JobStatus `gorm:"size:7;default:pending;index" json:"status"`
	RequesterID  uint      `gorm:"not null" json:"requester_id"`
	Path         string    `gorm:"not null" json:"path"`
	ValidationID uint      `gorm:"not null" json:"validation_id"`
	ForceRun     bool      `gorm:"default:false" json:"force_run"`
	ForceItem    bool      `gorm:"default:false" json:"force_item"`
	ImportReason string    `json:"import_reason,omitempty"`
	SiteURL      string    `gorm:"size:255" json:"site_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MergeJob struct {
	ID             uint                      `gorm:"primaryKey" json:"id"`
	Status         JobStatus                 `gorm:"size:7;default:pending;index" json:"status"`
	RequesterID    uint                      `gorm:"not null" json:"requester_id"`
	ValidationName string                    `gorm:"size:255;not null" json:"validation_name"`
	Notes          string                    `json:"notes,omitempty"`
	Strategy       string                    `gorm:"size:255" json:"strategy"`
	SourceIDs      datatypes.JSONSlice[uint] `json:"source_ids"`
	SiteURL        string                    `gorm:"size:255" json:"site_url"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

type CloneJob struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Status         JobStatus `gorm:"size:7;default:pending;index" json:"status"`
	RequesterID    uint      `gorm:"not null" json:"requester_id"`
	ValidationName string    `gorm:"size:255;not null" json:"validation_name"`
	Notes          string    `json:"notes,omitempty"`
	SourceID       uint      `gorm:"not null" json:"source_id"`
	SiteURL        string    `gorm:"size:255" json:"site_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
