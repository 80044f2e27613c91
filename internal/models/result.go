package models

import (
	"time"

	"gorm.io/datatypes"
)

// Result is the fact row: the outcome of one Item under one
// Validation. At most one live Result may exist per
// (validation, item, platform, env, os) tuple; the reconciler is the
// sole enforcer of that invariant, there is no database constraint.
type Result struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	ValidationID uint  `gorm:"index;not null" json:"validation_id"`
	ItemID       uint  `gorm:"index;not null" json:"item_id"`
	ComponentID  uint  `gorm:"index;not null" json:"component_id"`
	EnvID        uint  `gorm:"not null" json:"env_id"`
	PlatformID   uint  `gorm:"not null" json:"platform_id"`
	OsID         uint  `gorm:"not null" json:"os_id"`
	StatusID     uint  `gorm:"index;not null" json:"status_id"`
	RunID        uint  `gorm:"index;not null" json:"run_id"`
	DriverID     *uint `gorm:"index" json:"driver_id,omitempty"`
	KernelID     *uint `json:"kernel_id,omitempty"`

	AdditionalParameters datatypes.JSONMap `gorm:"type:json" json:"additional_parameters,omitempty"`

	ExecStart    time.Time `json:"exec_start"`
	ExecEnd      time.Time `json:"exec_end"`
	ResultKey    string    `json:"result_key"`
	ResultURL    string    `json:"result_url"`
	ResultReason string    `json:"result_reason,omitempty"`
	Changed      bool      `gorm:"default:false" json:"changed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Results []*Result

// ResultHistory is the audit trail: one row per save that changed a
// tracked column, recording the acting user and the reason given.
type ResultHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ResultID    uint      `gorm:"index;not null" json:"result_id"`
	OldStatusID uint      `json:"old_status_id"`
	NewStatusID uint      `json:"new_status_id"`
	UserID      *uint     `json:"user_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResultFeature links Results to observed Features.
type ResultFeature struct {
	ResultID  uint `gorm:"primaryKey;autoIncrement:false" json:"result_id"`
	FeatureID uint `gorm:"primaryKey;autoIncrement:false" json:"feature_id"`
}
