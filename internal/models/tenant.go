package models

import (
	"time"
)

type NumberingMode string

const (
	// NumberingModeCounter allocates project sequences from the project_counters table.
	NumberingModeCounter NumberingMode = "counter"
	// NumberingModeScan derives the next sequence from existing project numbers.
	NumberingModeScan NumberingMode = "scan"
)

type Tenant struct {
	ID                  uint64        `gorm:"primarykey" json:"id"`
	Name                string        `gorm:"type:varchar(255);not null" json:"name"`
	ProjectNumberPrefix string        `gorm:"type:varchar(10);not null;default:'02'" json:"project_number_prefix"`
	ProjectNumberFormat string        `gorm:"type:varchar(50);not null;default:'PREFIX-YYYY-NNNN'" json:"project_number_format"`
	NumberingMode       NumberingMode `gorm:"type:varchar(20);not null;default:'counter'" json:"numbering_mode"`
	InviteCode          string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	IsActive            bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`

	// Relations
	Users    []User    `gorm:"foreignKey:TenantID" json:"-"`
	Projects []Project `gorm:"foreignKey:TenantID" json:"-"`
}
