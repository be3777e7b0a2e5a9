package models

import (
	"time"

	"gorm.io/datatypes"
)

type Project struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	TenantID       uint64         `gorm:"not null;uniqueIndex:idx_projects_tenant_number,priority:1;uniqueIndex:idx_projects_tenant_name,priority:1" json:"tenant_id"`
	ProjectNumber  string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_projects_tenant_number,priority:2" json:"project_number"`
	Name           string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_projects_tenant_name,priority:2" json:"name"`
	CustomerEmails datatypes.JSON `json:"customer_emails,omitempty"`
	Specs          datatypes.JSON `json:"specs,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Relations
	Tenant Tenant `gorm:"foreignKey:TenantID" json:"-"`
	Tasks  []Task `gorm:"foreignKey:ProjectID" json:"-"`
}

// ProjectCounter holds the next sequence to hand out for a tenant and year.
type ProjectCounter struct {
	TenantID  uint64    `gorm:"primaryKey;autoIncrement:false" json:"tenant_id"`
	Year      int       `gorm:"primaryKey;autoIncrement:false" json:"year"`
	NextSeq   int64     `gorm:"not null;default:1" json:"next_seq"`
	UpdatedAt time.Time `json:"updated_at"`
}
