package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleTechnician UserRole = "TECHNICIAN"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTechnician
}

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	TenantID     uint64    `gorm:"not null;index" json:"tenant_id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Role         UserRole  `gorm:"type:varchar(20);not null" json:"role"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Tenant        Tenant `gorm:"foreignKey:TenantID" json:"-"`
	AssignedTasks []Task `gorm:"foreignKey:AssignedTechnicianID" json:"-"`
}

// DisplayName falls back to the email when no name is stored.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
