package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is fixed at registration and never changes afterwards.
type Role string

const (
	RoleStudent    Role = "student"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleStudent, RoleSupervisor, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"type:text;not null;uniqueIndex:uq_users_email" json:"email,omitempty"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`
	FullName     string    `gorm:"type:text;not null" json:"full_name"`
	Role         Role      `gorm:"type:text;not null;check:role IN ('student','supervisor','admin')" json:"role,omitempty"`
	Faculty      string    `gorm:"type:text" json:"faculty,omitempty"`
	Department   string    `gorm:"type:text" json:"department,omitempty"`
	// StudentID is only kept for students.
	StudentID *string `gorm:"type:text" json:"student_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;index" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null" json:"updated_at,omitempty"`

	// User <-> Project (submitter)
	Projects []Project `gorm:"foreignKey:SubmitterID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE;" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
