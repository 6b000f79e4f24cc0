package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role of a staff account.
type Role string

const (
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleManager || r == RoleAdmin
}

// Manager is a staff account that signs in to the admin console.
type Manager struct {
	ID           string    `gorm:"primaryKey;type:text" json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         Role      `gorm:"default:manager" json:"role" bson:"role"`
	Branch       string    `json:"branch,omitempty" bson:"branch,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// BeforeCreate is a GORM hook that generates a UUID when ID is empty.
func (m *Manager) BeforeCreate(tx *gorm.DB) (err error) {
	m.AssignID()
	return
}

func (m *Manager) AssignID() {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
}
