package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a complaint category.
type Category string

const (
	CategoryDelay           Category = "delay"
	CategoryOfficerBehavior Category = "officer_behavior"
	CategoryTechnicalIssue  Category = "technical_issue"
	CategoryOther           Category = "other"
)

// Valid reports whether c is one of the accepted categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDelay, CategoryOfficerBehavior, CategoryTechnicalIssue, CategoryOther:
		return true
	}
	return false
}

// Status is the workflow state of a complaint. Any value may follow any other.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusEscalated  Status = "escalated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusEscalated:
		return true
	}
	return false
}

// Customer is the submitter of a complaint, embedded in the record.
type Customer struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// LogEntry is one line of a complaint's audit trail.
type LogEntry struct {
	Actor  string    `json:"actor" bson:"actor"`
	Action string    `json:"action" bson:"action"`
	Note   string    `json:"note,omitempty" bson:"note,omitempty"`
	At     time.Time `json:"at" bson:"at"`
}

// Complaint is a complaint submitted through the public console.
type Complaint struct {
	ID            string     `gorm:"primaryKey;type:text" json:"_id" bson:"_id"`
	ReferenceID   string     `gorm:"uniqueIndex;not null" json:"referenceId" bson:"referenceId"`
	Customer      Customer   `gorm:"serializer:json;type:jsonb" json:"customer" bson:"customer"`
	Category      Category   `gorm:"index" json:"category" bson:"category"`
	Description   string     `gorm:"type:text;not null" json:"description" bson:"description"`
	Status        Status     `gorm:"index;default:pending" json:"status" bson:"status"`
	ResponseNotes string     `gorm:"type:text" json:"responseNotes,omitempty" bson:"responseNotes,omitempty"`
	Branch        string     `json:"branch,omitempty" bson:"branch,omitempty"`
	Logs          []LogEntry `gorm:"serializer:json;type:jsonb" json:"logs" bson:"logs"`
	Version       int64      `gorm:"not null;default:0" json:"version" bson:"version"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns an ID when none is set.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	c.AssignID()
	return
}

// AssignID sets a fresh UUID when the complaint has no ID yet.
func (c *Complaint) AssignID() {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
}

// OwnedBy reports whether email exactly matches the stored submitter email.
// An empty email never matches.
func (c *Complaint) OwnedBy(email string) bool {
	return email != "" && c.Customer.Email != "" && c.Customer.Email == email
}

// AppendLog adds an entry to the audit trail.
func (c *Complaint) AppendLog(actor, action, note string, at time.Time) {
	c.Logs = append(c.Logs, LogEntry{Actor: actor, Action: action, Note: note, At: at})
}

// NormalizeCategory lowercases and trims a raw category; empty becomes "other".
func NormalizeCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c == "" {
		return CategoryOther
	}
	return c
}
