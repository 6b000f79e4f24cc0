package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sender tags who wrote a reply.
type Sender string

const (
	SenderAdmin Sender = "admin"
	SenderUser  Sender = "user"
)

// Reply is an entry in a feedback thread. Replies live inside their feedback.
type Reply struct {
	ID        string    `json:"_id" bson:"_id"`
	Sender    Sender    `json:"sender" bson:"sender"`
	Message   string    `json:"message" bson:"message"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Feedback is a rated comment left through the public console.
type Feedback struct {
	ID        string    `gorm:"primaryKey;type:text" json:"_id" bson:"_id"`
	Username  string    `json:"username,omitempty" bson:"username,omitempty"`
	Email     string    `gorm:"index" json:"email,omitempty" bson:"email,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message" bson:"message"`
	Rating    *int      `json:"rating,omitempty" bson:"rating,omitempty"`
	Category  string    `json:"category,omitempty" bson:"category,omitempty"`
	SessionID string    `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	Replies   []Reply   `gorm:"serializer:json;type:jsonb" json:"replies" bson:"replies"`
	Version   int64     `gorm:"not null;default:0" json:"version" bson:"version"`
	CreatedAt time.Time `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns an ID when none is set.
func (f *Feedback) BeforeCreate(tx *gorm.DB) (err error) {
	f.AssignID()
	return
}

func (f *Feedback) AssignID() {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
}

// FindReply returns the index of the reply with the given id, or -1.
func (f *Feedback) FindReply(replyID string) int {
	for i := range f.Replies {
		if f.Replies[i].ID == replyID {
			return i
		}
	}
	return -1
}

// HasValidRating reports whether the feedback carries a rating in [min, max].
func (f *Feedback) HasValidRating(min, max int) bool {
	return f.Rating != nil && *f.Rating >= min && *f.Rating <= max
}

// NewReply builds a reply with a fresh id. Email is kept only for user replies.
func NewReply(sender Sender, message, email string, at time.Time) Reply {
	r := Reply{
		ID:        uuid.New().String(),
		Sender:    sender,
		Message:   message,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if sender == SenderUser {
		r.Email = email
	}
	return r
}
