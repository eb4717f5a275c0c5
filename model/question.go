package model

import (
	"time"
)

// QuestionStatus tracks a contact-form submission through triage
type QuestionStatus string

const (
	QuestionStatusOpen       QuestionStatus = "open"
	QuestionStatusInProgress QuestionStatus = "in_progress"
	QuestionStatusResolved   QuestionStatus = "resolved"
	QuestionStatusClosed     QuestionStatus = "closed"
)

// Valid reports whether s is a known status
func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionStatusOpen, QuestionStatusInProgress, QuestionStatusResolved, QuestionStatusClosed:
		return true
	}
	return false
}

// QuestionPriority orders the admin queue
type QuestionPriority string

const (
	QuestionPriorityLow    QuestionPriority = "low"
	QuestionPriorityNormal QuestionPriority = "normal"
	QuestionPriorityHigh   QuestionPriority = "high"
	QuestionPriorityUrgent QuestionPriority = "urgent"
)

// Valid reports whether p is a known priority
func (p QuestionPriority) Valid() bool {
	switch p {
	case QuestionPriorityLow, QuestionPriorityNormal, QuestionPriorityHigh, QuestionPriorityUrgent:
		return true
	}
	return false
}

// Question is a contact-form submission
type Question struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time        `gorm:"index" json:"submission_date"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Subject      string           `gorm:"type:varchar(100);not null" json:"subject"`
	Email        string           `gorm:"type:varchar(120);not null;index" json:"email"`
	Body         string           `gorm:"type:text;not null" json:"body"`
	Status       QuestionStatus   `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Priority     QuestionPriority `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`
	ResponseSent bool             `gorm:"not null" json:"response_sent"`
	ResponseDate *time.Time       `json:"response_date,omitempty"`
	UserID       *uint            `gorm:"index" json:"user_id,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// MarkAsResponded records the response and moves an open question into progress
func (q *Question) MarkAsResponded(at time.Time) {
	q.ResponseSent = true
	q.ResponseDate = &at
	if q.Status == QuestionStatusOpen {
		q.Status = QuestionStatusInProgress
	}
}

// Close marks the question resolved
func (q *Question) Close() {
	q.Status = QuestionStatusResolved
}
