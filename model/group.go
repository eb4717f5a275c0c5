package model

import (
	"time"
)

// Group is a discussion group; private groups admit members via join requests
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsPrivate   bool      `gorm:"not null;index" json:"is_private"`
	GroupCode   string    `gorm:"type:varchar(5);uniqueIndex;not null" json:"group_code"`
	CreatedByID uint      `gorm:"index;not null" json:"created_by_id"`

	// Relationships
	Creator User        `gorm:"foreignKey:CreatedByID;constraint:OnDelete:CASCADE" json:"-"`
	Members []User      `gorm:"many2many:group_members;constraint:OnDelete:CASCADE" json:"-"`
	Posts   []GroupPost `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName avoids the reserved word GROUPS on MySQL 8
func (Group) TableName() string {
	return "study_groups"
}

// GroupPost is a message posted to a group, optionally with an attachment
type GroupPost struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	GroupID          uint      `gorm:"index;not null" json:"group_id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	Title            string    `gorm:"type:varchar(200);not null" json:"title"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	Filename         string    `gorm:"type:varchar(255)" json:"-"` // storage key, empty when no attachment
	OriginalFilename string    `gorm:"type:varchar(255)" json:"original_filename,omitempty"`

	Group   Group        `gorm:"foreignKey:GroupID" json:"-"`
	Author  User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Replies []GroupReply `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasAttachment reports whether a file was stored with the post
func (p *GroupPost) HasAttachment() bool {
	return p.Filename != ""
}

// GroupReply answers a post
type GroupReply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`

	Author User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// JoinRequestStatus is pending until the group creator decides, then terminal
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestAccepted JoinRequestStatus = "accepted"
	JoinRequestRejected JoinRequestStatus = "rejected"
)

// GroupJoinRequest asks the creator of a private group for membership
type GroupJoinRequest struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	GroupID   uint              `gorm:"not null;uniqueIndex:idx_join_request_group_user" json:"group_id"`
	UserID    uint              `gorm:"not null;uniqueIndex:idx_join_request_group_user;index" json:"user_id"`
	Status    JoinRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DecidedAt *time.Time        `json:"decided_at,omitempty"`

	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsPending reports whether the request can still be decided
func (r *GroupJoinRequest) IsPending() bool {
	return r.Status == JoinRequestPending
}
