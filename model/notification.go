package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType identifies the event that produced a notification
type NotificationType string

const (
	NotificationTypeNewReply     NotificationType = "new_reply"
	NotificationTypeJoinRequest  NotificationType = "join_request"
	NotificationTypeJoinAccepted NotificationType = "join_accepted"
	NotificationTypeJoinRejected NotificationType = "join_rejected"
)

// Related resource types
const (
	ResourceGroupPost        = "GroupPost"
	ResourceGroupJoinRequest = "GroupJoinRequest"
	ResourceGroup            = "Group"
)

// Notification is created as a side effect of forum events
type Notification struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	UserID              uint             `gorm:"index;not null" json:"user_id"`
	Type                NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Message             string           `gorm:"type:text;not null" json:"message"`
	IsRead              bool             `gorm:"not null;index" json:"is_read"`
	RelatedResourceID   *uint            `json:"related_resource_id,omitempty"`
	RelatedResourceType string           `gorm:"type:varchar(50)" json:"related_resource_type,omitempty"`
	Metadata            datatypes.JSON   `json:"metadata,omitempty"` // Additional context

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// NotificationMetadata carries display context for the client
type NotificationMetadata struct {
	GroupID   uint   `json:"group_id,omitempty"`
	GroupName string `json:"group_name,omitempty"`
	PostID    uint   `json:"post_id,omitempty"`
	PostTitle string `json:"post_title,omitempty"`
	ActorID   uint   `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`
}

// NotificationResponse represents the API response format for a notification
type NotificationResponse struct {
	ID                  uint             `json:"id"`
	Type                NotificationType `json:"type"`
	Message             string           `json:"message"`
	Read                bool             `json:"read"`
	RelatedResourceID   *uint            `json:"related_resource_id,omitempty"`
	RelatedResourceType string           `json:"related_resource_type,omitempty"`
	Metadata            datatypes.JSON   `json:"metadata,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// ToResponse converts a Notification to NotificationResponse
func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:                  n.ID,
		Type:                n.Type,
		Message:             n.Message,
		Read:                n.IsRead,
		RelatedResourceID:   n.RelatedResourceID,
		RelatedResourceType: n.RelatedResourceType,
		Metadata:            n.Metadata,
		CreatedAt:           n.CreatedAt,
	}
}
