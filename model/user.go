package model

import (
	"strings"
	"time"
)

// DefaultProfileImage is served for users who never uploaded a picture
const DefaultProfileImage = "default_avatar.jpg"

// User roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User represents a registered user in the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"registration_date"`
	UpdatedAt    time.Time `json:"updated_at"`
	FirstName    string    `gorm:"type:varchar(50);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(50);not null" json:"last_name"`
	Email        string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"` // Never expose password in JSON
	ProfileImage string    `gorm:"type:varchar(255);not null;default:'default_avatar.jpg'" json:"profile_image"`
	Role         string    `gorm:"type:varchar(20);default:'student'" json:"role"` // student, admin
	TokenVersion int       `gorm:"default:0" json:"-"`                             // Increment to invalidate all user tokens

	// Relationships
	Documents      []Document          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Questions      []Question          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Favorites      []Document          `gorm:"many2many:user_favorites;constraint:OnDelete:CASCADE" json:"-"`
	Downloads      []Document          `gorm:"many2many:user_downloads;constraint:OnDelete:CASCADE" json:"-"`
	Groups         []Group             `gorm:"many2many:group_members;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user carries the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasCustomProfileImage is false while the default avatar is in use
func (u *User) HasCustomProfileImage() bool {
	return u.ProfileImage != "" && u.ProfileImage != DefaultProfileImage
}

// UserSummary is the public projection of a user embedded in other payloads
type UserSummary struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profile_image"`
}

// Summary returns the public projection of the user
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.FullName(),
		ProfileImage: u.ProfileImage,
	}
}
