package model

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidRating is returned for ratings outside 1..5
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Document is an uploaded academic file plus its metadata
type Document struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UploadDate       time.Time `gorm:"autoCreateTime;index" json:"upload_date"`
	UpdatedAt        time.Time `json:"updated_at"`
	Title            string    `gorm:"type:varchar(200);not null;index" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	Filename         string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"` // storage key
	OriginalFilename string    `gorm:"type:varchar(255);not null" json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	FileType         string    `gorm:"type:varchar(10)" json:"file_type"`
	PageCount        int       `gorm:"default:0" json:"page_count"`
	Institute        string    `gorm:"type:varchar(100);index" json:"institute"`
	Course           string    `gorm:"type:varchar(100);index" json:"course"`
	Subject          string    `gorm:"type:varchar(100);index" json:"subject"`
	AcademicYear     string    `gorm:"type:varchar(20)" json:"academic_year"`
	Downloads        int       `gorm:"default:0" json:"downloads"`
	Views            int       `gorm:"default:0" json:"views"`
	Rating           int       `gorm:"default:0" json:"-"` // sum of all ratings
	RatingCount      int       `gorm:"default:0" json:"rating_count"`
	IsPublic         bool      `gorm:"not null" json:"is_public"`
	IsFeatured       bool      `gorm:"not null" json:"is_featured"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	CategoryID       *uint     `gorm:"index" json:"category_id,omitempty"`

	// Relationships
	Author   User      `gorm:"foreignKey:UserID" json:"-"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"-"`
	Tags     []Tag     `gorm:"many2many:document_tags;constraint:OnDelete:CASCADE" json:"-"`
}

// AverageRating is rating_sum / rating_count rounded to one decimal, or 0
func (d *Document) AverageRating() float64 {
	if d.RatingCount == 0 {
		return 0
	}
	avg := float64(d.Rating) / float64(d.RatingCount)
	return math.Round(avg*10) / 10
}

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// ValidateRating accepts a single integer rating from MinRating to MaxRating
func ValidateRating(value int) error {
	if value < MinRating || value > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// DocumentResponse is the API shape of a document
type DocumentResponse struct {
	ID               uint         `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	OriginalFilename string       `json:"original_filename"`
	FileSize         int64        `json:"file_size"`
	FileType         string       `json:"file_type"`
	PageCount        int          `json:"page_count"`
	Institute        string       `json:"institute"`
	Course           string       `json:"course"`
	Subject          string       `json:"subject"`
	AcademicYear     string       `json:"academic_year"`
	UploadDate       time.Time    `json:"upload_date"`
	Downloads        int          `json:"downloads"`
	Views            int          `json:"views"`
	AverageRating    float64      `json:"average_rating"`
	RatingCount      int          `json:"rating_count"`
	IsPublic         bool         `json:"is_public"`
	IsFeatured       bool         `json:"is_featured"`
	Author           *UserSummary `json:"author,omitempty"`
	Category         string       `json:"category,omitempty"`
	Tags             []string     `json:"tags"`
}

// ToResponse converts a Document (with optional preloaded Author/Category/Tags)
func (d *Document) ToResponse() DocumentResponse {
	res := DocumentResponse{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		OriginalFilename: d.OriginalFilename,
		FileSize:         d.FileSize,
		FileType:         d.FileType,
		PageCount:        d.PageCount,
		Institute:        d.Institute,
		Course:           d.Course,
		Subject:          d.Subject,
		AcademicYear:     d.AcademicYear,
		UploadDate:       d.UploadDate,
		Downloads:        d.Downloads,
		Views:            d.Views,
		AverageRating:    d.AverageRating(),
		RatingCount:      d.RatingCount,
		IsPublic:         d.IsPublic,
		IsFeatured:       d.IsFeatured,
		Tags:             make([]string, 0, len(d.Tags)),
	}
	if d.Author.ID != 0 {
		author := d.Author.Summary()
		res.Author = &author
	}
	if d.Category != nil {
		res.Category = d.Category.Name
	}
	for _, t := range d.Tags {
		res.Tags = append(res.Tags, t.Name)
	}
	return res
}

// Category groups documents under a unique name
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	Documents []Document `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
}

// Tag is a normalized (trimmed, lowercased) label shared by documents
type Tag struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	UsageCount int       `gorm:"default:0" json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}
