package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilchouksey/studyhub-api/model"
	"gorm.io/gorm"
)

const maxTagLength = 50

// CatalogService owns categories and tags
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// NormalizeTagName trims and lowercases a tag name
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CategoryWithCount is a category plus the number of documents filed under it
type CategoryWithCount struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	DocumentCount int64  `json:"document_count"`
}

// getOrCreateCategory looks a category up by exact name, creating it when absent
func getOrCreateCategory(tx *gorm.DB, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	category := model.Category{Name: name}
	if err := tx.Where(model.Category{Name: name}).FirstOrCreate(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to get or create category %q: %w", name, err)
	}
	return &category, nil
}

// getOrCreateTag normalizes name before lookup so "Go " and "go" share a row
func getOrCreateTag(tx *gorm.DB, name string) (*model.Tag, error) {
	name = NormalizeTagName(name)
	if name == "" || len(name) > maxTagLength {
		return nil, ErrInvalidTag
	}
	tag := model.Tag{Name: name}
	if err := tx.Where(model.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
		return nil, fmt.Errorf("failed to get or create tag %q: %w", name, err)
	}
	return &tag, nil
}

// attachTag links the tag to the document and bumps usage_count. Attaching a
// tag that is already linked is a no-op and reports false.
func attachTag(tx *gorm.DB, documentID uint, name string) (*model.Tag, bool, error) {
	tag, err := getOrCreateTag(tx, name)
	if err != nil {
		return nil, false, err
	}

	inserted, err := link(tx, "document_tags", "document_id", documentID, "tag_id", tag.ID)
	if err != nil || !inserted {
		return tag, false, err
	}
	if err := tx.Model(tag).UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		return nil, false, err
	}
	tag.UsageCount++
	return tag, true, nil
}

// detachTag unlinks a tag and decrements usage_count without going below zero.
// It reports false when the tag was not linked.
func detachTag(tx *gorm.DB, documentID uint, name string) (bool, error) {
	name = NormalizeTagName(name)
	if name == "" {
		return false, ErrInvalidTag
	}

	var tag model.Tag
	if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}

	removed, err := unlink(tx, "document_tags", "document_id", documentID, "tag_id", tag.ID)
	if err != nil || !removed {
		return false, err
	}
	if err := decrementTagUsage(tx, tag.ID); err != nil {
		return false, err
	}
	return true, nil
}

func decrementTagUsage(tx *gorm.DB, tagIDs ...uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return tx.Model(&model.Tag{}).
		Where("id IN ? AND usage_count > 0", tagIDs).
		UpdateColumn("usage_count", gorm.Expr("usage_count - 1")).Error
}

// ListCategories returns all categories ordered by name with their document counts
func (s *CatalogService) ListCategories(ctx context.Context) ([]CategoryWithCount, error) {
	var categories []CategoryWithCount
	err := s.db.WithContext(ctx).
		Model(&model.Category{}).
		Select("categories.id, categories.name, categories.description, (SELECT COUNT(*) FROM documents WHERE documents.category_id = categories.id) AS document_count").
		Order("categories.name ASC").
		Scan(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// PopularTags returns the most used tags
func (s *CatalogService) PopularTags(ctx context.Context, limit int) ([]model.Tag, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var tags []model.Tag
	err := s.db.WithContext(ctx).
		Where("usage_count > 0").
		Order("usage_count DESC").
		Order("name ASC").
		Limit(limit).
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list popular tags: %w", err)
	}
	return tags, nil
}
