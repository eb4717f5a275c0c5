package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils/cache"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/metrics"
	"github.com/sahilchouksey/studyhub-api/utils/pdfvalidation"
	"gorm.io/gorm"
)

const (
	defaultMaxUploadMB = 16
	listCacheTTL       = 2 * time.Minute
	listCacheVersion   = "documents:list_version"
)

// AllowedDocumentTypes lists the extensions accepted for shared documents
var AllowedDocumentTypes = map[string]bool{
	"pdf":  true,
	"doc":  true,
	"docx": true,
	"ppt":  true,
	"pptx": true,
}

// DocumentService handles document upload, retrieval and bookkeeping
type DocumentService struct {
	db             *gorm.DB
	store          storage.FileStore
	cache          *cache.RedisCache
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewDocumentService creates a new document service. redisCache may be nil,
// in which case recent and popular lists are always read from the database.
func NewDocumentService(db *gorm.DB, store storage.FileStore, redisCache *cache.RedisCache) *DocumentService {
	return &DocumentService{
		db:             db,
		store:          store,
		cache:          redisCache,
		maxUploadBytes: defaultMaxUploadMB * 1024 * 1024,
		log:            logger.WithComponent("documents"),
	}
}

// SetMaxUploadMB overrides the 16MB upload limit
func (s *DocumentService) SetMaxUploadMB(mb int) {
	if mb > 0 {
		s.maxUploadBytes = int64(mb) * 1024 * 1024
	}
}

// UploadDocumentRequest represents a document upload request
type UploadDocumentRequest struct {
	UserID       uint
	Title        string
	Description  string
	Institute    string
	Course       string
	Subject      string
	AcademicYear string
	Category     string
	Tags         []string
	IsPublic     bool
	Filename     string
	Size         int64
	Content      io.Reader
}

// SearchParams filters the document search. Empty fields are ignored.
type SearchParams struct {
	Title     string
	Institute string
	Course    string
	Subject   string
	Author    string
	Category  string
	MinRating *float64
	ViewerID  uint
	Limit     int
	Offset    int
}

// ValidateFileType reports whether filename has an allowed document extension
func ValidateFileType(filename string) (bool, string) {
	ext := storage.Ext(filename)
	return AllowedDocumentTypes[ext], ext
}

// UploadDocument validates and stores the file, then records the document with
// its category and tags. A failed insert removes the stored file again.
func (s *DocumentService) UploadDocument(ctx context.Context, req UploadDocumentRequest) (*model.Document, error) {
	ok, ext := ValidateFileType(req.Filename)
	if !ok {
		return nil, ErrInvalidFileType
	}
	if req.Size > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	content, err := io.ReadAll(io.LimitReader(req.Content, s.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(content)) > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	var pageCount int
	if ext == "pdf" {
		result, err := pdfvalidation.ValidatePDFBytes(content, pdfvalidation.DocumentLimits)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPDF, result.Error)
		}
		pageCount = result.PageCount
	}

	key := storage.GenerateKey(storage.PrefixDocuments, req.Filename)
	if _, err := s.store.Save(ctx, key, bytes.NewReader(content), storage.ContentType(req.Filename)); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	doc := model.Document{
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		Filename:         key,
		OriginalFilename: req.Filename,
		FileSize:         int64(len(content)),
		FileType:         ext,
		PageCount:        pageCount,
		Institute:        strings.TrimSpace(req.Institute),
		Course:           strings.TrimSpace(req.Course),
		Subject:          strings.TrimSpace(req.Subject),
		AcademicYear:     strings.TrimSpace(req.AcademicYear),
		IsPublic:         req.IsPublic,
		UserID:           req.UserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := getOrCreateCategory(tx, req.Category)
		if err != nil {
			return err
		}
		if category != nil {
			doc.CategoryID = &category.ID
		}
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("failed to create document record: %w", err)
		}
		for _, name := range req.Tags {
			if NormalizeTagName(name) == "" {
				continue
			}
			if _, _, err := attachTag(tx, doc.ID, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).Msg("failed to remove file after rollback")
		}
		return nil, err
	}

	s.invalidateLists(ctx)
	metrics.DocumentUploads.WithLabelValues(ext).Inc()
	metrics.UploadedBytes.Add(float64(doc.FileSize))
	s.log.Info().Uint("document_id", doc.ID).Uint("user_id", req.UserID).Str("key", key).Msg("uploaded document")
	return s.load(ctx, s.db, doc.ID)
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	})
}

func (s *DocumentService) load(ctx context.Context, db *gorm.DB, id uint) (*model.Document, error) {
	var doc model.Document
	if err := withRelations(db.WithContext(ctx)).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// visible loads a document the viewer may see: public ones, or their own
func (s *DocumentService) visible(ctx context.Context, id, viewerID uint) (*model.Document, error) {
	doc, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsPublic && (viewerID == 0 || doc.UserID != viewerID) {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Search applies the equality filters, a case-insensitive title match and an
// author name match. Results are newest first.
func (s *DocumentService) Search(ctx context.Context, p SearchParams) ([]model.Document, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Document{})

	if p.ViewerID != 0 {
		query = query.Where("(documents.is_public = ? OR documents.user_id = ?)", true, p.ViewerID)
	} else {
		query = query.Where("documents.is_public = ?", true)
	}
	if t := strings.TrimSpace(p.Title); t != "" {
		query = query.Where("LOWER(documents.title) LIKE ? ESCAPE '!'", containsPattern(strings.ToLower(t)))
	}
	if p.Institute != "" {
		query = query.Where("documents.institute = ?", p.Institute)
	}
	if p.Course != "" {
		query = query.Where("documents.course = ?", p.Course)
	}
	if p.Subject != "" {
		query = query.Where("documents.subject = ?", p.Subject)
	}
	if p.Category != "" {
		query = query.Joins("JOIN categories ON categories.id = documents.category_id").
			Where("categories.name = ?", p.Category)
	}
	if words := strings.Fields(strings.ToLower(p.Author)); len(words) > 0 {
		// every word has to match the first or last name
		query = query.Joins("JOIN users ON users.id = documents.user_id")
		for _, w := range words {
			like := containsPattern(w)
			query = query.Where("(LOWER(users.first_name) LIKE ? ESCAPE '!' OR LOWER(users.last_name) LIKE ? ESCAPE '!')", like, like)
		}
	}
	if p.MinRating != nil {
		query = query.Where("(CASE WHEN documents.rating_count > 0 THEN documents.rating * 1.0 / documents.rating_count ELSE 0 END) >= ?", *p.MinRating)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []model.Document
	err := withRelations(query.Select("documents.*")).
		Order("documents.upload_date DESC").
		Order("documents.id DESC").
		Limit(p.Limit).
		Offset(p.Offset).
		Find(&docs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search documents: %w", err)
	}
	return docs, total, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_", "[", "![")

// containsPattern builds a LIKE pattern matching s literally anywhere. '!' is
// the escape character; '[' is escaped for SQL Server.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// GetDocument returns a visible document and counts the view
func (s *DocumentService) GetDocument(ctx context.Context, id, viewerID uint) (*model.Document, error) {
	doc, err := s.visible(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error; err != nil {
		return nil, fmt.Errorf("failed to count view: %w", err)
	}
	doc.Views++
	return doc, nil
}

// Download opens the stored file, increments the download counter and records
// the user in user_downloads. The caller closes the reader.
func (s *DocumentService) Download(ctx context.Context, id, userID uint) (*model.Document, io.ReadCloser, error) {
	doc, err := s.visible(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.open(ctx, doc.Filename)
	if err != nil {
		return nil, nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Document{}).Where("id = ?", id).
			UpdateColumn("downloads", gorm.Expr("downloads + 1")).Error; err != nil {
			return err
		}
		_, err := link(tx, "user_downloads", "user_id", userID, "document_id", id)
		return err
	})
	if err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("failed to record download: %w", err)
	}

	doc.Downloads++
	return doc, rc, nil
}

// Preview opens the stored file without touching any counter
func (s *DocumentService) Preview(ctx context.Context, id, viewerID uint) (*model.Document, io.ReadCloser, error) {
	doc, err := s.visible(ctx, id, viewerID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.open(ctx, doc.Filename)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

func (s *DocumentService) open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Str("key", key).Msg("document file missing from storage")
			return nil, ErrFileMissing
		}
		return nil, err
	}
	return rc, nil
}

// ToggleFavorite adds the document to the user's favorites when absent and
// removes it when present. It returns the new state.
func (s *DocumentService) ToggleFavorite(ctx context.Context, userID, documentID uint) (bool, error) {
	if _, err := s.visible(ctx, documentID, userID); err != nil {
		return false, err
	}

	var favorited bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed, err := unlink(tx, "user_favorites", "user_id", userID, "document_id", documentID)
		if err != nil || removed {
			return err
		}
		favorited = true
		_, err = link(tx, "user_favorites", "user_id", userID, "document_id", documentID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return favorited, nil
}

// IsFavorite reports whether the user has favorited the document
func (s *DocumentService) IsFavorite(ctx context.Context, userID, documentID uint) (bool, error) {
	return isLinked(s.db.WithContext(ctx), "user_favorites", "user_id", userID, "document_id", documentID)
}

// Favorites lists the user's favorited documents
func (s *DocumentService) Favorites(ctx context.Context, userID uint) ([]model.Document, error) {
	var docs []model.Document
	err := withRelations(s.db.WithContext(ctx)).
		Where("documents.id IN (SELECT document_id FROM user_favorites WHERE user_id = ?)", userID).
		Order("documents.upload_date DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return docs, nil
}

// Uploaded lists the documents a user uploaded, newest first
func (s *DocumentService) Uploaded(ctx context.Context, userID uint, limit, offset int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	query := s.db.WithContext(ctx).Model(&model.Document{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := withRelations(query).
		Order("upload_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list uploads: %w", err)
	}
	return docs, total, nil
}

// deleteDocumentRows removes a document and its association rows, keeping
// tag usage counts in step
func deleteDocumentRows(tx *gorm.DB, doc *model.Document) error {
	var tagIDs []uint
	if err := tx.Table("document_tags").Where("document_id = ?", doc.ID).Pluck("tag_id", &tagIDs).Error; err != nil {
		return err
	}
	if err := decrementTagUsage(tx, tagIDs...); err != nil {
		return err
	}
	for _, table := range []string{"document_tags", "user_favorites", "user_downloads"} {
		if err := tx.Exec("DELETE FROM "+table+" WHERE document_id = ?", doc.ID).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&model.Document{}, doc.ID).Error
}

// DeleteDocument removes a document owned by userID. The row goes first; the
// stored file is removed after commit and a failure there is only logged.
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, documentID uint) error {
	var doc model.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc, documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := checkOwner(&doc, userID); err != nil {
			return err
		}
		return deleteDocumentRows(tx, &doc)
	})
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, doc.Filename); err != nil {
		s.log.Warn().Err(err).Str("key", doc.Filename).Msg("failed to remove document file")
	}
	s.invalidateLists(ctx)
	s.log.Info().Uint("document_id", documentID).Uint("user_id", userID).Msg("deleted document")
	return nil
}

// Rate folds a 1..5 rating into the document's accumulator
func (s *DocumentService) Rate(ctx context.Context, userID, documentID uint, value int) (*model.Document, error) {
	if err := model.ValidateRating(value); err != nil {
		return nil, err
	}
	if _, err := s.visible(ctx, documentID, userID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", documentID).
		UpdateColumns(map[string]interface{}{
			"rating":       gorm.Expr("rating + ?", value),
			"rating_count": gorm.Expr("rating_count + 1"),
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rate document: %w", err)
	}
	return s.load(ctx, s.db, documentID)
}

// AddTag attaches a tag to a document owned by userID
func (s *DocumentService) AddTag(ctx context.Context, userID, documentID uint, name string) (*model.Document, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownDocument(tx, userID, documentID); err != nil {
			return err
		}
		_, _, err := attachTag(tx, documentID, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, documentID)
}

// RemoveTag detaches a tag from a document owned by userID
func (s *DocumentService) RemoveTag(ctx context.Context, userID, documentID uint, name string) (*model.Document, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownDocument(tx, userID, documentID); err != nil {
			return err
		}
		_, err := detachTag(tx, documentID, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, documentID)
}

func ownDocument(tx *gorm.DB, userID, documentID uint) error {
	var doc model.Document
	if err := tx.Select("id", "user_id", "is_public").First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return checkOwner(&doc, userID)
}

// checkOwner hides private documents from everyone but their owner and
// forbids changes to public documents owned by someone else
func checkOwner(doc *model.Document, userID uint) error {
	if doc.UserID == userID {
		return nil
	}
	if !doc.IsPublic {
		return ErrNotFound
	}
	return ErrForbidden
}

// Recent returns the newest public documents
func (s *DocumentService) Recent(ctx context.Context, limit int) ([]model.DocumentResponse, error) {
	return s.cachedList(ctx, "recent", limit, "upload_date DESC, id DESC")
}

// Popular returns the most downloaded public documents
func (s *DocumentService) Popular(ctx context.Context, limit int) ([]model.DocumentResponse, error) {
	return s.cachedList(ctx, "popular", limit, "downloads DESC, upload_date DESC")
}

func (s *DocumentService) cachedList(ctx context.Context, name string, limit int, order string) ([]model.DocumentResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var key string
	if s.cache != nil {
		version, err := s.cache.Get(ctx, listCacheVersion)
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			s.log.Warn().Err(err).Msg("redis unavailable, reading lists from database")
		} else {
			key = fmt.Sprintf("documents:%s:%s:%d", name, version, limit)
			var cached []model.DocumentResponse
			if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var docs []model.Document
	err := withRelations(s.db.WithContext(ctx)).
		Where("is_public = ?", true).
		Order(order).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", name, err)
	}

	out := make([]model.DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].ToResponse())
	}

	if key != "" {
		if err := s.cache.SetJSON(ctx, key, out, listCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache document list")
		}
	}
	return out, nil
}

// invalidateLists bumps the cache version so cached lists are no longer read
func (s *DocumentService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Increment(ctx, listCacheVersion); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate document lists")
	}
}
