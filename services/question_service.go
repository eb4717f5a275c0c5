package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/studyhub-api/model"
	"gorm.io/gorm"
)

// QuestionService stores contact-form submissions and their triage state
type QuestionService struct {
	db *gorm.DB
}

func NewQuestionService(db *gorm.DB) *QuestionService {
	return &QuestionService{db: db}
}

type SubmitQuestionInput struct {
	Subject string
	Email   string
	Body    string
	UserID  *uint
}

// UpdateQuestionInput changes status and/or priority; nil fields are left alone
type UpdateQuestionInput struct {
	Status   *model.QuestionStatus
	Priority *model.QuestionPriority
}

// Submit records a question as open with normal priority
func (s *QuestionService) Submit(ctx context.Context, in SubmitQuestionInput) (*model.Question, error) {
	q := model.Question{
		Subject:  strings.TrimSpace(in.Subject),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Body:     strings.TrimSpace(in.Body),
		Status:   model.QuestionStatusOpen,
		Priority: model.QuestionPriorityNormal,
		UserID:   in.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, fmt.Errorf("failed to save question: %w", err)
	}
	return &q, nil
}

// List pages through questions, newest first, optionally filtered by status
func (s *QuestionService) List(ctx context.Context, status string, limit, offset int) ([]model.Question, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Question{})
	if status != "" {
		if !model.QuestionStatus(status).Valid() {
			return nil, 0, ErrInvalidStatus
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var questions []model.Question
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

func (s *QuestionService) get(tx *gorm.DB, id uint) (*model.Question, error) {
	var q model.Question
	if err := tx.First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// Update sets status and priority
func (s *QuestionService) Update(ctx context.Context, id uint, in UpdateQuestionInput) (*model.Question, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	var q *model.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if q, err = s.get(tx, id); err != nil {
			return err
		}
		if in.Status != nil {
			q.Status = *in.Status
		}
		if in.Priority != nil {
			q.Priority = *in.Priority
		}
		return tx.Save(q).Error
	})
	return q, err
}

// Respond marks the question answered; an open question moves to in_progress
func (s *QuestionService) Respond(ctx context.Context, id uint) (*model.Question, error) {
	return s.mutate(ctx, id, func(q *model.Question) { q.MarkAsResponded(time.Now()) })
}

// Close resolves the question
func (s *QuestionService) Close(ctx context.Context, id uint) (*model.Question, error) {
	return s.mutate(ctx, id, (*model.Question).Close)
}

func (s *QuestionService) mutate(ctx context.Context, id uint, fn func(*model.Question)) (*model.Question, error) {
	var q *model.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if q, err = s.get(tx, id); err != nil {
			return err
		}
		fn(q)
		return tx.Save(q).Error
	})
	return q, err
}
