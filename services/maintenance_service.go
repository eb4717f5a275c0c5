package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"gorm.io/gorm"
)

const orphanScanBatchSize = 200

// MaintenanceService reconciles document rows with stored files
type MaintenanceService struct {
	db    *gorm.DB
	store storage.FileStore
	log   zerolog.Logger
}

func NewMaintenanceService(db *gorm.DB, store storage.FileStore) *MaintenanceService {
	return &MaintenanceService{db: db, store: store, log: logger.WithComponent("maintenance")}
}

// ScanOptions controls what the orphan scan is allowed to change
type ScanOptions struct {
	DryRun      bool // report only
	RemoveStray bool // also delete stored files that no document references
}

// OrphanRecord is a document whose file is missing
type OrphanRecord struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// ScanReport summarizes one orphan scan
type ScanReport struct {
	Checked        int            `json:"checked"`
	Missing        []OrphanRecord `json:"missing"`
	RemovedRecords int            `json:"removed_records"`
	StrayFiles     []string       `json:"stray_files"`
	RemovedFiles   int            `json:"removed_files"`
}

// Found is the number of documents whose file exists
func (r *ScanReport) Found() int {
	return r.Checked - len(r.Missing)
}

// ScanOrphans checks every document's file. Rows whose file is missing are
// deleted unless DryRun is set. Stored files under documents/ without a row
// are listed, and removed when RemoveStray is set.
func (s *MaintenanceService) ScanOrphans(ctx context.Context, opts ScanOptions) (*ScanReport, error) {
	report := &ScanReport{Missing: []OrphanRecord{}, StrayFiles: []string{}}
	referenced := make(map[string]struct{})

	var batch []model.Document
	err := s.db.WithContext(ctx).Select("id", "title", "filename").
		FindInBatches(&batch, orphanScanBatchSize, func(tx *gorm.DB, _ int) error {
			for _, doc := range batch {
				report.Checked++
				referenced[doc.Filename] = struct{}{}

				exists, err := s.store.Exists(ctx, doc.Filename)
				if err != nil {
					return fmt.Errorf("failed to check %s: %w", doc.Filename, err)
				}
				if exists {
					continue
				}
				report.Missing = append(report.Missing, OrphanRecord{ID: doc.ID, Title: doc.Title, Filename: doc.Filename})
				s.log.Warn().Uint("document_id", doc.ID).Str("key", doc.Filename).Msg("document file missing")
			}
			return nil
		}).Error
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		for _, orphan := range report.Missing {
			err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return deleteDocumentRows(tx, &model.Document{ID: orphan.ID})
			})
			if err != nil {
				return report, fmt.Errorf("failed to remove orphaned document %d: %w", orphan.ID, err)
			}
			report.RemovedRecords++
		}
	}

	keys, err := s.store.List(ctx, storage.PrefixDocuments)
	if err != nil {
		return report, fmt.Errorf("failed to list stored documents: %w", err)
	}
	for _, key := range keys {
		if _, ok := referenced[key]; ok {
			continue
		}
		report.StrayFiles = append(report.StrayFiles, key)
		if opts.DryRun || !opts.RemoveStray {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to remove stray file")
			continue
		}
		report.RemovedFiles++
	}

	s.log.Info().
		Int("checked", report.Checked).
		Int("missing", len(report.Missing)).
		Int("removed_records", report.RemovedRecords).
		Int("stray", len(report.StrayFiles)).
		Int("removed_files", report.RemovedFiles).
		Msg("orphan scan finished")
	return report, nil
}
