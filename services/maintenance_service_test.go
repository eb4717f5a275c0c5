package services

import (
	"context"
	"strings"
	"testing"

	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanOrphans(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *model.Document, *model.Document, string) {
		env := newTestEnv(t)
		owner := env.newUser(t, "Scan", "Ner")
		kept := env.upload(t, owner, "Kept", "kept.docx")
		lost := env.upload(t, owner, "Lost", "lost.docx", func(r *UploadDocumentRequest) { r.Tags = []string{"exam"} })
		require.NoError(t, env.store.Delete(ctx, lost.Filename))

		stray := storage.PrefixDocuments + "/stray.pdf"
		_, err := env.store.Save(ctx, stray, strings.NewReader("nobody"), "application/pdf")
		require.NoError(t, err)
		return env, kept, lost, stray
	}

	t.Run("dry run changes nothing", func(t *testing.T) {
		env, _, lost, stray := setup(t)
		svc := NewMaintenanceService(env.db, env.store)

		report, err := svc.ScanOrphans(ctx, ScanOptions{DryRun: true, RemoveStray: true})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Checked)
		assert.Equal(t, 1, report.Found())
		require.Len(t, report.Missing, 1)
		assert.Equal(t, lost.ID, report.Missing[0].ID)
		assert.Equal(t, []string{stray}, report.StrayFiles)
		assert.Zero(t, report.RemovedRecords)
		assert.Zero(t, report.RemovedFiles)
		assert.Equal(t, int64(2), env.count(t, &model.Document{}))
	})

	t.Run("removes orphaned rows and reports strays", func(t *testing.T) {
		env, kept, _, stray := setup(t)
		svc := NewMaintenanceService(env.db, env.store)

		report, err := svc.ScanOrphans(ctx, ScanOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, report.RemovedRecords)
		assert.Equal(t, []string{stray}, report.StrayFiles)
		assert.Zero(t, report.RemovedFiles)

		var docs []model.Document
		require.NoError(t, env.db.Find(&docs).Error)
		require.Len(t, docs, 1)
		assert.Equal(t, kept.ID, docs[0].ID)

		var tag model.Tag
		require.NoError(t, env.db.Where("name = ?", "exam").First(&tag).Error)
		assert.Equal(t, 0, tag.UsageCount)
	})

	t.Run("removes stray files when asked", func(t *testing.T) {
		env, kept, _, stray := setup(t)
		svc := NewMaintenanceService(env.db, env.store)

		report, err := svc.ScanOrphans(ctx, ScanOptions{RemoveStray: true})
		require.NoError(t, err)
		assert.Equal(t, 1, report.RemovedFiles)

		exists, err := env.store.Exists(ctx, stray)
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = env.store.Exists(ctx, kept.Filename)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
