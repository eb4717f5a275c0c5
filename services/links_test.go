package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLinkTreatsDuplicateAsLinked(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newUser(t, "Link", "Owner")
	reader := env.newUser(t, "Link", "Reader")
	doc := env.upload(t, owner, "Race Notes", "race.docx")

	// a row inserted by another request between our check and our insert
	require.NoError(t, env.db.Exec("INSERT INTO user_downloads (user_id, document_id) VALUES (?, ?)", reader.ID, doc.ID).Error)

	err := env.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := link(tx, "user_downloads", "user_id", reader.ID, "document_id", doc.ID)
		require.NoError(t, err)
		assert.False(t, inserted)

		// the transaction is still usable after the conflict
		linked, err := isLinked(tx, "user_downloads", "user_id", reader.ID, "document_id", doc.ID)
		require.NoError(t, err)
		assert.True(t, linked)
		return nil
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, env.db.Table("user_downloads").Where("user_id = ? AND document_id = ?", reader.ID, doc.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	// a second download by the same user still succeeds
	_, rc, err := env.docs.Download(context.Background(), doc.ID, reader.ID)
	require.NoError(t, err)
	rc.Close()
}
