package database

import (
	"strings"
	"testing"

	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixtures = `
categories:
  - name: Notes
    description: Lecture notes
  - name: Past Papers
users:
  - first_name: Ada
    last_name: Lovelace
    email: Ada@Example.com
    password: analytical
  - first_name: Alan
    last_name: Turing
    email: alan@example.com
    password: enigma42
documents:
  - title: Calculus I Notes
    filename: documents/seed_calculus.pdf
    institute: MIT
    course: Mathematics
    subject: Calculus
    academic_year: 2023-2024
    category: Notes
    uploader: ada@example.com
    tags: [Calculus, " exam "]
`

func TestLoadFixtures_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFixtures(strings.NewReader("categories:\n  - title: nope\n"))
	assert.Error(t, err)

	empty, err := LoadFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Users)
}

func TestSeedAll_Idempotent(t *testing.T) {
	store := newSQLite(t)
	db := store.GetDB()
	seeder := NewSeeder(db)

	fixtures, err := LoadFixtures(strings.NewReader(sampleFixtures))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, seeder.SeedAll(fixtures, "admin@studyhub.test", "admin-pass"))
	}

	count := func(m interface{}) int64 {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(3), count(&model.User{}))
	assert.Equal(t, int64(2), count(&model.Category{}))
	assert.Equal(t, int64(1), count(&model.Document{}))
	assert.Equal(t, int64(2), count(&model.Tag{}))

	var admin model.User
	require.NoError(t, db.Where("role = ?", model.RoleAdmin).First(&admin).Error)
	assert.Equal(t, "admin@studyhub.test", admin.Email)

	var doc model.Document
	require.NoError(t, db.Preload("Tags").Preload("Category").First(&doc).Error)
	assert.Equal(t, "seed_calculus.pdf", doc.OriginalFilename)
	assert.Equal(t, "pdf", doc.FileType)
	require.NotNil(t, doc.Category)
	assert.Equal(t, "Notes", doc.Category.Name)
	assert.Len(t, doc.Tags, 2)

	var exam model.Tag
	require.NoError(t, db.Where("name = ?", "exam").First(&exam).Error)
	assert.Equal(t, 1, exam.UsageCount)
}

func TestSeedAdminUser_SkipsWithoutCredentials(t *testing.T) {
	store := newSQLite(t)
	require.NoError(t, NewSeeder(store.GetDB()).SeedAdminUser("", ""))

	var n int64
	require.NoError(t, store.GetDB().Model(&model.User{}).Count(&n).Error)
	assert.Zero(t, n)
}
