package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadDocument_StoresFileCategoryAndTags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Marie", "Curie")

	pdf := minimalPDF(4)
	doc, err := env.docs.UploadDocument(ctx, UploadDocumentRequest{
		UserID:    owner.ID,
		Title:     "  Radioactivity  ",
		Filename:  "Lecture Notes.pdf",
		Size:      int64(len(pdf)),
		Content:   bytes.NewReader(pdf),
		Category:  "Physics",
		Tags:      []string{" Nuclear ", "nuclear", "CHEMISTRY", ""},
		Institute: "Sorbonne",
		IsPublic:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Radioactivity", doc.Title)
	assert.Equal(t, "pdf", doc.FileType)
	assert.Equal(t, 4, doc.PageCount)
	assert.Equal(t, "Lecture Notes.pdf", doc.OriginalFilename)
	assert.True(t, strings.HasPrefix(doc.Filename, "documents/"))
	assert.True(t, strings.HasSuffix(doc.Filename, "_Lecture_Notes.pdf"))
	require.NotNil(t, doc.Category)
	assert.Equal(t, "Physics", doc.Category.Name)

	res := doc.ToResponse()
	assert.Equal(t, []string{"chemistry", "nuclear"}, res.Tags)
	assert.Equal(t, "Marie Curie", res.Author.Name)

	exists, err := env.store.Exists(ctx, doc.Filename)
	require.NoError(t, err)
	assert.True(t, exists)

	var nuclear model.Tag
	require.NoError(t, env.db.Where("name = ?", "nuclear").First(&nuclear).Error)
	assert.Equal(t, 1, nuclear.UsageCount)

	// a second upload reuses the category and tag rows
	env.upload(t, owner, "Follow up", "follow.docx", func(r *UploadDocumentRequest) {
		r.Category = "Physics"
		r.Tags = []string{"NUCLEAR"}
	})
	assert.Equal(t, int64(1), env.count(t, &model.Category{}))
	assert.Equal(t, int64(2), env.count(t, &model.Tag{}))
	require.NoError(t, env.db.Where("name = ?", "nuclear").First(&nuclear).Error)
	assert.Equal(t, 2, nuclear.UsageCount)
}

func TestUploadDocument_RejectsDisallowedExtension(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Eve", "Hacker")

	for _, name := range []string{"payload.exe", "script.sh", "noext", "image.png"} {
		_, err := env.docs.UploadDocument(ctx, UploadDocumentRequest{
			UserID:   owner.ID,
			Title:    "Bad",
			Filename: name,
			Size:     4,
			Content:  strings.NewReader("data"),
		})
		assert.ErrorIs(t, err, ErrInvalidFileType, name)
	}

	assert.Equal(t, int64(0), env.count(t, &model.Document{}))
	keys, err := env.store.List(ctx, storage.PrefixDocuments)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestUploadDocument_RejectsCorruptPDFAndOversize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Bob", "Builder")

	_, err := env.docs.UploadDocument(ctx, UploadDocumentRequest{
		UserID: owner.ID, Title: "Fake", Filename: "fake.pdf", Size: 9, Content: strings.NewReader("not a pdf"),
	})
	assert.ErrorIs(t, err, ErrInvalidPDF)

	env.docs.SetMaxUploadMB(1)
	big := bytes.Repeat([]byte("x"), 1024*1024+1)
	_, err = env.docs.UploadDocument(ctx, UploadDocumentRequest{
		UserID: owner.ID, Title: "Big", Filename: "big.docx", Size: 0, Content: bytes.NewReader(big),
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = env.docs.UploadDocument(ctx, UploadDocumentRequest{
		UserID: owner.ID, Title: "Empty", Filename: "empty.docx", Content: strings.NewReader(""),
	})
	assert.ErrorIs(t, err, ErrEmptyFile)

	assert.Equal(t, int64(0), env.count(t, &model.Document{}))
	keys, err := env.store.List(ctx, storage.PrefixDocuments)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestUploadDocument_RemovesFileWhenInsertFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// no such user: the foreign key rejects the insert after the file is stored
	_, err := env.docs.UploadDocument(ctx, UploadDocumentRequest{
		UserID: 9999, Title: "Ghost", Filename: "ghost.docx", Size: 5, Content: strings.NewReader("ghost"),
	})
	require.Error(t, err)

	keys, err := env.store.List(ctx, storage.PrefixDocuments)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestToggleFavorite_TwiceRestoresState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Fav", "Owner")
	fan := env.newUser(t, "Fav", "Fan")
	doc := env.upload(t, owner, "Loved", "loved.docx")

	before, err := env.docs.IsFavorite(ctx, fan.ID, doc.ID)
	require.NoError(t, err)
	assert.False(t, before)

	on, err := env.docs.ToggleFavorite(ctx, fan.ID, doc.ID)
	require.NoError(t, err)
	assert.True(t, on)

	favorites, err := env.docs.Favorites(ctx, fan.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, owner.ID, favorites[0].UserID)

	off, err := env.docs.ToggleFavorite(ctx, fan.ID, doc.ID)
	require.NoError(t, err)
	assert.False(t, off)

	after, err := env.docs.IsFavorite(ctx, fan.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = env.docs.ToggleFavorite(ctx, fan.ID, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownloadCountsButPreviewDoesNot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Down", "Loader")
	reader := env.newUser(t, "Read", "Er")
	doc := env.upload(t, owner, "Counted", "counted.docx")

	_, rc, err := env.docs.Preview(ctx, doc.ID, 0)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "document body for Counted", string(body))

	for i := 0; i < 2; i++ {
		_, rc, err := env.docs.Download(ctx, doc.ID, reader.ID)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}

	var reloaded model.Document
	require.NoError(t, env.db.First(&reloaded, doc.ID).Error)
	assert.Equal(t, 2, reloaded.Downloads)

	var rows int64
	require.NoError(t, env.db.Table("user_downloads").Where("user_id = ?", reader.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestDownload_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Lost", "File")
	doc := env.upload(t, owner, "Gone", "gone.docx")
	require.NoError(t, env.store.Delete(ctx, doc.Filename))

	_, _, err := env.docs.Download(ctx, doc.ID, owner.ID)
	assert.ErrorIs(t, err, ErrFileMissing)
}

func TestGetDocument_CountsViewsAndHidesPrivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Priv", "Ate")
	stranger := env.newUser(t, "Str", "Anger")
	doc := env.upload(t, owner, "Secret", "secret.docx", func(r *UploadDocumentRequest) { r.IsPublic = false })

	got, err := env.docs.GetDocument(ctx, doc.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)

	_, err = env.docs.GetDocument(ctx, doc.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.docs.GetDocument(ctx, doc.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDocument_NonOwnerForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Real", "Owner")
	intruder := env.newUser(t, "Not", "Owner")
	doc := env.upload(t, owner, "Mine", "mine.docx", func(r *UploadDocumentRequest) { r.Tags = []string{"keep"} })

	err := env.docs.DeleteDocument(ctx, intruder.ID, doc.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, int64(1), env.count(t, &model.Document{}))
	exists, err := env.store.Exists(ctx, doc.Filename)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, env.docs.DeleteDocument(ctx, owner.ID, doc.ID))
	assert.Equal(t, int64(0), env.count(t, &model.Document{}))
	exists, err = env.store.Exists(ctx, doc.Filename)
	require.NoError(t, err)
	assert.False(t, exists)

	var tag model.Tag
	require.NoError(t, env.db.Where("name = ?", "keep").First(&tag).Error)
	assert.Equal(t, 0, tag.UsageCount)

	assert.ErrorIs(t, env.docs.DeleteDocument(ctx, owner.ID, doc.ID), ErrNotFound)
}

func TestPrivateDocumentHiddenFromNonOwnerChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Private", "Owner")
	intruder := env.newUser(t, "Curious", "Peer")
	doc := env.upload(t, owner, "Private Draft", "draft.docx", func(r *UploadDocumentRequest) { r.IsPublic = false })

	// same answer as for an id that does not exist
	assert.ErrorIs(t, env.docs.DeleteDocument(ctx, intruder.ID, doc.ID), ErrNotFound)
	assert.ErrorIs(t, env.docs.DeleteDocument(ctx, intruder.ID, doc.ID+100), ErrNotFound)
	_, err := env.docs.AddTag(ctx, intruder.ID, doc.ID, "leak")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.docs.RemoveTag(ctx, intruder.ID, doc.ID, "leak")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, int64(1), env.count(t, &model.Document{}))
	require.NoError(t, env.docs.DeleteDocument(ctx, owner.ID, doc.ID))
	assert.Equal(t, int64(0), env.count(t, &model.Document{}))
}

func TestRate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Rate", "Me")
	doc := env.upload(t, owner, "Rated", "rated.docx")

	for _, bad := range []int{0, 6, -1} {
		_, err := env.docs.Rate(ctx, owner.ID, doc.ID, bad)
		assert.ErrorIs(t, err, model.ErrInvalidRating)
	}

	_, err := env.docs.Rate(ctx, owner.ID, doc.ID, 5)
	require.NoError(t, err)
	got, err := env.docs.Rate(ctx, owner.ID, doc.ID, 4)
	require.NoError(t, err)
	_, err = env.docs.Rate(ctx, owner.ID, doc.ID, 4)
	require.NoError(t, err)
	require.NoError(t, env.db.First(got, doc.ID).Error)

	assert.Equal(t, 13, got.Rating)
	assert.Equal(t, 3, got.RatingCount)
	assert.Equal(t, 4.3, got.AverageRating())
}

func TestAddRemoveTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "Tag", "Ger")
	other := env.newUser(t, "Un", "Related")
	doc := env.upload(t, owner, "Tagged", "tagged.docx")

	_, err := env.docs.AddTag(ctx, other.ID, doc.ID, "calculus")
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.docs.AddTag(ctx, owner.ID, doc.ID, " Calculus ")
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "calculus", got.Tags[0].Name)

	// attaching again is a no-op
	_, err = env.docs.AddTag(ctx, owner.ID, doc.ID, "CALCULUS")
	require.NoError(t, err)
	var tag model.Tag
	require.NoError(t, env.db.Where("name = ?", "calculus").First(&tag).Error)
	assert.Equal(t, 1, tag.UsageCount)

	_, err = env.docs.AddTag(ctx, owner.ID, doc.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidTag)

	got, err = env.docs.RemoveTag(ctx, owner.ID, doc.ID, "calculus")
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	require.NoError(t, env.db.First(&tag, tag.ID).Error)
	assert.Equal(t, 0, tag.UsageCount)

	// removing twice never drives the count negative
	_, err = env.docs.RemoveTag(ctx, owner.ID, doc.ID, "calculus")
	require.NoError(t, err)
	require.NoError(t, env.db.First(&tag, tag.ID).Error)
	assert.Equal(t, 0, tag.UsageCount)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.newUser(t, "Ada", "Lovelace")
	alan := env.newUser(t, "Alan", "Turing")

	algebra := env.upload(t, ada, "Linear Algebra Notes", "algebra.docx", func(r *UploadDocumentRequest) {
		r.Institute, r.Course, r.Subject, r.Category = "MIT", "18.06", "Math", "Lecture Notes"
	})
	env.upload(t, alan, "Computability", "comp.docx", func(r *UploadDocumentRequest) {
		r.Institute, r.Course, r.Subject, r.Category = "Cambridge", "CS101", "CS", "Papers"
	})
	env.upload(t, alan, "Hidden algebra", "hidden.docx", func(r *UploadDocumentRequest) { r.IsPublic = false })

	_, err := env.docs.Rate(ctx, ada.ID, algebra.ID, 5)
	require.NoError(t, err)

	cases := []struct {
		name   string
		params SearchParams
		want   []string
	}{
		{"all public", SearchParams{}, []string{"Computability", "Linear Algebra Notes"}},
		{"title is case insensitive", SearchParams{Title: "ALGEBRA"}, []string{"Linear Algebra Notes"}},
		{"owner sees private", SearchParams{Title: "algebra", ViewerID: alan.ID}, []string{"Hidden algebra", "Linear Algebra Notes"}},
		{"institute exact", SearchParams{Institute: "MIT"}, []string{"Linear Algebra Notes"}},
		{"course exact", SearchParams{Course: "CS101"}, []string{"Computability"}},
		{"subject exact", SearchParams{Subject: "math"}, nil},
		{"category", SearchParams{Category: "Papers"}, []string{"Computability"}},
		{"author first name", SearchParams{Author: "ada"}, []string{"Linear Algebra Notes"}},
		{"author full name", SearchParams{Author: "Alan Turing"}, []string{"Computability"}},
		{"author mismatch", SearchParams{Author: "Ada Turing"}, nil},
		{"min rating", SearchParams{MinRating: ptr(4.5)}, []string{"Linear Algebra Notes"}},
		{"combined", SearchParams{Title: "notes", Author: "lovelace", Category: "Lecture Notes"}, []string{"Linear Algebra Notes"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.params.Limit = 20
			docs, total, err := env.docs.Search(ctx, tc.params)
			require.NoError(t, err)

			var titles []string
			for _, d := range docs {
				titles = append(titles, d.Title)
			}
			assert.ElementsMatch(t, tc.want, titles)
			assert.Equal(t, int64(len(tc.want)), total)
		})
	}
}

func TestSearch_TreatsWildcardsLiterally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "Wild", "Card")
	for i, title := range []string{"100% Pass Guide", "Data_Structures", "Set [A] Theory", "Wow! Physics", "Plain notes"} {
		env.upload(t, u, title, fmt.Sprintf("wild%d.docx", i))
	}

	cases := []struct {
		query string
		want  []string
	}{
		{"%", []string{"100% Pass Guide"}},
		{"_", []string{"Data_Structures"}},
		{"[a]", []string{"Set [A] Theory"}},
		{"!", []string{"Wow! Physics"}},
		{"plain", []string{"Plain notes"}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			docs, _, err := env.docs.Search(ctx, SearchParams{Title: tc.query, Limit: 20})
			require.NoError(t, err)
			var titles []string
			for _, d := range docs {
				titles = append(titles, d.Title)
			}
			assert.ElementsMatch(t, tc.want, titles)
		})
	}

	docs, _, err := env.docs.Search(ctx, SearchParams{Author: "%", Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearch_PaginatesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "Page", "Er")
	for _, title := range []string{"one", "two", "three"} {
		env.upload(t, u, title, title+".docx")
	}

	docs, total, err := env.docs.Search(ctx, SearchParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, docs, 2)
	assert.Equal(t, "three", docs[0].Title)
	assert.Equal(t, "two", docs[1].Title)
	assert.Equal(t, "Page Er", docs[0].Author.FullName())
}

func TestRecentAndPopular(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "List", "Er")
	first := env.upload(t, u, "first", "first.docx")
	env.upload(t, u, "second", "second.docx")

	_, rc, err := env.docs.Download(ctx, first.ID, u.ID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	recent, err := env.docs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Title)

	popular, err := env.docs.Popular(ctx, 1)
	require.NoError(t, err)
	require.Len(t, popular, 1)
	assert.Equal(t, "first", popular[0].Title)
}

func ptr[T any](v T) *T { return &v }
