package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	n, err := store.Save(ctx, "documents/a.pdf", strings.NewReader("%PDF-1.4 hello"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(14), n)

	exists, err := store.Exists(ctx, "documents/a.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Open(ctx, "documents/a.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 hello", string(body))

	require.NoError(t, store.Delete(ctx, "documents/a.pdf"))
	exists, err = store.Exists(ctx, "documents/a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, "documents/a.pdf"))

	_, err = store.Open(ctx, "documents/a.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape.txt", "documents/../../x", "", "documents//a"} {
		_, err := store.Save(ctx, key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestLocalStore_List(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	for _, key := range []string{"documents/a.pdf", "documents/b.docx", "profile_pics/1_1_me.png"} {
		_, err := store.Save(ctx, key, strings.NewReader("x"), "")
		require.NoError(t, err)
	}
	// leftover temp file from an interrupted upload
	require.NoError(t, os.WriteFile(filepath.Join(root, "documents", ".upload-123"), []byte("x"), 0o644))

	keys, err := store.List(ctx, PrefixDocuments)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"documents/a.pdf", "documents/b.docx"}, keys)

	keys, err = store.List(ctx, PrefixGroupPosts)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, prefix := range []string{"*", "documents/[ab]*", "{documents,profile_pics}"} {
		_, err := store.List(ctx, prefix)
		assert.ErrorIs(t, err, ErrInvalidKey, prefix)
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"notes.pdf", "notes.pdf"},
		{"My Lecture Notes.pdf", "My_Lecture_Notes.pdf"},
		{"../../etc/passwd", "passwd"},
		{"C:\\Users\\me\\slides.pptx", "slides.pptx"},
		{"résumé.docx", "rsum.docx"},
		{"...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey(PrefixDocuments, "notes.pdf")
	b := GenerateKey(PrefixDocuments, "notes.pdf")

	assert.True(t, strings.HasPrefix(a, "documents/"))
	assert.True(t, strings.HasSuffix(a, "_notes.pdf"))
	assert.NotEqual(t, a, b)

	assert.True(t, strings.HasSuffix(GenerateKey(PrefixGroupPosts, "../.."), "_file"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.PDF"))
	assert.Equal(t, "image/jpeg", ContentType("a.jpeg"))
	assert.Equal(t, "application/octet-stream", ContentType("a.exe"))
}
