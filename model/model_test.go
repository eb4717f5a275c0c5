package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRating(t *testing.T) {
	var d Document
	assert.Equal(t, 0.0, d.AverageRating())

	assert.ErrorIs(t, ValidateRating(0), ErrInvalidRating)
	assert.ErrorIs(t, ValidateRating(6), ErrInvalidRating)
	for v := MinRating; v <= MaxRating; v++ {
		require.NoError(t, ValidateRating(v))
	}

	d.Rating, d.RatingCount = 13, 3
	assert.Equal(t, 4.3, d.AverageRating())
}

func TestDocumentToResponse(t *testing.T) {
	d := Document{
		ID:          7,
		Title:       "Linear Algebra Notes",
		Rating:      9,
		RatingCount: 2,
		Author:      User{ID: 3, FirstName: "Ada", LastName: "Lovelace", ProfileImage: DefaultProfileImage},
		Category:    &Category{Name: "Notes"},
		Tags:        []Tag{{Name: "algebra"}, {Name: "exam"}},
	}
	res := d.ToResponse()
	assert.Equal(t, 4.5, res.AverageRating)
	require.NotNil(t, res.Author)
	assert.Equal(t, "Ada Lovelace", res.Author.Name)
	assert.Equal(t, "Notes", res.Category)
	assert.Equal(t, []string{"algebra", "exam"}, res.Tags)

	bare := (&Document{}).ToResponse()
	assert.Nil(t, bare.Author)
	assert.NotNil(t, bare.Tags)
}

func TestQuestionTransitions(t *testing.T) {
	q := Question{Status: QuestionStatusOpen}
	q.MarkAsResponded(q.CreatedAt)
	assert.True(t, q.ResponseSent)
	assert.Equal(t, QuestionStatusInProgress, q.Status)

	q.Status = QuestionStatusClosed
	q.MarkAsResponded(q.CreatedAt)
	assert.Equal(t, QuestionStatusClosed, q.Status)

	q.Close()
	assert.Equal(t, QuestionStatusResolved, q.Status)

	assert.False(t, QuestionStatus("archived").Valid())
	assert.True(t, QuestionPriorityUrgent.Valid())
}

func TestUserHelpers(t *testing.T) {
	u := User{FirstName: "Grace", LastName: "Hopper", ProfileImage: DefaultProfileImage, Role: RoleStudent}
	assert.Equal(t, "Grace Hopper", u.FullName())
	assert.False(t, u.HasCustomProfileImage())
	assert.False(t, u.IsAdmin())

	u.ProfileImage = "1_1700000000_me.png"
	assert.True(t, u.HasCustomProfileImage())
}
