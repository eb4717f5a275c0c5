package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	qs := NewQuestionService(env.db)

	q, err := qs.Submit(ctx, SubmitQuestionInput{Subject: "  Broken link ", Email: " Help@Example.COM ", Body: " the pdf 404s "})
	require.NoError(t, err)
	assert.Equal(t, "Broken link", q.Subject)
	assert.Equal(t, "help@example.com", q.Email)
	assert.Equal(t, "the pdf 404s", q.Body)
	assert.Equal(t, model.QuestionStatusOpen, q.Status)
	assert.Equal(t, model.QuestionPriorityNormal, q.Priority)
	assert.Nil(t, q.UserID)

	q, err = qs.Respond(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, q.ResponseSent)
	assert.NotNil(t, q.ResponseDate)
	assert.Equal(t, model.QuestionStatusInProgress, q.Status)

	high := model.QuestionPriorityHigh
	q, err = qs.Update(ctx, q.ID, UpdateQuestionInput{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, model.QuestionPriorityHigh, q.Priority)
	assert.Equal(t, model.QuestionStatusInProgress, q.Status)

	q, err = qs.Close(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QuestionStatusResolved, q.Status)

	bad := model.QuestionStatus("archived")
	_, err = qs.Update(ctx, q.ID, UpdateQuestionInput{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = qs.Close(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuestionList_FiltersByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	qs := NewQuestionService(env.db)
	u := env.newUser(t, "Ask", "Er")

	first, err := qs.Submit(ctx, SubmitQuestionInput{Subject: "a", Email: "a@x.io", Body: "a", UserID: &u.ID})
	require.NoError(t, err)
	_, err = qs.Submit(ctx, SubmitQuestionInput{Subject: "b", Email: "b@x.io", Body: "b"})
	require.NoError(t, err)
	_, err = qs.Close(ctx, first.ID)
	require.NoError(t, err)

	all, total, err := qs.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	open, total, err := qs.List(ctx, "open", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "b", open[0].Subject)

	_, _, err = qs.List(ctx, "nope", 10, 0)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
