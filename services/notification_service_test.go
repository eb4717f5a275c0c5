package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewNotificationService(env.db)
	u := env.newUser(t, "Note", "Taker")
	other := env.newUser(t, "Some", "One")

	first, err := createNotification(env.db, CreateNotificationRequest{
		UserID:   u.ID,
		Type:     model.NotificationTypeNewReply,
		Message:  "first",
		Metadata: &model.NotificationMetadata{GroupID: 7, GroupName: "Algebra"},
	})
	require.NoError(t, err)
	var meta model.NotificationMetadata
	require.NoError(t, json.Unmarshal(first.Metadata, &meta))
	assert.Equal(t, "Algebra", meta.GroupName)

	_, err = createNotification(env.db, CreateNotificationRequest{UserID: u.ID, Type: model.NotificationTypeJoinAccepted, Message: "second"})
	require.NoError(t, err)

	unread, err := svc.GetUnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	// other users cannot touch it
	assert.ErrorIs(t, svc.MarkAsRead(ctx, first.ID, other.ID), ErrNotFound)
	require.NoError(t, svc.MarkAsRead(ctx, first.ID, u.ID))

	list, total, err := svc.GetNotificationsByUser(ctx, ListNotificationsOptions{UserID: u.ID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Message)

	n, err := svc.MarkAllAsRead(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// only read notifications past the cutoff are removed
	require.NoError(t, env.db.Model(&model.Notification{}).Where("id = ?", first.ID).
		UpdateColumn("created_at", time.Now().Add(-40*24*time.Hour)).Error)
	removed, err := svc.CleanupOldNotifications(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	assert.ErrorIs(t, svc.DeleteNotification(ctx, first.ID, u.ID), ErrNotFound)
	require.NoError(t, svc.DeleteNotification(ctx, list[0].ID, u.ID))
	assert.Equal(t, int64(0), env.count(t, &model.Notification{}))
}
