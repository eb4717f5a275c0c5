package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroup(t *testing.T, gs *GroupService, creator *model.User, private bool) *model.Group {
	t.Helper()
	g, err := gs.CreateGroup(context.Background(), creator.ID, CreateGroupInput{Name: "Study Circle", Description: "weekly", IsPrivate: private})
	require.NoError(t, err)
	return g
}

func TestCreateGroup_CodeAndCreatorMembership(t *testing.T) {
	env := newTestEnv(t)
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Cre", "Ator")

	g := newGroup(t, gs, creator, false)
	assert.Regexp(t, `^[A-Z0-9]{5}$`, g.GroupCode)

	member, err := isMember(env.db, g.ID, creator.ID)
	require.NoError(t, err)
	assert.True(t, member)

	other := newGroup(t, gs, creator, true)
	assert.NotEqual(t, g.GroupCode, other.GroupCode)
}

func TestJoinRequest_PendingDuplicateRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Group", "Owner")
	applicant := env.newUser(t, "App", "Licant")
	g := newGroup(t, gs, creator, true)

	req, err := gs.RequestJoin(ctx, applicant.ID, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JoinRequestPending, req.Status)

	_, err = gs.RequestJoin(ctx, applicant.ID, g.ID)
	assert.ErrorIs(t, err, ErrJoinRequestPending)
	assert.Equal(t, int64(1), env.count(t, &model.GroupJoinRequest{}))

	// the creator was notified once
	var notes []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", creator.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationTypeJoinRequest, notes[0].Type)
	assert.Contains(t, notes[0].Message, "App Licant")

	// joining directly is not possible for private groups
	assert.ErrorIs(t, gs.JoinGroup(ctx, applicant.ID, g.ID), ErrGroupIsPrivate)
}

func TestJoinRequest_AcceptRejectWorkflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Group", "Owner")
	applicant := env.newUser(t, "App", "Licant")
	intruder := env.newUser(t, "In", "Truder")
	g := newGroup(t, gs, creator, true)

	req, err := gs.RequestJoin(ctx, applicant.ID, g.ID)
	require.NoError(t, err)

	_, err = gs.ListJoinRequests(ctx, intruder.ID, g.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = gs.DecideJoinRequest(ctx, intruder.ID, req.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	pending, err := gs.ListJoinRequests(ctx, creator.ID, g.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, applicant.ID, pending[0].User.ID)

	decided, err := gs.DecideJoinRequest(ctx, creator.ID, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.JoinRequestAccepted, decided.Status)
	assert.NotNil(t, decided.DecidedAt)

	member, err := isMember(env.db, g.ID, applicant.ID)
	require.NoError(t, err)
	assert.True(t, member)

	// terminal: cannot be decided again
	_, err = gs.DecideJoinRequest(ctx, creator.ID, req.ID, false)
	assert.ErrorIs(t, err, ErrRequestNotPending)

	// members cannot request again
	_, err = gs.RequestJoin(ctx, applicant.ID, g.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	var note model.Notification
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", applicant.ID, model.NotificationTypeJoinAccepted).First(&note).Error)
	assert.Contains(t, note.Message, "accepted")

	pending, err = gs.ListJoinRequests(ctx, creator.ID, g.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJoinRequest_RejectedUserMayAskAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Group", "Owner")
	applicant := env.newUser(t, "App", "Licant")
	g := newGroup(t, gs, creator, true)

	req, err := gs.RequestJoin(ctx, applicant.ID, g.ID)
	require.NoError(t, err)
	_, err = gs.DecideJoinRequest(ctx, creator.ID, req.ID, false)
	require.NoError(t, err)

	member, err := isMember(env.db, g.ID, applicant.ID)
	require.NoError(t, err)
	assert.False(t, member)

	again, err := gs.RequestJoin(ctx, applicant.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, again.IsPending())
	assert.Equal(t, int64(1), env.count(t, &model.GroupJoinRequest{}))
}

func TestPublicGroup_JoinAndRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Pub", "Lic")
	joiner := env.newUser(t, "Join", "Er")
	g := newGroup(t, gs, creator, false)

	_, err := gs.RequestJoin(ctx, joiner.ID, g.ID)
	assert.ErrorIs(t, err, ErrGroupIsPublic)

	require.NoError(t, gs.JoinGroup(ctx, joiner.ID, g.ID))
	assert.ErrorIs(t, gs.JoinGroup(ctx, joiner.ID, g.ID), ErrAlreadyMember)
	assert.ErrorIs(t, gs.JoinGroup(ctx, joiner.ID, 999), ErrNotFound)
}

func TestLeaveGroup_SoleCreatorRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Only", "Member")
	second := env.newUser(t, "Second", "Member")
	g := newGroup(t, gs, creator, false)

	assert.ErrorIs(t, gs.LeaveGroup(ctx, creator.ID, g.ID), ErrSoleCreatorMember)
	assert.ErrorIs(t, gs.LeaveGroup(ctx, second.ID, g.ID), ErrNotMember)

	require.NoError(t, gs.JoinGroup(ctx, second.ID, g.ID))
	require.NoError(t, gs.LeaveGroup(ctx, creator.ID, g.ID))

	member, err := isMember(env.db, g.ID, creator.ID)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestViewGroup_PrivateRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Host", "User")
	outsider := env.newUser(t, "Out", "Sider")
	g := newGroup(t, gs, creator, true)

	_, err := gs.ViewGroup(ctx, outsider.ID, g.ID)
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = gs.CreatePost(ctx, outsider.ID, g.ID, CreatePostInput{Title: "Hey", Content: "let me in"})
	assert.ErrorIs(t, err, ErrNotMember)

	detail, err := gs.ViewGroup(ctx, creator.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsCreator)
	assert.True(t, detail.IsMember)
	assert.Equal(t, int64(1), detail.Group.MemberCount)
	require.Len(t, detail.Members, 1)
}

func TestPostsRepliesAndNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Host", "User")
	poster := env.newUser(t, "Post", "Er")
	replier := env.newUser(t, "Re", "Plier")
	g := newGroup(t, gs, creator, false)
	require.NoError(t, gs.JoinGroup(ctx, poster.ID, g.ID))

	post, err := gs.CreatePost(ctx, poster.ID, g.ID, CreatePostInput{
		Title:    "Exam tips",
		Content:  "see attached",
		Filename: "tips.txt",
		Size:     5,
		File:     strings.NewReader("tips!"),
	})
	require.NoError(t, err)
	assert.True(t, post.HasAttachment())
	assert.Equal(t, "Post Er", post.Author.FullName())

	_, err = gs.CreatePost(ctx, poster.ID, g.ID, CreatePostInput{Title: "Bad", Content: "x", Filename: "evil.exe", Size: 1, File: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrInvalidFileType)

	// public group: non-members may reply
	_, err = gs.Reply(ctx, replier.ID, post.ID, "thanks")
	require.NoError(t, err)
	// replying to your own post creates no notification
	_, err = gs.Reply(ctx, poster.ID, post.ID, "you're welcome")
	require.NoError(t, err)

	var notes []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", poster.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationTypeNewReply, notes[0].Type)
	assert.Equal(t, `Re Plier replied to your post "Exam tips" in group "Study Circle"`, notes[0].Message)
	assert.Equal(t, model.ResourceGroupPost, notes[0].RelatedResourceType)
	require.NotNil(t, notes[0].RelatedResourceID)
	assert.Equal(t, post.ID, *notes[0].RelatedResourceID)

	detail, err := gs.ViewGroup(ctx, poster.ID, g.ID)
	require.NoError(t, err)
	require.Len(t, detail.Posts, 1)
	require.Len(t, detail.Posts[0].Replies, 2)
	assert.Equal(t, "thanks", detail.Posts[0].Replies[0].Content)
	assert.Equal(t, "Re Plier", detail.Posts[0].Replies[0].Author.FullName())

	_, rc, err := gs.PostAttachment(ctx, replier.ID, post.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "tips!", string(body))

	// only the author or the group creator may delete
	assert.ErrorIs(t, gs.DeletePost(ctx, replier.ID, post.ID), ErrForbidden)
	require.NoError(t, gs.DeletePost(ctx, creator.ID, post.ID))
	assert.Equal(t, int64(0), env.count(t, &model.GroupReply{}))
	exists, err := env.store.Exists(ctx, post.Filename)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestForumIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gs := NewGroupService(env.db, env.store)
	creator := env.newUser(t, "Host", "User")
	visitor := env.newUser(t, "Visi", "Tor")
	public := newGroup(t, gs, creator, false)
	private := newGroup(t, gs, creator, true)

	index, err := gs.Index(ctx, visitor.ID, "")
	require.NoError(t, err)
	assert.Empty(t, index.MyGroups)
	require.Len(t, index.PublicGroups, 1)
	assert.Equal(t, public.ID, index.PublicGroups[0].ID)
	assert.Nil(t, index.Found)

	index, err = gs.Index(ctx, visitor.ID, strings.ToLower(private.GroupCode))
	require.NoError(t, err)
	require.NotNil(t, index.Found)
	assert.Equal(t, private.ID, index.Found.ID)

	index, err = gs.Index(ctx, creator.ID, "")
	require.NoError(t, err)
	assert.Len(t, index.MyGroups, 2)
	assert.Empty(t, index.PublicGroups)
}
