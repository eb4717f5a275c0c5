package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"gorm.io/gorm"
)

const (
	groupCodeLength   = 5
	groupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	groupCodeAttempts = 10
)

// AllowedAttachmentTypes lists the extensions accepted on group posts
var AllowedAttachmentTypes = map[string]bool{
	"pdf":  true,
	"doc":  true,
	"docx": true,
	"txt":  true,
	"zip":  true,
	"rar":  true,
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// GroupService runs the discussion groups: membership, join requests, posts
// and replies
type GroupService struct {
	db             *gorm.DB
	store          storage.FileStore
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewGroupService(db *gorm.DB, store storage.FileStore) *GroupService {
	return &GroupService{
		db:             db,
		store:          store,
		maxUploadBytes: defaultMaxUploadMB * 1024 * 1024,
		log:            logger.WithComponent("groups"),
	}
}

// SetMaxUploadMB overrides the attachment size limit
func (s *GroupService) SetMaxUploadMB(mb int) {
	if mb > 0 {
		s.maxUploadBytes = int64(mb) * 1024 * 1024
	}
}

type CreateGroupInput struct {
	Name        string
	Description string
	IsPrivate   bool
}

type CreatePostInput struct {
	Title    string
	Content  string
	Filename string // empty when there is no attachment
	Size     int64
	File     io.Reader
}

// GroupSummary is a group as listed on the forum index
type GroupSummary struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IsPrivate   bool              `json:"is_private"`
	GroupCode   string            `json:"group_code"`
	CreatedAt   time.Time         `json:"created_at"`
	Creator     model.UserSummary `json:"creator"`
	MemberCount int64             `json:"member_count"`
}

// ForumIndex lists the user's groups and the public groups they have not joined.
// Found is set when a group code was searched and matched.
type ForumIndex struct {
	MyGroups     []GroupSummary `json:"my_groups"`
	PublicGroups []GroupSummary `json:"public_groups"`
	Found        *GroupSummary  `json:"found,omitempty"`
}

// GroupDetail is a group with its members and posts
type GroupDetail struct {
	Group     GroupSummary        `json:"group"`
	Members   []model.UserSummary `json:"members"`
	Posts     []model.GroupPost   `json:"-"`
	IsMember  bool                `json:"is_member"`
	IsCreator bool                `json:"is_creator"`
}

// NormalizeGroupCode uppercases and trims a user-entered group code
func NormalizeGroupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateGroupCode() (string, error) {
	b := make([]byte, groupCodeLength)
	max := big.NewInt(int64(len(groupCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = groupCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func isMember(tx *gorm.DB, groupID, userID uint) (bool, error) {
	return isLinked(tx, "group_members", "group_id", groupID, "user_id", userID)
}

func (s *GroupService) findGroup(tx *gorm.DB, groupID uint) (*model.Group, error) {
	var group model.Group
	if err := tx.Preload("Creator").First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (s *GroupService) summarize(ctx context.Context, groups []model.Group) ([]GroupSummary, error) {
	out := make([]GroupSummary, 0, len(groups))
	if len(groups) == 0 {
		return out, nil
	}

	ids := make([]uint, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	var rows []struct {
		GroupID uint
		Total   int64
	}
	if err := s.db.WithContext(ctx).Table("group_members").
		Select("group_id, COUNT(*) AS total").
		Where("group_id IN ?", ids).
		Group("group_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.GroupID] = r.Total
	}

	for i := range groups {
		g := &groups[i]
		out = append(out, GroupSummary{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			IsPrivate:   g.IsPrivate,
			GroupCode:   g.GroupCode,
			CreatedAt:   g.CreatedAt,
			Creator:     g.Creator.Summary(),
			MemberCount: counts[g.ID],
		})
	}
	return out, nil
}

// Index builds the forum landing page for userID
func (s *GroupService) Index(ctx context.Context, userID uint, groupCode string) (*ForumIndex, error) {
	db := s.db.WithContext(ctx)
	memberOf := "SELECT group_id FROM group_members WHERE user_id = ?"

	var mine []model.Group
	if err := db.Preload("Creator").Where("id IN ("+memberOf+")", userID).
		Order("name ASC").Find(&mine).Error; err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var public []model.Group
	if err := db.Preload("Creator").Where("is_private = ? AND id NOT IN ("+memberOf+")", false, userID).
		Order("created_at DESC").Find(&public).Error; err != nil {
		return nil, fmt.Errorf("failed to list public groups: %w", err)
	}

	index := &ForumIndex{}
	var err error
	if index.MyGroups, err = s.summarize(ctx, mine); err != nil {
		return nil, err
	}
	if index.PublicGroups, err = s.summarize(ctx, public); err != nil {
		return nil, err
	}

	if code := NormalizeGroupCode(groupCode); code != "" {
		var found model.Group
		err := db.Preload("Creator").Where("group_code = ?", code).First(&found).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return nil, err
		default:
			summaries, err := s.summarize(ctx, []model.Group{found})
			if err != nil {
				return nil, err
			}
			index.Found = &summaries[0]
		}
	}
	return index, nil
}

// CreateGroup creates a group with a fresh code and makes the creator its
// first member
func (s *GroupService) CreateGroup(ctx context.Context, userID uint, in CreateGroupInput) (*model.Group, error) {
	var group model.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < groupCodeAttempts; attempt++ {
			code, err := generateGroupCode()
			if err != nil {
				return err
			}
			var taken int64
			if err := tx.Model(&model.Group{}).Where("group_code = ?", code).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				continue
			}

			group = model.Group{
				Name:        strings.TrimSpace(in.Name),
				Description: strings.TrimSpace(in.Description),
				IsPrivate:   in.IsPrivate,
				GroupCode:   code,
				CreatedByID: userID,
			}
			if err := tx.Create(&group).Error; err != nil {
				return fmt.Errorf("failed to create group: %w", err)
			}
			_, err = link(tx, "group_members", "group_id", group.ID, "user_id", userID)
			return err
		}
		return errors.New("could not generate a unique group code")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("group_id", group.ID).Str("code", group.GroupCode).Bool("private", group.IsPrivate).Msg("created group")
	return &group, nil
}

// ViewGroup returns the group with posts (newest first) and replies. Private
// groups are only visible to members.
func (s *GroupService) ViewGroup(ctx context.Context, userID, groupID uint) (*GroupDetail, error) {
	db := s.db.WithContext(ctx)
	group, err := s.findGroup(db, groupID)
	if err != nil {
		return nil, err
	}
	member, err := isMember(db, groupID, userID)
	if err != nil {
		return nil, err
	}

	if group.IsPrivate && !member {
		return nil, ErrNotMember
	}

	detail := &GroupDetail{IsMember: member, IsCreator: group.CreatedByID == userID}
	summaries, err := s.summarize(ctx, []model.Group{*group})
	if err != nil {
		return nil, err
	}
	detail.Group = summaries[0]

	var members []model.User
	if err := db.Where("id IN (SELECT user_id FROM group_members WHERE group_id = ?)", groupID).
		Order("first_name ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	detail.Members = make([]model.UserSummary, 0, len(members))
	for i := range members {
		detail.Members = append(detail.Members, members[i].Summary())
	}

	err = db.Where("group_id = ?", groupID).
		Preload("Author").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("group_replies.created_at ASC, group_replies.id ASC") }).
		Preload("Replies.Author").
		Order("created_at DESC").
		Order("id DESC").
		Find(&detail.Posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	return detail, nil
}

// JoinGroup adds userID to a public group
func (s *GroupService) JoinGroup(ctx context.Context, userID, groupID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.IsPrivate {
			return ErrGroupIsPrivate
		}
		added, err := link(tx, "group_members", "group_id", groupID, "user_id", userID)
		if err != nil {
			return err
		}
		if !added {
			return ErrAlreadyMember
		}
		return nil
	})
}

// RequestJoin files a pending join request for a private group and notifies
// the creator. Members and users with a pending request are refused; a
// decided request is replaced by the new one.
func (s *GroupService) RequestJoin(ctx context.Context, userID, groupID uint) (*model.GroupJoinRequest, error) {
	var request model.GroupJoinRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.findGroup(tx, groupID)
		if err != nil {
			return err
		}
		if !group.IsPrivate {
			return ErrGroupIsPublic
		}
		member, err := isMember(tx, groupID, userID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}

		var existing model.GroupJoinRequest
		err = tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&existing).Error
		switch {
		case err == nil && existing.IsPending():
			return ErrJoinRequestPending
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		request = model.GroupJoinRequest{GroupID: groupID, UserID: userID, Status: model.JoinRequestPending}
		if err := tx.Create(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrJoinRequestPending
			}
			return fmt.Errorf("failed to create join request: %w", err)
		}

		var requester model.User
		if err := tx.First(&requester, userID).Error; err != nil {
			return err
		}
		_, err = createNotification(tx, CreateNotificationRequest{
			UserID:              group.CreatedByID,
			Type:                model.NotificationTypeJoinRequest,
			Message:             fmt.Sprintf("%s requested to join your group %q", requester.FullName(), group.Name),
			RelatedResourceID:   &request.ID,
			RelatedResourceType: model.ResourceGroupJoinRequest,
			Metadata: &model.NotificationMetadata{
				GroupID:   group.ID,
				GroupName: group.Name,
				ActorID:   requester.ID,
				ActorName: requester.FullName(),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// LeaveGroup removes userID from the group. The creator cannot leave while
// being the only member.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.findGroup(tx, groupID)
		if err != nil {
			return err
		}
		member, err := isMember(tx, groupID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotMember
		}
		if group.CreatedByID == userID {
			var count int64
			if err := tx.Table("group_members").Where("group_id = ?", groupID).Count(&count).Error; err != nil {
				return err
			}
			if count <= 1 {
				return ErrSoleCreatorMember
			}
		}
		_, err = unlink(tx, "group_members", "group_id", groupID, "user_id", userID)
		return err
	})
}

// ListJoinRequests returns the pending requests of a group created by userID
func (s *GroupService) ListJoinRequests(ctx context.Context, userID, groupID uint) ([]model.GroupJoinRequest, error) {
	db := s.db.WithContext(ctx)
	group, err := s.findGroup(db, groupID)
	if err != nil {
		return nil, err
	}
	if group.CreatedByID != userID {
		return nil, ErrForbidden
	}

	var requests []model.GroupJoinRequest
	err = db.Preload("User").
		Where("group_id = ? AND status = ?", groupID, model.JoinRequestPending).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	return requests, nil
}

// DecideJoinRequest accepts or rejects a pending request. Only the group's
// creator may decide, and only once; accepting adds the requester as a member.
func (s *GroupService) DecideJoinRequest(ctx context.Context, userID, requestID uint, accept bool) (*model.GroupJoinRequest, error) {
	var request model.GroupJoinRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Group").First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if request.Group.CreatedByID != userID {
			return ErrForbidden
		}
		if !request.IsPending() {
			return ErrRequestNotPending
		}

		status := model.JoinRequestRejected
		notificationType := model.NotificationTypeJoinRejected
		verb := "rejected"
		if accept {
			status = model.JoinRequestAccepted
			notificationType = model.NotificationTypeJoinAccepted
			verb = "accepted"
		}

		now := time.Now()
		res := tx.Model(&model.GroupJoinRequest{}).
			Where("id = ? AND status = ?", request.ID, model.JoinRequestPending).
			Updates(map[string]interface{}{"status": status, "decided_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRequestNotPending
		}
		request.Status = status
		request.DecidedAt = &now

		if accept {
			if _, err := link(tx, "group_members", "group_id", request.GroupID, "user_id", request.UserID); err != nil {
				return err
			}
		}

		groupID := request.GroupID
		_, err := createNotification(tx, CreateNotificationRequest{
			UserID:              request.UserID,
			Type:                notificationType,
			Message:             fmt.Sprintf("Your request to join %q was %s", request.Group.Name, verb),
			RelatedResourceID:   &groupID,
			RelatedResourceType: model.ResourceGroup,
			Metadata: &model.NotificationMetadata{
				GroupID:   request.Group.ID,
				GroupName: request.Group.Name,
				ActorID:   userID,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("request_id", requestID).Str("status", string(request.Status)).Msg("decided join request")
	return &request, nil
}

// canParticipate enforces that private groups only accept posts and replies
// from members
func canParticipate(tx *gorm.DB, group *model.Group, userID uint) error {
	if !group.IsPrivate {
		return nil
	}
	member, err := isMember(tx, group.ID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	return nil
}

// CreatePost adds a post with an optional attachment
func (s *GroupService) CreatePost(ctx context.Context, userID, groupID uint, in CreatePostInput) (*model.GroupPost, error) {
	db := s.db.WithContext(ctx)
	group, err := s.findGroup(db, groupID)
	if err != nil {
		return nil, err
	}
	if err := canParticipate(db, group, userID); err != nil {
		return nil, err
	}

	post := model.GroupPost{
		GroupID: groupID,
		UserID:  userID,
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
	}

	if in.Filename != "" {
		if !AllowedAttachmentTypes[storage.Ext(in.Filename)] {
			return nil, ErrInvalidFileType
		}
		if in.Size > s.maxUploadBytes {
			return nil, ErrFileTooLarge
		}
		content, err := io.ReadAll(io.LimitReader(in.File, s.maxUploadBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		if int64(len(content)) > s.maxUploadBytes {
			return nil, ErrFileTooLarge
		}
		if len(content) == 0 {
			return nil, ErrEmptyFile
		}
		key := storage.GenerateKey(storage.PrefixGroupPosts, in.Filename)
		if _, err := s.store.Save(ctx, key, bytes.NewReader(content), storage.ContentType(in.Filename)); err != nil {
			return nil, fmt.Errorf("failed to store attachment: %w", err)
		}
		post.Filename = key
		post.OriginalFilename = in.Filename
	}

	if err := db.Create(&post).Error; err != nil {
		if post.HasAttachment() {
			if delErr := s.store.Delete(ctx, post.Filename); delErr != nil {
				s.log.Error().Err(delErr).Str("key", post.Filename).Msg("failed to remove attachment after failed insert")
			}
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if err := db.First(&post.Author, userID).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post and its replies. Allowed for the post's author and
// the group's creator.
func (s *GroupService) DeletePost(ctx context.Context, userID, postID uint) error {
	var post model.GroupPost
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Group").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if post.UserID != userID && post.Group.CreatedByID != userID {
			return ErrForbidden
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&model.GroupReply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.GroupPost{}, post.ID).Error
	})
	if err != nil {
		return err
	}

	if post.HasAttachment() {
		if err := s.store.Delete(ctx, post.Filename); err != nil {
			s.log.Warn().Err(err).Str("key", post.Filename).Msg("failed to remove post attachment")
		}
	}
	return nil
}

// PostAttachment opens a post's attachment for anyone allowed to view the group
func (s *GroupService) PostAttachment(ctx context.Context, userID, postID uint) (*model.GroupPost, io.ReadCloser, error) {
	db := s.db.WithContext(ctx)
	var post model.GroupPost
	if err := db.Preload("Group").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if err := canParticipate(db, &post.Group, userID); err != nil {
		return nil, nil, err
	}
	if !post.HasAttachment() {
		return nil, nil, ErrNotFound
	}

	rc, err := s.store.Open(ctx, post.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileMissing
		}
		return nil, nil, err
	}
	return &post, rc, nil
}

// Reply answers a post and notifies its author unless they replied themselves
func (s *GroupService) Reply(ctx context.Context, userID, postID uint, content string) (*model.GroupReply, error) {
	var reply model.GroupReply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.GroupPost
		if err := tx.Preload("Group").First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := canParticipate(tx, &post.Group, userID); err != nil {
			return err
		}

		reply = model.GroupReply{PostID: post.ID, UserID: userID, Content: strings.TrimSpace(content)}
		if err := tx.Create(&reply).Error; err != nil {
			return fmt.Errorf("failed to create reply: %w", err)
		}
		if err := tx.First(&reply.Author, userID).Error; err != nil {
			return err
		}

		if post.UserID == userID {
			return nil
		}
		author := reply.Author
		_, err := createNotification(tx, CreateNotificationRequest{
			UserID:              post.UserID,
			Type:                model.NotificationTypeNewReply,
			Message:             fmt.Sprintf("%s %s replied to your post \"%s\" in group \"%s\"", author.FirstName, author.LastName, post.Title, post.Group.Name),
			RelatedResourceID:   &post.ID,
			RelatedResourceType: model.ResourceGroupPost,
			Metadata: &model.NotificationMetadata{
				GroupID:   post.GroupID,
				GroupName: post.Group.Name,
				PostID:    post.ID,
				PostTitle: post.Title,
				ActorID:   author.ID,
				ActorName: author.FullName(),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// deleteGroupRows removes a group and everything hanging off it
func deleteGroupRows(tx *gorm.DB, groupID uint) error {
	steps := []string{
		"DELETE FROM group_replies WHERE post_id IN (SELECT id FROM group_posts WHERE group_id = ?)",
		"DELETE FROM group_posts WHERE group_id = ?",
		"DELETE FROM group_join_requests WHERE group_id = ?",
		"DELETE FROM group_members WHERE group_id = ?",
		"DELETE FROM study_groups WHERE id = ?",
	}
	for _, sql := range steps {
		if err := tx.Exec(sql, groupID).Error; err != nil {
			return err
		}
	}
	return nil
}
