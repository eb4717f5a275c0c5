package forum

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// ForumHandler serves discussion groups, join requests, posts and replies
type ForumHandler struct {
	groupService *services.GroupService
}

func NewForumHandler(groupService *services.GroupService) *ForumHandler {
	return &ForumHandler{groupService: groupService}
}

type CreateGroupRequest struct {
	Name        string `json:"name" form:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" form:"description" validate:"max=1000"`
	IsPrivate   bool   `json:"is_private" form:"is_private"`
}

type CreatePostRequest struct {
	Title   string `form:"title" validate:"required,min=3,max=200"`
	Content string `form:"content" validate:"required,max=5000"`
}

type ReplyRequest struct {
	Content string `json:"content" form:"content" validate:"required,max=1000"`
}

// ReplyView is a reply as rendered inside a post
type ReplyView struct {
	ID        uint              `json:"id"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Author    model.UserSummary `json:"author"`
}

// PostView is a post with its replies
type PostView struct {
	ID               uint              `json:"id"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	CreatedAt        time.Time         `json:"created_at"`
	Author           model.UserSummary `json:"author"`
	HasAttachment    bool              `json:"has_attachment"`
	OriginalFilename string            `json:"original_filename,omitempty"`
	Replies          []ReplyView       `json:"replies"`
}

func postView(p *model.GroupPost) PostView {
	v := PostView{
		ID:               p.ID,
		Title:            p.Title,
		Content:          p.Content,
		CreatedAt:        p.CreatedAt,
		Author:           p.Author.Summary(),
		HasAttachment:    p.HasAttachment(),
		OriginalFilename: p.OriginalFilename,
		Replies:          make([]ReplyView, 0, len(p.Replies)),
	}
	for i := range p.Replies {
		r := &p.Replies[i]
		v.Replies = append(v.Replies, ReplyView{ID: r.ID, Content: r.Content, CreatedAt: r.CreatedAt, Author: r.Author.Summary()})
	}
	return v
}

// requireIDs returns the caller and the :id param. When id is 0 the error
// response has already been written and err is its result.
func requireIDs(c *fiber.Ctx) (uint, uint, error) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return 0, 0, response.Unauthorized(c, "User not authenticated")
	}
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return 0, 0, response.BadRequest(c, "Invalid ID")
	}
	return userID, id, nil
}

// Index handles GET /api/v1/forum
func (h *ForumHandler) Index(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	index, err := h.groupService.Index(c.UserContext(), userID, c.Query("group_code"))
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to load forum")
	}
	return response.Success(c, index)
}

// CreateGroup handles POST /api/v1/forum/groups
func (h *ForumHandler) CreateGroup(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateGroupRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	group, err := h.groupService.CreateGroup(c.UserContext(), userID, services.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to create group")
	}
	return response.CreatedWithMessage(c, "Group created", group)
}

// ViewGroup handles GET /api/v1/forum/groups/:id
func (h *ForumHandler) ViewGroup(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}

	detail, err := h.groupService.ViewGroup(c.UserContext(), userID, id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to load group")
	}

	posts := make([]PostView, 0, len(detail.Posts))
	for i := range detail.Posts {
		posts = append(posts, postView(&detail.Posts[i]))
	}
	return response.Success(c, fiber.Map{
		"group":      detail.Group,
		"members":    detail.Members,
		"is_member":  detail.IsMember,
		"is_creator": detail.IsCreator,
		"posts":      posts,
	})
}

// JoinGroup handles POST /api/v1/forum/groups/:id/join
func (h *ForumHandler) JoinGroup(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}
	if err := h.groupService.JoinGroup(c.UserContext(), userID, id); err != nil {
		return handlers.ServiceError(c, err, "Failed to join group")
	}
	return response.SuccessWithMessage(c, "Joined group", nil)
}

// RequestJoin handles POST /api/v1/forum/groups/:id/request
func (h *ForumHandler) RequestJoin(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}
	request, err := h.groupService.RequestJoin(c.UserContext(), userID, id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to send join request")
	}
	return response.CreatedWithMessage(c, "Join request sent", request)
}

// LeaveGroup handles POST /api/v1/forum/groups/:id/leave
func (h *ForumHandler) LeaveGroup(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}
	if err := h.groupService.LeaveGroup(c.UserContext(), userID, id); err != nil {
		return handlers.ServiceError(c, err, "Failed to leave group")
	}
	return response.SuccessWithMessage(c, "Left group", nil)
}

// JoinRequests handles GET /api/v1/forum/groups/:id/requests
func (h *ForumHandler) JoinRequests(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}
	requests, err := h.groupService.ListJoinRequests(c.UserContext(), userID, id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to list join requests")
	}

	out := make([]fiber.Map, 0, len(requests))
	for i := range requests {
		r := &requests[i]
		out = append(out, fiber.Map{
			"id":         r.ID,
			"status":     r.Status,
			"created_at": r.CreatedAt,
			"user":       r.User.Summary(),
		})
	}
	return response.Success(c, out)
}

// AcceptRequest handles POST /api/v1/forum/requests/:id/accept
func (h *ForumHandler) AcceptRequest(c *fiber.Ctx) error {
	return h.decide(c, true)
}

// RejectRequest handles POST /api/v1/forum/requests/:id/reject
func (h *ForumHandler) RejectRequest(c *fiber.Ctx) error {
	return h.decide(c, false)
}

func (h *ForumHandler) decide(c *fiber.Ctx, accept bool) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}
	request, err := h.groupService.DecideJoinRequest(c.UserContext(), userID, id, accept)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to decide join request")
	}
	return response.SuccessWithMessage(c, "Join request "+string(request.Status), request)
}
