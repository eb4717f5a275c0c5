package forum

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// CreatePost handles POST /api/v1/forum/groups/:id/posts. The body is a
// multipart form with an optional "file".
func (h *ForumHandler) CreatePost(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}

	var req CreatePostRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	in := services.CreatePostInput{Title: req.Title, Content: req.Content}
	if fh, err := c.FormFile("file"); err == nil && fh.Filename != "" {
		f, err := fh.Open()
		if err != nil {
			return response.BadRequest(c, "Failed to read upload")
		}
		defer f.Close()
		in.Filename = fh.Filename
		in.Size = fh.Size
		in.File = f
	}

	post, err := h.groupService.CreatePost(c.UserContext(), userID, id, in)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to create post")
	}
	return response.CreatedWithMessage(c, "Post created", postView(post))
}

// DeletePost handles DELETE /api/v1/forum/posts/:id
func (h *ForumHandler) DeletePost(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}
	if err := h.groupService.DeletePost(c.UserContext(), userID, id); err != nil {
		return handlers.ServiceError(c, err, "Failed to delete post")
	}
	return response.SuccessWithMessage(c, "Post deleted", nil)
}

// PostAttachment handles GET /api/v1/forum/posts/:id/file
func (h *ForumHandler) PostAttachment(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}
	post, rc, err := h.groupService.PostAttachment(c.UserContext(), userID, id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to load attachment")
	}
	c.Attachment(post.OriginalFilename)
	return c.SendStream(rc)
}

// Reply handles POST /api/v1/forum/posts/:id/replies
func (h *ForumHandler) Reply(c *fiber.Ctx) error {
	userID, id, err := requireIDs(c)
	if id == 0 {
		return err
	}

	var req ReplyRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	reply, err := h.groupService.Reply(c.UserContext(), userID, id, req.Content)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to post reply")
	}
	return response.CreatedWithMessage(c, "Reply posted", ReplyView{
		ID:        reply.ID,
		Content:   reply.Content,
		CreatedAt: reply.CreatedAt,
		Author:    reply.Author.Summary(),
	})
}
