package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// Deps are the services the admin handlers work with
type Deps struct {
	Questions *services.QuestionService
	Users     *services.UserService
}

// UpdateQuestionRequest represents the request body for triaging a question
type UpdateQuestionRequest struct {
	Status   *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority *string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// ListQuestions retrieves contact-form questions, newest first
// GET /admin/questions?status=
func ListQuestions(c *fiber.Ctx, deps *Deps) error {
	page, limit, offset := handlers.Page(c)

	questions, total, err := deps.Questions.List(c.UserContext(), c.Query("status"), limit, offset)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch questions")
	}
	return response.Paginated(c, questions, response.CalculatePagination(page, limit, total))
}

// UpdateQuestion sets status and/or priority
// PUT /admin/questions/:id
func UpdateQuestion(c *fiber.Ctx, deps *Deps) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid question ID")
	}

	var req UpdateQuestionRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	var in services.UpdateQuestionInput
	if req.Status != nil {
		s := model.QuestionStatus(*req.Status)
		in.Status = &s
	}
	if req.Priority != nil {
		p := model.QuestionPriority(*req.Priority)
		in.Priority = &p
	}

	q, err := deps.Questions.Update(c.UserContext(), id, in)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to update question")
	}
	return response.SuccessWithMessage(c, "Question updated", q)
}

// RespondQuestion marks a question as answered
// POST /admin/questions/:id/respond
func RespondQuestion(c *fiber.Ctx, deps *Deps) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid question ID")
	}

	q, err := deps.Questions.Respond(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to update question")
	}
	return response.SuccessWithMessage(c, "Question marked as responded", q)
}

// CloseQuestion resolves a question
// POST /admin/questions/:id/close
func CloseQuestion(c *fiber.Ctx, deps *Deps) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid question ID")
	}

	q, err := deps.Questions.Close(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to close question")
	}
	return response.SuccessWithMessage(c, "Question closed", q)
}
