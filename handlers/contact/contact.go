package contact

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// ContactHandler accepts contact-form questions
type ContactHandler struct {
	questionService *services.QuestionService
	mailer          *services.EmailService
}

// NewContactHandler creates the handler. mailer may be nil.
func NewContactHandler(questionService *services.QuestionService, mailer *services.EmailService) *ContactHandler {
	return &ContactHandler{questionService: questionService, mailer: mailer}
}

type SubmitRequest struct {
	Subject string `json:"subject" form:"subject" validate:"required,max=100"`
	Email   string `json:"email" form:"email" validate:"required,email,max=120"`
	Body    string `json:"body" form:"body" validate:"required,max=2000"`
}

// Submit handles POST /api/v1/form/form. Signed-in users are linked to the
// question.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if ok, err := handlers.Bind(c, &req); !ok {
		return err
	}

	in := services.SubmitQuestionInput{Subject: req.Subject, Email: req.Email, Body: req.Body}
	if userID, ok := middleware.GetUserID(c); ok {
		in.UserID = &userID
	}

	q, err := h.questionService.Submit(c.UserContext(), in)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to submit question")
	}

	if h.mailer != nil && h.mailer.IsConfigured() {
		question := *q
		go func() {
			if err := h.mailer.SendQuestionNotification(&question); err != nil {
				logger.Logger.Warn().Err(err).Uint("question_id", question.ID).Msg("failed to send question notification")
			}
		}()
	}
	return response.CreatedWithMessage(c, "Thanks, we will get back to you soon", q)
}
