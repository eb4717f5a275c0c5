package notification

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/handlers"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// NotificationHandler handles notification-related API endpoints
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, limit, offset := handlers.Page(c)
	notifications, total, err := h.notificationService.GetNotificationsByUser(c.UserContext(), services.ListNotificationsOptions{
		UserID:     userID,
		UnreadOnly: c.Query("unread_only") == "true",
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to fetch notifications")
	}

	data := make([]model.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		data = append(data, notifications[i].ToResponse())
	}
	return response.Paginated(c, data, response.CalculatePagination(page, limit, total))
}

// GetUnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notificationService.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to get unread count")
	}

	return response.Success(c, fiber.Map{
		"unread_count": count,
	})
}

// MarkAsRead handles PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	notificationID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.MarkAsRead(c.UserContext(), notificationID, userID); err != nil {
		return handlers.ServiceError(c, err, "Failed to mark notification as read")
	}

	return response.SuccessWithMessage(c, "Notification marked as read", nil)
}

// MarkAllAsRead handles PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notificationService.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return handlers.ServiceError(c, err, "Failed to mark all notifications as read")
	}

	return response.SuccessWithMessage(c, "All notifications marked as read", fiber.Map{
		"count": count,
	})
}

// DeleteNotification handles DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	notificationID, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notificationService.DeleteNotification(c.UserContext(), notificationID, userID); err != nil {
		return handlers.ServiceError(c, err, "Failed to delete notification")
	}

	return response.SuccessWithMessage(c, "Notification deleted", nil)
}
