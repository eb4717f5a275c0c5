package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/database"
	"github.com/sahilchouksey/studyhub-api/handlers"
	admin_handlers "github.com/sahilchouksey/studyhub-api/handlers/admin"
	auth_handlers "github.com/sahilchouksey/studyhub-api/handlers/auth"
	contact_handlers "github.com/sahilchouksey/studyhub-api/handlers/contact"
	document_handlers "github.com/sahilchouksey/studyhub-api/handlers/document"
	forum_handlers "github.com/sahilchouksey/studyhub-api/handlers/forum"
	notification_handlers "github.com/sahilchouksey/studyhub-api/handlers/notification"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	"github.com/sahilchouksey/studyhub-api/utils"
	"github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/cache"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
)

// Config carries everything the routes need
type Config struct {
	Store       database.Storage
	Files       storage.FileStore
	JWTManager  *auth.JWTManager
	Redis       *cache.RedisCache      // optional; enables brute force protection and list caching
	Mailer      *services.EmailService // optional; mails new contact questions to the admins
	MaxUploadMB int
	TempDir     string

	// Security is applied before any route when set
	Security *middleware.SecurityConfig
	// Metrics registers the Prometheus collector; it can only be done once per process
	Metrics bool
}

func SetupRoutes(app *fiber.App, cfg Config) {
	db := cfg.Store.GetDB()

	// Initialize brute force protection
	var bruteForceProtection *middleware.BruteForceProtection
	if cfg.Redis != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(cfg.Redis)
	}

	// Initialize auth middleware with DB for blacklist checking
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTManager, db)

	// Services
	userService := services.NewUserService(db, cfg.Files)
	profileImageService := services.NewProfileImageService(db, cfg.Files, cfg.TempDir)
	catalogService := services.NewCatalogService(db)
	documentService := services.NewDocumentService(db, cfg.Files, cfg.Redis)
	groupService := services.NewGroupService(db, cfg.Files)
	notificationService := services.NewNotificationService(db)
	questionService := services.NewQuestionService(db)
	if cfg.MaxUploadMB > 0 {
		documentService.SetMaxUploadMB(cfg.MaxUploadMB)
		groupService.SetMaxUploadMB(cfg.MaxUploadMB)
	}

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, userService, profileImageService, cfg.JWTManager, bruteForceProtection)
	documentHandler := document_handlers.NewDocumentHandler(documentService, catalogService)
	forumHandler := forum_handlers.NewForumHandler(groupService)
	notificationHandler := notification_handlers.NewNotificationHandler(notificationService)
	contactHandler := contact_handlers.NewContactHandler(questionService, cfg.Mailer)
	adminDeps := &admin_handlers.Deps{Questions: questionService, Users: userService}

	if cfg.Security != nil {
		middleware.SetupSecurity(app, *cfg.Security)
	}
	if cfg.Metrics {
		middleware.SetupMetrics(app, "studyhub_api")
	}

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, cfg.Store))

	// API v1 group
	api := app.Group("/api/v1")
	api.Get("/health", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, cfg.Store))

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Put("/password", authMiddleware.Required(), authHandler.ChangePassword)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.GetProfile)
	authGroup.Put("/profile", authMiddleware.Required(), authHandler.UpdateProfile)
	authGroup.Post("/profile/image", authMiddleware.Required(), authHandler.UploadProfileImage)
	authGroup.Get("/profile/image/:name", authHandler.ServeProfileImage)

	// Documents
	api.Post("/upload", authMiddleware.Required(), documentHandler.UploadDocument)

	view := api.Group("/view")
	view.Get("/", authMiddleware.Optional(), documentHandler.Search)
	view.Get("/recent", documentHandler.Recent)
	view.Get("/popular", documentHandler.Popular)
	view.Get("/categories", documentHandler.Categories)
	view.Get("/tags/popular", documentHandler.PopularTags)
	view.Get("/documents/:id", authMiddleware.Optional(), documentHandler.GetDocument)
	view.Get("/download/:id", authMiddleware.Required(), documentHandler.Download)
	view.Get("/preview/:id", authMiddleware.Optional(), documentHandler.Preview)
	view.Post("/toggle_favorite/:id", authMiddleware.Required(), documentHandler.ToggleFavorite)
	view.Get("/favorites", authMiddleware.Required(), documentHandler.Favorites)
	view.Get("/uploaded", authMiddleware.Required(), documentHandler.Uploaded)
	view.Post("/delete_document/:id", authMiddleware.Required(), documentHandler.DeleteDocument)
	view.Post("/rate/:id", authMiddleware.Required(), documentHandler.Rate)
	view.Post("/documents/:id/tags", authMiddleware.Required(), documentHandler.AddTag)
	view.Delete("/documents/:id/tags", authMiddleware.Required(), documentHandler.RemoveTag)

	api.Get("/api/favorites", authMiddleware.Required(), documentHandler.FavoritesJSON)

	// Forum (all routes require authentication)
	forum := api.Group("/forum", authMiddleware.Required())
	forum.Get("/", forumHandler.Index)
	forum.Post("/groups", forumHandler.CreateGroup)
	forum.Get("/groups/:id", forumHandler.ViewGroup)
	forum.Post("/groups/:id/join", forumHandler.JoinGroup)
	forum.Post("/groups/:id/request", forumHandler.RequestJoin)
	forum.Post("/groups/:id/leave", forumHandler.LeaveGroup)
	forum.Get("/groups/:id/requests", forumHandler.JoinRequests)
	forum.Post("/groups/:id/posts", forumHandler.CreatePost)
	forum.Post("/requests/:id/accept", forumHandler.AcceptRequest)
	forum.Post("/requests/:id/reject", forumHandler.RejectRequest)
	forum.Delete("/posts/:id", forumHandler.DeletePost)
	forum.Get("/posts/:id/file", forumHandler.PostAttachment)
	forum.Post("/posts/:id/replies", forumHandler.Reply)

	// Notifications
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Put("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Put("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)

	// Contact form
	api.Post("/form/form", authMiddleware.Optional(), contactHandler.Submit)

	// Admin
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Get("/questions", utils.MakeHTTPHandleFunc(admin_handlers.ListQuestions, adminDeps))
	admin.Put("/questions/:id", utils.MakeHTTPHandleFunc(admin_handlers.UpdateQuestion, adminDeps))
	admin.Post("/questions/:id/respond", utils.MakeHTTPHandleFunc(admin_handlers.RespondQuestion, adminDeps))
	admin.Post("/questions/:id/close", utils.MakeHTTPHandleFunc(admin_handlers.CloseQuestion, adminDeps))
	admin.Get("/users", utils.MakeHTTPHandleFunc(admin_handlers.ListUsers, adminDeps))
	admin.Delete("/users/:id", utils.MakeHTTPHandleFunc(admin_handlers.DeleteUser, adminDeps))
}
