package routes

import (
	"github.com/gin-gonic/gin"

	"dubstudio/internal/api/middleware"
	"dubstudio/internal/api/v1/handlers"
	"dubstudio/internal/api/v1/services"
)

// ServiceContainer holds all services needed by handlers
type ServiceContainer struct {
	JobService   services.JobService
	ChatService  services.ChatService
	EventService services.EventService
	// CallbackToken is the shared secret workers send with stage callbacks
	CallbackToken string
}

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, container *ServiceContainer) {
	jobHandler := handlers.NewJobHandler(container.JobService, container.EventService)

	// Worker callbacks authenticate with the shared secret, not a user token
	router.POST("/jobs/:id/callbacks", middleware.CallbackToken(container.CallbackToken), jobHandler.Callback)

	router.POST("/translations", jobHandler.CreateTranslation)
	router.POST("/avatar-videos", jobHandler.CreateAvatarVideo)

	jobs := router.Group("/jobs")
	{
		jobs.GET("", jobHandler.List)
		jobs.GET("/:id", jobHandler.Get)
		jobs.DELETE("/:id", jobHandler.Delete)
		jobs.GET("/:id/events", jobHandler.Events)
	}

	if container.ChatService != nil {
		chatHandler := handlers.NewChatHandler(container.ChatService, container.EventService)
		chat := router.Group("/chat")
		{
			chat.POST("/session", chatHandler.Session)
			chat.GET("/sessions/:id/messages", chatHandler.Messages)
			chat.POST("/sessions/:id/messages", chatHandler.PostMessage)
			chat.GET("/sessions/:id/events", chatHandler.Events)
		}
	}
}
