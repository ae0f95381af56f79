package routes

import (
	"presence-hub-api/internal/database"
	"presence-hub-api/internal/directory"
	"presence-hub-api/internal/dispatch"
	"presence-hub-api/internal/handlers"
	"presence-hub-api/internal/middleware"
	"presence-hub-api/internal/realtime"
	"presence-hub-api/internal/rooms"
	"presence-hub-api/internal/status"

	"github.com/gin-gonic/gin"
)

func SetupRoutes() *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Presence hub is running",
		})
	})

	// Hub wiring: one directory, room table, and hub per process.
	statusService := status.NewGormService(database.GetDB())
	handlers.FriendInvalidator = statusService
	hub := realtime.NewHub()
	dispatcher := dispatch.New(directory.New(), rooms.NewTable(), hub, statusService)

	// WebSocket endpoint. Identity binds via the identify event, so the
	// socket itself is public.
	ginRouter.GET("/ws", handlers.WebSocketHandler(hub, dispatcher))

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", handlers.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		protectedRoutes.GET("/users", handlers.GetAllUsers)
		protectedRoutes.POST("/friends", handlers.CreateFriendship)
	}

	return ginRouter
}
