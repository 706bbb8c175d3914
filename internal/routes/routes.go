package routes

import (
	"realtime-chat-api/internal/chat"
	"realtime-chat-api/internal/contacts"
	"realtime-chat-api/internal/database"
	"realtime-chat-api/internal/handlers"
	"realtime-chat-api/internal/middleware"
	"realtime-chat-api/internal/realtime"
	"realtime-chat-api/internal/store"

	"github.com/gin-gonic/gin"
)

func SetupRoutes() *gin.Engine {
	// Wire the realtime core: one store, one presence registry, one room hub
	// and one friends cache per process.
	st := store.NewSQLStore(database.GetDB())
	registry := realtime.GetRegistry()
	rooms := realtime.GetRoomHub()
	friendsCache := contacts.NewFriendsCache(st, contacts.DefaultIdleWindow)
	fanout := realtime.NewFanout(registry, friendsCache)
	contactSvc := contacts.NewService(st, friendsCache, registry)
	relay := chat.NewRelay(st, rooms)

	deps := handlers.RealtimeDeps{
		Registry: registry,
		Rooms:    rooms,
		Fanout:   fanout,
		Cache:    friendsCache,
		Contacts: contactSvc,
		Relay:    relay,
		Store:    st,
	}

	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204) // This depends on the implementation of the frontend
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Realtime Chat API is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/signup", handlers.Signup)
		api.POST("/login", handlers.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		protectedRoutes.GET("/me", handlers.GetMe)
		protectedRoutes.GET("/contacts", handlers.GetContacts(contactSvc))
		protectedRoutes.DELETE("/contacts/:friendId", handlers.RemoveContact(contactSvc))
		protectedRoutes.GET("/users/search", handlers.SearchUsers)
		protectedRoutes.GET("/messages/:conversationId", handlers.GetMessages)
		// Realtime channel
		protectedRoutes.GET("/ws", handlers.WebSocketHandler(deps))
	}

	return ginRouter
}
