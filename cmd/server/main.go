package main

import (
	"log"
	"realtime-chat-api/internal/database"
	"realtime-chat-api/internal/routes"
)

func main() {
	// Init database
	database.InitDB()

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes()

	// Start server
	port := ":8008" // This is customizable based on the environment
	log.Printf("Server starting on port %s", port)
	log.Println("API endpoints:")
	log.Println("  POST   /api/signup")
	log.Println("  POST   /api/login")
	log.Println("  GET    /api/me")
	log.Println("  GET    /api/contacts")
	log.Println("  DELETE /api/contacts/:friendId")
	log.Println("  GET    /api/users/search")
	log.Println("  GET    /api/messages/:conversationId")
	log.Println("  GET    /api/ws")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
