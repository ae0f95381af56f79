package main

import (
	"log"
	"os"

	"presence-hub-api/internal/database"
	"presence-hub-api/internal/routes"
)

func main() {
	// Init database
	database.InitDB()

	// Setup the routes (REST API and the websocket hub)
	ginRoutes := routes.SetupRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8008"
	}

	log.Printf("Presence hub starting on port %s", port)
	log.Println("Endpoints:")
	log.Println("  POST   /api/login")
	log.Println("  GET    /api/users")
	log.Println("  POST   /api/friends")
	log.Println("  GET    /ws")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
