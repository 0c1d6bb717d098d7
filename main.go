package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"careplan-server/internal/config"
	"careplan-server/internal/llm"
	"careplan-server/internal/middleware"
	"careplan-server/internal/routes"
)

func main() {
	// Load environment variables; a missing .env is fine when the
	// environment is set by the host.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	// Initialize configuration; a missing API key is fatal here.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// The generator client is created once and shared across all requests.
	generator := llm.NewAnthropicClient(cfg)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.RequestID())

	// Configure CORS for the allow-listed development origins
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// Set up routes
	routes.SetupRoutes(router, generator)

	// Start server
	serverAddr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	fmt.Printf("Server running on %s\n", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
