package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"qr-attendance-backend/config"
	_ "qr-attendance-backend/docs"
	"qr-attendance-backend/pkg/paseto"
	"qr-attendance-backend/realtime"
	"qr-attendance-backend/repository"
	"qr-attendance-backend/router"
	"qr-attendance-backend/seeder"
	_ "time/tzdata"
)

// @title QR Attendance API
// @version 1.0
// @description API for QR code based classroom attendance with live dashboards, analytics, schedules, and leave requests
//
// @contact.name API Support
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:5000
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the PASETO token.
//
// @tag.name Auth
// @tag.description Authentication endpoints
//
// @tag.name QR
// @tag.description QR code generation endpoints
//
// @tag.name Attendance
// @tag.description Attendance marking and history endpoints
//
// @tag.name Analytics
// @tag.description Dashboard analytics endpoints
//
// @tag.name Report
// @tag.description Attendance reporting and export endpoints
//
// @tag.name Subjects
// @tag.description Subject catalog endpoints
//
// @tag.name Schedules
// @tag.description Class schedule endpoints
//
// @tag.name Leave
// @tag.description Leave request endpoints
//
// @tag.name Users
// @tag.description User management endpoints
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.LoadConfig()

	config.MongoConnect()
	config.InitDatabase()
	defer config.DisconnectDB()

	if os.Getenv("RUN_SEEDER") == "true" {
		seeder.SeedUsers(repository.NewUserRepository())
		seeder.SeedSubjects(repository.NewSubjectRepository())
	}

	maker, err := paseto.NewMaker(cfg.PASETO_SECRET)
	if err != nil {
		log.Fatalf("failed to initialize token maker: %v", err)
	}

	hub := realtime.NewHub()

	app := fiber.New()

	config.SetupCORS(app)
	app.Use(logger.New())
	app.Use(recover.New())

	router.SetupRoutes(app, maker, hub, cfg.QRExpiryMinutes)

	log.Printf("Server running on port %s", cfg.Port)
	log.Printf("API Documentation: http://localhost:%s/docs/index.html", cfg.Port)
	log.Printf("Live channel: ws://localhost:%s/ws", cfg.Port)
	log.Printf("CORS enabled for origins: %v", config.GetAllowedOrigins())
	log.Fatal(app.Listen(":" + cfg.Port))
}
