package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"qr-attendance-backend/config/middleware"
	_ "qr-attendance-backend/docs"
	"qr-attendance-backend/handlers"
	"qr-attendance-backend/models"
	"qr-attendance-backend/pkg/paseto"
	"qr-attendance-backend/realtime"
	"qr-attendance-backend/repository"
)

// SetupRoutes wires repositories, handlers, and the route table. Role checks
// are declared per group so the capability map reads off this file directly.
func SetupRoutes(app *fiber.App, maker *paseto.Maker, hub *realtime.Hub, qrExpiryMinutes int) {
	userRepo := repository.NewUserRepository()
	attendanceRepo := repository.NewAttendanceRepository()
	subjectRepo := repository.NewSubjectRepository()
	scheduleRepo := repository.NewClassScheduleRepository()
	leaveRepo := repository.NewLeaveRequestRepository()

	authHandler := handlers.NewAuthHandler(userRepo, maker)
	userHandler := handlers.NewUserHandler(userRepo)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceRepo, userRepo, hub, qrExpiryMinutes)
	analyticsHandler := handlers.NewAnalyticsHandler(attendanceRepo, userRepo)
	subjectHandler := handlers.NewSubjectHandler(subjectRepo)
	scheduleHandler := handlers.NewClassScheduleHandler(scheduleRepo)
	leaveHandler := handlers.NewLeaveRequestHandler(leaveRepo)
	wsHandler := handlers.NewWSHandler(hub)

	auth := middleware.AuthMiddleware(maker)

	// Health check & Docs
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":      "QR Attendance API",
			"status":       "running",
			"live_clients": hub.ClientCount(),
			"docs":         "/docs/index.html",
		})
	})
	app.Get("/docs/*", swagger.HandlerDefault)

	// Live broadcast channel
	app.Use("/ws", wsHandler.Upgrade)
	app.Get("/ws", wsHandler.Serve())

	api := app.Group("/api/v1")

	// Authentication routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/logout", auth, authHandler.Logout)

	// User routes
	userGroup := api.Group("/users", auth)
	userGroup.Post("/change-password", authHandler.ChangePassword)

	// QR generation is a teacher capability
	qrGroup := api.Group("/qr", auth, middleware.RequireRole(models.RoleTeacher))
	qrGroup.Get("/generate", attendanceHandler.GenerateQR)

	// Attendance routes
	attendanceGroup := api.Group("/attendance", auth)
	studentAttendance := attendanceGroup.Group("/", middleware.RequireRole(models.RoleStudent))
	studentAttendance.Post("/mark", attendanceHandler.MarkAttendance)
	studentAttendance.Get("/my", attendanceHandler.GetMyAttendance)
	studentAttendance.Get("/my/summary", attendanceHandler.GetMySummary)

	staffAttendance := attendanceGroup.Group("/", middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
	staffAttendance.Get("/live", attendanceHandler.GetLiveCounts)
	staffAttendance.Get("/report/:subject", attendanceHandler.GetSubjectReport)

	// Analytics and reporting for staff
	analyticsGroup := api.Group("/analytics", auth, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
	analyticsGroup.Get("/kpi", analyticsHandler.GetKPI)
	analyticsGroup.Get("/daily", analyticsHandler.GetDaily)
	analyticsGroup.Get("/subject-wise", analyticsHandler.GetSubjectWise)
	analyticsGroup.Get("/heatmap", analyticsHandler.GetHeatmap)
	analyticsGroup.Get("/export", analyticsHandler.ExportCSV)

	reportGroup := api.Group("/report", auth, middleware.RequireRole(models.RoleTeacher, models.RoleAdmin))
	reportGroup.Get("/", analyticsHandler.GetReport)
	reportGroup.Get("/export", analyticsHandler.ExportCSV)

	// Subjects are readable by anyone logged in, managed by admins
	api.Get("/subjects", auth, subjectHandler.GetAllSubjects)

	// Class schedules
	scheduleGroup := api.Group("/schedules", auth)
	scheduleGroup.Get("/", scheduleHandler.GetAllClassSchedules)
	scheduleGroup.Get("/holidays", scheduleHandler.GetHolidays)
	scheduleGroup.Get("/:id", scheduleHandler.GetClassScheduleByID)

	// Leave requests
	leaveGroup := api.Group("/leave-requests", auth)
	leaveGroup.Post("/", middleware.RequireRole(models.RoleStudent), leaveHandler.CreateLeaveRequest)
	leaveGroup.Get("/my", middleware.RequireRole(models.RoleStudent), leaveHandler.GetMyLeaveRequests)
	leaveGroup.Get("/", middleware.RequireRole(models.RoleTeacher, models.RoleAdmin), leaveHandler.GetAllLeaveRequests)
	leaveGroup.Patch("/:id", middleware.RequireRole(models.RoleTeacher, models.RoleAdmin), leaveHandler.UpdateLeaveRequestStatus)

	// Admin routes
	adminGroup := api.Group("/admin", auth, middleware.RequireRole(models.RoleAdmin))
	adminGroup.Get("/kpi", analyticsHandler.GetAdminKPI)
	adminGroup.Get("/attendance", analyticsHandler.GetReport)
	adminGroup.Get("/live", attendanceHandler.GetLiveCounts)
	adminGroup.Get("/users", userHandler.GetAllUsers)
	adminGroup.Get("/users/:id", userHandler.GetUserByID)
	adminGroup.Delete("/users/:id", userHandler.DeleteUser)
	adminGroup.Post("/subjects", subjectHandler.CreateSubject)
	adminGroup.Put("/subjects/:id", subjectHandler.UpdateSubject)
	adminGroup.Delete("/subjects/:id", subjectHandler.DeleteSubject)
	adminGroup.Post("/schedules", scheduleHandler.CreateClassSchedule)
	adminGroup.Put("/schedules/:id", scheduleHandler.UpdateClassSchedule)
	adminGroup.Delete("/schedules/:id", scheduleHandler.DeleteClassSchedule)
}
