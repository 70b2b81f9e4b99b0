package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"qr-attendance-backend/models"
	"qr-attendance-backend/pkg/paseto"
	"qr-attendance-backend/pkg/qrtoken"
	util "qr-attendance-backend/pkg/utils"
	"qr-attendance-backend/realtime"
	"qr-attendance-backend/repository"
)

type AttendanceHandler struct {
	repo            repository.AttendanceRepository
	userRepo        repository.UserRepository
	hub             *realtime.Hub
	qrExpiryMinutes int
}

func NewAttendanceHandler(repo repository.AttendanceRepository, userRepo repository.UserRepository, hub *realtime.Hub, qrExpiryMinutes int) *AttendanceHandler {
	return &AttendanceHandler{
		repo:            repo,
		userRepo:        userRepo,
		hub:             hub,
		qrExpiryMinutes: qrExpiryMinutes,
	}
}

// GenerateQR godoc
// @Summary Generate attendance QR code
// @Description Mints a time-boxed credential for a subject and renders it as a QR image (teacher only)
// @Tags QR
// @Produce json
// @Security BearerAuth
// @Param subject query string true "Subject the code is valid for"
// @Success 200 {object} models.QRCodeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /qr/generate [get]
func (h *AttendanceHandler) GenerateQR(c *fiber.Ctx) error {
	subject := c.Query("subject")
	if subject == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "subject query parameter is required"})
	}

	cred := qrtoken.Mint(subject, time.Now(), h.qrExpiryMinutes)

	image, err := qrtoken.EncodePNG(cred)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate QR image"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"qrCode":     image,
		"payload":    cred,
		"expires_at": cred.ExpiresAt(),
	})
}

// MarkAttendance godoc
// @Summary Mark attendance from a scanned QR credential
// @Description Validates the scanned credential and records presence once per subject per day (student only)
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param credential body qrtoken.Credential true "Decoded QR payload"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /attendance/mark [post]
func (h *AttendanceHandler) MarkAttendance(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(*paseto.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or session data corrupted"})
	}

	cred, err := qrtoken.Decode(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	now := time.Now()
	if cred.Expired(now) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "QR code expired"})
	}

	today := now.Format(models.DateLayout)

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.repo.FindByStudentSubjectDate(ctx, claims.UserID, cred.Subject, today)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}
	if existing != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Attendance already marked for today"})
	}

	record := &models.Attendance{
		StudentID: claims.UserID,
		Subject:   cred.Subject,
		Date:      today,
	}

	err = h.repo.InsertPresent(ctx, record)
	if errors.Is(err, repository.ErrAlreadyMarked) {
		// Lost a race with a concurrent mark; the unique index kept the
		// ledger consistent, so report the same idempotent success.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Attendance already marked for today"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
	}

	h.publishLiveEvent(claims, cred.Subject, now)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Attendance marked successfully"})
}

// publishLiveEvent notifies dashboards about a committed record. It runs
// detached from the request: a broadcast failure never rolls back or fails
// the mark itself.
func (h *AttendanceHandler) publishLiveEvent(claims *paseto.Claims, subject string, at time.Time) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("attendance: live event publish panicked: %v", r)
			}
		}()

		name := claims.Name
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if user, err := h.userRepo.FindUserByID(ctx, claims.UserID); err == nil && user != nil {
			name = user.Name
		}

		event := models.LiveEvent{
			StudentName: name,
			Subject:     subject,
			Status:      models.StatusPresent,
			Time:        at.Format("15:04:05"),
		}
		// Single global fan-out. Room members are registered clients too, so
		// a second room-scoped send would hand them a duplicate frame.
		h.hub.Broadcast("attendanceUpdate", event)
	}()
}

// GetMyAttendance godoc
// @Summary Own attendance history
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Attendance
// @Router /attendance/my [get]
func (h *AttendanceHandler) GetMyAttendance(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(*paseto.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or session data corrupted"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	records, err := h.repo.FindByStudent(ctx, claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch attendance history"})
	}

	return c.Status(fiber.StatusOK).JSON(records)
}

// GetMySummary godoc
// @Summary Own per-subject attendance percentages
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SubjectSummary
// @Router /attendance/my/summary [get]
func (h *AttendanceHandler) GetMySummary(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(*paseto.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or session data corrupted"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	records, err := h.repo.FindByStudent(ctx, claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch attendance history"})
	}

	return c.Status(fiber.StatusOK).JSON(BuildSubjectSummary(records))
}

// GetSubjectReport godoc
// @Summary Attendance records for a subject with student details
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param subject path string true "Subject"
// @Success 200 {array} models.AttendanceWithStudent
// @Router /attendance/report/{subject} [get]
func (h *AttendanceHandler) GetSubjectReport(c *fiber.Ctx) error {
	subject := c.Params("subject")

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	records, err := h.repo.FindBySubject(ctx, subject)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch subject report"})
	}

	return c.Status(fiber.StatusOK).JSON(records)
}

// GetLiveCounts godoc
// @Summary Today's present counts per subject
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SubjectCount
// @Router /attendance/live [get]
func (h *AttendanceHandler) GetLiveCounts(c *fiber.Ctx) error {
	today := util.Today()

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	counts, err := h.repo.LiveSubjectCounts(ctx, today)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch live counts"})
	}

	return c.Status(fiber.StatusOK).JSON(counts)
}

// BuildSubjectSummary folds a student's records into per-subject present
// percentages, rounded to the nearest integer.
func BuildSubjectSummary(records []models.Attendance) []models.SubjectSummary {
	type tally struct {
		total   int
		present int
	}
	perSubject := make(map[string]*tally)
	order := []string{}

	for _, r := range records {
		t, ok := perSubject[r.Subject]
		if !ok {
			t = &tally{}
			perSubject[r.Subject] = t
			order = append(order, r.Subject)
		}
		t.total++
		if r.Status == models.StatusPresent {
			t.present++
		}
	}

	summary := make([]models.SubjectSummary, 0, len(order))
	for _, subject := range order {
		t := perSubject[subject]
		summary = append(summary, models.SubjectSummary{
			Subject:    subject,
			Percentage: roundPercent(int64(t.present), int64(t.total)),
		})
	}
	return summary
}
