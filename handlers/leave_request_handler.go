package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"qr-attendance-backend/models"
	"qr-attendance-backend/pkg/paseto"
	util "qr-attendance-backend/pkg/utils"
	"qr-attendance-backend/repository"
)

type LeaveRequestHandler struct {
	leaveRepo repository.LeaveRequestRepository
}

func NewLeaveRequestHandler(leaveRepo repository.LeaveRequestRepository) *LeaveRequestHandler {
	return &LeaveRequestHandler{leaveRepo: leaveRepo}
}

// CreateLeaveRequest godoc
// @Summary Submit a leave request for a date (student only)
// @Tags Leave
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LeaveRequestCreatePayload true "Leave request data"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /leave-requests [post]
func (h *LeaveRequestHandler) CreateLeaveRequest(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(*paseto.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or session data corrupted"})
	}

	var payload models.LeaveRequestCreatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.leaveRepo.FindByStudentAndDate(ctx, claims.UserID, payload.Date)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check existing leave requests"})
	}
	if existing != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A leave request for that date already exists"})
	}

	request := &models.LeaveRequest{
		StudentID: claims.UserID,
		Date:      payload.Date,
		Reason:    payload.Reason,
	}

	id, err := h.leaveRepo.Create(ctx, request)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit leave request"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Leave request submitted successfully",
		"request_id": id.Hex(),
	})
}

// GetMyLeaveRequests godoc
// @Summary Own leave request history
// @Tags Leave
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.LeaveRequest
// @Router /leave-requests/my [get]
func (h *LeaveRequestHandler) GetMyLeaveRequests(c *fiber.Ctx) error {
	claims, ok := c.Locals("user").(*paseto.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or session data corrupted"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	requests, err := h.leaveRepo.FindByStudent(ctx, claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leave requests"})
	}

	return c.Status(fiber.StatusOK).JSON(requests)
}

// GetAllLeaveRequests godoc
// @Summary All leave requests with student details (teacher and admin)
// @Tags Leave
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.LeaveRequestWithStudent
// @Router /leave-requests [get]
func (h *LeaveRequestHandler) GetAllLeaveRequests(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	requests, err := h.leaveRepo.FindAllWithStudents(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leave requests"})
	}

	return c.Status(fiber.StatusOK).JSON(requests)
}

// UpdateLeaveRequestStatus godoc
// @Summary Approve or reject a leave request (teacher and admin)
// @Tags Leave
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Leave request ID"
// @Param status body models.LeaveRequestUpdatePayload true "New status"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /leave-requests/{id} [patch]
func (h *LeaveRequestHandler) UpdateLeaveRequestStatus(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid leave request ID format"})
	}

	var payload models.LeaveRequestUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	request, err := h.leaveRepo.FindByID(ctx, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch leave request"})
	}
	if request == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Leave request not found"})
	}
	if request.Status != models.LeavePending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Leave request has already been resolved"})
	}

	if err := h.leaveRepo.UpdateStatus(ctx, id, payload.Status); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Leave request not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update leave request"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Leave request " + payload.Status})
}
