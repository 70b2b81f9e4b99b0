package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"qr-attendance-backend/models"
	util "qr-attendance-backend/pkg/utils"
	"qr-attendance-backend/repository"
)

type SubjectHandler struct {
	repo repository.SubjectRepository
}

func NewSubjectHandler(repo repository.SubjectRepository) *SubjectHandler {
	return &SubjectHandler{repo: repo}
}

// CreateSubject godoc
// @Summary Create a subject (admin only)
// @Tags Subjects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subject body models.SubjectCreatePayload true "Subject data"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/subjects [post]
func (h *SubjectHandler) CreateSubject(c *fiber.Ctx) error {
	var payload models.SubjectCreatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	subject := &models.Subject{Name: payload.Name, Code: payload.Code}
	id, err := h.repo.Create(ctx, subject)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create subject"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Subject created successfully",
		"subject_id": id.Hex(),
	})
}

// GetAllSubjects godoc
// @Summary List all subjects
// @Tags Subjects
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Subject
// @Router /subjects [get]
func (h *SubjectHandler) GetAllSubjects(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	subjects, err := h.repo.FindAll(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch subjects"})
	}

	return c.Status(fiber.StatusOK).JSON(subjects)
}

// UpdateSubject godoc
// @Summary Update a subject (admin only)
// @Tags Subjects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Param subject body models.SubjectUpdatePayload true "Fields to change"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/subjects/{id} [put]
func (h *SubjectHandler) UpdateSubject(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid subject ID format"})
	}

	var payload models.SubjectUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	matched, err := h.repo.Update(ctx, id, &payload)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update subject"})
	}
	if matched == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subject not found"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Subject updated successfully"})
}

// DeleteSubject godoc
// @Summary Delete a subject (admin only)
// @Tags Subjects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/subjects/{id} [delete]
func (h *SubjectHandler) DeleteSubject(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid subject ID format"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	deleted, err := h.repo.Delete(ctx, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete subject"})
	}
	if deleted == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subject not found"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Subject deleted successfully"})
}
