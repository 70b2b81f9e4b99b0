package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/teambition/rrule-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"qr-attendance-backend/models"
	util "qr-attendance-backend/pkg/utils"
	"qr-attendance-backend/repository"
)

type ClassScheduleHandler struct {
	scheduleRepo repository.ClassScheduleRepository
}

func NewClassScheduleHandler(scheduleRepo repository.ClassScheduleRepository) *ClassScheduleHandler {
	return &ClassScheduleHandler{scheduleRepo: scheduleRepo}
}

// CreateClassSchedule godoc
// @Summary Create a class schedule rule (admin only)
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param schedule body models.ClassScheduleCreatePayload true "Schedule data"
// @Success 201 {object} models.ClassSchedule
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/schedules [post]
func (h *ClassScheduleHandler) CreateClassSchedule(c *fiber.Ctx) error {
	var payload models.ClassScheduleCreatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	if payload.RecurrenceRule != "" {
		if _, err := rrule.StrToROption(payload.RecurrenceRule); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid recurrence rule", "details": err.Error()})
		}
	}

	schedule := &models.ClassSchedule{
		Subject:        payload.Subject,
		Date:           payload.Date,
		StartTime:      payload.StartTime,
		EndTime:        payload.EndTime,
		Room:           payload.Room,
		RecurrenceRule: payload.RecurrenceRule,
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	created, err := h.scheduleRepo.Create(ctx, schedule)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create class schedule"})
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetClassScheduleByID godoc
// @Summary Fetch one schedule rule
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Success 200 {object} models.ClassSchedule
// @Failure 404 {object} models.ErrorResponse
// @Router /schedules/{id} [get]
func (h *ClassScheduleHandler) GetClassScheduleByID(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid schedule ID format"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	schedule, err := h.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch class schedule"})
	}
	if schedule == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class schedule not found"})
	}

	return c.Status(fiber.StatusOK).JSON(schedule)
}

// GetAllClassSchedules godoc
// @Summary Expand schedule rules into dated occurrences
// @Description Expands recurrence rules over [start_date, end_date], skipping national holidays
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param start_date query string true "Inclusive window start (YYYY-MM-DD)"
// @Param end_date query string true "Inclusive window end (YYYY-MM-DD)"
// @Param subject query string false "Subject filter"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /schedules [get]
func (h *ClassScheduleHandler) GetAllClassSchedules(c *fiber.Ctx) error {
	startDate, err := time.Parse(models.DateLayout, c.Query("start_date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date format"})
	}
	endDate, err := time.Parse(models.DateLayout, c.Query("end_date"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date format"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	scheduleRules, err := h.scheduleRepo.FindAll(ctx, c.Query("subject"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch schedule rules"})
	}

	holidayMap, err := util.GetHolidayMap(startDate.Format("2006"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch holidays"})
	}
	if startDate.Year() != endDate.Year() {
		nextYearHolidays, _ := util.GetHolidayMap(endDate.Format("2006"))
		for date, val := range nextYearHolidays {
			holidayMap[date] = val
		}
	}

	occurrences := ExpandSchedules(scheduleRules, startDate, endDate, holidayMap)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": occurrences})
}

// ExpandSchedules turns stored rules into concrete class meetings inside the
// window. Occurrences that land on a holiday are skipped.
func ExpandSchedules(rules []models.ClassSchedule, startDate, endDate time.Time, holidayMap map[string]bool) []models.ClassSchedule {
	occurrences := []models.ClassSchedule{}

	for _, rule := range rules {
		if rule.RecurrenceRule != "" {
			rOption, err := rrule.StrToROption(rule.RecurrenceRule)
			if err != nil {
				continue
			}

			ruleStartDate, err := time.Parse(models.DateLayout, rule.Date)
			if err != nil {
				continue
			}
			rOption.Dtstart = ruleStartDate

			rr, err := rrule.NewRRule(*rOption)
			if err != nil {
				continue
			}

			ruleSet := rrule.Set{}
			ruleSet.RRule(rr)

			for _, instance := range ruleSet.Between(startDate, endDate, true) {
				instanceDate := instance.Format(models.DateLayout)
				if holidayMap[instanceDate] {
					continue
				}
				occurrences = append(occurrences, models.ClassSchedule{
					ID:             rule.ID,
					Subject:        rule.Subject,
					Date:           instanceDate,
					StartTime:      rule.StartTime,
					EndTime:        rule.EndTime,
					Room:           rule.Room,
					RecurrenceRule: rule.RecurrenceRule,
				})
			}
			continue
		}

		ruleDate, err := time.Parse(models.DateLayout, rule.Date)
		if err != nil {
			continue
		}
		if !ruleDate.Before(startDate) && !ruleDate.After(endDate) && !holidayMap[rule.Date] {
			occurrences = append(occurrences, rule)
		}
	}

	return occurrences
}

// GetHolidays godoc
// @Summary National holidays for a year
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param year query string false "Year, defaults to the current one"
// @Success 200 {array} models.Holiday
// @Router /schedules/holidays [get]
func (h *ClassScheduleHandler) GetHolidays(c *fiber.Ctx) error {
	year := c.Query("year")
	if year == "" {
		year = time.Now().Format("2006")
	}

	holidays, err := util.GetExternalHolidays(year)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch holiday data", "details": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(holidays)
}

// UpdateClassSchedule godoc
// @Summary Update a schedule rule (admin only)
// @Tags Schedules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Param schedule body models.ClassScheduleUpdatePayload true "Fields to change"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/schedules/{id} [put]
func (h *ClassScheduleHandler) UpdateClassSchedule(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid schedule ID format"})
	}

	var payload models.ClassScheduleUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body", "details": err.Error()})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs})
	}

	if payload.RecurrenceRule != "" {
		if _, err := rrule.StrToROption(payload.RecurrenceRule); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid recurrence rule", "details": err.Error()})
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	if err := h.scheduleRepo.UpdateByID(ctx, id, &payload); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class schedule not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update class schedule"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Class schedule updated successfully"})
}

// DeleteClassSchedule godoc
// @Summary Delete a schedule rule (admin only)
// @Tags Schedules
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/schedules/{id} [delete]
func (h *ClassScheduleHandler) DeleteClassSchedule(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid schedule ID format"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	if err := h.scheduleRepo.DeleteByID(ctx, id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Class schedule not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete class schedule"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Class schedule deleted successfully"})
}
