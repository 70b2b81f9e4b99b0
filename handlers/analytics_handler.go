package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"

	"qr-attendance-backend/models"
	util "qr-attendance-backend/pkg/utils"
	"qr-attendance-backend/repository"
)

type AnalyticsHandler struct {
	repo     repository.AttendanceRepository
	userRepo repository.UserRepository
}

func NewAnalyticsHandler(repo repository.AttendanceRepository, userRepo repository.UserRepository) *AnalyticsHandler {
	return &AnalyticsHandler{repo: repo, userRepo: userRepo}
}

func filterFromQuery(c *fiber.Ctx) models.AttendanceFilter {
	return models.AttendanceFilter{
		Subject: c.Query("subject"),
		From:    c.Query("from"),
		To:      c.Query("to"),
	}
}

// GetKPI godoc
// @Summary Dashboard KPI cards
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.KPIStats
// @Router /analytics/kpi [get]
func (h *AnalyticsHandler) GetKPI(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	totalStudents, err := h.userRepo.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}
	totalTeachers, err := h.userRepo.CountByRole(ctx, models.RoleTeacher)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}
	totalAttendance, err := h.repo.CountAll(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}

	today := util.Today()
	todayPresent, err := h.repo.CountForDay(ctx, today, true)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}

	return c.Status(fiber.StatusOK).JSON(models.KPIStats{
		TotalStudents:   totalStudents,
		TotalTeachers:   totalTeachers,
		TotalAttendance: totalAttendance,
		TodayPresent:    todayPresent,
	})
}

// GetAdminKPI godoc
// @Summary Admin KPI snapshot with today's attendance percentage
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AdminKPIStats
// @Router /admin/kpi [get]
func (h *AnalyticsHandler) GetAdminKPI(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	totalStudents, err := h.userRepo.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}

	today := util.Today()
	todayPresent, err := h.repo.CountForDay(ctx, today, true)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}
	totalToday, err := h.repo.CountForDay(ctx, today, false)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}

	mostAbsent, err := h.repo.MostAbsentSubject(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "KPI fetch failed"})
	}
	if mostAbsent == "" {
		mostAbsent = "N/A"
	}

	return c.Status(fiber.StatusOK).JSON(models.AdminKPIStats{
		TotalStudents:     totalStudents,
		TodayAttendance:   todayPresent,
		TotalToday:        totalToday,
		AttendancePercent: roundPercent(todayPresent, totalToday),
		MostAbsentSubject: mostAbsent,
	})
}

// GetDaily godoc
// @Summary Attendance counts grouped by calendar day
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Param subject query string false "Subject filter"
// @Param from query string false "Inclusive start day (YYYY-MM-DD)"
// @Param to query string false "Inclusive end day (YYYY-MM-DD)"
// @Success 200 {array} models.DailyCount
// @Router /analytics/daily [get]
func (h *AnalyticsHandler) GetDaily(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	counts, err := h.repo.DailyCounts(ctx, filterFromQuery(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Daily analytics failed"})
	}

	return c.Status(fiber.StatusOK).JSON(counts)
}

// GetSubjectWise godoc
// @Summary Attendance counts grouped by subject
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SubjectCount
// @Router /analytics/subject-wise [get]
func (h *AnalyticsHandler) GetSubjectWise(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	counts, err := h.repo.SubjectTotals(ctx, filterFromQuery(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Subject analytics failed"})
	}

	return c.Status(fiber.StatusOK).JSON(counts)
}

// GetHeatmap godoc
// @Summary Day-by-subject attendance heatmap
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.HeatmapRow
// @Router /analytics/heatmap [get]
func (h *AnalyticsHandler) GetHeatmap(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	cells, err := h.repo.HeatmapCells(ctx, filterFromQuery(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Heatmap analytics failed"})
	}

	return c.Status(fiber.StatusOK).JSON(BuildHeatmap(cells))
}

// GetReport godoc
// @Summary Filterable attendance records with student details
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AttendanceWithStudent
// @Router /report [get]
func (h *AnalyticsHandler) GetReport(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	records, err := h.repo.ListWithStudents(ctx, filterFromQuery(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Report fetch failed"})
	}

	return c.Status(fiber.StatusOK).JSON(records)
}

// ExportCSV godoc
// @Summary Export attendance records as CSV
// @Tags Report
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {string} string "CSV file"
// @Router /report/export [get]
func (h *AnalyticsHandler) ExportCSV(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	records, err := h.repo.ListWithStudents(ctx, filterFromQuery(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "CSV export failed"})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Name", "Email", "Subject", "Date", "Status"})
	for _, r := range records {
		_ = w.Write([]string{r.StudentName, r.StudentEmail, r.Subject, r.Date, r.Status})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "CSV export failed"})
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="attendance-report.csv"`)
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

// roundPercent returns round(present/total*100), clamped implicitly to
// [0,100] because present <= total, and 0 when total is 0.
func roundPercent(present, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// BuildHeatmap arranges aggregation cells into one row per day with a cell
// for every subject seen anywhere in the window. Combinations with no records
// default to present=0, total=0, percentage=0.
func BuildHeatmap(cells []models.HeatmapCell) []models.HeatmapRow {
	dates := []string{}
	subjects := []string{}
	seenDate := map[string]bool{}
	seenSubject := map[string]bool{}
	byKey := map[string]models.HeatmapCell{}

	for _, cell := range cells {
		if !seenDate[cell.Date] {
			seenDate[cell.Date] = true
			dates = append(dates, cell.Date)
		}
		if !seenSubject[cell.Subject] {
			seenSubject[cell.Subject] = true
			subjects = append(subjects, cell.Subject)
		}
		byKey[cell.Date+"|"+cell.Subject] = cell
	}

	rows := make([]models.HeatmapRow, 0, len(dates))
	for _, date := range dates {
		row := models.HeatmapRow{Date: date, Subjects: make([]models.HeatmapCellView, 0, len(subjects))}
		for _, subject := range subjects {
			cell, ok := byKey[date+"|"+subject]
			view := models.HeatmapCellView{Subject: subject}
			if ok {
				view.Present = cell.Present
				view.Total = cell.Total
				view.Percentage = roundPercent(cell.Present, cell.Total)
			}
			row.Subjects = append(row.Subjects, view)
		}
		rows = append(rows, row)
	}
	return rows
}
