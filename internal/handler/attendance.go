package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sktutorial/internal/apperr"
	"sktutorial/internal/attendance"
	"sktutorial/internal/auth"
)

// MarkRoster returns the active-student sheet for marking a day.
func (h *Handler) MarkRoster(c *gin.Context) {
	students, err := h.students.Roster(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

type markRequest struct {
	Date       string            `json:"date"`
	Attendance map[string]string `json:"attendance"`
}

// MarkAttendance applies one day's attendance batch.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Invalid("Date and attendance data are required"))
		return
	}
	claims := auth.ClaimsFrom(c)

	result, err := h.att.Mark(c.Request.Context(), req.Date, req.Attendance, claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Attendance marked successfully",
		"date":    result.Date,
		"month":   result.Month,
		"year":    result.Year,
		"result":  result,
	})
}

// AvailableMonths lists the report months carrying data for a year.
func (h *Handler) AvailableMonths(c *gin.Context) {
	year := 0
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			h.respondError(c, apperr.Invalid("Invalid year parameter"))
			return
		}
		year = parsed
	}

	months, err := h.att.Available(c.Request.Context(), year)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, months)
}

// GradeReport returns the per-grade month overview with insights.
func (h *Handler) GradeReport(c *gin.Context) {
	year := 0
	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			h.respondError(c, apperr.Invalid("Invalid year parameter"))
			return
		}
		year = parsed
	}

	report, err := h.att.BuildGradeReport(c.Request.Context(), c.Query("month"), year)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// MonthlyReport returns raw per-student day records for a month.
func (h *Handler) MonthlyReport(c *gin.Context) {
	var q attendance.ReportQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		h.respondError(c, apperr.Invalid("Year and month are required parameters"))
		return
	}

	report, err := h.att.BuildMonthlyReport(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
