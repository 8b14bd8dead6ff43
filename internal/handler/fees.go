package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sktutorial/internal/apperr"
	"sktutorial/internal/auth"
	"sktutorial/internal/fees"
)

// ListFees returns every active student with their fee ledger.
func (h *Handler) ListFees(c *gin.Context) {
	students, err := h.fees.ListWithStatus(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

// RecordPayment writes one month's payment.
func (h *Handler) RecordPayment(c *gin.Context) {
	var in fees.RecordPaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, apperr.Invalid("Student ID, month, payment mode, and amount are required"))
		return
	}
	claims := auth.ClaimsFrom(c)

	entry, err := h.fees.RecordPayment(c.Request.Context(), in, claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Payment recorded successfully",
		"feeEntry": entry,
	})
}

type updateFeesRequest struct {
	StudentID        string       `json:"studentId"`
	MonthlyFeeStatus []fees.Entry `json:"monthlyFeeStatus"`
}

// UpdateFees replaces a student's whole ledger with the submitted state.
func (h *Handler) UpdateFees(c *gin.Context) {
	var req updateFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Invalid("Student ID and monthly fee status are required"))
		return
	}
	claims := auth.ClaimsFrom(c)

	updated, err := h.fees.UpdateStatus(c.Request.Context(), req.StudentID, req.MonthlyFeeStatus, claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Payment updated successfully",
		"student": updated,
	})
}

type deletePaymentRequest struct {
	StudentID string `json:"studentId"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

// DeletePayment removes one month's entry from a ledger.
func (h *Handler) DeletePayment(c *gin.Context) {
	var req deletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Invalid("Student ID and month are required"))
		return
	}

	if err := h.fees.DeletePayment(c.Request.Context(), req.StudentID, req.Year, req.Month); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment record deleted successfully"})
}

// ScheduleMonthlyEntry is the cron-triggered due-entry generation run.
func (h *Handler) ScheduleMonthlyEntry(c *gin.Context) {
	result, err := h.fees.GenerateDueEntries(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":             "Monthly fee entries generated",
		"processedMonth":      result.ProcessedMonth,
		"studentsUpdated":     result.StudentsUpdated,
		"totalActiveStudents": result.TotalActiveStudents,
	})
}
