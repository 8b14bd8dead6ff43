package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sktutorial/internal/apperr"
	"sktutorial/internal/auth"
	"sktutorial/internal/student"
)

// ListStudents returns one page of the directory.
func (h *Handler) ListStudents(c *gin.Context) {
	f := student.ListFilter{
		Search: c.Query("search"),
		Grade:  c.Query("grade"),
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	page, err := h.students.List(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"students":    page.Students,
		"totalCount":  page.TotalCount,
		"currentPage": page.CurrentPage,
		"totalPages":  page.TotalPages,
	})
}

// CreateStudent admits a new student.
func (h *Handler) CreateStudent(c *gin.Context) {
	var in student.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, apperr.Invalid("Invalid request body"))
		return
	}
	claims := auth.ClaimsFrom(c)

	created, err := h.students.Create(c.Request.Context(), in, claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Student created successfully",
		"student": created,
	})
}

type updateStudentRequest struct {
	ID string `json:"id"`
	student.Input
}

// UpdateStudent edits a student's directory fields.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Invalid("Invalid request body"))
		return
	}
	if req.ID == "" {
		req.ID = c.Query("id")
	}
	claims := auth.ClaimsFrom(c)

	updated, err := h.students.Update(c.Request.Context(), req.ID, req.Input, claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Student updated successfully",
		"student": updated,
	})
}

// DeleteStudent soft-removes a student from the directory.
func (h *Handler) DeleteStudent(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		var req struct {
			ID string `json:"id"`
		}
		_ = c.ShouldBindJSON(&req)
		id = req.ID
	}
	claims := auth.ClaimsFrom(c)

	if err := h.students.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}
