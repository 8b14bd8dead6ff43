package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sktutorial/internal/apperr"
	"sktutorial/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Login verifies credentials for a role and returns a session token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Invalid("Email, password, and role are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   result.Token,
		"user": gin.H{
			"id":       result.User.ID,
			"name":     result.User.Name,
			"email":    result.User.Email,
			"role":     result.User.Role,
			"isActive": result.User.IsActive,
		},
	})
}

// Me returns the account behind the presented token.
func (h *Handler) Me(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	usr, err := h.auth.CurrentUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":        usr.ID,
			"name":      usr.Name,
			"email":     usr.Email,
			"role":      usr.Role,
			"isActive":  usr.IsActive,
			"lastLogin": usr.LastLogin,
		},
	})
}
