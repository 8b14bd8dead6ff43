package handler

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sktutorial/internal/apperr"
	"sktutorial/internal/idcard"
)

// ListCards returns ID-card profiles with computed roll numbers and ages.
func (h *Handler) ListCards(c *gin.Context) {
	profiles, err := h.cards.List(c.Request.Context(), c.Query("search"), c.Query("class"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(profiles),
		"data":    profiles,
	})
}

// CreateCard stores a new ID-card profile. The card form submits
// multipart/form-data with the photo as a file; JSON with a base64 photo is
// accepted too.
func (h *Handler) CreateCard(c *gin.Context) {
	in, _, err := cardInput(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	created, err := h.cards.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Student created successfully",
		"data":    created,
	})
}

// UpdateCard rewrites an ID-card profile.
func (h *Handler) UpdateCard(c *gin.Context) {
	in, id, err := cardInput(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.cards.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Student updated successfully",
		"data":    updated,
	})
}

// DeleteCard hard-removes an ID-card profile.
func (h *Handler) DeleteCard(c *gin.Context) {
	if err := h.cards.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Student deleted successfully",
	})
}

type cardJSONRequest struct {
	StudentID string `json:"studentId"`
	idcard.Input
}

// cardInput binds either content type into the service input, returning the
// studentId alongside (only meaningful on update).
func cardInput(c *gin.Context) (idcard.Input, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return cardFormInput(c)
	}
	var req cardJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return idcard.Input{}, "", apperr.Invalid("Invalid request body")
	}
	return req.Input, req.StudentID, nil
}

func cardFormInput(c *gin.Context) (idcard.Input, string, error) {
	in := idcard.Input{
		Class:         c.PostForm("class"),
		StudentName:   c.PostForm("studentName"),
		Birthdate:     c.PostForm("birthdate"),
		AdmissionDate: c.PostForm("admissionDate"),
		SchoolName:    c.PostForm("schoolName"),
		ParentName:    c.PostForm("parentName"),
		ParentEmail:   c.PostForm("parentEmail"),
		ContactNumber: c.PostForm("contactNumber"),
		Address:       c.PostForm("address"),
	}

	fh, err := c.FormFile("photo")
	switch {
	case err == http.ErrMissingFile:
		// a base64 photo field also works, same as the JSON path
		in.Photo = c.PostForm("photo")
	case err != nil:
		return idcard.Input{}, "", apperr.Invalid("Invalid request body")
	default:
		f, err := fh.Open()
		if err != nil {
			return idcard.Input{}, "", apperr.Invalid("Unable to read photo upload")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return idcard.Input{}, "", apperr.Invalid("Unable to read photo upload")
		}
		mime := fh.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			mime = http.DetectContentType(data)
		}
		in.Photo = "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	}

	return in, c.PostForm("studentId"), nil
}
