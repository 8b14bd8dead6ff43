package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sktutorial/internal/apperr"
	"sktutorial/internal/attendance"
	"sktutorial/internal/auth"
	"sktutorial/internal/fees"
	"sktutorial/internal/idcard"
	"sktutorial/internal/student"
)

// Handler carries the wired services behind the HTTP surface.
type Handler struct {
	auth     *auth.Service
	students *student.Service
	att      *attendance.Service
	fees     *fees.Service
	cards    *idcard.Service
	prod     bool
}

// New creates the handler set.
func New(authSvc *auth.Service, students *student.Service, att *attendance.Service, feeSvc *fees.Service, cards *idcard.Service, prod bool) *Handler {
	return &Handler{auth: authSvc, students: students, att: att, fees: feeSvc, cards: cards, prod: prod}
}

// Register mounts every route under /api.
//
// Marking attendance and directory upkeep are day-to-day teacher work; the
// money endpoints and aggregate reports stay admin-only. The scheduled
// entry-generation route authenticates with the cron secret, not a session.
func (h *Handler) Register(r *gin.Engine, signingKey, issuer, cronSecret string) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method not allowed"})
	})

	api := r.Group("/api")
	api.POST("/auth/login", h.Login)
	api.PUT("/auth/schedule-monthly-entry", auth.CronAuth(cronSecret), h.ScheduleMonthlyEntry)

	authed := api.Group("", auth.UserAuth(signingKey, issuer))
	authed.GET("/auth/me", h.Me)

	staff := authed.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleTeacher))
	staff.GET("/attendance/mark", h.MarkRoster)
	staff.POST("/attendance/mark", h.MarkAttendance)
	staff.GET("/students", h.ListStudents)
	staff.POST("/students", h.CreateStudent)
	staff.PUT("/students", h.UpdateStudent)
	staff.DELETE("/students", h.DeleteStudent)
	staff.GET("/students/idgenstd", h.ListCards)
	staff.POST("/students/idgenstd", h.CreateCard)
	staff.PUT("/students/idgenstd", h.UpdateCard)
	staff.DELETE("/students/delete_Id/:id", h.DeleteCard)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/attendance/available-months", h.AvailableMonths)
	admin.GET("/attendance/grade-report", h.GradeReport)
	admin.POST("/attendance/reports", h.MonthlyReport)
	admin.GET("/auth/monthly-fees", h.ListFees)
	admin.POST("/auth/monthly-fees", h.RecordPayment)
	admin.PUT("/auth/monthly-fees", h.UpdateFees)
	admin.DELETE("/auth/monthly-fees", h.DeletePayment)
}

// respondError renders a coded error. The wrapped cause only leaks outside
// production.
func (h *Handler) respondError(c *gin.Context, err error) {
	body := gin.H{"message": apperr.Message(err)}
	if !h.prod {
		if d := apperr.Detail(err); d != "" {
			body["error"] = d
		}
	}
	c.JSON(apperr.Status(err), body)
}
