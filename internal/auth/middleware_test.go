package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func protectedRouter(signingKey, issuer string, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("", UserAuth(signingKey, issuer))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		claims := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	return r
}

func doGet(r *gin.Engine, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserAuth(t *testing.T) {
	token, _, err := Issue("u1", "a@b.test", RoleTeacher, "Anita", "sk-tutorial", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	r := protectedRouter("secret", "sk-tutorial")

	tests := []struct {
		name  string
		authz string
		want  int
	}{
		{name: "no header", want: http.StatusUnauthorized},
		{name: "not bearer", authz: "Basic abc", want: http.StatusUnauthorized},
		{name: "bad token", authz: "Bearer garbage", want: http.StatusUnauthorized},
		{name: "valid", authz: "Bearer " + token, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doGet(r, tt.authz); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	teacherToken, _, err := Issue("u1", "a@b.test", RoleTeacher, "Anita", "sk-tutorial", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	adminToken, _, err := Issue("u2", "b@b.test", RoleAdmin, "Root", "sk-tutorial", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	adminOnly := protectedRouter("secret", "sk-tutorial", RoleAdmin)
	if w := doGet(adminOnly, "Bearer "+teacherToken); w.Code != http.StatusForbidden {
		t.Errorf("teacher on admin route: status = %d, want 403", w.Code)
	}
	if w := doGet(adminOnly, "Bearer "+adminToken); w.Code != http.StatusOK {
		t.Errorf("admin on admin route: status = %d, want 200", w.Code)
	}

	staff := protectedRouter("secret", "sk-tutorial", RoleAdmin, RoleTeacher)
	if w := doGet(staff, "Bearer "+teacherToken); w.Code != http.StatusOK {
		t.Errorf("teacher on staff route: status = %d, want 200", w.Code)
	}
}

func TestCronAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/cron", CronAuth("cron-secret"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(authz string) int {
		req := httptest.NewRequest(http.MethodPut, "/cron", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if got := do(""); got != http.StatusUnauthorized {
		t.Errorf("no header: %d", got)
	}
	if got := do("Bearer wrong"); got != http.StatusUnauthorized {
		t.Errorf("wrong secret: %d", got)
	}
	if got := do("Bearer cron-secret"); got != http.StatusOK {
		t.Errorf("correct secret: %d", got)
	}
}

func TestCronAuthEmptySecretAlwaysRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/cron", CronAuth(""), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPut, "/cron", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unconfigured secret must reject, got %d", w.Code)
	}
}
