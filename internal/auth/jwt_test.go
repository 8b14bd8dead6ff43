package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	token, exp, err := Issue("u1", "a@b.test", RoleAdmin, "Anita", "sk-tutorial", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !exp.After(time.Now()) {
		t.Errorf("expiry %v should be in the future", exp)
	}

	claims, err := Parse(token, "secret", "sk-tutorial")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@b.test" || claims.Role != RoleAdmin || claims.Name != "Anita" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejections(t *testing.T) {
	token, _, err := Issue("u1", "a@b.test", RoleTeacher, "Anita", "sk-tutorial", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired, _, err := Issue("u1", "a@b.test", RoleTeacher, "Anita", "sk-tutorial", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		token  string
		key    string
		issuer string
	}{
		{name: "wrong key", token: token, key: "other", issuer: "sk-tutorial"},
		{name: "wrong issuer", token: token, key: "secret", issuer: "someone-else"},
		{name: "garbage", token: "not.a.token", key: "secret", issuer: "sk-tutorial"},
		{name: "expired", token: expired, key: "secret", issuer: "sk-tutorial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.token, tt.key, tt.issuer); err == nil {
				t.Error("Parse() expected error")
			}
		})
	}
}
