package paseto

import (
	"encoding/base64"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"qr-attendance-backend/models"
)

func testSecret() string {
	return base64.URLEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestNewMakerRejectsBadSecrets(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"too short", base64.URLEncoding.EncodeToString([]byte("short"))},
		{"too long", base64.URLEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef-extra"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMaker(tt.secret); err == nil {
				t.Error("NewMaker() accepted an invalid secret")
			}
		})
	}
}

func TestTokenRoundtrip(t *testing.T) {
	maker, err := NewMaker(testSecret())
	if err != nil {
		t.Fatalf("NewMaker() error: %v", err)
	}

	user := &models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Budi Pratama",
		Email: "budi@school.test",
		Role:  models.RoleStudent,
	}

	token, err := maker.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if !strings.HasPrefix(token, "v2.local.") {
		t.Errorf("token = %.20q..., want v2.local. prefix", token)
	}

	claims, err := maker.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}

	if claims.UserID != user.ID {
		t.Errorf("claims.UserID = %v, want %v", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("claims.Email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Name != user.Name {
		t.Errorf("claims.Name = %q, want %q", claims.Name, user.Name)
	}
	if claims.Role != models.RoleStudent {
		t.Errorf("claims.Role = %q, want %q", claims.Role, models.RoleStudent)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	maker, err := NewMaker(testSecret())
	if err != nil {
		t.Fatalf("NewMaker() error: %v", err)
	}

	if _, err := maker.ValidateToken("v2.local.definitely-not-a-token"); err == nil {
		t.Error("ValidateToken() accepted garbage input")
	}
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	maker, err := NewMaker(testSecret())
	if err != nil {
		t.Fatalf("NewMaker() error: %v", err)
	}

	other, err := NewMaker(base64.URLEncoding.EncodeToString([]byte("ffffffffffffffffffffffffffffffff")))
	if err != nil {
		t.Fatalf("NewMaker() error: %v", err)
	}

	user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleTeacher}
	token, err := maker.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted a token encrypted with a different key")
	}
}
