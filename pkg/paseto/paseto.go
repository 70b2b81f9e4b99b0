package paseto

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"qr-attendance-backend/models"
)

type Claims struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
	Name   string             `json:"name"`
	Role   string             `json:"role"`
}

// Maker issues and verifies PASETO v2.local tokens with a 32-byte symmetric
// key supplied as a base64 URL-encoded string.
type Maker struct {
	v2  *paseto.V2
	key []byte
}

func NewMaker(secretBase64 string) (*Maker, error) {
	key, err := base64.URLEncoding.DecodeString(secretBase64)
	if err != nil {
		key, err = base64.StdEncoding.DecodeString(secretBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode PASETO secret: %w", err)
		}
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("PASETO secret must be exactly 32 bytes after decoding, got %d", len(key))
	}

	return &Maker{v2: paseto.NewV2(), key: key}, nil
}

func (m *Maker) GenerateToken(user *models.User) (string, error) {
	now := time.Now()

	token := paseto.JSONToken{
		IssuedAt:   now,
		Expiration: now.Add(24 * time.Hour),
		NotBefore:  now,
	}

	token.Set("user_id", user.ID.Hex())
	token.Set("email", user.Email)
	token.Set("name", user.Name)
	token.Set("role", user.Role)

	return m.v2.Encrypt(m.key, token, "")
}

func (m *Maker) ValidateToken(tokenString string) (*Claims, error) {
	var token paseto.JSONToken
	var footer string

	err := m.v2.Decrypt(tokenString, m.key, &token, &footer)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt paseto token: %w", err)
	}

	if err := token.Validate(); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	userID, err := primitive.ObjectIDFromHex(token.Get("user_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid user_id format: %v", err)
	}

	return &Claims{
		UserID: userID,
		Email:  token.Get("email"),
		Name:   token.Get("name"),
		Role:   token.Get("role"),
	}, nil
}
