package config

import (
	"encoding/base64"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	util "qr-attendance-backend/pkg/utils"
)

type AppConfig struct {
	Port            string
	MONGOSTRING     string
	PASETO_SECRET   string
	QRExpiryMinutes int
}

// LoadConfig loads configuration from .env file
func LoadConfig() *AppConfig {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env file (might not exist in production): %v", err)
	}

	secretBase64 := getEnv("PASETO_SECRET", "")
	if secretBase64 == "" {
		// Tokens signed with an ephemeral key stop validating on restart, so
		// this path is only acceptable for local development.
		generated, genErr := util.GenerateBase64Key(32)
		if genErr != nil {
			log.Fatalf("PASETO_SECRET is not set and generating one failed: %v", genErr)
		}
		log.Println("Warning: PASETO_SECRET is not set, using a generated ephemeral key")
		secretBase64 = generated
	}

	secretBytes, err := base64.URLEncoding.DecodeString(secretBase64)
	if err != nil {
		log.Fatalf("PASETO_SECRET in .env is not a valid Base64 URL-encoded string: %v", err)
	}

	if len(secretBytes) != 32 {
		log.Fatalf("PASETO_SECRET (decoded) must be exactly 32 bytes long. Current length: %d", len(secretBytes))
	}

	expiry, err := strconv.Atoi(getEnv("QR_EXPIRY_MINUTES", "5"))
	if err != nil || expiry <= 0 {
		log.Fatal("QR_EXPIRY_MINUTES must be a positive integer")
	}

	return &AppConfig{
		Port:            getEnv("PORT", "5000"),
		MONGOSTRING:     getEnv("MONGOSTRING", ""),
		PASETO_SECRET:   secretBase64,
		QRExpiryMinutes: expiry,
	}
}

// Helper function to get environment variable or fallback to default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
