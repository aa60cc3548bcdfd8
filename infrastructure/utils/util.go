package utils

import (
	"time"

	"slack-connect/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

// GenerateToken signs an HS256 API token for subject, valid for ttl.
func GenerateToken(subject string, ttl time.Duration, secretKey string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.StandardClaims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}
