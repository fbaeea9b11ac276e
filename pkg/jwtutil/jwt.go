package jwtutil

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/maloba12/umutulo/pkg/config"
)

var (
	secret     = []byte("secret-key")
	expiration = time.Hour * 24
)

// Initialize configures the signing key and token lifetime from config
func Initialize(cfg *config.JWTConfig) {
	if cfg.SigningKey != "" {
		secret = []byte(cfg.SigningKey)
	}
	if cfg.ExpirationHours > 0 {
		expiration = time.Duration(cfg.ExpirationHours) * time.Hour
	}
}

// UserClaims represents the JWT claims for an authenticated identity
type UserClaims struct {
	Email      string `json:"email"`
	UserID     string `json:"user_id"`
	ChurchID   string `json:"church_id,omitempty"`
	ChurchName string `json:"church_name,omitempty"`
	Role       string `json:"role,omitempty"`
	MemberID   string `json:"member_id,omitempty"` // set for login-enabled members
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token with user and church information
func GenerateToken(email, userID, churchID, churchName, role, memberID string) (string, error) {
	claims := UserClaims{
		Email:      email,
		UserID:     userID,
		ChurchID:   churchID,
		ChurchName: churchName,
		Role:       role,
		MemberID:   memberID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
