package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidToken       = errors.New("invalid token")
	errExpiredToken       = errors.New("token expired")
	errInvalidCredentials = errors.New("invalid credentials")
)

const tokenTTL = 24 * time.Hour

// authService issues and validates the HS256 bearer tokens used by the API.
type authService struct {
	secret []byte
}

func newAuthService(secret string) *authService {
	return &authService{secret: []byte(secret)}
}

// hashPassword hashes a password with bcrypt.
func (s *authService) hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("server: hash password: %w", err)
	}
	return string(bytes), nil
}

// checkPassword reports whether password matches the stored hash.
func (s *authService) checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// generateToken issues a signed token carrying the user id.
func (s *authService) generateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// validateToken verifies a bearer token and returns the user id it carries.
func (s *authService) validateToken(tokenString string) (uint, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, errExpiredToken
		}
		return 0, errInvalidToken
	}
	if !token.Valid {
		return 0, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errInvalidToken
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, errInvalidToken
	}
	return uint(id), nil
}

// validatePassword enforces the minimum password length.
func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

// validateEmail performs a shape check; deliverability is not verified.
func validateEmail(email string) error {
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return errors.New("invalid email format")
	}
	return nil
}
