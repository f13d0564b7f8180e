package main

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errLoginDisabled      = errors.New("reviewer login disabled: no password hash configured")
)

const tokenTTL = 24 * time.Hour

// Authenticate checks username/password against the configured reviewer.
func Authenticate(username, password string) error {
	hash := cfg.Server.ReviewerPasswordHash
	if hash == "" {
		return errLoginDisabled
	}
	if strings.TrimSpace(username) != cfg.Server.ReviewerUser {
		return errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return errInvalidCredentials
	}
	return nil
}

// issueToken signs an HS256 token for username.
func issueToken(username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"role":     "reviewer",
		"exp":      time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(jwtSecret)
}
