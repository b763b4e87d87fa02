package services

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/logger"
	"golang.org/x/crypto/argon2"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

// AuthService issues admin tokens for the HTTP API.
type AuthService struct {
	jwt       config.JWTConfig
	argon     config.Argon2Config
	admin     config.AdminConfig
	bot       config.BotConfig
	validator *ValidationHelper
	log       *logger.Logger
	now       func() time.Time
}

// LoginRequest represents the admin login payload
// @Description Admin login request
type LoginRequest struct {
	UserID   int64  `json:"userId" validate:"required" example:"123456789"`        // Admin chat user id
	Password string `json:"password" validate:"required,min=8" example:"s3cret!!"` // Admin password
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are the JWT claims of an admin token.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(cfg *config.Config, log *logger.Logger) *AuthService {
	return &AuthService{
		jwt:       cfg.JWT,
		argon:     cfg.Argon2,
		admin:     cfg.Admin,
		bot:       cfg.Bot,
		validator: NewValidationHelper(),
		log:       log.With("service", "AuthService"),
		now:       time.Now,
	}
}

// Login exchanges admin credentials for a token
// @Summary Admin login
// @Description Authenticate a configured admin and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	s.log.Info("login attempt", "remote_addr", r.RemoteAddr)

	var req LoginRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !s.bot.IsAdmin(req.UserID) || s.admin.PasswordHash == "" {
		s.log.Warn("login refused", "user_id", req.UserID)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}
	if !s.VerifyPassword(req.Password, s.admin.PasswordHash) {
		s.log.Warn("invalid password", "user_id", req.UserID)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	token, expiresAt, err := s.IssueToken(req.UserID)
	if err != nil {
		s.log.Error("token generation failed", "user_id", req.UserID, "error", err)
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	s.log.Info("login successful", "user_id", req.UserID)
	WriteJSON(w, AuthResponse{Token: token, ExpiresAt: expiresAt})
}

// IssueToken signs an admin token for userID.
func (s *AuthService) IssueToken(userID int64) (string, time.Time, error) {
	if s.jwt.SecretKey == "" {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(s.jwt.ExpiryHours) * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(s.jwt.SecretKey))
	return signed, expiresAt, err
}

// ParseToken validates a bearer token and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.jwt.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// HashPassword derives an argon2id hash stored as base64(salt)$base64(hash).
func (s *AuthService) HashPassword(password string) (string, error) {
	salt := make([]byte, s.argon.SaltLength)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, s.argon.Time, s.argon.Memory, s.argon.Threads, s.argon.KeyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func (s *AuthService) VerifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, s.argon.Time, s.argon.Memory, s.argon.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
