package services

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brightbooks/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

func init() {
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("jwt.expiry_hours", 24)
}

// AuthService owns owner login and logout. Account provisioning itself lives
// with the hosted auth provider; this service only verifies stored
// credentials and mints session tokens.
type AuthService struct {
	store     Store
	redis     *redis.Client
	validator *ValidationHelper
	log       *zap.Logger
}

// LoginRequest is the owner login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse carries the minted session token.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func NewAuthService(store Store, redisClient *redis.Client, log *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		redis:     redisClient,
		validator: NewValidationHelper(),
		log:       log,
	}
}

// Login authenticates an owner and returns a session JWT.
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		s.log.Info("login failed, unknown email", zap.String("email", req.Email))
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, user.PasswordHash) {
		s.log.Info("login failed, bad password", zap.String("user_id", user.ID))
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	sessionID := uuid.NewString()
	token, err := generateJWT(user, sessionID)
	if err != nil {
		s.log.Error("jwt generation failed", zap.String("user_id", user.ID), zap.Error(err))
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	if s.redis != nil {
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if err := s.redis.Set(r.Context(), "session:"+sessionID, user.ID, expiry).Err(); err != nil {
			s.log.Warn("failed to store session", zap.Error(err))
		}
	}

	if err := s.store.TouchUserLogin(r.Context(), user.ID, time.Now()); err != nil {
		s.log.Warn("failed to record last login", zap.Error(err))
	}

	SendJSON(w, http.StatusOK, AuthResponse{Token: token, User: *user})
}

// Logout drops the Redis session backing the presented token.
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if s.redis != nil && strings.HasPrefix(authHeader, "Bearer ") {
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		if err == nil {
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if jti, ok := claims["jti"].(string); ok && jti != "" {
					if err := s.redis.Del(r.Context(), "session:"+jti).Err(); err != nil {
						s.log.Warn("failed to drop session", zap.Error(err))
					}
				}
			}
		}
	}

	SendJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func generateJWT(user *models.User, sessionID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"org_id":  user.OrgID,
		"jti":     sessionID,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// HashSecret hashes a password or portal token with argon2id. The salt is
// stored alongside the hash as base64(salt)$base64(hash).
func HashSecret(secret string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	return VerifySecret(password, hashedPassword)
}

// VerifySecret checks a secret against a HashSecret value in constant time.
func VerifySecret(secret, stored string) bool {
	parts := strings.Split(stored, "$")
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

	computed := argon2.IDKey([]byte(secret), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
