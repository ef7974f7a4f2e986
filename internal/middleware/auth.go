package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	orgIDKey  contextKey = "orgID"
)

var sessionRedis *redis.Client

// InitAuthMiddleware wires the Redis client used for session revocation
// checks. A nil client disables the check; tokens are then validated by
// signature and expiry alone.
func InitAuthMiddleware(rdb *redis.Client) {
	sessionRedis = rdb
}

// AuthMiddleware authenticates owner sessions via a Bearer JWT.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		userID, orgID, sessionID, err := validateToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if sessionRedis != nil {
			exists, err := sessionRedis.Exists(r.Context(), "session:"+sessionID).Result()
			if err == nil && exists == 0 {
				http.Error(w, "Session expired", http.StatusUnauthorized)
				return
			}
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, orgIDKey, orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validateToken(tokenString string) (userID, orgID, sessionID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return "", "", "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", "", fmt.Errorf("invalid claims")
	}

	userID = fmt.Sprintf("%v", claims["user_id"])
	orgID = fmt.Sprintf("%v", claims["org_id"])
	sessionID = fmt.Sprintf("%v", claims["jti"])
	if userID == "" || userID == "<nil>" || orgID == "" || orgID == "<nil>" {
		return "", "", "", fmt.Errorf("missing identity claims")
	}
	return userID, orgID, sessionID, nil
}

// SchedulerSecretMiddleware guards the scheduler trigger entry point with a
// shared-secret bearer token. No partial processing happens on a bad secret.
func SchedulerSecretMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := viper.GetString("scheduler.secret")
		if secret == "" {
			http.Error(w, "Scheduler secret not configured", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			http.Error(w, "Invalid scheduler secret", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated user id from the request context.
func UserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok && v != ""
}

// OrgID returns the authenticated organization id from the request context.
func OrgID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(orgIDKey).(string)
	return v, ok && v != ""
}
