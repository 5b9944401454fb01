package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const DeviceIDKey contextKey = "device_id"

// DeviceTokenTTL is long: the token is the only handle an anonymous install
// has on its stored transcripts.
const DeviceTokenTTL = 365 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid device token")

type JWTAuth struct {
	Secret []byte
	now    func() time.Time
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), now: time.Now}
}

// IssueDeviceToken creates a fresh device id and a token bound to it.
func (j *JWTAuth) IssueDeviceToken() (uuid.UUID, string, error) {
	deviceID := uuid.New()
	token, err := j.GenerateDeviceToken(deviceID)
	return deviceID, token, err
}

func (j *JWTAuth) GenerateDeviceToken(deviceID uuid.UUID) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"device_id": deviceID.String(),
		"exp":       now.Add(DeviceTokenTTL).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ParseDeviceToken verifies tokenStr and returns the device it names. Expiry
// is reported as jwt.ErrTokenExpired.
func (j *JWTAuth) ParseDeviceToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, jwt.ErrTokenExpired
		}
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	idStr, ok := claims["device_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	deviceID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return deviceID, nil
}

// Middleware validates the bearer token and attaches device_id to context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		deviceID, err := j.ParseDeviceToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		ctx := context.WithValue(r.Context(), DeviceIDKey, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDeviceID extracts device_id from request context
func GetDeviceID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(DeviceIDKey).(uuid.UUID)
	return id
}

// WithDeviceID is used by tests that bypass token checks.
func WithDeviceID(ctx context.Context, deviceID uuid.UUID) context.Context {
	return context.WithValue(ctx, DeviceIDKey, deviceID)
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
