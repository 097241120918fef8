package utils

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const (
	CustomerIDKey contextKey = "customerID"
	UserIDKey     contextKey = "userID"
)

// Audience values embedded in tokens so a staff token cannot act as a
// customer and vice versa.
const (
	AudienceCustomer = "customer"
	AudienceStaff    = "staff"
)

// GetCustomerIDFromContext returns the authenticated customer id placed by
// CustomerAuthMiddleware. The engine trusts this identity; no credential
// logic happens past the middleware.
func GetCustomerIDFromContext(r *http.Request) (uint, error) {
	customerID, ok := r.Context().Value(CustomerIDKey).(uint)
	if !ok {
		return 0, errors.New("customer ID not found in context")
	}
	return customerID, nil
}

func GetUserIDFromContext(r *http.Request) (uint, error) {
	userID, ok := r.Context().Value(UserIDKey).(uint)
	if !ok {
		return 0, errors.New("user ID not found in context")
	}
	return userID, nil
}

// CustomerAuthMiddleware requires a valid customer access token.
func CustomerAuthMiddleware(next http.Handler) http.Handler {
	return authMiddleware(next, AudienceCustomer, CustomerIDKey, true)
}

// StaffAuthMiddleware requires a valid staff access token.
func StaffAuthMiddleware(next http.Handler) http.Handler {
	return authMiddleware(next, AudienceStaff, UserIDKey, true)
}

// OptionalCustomerAuth resolves the customer identity when a token is present
// but lets anonymous requests through (guest checkout on the public surface).
func OptionalCustomerAuth(next http.Handler) http.Handler {
	return authMiddleware(next, AudienceCustomer, CustomerIDKey, false)
}

func authMiddleware(next http.Handler, audience string, key contextKey, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if required {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("SECRET_KEY")), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		if len(claims.Audience) == 0 || claims.Audience[0] != audience {
			http.Error(w, "Invalid token audience", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			http.Error(w, "Invalid subject in token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), key, uint(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GenerateToken signs an access token for the given subject and audience.
func GenerateToken(subjectID uint, audience string, expirationMinutes int) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(subjectID), 10),
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expirationMinutes) * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}
