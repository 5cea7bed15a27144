// Package authentication issues and verifies the bearer tokens guarding
// the HTTP surface.
package authentication

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var ErrInvalidToken = errors.New("invalid token")

var signing = struct {
	mu     sync.RWMutex
	secret []byte
	ttl    time.Duration
}{
	secret: []byte("vista-dev-secret"),
	ttl:    24 * time.Hour,
}

// Configure sets the signing secret and token lifetime. Call once at
// startup before serving.
func Configure(secret string, ttl time.Duration) {
	signing.mu.Lock()
	defer signing.mu.Unlock()
	if secret != "" {
		signing.secret = []byte(secret)
	}
	if ttl > 0 {
		signing.ttl = ttl
	}
}

// GenerateJWT mints a signed token for username.
func GenerateJWT(username string) (string, error) {
	signing.mu.RLock()
	secret, ttl := signing.secret, signing.ttl
	signing.mu.RUnlock()

	claims := jwt.MapClaims{
		"username": username,
		"iat":      jwt.NewNumericDate(time.Now()),
		"exp":      jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies a token and returns the username it was minted for.
func ParseToken(tokenString string) (string, error) {
	signing.mu.RLock()
	secret := signing.secret
	signing.mu.RUnlock()

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	username, _ := claims["username"].(string)
	if username == "" {
		return "", ErrInvalidToken
	}
	return username, nil
}

// Middleware rejects requests without a valid bearer token.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				return ctx.JSON(401, "unauthorized")
			}
			username, err := ParseToken(tokenString)
			if err != nil {
				return ctx.JSON(401, "unauthorized")
			}
			ctx.Set("username", username)
			return next(ctx)
		}
	}
}
