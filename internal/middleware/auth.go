// Package middleware provides authentication, logging, metrics and rate
// limiting middleware for the HTTP API.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"retouchly/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var (
	errMissingToken  = errors.New("authorization required")
	errInvalidToken  = errors.New("invalid or expired token")
	errInvalidClaims = errors.New("invalid token claims")
	errRevokedToken  = errors.New("token has been revoked")
)

// Authenticator validates bearer tokens issued by the auth backend. The user
// identity it stores in locals is the only identity handlers may trust.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	redis    *redis.Client
}

// NewAuthenticator creates an Authenticator. rdb may be nil, in which case
// revocation checks are skipped.
func NewAuthenticator(secret, issuer, audience string, rdb *redis.Client) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		redis:    rdb,
	}
}

// ParseUserID validates tokenString and returns the user ID from its subject claim.
func (a *Authenticator) ParseUserID(ctx context.Context, tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, errMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errInvalidClaims
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, errInvalidClaims
	}

	if jti, exists := claims["jti"].(string); exists && jti != "" && a.redis != nil {
		revoked, err := a.redis.Exists(ctx, "blacklist:"+jti).Result()
		if err == nil && revoked > 0 {
			return 0, errRevokedToken
		}
	}

	return uint(userID), nil
}

// Required rejects requests without a valid bearer token with 401.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := a.ParseUserID(c.UserContext(), bearerToken(c))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError(capitalize(err.Error())))
		}
		setUser(c, userID)
		return c.Next()
	}
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through anonymously.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID, err := a.ParseUserID(c.UserContext(), bearerToken(c)); err == nil {
			setUser(c, userID)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user stored by Required or Optional.
func UserID(c *fiber.Ctx) (uint, bool) {
	uid, ok := c.Locals("userID").(uint)
	return uid, ok && uid != 0
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), UserIDKey, userID)
	c.SetUserContext(ctx)
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
