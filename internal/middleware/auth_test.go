package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-key-12345678901234567890123456789012"
	testIssuer   = "retouchly-auth"
	testAudience = "retouchly-api"
)

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func validClaims(userID uint, exp time.Duration) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": testIssuer,
		"aud": testAudience,
		"exp": time.Now().Add(exp).Unix(),
	}
}

func TestAuthRequired(t *testing.T) {
	auth := NewAuthenticator(testSecret, testIssuer, testAudience, nil)
	app := fiber.New()
	app.Get("/test", auth.Required(), func(c *fiber.Ctx) error {
		userID, _ := UserID(c)
		return c.JSON(fiber.Map{"userID": userID})
	})

	wrongIssuer := validClaims(123, time.Hour)
	wrongIssuer["iss"] = "someone-else"
	zeroSubject := validClaims(0, time.Hour)
	noExpiry := validClaims(123, time.Hour)
	delete(noExpiry, "exp")

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{name: "Happy Path", authHeader: "Bearer " + signTestToken(t, validClaims(123, time.Hour)), expectedStatus: http.StatusOK, expectedUserID: 123},
		{name: "Missing Header", expectedStatus: http.StatusUnauthorized},
		{name: "Invalid Format", authHeader: "Basic dXNlcjpwYXNz", expectedStatus: http.StatusUnauthorized},
		{name: "Malformed Token", authHeader: "Bearer malformed.token.here", expectedStatus: http.StatusUnauthorized},
		{name: "Expired Token", authHeader: "Bearer " + signTestToken(t, validClaims(123, -time.Hour)), expectedStatus: http.StatusUnauthorized},
		{name: "Wrong Issuer", authHeader: "Bearer " + signTestToken(t, wrongIssuer), expectedStatus: http.StatusUnauthorized},
		{name: "Zero Subject", authHeader: "Bearer " + signTestToken(t, zeroSubject), expectedStatus: http.StatusUnauthorized},
		{name: "No Expiry", authHeader: "Bearer " + signTestToken(t, noExpiry), expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			}
		})
	}
}

func TestAuthOptional(t *testing.T) {
	auth := NewAuthenticator(testSecret, testIssuer, testAudience, nil)
	app := fiber.New()
	app.Get("/test", auth.Optional(), func(c *fiber.Ctx) error {
		userID, ok := UserID(c)
		return c.JSON(fiber.Map{"userID": userID, "authenticated": ok})
	})

	cases := []struct {
		name   string
		header string
		want   bool
	}{
		{"anonymous", "", false},
		{"invalid token", "Bearer nope", false},
		{"valid token", "Bearer " + signTestToken(t, validClaims(42, time.Hour)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.want, body["authenticated"])
		})
	}
}

func TestParseUserID_RevokedToken(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	auth := NewAuthenticator(testSecret, testIssuer, testAudience, rdb)

	claims := validClaims(7, time.Hour)
	claims["jti"] = "token-1"
	token := signTestToken(t, claims)

	userID, err := auth.ParseUserID(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)

	require.NoError(t, mr.Set("blacklist:token-1", "1"))
	_, err = auth.ParseUserID(context.Background(), token)
	assert.ErrorIs(t, err, errRevokedToken)
}

func TestParseUserID_RejectsOtherAlgorithms(t *testing.T) {
	auth := NewAuthenticator(testSecret, testIssuer, testAudience, nil)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(1, time.Hour))
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.ParseUserID(context.Background(), s)
	assert.ErrorIs(t, err, errInvalidToken)
}
