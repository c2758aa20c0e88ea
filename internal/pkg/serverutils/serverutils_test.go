package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"portfolio-ai-be/internal/apperror"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type samplePayload struct {
	Title   string `validate:"required,max=10"`
	Content string `validate:"required"`
}

func TestValidateRequest(t *testing.T) {
	err := ValidateRequest(&samplePayload{Title: "ok", Content: "body"})
	assert.NoError(t, err)

	err = ValidateRequest(&samplePayload{})
	assert.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "Title is required")
	assert.Contains(t, err.Error(), "Content is required")

	err = ValidateRequest(&samplePayload{Title: "way too long for the limit", Content: "body"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Title must be at most 10 characters")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"validation", apperror.Validation("title is required"), fiber.StatusBadRequest, "title is required"},
		{"not found", apperror.NotFound("document"), fiber.StatusNotFound, "document not found"},
		{
			"upstream",
			apperror.Upstream("genai.generate", "The language model is unavailable.", errors.New("dial tcp refused")),
			fiber.StatusBadGateway,
			"The language model is unavailable.",
		},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed, "Method Not Allowed"},
		{
			"unknown",
			errors.New("pq: connection reset"),
			fiber.StatusInternalServerError,
			"An internal error occurred. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware(nopLogger{}))
			app.Get("/boom", func(ctx *fiber.Ctx) error {
				return tt.err
			})

			res, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)

			var body Response[any]
			assert.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantStatus, body.Code)

			// Internal detail never leaks through the envelope.
			if tt.name == "unknown" || tt.name == "upstream" {
				assert.NotContains(t, body.Message, "pq:")
				assert.NotContains(t, body.Message, "dial tcp")
			}
		})
	}
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "test-secret"

	app := fiber.New()
	app.Use(JwtMiddleware(secret))
	app.Get("/guarded", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"user_id": ctx.Locals("user_id")})
	})

	sign := func(method jwt.SigningMethod) string {
		token, err := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "admin"}).SignedString([]byte(secret))
		assert.NoError(t, err)
		return token
	}

	res, err := app.Test(httptest.NewRequest("GET", "/guarded", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+sign(jwt.SigningMethodHS256))
	res, err = app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)

	// Same secret but a different HMAC variant must not pass.
	req = httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+sign(jwt.SigningMethodHS384))
	res, err = app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestErrorHandlerPassesSuccessThrough(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(nopLogger{}))
	app.Get("/ok", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("fetched", fiber.Map{"value": 1}))
	})

	res, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}
