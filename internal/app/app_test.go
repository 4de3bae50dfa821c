package app_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"userapi/internal/app"
	"userapi/internal/config"
	"userapi/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:       config.DriverMemory,
		JWTSecret:      "test_jwt_secret",
		BcryptCost:     bcrypt.MinCost,
		AvatarMaxBytes: 1_000_000,
	}
}

func TestHealth(t *testing.T) {
	fiberApp, _ := app.New(testConfig(), repositories.NewMockUserRepository(), nil)

	resp, err := fiberApp.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestRegisterLoginFlow(t *testing.T) {
	fiberApp, authService := app.New(testConfig(), repositories.NewMockUserRepository(), nil)

	payload, _ := json.Marshal(map[string]interface{}{
		"name": "A", "email": "a@x.com", "password": "secret123", "age": 30,
	})
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload, _ = json.Marshal(map[string]string{"email": "a@x.com", "password": "secret123"})
	req = httptest.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = fiberApp.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	claims, err := authService.ValidateToken(loginResp.Token)
	require.NoError(t, err)
	assert.Contains(t, claims, "user_id")

	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	resp, err = fiberApp.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func registerAndLogin(t *testing.T, fiberApp *fiber.App) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]interface{}{
		"name": "A", "email": "a@x.com", "password": "secret123",
	})
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload, _ = json.Marshal(map[string]string{"email": "a@x.com", "password": "secret123"})
	req = httptest.NewRequest(http.MethodPost, "/users/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = fiberApp.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	return loginResp.Token
}

func TestAvatarAboveBodyLimit(t *testing.T) {
	fiberApp, _ := app.New(testConfig(), repositories.NewMockUserRepository(), nil)
	token := registerAndLogin(t, fiberApp)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("avatar", "big.jpg")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xff}, 5*1024*1024))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Greater(t, buf.Len(), fiber.DefaultBodyLimit)

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "File too large", body["error"])
}

func TestJSONAboveBodyLimit(t *testing.T) {
	fiberApp, _ := app.New(testConfig(), repositories.NewMockUserRepository(), nil)

	payload := `{"name":"` + strings.Repeat("a", fiber.DefaultBodyLimit) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := fiberApp.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
