package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/database"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/services/storage"
	authutil "github.com/sahilchouksey/studyhub-api/utils/auth"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	authutil.Cost = bcrypt.MinCost
	logger.Logger = logger.Nop()
	os.Exit(m.Run())
}

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	st, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	db := st.GetDB()
	jwtManager := authutil.NewJWTManager(authutil.JWTConfig{Secret: "test", Expiry: time.Hour, RefreshExpiry: 2 * time.Hour})
	h := NewAuthHandler(db, services.NewUserService(db, store), services.NewProfileImageService(db, store, t.TempDir()), jwtManager, nil)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	app := fiber.New()
	app.Post("/auth/register", h.Register)
	app.Post("/auth/login", h.Login)
	app.Post("/auth/logout", authMiddleware.Required(), h.Logout)
	app.Post("/auth/refresh", h.RefreshToken)
	app.Get("/auth/profile", authMiddleware.Required(), h.GetProfile)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

var registration = map[string]string{
	"first_name":       "Ada",
	"last_name":        "Lovelace",
	"email":            "ada@example.com",
	"password":         "secret123",
	"confirm_password": "secret123",
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	app := newApp(t)

	status, body := do(t, app, http.MethodPost, "/auth/register", registration, "")
	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])

	dup := map[string]string{}
	for k, v := range registration {
		dup[k] = v
	}
	dup["email"] = "ADA@example.com"
	status, body = do(t, app, http.MethodPost, "/auth/register", dup, "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["error"].(map[string]interface{})["code"])
}

func TestRegister_Validation(t *testing.T) {
	app := newApp(t)

	bad := map[string]string{}
	for k, v := range registration {
		bad[k] = v
	}
	bad["confirm_password"] = "different"
	bad["email"] = "not-an-email"

	status, body := do(t, app, http.MethodPost, "/auth/register", bad, "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	fields := body["data"].(map[string]interface{})
	assert.Contains(t, fields, "confirm_password")
	assert.Contains(t, fields, "email")
}

func TestLoginLogout(t *testing.T) {
	app := newApp(t)
	status, _ := do(t, app, http.MethodPost, "/auth/register", registration, "")
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = do(t, app, http.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "wrong-pass"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body := do(t, app, http.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "secret123"}, "")
	require.Equal(t, fiber.StatusOK, status)
	tokens := body["data"].(map[string]interface{})
	token := tokens["access_token"].(string)
	refresh := tokens["refresh_token"].(string)

	status, body = do(t, app, http.MethodGet, "/auth/profile", nil, token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ada Lovelace", body["data"].(map[string]interface{})["full_name"])

	status, _ = do(t, app, http.MethodPost, "/auth/logout", nil, token)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, http.MethodGet, "/auth/profile", nil, token)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	// the refresh token of the same login is revoked with it
	status, _ = do(t, app, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestRefreshKeepsSession(t *testing.T) {
	app := newApp(t)
	status, body := do(t, app, http.MethodPost, "/auth/register", registration, "")
	require.Equal(t, fiber.StatusCreated, status)
	first := body["data"].(map[string]interface{})["refresh_token"].(string)

	status, body = do(t, app, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": first}, "")
	require.Equal(t, fiber.StatusOK, status)
	rotated := body["data"].(map[string]interface{})
	access := rotated["access_token"].(string)
	second := rotated["refresh_token"].(string)

	// a refresh token is single use
	status, _ = do(t, app, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": first}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	// logging out with the rotated access token ends the whole session
	status, _ = do(t, app, http.MethodPost, "/auth/logout", nil, access)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": second}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
