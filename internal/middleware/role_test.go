package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marineworld/booking/internal/model"
	"github.com/marineworld/booking/internal/utils"
)

const testSecret = "test-secret"

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(okHandler)(c))
	return rec
}

func TestRequireAuth(t *testing.T) {
	mw := RequireAuth(testSecret)

	rec := doRequest(t, mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing token")

	rec = doRequest(t, mw, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "malformed token")

	token, err := utils.NewAccessToken(testSecret, 7, model.RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = doRequest(t, mw, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	expired, err := utils.NewAccessToken(testSecret, 7, model.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	rec = doRequest(t, mw, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expired token")

	other, err := utils.NewAccessToken("other-secret", 7, model.RoleAdmin, time.Hour)
	require.NoError(t, err)
	rec = doRequest(t, mw, other)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong secret")
}

func TestRequireRole(t *testing.T) {
	chain := func(token string) *httptest.ResponseRecorder {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		h := RequireAuth(testSecret)(RequireRole(model.RoleAdmin)(okHandler))
		require.NoError(t, h(c))
		return rec
	}

	admin, err := utils.NewAccessToken(testSecret, 1, model.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, chain(admin).Code)

	staff, err := utils.NewAccessToken(testSecret, 2, model.RoleStaff, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, chain(staff).Code)
}
