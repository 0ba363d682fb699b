package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/marineworld/booking/internal/repository"
	"github.com/marineworld/booking/internal/utils"
)

// AuthHandler signs dashboard operators in.
type AuthHandler struct {
	users     *repository.UserRepo
	jwtSecret string
	jwtTTL    time.Duration
}

func NewAuthHandler(users *repository.UserRepo, jwtSecret string, jwtTTL time.Duration) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges operator credentials for a session token.  Unknown
// email and wrong password produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	u, err := h.users.GetByEmail(c.Request().Context(), req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return writeErr(c, err)
	}
	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := utils.NewAccessToken(h.jwtSecret, u.ID, u.Role, h.jwtTTL)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"role":         u.Role,
		"expires_in":   int(h.jwtTTL.Seconds()),
	})
}
