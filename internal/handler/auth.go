package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iliyamo/study-cafe-reservation/internal/repository"
	"github.com/iliyamo/study-cafe-reservation/internal/service"
	"github.com/iliyamo/study-cafe-reservation/internal/utils"
	"github.com/labstack/echo/v4"
)

// AuthHandler implements registration, login and profile lookup.  The
// issued access token carries the numeric user ID as its subject; that
// ID is what the reservation workflow uses as the lock-owner identity,
// so token issuance is the system's identity resolver.
type AuthHandler struct {
	Users        *repository.UserRepo // user persistence
	JWTSecret    string               // secret for signing access tokens
	AccessTTLMin int                  // access token lifetime in minutes
	BcryptCost   int                  // bcrypt cost for password hashing
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *repository.UserRepo, jwtSecret string, accessTTLMin, bcryptCost int) *AuthHandler {
	if users == nil {
		panic("nil repository passed to NewAuthHandler")
	}
	return &AuthHandler{
		Users:        users,
		JWTSecret:    jwtSecret,
		AccessTTLMin: accessTTLMin,
		BcryptCost:   bcryptCost,
	}
}

// Register handles POST /v1/auth/register.  It creates a CUSTOMER
// account and returns the new user's ID.
func (h *AuthHandler) Register(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || !strings.Contains(email, "@") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid email is required"})
	}
	if len(body.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	id, err := h.Users.Create(c.Request().Context(), email, body.Password, "CUSTOMER", h.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondError(c, service.ErrDuplicateEmail)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Login handles POST /v1/auth/login.  On success it returns a signed
// access token and its expiry.
func (h *AuthHandler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	user, err := h.Users.GetByEmail(c.Request().Context(), body.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return respondError(c, service.ErrInvalidCredentials)
		}
		return respondError(c, err)
	}
	if !utils.VerifyPassword(user.PasswordHash, body.Password) {
		return respondError(c, service.ErrInvalidCredentials)
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, user.ID, user.Role, h.AccessTTLMin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
	})
}

// Me handles GET /v1/me and returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	user, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return respondError(c, service.ErrUserNotFound)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":         user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	})
}
