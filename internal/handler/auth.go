package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/config"
	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
	"github.com/iliyamo/court-reservation/internal/utils"
)

// AdminStore is the subset of *repository.AdminRepo used by AuthHandler.
type AdminStore interface {
	Create(ctx context.Context, name string, email *string, password string, cost int) (uint64, error)
	GetByLogin(ctx context.Context, login string) (model.Admin, error)
	GetByID(ctx context.Context, id uint64) (model.Admin, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Admins AdminStore
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, admins AdminStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Admins: admins, Log: log}
}

// ----- DTOs -----

type signupReq struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=6"`
}

// signinReq accepts the login under "identifier" or, for older clients,
// under "name" or "email".
type signinReq struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password" validate:"required,min=6"`
}

func (r signinReq) login() string {
	for _, s := range []string{r.Identifier, r.Email, r.Name} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type adminPart struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Role  string  `json:"role"`
}

// Signup creates an admin account.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// Normalise before validating: a blank email is the same as none.
	req.Name = strings.TrimSpace(req.Name)
	if req.Email != nil && strings.TrimSpace(*req.Email) == "" {
		req.Email = nil
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// The repository hashes the password; a taken name or email comes back
	// as ErrDuplicate.
	id, err := h.Admins.Create(ctx, req.Name, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "name or email already in use"})
		}
		h.Log.Error("signup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create admin failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "id": id})
}

// Signin verifies credentials and returns an access token.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// The login may be a name or an email; GetByLogin matches either.
	login := req.login()
	if len(login) < 2 || c.Validate(&req) != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Admins.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error("signin lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	// Unknown login and wrong password get the same answer.
	if !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Every account is an admin; the role claim is checked by RequireRole.
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, a.ID, model.RoleAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.Error("issue access token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":     true,
		"admin":  adminPart{ID: a.ID, Name: a.Name, Email: a.Email, Role: model.RoleAdmin},
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the signed-in admin.
func (h *AuthHandler) Me(c echo.Context) error {
	// JWTAuth stores the subject as a uint64.
	id, ok := c.Get("user_id").(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		h.Log.Error("load admin failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load admin failed"})
	}
	role, _ := c.Get("role").(string)
	return c.JSON(http.StatusOK, echo.Map{
		"ok":    true,
		"admin": adminPart{ID: a.ID, Name: a.Name, Email: a.Email, Role: role},
	})
}
