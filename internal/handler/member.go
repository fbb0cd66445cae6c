package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
)

// MemberStore is the subset of *repository.MemberRepo used by MemberHandler.
type MemberStore interface {
	Create(ctx context.Context, m model.Member) (model.Member, error)
	GetByID(ctx context.Context, id uint64) (model.Member, error)
	List(ctx context.Context, f repository.MemberFilter) ([]model.Member, error)
	MarkPaid(ctx context.Context, id uint64) (model.Member, error)
}

// MemberHandler exposes member management to desk staff.  Credit balances
// are only changed by the booking service; these endpoints never touch them
// after creation.
type MemberHandler struct {
	Members MemberStore
	Log     *zap.Logger
}

func NewMemberHandler(members MemberStore, log *zap.Logger) *MemberHandler {
	return &MemberHandler{Members: members, Log: log}
}

type createMemberReq struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Membership string `json:"membership" validate:"required,oneof=1M 3M 6M"`
	Credits    uint32 `json:"credits"`
	AmountDue  uint32 `json:"amountDue"`
}

// Create handles POST /v1/members.  A member with nothing due starts out
// paid.
func (h *MemberHandler) Create(c echo.Context) error {
	var req createMemberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.Members.Create(ctx, model.Member{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Membership: req.Membership,
		Credits:    req.Credits,
		AmountDue:  req.AmountDue,
		Paid:       req.AmountDue == 0,
	})
	if err != nil {
		h.Log.Error("create member failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create member"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"ok": true, "id": m.ID, "member": m})
}

// List handles GET /v1/members?q=&membership=all|1M|3M|6M&sort=asc|desc.
func (h *MemberHandler) List(c echo.Context) error {
	f := repository.MemberFilter{
		Query: strings.TrimSpace(c.QueryParam("q")),
		Desc:  strings.TrimSpace(c.QueryParam("sort")) != "asc",
	}
	if p := strings.TrimSpace(c.QueryParam("membership")); p != "" && p != "all" {
		f.Membership = p
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	members, err := h.Members.List(ctx, f)
	if err != nil {
		h.Log.Error("list members failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch members"})
	}
	if members == nil {
		members = []model.Member{}
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "members": members, "memberships": model.Plans})
}

// Get handles GET /v1/members/:id.
func (h *MemberHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.Members.GetByID(ctx, id)
	return h.memberResponse(c, m, err)
}

// Pay handles POST /v1/members/:id/pay and records the membership fee as
// collected.
func (h *MemberHandler) Pay(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid member id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.Members.MarkPaid(ctx, id)
	return h.memberResponse(c, m, err)
}

func (h *MemberHandler) memberResponse(c echo.Context, m model.Member, err error) error {
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"ok": true, "member": m})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	default:
		h.Log.Error("member query failed", zap.Error(err), zap.String("path", c.Path()))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load member"})
	}
}
