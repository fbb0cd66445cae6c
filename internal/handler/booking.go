package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
	"github.com/iliyamo/court-reservation/internal/service"
)

const requestTimeout = 5 * time.Second

// BookingService is the booking core as seen by the HTTP layer.
// *service.Booking implements it.
type BookingService interface {
	QueryAvailability(ctx context.Context, date string) (service.Availability, error)
	CreateReservation(ctx context.Context, req service.CreateRequest) (service.CreateResult, error)
	ListBookings(ctx context.Context, f repository.ListFilter) ([]service.BookingEntry, error)
	CancelReservation(ctx context.Context, id uint64) (service.CancelResult, error)
	SetPaid(ctx context.Context, id uint64) (model.Reservation, error)
	SetRefunded(ctx context.Context, id uint64) (model.Reservation, error)
}

// BookingHandler serves the /v1/bookings endpoints.  All methods assume
// JWT authentication and role validation were done by middleware.
type BookingHandler struct {
	Svc BookingService
	Log *zap.Logger
}

func NewBookingHandler(svc BookingService, log *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Log: log}
}

// createBookingReq accepts slots either as a list of {court, slot} pairs or
// as the older per-court arrays (court1/court2/court3); both may be mixed.
type createBookingReq struct {
	Name     string          `json:"name" validate:"max=100"`
	IsMember bool            `json:"isMember"`
	MemberID *uint64         `json:"memberId"`
	Date     string          `json:"date" validate:"required"`
	Slots    []model.SlotRef `json:"slots"`
	Court1   []string        `json:"court1"`
	Court2   []string        `json:"court2"`
	Court3   []string        `json:"court3"`
}

func (r createBookingReq) slotRefs() []model.SlotRef {
	refs := append([]model.SlotRef(nil), r.Slots...)
	refs = append(refs, model.LegacyBooking{Court1: r.Court1, Court2: r.Court2, Court3: r.Court3}.Refs()...)
	return refs
}

// Availability handles GET /v1/bookings/availability?date=YYYY-MM-DD.
func (h *BookingHandler) Availability(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	av, err := h.Svc.QueryAvailability(ctx, strings.TrimSpace(c.QueryParam("date")))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booked": av})
}

// Create handles POST /v1/bookings.  It returns 201 with the created
// reservations, 409 with the conflicting pairs when a slot is taken, or 400
// with the required credit count when a member's balance is too low.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, h.Log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.CreateReservation(ctx, service.CreateRequest{
		Name:     req.Name,
		IsMember: req.IsMember,
		MemberID: req.MemberID,
		Date:     req.Date,
		Slots:    req.slotRefs(),
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	body := echo.Map{"ok": true, "reservations": res.Reservations}
	if res.Member != nil {
		body["member"] = res.Member
	}
	return c.JSON(http.StatusCreated, body)
}

// List handles GET /v1/bookings?q=&date=&isMember=all|yes|no&sort=asc|desc.
// Active and cancelled bookings are returned together, each tagged with
// its origin.
func (h *BookingHandler) List(c echo.Context) error {
	f := repository.ListFilter{
		Query: strings.TrimSpace(c.QueryParam("q")),
		Date:  strings.TrimSpace(c.QueryParam("date")),
		Desc:  strings.TrimSpace(c.QueryParam("sort")) != "asc",
	}
	switch strings.TrimSpace(c.QueryParam("isMember")) {
	case "yes":
		v := true
		f.IsMember = &v
	case "no":
		v := false
		f.IsMember = &v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	entries, err := h.Svc.ListBookings(ctx, f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "bookings": entries})
}

// Cancel handles POST /v1/bookings/:id/cancel.  Repeating the call returns
// the same snapshot.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return h.cancel(ctx, c, id)
}

func (h *BookingHandler) cancel(ctx context.Context, c echo.Context, id uint64) error {
	res, err := h.Svc.CancelReservation(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking": res.Booking, "updatedMember": res.UpdatedMember})
}

// Pay handles POST /v1/bookings/:id/pay.
func (h *BookingHandler) Pay(c echo.Context) error {
	return h.ledger(c, h.Svc.SetPaid)
}

// Refund handles POST /v1/bookings/:id/refund.
func (h *BookingHandler) Refund(c echo.Context) error {
	return h.ledger(c, h.Svc.SetRefunded)
}

func (h *BookingHandler) ledger(c echo.Context, op func(context.Context, uint64) (model.Reservation, error)) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	return h.applyLedger(ctx, c, id, op)
}

func (h *BookingHandler) applyLedger(ctx context.Context, c echo.Context, id uint64, op func(context.Context, uint64) (model.Reservation, error)) error {
	r, err := op(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "booking": r})
}

type patchBookingReq struct {
	Cancel bool `json:"cancel"`
	Pay    bool `json:"pay"`
	Refund bool `json:"refund"`
}

// Patch handles PATCH /v1/bookings/:id with exactly one of
// {"cancel":true}, {"pay":true} or {"refund":true}.  It exists for clients
// of the older single-endpoint API.
func (h *BookingHandler) Patch(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req patchBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	set := 0
	for _, b := range []bool{req.Cancel, req.Pay, req.Refund} {
		if b {
			set++
		}
	}
	if set != 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "specify exactly one of cancel, pay or refund"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	switch {
	case req.Cancel:
		return h.cancel(ctx, c, id)
	case req.Pay:
		return h.applyLedger(ctx, c, id, h.Svc.SetPaid)
	default:
		return h.applyLedger(ctx, c, id, h.Svc.SetRefunded)
	}
}

func bookingID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err == nil && id == 0 {
		err = strconv.ErrRange
	}
	return id, err
}
