package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/service"
)

type eventService interface {
	List(ctx context.Context, actor service.Actor, f model.EventFilter) ([]model.Event, error)
	ByMonth(ctx context.Context, actor service.Actor, year, month int) ([]model.Event, error)
	Get(ctx context.Context, actor service.Actor, id string) (*model.Event, error)
	Create(ctx context.Context, actor service.Actor, in service.CreateEventInput) (*model.Event, error)
	Update(ctx context.Context, actor service.Actor, id string, in service.UpdateEventInput) (*model.Event, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

// EventHandler serves /api/events.
type EventHandler struct {
	events eventService
}

func NewEventHandler(events eventService) *EventHandler {
	return &EventHandler{events: events}
}

type notificationsReq struct {
	Enabled      *bool `json:"enabled"`
	ReminderTime *int  `json:"reminderTime"`
}

type eventReq struct {
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	EventType       *string           `json:"eventType"`
	StartDate       *date             `json:"startDate"`
	EndDate         *date             `json:"endDate"`
	AllDay          *bool             `json:"allDay"`
	Location        *string           `json:"location"`
	Color           *string           `json:"color"`
	RelatedProduct  *string           `json:"relatedProduct"`
	RelatedWarranty *string           `json:"relatedWarranty"`
	Notifications   *notificationsReq `json:"notifications"`
}

func (r eventReq) create() service.CreateEventInput {
	in := service.CreateEventInput{
		Title:             deref(r.Title),
		Description:       deref(r.Description),
		EventType:         deref(r.EventType),
		StartDate:         r.StartDate.value(),
		EndDate:           r.EndDate.ptr(),
		Location:          deref(r.Location),
		Color:             deref(r.Color),
		RelatedProductID:  r.RelatedProduct,
		RelatedWarrantyID: r.RelatedWarranty,
	}
	if r.AllDay != nil {
		in.AllDay = *r.AllDay
	}
	if n := r.Notifications; n != nil {
		in.Notifications = &model.Notifications{Enabled: true, ReminderTime: 24}
		if n.Enabled != nil {
			in.Notifications.Enabled = *n.Enabled
		}
		if n.ReminderTime != nil {
			in.Notifications.ReminderTime = *n.ReminderTime
		}
	}
	return in
}

func (r eventReq) update() service.UpdateEventInput {
	in := service.UpdateEventInput{
		Title:             r.Title,
		Description:       r.Description,
		EventType:         r.EventType,
		StartDate:         r.StartDate.ptr(),
		EndDate:           r.EndDate.ptr(),
		AllDay:            r.AllDay,
		Location:          r.Location,
		Color:             r.Color,
		RelatedProductID:  r.RelatedProduct,
		RelatedWarrantyID: r.RelatedWarranty,
	}
	if n := r.Notifications; n != nil {
		in.NotifyEnabled = n.Enabled
		in.ReminderTime = n.ReminderTime
	}
	return in
}

// GET /api/events?startDate=&endDate=&eventType=
func (h *EventHandler) List(c echo.Context) error {
	var f model.EventFilter
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{{"startDate", &f.From}, {"endDate", &f.To}} {
		raw := c.QueryParam(q.name)
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			return service.NewValidationError(q.name, err.Error())
		}
		*q.dst = &t
	}
	f.EventType = model.EventType(c.QueryParam("eventType"))

	evs, err := h.events.List(c.Request().Context(), actor(c), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(evs))
}

// GET /api/events/month/:year/:month
func (h *EventHandler) ByMonth(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return service.NewValidationError("year", "must be a number")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return service.NewValidationError("month", "must be a number")
	}
	evs, err := h.events.ByMonth(c.Request().Context(), actor(c), year, month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(evs))
}

// GET /api/events/:id
func (h *EventHandler) Get(c echo.Context) error {
	ev, err := h.events.Get(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// POST /api/events
func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ev, err := h.events.Create(c.Request().Context(), actor(c), req.create())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ev)
}

// PUT /api/events/:id
func (h *EventHandler) Update(c echo.Context) error {
	var req eventReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ev, err := h.events.Update(c.Request().Context(), actor(c), c.Param("id"), req.update())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

// DELETE /api/events/:id
func (h *EventHandler) Delete(c echo.Context) error {
	if err := h.events.Delete(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "event removed"})
}
