package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/repository"
)

type eventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, f model.EventFilter) ([]model.Event, error)
	ListByUserStarting(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error)
}

type warrantyLookup interface {
	GetByID(ctx context.Context, id string) (*model.Warranty, error)
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

// ParseEventType accepts the known types plus "expiration", an alias of
// warranty.
func ParseEventType(s string) (model.EventType, bool) {
	t := model.EventType(strings.ToLower(strings.TrimSpace(s)))
	if t == "expiration" {
		t = model.EventWarranty
	}
	return t, t.Valid()
}

type CreateEventInput struct {
	Title             string
	Description       string
	EventType         string
	StartDate         time.Time
	EndDate           *time.Time
	AllDay            bool
	Location          string
	Color             string
	RelatedProductID  *string
	RelatedWarrantyID *string
	Notifications     *model.Notifications
}

func (i CreateEventInput) Validate() error {
	var errs fieldErrors
	if strings.TrimSpace(i.Title) == "" {
		errs.add("title", "required")
	}
	if i.EventType == "" {
		errs.add("eventType", "required")
	} else if _, ok := ParseEventType(i.EventType); !ok {
		errs.add("eventType", "must be one of warranty, maintenance, reminder, other")
	}
	if i.StartDate.IsZero() {
		errs.add("startDate", "required")
	}
	if i.EndDate != nil && !i.StartDate.IsZero() && i.EndDate.Before(i.StartDate) {
		errs.add("endDate", "must not be before startDate")
	}
	if i.Color != "" && !hexColor.MatchString(i.Color) {
		errs.add("color", "must be a hex color")
	}
	if i.Notifications != nil && i.Notifications.ReminderTime < 0 {
		errs.add("notifications.reminderTime", "must not be negative")
	}
	return errs.err()
}

// UpdateEventInput is a partial update; nil fields are left alone.
type UpdateEventInput struct {
	Title             *string
	Description       *string
	EventType         *string
	StartDate         *time.Time
	EndDate           *time.Time
	AllDay            *bool
	Location          *string
	Color             *string
	RelatedProductID  *string
	RelatedWarrantyID *string
	NotifyEnabled     *bool
	ReminderTime      *int
}

func (i UpdateEventInput) Validate() error {
	var errs fieldErrors
	if i.Title != nil && strings.TrimSpace(*i.Title) == "" {
		errs.add("title", "must not be empty")
	}
	if i.EventType != nil {
		if _, ok := ParseEventType(*i.EventType); !ok {
			errs.add("eventType", "must be one of warranty, maintenance, reminder, other")
		}
	}
	if i.Color != nil && !hexColor.MatchString(*i.Color) {
		errs.add("color", "must be a hex color")
	}
	if i.ReminderTime != nil && *i.ReminderTime < 0 {
		errs.add("notifications.reminderTime", "must not be negative")
	}
	return errs.err()
}

// EventService manages a user's calendar.
type EventService struct {
	log        *slog.Logger
	events     eventStore
	warranties warrantyLookup
	products   productLookup
	clock      lifecycle.Clock
}

func NewEventService(logger *slog.Logger, events eventStore, warranties warrantyLookup, products productLookup, clock lifecycle.Clock) *EventService {
	return &EventService{
		log:        logger.With("service", "event"),
		events:     events,
		warranties: warranties,
		products:   products,
		clock:      clock,
	}
}

// checkRelations verifies that a linked product exists and that a linked
// warranty exists and is visible to actor. Unknown and foreign warranties
// are reported alike.
func (s *EventService) checkRelations(ctx context.Context, actor Actor, productID, warrantyID *string) error {
	var errs fieldErrors
	if productID != nil {
		if _, err := s.products.GetByID(ctx, *productID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			errs.add("relatedProduct", "product not found")
		}
	}
	if warrantyID != nil {
		w, err := s.warranties.GetByID(ctx, *warrantyID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			errs.add("relatedWarranty", "warranty not found")
		case err != nil:
			return err
		case !actor.canAccess(w.UserID):
			errs.add("relatedWarranty", "warranty not found")
		}
	}
	return errs.err()
}

// List returns the actor's events by start date. The date range applies
// only when both bounds are set; an unknown event type is ignored.
func (s *EventService) List(ctx context.Context, actor Actor, f model.EventFilter) ([]model.Event, error) {
	if f.From == nil || f.To == nil {
		f.From, f.To = nil, nil
	}
	if f.EventType != "" {
		t, ok := ParseEventType(string(f.EventType))
		if !ok {
			t = ""
		}
		f.EventType = t
	}
	return s.events.ListByUser(ctx, actor.ID, f)
}

// ByMonth returns the actor's events starting in the given calendar month
// (UTC).
func (s *EventService) ByMonth(ctx context.Context, actor Actor, year, month int) ([]model.Event, error) {
	var errs fieldErrors
	if month < 1 || month > 12 {
		errs.add("month", "must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		errs.add("year", "out of range")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return s.events.ListByUserStarting(ctx, actor.ID, from, from.AddDate(0, 1, 0))
}

func (s *EventService) Get(ctx context.Context, actor Actor, id string) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "event")
	}
	if !actor.canAccess(e.UserID) {
		return nil, ErrForbidden
	}
	return e, nil
}

func (s *EventService) Create(ctx context.Context, actor Actor, in CreateEventInput) (*model.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	productID, warrantyID := nonEmpty(in.RelatedProductID), nonEmpty(in.RelatedWarrantyID)
	if err := s.checkRelations(ctx, actor, productID, warrantyID); err != nil {
		return nil, err
	}
	t, _ := ParseEventType(in.EventType)
	now := s.clock.Now()
	e := &model.Event{
		ID:                uuid.NewString(),
		UserID:            actor.ID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		EventType:         t,
		StartDate:         in.StartDate,
		EndDate:           in.StartDate,
		AllDay:            in.AllDay,
		Location:          in.Location,
		Color:             in.Color,
		RelatedProductID:  productID,
		RelatedWarrantyID: warrantyID,
		Notifications:     model.Notifications{Enabled: true, ReminderTime: 24},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.EndDate != nil {
		e.EndDate = *in.EndDate
	}
	if e.Color == "" {
		e.Color = model.DefaultEventColor
	}
	if in.Notifications != nil {
		e.Notifications = *in.Notifications
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

func (s *EventService) Update(ctx context.Context, actor Actor, id string, in UpdateEventInput) (*model.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	var productID, warrantyID *string
	if in.RelatedProductID != nil {
		productID = nonEmpty(in.RelatedProductID)
	}
	if in.RelatedWarrantyID != nil {
		warrantyID = nonEmpty(in.RelatedWarrantyID)
	}
	if err := s.checkRelations(ctx, actor, productID, warrantyID); err != nil {
		return nil, err
	}
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.EventType != nil {
		e.EventType, _ = ParseEventType(*in.EventType)
	}
	if in.StartDate != nil {
		e.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		e.EndDate = *in.EndDate
	}
	if e.EndDate.Before(e.StartDate) {
		return nil, NewValidationError("endDate", "must not be before startDate")
	}
	if in.AllDay != nil {
		e.AllDay = *in.AllDay
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.Color != nil {
		e.Color = *in.Color
	}
	if in.RelatedProductID != nil {
		e.RelatedProductID = productID
	}
	if in.RelatedWarrantyID != nil {
		e.RelatedWarrantyID = warrantyID
	}
	if in.NotifyEnabled != nil {
		e.Notifications.Enabled = *in.NotifyEnabled
	}
	if in.ReminderTime != nil {
		e.Notifications.ReminderTime = *in.ReminderTime
	}
	e.UpdatedAt = s.clock.Now()
	if err := s.events.Update(ctx, e); err != nil {
		return nil, notFound(err, "event")
	}
	return e, nil
}

func (s *EventService) Delete(ctx context.Context, actor Actor, id string) error {
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return notFound(s.events.Delete(ctx, e.ID), "event")
}

// nonEmpty maps nil and "" to nil.
func nonEmpty(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
