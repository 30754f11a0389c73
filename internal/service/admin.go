package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/warranty-manager/internal/config"
	"github.com/iliyamo/warranty-manager/internal/lifecycle"
	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/repository"
)

type userCounter interface {
	Count(ctx context.Context, role string) (int, error)
}

type warrantyAnalytics interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) ([]model.StatusCount, error)
	CountCreatedByMonth(ctx context.Context, from, to time.Time) (map[int]int, error)
	Recent(ctx context.Context, n int) ([]model.Warranty, error)
	TopProducts(ctx context.Context, n int) ([]model.ProductWarrantyCount, error)
}

type productAnalytics interface {
	Count(ctx context.Context) (int, error)
	CountByCategory(ctx context.Context) ([]model.CategoryCount, error)
}

type recentEvents interface {
	Recent(ctx context.Context, n int) ([]model.Event, error)
}

type settingsStore interface {
	Get(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, s *model.Settings, at time.Time) error
}

const (
	activityLimit    = 10
	topProductsLimit = 10
	settingsID       = "global"
)

type UserStats struct {
	Total   int `json:"total"`
	Admin   int `json:"admin"`
	Regular int `json:"regular"`
}

type CategoryStat struct {
	Name  model.ProductCategory `json:"name"`
	Count int                   `json:"count"`
}

type ProductStats struct {
	Total      int            `json:"total"`
	Categories []CategoryStat `json:"categories"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	UserStats     UserStats           `json:"userStats"`
	WarrantyStats model.WarrantyStats `json:"warrantyStats"`
	ProductStats  ProductStats        `json:"productStats"`
	MonthlyData   []model.MonthCount  `json:"monthlyData"`
}

type Activity struct {
	RecentWarranties []model.Warranty `json:"recentWarranties"`
	RecentEvents     []model.Event    `json:"recentEvents"`
}

type WarrantyAnalytics struct {
	TotalWarranties    int                 `json:"totalWarranties"`
	ActiveWarranties   int                 `json:"activeWarranties"`
	ExpiringWarranties int                 `json:"expiringWarranties"`
	ExpiredWarranties  int                 `json:"expiredWarranties"`
	WarrantyByStatus   []model.StatusCount `json:"warrantyByStatus"`
	WarrantyByMonth    []model.MonthCount  `json:"warrantyByMonth"`
}

type ProductAnalytics struct {
	TotalProducts      int                          `json:"totalProducts"`
	ProductsByCategory []model.CategoryCount        `json:"productsByCategory"`
	TopProducts        []model.ProductWarrantyCount `json:"topProducts"`
}

// SettingsInput replaces whole sections; nil sections are kept.
type SettingsInput struct {
	NotificationSettings *model.NotificationSettings `json:"notificationSettings"`
	EmailSettings        *model.EmailSettings        `json:"emailSettings"`
	SystemSettings       *model.SystemSettings       `json:"systemSettings"`
}

func (i SettingsInput) Validate() error {
	var errs fieldErrors
	if i.NotificationSettings == nil && i.EmailSettings == nil && i.SystemSettings == nil {
		errs.add("settings", "at least one section is required")
	}
	if s := i.SystemSettings; s != nil {
		if s.MaxLoginAttempts < 1 {
			errs.add("systemSettings.maxLoginAttempts", "must be at least 1")
		}
		if s.SessionTimeout < 1 {
			errs.add("systemSettings.sessionTimeout", "must be at least 1")
		}
	}
	return errs.err()
}

// AdminService serves dashboards, analytics and the settings document.
type AdminService struct {
	log        *slog.Logger
	users      userCounter
	warranties warrantyAnalytics
	products   productAnalytics
	events     recentEvents
	settings   settingsStore
	audit      actionRecorder
	clock      lifecycle.Clock
	smtp       config.SMTPConfig
}

func NewAdminService(
	logger *slog.Logger,
	users userCounter,
	warranties warrantyAnalytics,
	products productAnalytics,
	events recentEvents,
	settings settingsStore,
	audit actionRecorder,
	clock lifecycle.Clock,
	smtp config.SMTPConfig,
) *AdminService {
	return &AdminService{
		log:        logger.With("service", "admin"),
		users:      users,
		warranties: warranties,
		products:   products,
		events:     events,
		settings:   settings,
		audit:      audit,
		clock:      clock,
		smtp:       smtp,
	}
}

// Dashboard counts by stored status; the independent queries run
// concurrently.
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		d          Dashboard
		byStatus   []model.StatusCount
		categories []model.CategoryCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.UserStats.Total, err = s.users.Count(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		d.UserStats.Admin, err = s.users.Count(gctx, model.RoleAdmin)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.warranties.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.ProductStats.Total, err = s.products.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.products.CountByCategory(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.MonthlyData, err = s.monthly(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.UserStats.Regular = d.UserStats.Total - d.UserStats.Admin
	d.WarrantyStats = statsFromCounts(byStatus)
	d.ProductStats.Categories = make([]CategoryStat, 0, len(categories))
	for _, c := range categories {
		d.ProductStats.Categories = append(d.ProductStats.Categories, CategoryStat{Name: c.Category, Count: c.Count})
	}
	return &d, nil
}

// Activity returns the latest warranties and events of all users.
func (s *AdminService) Activity(ctx context.Context) (*Activity, error) {
	var a Activity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a.RecentWarranties, err = s.warranties.Recent(gctx, activityLimit)
		return err
	})
	g.Go(func() (err error) {
		a.RecentEvents, err = s.events.Recent(gctx, activityLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdminService) WarrantyAnalytics(ctx context.Context) (*WarrantyAnalytics, error) {
	var (
		a        WarrantyAnalytics
		byStatus []model.StatusCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byStatus, err = s.warranties.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		a.WarrantyByMonth, err = s.monthly(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	st := statsFromCounts(byStatus)
	a.TotalWarranties = st.Total
	a.ActiveWarranties = st.Active
	a.ExpiringWarranties = st.Expiring
	a.ExpiredWarranties = st.Expired
	a.WarrantyByStatus = byStatus
	return &a, nil
}

func (s *AdminService) ProductAnalytics(ctx context.Context) (*ProductAnalytics, error) {
	var a ProductAnalytics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a.TotalProducts, err = s.products.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		a.ProductsByCategory, err = s.products.CountByCategory(gctx)
		return err
	})
	g.Go(func() (err error) {
		a.TopProducts, err = s.warranties.TopProducts(gctx, topProductsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Settings returns the stored document, or the defaults when nothing has
// been saved yet. The SMTP password is masked.
func (s *AdminService) Settings(ctx context.Context) (*model.Settings, error) {
	st, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	return st.Redacted(), nil
}

func (s *AdminService) stored(ctx context.Context) (*model.Settings, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.defaults(), nil
		}
		return nil, err
	}
	return st, nil
}

// UpdateSettings replaces the given sections. An empty or masked SMTP
// password keeps the stored one.
func (s *AdminService) UpdateSettings(ctx context.Context, actor Actor, in SettingsInput) (*model.Settings, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	st, err := s.stored(ctx)
	if err != nil {
		return nil, err
	}
	var sections []string
	if in.NotificationSettings != nil {
		st.NotificationSettings = *in.NotificationSettings
		sections = append(sections, "notificationSettings")
	}
	if in.EmailSettings != nil {
		password := st.EmailSettings.SMTPPassword
		st.EmailSettings = *in.EmailSettings
		if p := st.EmailSettings.SMTPPassword; p == "" || p == model.SecretMask {
			st.EmailSettings.SMTPPassword = password
		}
		sections = append(sections, "emailSettings")
	}
	if in.SystemSettings != nil {
		st.SystemSettings = *in.SystemSettings
		sections = append(sections, "systemSettings")
	}
	if err := s.settings.Save(ctx, st, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.audit.RecordAction(ctx, actor, model.AuditSettingsUpdate, model.ResourceSettings, settingsID, map[string]any{
		"updatedSections": sections,
	})
	return st.Redacted(), nil
}

func (s *AdminService) defaults() *model.Settings {
	return &model.Settings{
		NotificationSettings: model.NotificationSettings{
			EmailNotifications:   true,
			PushNotifications:    true,
			WarrantyExpiryAlerts: true,
			SystemAlerts:         true,
		},
		EmailSettings: model.EmailSettings{
			SMTPHost:     s.smtp.Host,
			SMTPPort:     s.smtp.Port,
			SMTPUser:     s.smtp.User,
			SMTPPassword: s.smtp.Password,
			FromEmail:    s.smtp.FromEmail,
			FromName:     s.smtp.FromName,
		},
		SystemSettings: model.SystemSettings{
			MaintenanceMode:   false,
			AllowRegistration: true,
			MaxLoginAttempts:  5,
			SessionTimeout:    30,
		},
	}
}

// monthly returns twelve buckets, January to December of the current year.
func (s *AdminService) monthly(ctx context.Context) ([]model.MonthCount, error) {
	year := s.clock.Now().Year()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	counts, err := s.warranties.CountCreatedByMonth(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	out := make([]model.MonthCount, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, model.MonthCount{Month: m.String(), Count: counts[int(m)]})
	}
	return out, nil
}

func statsFromCounts(counts []model.StatusCount) model.WarrantyStats {
	var st model.WarrantyStats
	for _, c := range counts {
		st.Total += c.Count
		switch c.Status {
		case model.WarrantyActive:
			st.Active = c.Count
		case model.WarrantyExpiring:
			st.Expiring = c.Count
		case model.WarrantyExpired:
			st.Expired = c.Count
		}
	}
	return st
}
