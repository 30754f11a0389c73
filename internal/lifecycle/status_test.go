package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/warranty-manager/internal/model"
	"github.com/iliyamo/warranty-manager/internal/testutil"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	now := day(2024, time.January, 1)
	tests := []struct {
		name string
		exp  time.Time
		want model.WarrantyStatus
	}{
		{"one second in the past", now.Add(-time.Second), model.WarrantyExpired},
		{"last year", day(2023, time.January, 1), model.WarrantyExpired},
		{"exactly now", now, model.WarrantyExpiring},
		{"thirty days out", day(2024, time.January, 31), model.WarrantyExpiring},
		{"window upper bound", now.Add(ExpiringWindow), model.WarrantyExpiring},
		{"just past window", now.Add(ExpiringWindow + time.Nanosecond), model.WarrantyActive},
		{"two months out", day(2024, time.March, 1), model.WarrantyActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DeriveStatus(tt.exp, now))
		})
	}
}

func TestApply_OverwritesCallerStatus(t *testing.T) {
	t.Parallel()

	now := day(2024, time.January, 1)
	w := &model.Warranty{
		ID:             "w1",
		Notes:          "keep me",
		ExpirationDate: now.AddDate(1, 0, 0),
		Status:         model.WarrantyExpired,
	}
	Apply(w, now)

	assert.Equal(t, model.WarrantyActive, w.Status)
	assert.Equal(t, now, w.UpdatedAt)
	assert.Equal(t, "keep me", w.Notes)
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	clock := testutil.NewStubClock(day(2024, time.January, 1))
	w := &model.Warranty{ExpirationDate: day(2024, time.January, 15)}

	Apply(w, clock.Now())
	first := w.Status
	Apply(w, clock.Now())

	assert.Equal(t, model.WarrantyExpiring, first)
	assert.Equal(t, first, w.Status)
}

func TestApply_FollowsClock(t *testing.T) {
	t.Parallel()

	clock := testutil.NewStubClock(day(2024, time.January, 1))
	w := &model.Warranty{ExpirationDate: day(2024, time.March, 1)}

	Apply(w, clock.Now())
	assert.Equal(t, model.WarrantyActive, w.Status)

	clock.Advance(45 * 24 * time.Hour)
	Apply(w, clock.Now())
	assert.Equal(t, model.WarrantyExpiring, w.Status)

	clock.Set(day(2024, time.March, 2))
	Apply(w, clock.Now())
	assert.Equal(t, model.WarrantyExpired, w.Status)
}
