package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aircrouching/delator/internal/errs"
	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

// fakeRepo is an in-memory stand-in for the ledger store.
type fakeRepo struct {
	admins map[int64]string
	bans   map[int64]*models.Ban
	subs   map[int64]*models.Subscription
	promos map[string]*models.PromoCode

	failAll bool
}

var _ models.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		admins: map[int64]string{},
		bans:   map[int64]*models.Ban{},
		subs:   map[int64]*models.Subscription{},
		promos: map[string]*models.PromoCode{},
	}
}

func (f *fakeRepo) err() error {
	if f.failAll {
		return errors.New("store down")
	}
	return nil
}

func (f *fakeRepo) IsAdmin(userID int64) (bool, error) {
	_, ok := f.admins[userID]
	return ok, f.err()
}

func (f *fakeRepo) GetUsername(userID int64) (string, error) {
	return f.admins[userID], f.err()
}

func (f *fakeRepo) IsBanned(userID int64) (bool, error) {
	_, ok := f.bans[userID]
	return ok, f.err()
}

func (f *fakeRepo) GetBanInfo(userID int64) (*models.Ban, error) {
	return f.bans[userID], f.err()
}

func (f *fakeRepo) BanUser(userID int64, reason string, adminID int64) error {
	f.bans[userID] = &models.Ban{UserID: userID, Reason: reason, BannedBy: adminID, BannedAt: time.Now()}
	return f.err()
}

func (f *fakeRepo) UnbanUser(userID int64) (bool, error) {
	_, ok := f.bans[userID]
	delete(f.bans, userID)
	return ok, f.err()
}

func (f *fakeRepo) GetSubscription(userID int64) (*models.Subscription, error) {
	return f.subs[userID], f.err()
}

func (f *fakeRepo) AddSubscription(userID int64, days int) error {
	if err := f.err(); err != nil {
		return err
	}
	now := time.Now()
	end := now.Add(time.Duration(days) * 24 * time.Hour)
	if sub, ok := f.subs[userID]; ok && sub.SubscriptionEnds != nil && sub.SubscriptionEnds.After(now) {
		end = sub.SubscriptionEnds.Add(time.Duration(days) * 24 * time.Hour)
	}
	f.subs[userID] = &models.Subscription{UserID: userID, SubscriptionEnds: &end}
	return nil
}

func (f *fakeRepo) RemoveSubscription(userID int64) (bool, error) {
	_, ok := f.subs[userID]
	delete(f.subs, userID)
	return ok, f.err()
}

func (f *fakeRepo) CreatePromoCode(code *models.PromoCode) error {
	if err := f.err(); err != nil {
		return err
	}
	if _, ok := f.promos[code.Code]; ok {
		return errs.ErrAlreadyExists
	}
	f.promos[code.Code] = code
	return nil
}

func (f *fakeRepo) GetPromoCode(code string) (*models.PromoCode, error) {
	return f.promos[code], f.err()
}

func (f *fakeRepo) RedeemPromoCode(code string, userID int64, now time.Time) (bool, error) {
	if err := f.err(); err != nil {
		return false, err
	}
	promo, ok := f.promos[code]
	if !ok || promo.UsedCount >= promo.MaxUses || !promo.ExpiresAt.After(now) {
		return false, nil
	}
	promo.UsedCount++
	return true, f.AddSubscription(userID, promo.Days)
}

func (f *fakeRepo) DeleteExpiredPromoCodes(now time.Time) (int64, error) {
	var count int64
	for code, promo := range f.promos {
		if promo.ExpiresAt.Before(now) {
			delete(f.promos, code)
			count++
		}
	}
	return count, f.err()
}

func (f *fakeRepo) Close() error { return nil }

func newTestLedger(t *testing.T, repo models.Repository) *Ledger {
	t.Helper()
	log, err := logger.NewLogger(true)
	require.NoError(t, err)
	return NewLedger(repo, log)
}

func TestStatusLabel(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		end    time.Time
		active bool
		label  string
	}{
		{"expired", now.Add(-time.Minute), false, "Истекла"},
		{"exactly now", now, false, "Истекла"},
		{"minutes", now.Add(25 * time.Minute), true, "Активна (25 мин.)"},
		{"hours", now.Add(5 * time.Hour), true, "Активна (5 ч.)"},
		{"days", now.Add(6 * 24 * time.Hour), true, "Активна (6 дн.)"},
		{"months", now.Add(95 * 24 * time.Hour), true, "Активна (3 мес.)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, label := StatusLabel(tt.end, now)
			assert.Equal(t, tt.active, active)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestGeneratePromoCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GeneratePromoCode()
		require.Len(t, code, promoCodeLength)
		for _, r := range code {
			require.True(t, strings.ContainsRune(promoCodeAlphabet, r), "unexpected character %q", r)
		}
	}
}

func TestGrant_RejectsNonPositiveDays(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo)

	assert.False(t, l.Grant(1, 0))
	assert.False(t, l.Grant(1, -5))
	assert.Empty(t, repo.subs)

	assert.True(t, l.Grant(1, 3))
	assert.True(t, l.HasActiveSubscription(1))
}

func TestCreatePromo_Validation(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo)

	assert.False(t, l.CreatePromo("", 5, 5, 1, 30))
	assert.False(t, l.CreatePromo("X", 0, 5, 1, 30))
	assert.False(t, l.CreatePromo("X", 5, 0, 1, 30))
	assert.False(t, l.CreatePromo("X", 5, 5, 1, 0))
	assert.Empty(t, repo.promos)

	assert.True(t, l.CreatePromo("X", 5, 5, 1, 30))
	// Duplicate codes are rejected without touching the original.
	assert.False(t, l.CreatePromo("X", 1, 1, 1, 30))
	assert.Equal(t, 5, repo.promos["X"].Days)
}

func TestStatus_StoreFaultReadsAsExpired(t *testing.T) {
	repo := newFakeRepo()
	repo.failAll = true
	l := newTestLedger(t, repo)

	active, label := l.Status(1)
	assert.False(t, active)
	assert.Equal(t, "Истекла", label)
	assert.False(t, l.IsAdmin(1))
	assert.False(t, l.IsBanned(1))
}

func TestRedeemAndSweep(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo)

	require.True(t, l.CreatePromo("GIFT", 7, 1, 1, 30))
	assert.True(t, l.Redeem("GIFT", 9))
	assert.False(t, l.Redeem("GIFT", 10), "exhausted code must not redeem")
	assert.True(t, l.HasActiveSubscription(9))
	assert.False(t, l.HasActiveSubscription(10))

	repo.promos["GIFT"].ExpiresAt = time.Now().Add(-time.Hour)
	assert.EqualValues(t, 1, l.SweepExpired())
}

func TestAdminName(t *testing.T) {
	repo := newFakeRepo()
	repo.admins[7] = "@aircrouching"
	l := newTestLedger(t, repo)

	assert.Equal(t, "@aircrouching", l.AdminName(7))
	assert.Equal(t, "ID: 8", l.AdminName(8))
}
