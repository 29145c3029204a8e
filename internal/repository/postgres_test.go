package repository

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/aircrouching/delator/internal/errs"
	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

const seededAdminID = int64(42)

func newTestStore(t *testing.T) models.Repository {
	t.Helper()

	log, err := logger.NewLogger(true)
	require.NoError(t, err)

	// File-backed SQLite with a busy timeout so concurrent transactions
	// serialize instead of failing.
	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	store, err := New(db, []int64{seededAdminID}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSeededAdmins(t *testing.T) {
	store := newTestStore(t)

	admin, err := store.IsAdmin(seededAdminID)
	require.NoError(t, err)
	require.True(t, admin)

	admin, err = store.IsAdmin(7)
	require.NoError(t, err)
	require.False(t, admin)
}

func TestAddSubscription_FreshThenExtend(t *testing.T) {
	store := newTestStore(t)
	const userID = int64(100)

	require.NoError(t, store.AddSubscription(userID, 10))

	sub, err := store.GetSubscription(userID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.NotNil(t, sub.SubscriptionEnds)
	require.WithinDuration(t, time.Now().Add(10*24*time.Hour), *sub.SubscriptionEnds, time.Minute)

	// A second grant while the first is active is additive, not max/replace.
	require.NoError(t, store.AddSubscription(userID, 5))

	sub, err = store.GetSubscription(userID)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*24*time.Hour), *sub.SubscriptionEnds, time.Minute)
}

func TestAddSubscription_ExpiredStartsFresh(t *testing.T) {
	store := newTestStore(t).(*PostgresDB)
	const userID = int64(101)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.Conn.Create(&models.Subscription{
		UserID:           userID,
		SubscriptionEnds: &past,
		CreatedAt:        past,
		UpdatedAt:        past,
	}).Error)

	require.NoError(t, store.AddSubscription(userID, 3))

	sub, err := store.GetSubscription(userID)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(3*24*time.Hour), *sub.SubscriptionEnds, time.Minute)
}

func TestRemoveSubscription(t *testing.T) {
	store := newTestStore(t)
	const userID = int64(102)

	removed, err := store.RemoveSubscription(userID)
	require.NoError(t, err)
	require.False(t, removed)

	require.NoError(t, store.AddSubscription(userID, 1))

	removed, err = store.RemoveSubscription(userID)
	require.NoError(t, err)
	require.True(t, removed)

	sub, err := store.GetSubscription(userID)
	require.NoError(t, err)
	require.Nil(t, sub)
}

func TestBan_LastWriterWins(t *testing.T) {
	store := newTestStore(t)
	const userID = int64(200)

	require.NoError(t, store.BanUser(userID, "spam", 1))
	require.NoError(t, store.BanUser(userID, "fraud", 2))

	ban, err := store.GetBanInfo(userID)
	require.NoError(t, err)
	require.NotNil(t, ban)
	require.Equal(t, "fraud", ban.Reason)
	require.Equal(t, int64(2), ban.BannedBy)

	banned, err := store.IsBanned(userID)
	require.NoError(t, err)
	require.True(t, banned)

	removed, err := store.UnbanUser(userID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.UnbanUser(userID)
	require.NoError(t, err)
	require.False(t, removed)

	banned, err = store.IsBanned(userID)
	require.NoError(t, err)
	require.False(t, banned)
}

func newPromo(code string, days, maxUses int, expiresIn time.Duration) *models.PromoCode {
	now := time.Now()
	return &models.PromoCode{
		Code:      code,
		Days:      days,
		MaxUses:   maxUses,
		CreatedBy: seededAdminID,
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestCreatePromoCode_Duplicate(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreatePromoCode(newPromo("WELCOME", 7, 10, 30*24*time.Hour)))
	err := store.CreatePromoCode(newPromo("WELCOME", 1, 1, 30*24*time.Hour))
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestRedeemPromoCode_GrantsDays(t *testing.T) {
	store := newTestStore(t)
	const userID = int64(300)

	require.NoError(t, store.CreatePromoCode(newPromo("SEVEN", 7, 5, 30*24*time.Hour)))

	ok, err := store.RedeemPromoCode("SEVEN", userID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	sub, err := store.GetSubscription(userID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), *sub.SubscriptionEnds, time.Minute)

	promo, err := store.GetPromoCode("SEVEN")
	require.NoError(t, err)
	require.Equal(t, 1, promo.UsedCount)
}

func TestRedeemPromoCode_Exhaustion(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreatePromoCode(newPromo("LAST3", 2, 3, 30*24*time.Hour)))

	successes := 0
	for userID := int64(400); userID < 408; userID++ {
		ok, err := store.RedeemPromoCode("LAST3", userID, time.Now())
		require.NoError(t, err)
		if ok {
			successes++
		} else {
			// A failed redemption grants nothing.
			sub, err := store.GetSubscription(userID)
			require.NoError(t, err)
			require.Nil(t, sub)
		}
	}
	require.Equal(t, 3, successes)

	promo, err := store.GetPromoCode("LAST3")
	require.NoError(t, err)
	require.Equal(t, 3, promo.UsedCount)
}

func TestRedeemPromoCode_Concurrent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreatePromoCode(newPromo("RACE", 1, 5, 30*24*time.Hour)))

	type outcome struct {
		ok  bool
		err error
	}
	const attempts = 10
	results := make(chan outcome, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			ok, err := store.RedeemPromoCode("RACE", userID, time.Now())
			results <- outcome{ok: ok, err: err}
		}(int64(500 + i))
	}
	wg.Wait()
	close(results)

	successes := 0
	for res := range results {
		require.NoError(t, res.err)
		if res.ok {
			successes++
		}
	}
	require.Equal(t, 5, successes)

	promo, err := store.GetPromoCode("RACE")
	require.NoError(t, err)
	require.Equal(t, 5, promo.UsedCount)
}

func TestRedeemPromoCode_ExpiredOrMissing(t *testing.T) {
	store := newTestStore(t)
	const userID = int64(600)

	require.NoError(t, store.CreatePromoCode(newPromo("OLD", 7, 10, -time.Hour)))

	ok, err := store.RedeemPromoCode("OLD", userID, time.Now())
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.RedeemPromoCode("NOPE", userID, time.Now())
	require.NoError(t, err)
	require.False(t, ok)

	// The expired code stays readable for audit, untouched.
	promo, err := store.GetPromoCode("OLD")
	require.NoError(t, err)
	require.Equal(t, 0, promo.UsedCount)

	sub, err := store.GetSubscription(userID)
	require.NoError(t, err)
	require.Nil(t, sub)
}

func TestDeleteExpiredPromoCodes(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreatePromoCode(newPromo("DEAD1", 1, 1, -time.Hour)))
	require.NoError(t, store.CreatePromoCode(newPromo("DEAD2", 1, 1, -time.Minute)))
	require.NoError(t, store.CreatePromoCode(newPromo("ALIVE", 1, 1, time.Hour)))

	count, err := store.DeleteExpiredPromoCodes(time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	promo, err := store.GetPromoCode("ALIVE")
	require.NoError(t, err)
	require.NotNil(t, promo)

	promo, err = store.GetPromoCode("DEAD1")
	require.NoError(t, err)
	require.Nil(t, promo)
}
