// Package ledger is the single source of truth for entitlements, bans and
// promo codes. Store faults never escape as raw errors: operations report
// booleans and log the detail, so callers can render a short reason.
package ledger

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

const (
	// promoCodeLength is the length of generated promo codes.
	promoCodeLength = 8
	// promoCodeAlphabet is the character set promo codes are drawn from.
	promoCodeAlphabet = "!@#$%^&ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type Ledger struct {
	logger *logger.Logger

	repo models.Repository
}

func NewLedger(repo models.Repository, logger *logger.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logger}
}

func (l *Ledger) IsAdmin(userID int64) bool {
	admin, err := l.repo.IsAdmin(userID)
	if err != nil {
		l.logger.Error("Failed to check admin status ", "user ", userID, " error ", err)
		return false
	}
	return admin
}

func (l *Ledger) IsBanned(userID int64) bool {
	banned, err := l.repo.IsBanned(userID)
	if err != nil {
		l.logger.Error("Failed to check ban status ", "user ", userID, " error ", err)
		return false
	}
	return banned
}

func (l *Ledger) BanInfo(userID int64) *models.Ban {
	ban, err := l.repo.GetBanInfo(userID)
	if err != nil {
		l.logger.Error("Failed to get ban info ", "user ", userID, " error ", err)
		return nil
	}
	return ban
}

// AdminName resolves an admin id to a display name for ban cards.
func (l *Ledger) AdminName(userID int64) string {
	name, err := l.repo.GetUsername(userID)
	if err != nil {
		l.logger.Error("Failed to get admin username ", "user ", userID, " error ", err)
	}
	if name == "" {
		return fmt.Sprintf("ID: %d", userID)
	}
	return name
}

func (l *Ledger) Ban(userID int64, reason string, adminID int64) bool {
	if err := l.repo.BanUser(userID, reason, adminID); err != nil {
		l.logger.Error("Failed to ban user ", "user ", userID, " error ", err)
		return false
	}
	return true
}

func (l *Ledger) Unban(userID int64) bool {
	removed, err := l.repo.UnbanUser(userID)
	if err != nil {
		l.logger.Error("Failed to unban user ", "user ", userID, " error ", err)
		return false
	}
	return removed
}

func (l *Ledger) Grant(userID int64, days int) bool {
	if days <= 0 {
		return false
	}
	if err := l.repo.AddSubscription(userID, days); err != nil {
		l.logger.Error("Failed to grant subscription ", "user ", userID, " error ", err)
		return false
	}
	return true
}

func (l *Ledger) Revoke(userID int64) bool {
	removed, err := l.repo.RemoveSubscription(userID)
	if err != nil {
		l.logger.Error("Failed to revoke subscription ", "user ", userID, " error ", err)
		return false
	}
	return removed
}

func (l *Ledger) HasActiveSubscription(userID int64) bool {
	active, _ := l.Status(userID)
	return active
}

// Status reports whether the subscription is active and a human-readable
// remaining-time label, bucketed into months, days, hours or minutes.
func (l *Ledger) Status(userID int64) (bool, string) {
	sub, err := l.repo.GetSubscription(userID)
	if err != nil {
		l.logger.Error("Failed to get subscription ", "user ", userID, " error ", err)
		return false, "Истекла"
	}
	if sub == nil || sub.SubscriptionEnds == nil {
		return false, "Истекла"
	}
	return StatusLabel(*sub.SubscriptionEnds, time.Now())
}

// StatusLabel formats the remaining duration until end relative to now.
func StatusLabel(end, now time.Time) (bool, string) {
	if !end.After(now) {
		return false, "Истекла"
	}

	delta := end.Sub(now)
	days := int(delta.Hours()) / 24
	switch {
	case days > 30:
		return true, fmt.Sprintf("Активна (%d мес.)", days/30)
	case days > 0:
		return true, fmt.Sprintf("Активна (%d дн.)", days)
	case delta >= time.Hour:
		return true, fmt.Sprintf("Активна (%d ч.)", int(delta.Hours()))
	default:
		return true, fmt.Sprintf("Активна (%d мин.)", int(delta.Minutes()))
	}
}

// GeneratePromoCode returns a random code from the promo alphabet.
func GeneratePromoCode() string {
	code := make([]byte, promoCodeLength)
	for i := range code {
		code[i] = promoCodeAlphabet[rand.Intn(len(promoCodeAlphabet))]
	}
	return string(code)
}

// CreatePromo inserts a new promo code valid for validDays from now.
// Fails without a partial write when the code already exists or the inputs
// are not positive.
func (l *Ledger) CreatePromo(code string, days, maxUses int, createdBy int64, validDays int) bool {
	if code == "" || days <= 0 || maxUses <= 0 || validDays <= 0 {
		return false
	}
	now := time.Now()
	promo := &models.PromoCode{
		Code:      code,
		Days:      days,
		MaxUses:   maxUses,
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(validDays) * 24 * time.Hour),
	}
	if err := l.repo.CreatePromoCode(promo); err != nil {
		l.logger.Error("Failed to create promo code ", "code ", code, " error ", err)
		return false
	}
	return true
}

// Redeem atomically consumes one use of the code and grants its days.
func (l *Ledger) Redeem(code string, userID int64) bool {
	ok, err := l.repo.RedeemPromoCode(code, userID, time.Now())
	if err != nil {
		l.logger.Error("Failed to redeem promo code ", "code ", code, " user ", userID, " error ", err)
		return false
	}
	return ok
}

// SweepExpired deletes promo codes past their expiry and returns the count.
func (l *Ledger) SweepExpired() int64 {
	count, err := l.repo.DeleteExpiredPromoCodes(time.Now())
	if err != nil {
		l.logger.Error("Failed to sweep expired promo codes ", "error ", err)
		return 0
	}
	if count > 0 {
		l.logger.Info("Swept expired promo codes ", "count ", count)
	}
	return count
}
