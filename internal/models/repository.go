package models

import "time"

// Repository is the transactional contract of the ledger store. Every
// mutation is a single atomic transaction boundary: no caller may observe a
// partially-applied promo redemption or subscription write.
type Repository interface {
	// Admins
	IsAdmin(userID int64) (bool, error)
	GetUsername(userID int64) (string, error)

	// Bans
	IsBanned(userID int64) (bool, error)
	GetBanInfo(userID int64) (*Ban, error)
	BanUser(userID int64, reason string, adminID int64) error
	UnbanUser(userID int64) (bool, error)

	// Subscriptions
	GetSubscription(userID int64) (*Subscription, error)
	AddSubscription(userID int64, days int) error
	RemoveSubscription(userID int64) (bool, error)

	// Promo codes
	CreatePromoCode(code *PromoCode) error
	GetPromoCode(code string) (*PromoCode, error)
	RedeemPromoCode(code string, userID int64, now time.Time) (bool, error)
	DeleteExpiredPromoCodes(now time.Time) (int64, error)

	Close() error
}
