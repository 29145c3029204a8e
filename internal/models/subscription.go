package models

import "time"

// Subscription represents a user's time-bounded entitlement.
type Subscription struct {
	// UserID is the Telegram user the subscription belongs to.
	UserID int64 `json:"user_id" gorm:"column:user_id;primaryKey"`
	// SubscriptionEnds is the moment the entitlement expires. Nil or in the
	// past means the user has no active subscription.
	SubscriptionEnds *time.Time `json:"subscription_ends" gorm:"column:subscription_ends;index"`
	// CreatedAt is the date when the row was first created.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	// UpdatedAt is the date of the last grant or extension.
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Active reports whether the subscription is valid at the given moment.
func (s *Subscription) Active(now time.Time) bool {
	return s.SubscriptionEnds != nil && s.SubscriptionEnds.After(now)
}

// Admin represents a member of the static admin allow-list. Admins bypass
// ban checks and gate all privileged ledger operations.
type Admin struct {
	// UserID is the Telegram user ID of the admin.
	UserID int64 `json:"user_id" gorm:"column:user_id;primaryKey"`
	// Username is the admin's Telegram username, kept for display.
	Username string `json:"username" gorm:"column:username"`
	// AddedAt is the date when the admin was seeded.
	AddedAt time.Time `json:"added_at" gorm:"column:added_at"`
}

// Ban represents a blocked user. One row per user, last writer wins.
type Ban struct {
	// UserID is the banned Telegram user ID.
	UserID int64 `json:"user_id" gorm:"column:user_id;primaryKey"`
	// Reason is the human-readable ban reason shown to the user.
	Reason string `json:"reason" gorm:"column:reason"`
	// BannedAt is the date when the ban was applied.
	BannedAt time.Time `json:"banned_at" gorm:"column:banned_at"`
	// BannedBy is the admin who applied the ban.
	BannedBy int64 `json:"banned_by" gorm:"column:banned_by"`
}

func (Ban) TableName() string {
	return "banned_users"
}

// PromoCode represents a multi-use redemption code granting subscription days.
type PromoCode struct {
	// Code is the unique redemption code.
	Code string `json:"code" gorm:"column:code;primaryKey"`
	// Days is the number of subscription days one redemption grants.
	Days int `json:"days" gorm:"column:days;not null"`
	// MaxUses is the total number of redemptions allowed.
	MaxUses int `json:"max_uses" gorm:"column:max_uses;not null"`
	// UsedCount is the number of redemptions consumed so far.
	// Invariant: UsedCount <= MaxUses.
	UsedCount int `json:"used_count" gorm:"column:used_count;default:0"`
	// CreatedBy is the admin who created the code.
	CreatedBy int64 `json:"created_by" gorm:"column:created_by;not null"`
	// CreatedAt is the date when the code was created.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	// ExpiresAt is the moment the code stops being redeemable. An expired
	// code stays readable for audit until swept.
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;index"`
}
