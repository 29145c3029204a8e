package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/aircrouching/delator/internal/errs"
	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, adminIDs []int64, logger *logger.Logger) (models.Repository, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	store, err := New(db, adminIDs, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return store, nil
}

// New wraps an already opened gorm connection, migrates the ledger tables
// and seeds the admin allow-list.
func New(db *gorm.DB, adminIDs []int64, logger *logger.Logger) (models.Repository, error) {
	if err := db.AutoMigrate(&models.Subscription{}, &models.Admin{}, &models.Ban{}, &models.PromoCode{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}

	for _, id := range adminIDs {
		admin := models.Admin{UserID: id, AddedAt: time.Now()}
		if err := db.Where("user_id = ?", id).FirstOrCreate(&admin).Error; err != nil {
			return nil, fmt.Errorf("failed to seed admin %d: %s", id, err)
		}
	}

	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) IsAdmin(userID int64) (bool, error) {
	var admin models.Admin
	if err := db.Conn.Where("user_id = ?", userID).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if user is admin: %s", err)
	}

	return true, nil
}

func (db *PostgresDB) GetUsername(userID int64) (string, error) {
	var admin models.Admin
	if err := db.Conn.Where("user_id = ?", userID).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get username: %s", err)
	}

	return admin.Username, nil
}

func (db *PostgresDB) IsBanned(userID int64) (bool, error) {
	var ban models.Ban
	if err := db.Conn.Where("user_id = ?", userID).First(&ban).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if user is banned: %s", err)
	}

	return true, nil
}

func (db *PostgresDB) GetBanInfo(userID int64) (*models.Ban, error) {
	var ban models.Ban
	if err := db.Conn.Where("user_id = ?", userID).First(&ban).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ban info: %s", err)
	}

	return &ban, nil
}

// BanUser upserts the ban row for the user; a repeated ban overwrites the
// previous reason and admin (last writer wins).
func (db *PostgresDB) BanUser(userID int64, reason string, adminID int64) error {
	ban := models.Ban{
		UserID:   userID,
		Reason:   reason,
		BannedAt: time.Now(),
		BannedBy: adminID,
	}
	if err := db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&ban).Error; err != nil {
		return fmt.Errorf("failed to ban user: %s", err)
	}
	return nil
}

func (db *PostgresDB) UnbanUser(userID int64) (bool, error) {
	res := db.Conn.Where("user_id = ?", userID).Delete(&models.Ban{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to unban user: %s", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (db *PostgresDB) GetSubscription(userID int64) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Conn.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %s", err)
	}

	return &sub, nil
}

func (db *PostgresDB) AddSubscription(userID int64, days int) error {
	return db.Conn.Transaction(func(tx *gorm.DB) error {
		return addSubscriptionTx(tx, userID, days, time.Now())
	})
}

// addSubscriptionTx applies the extension rule inside an open transaction:
// an active subscription is extended from its current end, anything else
// starts fresh from now.
func addSubscriptionTx(tx *gorm.DB, userID int64, days int, now time.Time) error {
	var sub models.Subscription
	err := tx.Where("user_id = ?", userID).First(&sub).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to get subscription: %s", err)
	}

	newEnd := now.Add(time.Duration(days) * 24 * time.Hour)
	if sub.SubscriptionEnds != nil && sub.SubscriptionEnds.After(now) {
		newEnd = sub.SubscriptionEnds.Add(time.Duration(days) * 24 * time.Hour)
	}

	row := models.Subscription{
		UserID:           userID,
		SubscriptionEnds: &newEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subscription_ends", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %s", err)
	}
	return nil
}

func (db *PostgresDB) RemoveSubscription(userID int64) (bool, error) {
	res := db.Conn.Where("user_id = ?", userID).Delete(&models.Subscription{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove subscription: %s", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (db *PostgresDB) CreatePromoCode(code *models.PromoCode) error {
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		var existing models.PromoCode
		err := tx.Where("code = ?", code.Code).First(&existing).Error
		if err == nil {
			return errs.ErrAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check promo code: %s", err)
		}
		return tx.Create(code).Error
	})
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create promo code: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetPromoCode(code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := db.Conn.Where("code = ?", code).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get promo code: %s", err)
	}

	return &promo, nil
}

// RedeemPromoCode consumes one use-slot of the code and grants the days to
// the user, as one transaction. The increment is conditioned on
// used_count < max_uses so only one of two racing redemptions can win the
// last slot; a failed grant rolls the increment back.
func (db *PostgresDB) RedeemPromoCode(code string, userID int64, now time.Time) (bool, error) {
	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PromoCode{}).
			Where("code = ? AND used_count < max_uses AND expires_at > ?", code, now).
			Update("used_count", gorm.Expr("used_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to increment promo code usage: %s", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.ErrNotRedeemable
		}

		var promo models.PromoCode
		if err := tx.Where("code = ?", code).First(&promo).Error; err != nil {
			return fmt.Errorf("failed to read promo code: %s", err)
		}

		return addSubscriptionTx(tx, userID, promo.Days, now)
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotRedeemable) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (db *PostgresDB) DeleteExpiredPromoCodes(now time.Time) (int64, error) {
	res := db.Conn.Where("expires_at < ?", now).Delete(&models.PromoCode{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired promo codes: %s", res.Error)
	}
	return res.RowsAffected, nil
}
