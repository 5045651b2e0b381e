package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint violation.
const pgUniqueViolation = "23505"

// GormRepository implements models.Repository on top of gorm.
// Conn is either the root connection or a transaction handle.
type GormRepository struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*GormRepository, error) {
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
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	repo, err := New(db, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to PostgreSQL")
	return repo, nil
}

// New migrates the schema on db and wraps it.
func New(db *gorm.DB, logger *logger.Logger) (*GormRepository, error) {
	if err := db.AutoMigrate(&models.DiscordUser{}, &models.Balance{}, &models.Transaction{}, &models.NotificationSetting{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	return &GormRepository{Conn: db, logger: logger}, nil
}

func (db *GormRepository) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %s", models.ErrPersistence, op, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (db *GormRepository) Transaction(ctx context.Context, fn func(tx models.Repository) error) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{Conn: tx, logger: db.logger})
	})
}

func (db *GormRepository) GetBalance(ctx context.Context, userID string) (models.Amount, error) {
	var balance models.Balance
	if err := db.Conn.WithContext(ctx).Where("discord_id = ?", userID).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, persistenceError("get balance", err)
	}
	return models.Amount(balance.Balance), nil
}

// Credit adds amount to the user's balance in one upsert, creating the row if needed.
func (db *GormRepository) Credit(ctx context.Context, userID string, amount models.Amount) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit of %d", models.ErrInvalidAmount, amount)
	}
	db.logger.Debug("Increasing balance", "discord_id", userID, "amount", amount.String())
	err := db.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "discord_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance": gorm.Expr("balance_vrsc.balance + ?", amount.Sats()),
		}),
	}).Create(&models.Balance{DiscordID: userID, Balance: amount.Sats()}).Error
	if err != nil {
		return persistenceError("increase balance", err)
	}
	return nil
}

// Debit subtracts amount+fee in a single conditional update.
// No row is touched when the balance does not cover it.
func (db *GormRepository) Debit(ctx context.Context, userID string, amount, fee models.Amount) error {
	if amount <= 0 || fee < 0 {
		return fmt.Errorf("%w: debit of %d with fee %d", models.ErrInvalidAmount, amount, fee)
	}
	total, err := amount.CheckedAdd(fee)
	if err != nil {
		return err
	}
	db.logger.Debug("Decreasing balance", "discord_id", userID, "amount", total.String())
	result := db.Conn.WithContext(ctx).
		Model(&models.Balance{}).
		Where("discord_id = ? AND balance >= ?", userID, total.Sats()).
		Update("balance", gorm.Expr("balance - ?", total.Sats()))
	if result.Error != nil {
		return persistenceError("decrease balance", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrInsufficientFunds
	}
	return nil
}

// DebitMany debits the sender by the sum of legs and credits every leg, all in one transaction.
func (db *GormRepository) DebitMany(ctx context.Context, senderID string, legs []models.Leg) error {
	if len(legs) == 0 {
		return fmt.Errorf("%w: no legs to credit", models.ErrInvalidAmount)
	}
	var total models.Amount
	for _, leg := range legs {
		if leg.Amount <= 0 {
			return fmt.Errorf("%w: leg of %d for %s", models.ErrInvalidAmount, leg.Amount, leg.UserID)
		}
		var err error
		if total, err = total.CheckedAdd(leg.Amount); err != nil {
			return err
		}
	}

	return db.Transaction(ctx, func(tx models.Repository) error {
		if err := tx.Debit(ctx, senderID, total, 0); err != nil {
			return err
		}
		for _, leg := range legs {
			if err := tx.Credit(ctx, leg.UserID, leg.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *GormRepository) GetAddress(ctx context.Context, userID string) (string, bool, error) {
	var user models.DiscordUser
	if err := db.Conn.WithContext(ctx).Where("discord_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, persistenceError("get address", err)
	}
	return user.VrscAddress, true, nil
}

func (db *GormRepository) GetUserByAddress(ctx context.Context, address string) (string, bool, error) {
	var user models.DiscordUser
	if err := db.Conn.WithContext(ctx).Where("vrsc_address = ?", address).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, persistenceError("get user by address", err)
	}
	return user.DiscordID, true, nil
}

// StoreNewAddress adds the address binding and a zero balance row in one go.
// An existing balance row (from tips received before the first deposit) is kept.
func (db *GormRepository) StoreNewAddress(ctx context.Context, userID, address string) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.DiscordUser{DiscordID: userID, VrscAddress: address}).Error; err != nil {
			if isUniqueViolation(err) {
				return models.ErrAddressAlreadyBound
			}
			return persistenceError("store new address", err)
		}
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Balance{DiscordID: userID}).Error
		if err != nil {
			return persistenceError("create balance", err)
		}
		return nil
	})
}

func (db *GormRepository) RecordTransactions(ctx context.Context, records ...*models.Transaction) error {
	if len(records) == 0 {
		return nil
	}
	if err := db.Conn.WithContext(ctx).CreateInBatches(records, 500).Error; err != nil {
		if isUniqueViolation(err) {
			return models.ErrDepositAlreadyProcessed
		}
		return persistenceError("store transactions", err)
	}
	return nil
}

func (db *GormRepository) IsDepositProcessed(ctx context.Context, txHash string) (bool, error) {
	var count int64
	err := db.Conn.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ? AND transaction_action = ?", txHash, models.ActionDeposit).
		Count(&count).Error
	if err != nil {
		return false, persistenceError("check deposit", err)
	}
	return count > 0, nil
}

func (db *GormRepository) GetTransactionsByEvent(ctx context.Context, eventID string) ([]*models.Transaction, error) {
	var records []*models.Transaction
	if err := db.Conn.WithContext(ctx).Where("uuid = ?", eventID).Order("id").Find(&records).Error; err != nil {
		return nil, persistenceError("get transactions", err)
	}
	return records, nil
}

// GetNotificationSettings returns a preference for every requested user,
// falling back to models.DefaultNotification.
func (db *GormRepository) GetNotificationSettings(ctx context.Context, userIDs []string) (map[string]models.NotificationPreference, error) {
	settings := make(map[string]models.NotificationPreference, len(userIDs))
	for _, id := range userIDs {
		settings[id] = models.DefaultNotification
	}
	if len(userIDs) == 0 {
		return settings, nil
	}
	var rows []*models.NotificationSetting
	if err := db.Conn.WithContext(ctx).Where("discord_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, persistenceError("get notification settings", err)
	}
	for _, row := range rows {
		settings[row.DiscordID] = row.Notification
	}
	return settings, nil
}

func (db *GormRepository) SetNotificationSetting(ctx context.Context, userID string, pref models.NotificationPreference) error {
	err := db.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "discord_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"notification"}),
	}).Create(&models.NotificationSetting{DiscordID: userID, Notification: pref}).Error
	if err != nil {
		return persistenceError("set notification setting", err)
	}
	return nil
}
