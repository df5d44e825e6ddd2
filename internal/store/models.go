// Package store persists the domain model with gorm + postgres, generalizing
// the teacher's config-driven setup to the relational schema spec §6
// describes: momentum_strategies, momentum_positions, momentum_credentials,
// currency_swap_asset_declarations, currency_swap_balances.
package store

import (
	"time"

	"gorm.io/gorm"
)

// StrategyRow is the gorm model for momentum_strategies.
type StrategyRow struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	UserID           int64  `gorm:"index:idx_strategies_user_exchange"`
	Exchange         string `gorm:"index:idx_strategies_user_exchange"`
	Name             string
	AssetsCSV        string `gorm:"column:assets"`
	EntryIndicators  string `gorm:"type:jsonb"`
	EntryLogic       string
	TakeProfitPct    string
	StopLossPct      string
	MaxHoldHours     string
	TakeProfitMode   string
	Timeframe        string
	MaxTradeAmount   string
	MaxOpenPositions int `gorm:"check:max_open_positions <= 1"`
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (StrategyRow) TableName() string { return "momentum_strategies" }

// PositionRow is the gorm model for momentum_positions.
type PositionRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	UserID        int64  `gorm:"index:idx_positions_user_exchange"`
	StrategyID    int64  `gorm:"index"`
	Exchange      string `gorm:"index:idx_positions_user_exchange"`
	Asset         string
	Pair          string
	Status        string `gorm:"index;check:status in ('OPEN','CLOSING','CLOSED')"`

	EntryPrice    string
	EntryQuantity string
	EntryValue    string
	EntryFee      string
	EntryTime     time.Time `gorm:"index"`
	EntrySignals  string    `gorm:"type:jsonb"`
	EntryOrderID  string

	ExitPrice      string
	ExitQuantity   string
	ExitFee        string
	ExitTime       *time.Time
	ExitReason     string
	ExitOrderID    string
	ExitPnL        string
	ExitPnLPercent string
}

func (PositionRow) TableName() string { return "momentum_positions" }

// CredentialsRow is the gorm model for momentum_credentials. Secrets are
// encrypted at rest by the store's Save/Load methods, never by the caller.
type CredentialsRow struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	UserID          int64  `gorm:"uniqueIndex:idx_creds_user_exchange"`
	Exchange        string `gorm:"uniqueIndex:idx_creds_user_exchange"`
	APIKeyEnc       []byte
	APISecretEnc    []byte
	PassphraseEnc   []byte
	MemoEnc         []byte
	IsConnected     bool
	LastConnectedAt *time.Time
}

func (CredentialsRow) TableName() string { return "momentum_credentials" }

// AssetDeclarationRow is the gorm model for currency_swap_asset_declarations.
type AssetDeclarationRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	UserID       int64  `gorm:"uniqueIndex:idx_assetdecl_user_exchange"`
	Exchange     string `gorm:"uniqueIndex:idx_assetdecl_user_exchange"`
	Asset        string
	Declared     bool
	LastSyncedAt time.Time
	SyncSource   string
}

func (AssetDeclarationRow) TableName() string { return "currency_swap_asset_declarations" }

// BalanceRow is the gorm model for currency_swap_balances. TotalBalance is a
// database-generated column (available + locked), never written directly.
type BalanceRow struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	UserID         int64  `gorm:"uniqueIndex:idx_balances_user_exchange_asset"`
	Exchange       string `gorm:"uniqueIndex:idx_balances_user_exchange_asset"`
	Asset          string `gorm:"uniqueIndex:idx_balances_user_exchange_asset"`
	Available      string
	Locked         string
	TotalBalance   string `gorm:"->;type:numeric GENERATED ALWAYS AS ((available::numeric) + (locked::numeric)) STORED"`
	InitialBalance string
	LastSyncedAt   time.Time
	SyncSource     string
}

func (BalanceRow) TableName() string { return "currency_swap_balances" }

// AutoMigrate creates/updates every table this package owns. Called from
// cmd/server's "migrate" subcommand, and also at "serve" startup, where a
// failure is logged and boot continues.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&StrategyRow{},
		&PositionRow{},
		&CredentialsRow{},
		&AssetDeclarationRow{},
		&BalanceRow{},
	)
}
