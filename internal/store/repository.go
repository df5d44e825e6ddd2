package store

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository bundles every table this module owns behind one gorm.DB handle.
// Credentials are encrypted at rest with an AES-GCM key the caller supplies
// (spec §9: "never persist plaintext credentials").
type Repository struct {
	db         *gorm.DB
	credKey    []byte // 32-byte AES-256 key, may be nil in tests using plaintext fallback
}

// New wraps an already-connected *gorm.DB. credKey may be nil, in which case
// credential fields are stored as-is (acceptable only for local/dev use;
// cmd/server reads the key from CREDENTIAL_ENCRYPTION_KEY and passes nil when
// that variable is unset or not exactly 32 bytes).
func New(db *gorm.DB, credKey []byte) *Repository {
	return &Repository{db: db, credKey: credKey}
}

// --- Strategies ---------------------------------------------------------

func toStrategyRow(s domain.Strategy) (StrategyRow, error) {
	indicatorsJSON, err := json.Marshal(s.EntryIndicators)
	if err != nil {
		return StrategyRow{}, err
	}
	return StrategyRow{
		ID:               s.ID,
		UserID:           s.UserID,
		Exchange:         s.Exchange,
		Name:             s.Name,
		AssetsCSV:        strings.Join(s.Assets, ","),
		EntryIndicators:  string(indicatorsJSON),
		EntryLogic:       string(s.EntryLogic),
		TakeProfitPct:    s.ExitRules.TakeProfitPercent.String(),
		StopLossPct:      s.ExitRules.StopLossPercent.String(),
		MaxHoldHours:     s.ExitRules.MaxHoldHours.String(),
		TakeProfitMode:   string(s.ExitRules.TakeProfitMode),
		Timeframe:        string(s.Timeframe),
		MaxTradeAmount:   s.MaxTradeAmount.String(),
		MaxOpenPositions: s.MaxOpenPositions,
		IsActive:         s.IsActive,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}, nil
}

func fromStrategyRow(r StrategyRow) (domain.Strategy, error) {
	var indicators map[string]domain.IndicatorConfig
	if r.EntryIndicators != "" {
		if err := json.Unmarshal([]byte(r.EntryIndicators), &indicators); err != nil {
			return domain.Strategy{}, err
		}
	}
	var assets []string
	if r.AssetsCSV != "" {
		assets = strings.Split(r.AssetsCSV, ",")
	}
	return domain.Strategy{
		ID:              r.ID,
		UserID:          r.UserID,
		Exchange:        r.Exchange,
		Name:            r.Name,
		Assets:          assets,
		EntryIndicators: indicators,
		EntryLogic:      domain.EntryLogic(r.EntryLogic),
		ExitRules: domain.ExitRules{
			TakeProfitPercent: parseDecOrZero(r.TakeProfitPct),
			StopLossPercent:   parseDecOrZero(r.StopLossPct),
			MaxHoldHours:      parseDecOrZero(r.MaxHoldHours),
			TakeProfitMode:    domain.TakeProfitMode(r.TakeProfitMode),
		},
		Timeframe:        domain.Interval(r.Timeframe),
		MaxTradeAmount:   parseDecOrZero(r.MaxTradeAmount),
		MaxOpenPositions: r.MaxOpenPositions,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

func parseDecOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CreateStrategy inserts a new strategy row.
func (r *Repository) CreateStrategy(ctx context.Context, s domain.Strategy) (int64, error) {
	row, err := toStrategyRow(s)
	if err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// UpdateStrategy overwrites an existing strategy row by ID.
func (r *Repository) UpdateStrategy(ctx context.Context, s domain.Strategy) error {
	row, err := toStrategyRow(s)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&StrategyRow{}).Where("id = ?", s.ID).Updates(&row).Error
}

// DeleteStrategy removes a strategy by ID.
func (r *Repository) DeleteStrategy(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&StrategyRow{}, id).Error
}

// GetStrategy loads one strategy by ID.
func (r *Repository) GetStrategy(ctx context.Context, id int64) (domain.Strategy, error) {
	var row StrategyRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.Strategy{}, err
	}
	return fromStrategyRow(row)
}

// ListStrategies returns every strategy for a user, optionally filtered to
// one exchange (empty string means all exchanges).
func (r *Repository) ListStrategies(ctx context.Context, userID int64, exchangeName string) ([]domain.Strategy, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if exchangeName != "" {
		q = q.Where("exchange = ?", exchangeName)
	}
	var rows []StrategyRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Strategy, 0, len(rows))
	for _, row := range rows {
		s, err := fromStrategyRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ListActiveStrategies returns every is_active strategy across every user,
// ordered (user_id, exchange, id) per spec §4.3 step 1.
func (r *Repository) ListActiveStrategies(ctx context.Context) ([]domain.Strategy, error) {
	var rows []StrategyRow
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("user_id, exchange, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Strategy, 0, len(rows))
	for _, row := range rows {
		s, err := fromStrategyRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SetStrategyActive flips is_active, used by the /strategies/:id/toggle
// endpoint after the caller has checked asset-disjointness.
func (r *Repository) SetStrategyActive(ctx context.Context, id int64, active bool) error {
	return r.db.WithContext(ctx).Model(&StrategyRow{}).Where("id = ?", id).Update("is_active", active).Error
}

// --- Positions -----------------------------------------------------------

func toPositionRow(p domain.Position) (PositionRow, error) {
	signalsJSON, err := json.Marshal(p.EntrySignals)
	if err != nil {
		return PositionRow{}, err
	}
	var exitTime *time.Time
	if !p.ExitTime.IsZero() {
		t := p.ExitTime
		exitTime = &t
	}
	return PositionRow{
		ID:             p.ID,
		UserID:         p.UserID,
		StrategyID:     p.StrategyID,
		Exchange:       p.Exchange,
		Asset:          p.Asset,
		Pair:           p.Pair,
		Status:         string(p.Status),
		EntryPrice:     p.EntryPrice.String(),
		EntryQuantity:  p.EntryQuantity.String(),
		EntryValue:     p.EntryValue.String(),
		EntryFee:       p.EntryFee.String(),
		EntryTime:      p.EntryTime,
		EntrySignals:   string(signalsJSON),
		EntryOrderID:   p.EntryOrderID,
		ExitPrice:      p.ExitPrice.String(),
		ExitQuantity:   p.ExitQuantity.String(),
		ExitFee:        p.ExitFee.String(),
		ExitTime:       exitTime,
		ExitReason:     string(p.ExitReason),
		ExitOrderID:    p.ExitOrderID,
		ExitPnL:        p.ExitPnL.String(),
		ExitPnLPercent: p.ExitPnLPercent.String(),
	}, nil
}

func fromPositionRow(row PositionRow) (domain.Position, error) {
	var signals []domain.EntrySignal
	if row.EntrySignals != "" {
		if err := json.Unmarshal([]byte(row.EntrySignals), &signals); err != nil {
			return domain.Position{}, err
		}
	}
	var exitTime time.Time
	if row.ExitTime != nil {
		exitTime = *row.ExitTime
	}
	return domain.Position{
		ID:             row.ID,
		UserID:         row.UserID,
		StrategyID:     row.StrategyID,
		Exchange:       row.Exchange,
		Asset:          row.Asset,
		Pair:           row.Pair,
		Status:         domain.PositionStatus(row.Status),
		EntryPrice:     parseDecOrZero(row.EntryPrice),
		EntryQuantity:  parseDecOrZero(row.EntryQuantity),
		EntryValue:     parseDecOrZero(row.EntryValue),
		EntryFee:       parseDecOrZero(row.EntryFee),
		EntryTime:      row.EntryTime,
		EntrySignals:   signals,
		EntryOrderID:   row.EntryOrderID,
		ExitPrice:      parseDecOrZero(row.ExitPrice),
		ExitQuantity:   parseDecOrZero(row.ExitQuantity),
		ExitFee:        parseDecOrZero(row.ExitFee),
		ExitTime:       exitTime,
		ExitReason:     domain.ExitReason(row.ExitReason),
		ExitOrderID:    row.ExitOrderID,
		ExitPnL:        parseDecOrZero(row.ExitPnL),
		ExitPnLPercent: parseDecOrZero(row.ExitPnLPercent),
	}, nil
}

// CreatePosition inserts a new OPEN position row (spec §4.4 step 2).
func (r *Repository) CreatePosition(ctx context.Context, p domain.Position) (int64, error) {
	row, err := toPositionRow(p)
	if err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

// GetPosition loads one position by ID.
func (r *Repository) GetPosition(ctx context.Context, id int64) (domain.Position, error) {
	var row PositionRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.Position{}, err
	}
	return fromPositionRow(row)
}

// ListPositions returns open and closed positions for (userID, exchange).
func (r *Repository) ListPositions(ctx context.Context, userID int64, exchangeName string) (open, closed []domain.Position, err error) {
	var rows []PositionRow
	q := r.db.WithContext(ctx).Where("user_id = ? AND exchange = ?", userID, exchangeName)
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	for _, row := range rows {
		p, err := fromPositionRow(row)
		if err != nil {
			return nil, nil, err
		}
		if p.Status == domain.PositionClosed {
			closed = append(closed, p)
		} else {
			open = append(open, p)
		}
	}
	return open, closed, nil
}

// ListOpenPositions returns every OPEN position for (userID, exchange), the
// set PositionMonitor iterates each cycle (spec §4.3 step 3).
func (r *Repository) ListOpenPositions(ctx context.Context, userID int64, exchangeName string) ([]domain.Position, error) {
	var rows []PositionRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND exchange = ? AND status = ?", userID, exchangeName, string(domain.PositionOpen)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Position, 0, len(rows))
	for _, row := range rows {
		p, err := fromPositionRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CountOpenPositions supports the max_open_positions cap check.
func (r *Repository) CountOpenPositions(ctx context.Context, strategyID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&PositionRow{}).
		Where("strategy_id = ? AND status = ?", strategyID, string(domain.PositionOpen)).
		Count(&n).Error
	return n, err
}

// ErrAlreadyClaimed is returned by MarkClosing when the position was not in
// OPEN status at the time of the conditional update — i.e. it was already
// claimed by another task (spec §4.4's at-most-once-close linearization).
var ErrAlreadyClaimed = errors.New("store: position already claiming or closed")

// MarkClosing performs the linearization point of the three-step close
// protocol: an UPDATE ... WHERE status = 'OPEN' whose affected-row-count is
// checked directly, never a read-then-write race (spec §4.4, §9).
func (r *Repository) MarkClosing(ctx context.Context, positionID int64) error {
	result := r.db.WithContext(ctx).Model(&PositionRow{}).
		Where("id = ? AND status = ?", positionID, string(domain.PositionOpen)).
		Update("status", string(domain.PositionClosing))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyClaimed
	}
	return nil
}

// FinalizeClose transitions CLOSING -> CLOSED with the exit fields (spec
// §4.4 step 3). The WHERE clause still guards against a concurrent
// double-finalise, though MarkClosing already made this task the sole owner.
func (r *Repository) FinalizeClose(ctx context.Context, p domain.Position) error {
	row, err := toPositionRow(p)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&PositionRow{}).
		Where("id = ? AND status = ?", p.ID, string(domain.PositionClosing)).
		Updates(map[string]interface{}{
			"status":           string(domain.PositionClosed),
			"exit_price":       row.ExitPrice,
			"exit_quantity":    row.ExitQuantity,
			"exit_fee":         row.ExitFee,
			"exit_time":        row.ExitTime,
			"exit_reason":      row.ExitReason,
			"exit_order_id":    row.ExitOrderID,
			"exit_pnl":         row.ExitPnL,
			"exit_pnl_percent": row.ExitPnLPercent,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: position %d not in CLOSING state, cannot finalize", p.ID)
	}
	return nil
}

// ForceCloseOrphaned finalizes a CLOSING position directly, for the recovery
// endpoint that handles a crash between steps 2 and 3 (spec §4.4).
func (r *Repository) ForceCloseOrphaned(ctx context.Context, p domain.Position) error {
	row, err := toPositionRow(p)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&PositionRow{}).
		Where("id = ? AND status = ?", p.ID, string(domain.PositionClosing)).
		Updates(map[string]interface{}{
			"status":           string(domain.PositionClosed),
			"exit_price":       row.ExitPrice,
			"exit_quantity":    row.ExitQuantity,
			"exit_fee":         row.ExitFee,
			"exit_time":        row.ExitTime,
			"exit_reason":      string(domain.ExitManualRecovery),
			"exit_order_id":    row.ExitOrderID,
			"exit_pnl":         row.ExitPnL,
			"exit_pnl_percent": row.ExitPnLPercent,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: position %d not in CLOSING state, cannot force-close", p.ID)
	}
	return nil
}

// --- Credentials (encrypted at rest) -------------------------------------

func (r *Repository) encrypt(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	if len(r.credKey) == 0 {
		return []byte(plaintext), nil
	}
	block, err := aes.NewCipher(r.credKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (r *Repository) decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", nil
	}
	if len(r.credKey) == 0 {
		return string(ciphertext), nil
	}
	block, err := aes.NewCipher(r.credKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", errors.New("store: ciphertext too short")
	}
	nonce, data := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plain, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// SaveCredentials upserts a user's per-exchange API credentials, encrypting
// every secret field before it touches the database.
func (r *Repository) SaveCredentials(ctx context.Context, c domain.Credentials) error {
	keyEnc, err := r.encrypt(c.APIKey)
	if err != nil {
		return err
	}
	secretEnc, err := r.encrypt(c.APISecret)
	if err != nil {
		return err
	}
	passEnc, err := r.encrypt(c.Passphrase)
	if err != nil {
		return err
	}
	memoEnc, err := r.encrypt(c.Memo)
	if err != nil {
		return err
	}
	row := CredentialsRow{
		UserID:        c.UserID,
		Exchange:      c.Exchange,
		APIKeyEnc:     keyEnc,
		APISecretEnc:  secretEnc,
		PassphraseEnc: passEnc,
		MemoEnc:       memoEnc,
		IsConnected:   true,
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND exchange = ?", c.UserID, c.Exchange).
		Assign(row).
		FirstOrCreate(&row).Error
}

// LoadCredentials decrypts and returns a user's credentials for exchangeName.
func (r *Repository) LoadCredentials(ctx context.Context, userID int64, exchangeName string) (domain.Credentials, error) {
	var row CredentialsRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND exchange = ?", userID, exchangeName).
		First(&row).Error
	if err != nil {
		return domain.Credentials{}, err
	}
	apiKey, err := r.decrypt(row.APIKeyEnc)
	if err != nil {
		return domain.Credentials{}, err
	}
	apiSecret, err := r.decrypt(row.APISecretEnc)
	if err != nil {
		return domain.Credentials{}, err
	}
	passphrase, err := r.decrypt(row.PassphraseEnc)
	if err != nil {
		return domain.Credentials{}, err
	}
	memo, err := r.decrypt(row.MemoEnc)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{
		UserID:      userID,
		Exchange:    exchangeName,
		APIKey:      apiKey,
		APISecret:   apiSecret,
		Passphrase:  passphrase,
		Memo:        memo,
		IsConnected: row.IsConnected,
	}, nil
}

// --- Balances --------------------------------------------------------

// UpsertBalance writes a (user, exchange, asset) balance row.
func (r *Repository) UpsertBalance(ctx context.Context, b domain.Balance) error {
	row := BalanceRow{
		UserID:         b.UserID,
		Exchange:       b.Exchange,
		Asset:          b.Asset,
		Available:      b.Available.String(),
		Locked:         b.Locked.String(),
		InitialBalance: b.InitialBalance.String(),
		LastSyncedAt:   b.LastSyncedAt,
		SyncSource:     string(b.SyncSource),
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND exchange = ? AND asset = ?", b.UserID, b.Exchange, b.Asset).
		Assign(map[string]interface{}{
			"available":       row.Available,
			"locked":          row.Locked,
			"initial_balance": row.InitialBalance,
			"last_synced_at":  row.LastSyncedAt,
			"sync_source":     row.SyncSource,
		}).
		FirstOrCreate(&row).Error
}

// GetBalance loads one (user, exchange, asset) balance.
func (r *Repository) GetBalance(ctx context.Context, userID int64, exchangeName, asset string) (domain.Balance, error) {
	var row BalanceRow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND exchange = ? AND asset = ?", userID, exchangeName, asset).
		First(&row).Error
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{
		UserID:         userID,
		Exchange:       exchangeName,
		Asset:          asset,
		Available:      parseDecOrZero(row.Available),
		Locked:         parseDecOrZero(row.Locked),
		InitialBalance: parseDecOrZero(row.InitialBalance),
		LastSyncedAt:   row.LastSyncedAt,
		SyncSource:     domain.SyncSource(row.SyncSource),
	}, nil
}

// ErrInsufficientBalance is returned by LockBalance when the conditional
// UPDATE finds available < amount at the instant it runs.
var ErrInsufficientBalance = errors.New("store: insufficient available balance to lock")

// LockBalance performs the atomic conditional update domain.Balance.Lock
// describes as an in-memory operation: available -= amount, locked +=
// amount, guarded by available >= amount in the same UPDATE statement so two
// concurrent lock attempts against the same row can't both succeed (spec
// §3), mirroring MarkClosing's affected-row-count linearization rather than
// a read-then-write race.
func (r *Repository) LockBalance(ctx context.Context, userID int64, exchangeName, asset string, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&BalanceRow{}).
		Where("user_id = ? AND exchange = ? AND asset = ? AND available::numeric >= ?", userID, exchangeName, asset, amount.String()).
		Updates(map[string]interface{}{
			"available": gorm.Expr("(available::numeric - ?)::text", amount.String()),
			"locked":    gorm.Expr("(locked::numeric + ?)::text", amount.String()),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// ErrInsufficientLocked is returned by UnlockBalance when the conditional
// UPDATE finds locked < amount, the symmetric guard to ErrInsufficientBalance.
var ErrInsufficientLocked = errors.New("store: insufficient locked balance to unlock")

// UnlockBalance performs the symmetric atomic conditional update: locked -=
// amount, available += amount, guarded by locked >= amount.
func (r *Repository) UnlockBalance(ctx context.Context, userID int64, exchangeName, asset string, amount decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&BalanceRow{}).
		Where("user_id = ? AND exchange = ? AND asset = ? AND locked::numeric >= ?", userID, exchangeName, asset, amount.String()).
		Updates(map[string]interface{}{
			"locked":    gorm.Expr("(locked::numeric - ?)::text", amount.String()),
			"available": gorm.Expr("(available::numeric + ?)::text", amount.String()),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientLocked
	}
	return nil
}
