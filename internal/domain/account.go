package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credentials is a user's API credential set for one exchange (spec §3).
// Values here are the decrypted plaintext form; internal/store is
// responsible for the at-rest encryption and never returns secrets from a
// read API except as presence flags.
type Credentials struct {
	UserID         int64
	Exchange       string
	APIKey         string
	APISecret      string
	Passphrase     string
	Memo           string
	IsConnected    bool
	LastConnectedAt time.Time
}

// SyncSource records where a Balance's numbers came from (spec §3).
type SyncSource string

const (
	SyncSourceAPI        SyncSource = "api"
	SyncSourceManual     SyncSource = "manual"
	SyncSourceCalculated SyncSource = "calculated"
)

// AssetDeclaration is a user's declared funded asset on an exchange (spec §3).
type AssetDeclaration struct {
	UserID         int64
	Exchange       string
	Asset          string
	Declared       bool
	LastSyncedAt   time.Time
	SyncSource     SyncSource
}

// Balance tracks available/locked/total for one user x exchange x asset
// (spec §3). Total is a derived value, matching the store's generated column.
type Balance struct {
	UserID          int64
	Exchange        string
	Asset           string
	Available       decimal.Decimal
	Locked          decimal.Decimal
	InitialBalance  decimal.Decimal
	LastSyncedAt    time.Time
	SyncSource      SyncSource
}

// Total returns available + locked, the invariant spec §8 requires hold after
// every mutation.
func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Locked)
}

// Lock/Unlock are not domain methods: spec §3's available >= amount guard
// must be atomic against concurrent callers, which an in-memory struct
// mutation can't provide. internal/store.LockBalance/UnlockBalance perform
// the real conditional UPDATE against the persisted row.
