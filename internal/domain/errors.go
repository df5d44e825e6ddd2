package domain

import "regexp"

// assetCodePattern matches spec.md §6's asset-code validation rule.
var assetCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// ErrValidation is a typed input-validation error (spec §7: "4xx to caller,
// no side effects"). Request-scoped callers branch on Field/Msg; it carries
// no HTTP status itself since routing is out of scope (spec §1).
type ErrValidation struct {
	Field string
	Msg   string
}

func (e ErrValidation) Error() string { return e.Field + ": " + e.Msg }

// ErrAssetConflict is returned when activating a strategy would overlap
// assets with another already-active strategy on the same exchange (spec §6
// boundary scenario 6).
type ErrAssetConflict struct {
	Asset              string
	ConflictingStrategyID int64
}

func (e ErrAssetConflict) Error() string {
	return "asset " + e.Asset + " already traded by active strategy"
}

// ErrAuthorization is returned when a position/strategy isn't owned by the
// caller (spec §7: "403, no side effects").
type ErrAuthorization struct {
	Msg string
}

func (e ErrAuthorization) Error() string { return e.Msg }

// APICode is a stable string code surfaced to request-scoped callers (spec §7).
type APICode string

const (
	CodeInsufficientBalance  APICode = "INSUFFICIENT_BALANCE"
	CodeAmountBelowMin       APICode = "AMOUNT_BELOW_MIN"
	CodeAmountAboveMax       APICode = "AMOUNT_ABOVE_MAX"
	CodeConfirmationRequired APICode = "CONFIRMATION_REQUIRED"
	CodeAlreadyClosing       APICode = "ALREADY_CLOSING"
	CodeAlreadyClosed        APICode = "ALREADY_CLOSED"
	CodeProfitBelowThreshold APICode = "PROFIT_BELOW_THRESHOLD"
	CodeVenueBusy            APICode = "VENUE_BUSY"
	CodeCooldownActive       APICode = "COOLDOWN_ACTIVE"
)

// APIError is a stable, typed error for request-scoped operations (spec §7).
type APIError struct {
	Code    APICode
	Message string
}

func (e APIError) Error() string { return string(e.Code) + ": " + e.Message }

// NewAPIError builds an APIError from a stable code and a caller-supplied
// message, matching the boundary scenarios in spec §8.5.
func NewAPIError(code APICode, message string) APIError {
	return APIError{Code: code, Message: message}
}
