package httpapi

import (
	"errors"
	"net/http"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/chidi150c/tradebackend/internal/store"
)

// classifyError maps the module's typed errors to an HTTP status and a
// stable code string (spec §7's error taxonomy).
func classifyError(err error) (int, string) {
	var valErr domain.ErrValidation
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR"
	}
	var authErr domain.ErrAuthorization
	if errors.As(err, &authErr) {
		return http.StatusForbidden, "AUTHORIZATION_ERROR"
	}
	var conflictErr domain.ErrAssetConflict
	if errors.As(err, &conflictErr) {
		return http.StatusConflict, "ASSET_CONFLICT"
	}
	var apiErr domain.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case domain.CodeInsufficientBalance, domain.CodeAmountBelowMin, domain.CodeAmountAboveMax, domain.CodeConfirmationRequired, domain.CodeProfitBelowThreshold:
			return http.StatusUnprocessableEntity, string(apiErr.Code)
		case domain.CodeVenueBusy, domain.CodeCooldownActive:
			return http.StatusTooManyRequests, string(apiErr.Code)
		case domain.CodeAlreadyClosing, domain.CodeAlreadyClosed:
			return http.StatusConflict, string(apiErr.Code)
		default:
			return http.StatusBadRequest, string(apiErr.Code)
		}
	}
	if errors.Is(err, store.ErrAlreadyClaimed) {
		return http.StatusConflict, string(domain.CodeAlreadyClosing)
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
