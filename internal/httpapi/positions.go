package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

type createPositionRequest struct {
	UserID        int64           `json:"userId"`
	StrategyID    int64           `json:"strategyId"`
	Exchange      string          `json:"exchange"`
	Asset         string          `json:"asset"`
	Pair          string          `json:"pair"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	EntryQuantity decimal.Decimal `json:"entryQuantity"`
	EntryValue    decimal.Decimal `json:"entryValue"`
	EntryFee      decimal.Decimal `json:"entryFee"`
	EntryOrderID  string          `json:"entryOrderId"`
}

// handleCreatePosition persists a position after a caller has already
// executed the buy itself (spec §6: "POST /positions (after successful buy)").
func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req createPositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	pos := domain.Position{
		UserID:        req.UserID,
		StrategyID:    req.StrategyID,
		Exchange:      req.Exchange,
		Asset:         req.Asset,
		Pair:          req.Pair,
		Status:        domain.PositionOpen,
		EntryPrice:    req.EntryPrice,
		EntryQuantity: req.EntryQuantity,
		EntryValue:    req.EntryValue,
		EntryFee:      req.EntryFee,
		EntryTime:     time.Now(),
		EntryOrderID:  req.EntryOrderID,
	}
	id, err := s.repo.CreatePosition(requestContext(r), pos)
	if err != nil {
		writeError(w, err)
		return
	}
	pos.ID = id
	writeJSON(w, http.StatusCreated, pos)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	exchangeName := r.URL.Query().Get("exchange")
	open, closed, err := s.repo.ListPositions(requestContext(r), userID, exchangeName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"open": open, "closed": closed})
}

// handleManualClose submits a real market sell for an OPEN position (spec
// §6: "POST /positions/:id/close (manual close: submits real sell)"),
// running the same three-step at-most-once close protocol the worker uses.
func (s *Server) handleManualClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	var body credentialsDTO
	_ = decodeJSON(r, &body)

	ctx := requestContext(r)
	pos, err := s.repo.GetPosition(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.monitor.ManualClose(ctx, pos, credentialsFromBody(body)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closing"})
}

type finalizeCloseRequest struct {
	ExitPrice    decimal.Decimal   `json:"exitPrice"`
	ExitQuantity decimal.Decimal   `json:"exitQuantity"`
	ExitFee      decimal.Decimal   `json:"exitFee"`
	ExitOrderID  string            `json:"exitOrderId"`
	ExitReason   domain.ExitReason `json:"exitReason"`
}

// handleFinalizeClose is the worker-side post-sell finalisation endpoint
// (spec §6: "PUT /positions/:id/close (post-sell finalisation by worker)"):
// the sell has already happened; this just transitions CLOSING -> CLOSED.
func (s *Server) handleFinalizeClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	var req finalizeCloseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	ctx := requestContext(r)
	pos, err := s.repo.GetPosition(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	pos.ExitPrice = req.ExitPrice
	pos.ExitQuantity = req.ExitQuantity
	pos.ExitFee = req.ExitFee
	pos.ExitOrderID = req.ExitOrderID
	pos.ExitReason = req.ExitReason
	pos.ExitTime = time.Now()
	pos.ComputeExitPnL()

	if err := s.repo.FinalizeClose(ctx, pos); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// handleMarkClosing runs the linearisation-point conditional update in
// isolation, for callers that want to claim a position before submitting
// their own sell (spec §6: "PUT /positions/:id/mark-closing").
func (s *Server) handleMarkClosing(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	if err := s.repo.MarkClosing(requestContext(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closing"})
}

type forceCloseRequest struct {
	ExitPrice    decimal.Decimal `json:"exitPrice"`
	ExitQuantity decimal.Decimal `json:"exitQuantity"`
	ExitFee      decimal.Decimal `json:"exitFee"`
	ExitOrderID  string          `json:"exitOrderId"`
}

// handleForceClose is the crash-recovery endpoint for a position orphaned in
// CLOSING between the sell and the finalise (spec §4.4/§6).
func (s *Server) handleForceClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	var req forceCloseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	ctx := requestContext(r)
	pos, err := s.repo.GetPosition(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	pos.ExitPrice = req.ExitPrice
	pos.ExitQuantity = req.ExitQuantity
	pos.ExitFee = req.ExitFee
	pos.ExitOrderID = req.ExitOrderID
	pos.ExitTime = time.Now()
	pos.ComputeExitPnL()

	if err := s.repo.ForceCloseOrphaned(ctx, pos); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}
