package httpapi

import (
	"net/http"

	"github.com/chidi150c/tradebackend/internal/triarb"
	"github.com/shopspring/decimal"
)

type triarbScanRequest struct {
	Exchange        string          `json:"exchange"`
	PathSet         string          `json:"paths"`
	Amount          decimal.Decimal `json:"amount"`
	ProfitThreshold decimal.Decimal `json:"profitThreshold"`
}

// handleTriarbScan fetches order books for one path set and returns every
// opportunity at or above profitThreshold (spec §6: "POST /triarb/scan").
func (s *Server) handleTriarbScan(w http.ResponseWriter, r *http.Request) {
	var req triarbScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	pathSet := req.PathSet
	if pathSet == "" {
		pathSet = "SET_1_ETH_FOCUS"
	}
	amount := req.Amount
	if amount.IsZero() {
		amount = decimal.NewFromInt(100)
	}
	opportunities, debug, err := s.scanner.Scan(requestContext(r), req.Exchange, pathSet, amount, req.ProfitThreshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"opportunities": opportunities,
		"debug":         debug,
	})
}

type triarbExecuteRequest struct {
	UserID             int64           `json:"userId"`
	Exchange           string          `json:"exchange"`
	PathID             string          `json:"pathId"`
	Amount             decimal.Decimal `json:"amount"`
	Credentials        credentialsDTO  `json:"credentials"`
	DryRun             bool            `json:"dryRun"`
	Confirmed          bool            `json:"confirmed"`
	MinProfitThreshold decimal.Decimal `json:"minProfitThreshold"`
	MaxTradeAmount     decimal.Decimal `json:"maxTradeAmount"`
	PortfolioPercent   decimal.Decimal `json:"portfolioPercent"`
	ScannedProfitPct   decimal.Decimal `json:"scannedProfitPercent"`
}

// handleTriarbExecute runs pre-flight plus the three sequential legs for one
// path (spec §6: "POST /triarb/execute"), returning the full per-leg trace
// even when a leg fails partway through.
func (s *Server) handleTriarbExecute(w http.ResponseWriter, r *http.Request) {
	var req triarbExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	path, err := triarb.PathByID(req.Exchange, req.PathID)
	if err != nil {
		writeError(w, err)
		return
	}

	pfReq := triarb.PreFlightRequest{
		Exchange:           req.Exchange,
		Path:               path,
		Amount:             req.Amount,
		Credentials:        credentialsFromBody(req.Credentials),
		DryRun:             req.DryRun,
		Confirmed:          req.Confirmed,
		MinProfitThreshold: req.MinProfitThreshold,
		MaxTradeAmount:     req.MaxTradeAmount,
		PortfolioPercent:   req.PortfolioPercent,
		ScannedProfitPct:   req.ScannedProfitPct,
	}

	result, err := s.triarbExec.Execute(requestContext(r), pfReq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
