package httpapi

import (
	"net/http"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

type candlesRequest struct {
	Exchange    string          `json:"exchange"`
	Pair        string          `json:"pair"`
	Interval    string          `json:"interval"`
	Limit       int             `json:"limit"`
	Credentials *credentialsDTO `json:"credentials,omitempty"`
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	var req candlesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	adapter, err := s.adapters(req.Exchange)
	if err != nil {
		writeError(w, err)
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	candles, err := adapter.FetchCandles(requestContext(r), req.Pair, domain.Interval(req.Interval), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candles)
}

type currentPriceRequest struct {
	Exchange string `json:"exchange"`
	Pair     string `json:"pair"`
}

func (s *Server) handleCurrentPrice(w http.ResponseWriter, r *http.Request) {
	var req currentPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	adapter, err := s.adapters(req.Exchange)
	if err != nil {
		writeError(w, err)
		return
	}
	price, err := adapter.FetchCurrentPrice(requestContext(r), req.Pair)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"price": price})
}

type balanceRequest struct {
	Exchange string `json:"exchange"`
	credentialsDTO
	Currency string `json:"currency"`
}

// handleBalance fetches a single currency's balance (spec §6: "POST /balance
// { exchange, apiKey, apiSecret, passphrase?, memo? } -> { balances: { USDT:
// number }, details }"). Currency defaults to USDT when the caller omits it.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "USDT"
	}
	adapter, err := s.adapters(req.Exchange)
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := adapter.FetchBalance(requestContext(r), credentialsFromBody(req.credentialsDTO), currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balances": map[string]decimal.Decimal{currency: balance},
		"details":  map[string]decimal.Decimal{currency: balance},
	})
}

type orderRequest struct {
	Exchange    string          `json:"exchange"`
	Pair        string          `json:"pair"`
	AmountUSDT  decimal.Decimal `json:"amountUSDT"`
	Quantity    decimal.Decimal `json:"quantity"`
	Credentials credentialsDTO  `json:"credentials"`
}

func (s *Server) handleOrderBuy(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	fill, err := s.orders.Buy(requestContext(r), req.Exchange, credentialsFromBody(req.Credentials), req.Pair, req.AmountUSDT)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fill)
}

func (s *Server) handleOrderSell(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	fill, err := s.orders.Sell(requestContext(r), req.Exchange, credentialsFromBody(req.Credentials), req.Pair, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fill)
}
