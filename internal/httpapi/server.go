// Package httpapi implements the REST surface spec §6 describes: strategy
// and position management, market-data/order passthrough, and triangular-arb
// scan/execute — wired with gorilla/mux the way the teacher wires its own
// (much smaller) HTTP surface in main.go.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chidi150c/tradebackend/internal/exchange"
	"github.com/chidi150c/tradebackend/internal/executor"
	"github.com/chidi150c/tradebackend/internal/momentum"
	"github.com/chidi150c/tradebackend/internal/ratelimit"
	"github.com/chidi150c/tradebackend/internal/store"
	"github.com/chidi150c/tradebackend/internal/triarb"
	"github.com/gorilla/mux"
)

// Server bundles every dependency the handlers need.
type Server struct {
	repo       *store.Repository
	monitor    *momentum.PositionMonitor
	orders     *executor.OrderExecutor
	scanner    *triarb.Scanner
	triarbExec *triarb.Executor
	adapters   func(exchangeName string) (exchange.Adapter, error)
}

// New builds a Server over repo, wiring the real exchange registry into
// every sub-component.
func New(repo *store.Repository, rateLimits *ratelimit.ExecutionState) *Server {
	orders := executor.New()
	return &Server{
		repo:       repo,
		monitor:    momentum.NewPositionMonitor(repo, exchange.New, orders),
		orders:     orders,
		scanner:    triarb.NewScanner(),
		triarbExec: triarb.NewExecutor(rateLimits),
		adapters:   exchange.New,
	}
}

// Router builds the gorilla/mux router wiring every endpoint in spec §6.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/strategies", s.handleCreateStrategy).Methods(http.MethodPost)
	r.HandleFunc("/strategies", s.handleListStrategies).Methods(http.MethodGet)
	r.HandleFunc("/strategies/active", s.handleListActiveStrategies).Methods(http.MethodGet)
	r.HandleFunc("/strategies/{id}", s.handleGetStrategy).Methods(http.MethodGet)
	r.HandleFunc("/strategies/{id}", s.handleUpdateStrategy).Methods(http.MethodPut)
	r.HandleFunc("/strategies/{id}", s.handleDeleteStrategy).Methods(http.MethodDelete)
	r.HandleFunc("/strategies/{id}/toggle", s.handleToggleStrategy).Methods(http.MethodPost)
	r.HandleFunc("/strategies/{id}/can-open-position", s.handleCanOpenPosition).Methods(http.MethodGet)

	r.HandleFunc("/positions", s.handleCreatePosition).Methods(http.MethodPost)
	r.HandleFunc("/positions", s.handleListPositions).Methods(http.MethodGet)
	r.HandleFunc("/positions/{id}/close", s.handleManualClose).Methods(http.MethodPost)
	r.HandleFunc("/positions/{id}/close", s.handleFinalizeClose).Methods(http.MethodPut)
	r.HandleFunc("/positions/{id}/mark-closing", s.handleMarkClosing).Methods(http.MethodPut)
	r.HandleFunc("/positions/{id}/force-close", s.handleForceClose).Methods(http.MethodPut)

	r.HandleFunc("/market/candles", s.handleCandles).Methods(http.MethodPost)
	r.HandleFunc("/market/current-price", s.handleCurrentPrice).Methods(http.MethodPost)
	r.HandleFunc("/balance", s.handleBalance).Methods(http.MethodPost)
	r.HandleFunc("/order/buy", s.handleOrderBuy).Methods(http.MethodPost)
	r.HandleFunc("/order/sell", s.handleOrderSell).Methods(http.MethodPost)

	r.HandleFunc("/triarb/scan", s.handleTriarbScan).Methods(http.MethodPost)
	r.HandleFunc("/triarb/execute", s.handleTriarbExecute).Methods(http.MethodPost)

	return r
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorResponse is the stable shape every typed error serializes to (spec §7:
// "a single typed error with a stable code").
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError inspects err for the module's typed error kinds and maps each
// to the appropriate HTTP status, falling back to 500 for anything else.
func writeError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

func credentialsFromBody(c credentialsDTO) exchange.Credentials {
	return exchange.Credentials{APIKey: c.APIKey, APISecret: c.APISecret, Passphrase: c.Passphrase, Memo: c.Memo}
}

type credentialsDTO struct {
	APIKey     string `json:"apiKey"`
	APISecret  string `json:"apiSecret"`
	Passphrase string `json:"passphrase,omitempty"`
	Memo       string `json:"memo,omitempty"`
}

// requestContext returns r's context, the single place every handler pulls
// it from so cancellation/timeouts propagate uniformly.
func requestContext(r *http.Request) context.Context { return r.Context() }
