package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type strategyRequest struct {
	UserID           int64                             `json:"userId"`
	Exchange         string                            `json:"exchange"`
	StrategyName     string                             `json:"strategyName"`
	Assets           []string                          `json:"assets"`
	EntryLogic       string                             `json:"entryLogic"`
	Timeframe        string                             `json:"timeframe"`
	EntryIndicators  map[string]domain.IndicatorConfig `json:"entryIndicators"`
	ExitRules        exitRulesDTO                       `json:"exitRules"`
	MaxTradeAmount   decimal.Decimal                    `json:"maxTradeAmount"`
	MaxOpenPositions int                                `json:"maxOpenPositions"`
}

type exitRulesDTO struct {
	TakeProfitPercent decimal.Decimal `json:"takeProfitPercent"`
	StopLossPercent   decimal.Decimal `json:"stopLossPercent"`
	MaxHoldHours      decimal.Decimal `json:"maxHoldHours"`
	TakeProfitMode    string          `json:"takeProfitMode"`
}

func (req strategyRequest) toDomain() domain.Strategy {
	timeframe := domain.Interval(req.Timeframe)
	if timeframe == "" {
		timeframe = domain.Interval1h
	}
	return domain.Strategy{
		UserID:          req.UserID,
		Exchange:        req.Exchange,
		Name:            req.StrategyName,
		Assets:          req.Assets,
		EntryIndicators: req.EntryIndicators,
		EntryLogic:      domain.EntryLogic(req.EntryLogic),
		ExitRules: domain.ExitRules{
			TakeProfitPercent: req.ExitRules.TakeProfitPercent,
			StopLossPercent:   req.ExitRules.StopLossPercent,
			MaxHoldHours:      req.ExitRules.MaxHoldHours,
			TakeProfitMode:    domain.TakeProfitMode(req.ExitRules.TakeProfitMode),
		},
		Timeframe:        timeframe,
		MaxTradeAmount:   req.MaxTradeAmount,
		MaxOpenPositions: req.MaxOpenPositions,
		IsActive:         false,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	strat := req.toDomain()
	if err := strat.Validate(); err != nil {
		writeError(w, err)
		return
	}
	id, err := s.repo.CreateStrategy(requestContext(r), strat)
	if err != nil {
		writeError(w, err)
		return
	}
	strat.ID = id
	writeJSON(w, http.StatusCreated, strat)
}

func (s *Server) handleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	strat := req.toDomain()
	strat.ID = id
	if err := strat.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.repo.UpdateStrategy(requestContext(r), strat); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strat)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	if err := s.repo.DeleteStrategy(requestContext(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	strat, err := s.repo.GetStrategy(requestContext(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strat)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	exchangeName := r.URL.Query().Get("exchange")
	strats, err := s.repo.ListStrategies(requestContext(r), userID, exchangeName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strats)
}

func (s *Server) handleListActiveStrategies(w http.ResponseWriter, r *http.Request) {
	strats, err := s.repo.ListActiveStrategies(requestContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strats)
}

// handleToggleStrategy activates or deactivates a strategy, rejecting
// activation if any asset overlaps with another already-active strategy on
// the same exchange (spec §6 boundary scenario 6).
func (s *Server) handleToggleStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	ctx := requestContext(r)
	strat, err := s.repo.GetStrategy(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	activate := !strat.IsActive

	if activate {
		siblings, err := s.repo.ListStrategies(ctx, strat.UserID, strat.Exchange)
		if err != nil {
			writeError(w, err)
			return
		}
		mine := strat.AssetsSet()
		for _, sib := range siblings {
			if sib.ID == strat.ID || !sib.IsActive {
				continue
			}
			for _, a := range sib.Assets {
				if _, overlap := mine[a]; overlap {
					writeError(w, domain.ErrAssetConflict{Asset: a, ConflictingStrategyID: sib.ID})
					return
				}
			}
		}
	}

	if err := s.repo.SetStrategyActive(ctx, id, activate); err != nil {
		writeError(w, err)
		return
	}
	strat.IsActive = activate
	writeJSON(w, http.StatusOK, strat)
}

func (s *Server) handleCanOpenPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: err.Error()})
		return
	}
	ctx := requestContext(r)
	strat, err := s.repo.GetStrategy(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	openCount, err := s.repo.CountOpenPositions(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"canOpen":          int(openCount) < strat.MaxOpenPositions,
		"openCount":        openCount,
		"maxOpenPositions": strat.MaxOpenPositions,
	})
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
