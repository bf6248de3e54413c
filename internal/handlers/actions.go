// internal/handlers/actions.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jason-s-yu/tycoon/internal/game"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
)

// ActionRequest is a command for the session's local seat.
type ActionRequest struct {
	Type         string             `json:"type"`
	PropertyID   int                `json:"property_id,omitempty"`
	TargetUserID int                `json:"target_user_id,omitempty"`
	TradeID      int                `json:"trade_id,omitempty"`
	Offer        *models.TradeOffer `json:"offer,omitempty"`
}

type actionFunc func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error)

func onSeat(f func(*game.Orchestrator) func(context.Context) error) actionFunc {
	return func(ctx context.Context, o *game.Orchestrator, _ ActionRequest) (interface{}, error) {
		return nil, f(o)(ctx)
	}
}

func onProperty(f func(*game.Orchestrator) func(context.Context, int) error) actionFunc {
	return func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error) {
		return nil, f(o)(ctx, req.PropertyID)
	}
}

var actions = map[string]actionFunc{
	"roll": func(ctx context.Context, o *game.Orchestrator, _ ActionRequest) (interface{}, error) {
		return o.Roll(ctx)
	},
	"buy":                onSeat(func(o *game.Orchestrator) func(context.Context) error { return o.Buy }),
	"skip_buy":           onSeat(func(o *game.Orchestrator) func(context.Context) error { return o.SkipBuy }),
	"end_turn":           onSeat(func(o *game.Orchestrator) func(context.Context) error { return o.EndTurn }),
	"pay_jail_fine":      onSeat(func(o *game.Orchestrator) func(context.Context) error { return o.PayJailFine }),
	"use_jail_card":      onSeat(func(o *game.Orchestrator) func(context.Context) error { return o.UseJailCard }),
	"stay_in_jail":       onSeat(func(o *game.Orchestrator) func(context.Context) error { return o.StayInJail }),
	"declare_bankruptcy": onSeat(func(o *game.Orchestrator) func(context.Context) error { return o.DeclareBankruptcy }),
	"develop":            onProperty(func(o *game.Orchestrator) func(context.Context, int) error { return o.Develop }),
	"downgrade":          onProperty(func(o *game.Orchestrator) func(context.Context, int) error { return o.Downgrade }),
	"mortgage":           onProperty(func(o *game.Orchestrator) func(context.Context, int) error { return o.Mortgage }),
	"unmortgage":         onProperty(func(o *game.Orchestrator) func(context.Context, int) error { return o.Unmortgage }),
	"sell":               onProperty(func(o *game.Orchestrator) func(context.Context, int) error { return o.SellToBank }),
	"propose_trade": func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error) {
		if req.Offer == nil {
			return nil, errMissingOffer
		}
		return o.ProposeTrade(ctx, *req.Offer)
	},
	"accept_trade": func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error) {
		return nil, o.AcceptTrade(ctx, req.TradeID)
	},
	"decline_trade": func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error) {
		return nil, o.DeclineTrade(ctx, req.TradeID)
	},
	"counter_trade": func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error) {
		return nil, o.CounterTrade(ctx, req.TradeID, req.Offer)
	},
	"vote_remove": func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error) {
		return o.VoteToRemove(ctx, req.TargetUserID)
	},
	"vote_status": func(ctx context.Context, o *game.Orchestrator, req ActionRequest) (interface{}, error) {
		return o.VoteStatus(ctx, req.TargetUserID)
	},
	"vote_end_by_net_worth": func(ctx context.Context, o *game.Orchestrator, _ ActionRequest) (interface{}, error) {
		return o.VoteEndByNetWorth(ctx)
	},
	"end_by_net_worth_status": func(ctx context.Context, o *game.Orchestrator, _ ActionRequest) (interface{}, error) {
		return o.EndByNetWorthStatus(ctx)
	},
}

var errMissingOffer = errors.New("offer is required")

// handleAction runs a command for the local seat. With an authenticator
// configured, only the seat's own user may issue it.
func (s *StatusServer) handleAction(w http.ResponseWriter, r *http.Request) {
	o, ok := s.session(w, r)
	if !ok {
		return
	}
	if o.LocalUserID() == 0 {
		writeError(w, http.StatusForbidden, "session has no local seat")
		return
	}
	if s.Auth != nil {
		userID, err := s.Auth.Authenticate(requestToken(r))
		if err != nil || userID != o.LocalUserID() {
			writeError(w, http.StatusForbidden, "not the local seat")
			return
		}
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	run, known := actions[req.Type]
	if !known {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Type))
		return
	}

	result, err := run(r.Context(), o, req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": result, "view": o.View()})
}

// statusFor maps an orchestrator error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrActionLocked), errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrNotYourTurn), errors.Is(err, game.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, game.ErrInsufficientFunds), errors.Is(err, game.ErrNotOwner),
		errors.Is(err, game.ErrNotBuildable), errors.Is(err, game.ErrNoJailCard),
		errors.Is(err, game.ErrNotInJail), errors.Is(err, errMissingOffer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrUnknownPlayer), errors.Is(err, game.ErrUnknownTrade):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNoSnapshot), service.IsTransient(err):
		return http.StatusServiceUnavailable
	}
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
