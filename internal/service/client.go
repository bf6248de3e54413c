package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jason-s-yu/tycoon/internal/models"
)

// TokenSource issues bearer tokens for a seat.
type TokenSource interface {
	Token(userID int) (string, error)
}

// Client talks to the game service REST API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	// readerID authenticates calls with no natural actor, such as snapshots.
	readerID int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, e.g. to add a logging transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokens attaches bearer tokens to every call made for a seat.
func WithTokens(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithReader sets the seat used for reads.
func WithReader(userID int) Option {
	return func(c *Client) { c.readerID = userID }
}

// NewClient builds a client for the service rooted at baseURL (e.g. https://host/api).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, actorID int, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil && actorID != 0 {
		tok, err := c.tokens.Token(actorID)
		if err != nil {
			return fmt.Errorf("token for %d: %w", actorID, err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Path: path}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}

func (c *Client) Snapshot(ctx context.Context, code string) (*models.Snapshot, error) {
	var game models.Game
	if err := c.do(ctx, c.readerID, http.MethodGet, "/games/code/"+url.PathEscape(code), nil, &game); err != nil {
		return nil, err
	}
	var props []models.GameProperty
	if err := c.do(ctx, c.readerID, http.MethodGet, fmt.Sprintf("/game-properties/game/%d", game.ID), nil, &props); err != nil {
		return nil, err
	}
	return &models.Snapshot{Game: game, Properties: props, FetchedAt: time.Now()}, nil
}

func (c *Client) ChangePosition(ctx context.Context, req ChangePositionRequest) (*ChangePositionResult, error) {
	var res ChangePositionResult
	if err := c.do(ctx, req.UserID, http.MethodPost, "/game-players/change-position", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) EndTurn(ctx context.Context, req EndTurnRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-players/end-turn", req, nil)
}

func (c *Client) BuyProperty(ctx context.Context, req PropertyRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-properties/buy", req, nil)
}

func (c *Client) Develop(ctx context.Context, req PropertyRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-properties/development", req, nil)
}

func (c *Client) Downgrade(ctx context.Context, req PropertyRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-properties/downgrade", req, nil)
}

func (c *Client) Mortgage(ctx context.Context, req PropertyRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-properties/mortgage", req, nil)
}

func (c *Client) Unmortgage(ctx context.Context, req PropertyRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-properties/unmortgage", req, nil)
}

func (c *Client) SellToBank(ctx context.Context, req PropertyRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-properties/sell", req, nil)
}

func (c *Client) TransferProperty(ctx context.Context, actorID, gamePropertyID, gameID, toPlayerID int) error {
	body := map[string]int{"game_id": gameID, "player_id": toPlayerID}
	return c.do(ctx, actorID, http.MethodPut, fmt.Sprintf("/game-properties/%d", gamePropertyID), body, nil)
}

func (c *Client) ReturnToBank(ctx context.Context, actorID, gamePropertyID, gameID int) error {
	body := map[string]int{"game_id": gameID}
	return c.do(ctx, actorID, http.MethodDelete, fmt.Sprintf("/game-properties/%d", gamePropertyID), body, nil)
}

func (c *Client) CreateTrade(ctx context.Context, actorID int, offer models.TradeOffer) (*models.TradeOffer, error) {
	if offer.Status == "" {
		offer.Status = models.TradePending
	}
	var created models.TradeOffer
	if err := c.do(ctx, actorID, http.MethodPost, "/game-trade-requests", offer, &created); err != nil {
		return nil, err
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("create trade: service returned no id")
	}
	return &created, nil
}

func (c *Client) AcceptTrade(ctx context.Context, actorID, tradeID int) error {
	return c.do(ctx, actorID, http.MethodPost, "/game-trade-requests/accept", map[string]int{"id": tradeID}, nil)
}

func (c *Client) DeclineTrade(ctx context.Context, actorID, tradeID int) error {
	return c.do(ctx, actorID, http.MethodPost, "/game-trade-requests/decline", map[string]int{"id": tradeID}, nil)
}

func (c *Client) CounterTrade(ctx context.Context, actorID, tradeID int, offer models.TradeOffer) error {
	offer.Status = models.TradeCounter
	return c.do(ctx, actorID, http.MethodPut, fmt.Sprintf("/game-trade-requests/%d", tradeID), offer, nil)
}

func (c *Client) Trades(ctx context.Context, gameID, userID int) (*TradeLists, error) {
	var lists TradeLists
	if err := c.do(ctx, userID, http.MethodGet, fmt.Sprintf("/game-trade-requests/my/%d/player/%d", gameID, userID), nil, &lists.Initiated); err != nil {
		return nil, err
	}
	if err := c.do(ctx, userID, http.MethodGet, fmt.Sprintf("/game-trade-requests/incoming/%d/player/%d", gameID, userID), nil, &lists.Incoming); err != nil {
		return nil, err
	}
	return &lists, nil
}

func (c *Client) PayToLeaveJail(ctx context.Context, req JailRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-players/pay-to-leave-jail", req, nil)
}

func (c *Client) UseJailCard(ctx context.Context, req JailRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-players/use-get-out-of-jail-free", req, nil)
}

func (c *Client) StayInJail(ctx context.Context, req JailRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-players/stay-in-jail", req, nil)
}

func (c *Client) RecordTimeout(ctx context.Context, req VoteRequest) error {
	return c.do(ctx, req.UserID, http.MethodPost, "/game-players/record-timeout", req, nil)
}

func (c *Client) VoteToRemove(ctx context.Context, req VoteRequest) (*models.VoteResult, error) {
	var res models.VoteResult
	if err := c.do(ctx, req.UserID, http.MethodPost, "/game-players/vote-to-remove", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) VoteStatus(ctx context.Context, req VoteRequest) (*models.VoteStatus, error) {
	var res models.VoteStatus
	if err := c.do(ctx, req.UserID, http.MethodPost, "/game-players/vote-status", req, &res); err != nil {
		return nil, err
	}
	res.TargetUserID = req.TargetUserID
	return &res, nil
}

func (c *Client) VoteEndByNetWorth(ctx context.Context, req VoteRequest) (*models.NetWorthVote, error) {
	var res models.NetWorthVote
	if err := c.do(ctx, req.UserID, http.MethodPost, "/game-players/vote-end-by-networth", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) EndByNetWorthStatus(ctx context.Context, req VoteRequest) (*models.NetWorthVote, error) {
	var res models.NetWorthVote
	if err := c.do(ctx, req.UserID, http.MethodPost, "/game-players/end-by-networth-status", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Leave(ctx context.Context, actorID int, address, code, reason string) error {
	body := map[string]string{"address": address, "code": code, "reason": reason}
	return c.do(ctx, actorID, http.MethodPost, "/game-players/leave", body, nil)
}

func (c *Client) FinishByTime(ctx context.Context, actorID, gameID int) (*models.FinishResult, error) {
	var res models.FinishResult
	if err := c.do(ctx, actorID, http.MethodPost, fmt.Sprintf("/games/%d/finish-by-time", gameID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

var _ GameService = (*Client)(nil)
