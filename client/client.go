// Package client - типизированный клиент HTTP API матчей.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/tundra-matches/models"
	"github.com/google/uuid"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New создает клиент. token - bearer-токен кошелька, от имени которого
// выполняются вызовы.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken возвращает копию клиента с другим токеном.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type PlayerPerformance struct {
	PlayerAddress string `json:"playerAddress"`
	DisplayName   string `json:"displayName,omitempty"`
	ClanID        int64  `json:"clanId"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	MVP           bool   `json:"mvp,omitempty"`
}

type ProposeTimeRequest struct {
	MatchID         int64     `json:"matchId"`
	ProposedTime    time.Time `json:"proposedTime"`
	ReplaceExisting bool      `json:"replaceExisting,omitempty"`
}

// SubmitResultRequest: задается либо Clan1Score/Clan2Score, либо OwnScore/OpponentScore.
type SubmitResultRequest struct {
	MatchID            int64               `json:"matchId"`
	Side               models.Side         `json:"side,omitempty"`
	Clan1Score         *int                `json:"clan1Score,omitempty"`
	Clan2Score         *int                `json:"clan2Score,omitempty"`
	OwnScore           *int                `json:"ownScore,omitempty"`
	OpponentScore      *int                `json:"opponentScore,omitempty"`
	PlayerPerformances []PlayerPerformance `json:"playerPerformances,omitempty"`
}

type ResolveConflictRequest struct {
	MatchID            int64
	Score              models.Score
	PlayerPerformances []PlayerPerformance
	Note               string
}

type errorEnvelope struct {
	Error     json.RawMessage `json:"error"`
	Code      string          `json:"code"`
	Retryable bool            `json:"retryable"`
}

func (c *Client) ProposeTime(ctx context.Context, req ProposeTimeRequest) (*models.TimeProposal, error) {
	var out struct {
		Proposal *models.TimeProposal `json:"proposal"`
	}
	if err := c.do(ctx, http.MethodPost, "/matches/schedule", req, &out); err != nil {
		return nil, err
	}
	return out.Proposal, nil
}

func (c *Client) RespondToTime(ctx context.Context, proposalID uuid.UUID, decision models.ProposalDecision) (*models.Match, error) {
	body := map[string]string{
		"timeSlotId": proposalID.String(),
		"action":     string(decision),
	}
	return c.matchCall(ctx, http.MethodPatch, "/matches/schedule", body)
}

func (c *Client) ListProposals(ctx context.Context, matchID int64) ([]*models.TimeProposal, error) {
	var out struct {
		Proposals []*models.TimeProposal `json:"proposals"`
	}
	path := "/matches/schedule?matchId=" + strconv.FormatInt(matchID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Proposals, nil
}

func (c *Client) SubmitResult(ctx context.Context, req SubmitResultRequest) (*models.Match, error) {
	return c.matchCall(ctx, http.MethodPost, "/matches/results", req)
}

func (c *Client) ResolveConflict(ctx context.Context, req ResolveConflictRequest) (*models.Match, error) {
	body := map[string]interface{}{
		"matchId":         req.MatchID,
		"resolveConflict": true,
		"resolutionData": map[string]interface{}{
			"clan1Score":         req.Score.Clan1,
			"clan2Score":         req.Score.Clan2,
			"playerPerformances": req.PlayerPerformances,
			"note":               req.Note,
		},
	}
	return c.matchCall(ctx, http.MethodPatch, "/matches/admin", body)
}

func (c *Client) SetWinner(ctx context.Context, matchID, winnerClanID int64) (*models.Match, error) {
	body := map[string]interface{}{"matchId": matchID, "winnerId": winnerClanID}
	return c.matchCall(ctx, http.MethodPatch, "/matches/admin", body)
}

func (c *Client) MarkActive(ctx context.Context, matchID int64) (*models.Match, error) {
	body := map[string]interface{}{"matchId": matchID, "markActive": true}
	return c.matchCall(ctx, http.MethodPatch, "/matches/admin", body)
}

func (c *Client) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	return c.matchCall(ctx, http.MethodGet, "/matches/"+strconv.FormatInt(matchID, 10), nil)
}

func (c *Client) GetRoster(ctx context.Context, matchID int64) (*models.MatchRoster, error) {
	var out struct {
		Roster *models.MatchRoster `json:"roster"`
	}
	path := "/matches/roster?matchId=" + strconv.FormatInt(matchID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Roster, nil
}

func (c *Client) ListTournamentMatches(ctx context.Context, tournamentID int64, status *models.MatchStatus) ([]*models.Match, error) {
	path := "/tournaments/" + strconv.FormatInt(tournamentID, 10) + "/matches"
	if status != nil {
		path += "?status=" + url.QueryEscape(string(*status))
	}
	var out struct {
		Matches json.RawMessage `json:"matches"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return decodeMatches(out.Matches)
}

func (c *Client) Leaderboard(ctx context.Context, tournamentID int64, limit int) ([]models.PlayerTotals, error) {
	path := "/tournaments/" + strconv.FormatInt(tournamentID, 10) + "/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Leaderboard []models.PlayerTotals `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

// matchCall - вызов, отвечающий {"match": ...}.
func (c *Client) matchCall(ctx context.Context, method, path string, body interface{}) (*models.Match, error) {
	var out struct {
		Match json.RawMessage `json:"match"`
	}
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return decodeMatch(out.Match)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status, Retryable: status >= http.StatusInternalServerError}

	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Code == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Code = env.Code
	apiErr.Retryable = env.Retryable

	var message string
	if err := json.Unmarshal(env.Error, &message); err == nil {
		apiErr.Message = message
		return apiErr
	}
	var fields map[string]string
	if err := json.Unmarshal(env.Error, &fields); err == nil {
		apiErr.Fields = fields
		return apiErr
	}
	apiErr.Message = string(env.Error)
	return apiErr
}
