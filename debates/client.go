// Package debates talks to the external debate, judging and belt services.
package debates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Dosada05/debate-tournament/models"
	"github.com/google/uuid"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// matchNamespace derives stable idempotency keys from match ids.
var matchNamespace = uuid.MustParse("6f1c3b8e-2d4a-5b7c-9e10-4a2f8d6c1b3e")

func IdempotencyKey(matchID int) string {
	return uuid.NewSHA1(matchNamespace, []byte(fmt.Sprintf("match:%d", matchID))).String()
}

type DebateParticipant struct {
	ParticipantID int                    `json:"participant_id"`
	UserID        int                    `json:"user_id"`
	Position      *models.DebatePosition `json:"position,omitempty"`
}

type DebateRequest struct {
	TournamentID int                 `json:"tournament_id"`
	MatchID      int                 `json:"match_id"`
	RoundNumber  int                 `json:"round_number"`
	Kind         models.MatchKind    `json:"kind"`
	Rounds       int                 `json:"rounds"`
	Participants []DebateParticipant `json:"participants"`
}

type DebateClient interface {
	CreateDebate(ctx context.Context, req DebateRequest) (string, error)
}

type JudgePool interface {
	ListJudges(ctx context.Context) ([]models.Judge, error)
	// ScoreSubmissions returns a 0..100 score per participant id.
	ScoreSubmissions(ctx context.Context, judgeID string, submissions map[int]string) (map[int]int, error)
}

type BeltHook interface {
	TournamentCompleted(ctx context.Context, event models.TournamentCompletedEvent) error
}

type httpClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

func newHTTPClient(baseURL, token string, logger *slog.Logger) httpClient {
	return httpClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c httpClient) doJSON(ctx context.Context, method, path string, headers map[string]string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request for %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response of %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("External service returned an error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)))
		return fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, path, resp.StatusCode)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return nil
}

type HTTPDebateClient struct {
	httpClient
}

func NewHTTPDebateClient(baseURL, token string, logger *slog.Logger) *HTTPDebateClient {
	return &HTTPDebateClient{httpClient: newHTTPClient(baseURL, token, logger)}
}

type createDebateResponse struct {
	DebateID string `json:"debate_id"`
}

// CreateDebate is safe to retry: the service dedupes on the Idempotency-Key header.
func (c *HTTPDebateClient) CreateDebate(ctx context.Context, req DebateRequest) (string, error) {
	var out createDebateResponse
	headers := map[string]string{"Idempotency-Key": IdempotencyKey(req.MatchID)}
	if err := c.doJSON(ctx, http.MethodPost, "/debates", headers, req, &out); err != nil {
		return "", err
	}
	if out.DebateID == "" {
		return "", fmt.Errorf("debate service returned an empty debate id for match %d", req.MatchID)
	}
	return out.DebateID, nil
}

type HTTPJudgePool struct {
	httpClient
}

func NewHTTPJudgePool(baseURL, token string, logger *slog.Logger) *HTTPJudgePool {
	return &HTTPJudgePool{httpClient: newHTTPClient(baseURL, token, logger)}
}

func (c *HTTPJudgePool) ListJudges(ctx context.Context) ([]models.Judge, error) {
	var judges []models.Judge
	if err := c.doJSON(ctx, http.MethodGet, "/judges", nil, nil, &judges); err != nil {
		return nil, err
	}
	return judges, nil
}

type scoreRequest struct {
	Submissions map[int]string `json:"submissions"`
}

type scoreResponse struct {
	Scores map[int]int `json:"scores"`
}

func (c *HTTPJudgePool) ScoreSubmissions(ctx context.Context, judgeID string, submissions map[int]string) (map[int]int, error) {
	var out scoreResponse
	path := "/judges/" + url.PathEscape(judgeID) + "/score"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, scoreRequest{Submissions: submissions}, &out); err != nil {
		return nil, err
	}
	return out.Scores, nil
}

type HTTPBeltHook struct {
	httpClient
}

func NewHTTPBeltHook(webhookURL, token string, logger *slog.Logger) *HTTPBeltHook {
	return &HTTPBeltHook{httpClient: newHTTPClient(webhookURL, token, logger)}
}

func (c *HTTPBeltHook) TournamentCompleted(ctx context.Context, event models.TournamentCompletedEvent) error {
	return c.doJSON(ctx, http.MethodPost, "", nil, event, nil)
}

// NopBeltHook is used when no belt service is configured.
type NopBeltHook struct{}

func (NopBeltHook) TournamentCompleted(context.Context, models.TournamentCompletedEvent) error {
	return nil
}
