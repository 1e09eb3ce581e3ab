package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"tachyon/constellation/internal/constellation"
	"tachyon/constellation/internal/financing"
)

const maxBodyBytes = 1 << 20

// Config holds the connection settings of a Client
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RatePerSecond <= 0 disables client-side throttling
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client talks to the interview and scenario-generation service
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter

	mu    sync.RWMutex
	token string
}

// StartResponse opens an interview with its first question
type StartResponse struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// Validation is the service's assessment of one answer
type Validation struct {
	QualityScore float64 `json:"quality_score"`
	Suggestion   string  `json:"suggestion,omitempty"`
}

// AnswerResponse is the reply to a submitted answer
type AnswerResponse struct {
	Question     string      `json:"question"`
	NextQuestion string      `json:"next_question,omitempty"`
	IsComplete   bool        `json:"is_complete"`
	IsFollowup   bool        `json:"is_followup,omitempty"`
	Validation   *Validation `json:"validation,omitempty"`
}

// Prompt is the next interviewer message, whichever field the service filled
func (a AnswerResponse) Prompt() string {
	if a.NextQuestion != "" {
		return a.NextQuestion
	}
	return a.Question
}

// StatusResponse reports whether an interview is complete
type StatusResponse struct {
	SessionID  string                             `json:"session_id"`
	IsComplete bool                               `json:"is_complete"`
	Scenarios  []constellation.ScenarioDescriptor `json:"scenarios"`
}

// ExpandRequest asks for the children of ParentScenario at BranchLevel
type ExpandRequest struct {
	ParentScenario constellation.ScenarioDescriptor `json:"parent_scenario"`
	UserProfile    financing.Profile                `json:"user_profile"`
	BranchLevel    int                              `json:"branch_level"`
}

// ExpandResponse carries the generated child scenarios
type ExpandResponse struct {
	Success     bool                               `json:"success"`
	Children    []constellation.ScenarioDescriptor `json:"children"`
	BranchLevel int                                `json:"branch_level"`
}

// New creates a Client. The cookie jar keeps the service's session cookie
// across calls.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: base URL %q must be http or https", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("backend: cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		base:    base,
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		token:   cfg.Token,
	}, nil
}

// SetToken replaces the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// StartInterview opens a new interview session
func (c *Client) StartInterview(ctx context.Context) (StartResponse, error) {
	var out StartResponse
	if err := c.do(ctx, "start interview", http.MethodPost, "/api/interview/start", nil, &out); err != nil {
		return StartResponse{}, err
	}
	if out.SessionID == "" {
		return StartResponse{}, &Error{Kind: KindMalformed, Op: "start interview", Body: "missing session_id"}
	}
	return out, nil
}

// SubmitAnswer sends one answer and returns the next prompt
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, answer string) (AnswerResponse, error) {
	in := map[string]string{"session_id": sessionID, "answer": answer}
	var out AnswerResponse
	if err := c.do(ctx, "submit answer", http.MethodPost, "/api/interview/answer", in, &out); err != nil {
		return AnswerResponse{}, err
	}
	return out, nil
}

// Status reports interview progress. Once complete it carries the root scenarios.
func (c *Client) Status(ctx context.Context, sessionID string) (StatusResponse, error) {
	var out StatusResponse
	path := "/api/interview/status/" + url.PathEscape(sessionID)
	if err := c.do(ctx, "interview status", http.MethodGet, path, nil, &out); err != nil {
		return StatusResponse{}, err
	}
	if err := validateAll("interview status", out.Scenarios); err != nil {
		return StatusResponse{}, err
	}
	return out, nil
}

// ExpandNode asks the service for the children of one scenario
func (c *Client) ExpandNode(ctx context.Context, req ExpandRequest) (ExpandResponse, error) {
	const op = "expand node"
	var out ExpandResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/expand-node", req, &out); err != nil {
		return ExpandResponse{}, err
	}
	if !out.Success {
		return ExpandResponse{}, &Error{Kind: KindUnavailable, Op: op, Body: "service reported failure"}
	}
	if err := validateAll(op, out.Children); err != nil {
		return ExpandResponse{}, err
	}
	return out, nil
}

// Health checks that the service is reachable
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func validateAll(op string, descs []constellation.ScenarioDescriptor) error {
	for i, d := range descs {
		if err := d.Validate(); err != nil {
			return &Error{Kind: KindMalformed, Op: op, Body: fmt.Sprintf("scenario %d: %v", i, err)}
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Status: resp.StatusCode, Err: err}
	}
	slog.Debug("backend call", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := errorText(raw)
		return &Error{Kind: classify(resp.StatusCode, text), Op: op, Status: resp.StatusCode, Body: text}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindMalformed, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// errorText prefers the service's {"detail": ...} message over the raw body
func errorText(raw []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 500 {
		text = text[:500] + "..."
	}
	return text
}
