// Package api provides the authenticated client for the job-dispatch API.
package api

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

	"github.com/golang-jwt/jwt/v5"
	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ternarybob/scopulus/internal/interfaces"
	"github.com/ternarybob/scopulus/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout for poll GETs.
	DefaultTimeout = 30 * time.Second

	// DefaultResultTimeout is the default timeout for result POSTs.
	DefaultResultTimeout = 60 * time.Second

	// DefaultRateLimit is the default client-side rate limit
	// (requests per second).
	DefaultRateLimit = 10

	// resultAttempts is how many times a terminal result POST is tried
	// before the assignment is abandoned to the API's lease mechanism.
	resultAttempts = 3

	// resultBackoffBase is the first retry delay; each retry doubles it.
	resultBackoffBase = 500 * time.Millisecond
)

// Client is the bearer-authenticated job-dispatch API client. The token
// is bound to (username, password, endpoint); any 401 triggers one
// refresh followed by one retry of the original call. Protocol calls are
// single-threaded in the runtime, so the refresh is non-reentrant.
type Client struct {
	endpoint      string
	username      string
	password      string
	httpClient    *http.Client
	resultClient  *http.Client
	token         *oauth2.Token
	limiter       *rate.Limiter
	logger        arbor.ILogger
	sleep         func(context.Context, time.Duration) error
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithTimeouts sets the poll and result POST timeouts.
func WithTimeouts(poll, result time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = poll
		c.resultClient.Timeout = result
	}
}

// WithRateLimit sets a custom client-side rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a job-dispatch API client.
func NewClient(endpoint, username, password string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:     strings.TrimSuffix(endpoint, "/"),
		username:     username,
		password:     password,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		resultClient: &http.Client{Timeout: DefaultResultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:       arbor.NewLogger(),
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ interfaces.APIClient = (*Client)(nil)

// loginResponse is the reply from POST /auth/login.
type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates against /auth/login and stores the bearer token.
// Called eagerly at startup so credential rejection fails fast, and again
// on any 401 mid-run.
func (c *Client) Login(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.WrapError(models.ErrKindTransient, err, "rate limiter interrupted")
	}

	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return models.WrapError(models.ErrKindInternal, err, "failed to encode credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return models.WrapError(models.ErrKindInternal, err, "failed to create login request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.WrapError(models.ErrKindTransient, err, "login request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return models.NewWorkerError(models.ErrKindAuthFailure, "credentials rejected by /auth/login")
	case resp.StatusCode >= 500:
		return models.WorkerErrorf(models.ErrKindTransient, "login returned status %d", resp.StatusCode)
	default:
		return models.WorkerErrorf(models.ErrKindBadRequest, "login returned status %d", resp.StatusCode)
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return models.WrapError(models.ErrKindProtocol, err, "malformed login response")
	}
	if login.Token == "" {
		return models.NewWorkerError(models.ErrKindProtocol, "login response carried no token")
	}

	expiry := login.ExpiresAt
	if expiry.IsZero() {
		// The reply omitted expires_at; recover it from the token's own
		// exp claim. The API signs the token, the worker only schedules
		// refresh, so an unverified parse is enough.
		expiry = tokenExpiry(login.Token)
	}

	c.token = &oauth2.Token{AccessToken: login.Token, Expiry: expiry}
	c.logger.Debug().Str("endpoint", c.endpoint).Str("expiry", expiry.Format(time.RFC3339)).Msg("Authenticated with dispatch API")
	return nil
}

// tokenExpiry extracts the exp claim from a JWT bearer token. Returns the
// zero time when the token is opaque, which oauth2 treats as non-expiring.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// ensureToken refreshes the token when absent or past expiry.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != nil && c.token.Valid() {
		return nil
	}
	return c.Login(ctx)
}

// Get performs an authenticated GET, decoding a JSON reply into out when
// the response carries a body. Returns the HTTP status code.
func (c *Client) Get(ctx context.Context, path string, out interface{}) (int, error) {
	return c.do(ctx, http.MethodGet, path, nil, out, c.httpClient)
}

// Post performs an authenticated POST with a JSON body, decoding a JSON
// reply into out when out is non-nil. Returns the HTTP status code.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) (int, error) {
	return c.do(ctx, http.MethodPost, path, body, out, c.httpClient)
}

// do executes one authenticated request, refreshing the token and
// retrying exactly once on 401.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, client *http.Client) (int, error) {
	if err := c.ensureToken(ctx); err != nil {
		return 0, err
	}

	status, err := c.doOnce(ctx, method, path, body, out, client)
	if err != nil {
		return status, err
	}
	if status == http.StatusUnauthorized {
		c.logger.Debug().Str("path", path).Msg("Token rejected, refreshing and retrying once")
		if err := c.Login(ctx); err != nil {
			return status, err
		}
		status, err = c.doOnce(ctx, method, path, body, out, client)
		if err != nil {
			return status, err
		}
		if status == http.StatusUnauthorized {
			return status, models.NewWorkerError(models.ErrKindAuthFailure, "request rejected after token refresh")
		}
	}
	return c.classify(status, path)
}

// doOnce executes a single attempt. A 401 is returned to the caller for
// the refresh-and-retry decision; other statuses are classified later.
func (c *Client) doOnce(ctx context.Context, method, path string, body, out interface{}, client *http.Client) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, models.WrapError(models.ErrKindTransient, err, "rate limiter interrupted")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, models.WrapError(models.ErrKindInternal, err, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return 0, models.WrapError(models.ErrKindInternal, err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, models.WrapError(models.ErrKindTransient, err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, models.WrapError(models.ErrKindTransient, err, "failed to read response body")
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, models.WrapError(models.ErrKindProtocol, err,
					fmt.Sprintf("malformed JSON from %s", path))
			}
		}
	}
	return resp.StatusCode, nil
}

// classify maps a terminal status onto the error contract.
func (c *Client) classify(status int, path string) (int, error) {
	switch {
	case status >= 200 && status < 300:
		return status, nil
	case status >= 500:
		return status, models.WorkerErrorf(models.ErrKindTransient, "%s returned status %d", path, status)
	default:
		return status, models.WorkerErrorf(models.ErrKindBadRequest, "%s returned status %d", path, status)
	}
}

// PollJob requests a claim for any of the given types. A nil assignment
// with nil error means no job was available.
func (c *Client) PollJob(ctx context.Context, types []models.JobType) (*models.JobAssignment, error) {
	path := "/jobs/poll?types=" + url.QueryEscape(models.JobTypesCSV(types))

	var assignment models.JobAssignment
	status, err := c.Get(ctx, path, &assignment)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || assignment.AssignmentID == "" {
		return nil, nil
	}
	if err := assignment.Validate(); err != nil {
		return nil, models.WrapError(models.ErrKindProtocol, err, "invalid assignment from poll")
	}
	return &assignment, nil
}

// SubmitResult posts a terminal result, retrying transient failures with
// exponential backoff. Returns the error of the last attempt when all
// attempts fail; the caller treats that as an abandoned assignment.
func (c *Client) SubmitResult(ctx context.Context, assignmentID string, result models.JobResult) error {
	path := fmt.Sprintf("/jobs/assignments/%s/result", url.PathEscape(assignmentID))

	var lastErr error
	backoff := resultBackoffBase
	for attempt := 1; attempt <= resultAttempts; attempt++ {
		_, err := c.do(ctx, http.MethodPost, path, result, nil, c.resultClient)
		if err == nil {
			return nil
		}
		lastErr = err

		if models.KindOf(err) != models.ErrKindTransient || attempt == resultAttempts {
			break
		}
		c.logger.Warn().Err(err).
			Str("assignment_id", assignmentID).
			Int("attempt", attempt).
			Msg("Result POST failed, backing off")
		if err := c.sleep(ctx, backoff); err != nil {
			return models.WrapError(models.ErrKindTransient, err, "result retry interrupted")
		}
		backoff *= 2
	}
	return lastErr
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
